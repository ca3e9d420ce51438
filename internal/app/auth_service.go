package app

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"learnhub-service/internal/auth"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

const (
	minPasswordLength = 8
	// bcrypt rejects longer passwords.
	maxPasswordBytes = 72
)

// AuthService registers users and exchanges credentials for session tokens.
type AuthService struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	log    *logger.Logger
	now    func() time.Time
}

func NewAuthService(users UserRepository, tokens *auth.TokenIssuer, log *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		log:    log.With("component", "AuthService"),
		now:    time.Now,
	}
}

// Register creates an account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", domain.Invalid("email is not valid")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, "", domain.Invalid("name is required")
	}
	if len(password) < minPasswordLength {
		return domain.User{}, "", domain.Invalid("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return domain.User{}, "", domain.Invalid("password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return domain.User{}, "", err
	}
	s.log.Info("user registered", "userId", user.ID)
	return user, token, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Authenticate resolves a token to its claims.
func (s *AuthService) Authenticate(token string) (auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Claims{}, domain.ErrUnauthorized
	}
	return claims, nil
}
