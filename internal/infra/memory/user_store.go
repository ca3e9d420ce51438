package memory

import (
	"context"
	"sync"

	"learnhub-service/internal/domain"
)

// UserStore keeps accounts in memory, keyed by lower-cased email.
type UserStore struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]domain.User)}
}

func (s *UserStore) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return domain.ErrEmailTaken
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}
