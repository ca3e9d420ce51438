package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

// Stable machine-readable error codes.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeLimitExceeded      = "LIMIT_EXCEEDED"
	CodeAlreadySubmitted   = "ALREADY_SUBMITTED"
	CodeInvalidVoteTarget  = "INVALID_VOTE_TARGET"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: specific sentinels before their parents.
var errorMappings = []errorMapping{
	{domain.ErrQuizNotFound, http.StatusNotFound, CodeNotFound, "quiz not found"},
	{domain.ErrAttemptNotFound, http.StatusNotFound, CodeNotFound, "attempt not found"},
	{domain.ErrPollNotFound, http.StatusNotFound, CodeNotFound, "poll not found"},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound, "not found"},
	{domain.ErrForbidden, http.StatusForbidden, CodeForbidden, "attempt belongs to another student"},
	{domain.ErrLimitExceeded, http.StatusBadRequest, CodeLimitExceeded, "attempt limit reached for this quiz"},
	{domain.ErrAlreadySubmitted, http.StatusBadRequest, CodeAlreadySubmitted, "attempt already submitted"},
	{domain.ErrInvalidVoteTarget, http.StatusBadRequest, CodeInvalidVoteTarget, "poll is closed or option is unknown"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid token"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"},
	{domain.ErrEmailTaken, http.StatusConflict, CodeEmailTaken, "email already registered"},
}

// mapError resolves err to an HTTP status, code and client-safe message.
func mapError(err error) (int, APIError) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, APIError{Message: m.message, Code: m.code}
		}
	}
	var verrs validator.ValidationErrors
	if errors.Is(err, domain.ErrInvalidInput) || errors.As(err, &verrs) {
		return http.StatusBadRequest, APIError{Message: err.Error(), Code: CodeInvalidInput}
	}
	return http.StatusInternalServerError, APIError{Message: "internal error", Code: CodeInternal}
}

// respondError writes the error envelope; unexpected errors are logged, never echoed.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	status, apiErr := mapError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}

func respondInvalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{Message: err.Error(), Code: CodeInvalidInput}})
}
