package app

import (
	"context"

	"learnhub-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptRepository persists attempts. Implementations make the count-and-insert in
// CreateWithinLimit and the open-check in Finish atomic.
type AttemptRepository interface {
	// CreateWithinLimit stores attempt unless the student already holds limit attempts for the
	// quiz, in which case it returns domain.ErrLimitExceeded.
	CreateWithinLimit(ctx context.Context, attempt domain.Attempt, limit int) error
	Get(ctx context.Context, attemptID string) (domain.Attempt, error)
	// Finish closes an open attempt with its graded fields. It returns
	// domain.ErrAlreadySubmitted if the attempt was closed in the meantime.
	Finish(ctx context.Context, attempt domain.Attempt) error
	ListByQuizStudent(ctx context.Context, quizID, studentID string) ([]domain.Attempt, error)
}

// PollRepository persists live polls. RecordVote must serialize per poll.
type PollRepository interface {
	Create(ctx context.Context, poll domain.Poll) error
	Get(ctx context.Context, pollID string) (domain.Poll, error)
	// RecordVote increments optionKey and returns the updated poll, or
	// domain.ErrInvalidVoteTarget when the poll is absent, closed or has no such option.
	RecordVote(ctx context.Context, pollID, optionKey string) (domain.Poll, error)
	Close(ctx context.Context, pollID string) (domain.Poll, error)
}

// MessageRepository persists discussion messages.
type MessageRepository interface {
	Create(ctx context.Context, msg domain.DiscussionMessage) error
	// ListByRoom returns up to limit messages older than before (all when nil), newest first.
	ListByRoom(ctx context.Context, roomID string, before *domain.MessageCursor, limit int) ([]domain.DiscussionMessage, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	// Create returns domain.ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, user domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// RoomRepository abstracts where live rooms are registered (in-memory, Redis-marked, etc).
// Acquire and Release are reference counted: a room lives while it has members or in-flight
// publishes.
type RoomRepository interface {
	Acquire(roomID string) *Room
	Release(roomID string)
	Get(roomID string) (*Room, bool)
}
