package memory

import (
	"context"
	"sort"
	"sync"

	"learnhub-service/internal/domain"
)

// AttemptStore keeps attempts in memory. A single mutex makes limit checks and closes atomic.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]domain.Attempt
	byOwner  map[ownerKey][]string
}

type ownerKey struct {
	quizID    string
	studentID string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		byOwner:  make(map[ownerKey][]string),
	}
}

func (s *AttemptStore) CreateWithinLimit(_ context.Context, attempt domain.Attempt, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ownerKey{quizID: attempt.QuizID, studentID: attempt.StudentID}
	if len(s.byOwner[key]) >= limit {
		return domain.ErrLimitExceeded
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	s.byOwner[key] = append(s.byOwner[key], attempt.ID)
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Finish(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[attempt.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if !current.Open() {
		return domain.ErrAlreadySubmitted
	}
	current.FinishedAt = attempt.FinishedAt
	current.Answers = attempt.Answers
	current.Score = attempt.Score
	current.MaxScore = attempt.MaxScore
	current.Details = attempt.Details
	s.attempts[attempt.ID] = cloneAttempt(current)
	return nil
}

func (s *AttemptStore) ListByQuizStudent(_ context.Context, quizID, studentID string) ([]domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byOwner[ownerKey{quizID: quizID, studentID: studentID}]
	out := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneAttempt(s.attempts[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	if a.FinishedAt != nil {
		t := *a.FinishedAt
		a.FinishedAt = &t
	}
	if a.Deadline != nil {
		t := *a.Deadline
		a.Deadline = &t
	}
	a.Details = append([]domain.QuestionResult(nil), a.Details...)
	answers := make([]domain.AnswerSubmission, len(a.Answers))
	for i, ans := range a.Answers {
		answers[i] = domain.AnswerSubmission{
			QuestionID:   ans.QuestionID,
			SelectedKeys: append([]string(nil), ans.SelectedKeys...),
		}
	}
	a.Answers = answers
	return a
}
