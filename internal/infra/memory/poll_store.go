package memory

import (
	"context"
	"sync"

	"learnhub-service/internal/domain"
)

// PollStore keeps polls in memory; the mutex serializes votes per store.
type PollStore struct {
	mu    sync.Mutex
	polls map[string]domain.Poll
}

func NewPollStore() *PollStore {
	return &PollStore{polls: make(map[string]domain.Poll)}
}

func (s *PollStore) Create(_ context.Context, poll domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (s *PollStore) Get(_ context.Context, pollID string) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return clonePoll(poll), nil
}

func (s *PollStore) RecordVote(_ context.Context, pollID, optionKey string) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok || !poll.IsOpen || !poll.HasOption(optionKey) {
		return domain.Poll{}, domain.ErrInvalidVoteTarget
	}
	if poll.Votes == nil {
		poll.Votes = make(map[string]int)
	}
	poll.Votes[optionKey]++
	s.polls[pollID] = poll
	return clonePoll(poll), nil
}

func (s *PollStore) Close(_ context.Context, pollID string) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	poll.IsOpen = false
	s.polls[pollID] = poll
	return clonePoll(poll), nil
}

func clonePoll(p domain.Poll) domain.Poll {
	p.Options = append([]domain.PollOption(nil), p.Options...)
	votes := make(map[string]int, len(p.Votes))
	for k, v := range p.Votes {
		votes[k] = v
	}
	p.Votes = votes
	return p
}
