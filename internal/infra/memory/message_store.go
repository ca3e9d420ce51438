package memory

import (
	"context"
	"sort"
	"sync"

	"learnhub-service/internal/domain"
)

// MessageStore keeps discussion messages per room, sorted newest first.
type MessageStore struct {
	mu    sync.RWMutex
	rooms map[string][]domain.DiscussionMessage
}

func NewMessageStore() *MessageStore {
	return &MessageStore{rooms: make(map[string][]domain.DiscussionMessage)}
}

func (s *MessageStore) Create(_ context.Context, msg domain.DiscussionMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.rooms[msg.RoomID], msg)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	s.rooms[msg.RoomID] = list
	return nil
}

func (s *MessageStore) ListByRoom(_ context.Context, roomID string, before *domain.MessageCursor, limit int) ([]domain.DiscussionMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DiscussionMessage, 0, limit)
	for _, msg := range s.rooms[roomID] {
		if before != nil && !before.Older(msg) {
			continue
		}
		out = append(out, msg)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
