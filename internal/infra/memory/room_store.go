package memory

import (
	"sync"

	"learnhub-service/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Room),
	}
}

func (s *RoomStore) Acquire(roomID string) *app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		room = app.NewRoom(roomID)
		s.rooms[roomID] = room
	}
	room.Retain()
	return room
}

func (s *RoomStore) Release(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	if room.Release() <= 0 {
		delete(s.rooms, roomID)
	}
}

func (s *RoomStore) Get(roomID string) (*app.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

// Len reports how many rooms are live.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
