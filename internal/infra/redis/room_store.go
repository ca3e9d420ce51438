package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"learnhub-service/internal/app"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Members stay in a local map so the in-process fan-out is reused; Redis only carries a
// liveness marker per room (room:live:{roomID}) so operators and other instances can see
// which rooms are active. Cross-instance delivery goes through Relay.
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
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
	// best-effort liveness marker; every join and publish pushes its expiry out again
	_ = s.client.Set(context.Background(), liveKey(roomID), "1", s.ttl).Err()
	room.Retain()
	return room
}

func (s *RoomStore) Get(roomID string) (*app.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	return room, ok
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
		_ = s.client.Del(context.Background(), liveKey(roomID)).Err()
	}
}

func liveKey(roomID string) string {
	return "room:live:" + roomID
}
