package app

import (
	"sort"
	"sync"
)

// Conn is one realtime client. Events are buffered; a slow reader loses the oldest ones.
type Conn struct {
	ID       string
	UserID   string
	UserName string

	mu     sync.Mutex
	closed bool
	out    chan Event
	rooms  map[string]struct{}
}

func newConn(id, userID, userName string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	return &Conn{
		ID:       id,
		UserID:   userID,
		UserName: userName,
		out:      make(chan Event, buffer),
		rooms:    make(map[string]struct{}),
	}
}

// Events is closed once the connection is disconnected.
func (c *Conn) Events() <-chan Event {
	return c.out
}

// Rooms lists the joined room ids in sorted order.
func (c *Conn) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for id := range c.rooms {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms
}

func (c *Conn) deliver(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- ev:
	default:
		// Drop the oldest queued event so a stalled client never blocks the room.
		select {
		case <-c.out:
		default:
		}
		select {
		case c.out <- ev:
		default:
			return false
		}
	}
	return true
}

func (c *Conn) markJoined(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if _, ok := c.rooms[roomID]; ok {
		return false
	}
	c.rooms[roomID] = struct{}{}
	return true
}

func (c *Conn) markLeft(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[roomID]; !ok {
		return false
	}
	delete(c.rooms, roomID)
	return true
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}
