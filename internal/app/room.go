package app

import (
	"sync"
	"sync/atomic"
)

// Room is an in-memory set of connections joined to one room id. Publishes for a room are
// serialized so members see events in persistence order.
type Room struct {
	id        string
	refs      atomic.Int32
	publishMu sync.Mutex

	mu      sync.RWMutex
	members map[*Conn]struct{}
}

// NewRoom is exported for infrastructure layers that register rooms.
func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		members: make(map[*Conn]struct{}),
	}
}

func (r *Room) ID() string {
	return r.id
}

// Retain and Release track members plus in-flight publishes. Room repositories call them
// while holding their own lock.
func (r *Room) Retain() {
	r.refs.Add(1)
}

// Release returns the remaining reference count.
func (r *Room) Release() int {
	return int(r.refs.Add(-1))
}

func (r *Room) add(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[c] = struct{}{}
}

func (r *Room) remove(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, c)
}

// deliver fans ev out to every member except the connection with id exclude.
func (r *Room) deliver(ev Event, exclude string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	delivered := 0
	for c := range r.members {
		if exclude != "" && c.ID == exclude {
			continue
		}
		if c.deliver(ev) {
			delivered++
		}
	}
	return delivered
}
