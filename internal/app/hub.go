package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

const (
	// MaxMessageLength bounds discussion message text, in characters.
	MaxMessageLength   = 2000
	defaultHistorySize = 50
	maxHistorySize     = 100
)

// Hub relays chat, typing and live-poll events to the connections joined to a room.
type Hub struct {
	rooms    RoomRepository
	messages MessageRepository
	polls    PollRepository
	log      *logger.Logger
	now      func() time.Time
	buffer   int

	relayMu sync.RWMutex
	relay   Relay
}

func NewHub(rooms RoomRepository, messages MessageRepository, polls PollRepository, log *logger.Logger, buffer int) *Hub {
	return &Hub{
		rooms:    rooms,
		messages: messages,
		polls:    polls,
		log:      log.With("component", "Hub"),
		now:      time.Now,
		buffer:   buffer,
	}
}

// UseRelay switches fan-out to go through relay; local delivery then happens only from the
// relay's forwarder so every instance sees the same order.
func (h *Hub) UseRelay(ctx context.Context, relay Relay) error {
	if err := relay.StartForwarder(ctx, h.deliverLocal); err != nil {
		return err
	}
	h.relayMu.Lock()
	h.relay = relay
	h.relayMu.Unlock()
	return nil
}

// Connect registers a new connection for a user; userName is shown to others in typing events.
func (h *Hub) Connect(userID, userName string) *Conn {
	return newConn(uuid.NewString(), userID, userName, h.buffer)
}

// Join adds conn to roomID. Joining twice is a no-op.
func (h *Hub) Join(conn *Conn, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return domain.Invalid("roomId is required")
	}
	if !conn.markJoined(roomID) {
		return nil
	}
	room := h.rooms.Acquire(roomID)
	room.add(conn)
	h.log.Debug("connection joined room", "connId", conn.ID, "roomId", roomID)
	return nil
}

// Leave removes conn from roomID.
func (h *Hub) Leave(conn *Conn, roomID string) {
	roomID = strings.TrimSpace(roomID)
	if !conn.markLeft(roomID) {
		return
	}
	if room, ok := h.rooms.Get(roomID); ok {
		room.remove(conn)
	}
	h.rooms.Release(roomID)
}

// Disconnect leaves every room the connection joined and closes its event stream.
func (h *Hub) Disconnect(conn *Conn) {
	for _, roomID := range conn.Rooms() {
		h.Leave(conn, roomID)
	}
	conn.close()
	h.log.Debug("connection closed", "connId", conn.ID, "userId", conn.UserID)
}

// PostMessage persists a message and then broadcasts it to the room. Nothing is broadcast if
// persistence fails.
func (h *Hub) PostMessage(ctx context.Context, roomID, authorID, text string) (domain.DiscussionMessage, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" || authorID == "" {
		return domain.DiscussionMessage{}, domain.Invalid("roomId and author are required")
	}
	if strings.TrimSpace(text) == "" {
		return domain.DiscussionMessage{}, domain.Invalid("message text is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return domain.DiscussionMessage{}, domain.Invalid("message exceeds %d characters", MaxMessageLength)
	}

	var msg domain.DiscussionMessage
	err := h.publish(ctx, roomID, "", func(ctx context.Context) (Event, error) {
		msg = domain.DiscussionMessage{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: h.now().UTC().Truncate(time.Microsecond),
		}
		if err := h.messages.Create(ctx, msg); err != nil {
			return Event{}, err
		}
		return Event{Type: EventMessage, Payload: msg}, nil
	})
	if err != nil {
		return domain.DiscussionMessage{}, err
	}
	return msg, nil
}

// CreatePoll keys options 'A', 'B', ... and announces the poll to the course room.
func (h *Hub) CreatePoll(ctx context.Context, courseID, question string, options []string) (domain.Poll, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" || strings.TrimSpace(question) == "" {
		return domain.Poll{}, domain.Invalid("courseId and question are required")
	}
	lettered, err := domain.LetterOptions(options)
	if err != nil {
		return domain.Poll{}, err
	}

	var poll domain.Poll
	err = h.publish(ctx, courseID, "", func(ctx context.Context) (Event, error) {
		poll = domain.Poll{
			ID:        uuid.NewString(),
			CourseID:  courseID,
			Question:  question,
			Options:   lettered,
			IsOpen:    true,
			Votes:     make(map[string]int, len(lettered)),
			CreatedAt: h.now().UTC().Truncate(time.Microsecond),
		}
		if err := h.polls.Create(ctx, poll); err != nil {
			return Event{}, err
		}
		return Event{Type: EventPollCreated, Payload: poll}, nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

// RecordVote counts one vote and broadcasts the full tally to the poll's course room. Votes on
// absent or closed polls, or for unknown options, return domain.ErrInvalidVoteTarget and
// broadcast nothing.
func (h *Hub) RecordVote(ctx context.Context, pollID, optionKey string) (domain.Poll, error) {
	poll, err := h.polls.Get(ctx, pollID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Poll{}, domain.ErrInvalidVoteTarget
	}
	if err != nil {
		return domain.Poll{}, err
	}
	if !poll.IsOpen || !poll.HasOption(optionKey) {
		return domain.Poll{}, domain.ErrInvalidVoteTarget
	}

	var updated domain.Poll
	err = h.publish(ctx, poll.CourseID, "", func(ctx context.Context) (Event, error) {
		var err error
		updated, err = h.polls.RecordVote(ctx, pollID, optionKey)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventPollResults, Payload: resultsPayload(updated)}, nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return updated, nil
}

// ClosePoll stops a poll from accepting votes and broadcasts the final tally.
func (h *Hub) ClosePoll(ctx context.Context, pollID string) (domain.Poll, error) {
	poll, err := h.polls.Get(ctx, pollID)
	if err != nil {
		return domain.Poll{}, err
	}
	if !poll.IsOpen {
		return poll, nil
	}

	var closed domain.Poll
	err = h.publish(ctx, poll.CourseID, "", func(ctx context.Context) (Event, error) {
		var err error
		closed, err = h.polls.Close(ctx, pollID)
		if err != nil {
			return Event{}, err
		}
		return Event{Type: EventPollClosed, Payload: resultsPayload(closed)}, nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return closed, nil
}

// Typing tells everyone else in the room that conn's user is typing. Nothing is persisted.
func (h *Hub) Typing(ctx context.Context, roomID string, conn *Conn) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return domain.Invalid("roomId is required")
	}
	return h.publish(ctx, roomID, conn.ID, func(context.Context) (Event, error) {
		return Event{Type: EventUserTyping, Payload: TypingPayload{RoomID: roomID, UserID: conn.UserID, UserName: conn.UserName}}, nil
	})
}

// History pages through a room's messages, newest first.
func (h *Hub) History(ctx context.Context, roomID, cursor string, limit int) (domain.MessagePage, error) {
	if strings.TrimSpace(roomID) == "" {
		return domain.MessagePage{}, domain.Invalid("roomId is required")
	}
	before, err := domain.DecodeCursor(cursor)
	if err != nil {
		return domain.MessagePage{}, err
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}

	messages, err := h.messages.ListByRoom(ctx, roomID, before, limit+1)
	if err != nil {
		return domain.MessagePage{}, err
	}
	page := domain.MessagePage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		last := page.Messages[limit-1]
		page.NextCursor = domain.MessageCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	if page.Messages == nil {
		page.Messages = []domain.DiscussionMessage{}
	}
	return page, nil
}

// publish runs persist and the broadcast of its event under the room's publish lock.
func (h *Hub) publish(ctx context.Context, roomID, exclude string, persist func(context.Context) (Event, error)) error {
	room := h.rooms.Acquire(roomID)
	defer h.rooms.Release(roomID)

	room.publishMu.Lock()
	defer room.publishMu.Unlock()

	ev, err := persist(ctx)
	if err != nil {
		return err
	}

	h.relayMu.RLock()
	relay := h.relay
	h.relayMu.RUnlock()
	if relay != nil {
		err := relay.Publish(ctx, Envelope{RoomID: roomID, Event: ev, ExcludeConnID: exclude})
		if err == nil {
			return nil
		}
		h.log.Warn("relay publish failed, delivering locally", "roomId", roomID, "error", err)
	}
	room.deliver(ev, exclude)
	return nil
}

func (h *Hub) deliverLocal(env Envelope) {
	room, ok := h.rooms.Get(env.RoomID)
	if !ok {
		return
	}
	room.deliver(env.Event, env.ExcludeConnID)
}

func resultsPayload(p domain.Poll) PollResultsPayload {
	return PollResultsPayload{PollID: p.ID, Results: p.Results(), IsOpen: p.IsOpen}
}
