package app

import "context"

// Outbound realtime event types.
const (
	EventMessage     = "message"
	EventUserTyping  = "user_typing"
	EventPollCreated = "poll_created"
	EventPollResults = "poll_results"
	EventPollClosed  = "poll_closed"
)

// Event is what a connection receives.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// TypingPayload is the user_typing body.
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// PollResultsPayload carries the full tally of a poll.
type PollResultsPayload struct {
	PollID  string         `json:"pollId"`
	Results map[string]int `json:"results"`
	IsOpen  bool           `json:"isOpen"`
}

// Envelope is an event addressed to a room, as carried by a Relay.
type Envelope struct {
	RoomID        string `json:"roomId"`
	Event         Event  `json:"event"`
	ExcludeConnID string `json:"excludeConnId,omitempty"`
}

// Relay carries envelopes between service instances (Redis pub/sub in production).
type Relay interface {
	Publish(ctx context.Context, env Envelope) error
	StartForwarder(ctx context.Context, onEnvelope func(Envelope)) error
}
