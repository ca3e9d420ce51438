package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"learnhub-service/internal/app"
	"learnhub-service/internal/domain"
	"learnhub-service/internal/logger"
)

const maxFrameBytes = 64 << 10

// Inbound websocket message types.
const (
	msgJoinRoom   = "join_room"
	msgLeaveRoom  = "leave_room"
	msgNewMessage = "new_message"
	msgTyping     = "typing"
	msgPollCreate = "live_poll_create"
	msgPollVote   = "live_poll_vote"
	msgPollClose  = "live_poll_close"
)

type WSHandler struct {
	hub      *app.Hub
	auth     *app.AuthService
	log      *logger.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *app.Hub, auth *app.AuthService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		auth:     auth,
		log:      log.With("component", "WSHandler"),
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type messagePayload struct {
	RoomID string `json:"roomId" validate:"required"`
	Text   string `json:"text" validate:"required,max=2000"`
}

type pollCreatePayload struct {
	CourseID string   `json:"courseId" validate:"required"`
	Question string   `json:"question" validate:"required"`
	Options  []string `json:"options" validate:"min=2,max=26,dive,required"`
}

type pollVotePayload struct {
	PollID    string `json:"pollId" validate:"required"`
	OptionKey string `json:"optionKey" validate:"required"`
}

type pollClosePayload struct {
	PollID string `json:"pollId" validate:"required"`
}

type joinedPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// ServeWS authenticates with ?token=, upgrades, and relays hub events to the client.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Authenticate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxFrameBytes)

	conn := h.hub.Connect(claims.UserID(), claims.Name)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := make(chan app.Event, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for ev := range send {
			if err := ws.WriteJSON(ev); err != nil {
				h.log.Debug("ws write error", "connId", conn.ID, "error", err)
				_ = ws.Close()
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		events := conn.Events()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- ev:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(ev app.Event) {
		select {
		case send <- ev:
		case <-closeSignals:
		}
	}

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		if ev, ok := h.dispatch(ctx, conn, inbound); ok {
			reply(ev)
		}
	}

	close(closeSignals)
	h.hub.Disconnect(conn)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatch runs one inbound message. It returns an event for the sender only, if any.
func (h *WSHandler) dispatch(ctx context.Context, conn *app.Conn, in inboundMessage) (app.Event, bool) {
	var err error
	switch in.Type {
	case msgJoinRoom:
		var p roomPayload
		if err = h.decode(in.Payload, &p); err == nil {
			if err = h.hub.Join(conn, p.RoomID); err == nil {
				return app.Event{Type: "joined", Payload: joinedPayload{RoomID: p.RoomID, UserID: conn.UserID}}, true
			}
		}
	case msgLeaveRoom:
		var p roomPayload
		if err = h.decode(in.Payload, &p); err == nil {
			h.hub.Leave(conn, p.RoomID)
		}
	case msgNewMessage:
		var p messagePayload
		if err = h.decode(in.Payload, &p); err == nil {
			_, err = h.hub.PostMessage(ctx, p.RoomID, conn.UserID, p.Text)
		}
	case msgTyping:
		var p roomPayload
		if err = h.decode(in.Payload, &p); err == nil {
			err = h.hub.Typing(ctx, p.RoomID, conn)
		}
	case msgPollCreate:
		var p pollCreatePayload
		if err = h.decode(in.Payload, &p); err == nil {
			_, err = h.hub.CreatePoll(ctx, p.CourseID, p.Question, p.Options)
		}
	case msgPollVote:
		var p pollVotePayload
		if err = h.decode(in.Payload, &p); err == nil {
			_, err = h.hub.RecordVote(ctx, p.PollID, p.OptionKey)
			if errors.Is(err, domain.ErrInvalidVoteTarget) {
				// votes on closed or unknown polls are dropped without a reply
				return app.Event{}, false
			}
		}
	case msgPollClose:
		var p pollClosePayload
		if err = h.decode(in.Payload, &p); err == nil {
			_, err = h.hub.ClosePoll(ctx, p.PollID)
		}
	default:
		err = domain.Invalid("unsupported message type %q", in.Type)
	}
	if err == nil {
		return app.Event{}, false
	}

	status, apiErr := mapError(err)
	if status == http.StatusInternalServerError {
		h.log.Error("ws message failed", "type", in.Type, "connId", conn.ID, "error", err)
	}
	return app.Event{Type: "error", Payload: apiErr}, true
}

func (h *WSHandler) decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return domain.Invalid("payload is required")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Invalid("malformed payload")
	}
	return h.validate.Struct(dst)
}
