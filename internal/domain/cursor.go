package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// MessageCursor marks a position in a room's newest-first history.
type MessageCursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode renders the cursor as an opaque URL-safe token.
func (c MessageCursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by Encode. An empty token means "from the newest".
func DecodeCursor(token string) (*MessageCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, Invalid("malformed cursor")
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, Invalid("malformed cursor")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, Invalid("malformed cursor")
	}
	return &MessageCursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}

// Older reports whether m comes after the cursor in newest-first order.
func (c MessageCursor) Older(m DiscussionMessage) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}
