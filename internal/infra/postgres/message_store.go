package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"learnhub-service/internal/domain"
)

type messageRow struct {
	bun.BaseModel `bun:"table:discussion_messages,alias:m"`

	ID        string    `bun:"id,pk"`
	RoomID    string    `bun:"room_id,notnull"`
	AuthorID  string    `bun:"author_id,notnull"`
	Text      string    `bun:"text,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// MessageStore persists discussion messages and pages them by (created_at, id).
type MessageStore struct {
	db *bun.DB
}

func NewMessageStore(db *bun.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, msg domain.DiscussionMessage) error {
	row := messageRow{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		AuthorID:  msg.AuthorID,
		Text:      msg.Text,
		CreatedAt: microseconds(msg.CreatedAt),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) ListByRoom(ctx context.Context, roomID string, before *domain.MessageCursor, limit int) ([]domain.DiscussionMessage, error) {
	var rows []messageRow
	q := s.db.NewSelect().Model(&rows).Where("room_id = ?", roomID)
	if before != nil {
		q = q.Where("(created_at, id) < (?, ?)", before.CreatedAt, before.ID)
	}
	err := q.OrderExpr("created_at DESC, id DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]domain.DiscussionMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DiscussionMessage{
			ID:        row.ID,
			RoomID:    row.RoomID,
			AuthorID:  row.AuthorID,
			Text:      row.Text,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
