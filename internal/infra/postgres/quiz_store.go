package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"learnhub-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID        string      `bun:"id,pk"`
	Data      domain.Quiz `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time   `bun:"updated_at,notnull"`
}

// QuizStore writes quiz documents; reads go through QuizLoader.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

// Upsert validates quiz and stores it, replacing any previous version.
func (s *QuizStore) Upsert(ctx context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	row := quizRow{ID: quiz.ID, Data: quiz, UpdatedAt: microseconds(time.Now())}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert quiz %s: %w", quiz.ID, err)
	}
	return nil
}
