package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"learnhub-service/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts,alias:a"`

	ID         string                    `bun:"id,pk"`
	QuizID     string                    `bun:"quiz_id,notnull"`
	StudentID  string                    `bun:"student_id,notnull"`
	StartedAt  time.Time                 `bun:"started_at,notnull"`
	Deadline   *time.Time                `bun:"deadline"`
	FinishedAt *time.Time                `bun:"finished_at"`
	Answers    []domain.AnswerSubmission `bun:"answers,type:jsonb"`
	Score      int                       `bun:"score,notnull"`
	MaxScore   int                       `bun:"max_score,notnull"`
	Details    []domain.QuestionResult   `bun:"details,type:jsonb"`
}

// AttemptStore persists attempts with bun. The attempt cap is enforced under a
// transaction-scoped advisory lock keyed by (quiz, student).
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) CreateWithinLimit(ctx context.Context, attempt domain.Attempt, limit int) error {
	row := toAttemptRow(attempt)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", attempt.QuizID+":"+attempt.StudentID); err != nil {
			return fmt.Errorf("lock attempts: %w", err)
		}
		count, err := tx.NewSelect().
			Model((*attemptRow)(nil)).
			Where("quiz_id = ?", attempt.QuizID).
			Where("student_id = ?", attempt.StudentID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		if count >= limit {
			return domain.ErrLimitExceeded
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	})
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", attemptID).Scan(ctx)
	if isNoRows(err) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return row.toDomain(), nil
}

func (s *AttemptStore) Finish(ctx context.Context, attempt domain.Attempt) error {
	row := toAttemptRow(attempt)
	res, err := s.db.NewUpdate().
		Model(&row).
		Column("finished_at", "answers", "score", "max_score", "details").
		Where("id = ?", row.ID).
		Where("finished_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish attempt: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, attempt.ID); err != nil {
		return err
	}
	return domain.ErrAlreadySubmitted
}

func (s *AttemptStore) ListByQuizStudent(ctx context.Context, quizID, studentID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Where("student_id = ?", studentID).
		OrderExpr("started_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func toAttemptRow(a domain.Attempt) attemptRow {
	row := attemptRow{
		ID:        a.ID,
		QuizID:    a.QuizID,
		StudentID: a.StudentID,
		StartedAt: microseconds(a.StartedAt),
		Answers:   a.Answers,
		Score:     a.Score,
		MaxScore:  a.MaxScore,
		Details:   a.Details,
	}
	if a.Deadline != nil {
		t := microseconds(*a.Deadline)
		row.Deadline = &t
	}
	if a.FinishedAt != nil {
		t := microseconds(*a.FinishedAt)
		row.FinishedAt = &t
	}
	return row
}

func (r attemptRow) toDomain() domain.Attempt {
	return domain.Attempt{
		ID:         r.ID,
		QuizID:     r.QuizID,
		StudentID:  r.StudentID,
		StartedAt:  r.StartedAt,
		Deadline:   r.Deadline,
		FinishedAt: r.FinishedAt,
		Answers:    r.Answers,
		Score:      r.Score,
		MaxScore:   r.MaxScore,
		Details:    r.Details,
	}
}
