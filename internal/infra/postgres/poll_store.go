package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"learnhub-service/internal/domain"
)

type pollRow struct {
	bun.BaseModel `bun:"table:polls,alias:p"`

	ID        string              `bun:"id,pk"`
	CourseID  string              `bun:"course_id,notnull"`
	Question  string              `bun:"question,notnull"`
	Options   []domain.PollOption `bun:"options,type:jsonb,notnull"`
	IsOpen    bool                `bun:"is_open,notnull"`
	CreatedAt time.Time           `bun:"created_at,notnull"`
}

type voteRow struct {
	bun.BaseModel `bun:"table:poll_votes,alias:v"`

	PollID    string `bun:"poll_id,pk"`
	OptionKey string `bun:"option_key,pk"`
	Count     int    `bun:"count,notnull"`
}

// PollStore persists polls and their tallies. Votes lock the poll row so checks and the
// increment happen as one step.
type PollStore struct {
	db *bun.DB
}

func NewPollStore(db *bun.DB) *PollStore {
	return &PollStore{db: db}
}

func (s *PollStore) Create(ctx context.Context, poll domain.Poll) error {
	row := pollRow{
		ID:        poll.ID,
		CourseID:  poll.CourseID,
		Question:  poll.Question,
		Options:   poll.Options,
		IsOpen:    poll.IsOpen,
		CreatedAt: microseconds(poll.CreatedAt),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	return nil
}

func (s *PollStore) Get(ctx context.Context, pollID string) (domain.Poll, error) {
	return s.load(ctx, s.db, pollID)
}

func (s *PollStore) RecordVote(ctx context.Context, pollID, optionKey string) (domain.Poll, error) {
	var poll domain.Poll
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var row pollRow
		err := tx.NewSelect().Model(&row).Where("id = ?", pollID).For("UPDATE").Scan(ctx)
		if isNoRows(err) {
			return domain.ErrInvalidVoteTarget
		}
		if err != nil {
			return fmt.Errorf("lock poll: %w", err)
		}
		current := row.toDomain(nil)
		if !current.IsOpen || !current.HasOption(optionKey) {
			return domain.ErrInvalidVoteTarget
		}

		vote := voteRow{PollID: pollID, OptionKey: optionKey, Count: 1}
		_, err = tx.NewInsert().
			Model(&vote).
			On("CONFLICT (poll_id, option_key) DO UPDATE").
			Set("count = v.count + EXCLUDED.count").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("record vote: %w", err)
		}

		poll, err = s.load(ctx, tx, pollID)
		return err
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return poll, nil
}

func (s *PollStore) Close(ctx context.Context, pollID string) (domain.Poll, error) {
	res, err := s.db.NewUpdate().
		Model((*pollRow)(nil)).
		Set("is_open = FALSE").
		Where("id = ?", pollID).
		Exec(ctx)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("close poll: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return s.Get(ctx, pollID)
}

func (s *PollStore) load(ctx context.Context, db bun.IDB, pollID string) (domain.Poll, error) {
	var row pollRow
	err := db.NewSelect().Model(&row).Where("id = ?", pollID).Scan(ctx)
	if isNoRows(err) {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("load poll: %w", err)
	}
	var votes []voteRow
	if err := db.NewSelect().Model(&votes).Where("poll_id = ?", pollID).Scan(ctx); err != nil {
		return domain.Poll{}, fmt.Errorf("load poll votes: %w", err)
	}
	return row.toDomain(votes), nil
}

func (r pollRow) toDomain(votes []voteRow) domain.Poll {
	tally := make(map[string]int, len(votes))
	for _, v := range votes {
		tally[v.OptionKey] = v.Count
	}
	return domain.Poll{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Question:  r.Question,
		Options:   r.Options,
		IsOpen:    r.IsOpen,
		Votes:     tally,
		CreatedAt: r.CreatedAt,
	}
}
