package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"learnhub-service/internal/domain"
)

func newPoll(t *testing.T) domain.Poll {
	t.Helper()
	options, err := domain.LetterOptions([]string{"red", "green", "blue"})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	return domain.Poll{
		ID:        "p1",
		CourseID:  "course-1",
		Question:  "Favourite colour?",
		Options:   options,
		IsOpen:    true,
		CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPollStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewPollStore(newClient(mr))
	if err := store.Create(ctx, newPoll(t)); err != nil {
		t.Fatalf("create: %v", err)
	}

	poll, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !poll.IsOpen || poll.CourseID != "course-1" || len(poll.Options) != 3 || poll.Options[2].Key != "C" {
		t.Fatalf("unexpected poll %+v", poll)
	}
	if !poll.CreatedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt not preserved: %v", poll.CreatedAt)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPollStoreVotesAreAtomic(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewPollStore(newClient(mr))
	if err := store.Create(ctx, newPoll(t)); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.RecordVote(ctx, "p1", "B"); err != nil {
				t.Errorf("vote: %v", err)
			}
		}()
	}
	wg.Wait()

	poll, err := store.RecordVote(ctx, "p1", "A")
	if err != nil {
		t.Fatalf("vote A: %v", err)
	}
	results := poll.Results()
	if results["A"] != 1 || results["B"] != 20 || results["C"] != 0 {
		t.Fatalf("unexpected tally %v", results)
	}
}

func TestPollStoreRejectsInvalidTargets(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewPollStore(newClient(mr))
	if err := store.Create(ctx, newPoll(t)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.RecordVote(ctx, "p1", "Z"); !errors.Is(err, domain.ErrInvalidVoteTarget) {
		t.Fatalf("expected invalid target for unknown key, got %v", err)
	}
	if _, err := store.RecordVote(ctx, "missing", "A"); !errors.Is(err, domain.ErrInvalidVoteTarget) {
		t.Fatalf("expected invalid target for missing poll, got %v", err)
	}

	closed, err := store.Close(ctx, "p1")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.IsOpen {
		t.Fatalf("expected poll closed")
	}
	if _, err := store.RecordVote(ctx, "p1", "A"); !errors.Is(err, domain.ErrInvalidVoteTarget) {
		t.Fatalf("expected invalid target for closed poll, got %v", err)
	}
	if _, err := store.Close(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found closing missing poll, got %v", err)
	}
}
