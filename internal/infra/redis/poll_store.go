package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"learnhub-service/internal/domain"
)

// PollStore keeps live polls in Redis.
// Layout: HSET poll:{id} courseId question options keys open createdAt
//
//	HINCRBY poll:{id}:votes {optionKey} 1
//
// Votes run as a Lua script, so checks and the increment are atomic per poll.
type PollStore struct {
	client *redis.Client
}

func NewPollStore(client *redis.Client) *PollStore {
	return &PollStore{client: client}
}

var voteScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'open') ~= '1' then
  return false
end
local keys = redis.call('HGET', KEYS[1], 'keys')
if not keys or string.len(ARGV[1]) ~= 1 or not string.find(keys, ARGV[1], 1, true) then
  return false
end
redis.call('HINCRBY', KEYS[2], ARGV[1], 1)
return redis.call('HGETALL', KEYS[2])
`)

var closeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'open', '0')
return 1
`)

func (s *PollStore) Create(ctx context.Context, poll domain.Poll) error {
	options, err := json.Marshal(poll.Options)
	if err != nil {
		return fmt.Errorf("encode poll options: %w", err)
	}
	keys := make([]string, 0, len(poll.Options))
	for _, opt := range poll.Options {
		keys = append(keys, opt.Key)
	}
	open := "0"
	if poll.IsOpen {
		open = "1"
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, pollKey(poll.ID),
			"courseId", poll.CourseID,
			"question", poll.Question,
			"options", string(options),
			"keys", strings.Join(keys, ""),
			"open", open,
			"createdAt", poll.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		for key, count := range poll.Votes {
			if count > 0 {
				pipe.HSet(ctx, votesKey(poll.ID), key, count)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create poll: %w", err)
	}
	return nil
}

func (s *PollStore) Get(ctx context.Context, pollID string) (domain.Poll, error) {
	meta, err := s.client.HGetAll(ctx, pollKey(pollID)).Result()
	if err != nil {
		return domain.Poll{}, fmt.Errorf("load poll: %w", err)
	}
	if len(meta) == 0 {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	rawVotes, err := s.client.HGetAll(ctx, votesKey(pollID)).Result()
	if err != nil {
		return domain.Poll{}, fmt.Errorf("load poll votes: %w", err)
	}
	votes := make(map[string]int, len(rawVotes))
	for key, raw := range rawVotes {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("poll %s: bad tally for %s: %w", pollID, key, err)
		}
		votes[key] = n
	}
	return decodePoll(pollID, meta, votes)
}

func (s *PollStore) RecordVote(ctx context.Context, pollID, optionKey string) (domain.Poll, error) {
	flat, err := voteScript.Run(ctx, s.client, []string{pollKey(pollID), votesKey(pollID)}, optionKey).StringSlice()
	if errors.Is(err, redis.Nil) {
		return domain.Poll{}, domain.ErrInvalidVoteTarget
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("record vote: %w", err)
	}
	meta, err := s.client.HGetAll(ctx, pollKey(pollID)).Result()
	if err != nil {
		return domain.Poll{}, fmt.Errorf("load poll: %w", err)
	}
	votes := make(map[string]int, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		n, err := strconv.Atoi(flat[i+1])
		if err != nil {
			return domain.Poll{}, fmt.Errorf("poll %s: bad tally for %s: %w", pollID, flat[i], err)
		}
		votes[flat[i]] = n
	}
	return decodePoll(pollID, meta, votes)
}

func (s *PollStore) Close(ctx context.Context, pollID string) (domain.Poll, error) {
	found, err := closeScript.Run(ctx, s.client, []string{pollKey(pollID)}).Int()
	if err != nil {
		return domain.Poll{}, fmt.Errorf("close poll: %w", err)
	}
	if found == 0 {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return s.Get(ctx, pollID)
}

func decodePoll(pollID string, meta map[string]string, votes map[string]int) (domain.Poll, error) {
	poll := domain.Poll{
		ID:       pollID,
		CourseID: meta["courseId"],
		Question: meta["question"],
		IsOpen:   meta["open"] == "1",
		Votes:    votes,
	}
	if err := json.Unmarshal([]byte(meta["options"]), &poll.Options); err != nil {
		return domain.Poll{}, fmt.Errorf("poll %s: decode options: %w", pollID, err)
	}
	if raw := meta["createdAt"]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Poll{}, fmt.Errorf("poll %s: decode createdAt: %w", pollID, err)
		}
		poll.CreatedAt = createdAt
	}
	return poll, nil
}

func pollKey(pollID string) string {
	return "poll:" + pollID
}

func votesKey(pollID string) string {
	return "poll:" + pollID + ":votes"
}
