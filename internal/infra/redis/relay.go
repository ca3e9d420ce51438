package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"learnhub-service/internal/app"
	"learnhub-service/internal/logger"
)

// Relay fans hub envelopes out to every service instance over one pub/sub channel.
type Relay struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

func NewRelay(client *redis.Client, channel string, log *logger.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		log:     log.With("component", "RedisRelay"),
	}
}

func (r *Relay) Publish(ctx context.Context, env app.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

// StartForwarder subscribes and calls onEnvelope for every message until ctx is done.
func (r *Relay) StartForwarder(ctx context.Context, onEnvelope func(app.Envelope)) error {
	if onEnvelope == nil {
		return fmt.Errorf("onEnvelope callback required")
	}

	sub := r.client.Subscribe(ctx, r.channel)
	// make sure the subscription is live before publishing starts
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var env app.Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					r.log.Warn("bad relay payload", "error", err)
					continue
				}
				onEnvelope(env)
			}
		}
	}()
	return nil
}
