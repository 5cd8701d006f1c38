// Package redisbus broadcasts job lifecycle events over a Redis pub/sub
// channel so any number of API processes can observe worker progress.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

// JobEvent mirrors one job_run_event row as it crosses the wire.
type JobEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	JobType  string    `json:"job_type"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status"`
	Stage    string    `json:"stage"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
	At       time.Time `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, ev JobEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev JobEvent)) error
	Close() error
}

type redisBus struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

func NewRedisBus(log *logger.Logger) (Bus, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_JOB_CHANNEL"))
	if ch == "" {
		ch = "job_events"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		log:     log.With("service", "RedisJobBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, ev JobEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onEvent func(ev JobEvent)) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
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
					return
				}
				var ev JobEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis job event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// NopBus satisfies Bus when Redis is not configured (CLI, tests).
type NopBus struct{}

func (NopBus) Publish(ctx context.Context, ev JobEvent) error { return nil }
func (NopBus) StartForwarder(ctx context.Context, onEvent func(ev JobEvent)) error {
	return nil
}
func (NopBus) Close() error { return nil }
