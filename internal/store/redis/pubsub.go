package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RetentionChannel carries retention sweep outcome events.
const RetentionChannel = "audit:retention"

type PubSub struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &PubSub{client: client}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ps.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.Publish: %w", err)
	}
	return nil
}

func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 64)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// SweepReporter publishes retention sweep outcomes on RetentionChannel for
// operational consumers.
type SweepReporter struct {
	ps     *PubSub
	logger zerolog.Logger
}

func NewSweepReporter(ps *PubSub, logger zerolog.Logger) *SweepReporter {
	return &SweepReporter{ps: ps, logger: logger}
}

type sweepEvent struct {
	Outcome string    `json:"outcome"`
	Deleted int64     `json:"deleted,omitempty"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

func (r *SweepReporter) SweepCompleted(ctx context.Context, deleted int64) {
	r.publish(ctx, sweepEvent{Outcome: "success", Deleted: deleted, At: time.Now().UTC()})
}

func (r *SweepReporter) SweepFailed(ctx context.Context, err error) {
	r.publish(ctx, sweepEvent{Outcome: "failure", Error: err.Error(), At: time.Now().UTC()})
}

func (r *SweepReporter) publish(ctx context.Context, ev sweepEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn().Err(err).Msg("sweep event marshal")
		return
	}

	if err := r.ps.Publish(ctx, RetentionChannel, payload); err != nil {
		r.logger.Warn().Err(err).Msg("sweep event publish failed")
	}
}
