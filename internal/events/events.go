// Package events publishes optional, fire-and-forget round telemetry to
// Redis. It is strictly observability: nothing about the REPL's commit or
// rollback decisions ever depends on this package, and a publish failure is
// logged and dropped, never surfaced to the user or re-queued (the client's
// own MaxRetries still applies within the publish timeout).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channel = "rustxi:rounds"

// roundEvent is the JSON payload published for every submitted snippet.
type roundEvent struct {
	Code      string `json:"code"`
	Committed bool   `json:"committed"`
	At        int64  `json:"at_unix_ms"`
}

// Publisher wraps a Redis client dedicated to round telemetry.
type Publisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewPublisher connects (lazily; redis.NewClient does not dial until first
// use) to addr/db and logs the outcome of an initial ping diagnostic.
func NewPublisher(addr string, db int, log *zap.Logger) *Publisher {
	opts := &redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}

	p := &Publisher{
		client: redis.NewClient(opts),
		log:    log.Named("events"),
	}

	p.log.Info("redis events publisher initialized", zap.String("addr", addr), zap.Int("db", db))
	p.ping()

	return p
}

func (p *Publisher) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.client.Ping(ctx).Err()
	elapsed := time.Since(start)

	if err != nil {
		p.log.Warn("connection failed", zap.Error(err), zap.Duration("ping_rtt", elapsed))
	} else {
		p.log.Info("connection established", zap.Duration("ping_rtt", elapsed))
	}
}

// PublishRound publishes one round's outcome. It runs synchronously but
// blocks the REPL for at most a short, independent 500ms timeout, and any
// error is only logged.
func (p *Publisher) PublishRound(code string, committed bool) {
	payload, err := json.Marshal(roundEvent{
		Code:      code,
		Committed: committed,
		At:        time.Now().UnixMilli(),
	})
	if err != nil {
		p.log.Error("failed to marshal round event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn("failed to publish round event", zap.Error(err))
	}
}

// Close releases the underlying Redis connection pool.
func (p *Publisher) Close() error {
	return p.client.Close()
}
