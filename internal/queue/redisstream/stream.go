// Package redisstream is a queue transport on Redis/Valkey streams with a
// consumer group. Each message carries its JSON body in the "payload" field.
package redisstream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
)

const payloadField = "payload"

// store is the consumer interface for stream commands (ISP).
type store interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	XGroupCreate(ctx context.Context, stream, group string) error
	XReadGroup(
		ctx context.Context, stream, group, consumer string, count int64, block time.Duration,
	) ([]db.StreamMessage, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error
}

// Config names the stream and the consumer group.
type Config struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
	Batch    int64
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration
}

// Queue publishes to and consumes from one stream.
type Queue struct {
	store  store
	cfg    Config
	logger *zap.Logger
}

// New creates a stream queue. Zero Batch/Block/RetryDelay get defaults.
func New(s store, cfg Config, logger *zap.Logger) *Queue {
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Queue{store: s, cfg: cfg, logger: logger}
}

// Setup creates the consumer group (and stream) if missing.
func (q *Queue) Setup(ctx context.Context) error {
	if err := q.store.XGroupCreate(ctx, q.cfg.Stream, q.cfg.Group); err != nil {
		return fmt.Errorf("create consumer group %s/%s: %w", q.cfg.Stream, q.cfg.Group, err)
	}
	return nil
}

// Publish appends msg to the stream.
func (q *Queue) Publish(ctx context.Context, msg queue.Message) error {
	data, err := queue.Encode(msg)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped by queue.Encode
	}
	if _, err := q.store.XAdd(ctx, q.cfg.Stream, map[string]string{payloadField: string(data)}); err != nil {
		return fmt.Errorf("xadd %s: %w", q.cfg.Stream, err)
	}
	return nil
}

// Consume reads from the group until ctx is canceled. Every message is acked
// after h returns; malformed payloads are logged and acked without calling h.
func (q *Queue) Consume(ctx context.Context, h queue.Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := q.store.XReadGroup(ctx, q.cfg.Stream, q.cfg.Group, q.cfg.Consumer, q.cfg.Batch, q.cfg.Block)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Warn("Failed to read from stream", zap.String("stream", q.cfg.Stream), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(q.cfg.RetryDelay):
			}
			continue
		}

		for _, m := range msgs {
			q.deliver(ctx, m, h)
		}
	}
}

func (q *Queue) deliver(ctx context.Context, m db.StreamMessage, h queue.Handler) {
	msg, err := queue.Decode([]byte(m.Fields[payloadField]))
	if err != nil {
		q.logger.Warn("Dropping malformed stream message", zap.String("id", m.ID), zap.Error(err))
	} else {
		h(ctx, msg)
	}

	// Ack with a fresh context so a shutdown mid-handler still acks.
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := q.store.XAck(ackCtx, q.cfg.Stream, q.cfg.Group, m.ID); err != nil {
		q.logger.Warn("Failed to ack stream message", zap.String("id", m.ID), zap.Error(err))
	}
}
