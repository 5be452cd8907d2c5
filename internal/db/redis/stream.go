package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/PoYaSharonLin/Sparko-api/internal/db"
)

// XAdd appends a message with an auto-generated ID and returns that ID.
func (s *Store) XAdd(ctx context.Context, stream string, fields map[string]string) (string, error) {
	cmd := s.b().Xadd().Key(stream).Id("*").FieldValue()
	for _, kv := range pairs(fields) {
		cmd = cmd.FieldValue(kv[0], kv[1])
	}
	id, err := s.do(ctx, cmd.Build()).ToString()
	if err != nil {
		return "", &db.Error{Op: db.OpXAdd, Err: err}
	}
	return id, nil
}

// XGroupCreate creates a consumer group starting at the beginning of the stream.
func (s *Store) XGroupCreate(ctx context.Context, stream, group string) error {
	cmd := s.b().XgroupCreate().Key(stream).Group(group).Id("0").Mkstream().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "BUSYGROUP") {
			return nil
		}
		return &db.Error{Op: db.OpXGroupCreate, Err: err}
	}
	return nil
}

// XReadGroup reads undelivered messages for consumer, waiting up to block.
func (s *Store) XReadGroup(
	ctx context.Context, stream, group, consumer string, count int64, block time.Duration,
) ([]db.StreamMessage, error) {
	cmd := s.b().Xreadgroup().Group(group, consumer).
		Count(count).
		Block(block.Milliseconds()).
		Streams().Key(stream).Id(">").
		Build()

	res, err := s.do(ctx, cmd).AsXRead()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpXReadGroup, Err: err}
	}

	entries := res[stream]
	out := make([]db.StreamMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, db.StreamMessage{ID: e.ID, Fields: e.FieldValues})
	}
	return out, nil
}

// XAck acknowledges processed messages.
func (s *Store) XAck(ctx context.Context, stream, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	cmd := s.b().Xack().Key(stream).Group(group).Id(ids...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpXAck, Err: err}
	}
	return nil
}
