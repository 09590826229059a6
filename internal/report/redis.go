package report

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const writeTimeout = 2 * time.Second

// RedisSink appends events to a capped Redis stream so several clients can
// be watched from one place.
type RedisSink struct {
	rdb     *redis.Client
	stream  string
	maxLen  int64
	session string
}

func NewRedisSink(rdb *redis.Client, stream string, maxLen int64, session string) *RedisSink {
	return &RedisSink{rdb: rdb, stream: stream, maxLen: maxLen, session: session}
}

func (s *RedisSink) Report(ctx context.Context, ev Event) error {
	// the failing request's deadline has usually passed already
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"session": s.session,
			"kind":    string(ev.Kind),
			"op":      ev.Op,
			"game":    ev.Game,
			"reason":  ev.Reason,
			"at_ms":   ev.At.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("report: xadd %s: %w", s.stream, err)
	}
	return nil
}
