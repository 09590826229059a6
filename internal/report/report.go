package report

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Kind string

const (
	KindJoinRejected    Kind = "join_rejected"
	KindRequestRejected Kind = "request_rejected"
	KindTimeout         Kind = "timeout"
	KindProtocol        Kind = "protocol"
)

// Event is one failed interaction with the server.
type Event struct {
	Kind   Kind      `json:"kind"`
	Op     string    `json:"op"`
	Game   string    `json:"game"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Sink receives failures that never reach the session snapshot.
type Sink interface {
	Report(ctx context.Context, ev Event) error
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Report(ctx context.Context, ev Event) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.WarnContext(ctx, "request failed",
		"kind", ev.Kind,
		"op", ev.Op,
		"game", ev.Game,
		"reason", ev.Reason,
	)
	return nil
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Report(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Report(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
