package report

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	got []Event
	err error
}

func (r *recordSink) Report(_ context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestLogSink_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Log: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, s.Report(context.Background(), Event{Kind: KindJoinRejected, Op: "join", Game: "g1", Reason: "name taken"}))

	out := buf.String()
	assert.Contains(t, out, "kind=join_rejected")
	assert.Contains(t, out, "game=g1")
	assert.Contains(t, out, `reason="name taken"`)
}

func TestMulti_ReportsToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordSink{}
	b := &recordSink{err: boom}
	c := &recordSink{}

	err := Multi{a, b, c}.Report(context.Background(), Event{Kind: KindTimeout, Op: "guess"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)

	assert.NoError(t, Multi{a}.Report(context.Background(), Event{}))
	assert.NoError(t, Multi(nil).Report(context.Background(), Event{}))
}
