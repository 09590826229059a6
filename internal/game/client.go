package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"example.com/bc-client/internal/digits"
	"example.com/bc-client/internal/phoenix"
	"example.com/bc-client/internal/report"
	"example.com/bc-client/internal/session"
)

const (
	opJoin  = "join"
	opGuess = "guess"
	opRole  = "role"
	opReady = "ready"
	opLeave = "leave"
)

// Channel is the part of a phoenix channel the client needs.
type Channel interface {
	Join(ctx context.Context, hook func(phoenix.Reply)) (phoenix.Reply, error)
	Push(ctx context.Context, event string, payload any, hook func(phoenix.Reply)) (phoenix.Reply, error)
	On(event string, fn func(payload json.RawMessage))
	OnClose(fn func())
	Leave()
}

// Opener creates an unjoined channel for a topic.
type Opener func(topic string, params any) Channel

// SocketOpener opens channels on a phoenix socket.
func SocketOpener(s *phoenix.Socket) Opener {
	return func(topic string, params any) Channel {
		return s.Channel(topic, params)
	}
}

type Config struct {
	RequestTimeout time.Duration // 0 => wait for the reply indefinitely
}

// Client owns the one game channel and keeps the session store in step with
// the server. Replies to our own requests replace the snapshot; broadcasts
// are patched in.
type Client struct {
	open  Opener
	store *session.Store
	sink  report.Sink
	cfg   Config
	log   *slog.Logger

	mu   sync.Mutex
	ch   Channel
	game string
}

func NewClient(open Opener, store *session.Store, sink report.Sink, cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = report.LogSink{Log: log}
	}
	return &Client{open: open, store: store, sink: sink, cfg: cfg, log: log}
}

// Joined reports whether a game channel is open.
func (c *Client) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch != nil
}

// Join opens game:<gameID> as name. On success the store is replaced with
// the server's snapshot and update_players broadcasts start flowing into it.
func (c *Client) Join(ctx context.Context, gameID, name string) error {
	c.mu.Lock()
	if c.ch != nil {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}
	ch := c.open(Topic(gameID), JoinPayload{Name: name})
	c.ch = ch
	c.game = gameID
	c.mu.Unlock()

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	var decodeErr error
	r, err := ch.Join(ctx, func(r phoenix.Reply) {
		if !r.OK() {
			return
		}
		snap, err := session.Decode(r.Response)
		if err != nil {
			decodeErr = err
			ch.Leave()
			return
		}
		c.store.Replace(snap)
		ch.On(EventUpdatePlayers, c.onUpdatePlayers)
		ch.OnClose(func() {
			c.log.Warn("game channel closed by server", "game", gameID)
			c.release(ch)
		})
	})

	switch {
	case err != nil:
		err = c.fail(ctx, opJoin, gameID, err)
	case !r.OK():
		err = c.fail(ctx, opJoin, gameID, &RejectedError{Op: opJoin, Reason: reasonOf(r.Response)})
	case decodeErr != nil:
		err = c.fail(ctx, opJoin, gameID, decodeErr)
	default:
		c.log.Info("joined game", "game", gameID, "name", name)
		return nil
	}

	c.release(ch)
	return err
}

// SubmitGuess sends a full-length guess of unique digits, or PassToken.
func (c *Client) SubmitGuess(ctx context.Context, guess string) error {
	if guess != PassToken {
		n := c.store.Current().SecretLength()
		if !digits.IsUnique(guess) || (n > 0 && len(guess) != n) {
			return fmt.Errorf("%w: %q (want %d unique digits)", ErrInvalidGuess, guess, n)
		}
	}
	return c.push(ctx, opGuess, EventGuess, GuessPayload{Guess: guess}, nil)
}

// Pass skips this turn.
func (c *Client) Pass(ctx context.Context) error {
	return c.SubmitGuess(ctx, PassToken)
}

func (c *Client) SetRole(ctx context.Context, role session.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return c.push(ctx, opRole, EventRole, RolePayload{Role: role}, nil)
}

func (c *Client) SetReady(ctx context.Context, ready bool) error {
	return c.push(ctx, opReady, EventReady, ReadyPayload{Ready: ready}, nil)
}

// Leave asks the server to take us out of the game, stores the post-leave
// state it answers with and closes the channel.
func (c *Client) Leave(ctx context.Context) error {
	return c.push(ctx, opLeave, EventLeave, nil, func(ch Channel) {
		ch.Leave()
		c.release(ch)
	})
}

// release frees the game slot if ch still holds it.
func (c *Client) release(ch Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == ch {
		c.ch = nil
		c.game = ""
	}
}

// push sends one request; on an ok reply the store is replaced and then
// after, if any, runs. Both happen on the socket's read goroutine.
func (c *Client) push(ctx context.Context, op, event string, payload any, after func(Channel)) error {
	c.mu.Lock()
	ch, gameID := c.ch, c.game
	c.mu.Unlock()
	if ch == nil {
		return ErrNotJoined
	}

	ctx, cancel := c.requestContext(ctx)
	defer cancel()

	var decodeErr error
	r, err := ch.Push(ctx, event, payload, func(r phoenix.Reply) {
		if !r.OK() {
			return
		}
		snap, err := session.Decode(r.Response)
		if err != nil {
			decodeErr = err
			return
		}
		c.store.Replace(snap)
		if after != nil {
			after(ch)
		}
	})

	switch {
	case errors.Is(err, phoenix.ErrChannelClosed):
		c.release(ch)
		return fmt.Errorf("%s: %w", op, ErrNotJoined)
	case err != nil:
		return c.fail(ctx, op, gameID, err)
	case !r.OK():
		return c.fail(ctx, op, gameID, &RejectedError{Op: op, Reason: reasonOf(r.Response)})
	case decodeErr != nil:
		return c.fail(ctx, op, gameID, decodeErr)
	}
	return nil
}

func (c *Client) onUpdatePlayers(payload json.RawMessage) {
	p, err := session.Decode(payload)
	if err != nil {
		c.log.Warn("dropping update_players", "err", err)
		return
	}
	c.store.Patch(p)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// fail classifies err, hands it to the sink and returns it.
func (c *Client) fail(ctx context.Context, op, gameID string, err error) error {
	ev := report.Event{Op: op, Game: gameID, Reason: err.Error(), At: time.Now()}

	var rej *RejectedError
	switch {
	case errors.As(err, &rej):
		ev.Reason = rej.Reason
		ev.Kind = report.KindRequestRejected
		if op == opJoin {
			ev.Kind = report.KindJoinRejected
		}
	case errors.Is(err, phoenix.ErrTimeout):
		ev.Kind = report.KindTimeout
		err = fmt.Errorf("%s: %w", op, ErrTimeout)
	default:
		ev.Kind = report.KindProtocol
		err = fmt.Errorf("%s: %w", op, err)
	}

	if serr := c.sink.Report(ctx, ev); serr != nil {
		c.log.Warn("report failed", "err", serr)
	}
	return err
}
