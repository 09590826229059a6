package game

import (
	"context"
	"encoding/json"
	"testing"

	"example.com/bc-client/internal/phoenix"
	"example.com/bc-client/internal/report"
	"example.com/bc-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	event   string
	payload any
}

// fakeChannel answers every request through respond and runs hooks inline,
// the way the socket's read goroutine would.
type fakeChannel struct {
	topic    string
	params   any
	respond  func(event string, payload any) (phoenix.Reply, error)
	sent     []sent
	bindings map[string]func(json.RawMessage)
	onClose  func()
	left     bool
	closed   bool
}

func (f *fakeChannel) Join(_ context.Context, hook func(phoenix.Reply)) (phoenix.Reply, error) {
	return f.do(phoenix.EventJoin, f.params, hook)
}

func (f *fakeChannel) Push(_ context.Context, event string, payload any, hook func(phoenix.Reply)) (phoenix.Reply, error) {
	if f.closed {
		return phoenix.Reply{}, phoenix.ErrChannelClosed
	}
	return f.do(event, payload, hook)
}

func (f *fakeChannel) do(event string, payload any, hook func(phoenix.Reply)) (phoenix.Reply, error) {
	f.sent = append(f.sent, sent{event, payload})
	r, err := f.respond(event, payload)
	if err != nil {
		return phoenix.Reply{}, err
	}
	if hook != nil {
		hook(r)
	}
	return r, nil
}

func (f *fakeChannel) On(event string, fn func(json.RawMessage)) {
	f.bindings[event] = fn
}

func (f *fakeChannel) OnClose(fn func()) { f.onClose = fn }

func (f *fakeChannel) Leave() {
	f.left = true
	f.closed = true
	f.onClose = nil
	clear(f.bindings)
}

// serverClose mimics phx_error/phx_close arriving for the topic.
func (f *fakeChannel) serverClose(notify bool) {
	f.closed = true
	clear(f.bindings)
	if fn := f.onClose; notify && fn != nil {
		f.onClose = nil
		fn()
	}
}

func (f *fakeChannel) broadcast(event, payload string) {
	if fn := f.bindings[event]; fn != nil {
		fn(json.RawMessage(payload))
	}
}

type recordSink struct {
	events []report.Event
}

func (r *recordSink) Report(_ context.Context, ev report.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type harness struct {
	client  *Client
	store   *session.Store
	sink    *recordSink
	opened  []*fakeChannel
	respond func(event string, payload any) (phoenix.Reply, error)
}

func newHarness() *harness {
	h := &harness{store: session.NewStore(nil), sink: &recordSink{}}
	h.respond = func(string, any) (phoenix.Reply, error) { return ok(`{}`), nil }
	open := func(topic string, params any) Channel {
		fc := &fakeChannel{
			topic:    topic,
			params:   params,
			bindings: map[string]func(json.RawMessage){},
			respond:  func(e string, p any) (phoenix.Reply, error) { return h.respond(e, p) },
		}
		h.opened = append(h.opened, fc)
		return fc
	}
	h.client = NewClient(open, h.store, h.sink, Config{}, nil)
	return h
}

func (h *harness) ch() *fakeChannel { return h.opened[len(h.opened)-1] }

func ok(resp string) phoenix.Reply {
	return phoenix.Reply{Status: phoenix.StatusOK, Response: json.RawMessage(resp)}
}

func rejected(reason string) phoenix.Reply {
	return phoenix.Reply{Status: phoenix.StatusError, Response: json.RawMessage(`{"reason":"` + reason + `"}`)}
}

const lobbySnap = `{"name":"Alice","game":"g1","in_game":false,"role":"player","ready":false,
	"players":[{"name":"Alice","guesses":[],"results":[]}],"spectators":0,"leaderboard":{}}`

const gameSnap = `{"name":"Alice","game":"g1","in_game":true,"role":"player","locked_guess":false,"secret_len":4,
	"players":[{"name":"Alice","guesses":[],"results":[]}],"spectators":0,"leaderboard":{}}`

func (h *harness) join(t *testing.T, resp string) {
	t.Helper()
	prev := h.respond
	h.respond = func(string, any) (phoenix.Reply, error) { return ok(resp), nil }
	require.NoError(t, h.client.Join(context.Background(), "g1", "Alice"))
	h.respond = prev
}

func TestClient_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "join replaces store and subscribes to update_players",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)

				fc := h.ch()
				assert.Equal(t, "game:g1", fc.topic)
				assert.Equal(t, JoinPayload{Name: "Alice"}, fc.params)
				assert.True(t, h.client.Joined())
				assert.Equal(t, "Alice", h.store.Current().PlayerName())
				assert.Contains(t, fc.bindings, EventUpdatePlayers)
			},
		},
		{
			name: "broadcast is patched, not replaced",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)

				h.ch().broadcast(EventUpdatePlayers, `{"spectators":3}`)

				cur := h.store.Current()
				assert.Equal(t, 3, cur.SpectatorCount())
				assert.Equal(t, "Alice", cur.PlayerName())
				assert.Len(t, cur.Players, 1)
			},
		},
		{
			name: "broadcast ending the round clears ready",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, `{"name":"Alice","in_game":true,"ready":true,"role":"player"}`)

				h.ch().broadcast(EventUpdatePlayers, `{"in_game":false,"winners":["Bob"]}`)

				cur := h.store.Current()
				assert.False(t, cur.IsInGame())
				require.NotNil(t, cur.Ready)
				assert.False(t, *cur.Ready)
				assert.Equal(t, []string{"Bob"}, cur.Winners)
			},
		},
		{
			name: "malformed broadcast is dropped",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)
				before := h.store.Current()

				h.ch().broadcast(EventUpdatePlayers, `{"spectators":"many"}`)
				assert.Equal(t, before, h.store.Current())
			},
		},
		{
			name: "join rejected leaves store empty and reports",
			run: func(t *testing.T) {
				h := newHarness()
				h.respond = func(string, any) (phoenix.Reply, error) { return rejected("name taken"), nil }

				err := h.client.Join(context.Background(), "g1", "Alice")
				require.ErrorIs(t, err, ErrJoinRejected)
				assert.NotErrorIs(t, err, ErrRequestRejected)
				assert.True(t, h.store.Current().IsEmpty())
				assert.False(t, h.client.Joined())

				require.Len(t, h.sink.events, 1)
				assert.Equal(t, report.KindJoinRejected, h.sink.events[0].Kind)
				assert.Equal(t, "name taken", h.sink.events[0].Reason)
				assert.Equal(t, "g1", h.sink.events[0].Game)

				// the user may retry
				h.join(t, lobbySnap)
				assert.True(t, h.client.Joined())
			},
		},
		{
			name: "double join is refused without opening a channel",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)

				err := h.client.Join(context.Background(), "g2", "Alice")
				assert.ErrorIs(t, err, ErrAlreadyJoined)
				assert.Len(t, h.opened, 1)
			},
		},
		{
			name: "join timeout is its own error kind",
			run: func(t *testing.T) {
				h := newHarness()
				h.respond = func(string, any) (phoenix.Reply, error) { return phoenix.Reply{}, phoenix.ErrTimeout }

				err := h.client.Join(context.Background(), "g1", "Alice")
				assert.ErrorIs(t, err, ErrTimeout)
				assert.NotErrorIs(t, err, ErrJoinRejected)
				assert.False(t, h.client.Joined())
				require.Len(t, h.sink.events, 1)
				assert.Equal(t, report.KindTimeout, h.sink.events[0].Kind)
			},
		},
		{
			name: "join with undecodable snapshot fails and closes the channel",
			run: func(t *testing.T) {
				h := newHarness()
				h.respond = func(string, any) (phoenix.Reply, error) { return ok(`{"in_game":"yes"}`), nil }

				err := h.client.Join(context.Background(), "g1", "Alice")
				assert.Error(t, err)
				assert.True(t, h.ch().left)
				assert.False(t, h.client.Joined())
				assert.True(t, h.store.Current().IsEmpty())
			},
		},
		{
			name: "guess reply replaces the whole snapshot",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, `{"name":"Alice","in_game":true,"role":"player","secret_len":4,"winners":["Bob"]}`)
				h.respond = func(string, any) (phoenix.Reply, error) { return ok(gameSnap), nil }

				require.NoError(t, h.client.SubmitGuess(context.Background(), "1234"))

				last := h.ch().sent[len(h.ch().sent)-1]
				assert.Equal(t, sent{EventGuess, GuessPayload{Guess: "1234"}}, last)
				assert.Nil(t, h.store.Current().Winners)
				assert.Equal(t, 4, h.store.Current().SecretLength())
			},
		},
		{
			name: "invalid guesses never leave the client",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)
				n := len(h.ch().sent)

				for _, g := range []string{"123", "12345", "1123", "12a4", ""} {
					assert.ErrorIs(t, h.client.SubmitGuess(context.Background(), g), ErrInvalidGuess, g)
				}
				assert.Len(t, h.ch().sent, n)
				assert.Empty(t, h.sink.events)
			},
		},
		{
			name: "pass sends the pass token",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)

				require.NoError(t, h.client.Pass(context.Background()))
				last := h.ch().sent[len(h.ch().sent)-1]
				assert.Equal(t, sent{EventGuess, GuessPayload{Guess: PassToken}}, last)
			},
		},
		{
			name: "rejected request leaves the snapshot untouched",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)
				before := h.store.Current()
				h.respond = func(string, any) (phoenix.Reply, error) { return rejected("locked"), nil }

				err := h.client.SubmitGuess(context.Background(), "1234")
				require.ErrorIs(t, err, ErrRequestRejected)
				var rej *RejectedError
				require.ErrorAs(t, err, &rej)
				assert.Equal(t, "guess", rej.Op)
				assert.Equal(t, "locked", rej.Reason)

				assert.Equal(t, before, h.store.Current())
				require.Len(t, h.sink.events, 1)
				assert.Equal(t, report.KindRequestRejected, h.sink.events[0].Kind)
				assert.True(t, h.client.Joined())
			},
		},
		{
			name: "role and ready send their payloads",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)
				h.respond = func(event string, _ any) (phoenix.Reply, error) {
					if event == EventRole {
						return ok(`{"name":"Alice","in_game":false,"role":"spectator"}`), nil
					}
					return ok(`{"name":"Alice","in_game":false,"role":"player","ready":true}`), nil
				}

				require.NoError(t, h.client.SetRole(context.Background(), session.RoleSpectator))
				assert.Equal(t, session.RoleSpectator, h.store.Current().RoleOf())

				require.NoError(t, h.client.SetReady(context.Background(), true))
				assert.True(t, h.store.Current().IsReady())

				sentEvents := h.ch().sent[1:]
				assert.Equal(t, []sent{
					{EventRole, RolePayload{Role: session.RoleSpectator}},
					{EventReady, ReadyPayload{Ready: true}},
				}, sentEvents)

				assert.ErrorIs(t, h.client.SetRole(context.Background(), "referee"), ErrInvalidRole)
			},
		},
		{
			name: "requests before join fail locally",
			run: func(t *testing.T) {
				h := newHarness()
				assert.ErrorIs(t, h.client.SetReady(context.Background(), true), ErrNotJoined)
				assert.ErrorIs(t, h.client.Pass(context.Background()), ErrNotJoined)
				assert.ErrorIs(t, h.client.Leave(context.Background()), ErrNotJoined)
				assert.Empty(t, h.opened)
			},
		},
		{
			name: "leave stores post-leave state then tears the channel down",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)
				fc := h.ch()
				h.respond = func(string, any) (phoenix.Reply, error) {
					return ok(`{"name":"Alice","in_game":false,"role":"player","players":[]}`), nil
				}

				require.NoError(t, h.client.Leave(context.Background()))
				assert.True(t, fc.left)
				assert.False(t, h.client.Joined())
				assert.False(t, h.store.Current().IsInGame())

				// broadcasts no longer reach the store
				before := h.store.Current()
				fc.broadcast(EventUpdatePlayers, `{"spectators":9}`)
				assert.Equal(t, before, h.store.Current())

				// and a fresh join is allowed
				h.join(t, lobbySnap)
				assert.Len(t, h.opened, 2)
			},
		},
		{
			name: "failed leave keeps the channel",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)
				h.respond = func(string, any) (phoenix.Reply, error) { return rejected("nope"), nil }

				assert.ErrorIs(t, h.client.Leave(context.Background()), ErrRequestRejected)
				assert.False(t, h.ch().left)
				assert.True(t, h.client.Joined())
			},
		},
		{
			name: "server closing the channel frees the slot for a rejoin",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, gameSnap)
				fc := h.ch()

				fc.serverClose(true)
				assert.False(t, h.client.Joined())
				assert.ErrorIs(t, h.client.Leave(context.Background()), ErrNotJoined)
				assert.ErrorIs(t, h.client.SetReady(context.Background(), true), ErrNotJoined)
				assert.Len(t, fc.sent, 1, "nothing is pushed on a dead channel")

				h.join(t, lobbySnap)
				assert.True(t, h.client.Joined())
				assert.Len(t, h.opened, 2)
				assert.Equal(t, "Alice", h.store.Current().PlayerName())
			},
		},
		{
			name: "push on a channel closed underneath drops it",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)
				h.ch().serverClose(false)

				err := h.client.Leave(context.Background())
				assert.ErrorIs(t, err, ErrNotJoined)
				assert.False(t, h.client.Joined())
				assert.Empty(t, h.sink.events)

				h.join(t, lobbySnap)
				assert.True(t, h.client.Joined())
			},
		},
		{
			name: "close callback from an old channel leaves the new one alone",
			run: func(t *testing.T) {
				h := newHarness()
				h.join(t, lobbySnap)
				old := h.ch()
				closeOld := old.onClose
				require.NotNil(t, closeOld)

				h.respond = func(string, any) (phoenix.Reply, error) { return ok(`{"name":"Alice","players":[]}`), nil }
				require.NoError(t, h.client.Leave(context.Background()))
				h.join(t, lobbySnap)

				closeOld()
				assert.True(t, h.client.Joined())
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, tc.run)
	}
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, "full", reasonOf(json.RawMessage(`{"reason":"full"}`)))
	assert.Equal(t, "plain", reasonOf(json.RawMessage(`"plain"`)))
	assert.Equal(t, `{"code":1}`, reasonOf(json.RawMessage(`{"code":1}`)))
	assert.Equal(t, "unknown", reasonOf(nil))
}
