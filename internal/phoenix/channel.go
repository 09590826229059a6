package phoenix

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var ErrJoined = errors.New("phoenix: channel already joined")

type chanState int

const (
	stateClosed chanState = iota
	stateJoining
	stateJoined
)

// Channel is one topic subscription on a Socket.
type Channel struct {
	sock   *Socket
	topic  string
	params json.RawMessage

	mu       sync.Mutex
	state    chanState
	joinRef  string
	bindings map[string]func(json.RawMessage)
	onClose  func()
}

func (c *Channel) Topic() string { return c.topic }

func (c *Channel) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateJoined
}

// Join sends phx_join with the channel params and waits for the reply.
// hook sees the reply on the read goroutine, after the channel state has
// been updated, so handlers bound inside it catch every later broadcast.
func (c *Channel) Join(ctx context.Context, hook func(Reply)) (Reply, error) {
	c.mu.Lock()
	if c.state != stateClosed {
		c.mu.Unlock()
		return Reply{}, ErrJoined
	}
	ref := c.sock.nextRef()
	c.joinRef = ref
	c.state = stateJoining
	c.mu.Unlock()

	c.sock.register(c)

	msg := Message{JoinRef: ref, Ref: ref, Topic: c.topic, Event: EventJoin, Payload: c.params}
	r, err := c.sock.request(ctx, msg, func(r Reply) {
		c.mu.Lock()
		if r.OK() {
			c.state = stateJoined
		} else {
			c.state = stateClosed
		}
		c.mu.Unlock()
		if !r.OK() {
			c.sock.unregister(c)
		}
		if hook != nil {
			hook(r)
		}
	})
	if err != nil {
		c.mu.Lock()
		c.state = stateClosed
		c.mu.Unlock()
		c.sock.unregister(c)
		if !errors.Is(err, ErrClosed) {
			// a late ok would leave us joined on the server
			c.sendLeave(ref)
		}
		return Reply{}, err
	}
	return r, nil
}

// Push sends event on a joined channel and waits for the reply. hook runs on
// the read goroutine before Push returns.
func (c *Channel) Push(ctx context.Context, event string, payload any, hook func(Reply)) (Reply, error) {
	c.mu.Lock()
	if c.state != stateJoined {
		c.mu.Unlock()
		return Reply{}, ErrChannelClosed
	}
	joinRef := c.joinRef
	c.mu.Unlock()

	msg := Message{
		JoinRef: joinRef,
		Ref:     c.sock.nextRef(),
		Topic:   c.topic,
		Event:   event,
		Payload: mustJSON(payload),
	}
	return c.sock.request(ctx, msg, hook)
}

// On binds fn to a server-pushed event; a later On for the same event
// replaces it. fn runs on the read goroutine.
func (c *Channel) On(event string, fn func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[event] = fn
}

// OnClose registers fn to run, on the read goroutine, when the server ends
// the subscription with phx_error or phx_close. It does not run after Leave.
func (c *Channel) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// Leave unbinds every handler, detaches from the socket and tells the server
// with phx_leave without waiting for an answer. Safe to call from a hook.
func (c *Channel) Leave() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	joinRef := c.joinRef
	c.state = stateClosed
	clear(c.bindings)
	c.onClose = nil
	c.mu.Unlock()

	c.sock.unregister(c)
	c.sendLeave(joinRef)
}

func (c *Channel) sendLeave(joinRef string) {
	msg := Message{JoinRef: joinRef, Ref: c.sock.nextRef(), Topic: c.topic, Event: EventLeave}
	if err := c.sock.write(context.Background(), msg); err != nil {
		c.sock.log.Debug("phx_leave not sent", "topic", c.topic, "err", err)
	}
}

func (c *Channel) handle(msg Message) {
	c.mu.Lock()
	if msg.JoinRef != "" && msg.JoinRef != c.joinRef {
		c.mu.Unlock()
		return
	}

	switch msg.Event {
	case EventError, EventClose:
		c.state = stateClosed
		clear(c.bindings)
		onClose := c.onClose
		c.onClose = nil
		c.mu.Unlock()
		c.sock.unregister(c)
		c.sock.log.Info("channel closed by server", "topic", c.topic, "event", msg.Event)
		if onClose != nil {
			onClose()
		}
		return
	}

	fn := c.bindings[msg.Event]
	c.mu.Unlock()

	if fn == nil {
		c.sock.log.Debug("unhandled event", "topic", c.topic, "event", msg.Event)
		return
	}
	fn(msg.Payload)
}
