package phoenix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

var (
	ErrClosed        = errors.New("phoenix: socket closed")
	ErrTimeout       = errors.New("phoenix: request timed out")
	ErrChannelClosed = errors.New("phoenix: channel not joined")
)

type Options struct {
	Params           map[string]string
	HandshakeTimeout time.Duration
	Heartbeat        time.Duration // 0 => no heartbeat
	Logger           *slog.Logger
}

// Socket multiplexes channels over one WebSocket. All inbound frames are
// handled on the goroutine running Run, one at a time, in arrival order.
type Socket struct {
	ws        *websocket.Conn
	send      chan []byte
	heartbeat time.Duration
	log       *slog.Logger

	ref atomic.Uint64

	mu       sync.Mutex
	pending  map[string]*pending
	channels map[string]*Channel
	hbRef    string

	done      chan struct{}
	closeOnce sync.Once
}

type pending struct {
	hook func(Reply)
	done chan Reply
}

// Dial connects to a Phoenix socket endpoint such as
// ws://host/socket/websocket. Run must be called to start exchanging frames.
func Dial(ctx context.Context, rawURL string, opts Options) (*Socket, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("phoenix: url: %w", err)
	}
	q := u.Query()
	for k, v := range opts.Params {
		q.Set(k, v)
	}
	q.Set("vsn", Vsn)
	u.RawQuery = q.Encode()

	d := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	ws, resp, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("phoenix: dial %s://%s%s: status %d: %w", u.Scheme, u.Host, u.Path, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("phoenix: dial %s://%s%s: %w", u.Scheme, u.Host, u.Path, err)
	}

	return newSocket(ws, opts.Heartbeat, log), nil
}

func newSocket(ws *websocket.Conn, heartbeat time.Duration, log *slog.Logger) *Socket {
	return &Socket{
		ws:        ws,
		send:      make(chan []byte, 64),
		heartbeat: heartbeat,
		log:       log,
		pending:   make(map[string]*pending),
		channels:  make(map[string]*Channel),
		done:      make(chan struct{}),
	}
}

// Run reads and writes frames until ctx ends, the connection drops or Close
// is called. A deliberate Close returns nil.
func (s *Socket) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.done:
		}
		s.Close()
		return nil
	})
	g.Go(func() error { return s.writeLoop(gctx) })
	g.Go(s.readLoop)

	return g.Wait()
}

func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ws.Close()
	})
	return err
}

// Done is closed once the socket is closed.
func (s *Socket) Done() <-chan struct{} { return s.done }

// Channel returns a new, unjoined channel for topic.
func (s *Socket) Channel(topic string, params any) *Channel {
	return &Channel{
		sock:     s,
		topic:    topic,
		params:   mustJSON(params),
		bindings: make(map[string]func(json.RawMessage)),
	}
}

func (s *Socket) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

func (s *Socket) writeLoop(ctx context.Context) error {
	var tick <-chan time.Time
	if s.heartbeat > 0 {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case msg := <-s.send:
			if err := s.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				if s.isClosed() {
					return nil
				}
				return fmt.Errorf("phoenix: write: %w", err)
			}
		case <-tick:
			if err := s.sendHeartbeat(); err != nil {
				return err
			}
		}
	}
}

func (s *Socket) sendHeartbeat() error {
	s.mu.Lock()
	if s.hbRef != "" {
		s.mu.Unlock()
		s.log.Warn("heartbeat timeout, closing socket")
		s.Close()
		return ErrTimeout
	}
	ref := s.nextRef()
	s.hbRef = ref
	s.mu.Unlock()

	b, _ := json.Marshal(Message{Ref: ref, Topic: heartbeatTopic, Event: EventHeartbeat})
	if err := s.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		if s.isClosed() {
			return nil
		}
		return fmt.Errorf("phoenix: heartbeat: %w", err)
	}
	return nil
}

func (s *Socket) readLoop() error {
	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if s.isClosed() {
				return nil
			}
			s.Close()
			return fmt.Errorf("phoenix: read: %w", err)
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("dropping malformed frame", "err", err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Socket) dispatch(msg Message) {
	if msg.Event == EventReply {
		s.resolve(msg)
		return
	}

	s.mu.Lock()
	c := s.channels[msg.Topic]
	s.mu.Unlock()
	if c == nil {
		s.log.Debug("no channel for frame", "topic", msg.Topic, "event", msg.Event)
		return
	}
	c.handle(msg)
}

func (s *Socket) resolve(msg Message) {
	var r Reply
	if err := json.Unmarshal(msg.Payload, &r); err != nil {
		s.log.Warn("bad reply payload", "topic", msg.Topic, "ref", msg.Ref, "err", err)
		return
	}

	s.mu.Lock()
	if msg.Ref != "" && msg.Ref == s.hbRef {
		s.hbRef = ""
		s.mu.Unlock()
		return
	}
	p, ok := s.pending[msg.Ref]
	delete(s.pending, msg.Ref)
	s.mu.Unlock()

	if !ok {
		s.log.Debug("reply for unknown ref", "topic", msg.Topic, "ref", msg.Ref)
		return
	}
	if p.hook != nil {
		p.hook(r)
	}
	p.done <- r
}

// request sends msg and waits for the matching phx_reply. hook runs on the
// read goroutine before request returns.
func (s *Socket) request(ctx context.Context, msg Message, hook func(Reply)) (Reply, error) {
	p := &pending{hook: hook, done: make(chan Reply, 1)}

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		return Reply{}, ErrClosed
	}
	s.pending[msg.Ref] = p
	s.mu.Unlock()

	if err := s.write(ctx, msg); err != nil {
		s.forget(msg.Ref)
		return Reply{}, err
	}

	select {
	case r := <-p.done:
		return r, nil
	case <-ctx.Done():
		if !s.forget(msg.Ref) {
			// the reader already took it; its hook has run or is running
			return <-p.done, nil
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Reply{}, fmt.Errorf("%s %s: %w", msg.Topic, msg.Event, ErrTimeout)
		}
		return Reply{}, ctx.Err()
	case <-s.done:
		if !s.forget(msg.Ref) {
			return <-p.done, nil
		}
		return Reply{}, ErrClosed
	}
}

func (s *Socket) write(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("phoenix: encode %s: %w", msg.Event, err)
	}
	select {
	case s.send <- b:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Socket) forget(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[ref]
	delete(s.pending, ref)
	return ok
}

func (s *Socket) register(c *Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[c.topic] = c
}

func (s *Socket) unregister(c *Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[c.topic] == c {
		delete(s.channels, c.topic)
	}
}

func (s *Socket) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
