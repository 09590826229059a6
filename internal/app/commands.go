package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"example.com/bc-client/internal/session"
	"example.com/bc-client/internal/view"
)

var (
	ErrQuit        = errors.New("quit")
	ErrUnknownCmd  = errors.New("unknown command")
	ErrUsage       = errors.New("usage")
	ErrNotInGame   = errors.New("no round in progress")
	ErrLocked      = errors.New("guess locked, waiting for other players")
	ErrNameMissing = errors.New("no name given and the token carries none")
)

// GameClient is what the controller drives. *game.Client implements it.
type GameClient interface {
	Join(ctx context.Context, gameID, name string) error
	SubmitGuess(ctx context.Context, guess string) error
	Pass(ctx context.Context) error
	SetRole(ctx context.Context, role session.Role) error
	SetReady(ctx context.Context, ready bool) error
	Leave(ctx context.Context) error
}

const helpText = `Commands:
  /join <game> [name]        join or create a game
  /ready, /unready           toggle readiness in the lobby
  /role player|spectator     switch role in the lobby
  /pass                      pass this turn
  /leave                     leave the game
  /quit                      exit
Anything else during a round is typed into the guess box.
`

// Controller turns input lines into client calls and redraws the screen
// whenever the session store changes.
type Controller struct {
	client      GameClient
	store       *session.Store
	out         io.Writer
	defaultName string
	log         *slog.Logger

	mu      sync.Mutex
	pending view.Pending
}

func NewController(client GameClient, store *session.Store, out io.Writer, defaultName string, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{client: client, store: store, out: out, defaultName: defaultName, log: log}
	store.Subscribe(c.redraw)
	return c
}

// Redraw renders the current snapshot.
func (c *Controller) Redraw() {
	c.redraw(c.store.Current())
}

// Handle runs one input line. It returns ErrQuit for /quit.
// Must not be called from a store subscriber.
func (c *Controller) Handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return c.typeGuess(ctx, line)
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/join":
		return c.join(ctx, args)
	case "/ready":
		return c.client.SetReady(ctx, true)
	case "/unready":
		return c.client.SetReady(ctx, false)
	case "/role":
		if len(args) != 1 {
			return fmt.Errorf("%w: /role player|spectator", ErrUsage)
		}
		return c.client.SetRole(ctx, session.Role(args[0]))
	case "/pass":
		c.clearPending()
		return c.client.Pass(ctx)
	case "/leave":
		c.clearPending()
		return c.client.Leave(ctx)
	case "/help":
		c.mu.Lock()
		defer c.mu.Unlock()
		_, err := io.WriteString(c.out, helpText)
		return err
	case "/quit":
		return ErrQuit
	}
	return fmt.Errorf("%w %q, try /help", ErrUnknownCmd, cmd)
}

func (c *Controller) join(ctx context.Context, args []string) error {
	var gameID, name string
	switch len(args) {
	case 1:
		gameID, name = args[0], c.defaultName
	case 2:
		gameID, name = args[0], args[1]
	default:
		return fmt.Errorf("%w: /join <game> [name]", ErrUsage)
	}
	if name == "" {
		return ErrNameMissing
	}
	return c.client.Join(ctx, gameID, name)
}

// typeGuess adds text to the guess box and submits it once it is a full,
// unlocked guess. The box is cleared before the request goes out.
func (c *Controller) typeGuess(ctx context.Context, text string) error {
	sc := view.Compose(c.store.Current())
	if sc.Phase != view.PhaseGame {
		return ErrNotInGame
	}
	if sc.Game.Locked {
		return ErrLocked
	}

	c.mu.Lock()
	c.pending.Set(*sc.Game, c.pending.String()+text)
	guess := ""
	if sc.Game.CanGuess(c.pending.String()) {
		guess = c.pending.Take()
	}
	c.mu.Unlock()

	if guess == "" {
		c.Redraw()
		return nil
	}
	return c.client.SubmitGuess(ctx, guess)
}

func (c *Controller) clearPending() {
	c.mu.Lock()
	c.pending.Clear()
	c.mu.Unlock()
}

func (c *Controller) redraw(s session.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc := view.Compose(s)
	if sc.Phase != view.PhaseGame {
		c.pending.Clear()
	}
	if err := view.Render(c.out, sc, c.pending.String()); err != nil {
		c.log.Warn("render failed", "err", err)
	}
}

// Notify prints err below the current screen.
func (c *Controller) Notify(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "! %v\n", err)
}
