package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"example.com/bc-client/internal/auth"
	"example.com/bc-client/internal/config"
	"example.com/bc-client/internal/game"
	"example.com/bc-client/internal/phoenix"
	"example.com/bc-client/internal/report"
	"example.com/bc-client/internal/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const leaveOnQuitTimeout = 2 * time.Second

type App struct {
	cfg config.Config
	log *slog.Logger

	rdb  *redis.Client
	sock *phoenix.Socket

	client *game.Client
	ctl    *Controller
	in     io.Reader
}

type Options struct {
	In  io.Reader // defaults to os.Stdin
	Out io.Writer // defaults to os.Stdout
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts Options) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	sessionID := uuid.NewString()
	log = log.With("session", sessionID)

	// --- Token ---
	var defaultName string
	params := map[string]string{}
	if cfg.Socket.Token != "" {
		claims, err := auth.Inspect(cfg.Socket.Token)
		if err != nil {
			return nil, fmt.Errorf("socket token: %w", err)
		}
		if err := claims.CheckExpiry(time.Now()); err != nil {
			if cfg.Env == "prod" {
				return nil, err
			}
			log.Warn("socket token looks expired, dialing anyway", "exp", claims.ExpiresAt)
		}
		defaultName = claims.DisplayName
		params["token"] = cfg.Socket.Token
	}

	// --- Reports ---
	var sink report.Sink = report.LogSink{Log: log}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping (%s db=%d): %w", cfg.Redis.Addr, cfg.Redis.DB, err)
		}
		sink = report.Multi{sink, report.NewRedisSink(rdb, cfg.Redis.Stream, cfg.Redis.StreamMaxLen, sessionID)}
	}

	// --- Socket ---
	sock, err := phoenix.Dial(ctx, cfg.Socket.URL, phoenix.Options{
		Params:           params,
		HandshakeTimeout: cfg.Socket.HandshakeTimeout,
		Heartbeat:        cfg.Socket.Heartbeat,
		Logger:           log,
	})
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	// --- Game ---
	store := session.NewStore(log)
	client := game.NewClient(game.SocketOpener(sock), store, sink,
		game.Config{RequestTimeout: cfg.RequestTimeout}, log)
	ctl := NewController(client, store, opts.Out, defaultName, log)

	return &App{cfg: cfg, log: log, rdb: rdb, sock: sock, client: client, ctl: ctl, in: opts.In}, nil
}

// Run drives the socket and the input loop until ctx ends, the user quits
// or the connection is lost.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	a.log.Info("connected", "url", a.cfg.Socket.URL)

	g.Go(func() error {
		return a.sock.Run(gctx)
	})

	g.Go(func() error {
		defer a.sock.Close()
		return a.inputLoop(gctx)
	})

	err := g.Wait()
	_ = a.Close()
	return err
}

func (a *App) inputLoop(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	a.ctl.Redraw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				a.leave(ctx)
				return nil
			}
			err := a.ctl.Handle(ctx, line)
			switch {
			case errors.Is(err, ErrQuit):
				a.leave(ctx)
				return nil
			case err != nil:
				a.ctl.Notify(err)
			}
		}
	}
}

// leave tells the server we are gone before the socket closes.
func (a *App) leave(ctx context.Context) {
	if !a.client.Joined() {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveOnQuitTimeout)
	defer cancel()
	if err := a.client.Leave(lctx); err != nil {
		a.log.Debug("leave on quit failed", "err", err)
	}
}

func (a *App) Close() error {
	// best-effort
	_ = a.sock.Close()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	return nil
}
