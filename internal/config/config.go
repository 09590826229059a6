package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes all runtime settings for the client.
// It is loaded once in main, validated and passed down explicitly.
type Config struct {
	Env string // dev|stage|prod

	Log struct {
		Format string // text|json
		Level  slog.Level
	}

	Socket struct {
		URL              string
		Token            string
		HandshakeTimeout time.Duration
		Heartbeat        time.Duration // 0 => disabled
	}

	// RequestTimeout bounds each join/guess/role/ready/leave round trip.
	// 0 => wait for the reply indefinitely.
	RequestTimeout time.Duration

	Redis struct {
		Addr         string // empty => reports go to the log only
		DB           int
		Stream       string
		StreamMaxLen int64
	}
}

func LoadFromEnv() (Config, error) {
	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Log.Format = envString("LOG_FORMAT", "text")
	lvl, err := parseLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	c.Log.Level = lvl

	c.Socket.URL = envString("SOCKET_URL", "ws://localhost:4000/socket/websocket")
	c.Socket.Token = envString("SOCKET_TOKEN", "")
	c.Socket.HandshakeTimeout = envDuration("SOCKET_HANDSHAKE_TIMEOUT", 10*time.Second)
	c.Socket.Heartbeat = envDuration("SOCKET_HEARTBEAT", 30*time.Second)

	c.RequestTimeout = envDuration("REQUEST_TIMEOUT", 10*time.Second)

	c.Redis.Addr = envString("REDIS_ADDR", "")
	c.Redis.DB = envInt("REDIS_DB", 0)
	c.Redis.Stream = envString("REPORT_STREAM", "bc:client:reports")
	c.Redis.StreamMaxLen = int64(envInt("REPORT_STREAM_MAXLEN", 1000))

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Socket.URL == "" {
		return errors.New("SOCKET_URL is empty")
	}
	u, err := url.Parse(c.Socket.URL)
	if err != nil {
		return fmt.Errorf("SOCKET_URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported SOCKET_URL scheme %q (want ws|wss)", u.Scheme)
	}
	if c.Env == "prod" && u.Scheme != "wss" {
		return errors.New("refuse to use an unencrypted socket in prod")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	if c.Socket.HandshakeTimeout < 0 || c.Socket.Heartbeat < 0 || c.RequestTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.Redis.Addr != "" && c.Redis.Stream == "" {
		return errors.New("REPORT_STREAM is empty")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
