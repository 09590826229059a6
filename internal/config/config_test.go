package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "LOG_FORMAT", "LOG_LEVEL", "SOCKET_URL", "SOCKET_TOKEN",
		"SOCKET_HEARTBEAT", "REQUEST_TIMEOUT", "REDIS_ADDR", "REPORT_STREAM"} {
		t.Setenv(k, "")
	}

	c, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dev", c.Env)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, slog.LevelInfo, c.Log.Level)
	assert.Equal(t, "ws://localhost:4000/socket/websocket", c.Socket.URL)
	assert.Equal(t, 30*time.Second, c.Socket.Heartbeat)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Empty(t, c.Redis.Addr)
	assert.Equal(t, "bc:client:reports", c.Redis.Stream)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SOCKET_URL", "wss://bulls.example.com/socket/websocket")
	t.Setenv("REQUEST_TIMEOUT", "0")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SOCKET_HEARTBEAT", "garbage") // falls back to default

	c, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, slog.LevelDebug, c.Log.Level)
	assert.Equal(t, time.Duration(0), c.RequestTimeout)
	assert.Equal(t, 2, c.Redis.DB)
	assert.Equal(t, 30*time.Second, c.Socket.Heartbeat)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Env = "dev"
		c.Log.Format = "text"
		c.Socket.URL = "ws://localhost:4000/socket/websocket"
		return c
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "empty url", mutate: func(c *Config) { c.Socket.URL = "" }},
		{name: "http url", mutate: func(c *Config) { c.Socket.URL = "http://localhost:4000/socket" }},
		{name: "plain ws in prod", mutate: func(c *Config) { c.Env = "prod" }},
		{name: "wss in prod", mutate: func(c *Config) { c.Env = "prod"; c.Socket.URL = "wss://x/socket/websocket" }, ok: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "negative timeout", mutate: func(c *Config) { c.RequestTimeout = -time.Second }},
		{name: "redis without stream", mutate: func(c *Config) { c.Redis.Addr = "localhost:6379" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadFromEnv_BadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}
