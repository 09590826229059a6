package game

import (
	"encoding/json"
	"strings"

	"example.com/bc-client/internal/session"
)

// Events on a game topic.
const (
	EventGuess         = "guess"
	EventRole          = "role"
	EventReady         = "ready"
	EventLeave         = "leave"
	EventUpdatePlayers = "update_players" // server broadcast, partial snapshot
)

// PassToken is sent in place of a guess to skip a turn.
const PassToken = "pass"

const topicPrefix = "game:"

// JoinPayload is sent with phx_join.
type JoinPayload struct {
	Name string `json:"name"`
}

type GuessPayload struct {
	Guess string `json:"guess"`
}

type RolePayload struct {
	Role session.Role `json:"role"`
}

type ReadyPayload struct {
	Ready bool `json:"ready"`
}

// ErrorPayload is the usual shape of an error reply; anything else is kept raw.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

func reasonOf(raw json.RawMessage) string {
	var p ErrorPayload
	if err := json.Unmarshal(raw, &p); err == nil && p.Reason != "" {
		return p.Reason
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	if len(raw) == 0 {
		return "unknown"
	}
	return string(raw)
}

// Topic is the channel topic for a game.
func Topic(gameID string) string {
	return topicPrefix + gameID
}

// GameFromTopic is the inverse of Topic.
func GameFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
