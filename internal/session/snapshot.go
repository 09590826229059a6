package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleSpectator
}

// Player is one seat in the game with its guess history. Guesses[i] was
// answered by Results[i].
type Player struct {
	Name    string   `json:"name"`
	Guesses []string `json:"guesses"`
	Results []string `json:"results"`
}

// Record is a leaderboard line.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

type Standing struct {
	Name string
	Record
}

// Leaderboard is decoded from a JSON object but keeps the object's key order.
// A nil Leaderboard means the field was absent; an empty non-nil one means the
// server sent {}.
type Leaderboard []Standing

func (l *Leaderboard) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("leaderboard: want object, got %v", tok)
	}

	out := Leaderboard{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("leaderboard: bad key %v", tok)
		}
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("leaderboard %q: %w", name, err)
		}
		out = append(out, Standing{Name: name, Record: rec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*l = out
	return nil
}

func (l Leaderboard) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(s.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Snapshot is the client-visible game state as last told by the server.
//
// Every field is optional: a nil pointer, slice or leaderboard means the key
// was not present. The zero Snapshot is the "not logged in" sentinel.
type Snapshot struct {
	Name        *string     `json:"name,omitempty"`
	Game        *string     `json:"game,omitempty"`
	InGame      *bool       `json:"in_game,omitempty"`
	Role        *Role       `json:"role,omitempty"`
	Ready       *bool       `json:"ready,omitempty"`
	LockedGuess *bool       `json:"locked_guess,omitempty"`
	SecretLen   *int        `json:"secret_len,omitempty"`
	Players     []Player    `json:"players,omitempty"`
	Spectators  *int        `json:"spectators,omitempty"`
	Leaderboard Leaderboard `json:"leaderboard,omitempty"`
	Winners     []string    `json:"winners,omitempty"`
}

// Decode parses a server payload. An empty or null payload yields the empty
// snapshot.
func Decode(raw json.RawMessage) (Snapshot, error) {
	var s Snapshot
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

func (s Snapshot) IsEmpty() bool {
	return s.Name == nil && s.Game == nil && s.InGame == nil && s.Role == nil &&
		s.Ready == nil && s.LockedGuess == nil && s.SecretLen == nil &&
		s.Players == nil && s.Spectators == nil && s.Leaderboard == nil &&
		s.Winners == nil
}

// Merge overlays every field present in p onto s. It is a plain shallow
// merge; the in_game transition rule lives in Store.Patch.
func (s Snapshot) Merge(p Snapshot) Snapshot {
	out := s
	if p.Name != nil {
		out.Name = p.Name
	}
	if p.Game != nil {
		out.Game = p.Game
	}
	if p.InGame != nil {
		out.InGame = p.InGame
	}
	if p.Role != nil {
		out.Role = p.Role
	}
	if p.Ready != nil {
		out.Ready = p.Ready
	}
	if p.LockedGuess != nil {
		out.LockedGuess = p.LockedGuess
	}
	if p.SecretLen != nil {
		out.SecretLen = p.SecretLen
	}
	if p.Players != nil {
		out.Players = p.Players
	}
	if p.Spectators != nil {
		out.Spectators = p.Spectators
	}
	if p.Leaderboard != nil {
		out.Leaderboard = p.Leaderboard
	}
	if p.Winners != nil {
		out.Winners = p.Winners
	}
	return out
}

func (s Snapshot) PlayerName() string { return lo.FromPtr(s.Name) }
func (s Snapshot) GameID() string     { return lo.FromPtr(s.Game) }
func (s Snapshot) IsInGame() bool     { return lo.FromPtr(s.InGame) }
func (s Snapshot) RoleOf() Role       { return lo.FromPtr(s.Role) }
func (s Snapshot) IsLocked() bool     { return lo.FromPtr(s.LockedGuess) }
func (s Snapshot) SecretLength() int  { return lo.FromPtr(s.SecretLen) }
func (s Snapshot) SpectatorCount() int {
	return lo.FromPtr(s.Spectators)
}

// IsReady is the lobby readiness flag; it never holds during a round.
func (s Snapshot) IsReady() bool {
	return !s.IsInGame() && lo.FromPtr(s.Ready)
}
