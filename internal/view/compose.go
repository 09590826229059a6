package view

import (
	"strings"

	"example.com/bc-client/internal/digits"
	"example.com/bc-client/internal/session"
	"github.com/samber/lo"
)

// Screen is everything the presentation layer needs for one snapshot.
// Which bodies are set depends on Phase:
//
//	PhaseLogin      none
//	PhaseLobby      Lobby
//	PhaseGameOver   GameOver, Lobby
//	PhaseGame       Game
//	PhaseSpectator  Board
type Screen struct {
	Phase      Phase
	Spectators int

	Lobby    *Lobby
	GameOver *GameOver
	Game     *Game
	Board    *Board
}

type Entry struct {
	Name string
	You  bool
}

func (e Entry) Label() string {
	if e.You {
		return e.Name + " (You)"
	}
	return e.Name
}

type Lobby struct {
	Players     []Entry
	Role        session.Role
	CanReady    bool // only players get the ready toggle
	Ready       bool
	Leaderboard []Rank
}

type GameOver struct {
	Winners []string
}

func (g GameOver) Headline() string {
	return "The winner(s) were: " + strings.Join(g.Winners, ", ")
}

type Game struct {
	SecretLen int
	Locked    bool
	Board     Board
}

// Input sanitises raw guess text: unique digits, at most SecretLen of them.
func (g Game) Input(raw string) string {
	s := digits.Unique(raw)
	if g.SecretLen > 0 && len(s) > g.SecretLen {
		s = s[:g.SecretLen]
	}
	return s
}

// CanGuess reports whether pending may be submitted as a guess.
func (g Game) CanGuess(pending string) bool {
	return !g.Locked && g.SecretLen > 0 && len(digits.Unique(pending)) == g.SecretLen
}

// CanPass does not need a complete guess.
func (g Game) CanPass() bool {
	return !g.Locked
}

// Compose projects a snapshot onto a Screen.
func Compose(s session.Snapshot) Screen {
	sc := Screen{Phase: PhaseOf(s), Spectators: s.SpectatorCount()}

	switch sc.Phase {
	case PhaseLogin:
	case PhaseGame:
		sc.Game = &Game{
			SecretLen: s.SecretLength(),
			Locked:    s.IsLocked(),
			Board:     NewBoard(s.Players, s.PlayerName()),
		}
	case PhaseSpectator:
		b := NewBoard(s.Players, s.PlayerName())
		sc.Board = &b
	case PhaseGameOver:
		sc.GameOver = &GameOver{Winners: append([]string(nil), s.Winners...)}
		sc.Lobby = newLobby(s)
	case PhaseLobby:
		sc.Lobby = newLobby(s)
	}
	return sc
}

func newLobby(s session.Snapshot) *Lobby {
	me := s.PlayerName()
	return &Lobby{
		Players: lo.Map(s.Players, func(p session.Player, _ int) Entry {
			return Entry{Name: p.Name, You: p.Name == me}
		}),
		Role:        s.RoleOf(),
		CanReady:    s.RoleOf() == session.RolePlayer,
		Ready:       s.IsReady(),
		Leaderboard: Ranking(s.Leaderboard),
	}
}

// Pending is the guess being typed. It lives only on the client and is
// cleared as soon as it is sent.
type Pending struct {
	text string
}

func (p *Pending) Set(g Game, raw string) {
	p.text = g.Input(raw)
}

func (p *Pending) String() string { return p.text }

// Take returns the pending guess and clears it.
func (p *Pending) Take() string {
	s := p.text
	p.text = ""
	return s
}

func (p *Pending) Clear() { p.text = "" }
