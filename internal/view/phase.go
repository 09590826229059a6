package view

import "example.com/bc-client/internal/session"

// Phase is the screen a snapshot calls for.
type Phase int

const (
	PhaseLogin Phase = iota
	PhaseLobby
	PhaseGame
	PhaseSpectator
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseLogin:
		return "login"
	case PhaseLobby:
		return "lobby"
	case PhaseGame:
		return "game"
	case PhaseSpectator:
		return "spectator"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// PhaseOf derives the phase; the first matching rule wins:
// empty snapshot, round in progress, winners to announce, lobby.
func PhaseOf(s session.Snapshot) Phase {
	switch {
	case s.IsEmpty():
		return PhaseLogin
	case s.IsInGame():
		if s.RoleOf() == session.RolePlayer {
			return PhaseGame
		}
		return PhaseSpectator
	case len(s.Winners) > 0:
		return PhaseGameOver
	default:
		return PhaseLobby
	}
}
