package view

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"example.com/bc-client/internal/session"
)

const (
	cellWidth = 18
	padWidth  = 6
)

// Render writes a plain-text rendering of sc. pending is the guess being
// typed and only matters on the game screen.
func Render(w io.Writer, sc Screen, pending string) error {
	bw := bufio.NewWriter(w)

	if sc.Phase != PhaseLogin {
		fmt.Fprintf(bw, "Spectators: %d\n\n", sc.Spectators)
	}

	switch sc.Phase {
	case PhaseLogin:
		renderLogin(bw)
	case PhaseLobby:
		renderLobby(bw, sc.Lobby)
	case PhaseGameOver:
		renderGameOver(bw, sc.GameOver)
		renderLobby(bw, sc.Lobby)
	case PhaseGame:
		renderGame(bw, sc.Game, pending)
	case PhaseSpectator:
		renderBoard(bw, sc.Board)
	}

	return bw.Flush()
}

func renderLogin(w io.Writer) {
	fmt.Fprintln(w, "Bulls and Cows")
	fmt.Fprintln(w, "  /join <game> <name>   join or create a game")
}

func renderLobby(w io.Writer, l *Lobby) {
	if l == nil {
		return
	}
	fmt.Fprintln(w, "Players:")
	labels := make([]string, len(l.Players))
	for i, p := range l.Players {
		labels[i] = p.Label()
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(labels, "  "))

	if l.CanReady {
		if l.Ready {
			fmt.Fprintln(w, "[Unready]  /unready")
		} else {
			fmt.Fprintln(w, "[Ready]    /ready")
		}
	}
	fmt.Fprintf(w, "Role: %s Player  %s Spectator   /role player|spectator\n",
		radio(l.Role == session.RolePlayer), radio(l.Role == session.RoleSpectator))
	fmt.Fprintln(w, "[Leave Game]  /leave")

	renderLeaderboard(w, l.Leaderboard)
}

func renderLeaderboard(w io.Writer, ranks []Rank) {
	if len(ranks) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Leaderboard")
	fmt.Fprintf(w, "%3s  %-16s %5s %7s\n", "#", "Name", "Wins", "Losses")
	for _, r := range ranks {
		fmt.Fprintf(w, "%3d  %-16s %5d %7d\n", r.Pos, r.Name, r.Wins, r.Losses)
	}
}

func renderGameOver(w io.Writer, g *GameOver) {
	if g == nil {
		return
	}
	fmt.Fprintln(w, "Game Over!")
	fmt.Fprintln(w, g.Headline())
	fmt.Fprintln(w)
}

func renderGame(w io.Writer, g *Game, pending string) {
	if g == nil {
		return
	}
	fmt.Fprintf(w, "Input: %-*s %s %s\n", g.SecretLen, pending,
		button("Guess", g.CanGuess(pending)), button("Pass", g.CanPass()))
	if g.Locked {
		fmt.Fprintln(w, "Waiting for other players...")
	}
	fmt.Fprintln(w)
	renderBoard(w, &g.Board)
}

func renderBoard(w io.Writer, b *Board) {
	if b != nil {
		for _, row := range b.Rows {
			renderRow(w, row)
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w, "[Leave Game]  /leave")
}

func renderRow(w io.Writer, row Row) {
	pad := strings.Repeat(" ", row.Pad*padWidth)

	height := 0
	for _, c := range row.Cells {
		height = max(height, len(c.Lines))
	}

	line := func(cell func(Cell) string) {
		var sb strings.Builder
		sb.WriteString(pad)
		for _, c := range row.Cells {
			fmt.Fprintf(&sb, "%-*s", cellWidth, cell(c))
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}

	line(func(c Cell) string {
		if c.Self {
			return "*" + c.Name + "*"
		}
		return c.Name
	})
	line(func(Cell) string { return "Guess  Result" })
	for i := 0; i < height; i++ {
		line(func(c Cell) string {
			if i >= len(c.Lines) {
				return ""
			}
			return fmt.Sprintf("%-6s %s", c.Lines[i].Guess, c.Lines[i].Result)
		})
	}
}

func radio(on bool) string {
	if on {
		return "(*)"
	}
	return "( )"
}

func button(label string, enabled bool) string {
	if enabled {
		return "[" + label + "]"
	}
	return "[" + label + " (disabled)]"
}
