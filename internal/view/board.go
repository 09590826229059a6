package view

import (
	"cmp"
	"slices"

	"example.com/bc-client/internal/session"
	"github.com/samber/lo"
)

const (
	PlayersPerRow     = 4
	LeaderboardHeight = 10
)

type Line struct {
	Guess  string
	Result string
}

type Cell struct {
	Name  string
	Self  bool
	Lines []Line
}

// Row holds up to PlayersPerRow cells with Pad empty cells on each side.
type Row struct {
	Pad   int
	Cells []Cell
}

type Board struct {
	Rows []Row
}

// NewBoard lays players out left to right in rows of PlayersPerRow, in the
// order the server sent them.
func NewBoard(players []session.Player, self string) Board {
	chunks := lo.Chunk(players, PlayersPerRow)
	rows := make([]Row, 0, len(chunks))
	for _, chunk := range chunks {
		rows = append(rows, Row{
			Pad: PlayersPerRow - len(chunk) + 1,
			Cells: lo.Map(chunk, func(p session.Player, _ int) Cell {
				return newCell(p, self)
			}),
		})
	}
	return Board{Rows: rows}
}

func newCell(p session.Player, self string) Cell {
	n := min(len(p.Guesses), len(p.Results))
	lines := make([]Line, n)
	for i := 0; i < n; i++ {
		lines[i] = Line{Guess: p.Guesses[i], Result: p.Results[i]}
	}
	return Cell{Name: p.Name, Self: p.Name == self, Lines: lines}
}

type Rank struct {
	Pos    int
	Name   string
	Wins   int
	Losses int
}

// Ranking orders the leaderboard by wins, most first, and keeps the top
// LeaderboardHeight. Equal wins keep the order the server listed them in.
func Ranking(lb session.Leaderboard) []Rank {
	sorted := slices.Clone(lb)
	slices.SortStableFunc(sorted, func(a, b session.Standing) int {
		return cmp.Compare(b.Wins, a.Wins)
	})
	if len(sorted) > LeaderboardHeight {
		sorted = sorted[:LeaderboardHeight]
	}
	return lo.Map(sorted, func(s session.Standing, i int) Rank {
		return Rank{Pos: i + 1, Name: s.Name, Wins: s.Wins, Losses: s.Losses}
	})
}
