package checkers

import (
	"fmt"
	"strings"
)

// Move is a single step or jump of one piece.
type Move struct {
	From Coord
	To   Coord
}

// IsJump reports whether the move spans two diagonal cells.
func (m Move) IsJump() bool {
	return abs(m.To.Row-m.From.Row) == 2 && abs(m.To.Col-m.From.Col) == 2
}

// IsStep reports whether the move spans one diagonal cell.
func (m Move) IsStep() bool {
	return abs(m.To.Row-m.From.Row) == 1 && abs(m.To.Col-m.From.Col) == 1
}

// Midpoint is the cell a jump passes over. Meaningless for steps.
func (m Move) Midpoint() Coord {
	return Coord{Row: (m.From.Row + m.To.Row) / 2, Col: (m.From.Col + m.To.Col) / 2}
}

// String renders "c3-d4" for steps and "c3xe5" for jumps.
func (m Move) String() string {
	sep := "-"
	if m.IsJump() {
		sep = "x"
	}
	return m.From.String() + sep + m.To.String()
}

// ParseMove accepts "c3-d4", "c3xe5" and the bare "c3d4" form.
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", "x", "", " ", "").Replace(s)
	if len(s) != 4 {
		return Move{}, fmt.Errorf("%w: %q", ErrBadMove, s)
	}
	from, err := ParseCoord(s[:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseCoord(s[2:])
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to}, nil
}

// rowDirs lists the row deltas a piece may travel in. Men go forward only.
func rowDirs(p Piece) []int {
	if p.King {
		return []int{1, -1}
	}
	return []int{p.Color.forward()}
}

var allRowDirs = []int{1, -1}

// validMoves generates step and jump destinations for p, which must be the
// current occupant of p.At(). Step and jump targets are returned together,
// per direction in the order left step, right step, left jump, right jump.
func validMoves(b *Board, p Piece) []Coord {
	var out []Coord
	from := p.At()
	for _, dr := range rowDirs(p) {
		for _, dc := range []int{-1, 1} {
			if to := from.offset(dr, dc); to.InBounds() && b.Cell(to).IsEmpty() {
				out = append(out, to)
			}
		}
		for _, dc := range []int{-1, 1} {
			if canJump(b, p, from, dr, dc) {
				out = append(out, from.offset(2*dr, 2*dc))
			}
		}
	}
	return out
}

// jumpTargets returns jump landings from p's square along the given row deltas.
func jumpTargets(b *Board, p Piece, dirs []int) []Coord {
	var out []Coord
	from := p.At()
	for _, dr := range dirs {
		for _, dc := range []int{-1, 1} {
			if canJump(b, p, from, dr, dc) {
				out = append(out, from.offset(2*dr, 2*dc))
			}
		}
	}
	return out
}

// canJump: landing in bounds and empty, midpoint held by the opponent.
// An empty or friendly midpoint never yields a jump.
func canJump(b *Board, p Piece, from Coord, dr, dc int) bool {
	land := from.offset(2*dr, 2*dc)
	if !land.InBounds() || !b.Cell(land).IsEmpty() {
		return false
	}
	mid, ok := b.Occupant(from.offset(dr, dc))
	return ok && mid.Color == p.Color.Opponent()
}

func containsCoord(list []Coord, c Coord) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
