package checkers

import (
	"fmt"
	"strings"
)

// Size is the number of rows and columns on the board.
const Size = 8

// Color identifies a side.
type Color uint8

const (
	NoColor Color = iota
	Dark
	Light
)

func (c Color) String() string {
	switch c {
	case Dark:
		return "dark"
	case Light:
		return "light"
	default:
		return "none"
	}
}

// Opponent returns the other side. NoColor has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Dark:
		return Light
	case Light:
		return Dark
	default:
		return NoColor
	}
}

// forward is the row delta a man of this color advances by.
func (c Color) forward() int {
	if c == Dark {
		return 1
	}
	return -1
}

// ParseColor accepts "dark"/"d" and "light"/"l".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark", "d":
		return Dark, nil
	case "light", "l":
		return Light, nil
	}
	return NoColor, fmt.Errorf("unknown color %q", s)
}

// Coord addresses a cell. Row 0 is Dark's home edge.
type Coord struct {
	Row int
	Col int
}

// InBounds reports whether c lies on the 8x8 grid.
func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < Size && c.Col >= 0 && c.Col < Size
}

// Playable reports whether c is a dark square, the only kind pieces stand on.
func (c Coord) Playable() bool {
	return c.InBounds() && (c.Row+c.Col)%2 == 1
}

func (c Coord) offset(dr, dc int) Coord { return Coord{Row: c.Row + dr, Col: c.Col + dc} }

// String renders c as file letter plus rank number, e.g. {2,1} -> "b3".
func (c Coord) String() string {
	if !c.InBounds() {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return string(rune('a'+c.Col)) + string(rune('1'+c.Row))
}

// ParseCoord parses the form produced by Coord.String.
func ParseCoord(s string) (Coord, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Coord{}, fmt.Errorf("%w: %q", ErrBadCoord, s)
	}
	c := Coord{Row: int(s[1] - '1'), Col: int(s[0] - 'a')}
	if !c.InBounds() {
		return Coord{}, fmt.Errorf("%w: %q", ErrOutOfBounds, s)
	}
	return c, nil
}

// Piece is a single man or king. Its position always mirrors the cell holding it.
type Piece struct {
	Color Color
	King  bool
	Row   int
	Col   int
}

// At returns the coordinate the piece stands on.
func (p Piece) At() Coord { return Coord{Row: p.Row, Col: p.Col} }

// Cell is either empty or occupied by exactly one piece.
type Cell struct {
	occupied bool
	piece    Piece
}

// Empty is the vacant cell.
var Empty = Cell{}

// Occupied wraps p in a cell.
func Occupied(p Piece) Cell { return Cell{occupied: true, piece: p} }

// Piece returns the occupant and whether there is one.
func (c Cell) Piece() (Piece, bool) { return c.piece, c.occupied }

// IsEmpty reports whether the cell has no occupant.
func (c Cell) IsEmpty() bool { return !c.occupied }
