package checkers

import (
	"fmt"
	"strings"
)

// Snapshot encodes the grid row-major from row 0 as 64 characters
// ('.' empty, 'd'/'D' dark man/king, 'l'/'L' light man/king), a space, and
// the side to move ('d' or 'l').
func (g *Game) Snapshot() string {
	var b strings.Builder
	b.Grow(Size*Size + 2)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			b.WriteByte(cellChar(g.board.cells[row][col]))
		}
	}
	b.WriteByte(' ')
	if g.turn == Dark {
		b.WriteByte('d')
	} else {
		b.WriteByte('l')
	}
	return b.String()
}

// ParseSnapshot decodes the Snapshot form.
func ParseSnapshot(s string) (*Board, Color, error) {
	s = strings.TrimSpace(s)
	if len(s) != Size*Size+2 || s[Size*Size] != ' ' {
		return nil, NoColor, fmt.Errorf("%w: length %d", ErrBadSnapshot, len(s))
	}
	b := &Board{}
	for i := 0; i < Size*Size; i++ {
		row, col := i/Size, i%Size
		var p Piece
		switch s[i] {
		case '.':
			continue
		case 'd':
			p = Piece{Color: Dark}
		case 'D':
			p = Piece{Color: Dark, King: true}
		case 'l':
			p = Piece{Color: Light}
		case 'L':
			p = Piece{Color: Light, King: true}
		default:
			return nil, NoColor, fmt.Errorf("%w: bad cell %q at %d", ErrBadSnapshot, s[i], i)
		}
		_ = b.Place(Coord{Row: row, Col: col}, p)
	}
	turn, err := ParseColor(s[Size*Size+1:])
	if err != nil {
		return nil, NoColor, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return b, turn, nil
}

func cellChar(c Cell) byte {
	p, ok := c.Piece()
	if !ok {
		return '.'
	}
	ch := byte('l')
	if p.Color == Dark {
		ch = 'd'
	}
	if p.King {
		ch -= 'a' - 'A'
	}
	return ch
}
