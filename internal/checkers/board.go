package checkers

// Board is the 8x8 grid. The zero value is an empty board.
type Board struct {
	cells [Size][Size]Cell
}

// NewBoard returns a board holding the standard starting position.
func NewBoard() *Board {
	b := &Board{}
	b.InitialSetup()
	return b
}

// InitialSetup clears the board and places twelve Dark men on the playable
// cells of rows 0-2 and twelve Light men on rows 5-7.
func (b *Board) InitialSetup() {
	b.cells = [Size][Size]Cell{}
	for row := 0; row < Size; row++ {
		var color Color
		switch {
		case row < 3:
			color = Dark
		case row >= Size-3:
			color = Light
		default:
			continue
		}
		for col := (row + 1) % 2; col < Size; col += 2 {
			b.cells[row][col] = Occupied(Piece{Color: color, Row: row, Col: col})
		}
	}
}

// Occupant returns the piece at c. Out-of-range and empty cells both yield false.
func (b *Board) Occupant(c Coord) (Piece, bool) {
	if !c.InBounds() {
		return Piece{}, false
	}
	return b.cells[c.Row][c.Col].Piece()
}

// Cell returns the raw cell at c; out-of-range coordinates read as Empty.
func (b *Board) Cell(c Coord) Cell {
	if !c.InBounds() {
		return Empty
	}
	return b.cells[c.Row][c.Col]
}

// Place puts p on c, overwriting whatever was there, and rewrites the piece's
// stored position to c.
func (b *Board) Place(c Coord, p Piece) error {
	if !c.InBounds() {
		return ErrOutOfBounds
	}
	p.Row, p.Col = c.Row, c.Col
	b.cells[c.Row][c.Col] = Occupied(p)
	return nil
}

// Clear empties c.
func (b *Board) Clear(c Coord) error {
	if !c.InBounds() {
		return ErrOutOfBounds
	}
	b.cells[c.Row][c.Col] = Empty
	return nil
}

// move relocates the occupant of from to to. Callers guarantee both are in
// bounds, from is occupied and to is empty.
func (b *Board) move(from, to Coord) Piece {
	p, _ := b.cells[from.Row][from.Col].Piece()
	b.cells[from.Row][from.Col] = Empty
	p.Row, p.Col = to.Row, to.Col
	b.cells[to.Row][to.Col] = Occupied(p)
	return p
}

// Pieces returns every piece of color in row-major order.
func (b *Board) Pieces(color Color) []Piece {
	var out []Piece
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p, ok := b.cells[row][col].Piece(); ok && p.Color == color {
				out = append(out, p)
			}
		}
	}
	return out
}

// Counts returns the number of Dark and Light pieces on the board.
func (b *Board) Counts() (dark, light int) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			p, ok := b.cells[row][col].Piece()
			if !ok {
				continue
			}
			switch p.Color {
			case Dark:
				dark++
			case Light:
				light++
			}
		}
	}
	return dark, light
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	cp := *b
	return &cp
}
