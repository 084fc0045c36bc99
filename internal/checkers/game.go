package checkers

// Rules toggles behaviour beyond the basic move set.
type Rules struct {
	// PromoteKings crowns a man that reaches the far row. A jump that
	// crowns ends the capture chain.
	PromoteKings bool
}

// MoveResult describes what an ApplyMove call did.
type MoveResult struct {
	Move          Move
	Accepted      bool
	Captured      bool
	CapturedAt    Coord
	CapturedPiece Piece
	TurnChanged   bool
	FurtherJump   bool
	Promoted      bool
}

// Game owns the board, the side to move and the selection. It is not safe
// for concurrent use; one caller drives it sequentially.
type Game struct {
	board    *Board
	turn     Color
	rules    Rules
	selected *Coord
	pending  *Coord
}

// NewGame starts from the standard position with Light to move.
func NewGame(rules Rules) *Game {
	return &Game{board: NewBoard(), turn: Light, rules: rules}
}

// NewGameFromBoard starts from an arbitrary position. The board is copied.
func NewGameFromBoard(b *Board, turn Color, rules Rules) *Game {
	if b == nil {
		b = &Board{}
	}
	if turn != Dark && turn != Light {
		turn = Light
	}
	return &Game{board: b.Clone(), turn: turn, rules: rules}
}

// Turn returns the side to move.
func (g *Game) Turn() Color { return g.turn }

// Rules returns the rule set the game was created with.
func (g *Game) Rules() Rules { return g.rules }

// Occupant is the bounds-checked lookup used for rendering.
func (g *Game) Occupant(c Coord) (Piece, bool) { return g.board.Occupant(c) }

// Counts returns the Dark and Light piece counts.
func (g *Game) Counts() (dark, light int) { return g.board.Counts() }

// Pending reports the square of a piece that owes a further jump.
func (g *Game) Pending() (Coord, bool) {
	if g.pending == nil {
		return Coord{}, false
	}
	return *g.pending, true
}

// Selected returns the currently selected piece, if any.
func (g *Game) Selected() (Piece, bool) {
	if g.selected == nil {
		return Piece{}, false
	}
	return g.board.Occupant(*g.selected)
}

// Select picks up the piece at c when it belongs to the side to move. While a
// jump is owed only the jumping piece can be selected. A refused selection
// leaves the game unchanged.
func (g *Game) Select(c Coord) (Piece, bool) {
	p, ok := g.board.Occupant(c)
	if !ok || p.Color != g.turn {
		return Piece{}, false
	}
	if g.pending != nil && *g.pending != c {
		return Piece{}, false
	}
	sel := c
	g.selected = &sel
	return p, true
}

// ValidMoves lists the destinations p may move to. p is looked up on the
// board by its position, so a stale handle yields nothing. A piece owing a
// further jump may only jump, in any diagonal direction.
func (g *Game) ValidMoves(p Piece) []Coord {
	cur, ok := g.board.Occupant(p.At())
	if !ok || cur.Color != p.Color {
		return nil
	}
	if g.pending != nil {
		if *g.pending != cur.At() {
			return nil
		}
		return jumpTargets(g.board, cur, allRowDirs)
	}
	return validMoves(g.board, cur)
}

// LegalMoves lists every move available to the side to move.
func (g *Game) LegalMoves() []Move {
	var out []Move
	for _, p := range g.board.Pieces(g.turn) {
		for _, to := range g.ValidMoves(p) {
			out = append(out, Move{From: p.At(), To: to})
		}
	}
	return out
}

// HasLegalMove reports whether color could move if it were its turn.
func (g *Game) HasLegalMove(color Color) bool {
	if color == g.turn {
		return len(g.LegalMoves()) > 0
	}
	for _, p := range g.board.Pieces(color) {
		if len(validMoves(g.board, p)) > 0 {
			return true
		}
	}
	return false
}

// Play selects the piece on m.From and applies m.
func (g *Game) Play(m Move) (MoveResult, error) {
	p, ok := g.board.Occupant(m.From)
	if !ok {
		return MoveResult{Move: m}, ErrNoPiece
	}
	return g.ApplyMove(p, m.To)
}

// ApplyMove moves p to dest. Rejections leave every piece of state untouched
// and report one of ErrOutOfBounds, ErrNoPiece, ErrWrongTurn, ErrJumpPending
// or ErrIllegalMove.
func (g *Game) ApplyMove(p Piece, dest Coord) (MoveResult, error) {
	from := p.At()
	res := MoveResult{Move: Move{From: from, To: dest}}
	if !from.InBounds() || !dest.InBounds() {
		return res, ErrOutOfBounds
	}
	cur, ok := g.board.Occupant(from)
	if !ok || cur.Color != p.Color {
		return res, ErrNoPiece
	}
	if cur.Color != g.turn {
		return res, ErrWrongTurn
	}
	if g.pending != nil && *g.pending != from {
		return res, ErrJumpPending
	}
	if !containsCoord(g.ValidMoves(cur), dest) {
		return res, ErrIllegalMove
	}

	m := res.Move
	switch {
	case m.IsJump():
		mid := m.Midpoint()
		victim, ok := g.board.Occupant(mid)
		if !ok || victim.Color != cur.Color.Opponent() {
			return res, ErrIllegalMove
		}
		g.board.cells[mid.Row][mid.Col] = Empty
		moved := g.board.move(from, dest)
		res.Captured = true
		res.CapturedAt = mid
		res.CapturedPiece = victim
		res.Promoted = g.promote(moved)
		if !res.Promoted && len(jumpTargets(g.board, moved, allRowDirs)) > 0 {
			at := dest
			g.pending = &at
			g.selected = &at
			res.FurtherJump = true
		} else {
			g.endTurn()
			res.TurnChanged = true
		}
	case m.IsStep():
		moved := g.board.move(from, dest)
		res.Promoted = g.promote(moved)
		g.endTurn()
		res.TurnChanged = true
	default:
		return res, ErrIllegalMove
	}
	res.Accepted = true
	return res, nil
}

// promote crowns p when the rules allow it and p stands on its far row.
func (g *Game) promote(p Piece) bool {
	if !g.rules.PromoteKings || p.King {
		return false
	}
	far := Size - 1
	if p.Color == Light {
		far = 0
	}
	if p.Row != far {
		return false
	}
	p.King = true
	g.board.cells[p.Row][p.Col] = Occupied(p)
	return true
}

func (g *Game) endTurn() {
	g.pending = nil
	g.selected = nil
	g.turn = g.turn.Opponent()
}
