package checkers

import "errors"

var (
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	ErrBadCoord    = errors.New("malformed coordinate")
	ErrBadMove     = errors.New("malformed move")
	ErrBadSnapshot = errors.New("malformed snapshot")
	ErrNoPiece     = errors.New("no piece at coordinate")
	ErrWrongTurn   = errors.New("piece does not belong to the side to move")
	ErrIllegalMove = errors.New("illegal move")
	ErrJumpPending = errors.New("another piece owes a further jump")
)
