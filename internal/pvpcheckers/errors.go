package pvpcheckers

import "errors"

var (
	ErrNotInitialized   = errors.New("checkers manager not initialized")
	ErrInvalidArgs      = errors.New("invalid arguments")
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchNotActive   = errors.New("match no longer active")
	ErrNotParticipant   = errors.New("user not in match")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrBadMove          = errors.New("unreadable move")
	ErrIllegalMove      = errors.New("illegal move")
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)
