package httpapi

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-checkers/internal/checkers"
	"github.com/park285/cheese-checkers/internal/lobby"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
	"github.com/park285/cheese-checkers/pkg/checkersdto"
)

var errRoomForbidden = errors.New("room not allowed")

type errorMapping struct {
	target    error
	status    int
	code      string
	retryable bool
}

// Order matters: a pending jump is also an illegal move.
var errorMappings = []errorMapping{
	{checkers.ErrJumpPending, fasthttp.StatusConflict, "jump_pending", false},
	{pvpcheckers.ErrIllegalMove, fasthttp.StatusUnprocessableEntity, "illegal_move", false},
	{pvpcheckers.ErrBadMove, fasthttp.StatusBadRequest, "bad_move", false},
	{pvpcheckers.ErrInvalidArgs, fasthttp.StatusBadRequest, "invalid_args", false},
	{pvpcheckers.ErrMatchNotFound, fasthttp.StatusNotFound, "not_found", false},
	{pvpcheckers.ErrMatchNotActive, fasthttp.StatusConflict, "not_active", false},
	{pvpcheckers.ErrNotParticipant, fasthttp.StatusForbidden, "not_participant", false},
	{pvpcheckers.ErrNotYourTurn, fasthttp.StatusConflict, "not_your_turn", false},
	{pvpcheckers.ErrConcurrentUpdate, fasthttp.StatusConflict, "concurrent", true},
	{lobby.ErrInvalidArgs, fasthttp.StatusBadRequest, "invalid_args", false},
	{lobby.ErrLobbyGone, fasthttp.StatusNotFound, "lobby_gone", false},
	{lobby.ErrLobbyActive, fasthttp.StatusConflict, "lobby_active", false},
	{lobby.ErrFull, fasthttp.StatusConflict, "lobby_full", false},
	{lobby.ErrPlayerBusyInRoom, fasthttp.StatusConflict, "lobby_busy", false},
	{lobby.ErrCreatorHasLobby, fasthttp.StatusConflict, "lobby_duplicate", false},
	{errRoomForbidden, fasthttp.StatusForbidden, "room_forbidden", false},
}

var catalogKeys = map[string]string{
	"lobby_gone":      "lobby.gone",
	"lobby_active":    "lobby.active",
	"lobby_full":      "lobby.full",
	"lobby_busy":      "lobby.busy",
	"lobby_duplicate": "lobby.duplicate",
}

// domainError converts err into a status code and wire error.
func (s *Server) domainError(err error) (int, checkersdto.DomainError) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, checkersdto.DomainError{
				Code:      m.code,
				Message:   s.msgs.Text(catalogKey(m.code), nil, err.Error()),
				Retryable: m.retryable,
			}
		}
	}
	return fasthttp.StatusInternalServerError, checkersdto.DomainError{
		Code:      "internal",
		Message:   s.msgs.Text("error.internal", nil, "internal error"),
		Retryable: true,
	}
}

func catalogKey(code string) string {
	if k, ok := catalogKeys[code]; ok {
		return k
	}
	return "error." + code
}
