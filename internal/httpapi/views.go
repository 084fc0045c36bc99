package httpapi

import (
	"github.com/park285/cheese-checkers/internal/checkers"
	"github.com/park285/cheese-checkers/internal/domain"
	"github.com/park285/cheese-checkers/internal/lobby"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
	"github.com/park285/cheese-checkers/pkg/checkersdto"
)

// matchState renders mt. Legal moves are listed only while the match is active.
func (s *Server) matchState(mt *pvpcheckers.Match) *checkersdto.MatchState {
	st := &checkersdto.MatchState{
		ID:          mt.ID,
		Status:      string(mt.Status),
		Turn:        string(mt.Turn),
		Pending:     mt.Pending,
		Snapshot:    mt.Snapshot,
		Rows:        boardRows(mt.Snapshot),
		Moves:       append([]string{}, mt.Moves...),
		LegalMoves:  []string{},
		LightID:     mt.LightID,
		LightName:   mt.LightName,
		DarkID:      mt.DarkID,
		DarkName:    mt.DarkName,
		LightLeft:   mt.LightLeft,
		DarkLeft:    mt.DarkLeft,
		Winner:      mt.Winner,
		Outcome:     mt.Outcome,
		UpdatedAt:   mt.UpdatedAt,
		KingsActive: mt.PromoteKings,
	}
	if mt.Status != pvpcheckers.StatusActive {
		return st
	}
	if game, err := s.matches.Game(mt); err == nil {
		for _, mv := range game.LegalMoves() {
			st.LegalMoves = append(st.LegalMoves, mv.String())
		}
	}
	return st
}

// boardRows turns a snapshot into eight strings, rank 8 first.
func boardRows(snapshot string) []string {
	if len(snapshot) < checkers.Size*checkers.Size {
		return nil
	}
	rows := make([]string, 0, checkers.Size)
	for row := checkers.Size - 1; row >= 0; row-- {
		rows = append(rows, snapshot[row*checkers.Size:(row+1)*checkers.Size])
	}
	return rows
}

func lobbyInfo(m *lobby.Meta) *checkersdto.LobbyInfo {
	if m == nil {
		return nil
	}
	return &checkersdto.LobbyInfo{
		Code:        m.ID,
		State:       string(m.State),
		CreatorID:   m.CreatorID,
		CreatorName: m.CreatorName,
		CreatorRoom: m.CreatorRoom,
		MatchID:     m.MatchID,
		CreatedAt:   m.CreatedAt,
	}
}

func archivedGame(r *domain.CheckersResult) *checkersdto.CheckersGame {
	return &checkersdto.CheckersGame{
		MatchID:      r.MatchID,
		LightID:      r.LightID,
		LightName:    r.LightName,
		DarkID:       r.DarkID,
		DarkName:     r.DarkName,
		Result:       r.Result,
		ResultMethod: r.ResultMethod,
		Moves:        r.Moves,
		PDN:          r.PDN,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		Duration:     r.Duration,
	}
}
