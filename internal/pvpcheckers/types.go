package pvpcheckers

import (
	"time"

	"github.com/park285/cheese-checkers/internal/checkers"
)

// Color identifies a side in persisted records.
type Color string

const (
	Light Color = "light"
	Dark  Color = "dark"
)

func colorFrom(c checkers.Color) Color {
	if c == checkers.Dark {
		return Dark
	}
	return Light
}

// Status represents a match lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
)

// Match is the persisted state of a two-player checkers game. The board is
// rebuilt by replaying Moves; Snapshot is kept for presentation.
type Match struct {
	ID           string    `json:"id"`
	Snapshot     string    `json:"snapshot"`
	Moves        []string  `json:"moves"`
	Turn         Color     `json:"turn"`
	Pending      string    `json:"pending,omitempty"`
	Status       Status    `json:"status"`
	PromoteKings bool      `json:"promote_kings"`
	LightID      string    `json:"light_id"`
	LightName    string    `json:"light_name"`
	DarkID       string    `json:"dark_id"`
	DarkName     string    `json:"dark_name"`
	LightLeft    int       `json:"light_left"`
	DarkLeft     int       `json:"dark_left"`
	OriginRoom   string    `json:"origin_room"`
	ResolveRoom  string    `json:"resolve_room"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Winner       string    `json:"winner,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
}

// PlayerColor returns the side userID plays, or "" for spectators.
func (m *Match) PlayerColor(userID string) Color {
	switch userID {
	case "":
		return ""
	case m.LightID:
		return Light
	case m.DarkID:
		return Dark
	}
	return ""
}

// PlayerName returns the display name for userID.
func (m *Match) PlayerName(userID string) string {
	switch m.PlayerColor(userID) {
	case Light:
		return m.LightName
	case Dark:
		return m.DarkName
	}
	return ""
}

func (m *Match) opponentID(userID string) string {
	switch userID {
	case m.LightID:
		return m.DarkID
	case m.DarkID:
		return m.LightID
	}
	return ""
}

// InRoom reports whether the match is bound to room.
func (m *Match) InRoom(room string) bool {
	return room != "" && (m.OriginRoom == room || m.ResolveRoom == room)
}

// PlayResult is returned by Manager.PlayMove.
type PlayResult struct {
	Match  *Match
	Result checkers.MoveResult
}
