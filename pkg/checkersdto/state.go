package checkersdto

import "time"

// MatchState is the public view of a match. Rows lists the board from rank 8
// down to rank 1 using '.', 'd', 'D', 'l', 'L'.
type MatchState struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Turn        string    `json:"turn"`
	Pending     string    `json:"pending,omitempty"`
	Snapshot    string    `json:"snapshot"`
	Rows        []string  `json:"rows"`
	Moves       []string  `json:"moves"`
	LegalMoves  []string  `json:"legal_moves"`
	LightID     string    `json:"light_id"`
	LightName   string    `json:"light_name"`
	DarkID      string    `json:"dark_id"`
	DarkName    string    `json:"dark_name"`
	LightLeft   int       `json:"light_left"`
	DarkLeft    int       `json:"dark_left"`
	Winner      string    `json:"winner,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	KingsActive bool      `json:"kings_active"`
}

type LobbyInfo struct {
	Code        string    `json:"code"`
	State       string    `json:"state"`
	CreatorID   string    `json:"creator_id"`
	CreatorName string    `json:"creator_name"`
	CreatorRoom string    `json:"creator_room"`
	MatchID     string    `json:"match_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CheckersGame is an archived match.
type CheckersGame struct {
	MatchID      string        `json:"match_id"`
	LightID      string        `json:"light_id"`
	LightName    string        `json:"light_name"`
	DarkID       string        `json:"dark_id"`
	DarkName     string        `json:"dark_name"`
	Result       string        `json:"result"`
	ResultMethod string        `json:"result_method"`
	Moves        []string      `json:"moves"`
	PDN          string        `json:"pdn"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
	Duration     time.Duration `json:"duration"`
}
