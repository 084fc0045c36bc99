package lobby

import "time"

// State represents the lifecycle of a lobby.
type State string

const (
	StateLobby    State = "LOBBY"
	StateActive   State = "ACTIVE"
	StateFinished State = "FINISHED"
)

// Meta is stored as JSON in Redis under ck:<code>.
type Meta struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	CreatorRoom string `json:"creator_room"`

	LightID   string `json:"light_id,omitempty"`
	LightName string `json:"light_name,omitempty"`
	DarkID    string `json:"dark_id,omitempty"`
	DarkName  string `json:"dark_name,omitempty"`

	MatchID string `json:"match_id,omitempty"`
}

type MakeResult struct {
	Code string
	Meta *Meta
}

type JoinResult struct {
	Started bool
	MatchID string
	Meta    *Meta
}

var (
	ErrInvalidArgs = errf("invalid arguments")
	ErrLobbyGone   = errf("lobby not found or expired")
	ErrLobbyActive = errf("lobby already started")
	ErrFull        = errf("lobby already has two participants")
	// 같은 방에서 진행 중인 대국이 있는 플레이어
	ErrPlayerBusyInRoom = errf("player has active match in this room")
	// 한 사용자는 대기방을 하나만 열 수 있음
	ErrCreatorHasLobby = errf("user already has a lobby")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
