package checkersdto

type CreateMatchRequest struct {
	LightID   string `json:"light_id"`
	LightName string `json:"light_name"`
	DarkID    string `json:"dark_id"`
	DarkName  string `json:"dark_name"`
	Room      string `json:"room"`
}

type PlayRequest struct {
	User string `json:"user"`
	Move string `json:"move"`
}

type PlayResponse struct {
	State       *MatchState `json:"state"`
	Move        string      `json:"move"`
	Captured    string      `json:"captured,omitempty"`
	TurnChanged bool        `json:"turn_changed"`
	FurtherJump bool        `json:"further_jump"`
	Promoted    bool        `json:"promoted"`
	Message     string      `json:"message"`
	Rooms       []string    `json:"rooms"`
}

type LegalMovesResponse struct {
	From string   `json:"from"`
	To   []string `json:"to"`
}

type ResignRequest struct {
	User string `json:"user"`
}

type MakeLobbyRequest struct {
	Room string `json:"room"`
	User string `json:"user"`
	Name string `json:"name"`
}

type MakeLobbyResponse struct {
	Lobby   *LobbyInfo `json:"lobby"`
	Message string     `json:"message"`
}

type JoinLobbyRequest struct {
	Room string `json:"room"`
	User string `json:"user"`
	Name string `json:"name"`
}

type JoinLobbyResponse struct {
	Started bool        `json:"started"`
	Lobby   *LobbyInfo  `json:"lobby"`
	State   *MatchState `json:"state,omitempty"`
}

type LobbyRoomsResponse struct {
	Code  string   `json:"code"`
	Rooms []string `json:"rooms"`
}

type LobbyListResponse struct {
	Lobbies []*LobbyInfo `json:"lobbies"`
}

type HistoryResponse struct {
	Games []*CheckersGame `json:"games"`
}
