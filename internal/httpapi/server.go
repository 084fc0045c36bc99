package httpapi

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/cheese-checkers/internal/lobby"
	"github.com/park285/cheese-checkers/internal/msgcat"
	"github.com/park285/cheese-checkers/internal/obslog"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
	"github.com/park285/cheese-checkers/pkg/checkersdto"
)

const defaultRequestTimeout = 5 * time.Second

// Server exposes matches and lobbies as a JSON API.
type Server struct {
	matches   *pvpcheckers.Manager
	lobbies   *lobby.Manager
	repo      *pvpcheckers.Repository
	msgs      *msgcat.Catalog
	allowRoom func(string) bool
	timeout   time.Duration
}

type Option func(*Server)

// WithRepository enables the archived results endpoint.
func WithRepository(r *pvpcheckers.Repository) Option {
	return func(s *Server) { s.repo = r }
}

// WithRoomFilter rejects match and lobby creation in rooms allow refuses.
func WithRoomFilter(allow func(string) bool) Option {
	return func(s *Server) {
		if allow != nil {
			s.allowRoom = allow
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(matches *pvpcheckers.Manager, lobbies *lobby.Manager, msgs *msgcat.Catalog, opts ...Option) *Server {
	s := &Server{
		matches:   matches,
		lobbies:   lobbies,
		msgs:      msgs,
		allowRoom: func(string) bool { return true },
		timeout:   defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the fasthttp entry point.
func (s *Server) Handler() fasthttp.RequestHandler { return s.route }

func (s *Server) route(rc *fasthttp.RequestCtx) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	method := string(rc.Method())
	parts := splitPath(string(rc.Path()))

	switch {
	case len(parts) == 1 && parts[0] == "healthz" && method == fasthttp.MethodGet:
		s.health(ctx, rc)
	case len(parts) == 1 && parts[0] == "matches" && method == fasthttp.MethodPost:
		s.createMatch(ctx, rc)
	case len(parts) == 2 && parts[0] == "matches" && method == fasthttp.MethodGet:
		s.getMatch(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "moves" && method == fasthttp.MethodGet:
		s.legalMoves(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "moves" && method == fasthttp.MethodPost:
		s.playMove(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "matches" && parts[2] == "resign" && method == fasthttp.MethodPost:
		s.resign(ctx, rc, parts[1])
	case len(parts) == 1 && parts[0] == "lobbies" && method == fasthttp.MethodPost:
		s.makeLobby(ctx, rc)
	case len(parts) == 1 && parts[0] == "lobbies" && method == fasthttp.MethodGet:
		s.listLobbies(ctx, rc)
	case len(parts) == 3 && parts[0] == "lobbies" && parts[2] == "join" && method == fasthttp.MethodPost:
		s.joinLobby(ctx, rc, parts[1])
	case len(parts) == 2 && parts[0] == "lobbies" && method == fasthttp.MethodGet:
		s.getLobby(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "lobbies" && parts[2] == "rooms" && method == fasthttp.MethodGet:
		s.lobbyRooms(ctx, rc, parts[1])
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "results" && method == fasthttp.MethodGet:
		s.history(ctx, rc, parts[1])
	default:
		writeJSON(rc, fasthttp.StatusNotFound, checkersdto.DomainError{Code: "no_route", Message: "no such endpoint"})
	}
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func (s *Server) health(ctx context.Context, rc *fasthttp.RequestCtx) {
	if err := s.matches.Client().Ping(ctx).Err(); err != nil {
		obslog.L().Warn("http_health_redis", zap.Error(err))
		writeJSON(rc, fasthttp.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(rc, fasthttp.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createMatch(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req checkersdto.CreateMatchRequest
	if !s.decode(rc, &req) {
		return
	}
	if !s.allowRoom(req.Room) {
		s.fail(rc, errRoomForbidden)
		return
	}
	mt, err := s.matches.CreateMatchFromChallenge(ctx, req.Room, req.Room, req.LightID, req.LightName, req.DarkID, req.DarkName, "light")
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusCreated, s.matchState(mt))
}

func (s *Server) getMatch(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	mt, err := s.matches.LoadMatch(ctx, id)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, s.matchState(mt))
}

func (s *Server) legalMoves(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	args := rc.QueryArgs()
	from := string(args.Peek("from"))
	to, err := s.matches.LegalMoves(ctx, id, string(args.Peek("user")), from)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, checkersdto.LegalMovesResponse{From: strings.ToLower(strings.TrimSpace(from)), To: to})
}

func (s *Server) playMove(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	var req checkersdto.PlayRequest
	if !s.decode(rc, &req) {
		return
	}
	res, err := s.matches.PlayMove(ctx, id, req.User, req.Move)
	if err != nil {
		obslog.L().Info("http_move_rejected", zap.String("match_id", id), zap.String("user_id", req.User), zap.String("move", req.Move), zap.Error(err))
		s.fail(rc, err)
		return
	}
	mt, r := res.Match, res.Result
	out := checkersdto.PlayResponse{
		State:       s.matchState(mt),
		Move:        r.Move.String(),
		TurnChanged: r.TurnChanged,
		FurtherJump: r.FurtherJump,
		Promoted:    r.Promoted,
	}
	player := mt.PlayerName(strings.TrimSpace(req.User))
	if r.Captured {
		out.Captured = r.CapturedAt.String()
		out.Message = s.msgs.Text("match.captured", map[string]any{"Player": player, "Move": out.Move, "Square": out.Captured}, out.Move)
	} else {
		out.Message = s.msgs.Text("match.moved", map[string]any{"Player": player, "Move": out.Move}, out.Move)
	}
	if r.FurtherJump {
		out.Message += "\n" + s.msgs.Text("match.continue_jump", map[string]any{"Player": player, "Square": r.Move.To.String()}, "")
	}
	if mt.Status == pvpcheckers.StatusFinished {
		out.Message += "\n" + s.msgs.Text("match.finished", map[string]any{"Winner": mt.PlayerName(mt.Winner)}, "")
		s.closeLobby(ctx, req.User, mt.ID)
	}
	out.Rooms = s.matchRooms(ctx, req.User, mt)
	writeJSON(rc, fasthttp.StatusOK, out)
}

// matchRooms lists the rooms to notify: the lobby rooms when the match came
// from a lobby, otherwise the rooms recorded on the match.
func (s *Server) matchRooms(ctx context.Context, userID string, mt *pvpcheckers.Match) []string {
	rooms, err := s.lobbies.RoomsByUserAndMatch(ctx, strings.TrimSpace(userID), mt.ID)
	if err != nil {
		obslog.L().Warn("http_match_rooms", zap.String("match_id", mt.ID), zap.Error(err))
	}
	if len(rooms) > 0 {
		return rooms
	}
	rooms = []string{}
	for _, r := range []string{mt.OriginRoom, mt.ResolveRoom} {
		if r != "" && (len(rooms) == 0 || rooms[0] != r) {
			rooms = append(rooms, r)
		}
	}
	return rooms
}

func (s *Server) closeLobby(ctx context.Context, userID, matchID string) {
	if err := s.lobbies.MarkFinished(ctx, strings.TrimSpace(userID), matchID); err != nil {
		obslog.L().Warn("http_lobby_finish", zap.String("match_id", matchID), zap.Error(err))
	}
}

func (s *Server) resign(ctx context.Context, rc *fasthttp.RequestCtx, id string) {
	var req checkersdto.ResignRequest
	if !s.decode(rc, &req) {
		return
	}
	mt, err := s.matches.Resign(ctx, id, req.User)
	if err != nil {
		s.fail(rc, err)
		return
	}
	s.closeLobby(ctx, req.User, mt.ID)
	writeJSON(rc, fasthttp.StatusOK, s.matchState(mt))
}

func (s *Server) makeLobby(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req checkersdto.MakeLobbyRequest
	if !s.decode(rc, &req) {
		return
	}
	if !s.allowRoom(req.Room) {
		s.fail(rc, errRoomForbidden)
		return
	}
	res, err := s.lobbies.Make(ctx, req.Room, req.User, req.Name)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusCreated, checkersdto.MakeLobbyResponse{
		Lobby:   lobbyInfo(res.Meta),
		Message: s.msgs.Text("lobby.made", map[string]any{"Code": res.Code}, res.Code),
	})
}

func (s *Server) listLobbies(ctx context.Context, rc *fasthttp.RequestCtx) {
	metas, err := s.lobbies.ListLobby(ctx)
	if err != nil {
		s.fail(rc, err)
		return
	}
	out := checkersdto.LobbyListResponse{Lobbies: []*checkersdto.LobbyInfo{}}
	for _, m := range metas {
		out.Lobbies = append(out.Lobbies, lobbyInfo(m))
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) joinLobby(ctx context.Context, rc *fasthttp.RequestCtx, code string) {
	var req checkersdto.JoinLobbyRequest
	if !s.decode(rc, &req) {
		return
	}
	if !s.allowRoom(req.Room) {
		s.fail(rc, errRoomForbidden)
		return
	}
	res, err := s.lobbies.Join(ctx, req.Room, code, req.User, req.Name)
	if err != nil {
		s.fail(rc, err)
		return
	}
	out := checkersdto.JoinLobbyResponse{Started: res.Started, Lobby: lobbyInfo(res.Meta)}
	if res.Started {
		mt, err := s.matches.LoadMatch(ctx, res.MatchID)
		if err != nil {
			s.fail(rc, err)
			return
		}
		out.State = s.matchState(mt)
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) getLobby(ctx context.Context, rc *fasthttp.RequestCtx, code string) {
	meta, err := s.lobbies.Get(ctx, code)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, lobbyInfo(meta))
}

func (s *Server) lobbyRooms(ctx context.Context, rc *fasthttp.RequestCtx, code string) {
	rooms, err := s.lobbies.Rooms(ctx, code)
	if err != nil {
		s.fail(rc, err)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, checkersdto.LobbyRoomsResponse{Code: code, Rooms: rooms})
}

func (s *Server) history(ctx context.Context, rc *fasthttp.RequestCtx, userID string) {
	limit, _ := strconv.Atoi(string(rc.QueryArgs().Peek("limit")))
	out := checkersdto.HistoryResponse{Games: []*checkersdto.CheckersGame{}}
	if s.repo == nil {
		writeJSON(rc, fasthttp.StatusOK, out)
		return
	}
	results, err := s.repo.RecentResults(ctx, userID, limit)
	if err != nil {
		s.fail(rc, err)
		return
	}
	for _, r := range results {
		out.Games = append(out.Games, archivedGame(r))
	}
	writeJSON(rc, fasthttp.StatusOK, out)
}

func (s *Server) decode(rc *fasthttp.RequestCtx, dst any) bool {
	if err := json.Unmarshal(rc.PostBody(), dst); err != nil {
		writeJSON(rc, fasthttp.StatusBadRequest, checkersdto.DomainError{
			Code:    "invalid_args",
			Message: s.msgs.Text("error.invalid_args", nil, "invalid request body"),
		})
		return false
	}
	return true
}

func (s *Server) fail(rc *fasthttp.RequestCtx, err error) {
	status, body := s.domainError(err)
	if status >= fasthttp.StatusInternalServerError {
		obslog.L().Error("http_internal_error", zap.String("path", string(rc.Path())), zap.Error(err))
	}
	writeJSON(rc, status, body)
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		rc.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(payload)
}
