package pvpcheckers

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-checkers/internal/checkers"
	"github.com/park285/cheese-checkers/internal/obslog"
)

const defaultMatchTTL = 24 * time.Hour

type Manager struct {
	rdb   *redis.Client
	repo  *Repository
	rules checkers.Rules
	ttl   time.Duration
}

type Option func(*Manager)

// WithRules sets the rules applied to newly created matches.
func WithRules(r checkers.Rules) Option {
	return func(m *Manager) { m.rules = r }
}

// WithTTL sets how long match keys live in Redis after their last update.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// NewManager dials redisURL and verifies the connection.
func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for checkers manager")
	}
	ropts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(rdb, opts...), nil
}

// NewManagerWithClient wraps an existing client.
func NewManagerWithClient(rdb *redis.Client, opts ...Option) *Manager {
	m := &Manager{rdb: rdb, ttl: defaultMatchTTL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client exposes the underlying Redis client so sibling stores can share it.
func (m *Manager) Client() *redis.Client {
	if m == nil {
		return nil
	}
	return m.rdb
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for archiving finished matches.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// CreateMatchFromChallenge starts a match between challenger and target.
// colorChoice is "light", "dark" (the challenger's side) or anything else for
// a random assignment.
func (m *Manager) CreateMatchFromChallenge(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	challengerID, targetID = strings.TrimSpace(challengerID), strings.TrimSpace(targetID)
	if challengerID == "" || targetID == "" || challengerID == targetID {
		return nil, ErrInvalidArgs
	}

	lightID, lightName := challengerID, challengerName
	darkID, darkName := targetID, targetName
	switch strings.ToLower(strings.TrimSpace(colorChoice)) {
	case "light", "l", "white", "w":
	case "dark", "d", "black", "b":
		lightID, lightName, darkID, darkName = targetID, targetName, challengerID, challengerName
	default:
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
			lightID, lightName, darkID, darkName = targetID, targetName, challengerID, challengerName
		}
	}

	game := checkers.NewGame(m.rules)
	now := time.Now()
	mt := &Match{
		ID:           "ck-" + uuid.NewString(),
		Moves:        []string{},
		Status:       StatusActive,
		PromoteKings: m.rules.PromoteKings,
		LightID:      lightID,
		LightName:    strings.TrimSpace(lightName),
		DarkID:       darkID,
		DarkName:     strings.TrimSpace(darkName),
		OriginRoom:   strings.TrimSpace(originRoom),
		ResolveRoom:  strings.TrimSpace(resolveRoom),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	syncFromGame(mt, game)

	if err := m.save(ctx, mt); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, mt.ID, mt.LightID, mt.DarkID); err != nil {
		return nil, err
	}
	obslog.L().Info("checkers_match_create",
		zap.String("match_id", mt.ID),
		zap.String("origin_room", mt.OriginRoom),
		zap.String("resolve_room", mt.ResolveRoom),
		zap.String("light_id", mt.LightID),
		zap.String("dark_id", mt.DarkID),
		zap.Bool("promote_kings", mt.PromoteKings),
	)
	return mt, nil
}

// LoadMatch returns the match by ID, or ErrMatchNotFound.
func (m *Manager) LoadMatch(ctx context.Context, id string) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	mt, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, ErrMatchNotFound
	}
	return mt, nil
}

// GetActiveMatchByUser returns the most recently updated active match of userID.
func (m *Manager) GetActiveMatchByUser(ctx context.Context, userID string) (*Match, error) {
	return m.latestActive(ctx, userID, func(*Match) bool { return true })
}

// GetActiveMatchByUserInRoom limits GetActiveMatchByUser to matches bound to room.
func (m *Manager) GetActiveMatchByUserInRoom(ctx context.Context, userID, room string) (*Match, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, nil
	}
	return m.latestActive(ctx, userID, func(mt *Match) bool { return mt.InRoom(room) })
}

func (m *Manager) latestActive(ctx context.Context, userID string, keep func(*Match) bool) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Match
	for _, id := range ids {
		mt, gerr := m.get(ctx, id)
		if gerr != nil || mt == nil || mt.Status != StatusActive || !keep(mt) {
			continue
		}
		list = append(list, mt)
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// Game rebuilds the rule engine state of mt.
func (m *Manager) Game(mt *Match) (*checkers.Game, error) {
	if mt == nil {
		return nil, ErrMatchNotFound
	}
	return reconstruct(mt)
}

// LegalMoves returns the destinations the piece on from may reach. A square
// the user cannot select (opponent piece, empty, wrong turn, another piece
// owing a jump) yields an empty list, not an error.
func (m *Manager) LegalMoves(ctx context.Context, matchID, userID, from string) ([]string, error) {
	mt, err := m.LoadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	color := mt.PlayerColor(strings.TrimSpace(userID))
	if color == "" {
		return nil, ErrNotParticipant
	}
	sq, err := checkers.ParseCoord(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMove, err)
	}
	out := []string{}
	if mt.Status != StatusActive || mt.Turn != color {
		return out, nil
	}
	game, err := reconstruct(mt)
	if err != nil {
		return nil, err
	}
	p, ok := game.Select(sq)
	if !ok {
		return out, nil
	}
	for _, to := range game.ValidMoves(p) {
		out = append(out, to.String())
	}
	return out, nil
}

// PlayMove applies move for userID under optimistic concurrency on the match key.
func (m *Manager) PlayMove(ctx context.Context, matchID, userID, move string) (*PlayResult, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(matchID) == "" {
		return nil, ErrInvalidArgs
	}
	mv, err := checkers.ParseMove(move)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMove, err)
	}

	key := matchKey(matchID)
	var out *PlayResult
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		var cur Match
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Status != StatusActive {
			return ErrMatchNotActive
		}
		color := cur.PlayerColor(userID)
		if color == "" {
			return ErrNotParticipant
		}
		if cur.Turn != color {
			return ErrNotYourTurn
		}

		game, err := reconstruct(&cur)
		if err != nil {
			return err
		}
		res, perr := game.Play(mv)
		if perr != nil {
			return fmt.Errorf("%w: %w", ErrIllegalMove, perr)
		}

		cur.Moves = append(cur.Moves, res.Move.String())
		cur.UpdatedAt = time.Now()
		syncFromGame(&cur, game)
		if res.TurnChanged && !game.HasLegalMove(game.Turn()) {
			cur.Status = StatusFinished
			cur.Winner = userID
			cur.Outcome = string(color)
		}

		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newRaw, m.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &PlayResult{Match: &cur, Result: res}
		return nil
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}

	mt := out.Match
	obslog.L().Info("checkers_move",
		zap.String("match_id", mt.ID),
		zap.String("user_id", userID),
		zap.String("move", out.Result.Move.String()),
		zap.Bool("captured", out.Result.Captured),
		zap.Bool("further_jump", out.Result.FurtherJump),
		zap.Bool("promoted", out.Result.Promoted),
		zap.String("turn", string(mt.Turn)),
		zap.String("status", string(mt.Status)),
	)
	if mt.Status == StatusFinished {
		_ = m.persistIfFinal(ctx, mt, "no_moves")
	}
	return out, nil
}

// Resign ends the match in favour of userID's opponent.
func (m *Manager) Resign(ctx context.Context, matchID, userID string) (*Match, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	userID = strings.TrimSpace(userID)
	key := matchKey(matchID)
	var out *Match
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrMatchNotFound
		}
		if err != nil {
			return err
		}
		var cur Match
		if err := json.Unmarshal(raw, &cur); err != nil {
			return err
		}
		if cur.Status != StatusActive {
			return ErrMatchNotActive
		}
		color := cur.PlayerColor(userID)
		if color == "" {
			return ErrNotParticipant
		}
		cur.Status = StatusResigned
		cur.Winner = cur.opponentID(userID)
		cur.Outcome = "resign"
		cur.UpdatedAt = time.Now()
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newRaw, m.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &cur
		return nil
	}, key)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}
	obslog.L().Info("checkers_resign",
		zap.String("match_id", out.ID),
		zap.String("resigner", userID),
		zap.String("winner", out.Winner),
	)
	_ = m.persistIfFinal(ctx, out, "resignation")
	return out, nil
}

// reconstruct replays the stored moves from the starting position.
func reconstruct(mt *Match) (*checkers.Game, error) {
	game := checkers.NewGame(checkers.Rules{PromoteKings: mt.PromoteKings})
	for i, s := range mt.Moves {
		mv, err := checkers.ParseMove(s)
		if err != nil {
			return nil, fmt.Errorf("replay move %d %q: %w", i+1, s, err)
		}
		if _, err := game.Play(mv); err != nil {
			return nil, fmt.Errorf("replay move %d %q: %w", i+1, s, err)
		}
	}
	return game, nil
}

func syncFromGame(mt *Match, game *checkers.Game) {
	mt.Snapshot = game.Snapshot()
	mt.Turn = colorFrom(game.Turn())
	mt.Pending = ""
	if at, ok := game.Pending(); ok {
		mt.Pending = at.String()
	}
	mt.DarkLeft, mt.LightLeft = game.Counts()
}

func (m *Manager) save(ctx context.Context, mt *Match) error {
	raw, err := json.Marshal(mt)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, matchKey(mt.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Match, error) {
	raw, err := m.rdb.Get(ctx, matchKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var mt Match
	if err := json.Unmarshal(raw, &mt); err != nil {
		return nil, err
	}
	return &mt, nil
}

func (m *Manager) indexParticipants(ctx context.Context, id string, users ...string) error {
	for _, u := range users {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		// 인덱스 TTL도 매치와 같이 갱신
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

// persistIfFinal archives a finished match when a repository is attached.
func (m *Manager) persistIfFinal(ctx context.Context, mt *Match, method string) error {
	if m == nil || m.repo == nil || mt == nil || mt.Status == StatusActive {
		return nil
	}
	if err := m.repo.SaveResult(ctx, mt, method); err != nil {
		obslog.L().Error("checkers_result_persist_error", zap.String("match_id", mt.ID), zap.String("outcome", mt.Outcome), zap.Error(err))
		return err
	}
	obslog.L().Info("checkers_result_persist", zap.String("match_id", mt.ID), zap.String("outcome", mt.Outcome), zap.String("method", method))
	return nil
}

func matchKey(id string) string       { return "checkers:match:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "checkers:index:user:" + strings.TrimSpace(userID) }

// ParseRedisURL turns redis://[:password@]host:port/db into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
