package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-checkers/internal/obslog"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
)

// Matches is the part of the match manager a lobby needs to start games.
type Matches interface {
	GetActiveMatchByUserInRoom(ctx context.Context, userID, room string) (*pvpcheckers.Match, error)
	CreateMatchFromChallenge(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*pvpcheckers.Match, error)
}

type Manager struct {
	rdb     *redis.Client
	store   *Store
	matches Matches
}

func NewManager(rdb *redis.Client, matches Matches) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), matches: matches}
}

// Make opens a waiting lobby in room with userID as its first participant.
func (m *Manager) Make(ctx context.Context, room, userID, userName string) (*MakeResult, error) {
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	if room == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	if g, err := m.matches.GetActiveMatchByUserInRoom(ctx, userID, room); err != nil {
		return nil, err
	} else if g != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if has, err := m.hasOpenLobby(ctx, userID); err != nil {
		return nil, err
	} else if has {
		return nil, ErrCreatorHasLobby
	}

	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(c), []byte("{}"), ttlLobby).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		meta := &Meta{
			ID:          c,
			State:       StateLobby,
			CreatedAt:   time.Now(),
			CreatorID:   userID,
			CreatorName: strings.TrimSpace(userName),
			CreatorRoom: room,
		}
		if err := m.store.SaveMeta(ctx, c, meta); err != nil {
			return nil, err
		}
		if err := m.store.AddRoom(ctx, c, room); err != nil {
			return nil, err
		}
		if err := m.store.AddParticipant(ctx, c, userID); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("room", room), zap.String("creator_id", userID))
		return &MakeResult{Code: c, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate lobby code")
}

func (m *Manager) hasOpenLobby(ctx context.Context, userID string) (bool, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.State == StateLobby && meta.CreatorID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Join adds userID to the lobby. The second participant starts a match with
// random colours between the creator and the joiner.
func (m *Manager) Join(ctx context.Context, room, code, userID, userName string) (*JoinResult, error) {
	room, code, userID = strings.TrimSpace(room), strings.TrimSpace(code), strings.TrimSpace(userID)
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrLobbyGone
	}
	if meta.State != StateLobby {
		return nil, ErrLobbyActive
	}
	if meta.CreatorID == userID {
		return &JoinResult{Started: false, Meta: meta}, nil
	}

	// 방 기준 중복 대국 금지: 참가자와 생성자 모두 검사
	for _, p := range [][2]string{{userID, room}, {meta.CreatorID, meta.CreatorRoom}} {
		busy, err := m.matches.GetActiveMatchByUserInRoom(ctx, p[0], p[1])
		if err != nil {
			return nil, err
		}
		if busy != nil {
			return nil, ErrPlayerBusyInRoom
		}
	}

	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, partKey, userID)
			pipe.Expire(ctx, partKey, ttlLobby)
			pipe.SAdd(ctx, m.store.keyRooms(code), room)
			pipe.Expire(ctx, m.store.keyRooms(code), ttlLobby)
			pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
			pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlLobby)
			return nil
		})
		return err
	}, partKey)
	if err != nil {
		if err == redis.TxFailedErr {
			err = ErrFull
		}
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	mt, err := m.matches.CreateMatchFromChallenge(ctx, meta.CreatorRoom, room, meta.CreatorID, meta.CreatorName, userID, strings.TrimSpace(userName), "random")
	if err != nil {
		// 자리 반납: 다음 참가자가 다시 들어올 수 있어야 함
		m.releaseSeat(ctx, code, room, userID, meta.CreatorRoom)
		obslog.L().Warn("lobby_start_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	meta.LightID, meta.LightName = mt.LightID, mt.LightName
	meta.DarkID, meta.DarkName = mt.DarkID, mt.DarkName
	meta.State = StateActive
	meta.MatchID = mt.ID
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	obslog.L().Info("lobby_start_match", zap.String("code", code), zap.String("match_id", mt.ID), zap.String("light_id", mt.LightID), zap.String("dark_id", mt.DarkID))
	return &JoinResult{Started: true, MatchID: mt.ID, Meta: meta}, nil
}

// releaseSeat undoes the participant, room and index entries added by a join
// whose match could not be started.
func (m *Manager) releaseSeat(ctx context.Context, code, room, userID, creatorRoom string) {
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, m.store.keyParticipants(code), userID)
		pipe.SRem(ctx, m.store.keyUserIdx(userID), code)
		if room != creatorRoom {
			pipe.SRem(ctx, m.store.keyRooms(code), room)
		}
		return nil
	})
	if err != nil {
		obslog.L().Error("lobby_release_seat_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(err))
	}
}

// Get returns the lobby by code, or ErrLobbyGone once it expired.
func (m *Manager) Get(ctx context.Context, code string) (*Meta, error) {
	meta, err := m.store.LoadMeta(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrLobbyGone
	}
	return meta, nil
}

// Rooms lists the rooms bound to the lobby.
func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
	meta, err := m.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return m.store.Rooms(ctx, meta.ID)
}

// MarkFinished closes the lobby that started matchID. userID is any participant.
func (m *Manager) MarkFinished(ctx context.Context, userID, matchID string) error {
	meta, err := m.lobbyOfMatch(ctx, userID, matchID)
	if err != nil || meta == nil || meta.State == StateFinished {
		return err
	}
	meta.State = StateFinished
	if err := m.store.SaveMeta(ctx, meta.ID, meta); err != nil {
		return err
	}
	obslog.L().Info("lobby_finish", zap.String("code", meta.ID), zap.String("match_id", matchID))
	return nil
}

func (m *Manager) lobbyOfMatch(ctx context.Context, userID, matchID string) (*Meta, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, nil
	}
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range codes {
		meta, err := m.store.LoadMeta(ctx, c)
		if err != nil {
			return nil, err
		}
		if meta != nil && meta.MatchID == matchID {
			return meta, nil
		}
	}
	return nil, nil
}

// RoomsByUserAndMatch finds the rooms of the lobby that started matchID.
func (m *Manager) RoomsByUserAndMatch(ctx context.Context, userID, matchID string) ([]string, error) {
	meta, err := m.lobbyOfMatch(ctx, userID, matchID)
	if err != nil || meta == nil {
		return nil, err
	}
	return m.store.Rooms(ctx, meta.ID)
}

// ListLobby returns the lobbies still waiting for an opponent.
func (m *Manager) ListLobby(ctx context.Context) ([]*Meta, error) { return m.store.ListLobby(ctx) }
