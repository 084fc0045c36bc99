package lobby

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlLobby = 24 * time.Hour

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyMeta(code string) string         { return "ck:" + strings.TrimSpace(code) }
func (s *Store) keyRooms(code string) string        { return s.keyMeta(code) + ":rooms" }
func (s *Store) keyParticipants(code string) string { return s.keyMeta(code) + ":participants" }
func (s *Store) keyUserIdx(user string) string      { return "ck:index:user:" + strings.TrimSpace(user) }
func (s *Store) keyLobby() string                   { return "ck:lobby" }

func (s *Store) SaveMeta(ctx context.Context, code string, meta *Meta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyMeta(code), raw, ttlLobby).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyRooms(code), ttlLobby).Err()
	_ = s.rdb.Expire(ctx, s.keyParticipants(code), ttlLobby).Err()
	return nil
}

// LoadMeta returns nil without error when the lobby has expired.
func (s *Store) LoadMeta(ctx context.Context, code string) (*Meta, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) AddRoom(ctx context.Context, code, room string) error {
	if strings.TrimSpace(room) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyRooms(code), room).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyRooms(code), ttlLobby).Err()
}

func (s *Store) Rooms(ctx context.Context, code string) ([]string, error) {
	rooms, err := s.rdb.SMembers(ctx, s.keyRooms(code)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *Store) AddParticipant(ctx context.Context, code, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyParticipants(code), userID).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyParticipants(code), ttlLobby).Err()
	if err := s.rdb.SAdd(ctx, s.keyUserIdx(userID), code).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyUserIdx(userID), ttlLobby).Err()
}

func (s *Store) CodesByUser(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyUserIdx(userID)).Result()
}

// codeGen returns `CK-` + 6 upper alnum, each drawn uniformly.
func codeGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	size := big.NewInt(int64(len(letters)))
	b := make([]byte, 6)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = letters[n.Int64()]
	}
	return fmt.Sprintf("CK-%s", string(b)), nil
}

func (s *Store) AddLobby(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyLobby(), code).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyLobby(), ttlLobby).Err()
	return nil
}

func (s *Store) RemoveLobby(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return s.rdb.SRem(ctx, s.keyLobby(), code).Err()
}

// ListLobby returns waiting lobbies, oldest first. Expired codes are pruned
// from the index as they are found.
func (s *Store) ListLobby(ctx context.Context) ([]*Meta, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyLobby()).Result()
	if err != nil {
		return nil, err
	}
	var out []*Meta
	for _, c := range codes {
		m, _ := s.LoadMeta(ctx, c)
		if m == nil {
			_ = s.RemoveLobby(ctx, c)
			continue
		}
		if m.State != StateLobby {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
