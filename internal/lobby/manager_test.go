package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-checkers/internal/pvpcheckers"
)

func newTestBackends(t *testing.T) (*redis.Client, *pvpcheckers.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	matchMgr, err := pvpcheckers.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("pvpcheckers.NewManager: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		_ = matchMgr.Close()
	})
	return rdb, matchMgr
}

func newTestManagers(t *testing.T) (*Manager, *pvpcheckers.Manager) {
	t.Helper()
	rdb, matchMgr := newTestBackends(t)
	return NewManager(rdb, matchMgr), matchMgr
}

// flakyMatches fails the first n match creations.
type flakyMatches struct {
	*pvpcheckers.Manager
	n int
}

var errStartFailed = errors.New("start failed")

func (f *flakyMatches) CreateMatchFromChallenge(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*pvpcheckers.Match, error) {
	if f.n > 0 {
		f.n--
		return nil, errStartFailed
	}
	return f.Manager.CreateMatchFromChallenge(ctx, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice)
}

type brokenLookup struct {
	*pvpcheckers.Manager
}

var errLookupDown = errors.New("lookup down")

func (brokenLookup) GetActiveMatchByUserInRoom(context.Context, string, string) (*pvpcheckers.Match, error) {
	return nil, errLookupDown
}

func TestMakeJoinStartsMatch(t *testing.T) {
	m, matches := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if !strings.HasPrefix(mr.Code, "CK-") || len(mr.Code) != 9 {
		t.Fatalf("unexpected code %q", mr.Code)
	}

	list, err := m.ListLobby(ctx)
	if err != nil || len(list) != 1 || list[0].ID != mr.Code {
		t.Fatalf("ListLobby before join: %v %v", list, err)
	}

	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !jr.Started || jr.MatchID == "" || jr.Meta.State != StateActive {
		t.Fatalf("expected match to start on second join: %+v", jr)
	}

	g, err := matches.GetActiveMatchByUser(ctx, "u1")
	if err != nil || g == nil {
		t.Fatalf("GetActiveMatchByUser: %v", err)
	}
	if g.ID != jr.MatchID {
		t.Fatalf("match id mismatch: %q vs %q", g.ID, jr.MatchID)
	}
	names := map[string]bool{g.LightName: true, g.DarkName: true}
	if !names["Alice"] || !names["Bob"] {
		t.Fatalf("expected Alice and Bob, got light=%q dark=%q", g.LightName, g.DarkName)
	}
	if jr.Meta.LightID != g.LightID || jr.Meta.DarkID != g.DarkID {
		t.Fatalf("lobby colours differ from match: %+v", jr.Meta)
	}

	rooms, err := m.Rooms(ctx, mr.Code)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0] != "roomA" || rooms[1] != "roomB" {
		t.Fatalf("unexpected rooms %v", rooms)
	}

	list, err = m.ListLobby(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected started lobby to leave the list: %v %v", list, err)
	}
}

func TestJoinRejections(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	if _, err := m.Join(ctx, "roomB", "CK-NOPE00", "u2", "u2"); !errors.Is(err, ErrLobbyGone) {
		t.Fatalf("expected ErrLobbyGone, got %v", err)
	}
	if _, err := m.Join(ctx, "", "CK-NOPE00", "u2", "u2"); !errors.Is(err, ErrInvalidArgs) {
		t.Fatalf("expected ErrInvalidArgs, got %v", err)
	}

	mr, err := m.Make(ctx, "roomA", "u1", "u1")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomA", mr.Code, "u1", "u1")
	if err != nil || jr.Started {
		t.Fatalf("creator rejoin should be a no-op: %+v %v", jr, err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); err != nil {
		t.Fatalf("Join#1: %v", err)
	}
	if _, err := m.Join(ctx, "roomC", mr.Code, "u3", "u3"); !errors.Is(err, ErrLobbyActive) {
		t.Fatalf("expected ErrLobbyActive on third join, got %v", err)
	}
}

func TestRoomsByUserAndMatch(t *testing.T) {
	m, matches := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	g, err := matches.GetActiveMatchByUser(ctx, "u2")
	if err != nil || g == nil {
		t.Fatalf("GetActiveMatchByUser: %v", err)
	}
	rooms, err := m.RoomsByUserAndMatch(ctx, "u2", g.ID)
	if err != nil {
		t.Fatalf("RoomsByUserAndMatch: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d (%v)", len(rooms), rooms)
	}
}

func TestMakeBlockedIfActiveMatchInSameRoom(t *testing.T) {
	m, matches := newTestManagers(t)
	ctx := context.Background()

	if _, err := matches.CreateMatchFromChallenge(ctx, "roomA", "roomB", "u1", "u1", "u2", "u2", "random"); err != nil {
		t.Fatalf("CreateMatchFromChallenge: %v", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", "u1"); !errors.Is(err, ErrPlayerBusyInRoom) {
		t.Fatalf("expected ErrPlayerBusyInRoom, got %v", err)
	}
	if _, err := m.Make(ctx, "roomC", "u1", "u1"); err != nil {
		t.Fatalf("Make in another room: %v", err)
	}
}

func TestJoinBlockedIfUserActiveInSameRoom(t *testing.T) {
	m, matches := newTestManagers(t)
	ctx := context.Background()

	if _, err := matches.CreateMatchFromChallenge(ctx, "roomX", "roomB", "x1", "x1", "u2", "u2", "random"); err != nil {
		t.Fatalf("CreateMatchFromChallenge: %v", err)
	}
	mr, err := m.Make(ctx, "roomA", "u1", "u1")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2"); !errors.Is(err, ErrPlayerBusyInRoom) {
		t.Fatalf("expected ErrPlayerBusyInRoom, got %v", err)
	}
	// the rejected join must not take the second seat
	if jr, err := m.Join(ctx, "roomC", mr.Code, "u3", "u3"); err != nil || !jr.Started {
		t.Fatalf("expected u3 to start the match: %+v %v", jr, err)
	}
}

func TestMakeRestrictedDuplicateCreator(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	if _, err := m.Make(ctx, "roomA", "u1", "u1"); err != nil {
		t.Fatalf("first Make: %v", err)
	}
	if _, err := m.Make(ctx, "roomB", "u1", "u1"); !errors.Is(err, ErrCreatorHasLobby) {
		t.Fatalf("expected ErrCreatorHasLobby, got %v", err)
	}
}

func TestJoinReleasesSeatWhenMatchStartFails(t *testing.T) {
	rdb, matchMgr := newTestBackends(t)
	m := NewManager(rdb, &flakyMatches{Manager: matchMgr, n: 1})
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob"); !errors.Is(err, errStartFailed) {
		t.Fatalf("expected start failure, got %v", err)
	}

	rooms, err := m.Rooms(ctx, mr.Code)
	if err != nil || len(rooms) != 1 || rooms[0] != "roomA" {
		t.Fatalf("expected only the creator room after a failed join: %v %v", rooms, err)
	}
	codes, err := m.store.CodesByUser(ctx, "u2")
	if err != nil || len(codes) != 0 {
		t.Fatalf("expected u2 index to be cleared: %v %v", codes, err)
	}

	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob")
	if err != nil || !jr.Started {
		t.Fatalf("expected retry by the same user to start the match: %+v %v", jr, err)
	}
}

func TestJoinByAnotherUserAfterFailedStart(t *testing.T) {
	rdb, matchMgr := newTestBackends(t)
	m := NewManager(rdb, &flakyMatches{Manager: matchMgr, n: 1})
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob"); err == nil {
		t.Fatalf("expected first join to fail")
	}
	jr, err := m.Join(ctx, "roomC", mr.Code, "u3", "Carol")
	if err != nil || !jr.Started {
		t.Fatalf("expected u3 to take the free seat: %+v %v", jr, err)
	}
	if jr.Meta.LightID != "u3" && jr.Meta.DarkID != "u3" {
		t.Fatalf("u3 not seated: %+v", jr.Meta)
	}
}

func TestBusyLookupErrorsPropagate(t *testing.T) {
	rdb, matchMgr := newTestBackends(t)
	ctx := context.Background()

	mr, err := NewManager(rdb, matchMgr).Make(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}

	m := NewManager(rdb, brokenLookup{matchMgr})
	if _, err := m.Make(ctx, "roomB", "u9", "Zed"); !errors.Is(err, errLookupDown) {
		t.Fatalf("expected lookup error from Make, got %v", err)
	}
	if _, err := m.Join(ctx, "roomB", mr.Code, "u2", "Bob"); !errors.Is(err, errLookupDown) {
		t.Fatalf("expected lookup error from Join, got %v", err)
	}
}

func TestMarkFinished(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	mr, err := m.Make(ctx, "roomA", "u1", "u1")
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	jr, err := m.Join(ctx, "roomB", mr.Code, "u2", "u2")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := m.MarkFinished(ctx, "u2", "ck-unrelated"); err != nil {
		t.Fatalf("MarkFinished unrelated: %v", err)
	}
	if err := m.MarkFinished(ctx, "u2", jr.MatchID); err != nil {
		t.Fatalf("MarkFinished: %v", err)
	}
	meta, err := m.store.LoadMeta(ctx, mr.Code)
	if err != nil || meta == nil || meta.State != StateFinished {
		t.Fatalf("expected finished lobby, got %+v %v", meta, err)
	}
	if _, err := m.Join(ctx, "roomC", mr.Code, "u3", "u3"); !errors.Is(err, ErrLobbyActive) {
		t.Fatalf("expected finished lobby to refuse joins, got %v", err)
	}
}

func TestRoomsOfExpiredLobby(t *testing.T) {
	m, _ := newTestManagers(t)
	if _, err := m.Rooms(context.Background(), "CK-NOPE00"); !errors.Is(err, ErrLobbyGone) {
		t.Fatalf("expected ErrLobbyGone, got %v", err)
	}
}

func TestCodeGenAlphabet(t *testing.T) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	seen := map[rune]bool{}
	for i := 0; i < 200; i++ {
		c, err := codeGen()
		if err != nil {
			t.Fatalf("codeGen: %v", err)
		}
		if !strings.HasPrefix(c, "CK-") || len(c) != 9 {
			t.Fatalf("unexpected code %q", c)
		}
		for _, r := range c[3:] {
			if !strings.ContainsRune(letters, r) {
				t.Fatalf("code %q has %q outside the alphabet", c, r)
			}
			seen[r] = true
		}
	}
	// 1200 draws over 36 symbols
	if len(seen) != len(letters) {
		t.Fatalf("expected every symbol to appear, saw %d", len(seen))
	}
}
