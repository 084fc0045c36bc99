package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/cheese-checkers/internal/apiclient"
	"github.com/park285/cheese-checkers/internal/checkers"
	"github.com/park285/cheese-checkers/internal/lobby"
	"github.com/park285/cheese-checkers/internal/msgcat"
	"github.com/park285/cheese-checkers/internal/pvpcheckers"
	"github.com/park285/cheese-checkers/pkg/checkersdto"
)

func newTestServer(t *testing.T, opts ...Option) *apiclient.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	matches, err := pvpcheckers.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()), pvpcheckers.WithRules(checkers.Rules{PromoteKings: true}))
	if err != nil {
		t.Fatalf("pvpcheckers.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = matches.Close() })
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	srv := New(matches, lobby.NewManager(matches.Client(), matches), msgs, opts...)

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = fasthttp.Serve(ln, srv.Handler()) }()
	t.Cleanup(func() { _ = ln.Close() })

	return apiclient.New("http://checkers.test", apiclient.WithDial(ln.Dial), apiclient.WithRetry(1))
}

func expectStatus(t *testing.T, err error, status int, code string) {
	t.Helper()
	var se *apiclient.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected status error %d/%s, got %v", status, code, err)
	}
	if se.Status != status || se.Domain.Code != code {
		t.Fatalf("expected %d/%s, got %d/%s (%s)", status, code, se.Status, se.Domain.Code, se.Domain.Message)
	}
	if se.Domain.Message == "" {
		t.Fatalf("expected a message for %s", code)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestHealthz(t *testing.T) {
	c := newTestServer(t)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestMatchLifecycle(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	st, err := c.CreateMatch(ctx, checkersdto.CreateMatchRequest{LightID: "u1", LightName: "Alice", DarkID: "u2", DarkName: "Bob", Room: "roomA"})
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if st.Turn != "light" || len(st.Rows) != 8 || st.Rows[0] != "l.l.l.l." || st.Rows[7] != ".d.d.d.d" {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if len(st.LegalMoves) != 7 || !st.KingsActive {
		t.Fatalf("expected 7 opening moves with kings enabled, got %v", st.LegalMoves)
	}

	lm, err := c.LegalMoves(ctx, st.ID, "u1", "c6")
	if err != nil {
		t.Fatalf("LegalMoves: %v", err)
	}
	if len(lm.To) != 2 || !contains(lm.To, "b5") || !contains(lm.To, "d5") {
		t.Fatalf("unexpected destinations from c6: %v", lm.To)
	}

	pr, err := c.Play(ctx, st.ID, "u1", "c6-d5")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if pr.Message != "Alice: c6-d5" || !pr.TurnChanged || pr.State.Turn != "dark" {
		t.Fatalf("unexpected play response: %+v", pr)
	}
	if len(pr.Rooms) != 1 || pr.Rooms[0] != "roomA" {
		t.Fatalf("expected the match room, got %v", pr.Rooms)
	}

	_, err = c.Play(ctx, st.ID, "u1", "d5-e4")
	expectStatus(t, err, fasthttp.StatusConflict, "not_your_turn")
	_, err = c.Play(ctx, st.ID, "u2", "zz")
	expectStatus(t, err, fasthttp.StatusBadRequest, "bad_move")
	_, err = c.Play(ctx, st.ID, "u2", "h8-g7")
	expectStatus(t, err, fasthttp.StatusUnprocessableEntity, "illegal_move")
	_, err = c.Play(ctx, st.ID, "u3", "b3-c4")
	expectStatus(t, err, fasthttp.StatusForbidden, "not_participant")

	if _, err := c.Play(ctx, st.ID, "u2", "b3-c4"); err != nil {
		t.Fatalf("Play dark: %v", err)
	}
	pr, err = c.Play(ctx, st.ID, "u1", "d5xb3")
	if err != nil {
		t.Fatalf("Play capture: %v", err)
	}
	if pr.Captured != "c4" || !strings.Contains(pr.Message, "captures c4") || pr.State.DarkLeft != 11 {
		t.Fatalf("unexpected capture response: %+v", pr)
	}

	got, err := c.Match(ctx, st.ID)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if strings.Join(got.Moves, " ") != "c6-d5 b3-c4 d5xb3" {
		t.Fatalf("unexpected move list %v", got.Moves)
	}

	done, err := c.Resign(ctx, st.ID, "u2")
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if done.Status != "RESIGNED" || done.Winner != "u1" || len(done.LegalMoves) != 0 {
		t.Fatalf("unexpected resigned state: %+v", done)
	}
	_, err = c.Play(ctx, st.ID, "u2", "a2xc4")
	expectStatus(t, err, fasthttp.StatusConflict, "not_active")

	_, err = c.Match(ctx, "ck-missing")
	expectStatus(t, err, fasthttp.StatusNotFound, "not_found")
}

func TestCreateMatchRejectsSamePlayer(t *testing.T) {
	c := newTestServer(t)
	_, err := c.CreateMatch(context.Background(), checkersdto.CreateMatchRequest{LightID: "u1", DarkID: "u1", Room: "roomA"})
	expectStatus(t, err, fasthttp.StatusBadRequest, "invalid_args")
}

func TestLobbyFlow(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	made, err := c.MakeLobby(ctx, "roomA", "u1", "Alice")
	if err != nil {
		t.Fatalf("MakeLobby: %v", err)
	}
	if !strings.Contains(made.Message, made.Lobby.Code) {
		t.Fatalf("expected code in message: %q", made.Message)
	}
	_, err = c.MakeLobby(ctx, "roomC", "u1", "Alice")
	expectStatus(t, err, fasthttp.StatusConflict, "lobby_duplicate")

	list, err := c.Lobbies(ctx)
	if err != nil || len(list) != 1 || list[0].CreatorName != "Alice" {
		t.Fatalf("Lobbies: %v %v", list, err)
	}

	joined, err := c.JoinLobby(ctx, made.Lobby.Code, "roomB", "u2", "Bob")
	if err != nil {
		t.Fatalf("JoinLobby: %v", err)
	}
	if !joined.Started || joined.State == nil || joined.State.ID != joined.Lobby.MatchID {
		t.Fatalf("expected started match: %+v", joined)
	}

	_, err = c.JoinLobby(ctx, made.Lobby.Code, "roomC", "u3", "Carol")
	expectStatus(t, err, fasthttp.StatusConflict, "lobby_active")
	_, err = c.JoinLobby(ctx, "CK-ZZZZZZ", "roomC", "u3", "Carol")
	expectStatus(t, err, fasthttp.StatusNotFound, "lobby_gone")

	list, err = c.Lobbies(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty lobby list: %v %v", list, err)
	}

	rooms, err := c.LobbyRooms(ctx, made.Lobby.Code)
	if err != nil || strings.Join(rooms, ",") != "roomA,roomB" {
		t.Fatalf("LobbyRooms: %v %v", rooms, err)
	}
	_, err = c.LobbyRooms(ctx, "CK-ZZZZZZ")
	expectStatus(t, err, fasthttp.StatusNotFound, "lobby_gone")

	st := joined.State
	mover := st.LightID
	pr, err := c.Play(ctx, st.ID, mover, "c6-d5")
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if strings.Join(pr.Rooms, ",") != "roomA,roomB" {
		t.Fatalf("expected both lobby rooms on the move, got %v", pr.Rooms)
	}

	if _, err := c.Resign(ctx, st.ID, st.DarkID); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	info, err := c.Lobby(ctx, made.Lobby.Code)
	if err != nil {
		t.Fatalf("Lobby: %v", err)
	}
	if info.State != "FINISHED" || info.MatchID != st.ID {
		t.Fatalf("expected finished lobby after resignation: %+v", info)
	}
}

func TestRoomFilter(t *testing.T) {
	c := newTestServer(t, WithRoomFilter(func(room string) bool { return room == "open" }))
	ctx := context.Background()

	_, err := c.CreateMatch(ctx, checkersdto.CreateMatchRequest{LightID: "u1", DarkID: "u2", Room: "closed"})
	expectStatus(t, err, fasthttp.StatusForbidden, "room_forbidden")
	_, err = c.MakeLobby(ctx, "closed", "u1", "Alice")
	expectStatus(t, err, fasthttp.StatusForbidden, "room_forbidden")
	if _, err := c.MakeLobby(ctx, "open", "u1", "Alice"); err != nil {
		t.Fatalf("MakeLobby in open room: %v", err)
	}
}

func TestHistoryWithoutRepository(t *testing.T) {
	c := newTestServer(t)
	games, err := c.History(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("expected no archived games, got %d", len(games))
	}
}

func TestDomainErrorMapping(t *testing.T) {
	msgs, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	s := &Server{msgs: msgs}
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: %w", pvpcheckers.ErrIllegalMove, checkers.ErrJumpPending), fasthttp.StatusConflict, "jump_pending"},
		{fmt.Errorf("%w: %w", pvpcheckers.ErrIllegalMove, checkers.ErrWrongTurn), fasthttp.StatusUnprocessableEntity, "illegal_move"},
		{pvpcheckers.ErrConcurrentUpdate, fasthttp.StatusConflict, "concurrent"},
		{lobby.ErrFull, fasthttp.StatusConflict, "lobby_full"},
		{lobby.ErrPlayerBusyInRoom, fasthttp.StatusConflict, "lobby_busy"},
		{errors.New("boom"), fasthttp.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, de := s.domainError(tc.err)
		if status != tc.status || de.Code != tc.code {
			t.Fatalf("%v: got %d/%s, want %d/%s", tc.err, status, de.Code, tc.status, tc.code)
		}
		if de.Message == "" || de.Message == tc.err.Error() {
			t.Fatalf("%v: expected catalog message, got %q", tc.err, de.Message)
		}
	}
	if _, de := s.domainError(pvpcheckers.ErrConcurrentUpdate); !de.Retryable {
		t.Fatalf("concurrent updates should be retryable")
	}
}
