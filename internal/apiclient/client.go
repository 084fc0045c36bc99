package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/cheese-checkers/pkg/checkersdto"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status int
	Domain checkersdto.DomainError
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("checkers api error: status=%d code=%s message=%s", e.Status, e.Domain.Code, e.Domain.Message)
}

// Client talks to the checkers HTTP API.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the network dialer, e.g. with an in-memory listener.
func WithDial(dial func() (net.Conn, error)) Option {
	return func(c *Client) {
		c.http.Dial = func(string) (net.Conn, error) { return dial() }
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil, true)
}

func (c *Client) CreateMatch(ctx context.Context, req checkersdto.CreateMatchRequest) (*checkersdto.MatchState, error) {
	var st checkersdto.MatchState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/matches", req, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Match(ctx context.Context, id string) (*checkersdto.MatchState, error) {
	var st checkersdto.MatchState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/matches/"+id, nil, &st, true); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) LegalMoves(ctx context.Context, id, user, from string) (*checkersdto.LegalMovesResponse, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Add("user", user)
	args.Add("from", from)
	var resp checkersdto.LegalMovesResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/matches/"+id+"/moves?"+string(args.QueryString()), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Play(ctx context.Context, id, user, move string) (*checkersdto.PlayResponse, error) {
	var resp checkersdto.PlayResponse
	req := checkersdto.PlayRequest{User: user, Move: move}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/matches/"+id+"/moves", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Resign(ctx context.Context, id, user string) (*checkersdto.MatchState, error) {
	var st checkersdto.MatchState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/matches/"+id+"/resign", checkersdto.ResignRequest{User: user}, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) MakeLobby(ctx context.Context, room, user, name string) (*checkersdto.MakeLobbyResponse, error) {
	var resp checkersdto.MakeLobbyResponse
	req := checkersdto.MakeLobbyRequest{Room: room, User: user, Name: name}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/lobbies", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) JoinLobby(ctx context.Context, code, room, user, name string) (*checkersdto.JoinLobbyResponse, error) {
	var resp checkersdto.JoinLobbyResponse
	req := checkersdto.JoinLobbyRequest{Room: room, User: user, Name: name}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/lobbies/"+code+"/join", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Lobby(ctx context.Context, code string) (*checkersdto.LobbyInfo, error) {
	var info checkersdto.LobbyInfo
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/lobbies/"+code, nil, &info, true); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) LobbyRooms(ctx context.Context, code string) ([]string, error) {
	var resp checkersdto.LobbyRoomsResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/lobbies/"+code+"/rooms", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) Lobbies(ctx context.Context) ([]*checkersdto.LobbyInfo, error) {
	var resp checkersdto.LobbyListResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/lobbies", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Lobbies, nil
}

func (c *Client) History(ctx context.Context, userID string, limit int) ([]*checkersdto.CheckersGame, error) {
	var resp checkersdto.HistoryResponse
	path := "/users/" + userID + "/results"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 0 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			se := &StatusError{Status: status}
			if jerr := json.Unmarshal(resp.Body(), &se.Domain); jerr != nil {
				se.Domain.Message = truncate(string(resp.Body()), 512)
			}
			if !shouldRetryStatus(status) {
				return se
			}
			lastErr = se
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
