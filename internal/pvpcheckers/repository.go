package pvpcheckers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-checkers/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkers_games (
	match_id      TEXT PRIMARY KEY,
	light_id      TEXT NOT NULL,
	light_name    TEXT NOT NULL DEFAULT '',
	dark_id       TEXT NOT NULL,
	dark_name     TEXT NOT NULL DEFAULT '',
	origin_room   TEXT NOT NULL DEFAULT '',
	resolve_room  TEXT NOT NULL DEFAULT '',
	result        TEXT NOT NULL DEFAULT '',
	result_method TEXT NOT NULL DEFAULT '',
	moves         JSONB NOT NULL DEFAULT '[]'::jsonb,
	pdn           TEXT NOT NULL DEFAULT '',
	light_left    INTEGER NOT NULL DEFAULT 0,
	dark_left     INTEGER NOT NULL DEFAULT 0,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL DEFAULT 0
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the archive table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create checkers_games: %w", err)
	}
	return nil
}

// SaveResult upserts the final state of mt.
func (r *Repository) SaveResult(ctx context.Context, mt *Match, method string) error {
	if r == nil || r.db == nil || mt == nil {
		return nil
	}
	res := toResult(mt, method)
	moves, err := json.Marshal(res.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `INSERT INTO checkers_games (
		match_id, light_id, light_name, dark_id, dark_name,
		origin_room, resolve_room, result, result_method,
		moves, pdn, light_left, dark_left,
		started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11,$12,$13,$14,$15,$16
	) ON CONFLICT (match_id) DO UPDATE SET
		result=EXCLUDED.result,
		result_method=EXCLUDED.result_method,
		moves=EXCLUDED.moves,
		pdn=EXCLUDED.pdn,
		light_left=EXCLUDED.light_left,
		dark_left=EXCLUDED.dark_left,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		res.MatchID,
		res.LightID, res.LightName,
		res.DarkID, res.DarkName,
		res.OriginRoom, res.ResolveRoom,
		res.Result, res.ResultMethod,
		string(moves), res.PDN,
		res.LightLeft, res.DarkLeft,
		res.StartedAt, res.EndedAt, res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert checkers game: %w", err)
	}
	return nil
}

// RecentResults lists archived matches userID played, newest first.
func (r *Repository) RecentResults(ctx context.Context, userID string, limit int) ([]*domain.CheckersResult, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT
		match_id, light_id, light_name, dark_id, dark_name,
		origin_room, resolve_room, result, result_method,
		moves, pdn, light_left, dark_left,
		started_at, ended_at, duration_ms
	FROM checkers_games
	WHERE light_id = $1 OR dark_id = $1
	ORDER BY ended_at DESC
	LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select checkers games: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.CheckersResult, 0, limit)
	for rows.Next() {
		var (
			res        domain.CheckersResult
			movesJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&res.MatchID, &res.LightID, &res.LightName, &res.DarkID, &res.DarkName,
			&res.OriginRoom, &res.ResolveRoom, &res.Result, &res.ResultMethod,
			&movesJSON, &res.PDN, &res.LightLeft, &res.DarkLeft,
			&res.StartedAt, &res.EndedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan checkers game: %w", err)
		}
		if durationMS.Valid {
			res.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		if err := json.Unmarshal(movesJSON, &res.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}

// toResult maps a match onto its archive record.
func toResult(mt *Match, method string) *domain.CheckersResult {
	result := strings.TrimSpace(mt.Outcome)
	if result == "resign" {
		switch mt.Winner {
		case mt.LightID:
			result = string(Light)
		case mt.DarkID:
			result = string(Dark)
		default:
			result = ""
		}
	}
	duration := mt.UpdatedAt.Sub(mt.CreatedAt)
	if duration < 0 {
		duration = 0
	}
	return &domain.CheckersResult{
		MatchID:      mt.ID,
		LightID:      mt.LightID,
		LightName:    mt.LightName,
		DarkID:       mt.DarkID,
		DarkName:     mt.DarkName,
		OriginRoom:   mt.OriginRoom,
		ResolveRoom:  mt.ResolveRoom,
		Result:       result,
		ResultMethod: strings.TrimSpace(method),
		Moves:        append([]string(nil), mt.Moves...),
		PDN:          buildPDN(mt, mapResultToPDN(result), method),
		LightLeft:    mt.LightLeft,
		DarkLeft:     mt.DarkLeft,
		StartedAt:    mt.CreatedAt,
		EndedAt:      mt.UpdatedAt,
		Duration:     duration,
	}
}

// Light moves first, so it takes the "first player" slot in results.
func mapResultToPDN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case string(Light):
		return "1-0"
	case string(Dark):
		return "0-1"
	default:
		return "*"
	}
}

// buildPDN renders a portable draughts notation record. Consecutive jumps by
// the same piece are folded into one numbered half-move.
func buildPDN(mt *Match, pdnResult, method string) string {
	if mt == nil {
		return ""
	}
	var b strings.Builder
	date := mt.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Checkers PvP\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePDN(mt.LightName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePDN(mt.DarkName)))
	b.WriteString("[GameType \"21\"]\n")
	if strings.TrimSpace(method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePDN(strings.ToLower(method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pdnResult))

	turns := foldChains(mt.Moves)
	for i := 0; i < len(turns); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, turns[i]))
		if i+1 < len(turns) {
			b.WriteString(" ")
			b.WriteString(turns[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(pdnResult)
	return b.String()
}

// foldChains merges "c3xe5","e5xg7" into "c3xe5xg7".
func foldChains(moves []string) []string {
	var out []string
	for _, mv := range moves {
		mv = strings.TrimSpace(mv)
		if n := len(out); n > 0 && strings.Contains(mv, "x") && len(mv) == 5 {
			last := out[n-1]
			if strings.Contains(last, "x") && strings.HasSuffix(last, mv[:2]) {
				out[n-1] = last + mv[2:]
				continue
			}
		}
		out = append(out, mv)
	}
	return out
}

func sanitizePDN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
