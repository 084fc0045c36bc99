package domain

import "time"

// CheckersResult is the archived outcome of a finished match.
type CheckersResult struct {
	MatchID      string
	LightID      string
	LightName    string
	DarkID       string
	DarkName     string
	OriginRoom   string
	ResolveRoom  string
	Result       string // light | dark | "" when undecided
	ResultMethod string
	Moves        []string
	PDN          string
	LightLeft    int
	DarkLeft     int
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
}
