package model

import "time"

// Matchup pairs two teammates for a season.
type Matchup struct {
	ID      string `json:"id" msgpack:"id"`
	Season  int    `json:"season" msgpack:"season"`
	Team    string `json:"team" msgpack:"team"`
	DriverA string `json:"driver_a" msgpack:"driver_a"`
	DriverB string `json:"driver_b" msgpack:"driver_b"`
}

// Has reports whether driverID is one of the two teammates.
func (m Matchup) Has(driverID string) bool {
	return driverID != "" && (driverID == m.DriverA || driverID == m.DriverB)
}

// H2HPrediction is a user's predicted winner of one matchup in one session.
type H2HPrediction struct {
	ID          string      `json:"id" msgpack:"id"`
	UserID      string      `json:"user_id" msgpack:"user_id"`
	RaceID      string      `json:"race_id" msgpack:"race_id"`
	Session     SessionType `json:"session" msgpack:"session"`
	MatchupID   string      `json:"matchup_id" msgpack:"matchup_id"`
	WinnerID    string      `json:"winner_id" msgpack:"winner_id"`
	SubmittedAt time.Time   `json:"submitted_at" msgpack:"submitted_at"`
	UpdatedAt   time.Time   `json:"updated_at" msgpack:"updated_at"`
}

// H2HResult is the resolved winner of one matchup in one session.
type H2HResult struct {
	ID         string      `json:"id" msgpack:"id"`
	RaceID     string      `json:"race_id" msgpack:"race_id"`
	Session    SessionType `json:"session" msgpack:"session"`
	MatchupID  string      `json:"matchup_id" msgpack:"matchup_id"`
	WinnerID   string      `json:"winner_id" msgpack:"winner_id"`
	ResolvedAt time.Time   `json:"resolved_at" msgpack:"resolved_at"`
}

// H2HScore aggregates a user's head-to-head picks for one session.
// Points always equals CorrectPicks.
type H2HScore struct {
	ID           string      `json:"id" msgpack:"id"`
	UserID       string      `json:"user_id" msgpack:"user_id"`
	RaceID       string      `json:"race_id" msgpack:"race_id"`
	Session      SessionType `json:"session" msgpack:"session"`
	CorrectPicks int         `json:"correct_picks" msgpack:"correct_picks"`
	TotalPicks   int         `json:"total_picks" msgpack:"total_picks"`
	Points       int         `json:"points" msgpack:"points"`
	ComputedAt   time.Time   `json:"computed_at" msgpack:"computed_at"`
}
