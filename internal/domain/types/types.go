// Package types contains the request and response records exchanged between
// the service and its callers.
package types

import (
	"time"

	"github.com/okian/gridpick/internal/domain/leaderboard"
	"github.com/okian/gridpick/internal/domain/model"
)

// SubmitReceipt acknowledges a top-5 submission. PredictionID is the row of
// the first session written, in canonical session order.
type SubmitReceipt struct {
	PredictionID string              `json:"prediction_id"`
	Sessions     []model.SessionType `json:"sessions"`
	Skipped      []model.SessionType `json:"skipped,omitempty"`
}

// H2HPick is one predicted matchup winner.
type H2HPick struct {
	MatchupID string `json:"matchup_id"`
	WinnerID  string `json:"winner_id"`
}

// H2HReceipt acknowledges a head-to-head submission.
type H2HReceipt struct {
	OK           bool                `json:"ok"`
	UpdatedCount int                 `json:"updated_count"`
	Sessions     []model.SessionType `json:"sessions"`
	Skipped      []model.SessionType `json:"skipped,omitempty"`
}

// PublishReport summarises one result publication.
type PublishReport struct {
	OK             bool              `json:"ok"`
	RaceID         string            `json:"race_id"`
	Session        model.SessionType `json:"session"`
	PublicationID  string            `json:"publication_id"`
	ScoredCount    int               `json:"scored_count"`
	H2HScoredCount int               `json:"h2h_scored_count"`
	H2HResolved    int               `json:"h2h_resolved"`
	RaceFinished   bool              `json:"race_finished"`
}

// BoardStatus tells whether a race board may be shown.
type BoardStatus string

const (
	BoardVisible BoardStatus = "visible"
	BoardLocked  BoardStatus = "locked"
)

// Reasons a race board is locked.
const (
	ReasonNotAuthenticated = "not_authenticated"
	ReasonPredictFirst     = "predict_first"
)

// RaceBoard is the per-race leaderboard after the blind rule is applied.
type RaceBoard struct {
	RaceID  string              `json:"race_id"`
	Status  BoardStatus         `json:"status"`
	Reason  string              `json:"reason,omitempty"`
	Entries []leaderboard.Entry `json:"entries"`
}

// LeaderboardQuery selects a page of a season board. Limit 0 means the
// default limit; Season 0 means every season.
type LeaderboardQuery struct {
	ViewerID string
	Limit    int
	Offset   int
	Season   int
}

// ScoredPick is a breakdown line enriched with driver display data.
type ScoredPick struct {
	model.PickScore
	DriverCode string `json:"driver_code"`
	DriverName string `json:"driver_name"`
	Team       string `json:"team"`
}

// ScoreView is a user's score for one session of a race.
type ScoreView struct {
	RaceID     string            `json:"race_id"`
	Session    model.SessionType `json:"session"`
	Points     int               `json:"points"`
	Breakdown  []ScoredPick      `json:"breakdown"`
	ComputedAt time.Time         `json:"computed_at"`
}

// NextRace is the single race accepting predictions, with its open sessions.
type NextRace struct {
	model.Race
	OpenSessions []model.SessionType `json:"open_sessions"`
}

// RescoreReport summarises a season rescore.
type RescoreReport struct {
	Season    int `json:"season"`
	Sessions  int `json:"sessions"`
	Scored    int `json:"scored"`
	H2HScored int `json:"h2h_scored"`
	Failed    int `json:"failed"`
}
