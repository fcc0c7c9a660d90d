package model

import "errors"

// Error kinds surfaced to callers of the prediction game. Match with errors.Is.
var (
	ErrNotAuthenticated        = errors.New("not authenticated")
	ErrNotAdmin                = errors.New("admin privileges required")
	ErrRaceNotFound            = errors.New("race not found")
	ErrMatchupNotFound         = errors.New("matchup not found")
	ErrDriverNotFound          = errors.New("driver not found")
	ErrNotNextRace             = errors.New("race is not the next race")
	ErrInvalidPickCount        = errors.New("invalid pick count")
	ErrDuplicatePicks          = errors.New("duplicate picks")
	ErrInvalidMatchupWinner    = errors.New("winner is not part of the matchup")
	ErrMissingTop5Prediction   = errors.New("top-5 prediction required first")
	ErrSessionLocked           = errors.New("session locked")
	ErrAllSessionsLocked       = errors.New("all sessions locked")
	ErrSessionUnavailable      = errors.New("session not held on this weekend")
	ErrInvalidSession          = errors.New("invalid session type")
	ErrClassificationTooShort  = errors.New("classification too short")
	ErrDuplicateClassification = errors.New("classification lists a driver twice")
)

// KindInternal is reported for errors that are not one of the kinds above.
const KindInternal = "internal"

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotAuthenticated, "not_authenticated"},
	{ErrNotAdmin, "not_admin"},
	{ErrRaceNotFound, "race_not_found"},
	{ErrMatchupNotFound, "matchup_not_found"},
	{ErrDriverNotFound, "driver_not_found"},
	{ErrNotNextRace, "not_next_race"},
	{ErrInvalidPickCount, "invalid_pick_count"},
	{ErrDuplicatePicks, "duplicate_picks"},
	{ErrInvalidMatchupWinner, "invalid_matchup_winner"},
	{ErrMissingTop5Prediction, "missing_top5_prediction"},
	{ErrSessionLocked, "session_locked"},
	{ErrAllSessionsLocked, "all_sessions_locked"},
	{ErrSessionUnavailable, "session_unavailable"},
	{ErrInvalidSession, "invalid_session"},
	{ErrClassificationTooShort, "classification_too_short"},
	{ErrDuplicateClassification, "duplicate_classification"},
}

// Kind returns the stable snake_case name of err's kind, or KindInternal.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
