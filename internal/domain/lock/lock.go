// Package lock decides whether a race and its sessions still accept predictions.
package lock

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/gridpick/internal/domain/model"
)

// Open reports whether session s of race still accepts submissions at now.
// A session without a lock time never locks on its own.
func Open(race model.Race, s model.SessionType, now time.Time) bool {
	at, ok := race.LockAt(s)
	if !ok {
		return true
	}
	return now.Before(at)
}

// NextRace returns the single race accepting predictions: the unfinished race
// with the earliest start strictly after now. Equal start times fall back to
// season, round, then id.
func NextRace(races []model.Race, now time.Time) (model.Race, bool) {
	candidates := make([]model.Race, 0, len(races))
	for _, r := range races {
		if r.Finished() || !r.RaceStartAt.After(now) {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return model.Race{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.RaceStartAt.Equal(b.RaceStartAt) {
			return a.RaceStartAt.Before(b.RaceStartAt)
		}
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.ID < b.ID
	})
	return candidates[0], true
}

// IsNextRace reports whether raceID is the race returned by NextRace.
func IsNextRace(races []model.Race, raceID string, now time.Time) bool {
	next, ok := NextRace(races, now)
	return ok && next.ID == raceID
}

// Plan lists the sessions a submission writes to and the ones it skipped.
type Plan struct {
	Sessions []model.SessionType
	Skipped  []model.SessionType
	Cascade  bool
}

// Resolve turns a requested session into a Plan. An empty request cascades
// over every session of the weekend and skips locked ones; an explicit
// request fails when its session is locked.
func Resolve(race model.Race, requested model.SessionType, now time.Time) (Plan, error) {
	if requested != "" {
		if !requested.Valid() {
			return Plan{}, fmt.Errorf("%w: %q", model.ErrInvalidSession, requested)
		}
		if !race.HasSession(requested) {
			return Plan{}, fmt.Errorf("%w: %s", model.ErrSessionUnavailable, requested)
		}
		if !Open(race, requested, now) {
			return Plan{}, fmt.Errorf("%w: %s", model.ErrSessionLocked, requested)
		}
		return Plan{Sessions: []model.SessionType{requested}}, nil
	}

	plan := Plan{Cascade: true}
	for _, s := range race.Sessions() {
		if Open(race, s, now) {
			plan.Sessions = append(plan.Sessions, s)
		} else {
			plan.Skipped = append(plan.Skipped, s)
		}
	}
	if len(plan.Sessions) == 0 {
		return Plan{}, model.ErrAllSessionsLocked
	}
	return plan, nil
}
