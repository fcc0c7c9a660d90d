package model

import "time"

// RaceStatus is the stored lifecycle status of a race.
type RaceStatus string

// Race statuses. RaceLocked is never stored; it is derived from the clock.
const (
	RaceUpcoming RaceStatus = "upcoming"
	RaceLocked   RaceStatus = "locked"
	RaceFinished RaceStatus = "finished"
)

// Race is one weekend of a season with per-session lock times.
type Race struct {
	ID        string     `json:"id" msgpack:"id"`
	Season    int        `json:"season" msgpack:"season"`
	Round     int        `json:"round" msgpack:"round"`
	Name      string     `json:"name" msgpack:"name"`
	HasSprint bool       `json:"has_sprint" msgpack:"has_sprint"`
	Status    RaceStatus `json:"status" msgpack:"status"`

	QualiLockAt       *time.Time `json:"quali_lock_at,omitempty" msgpack:"quali_lock_at"`
	SprintQualiLockAt *time.Time `json:"sprint_quali_lock_at,omitempty" msgpack:"sprint_quali_lock_at"`
	SprintLockAt      *time.Time `json:"sprint_lock_at,omitempty" msgpack:"sprint_lock_at"`
	RaceStartAt       time.Time  `json:"race_start_at" msgpack:"race_start_at"`
}

// LockAt returns the lock time of a session, or false when the session has none.
func (r Race) LockAt(s SessionType) (time.Time, bool) {
	var at *time.Time
	switch s {
	case SessionQuali:
		at = r.QualiLockAt
	case SessionSprintQuali:
		at = r.SprintQualiLockAt
	case SessionSprint:
		at = r.SprintLockAt
	case SessionRace:
		return r.RaceStartAt, true
	default:
		return time.Time{}, false
	}
	if at == nil {
		return time.Time{}, false
	}
	return *at, true
}

// Sessions returns the sessions held on this weekend, in canonical order.
func (r Race) Sessions() []SessionType {
	if r.HasSprint {
		return AllSessions()
	}
	return []SessionType{SessionQuali, SessionRace}
}

// HasSession reports whether s is held on this weekend.
func (r Race) HasSession(s SessionType) bool {
	for _, held := range r.Sessions() {
		if held == s {
			return true
		}
	}
	return false
}

// Finished reports whether race results have been published.
func (r Race) Finished() bool { return r.Status == RaceFinished }

// EffectiveStatus derives the lifecycle status at now.
func (r Race) EffectiveStatus(now time.Time) RaceStatus {
	switch {
	case r.Finished():
		return RaceFinished
	case !now.Before(r.RaceStartAt):
		return RaceLocked
	default:
		return RaceUpcoming
	}
}
