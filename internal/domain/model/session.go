// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// SessionType is a scoreable sub-event of a race weekend.
type SessionType string

// The closed set of session types. Canonical order is the declaration order.
const (
	SessionQuali       SessionType = "quali"
	SessionSprintQuali SessionType = "sprint-quali"
	SessionSprint      SessionType = "sprint"
	SessionRace        SessionType = "race"
)

// AllSessions lists every session type in canonical order.
func AllSessions() []SessionType {
	return []SessionType{SessionQuali, SessionSprintQuali, SessionSprint, SessionRace}
}

// Valid reports whether s is one of the four known session types.
func (s SessionType) Valid() bool {
	switch s {
	case SessionQuali, SessionSprintQuali, SessionSprint, SessionRace:
		return true
	default:
		return false
	}
}

// Sprint reports whether the session only exists on sprint weekends.
func (s SessionType) Sprint() bool {
	switch s {
	case SessionSprintQuali, SessionSprint:
		return true
	case SessionQuali, SessionRace:
		return false
	default:
		return false
	}
}

func (s SessionType) String() string { return string(s) }

// ParseSession parses a session name. The empty string yields the empty
// SessionType, which callers treat as "no explicit session".
func ParseSession(v string) (SessionType, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", nil
	}
	// Accept the underscore spelling used by some clients.
	s := SessionType(strings.ReplaceAll(v, "_", "-"))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSession, v)
	}
	return s, nil
}

// SessionRef addresses one session of one race.
type SessionRef struct {
	RaceID  string
	Session SessionType
}
