// Package h2h resolves teammate matchups from a classification and tallies
// head-to-head picks.
package h2h

import (
	"sort"

	"github.com/okian/gridpick/internal/domain/model"
)

// Winner returns the better-placed driver of the matchup. A driver missing
// from positions loses to a classified teammate. When neither is classified
// there is no winner.
func Winner(m model.Matchup, positions map[string]int) (string, bool) {
	a, aOK := positions[m.DriverA]
	b, bOK := positions[m.DriverB]
	switch {
	case aOK && bOK:
		if a < b {
			return m.DriverA, true
		}
		return m.DriverB, true
	case aOK:
		return m.DriverA, true
	case bOK:
		return m.DriverB, true
	default:
		return "", false
	}
}

// Resolve returns the winner per matchup id for every matchup with a winner.
func Resolve(matchups []model.Matchup, positions map[string]int) map[string]string {
	out := make(map[string]string, len(matchups))
	for _, m := range matchups {
		if winner, ok := Winner(m, positions); ok {
			out[m.ID] = winner
		}
	}
	return out
}

// Tally is one user's head-to-head outcome for a session.
type Tally struct {
	UserID  string
	Correct int
	Total   int
}

// Points equals the number of correct picks.
func (t Tally) Points() int { return t.Correct }

// Score groups predictions by user and counts correct picks against winners.
// Predictions on matchups without a winner count toward neither total.
// Every user with at least one prediction gets a tally, ordered by user id.
func Score(preds []model.H2HPrediction, winners map[string]string) []Tally {
	byUser := make(map[string]*Tally)
	for _, p := range preds {
		t, ok := byUser[p.UserID]
		if !ok {
			t = &Tally{UserID: p.UserID}
			byUser[p.UserID] = t
		}
		winner, resolved := winners[p.MatchupID]
		if !resolved {
			continue
		}
		t.Total++
		if p.WinnerID == winner {
			t.Correct++
		}
	}

	out := make([]Tally, 0, len(byUser))
	for _, t := range byUser {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
