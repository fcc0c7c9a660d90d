// Package leaderboard reduces score rows into ranked standings.
//
// Ordering: points DESC, then user id ASC. Rank is the 1-based position in
// that order, so tied users receive distinct consecutive ranks.
package leaderboard

import "sort"

// Row is one score row feeding the aggregation. Correct and Total are only
// set for head-to-head rows.
type Row struct {
	UserID  string
	Points  int
	Correct int
	Total   int
}

// Entry represents a leaderboard row.
type Entry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Points       int    `json:"points"`
	RaceCount    int    `json:"race_count"`
	CorrectPicks int    `json:"correct_picks,omitempty"`
	TotalPicks   int    `json:"total_picks,omitempty"`
}

// Page is one slice of a board plus the viewer's own standing.
type Page struct {
	Entries    []Entry `json:"entries"`
	TotalCount int     `json:"total_count"`
	HasMore    bool    `json:"has_more"`
	Viewer     *Entry  `json:"viewer_entry,omitempty"`
}

// Board is an immutable ranked standings table.
type Board struct {
	entries []Entry
	rankOf  map[string]int
}

// Build sums points and counts rows per user, then ranks.
func Build(rows []Row) *Board {
	byUser := make(map[string]*Entry)
	for _, r := range rows {
		e, ok := byUser[r.UserID]
		if !ok {
			e = &Entry{UserID: r.UserID}
			byUser[r.UserID] = e
		}
		e.Points += r.Points
		e.RaceCount++
		e.CorrectPicks += r.Correct
		e.TotalPicks += r.Total
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})

	b := &Board{entries: entries, rankOf: make(map[string]int, len(entries))}
	for i := range b.entries {
		b.entries[i].Rank = i + 1
		b.rankOf[b.entries[i].UserID] = i
	}
	return b
}

// WithUsernames fills display names. Users without a name keep an empty one.
func (b *Board) WithUsernames(names map[string]string) *Board {
	for i := range b.entries {
		b.entries[i].Username = names[b.entries[i].UserID]
	}
	return b
}

// Len returns the number of ranked users.
func (b *Board) Len() int { return len(b.entries) }

// All returns every entry in rank order.
func (b *Board) All() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Rank returns the entry of userID.
func (b *Board) Rank(userID string) (Entry, bool) {
	i, ok := b.rankOf[userID]
	if !ok {
		return Entry{}, false
	}
	return b.entries[i], true
}

// Slice returns entries [offset, offset+limit) and whether more follow.
func (b *Board) Slice(limit, offset int) ([]Entry, bool) {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	if offset >= len(b.entries) {
		return []Entry{}, false
	}
	end := offset + limit
	if end > len(b.entries) {
		end = len(b.entries)
	}
	out := make([]Entry, end-offset)
	copy(out, b.entries[offset:end])
	return out, end < len(b.entries)
}

// View returns a page and the viewer's entry taken from the full board.
func (b *Board) View(viewerID string, limit, offset int) Page {
	entries, more := b.Slice(limit, offset)
	p := Page{Entries: entries, TotalCount: len(b.entries), HasMore: more}
	if viewerID != "" {
		if e, ok := b.Rank(viewerID); ok {
			p.Viewer = &e
		}
	}
	return p
}
