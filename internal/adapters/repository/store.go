// Package repository defines the entity store interface and its badger
// implementation.
package repository

import (
	"context"

	"github.com/okian/gridpick/internal/domain/model"
)

// Store runs logical operations as transactions. Reads inside Update see the
// transaction's own writes, and a failed fn leaves nothing behind.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a read-write transaction, retrying on write conflicts.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// Counts returns the number of rows per entity kind.
	Counts(ctx context.Context) (map[string]int, error)
	// Close releases the underlying database.
	Close() error
}

// Tx provides keyed access to every entity. Get methods return ErrNotFound
// for unknown keys. Put methods insert or overwrite the row at its key.
type Tx interface {
	GetUser(id string) (model.User, error)
	PutUser(u model.User) error
	ListUsers() ([]model.User, error)

	GetDriver(id string) (model.Driver, error)
	PutDriver(d model.Driver) error
	ListDrivers() ([]model.Driver, error)

	GetRace(id string) (model.Race, error)
	PutRace(r model.Race) error
	ListRaces() ([]model.Race, error)

	GetPrediction(userID, raceID string, s model.SessionType) (model.Prediction, error)
	PutPrediction(p model.Prediction) error
	ListPredictions(raceID string, s model.SessionType) ([]model.Prediction, error)

	GetResult(raceID string, s model.SessionType) (model.Result, error)
	PutResult(r model.Result) error
	ListResults() ([]model.Result, error)

	GetScore(userID, raceID string, s model.SessionType) (model.Score, error)
	PutScore(sc model.Score) error
	// ListScores lists the scores of one race, or of every race when raceID is empty.
	ListScores(raceID string) ([]model.Score, error)

	GetMatchup(id string) (model.Matchup, error)
	PutMatchup(m model.Matchup) error
	ListMatchups(season int) ([]model.Matchup, error)

	GetH2HPrediction(userID, raceID string, s model.SessionType, matchupID string) (model.H2HPrediction, error)
	PutH2HPrediction(p model.H2HPrediction) error
	ListH2HPredictions(raceID string, s model.SessionType) ([]model.H2HPrediction, error)

	GetH2HResult(raceID string, s model.SessionType, matchupID string) (model.H2HResult, error)
	PutH2HResult(r model.H2HResult) error
	DeleteH2HResult(raceID string, s model.SessionType, matchupID string) error
	ListH2HResults(raceID string, s model.SessionType) ([]model.H2HResult, error)

	GetH2HScore(userID, raceID string, s model.SessionType) (model.H2HScore, error)
	PutH2HScore(sc model.H2HScore) error
	// ListH2HScores lists the H2H scores of one race, or of every race when raceID is empty.
	ListH2HScores(raceID string) ([]model.H2HScore, error)
}
