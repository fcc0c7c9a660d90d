package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/pkg/metrics"
)

// BadgerStore implements Store on an embedded badger database. Values are
// msgpack-encoded; keys follow the layout in keys.go.
type BadgerStore struct {
	db         *badger.DB
	badgerOpts *badger.Options
	maxRetries int
}

// Open opens (or creates) a store in dir. An empty dir keeps everything in memory.
func Open(dir string, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}

	bo := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		bo = bo.WithInMemory(true)
	}
	if s.badgerOpts != nil {
		bo = *s.badgerOpts
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db
	return s, nil
}

// OpenInMemory opens a throwaway in-memory store.
func OpenInMemory(opts ...Option) (*BadgerStore, error) {
	return Open("", opts...)
}

// View runs fn in a read-only transaction.
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("view", sinceMs(start)) }()

	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Update runs fn in a read-write transaction. fn may run more than once when
// a concurrent writer commits first, so it must not leak state between runs.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("update", sinceMs(start)) }()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		metrics.RecordStoreConflict()
		if attempt >= s.maxRetries {
			return fmt.Errorf("update after %d attempts: %w", attempt, err)
		}
	}
}

// Counts returns the number of rows per entity kind.
func (s *BadgerStore) Counts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(countedEntities))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, entity := range countedEntities {
			pfx, _ := prefix(entity)
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = pfx

			it := txn.NewIterator(opts)
			n := 0
			for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
				n++
			}
			it.Close()
			out[entity] = n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// badgerTx implements Tx on a single badger transaction.
type badgerTx struct {
	txn *badger.Txn
}

func get[T any](txn *badger.Txn, key []byte) (T, error) {
	var out T
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return out, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return out, fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return msgpack.Unmarshal(val, &out)
	}); err != nil {
		return out, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func getKey[T any](txn *badger.Txn, entity string, parts ...string) (T, error) {
	key, err := buildKey(entity, parts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return get[T](txn, key)
}

func put(txn *badger.Txn, key []byte, v any) error {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := txn.Set(key, buf); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func putKey(txn *badger.Txn, v any, entity string, parts ...string) error {
	key, err := buildKey(entity, parts...)
	if err != nil {
		return err
	}
	return put(txn, key, v)
}

func list[T any](txn *badger.Txn, entity string, parts ...string) ([]T, error) {
	pfx, err := prefix(entity, parts...)
	if err != nil {
		return nil, err
	}
	opts := badger.DefaultIteratorOptions
	opts.Prefix = pfx
	it := txn.NewIterator(opts)
	defer it.Close()

	var out []T
	for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// reindex moves a unique index entry from oldParts to newParts for id.
// It fails with ErrConflict when newParts already belongs to another id.
func reindex(txn *badger.Txn, index, id string, oldParts, newParts []string) error {
	newKey, err := buildKey(index, newParts...)
	if err != nil {
		return err
	}
	owner, err := get[string](txn, newKey)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return err
	case owner != id:
		return fmt.Errorf("%s %v owned by %s: %w", index, newParts, owner, ErrConflict)
	}

	if oldParts != nil {
		oldKey, err := buildKey(index, oldParts...)
		if err == nil && string(oldKey) != string(newKey) {
			if err := txn.Delete(oldKey); err != nil {
				return fmt.Errorf("delete %s: %w", oldKey, err)
			}
		}
	}
	return put(txn, newKey, id)
}

// previous returns the stored row at key, or ok=false when there is none.
func previous[T any](txn *badger.Txn, entity, id string) (prev T, ok bool, err error) {
	prev, err = getKey[T](txn, entity, id)
	if errors.Is(err, ErrNotFound) {
		return prev, false, nil
	}
	return prev, err == nil, err
}

// Users.

func (t *badgerTx) GetUser(id string) (model.User, error) {
	return getKey[model.User](t.txn, userEntity, id)
}

func (t *badgerTx) PutUser(u model.User) error {
	return putKey(t.txn, u, userEntity, u.ID)
}

func (t *badgerTx) ListUsers() ([]model.User, error) {
	return list[model.User](t.txn, userEntity)
}

// Drivers.

func (t *badgerTx) GetDriver(id string) (model.Driver, error) {
	return getKey[model.Driver](t.txn, driverEntity, id)
}

func (t *badgerTx) PutDriver(d model.Driver) error {
	prev, ok, err := previous[model.Driver](t.txn, driverEntity, d.ID)
	if err != nil {
		return err
	}
	var old []string
	if ok {
		old = []string{prev.Code}
	}
	if err := reindex(t.txn, driverCodeIndex, d.ID, old, []string{d.Code}); err != nil {
		return err
	}
	return putKey(t.txn, d, driverEntity, d.ID)
}

func (t *badgerTx) ListDrivers() ([]model.Driver, error) {
	return list[model.Driver](t.txn, driverEntity)
}

// Races.

func (t *badgerTx) GetRace(id string) (model.Race, error) {
	return getKey[model.Race](t.txn, raceEntity, id)
}

func (t *badgerTx) PutRace(r model.Race) error {
	prev, ok, err := previous[model.Race](t.txn, raceEntity, r.ID)
	if err != nil {
		return err
	}
	var old []string
	if ok {
		old = []string{intPart(prev.Season), intPart(prev.Round)}
	}
	if err := reindex(t.txn, raceRoundIndex, r.ID, old, []string{intPart(r.Season), intPart(r.Round)}); err != nil {
		return err
	}
	return putKey(t.txn, r, raceEntity, r.ID)
}

func (t *badgerTx) ListRaces() ([]model.Race, error) {
	return list[model.Race](t.txn, raceEntity)
}

// Predictions.

func (t *badgerTx) GetPrediction(userID, raceID string, s model.SessionType) (model.Prediction, error) {
	return getKey[model.Prediction](t.txn, predEntity, raceID, sessionPart(s), userID)
}

func (t *badgerTx) PutPrediction(p model.Prediction) error {
	return putKey(t.txn, p, predEntity, p.RaceID, sessionPart(p.Session), p.UserID)
}

func (t *badgerTx) ListPredictions(raceID string, s model.SessionType) ([]model.Prediction, error) {
	return list[model.Prediction](t.txn, predEntity, raceID, sessionPart(s))
}

// Results.

func (t *badgerTx) GetResult(raceID string, s model.SessionType) (model.Result, error) {
	return getKey[model.Result](t.txn, resultEntity, raceID, sessionPart(s))
}

func (t *badgerTx) PutResult(r model.Result) error {
	return putKey(t.txn, r, resultEntity, r.RaceID, sessionPart(r.Session))
}

func (t *badgerTx) ListResults() ([]model.Result, error) {
	return list[model.Result](t.txn, resultEntity)
}

// Scores.

func (t *badgerTx) GetScore(userID, raceID string, s model.SessionType) (model.Score, error) {
	return getKey[model.Score](t.txn, scoreEntity, raceID, sessionPart(s), userID)
}

func (t *badgerTx) PutScore(sc model.Score) error {
	return putKey(t.txn, sc, scoreEntity, sc.RaceID, sessionPart(sc.Session), sc.UserID)
}

func (t *badgerTx) ListScores(raceID string) ([]model.Score, error) {
	if raceID == "" {
		return list[model.Score](t.txn, scoreEntity)
	}
	return list[model.Score](t.txn, scoreEntity, raceID)
}

// Matchups.

func (t *badgerTx) GetMatchup(id string) (model.Matchup, error) {
	return getKey[model.Matchup](t.txn, matchupEntity, id)
}

func (t *badgerTx) PutMatchup(m model.Matchup) error {
	prev, ok, err := previous[model.Matchup](t.txn, matchupEntity, m.ID)
	if err != nil {
		return err
	}
	var old []string
	if ok {
		old = []string{intPart(prev.Season), prev.Team}
	}
	if err := reindex(t.txn, matchupTeamIndex, m.ID, old, []string{intPart(m.Season), m.Team}); err != nil {
		return err
	}
	return putKey(t.txn, m, matchupEntity, m.ID)
}

func (t *badgerTx) ListMatchups(season int) ([]model.Matchup, error) {
	all, err := list[model.Matchup](t.txn, matchupEntity)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.Season == season {
			out = append(out, m)
		}
	}
	return out, nil
}

// Head-to-head predictions.

func (t *badgerTx) GetH2HPrediction(userID, raceID string, s model.SessionType, matchupID string) (model.H2HPrediction, error) {
	return getKey[model.H2HPrediction](t.txn, h2hPredEntity, raceID, sessionPart(s), userID, matchupID)
}

func (t *badgerTx) PutH2HPrediction(p model.H2HPrediction) error {
	return putKey(t.txn, p, h2hPredEntity, p.RaceID, sessionPart(p.Session), p.UserID, p.MatchupID)
}

func (t *badgerTx) ListH2HPredictions(raceID string, s model.SessionType) ([]model.H2HPrediction, error) {
	return list[model.H2HPrediction](t.txn, h2hPredEntity, raceID, sessionPart(s))
}

// Head-to-head results.

func (t *badgerTx) GetH2HResult(raceID string, s model.SessionType, matchupID string) (model.H2HResult, error) {
	return getKey[model.H2HResult](t.txn, h2hResEntity, raceID, sessionPart(s), matchupID)
}

func (t *badgerTx) PutH2HResult(r model.H2HResult) error {
	return putKey(t.txn, r, h2hResEntity, r.RaceID, sessionPart(r.Session), r.MatchupID)
}

func (t *badgerTx) DeleteH2HResult(raceID string, s model.SessionType, matchupID string) error {
	key, err := buildKey(h2hResEntity, raceID, sessionPart(s), matchupID)
	if err != nil {
		return err
	}
	if err := t.txn.Delete(key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (t *badgerTx) ListH2HResults(raceID string, s model.SessionType) ([]model.H2HResult, error) {
	return list[model.H2HResult](t.txn, h2hResEntity, raceID, sessionPart(s))
}

// Head-to-head scores.

func (t *badgerTx) GetH2HScore(userID, raceID string, s model.SessionType) (model.H2HScore, error) {
	return getKey[model.H2HScore](t.txn, h2hScoreEntity, raceID, sessionPart(s), userID)
}

func (t *badgerTx) PutH2HScore(sc model.H2HScore) error {
	return putKey(t.txn, sc, h2hScoreEntity, sc.RaceID, sessionPart(sc.Session), sc.UserID)
}

func (t *badgerTx) ListH2HScores(raceID string) ([]model.H2HScore, error) {
	if raceID == "" {
		return list[model.H2HScore](t.txn, h2hScoreEntity)
	}
	return list[model.H2HScore](t.txn, h2hScoreEntity, raceID)
}
