package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/domain/model"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	quali := time.Date(2025, 3, 15, 5, 0, 0, 0, time.UTC)
	race := model.Race{
		ID:          "aus",
		Season:      2025,
		Round:       1,
		Name:        "Australian Grand Prix",
		Status:      model.RaceUpcoming,
		QualiLockAt: &quali,
		RaceStartAt: quali.Add(24 * time.Hour),
	}
	pred := model.Prediction{
		ID:      "p1",
		UserID:  "u1",
		RaceID:  "aus",
		Session: model.SessionRace,
		Picks:   []string{"VER", "NOR", "LEC", "HAM", "RUS"},
	}

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.PutRace(race); err != nil {
			return err
		}
		return tx.PutPrediction(pred)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.View(ctx, func(tx Tx) error {
		got, err := tx.GetRace("aus")
		if err != nil {
			return err
		}
		if got.Name != race.Name || got.QualiLockAt == nil || !got.QualiLockAt.Equal(quali) {
			t.Errorf("race mismatch: %+v", got)
		}
		p, err := tx.GetPrediction("u1", "aus", model.SessionRace)
		if err != nil {
			return err
		}
		if len(p.Picks) != 5 || p.Picks[0] != "VER" {
			t.Errorf("prediction mismatch: %+v", p)
		}
		if _, err := tx.GetPrediction("u1", "aus", model.SessionQuali); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestBadgerStore_PutOverwritesByKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, points := range []int{13, 21} {
		err := s.Update(ctx, func(tx Tx) error {
			return tx.PutScore(model.Score{ID: "s1", UserID: "u1", RaceID: "aus", Session: model.SessionRace, Points: points})
		})
		if err != nil {
			t.Fatalf("put score: %v", err)
		}
	}

	_ = s.View(ctx, func(tx Tx) error {
		scores, err := tx.ListScores("aus")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(scores) != 1 || scores[0].Points != 21 {
			t.Errorf("expected a single overwritten row, got %+v", scores)
		}
		return nil
	})
}

func TestBadgerStore_ListPrefixes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Update(ctx, func(tx Tx) error {
		for _, sc := range []model.Score{
			{UserID: "u1", RaceID: "r1", Session: model.SessionRace, Points: 1},
			{UserID: "u2", RaceID: "r1", Session: model.SessionQuali, Points: 2},
			{UserID: "u1", RaceID: "r10", Session: model.SessionRace, Points: 4},
		} {
			if err := tx.PutScore(sc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		r1, _ := tx.ListScores("r1")
		if len(r1) != 2 {
			t.Errorf("expected 2 scores for r1, got %d", len(r1))
		}
		all, _ := tx.ListScores("")
		if len(all) != 3 {
			t.Errorf("expected 3 scores overall, got %d", len(all))
		}
		return nil
	})

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["score"] != 3 || counts["race"] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestBadgerStore_UniqueIndexes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	put := func(fn func(tx Tx) error) error { return s.Update(ctx, fn) }

	if err := put(func(tx Tx) error { return tx.PutDriver(model.Driver{ID: "ver", Code: "VER"}) }); err != nil {
		t.Fatalf("put driver: %v", err)
	}
	err := put(func(tx Tx) error { return tx.PutDriver(model.Driver{ID: "ver2", Code: "VER"}) })
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate code, got %v", err)
	}
	// Re-putting the same driver keeps its own index entry.
	if err := put(func(tx Tx) error { return tx.PutDriver(model.Driver{ID: "ver", Code: "VER", Name: "Max"}) }); err != nil {
		t.Errorf("re-put driver: %v", err)
	}
	// Renaming the code frees the old one.
	if err := put(func(tx Tx) error { return tx.PutDriver(model.Driver{ID: "ver", Code: "MAX"}) }); err != nil {
		t.Fatalf("rename code: %v", err)
	}
	if err := put(func(tx Tx) error { return tx.PutDriver(model.Driver{ID: "ver2", Code: "VER"}) }); err != nil {
		t.Errorf("expected freed code to be reusable, got %v", err)
	}

	if err := put(func(tx Tx) error { return tx.PutRace(model.Race{ID: "a", Season: 2025, Round: 1}) }); err != nil {
		t.Fatalf("put race: %v", err)
	}
	err = put(func(tx Tx) error { return tx.PutRace(model.Race{ID: "b", Season: 2025, Round: 1}) })
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate round, got %v", err)
	}
	if err := put(func(tx Tx) error { return tx.PutRace(model.Race{ID: "b", Season: 2026, Round: 1}) }); err != nil {
		t.Errorf("same round in another season should be accepted: %v", err)
	}

	if err := put(func(tx Tx) error {
		return tx.PutMatchup(model.Matchup{ID: "m1", Season: 2025, Team: "mclaren", DriverA: "NOR", DriverB: "PIA"})
	}); err != nil {
		t.Fatalf("put matchup: %v", err)
	}
	err = put(func(tx Tx) error {
		return tx.PutMatchup(model.Matchup{ID: "m2", Season: 2025, Team: "mclaren"})
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate team, got %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		ms, _ := tx.ListMatchups(2025)
		if len(ms) != 1 {
			t.Errorf("expected 1 matchup in 2025, got %d", len(ms))
		}
		ms, _ = tx.ListMatchups(2024)
		if len(ms) != 0 {
			t.Errorf("expected none in 2024, got %d", len(ms))
		}
		return nil
	})
}

func TestBadgerStore_FailedUpdateWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.PutResult(model.Result{RaceID: "r1", Session: model.SessionRace, Classification: []string{"VER"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		if _, err := tx.GetResult("r1", model.SessionRace); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected rollback, got %v", err)
		}
		return nil
	})
}

func TestBadgerStore_H2HRows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.Update(ctx, func(tx Tx) error {
		if err := tx.PutH2HPrediction(model.H2HPrediction{UserID: "u1", RaceID: "r1", Session: model.SessionRace, MatchupID: "m1", WinnerID: "VER"}); err != nil {
			return err
		}
		if err := tx.PutH2HResult(model.H2HResult{RaceID: "r1", Session: model.SessionRace, MatchupID: "m1", WinnerID: "VER"}); err != nil {
			return err
		}
		return tx.PutH2HScore(model.H2HScore{UserID: "u1", RaceID: "r1", Session: model.SessionRace, CorrectPicks: 1, TotalPicks: 1, Points: 1})
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = s.Update(ctx, func(tx Tx) error {
		return tx.DeleteH2HResult("r1", model.SessionRace, "m1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	_ = s.View(ctx, func(tx Tx) error {
		preds, _ := tx.ListH2HPredictions("r1", model.SessionRace)
		if len(preds) != 1 {
			t.Errorf("expected 1 h2h prediction, got %d", len(preds))
		}
		res, _ := tx.ListH2HResults("r1", model.SessionRace)
		if len(res) != 0 {
			t.Errorf("expected deleted h2h result, got %d", len(res))
		}
		scores, _ := tx.ListH2HScores("")
		if len(scores) != 1 || scores[0].Points != 1 {
			t.Errorf("unexpected h2h scores: %+v", scores)
		}
		return nil
	})
}

func TestBuildKey_RejectsSeparators(t *testing.T) {
	if _, err := buildKey(userEntity, "a/b"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := buildKey(userEntity, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty part, got %v", err)
	}
}
