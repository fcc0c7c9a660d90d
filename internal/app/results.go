package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/h2h"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// sessionTally counts what scoring one session wrote.
type sessionTally struct {
	scored    int
	h2hScored int
	resolved  int
}

// PublishResults stores the classification of one session and rescores
// everything that depends on it in the same transaction. An empty session
// means the race.
func (s *Service) PublishResults(ctx context.Context, adminID, raceID string, classification []string, session model.SessionType) (types.PublishReport, error) {
	store, err := s.ready()
	if err != nil {
		return types.PublishReport{}, err
	}
	if session == "" {
		session = model.SessionRace
	}
	fields := []logger.Field{
		logger.String("admin", adminID),
		logger.String("race", raceID),
		logger.String("session", session.String()),
	}

	start := time.Now()
	now := s.now()
	var report types.PublishReport
	err = store.Update(ctx, func(tx repository.Tx) error {
		if err := requireAdmin(tx, adminID); err != nil {
			return err
		}
		if !session.Valid() {
			return fmt.Errorf("%w: %q", model.ErrInvalidSession, session)
		}
		race, err := getRace(tx, raceID)
		if err != nil {
			return err
		}
		if !race.HasSession(session) {
			return fmt.Errorf("%w: %s", model.ErrSessionUnavailable, session)
		}
		if err := validateClassification(tx, classification); err != nil {
			return err
		}

		result, err := tx.GetResult(raceID, session)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			result = model.Result{ID: uuid.NewString(), RaceID: raceID, Session: session}
		case err != nil:
			return err
		}
		result.Classification = append([]string(nil), classification...)
		result.PublicationID = ksuid.New().String()
		result.PublishedAt = now
		if err := tx.PutResult(result); err != nil {
			return err
		}

		tally, err := s.scoreSession(tx, race, result, now)
		if err != nil {
			return err
		}
		finished, err := finishRace(tx, race, session)
		if err != nil {
			return err
		}

		report = types.PublishReport{
			OK:             true,
			RaceID:         raceID,
			Session:        session,
			PublicationID:  result.PublicationID,
			ScoredCount:    tally.scored,
			H2HScoredCount: tally.h2hScored,
			H2HResolved:    tally.resolved,
			RaceFinished:   finished || race.Finished(),
		}
		return nil
	})
	if err != nil {
		return types.PublishReport{}, s.fail(ctx, "publish_results", err, fields...)
	}

	metrics.RecordResultPublished(session.String())
	metrics.RecordScoresWritten(report.ScoredCount)
	metrics.RecordH2HScoresWritten(report.H2HScoredCount)
	metrics.RecordPublishLatency(float64(time.Since(start).Milliseconds()))
	s.logger.Info(ctx, "results published", append(fields,
		logger.String("publication", report.PublicationID),
		logger.Int("scored", report.ScoredCount),
		logger.Int("h2hScored", report.H2HScoredCount),
		logger.Int("h2hResolved", report.H2HResolved),
		logger.Bool("raceFinished", report.RaceFinished),
	)...)
	return report, nil
}

// scoreSession recomputes every score row that depends on result: top-5
// scores, H2H results and H2H scores.
func (s *Service) scoreSession(tx repository.Tx, race model.Race, result model.Result, now time.Time) (sessionTally, error) {
	var tally sessionTally

	preds, err := tx.ListPredictions(race.ID, result.Session)
	if err != nil {
		return tally, err
	}
	for _, p := range preds {
		res := s.scorer.Score(p.Picks, result.Classification)
		if err := upsertScore(tx, p, res, now); err != nil {
			return tally, err
		}
		tally.scored++
	}

	matchups, err := tx.ListMatchups(race.Season)
	if err != nil {
		return tally, err
	}
	winners := h2h.Resolve(matchups, scoring.Positions(result.Classification))
	for _, m := range matchups {
		winner, ok := winners[m.ID]
		if !ok {
			// Neither teammate classified: no result for this session. A
			// republish can drop a winner recorded earlier.
			if err := tx.DeleteH2HResult(race.ID, result.Session, m.ID); err != nil {
				return tally, err
			}
			continue
		}
		if err := upsertH2HResult(tx, race.ID, result.Session, m.ID, winner, now); err != nil {
			return tally, err
		}
		tally.resolved++
	}

	h2hPreds, err := tx.ListH2HPredictions(race.ID, result.Session)
	if err != nil {
		return tally, err
	}
	for _, t := range h2h.Score(h2hPreds, winners) {
		if err := upsertH2HScore(tx, race.ID, result.Session, t, now); err != nil {
			return tally, err
		}
		tally.h2hScored++
	}
	return tally, nil
}

// finishRace marks the race finished when its race session is published.
func finishRace(tx repository.Tx, race model.Race, session model.SessionType) (bool, error) {
	if session != model.SessionRace || race.Finished() {
		return false, nil
	}
	race.Status = model.RaceFinished
	if err := tx.PutRace(race); err != nil {
		return false, err
	}
	return true, nil
}

func requireAdmin(tx repository.Tx, adminID string) error {
	if adminID == "" {
		return model.ErrNotAuthenticated
	}
	u, err := tx.GetUser(adminID)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) {
		return fmt.Errorf("%w: unknown user %s", model.ErrNotAdmin, adminID)
	}
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		return fmt.Errorf("%w: %s", model.ErrNotAdmin, adminID)
	}
	return nil
}

func validateClassification(tx repository.Tx, classification []string) error {
	if len(classification) < scoring.TopPositions {
		return fmt.Errorf("%w: got %d, want at least %d", model.ErrClassificationTooShort, len(classification), scoring.TopPositions)
	}
	seen := make(map[string]struct{}, len(classification))
	for _, d := range classification {
		if _, dup := seen[d]; dup {
			return fmt.Errorf("%w: %s", model.ErrDuplicateClassification, d)
		}
		seen[d] = struct{}{}
	}
	return driversExist(tx, classification)
}

func upsertScore(tx repository.Tx, p model.Prediction, res scoring.Result, now time.Time) error {
	sc, err := tx.GetScore(p.UserID, p.RaceID, p.Session)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		sc = model.Score{ID: uuid.NewString(), UserID: p.UserID, RaceID: p.RaceID, Session: p.Session}
	case err != nil:
		return err
	}
	sc.Points = res.Total
	sc.Breakdown = res.Breakdown
	sc.ComputedAt = now
	return tx.PutScore(sc)
}

func upsertH2HResult(tx repository.Tx, raceID string, sess model.SessionType, matchupID, winner string, now time.Time) error {
	r, err := tx.GetH2HResult(raceID, sess, matchupID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		r = model.H2HResult{ID: uuid.NewString(), RaceID: raceID, Session: sess, MatchupID: matchupID}
	case err != nil:
		return err
	}
	r.WinnerID = winner
	r.ResolvedAt = now
	return tx.PutH2HResult(r)
}

func upsertH2HScore(tx repository.Tx, raceID string, sess model.SessionType, t h2h.Tally, now time.Time) error {
	sc, err := tx.GetH2HScore(t.UserID, raceID, sess)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		sc = model.H2HScore{ID: uuid.NewString(), UserID: t.UserID, RaceID: raceID, Session: sess}
	case err != nil:
		return err
	}
	sc.CorrectPicks = t.Correct
	sc.TotalPicks = t.Total
	sc.Points = t.Points()
	sc.ComputedAt = now
	return tx.PutH2HScore(sc)
}
