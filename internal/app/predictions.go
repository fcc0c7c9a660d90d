package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/lock"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/scoring"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// SubmitPrediction stores userID's top-5 for raceID. An empty session
// cascades over every open session of the weekend.
func (s *Service) SubmitPrediction(ctx context.Context, userID, raceID string, picks []string, session model.SessionType) (types.SubmitReceipt, error) {
	store, err := s.ready()
	if err != nil {
		return types.SubmitReceipt{}, err
	}
	fields := []logger.Field{logger.String("user", userID), logger.String("race", raceID)}
	if userID == "" {
		return types.SubmitReceipt{}, s.fail(ctx, "submit_prediction", model.ErrNotAuthenticated, fields...)
	}

	now := s.now()
	var receipt types.SubmitReceipt
	err = store.Update(ctx, func(tx repository.Tx) error {
		receipt = types.SubmitReceipt{}

		race, err := s.nextRace(tx, raceID, now)
		if err != nil {
			return err
		}
		if err := validatePicks(tx, picks); err != nil {
			return err
		}
		plan, err := lock.Resolve(race, session, now)
		if err != nil {
			return err
		}

		for _, sess := range plan.Sessions {
			id, err := upsertPrediction(tx, userID, raceID, sess, picks, now)
			if err != nil {
				return err
			}
			if receipt.PredictionID == "" {
				receipt.PredictionID = id
			}
		}
		receipt.Sessions = plan.Sessions
		receipt.Skipped = plan.Skipped
		return nil
	})
	if err != nil {
		return types.SubmitReceipt{}, s.fail(ctx, "submit_prediction", err, fields...)
	}

	for _, sess := range receipt.Sessions {
		metrics.RecordPredictionSubmitted(sess.String())
	}
	for _, sess := range receipt.Skipped {
		metrics.RecordSessionSkipped(sess.String())
	}
	s.logger.Info(ctx, "prediction stored", append(fields,
		logger.String("prediction", receipt.PredictionID),
		logger.Any("sessions", receipt.Sessions),
		logger.Any("skipped", receipt.Skipped),
	)...)
	return receipt, nil
}

// SubmitH2HPredictions stores userID's predicted matchup winners for raceID.
// Every targeted session must already hold a top-5 prediction.
func (s *Service) SubmitH2HPredictions(ctx context.Context, userID, raceID string, picks []types.H2HPick, session model.SessionType) (types.H2HReceipt, error) {
	store, err := s.ready()
	if err != nil {
		return types.H2HReceipt{}, err
	}
	fields := []logger.Field{logger.String("user", userID), logger.String("race", raceID)}
	if userID == "" {
		return types.H2HReceipt{}, s.fail(ctx, "submit_h2h", model.ErrNotAuthenticated, fields...)
	}

	now := s.now()
	var receipt types.H2HReceipt
	err = store.Update(ctx, func(tx repository.Tx) error {
		receipt = types.H2HReceipt{}

		race, err := s.nextRace(tx, raceID, now)
		if err != nil {
			return err
		}
		if err := validateH2HPicks(tx, race, picks); err != nil {
			return err
		}
		plan, err := lock.Resolve(race, session, now)
		if err != nil {
			return err
		}
		for _, sess := range plan.Sessions {
			if _, err := tx.GetPrediction(userID, raceID, sess); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: %s", model.ErrMissingTop5Prediction, sess)
				}
				return err
			}
		}

		for _, sess := range plan.Sessions {
			for _, p := range picks {
				if err := upsertH2HPrediction(tx, userID, raceID, sess, p, now); err != nil {
					return err
				}
				receipt.UpdatedCount++
			}
		}
		receipt.OK = true
		receipt.Sessions = plan.Sessions
		receipt.Skipped = plan.Skipped
		return nil
	})
	if err != nil {
		return types.H2HReceipt{}, s.fail(ctx, "submit_h2h", err, fields...)
	}

	metrics.RecordH2HPredictions(receipt.UpdatedCount)
	for _, sess := range receipt.Skipped {
		metrics.RecordSessionSkipped(sess.String())
	}
	s.logger.Info(ctx, "h2h predictions stored", append(fields,
		logger.Int("updated", receipt.UpdatedCount),
		logger.Any("sessions", receipt.Sessions),
	)...)
	return receipt, nil
}

// nextRace loads raceID and checks that it is the single race open for predictions.
func (s *Service) nextRace(tx repository.Tx, raceID string, now time.Time) (model.Race, error) {
	race, err := getRace(tx, raceID)
	if err != nil {
		return model.Race{}, err
	}
	races, err := tx.ListRaces()
	if err != nil {
		return model.Race{}, err
	}
	if !lock.IsNextRace(races, raceID, now) {
		return model.Race{}, fmt.Errorf("%w: %s", model.ErrNotNextRace, raceID)
	}
	return race, nil
}

func getRace(tx repository.Tx, raceID string) (model.Race, error) {
	if raceID == "" {
		return model.Race{}, model.ErrRaceNotFound
	}
	race, err := tx.GetRace(raceID)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) {
		return model.Race{}, fmt.Errorf("%w: %s", model.ErrRaceNotFound, raceID)
	}
	return race, err
}

// validatePicks checks count, then duplicates, then that every driver exists.
func validatePicks(tx repository.Tx, picks []string) error {
	if len(picks) != scoring.TopPositions {
		return fmt.Errorf("%w: got %d, want %d", model.ErrInvalidPickCount, len(picks), scoring.TopPositions)
	}
	seen := make(map[string]struct{}, len(picks))
	for _, d := range picks {
		if _, dup := seen[d]; dup {
			return fmt.Errorf("%w: %s", model.ErrDuplicatePicks, d)
		}
		seen[d] = struct{}{}
	}
	return driversExist(tx, picks)
}

func driversExist(tx repository.Tx, ids []string) error {
	for _, d := range ids {
		if d == "" {
			return fmt.Errorf("%w: empty id", model.ErrDriverNotFound)
		}
		if _, err := tx.GetDriver(d); err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) {
				return fmt.Errorf("%w: %s", model.ErrDriverNotFound, d)
			}
			return err
		}
	}
	return nil
}

func validateH2HPicks(tx repository.Tx, race model.Race, picks []types.H2HPick) error {
	if len(picks) == 0 {
		return fmt.Errorf("%w: no matchups picked", model.ErrInvalidPickCount)
	}
	seen := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		if _, dup := seen[p.MatchupID]; dup {
			return fmt.Errorf("%w: matchup %s", model.ErrDuplicatePicks, p.MatchupID)
		}
		seen[p.MatchupID] = struct{}{}

		if p.MatchupID == "" {
			return model.ErrMatchupNotFound
		}
		m, err := tx.GetMatchup(p.MatchupID)
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidKey) || (err == nil && m.Season != race.Season) {
			return fmt.Errorf("%w: %s", model.ErrMatchupNotFound, p.MatchupID)
		}
		if err != nil {
			return err
		}
		if !m.Has(p.WinnerID) {
			return fmt.Errorf("%w: %s in %s", model.ErrInvalidMatchupWinner, p.WinnerID, p.MatchupID)
		}
	}
	return nil
}

func upsertPrediction(tx repository.Tx, userID, raceID string, sess model.SessionType, picks []string, now time.Time) (string, error) {
	p, err := tx.GetPrediction(userID, raceID, sess)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = model.Prediction{
			ID:          uuid.NewString(),
			UserID:      userID,
			RaceID:      raceID,
			Session:     sess,
			SubmittedAt: now,
		}
	case err != nil:
		return "", err
	}
	p.Picks = append([]string(nil), picks...)
	p.UpdatedAt = now
	if err := tx.PutPrediction(p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func upsertH2HPrediction(tx repository.Tx, userID, raceID string, sess model.SessionType, pick types.H2HPick, now time.Time) error {
	p, err := tx.GetH2HPrediction(userID, raceID, sess, pick.MatchupID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = model.H2HPrediction{
			ID:          uuid.NewString(),
			UserID:      userID,
			RaceID:      raceID,
			Session:     sess,
			MatchupID:   pick.MatchupID,
			SubmittedAt: now,
		}
	case err != nil:
		return err
	}
	p.WinnerID = pick.WinnerID
	p.UpdatedAt = now
	return tx.PutH2HPrediction(p)
}
