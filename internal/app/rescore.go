package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/gridpick/internal/adapters/mq/queue"
	"github.com/okian/gridpick/internal/adapters/mq/worker"
	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// rescoreAdapter adapts the Service to worker.Rescorer. It is bound to the
// store captured when the rescore started.
type rescoreAdapter struct {
	s     *Service
	store repository.Store
}

func (a *rescoreAdapter) Rescore(ctx context.Context, job worker.Job) (worker.Outcome, error) {
	return a.s.rescoreSession(ctx, a.store, job)
}

// rescoreSession recomputes one published session from its stored
// classification in its own transaction.
func (s *Service) rescoreSession(ctx context.Context, store repository.Store, ref model.SessionRef) (worker.Outcome, error) {
	now := s.now()
	var out worker.Outcome
	err := store.Update(ctx, func(tx repository.Tx) error {
		race, err := getRace(tx, ref.RaceID)
		if err != nil {
			return err
		}
		result, err := tx.GetResult(ref.RaceID, ref.Session)
		if err != nil {
			return err
		}
		tally, err := s.scoreSession(tx, race, result, now)
		if err != nil {
			return err
		}
		if _, err := finishRace(tx, race, ref.Session); err != nil {
			return err
		}
		out = worker.Outcome{Job: ref, Scored: tally.scored, H2HScored: tally.h2hScored}
		return nil
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	metrics.RecordScoresWritten(out.Scored)
	metrics.RecordH2HScoresWritten(out.H2HScored)
	return out, nil
}

// RescoreSeason recomputes every published session of a season (0 means
// every season) from the stored classifications. Sessions are rescored in
// parallel by a worker pool; the call returns once all of them are done.
func (s *Service) RescoreSeason(ctx context.Context, adminID string, season int) (types.RescoreReport, error) {
	store, err := s.ready()
	if err != nil {
		return types.RescoreReport{}, err
	}
	fields := []logger.Field{logger.String("admin", adminID), logger.Int("season", season)}

	var refs []model.SessionRef
	err = store.View(ctx, func(tx repository.Tx) error {
		if err := requireAdmin(tx, adminID); err != nil {
			return err
		}
		seasonOf, err := raceSeasons(tx)
		if err != nil {
			return err
		}
		results, err := tx.ListResults()
		if err != nil {
			return err
		}
		refs = refs[:0]
		for _, r := range results {
			if season == 0 || seasonOf[r.RaceID] == season {
				refs = append(refs, model.SessionRef{RaceID: r.RaceID, Session: r.Session})
			}
		}
		return nil
	})
	if err != nil {
		return types.RescoreReport{}, s.fail(ctx, "rescore_season", err, fields...)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].RaceID != refs[j].RaceID {
			return refs[i].RaceID < refs[j].RaceID
		}
		return refs[i].Session < refs[j].Session
	})

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.rescoreQueueSize))
	pool := worker.NewPool(s.rescoreWorkers, q, &rescoreAdapter{s: s, store: store})
	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pool.Start(poolCtx)

	var enqueueErr error
	for _, ref := range refs {
		if enqueueErr = queue.EnqueueWait(ctx, q, ref); enqueueErr != nil {
			cancel()
			break
		}
	}
	_ = q.Close()
	res := pool.Wait()

	report := types.RescoreReport{
		Season:    season,
		Sessions:  res.Sessions,
		Scored:    res.Scored,
		H2HScored: res.H2HScored,
		Failed:    res.Failed,
	}
	if err := errors.Join(enqueueErr, res.Err); err != nil {
		return report, s.fail(ctx, "rescore_season", fmt.Errorf("rescore season %d: %w", season, err), fields...)
	}

	metrics.RecordSeasonRescored()
	s.logger.Info(ctx, "season rescored", append(fields,
		logger.Int("sessions", report.Sessions),
		logger.Int("scored", report.Scored),
		logger.Int("h2hScored", report.H2HScored),
	)...)
	return report, nil
}
