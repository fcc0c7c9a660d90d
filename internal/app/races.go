package service

import (
	"context"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/lock"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
)

// NextRace returns the single race currently accepting predictions.
func (s *Service) NextRace(ctx context.Context) (types.NextRace, error) {
	store, err := s.ready()
	if err != nil {
		return types.NextRace{}, err
	}

	now := s.now()
	var next types.NextRace
	err = store.View(ctx, func(tx repository.Tx) error {
		races, err := tx.ListRaces()
		if err != nil {
			return err
		}
		race, ok := lock.NextRace(races, now)
		if !ok {
			return model.ErrRaceNotFound
		}
		race.Status = race.EffectiveStatus(now)
		next = types.NextRace{Race: race, OpenSessions: []model.SessionType{}}
		for _, sess := range race.Sessions() {
			if lock.Open(race, sess, now) {
				next.OpenSessions = append(next.OpenSessions, sess)
			}
		}
		return nil
	})
	if err != nil {
		return types.NextRace{}, s.fail(ctx, "next_race", err)
	}
	return next, nil
}
