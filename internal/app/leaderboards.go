package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/leaderboard"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	"github.com/okian/gridpick/pkg/logger"
	"github.com/okian/gridpick/pkg/metrics"
)

// SeasonLeaderboard ranks users by their summed top-5 points.
func (s *Service) SeasonLeaderboard(ctx context.Context, q types.LeaderboardQuery) (leaderboard.Page, error) {
	return s.seasonBoard(ctx, "season", q, func(tx repository.Tx, inSeason func(string) bool) ([]leaderboard.Row, error) {
		scores, err := tx.ListScores("")
		if err != nil {
			return nil, err
		}
		rows := make([]leaderboard.Row, 0, len(scores))
		for _, sc := range scores {
			if inSeason(sc.RaceID) {
				rows = append(rows, leaderboard.Row{UserID: sc.UserID, Points: sc.Points})
			}
		}
		return rows, nil
	})
}

// H2HSeasonLeaderboard ranks users by their summed head-to-head points.
func (s *Service) H2HSeasonLeaderboard(ctx context.Context, q types.LeaderboardQuery) (leaderboard.Page, error) {
	return s.seasonBoard(ctx, "h2h", q, func(tx repository.Tx, inSeason func(string) bool) ([]leaderboard.Row, error) {
		scores, err := tx.ListH2HScores("")
		if err != nil {
			return nil, err
		}
		rows := make([]leaderboard.Row, 0, len(scores))
		for _, sc := range scores {
			if inSeason(sc.RaceID) {
				rows = append(rows, leaderboard.Row{
					UserID:  sc.UserID,
					Points:  sc.Points,
					Correct: sc.CorrectPicks,
					Total:   sc.TotalPicks,
				})
			}
		}
		return rows, nil
	})
}

type rowSource func(tx repository.Tx, inSeason func(raceID string) bool) ([]leaderboard.Row, error)

func (s *Service) seasonBoard(ctx context.Context, kind string, q types.LeaderboardQuery, rows rowSource) (leaderboard.Page, error) {
	store, err := s.ready()
	if err != nil {
		return leaderboard.Page{}, err
	}
	limit, offset := s.clampPage(q.Limit, q.Offset)

	var page leaderboard.Page
	err = store.View(ctx, func(tx repository.Tx) error {
		inSeason := func(string) bool { return true }
		if q.Season != 0 {
			seasonOf, err := raceSeasons(tx)
			if err != nil {
				return err
			}
			inSeason = func(raceID string) bool { return seasonOf[raceID] == q.Season }
		}

		rs, err := rows(tx, inSeason)
		if err != nil {
			return err
		}
		names, err := usernames(tx)
		if err != nil {
			return err
		}
		page = leaderboard.Build(rs).WithUsernames(names).View(q.ViewerID, limit, offset)
		return nil
	})
	if err != nil {
		return leaderboard.Page{}, s.fail(ctx, kind+"_leaderboard", err)
	}

	metrics.RecordLeaderboardRead(kind)
	s.logger.Debug(ctx, "leaderboard read",
		logger.String("kind", kind),
		logger.String("viewer", q.ViewerID),
		logger.Int("season", q.Season),
		logger.Int("limit", limit),
		logger.Int("offset", offset),
		logger.Int("total", page.TotalCount),
	)
	return page, nil
}

// RaceLeaderboard ranks the scores of one race. Until the race is finished
// the board is shown only to authenticated viewers who have submitted a
// top-5 prediction for it.
func (s *Service) RaceLeaderboard(ctx context.Context, viewerID, raceID string) (types.RaceBoard, error) {
	store, err := s.ready()
	if err != nil {
		return types.RaceBoard{}, err
	}

	var board types.RaceBoard
	err = store.View(ctx, func(tx repository.Tx) error {
		race, err := getRace(tx, raceID)
		if err != nil {
			return err
		}
		board = types.RaceBoard{RaceID: raceID, Status: types.BoardVisible, Entries: []leaderboard.Entry{}}

		if !race.Finished() {
			if viewerID == "" {
				board.Status, board.Reason = types.BoardLocked, types.ReasonNotAuthenticated
				return nil
			}
			predicted, err := hasPrediction(tx, race, viewerID)
			if err != nil {
				return err
			}
			if !predicted {
				board.Status, board.Reason = types.BoardLocked, types.ReasonPredictFirst
				return nil
			}
		}

		scores, err := tx.ListScores(raceID)
		if err != nil {
			return err
		}
		rows := make([]leaderboard.Row, 0, len(scores))
		for _, sc := range scores {
			rows = append(rows, leaderboard.Row{UserID: sc.UserID, Points: sc.Points})
		}
		names, err := usernames(tx)
		if err != nil {
			return err
		}
		board.Entries = leaderboard.Build(rows).WithUsernames(names).All()
		return nil
	})
	if err != nil {
		return types.RaceBoard{}, s.fail(ctx, "race_leaderboard", err, logger.String("race", raceID))
	}

	metrics.RecordLeaderboardRead("race")
	s.logger.Debug(ctx, "race leaderboard read",
		logger.String("race", raceID),
		logger.String("viewer", viewerID),
		logger.String("status", string(board.Status)),
	)
	return board, nil
}

// MyScoreForRace returns userID's score for one session of a race, or nil
// when none has been computed. An empty session means the race.
func (s *Service) MyScoreForRace(ctx context.Context, userID, raceID string, session model.SessionType) (*types.ScoreView, error) {
	store, err := s.ready()
	if err != nil {
		return nil, err
	}
	if session == "" {
		session = model.SessionRace
	}
	fields := []logger.Field{logger.String("user", userID), logger.String("race", raceID), logger.String("session", session.String())}
	if userID == "" {
		return nil, s.fail(ctx, "my_score", model.ErrNotAuthenticated, fields...)
	}

	var view *types.ScoreView
	err = store.View(ctx, func(tx repository.Tx) error {
		if !session.Valid() {
			return fmt.Errorf("%w: %q", model.ErrInvalidSession, session)
		}
		if _, err := getRace(tx, raceID); err != nil {
			return err
		}
		sc, err := tx.GetScore(userID, raceID, session)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		view = &types.ScoreView{
			RaceID:     raceID,
			Session:    session,
			Points:     sc.Points,
			Breakdown:  make([]types.ScoredPick, len(sc.Breakdown)),
			ComputedAt: sc.ComputedAt,
		}
		for i, line := range sc.Breakdown {
			pick := types.ScoredPick{PickScore: line}
			d, err := tx.GetDriver(line.DriverID)
			switch {
			case err == nil:
				pick.DriverCode, pick.DriverName, pick.Team = d.Code, d.Name, d.Team
			case !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrInvalidKey):
				return err
			}
			view.Breakdown[i] = pick
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "my_score", err, fields...)
	}
	return view, nil
}

func hasPrediction(tx repository.Tx, race model.Race, userID string) (bool, error) {
	for _, sess := range race.Sessions() {
		_, err := tx.GetPrediction(userID, race.ID, sess)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrInvalidKey) {
			return false, err
		}
	}
	return false, nil
}

func usernames(tx repository.Tx) (map[string]string, error) {
	users, err := tx.ListUsers()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

func raceSeasons(tx repository.Tx) (map[string]int, error) {
	races, err := tx.ListRaces()
	if err != nil {
		return nil, err
	}
	seasons := make(map[string]int, len(races))
	for _, r := range races {
		seasons[r.ID] = r.Season
	}
	return seasons, nil
}
