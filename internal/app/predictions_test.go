package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSubmitPrediction_Validation(t *testing.T) {
	Convey("Given the round 2 weekend is next", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		cases := []struct {
			name    string
			user    string
			race    string
			picks   []string
			session model.SessionType
			want    error
		}{
			{"anonymous", "", "aus", alicePicks, "", model.ErrNotAuthenticated},
			{"unknown race", "alice", "mon", alicePicks, "", model.ErrRaceNotFound},
			{"a later race", "alice", "chn", alicePicks, "", model.ErrNotNextRace},
			{"a past race", "alice", "bah", alicePicks, "", model.ErrNotNextRace},
			{"four picks", "alice", "aus", []string{"ver", "nor", "lec", "ham"}, "", model.ErrInvalidPickCount},
			{"a duplicated pick", "alice", "aus", []string{"ver", "ver", "nor", "lec", "ham"}, "", model.ErrDuplicatePicks},
			{"an unknown driver", "alice", "aus", []string{"ver", "nor", "lec", "ham", "xyz"}, "", model.ErrDriverNotFound},
			{"an unknown session", "alice", "aus", alicePicks, "fp1", model.ErrInvalidSession},
			{"a sprint on a normal weekend", "alice", "aus", alicePicks, model.SessionSprint, model.ErrSessionUnavailable},
		}

		for _, tc := range cases {
			Convey("When submitting with "+tc.name, func() {
				_, err := f.svc.SubmitPrediction(ctx, tc.user, tc.race, tc.picks, tc.session)

				Convey("Then it fails with the matching kind and writes nothing", func() {
					So(errors.Is(err, tc.want), ShouldBeTrue)
					counts, cerr := f.store.Counts(ctx)
					So(cerr, ShouldBeNil)
					So(counts["prediction"], ShouldEqual, 0)
				})
			})
		}
	})
}

func TestSubmitPrediction_Cascade(t *testing.T) {
	Convey("Given a normal weekend with quali still open", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		Convey("When submitting without a session", func() {
			receipt, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, "")
			So(err, ShouldBeNil)

			Convey("Then quali and race are written in canonical order", func() {
				So(receipt.Sessions, ShouldResemble, []model.SessionType{model.SessionQuali, model.SessionRace})
				So(receipt.Skipped, ShouldBeEmpty)

				var quali model.Prediction
				_ = f.store.View(ctx, func(tx repository.Tx) error {
					quali, err = tx.GetPrediction("alice", "aus", model.SessionQuali)
					return err
				})
				So(err, ShouldBeNil)
				So(receipt.PredictionID, ShouldEqual, quali.ID)
				So(quali.Picks, ShouldResemble, alicePicks)
				So(quali.SubmittedAt, ShouldEqual, now)
			})

			Convey("And resubmitting updates the same rows", func() {
				f.clock.Set(now.Add(time.Hour))
				again, err := f.svc.SubmitPrediction(ctx, "alice", "aus", perfectPick, "")
				So(err, ShouldBeNil)
				So(again.PredictionID, ShouldEqual, receipt.PredictionID)

				counts, _ := f.store.Counts(ctx)
				So(counts["prediction"], ShouldEqual, 2)

				var p model.Prediction
				_ = f.store.View(ctx, func(tx repository.Tx) error {
					p, err = tx.GetPrediction("alice", "aus", model.SessionRace)
					return err
				})
				So(p.Picks, ShouldResemble, perfectPick)
				So(p.SubmittedAt, ShouldEqual, now)
				So(p.UpdatedAt, ShouldEqual, now.Add(time.Hour))
			})
		})

		Convey("When quali has locked", func() {
			f.clock.Set(ausQuali.Add(time.Minute))

			Convey("Then a cascade skips quali and writes the race", func() {
				receipt, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, "")
				So(err, ShouldBeNil)
				So(receipt.Sessions, ShouldResemble, []model.SessionType{model.SessionRace})
				So(receipt.Skipped, ShouldResemble, []model.SessionType{model.SessionQuali})
			})

			Convey("Then an explicit quali submission fails", func() {
				_, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, model.SessionQuali)
				So(errors.Is(err, model.ErrSessionLocked), ShouldBeTrue)
			})

			Convey("Then an explicit race submission succeeds", func() {
				receipt, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, model.SessionRace)
				So(err, ShouldBeNil)
				So(receipt.Sessions, ShouldResemble, []model.SessionType{model.SessionRace})
			})
		})

		Convey("When the race has started", func() {
			f.clock.Set(ausRace)

			Convey("Then the next weekend becomes the only target", func() {
				_, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, "")
				So(errors.Is(err, model.ErrNotNextRace), ShouldBeTrue)

				receipt, err := f.svc.SubmitPrediction(ctx, "alice", "chn", alicePicks, "")
				So(err, ShouldBeNil)
				So(receipt.Sessions, ShouldResemble, model.AllSessions())
			})
		})
	})
}

func TestSubmitH2HPredictions(t *testing.T) {
	Convey("Given the round 2 weekend is next", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		picks := []types.H2HPick{
			{MatchupID: "rbr", WinnerID: "ver"},
			{MatchupID: "mcl", WinnerID: "pia"},
		}

		Convey("When no top-5 prediction exists", func() {
			_, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", picks, "")

			Convey("Then it asks for the top-5 first", func() {
				So(errors.Is(err, model.ErrMissingTop5Prediction), ShouldBeTrue)
			})
		})

		Convey("When the top-5 exists", func() {
			_, err := f.svc.SubmitPrediction(ctx, "alice", "aus", alicePicks, "")
			So(err, ShouldBeNil)

			Convey("Then a cascade writes every pick for every open session", func() {
				receipt, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", picks, "")
				So(err, ShouldBeNil)
				So(receipt.OK, ShouldBeTrue)
				So(receipt.UpdatedCount, ShouldEqual, 4)

				counts, _ := f.store.Counts(ctx)
				So(counts["h2hpred"], ShouldEqual, 4)

				Convey("And resubmitting overwrites instead of duplicating", func() {
					picks[1].WinnerID = "nor"
					_, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", picks, model.SessionRace)
					So(err, ShouldBeNil)

					counts, _ := f.store.Counts(ctx)
					So(counts["h2hpred"], ShouldEqual, 4)
				})
			})

			Convey("Then a winner outside the matchup is rejected", func() {
				_, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", []types.H2HPick{{MatchupID: "rbr", WinnerID: "nor"}}, "")
				So(errors.Is(err, model.ErrInvalidMatchupWinner), ShouldBeTrue)
			})

			Convey("Then an unknown or other-season matchup is rejected", func() {
				_, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", []types.H2HPick{{MatchupID: "nope", WinnerID: "ver"}}, "")
				So(errors.Is(err, model.ErrMatchupNotFound), ShouldBeTrue)

				_, err = f.svc.SubmitH2HPredictions(ctx, "alice", "aus", []types.H2HPick{{MatchupID: "mcl24", WinnerID: "nor"}}, "")
				So(errors.Is(err, model.ErrMatchupNotFound), ShouldBeTrue)
			})

			Convey("Then the same matchup twice is rejected", func() {
				_, err := f.svc.SubmitH2HPredictions(ctx, "alice", "aus", []types.H2HPick{
					{MatchupID: "rbr", WinnerID: "ver"},
					{MatchupID: "rbr", WinnerID: "had"},
				}, "")
				So(errors.Is(err, model.ErrDuplicatePicks), ShouldBeTrue)
			})

			Convey("Then an anonymous caller is rejected", func() {
				_, err := f.svc.SubmitH2HPredictions(ctx, "", "aus", picks, "")
				So(errors.Is(err, model.ErrNotAuthenticated), ShouldBeTrue)
			})
		})

		Convey("When only the race top-5 exists and quali is open", func() {
			_, err := f.svc.SubmitPrediction(ctx, "bob", "aus", alicePicks, model.SessionRace)
			So(err, ShouldBeNil)

			Convey("Then the cascade fails fast and writes nothing", func() {
				_, err := f.svc.SubmitH2HPredictions(ctx, "bob", "aus", picks, "")
				So(errors.Is(err, model.ErrMissingTop5Prediction), ShouldBeTrue)

				counts, _ := f.store.Counts(ctx)
				So(counts["h2hpred"], ShouldEqual, 0)
			})

			Convey("Then an explicit race submission succeeds", func() {
				receipt, err := f.svc.SubmitH2HPredictions(ctx, "bob", "aus", picks, model.SessionRace)
				So(err, ShouldBeNil)
				So(receipt.UpdatedCount, ShouldEqual, 2)
			})
		})
	})
}
