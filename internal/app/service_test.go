package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a store", t, func() {
		svc := service.New()

		Convey("When an operation runs before Start", func() {
			_, err := svc.NextRace(context.Background())

			Convey("Then it reports the service is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When started", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			Convey("Then it runs on an in-memory store and stops cleanly", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["entities"], ShouldNotBeNil)

				svc.Stop()
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a seeded service", t, func() {
		f := newFixture()
		defer f.close()

		Convey("Then stats report row counts per entity", func() {
			stats := f.svc.GetStats()
			counts, ok := stats["entities"].(map[string]int)
			So(ok, ShouldBeTrue)
			So(counts["user"], ShouldEqual, 4)
			So(counts["race"], ShouldEqual, 4)
			So(counts["matchup"], ShouldEqual, 5)
			So(stats["rescoreWorkers"], ShouldEqual, 2)
		})
	})
}

func TestService_NextRace(t *testing.T) {
	Convey("Given the seeded calendar", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		Convey("When asking before the round 2 quali lock", func() {
			next, err := f.svc.NextRace(ctx)
			So(err, ShouldBeNil)

			Convey("Then round 2 is returned with both sessions open", func() {
				So(next.ID, ShouldEqual, "aus")
				So(next.Status, ShouldEqual, model.RaceUpcoming)
				So(next.OpenSessions, ShouldResemble, []model.SessionType{model.SessionQuali, model.SessionRace})
			})
		})

		Convey("When round 3 sprint qualifying has locked", func() {
			f.clock.Set(chnSprintQ)
			next, err := f.svc.NextRace(ctx)
			So(err, ShouldBeNil)

			Convey("Then round 3 lists its remaining sessions", func() {
				So(next.ID, ShouldEqual, "chn")
				So(next.OpenSessions, ShouldResemble, []model.SessionType{model.SessionQuali, model.SessionSprint, model.SessionRace})
			})
		})

		Convey("When the calendar is over", func() {
			f.clock.Set(chnRace)
			_, err := f.svc.NextRace(ctx)

			Convey("Then no race is found", func() {
				So(errors.Is(err, model.ErrRaceNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_MyScoreRequiresIdentity(t *testing.T) {
	Convey("Given an anonymous caller", t, func() {
		f := newFixture()
		defer f.close()

		_, err := f.svc.MyScoreForRace(context.Background(), "", "aus", "")
		So(errors.Is(err, model.ErrNotAuthenticated), ShouldBeTrue)

		_, err = f.svc.MyScoreForRace(context.Background(), "alice", "aus", model.SessionType("fp2"))
		So(errors.Is(err, model.ErrInvalidSession), ShouldBeTrue)

		_, err = f.svc.SubmitH2HPredictions(context.Background(), "alice", "aus", []types.H2HPick{}, model.SessionRace)
		So(errors.Is(err, model.ErrInvalidPickCount), ShouldBeTrue)
	})
}
