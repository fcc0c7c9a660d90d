package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/okian/gridpick/internal/adapters/repository"
	service "github.com/okian/gridpick/internal/app"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Fixture clock: between round 1 and the round 2 quali lock.
var (
	now         = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ausQuali    = time.Date(2025, 3, 15, 5, 0, 0, 0, time.UTC)
	ausRace     = time.Date(2025, 3, 16, 4, 0, 0, 0, time.UTC)
	chnSprintQ  = time.Date(2025, 3, 21, 7, 30, 0, 0, time.UTC)
	chnSprint   = time.Date(2025, 3, 22, 3, 0, 0, 0, time.UTC)
	chnQuali    = time.Date(2025, 3, 22, 7, 0, 0, 0, time.UTC)
	chnRace     = time.Date(2025, 3, 23, 7, 0, 0, 0, time.UTC)
	bahRace     = time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC)
	fullField   = []string{"ver", "nor", "lec", "ham", "rus", "pia", "alo", "ant"}
	alicePicks  = []string{"nor", "lec", "ver", "rus", "ham"}
	perfectPick = []string{"ver", "nor", "lec", "ham", "rus"}
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc   *service.Service
	store repository.Store
	clock *clock
}

func newFixture(opts ...service.Option) *fixture {
	store, err := repository.OpenInMemory()
	if err != nil {
		panic(err)
	}
	seed(store)

	c := &clock{t: now}
	svc := service.New(append([]service.Option{
		service.WithStore(store),
		service.WithClock(c.Now),
		service.WithRescoreWorkers(2),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return &fixture{svc: svc, store: store, clock: c}
}

func (f *fixture) close() { f.svc.Stop() }

func seed(store repository.Store) {
	err := store.Update(context.Background(), func(tx repository.Tx) error {
		users := []model.User{
			{ID: "admin", Username: "Race Control", IsAdmin: true},
			{ID: "alice", Username: "Alice"},
			{ID: "bob", Username: "Bob"},
			{ID: "carol", Username: "Carol"},
		}
		for _, u := range users {
			if err := tx.PutUser(u); err != nil {
				return err
			}
		}

		drivers := []model.Driver{
			{ID: "ver", Code: "VER", Name: "Max Verstappen", Team: "Red Bull", Number: 1},
			{ID: "had", Code: "HAD", Name: "Isack Hadjar", Team: "Red Bull", Number: 6},
			{ID: "nor", Code: "NOR", Name: "Lando Norris", Team: "McLaren", Number: 4},
			{ID: "pia", Code: "PIA", Name: "Oscar Piastri", Team: "McLaren", Number: 81},
			{ID: "lec", Code: "LEC", Name: "Charles Leclerc", Team: "Ferrari", Number: 16},
			{ID: "ham", Code: "HAM", Name: "Lewis Hamilton", Team: "Ferrari", Number: 44},
			{ID: "rus", Code: "RUS", Name: "George Russell", Team: "Mercedes", Number: 63},
			{ID: "ant", Code: "ANT", Name: "Andrea Kimi Antonelli", Team: "Mercedes", Number: 12},
			{ID: "sai", Code: "SAI", Name: "Carlos Sainz", Team: "Williams", Number: 55},
			{ID: "alb", Code: "ALB", Name: "Alexander Albon", Team: "Williams", Number: 23},
			{ID: "alo", Code: "ALO", Name: "Fernando Alonso", Team: "Aston Martin", Number: 14},
		}
		for _, d := range drivers {
			if err := tx.PutDriver(d); err != nil {
				return err
			}
		}

		races := []model.Race{
			{ID: "bah", Season: 2025, Round: 1, Name: "Bahrain", Status: model.RaceUpcoming, RaceStartAt: bahRace},
			{ID: "aus", Season: 2025, Round: 2, Name: "Australia", Status: model.RaceUpcoming, QualiLockAt: &ausQuali, RaceStartAt: ausRace},
			{
				ID: "chn", Season: 2025, Round: 3, Name: "China", HasSprint: true, Status: model.RaceUpcoming,
				SprintQualiLockAt: &chnSprintQ, SprintLockAt: &chnSprint, QualiLockAt: &chnQuali, RaceStartAt: chnRace,
			},
			{ID: "old", Season: 2024, Round: 24, Name: "Abu Dhabi", Status: model.RaceFinished, RaceStartAt: bahRace.AddDate(0, -3, 0)},
		}
		for _, r := range races {
			if err := tx.PutRace(r); err != nil {
				return err
			}
		}

		matchups := []model.Matchup{
			{ID: "rbr", Season: 2025, Team: "Red Bull", DriverA: "ver", DriverB: "had"},
			{ID: "mcl", Season: 2025, Team: "McLaren", DriverA: "nor", DriverB: "pia"},
			{ID: "fer", Season: 2025, Team: "Ferrari", DriverA: "lec", DriverB: "ham"},
			{ID: "wil", Season: 2025, Team: "Williams", DriverA: "sai", DriverB: "alb"},
			{ID: "mcl24", Season: 2024, Team: "McLaren", DriverA: "nor", DriverB: "pia"},
		}
		for _, m := range matchups {
			if err := tx.PutMatchup(m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
}
