// Package seed loads reference data (users, drivers, races, matchups) from a
// YAML document into the entity store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/gridpick/internal/adapters/repository"
	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/pkg/logger"
)

// Sentinel errors.
var (
	ErrLoad    = errors.New("load seed")
	ErrInvalid = errors.New("invalid seed")
)

// Document is the seed file layout. Timestamps are RFC3339.
type Document struct {
	Users    []User    `koanf:"users"`
	Drivers  []Driver  `koanf:"drivers"`
	Races    []Race    `koanf:"races"`
	Matchups []Matchup `koanf:"matchups"`
}

// User is a seeded account. Admin grants result publishing and rescoring.
type User struct {
	ID       string `koanf:"id"`
	Username string `koanf:"username"`
	Admin    bool   `koanf:"admin"`
}

// Driver is a seeded grid entry; Code must be unique across drivers.
type Driver struct {
	ID          string `koanf:"id"`
	Code        string `koanf:"code"`
	Name        string `koanf:"name"`
	Team        string `koanf:"team"`
	Number      int    `koanf:"number"`
	Nationality string `koanf:"nationality"`
}

// Race is one calendar round. Sprint locks are required on sprint weekends
// and forbidden otherwise; no lock may fall after RaceStartAt.
type Race struct {
	ID                string     `koanf:"id"`
	Season            int        `koanf:"season"`
	Round             int        `koanf:"round"`
	Name              string     `koanf:"name"`
	HasSprint         bool       `koanf:"has_sprint"`
	QualiLockAt       *time.Time `koanf:"quali_lock_at"`
	SprintQualiLockAt *time.Time `koanf:"sprint_quali_lock_at"`
	SprintLockAt      *time.Time `koanf:"sprint_lock_at"`
	RaceStartAt       time.Time  `koanf:"race_start_at"`
}

// Matchup pairs two teammates for a season. Both drivers must exist in the
// seed or already be stored.
type Matchup struct {
	ID      string `koanf:"id"`
	Season  int    `koanf:"season"`
	Team    string `koanf:"team"`
	DriverA string `koanf:"driver_a"`
	DriverB string `koanf:"driver_b"`
}

// Summary counts the rows written by Apply.
type Summary struct {
	Users    int
	Drivers  int
	Races    int
	Matchups int
}

// Load reads and validates the YAML seed document at path.
func Load(path string) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	var doc Document
	conf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeHookFunc(time.RFC3339),
			),
			Result:           &doc,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &doc, conf); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks what the store cannot: required fields and lock ordering.
func (d *Document) Validate() error {
	for i, u := range d.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: users[%d]: id is required", ErrInvalid, i)
		}
	}
	for i, dr := range d.Drivers {
		if dr.ID == "" || dr.Code == "" {
			return fmt.Errorf("%w: drivers[%d]: id and code are required", ErrInvalid, i)
		}
	}
	for i, r := range d.Races {
		if err := r.validate(); err != nil {
			return fmt.Errorf("%w: races[%d] %q: %w", ErrInvalid, i, r.ID, err)
		}
	}
	for i, m := range d.Matchups {
		switch {
		case m.ID == "" || m.Team == "":
			return fmt.Errorf("%w: matchups[%d]: id and team are required", ErrInvalid, i)
		case m.Season <= 0:
			return fmt.Errorf("%w: matchups[%d]: season must be positive", ErrInvalid, i)
		case m.DriverA == "" || m.DriverB == "" || m.DriverA == m.DriverB:
			return fmt.Errorf("%w: matchups[%d]: two distinct drivers are required", ErrInvalid, i)
		}
	}
	return nil
}

func (r Race) validate() error {
	switch {
	case r.ID == "":
		return errors.New("id is required")
	case r.Season <= 0 || r.Round <= 0:
		return errors.New("season and round must be positive")
	case r.RaceStartAt.IsZero():
		return errors.New("race_start_at is required")
	case r.HasSprint && (r.SprintQualiLockAt == nil || r.SprintLockAt == nil):
		return errors.New("sprint weekends need sprint_quali_lock_at and sprint_lock_at")
	case !r.HasSprint && (r.SprintQualiLockAt != nil || r.SprintLockAt != nil):
		return errors.New("sprint locks on a non-sprint weekend")
	}
	for _, lock := range []*time.Time{r.QualiLockAt, r.SprintQualiLockAt, r.SprintLockAt} {
		if lock != nil && lock.After(r.RaceStartAt) {
			return errors.New("session locks must not be after race_start_at")
		}
	}
	return nil
}

func (r Race) model() model.Race {
	return model.Race{
		ID:                r.ID,
		Season:            r.Season,
		Round:             r.Round,
		Name:              r.Name,
		HasSprint:         r.HasSprint,
		Status:            model.RaceUpcoming,
		QualiLockAt:       utc(r.QualiLockAt),
		SprintQualiLockAt: utc(r.SprintQualiLockAt),
		SprintLockAt:      utc(r.SprintLockAt),
		RaceStartAt:       r.RaceStartAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Apply writes doc in a single transaction. Reseeding is idempotent and a
// race already marked finished stays finished.
func Apply(ctx context.Context, store repository.Store, doc *Document) (Summary, error) {
	var sum Summary
	err := store.Update(ctx, func(tx repository.Tx) error {
		sum = Summary{}
		for _, u := range doc.Users {
			if err := tx.PutUser(model.User{ID: u.ID, Username: u.Username, IsAdmin: u.Admin}); err != nil {
				return fmt.Errorf("user %q: %w", u.ID, err)
			}
			sum.Users++
		}
		for _, d := range doc.Drivers {
			if err := tx.PutDriver(model.Driver(d)); err != nil {
				return fmt.Errorf("driver %q: %w", d.ID, err)
			}
			sum.Drivers++
		}
		for _, r := range doc.Races {
			race := r.model()
			prev, err := tx.GetRace(r.ID)
			switch {
			case err == nil && prev.Finished():
				race.Status = model.RaceFinished
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return fmt.Errorf("race %q: %w", r.ID, err)
			}
			if err := tx.PutRace(race); err != nil {
				return fmt.Errorf("race %q: %w", r.ID, err)
			}
			sum.Races++
		}
		for _, m := range doc.Matchups {
			if err := requireDrivers(tx, m); err != nil {
				return err
			}
			if err := tx.PutMatchup(model.Matchup(m)); err != nil {
				return fmt.Errorf("matchup %q: %w", m.ID, err)
			}
			sum.Matchups++
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	logger.Get().Named("seed").Info(ctx, "seed applied",
		logger.Int("users", sum.Users),
		logger.Int("drivers", sum.Drivers),
		logger.Int("races", sum.Races),
		logger.Int("matchups", sum.Matchups),
	)
	return sum, nil
}

func requireDrivers(tx repository.Tx, m Matchup) error {
	for _, id := range []string{m.DriverA, m.DriverB} {
		_, err := tx.GetDriver(id)
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidKey):
			return fmt.Errorf("%w: matchup %q: driver %q not found", ErrInvalid, m.ID, id)
		case err != nil:
			return fmt.Errorf("matchup %q: %w", m.ID, err)
		}
	}
	return nil
}
