package model

import "time"

// User is the opaque authenticated identity plus the display data the
// leaderboards expose.
type User struct {
	ID       string `json:"id" msgpack:"id"`
	Username string `json:"username" msgpack:"username"`
	IsAdmin  bool   `json:"-" msgpack:"is_admin"`
}

// Driver is seeded reference data.
type Driver struct {
	ID          string `json:"id" msgpack:"id"`
	Code        string `json:"code" msgpack:"code"`
	Name        string `json:"name" msgpack:"name"`
	Team        string `json:"team" msgpack:"team"`
	Number      int    `json:"number" msgpack:"number"`
	Nationality string `json:"nationality" msgpack:"nationality"`
}

// Prediction is a user's ordered top-5 for one session of a race.
type Prediction struct {
	ID          string      `json:"id" msgpack:"id"`
	UserID      string      `json:"user_id" msgpack:"user_id"`
	RaceID      string      `json:"race_id" msgpack:"race_id"`
	Session     SessionType `json:"session" msgpack:"session"`
	Picks       []string    `json:"picks" msgpack:"picks"`
	SubmittedAt time.Time   `json:"submitted_at" msgpack:"submitted_at"`
	UpdatedAt   time.Time   `json:"updated_at" msgpack:"updated_at"`
}

// Result is the published classification of one session.
type Result struct {
	ID             string      `json:"id" msgpack:"id"`
	RaceID         string      `json:"race_id" msgpack:"race_id"`
	Session        SessionType `json:"session" msgpack:"session"`
	Classification []string    `json:"classification" msgpack:"classification"`
	PublicationID  string      `json:"publication_id" msgpack:"publication_id"`
	PublishedAt    time.Time   `json:"published_at" msgpack:"published_at"`
}

// PickScore is one line of a score breakdown. ActualPosition is zero when
// the driver is not classified.
type PickScore struct {
	DriverID          string `json:"driver_id" msgpack:"driver_id"`
	PredictedPosition int    `json:"predicted_position" msgpack:"predicted_position"`
	ActualPosition    int    `json:"actual_position,omitempty" msgpack:"actual_position"`
	Points            int    `json:"points" msgpack:"points"`
}

// Score is derived from a Prediction and a Result and never edited by hand.
type Score struct {
	ID         string      `json:"id" msgpack:"id"`
	UserID     string      `json:"user_id" msgpack:"user_id"`
	RaceID     string      `json:"race_id" msgpack:"race_id"`
	Session    SessionType `json:"session" msgpack:"session"`
	Points     int         `json:"points" msgpack:"points"`
	Breakdown  []PickScore `json:"breakdown" msgpack:"breakdown"`
	ComputedAt time.Time   `json:"computed_at" msgpack:"computed_at"`
}
