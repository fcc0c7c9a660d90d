// Package scoring turns a predicted top-5 and a published classification
// into points.
package scoring

import "github.com/okian/gridpick/internal/domain/model"

// Default point table.
const (
	defaultExactPoints    = 5
	defaultAdjacentPoints = 3
	defaultTopFivePoints  = 1

	// TopPositions is the size of a prediction and of the scoring window.
	TopPositions = 5
)

// Table holds the points awarded per distance between predicted and actual position.
type Table struct {
	Exact    int // actual == predicted
	Adjacent int // off by one, inside the top five
	TopFive  int // off by two or more, inside the top five
}

// DefaultTable returns the standard 5/3/1 table.
func DefaultTable() Table {
	return Table{Exact: defaultExactPoints, Adjacent: defaultAdjacentPoints, TopFive: defaultTopFivePoints}
}

// Option applies a configuration option to the TableScorer.
type Option func(*TableScorer)

// WithTable replaces the point table. Tables with negative entries are ignored.
func WithTable(t Table) Option {
	return func(s *TableScorer) {
		if t.Exact >= 0 && t.Adjacent >= 0 && t.TopFive >= 0 {
			s.table = t
		}
	}
}

// Result is the outcome of scoring one prediction.
type Result struct {
	Total     int
	Breakdown []model.PickScore
}

// Scorer computes points for a prediction. Implementations must be pure.
type Scorer interface {
	Score(picks, classification []string) Result
}

// TableScorer implements Scorer with a fixed point table.
type TableScorer struct {
	table Table
}

// New creates a scorer with the default table unless overridden.
func New(opts ...Option) *TableScorer {
	s := &TableScorer{table: DefaultTable()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the table in use.
func (s *TableScorer) Table() Table { return s.table }

// Score computes per-pick points and their total. Pick i is the prediction
// for position i+1. Drivers absent from the classification or classified
// outside the top five score zero.
func (s *TableScorer) Score(picks, classification []string) Result {
	positions := Positions(classification)

	res := Result{Breakdown: make([]model.PickScore, len(picks))}
	for i, driverID := range picks {
		predicted := i + 1
		actual := positions[driverID]

		line := model.PickScore{
			DriverID:          driverID,
			PredictedPosition: predicted,
			ActualPosition:    actual,
			Points:            s.points(predicted, actual),
		}
		res.Breakdown[i] = line
		res.Total += line.Points
	}
	return res
}

func (s *TableScorer) points(predicted, actual int) int {
	if actual == 0 || actual > TopPositions {
		return 0
	}
	switch diff := abs(actual - predicted); {
	case diff == 0:
		return s.table.Exact
	case diff == 1:
		return s.table.Adjacent
	default:
		return s.table.TopFive
	}
}

// Score scores with the default table.
func Score(picks, classification []string) Result {
	return New().Score(picks, classification)
}

// Positions maps each driver to its 1-based classified position. When a
// driver is listed twice the first position wins.
func Positions(classification []string) map[string]int {
	out := make(map[string]int, len(classification))
	for i, driverID := range classification {
		if _, seen := out[driverID]; !seen {
			out[driverID] = i + 1
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
