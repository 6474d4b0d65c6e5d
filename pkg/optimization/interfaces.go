package optimization

import (
	"fmt"
	"math"
	"sort"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/strategy"
)

// Package optimization provides the in-sample grid search that selects one
// parameter set per cost scenario. Out-of-sample bars are never passed into
// this package; leakage is prevented by construction.

// Objective selects the in-sample score the grid search maximizes.
type Objective string

const (
	ObjectiveSharpe       Objective = "sharpe"
	ObjectiveProfitFactor Objective = "profit_factor"
)

// Validate checks the objective is a known one.
func (o Objective) Validate() error {
	switch o {
	case ObjectiveSharpe, ObjectiveProfitFactor:
		return nil
	default:
		return fmt.Errorf("unknown objective %q (want sharpe or profit_factor)", o)
	}
}

// Score extracts the objective value from computed metrics. NaN scores are
// mapped to -Inf so they can never win the argmax.
func (o Objective) Score(m backtest.Metrics) float64 {
	var v float64
	switch o {
	case ObjectiveSharpe:
		v = m.Sharpe
	case ObjectiveProfitFactor:
		v = m.ProfitFactor
	}
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// Grid maps parameter names to their candidate values.
type Grid map[string][]float64

// Size returns the number of parameter sets the grid expands to.
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	size := 1
	for _, values := range g {
		size *= len(values)
	}
	return size
}

// Expand enumerates every parameter combination in deterministic order:
// parameter names are sorted, and the last name varies fastest. The same
// grid always expands to the same sequence, which keeps tie-breaking and
// therefore the whole validation reproducible.
func (g Grid) Expand() []strategy.ParameterSet {
	if g.Size() == 0 {
		return nil
	}

	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := []strategy.ParameterSet{{}}
	for _, name := range names {
		next := make([]strategy.ParameterSet, 0, len(sets)*len(g[name]))
		for _, base := range sets {
			for _, value := range g[name] {
				expanded := base.Clone()
				expanded[name] = value
				next = append(next, expanded)
			}
		}
		sets = next
	}
	return sets
}

// Selection is the winning parameter set for one cost scenario, with the
// in-sample score it achieved.
type Selection struct {
	Params     strategy.ParameterSet `json:"params"`
	Score      float64               `json:"score"`
	Metrics    backtest.Metrics      `json:"metrics"`
	Complexity int                   `json:"complexity"`
}
