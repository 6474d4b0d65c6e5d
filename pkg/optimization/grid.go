package optimization

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
	"walkforward-validator/internal/monitoring"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/types"
)

// Options configures a grid search run.
type Options struct {
	// Workers is the parallelism of the search; <= 0 means one per CPU.
	Workers int

	// Budget is an optional wall-clock limit for the whole search, checked
	// only between individual simulation submissions. Zero means no limit.
	Budget time.Duration

	MaxHoldingBars int
	Volume         float64
	InitialEquity  float64

	// VolatilityPeriod is the ATR period used to build the volatility
	// estimator for volatility-scaled cost scenarios.
	VolatilityPeriod int

	Logger *zap.Logger
}

// GridOptimizer runs an exhaustive in-sample search over a parameter grid,
// once per cost scenario, and returns the argmax of the objective.
type GridOptimizer struct {
	factory   strategy.Factory
	objective Objective
	opts      Options
}

// NewGridOptimizer creates a grid optimizer for one rule factory.
func NewGridOptimizer(factory strategy.Factory, objective Objective, opts Options) (*GridOptimizer, error) {
	if factory == nil {
		return nil, errors.NewConfigError("optimizer", "new", "nil rule factory")
	}
	if err := objective.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "optimizer", "new")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Volume <= 0 {
		opts.Volume = 1
	}
	if opts.InitialEquity <= 0 {
		opts.InitialEquity = 10_000
	}
	if opts.VolatilityPeriod <= 0 {
		opts.VolatilityPeriod = 14
	}
	return &GridOptimizer{factory: factory, objective: objective, opts: opts}, nil
}

// Optimize searches the full grid over the in-sample bars for every cost
// scenario and returns the per-scenario winners keyed by scenario name.
// Only in-sample bars ever reach this method; selection on out-of-sample
// data is prevented by construction.
//
// Ties on the objective go to the simpler rule (fewer effective
// parameters), and a remaining tie keeps the earlier parameter set in the
// grid's deterministic expansion order, so repeated runs always pick the
// same winner.
func (o *GridOptimizer) Optimize(ctx context.Context, isBars []types.Bar, grid Grid, scenarios []backtest.CostScenario) (map[string]Selection, error) {
	if grid.Size() == 0 {
		return nil, errors.NewConfigError("optimizer", "optimize", "empty parameter grid")
	}
	if len(scenarios) == 0 {
		return nil, errors.NewConfigError("optimizer", "optimize", "no cost scenarios")
	}
	if len(isBars) == 0 {
		return nil, errors.NewDataError("optimizer", "optimize", "empty in-sample window")
	}

	sets := grid.Expand()

	// Instantiate every rule up front so invalid parameter combinations
	// surface as config errors before any simulation runs.
	rules := make([]strategy.Rule, len(sets))
	for i, params := range sets {
		rule, err := o.factory(params)
		if err != nil {
			return nil, &errors.Error{
				Category:   errors.CategoryConfig,
				Component:  "optimizer",
				Operation:  "optimize",
				Message:    fmt.Sprintf("invalid parameter set %s", params.String()),
				Underlying: err,
			}
		}
		rules[i] = rule
	}

	var deadline time.Time
	if o.opts.Budget > 0 {
		deadline = time.Now().Add(o.opts.Budget)
	}

	selections := make(map[string]Selection, len(scenarios))
	for _, scenario := range scenarios {
		sel, err := o.searchScenario(ctx, isBars, sets, rules, scenario, deadline)
		if err != nil {
			return nil, err
		}
		selections[scenario.Name] = sel

		o.opts.Logger.Info("grid search complete",
			zap.String("scenario", scenario.Name),
			zap.Int("combinations", len(sets)),
			zap.String("objective", string(o.objective)),
			zap.Float64("best_score", sel.Score),
			zap.String("best_params", sel.Params.String()))
	}
	return selections, nil
}

func (o *GridOptimizer) searchScenario(
	ctx context.Context,
	isBars []types.Bar,
	sets []strategy.ParameterSet,
	rules []strategy.Rule,
	scenario backtest.CostScenario,
	deadline time.Time,
) (Selection, error) {
	cost, err := backtest.NewCostModel(scenario)
	if err != nil {
		return Selection{}, errors.Wrap(err, errors.CategoryConfig, "optimizer", "cost_model")
	}

	searchStart := time.Now()
	defer func() {
		monitoring.RecordGridSearchDuration(scenario.Name, time.Since(searchStart))
	}()

	var volEstimator backtest.VolatilityEstimator
	if scenario.SlippageModel == backtest.SlippageVolatilityScaled {
		volEstimator = backtest.RelativeATREstimator(o.opts.VolatilityPeriod)
	}

	pool := backtest.NewWorkerPool(o.opts.Workers, len(sets))
	pool.Start()

	submitted := 0
	var budgetErr error
	for idx := range sets {
		if err := ctx.Err(); err != nil {
			budgetErr = errors.Wrap(err, errors.CategorySimulation, "optimizer", "search")
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			budgetErr = &errors.Error{
				Category:  errors.CategorySimulation,
				Component: "optimizer",
				Operation: "search",
				Message:   fmt.Sprintf("search budget exhausted on scenario %q after %d of %d combinations", scenario.Name, idx, len(sets)),
			}
			break
		}
		job := backtest.SimJob{
			ID:             fmt.Sprintf("%s/%04d", scenario.Name, idx),
			Bars:           isBars,
			Rule:           rules[idx],
			Params:         sets[idx],
			Cost:           cost,
			MaxHoldingBars: o.opts.MaxHoldingBars,
			Volume:         o.opts.Volume,
			InitialEquity:  o.opts.InitialEquity,
			VolEstimator:   volEstimator,
		}
		if err := pool.Submit(job); err != nil {
			budgetErr = errors.Wrap(err, errors.CategorySimulation, "optimizer", "submit")
			break
		}
		submitted++
	}

	// Drain everything already submitted even when aborting, so Stop never
	// blocks on a full result queue.
	scores := make([]backtest.SimResult, len(sets))
	collected := make([]bool, len(sets))
	for i := 0; i < submitted; i++ {
		res := <-pool.Results()
		idx, err := jobIndex(res.ID)
		if err != nil {
			pool.Stop()
			return Selection{}, err
		}
		scores[idx] = res
		collected[idx] = true
		monitoring.RecordSimulation("optimize", len(res.Trades))
	}
	pool.Stop()

	if budgetErr != nil {
		return Selection{}, budgetErr
	}

	best := -1
	bestScore := 0.0
	for idx := range sets {
		if !collected[idx] {
			continue
		}
		score := o.objective.Score(scores[idx].Metrics)
		switch {
		case best == -1, score > bestScore:
			best, bestScore = idx, score
		case score == bestScore && rules[idx].Complexity() < rules[best].Complexity():
			best, bestScore = idx, score
		}
	}
	if best == -1 {
		return Selection{}, errors.NewStatisticalError("optimizer", "select",
			fmt.Sprintf("no simulation results for scenario %q", scenario.Name))
	}

	return Selection{
		Params:     sets[best].Clone(),
		Score:      bestScore,
		Metrics:    scores[best].Metrics,
		Complexity: rules[best].Complexity(),
	}, nil
}

func jobIndex(id string) (int, error) {
	cut := strings.LastIndexByte(id, '/')
	idx, err := strconv.Atoi(id[cut+1:])
	if err != nil {
		return 0, errors.Wrap(err, errors.CategorySimulation, "optimizer", "collect")
	}
	return idx, nil
}
