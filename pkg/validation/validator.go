package validation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
	"walkforward-validator/internal/monitoring"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/optimization"
	"walkforward-validator/pkg/types"
)

// Mode decides what happens on a recoverable data error: strict aborts the
// whole run, lenient excludes the affected fold and keeps going. Config
// errors abort in either mode.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// Validate checks the mode is a known one.
func (m Mode) Validate() error {
	switch m {
	case ModeStrict, ModeLenient:
		return nil
	default:
		return fmt.Errorf("unknown mode %q (want strict or lenient)", m)
	}
}

// ReasonOptimizationFailed marks a fold whose in-sample search could not
// produce a selection.
const ReasonOptimizationFailed = "optimization_failed"

// Settings collects every knob of a walk-forward run.
type Settings struct {
	FoldCount   int
	ISFraction  float64
	PurgeBars   int
	EmbargoBars int
	MinOOSBars  int

	MinTradesPerFold      int
	MaxHoldingBars        int
	MaxInvalidBarFraction float64

	Metric              Metric
	Alpha               float64
	MinConsistencyRatio float64
	Mode                Mode

	Volume           float64
	InitialEquity    float64
	Workers          int
	Budget           time.Duration
	VolatilityPeriod int
}

// Validator wires the splitter, optimizer, aggregator and significance
// evaluator into the full walk-forward pipeline.
type Validator struct {
	settings  Settings
	ruleName  string
	factory   strategy.Factory
	grid      optimization.Grid
	scenarios []backtest.CostScenario

	splitter   *FoldSplitter
	optimizer  *optimization.GridOptimizer
	aggregator *Aggregator
	evaluator  *SignificanceEvaluator
	logger     *zap.Logger
}

// NewValidator builds the pipeline and validates the whole configuration up
// front, so every config error surfaces before any bar is touched.
func NewValidator(
	settings Settings,
	ruleName string,
	factory strategy.Factory,
	grid optimization.Grid,
	scenarios []backtest.CostScenario,
	logger *zap.Logger,
) (*Validator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grid.Size() == 0 {
		return nil, errors.NewConfigError("validator", "new", "empty parameter grid")
	}
	if len(scenarios) == 0 {
		return nil, errors.NewConfigError("validator", "new", "no cost scenarios")
	}
	seen := map[string]bool{}
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryConfig, "validator", "new")
		}
		if seen[sc.Name] {
			return nil, errors.NewConfigError("validator", "new", fmt.Sprintf("duplicate cost scenario %q", sc.Name))
		}
		seen[sc.Name] = true
	}
	if err := settings.Mode.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "validator", "new")
	}
	if settings.MaxInvalidBarFraction < 0 || settings.MaxInvalidBarFraction > 1 {
		return nil, errors.NewConfigError("validator", "new",
			fmt.Sprintf("max invalid bar fraction must be in [0, 1], got %g", settings.MaxInvalidBarFraction))
	}

	splitter, err := NewFoldSplitter(settings.FoldCount, settings.ISFraction, settings.PurgeBars, settings.EmbargoBars, settings.MinOOSBars)
	if err != nil {
		return nil, err
	}

	objective := optimization.Objective(settings.Metric)
	optimizer, err := optimization.NewGridOptimizer(factory, objective, optimization.Options{
		Workers:          settings.Workers,
		Budget:           settings.Budget,
		MaxHoldingBars:   settings.MaxHoldingBars,
		Volume:           settings.Volume,
		InitialEquity:    settings.InitialEquity,
		VolatilityPeriod: settings.VolatilityPeriod,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	evaluator, err := NewSignificanceEvaluator(settings.Metric, settings.Alpha, settings.MinConsistencyRatio, settings.MinTradesPerFold, grid.Size())
	if err != nil {
		return nil, err
	}

	return &Validator{
		settings:  settings,
		ruleName:  ruleName,
		factory:   factory,
		grid:      grid,
		scenarios: scenarios,
		splitter:  splitter,
		optimizer: optimizer,
		aggregator: &Aggregator{
			Metric:                settings.Metric,
			MaxHoldingBars:        settings.MaxHoldingBars,
			Volume:                settings.Volume,
			InitialEquity:         settings.InitialEquity,
			MaxInvalidBarFraction: settings.MaxInvalidBarFraction,
			VolatilityPeriod:      settings.VolatilityPeriod,
		},
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

// Run executes the full walk-forward validation over the bar sequence and
// returns the aggregate report.
func (v *Validator) Run(ctx context.Context, bars []types.Bar) (*AggregateReport, error) {
	if err := checkChronology(bars); err != nil {
		monitoring.RecordError(string(errors.CategoryData))
		return nil, err
	}

	folds, exclusions, err := v.splitter.Split(len(bars))
	if err != nil {
		monitoring.RecordError(string(errors.CategoryConfig))
		return nil, err
	}
	for _, ex := range exclusions {
		monitoring.RecordFoldExclusion(ex.Reason)
	}
	if v.settings.Mode == ModeStrict && len(exclusions) > 0 {
		return nil, errors.NewDataError("validator", "split",
			fmt.Sprintf("fold %d has fewer than %d out-of-sample bars", exclusions[0].FoldID, v.settings.MinOOSBars))
	}

	v.logger.Info("walk-forward run starting",
		zap.String("rule", v.ruleName),
		zap.Int("bars", len(bars)),
		zap.Int("folds", len(folds)),
		zap.Int("grid_size", v.grid.Size()),
		zap.Int("scenarios", len(v.scenarios)),
		zap.String("mode", string(v.settings.Mode)))

	resultsByScenario := make(map[string][]FoldResult, len(v.scenarios))

	for _, fold := range folds {
		isBars := bars[fold.ISStart:fold.ISEnd]
		oosBars := bars[fold.OOSStart:fold.OOSEnd]

		selections, err := v.optimizer.Optimize(ctx, isBars, v.grid, v.scenarios)
		if err != nil {
			if fatal := v.foldFailure(&exclusions, fold.ID, ReasonOptimizationFailed, err); fatal != nil {
				return nil, fatal
			}
			continue
		}

		for _, scenario := range v.scenarios {
			sel := selections[scenario.Name]
			rule, err := v.factory(sel.Params)
			if err != nil {
				monitoring.RecordError(string(errors.CategoryConfig))
				return nil, errors.Wrap(err, errors.CategoryConfig, "validator", "instantiate_rule")
			}

			result, err := v.aggregator.EvaluateFold(fold, oosBars, rule, sel.Params, sel.Score, scenario)
			if err != nil {
				return nil, err
			}
			if result.Status != FoldOK {
				monitoring.RecordFoldExclusion(result.StatusReason)
				exclusions = append(exclusions, Exclusion{FoldID: fold.ID, Scenario: scenario.Name, Reason: result.StatusReason})
				if v.settings.Mode == ModeStrict {
					return nil, errors.NewDataError("validator", "evaluate",
						fmt.Sprintf("fold %d under scenario %q: %s", fold.ID, scenario.Name, result.StatusReason))
				}
			}
			resultsByScenario[scenario.Name] = append(resultsByScenario[scenario.Name], result)

			v.logger.Debug("fold evaluated",
				zap.Int("fold", fold.ID),
				zap.String("scenario", scenario.Name),
				zap.String("params", sel.Params.String()),
				zap.Int("trades", result.Metrics.TotalTrades),
				zap.Float64("metric", result.MetricValue))
		}
	}

	report := &AggregateReport{
		GeneratedAt: time.Now(),
		Rule:        v.ruleName,
		Metric:      string(v.settings.Metric),
		TotalBars:   len(bars),
		Folds:       folds,
		Exclusions:  exclusions,
	}

	for _, scenario := range v.scenarios {
		results := resultsByScenario[scenario.Name]
		stats, tradeExclusions := v.evaluator.Evaluate(results)
		for _, ex := range tradeExclusions {
			monitoring.RecordFoldExclusion(ex.Reason)
		}
		report.Exclusions = append(report.Exclusions, tradeExclusions...)
		report.Scenarios = append(report.Scenarios, ScenarioReport{
			Scenario:    scenario,
			FoldResults: results,
			Stats:       stats,
		})
	}

	report.Verdict = OverallVerdict(report.Scenarios)

	v.logger.Info("walk-forward run complete",
		zap.String("verdict", string(report.Verdict)),
		zap.Int("exclusions", len(report.Exclusions)))
	return report, nil
}

// foldFailure applies the mode policy to a per-fold error: strict returns
// it as fatal, lenient records an exclusion and swallows it. Config errors
// are always fatal.
func (v *Validator) foldFailure(exclusions *[]Exclusion, foldID int, reason string, err error) error {
	var ve *errors.Error
	if errors.As(err, &ve) && ve.Fatal() {
		monitoring.RecordError(string(ve.Category))
		return err
	}
	monitoring.RecordError(string(errors.CategoryData))
	if v.settings.Mode == ModeStrict {
		return err
	}
	v.logger.Warn("fold excluded", zap.Int("fold", foldID), zap.String("reason", reason), zap.Error(err))
	monitoring.RecordFoldExclusion(reason)
	*exclusions = append(*exclusions, Exclusion{FoldID: foldID, Reason: reason})
	return nil
}

// checkChronology enforces the input contract: timestamps strictly
// increasing, no duplicates. A violation invalidates every fold boundary at
// once, so it is fatal in either mode.
func checkChronology(bars []types.Bar) error {
	if len(bars) == 0 {
		return errors.NewDataError("validator", "input", "empty bar sequence")
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return errors.NewDataError("validator", "input",
				fmt.Sprintf("non-monotonic timestamp at bar %d: %s does not advance past %s",
					i, bars[i].Timestamp.Format(time.RFC3339), bars[i-1].Timestamp.Format(time.RFC3339)))
		}
	}
	return nil
}
