package validation

import (
	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
	"walkforward-validator/internal/monitoring"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/types"
)

// Aggregator runs the chosen parameters over a fold's out-of-sample bars
// and derives the per-fold metrics. It only ever sees the out-of-sample
// slice; parameter selection happened elsewhere on in-sample data.
type Aggregator struct {
	Metric                Metric
	MaxHoldingBars        int
	Volume                float64
	InitialEquity         float64
	MaxInvalidBarFraction float64
	VolatilityPeriod      int
}

// EvaluateFold simulates the rule over the out-of-sample bars under one
// cost scenario. A fold whose bars are too corrupted to trust is returned
// with an INSUFFICIENT status instead of fabricated metrics.
func (a *Aggregator) EvaluateFold(
	fold Fold,
	oosBars []types.Bar,
	rule strategy.Rule,
	params strategy.ParameterSet,
	inSampleScore float64,
	scenario backtest.CostScenario,
) (FoldResult, error) {
	result := FoldResult{
		FoldID:        fold.ID,
		Scenario:      scenario.Name,
		Params:        params.Clone(),
		InSampleScore: inSampleScore,
		Status:        FoldOK,
	}

	if len(oosBars) == 0 {
		result.Status = FoldInsufficient
		result.StatusReason = ReasonInsufficientOOSBars
		return result, nil
	}

	if a.MaxInvalidBarFraction > 0 {
		invalid := types.CountInvalid(oosBars)
		if float64(invalid)/float64(len(oosBars)) > a.MaxInvalidBarFraction {
			result.Status = FoldInsufficient
			result.StatusReason = ReasonExcessiveInvalidBars
			result.Stats = backtest.RunStats{InvalidBars: invalid}
			return result, nil
		}
	}

	cost, err := backtest.NewCostModel(scenario)
	if err != nil {
		return FoldResult{}, errors.Wrap(err, errors.CategoryConfig, "aggregator", "cost_model")
	}

	engine := backtest.NewEngine(cost, a.MaxHoldingBars, a.Volume)
	if scenario.SlippageModel == backtest.SlippageVolatilityScaled {
		engine.SetVolatilityEstimator(backtest.RelativeATREstimator(a.VolatilityPeriod))
	}

	result.Trades, result.Stats = engine.Run(oosBars, rule)
	result.Metrics = backtest.ComputeMetrics(result.Trades, a.InitialEquity)
	result.MetricValue = a.Metric.Extract(result.Metrics)

	monitoring.RecordSimulation("evaluate", len(result.Trades))
	return result, nil
}
