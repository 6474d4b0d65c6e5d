package validation

import (
	"fmt"
	"math"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
)

// Metric selects which per-fold number the cross-fold statistics run on.
type Metric string

const (
	MetricProfitFactor Metric = "profit_factor"
	MetricSharpe       Metric = "sharpe"
)

// Validate checks the metric is a known one.
func (m Metric) Validate() error {
	switch m {
	case MetricProfitFactor, MetricSharpe:
		return nil
	default:
		return fmt.Errorf("unknown metric %q (want profit_factor or sharpe)", m)
	}
}

// BreakevenNull is the value of the metric for a strategy with no edge:
// a profit factor of 1.0 returns exactly what it loses, a Sharpe of 0 has
// no mean return.
func (m Metric) BreakevenNull() float64 {
	if m == MetricProfitFactor {
		return 1.0
	}
	return 0.0
}

// Extract pulls the metric value out of computed backtest metrics.
func (m Metric) Extract(mt backtest.Metrics) float64 {
	if m == MetricProfitFactor {
		return mt.ProfitFactor
	}
	return mt.Sharpe
}

// profitFactorCap bounds an infinite per-fold profit factor (a fold with
// wins and zero losses) before it enters mean/std aggregation. The raw
// value stays visible on the FoldResult.
const profitFactorCap = 100.0

// SignificanceEvaluator turns per-fold out-of-sample results into a
// cross-fold statistical judgement: a one-sample t-test against the
// breakeven null, a consistency ratio, and an extreme-value deflation that
// discounts the best fold by what a best-of-N parameter search would find
// in pure noise.
type SignificanceEvaluator struct {
	Metric              Metric
	Alpha               float64
	MinConsistencyRatio float64
	MinTradesPerFold    int

	// Trials is the number of parameter sets the optimizer searched; it
	// drives the expected-maximum chance level of the deflation correction.
	Trials int
}

// NewSignificanceEvaluator validates the statistical configuration.
func NewSignificanceEvaluator(metric Metric, alpha, minConsistencyRatio float64, minTradesPerFold, trials int) (*SignificanceEvaluator, error) {
	if err := metric.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "significance", "new")
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, errors.NewConfigError("significance", "new", fmt.Sprintf("alpha must be in (0, 1), got %g", alpha))
	}
	if minConsistencyRatio < 0 || minConsistencyRatio > 1 {
		return nil, errors.NewConfigError("significance", "new", fmt.Sprintf("min consistency ratio must be in [0, 1], got %g", minConsistencyRatio))
	}
	if minTradesPerFold < 0 {
		return nil, errors.NewConfigError("significance", "new", fmt.Sprintf("min trades per fold must be >= 0, got %d", minTradesPerFold))
	}
	if trials < 1 {
		return nil, errors.NewConfigError("significance", "new", fmt.Sprintf("trials must be >= 1, got %d", trials))
	}
	return &SignificanceEvaluator{
		Metric:              metric,
		Alpha:               alpha,
		MinConsistencyRatio: minConsistencyRatio,
		MinTradesPerFold:    minTradesPerFold,
		Trials:              trials,
	}, nil
}

// Evaluate computes cross-fold statistics over one scenario's fold results.
// Folds already marked insufficient are skipped; folds with fewer than
// MinTradesPerFold trades are excluded here and reported in the returned
// exclusions. With fewer than two surviving folds no t-statistic is
// computed and the verdict is INSUFFICIENT_DATA, never a fabricated PASS.
func (e *SignificanceEvaluator) Evaluate(results []FoldResult) (CrossFoldStats, []Exclusion) {
	stats := CrossFoldStats{Metric: string(e.Metric)}
	null := e.Metric.BreakevenNull()

	var values []float64
	var exclusions []Exclusion
	for _, r := range results {
		if r.Status != FoldOK {
			continue
		}
		if r.Metrics.TotalTrades < e.MinTradesPerFold {
			exclusions = append(exclusions, Exclusion{
				FoldID:   r.FoldID,
				Scenario: r.Scenario,
				Reason:   ReasonInsufficientTrades,
			})
			continue
		}
		v := e.Metric.Extract(r.Metrics)
		if math.IsInf(v, 1) {
			v = profitFactorCap
		}
		values = append(values, v)
	}

	stats.ValidFolds = len(values)
	stats.FoldValues = values
	stats.Mean = mean(values)
	stats.StdDev = sampleStdDev(values)

	if len(values) < 2 {
		stats.Verdict = VerdictInsufficientData
		return stats, exclusions
	}

	above := 0
	for _, v := range values {
		if v > null {
			above++
		}
	}
	stats.ConsistencyRatio = float64(above) / float64(len(values))

	n := float64(len(values))
	if stats.StdDev < 1e-12 {
		// Every fold produced the identical value; the t-statistic is
		// undefined, so the p-value collapses to 0 or 1 on the mean alone.
		stats.HasTTest = true
		if stats.Mean > null {
			stats.PValue = 0
		} else {
			stats.PValue = 1
		}
	} else {
		stats.HasTTest = true
		stats.TStat = (stats.Mean - null) / (stats.StdDev / math.Sqrt(n))
		stats.PValue = studentTSurvival(stats.TStat, len(values)-1)
	}

	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	stats.ExpectedMaxChance = expectedMaxNormal(e.Trials)
	if stats.StdDev < 1e-12 {
		stats.DeflatedExcess = best - null
	} else {
		stats.DeflatedExcess = (best-null)/stats.StdDev - stats.ExpectedMaxChance
	}

	if stats.ConsistencyRatio >= e.MinConsistencyRatio &&
		stats.PValue <= e.Alpha &&
		stats.DeflatedExcess > 0 {
		stats.Verdict = VerdictPass
	} else {
		stats.Verdict = VerdictFail
	}
	return stats, exclusions
}
