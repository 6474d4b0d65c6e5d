package validation

import (
	"time"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/strategy"
)

// Verdict is the final judgement on a rule's out-of-sample edge.
type Verdict string

const (
	VerdictPass             Verdict = "PASS"
	VerdictFail             Verdict = "FAIL"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// FoldStatus marks whether a fold's result may enter aggregation.
type FoldStatus string

const (
	FoldOK           FoldStatus = "OK"
	FoldInsufficient FoldStatus = "INSUFFICIENT"
)

// Exclusion reasons. Reported verbatim in the AggregateReport so a reader
// can always see why a fold carries no statistical weight.
const (
	ReasonInsufficientOOSBars  = "insufficient_oos_bars"
	ReasonExcessiveInvalidBars = "excessive_invalid_bars"
	ReasonInsufficientTrades   = "insufficient_trades"
)

// Fold is one chronological partition of the bar sequence. Ranges are
// half-open bar index intervals: in-sample is [ISStart, ISEnd), out-of-sample
// is [OOSStart, OOSEnd), with OOSStart >= ISEnd + PurgeBars.
type Fold struct {
	ID        int `json:"id"`
	ISStart   int `json:"is_start"`
	ISEnd     int `json:"is_end"`
	OOSStart  int `json:"oos_start"`
	OOSEnd    int `json:"oos_end"`
	PurgeBars int `json:"purge_bars"`
}

// ISBars returns the number of in-sample bars.
func (f Fold) ISBars() int { return f.ISEnd - f.ISStart }

// OOSBars returns the number of out-of-sample bars.
func (f Fold) OOSBars() int { return f.OOSEnd - f.OOSStart }

// Exclusion records a fold dropped from aggregation and why. Scenario is
// empty when the exclusion is structural and applies to every scenario.
type Exclusion struct {
	FoldID   int    `json:"fold_id"`
	Scenario string `json:"scenario,omitempty"`
	Reason   string `json:"reason"`
}

// FoldResult is the out-of-sample outcome of one fold under one cost
// scenario. Immutable once produced.
type FoldResult struct {
	FoldID        int                   `json:"fold_id"`
	Scenario      string                `json:"scenario"`
	Params        strategy.ParameterSet `json:"params"`
	InSampleScore float64               `json:"in_sample_score"`
	Trades        []backtest.Trade      `json:"trades"`
	Stats         backtest.RunStats     `json:"stats"`
	Metrics       backtest.Metrics      `json:"metrics"`
	Status        FoldStatus            `json:"status"`
	StatusReason  string                `json:"status_reason,omitempty"`
	MetricValue   float64               `json:"metric_value"`
}

// CrossFoldStats are the significance statistics for one cost scenario,
// computed over the folds that survived exclusion.
type CrossFoldStats struct {
	Metric            string    `json:"metric"`
	ValidFolds        int       `json:"valid_folds"`
	FoldValues        []float64 `json:"fold_values"`
	Mean              float64   `json:"mean"`
	StdDev            float64   `json:"std_dev"`
	HasTTest          bool      `json:"has_t_test"`
	TStat             float64   `json:"t_stat"`
	PValue            float64   `json:"p_value"`
	ConsistencyRatio  float64   `json:"consistency_ratio"`
	ExpectedMaxChance float64   `json:"expected_max_chance"`
	DeflatedExcess    float64   `json:"deflated_excess"`
	Verdict           Verdict   `json:"verdict"`
}

// ScenarioReport collects everything about one cost scenario across folds.
type ScenarioReport struct {
	Scenario    backtest.CostScenario `json:"scenario"`
	FoldResults []FoldResult          `json:"fold_results"`
	Stats       CrossFoldStats        `json:"stats"`
}

// AggregateReport is the engine's single output: per-fold results, cross-fold
// statistics per cost scenario, every exclusion with its reason, and the
// overall verdict. It is a plain data object meant for machine consumption;
// rendering is a collaborator's concern.
type AggregateReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Rule        string           `json:"rule"`
	Metric      string           `json:"metric"`
	TotalBars   int              `json:"total_bars"`
	Folds       []Fold           `json:"folds"`
	Scenarios   []ScenarioReport `json:"scenarios"`
	Exclusions  []Exclusion      `json:"exclusions"`
	Verdict     Verdict          `json:"verdict"`
}

// OverallVerdict combines per-scenario verdicts conservatively: any
// INSUFFICIENT_DATA dominates, then any FAIL, and only a clean sweep of
// passing scenarios yields PASS.
func OverallVerdict(scenarios []ScenarioReport) Verdict {
	if len(scenarios) == 0 {
		return VerdictInsufficientData
	}
	verdict := VerdictPass
	for _, s := range scenarios {
		switch s.Stats.Verdict {
		case VerdictInsufficientData:
			return VerdictInsufficientData
		case VerdictFail:
			verdict = VerdictFail
		}
	}
	return verdict
}
