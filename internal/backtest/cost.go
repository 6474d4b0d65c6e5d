package backtest

import (
	"fmt"

	"walkforward-validator/internal/strategy"
)

// SlippageModel selects how slippage pips are computed per fill.
type SlippageModel string

const (
	// SlippageFixed charges the configured slippage pips on every trade.
	SlippageFixed SlippageModel = "fixed"

	// SlippageVolatilityScaled multiplies the base slippage pips by a
	// recent-volatility estimate supplied by the caller.
	SlippageVolatilityScaled SlippageModel = "volatility_scaled"
)

// CostScenario is one spread/commission/slippage configuration. PipValue is
// the explicit price-units-per-pip conversion for the instrument; there is
// deliberately no built-in 10^4 or 10^5 constant.
type CostScenario struct {
	Name           string        `json:"name" yaml:"name"`
	SpreadPips     float64       `json:"spread_pips" yaml:"spread_pips"`
	CommissionPips float64       `json:"commission_pips" yaml:"commission_pips"`
	SlippagePips   float64       `json:"slippage_pips" yaml:"slippage_pips"`
	SlippageModel  SlippageModel `json:"slippage_model" yaml:"slippage_model"`
	PipValue       float64       `json:"pip_value" yaml:"pip_value"`
}

// Validate checks the scenario for config errors.
func (s CostScenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("cost scenario needs a name")
	}
	if s.PipValue <= 0 {
		return fmt.Errorf("cost scenario %q: pip_value must be positive, got %g", s.Name, s.PipValue)
	}
	if s.SpreadPips < 0 || s.CommissionPips < 0 || s.SlippagePips < 0 {
		return fmt.Errorf("cost scenario %q: pips must be non-negative", s.Name)
	}
	switch s.SlippageModel {
	case SlippageFixed, SlippageVolatilityScaled:
		return nil
	default:
		return fmt.Errorf("cost scenario %q: unknown slippage model %q", s.Name, s.SlippageModel)
	}
}

// CostModel converts a cost scenario into per-trade monetary cost.
type CostModel struct {
	scenario CostScenario
}

// NewCostModel builds a cost model from a validated scenario.
func NewCostModel(scenario CostScenario) (*CostModel, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &CostModel{scenario: scenario}, nil
}

// Scenario returns the scenario the model was built from.
func (m *CostModel) Scenario() CostScenario {
	return m.scenario
}

// Apply computes gross pnl, cost and net pnl for one round trip.
//
// volatilityScale is the caller-supplied recent-volatility estimate used by
// the volatility_scaled model; the fixed model ignores it. Gross pnl is
// direction-signed price movement times volume; cost is the total pips
// converted through PipValue and volume; net = gross - cost.
func (m *CostModel) Apply(direction strategy.Direction, entryPrice, exitPrice, volume, volatilityScale float64) (gross, cost, net float64) {
	gross = (exitPrice - entryPrice) * volume * float64(direction)

	slippage := m.scenario.SlippagePips
	if m.scenario.SlippageModel == SlippageVolatilityScaled {
		slippage *= volatilityScale
	}

	totalPips := m.scenario.SpreadPips + m.scenario.CommissionPips + slippage
	cost = totalPips * m.scenario.PipValue * volume
	net = gross - cost
	return gross, cost, net
}

// RoundTripPips returns the total pips charged per trade under the fixed
// model (or the base pips before volatility scaling). Used by cost
// sensitivity checks: for identical fills, the net-profit difference between
// two scenarios is exactly the pip difference times pip value times volume
// times trade count.
func (m *CostModel) RoundTripPips() float64 {
	return m.scenario.SpreadPips + m.scenario.CommissionPips + m.scenario.SlippagePips
}
