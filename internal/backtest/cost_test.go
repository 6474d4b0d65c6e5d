package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/internal/strategy"
)

func TestCostScenario_Validate(t *testing.T) {
	tests := []struct {
		name     string
		scenario CostScenario
		wantErr  bool
	}{
		{
			name:     "valid fixed",
			scenario: CostScenario{Name: "base", SpreadPips: 1, SlippageModel: SlippageFixed, PipValue: 0.0001},
		},
		{
			name:     "valid volatility scaled",
			scenario: CostScenario{Name: "vol", SlippagePips: 1, SlippageModel: SlippageVolatilityScaled, PipValue: 0.0001},
		},
		{
			name:     "missing name",
			scenario: CostScenario{SlippageModel: SlippageFixed, PipValue: 0.0001},
			wantErr:  true,
		},
		{
			name:     "zero pip value",
			scenario: CostScenario{Name: "bad", SlippageModel: SlippageFixed},
			wantErr:  true,
		},
		{
			name:     "negative pips",
			scenario: CostScenario{Name: "bad", SpreadPips: -1, SlippageModel: SlippageFixed, PipValue: 0.0001},
			wantErr:  true,
		},
		{
			name:     "unknown slippage model",
			scenario: CostScenario{Name: "bad", SlippageModel: "adaptive", PipValue: 0.0001},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCostModel_ApplyLong(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "base", SpreadPips: 1, CommissionPips: 0.5, SlippagePips: 0.5,
		SlippageModel: SlippageFixed, PipValue: 0.0001,
	})
	require.NoError(t, err)

	gross, cost, net := model.Apply(strategy.DirectionLong, 1.1000, 1.1050, 10000, 1.0)

	assert.InDelta(t, 50.0, gross, 1e-9)          // 0.0050 * 10000
	assert.InDelta(t, 2.0, cost, 1e-9)            // 2 pips * 0.0001 * 10000
	assert.InDelta(t, 48.0, net, 1e-9)
}

func TestCostModel_ApplyShort(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "base", SpreadPips: 2, SlippageModel: SlippageFixed, PipValue: 0.0001,
	})
	require.NoError(t, err)

	gross, cost, net := model.Apply(strategy.DirectionShort, 1.1050, 1.1000, 10000, 1.0)

	assert.InDelta(t, 50.0, gross, 1e-9) // favorable move for a short
	assert.InDelta(t, 2.0, cost, 1e-9)
	assert.InDelta(t, 48.0, net, 1e-9)
}

func TestCostModel_GrossBeforeCost(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "base", SpreadPips: 100, SlippageModel: SlippageFixed, PipValue: 0.0001,
	})
	require.NoError(t, err)

	gross, cost, net := model.Apply(strategy.DirectionLong, 1.1000, 1.1001, 10000, 1.0)

	assert.InDelta(t, 1.0, gross, 1e-9)
	assert.InDelta(t, 100.0, cost, 1e-9)
	assert.InDelta(t, gross-cost, net, 1e-12) // losing trade after cost
}

func TestCostModel_VolatilityScaledSlippage(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "vol", SlippagePips: 2, SlippageModel: SlippageVolatilityScaled, PipValue: 0.0001,
	})
	require.NoError(t, err)

	_, calmCost, _ := model.Apply(strategy.DirectionLong, 1.1, 1.2, 10000, 0.5)
	_, stressCost, _ := model.Apply(strategy.DirectionLong, 1.1, 1.2, 10000, 2.0)

	assert.InDelta(t, 1.0, calmCost, 1e-9)   // 2 pips * 0.5
	assert.InDelta(t, 4.0, stressCost, 1e-9) // 2 pips * 2.0
}

func TestCostModel_FixedIgnoresVolatilityScale(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "fixed", SlippagePips: 2, SlippageModel: SlippageFixed, PipValue: 0.0001,
	})
	require.NoError(t, err)

	_, a, _ := model.Apply(strategy.DirectionLong, 1.1, 1.2, 10000, 0.5)
	_, b, _ := model.Apply(strategy.DirectionLong, 1.1, 1.2, 10000, 5.0)

	assert.Equal(t, a, b)
}

func TestCostModel_RoundTripPips(t *testing.T) {
	model, err := NewCostModel(CostScenario{
		Name: "base", SpreadPips: 1, CommissionPips: 2, SlippagePips: 3,
		SlippageModel: SlippageFixed, PipValue: 0.0001,
	})
	require.NoError(t, err)

	assert.InDelta(t, 6.0, model.RoundTripPips(), 1e-12)
}
