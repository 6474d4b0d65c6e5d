package optimization

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/types"
)

// risingBars returns a steadily climbing series: close = 100 + i, high and
// low half a point around it. Every long target within reach gets hit.
func risingBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = types.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

// scriptedRule opens two longs whose profit equals the target parameter,
// plus one short that is always stopped out for a fixed three point loss.
// Larger targets therefore mean a strictly higher profit factor.
type scriptedRule struct {
	target     float64
	complexity int
}

func (r *scriptedRule) ProduceSignal(history []types.Bar, state strategy.PositionState) *strategy.SignalIntent {
	if state != strategy.PositionFlat {
		return nil
	}
	i := len(history) - 1
	close := history[i].Close
	switch i {
	case 10, 30:
		return &strategy.SignalIntent{
			Direction:   strategy.DirectionLong,
			StopPrice:   close - 100,
			TargetPrice: close + r.target,
		}
	case 60:
		return &strategy.SignalIntent{
			Direction:   strategy.DirectionShort,
			StopPrice:   close + 3,
			TargetPrice: close - 100,
		}
	}
	return nil
}

func (r *scriptedRule) Name() string    { return "scripted" }
func (r *scriptedRule) WarmupBars() int { return 1 }
func (r *scriptedRule) Complexity() int { return r.complexity }

func scriptedFactory(params strategy.ParameterSet) (strategy.Rule, error) {
	target, err := params.Get("target")
	if err != nil {
		return nil, err
	}
	if target <= 0 {
		return nil, fmt.Errorf("target must be positive, got %g", target)
	}
	complexity := 2
	if c, err := params.Get("complexity"); err == nil {
		complexity = int(c)
	}
	return &scriptedRule{target: target, complexity: complexity}, nil
}

func scenario(name string, spreadPips float64) backtest.CostScenario {
	return backtest.CostScenario{
		Name:          name,
		SpreadPips:    spreadPips,
		SlippageModel: backtest.SlippageFixed,
		PipValue:      0.1,
	}
}

func TestGridOptimizer_PicksHighestScore(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 2})
	require.NoError(t, err)

	selections, err := opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {2, 8, 5}},
		[]backtest.CostScenario{scenario("frictionless", 0)})
	require.NoError(t, err)

	sel, ok := selections["frictionless"]
	require.True(t, ok)
	assert.Equal(t, 8.0, sel.Params["target"])
	// Two wins of 8 against one stop-out of 3.
	assert.InDelta(t, 16.0/3.0, sel.Score, 1e-9)
	assert.Equal(t, 3, sel.Metrics.TotalTrades)
}

func TestGridOptimizer_TieBreaksOnLowerComplexity(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 2})
	require.NoError(t, err)

	// Both grid points trade identically; the later one declares fewer
	// effective parameters and must win despite its later expansion index.
	selections, err := opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {5}, "complexity": {3, 1}},
		[]backtest.CostScenario{scenario("base", 0)})
	require.NoError(t, err)

	sel := selections["base"]
	assert.Equal(t, 1.0, sel.Params["complexity"])
	assert.Equal(t, 1, sel.Complexity)
}

func TestGridOptimizer_FullTieKeepsEarlierGridPoint(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 4})
	require.NoError(t, err)

	// The noop parameter changes nothing about the trades, so every point
	// ties on both score and complexity. Expansion order decides.
	selections, err := opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {5}, "noop": {1, 2, 3}},
		[]backtest.CostScenario{scenario("base", 0)})
	require.NoError(t, err)

	assert.Equal(t, 1.0, selections["base"].Params["noop"])
}

func TestGridOptimizer_ScenariosSelectedIndependently(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 2})
	require.NoError(t, err)

	selections, err := opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {2, 8}},
		[]backtest.CostScenario{scenario("cheap", 0), scenario("expensive", 10)})
	require.NoError(t, err)

	require.Len(t, selections, 2)
	// Spread cost per trade shrinks wins and grows the loss, so the same
	// winning parameters score lower under heavier friction.
	assert.Greater(t, selections["cheap"].Score, selections["expensive"].Score)
}

func TestGridOptimizer_EmptyGridIsConfigError(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{})
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), risingBars(100),
		Grid{}, []backtest.CostScenario{scenario("base", 0)})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestGridOptimizer_InvalidParameterSetIsConfigError(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{})
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {-1}}, []backtest.CostScenario{scenario("base", 0)})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestGridOptimizer_BadScenarioIsConfigError(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{})
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {5}},
		[]backtest.CostScenario{{Name: "broken", SlippageModel: "adaptive", PipValue: 0.1}})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestGridOptimizer_BudgetExhaustionAborts(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{
		Workers: 1,
		Budget:  time.Nanosecond,
	})
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background(), risingBars(100),
		Grid{"target": {2, 3, 4, 5, 6, 7, 8}},
		[]backtest.CostScenario{scenario("base", 0)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategorySimulation))
	assert.Contains(t, err.Error(), "budget")
}

func TestGridOptimizer_CancelledContextAborts(t *testing.T) {
	opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = opt.Optimize(ctx, risingBars(100),
		Grid{"target": {2, 8}},
		[]backtest.CostScenario{scenario("base", 0)})
	require.Error(t, err)
}

func TestGridOptimizer_Deterministic(t *testing.T) {
	run := func() map[string]Selection {
		opt, err := NewGridOptimizer(scriptedFactory, ObjectiveProfitFactor, Options{Workers: 4})
		require.NoError(t, err)
		selections, err := opt.Optimize(context.Background(), risingBars(100),
			Grid{"target": {2, 3, 5, 8}},
			[]backtest.CostScenario{scenario("base", 1)})
		require.NoError(t, err)
		return selections
	}

	assert.Equal(t, run(), run())
}

func TestGridOptimizer_NilFactoryRejected(t *testing.T) {
	_, err := NewGridOptimizer(nil, ObjectiveSharpe, Options{})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestGridOptimizer_UnknownObjectiveRejected(t *testing.T) {
	_, err := NewGridOptimizer(scriptedFactory, Objective("sortino"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestGrid_ExpandDeterministicOrder(t *testing.T) {
	g := Grid{"b": {1, 2}, "a": {10, 20}}

	sets := g.Expand()
	require.Len(t, sets, 4)
	// Sorted names, last varies fastest.
	assert.Equal(t, strategy.ParameterSet{"a": 10, "b": 1}, sets[0])
	assert.Equal(t, strategy.ParameterSet{"a": 10, "b": 2}, sets[1])
	assert.Equal(t, strategy.ParameterSet{"a": 20, "b": 1}, sets[2])
	assert.Equal(t, strategy.ParameterSet{"a": 20, "b": 2}, sets[3])
}

func TestGrid_Size(t *testing.T) {
	assert.Equal(t, 0, Grid{}.Size())
	assert.Equal(t, 6, Grid{"a": {1, 2, 3}, "b": {1, 2}}.Size())
}
