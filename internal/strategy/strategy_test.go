package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/pkg/types"
)

func flatBars(n int, price float64) []types.Bar {
	bars := make([]types.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = types.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price,
			Volume:    100,
		}
	}
	return bars
}

func breakoutParams() ParameterSet {
	return ParameterSet{"lookback": 10, "atr_period": 5, "stop_atr": 2, "target_atr": 3}
}

func TestNewBreakout_ParameterValidation(t *testing.T) {
	tests := []struct {
		name   string
		params ParameterSet
	}{
		{"missing lookback", ParameterSet{"atr_period": 5, "stop_atr": 2, "target_atr": 3}},
		{"lookback too small", ParameterSet{"lookback": 1, "atr_period": 5, "stop_atr": 2, "target_atr": 3}},
		{"negative stop", ParameterSet{"lookback": 10, "atr_period": 5, "stop_atr": -1, "target_atr": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBreakout(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestBreakout_SignalOnUpsideBreak(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	bars := flatBars(30, 100)
	// Final bar closes well above the prior channel top of 100.5.
	last := &bars[len(bars)-1]
	last.Open, last.High, last.Low, last.Close = 100, 106, 100, 105

	intent := rule.ProduceSignal(bars, PositionFlat)
	require.NotNil(t, intent)
	assert.Equal(t, DirectionLong, intent.Direction)
	assert.Less(t, intent.StopPrice, 105.0)
	assert.Greater(t, intent.TargetPrice, 105.0)
}

func TestBreakout_SignalOnDownsideBreak(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	bars := flatBars(30, 100)
	last := &bars[len(bars)-1]
	last.Open, last.High, last.Low, last.Close = 100, 100, 94, 95

	intent := rule.ProduceSignal(bars, PositionFlat)
	require.NotNil(t, intent)
	assert.Equal(t, DirectionShort, intent.Direction)
	assert.Greater(t, intent.StopPrice, 95.0)
	assert.Less(t, intent.TargetPrice, 95.0)
}

func TestBreakout_NoSignalInsideChannel(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	assert.Nil(t, rule.ProduceSignal(flatBars(30, 100), PositionFlat))
}

func TestBreakout_NoSignalWhenNotFlat(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	bars := flatBars(30, 100)
	bars[len(bars)-1].Close = 105
	bars[len(bars)-1].High = 106

	assert.Nil(t, rule.ProduceSignal(bars, PositionLong))
	assert.Nil(t, rule.ProduceSignal(bars, PositionShort))
}

func TestBreakout_NoSignalDuringWarmup(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	bars := flatBars(5, 100)
	bars[len(bars)-1].Close = 200

	assert.Nil(t, rule.ProduceSignal(bars, PositionFlat))
}

func TestBreakout_Deterministic(t *testing.T) {
	rule, err := NewBreakout(breakoutParams())
	require.NoError(t, err)

	bars := flatBars(30, 100)
	bars[len(bars)-1].Close = 105
	bars[len(bars)-1].High = 106

	first := rule.ProduceSignal(bars, PositionFlat)
	second := rule.ProduceSignal(bars, PositionFlat)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestMeanReversion_LongOnStretchBelowMean(t *testing.T) {
	rule, err := NewMeanReversion(ParameterSet{"lookback": 20, "entry_z": 1.5, "atr_period": 5, "stop_atr": 2})
	require.NoError(t, err)

	bars := flatBars(30, 100)
	// Push some variance into the window, then a deep close below the mean.
	for i := 10; i < 29; i++ {
		bars[i].Close = 100 + 0.5*float64(i%3)
	}
	last := &bars[len(bars)-1]
	last.Open, last.High, last.Low, last.Close = 100, 100, 95, 96

	intent := rule.ProduceSignal(bars, PositionFlat)
	require.NotNil(t, intent)
	assert.Equal(t, DirectionLong, intent.Direction)
	assert.Greater(t, intent.TargetPrice, 96.0) // reversion target is the mean
	assert.Less(t, intent.StopPrice, 96.0)
}

func TestMeanReversion_NoSignalOnFlatSeries(t *testing.T) {
	// Zero standard deviation must never produce a signal.
	rule, err := NewMeanReversion(ParameterSet{"lookback": 20, "entry_z": 1.5, "atr_period": 5, "stop_atr": 2})
	require.NoError(t, err)

	bars := make([]types.Bar, 30)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = types.Bar{Timestamp: base.Add(time.Duration(i) * time.Hour), Open: 100, High: 100, Low: 100, Close: 100, Volume: 1}
	}

	assert.Nil(t, rule.ProduceSignal(bars, PositionFlat))
}

func TestFactoryFor(t *testing.T) {
	for _, name := range []string{"breakout", "mean_reversion"} {
		factory, err := FactoryFor(name)
		require.NoError(t, err)
		assert.NotNil(t, factory)
	}

	_, err := FactoryFor("martingale")
	assert.Error(t, err)
}

func TestParameterSet_StringDeterministic(t *testing.T) {
	p := ParameterSet{"b": 2, "a": 1, "c": 3}
	assert.Equal(t, "a=1 b=2 c=3", p.String())
	assert.Equal(t, p.String(), p.Clone().String())
}
