package strategy

import (
	"fmt"

	"walkforward-validator/internal/indicators"
	"walkforward-validator/pkg/types"
)

// MeanReversion fades stretched closes: when the close sits more than
// entry_z standard deviations below the SMA it goes long back toward the
// mean, and mirrored for shorts. The target is the current SMA, the stop an
// ATR multiple beyond the entry.
//
// Parameters: lookback, entry_z, atr_period, stop_atr.
type MeanReversion struct {
	lookback  int
	entryZ    float64
	atrPeriod int
	stopATR   float64

	sma *indicators.SMA
	atr *indicators.ATR
}

// NewMeanReversion builds a mean-reversion rule from a parameter set.
func NewMeanReversion(params ParameterSet) (Rule, error) {
	lookback, err := params.Get("lookback")
	if err != nil {
		return nil, err
	}
	entryZ, err := params.Get("entry_z")
	if err != nil {
		return nil, err
	}
	atrPeriod, err := params.Get("atr_period")
	if err != nil {
		return nil, err
	}
	stopATR, err := params.Get("stop_atr")
	if err != nil {
		return nil, err
	}

	if lookback < 2 {
		return nil, fmt.Errorf("mean-reversion lookback must be >= 2, got %g", lookback)
	}
	if entryZ <= 0 {
		return nil, fmt.Errorf("mean-reversion entry_z must be positive, got %g", entryZ)
	}
	if atrPeriod < 1 {
		return nil, fmt.Errorf("mean-reversion atr_period must be >= 1, got %g", atrPeriod)
	}
	if stopATR <= 0 {
		return nil, fmt.Errorf("mean-reversion stop_atr must be positive, got %g", stopATR)
	}

	return &MeanReversion{
		lookback:  int(lookback),
		entryZ:    entryZ,
		atrPeriod: int(atrPeriod),
		stopATR:   stopATR,
		sma:       indicators.NewSMA(int(lookback)),
		atr:       indicators.NewATR(int(atrPeriod)),
	}, nil
}

// ProduceSignal implements Rule.
func (m *MeanReversion) ProduceSignal(history []types.Bar, state PositionState) *SignalIntent {
	if state != PositionFlat {
		return nil
	}
	if len(history) < m.WarmupBars() {
		return nil
	}

	current := history[len(history)-1]
	mean, stdDev, err := m.sma.CalculateWithStdDev(history)
	if err != nil || stdDev <= 0 {
		return nil
	}
	atr, err := m.atr.Calculate(history)
	if err != nil || atr <= 0 {
		return nil
	}

	z := (current.Close - mean) / stdDev
	if z <= -m.entryZ {
		return &SignalIntent{
			Direction:   DirectionLong,
			StopPrice:   current.Close - m.stopATR*atr,
			TargetPrice: mean,
		}
	}
	if z >= m.entryZ {
		return &SignalIntent{
			Direction:   DirectionShort,
			StopPrice:   current.Close + m.stopATR*atr,
			TargetPrice: mean,
		}
	}
	return nil
}

// Name implements Rule.
func (m *MeanReversion) Name() string {
	return "sma_mean_reversion"
}

// WarmupBars implements Rule.
func (m *MeanReversion) WarmupBars() int {
	warmup := m.lookback
	if m.atrPeriod+1 > warmup {
		warmup = m.atrPeriod + 1
	}
	return warmup
}

// Complexity implements Rule.
func (m *MeanReversion) Complexity() int {
	return 4
}
