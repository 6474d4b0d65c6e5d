package strategy

import (
	"fmt"

	"walkforward-validator/internal/indicators"
	"walkforward-validator/pkg/types"
)

// Breakout is a Donchian-channel breakout rule: go long when the close
// breaks above the highest high of the prior lookback bars, short when it
// breaks below the lowest low. Stop and target are ATR multiples from the
// entry close.
//
// Parameters: lookback, atr_period, stop_atr, target_atr.
type Breakout struct {
	lookback  int
	atrPeriod int
	stopATR   float64
	targetATR float64

	channel *indicators.DonchianChannels
	atr     *indicators.ATR
}

// NewBreakout builds a breakout rule from a parameter set.
func NewBreakout(params ParameterSet) (Rule, error) {
	lookback, err := params.Get("lookback")
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
	targetATR, err := params.Get("target_atr")
	if err != nil {
		return nil, err
	}

	if lookback < 2 {
		return nil, fmt.Errorf("breakout lookback must be >= 2, got %g", lookback)
	}
	if atrPeriod < 1 {
		return nil, fmt.Errorf("breakout atr_period must be >= 1, got %g", atrPeriod)
	}
	if stopATR <= 0 || targetATR <= 0 {
		return nil, fmt.Errorf("breakout stop_atr and target_atr must be positive")
	}

	return &Breakout{
		lookback:  int(lookback),
		atrPeriod: int(atrPeriod),
		stopATR:   stopATR,
		targetATR: targetATR,
		channel:   indicators.NewDonchianChannels(int(lookback)),
		atr:       indicators.NewATR(int(atrPeriod)),
	}, nil
}

// ProduceSignal implements Rule.
func (b *Breakout) ProduceSignal(history []types.Bar, state PositionState) *SignalIntent {
	if state != PositionFlat {
		return nil
	}
	if len(history) < b.WarmupBars() {
		return nil
	}

	current := history[len(history)-1]
	// Channel over the bars BEFORE the decision bar, so the decision bar's
	// own high/low cannot trigger its own breakout.
	upper, lower, err := b.channel.Calculate(history[:len(history)-1])
	if err != nil {
		return nil
	}
	atr, err := b.atr.Calculate(history)
	if err != nil || atr <= 0 {
		return nil
	}

	if current.Close > upper {
		return &SignalIntent{
			Direction:   DirectionLong,
			StopPrice:   current.Close - b.stopATR*atr,
			TargetPrice: current.Close + b.targetATR*atr,
		}
	}
	if current.Close < lower {
		return &SignalIntent{
			Direction:   DirectionShort,
			StopPrice:   current.Close + b.stopATR*atr,
			TargetPrice: current.Close - b.targetATR*atr,
		}
	}
	return nil
}

// Name implements Rule.
func (b *Breakout) Name() string {
	return "donchian_breakout"
}

// WarmupBars implements Rule.
func (b *Breakout) WarmupBars() int {
	warmup := b.lookback + 1
	if b.atrPeriod+1 > warmup {
		warmup = b.atrPeriod + 1
	}
	return warmup
}

// Complexity implements Rule.
func (b *Breakout) Complexity() int {
	return 4
}
