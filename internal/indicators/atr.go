package indicators

import (
	"errors"
	"math"

	"walkforward-validator/pkg/types"
)

// ATR is the Average True Range indicator with Wilder smoothing.
//
// Calculate recomputes the value from the supplied window on every call.
// There is no internal state carried between calls, so the same history
// always yields the same value regardless of call order. This matters for
// the simulator's determinism guarantee.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Calculate returns the smoothed average true range over the history.
func (a *ATR) Calculate(data []types.Bar) (float64, error) {
	if len(data) < a.period+1 {
		return 0, errors.New("insufficient data points for ATR calculation")
	}

	// Seed with the simple mean of the first `period` true ranges, then
	// apply Wilder smoothing over the remainder.
	start := 1
	sum := 0.0
	for i := start; i < start+a.period; i++ {
		sum += trueRange(data[i], data[i-1].Close)
	}
	atr := sum / float64(a.period)

	for i := start + a.period; i < len(data); i++ {
		tr := trueRange(data[i], data[i-1].Close)
		atr = (atr*float64(a.period-1) + tr) / float64(a.period)
	}
	return atr, nil
}

// GetName returns the indicator name.
func (a *ATR) GetName() string {
	return "ATR"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (a *ATR) GetRequiredPeriods() int {
	return a.period + 1
}

// trueRange is max(High-Low, |High-PrevClose|, |Low-PrevClose|).
func trueRange(current types.Bar, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
