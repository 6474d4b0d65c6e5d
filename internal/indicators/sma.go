package indicators

import (
	"errors"
	"math"

	"walkforward-validator/pkg/types"
)

// SMA is the Simple Moving Average of closing prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

// Calculate returns the mean close over the last `period` bars.
func (s *SMA) Calculate(data []types.Bar) (float64, error) {
	if len(data) < s.period {
		return 0, errors.New("insufficient data for SMA calculation")
	}

	sum := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		sum += data[i].Close
	}
	return sum / float64(s.period), nil
}

// CalculateWithStdDev returns the mean close and the population standard
// deviation over the last `period` bars. Used by the mean-reversion rule to
// build a z-score.
func (s *SMA) CalculateWithStdDev(data []types.Bar) (mean, stdDev float64, err error) {
	mean, err = s.Calculate(data)
	if err != nil {
		return 0, 0, err
	}

	variance := 0.0
	for i := len(data) - s.period; i < len(data); i++ {
		d := data[i].Close - mean
		variance += d * d
	}
	variance /= float64(s.period)
	return mean, math.Sqrt(variance), nil
}

// GetName returns the indicator name.
func (s *SMA) GetName() string {
	return "SMA"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (s *SMA) GetRequiredPeriods() int {
	return s.period
}
