package backtest

import (
	"walkforward-validator/internal/indicators"
	"walkforward-validator/pkg/types"
)

// RelativeATREstimator returns a VolatilityEstimator that compares a short
// ATR against a long ATR (4x the period) at the entry bar. The ratio is
// dimensionless: 1.0 in average conditions, above 1.0 when recent ranges
// widen. Falls back to 1.0 whenever either ATR cannot be computed.
func RelativeATREstimator(period int) VolatilityEstimator {
	shortATR := indicators.NewATR(period)
	longATR := indicators.NewATR(period * 4)

	return func(bars []types.Bar, entryIndex int) float64 {
		short, err := shortATR.Calculate(bars)
		if err != nil || short <= 0 {
			return 1.0
		}
		long, err := longATR.Calculate(bars)
		if err != nil || long <= 0 {
			return 1.0
		}
		return short / long
	}
}
