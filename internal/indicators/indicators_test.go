package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/pkg/types"
)

func barsFromCloses(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = types.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    100,
		}
	}
	return bars
}

func TestSMA_Calculate(t *testing.T) {
	sma := NewSMA(3)

	value, err := sma.Calculate(barsFromCloses(10, 20, 30, 40, 50))
	require.NoError(t, err)
	assert.InDelta(t, 40.0, value, 1e-9) // mean of 30, 40, 50
}

func TestSMA_InsufficientData(t *testing.T) {
	sma := NewSMA(10)

	_, err := sma.Calculate(barsFromCloses(10, 20))
	assert.Error(t, err)
}

func TestSMA_WithStdDev(t *testing.T) {
	sma := NewSMA(4)

	mean, stdDev, err := sma.CalculateWithStdDev(barsFromCloses(2, 4, 6, 8))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.2360679, stdDev, 1e-6) // sqrt(5)
}

func TestATR_ConstantRange(t *testing.T) {
	// Every bar has High-Low = 2 and closes equal, so every true range is 2
	// and the smoothed value must be exactly 2.
	atr := NewATR(5)

	value, err := atr.Calculate(barsFromCloses(100, 100, 100, 100, 100, 100, 100, 100))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, value, 1e-9)
}

func TestATR_Deterministic(t *testing.T) {
	bars := barsFromCloses(100, 101, 99, 103, 102, 105, 104, 108, 107, 110)
	atr := NewATR(5)

	first, err := atr.Calculate(bars)
	require.NoError(t, err)
	second, err := atr.Calculate(bars)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestATR_InsufficientData(t *testing.T) {
	atr := NewATR(14)

	_, err := atr.Calculate(barsFromCloses(1, 2, 3))
	assert.Error(t, err)
}

func TestDonchian_Channels(t *testing.T) {
	dc := NewDonchianChannels(3)

	upper, lower, err := dc.Calculate(barsFromCloses(10, 50, 20, 30, 40))
	require.NoError(t, err)
	// Window is the last 3 bars: closes 20, 30, 40 with +/-1 high/low.
	assert.InDelta(t, 41.0, upper, 1e-9)
	assert.InDelta(t, 19.0, lower, 1e-9)
}

func TestDonchian_InsufficientData(t *testing.T) {
	dc := NewDonchianChannels(20)

	_, _, err := dc.Calculate(barsFromCloses(1, 2))
	assert.Error(t, err)
}
