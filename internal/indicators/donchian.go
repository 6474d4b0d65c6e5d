package indicators

import (
	"errors"

	"walkforward-validator/pkg/types"
)

// DonchianChannels tracks the highest high and lowest low over a period.
// The breakout rule uses the channel of the bars BEFORE the current one, so
// that a close above the prior channel top is a genuine breakout.
type DonchianChannels struct {
	period int
}

// NewDonchianChannels creates a new Donchian Channels indicator.
func NewDonchianChannels(period int) *DonchianChannels {
	return &DonchianChannels{period: period}
}

// Calculate returns the upper and lower channel over the last `period` bars.
func (dc *DonchianChannels) Calculate(data []types.Bar) (upper, lower float64, err error) {
	if len(data) < dc.period {
		return 0, 0, errors.New("insufficient data for Donchian Channels calculation")
	}

	start := len(data) - dc.period
	upper = data[start].High
	lower = data[start].Low
	for i := start + 1; i < len(data); i++ {
		if data[i].High > upper {
			upper = data[i].High
		}
		if data[i].Low < lower {
			lower = data[i].Low
		}
	}
	return upper, lower, nil
}

// GetName returns the indicator name.
func (dc *DonchianChannels) GetName() string {
	return "Donchian Channels"
}

// GetRequiredPeriods returns the minimum number of bars needed.
func (dc *DonchianChannels) GetRequiredPeriods() int {
	return dc.period
}
