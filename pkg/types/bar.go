package types

import (
	"math"
	"time"
)

// Bar is a single OHLCV price observation for a fixed time interval.
// Bars are read-only inputs to the simulation core; they are owned by the
// data layer and never mutated after loading.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Valid reports whether the bar carries usable prices. Bars with NaN, Inf,
// zero or negative prices are skipped for decision-making during simulation.
func (b Bar) Valid() bool {
	for _, p := range [4]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return false
		}
	}
	if math.IsNaN(b.Volume) || b.Volume < 0 {
		return false
	}
	return b.High >= b.Low
}

// CountInvalid returns the number of bars in the slice that fail Valid.
func CountInvalid(bars []Bar) int {
	n := 0
	for _, b := range bars {
		if !b.Valid() {
			n++
		}
	}
	return n
}
