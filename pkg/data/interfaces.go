package data

import (
	"time"

	"walkforward-validator/pkg/types"
)

// Provider loads historical bars from some source.
type Provider interface {
	// LoadData loads historical bars from the specified source.
	LoadData(source string) ([]types.Bar, error)

	// ValidateData validates the integrity of the loaded bars.
	ValidateData(data []types.Bar) error

	// GetName returns the name of the provider.
	GetName() string
}

// Cache stores loaded bar series keyed by source.
type Cache interface {
	Get(key string) ([]types.Bar, bool)
	Set(key string, data []types.Bar)
	Clear()
	Size() int
}

// Filter narrows and orders bar series before they reach the validator.
type Filter interface {
	// FilterByPeriod keeps the trailing period of the series.
	FilterByPeriod(data []types.Bar, period time.Duration) []types.Bar

	// FilterByDateRange keeps bars inside [start, end].
	FilterByDateRange(data []types.Bar, start, end time.Time) []types.Bar

	// ValidateTimeSequence ensures strictly increasing timestamps.
	ValidateTimeSequence(data []types.Bar) error
}

// CSVColumnMapping defines the column positions for different CSV layouts.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches the candles.csv layout the download script
// produces: timestamp,open,high,low,close,volume.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// FileLocator finds candle files under a data root.
type FileLocator interface {
	// FindDataFile locates a candle file for an exchange/symbol/interval.
	FindDataFile(dataRoot, exchange, symbol, interval string) string

	// ConvertIntervalToMinutes converts "5m", "1h", "4h" style intervals to
	// minute numbers.
	ConvertIntervalToMinutes(interval string) string
}
