package data

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"walkforward-validator/pkg/types"
)

// Manager bundles provider, filter and locator behind one entry point for
// the command-line front end.
type Manager struct {
	provider Provider
	filter   *DefaultFilter
	locator  FileLocator
}

// NewManager creates a manager with a cached CSV provider.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		provider: NewCachedProvider(NewCSVProvider(logger), logger),
		filter:   NewDefaultFilter(),
		locator:  NewDefaultFileLocator(logger),
	}
}

// Load reads a bar series and verifies chronology before handing it out.
func (m *Manager) Load(filename string) ([]types.Bar, error) {
	bars, err := m.provider.LoadData(filename)
	if err != nil {
		return nil, err
	}
	if err := m.filter.ValidateTimeSequence(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// FilterByPeriod keeps the trailing period of the series.
func (m *Manager) FilterByPeriod(bars []types.Bar, period time.Duration) []types.Bar {
	return m.filter.FilterByPeriod(bars, period)
}

// FindDataFile resolves a candle file under the data root.
func (m *Manager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return m.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// ParseTrailingPeriod parses period strings like "7d", "30d" or any raw Go
// duration such as "168h".
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
