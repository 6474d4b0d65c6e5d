package data

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultFileLocator resolves candle files in the layout the download
// script writes: data/{exchange}/{category}/{symbol}/{interval}/candles.csv.
type DefaultFileLocator struct {
	logger *zap.Logger
}

// NewDefaultFileLocator creates a new file locator.
func NewDefaultFileLocator(logger *zap.Logger) *DefaultFileLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFileLocator{logger: logger}
}

// ConvertIntervalToMinutes converts "5m", "1h", "4h", "1d" style intervals
// to minute numbers; plain numbers pass through unchanged.
func (f *DefaultFileLocator) ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

// FindDataFile locates a candle file for an exchange/symbol/interval,
// trying each market category the exchange supports. Returns an empty
// string when nothing exists.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	intervalMinutes := f.ConvertIntervalToMinutes(interval)

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	attempted := make([]string, 0, len(categories))
	for _, category := range categories {
		path := filepath.Join(dataRoot, exchange, category, symbol, intervalMinutes, "candles.csv")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		attempted = append(attempted, path)
	}

	f.logger.Warn("no data file found",
		zap.String("exchange", exchange),
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Strings("attempted", attempted))
	return ""
}
