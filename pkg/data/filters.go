package data

import (
	"fmt"
	"sort"
	"time"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/types"
)

// DefaultFilter implements Filter for common pre-validation operations.
type DefaultFilter struct{}

// NewDefaultFilter creates a new default filter.
func NewDefaultFilter() *DefaultFilter {
	return &DefaultFilter{}
}

// FilterByPeriod keeps the trailing period of the series, measured back
// from the last bar's timestamp.
func (f *DefaultFilter) FilterByPeriod(data []types.Bar, period time.Duration) []types.Bar {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp.Add(-period)
	idx := sort.Search(len(data), func(i int) bool {
		return !data[i].Timestamp.Before(cutoff)
	})
	return data[idx:]
}

// FilterByDateRange keeps bars with timestamps inside [start, end].
func (f *DefaultFilter) FilterByDateRange(data []types.Bar, start, end time.Time) []types.Bar {
	var filtered []types.Bar
	for _, bar := range data {
		if !bar.Timestamp.Before(start) && !bar.Timestamp.After(end) {
			filtered = append(filtered, bar)
		}
	}
	return filtered
}

// ValidateTimeSequence ensures strictly increasing timestamps: no
// regressions and no duplicates.
func (f *DefaultFilter) ValidateTimeSequence(data []types.Bar) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return errors.NewDataError("filter", "time_sequence",
				fmt.Sprintf("out of order at index %d: %s comes after %s",
					i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339)))
		}
		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return errors.NewDataError("filter", "time_sequence",
				fmt.Sprintf("duplicate timestamp at index %d: %s", i, data[i].Timestamp.Format(time.RFC3339)))
		}
	}
	return nil
}

// SortByTimestamp returns a chronologically sorted copy; the input is not
// modified.
func (f *DefaultFilter) SortByTimestamp(data []types.Bar) []types.Bar {
	sorted := make([]types.Bar, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RemoveDuplicates drops bars whose timestamp repeats, keeping the first
// occurrence.
func (f *DefaultFilter) RemoveDuplicates(data []types.Bar) []types.Bar {
	if len(data) <= 1 {
		return data
	}
	filtered := make([]types.Bar, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, bar := range data {
		key := bar.Timestamp.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		filtered = append(filtered, bar)
	}
	return filtered
}
