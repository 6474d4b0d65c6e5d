package validation

import (
	"fmt"

	"walkforward-validator/internal/errors"
)

// FoldSplitter partitions a bar sequence into chronological walk-forward
// folds. Each fold is an in-sample window, a purge gap, and an out-of-sample
// window; an embargo gap separates the fold's out-of-sample end from the next
// fold's in-sample start. The split works on bar counts only, so it never
// touches price data.
type FoldSplitter struct {
	FoldCount   int
	ISFraction  float64
	PurgeBars   int
	EmbargoBars int
	MinOOSBars  int
}

// NewFoldSplitter validates the partition geometry up front; every invalid
// combination is a config error raised before any simulation starts.
func NewFoldSplitter(foldCount int, isFraction float64, purgeBars, embargoBars, minOOSBars int) (*FoldSplitter, error) {
	if foldCount < 1 {
		return nil, errors.NewConfigError("splitter", "new", fmt.Sprintf("fold count must be >= 1, got %d", foldCount))
	}
	if isFraction <= 0 || isFraction >= 1 {
		return nil, errors.NewConfigError("splitter", "new", fmt.Sprintf("in-sample fraction must be in (0, 1), got %g", isFraction))
	}
	if purgeBars < 0 {
		return nil, errors.NewConfigError("splitter", "new", fmt.Sprintf("purge bars must be >= 0, got %d", purgeBars))
	}
	if embargoBars < 0 {
		return nil, errors.NewConfigError("splitter", "new", fmt.Sprintf("embargo bars must be >= 0, got %d", embargoBars))
	}
	if minOOSBars < 0 {
		return nil, errors.NewConfigError("splitter", "new", fmt.Sprintf("min out-of-sample bars must be >= 0, got %d", minOOSBars))
	}
	return &FoldSplitter{
		FoldCount:   foldCount,
		ISFraction:  isFraction,
		PurgeBars:   purgeBars,
		EmbargoBars: embargoBars,
		MinOOSBars:  minOOSBars,
	}, nil
}

// Split partitions totalBars into folds. The sequence is divided into
// FoldCount equal strides walking forward; within each stride the first
// ISFraction of the usable bars (stride minus the trailing embargo) is
// in-sample, then PurgeBars are discarded, and the remainder is
// out-of-sample.
//
// A fold whose out-of-sample window is shorter than MinOOSBars is dropped
// and reported in the returned exclusions, never silently zero-filled. A
// geometry where purge or embargo leaves no out-of-sample room at all is a
// config error instead: that is a misconfiguration, not a data problem.
func (s *FoldSplitter) Split(totalBars int) ([]Fold, []Exclusion, error) {
	if totalBars < s.FoldCount {
		return nil, nil, errors.NewConfigError("splitter", "split",
			fmt.Sprintf("%d bars cannot form %d folds", totalBars, s.FoldCount))
	}

	stride := totalBars / s.FoldCount
	usable := stride - s.EmbargoBars
	isLen := int(float64(usable) * s.ISFraction)
	oosLen := usable - isLen - s.PurgeBars

	if isLen < 1 {
		return nil, nil, errors.NewConfigError("splitter", "split",
			fmt.Sprintf("in-sample window is empty: stride %d, embargo %d, fraction %g", stride, s.EmbargoBars, s.ISFraction))
	}
	if oosLen < 1 {
		return nil, nil, errors.NewConfigError("splitter", "split",
			fmt.Sprintf("purge/embargo leave no out-of-sample room: stride %d, in-sample %d, purge %d, embargo %d",
				stride, isLen, s.PurgeBars, s.EmbargoBars))
	}

	folds := make([]Fold, 0, s.FoldCount)
	var exclusions []Exclusion
	for i := 0; i < s.FoldCount; i++ {
		start := i * stride
		fold := Fold{
			ID:        i,
			ISStart:   start,
			ISEnd:     start + isLen,
			OOSStart:  start + isLen + s.PurgeBars,
			OOSEnd:    start + usable,
			PurgeBars: s.PurgeBars,
		}
		// The last fold has no successor to embargo against, so it absorbs
		// the trailing embargo and any integer-division remainder.
		if i == s.FoldCount-1 {
			fold.OOSEnd = totalBars
		}
		if fold.OOSBars() < s.MinOOSBars {
			exclusions = append(exclusions, Exclusion{FoldID: fold.ID, Reason: ReasonInsufficientOOSBars})
			continue
		}
		folds = append(folds, fold)
	}
	return folds, exclusions, nil
}
