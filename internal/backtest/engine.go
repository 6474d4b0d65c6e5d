package backtest

import (
	"time"

	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/types"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitTime       ExitReason = "TIME_EXIT"
	ExitFinal      ExitReason = "FINAL_EXIT"
)

// Trade is one completed round trip. Entry and exit always sit on different
// bars; there is no same-bar open and close.
type Trade struct {
	EntryTime   time.Time          `json:"entry_time"`
	ExitTime    time.Time          `json:"exit_time"`
	EntryIndex  int                `json:"entry_index"`
	ExitIndex   int                `json:"exit_index"`
	Direction   strategy.Direction `json:"direction"`
	EntryPrice  float64            `json:"entry_price"`
	ExitPrice   float64            `json:"exit_price"`
	StopPrice   float64            `json:"stop_price"`
	TargetPrice float64            `json:"target_price"`
	ExitReason  ExitReason         `json:"exit_reason"`
	GrossPnL    float64            `json:"gross_pnl"`
	Cost        float64            `json:"cost"`
	NetPnL      float64            `json:"net_pnl"`
}

// RunStats is the immutable per-run statistics object returned alongside the
// trades. Nothing in the engine mutates shared state between runs.
type RunStats struct {
	BarsProcessed    int `json:"bars_processed"`
	InvalidBars      int `json:"invalid_bars"`
	SignalsGenerated int `json:"signals_generated"`
}

// VolatilityEstimator supplies the dimensionless recent-volatility scale
// used by volatility-scaled slippage. It sees the history up to and
// including the entry bar.
type VolatilityEstimator func(bars []types.Bar, entryIndex int) float64

// position is the single-position state machine: FLAT -> OPEN -> FLAT.
type position struct {
	open        bool
	direction   strategy.Direction
	entryPrice  float64
	entryIndex  int
	stopPrice   float64
	targetPrice float64
}

func (p position) state() strategy.PositionState {
	if !p.open {
		return strategy.PositionFlat
	}
	if p.direction == strategy.DirectionLong {
		return strategy.PositionLong
	}
	return strategy.PositionShort
}

// Engine is the bar-by-bar execution simulator. A single Run is strictly
// sequential and touches no shared state, so distinct runs may execute
// concurrently on different goroutines.
type Engine struct {
	cost           *CostModel
	maxHoldingBars int
	volume         float64
	volEstimator   VolatilityEstimator
}

// NewEngine creates a simulator for one cost model. maxHoldingBars forces a
// TIME_EXIT once a position has been held that many bars; volume sizes every
// trade identically.
func NewEngine(cost *CostModel, maxHoldingBars int, volume float64) *Engine {
	return &Engine{
		cost:           cost,
		maxHoldingBars: maxHoldingBars,
		volume:         volume,
		volEstimator:   func([]types.Bar, int) float64 { return 1.0 },
	}
}

// SetVolatilityEstimator overrides the constant 1.0 estimator. Needed only
// for volatility-scaled cost scenarios.
func (e *Engine) SetVolatilityEstimator(est VolatilityEstimator) {
	if est != nil {
		e.volEstimator = est
	}
}

// Run simulates the rule over the bar sequence and returns the completed
// trades in chronological order.
//
// The look-ahead firewall: at bar i the rule sees bars[0..i] inclusive, a
// fill happens at bars[i].Close, and the earliest exit evaluation is at
// bars[i+1]. Stops and targets are checked against the current bar's
// high/low only, stop before target. Invalid bars are skipped for
// decision-making and counted in RunStats.
func (e *Engine) Run(bars []types.Bar, rule strategy.Rule) ([]Trade, RunStats) {
	var (
		trades []Trade
		stats  RunStats
		pos    position
	)

	warmup := rule.WarmupBars()
	lastValid := -1

	for i := 0; i < len(bars); i++ {
		stats.BarsProcessed++
		bar := bars[i]

		if !bar.Valid() {
			stats.InvalidBars++
			continue
		}
		lastValid = i

		if pos.open && i > pos.entryIndex {
			if trade, closed := e.evaluateExit(bars, i, &pos); closed {
				trades = append(trades, trade)
				pos = position{}
			}
		}

		if !pos.open && i+1 >= warmup {
			intent := rule.ProduceSignal(bars[:i+1], pos.state())
			if intent == nil {
				continue
			}
			stats.SignalsGenerated++
			if !intentValid(intent, bar.Close) {
				continue
			}
			pos = position{
				open:        true,
				direction:   intent.Direction,
				entryPrice:  bar.Close,
				entryIndex:  i,
				stopPrice:   intent.StopPrice,
				targetPrice: intent.TargetPrice,
			}
		}
	}

	// Force-close anything still open at the last valid bar.
	if pos.open && lastValid > pos.entryIndex {
		trades = append(trades, e.closeTrade(bars, lastValid, pos, bars[lastValid].Close, ExitFinal))
	}

	return trades, stats
}

// evaluateExit checks stop, target and holding time against the current bar.
// Stop is checked before target so an ambiguous bar that touches both
// resolves to the conservative outcome.
func (e *Engine) evaluateExit(bars []types.Bar, i int, pos *position) (Trade, bool) {
	bar := bars[i]

	if pos.direction == strategy.DirectionLong {
		if bar.Low <= pos.stopPrice {
			return e.closeTrade(bars, i, *pos, pos.stopPrice, ExitStopLoss), true
		}
		if bar.High >= pos.targetPrice {
			return e.closeTrade(bars, i, *pos, pos.targetPrice, ExitTakeProfit), true
		}
	} else {
		if bar.High >= pos.stopPrice {
			return e.closeTrade(bars, i, *pos, pos.stopPrice, ExitStopLoss), true
		}
		if bar.Low <= pos.targetPrice {
			return e.closeTrade(bars, i, *pos, pos.targetPrice, ExitTakeProfit), true
		}
	}

	if e.maxHoldingBars > 0 && i-pos.entryIndex >= e.maxHoldingBars {
		return e.closeTrade(bars, i, *pos, bar.Close, ExitTime), true
	}

	return Trade{}, false
}

func (e *Engine) closeTrade(bars []types.Bar, exitIndex int, pos position, exitPrice float64, reason ExitReason) Trade {
	volScale := e.volEstimator(bars[:pos.entryIndex+1], pos.entryIndex)
	gross, cost, net := e.cost.Apply(pos.direction, pos.entryPrice, exitPrice, e.volume, volScale)

	return Trade{
		EntryTime:   bars[pos.entryIndex].Timestamp,
		ExitTime:    bars[exitIndex].Timestamp,
		EntryIndex:  pos.entryIndex,
		ExitIndex:   exitIndex,
		Direction:   pos.direction,
		EntryPrice:  pos.entryPrice,
		ExitPrice:   exitPrice,
		StopPrice:   pos.stopPrice,
		TargetPrice: pos.targetPrice,
		ExitReason:  reason,
		GrossPnL:    gross,
		Cost:        cost,
		NetPnL:      net,
	}
}

// intentValid rejects intents whose stop/target ordering is inconsistent
// with the entry price. Such intents count as generated signals but never
// open a position.
func intentValid(intent *strategy.SignalIntent, entry float64) bool {
	if intent.StopPrice <= 0 || intent.TargetPrice <= 0 {
		return false
	}
	switch intent.Direction {
	case strategy.DirectionLong:
		return intent.StopPrice < entry && intent.TargetPrice > entry
	case strategy.DirectionShort:
		return intent.StopPrice > entry && intent.TargetPrice < entry
	default:
		return false
	}
}
