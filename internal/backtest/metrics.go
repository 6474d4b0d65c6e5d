package backtest

import "math"

// Metrics are the per-fold performance numbers derived from a trade
// sequence. Computed once, then treated as immutable.
type Metrics struct {
	TotalTrades   int `json:"total_trades"`
	WinningTrades int `json:"winning_trades"`
	LosingTrades  int `json:"losing_trades"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	TotalNetPnL float64 `json:"total_net_pnl"`

	// ProfitFactor is GrossProfit / GrossLoss; +Inf when there are profits
	// and no losses, 0 (not NaN) when there are no trades.
	ProfitFactor float64 `json:"profit_factor"`
	WinRate      float64 `json:"win_rate"`
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Sharpe       float64 `json:"sharpe"`
	Expectancy   float64 `json:"expectancy"`

	MaxConsecutiveWins   int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int `json:"max_consecutive_losses"`
}

// ComputeMetrics derives all metrics from the trade sequence. Trades with
// NetPnL <= 0 count as losses, matching the win-rate convention used for
// the breakeven significance threshold.
func ComputeMetrics(trades []Trade, initialEquity float64) Metrics {
	m := Metrics{}
	if len(trades) == 0 {
		return m
	}

	var (
		equity    = initialEquity
		peak      = initialEquity
		winStreak = 0
		lossStrk  = 0
		returns   = make([]float64, 0, len(trades))
	)

	for _, t := range trades {
		m.TotalTrades++
		m.TotalNetPnL += t.NetPnL
		if initialEquity > 0 {
			returns = append(returns, t.NetPnL/initialEquity)
		}

		if t.NetPnL > 0 {
			m.WinningTrades++
			m.GrossProfit += t.NetPnL
			winStreak++
			lossStrk = 0
		} else {
			m.LosingTrades++
			m.GrossLoss += math.Abs(t.NetPnL)
			lossStrk++
			winStreak = 0
		}
		if winStreak > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = winStreak
		}
		if lossStrk > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = lossStrk
		}

		equity += t.NetPnL
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > m.MaxDrawdown {
				m.MaxDrawdown = dd
			}
		}
	}

	m.ProfitFactor = profitFactor(m.GrossProfit, m.GrossLoss)
	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	if initialEquity > 0 {
		m.TotalReturn = m.TotalNetPnL / initialEquity
	}
	m.Sharpe = sharpeRatio(returns)
	m.Expectancy = expectancy(m)
	return m
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / grossLoss
}

// sharpeRatio is the per-trade mean return over its population standard
// deviation, with no risk-free rate. Zero when undefined.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < 1e-12 {
		return 0
	}
	return mean / stdDev
}

// expectancy = win_rate * avg_win - (1 - win_rate) * avg_loss.
func expectancy(m Metrics) float64 {
	avgWin := 0.0
	if m.WinningTrades > 0 {
		avgWin = m.GrossProfit / float64(m.WinningTrades)
	}
	avgLoss := 0.0
	if m.LosingTrades > 0 {
		avgLoss = m.GrossLoss / float64(m.LosingTrades)
	}
	return m.WinRate*avgWin - (1-m.WinRate)*avgLoss
}
