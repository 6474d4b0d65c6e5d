package backtest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/internal/strategy"
)

func TestWorkerPool_ProcessesAllJobs(t *testing.T) {
	bars := makeBars(100, 100)
	bars[32].High = 111

	cost := pipCostModel(t, 1, 0, 0)
	pool := NewWorkerPool(4, 16)
	pool.Start()

	const jobs = 8
	for i := 0; i < jobs; i++ {
		err := pool.Submit(SimJob{
			ID:   fmt.Sprintf("job-%d", i),
			Bars: bars,
			Rule: &stubRule{signalAt: map[int]*strategy.SignalIntent{
				30: {Direction: strategy.DirectionLong, StopPrice: 95, TargetPrice: 110},
			}},
			Cost:          cost,
			Volume:        1,
			InitialEquity: 10000,
		})
		require.NoError(t, err)
	}

	seen := map[string]SimResult{}
	for i := 0; i < jobs; i++ {
		res := <-pool.Results()
		seen[res.ID] = res
	}
	pool.Stop()

	require.Len(t, seen, jobs)
	for id, res := range seen {
		assert.Len(t, res.Trades, 1, "job %s", id)
		assert.Equal(t, 1, res.Metrics.TotalTrades)
	}
}

// Parallel execution must not change results: every worker runs a pure
// function of the job inputs.
func TestWorkerPool_ResultsIndependentOfScheduling(t *testing.T) {
	bars := makeBars(150, 100)
	bars[40].High = 111
	bars[90].High = 111

	signals := map[int]*strategy.SignalIntent{
		38: {Direction: strategy.DirectionLong, StopPrice: 95, TargetPrice: 110},
		88: {Direction: strategy.DirectionLong, StopPrice: 95, TargetPrice: 110},
	}
	cost := pipCostModel(t, 1, 0, 0)

	run := func(workers int) map[string]Metrics {
		pool := NewWorkerPool(workers, 8)
		pool.Start()
		for i := 0; i < 6; i++ {
			require.NoError(t, pool.Submit(SimJob{
				ID:            fmt.Sprintf("job-%d", i),
				Bars:          bars,
				Rule:          &stubRule{signalAt: signals},
				Cost:          cost,
				Volume:        1,
				InitialEquity: 10000,
			}))
		}
		out := map[string]Metrics{}
		for i := 0; i < 6; i++ {
			res := <-pool.Results()
			out[res.ID] = res.Metrics
		}
		pool.Stop()
		return out
	}

	assert.Equal(t, run(1), run(8))
}
