package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/types"
)

// WorkerPool executes simulation jobs in parallel. Each job is a pure
// function of its inputs, so workers share nothing but the channels.
type WorkerPool struct {
	workerCount int
	jobQueue    chan SimJob
	resultQueue chan SimResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// SimJob is a single simulation task: one rule instantiation over one bar
// slice under one cost model.
type SimJob struct {
	ID             string
	Bars           []types.Bar
	Rule           strategy.Rule
	Params         strategy.ParameterSet
	Cost           *CostModel
	MaxHoldingBars int
	Volume         float64
	InitialEquity  float64
	VolEstimator   VolatilityEstimator
}

// SimResult is the outcome of one simulation job.
type SimResult struct {
	ID       string
	Params   strategy.ParameterSet
	Trades   []Trade
	Stats    RunStats
	Metrics  Metrics
	Duration time.Duration
}

// NewWorkerPool creates a pool with the given worker count; zero or
// negative means one worker per CPU.
func NewWorkerPool(workerCount, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan SimJob, jobBufferSize),
		resultQueue: make(chan SimResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop drains the pool gracefully: no new jobs, wait for in-flight work.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job, failing only when the pool is shutting down.
func (wp *WorkerPool) Submit(job SimJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel completed jobs arrive on.
func (wp *WorkerPool) Results() <-chan SimResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := runJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

func runJob(job SimJob) SimResult {
	start := time.Now()

	engine := NewEngine(job.Cost, job.MaxHoldingBars, job.Volume)
	engine.SetVolatilityEstimator(job.VolEstimator)

	trades, stats := engine.Run(job.Bars, job.Rule)

	return SimResult{
		ID:       job.ID,
		Params:   job.Params,
		Trades:   trades,
		Stats:    stats,
		Metrics:  ComputeMetrics(trades, job.InitialEquity),
		Duration: time.Since(start),
	}
}
