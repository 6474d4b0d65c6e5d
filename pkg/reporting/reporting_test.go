package reporting

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/validation"
)

func sampleReport() *validation.AggregateReport {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	trade := backtest.Trade{
		EntryTime:  base,
		ExitTime:   base.Add(4 * time.Hour),
		EntryIndex: 10,
		ExitIndex:  14,
		Direction:  strategy.DirectionLong,
		EntryPrice: 1.1000,
		ExitPrice:  1.1050,
		ExitReason: backtest.ExitTakeProfit,
		GrossPnL:   50,
		Cost:       2,
		NetPnL:     48,
	}

	okFold := validation.FoldResult{
		FoldID:        0,
		Scenario:      "realistic",
		Params:        strategy.ParameterSet{"period": 20},
		InSampleScore: 1.8,
		Trades:        []backtest.Trade{trade},
		Metrics: backtest.Metrics{
			TotalTrades:  1,
			WinRate:      1.0,
			TotalNetPnL:  48,
			ProfitFactor: math.Inf(1),
		},
		Status:      validation.FoldOK,
		MetricValue: math.Inf(1),
	}
	badFold := validation.FoldResult{
		FoldID:       1,
		Scenario:     "realistic",
		Status:       validation.FoldInsufficient,
		StatusReason: validation.ReasonInsufficientOOSBars,
	}

	return &validation.AggregateReport{
		GeneratedAt: base,
		Rule:        "breakout",
		Metric:      "profit_factor",
		TotalBars:   1000,
		Folds: []validation.Fold{
			{ID: 0, ISStart: 0, ISEnd: 300, OOSStart: 310, OOSEnd: 500},
			{ID: 1, ISStart: 500, ISEnd: 800, OOSStart: 810, OOSEnd: 1000},
		},
		Scenarios: []validation.ScenarioReport{
			{
				Scenario:    backtest.CostScenario{Name: "realistic", SpreadPips: 1, PipValue: 0.01},
				FoldResults: []validation.FoldResult{okFold, badFold},
				Stats: validation.CrossFoldStats{
					Metric:     "profit_factor",
					ValidFolds: 1,
					Verdict:    validation.VerdictInsufficientData,
				},
			},
		},
		Exclusions: []validation.Exclusion{
			{FoldID: 1, Scenario: "realistic", Reason: validation.ReasonInsufficientOOSBars},
		},
		Verdict: validation.VerdictInsufficientData,
	}
}

func TestConsoleReporter_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporterTo(&buf).PrintReport(sampleReport())

	out := buf.String()
	assert.Contains(t, out, "WALK-FORWARD VALIDATION")
	assert.Contains(t, out, "breakout")
	assert.Contains(t, out, "SCENARIO realistic")
	assert.Contains(t, out, "EXCLUDED FOLDS")
	assert.Contains(t, out, validation.ReasonInsufficientOOSBars)
	// Infinite profit factor renders as the infinity glyph, not "+Inf".
	assert.Contains(t, out, "∞")
	assert.NotContains(t, out, "+Inf")
}

func TestJSONReporter_WriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, NewJSONReporter().WriteReport(sampleReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded validation.AggregateReport
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "breakout", decoded.Rule)
	require.Len(t, decoded.Scenarios, 1)
	require.Len(t, decoded.Scenarios[0].FoldResults, 2)

	// Infinities are capped so the document stays valid JSON.
	pf := decoded.Scenarios[0].FoldResults[0].Metrics.ProfitFactor
	assert.Equal(t, jsonInfCap, pf)
	assert.Equal(t, jsonInfCap, decoded.Scenarios[0].FoldResults[0].MetricValue)
}

func TestJSONReporter_DoesNotMutateInput(t *testing.T) {
	report := sampleReport()
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, NewJSONReporter().WriteReport(report, path))

	assert.True(t, math.IsInf(report.Scenarios[0].FoldResults[0].MetricValue, 1))
}

func TestCSVReporter_WriteTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, NewCSVReporter().WriteTrades(sampleReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "scenario,fold,params,direction")
	assert.Contains(t, out, "realistic,0,")
	assert.Contains(t, out, "LONG")
	assert.Contains(t, out, "TAKE_PROFIT")
}

func TestExcelReporter_WriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.xlsx")
	require.NoError(t, NewExcelReporter().WriteReport(sampleReport(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
