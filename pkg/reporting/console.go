package reporting

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"walkforward-validator/pkg/validation"
)

// ConsoleReporter renders an aggregate report as terminal tables.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a console reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a console reporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// PrintReport renders the run summary, the per-scenario statistics and the
// exclusion list.
func (r *ConsoleReporter) PrintReport(report *validation.AggregateReport) {
	r.printSummary(report)
	for _, scenario := range report.Scenarios {
		r.printScenario(scenario)
	}
	r.printExclusions(report)
}

func (r *ConsoleReporter) printSummary(report *validation.AggregateReport) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("WALK-FORWARD VALIDATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Rule", report.Rule},
		{"📐 Metric", report.Metric},
		{"🕒 Bars", report.TotalBars},
		{"🧩 Folds", len(report.Folds)},
		{"💱 Cost Scenarios", len(report.Scenarios)},
		{"⚖️  Verdict", verdictLabel(report.Verdict)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 24, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

func (r *ConsoleReporter) printScenario(scenario validation.ScenarioReport) {
	stats := scenario.Stats

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(fmt.Sprintf("SCENARIO %s", scenario.Scenario.Name))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Fold", "Params", "Trades", "Win Rate", "Net PnL", "Max DD", stats.Metric})

	for _, fr := range scenario.FoldResults {
		if fr.Status != validation.FoldOK {
			t.AppendRow(table.Row{fr.FoldID, "-", "-", "-", "-", "-", string(fr.Status)})
			continue
		}
		t.AppendRow(table.Row{
			fr.FoldID,
			fr.Params.String(),
			fr.Metrics.TotalTrades,
			fmt.Sprintf("%.1f%%", fr.Metrics.WinRate*100),
			fmt.Sprintf("%.2f", fr.Metrics.TotalNetPnL),
			fmt.Sprintf("%.2f%%", fr.Metrics.MaxDrawdown*100),
			formatMetric(fr.MetricValue),
		})
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"", "mean ± std", "", "", "", "",
		fmt.Sprintf("%.3f ± %.3f", stats.Mean, stats.StdDev)})
	if stats.HasTTest {
		t.AppendRow(table.Row{"", "t-stat / p-value", "", "", "", "",
			fmt.Sprintf("%.3f / %.4f", stats.TStat, stats.PValue)})
	}
	t.AppendRow(table.Row{"", "consistency", "", "", "", "",
		fmt.Sprintf("%.0f%%", stats.ConsistencyRatio*100)})
	t.AppendRow(table.Row{"", "deflated excess", "", "", "", "",
		fmt.Sprintf("%.3f", stats.DeflatedExcess)})
	t.AppendRow(table.Row{"", "verdict", "", "", "", "", verdictLabel(stats.Verdict)})

	t.Render()
	fmt.Fprintln(r.out)
}

func (r *ConsoleReporter) printExclusions(report *validation.AggregateReport) {
	if len(report.Exclusions) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("EXCLUDED FOLDS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Fold", "Scenario", "Reason"})
	for _, ex := range report.Exclusions {
		scenario := ex.Scenario
		if scenario == "" {
			scenario = "all"
		}
		t.AppendRow(table.Row{ex.FoldID, scenario, ex.Reason})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

func verdictLabel(v validation.Verdict) string {
	switch v {
	case validation.VerdictPass:
		return "✅ PASS"
	case validation.VerdictFail:
		return "❌ FAIL"
	default:
		return "⚠️  INSUFFICIENT DATA"
	}
}

func formatMetric(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.3f", v)
}
