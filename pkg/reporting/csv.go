package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/validation"
)

// CSVReporter writes every out-of-sample trade as one CSV row, across all
// scenarios and folds, for spreadsheet or notebook analysis.
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter.
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

var tradeHeader = []string{
	"scenario", "fold", "params", "direction",
	"entry_time", "exit_time", "entry_price", "exit_price",
	"stop_price", "target_price", "exit_reason",
	"gross_pnl", "cost", "net_pnl",
}

// WriteTrades writes the per-trade ledger to path, creating parent
// directories.
func (r *CSVReporter) WriteTrades(report *validation.AggregateReport, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "csv_reporter", "create")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeHeader); err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "csv_reporter", "write_header")
	}

	for _, scenario := range report.Scenarios {
		for _, fr := range scenario.FoldResults {
			params := fr.Params.String()
			for _, trade := range fr.Trades {
				row := []string{
					fr.Scenario,
					strconv.Itoa(fr.FoldID),
					params,
					trade.Direction.String(),
					trade.EntryTime.Format(time.RFC3339),
					trade.ExitTime.Format(time.RFC3339),
					formatPrice(trade.EntryPrice),
					formatPrice(trade.ExitPrice),
					formatPrice(trade.StopPrice),
					formatPrice(trade.TargetPrice),
					string(trade.ExitReason),
					formatPrice(trade.GrossPnL),
					formatPrice(trade.Cost),
					formatPrice(trade.NetPnL),
				}
				if err := w.Write(row); err != nil {
					return errors.Wrap(err, errors.CategorySimulation, "csv_reporter", "write_row")
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "csv_reporter", "flush")
	}
	return nil
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.5f", v)
}
