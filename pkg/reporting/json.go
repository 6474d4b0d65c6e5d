package reporting

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/validation"
)

// jsonInfCap replaces IEEE infinities before JSON encoding, which cannot
// carry them. A fold profit factor of +Inf (wins, zero losses) becomes this
// sentinel; every other field in a report is finite by construction.
const jsonInfCap = 1e9

// JSONReporter writes an aggregate report as an indented JSON document.
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

// WriteReport writes the report to path, creating parent directories.
func (r *JSONReporter) WriteReport(report *validation.AggregateReport, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	sanitized := sanitizeReport(*report)
	data, err := json.MarshalIndent(&sanitized, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "json_reporter", "marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "json_reporter", "write")
	}
	return nil
}

// sanitizeReport deep-copies the report with every non-finite float capped.
func sanitizeReport(report validation.AggregateReport) validation.AggregateReport {
	scenarios := make([]validation.ScenarioReport, len(report.Scenarios))
	for i, sc := range report.Scenarios {
		results := make([]validation.FoldResult, len(sc.FoldResults))
		for j, fr := range sc.FoldResults {
			fr.Metrics.ProfitFactor = capInf(fr.Metrics.ProfitFactor)
			fr.MetricValue = capInf(fr.MetricValue)
			fr.InSampleScore = capInf(fr.InSampleScore)
			results[j] = fr
		}
		sc.FoldResults = results
		scenarios[i] = sc
	}
	report.Scenarios = scenarios
	return report
}

func capInf(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return jsonInfCap
	case math.IsInf(v, -1):
		return -jsonInfCap
	case math.IsNaN(v):
		return 0
	default:
		return v
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "reporter", "mkdir")
	}
	return nil
}
