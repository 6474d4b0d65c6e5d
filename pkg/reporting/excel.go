package reporting

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/validation"
)

// ExcelReporter writes the full validation report as a styled workbook with
// Summary, Scenarios, Folds and Trades sheets.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	Header int
	Base   int
	Number int
	Pass   int
	Fail   int
}

// WriteReport writes the workbook to path, creating parent directories.
func (r *ExcelReporter) WriteReport(report *validation.AggregateReport, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const (
		summarySheet   = "Summary"
		scenariosSheet = "Scenarios"
		foldsSheet     = "Folds"
		tradesSheet    = "Trades"
	)

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(scenariosSheet)
	fx.NewSheet(foldsSheet)
	fx.NewSheet(tradesSheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "excel_reporter", "styles")
	}

	if err := r.writeSummarySheet(fx, summarySheet, report, styles); err != nil {
		return err
	}
	if err := r.writeScenariosSheet(fx, scenariosSheet, report, styles); err != nil {
		return err
	}
	if err := r.writeFoldsSheet(fx, foldsSheet, report, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, tradesSheet, report, styles); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return errors.Wrap(err, errors.CategorySimulation, "excel_reporter", "save")
	}
	return nil
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.Header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Base, err = fx.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Number, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Pass, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "008000"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Fail, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FF0000"},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, report *validation.AggregateReport, styles excelStyles) error {
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 28)

	rows := [][]interface{}{
		{"Generated", report.GeneratedAt.Format(time.RFC3339)},
		{"Rule", report.Rule},
		{"Metric", report.Metric},
		{"Total Bars", report.TotalBars},
		{"Folds", len(report.Folds)},
		{"Cost Scenarios", len(report.Scenarios)},
		{"Excluded Folds", len(report.Exclusions)},
		{"Verdict", string(report.Verdict)},
	}

	for i, row := range rows {
		labelCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valueCell, _ := excelize.CoordinatesToCellName(2, i+1)
		fx.SetCellValue(sheet, labelCell, row[0])
		fx.SetCellValue(sheet, valueCell, row[1])
		fx.SetCellStyle(sheet, labelCell, labelCell, styles.Header)
		fx.SetCellStyle(sheet, valueCell, valueCell, r.verdictStyle(styles, row))
	}
	return nil
}

func (r *ExcelReporter) verdictStyle(styles excelStyles, row []interface{}) int {
	if row[0] != "Verdict" {
		return styles.Base
	}
	if row[1] == string(validation.VerdictPass) {
		return styles.Pass
	}
	return styles.Fail
}

func (r *ExcelReporter) writeScenariosSheet(fx *excelize.File, sheet string, report *validation.AggregateReport, styles excelStyles) error {
	headers := []string{
		"Scenario", "Valid Folds", "Mean", "Std Dev",
		"T-Stat", "P-Value", "Consistency", "Expected Max", "Deflated Excess", "Verdict",
	}
	fx.SetColWidth(sheet, "A", "A", 18)
	fx.SetColWidth(sheet, "B", "J", 14)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.Header)
	}

	for i, sc := range report.Scenarios {
		stats := sc.Stats
		values := []interface{}{
			sc.Scenario.Name,
			stats.ValidFolds,
			stats.Mean,
			stats.StdDev,
			stats.TStat,
			stats.PValue,
			stats.ConsistencyRatio,
			stats.ExpectedMaxChance,
			stats.DeflatedExcess,
			string(stats.Verdict),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			fx.SetCellValue(sheet, cell, v)
			style := styles.Base
			if _, ok := v.(float64); ok {
				style = styles.Number
			}
			if j == len(values)-1 {
				if stats.Verdict == validation.VerdictPass {
					style = styles.Pass
				} else {
					style = styles.Fail
				}
			}
			fx.SetCellStyle(sheet, cell, cell, style)
		}
	}
	return nil
}

func (r *ExcelReporter) writeFoldsSheet(fx *excelize.File, sheet string, report *validation.AggregateReport, styles excelStyles) error {
	headers := []string{
		"Scenario", "Fold", "Params", "Status", "Trades",
		"Win Rate", "Net PnL", "Max Drawdown", "Profit Factor", "Metric Value", "IS Score",
	}
	fx.SetColWidth(sheet, "A", "A", 18)
	fx.SetColWidth(sheet, "C", "C", 32)
	fx.SetColWidth(sheet, "D", "K", 14)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.Header)
	}

	row := 2
	for _, sc := range report.Scenarios {
		for _, fr := range sc.FoldResults {
			status := string(fr.Status)
			if fr.StatusReason != "" {
				status = fmt.Sprintf("%s (%s)", fr.Status, fr.StatusReason)
			}
			values := []interface{}{
				fr.Scenario,
				fr.FoldID,
				fr.Params.String(),
				status,
				fr.Metrics.TotalTrades,
				fr.Metrics.WinRate,
				fr.Metrics.TotalNetPnL,
				fr.Metrics.MaxDrawdown,
				capInf(fr.Metrics.ProfitFactor),
				capInf(fr.MetricValue),
				capInf(fr.InSampleScore),
			}
			for j, v := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, row)
				fx.SetCellValue(sheet, cell, v)
				style := styles.Base
				if _, ok := v.(float64); ok {
					style = styles.Number
				}
				fx.SetCellStyle(sheet, cell, cell, style)
			}
			row++
		}
	}
	return nil
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, report *validation.AggregateReport, styles excelStyles) error {
	headers := []string{
		"Scenario", "Fold", "Direction", "Entry Time", "Exit Time",
		"Entry Price", "Exit Price", "Exit Reason", "Gross PnL", "Cost", "Net PnL",
	}
	fx.SetColWidth(sheet, "A", "A", 18)
	fx.SetColWidth(sheet, "D", "E", 20)
	fx.SetColWidth(sheet, "F", "K", 13)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.Header)
	}

	row := 2
	for _, sc := range report.Scenarios {
		for _, fr := range sc.FoldResults {
			for _, trade := range fr.Trades {
				values := []interface{}{
					fr.Scenario,
					fr.FoldID,
					trade.Direction.String(),
					trade.EntryTime.Format(time.RFC3339),
					trade.ExitTime.Format(time.RFC3339),
					trade.EntryPrice,
					trade.ExitPrice,
					string(trade.ExitReason),
					trade.GrossPnL,
					trade.Cost,
					trade.NetPnL,
				}
				for j, v := range values {
					cell, _ := excelize.CoordinatesToCellName(j+1, row)
					fx.SetCellValue(sheet, cell, v)
					style := styles.Base
					if _, ok := v.(float64); ok {
						style = styles.Number
					}
					fx.SetCellStyle(sheet, cell, cell, style)
				}
				row++
			}
		}
	}
	return nil
}
