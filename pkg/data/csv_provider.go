package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/types"
)

// CSVProvider loads bars from CSV files. Malformed rows are skipped with a
// warning and counted; a missing file is a data error, never silently
// replaced with synthetic bars.
type CSVProvider struct {
	format CSVColumnMapping
	logger *zap.Logger
}

// NewCSVProvider creates a CSV provider with the default column layout.
func NewCSVProvider(logger *zap.Logger) *CSVProvider {
	return NewCSVProviderWithFormat(DefaultCSVFormat, logger)
}

// NewCSVProviderWithFormat creates a CSV provider with a custom layout.
func NewCSVProviderWithFormat(format CSVColumnMapping, logger *zap.Logger) *CSVProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVProvider{format: format, logger: logger}
}

// GetName returns the name of the provider.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData reads the file and parses every row through the column mapping.
func (p *CSVProvider) LoadData(source string) ([]types.Bar, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryData, "csv_provider", "open")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryData, "csv_provider", "read_header")
	}

	var bars []types.Bar
	skipped := 0
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(fmt.Errorf("line %d: %w", lineNum, err), errors.CategoryData, "csv_provider", "read")
		}
		lineNum++

		bar, ok := p.parseRow(record, lineNum)
		if !ok {
			skipped++
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, errors.NewDataError("csv_provider", "load", fmt.Sprintf("no parseable bars in %s", source))
	}
	if skipped > 0 {
		p.logger.Warn("skipped malformed rows", zap.String("source", source), zap.Int("skipped", skipped))
	}
	return bars, nil
}

func (p *CSVProvider) parseRow(record []string, lineNum int) (types.Bar, bool) {
	f := p.format
	if len(record) < f.MinColumns {
		p.logger.Warn("row has too few columns", zap.Int("line", lineNum), zap.Int("columns", len(record)))
		return types.Bar{}, false
	}

	timestamp, err := time.Parse(f.DateFormat, record[f.TimestampCol])
	if err != nil {
		p.logger.Warn("bad timestamp", zap.Int("line", lineNum), zap.String("value", record[f.TimestampCol]))
		return types.Bar{}, false
	}

	fields := [5]float64{}
	for i, col := range [5]int{f.OpenCol, f.HighCol, f.LowCol, f.CloseCol, f.VolumeCol} {
		v, err := strconv.ParseFloat(record[col], 64)
		if err != nil {
			p.logger.Warn("bad numeric field", zap.Int("line", lineNum), zap.String("value", record[col]))
			return types.Bar{}, false
		}
		fields[i] = v
	}

	bar := types.Bar{
		Timestamp: timestamp,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}
	if !bar.Valid() {
		p.logger.Warn("inconsistent bar", zap.Int("line", lineNum), zap.Time("timestamp", timestamp))
		return types.Bar{}, false
	}
	return bar, true
}

// ValidateData checks price consistency and chronological order across the
// whole series.
func (p *CSVProvider) ValidateData(data []types.Bar) error {
	if len(data) == 0 {
		return errors.NewDataError("csv_provider", "validate", "no bars provided")
	}
	for i, bar := range data {
		if !bar.Valid() {
			return errors.NewDataError("csv_provider", "validate", fmt.Sprintf("invalid bar at index %d", i))
		}
		if i > 0 && !bar.Timestamp.After(data[i-1].Timestamp) {
			return errors.NewDataError("csv_provider", "validate",
				fmt.Sprintf("timestamps not strictly increasing at index %d", i))
		}
	}
	return nil
}
