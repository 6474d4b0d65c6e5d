package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"walkforward-validator/internal/backtest"
	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/optimization"
	"walkforward-validator/pkg/validation"
)

// Config is the full description of one walk-forward validation run. It is
// loaded from a JSON or YAML file and translated into validator settings.
type Config struct {
	Rule     string `json:"rule" yaml:"rule"`
	DataFile string `json:"data_file" yaml:"data_file"`

	FoldCount   int     `json:"fold_count" yaml:"fold_count"`
	ISFraction  float64 `json:"is_fraction" yaml:"is_fraction"`
	PurgeBars   int     `json:"purge_bars" yaml:"purge_bars"`
	EmbargoBars int     `json:"embargo_bars" yaml:"embargo_bars"`
	MinOOSBars  int     `json:"min_oos_bars" yaml:"min_oos_bars"`

	MinTradesPerFold      int     `json:"min_trades_per_fold" yaml:"min_trades_per_fold"`
	MaxHoldingBars        int     `json:"max_holding_bars" yaml:"max_holding_bars"`
	MaxInvalidBarFraction float64 `json:"max_invalid_bar_fraction" yaml:"max_invalid_bar_fraction"`

	Metric              string  `json:"metric" yaml:"metric"`
	Alpha               float64 `json:"alpha" yaml:"alpha"`
	MinConsistencyRatio float64 `json:"min_consistency_ratio" yaml:"min_consistency_ratio"`
	Mode                string  `json:"mode" yaml:"mode"`

	Volume           float64 `json:"volume" yaml:"volume"`
	InitialEquity    float64 `json:"initial_equity" yaml:"initial_equity"`
	Workers          int     `json:"workers" yaml:"workers"`
	BudgetSeconds    int     `json:"budget_seconds" yaml:"budget_seconds"`
	VolatilityPeriod int     `json:"volatility_period" yaml:"volatility_period"`

	ParameterGrid map[string][]float64    `json:"parameter_grid" yaml:"parameter_grid"`
	CostScenarios []backtest.CostScenario `json:"cost_scenarios" yaml:"cost_scenarios"`
}

// Default returns a config with every tunable at its conventional value;
// the rule, data file, grid and cost scenarios have no sensible default and
// stay empty.
func Default() *Config {
	return &Config{
		FoldCount:             5,
		ISFraction:            0.7,
		PurgeBars:             10,
		EmbargoBars:           10,
		MinOOSBars:            50,
		MinTradesPerFold:      5,
		MaxHoldingBars:        100,
		MaxInvalidBarFraction: 0.05,
		Metric:                string(validation.MetricProfitFactor),
		Alpha:                 0.05,
		MinConsistencyRatio:   0.6,
		Mode:                  string(validation.ModeLenient),
		Volume:                1,
		InitialEquity:         10_000,
		VolatilityPeriod:      14,
	}
}

// Load reads a config file, picking the decoder by extension (.json, .yaml
// or .yml), over the defaults. The loaded config is validated before it is
// returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "config", "load")
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.NewConfigError("config", "load",
			fmt.Sprintf("unsupported config extension %q (want .json, .yaml or .yml)", filepath.Ext(path)))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "config", "parse")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks everything that can be checked without data. Geometry and
// statistical parameters get a second, authoritative check when the
// validator pipeline is constructed; this pass catches the obvious
// mistakes with file/field context.
func (c *Config) Validate() error {
	if c.Rule == "" {
		return errors.NewConfigError("config", "validate", "rule is required")
	}
	if len(c.ParameterGrid) == 0 {
		return errors.NewConfigError("config", "validate", "parameter_grid must not be empty")
	}
	for name, values := range c.ParameterGrid {
		if len(values) == 0 {
			return errors.NewConfigError("config", "validate", fmt.Sprintf("parameter_grid entry %q has no values", name))
		}
	}
	if len(c.CostScenarios) == 0 {
		return errors.NewConfigError("config", "validate", "at least one cost scenario is required")
	}
	for _, sc := range c.CostScenarios {
		if err := sc.Validate(); err != nil {
			return errors.Wrap(err, errors.CategoryConfig, "config", "validate")
		}
	}
	if err := validation.Metric(c.Metric).Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "config", "validate")
	}
	if err := validation.Mode(c.Mode).Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "config", "validate")
	}
	if c.Volume <= 0 {
		return errors.NewConfigError("config", "validate", fmt.Sprintf("volume must be positive, got %g", c.Volume))
	}
	if c.InitialEquity <= 0 {
		return errors.NewConfigError("config", "validate", fmt.Sprintf("initial_equity must be positive, got %g", c.InitialEquity))
	}
	if c.BudgetSeconds < 0 {
		return errors.NewConfigError("config", "validate", fmt.Sprintf("budget_seconds must be >= 0, got %d", c.BudgetSeconds))
	}
	return nil
}

// Settings translates the config into validator settings.
func (c *Config) Settings() validation.Settings {
	return validation.Settings{
		FoldCount:             c.FoldCount,
		ISFraction:            c.ISFraction,
		PurgeBars:             c.PurgeBars,
		EmbargoBars:           c.EmbargoBars,
		MinOOSBars:            c.MinOOSBars,
		MinTradesPerFold:      c.MinTradesPerFold,
		MaxHoldingBars:        c.MaxHoldingBars,
		MaxInvalidBarFraction: c.MaxInvalidBarFraction,
		Metric:                validation.Metric(c.Metric),
		Alpha:                 c.Alpha,
		MinConsistencyRatio:   c.MinConsistencyRatio,
		Mode:                  validation.Mode(c.Mode),
		Volume:                c.Volume,
		InitialEquity:         c.InitialEquity,
		Workers:               c.Workers,
		Budget:                time.Duration(c.BudgetSeconds) * time.Second,
		VolatilityPeriod:      c.VolatilityPeriod,
	}
}

// Grid returns the parameter grid in the optimizer's type.
func (c *Config) Grid() optimization.Grid {
	return optimization.Grid(c.ParameterGrid)
}
