package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkforward-validator/internal/errors"
	"walkforward-validator/pkg/validation"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const jsonConfig = `{
  "rule": "breakout",
  "data_file": "data/eurusd_h1.csv",
  "fold_count": 4,
  "is_fraction": 0.75,
  "purge_bars": 20,
  "embargo_bars": 15,
  "min_oos_bars": 100,
  "min_trades_per_fold": 10,
  "max_holding_bars": 48,
  "metric": "sharpe",
  "alpha": 0.01,
  "min_consistency_ratio": 0.7,
  "mode": "strict",
  "budget_seconds": 300,
  "parameter_grid": {
    "lookback": [10, 20, 40],
    "atr_period": [14],
    "stop_atr": [1.5, 2],
    "target_atr": [3]
  },
  "cost_scenarios": [
    {"name": "base", "spread_pips": 1, "slippage_model": "fixed", "pip_value": 0.0001},
    {"name": "stressed", "spread_pips": 3, "slippage_pips": 2, "slippage_model": "volatility_scaled", "pip_value": 0.0001}
  ]
}`

const yamlConfig = `
rule: mean_reversion
fold_count: 6
metric: profit_factor
mode: lenient
parameter_grid:
  lookback: [20, 50]
  entry_z: [1.5, 2.0]
  atr_period: [14]
  stop_atr: [2]
cost_scenarios:
  - name: base
    spread_pips: 1
    slippage_model: fixed
    pip_value: 0.0001
`

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, "breakout", cfg.Rule)
	assert.Equal(t, 4, cfg.FoldCount)
	assert.Equal(t, 0.75, cfg.ISFraction)
	assert.Equal(t, "sharpe", cfg.Metric)
	assert.Equal(t, "strict", cfg.Mode)
	assert.Equal(t, 12, cfg.Grid().Size())
	require.Len(t, cfg.CostScenarios, 2)
	assert.Equal(t, "stressed", cfg.CostScenarios[1].Name)

	settings := cfg.Settings()
	assert.Equal(t, validation.ModeStrict, settings.Mode)
	assert.Equal(t, validation.MetricSharpe, settings.Metric)
	assert.Equal(t, 5*time.Minute, settings.Budget)
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "run.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "mean_reversion", cfg.Rule)
	assert.Equal(t, 6, cfg.FoldCount)

	// Everything not in the file keeps its default.
	defaults := Default()
	assert.Equal(t, defaults.ISFraction, cfg.ISFraction)
	assert.Equal(t, defaults.MinOOSBars, cfg.MinOOSBars)
	assert.Equal(t, defaults.Alpha, cfg.Alpha)
	assert.Equal(t, defaults.InitialEquity, cfg.InitialEquity)
	assert.Equal(t, defaults.VolatilityPeriod, cfg.VolatilityPeriod)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "run.toml", "rule = 'x'"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(writeFile(t, "bad.json", "{not json"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeFile(t, "run.json", jsonConfig))
		require.NoError(t, err)
		return cfg
	}

	t.Run("valid passes", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing rule", func(t *testing.T) {
		cfg := base()
		cfg.Rule = ""
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("empty grid", func(t *testing.T) {
		cfg := base()
		cfg.ParameterGrid = nil
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("grid entry without values", func(t *testing.T) {
		cfg := base()
		cfg.ParameterGrid["lookback"] = nil
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("no cost scenarios", func(t *testing.T) {
		cfg := base()
		cfg.CostScenarios = nil
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("bad metric", func(t *testing.T) {
		cfg := base()
		cfg.Metric = "sortino"
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("bad mode", func(t *testing.T) {
		cfg := base()
		cfg.Mode = "casual"
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})

	t.Run("negative budget", func(t *testing.T) {
		cfg := base()
		cfg.BudgetSeconds = -1
		assert.True(t, errors.IsConfig(cfg.Validate()))
	})
}
