package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"walkforward-validator/cmd/common"
	"walkforward-validator/internal/logger"
	"walkforward-validator/internal/monitoring"
	"walkforward-validator/internal/strategy"
	"walkforward-validator/pkg/config"
	"walkforward-validator/pkg/data"
	"walkforward-validator/pkg/reporting"
	"walkforward-validator/pkg/validation"
)

const defaultDataRoot = "data"

func main() {
	var (
		configFile  = flag.String("config", "", "Path to validation config file (.json, .yaml or .yml)")
		dataFile    = flag.String("data", "", "Path to historical data file (overrides config and locator)")
		dataRoot    = flag.String("data-root", defaultDataRoot, "Root folder containing <EXCHANGE>/<CATEGORY>/<SYMBOL>/<INTERVAL>/candles.csv")
		exchange    = flag.String("exchange", "bybit", "Exchange folder to search for data")
		symbol      = flag.String("symbol", "", "Trading symbol used with the data locator (e.g. BTCUSDT)")
		interval    = flag.String("interval", "1h", "Data interval used with the data locator (e.g. 15m, 1h, 4h)")
		periodStr   = flag.String("period", "", "Limit data to trailing window (e.g. 30d, 180d or a Go duration)")
		outDir      = flag.String("out-dir", "results", "Directory for report files")
		consoleOnly = flag.Bool("console-only", false, "Only display results in console, do not write report files")
		monitorAddr = flag.String("monitor", "", "Listen address for /health and /metrics (empty disables)")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		envFile     = flag.String("env", ".env", "Environment file path")
		showVersion = flag.Bool("version", false, "Print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		common.PrintVersion("walkforward")
		return
	}

	// Optional; a missing .env is not an error.
	_ = godotenv.Load(*envFile)

	log := logger.New(*logLevel)
	defer log.Sync()

	if *configFile == "" {
		fmt.Fprintln(os.Stderr, "usage: walkforward -config <file> [-data <file>] [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(log, *configFile, *dataFile, *dataRoot, *exchange, *symbol, *interval, *periodStr, *outDir, *consoleOnly, *monitorAddr); err != nil {
		log.Error("validation run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger, configFile, dataFile, dataRoot, exchange, symbol, interval, periodStr, outDir string, consoleOnly bool, monitorAddr string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	health := monitoring.NewHealthChecker()
	if monitorAddr != "" {
		startMonitorServer(log, monitorAddr, health)
	}

	health.SetPhase("loading_data")
	manager := data.NewManager(log)

	path := dataFile
	if path == "" {
		path = cfg.DataFile
	}
	if path == "" && symbol != "" {
		path = manager.FindDataFile(dataRoot, exchange, symbol, interval)
	}
	if path == "" {
		return fmt.Errorf("no data file: pass -data, set data_file in the config, or pass -symbol for the locator")
	}

	bars, err := manager.Load(path)
	if err != nil {
		return err
	}
	log.Info("data loaded", zap.String("file", path), zap.Int("bars", len(bars)))

	if periodStr != "" {
		period, ok := data.ParseTrailingPeriod(periodStr)
		if !ok {
			return fmt.Errorf("invalid trailing period %q", periodStr)
		}
		bars = manager.FilterByPeriod(bars, period)
		log.Info("trailing period applied", zap.Duration("period", period), zap.Int("bars", len(bars)))
	}

	factory, err := strategy.FactoryFor(cfg.Rule)
	if err != nil {
		return err
	}

	validator, err := validation.NewValidator(cfg.Settings(), cfg.Rule, factory, cfg.Grid(), cfg.CostScenarios, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health.SetPhase("validating")
	started := time.Now()
	report, err := validator.Run(ctx, bars)
	if err != nil {
		health.RecordError(err.Error())
		return err
	}
	log.Info("validation complete",
		zap.Duration("elapsed", time.Since(started)),
		zap.String("verdict", string(report.Verdict)))

	health.SetPhase("reporting")
	reporting.NewConsoleReporter().PrintReport(report)

	if !consoleOnly {
		stamp := time.Now().Format("20060102_150405")
		base := filepath.Join(outDir, fmt.Sprintf("%s_%s", cfg.Rule, stamp))

		jsonPath := base + ".json"
		if err := reporting.NewJSONReporter().WriteReport(report, jsonPath); err != nil {
			return err
		}
		csvPath := base + "_trades.csv"
		if err := reporting.NewCSVReporter().WriteTrades(report, csvPath); err != nil {
			return err
		}
		xlsxPath := base + ".xlsx"
		if err := reporting.NewExcelReporter().WriteReport(report, xlsxPath); err != nil {
			return err
		}
		log.Info("reports written",
			zap.String("json", jsonPath),
			zap.String("trades", csvPath),
			zap.String("workbook", xlsxPath))
	}

	health.SetPhase("done")
	return nil
}

func startMonitorServer(log *zap.Logger, addr string, health *monitoring.HealthChecker) {
	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/metrics", monitoring.NewMetricsHandler())

	go func() {
		log.Info("monitoring server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("monitoring server stopped", zap.Error(err))
		}
	}()
}
