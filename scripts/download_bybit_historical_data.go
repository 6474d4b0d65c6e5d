// Downloads historical klines from the public Bybit v5 API and writes them
// in the candle layout the validator's file locator expects:
// {outdir}/{category}/{SYMBOL}/{interval-minutes}/candles.csv
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type kline struct {
	StartTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
}

type bybitResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	} `json:"result"`
}

func main() {
	var (
		symbols    = flag.String("symbols", "BTCUSDT", "Comma-separated list of symbols")
		intervals  = flag.String("intervals", "60", "Comma-separated Bybit intervals (1, 5, 15, 60, 240, D, W)")
		categories = flag.String("categories", "linear", "Comma-separated market categories (spot, linear, inverse)")
		outdir     = flag.String("outdir", "data/bybit", "Directory to write candle files")
		startDate  = flag.String("start", "", "Start date (YYYY-MM-DD), default one year back")
		endDate    = flag.String("end", "", "End date (YYYY-MM-DD), default now")
		limit      = flag.Int("limit", 1000, "Klines per request (Bybit max 1000)")
	)
	flag.Parse()

	if *limit > 1000 {
		*limit = 1000
	}

	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)
	if *startDate != "" {
		parsed, err := time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Fatalf("invalid start date: %v", err)
		}
		start = parsed
	}
	if *endDate != "" {
		parsed, err := time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Fatalf("invalid end date: %v", err)
		}
		end = parsed
	}

	for _, category := range splitList(*categories, strings.ToLower) {
		for _, symbol := range splitList(*symbols, strings.ToUpper) {
			for _, interval := range splitList(*intervals, nil) {
				outPath := filepath.Join(*outdir, category, symbol, intervalMinutes(interval), "candles.csv")
				if err := downloadOne(category, symbol, interval, start, end, *limit, outPath); err != nil {
					log.Printf("download failed for %s %s %s: %v", category, symbol, interval, err)
				}
			}
		}
	}
}

func splitList(s string, normalize func(string) string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if normalize != nil {
			part = normalize(part)
		}
		out = append(out, part)
	}
	return out
}

// intervalMinutes maps Bybit interval codes to the minute-named directories
// the validator's locator searches. Numeric intervals are already minutes.
func intervalMinutes(interval string) string {
	switch interval {
	case "D":
		return "1440"
	case "W":
		return "10080"
	case "M":
		return "43200"
	default:
		return interval
	}
}

func downloadOne(category, symbol, interval string, start, end time.Time, limit int, outPath string) error {
	fmt.Printf("downloading %s %s interval=%s -> %s\n", category, symbol, interval, outPath)

	klines, err := fetchKlines(category, symbol, interval, start, end, limit)
	if err != nil {
		return err
	}
	fmt.Printf("  %d klines\n", len(klines))

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return writeCSV(klines, outPath)
}

func fetchKlines(category, symbol, interval string, start, end time.Time, limit int) ([]kline, error) {
	var all []kline

	startMs := start.Unix() * 1000
	currentEndMs := end.Unix() * 1000

	for currentEndMs > startMs {
		// Bybit returns klines newest first, so paging walks backwards
		// through the 'end' parameter.
		url := fmt.Sprintf("https://api.bybit.com/v5/market/kline?category=%s&symbol=%s&interval=%s&end=%d&limit=%d",
			category, symbol, interval, currentEndMs, limit)

		resp, err := http.Get(url)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("api status %d: %s", resp.StatusCode, string(body))
		}

		var decoded bybitResponse
		err = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}
		if decoded.RetCode != 0 {
			return nil, fmt.Errorf("bybit error %d: %s", decoded.RetCode, decoded.RetMsg)
		}
		if len(decoded.Result.List) == 0 {
			break
		}

		oldest := int64(0)
		for _, raw := range decoded.Result.List {
			// [startTime, open, high, low, close, volume, turnover]
			if len(raw) < 6 {
				continue
			}
			ts, err := strconv.ParseInt(raw[0], 10, 64)
			if err != nil {
				continue
			}
			if ts >= startMs && ts <= end.Unix()*1000 {
				all = append(all, kline{
					StartTime: ts,
					Open:      raw[1],
					High:      raw[2],
					Low:       raw[3],
					Close:     raw[4],
					Volume:    raw[5],
				})
			}
			if oldest == 0 || ts < oldest {
				oldest = ts
			}
		}

		if oldest <= startMs {
			break
		}
		currentEndMs = oldest - 1

		fmt.Printf("\r  %d klines fetched...", len(all))
		// Public endpoint rate limit.
		time.Sleep(500 * time.Millisecond)
	}
	fmt.Println()

	// Reverse into chronological order.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func writeCSV(klines []kline, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, k := range klines {
		ts := time.Unix(k.StartTime/1000, 0).UTC().Format("2006-01-02 15:04:05")
		if err := w.Write([]string{ts, k.Open, k.High, k.Low, k.Close, k.Volume}); err != nil {
			return err
		}
	}
	return w.Error()
}
