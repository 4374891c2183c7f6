// Package eod builds the end-of-day CSV summary from the daily trade log.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mech-trading-bot/internal/tradelog"
	"mech-trading-bot/internal/types"
)

var loc = time.UTC

// SetLocation sets the zone used for day boundaries and the run cutoff.
func SetLocation(l *time.Location) {
	if l != nil {
		loc = l
	}
}

type aggRow struct {
	Instrument  string
	Opens       int
	OpenVolume  float64
	OpenValue   float64
	Closes      int
	CloseVolume float64
	CloseValue  float64
	RealizedPnL float64
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyTradeFile(t time.Time) string {
	d := t.In(loc).Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func eodCSVPath(t time.Time) string {
	d := t.In(loc).Format("2006-01-02")
	return filepath.Join(logDir(), "eod", d+".csv")
}

// SummarizeDay aggregates that day's trade-log entries per instrument and
// writes the CSV. Missing or empty input is not an error; the returned path
// is empty when nothing was written.
func SummarizeDay(t time.Time) (string, error) {
	inPath := dailyTradeFile(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	openAvg := map[string]float64{}
	openDir := map[string]string{}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e tradelog.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		row := aggs[e.Instrument]
		if row == nil {
			row = &aggRow{Instrument: e.Instrument}
			aggs[e.Instrument] = row
		}
		switch e.Action {
		case types.ActionOpen:
			row.Opens++
			row.OpenVolume += e.Size
			row.OpenValue += e.Size * e.Price
			if row.OpenVolume > 0 {
				openAvg[e.Instrument] = row.OpenValue / row.OpenVolume
			}
			openDir[e.Instrument] = e.Direction
		case types.ActionClose:
			row.Closes++
			row.CloseVolume += e.Size
			row.CloseValue += e.Size * e.Price
			pnl := (e.Price - openAvg[e.Instrument]) * e.Size
			if openDir[e.Instrument] == types.DirShort.String() {
				pnl = -pnl
			}
			row.RealizedPnL += pnl
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	headers := []string{"instrument", "opens", "open_volume", "open_avg", "closes", "close_volume", "close_avg", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalPnL float64
	for _, k := range keys {
		r := aggs[k]
		var oAvg, cAvg float64
		if r.OpenVolume > 0 {
			oAvg = r.OpenValue / r.OpenVolume
		}
		if r.CloseVolume > 0 {
			cAvg = r.CloseValue / r.CloseVolume
		}
		rec := []string{
			r.Instrument,
			fmt.Sprintf("%d", r.Opens),
			fmt.Sprintf("%.4f", r.OpenVolume),
			fmt.Sprintf("%.4f", oAvg),
			fmt.Sprintf("%d", r.Closes),
			fmt.Sprintf("%.4f", r.CloseVolume),
			fmt.Sprintf("%.4f", cAvg),
			fmt.Sprintf("%.2f", r.RealizedPnL),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalPnL += r.RealizedPnL
	}
	_ = w.Write([]string{"TOTAL", "", "", "", "", "", "", fmt.Sprintf("%.2f", totalPnL)})
	return outPath, nil
}

// SummarizeToday summarizes the current day in the configured zone.
func SummarizeToday() (string, error) { return SummarizeDay(time.Now().In(loc)) }

// ShouldRunNow reports whether the cutoff has passed without today's CSV
// having been written yet.
func ShouldRunNow(cutoffHour, cutoffMinute int) (bool, string) {
	now := time.Now().In(loc)
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), cutoffHour, cutoffMinute, 0, 0, loc)
	outPath := eodCSVPath(now)
	if now.After(cutoff) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
