package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"trade_id", "symbol", "strategy", "contracts",
	"entry_premium", "exit_premium", "open_time", "close_time",
	"realized_pl", "day_trade",
}

type CSVJournal struct {
	f *os.File
	w *csv.Writer
}

// NewCSV opens (or creates) a trade log at path, writing the header for new
// files and appending to existing ones.
func NewCSV(path string) (*CSVJournal, error) {
	info, err := os.Stat(path)
	fresh := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open csv %s: %w", path, err)
	}

	j := &CSVJournal{f: f, w: csv.NewWriter(f)}
	if fresh {
		if err := j.w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		j.w.Flush()
	}
	return j, j.w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	row := []string{
		t.TradeID,
		t.Symbol,
		t.Strategy,
		strconv.Itoa(t.Contracts),
		t.EntryPremium.String(),
		t.ExitPremium.String(),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		t.RealizedPL.String(),
		strconv.FormatBool(t.DayTrade),
	}
	if err := j.w.Write(row); err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSVJournal) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
