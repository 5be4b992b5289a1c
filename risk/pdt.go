package risk

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/calendar"
	"github.com/rustyeddy/riskgate/store"
)

// ErrNotSameDay is returned when a caller tries to record a day trade whose
// entry and exit fall on different calendar dates. That is a caller bug, not
// a rejection.
var ErrNotSameDay = errors.New("risk: day trade entry and exit are on different calendar dates")

const pdtStateVersion = 1

type pdtState struct {
	Version     int        `json:"version"`
	DayTrades   []DayTrade `json:"day_trades"`
	LastUpdated time.Time  `json:"last_updated"`
}

// PDTTracker counts completed same-day round trips inside a rolling window of
// trading days and persists the log across restarts. It is not safe for
// concurrent use; the Manager serializes access.
type PDTTracker struct {
	cfg  Config
	path string
	log  *zap.Logger

	trades      []DayTrade
	lastUpdated time.Time
}

// NewPDTTracker loads persisted state from path. A missing or corrupt file
// yields the empty log with a warning; startup never fails on state files.
func NewPDTTracker(cfg Config, path string, log *zap.Logger) *PDTTracker {
	t := &PDTTracker{cfg: cfg, path: path, log: log}
	t.trades, t.lastUpdated = loadPDTState(path, log)
	return t
}

// Reload replaces the in-memory log with the current contents of the state
// file, e.g. after the operator CLI rewrote it out of band. Missing or
// corrupt files fall back to the empty log, same as construction.
func (t *PDTTracker) Reload() {
	t.trades, t.lastUpdated = loadPDTState(t.path, t.log)
}

func loadPDTState(path string, log *zap.Logger) ([]DayTrade, time.Time) {
	var st pdtState
	err := store.Load(path, &st)
	switch {
	case err == nil && st.Version == pdtStateVersion:
		return st.DayTrades, st.LastUpdated
	case errors.Is(err, store.ErrNotExist):
		log.Info("no pdt state file, starting with an empty log", zap.String("path", path))
	default:
		log.Warn("pdt state unreadable, starting from empty log",
			zap.String("path", path), zap.Error(err), zap.Int("version", st.Version))
	}
	return nil, time.Time{}
}

// TradesRemaining reports how many day trades are still allowed in the window
// ending at asOf.
func (t *PDTTracker) TradesRemaining(asOf time.Time) int {
	remaining := t.cfg.PDTTradeLimit - t.countInWindow(asOf)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanDayTrade reports whether one more day trade fits under the limit.
func (t *PDTTracker) CanDayTrade(asOf time.Time) bool {
	return t.TradesRemaining(asOf) > 0
}

// RecordDayTrade appends a completed round trip. It returns false without
// recording when the window is already full, and ErrNotSameDay when the
// timestamps do not share a calendar date.
func (t *PDTTracker) RecordDayTrade(symbol string, entry, exit time.Time, contracts int) (bool, error) {
	if !calendar.SameDay(entry, exit) {
		return false, fmt.Errorf("%w: %s entry %s exit %s", ErrNotSameDay,
			symbol, entry.Format(dateLayout), exit.Format(dateLayout))
	}
	if contracts <= 0 {
		return false, fmt.Errorf("risk: day trade for %s must have positive contracts, got %d", symbol, contracts)
	}
	if !t.CanDayTrade(exit) {
		t.log.Warn("day trade rejected, window full",
			zap.String("symbol", symbol), zap.Int("limit", t.cfg.PDTTradeLimit))
		return false, nil
	}

	t.trades = append(t.trades, DayTrade{
		Symbol:    symbol,
		TradeDate: newDate(entry),
		EntryTime: entry.UTC(),
		ExitTime:  exit.UTC(),
		Contracts: contracts,
	})
	t.persist(exit)

	t.log.Info("day trade recorded",
		zap.String("symbol", symbol),
		zap.Int("contracts", contracts),
		zap.Int("remaining", t.TradesRemaining(exit)))
	return true, nil
}

// Trades returns the day trades inside the window ending at asOf, oldest
// first. The returned slice is a copy.
func (t *PDTTracker) Trades(asOf time.Time) []DayTrade {
	start := calendar.WindowStart(asOf, t.cfg.PDTWindowDays)
	var out []DayTrade
	for _, dt := range t.trades {
		if !dt.TradeDate.Before(start) {
			out = append(out, dt)
		}
	}
	return out
}

func (t *PDTTracker) countInWindow(asOf time.Time) int {
	start := calendar.WindowStart(asOf, t.cfg.PDTWindowDays)
	n := 0
	for _, dt := range t.trades {
		if !dt.TradeDate.Before(start) {
			n++
		}
	}
	return n
}

// persist prunes trades that fell out of the window and writes the log. A
// failed write is logged and retried implicitly on the next mutation.
func (t *PDTTracker) persist(asOf time.Time) {
	start := calendar.WindowStart(asOf, t.cfg.PDTWindowDays)
	kept := t.trades[:0]
	for _, dt := range t.trades {
		if !dt.TradeDate.Before(start) {
			kept = append(kept, dt)
		}
	}
	t.trades = kept
	t.lastUpdated = asOf.UTC()

	st := pdtState{Version: pdtStateVersion, DayTrades: t.trades, LastUpdated: t.lastUpdated}
	if err := store.Save(t.path, st); err != nil {
		t.log.Error("persist pdt state", zap.String("path", t.path), zap.Error(err))
	}
}
