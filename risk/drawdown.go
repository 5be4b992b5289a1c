package risk

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/calendar"
	"github.com/rustyeddy/riskgate/store"
)

const drawdownStateVersion = 1

type drawdownState struct {
	Version           int             `json:"version"`
	WeekStart         jsonDate        `json:"week_start"`
	WeekStartEquity   decimal.Decimal `json:"week_start_equity"`
	DailyStartEquity  decimal.Decimal `json:"daily_start_equity"`
	CurrentEquity     decimal.Decimal `json:"current_equity"`
	RealizedPnLToday  decimal.Decimal `json:"realized_pnl_today"`
	RealizedPnLWeek   decimal.Decimal `json:"realized_pnl_week"`
	GovernorActive    bool            `json:"governor_active"`
	GovernorTriggered *time.Time      `json:"governor_triggered_at,omitempty"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// DrawdownMonitor tracks daily and weekly equity drawdown against the
// configured limits and latches the weekly governor once losses cross it.
// Thresholds are inclusive: exactly at the limit counts as breached.
//
// Week rollover is detected lazily: every read first checks whether "now" has
// moved past the stored week and, if so, resets the weekly frame. The daily
// frame only resets through ResetDaily, which the trading loop calls at the
// session open.
//
// Not safe for concurrent use; the Manager serializes access.
type DrawdownMonitor struct {
	cfg      Config
	path     string
	log      *zap.Logger
	readOnly bool

	state drawdownState
}

// NewDrawdownMonitor loads persisted state from path, reinitializing from
// startingEquity when the file is missing or corrupt.
func NewDrawdownMonitor(cfg Config, path string, startingEquity decimal.Decimal, now time.Time, log *zap.Logger) *DrawdownMonitor {
	return newDrawdownMonitor(cfg, path, startingEquity, now, log, false)
}

// ReadDrawdownMonitor opens the state for inspection only and never writes
// the file: a missing file shows as a fresh frame without being seeded on
// disk, and a week rollover shows in the returned values without being
// persisted.
func ReadDrawdownMonitor(cfg Config, path string, startingEquity decimal.Decimal, now time.Time, log *zap.Logger) *DrawdownMonitor {
	return newDrawdownMonitor(cfg, path, startingEquity, now, log, true)
}

func newDrawdownMonitor(cfg Config, path string, startingEquity decimal.Decimal, now time.Time, log *zap.Logger, readOnly bool) *DrawdownMonitor {
	m := &DrawdownMonitor{cfg: cfg, path: path, log: log, readOnly: readOnly}

	var st drawdownState
	err := store.Load(path, &st)
	switch {
	case err == nil && st.Version == drawdownStateVersion:
		m.state = st
		m.rolloverIfNeeded(now)
	case errors.Is(err, store.ErrNotExist):
		log.Info("no drawdown state file, starting from starting equity",
			zap.String("path", path), zap.String("starting_equity", startingEquity.String()))
		m.state = freshState(startingEquity, now)
		m.persist(now)
	default:
		log.Warn("drawdown state unreadable, reinitializing from starting equity",
			zap.String("path", path), zap.Error(err), zap.String("starting_equity", startingEquity.String()))
		m.state = freshState(startingEquity, now)
		m.persist(now)
	}
	return m
}

func freshState(equity decimal.Decimal, now time.Time) drawdownState {
	return drawdownState{
		Version:          drawdownStateVersion,
		WeekStart:        jsonDate{calendar.WeekStart(now)},
		WeekStartEquity:  equity,
		DailyStartEquity: equity,
		CurrentEquity:    equity,
		RealizedPnLToday: decimal.Zero,
		RealizedPnLWeek:  decimal.Zero,
	}
}

// UpdateEquity records the latest account equity and re-checks the governor.
func (m *DrawdownMonitor) UpdateEquity(now time.Time, equity decimal.Decimal) {
	m.rolloverIfNeeded(now)
	m.state.CurrentEquity = equity
	m.checkGovernor(now)
	m.persist(now)
}

// RecordRealizedPnL adds a realized gain or loss to the daily and weekly
// running totals.
func (m *DrawdownMonitor) RecordRealizedPnL(now time.Time, amount decimal.Decimal) {
	m.rolloverIfNeeded(now)
	m.state.RealizedPnLToday = m.state.RealizedPnLToday.Add(amount)
	m.state.RealizedPnLWeek = m.state.RealizedPnLWeek.Add(amount)
	m.persist(now)
}

// CanTrade answers whether new risk is allowed right now. The governor is
// checked before the daily limit so callers can tell the two lockouts apart.
func (m *DrawdownMonitor) CanTrade(now time.Time) (bool, Reason) {
	m.rolloverIfNeeded(now)
	if m.state.GovernorActive {
		return false, ReasonWeeklyGovernor
	}
	if m.dailyLimitReached() {
		return false, ReasonDailyLossLimit
	}
	return true, ReasonNone
}

// IsDailyLimitReached reports whether today's drawdown has hit the daily
// limit. Clears only at the next ResetDaily.
func (m *DrawdownMonitor) IsDailyLimitReached(now time.Time) bool {
	m.rolloverIfNeeded(now)
	return m.dailyLimitReached()
}

// IsGovernorActive reports whether the weekly circuit breaker is latched.
func (m *DrawdownMonitor) IsGovernorActive(now time.Time) bool {
	m.rolloverIfNeeded(now)
	return m.state.GovernorActive
}

// DailyDrawdown returns today's drawdown as a fraction of day-start equity.
// Gains report as zero, not negative drawdown.
func (m *DrawdownMonitor) DailyDrawdown(now time.Time) decimal.Decimal {
	m.rolloverIfNeeded(now)
	return drawdownFraction(m.state.DailyStartEquity, m.state.CurrentEquity)
}

// WeeklyDrawdown returns this week's drawdown as a fraction of week-start
// equity.
func (m *DrawdownMonitor) WeeklyDrawdown(now time.Time) decimal.Decimal {
	m.rolloverIfNeeded(now)
	return drawdownFraction(m.state.WeekStartEquity, m.state.CurrentEquity)
}

// DailyLossRemaining returns how many dollars of further loss today stays
// inside the daily limit. Zero once the limit is reached.
func (m *DrawdownMonitor) DailyLossRemaining(now time.Time) decimal.Decimal {
	m.rolloverIfNeeded(now)
	budget := m.state.DailyStartEquity.Mul(m.cfg.DailyLossLimit)
	used := m.state.DailyStartEquity.Sub(m.state.CurrentEquity)
	remaining := budget.Sub(used)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// DailyLossBudget returns the full dollar budget for today's losses.
func (m *DrawdownMonitor) DailyLossBudget(now time.Time) decimal.Decimal {
	m.rolloverIfNeeded(now)
	return m.state.DailyStartEquity.Mul(m.cfg.DailyLossLimit)
}

// RealizedPnL returns today's and this week's realized totals.
func (m *DrawdownMonitor) RealizedPnL(now time.Time) (day, week decimal.Decimal) {
	m.rolloverIfNeeded(now)
	return m.state.RealizedPnLToday, m.state.RealizedPnLWeek
}

// TriggerGovernor latches the weekly circuit breaker by hand, e.g. from an
// operator halt. Idempotent: a second trigger keeps the original timestamp.
func (m *DrawdownMonitor) TriggerGovernor(now time.Time) {
	m.rolloverIfNeeded(now)
	if m.state.GovernorActive {
		return
	}
	ts := now.UTC()
	m.state.GovernorActive = true
	m.state.GovernorTriggered = &ts
	m.persist(now)
	m.log.Warn("weekly governor latched",
		zap.String("weekly_drawdown", m.WeeklyDrawdown(now).String()))
}

// ResetDaily starts a new daily frame from newEquity. The governor, if
// latched, stays latched.
func (m *DrawdownMonitor) ResetDaily(now time.Time, newEquity decimal.Decimal) {
	m.rolloverIfNeeded(now)
	m.state.DailyStartEquity = newEquity
	m.state.CurrentEquity = newEquity
	m.state.RealizedPnLToday = decimal.Zero
	m.persist(now)
	m.log.Info("daily drawdown frame reset", zap.String("equity", newEquity.String()))
}

// ResetWeekly starts a new weekly frame from newEquity and clears the
// governor.
func (m *DrawdownMonitor) ResetWeekly(now time.Time, newEquity decimal.Decimal) {
	m.state.WeekStart = jsonDate{calendar.WeekStart(now)}
	m.state.WeekStartEquity = newEquity
	m.state.DailyStartEquity = newEquity
	m.state.CurrentEquity = newEquity
	m.state.RealizedPnLToday = decimal.Zero
	m.state.RealizedPnLWeek = decimal.Zero
	m.state.GovernorActive = false
	m.state.GovernorTriggered = nil
	m.persist(now)
	m.log.Info("weekly drawdown frame reset", zap.String("equity", newEquity.String()))
}

func (m *DrawdownMonitor) dailyLimitReached() bool {
	return limitReached(m.state.DailyStartEquity, m.state.CurrentEquity, m.cfg.DailyLossLimit)
}

// limitReached compares loss >= start*limit. Multiplication keeps the
// comparison exact to the cent; division would round.
func limitReached(start, current, limit decimal.Decimal) bool {
	if !start.IsPositive() {
		return false
	}
	return start.Sub(current).GreaterThanOrEqual(start.Mul(limit))
}

func (m *DrawdownMonitor) checkGovernor(now time.Time) {
	if m.state.GovernorActive {
		return
	}
	if limitReached(m.state.WeekStartEquity, m.state.CurrentEquity, m.cfg.WeeklyGovernorLimit) {
		dd := drawdownFraction(m.state.WeekStartEquity, m.state.CurrentEquity)
		ts := now.UTC()
		m.state.GovernorActive = true
		m.state.GovernorTriggered = &ts
		m.log.Warn("weekly governor triggered",
			zap.String("weekly_drawdown", dd.String()),
			zap.String("limit", m.cfg.WeeklyGovernorLimit.String()))
	}
}

// rolloverIfNeeded resets the weekly frame when now has moved past the stored
// week. The current equity carries over as the new week-start baseline.
func (m *DrawdownMonitor) rolloverIfNeeded(now time.Time) {
	ws := calendar.WeekStart(now)
	if ws.Equal(m.state.WeekStart.Time) {
		return
	}
	m.log.Info("week rollover detected",
		zap.String("stored_week", m.state.WeekStart.Format(dateLayout)),
		zap.String("current_week", ws.Format(dateLayout)))
	m.ResetWeekly(now, m.state.CurrentEquity)
}

func (m *DrawdownMonitor) persist(now time.Time) {
	m.state.LastUpdated = now.UTC()
	if m.readOnly {
		return
	}
	if err := store.Save(m.path, m.state); err != nil {
		m.log.Error("persist drawdown state", zap.String("path", m.path), zap.Error(err))
	}
}

func drawdownFraction(start, current decimal.Decimal) decimal.Decimal {
	if !start.IsPositive() {
		return decimal.Zero
	}
	loss := start.Sub(current)
	if loss.IsNegative() {
		return decimal.Zero
	}
	return loss.Div(start)
}
