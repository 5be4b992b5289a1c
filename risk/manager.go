package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/account"
	"github.com/rustyeddy/riskgate/calendar"
	"github.com/rustyeddy/riskgate/id"
	"github.com/rustyeddy/riskgate/journal"
)

// Manager is the admission gate for one trading account. It owns the
// calculator, the PDT tracker and the drawdown monitor, and is the only
// component callers talk to. All operations are serialized by an internal
// mutex, so it is safe to call from multiple goroutines.
type Manager struct {
	mu sync.Mutex

	cfg      Config
	calc     *Calculator
	pdt      *PDTTracker
	drawdown *DrawdownMonitor
	acct     account.Provider
	journal  journal.Journal // nil disables trade journaling
	log      *zap.Logger

	open map[string]openPosition

	evaluations map[Decision]uint64
}

type openPosition struct {
	strategy  Strategy
	contracts int
	premium   decimal.Decimal
	openedAt  time.Time
}

// ManagerOptions carries the collaborators a Manager needs. Journal may be
// nil.
type ManagerOptions struct {
	Config         Config
	Account        account.Provider
	Journal        journal.Journal
	PDTStatePath   string
	DrawdownPath   string
	StartingEquity decimal.Decimal
	Logger         *zap.Logger
}

// NewManager builds the risk core for one account, loading persisted tracker
// and monitor state. now anchors the initial daily/weekly frames.
func NewManager(now time.Time, opts ManagerOptions) (*Manager, error) {
	if opts.Account == nil {
		return nil, fmt.Errorf("risk: account provider is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Manager{
		cfg:         opts.Config,
		calc:        NewCalculator(opts.Config),
		pdt:         NewPDTTracker(opts.Config, opts.PDTStatePath, log.Named("pdt")),
		drawdown:    NewDrawdownMonitor(opts.Config, opts.DrawdownPath, opts.StartingEquity, now, log.Named("drawdown")),
		acct:        opts.Account,
		journal:     opts.Journal,
		log:         log,
		open:        make(map[string]openPosition),
		evaluations: make(map[Decision]uint64),
	}, nil
}

// Evaluate runs one candidate through every gate, most severe first. The
// returned error is reserved for account-provider failures; every business
// denial is a typed result.
func (m *Manager) Evaluate(now time.Time, req PositionSizeRequest, isDayTrade bool) (RiskCheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	equity, err := m.acct.AccountEquity()
	if err != nil {
		return RiskCheckResult{}, fmt.Errorf("risk: account equity: %w", err)
	}
	buyingPower, err := m.acct.BuyingPower()
	if err != nil {
		return RiskCheckResult{}, fmt.Errorf("risk: buying power: %w", err)
	}
	m.drawdown.UpdateEquity(now, equity)

	res := m.gate(now, req, isDayTrade, equity, buyingPower)
	res.Warnings = m.warnings(now)
	m.evaluations[res.Decision]++

	m.log.Info("trade evaluated",
		zap.String("symbol", req.Symbol),
		zap.String("strategy", string(req.Strategy)),
		zap.String("decision", string(res.Decision)),
		zap.String("reason", string(res.Reason)),
		zap.Int64("contracts", res.Contracts))
	return res, nil
}

func (m *Manager) gate(now time.Time, req PositionSizeRequest, isDayTrade bool, equity, buyingPower decimal.Decimal) RiskCheckResult {
	res := RiskCheckResult{
		PDTTradesRemaining: m.pdt.TradesRemaining(now),
		DailyLossRemaining: m.drawdown.DailyLossRemaining(now),
		WeeklyDrawdown:     m.drawdown.WeeklyDrawdown(now),
		GovernorActive:     m.drawdown.IsGovernorActive(now),
		Timestamp:          now.UTC(),
	}

	if res.GovernorActive {
		res.Decision, res.Reason = StrategyCLocked, ReasonWeeklyGovernor
		return res
	}
	if m.drawdown.IsDailyLimitReached(now) {
		res.Decision, res.Reason = Rejected, ReasonDailyLossLimit
		return res
	}
	if isDayTrade && !m.pdt.CanDayTrade(now) {
		res.Decision, res.Reason = Rejected, ReasonPDTLimit
		return res
	}

	if req.EntryPremium.IsPositive() {
		cost := req.EntryPremium.Mul(decimal.NewFromInt(m.cfg.ContractMultiplier))
		if ok, reason := m.calc.CheckAggregateExposure(req.Strategy, req.OpenPositionsValue, cost, equity); !ok {
			res.Decision, res.Reason = Rejected, reason
			return res
		}
	}

	sizing, reason := m.calc.Calculate(req, equity, buyingPower)
	res.Sizing = sizing
	res.Contracts = sizing.Contracts
	if reason != ReasonNone {
		res.Reason = reason
		if reason == ReasonNoNewRisk {
			res.Decision = StrategyCLocked
		} else {
			res.Decision = Rejected
		}
		return res
	}

	// A size held below the cash ceiling by the risk or position limit is a
	// reduction; a cash-bound size is just what the account affords.
	if (sizing.Binding == ConstraintRisk || sizing.Binding == ConstraintPosition) && sizing.Contracts < sizing.CashMax {
		res.Decision = Reduced
	} else {
		res.Decision = Approved
	}
	return res
}

// warnings are informational only, computed after the gating decision.
func (m *Manager) warnings(now time.Time) []string {
	var w []string

	if remaining := m.pdt.TradesRemaining(now); remaining == 1 {
		w = append(w, "only 1 PDT day trade remaining in window")
	}

	budget := m.drawdown.DailyLossRemaining(now)
	full := m.drawdown.DailyLossBudget(now)
	if full.IsPositive() && budget.LessThan(full.Mul(decimal.RequireFromString("0.25"))) {
		w = append(w, fmt.Sprintf("daily loss budget low: $%s remaining", budget.StringFixed(2)))
	}
	return w
}

// RecordTradeEntry registers a fill so the exit can be matched against it.
func (m *Manager) RecordTradeEntry(now time.Time, symbol string, strategy Strategy, contracts int, premium decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if contracts <= 0 {
		return fmt.Errorf("risk: entry for %s must have positive contracts, got %d", symbol, contracts)
	}
	if _, exists := m.open[symbol]; exists {
		return fmt.Errorf("risk: position already open for %s", symbol)
	}

	m.open[symbol] = openPosition{
		strategy:  strategy,
		contracts: contracts,
		premium:   premium,
		openedAt:  now.UTC(),
	}
	m.log.Info("trade entry recorded",
		zap.String("symbol", symbol),
		zap.String("strategy", string(strategy)),
		zap.Int("contracts", contracts),
		zap.String("premium", premium.String()))
	return nil
}

// RecordTradeExit closes an open position: realized P&L always feeds the
// drawdown monitor, and a same-calendar-day round trip also feeds the PDT
// tracker. The trade is journaled when a journal is configured.
func (m *Manager) RecordTradeExit(now time.Time, symbol string, exitPremium decimal.Decimal) (TradeOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.open[symbol]
	if !ok {
		return TradeOutcome{}, fmt.Errorf("risk: no open position for %s", symbol)
	}
	delete(m.open, symbol)

	mult := decimal.NewFromInt(m.cfg.ContractMultiplier)
	pl := exitPremium.Sub(pos.premium).Mul(mult).Mul(decimal.NewFromInt(int64(pos.contracts)))
	m.drawdown.RecordRealizedPnL(now, pl)

	sameDay := calendar.SameDay(pos.openedAt, now)
	if sameDay {
		if _, err := m.pdt.RecordDayTrade(symbol, pos.openedAt, now, pos.contracts); err != nil {
			// Only reachable on a clock anomaly; the position is already
			// closed and P&L booked, so log rather than fail the exit.
			m.log.Error("record day trade", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	out := TradeOutcome{
		TradeID:    id.New(),
		Symbol:     symbol,
		Strategy:   pos.strategy,
		Contracts:  pos.contracts,
		RealizedPL: pl,
		DayTrade:   sameDay,
		OpenTime:   pos.openedAt,
		CloseTime:  now.UTC(),
	}

	if m.journal != nil {
		rec := journal.TradeRecord{
			TradeID:      out.TradeID,
			Symbol:       out.Symbol,
			Strategy:     string(out.Strategy),
			Contracts:    out.Contracts,
			EntryPremium: pos.premium,
			ExitPremium:  exitPremium,
			OpenTime:     out.OpenTime,
			CloseTime:    out.CloseTime,
			RealizedPL:   pl,
			DayTrade:     sameDay,
		}
		if err := m.journal.RecordTrade(rec); err != nil {
			m.log.Error("journal trade", zap.String("symbol", symbol), zap.Error(err))
		}
	}

	m.log.Info("trade exit recorded",
		zap.String("symbol", symbol),
		zap.String("realized_pl", pl.String()),
		zap.Bool("day_trade", sameDay))
	return out, nil
}

// Halt latches the weekly governor by hand, blocking all new risk until the
// next weekly reset. Idempotent.
func (m *Manager) Halt(now time.Time, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Warn("manual halt requested", zap.String("reason", reason))
	m.drawdown.TriggerGovernor(now)
}

// ResetDaily opens a new trading day from the account's current equity.
func (m *Manager) ResetDaily(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	equity, err := m.acct.AccountEquity()
	if err != nil {
		return fmt.Errorf("risk: account equity: %w", err)
	}
	m.drawdown.ResetDaily(now, equity)
	return nil
}

// ResetWeekly opens a new trading week from the account's current equity and
// clears the governor.
func (m *Manager) ResetWeekly(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	equity, err := m.acct.AccountEquity()
	if err != nil {
		return fmt.Errorf("risk: account equity: %w", err)
	}
	m.drawdown.ResetWeekly(now, equity)
	return nil
}

// Status builds the monitoring snapshot.
func (m *Manager) Status(now time.Time) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	equity, err := m.acct.AccountEquity()
	if err != nil {
		return Status{}, fmt.Errorf("risk: account equity: %w", err)
	}
	m.drawdown.UpdateEquity(now, equity)

	remaining := m.pdt.TradesRemaining(now)
	return Status{
		Equity:             equity,
		DailyDrawdown:      m.drawdown.DailyDrawdown(now),
		WeeklyDrawdown:     m.drawdown.WeeklyDrawdown(now),
		DailyLimitReached:  m.drawdown.IsDailyLimitReached(now),
		GovernorActive:     m.drawdown.IsGovernorActive(now),
		PDTTradesUsed:      m.cfg.PDTTradeLimit - remaining,
		PDTTradesRemaining: remaining,
		OpenPositions:      len(m.open),
		Timestamp:          now.UTC(),
	}, nil
}

// EvaluationCounts returns how many evaluations ended in each decision since
// startup. Used by the metrics collector.
func (m *Manager) EvaluationCounts() map[Decision]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[Decision]uint64, len(m.evaluations))
	for k, v := range m.evaluations {
		out[k] = v
	}
	return out
}
