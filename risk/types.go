// Package risk is the admission gate between strategy signals and the broker.
// Every trade candidate passes through Manager.Evaluate, which combines the
// position-size calculator, the pattern-day-trade tracker and the drawdown
// monitor into a single deterministic decision.
package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// Strategy identifies which playbook produced a trade candidate. Strategy C
// is the standing "no new risk" mode and always sizes to zero.
type Strategy string

const (
	StrategyA Strategy = "A"
	StrategyB Strategy = "B"
	StrategyC Strategy = "C"
)

// Decision is the outcome class of one Evaluate call.
type Decision string

const (
	Approved        Decision = "approved"
	Reduced         Decision = "reduced"
	Rejected        Decision = "rejected"
	StrategyCLocked Decision = "strategy_c_locked"
)

// Reason explains a rejection or lock. ReasonNone means the trade passed.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonLowConfidence           Reason = "confidence_below_threshold"
	ReasonNoNewRisk               Reason = "strategy_disallows_new_risk"
	ReasonInvalidPremium          Reason = "entry_premium_not_positive"
	ReasonInvalidStopLoss         Reason = "stop_loss_fraction_not_positive"
	ReasonInsufficientBuyingPower Reason = "insufficient_buying_power"
	ReasonExposureCeiling         Reason = "aggregate_exposure_ceiling"
	ReasonDailyLossLimit          Reason = "daily_loss_limit_reached"
	ReasonWeeklyGovernor          Reason = "weekly_governor_active"
	ReasonPDTLimit                Reason = "pdt_limit_reached"
)

// Constraint names which sizing limit produced the approved contract count.
type Constraint string

const (
	ConstraintNone     Constraint = ""
	ConstraintRisk     Constraint = "risk_limit"
	ConstraintPosition Constraint = "position_limit"
	ConstraintCash     Constraint = "cash_limit"
)

// Config carries the fixed business thresholds for one account's risk core.
// It is set once at construction and never mutated afterwards.
type Config struct {
	// MinConfidence gates candidates before any sizing happens.
	MinConfidence float64

	// MaxRiskPerTrade is the fraction of equity a single stopped-out trade
	// may lose. Default 3%.
	MaxRiskPerTrade decimal.Decimal

	// DailyLossLimit halts new entries for the rest of the day. Default 10%.
	DailyLossLimit decimal.Decimal

	// WeeklyGovernorLimit latches the weekly circuit breaker. Default 15%.
	WeeklyGovernorLimit decimal.Decimal

	// ContractMultiplier converts option premium to contract cost. 100 for
	// standard US equity options.
	ContractMultiplier int64

	// StrategyPositionLimits maps each strategy to the fraction of equity a
	// single position may consume. Strategy C is zero.
	StrategyPositionLimits map[Strategy]decimal.Decimal

	// PDTTradeLimit is the day-trade cap per rolling window. Held at 3,
	// one below the regulatory trigger of 4.
	PDTTradeLimit int

	// PDTWindowDays is the rolling window length in trading days.
	PDTWindowDays int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.5,
		MaxRiskPerTrade:     decimal.RequireFromString("0.03"),
		DailyLossLimit:      decimal.RequireFromString("0.10"),
		WeeklyGovernorLimit: decimal.RequireFromString("0.15"),
		ContractMultiplier:  100,
		StrategyPositionLimits: map[Strategy]decimal.Decimal{
			StrategyA: decimal.RequireFromString("0.20"),
			StrategyB: decimal.RequireFromString("0.10"),
			StrategyC: decimal.Zero,
		},
		PDTTradeLimit: 3,
		PDTWindowDays: 5,
	}
}

// PositionLimit returns the position-size fraction for a strategy. Unknown
// strategies get zero, which sizes to zero contracts.
func (c Config) PositionLimit(s Strategy) decimal.Decimal {
	limit, ok := c.StrategyPositionLimits[s]
	if !ok {
		return decimal.Zero
	}
	return limit
}

// PositionSizeRequest is one trade candidate as handed over by the strategy
// layer. Constructed fresh per evaluation; never persisted.
type PositionSizeRequest struct {
	Symbol             string
	Strategy           Strategy
	Confidence         float64
	EntryPremium       decimal.Decimal
	StopLossFraction   decimal.Decimal
	AvailableCash      decimal.Decimal
	OpenPositionsValue decimal.Decimal
}

// PositionSizeResult reports the sizing outcome and the per-constraint maxima
// that produced it.
type PositionSizeResult struct {
	Contracts     int64
	RiskMax       int64
	PositionMax   int64
	CashMax       int64
	Binding       Constraint
	PositionValue decimal.Decimal
	DollarRisk    decimal.Decimal
}

// DayTrade is one completed same-day round trip. Immutable once recorded.
type DayTrade struct {
	Symbol    string    `json:"symbol"`
	TradeDate jsonDate  `json:"trade_date"`
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	Contracts int       `json:"contracts"`
}

// RiskCheckResult is the outcome of one Evaluate call. It is complete at
// construction and never re-derived from later state.
type RiskCheckResult struct {
	Decision           Decision
	Reason             Reason
	Contracts          int64
	Sizing             PositionSizeResult
	PDTTradesRemaining int
	DailyLossRemaining decimal.Decimal
	WeeklyDrawdown     decimal.Decimal
	GovernorActive     bool
	Warnings           []string
	Timestamp          time.Time
}

// TradeOutcome summarizes a recorded exit.
type TradeOutcome struct {
	TradeID    string
	Symbol     string
	Strategy   Strategy
	Contracts  int
	RealizedPL decimal.Decimal
	DayTrade   bool
	OpenTime   time.Time
	CloseTime  time.Time
}

// Status is the monitoring snapshot exposed for alerting dashboards.
type Status struct {
	Equity             decimal.Decimal
	DailyDrawdown      decimal.Decimal
	WeeklyDrawdown     decimal.Decimal
	DailyLimitReached  bool
	GovernorActive     bool
	PDTTradesUsed      int
	PDTTradesRemaining int
	OpenPositions      int
	Timestamp          time.Time
}
