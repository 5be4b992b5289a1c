package risk

import "github.com/shopspring/decimal"

// Calculator sizes a trade candidate against the three independent limits:
// risk-per-trade, strategy position ceiling and buying power. It holds no
// mutable state and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate returns the largest contract count that satisfies every limit at
// once, or a zero-contract result with the reason the candidate was turned
// away. All divisions floor so the result can never overshoot a limit.
func (c *Calculator) Calculate(req PositionSizeRequest, equity, buyingPower decimal.Decimal) (PositionSizeResult, Reason) {
	if req.Confidence < c.cfg.MinConfidence {
		return PositionSizeResult{}, ReasonLowConfidence
	}
	if req.Strategy == StrategyC {
		return PositionSizeResult{}, ReasonNoNewRisk
	}
	if !req.EntryPremium.IsPositive() {
		return PositionSizeResult{}, ReasonInvalidPremium
	}
	if !req.StopLossFraction.IsPositive() {
		return PositionSizeResult{}, ReasonInvalidStopLoss
	}

	cost := c.contractCost(req.EntryPremium)

	riskBudget := equity.Mul(c.cfg.MaxRiskPerTrade)
	riskMax := floorDiv(riskBudget, cost.Mul(req.StopLossFraction))

	positionBudget := equity.Mul(c.cfg.PositionLimit(req.Strategy))
	positionMax := floorDiv(positionBudget, cost)
	cashMax := floorDiv(buyingPower, cost)

	contracts, binding := minConstraint(riskMax, positionMax, cashMax)

	res := PositionSizeResult{
		Contracts:   contracts,
		RiskMax:     riskMax,
		PositionMax: positionMax,
		CashMax:     cashMax,
		Binding:     binding,
	}
	if contracts == 0 {
		return res, ReasonInsufficientBuyingPower
	}

	n := decimal.NewFromInt(contracts)
	res.PositionValue = cost.Mul(n)
	res.DollarRisk = cost.Mul(req.StopLossFraction).Mul(n)
	return res, ReasonNone
}

// AffordableContracts answers how many contracts at this premium fit under
// the strategy's position ceiling alone, ignoring risk and cash. Used for
// pre-trade gating before a full sizing request exists.
func (c *Calculator) AffordableContracts(strategy Strategy, premium, equity decimal.Decimal) int64 {
	if !premium.IsPositive() {
		return 0
	}
	budget := equity.Mul(c.cfg.PositionLimit(strategy))
	return floorDiv(budget, c.contractCost(premium))
}

// CheckAggregateExposure verifies that the cost basis of all open positions
// plus the proposed one stays under the strategy's position ceiling.
func (c *Calculator) CheckAggregateExposure(strategy Strategy, openValue, proposedCost, equity decimal.Decimal) (bool, Reason) {
	ceiling := equity.Mul(c.cfg.PositionLimit(strategy))
	if openValue.Add(proposedCost).GreaterThan(ceiling) {
		return false, ReasonExposureCeiling
	}
	return true, ReasonNone
}

func (c *Calculator) contractCost(premium decimal.Decimal) decimal.Decimal {
	return premium.Mul(decimal.NewFromInt(c.cfg.ContractMultiplier))
}

// floorDiv is an exact integer quotient. QuoRem avoids the rounded division
// precision of Div, so a quotient epsilon below an integer can never round up
// past a limit.
func floorDiv(num, den decimal.Decimal) int64 {
	if !den.IsPositive() || num.IsNegative() {
		return 0
	}
	q, _ := num.QuoRem(den, 0)
	return q.IntPart()
}

// minConstraint picks the smallest of the three maxima. Ties resolve in
// severity order risk > position > cash so the reported binding constraint
// is deterministic.
func minConstraint(riskMax, positionMax, cashMax int64) (int64, Constraint) {
	min, binding := riskMax, ConstraintRisk
	if positionMax < min {
		min, binding = positionMax, ConstraintPosition
	}
	if cashMax < min {
		min, binding = cashMax, ConstraintCash
	}
	return min, binding
}
