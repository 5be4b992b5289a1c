package risk

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/account"
	"github.com/rustyeddy/riskgate/journal"
)

type flakyAccount struct{ err error }

func (f flakyAccount) AccountEquity() (decimal.Decimal, error) { return decimal.Zero, f.err }
func (f flakyAccount) BuyingPower() (decimal.Decimal, error)   { return decimal.Zero, f.err }

func newTestManager(t *testing.T, acct account.Provider) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := NewManager(wed, ManagerOptions{
		Config:         DefaultConfig(),
		Account:        acct,
		PDTStatePath:   filepath.Join(dir, "pdt.json"),
		DrawdownPath:   filepath.Join(dir, "drawdown.json"),
		StartingEquity: dec("10000"),
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func evalRequest() PositionSizeRequest {
	return PositionSizeRequest{
		Symbol:           "SPY",
		Strategy:         StrategyA,
		Confidence:       0.8,
		EntryPremium:     dec("1.00"),
		StopLossFraction: dec("0.25"),
	}
}

func TestEvaluate_ApprovedHappyPath(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})
	res, err := m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)

	// riskMax = 300/25 = 12, positionMax = 2000/100 = 20, cashMax = 100.
	assert.Equal(t, Reduced, res.Decision, "risk-bound below the cash ceiling is a reduction")
	assert.Equal(t, ReasonNone, res.Reason)
	assert.EqualValues(t, 12, res.Contracts)
	assert.Equal(t, ConstraintRisk, res.Sizing.Binding)
	assert.Equal(t, 3, res.PDTTradesRemaining)
	assert.False(t, res.GovernorActive)
	assert.Empty(t, res.Warnings)
}

func TestEvaluate_ApprovedWhenCashBound(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("500")})
	res, err := m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)

	assert.Equal(t, Approved, res.Decision)
	assert.EqualValues(t, 5, res.Contracts)
	assert.Equal(t, ConstraintCash, res.Sizing.Binding)
}

func TestEvaluate_GovernorLocksEverything(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("8000"), Power: dec("8000")})

	// First evaluation pulls equity 8000 against the 10000 weekly baseline:
	// 20% weekly drawdown latches the governor before any other gate runs.
	res, err := m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)

	assert.Equal(t, StrategyCLocked, res.Decision)
	assert.Equal(t, ReasonWeeklyGovernor, res.Reason)
	assert.True(t, res.GovernorActive)
	assert.EqualValues(t, 0, res.Contracts)
}

func TestEvaluate_DailyLimitBeforePDT(t *testing.T) {
	t.Parallel()

	// 11% daily loss, under the 15% weekly governor.
	m := newTestManager(t, account.Static{Equity: dec("8900"), Power: dec("8900")})

	res, err := m.Evaluate(wed, evalRequest(), true)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Decision)
	assert.Equal(t, ReasonDailyLossLimit, res.Reason)
}

func TestEvaluate_PDTGateOnlyForDayTrades(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})

	// Exhaust the window.
	for i := 0; i < 3; i++ {
		ok, err := m.pdt.RecordDayTrade("SPY", at(26, 10+i), at(26, 11+i), 1)
		require.NoError(t, err)
		require.True(t, ok)
	}

	res, err := m.Evaluate(wed, evalRequest(), true)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Decision)
	assert.Equal(t, ReasonPDTLimit, res.Reason)

	// The same candidate held overnight is not gated by PDT.
	res, err = m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)
	assert.NotEqual(t, ReasonPDTLimit, res.Reason)
	assert.Positive(t, res.Contracts)
}

func TestEvaluate_StrategyCLocked(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})
	req := evalRequest()
	req.Strategy = StrategyC

	res, err := m.Evaluate(wed, req, false)
	require.NoError(t, err)
	assert.Equal(t, StrategyCLocked, res.Decision)
	assert.Equal(t, ReasonNoNewRisk, res.Reason)
}

func TestEvaluate_AggregateExposureRejects(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})
	req := evalRequest()
	req.OpenPositionsValue = dec("1950") // ceiling is 2000, proposed cost 100

	res, err := m.Evaluate(wed, req, false)
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Decision)
	assert.Equal(t, ReasonExposureCeiling, res.Reason)
}

func TestEvaluate_AccountProviderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker offline")
	m := newTestManager(t, flakyAccount{err: boom})

	_, err := m.Evaluate(wed, evalRequest(), false)
	assert.ErrorIs(t, err, boom)
}

func TestEvaluate_Warnings(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("9200"), Power: dec("9200")})

	// Two day trades used: one remaining triggers the PDT warning. 8% daily
	// drawdown leaves $200 of the $1000 budget: under 25% remaining.
	for i := 0; i < 2; i++ {
		ok, err := m.pdt.RecordDayTrade("SPY", at(26, 10+i), at(26, 11+i), 1)
		require.NoError(t, err)
		require.True(t, ok)
	}

	res, err := m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "PDT")
	assert.Contains(t, res.Warnings[1], "daily loss budget low")
}

func TestRecordTradeLifecycle_SameDayFeedsPDT(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})

	require.NoError(t, m.RecordTradeEntry(at(26, 10), "SPY", StrategyA, 2, dec("1.50")))
	out, err := m.RecordTradeExit(at(26, 14), "SPY", dec("1.20"))
	require.NoError(t, err)

	// (1.20 - 1.50) * 100 * 2 = -60.
	assert.True(t, dec("-60").Equal(out.RealizedPL), "pl %s", out.RealizedPL)
	assert.True(t, out.DayTrade)
	assert.NotEmpty(t, out.TradeID)
	assert.Equal(t, 2, m.pdt.TradesRemaining(wed))

	day, _ := m.drawdown.RealizedPnL(wed)
	assert.True(t, dec("-60").Equal(day))
}

func TestRecordTradeLifecycle_OvernightSkipsPDT(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})

	require.NoError(t, m.RecordTradeEntry(at(25, 14), "QQQ", StrategyB, 1, dec("2.00")))
	out, err := m.RecordTradeExit(at(26, 10), "QQQ", dec("2.40"))
	require.NoError(t, err)

	assert.False(t, out.DayTrade)
	assert.Equal(t, 3, m.pdt.TradesRemaining(wed), "overnight trades never consume PDT budget")
	assert.True(t, dec("40").Equal(out.RealizedPL))
}

func TestRecordTradeExit_UnknownSymbol(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})
	_, err := m.RecordTradeExit(wed, "NOPE", dec("1.00"))
	assert.Error(t, err)
}

func TestRecordTradeEntry_DuplicateSymbol(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})
	require.NoError(t, m.RecordTradeEntry(at(26, 10), "SPY", StrategyA, 1, dec("1.00")))
	assert.Error(t, m.RecordTradeEntry(at(26, 11), "SPY", StrategyA, 1, dec("1.10")))
}

func TestHalt_Idempotent(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})

	m.Halt(wed, "fat finger")
	m.Halt(wed.Add(time.Minute), "again")

	res, err := m.Evaluate(wed.Add(2*time.Minute), evalRequest(), false)
	require.NoError(t, err)
	assert.Equal(t, StrategyCLocked, res.Decision)
	assert.Equal(t, ReasonWeeklyGovernor, res.Reason)
}

func TestManager_JournalsExits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := journal.NewSQLite(filepath.Join(dir, "trades.db"))
	require.NoError(t, err)
	defer j.Close()

	m, err := NewManager(wed, ManagerOptions{
		Config:         DefaultConfig(),
		Account:        account.Static{Equity: dec("10000"), Power: dec("10000")},
		Journal:        j,
		PDTStatePath:   filepath.Join(dir, "pdt.json"),
		DrawdownPath:   filepath.Join(dir, "drawdown.json"),
		StartingEquity: dec("10000"),
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)

	require.NoError(t, m.RecordTradeEntry(at(26, 10), "SPY", StrategyA, 1, dec("1.00")))
	out, err := m.RecordTradeExit(at(26, 12), "SPY", dec("1.30"))
	require.NoError(t, err)

	got, err := j.TradesOnDay(at(26, 12))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, out.TradeID, got[0].TradeID)
	assert.True(t, dec("30").Equal(got[0].RealizedPL))
}

func TestStatusSnapshot(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("9500"), Power: dec("9500")})

	require.NoError(t, m.RecordTradeEntry(at(26, 10), "SPY", StrategyA, 1, dec("1.00")))

	st, err := m.Status(wed)
	require.NoError(t, err)
	assert.True(t, dec("9500").Equal(st.Equity))
	assert.True(t, dec("0.05").Equal(st.DailyDrawdown), "daily drawdown %s", st.DailyDrawdown)
	assert.False(t, st.DailyLimitReached)
	assert.False(t, st.GovernorActive)
	assert.Equal(t, 0, st.PDTTradesUsed)
	assert.Equal(t, 3, st.PDTTradesRemaining)
	assert.Equal(t, 1, st.OpenPositions)
}

func TestEvaluationCounts(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, account.Static{Equity: dec("10000"), Power: dec("10000")})

	_, err := m.Evaluate(wed, evalRequest(), false)
	require.NoError(t, err)

	req := evalRequest()
	req.Strategy = StrategyC
	_, err = m.Evaluate(wed, req, false)
	require.NoError(t, err)

	counts := m.EvaluationCounts()
	assert.EqualValues(t, 1, counts[Reduced])
	assert.EqualValues(t, 1, counts[StrategyCLocked])
}
