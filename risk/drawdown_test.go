package risk

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/store"
)

// Wednesday mid-week, mid-session.
var wed = time.Date(2026, time.August, 26, 15, 30, 0, 0, time.UTC)

func newTestMonitor(t *testing.T, equity string) *DrawdownMonitor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drawdown.json")
	return NewDrawdownMonitor(DefaultConfig(), path, dec(equity), wed, zap.NewNop())
}

func TestDailyLimit_ExactBoundary(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")

	// 9.99% down: still trading.
	m.UpdateEquity(wed, dec("9001"))
	assert.False(t, m.IsDailyLimitReached(wed))
	ok, reason := m.CanTrade(wed)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	// Exactly 10% down: limit reached, boundary inclusive.
	m.UpdateEquity(wed, dec("9000"))
	assert.True(t, m.IsDailyLimitReached(wed))
	ok, reason = m.CanTrade(wed)
	assert.False(t, ok)
	assert.Equal(t, ReasonDailyLossLimit, reason)
}

func TestDailyLimit_ClearsOnDailyReset(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.UpdateEquity(wed, dec("8900"))
	require.True(t, m.IsDailyLimitReached(wed))

	next := wed.AddDate(0, 0, 1)
	m.ResetDaily(next, dec("8900"))
	assert.False(t, m.IsDailyLimitReached(next))
}

func TestGovernor_LatchesAtExactThreshold(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")

	// Exactly 15% weekly drawdown.
	m.UpdateEquity(wed, dec("8500"))
	assert.True(t, m.IsGovernorActive(wed))
	ok, reason := m.CanTrade(wed)
	assert.False(t, ok)
	assert.Equal(t, ReasonWeeklyGovernor, reason)

	// Survives a daily reset, even one that clears the daily frame.
	next := wed.AddDate(0, 0, 1)
	m.ResetDaily(next, dec("8500"))
	assert.True(t, m.IsGovernorActive(next))
	assert.False(t, m.IsDailyLimitReached(next))
	_, reason = m.CanTrade(next)
	assert.Equal(t, ReasonWeeklyGovernor, reason)

	// Clears on an explicit weekly reset.
	m.ResetWeekly(next, dec("8500"))
	assert.False(t, m.IsGovernorActive(next))
}

func TestGovernor_ClearsOnWeekRollover(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.UpdateEquity(wed, dec("8000"))
	require.True(t, m.IsGovernorActive(wed))

	// Next Monday: lazy rollover on read clears the latch.
	monday := time.Date(2026, time.August, 31, 9, 30, 0, 0, time.UTC)
	assert.False(t, m.IsGovernorActive(monday))

	// The new weekly baseline is the carried-over equity.
	assert.True(t, m.WeeklyDrawdown(monday).IsZero())
}

func TestGovernor_PrecedesDailyLimitInCanTrade(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.UpdateEquity(wed, dec("8000")) // 20% down: both limits breached

	_, reason := m.CanTrade(wed)
	assert.Equal(t, ReasonWeeklyGovernor, reason)
}

func TestTriggerGovernor_Idempotent(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.TriggerGovernor(wed)
	require.True(t, m.IsGovernorActive(wed))
	first := *m.state.GovernorTriggered

	m.TriggerGovernor(wed.Add(time.Hour))
	assert.True(t, m.IsGovernorActive(wed))
	assert.Equal(t, first, *m.state.GovernorTriggered, "second trigger must keep the original timestamp")
}

func TestRealizedPnLAccumulates(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.RecordRealizedPnL(wed, dec("-150.25"))
	m.RecordRealizedPnL(wed, dec("40.00"))

	day, week := m.RealizedPnL(wed)
	assert.True(t, dec("-110.25").Equal(day), "day %s", day)
	assert.True(t, dec("-110.25").Equal(week), "week %s", week)

	// Daily reset zeroes the day but not the week.
	m.ResetDaily(wed.AddDate(0, 0, 1), dec("9889.75"))
	day, week = m.RealizedPnL(wed.AddDate(0, 0, 1))
	assert.True(t, day.IsZero())
	assert.True(t, dec("-110.25").Equal(week))
}

func TestDailyLossRemaining(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	assert.True(t, dec("1000").Equal(m.DailyLossRemaining(wed)))

	m.UpdateEquity(wed, dec("9600"))
	assert.True(t, dec("600").Equal(m.DailyLossRemaining(wed)))

	m.UpdateEquity(wed, dec("8500"))
	assert.True(t, m.DailyLossRemaining(wed).IsZero())
}

func TestDrawdownState_RoundTripPreservesDecisions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drawdown.json")
	cfg := DefaultConfig()

	m1 := NewDrawdownMonitor(cfg, path, dec("10000"), wed, zap.NewNop())
	m1.UpdateEquity(wed, dec("9250.33"))
	m1.RecordRealizedPnL(wed, dec("-749.67"))

	m2 := NewDrawdownMonitor(cfg, path, dec("999999"), wed, zap.NewNop())

	assert.True(t, m1.DailyDrawdown(wed).Equal(m2.DailyDrawdown(wed)))
	assert.True(t, m1.DailyLossRemaining(wed).Equal(m2.DailyLossRemaining(wed)))
	assert.Equal(t, m1.IsDailyLimitReached(wed), m2.IsDailyLimitReached(wed))
	assert.Equal(t, m1.IsGovernorActive(wed), m2.IsGovernorActive(wed))

	day1, week1 := m1.RealizedPnL(wed)
	day2, week2 := m2.RealizedPnL(wed)
	assert.True(t, day1.Equal(day2))
	assert.True(t, week1.Equal(week2))
}

func TestDrawdown_CorruptFileReinitializes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drawdown.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	m := NewDrawdownMonitor(DefaultConfig(), path, dec("5000"), wed, zap.NewNop())

	ok, _ := m.CanTrade(wed)
	assert.True(t, ok)
	assert.True(t, m.DailyDrawdown(wed).IsZero())
	assert.True(t, dec("500").Equal(m.DailyLossRemaining(wed)))
}

func TestDrawdown_UnknownVersionReinitializes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drawdown.json")
	st := freshState(dec("10000"), wed)
	st.Version = drawdownStateVersion + 1
	st.GovernorActive = true
	require.NoError(t, store.Save(path, st))

	m := NewDrawdownMonitor(DefaultConfig(), path, dec("5000"), wed, zap.NewNop())

	assert.False(t, m.IsGovernorActive(wed))
	ok, _ := m.CanTrade(wed)
	assert.True(t, ok)
	assert.True(t, dec("500").Equal(m.DailyLossRemaining(wed)))
}

func TestReadDrawdownMonitor_MissingFileNotSeeded(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drawdown.json")

	m := ReadDrawdownMonitor(DefaultConfig(), path, dec("10000"), wed, zap.NewNop())
	ok, _ := m.CanTrade(wed)
	assert.True(t, ok)
	assert.True(t, m.DailyDrawdown(wed).IsZero())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "inspection must not create the state file")
}

func TestReadDrawdownMonitor_RolloverNotPersisted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "drawdown.json")
	cfg := DefaultConfig()

	w := NewDrawdownMonitor(cfg, path, dec("10000"), wed, zap.NewNop())
	w.UpdateEquity(wed, dec("9000"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Monday of the next week: the reader sees a fresh weekly frame.
	monday := time.Date(2026, time.August, 31, 14, 0, 0, 0, time.UTC)
	r := ReadDrawdownMonitor(cfg, path, dec("10000"), monday, zap.NewNop())
	assert.True(t, r.WeeklyDrawdown(monday).IsZero())

	// The file on disk is untouched.
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDrawdown_GainNeverReportsNegativeDrawdown(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, "10000")
	m.UpdateEquity(wed, dec("10500"))
	assert.True(t, m.DailyDrawdown(wed).IsZero())
	assert.True(t, m.WeeklyDrawdown(wed).IsZero())
}
