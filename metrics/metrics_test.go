package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/riskgate/risk"
)

type fakeSource struct {
	status risk.Status
	counts map[risk.Decision]uint64
}

func (f fakeSource) Status(time.Time) (risk.Status, error)      { return f.status, nil }
func (f fakeSource) EvaluationCounts() map[risk.Decision]uint64 { return f.counts }

func TestCollectorExportsStatus(t *testing.T) {
	t.Parallel()

	src := fakeSource{
		status: risk.Status{
			Equity:             decimal.RequireFromString("9500"),
			DailyDrawdown:      decimal.RequireFromString("0.05"),
			WeeklyDrawdown:     decimal.RequireFromString("0.05"),
			GovernorActive:     true,
			PDTTradesUsed:      2,
			PDTTradesRemaining: 1,
			OpenPositions:      1,
		},
		counts: map[risk.Decision]uint64{risk.Approved: 4, risk.Rejected: 2},
	}

	expected := `
# HELP risk_account_equity Current account equity in dollars
# TYPE risk_account_equity gauge
risk_account_equity 9500
# HELP risk_governor_active 1 when the weekly drawdown governor is latched
# TYPE risk_governor_active gauge
risk_governor_active 1
# HELP risk_pdt_trades_remaining Day trades still allowed inside the rolling window
# TYPE risk_pdt_trades_remaining gauge
risk_pdt_trades_remaining 1
# HELP risk_evaluations_total Evaluations by decision since startup
# TYPE risk_evaluations_total counter
risk_evaluations_total{decision="approved"} 4
risk_evaluations_total{decision="rejected"} 2
`
	err := testutil.CollectAndCompare(NewCollector(src, nil), strings.NewReader(expected),
		"risk_account_equity", "risk_governor_active", "risk_pdt_trades_remaining", "risk_evaluations_total")
	assert.NoError(t, err)
}
