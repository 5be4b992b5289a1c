// Package metrics exposes the risk core's status to Prometheus. Gauges are
// read on scrape from the manager's snapshot rather than pushed, so the
// exported values can never drift from the decision-making state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/risk"
)

// StatusSource is the slice of the risk manager the collector reads.
type StatusSource interface {
	Status(now time.Time) (risk.Status, error)
	EvaluationCounts() map[risk.Decision]uint64
}

var (
	descEquity = prometheus.NewDesc("risk_account_equity",
		"Current account equity in dollars", nil, nil)
	descDailyDrawdown = prometheus.NewDesc("risk_daily_drawdown",
		"Daily drawdown as a fraction of day-start equity", nil, nil)
	descWeeklyDrawdown = prometheus.NewDesc("risk_weekly_drawdown",
		"Weekly drawdown as a fraction of week-start equity", nil, nil)
	descDailyLimit = prometheus.NewDesc("risk_daily_limit_reached",
		"1 when the daily loss limit has halted new entries", nil, nil)
	descGovernor = prometheus.NewDesc("risk_governor_active",
		"1 when the weekly drawdown governor is latched", nil, nil)
	descPDTUsed = prometheus.NewDesc("risk_pdt_trades_used",
		"Day trades used inside the rolling window", nil, nil)
	descPDTRemaining = prometheus.NewDesc("risk_pdt_trades_remaining",
		"Day trades still allowed inside the rolling window", nil, nil)
	descOpenPositions = prometheus.NewDesc("risk_open_positions",
		"Open positions tracked by the risk manager", nil, nil)
	descEvaluations = prometheus.NewDesc("risk_evaluations_total",
		"Evaluations by decision since startup", []string{"decision"}, nil)
)

// Collector adapts a StatusSource to prometheus.Collector.
type Collector struct {
	src StatusSource
	log *zap.Logger
	now func() time.Time
}

func NewCollector(src StatusSource, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{src: src, log: log, now: time.Now}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descEquity
	ch <- descDailyDrawdown
	ch <- descWeeklyDrawdown
	ch <- descDailyLimit
	ch <- descGovernor
	ch <- descPDTUsed
	ch <- descPDTRemaining
	ch <- descOpenPositions
	ch <- descEvaluations
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.src.Status(c.now())
	if err != nil {
		c.log.Warn("risk status unavailable for scrape", zap.Error(err))
		return
	}

	equity, _ := st.Equity.Float64()
	daily, _ := st.DailyDrawdown.Float64()
	weekly, _ := st.WeeklyDrawdown.Float64()

	ch <- prometheus.MustNewConstMetric(descEquity, prometheus.GaugeValue, equity)
	ch <- prometheus.MustNewConstMetric(descDailyDrawdown, prometheus.GaugeValue, daily)
	ch <- prometheus.MustNewConstMetric(descWeeklyDrawdown, prometheus.GaugeValue, weekly)
	ch <- prometheus.MustNewConstMetric(descDailyLimit, prometheus.GaugeValue, boolGauge(st.DailyLimitReached))
	ch <- prometheus.MustNewConstMetric(descGovernor, prometheus.GaugeValue, boolGauge(st.GovernorActive))
	ch <- prometheus.MustNewConstMetric(descPDTUsed, prometheus.GaugeValue, float64(st.PDTTradesUsed))
	ch <- prometheus.MustNewConstMetric(descPDTRemaining, prometheus.GaugeValue, float64(st.PDTTradesRemaining))
	ch <- prometheus.MustNewConstMetric(descOpenPositions, prometheus.GaugeValue, float64(st.OpenPositions))

	for decision, n := range c.src.EvaluationCounts() {
		ch <- prometheus.MustNewConstMetric(descEvaluations, prometheus.CounterValue,
			float64(n), string(decision))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
