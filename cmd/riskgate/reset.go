package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/risk"
)

var (
	resetEquity string
)

func init() {
	cmdResetDaily.Flags().StringVar(&resetEquity, "equity", "", "current account equity (decimal string)")
	cmdResetWeekly.Flags().StringVar(&resetEquity, "equity", "", "current account equity (decimal string)")
	cmdResetDaily.MarkFlagRequired("equity")
	cmdResetWeekly.MarkFlagRequired("equity")
}

var cmdResetDaily = &cobra.Command{
	Use:   "reset-daily",
	Short: "Start a new daily drawdown frame from the given equity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(func(m *risk.DrawdownMonitor, now time.Time, equity decimal.Decimal) {
			m.ResetDaily(now, equity)
			fmt.Printf("daily frame reset at $%s\n", equity.StringFixed(2))
		})
	},
}

var cmdResetWeekly = &cobra.Command{
	Use:   "reset-weekly",
	Short: "Start a new weekly frame and clear the governor",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(func(m *risk.DrawdownMonitor, now time.Time, equity decimal.Decimal) {
			m.ResetWeekly(now, equity)
			fmt.Printf("weekly frame reset at $%s, governor cleared\n", equity.StringFixed(2))
		})
	},
}

func runReset(apply func(*risk.DrawdownMonitor, time.Time, decimal.Decimal)) error {
	equity, err := decimal.NewFromString(resetEquity)
	if err != nil {
		return fmt.Errorf("--equity: %w", err)
	}
	if !equity.IsPositive() {
		return fmt.Errorf("--equity must be positive")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	now := time.Now()
	monitor := risk.NewDrawdownMonitor(cfg.Risk(), cfg.State.DrawdownPath, cfg.StartingEquity(), now, log)
	apply(monitor, now, equity)
	return nil
}

func pct(f decimal.Decimal) string {
	return f.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}
