package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/riskgate/risk"
)

var cmdStatus = &cobra.Command{
	Use:   "status",
	Short: "Show drawdown frames, governor state and PDT usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer log.Sync()

		now := time.Now()
		rc := cfg.Risk()

		monitor := risk.ReadDrawdownMonitor(rc, cfg.State.DrawdownPath, cfg.StartingEquity(), now, log)
		tracker := risk.NewPDTTracker(rc, cfg.State.PDTPath, log)

		ok, reason := monitor.CanTrade(now)
		day, week := monitor.RealizedPnL(now)

		fmt.Printf("account          %s\n", cfg.Account.ID)
		fmt.Printf("trading allowed  %v", ok)
		if !ok {
			fmt.Printf("  (%s)", reason)
		}
		fmt.Println()
		fmt.Printf("daily drawdown   %s\n", pct(monitor.DailyDrawdown(now)))
		fmt.Printf("weekly drawdown  %s\n", pct(monitor.WeeklyDrawdown(now)))
		fmt.Printf("daily loss left  $%s\n", monitor.DailyLossRemaining(now).StringFixed(2))
		fmt.Printf("realized P&L     day $%s / week $%s\n", day.StringFixed(2), week.StringFixed(2))
		fmt.Printf("governor active  %v\n", monitor.IsGovernorActive(now))
		fmt.Printf("day trades left  %d of %d\n", tracker.TradesRemaining(now), rc.PDTTradeLimit)
		return nil
	},
}

var cmdPDT = &cobra.Command{
	Use:   "pdt",
	Short: "List day trades inside the current rolling window",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer log.Sync()

		now := time.Now()
		tracker := risk.NewPDTTracker(cfg.Risk(), cfg.State.PDTPath, log)

		trades := tracker.Trades(now)
		if len(trades) == 0 {
			fmt.Println("no day trades in the current window")
			return nil
		}
		for _, dt := range trades {
			fmt.Printf("%s  %-6s  %d contracts  %s -> %s\n",
				dt.TradeDate.Format("2006-01-02"), dt.Symbol, dt.Contracts,
				dt.EntryTime.Format("15:04"), dt.ExitTime.Format("15:04"))
		}
		fmt.Printf("%d used, %d remaining\n", len(trades), tracker.TradesRemaining(now))
		return nil
	},
}
