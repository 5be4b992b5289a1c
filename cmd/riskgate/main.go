// riskgate - operator utilities for the risk-control state of one trading
// account. The trading bot links the risk packages directly; this CLI only
// inspects and resets the durable state those packages own.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskgate/config"
)

var (
	cfgPath  string
	stateDir string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "riskgate",
	Short: "Inspect and reset risk-control state",
	Long: `riskgate inspects the durable risk state (drawdown frames, the weekly
governor and the PDT day-trade log) and performs the daily/weekly resets the
trading loop would otherwise do at session open.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env can carry RISKGATE_CONFIG for container deployments.
		_ = godotenv.Load()

		if cfgPath == "" {
			cfgPath = os.Getenv("RISKGATE_CONFIG")
		}
		if cfgPath == "" {
			cfg = config.Default()
		} else {
			var err error
			cfg, err = config.LoadFromFile(cfgPath)
			if err != nil {
				return err
			}
		}

		if stateDir == "" {
			stateDir = os.Getenv("RISKGATE_STATE_DIR")
		}
		if stateDir != "" {
			cfg.State.PDTPath = filepath.Join(stateDir, "pdt.json")
			cfg.State.DrawdownPath = filepath.Join(stateDir, "drawdown.json")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory holding pdt.json and drawdown.json (overrides config paths)")
	rootCmd.AddCommand(cmdStatus)
	rootCmd.AddCommand(cmdPDT)
	rootCmd.AddCommand(cmdResetDaily)
	rootCmd.AddCommand(cmdResetWeekly)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
