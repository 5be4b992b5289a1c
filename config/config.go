// Package config loads the risk core's deployment configuration. Thresholds
// are fixed business parameters; the file exists so operators can point the
// core at state paths and a journal, not to tune policy at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/riskgate/risk"
)

// Config is the complete on-disk configuration. Monetary values and
// fractions are decimal strings so no threshold ever passes through a binary
// float.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Limits  LimitsConfig  `json:"limits" yaml:"limits"`
	State   StateConfig   `json:"state" yaml:"state"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// AccountConfig identifies the account and its fallback starting equity, used
// only when no drawdown state file exists yet.
type AccountConfig struct {
	ID             string `json:"id" yaml:"id"`
	StartingEquity string `json:"starting_equity" yaml:"starting_equity"`
}

// LimitsConfig mirrors risk.Config.
type LimitsConfig struct {
	MinConfidence       float64 `json:"min_confidence" yaml:"min_confidence"`
	MaxRiskPerTrade     string  `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	DailyLossLimit      string  `json:"daily_loss_limit" yaml:"daily_loss_limit"`
	WeeklyGovernorLimit string  `json:"weekly_governor_limit" yaml:"weekly_governor_limit"`
	ContractMultiplier  int64   `json:"contract_multiplier" yaml:"contract_multiplier"`

	StrategyAPositionLimit string `json:"strategy_a_position_limit" yaml:"strategy_a_position_limit"`
	StrategyBPositionLimit string `json:"strategy_b_position_limit" yaml:"strategy_b_position_limit"`

	PDTTradeLimit int `json:"pdt_trade_limit" yaml:"pdt_trade_limit"`
	PDTWindowDays int `json:"pdt_window_days" yaml:"pdt_window_days"`
}

// StateConfig holds the durable state file paths.
type StateConfig struct {
	PDTPath      string `json:"pdt_path" yaml:"pdt_path"`
	DrawdownPath string `json:"drawdown_path" yaml:"drawdown_path"`
}

// JournalConfig selects the trade-journal backend. Type is "sqlite", "csv"
// or "none".
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSV    string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges without second-guessing policy values.
func (c *Config) Validate() error {
	equity, err := decimal.NewFromString(c.Account.StartingEquity)
	if err != nil {
		return fmt.Errorf("account.starting_equity: %w", err)
	}
	if !equity.IsPositive() {
		return fmt.Errorf("account.starting_equity must be positive")
	}
	if c.Limits.MinConfidence < 0 || c.Limits.MinConfidence > 1 {
		return fmt.Errorf("limits.min_confidence must be in [0, 1]")
	}
	for name, s := range map[string]string{
		"limits.max_risk_per_trade":        c.Limits.MaxRiskPerTrade,
		"limits.daily_loss_limit":          c.Limits.DailyLossLimit,
		"limits.weekly_governor_limit":     c.Limits.WeeklyGovernorLimit,
		"limits.strategy_a_position_limit": c.Limits.StrategyAPositionLimit,
		"limits.strategy_b_position_limit": c.Limits.StrategyBPositionLimit,
	} {
		f, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if f.IsNegative() || f.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be a fraction in [0, 1]", name)
		}
	}
	if c.Limits.ContractMultiplier <= 0 {
		return fmt.Errorf("limits.contract_multiplier must be positive")
	}
	if c.Limits.PDTTradeLimit < 0 {
		return fmt.Errorf("limits.pdt_trade_limit must not be negative")
	}
	if c.Limits.PDTWindowDays < 1 {
		return fmt.Errorf("limits.pdt_window_days must be at least 1")
	}
	if c.State.PDTPath == "" || c.State.DrawdownPath == "" {
		return fmt.Errorf("state.pdt_path and state.drawdown_path are required")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.CSV == "" {
			return fmt.Errorf("journal.csv_path required for csv journal")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}
	return nil
}

// StartingEquity returns the parsed fallback equity. Call Validate first.
func (c *Config) StartingEquity() decimal.Decimal {
	return decimal.RequireFromString(c.Account.StartingEquity)
}

// Risk maps the file representation onto the risk package's immutable config.
// Call Validate first; malformed fractions panic here.
func (c *Config) Risk() risk.Config {
	return risk.Config{
		MinConfidence:       c.Limits.MinConfidence,
		MaxRiskPerTrade:     decimal.RequireFromString(c.Limits.MaxRiskPerTrade),
		DailyLossLimit:      decimal.RequireFromString(c.Limits.DailyLossLimit),
		WeeklyGovernorLimit: decimal.RequireFromString(c.Limits.WeeklyGovernorLimit),
		ContractMultiplier:  c.Limits.ContractMultiplier,
		StrategyPositionLimits: map[risk.Strategy]decimal.Decimal{
			risk.StrategyA: decimal.RequireFromString(c.Limits.StrategyAPositionLimit),
			risk.StrategyB: decimal.RequireFromString(c.Limits.StrategyBPositionLimit),
			risk.StrategyC: decimal.Zero,
		},
		PDTTradeLimit: c.Limits.PDTTradeLimit,
		PDTWindowDays: c.Limits.PDTWindowDays,
	}
}

// Default returns the production configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:             "LIVE-001",
			StartingEquity: "10000",
		},
		Limits: LimitsConfig{
			MinConfidence:          0.5,
			MaxRiskPerTrade:        "0.03",
			DailyLossLimit:         "0.10",
			WeeklyGovernorLimit:    "0.15",
			ContractMultiplier:     100,
			StrategyAPositionLimit: "0.20",
			StrategyBPositionLimit: "0.10",
			PDTTradeLimit:          3,
			PDTWindowDays:          5,
		},
		State: StateConfig{
			PDTPath:      "./state/pdt.json",
			DrawdownPath: "./state/drawdown.json",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./state/trades.db",
		},
	}
}
