// Package journal records completed option trades for later review. The risk
// manager writes one record per recorded exit; backends are SQLite for
// queryable history and CSV for spreadsheet export.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one completed round trip as seen by the risk core.
type TradeRecord struct {
	TradeID      string
	Symbol       string
	Strategy     string
	Contracts    int
	EntryPremium decimal.Decimal
	ExitPremium  decimal.Decimal
	OpenTime     time.Time
	CloseTime    time.Time
	RealizedPL   decimal.Decimal
	DayTrade     bool
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}
