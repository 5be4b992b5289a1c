// Package account defines the capability the risk core needs from a broker:
// current equity and buying power. Live adapters and test doubles both
// satisfy Provider.
package account

import "github.com/shopspring/decimal"

// Provider supplies the two account figures every risk evaluation reads.
type Provider interface {
	AccountEquity() (decimal.Decimal, error)
	BuyingPower() (decimal.Decimal, error)
}

// Static is a fixed-value Provider for tests and dry runs.
type Static struct {
	Equity decimal.Decimal
	Power  decimal.Decimal
}

func (s Static) AccountEquity() (decimal.Decimal, error) { return s.Equity, nil }
func (s Static) BuyingPower() (decimal.Decimal, error)   { return s.Power, nil }
