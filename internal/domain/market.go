package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Asset identifies a token on the venue.
// The JSON form is the venue's asset object, e.g. {"chain":"Ethereum","asset":"ETH"}.
type Asset struct {
	Chain    string `json:"chain" yaml:"chain"`
	Symbol   string `json:"asset" yaml:"asset"`
	Decimals int32  `json:"-" yaml:"decimals"`
}

// Scale returns the smallest-unit denominator, 10^Decimals.
func (a Asset) Scale() decimal.Decimal {
	return decimal.New(1, a.Decimals)
}

func (a Asset) String() string {
	return a.Symbol
}

// Instrument is a quoted pair plus its quoting parameters.
// Immutable once built from configuration.
type Instrument struct {
	// Symbol is the key used by the reference price feed (e.g. "ETH").
	Symbol string
	Base   Asset
	Quote  Asset

	BuyFactor  decimal.Decimal
	SellFactor decimal.Decimal
	BuySize    decimal.Decimal // in base units, zero disables the buy side
	SellSize   decimal.Decimal // in base units, zero disables the sell side

	BuyOrderID  uint64
	SellOrderID uint64
}

// Pair returns a display name like "ETH/USDC".
func (i Instrument) Pair() string {
	return fmt.Sprintf("%s/%s", i.Base.Symbol, i.Quote.Symbol)
}

// Supports reports whether a fill on (base, quote) belongs to this instrument.
func (i Instrument) Supports(base, quote string) bool {
	return i.Base.Symbol == base && i.Quote.Symbol == quote
}

// PriceState is the per-instrument view shared by the feed and the quoter.
// A zero Mid means no reference price has been seen yet.
type PriceState struct {
	Mid        decimal.Decimal `json:"mid"`
	LastQuoted decimal.Decimal `json:"last_quoted"`
}
