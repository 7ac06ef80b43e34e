package domain

import "github.com/shopspring/decimal"

// Side is the venue's order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// IsValid reports whether s is a side the venue understands.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// OrderRequest is a single limit order submission.
// It is built once per quote refresh and never retried.
type OrderRequest struct {
	Side       Side
	Instrument Instrument
	Price      decimal.Decimal // quote per base
	Amount     decimal.Decimal // base units
	OrderID    uint64          // distinguishes resting orders per (instrument, side)
}
