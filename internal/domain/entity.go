package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LimitOrderFill is the raw limit_order object of a venue fill notification.
// Sold and Bought are hex integers in the smallest unit of the sold/bought asset.
type LimitOrderFill struct {
	BaseAsset  Asset  `json:"base_asset"`
	QuoteAsset Asset  `json:"quote_asset"`
	Side       Side   `json:"side"`
	Sold       string `json:"sold"`
	Bought     string `json:"bought"`

	// BlockNumber is copied from the enclosing notification.
	BlockNumber uint64 `json:"-"`
}

// FillRecord is the economic summary of one fill.
// Changes are signed from the maker's point of view.
type FillRecord struct {
	BaseAsset   string
	QuoteAsset  string
	Side        Side
	BlockNumber uint64

	AssetChange  decimal.Decimal
	QuoteChange  decimal.Decimal
	AveragePrice decimal.Decimal // always >= 0
	FeeAsset     decimal.Decimal
	FeeQuote     decimal.Decimal

	Timestamp time.Time
}

// Amount is the traded base quantity, unsigned.
func (r FillRecord) Amount() decimal.Decimal {
	return r.AssetChange.Abs()
}

// Total is the traded quote quantity, unsigned.
func (r FillRecord) Total() decimal.Decimal {
	return r.QuoteChange.Abs()
}
