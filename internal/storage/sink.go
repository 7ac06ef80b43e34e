package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

// FillSink persists or forwards fill records.
type FillSink interface {
	RecordFill(ctx context.Context, rec domain.FillRecord) error
}

// FillLine is the accounting record written per fill, one JSON object per line.
type FillLine struct {
	Timestamp       int64   `json:"timestamp"`
	BaseAsset       string  `json:"base_asset"`
	QuoteAsset      string  `json:"quote_asset"`
	Side            string  `json:"side"`
	AssetChange     float64 `json:"asset_change"`
	QuoteChange     float64 `json:"quote_change"`
	Amount          float64 `json:"amount"`
	Price           float64 `json:"price"`
	Total           float64 `json:"total"`
	FeesEarnedAsset float64 `json:"fees_earned_asset"`
	FeesEarnedQuote float64 `json:"fees_earned_quote"`
	FeesAsset       string  `json:"fees_asset"`
	BlockNumber     uint64  `json:"block_number"`
}

// NewFillLine flattens a record for the accounting file and the message bus.
func NewFillLine(rec domain.FillRecord) FillLine {
	return FillLine{
		Timestamp:       rec.Timestamp.Unix(),
		BaseAsset:       rec.BaseAsset,
		QuoteAsset:      rec.QuoteAsset,
		Side:            string(rec.Side),
		AssetChange:     rec.AssetChange.InexactFloat64(),
		QuoteChange:     rec.QuoteChange.InexactFloat64(),
		Amount:          rec.Amount().InexactFloat64(),
		Price:           rec.AveragePrice.InexactFloat64(),
		Total:           rec.Total().InexactFloat64(),
		FeesEarnedAsset: rec.FeeAsset.InexactFloat64(),
		FeesEarnedQuote: rec.FeeQuote.InexactFloat64(),
		FeesAsset:       rec.BaseAsset,
		BlockNumber:     rec.BlockNumber,
	}
}

// Multi fans a record out to every sink. A failing sink does not stop the
// others; the joined error reports all failures.
type Multi []FillSink

func (m Multi) RecordFill(ctx context.Context, rec domain.FillRecord) error {
	var errs []error
	for i, s := range m {
		if err := s.RecordFill(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
