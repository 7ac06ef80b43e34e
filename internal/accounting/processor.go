package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/notify"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/storage"
	"github.com/chainflipgod/Chainflip-Maker-Demo/pkg/quant"

	"github.com/shopspring/decimal"
)

// FeeRate is the maker fee earned on the quote volume of a fill (5 bps).
var FeeRate = decimal.RequireFromString("0.0005")

// Processor turns venue fills into FillRecords and forwards them to the
// notifier and the accounting sink. Forwarding is best effort.
type Processor struct {
	instruments []domain.Instrument
	sink        storage.FillSink
	notifier    notify.Notifier
	now         func() time.Time
}

func NewProcessor(instruments []domain.Instrument, sink storage.FillSink, notifier notify.Notifier) *Processor {
	return &Processor{
		instruments: instruments,
		sink:        sink,
		notifier:    notifier,
		now:         time.Now,
	}
}

// HandleFill processes one fill. Errors are logged, never returned.
func (p *Processor) HandleFill(ctx context.Context, fill domain.LimitOrderFill) {
	rec, ok, err := p.Normalize(fill)
	if err != nil {
		slog.Warn("Dropping undecodable fill",
			slog.String("pair", fill.BaseAsset.Symbol+"/"+fill.QuoteAsset.Symbol),
			slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	msg := Summary(rec)
	slog.Info(infra.Success(msg), slog.Uint64("block", rec.BlockNumber))

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, infra.Success(msg)); err != nil {
			slog.Error("Failed to send notification", slog.Any("error", err))
		} else {
			slog.Debug("Notification sent", slog.String("text", infra.StripANSI(msg)))
		}
	}

	if p.sink != nil {
		if err := p.sink.RecordFill(ctx, rec); err != nil {
			slog.Error("Error writing order fill", slog.Any("error", err))
		}
	}
}

// Normalize computes the economic record of a fill. ok is false for pairs
// that are not configured. err is set when sold/bought cannot be decoded.
func (p *Processor) Normalize(fill domain.LimitOrderFill) (rec domain.FillRecord, ok bool, err error) {
	inst, found := p.instrumentFor(fill.BaseAsset.Symbol, fill.QuoteAsset.Symbol)
	if !found {
		return domain.FillRecord{}, false, nil
	}
	if !fill.Side.IsValid() {
		return domain.FillRecord{}, false, fmt.Errorf("unknown side %q", fill.Side)
	}

	soldRaw, err := quant.DecodeHex(fill.Sold)
	if err != nil {
		return domain.FillRecord{}, false, fmt.Errorf("sold: %w", err)
	}
	boughtRaw, err := quant.DecodeHex(fill.Bought)
	if err != nil {
		return domain.FillRecord{}, false, fmt.Errorf("bought: %w", err)
	}

	var assetChange, quoteChange decimal.Decimal
	if fill.Side == domain.SideSell {
		// sold base, bought quote
		assetChange = quant.Unscale(soldRaw, inst.Base.Decimals).Neg()
		quoteChange = quant.Unscale(boughtRaw, inst.Quote.Decimals)
	} else {
		assetChange = quant.Unscale(boughtRaw, inst.Base.Decimals)
		quoteChange = quant.Unscale(soldRaw, inst.Quote.Decimals).Neg()
	}

	avg := decimal.Zero
	if !assetChange.IsZero() {
		avg = quoteChange.Div(assetChange).Abs()
	}
	feeQuote := quoteChange.Abs().Mul(FeeRate)
	feeAsset := decimal.Zero
	if !avg.IsZero() {
		feeAsset = feeQuote.Div(avg)
	}

	return domain.FillRecord{
		BaseAsset:    inst.Base.Symbol,
		QuoteAsset:   inst.Quote.Symbol,
		Side:         fill.Side,
		BlockNumber:  fill.BlockNumber,
		AssetChange:  assetChange,
		QuoteChange:  quoteChange,
		AveragePrice: avg,
		FeeAsset:     feeAsset,
		FeeQuote:     feeQuote,
		Timestamp:    p.now(),
	}, true, nil
}

func (p *Processor) instrumentFor(base, quote string) (domain.Instrument, bool) {
	for _, inst := range p.instruments {
		if inst.Supports(base, quote) {
			return inst, true
		}
	}
	return domain.Instrument{}, false
}

// Summary is the human-readable fill message.
func Summary(rec domain.FillRecord) string {
	return fmt.Sprintf("Order filled: Swapped %s %s ($%s) → %s %s at an average price of $%s. Fees earned: %s %s ($%s %s)",
		rec.Amount().StringFixed(8), rec.BaseAsset,
		rec.Total().StringFixed(2),
		rec.Total().StringFixed(2), rec.QuoteAsset,
		rec.AveragePrice.StringFixed(2),
		rec.FeeAsset.StringFixed(8), rec.BaseAsset,
		rec.FeeQuote.StringFixed(4), rec.QuoteAsset)
}
