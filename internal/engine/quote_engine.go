package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"
	"github.com/chainflipgod/Chainflip-Maker-Demo/pkg/quant"
)

// QuoteEngine periodically refreshes resting orders around the reference mid.
type QuoteEngine struct {
	instruments []domain.Instrument
	book        *PriceBook
	exec        domain.Execution
	strategy    strategy.Strategy
	interval    time.Duration
}

func NewQuoteEngine(instruments []domain.Instrument, book *PriceBook, exec domain.Execution, strat strategy.Strategy, interval time.Duration) *QuoteEngine {
	return &QuoteEngine{
		instruments: instruments,
		book:        book,
		exec:        exec,
		strategy:    strat,
		interval:    interval,
	}
}

// Run ticks until ctx is cancelled. A failing tick never stops the loop.
func (e *QuoteEngine) Run(ctx context.Context) error {
	slog.Info("Quote engine started",
		slog.Int("instruments", len(e.instruments)),
		slog.Duration("interval", e.interval))

	for {
		e.safeTick(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Quote engine stopping...")
			return nil
		case <-time.After(e.interval):
		}
	}
}

func (e *QuoteEngine) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Error in quote engine tick", slog.Any("panic", r))
		}
	}()
	e.RunTick(ctx)
}

// RunTick evaluates every instrument once on a single book snapshot, submits
// all resulting orders concurrently and waits for them. It returns the number
// of orders submitted.
func (e *QuoteEngine) RunTick(ctx context.Context) int {
	snap := e.book.Snapshot()

	var wg sync.WaitGroup
	submitted := 0

	for _, inst := range e.instruments {
		st, ok := snap[inst.Symbol]
		if !ok || !st.Mid.IsPositive() {
			continue
		}

		dec := e.strategy.Evaluate(inst, st)
		if len(dec.Orders) == 0 {
			continue
		}

		e.book.SetLastQuoted(inst.Symbol, st.Mid)
		slog.Info(fmt.Sprintf("Updating %s orders: Sell at $%s, Buy at $%s",
			inst.Symbol, dec.SellPrice.StringFixed(2), dec.BuyPrice.StringFixed(2)),
			slog.String("mid", st.Mid.String()))
		e.logTick(dec)

		for _, order := range dec.Orders {
			wg.Add(1)
			submitted++
			go func(o domain.OrderRequest) {
				defer wg.Done()
				e.submit(ctx, o)
			}(order)
		}
	}

	wg.Wait()
	return submitted
}

func (e *QuoteEngine) submit(ctx context.Context, o domain.OrderRequest) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Order submission panic recovered",
				slog.String("pair", o.Instrument.Pair()),
				slog.String("side", string(o.Side)),
				slog.Any("panic", r))
		}
	}()

	err := e.exec.PlaceLimitOrder(ctx, o)
	if err == nil {
		return
	}

	var rej *domain.RejectionError
	var tr *domain.TransportError
	switch {
	case errors.As(err, &rej):
		slog.Error(fmt.Sprintf("Failed to place %s order for %s: %s", rej.Side, rej.Pair, rej.Message),
			slog.Uint64("id", o.OrderID))
	case errors.As(err, &tr):
		slog.Error(fmt.Sprintf("Error placing %s order", o.Side),
			slog.String("pair", o.Instrument.Pair()),
			slog.Any("error", tr))
	default:
		slog.Error("Order not submitted",
			slog.String("pair", o.Instrument.Pair()),
			slog.String("side", string(o.Side)),
			slog.Any("error", err))
	}
}

// logTick records the ticks of the new quotes at debug level.
func (e *QuoteEngine) logTick(dec strategy.Decision) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, o := range dec.Orders {
		tick, err := quant.TickOf(o.Price, o.Instrument.Base.Scale(), o.Instrument.Quote.Scale())
		if err != nil {
			continue
		}
		slog.Debug("Quote tick",
			slog.String("pair", o.Instrument.Pair()),
			slog.String("side", string(o.Side)),
			slog.Int64("tick", tick),
			slog.Float64("price", o.Price.InexactFloat64()))
	}
}
