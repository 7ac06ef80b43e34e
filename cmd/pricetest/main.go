package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/chainflip"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/hyperliquid"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"

	"github.com/shopspring/decimal"
)

// printer shows the orders the maker would place, requoting only when the
// mid moves past the threshold.
type printer struct {
	mu          sync.Mutex
	instruments map[string]domain.Instrument
	states      map[string]domain.PriceState
	strat       strategy.Strategy
}

func (p *printer) SetMid(symbol string, mid decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instruments[symbol]
	if !ok {
		return
	}

	state := p.states[symbol]
	state.Mid = mid
	dec := p.strat.Evaluate(inst, state)
	if !dec.Requote {
		return
	}
	state.LastQuoted = mid
	p.states[symbol] = state

	fmt.Printf("📊 %s mid $%s\n", symbol, mid.StringFixed(4))
	for _, o := range dec.Orders {
		params, err := chainflip.BuildLimitOrderParams(o)
		if err != nil {
			fmt.Printf("   %-4s ERROR: %v\n", o.Side, err)
			continue
		}
		fmt.Printf("   %-4s price %s  tick %d  amount %s (%s)  id %d\n",
			o.Side, o.Price.StringFixed(2), params.Tick, o.Amount.String(), params.SellAmount, params.ID)
	}
}

func main() {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("❌ Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	instruments, err := cfg.BuildInstruments()
	if err != nil {
		slog.Error("❌ Invalid instruments", slog.Any("error", err))
		os.Exit(1)
	}

	p := &printer{
		instruments: make(map[string]domain.Instrument, len(instruments)),
		states:      make(map[string]domain.PriceState, len(instruments)),
		strat:       strategy.NewThresholdRequoter(cfg.Threshold()),
	}
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		p.instruments[inst.Symbol] = inst
		symbols = append(symbols, inst.Symbol)
	}

	fmt.Println("=== Chainflip Maker Reference Price Test ===")
	fmt.Printf("Feed: %s  Symbols: %v\n\n", cfg.Reference.WSURL, symbols)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	worker := hyperliquid.NewWorker(hyperliquid.Config{
		URL:          cfg.Reference.WSURL,
		Symbols:      symbols,
		ReadTimeout:  time.Duration(cfg.Reference.ReadTimeoutSec) * time.Second,
		PingInterval: time.Duration(cfg.Reference.PingIntervalSec) * time.Second,
		Backoff:      cfg.ReconnectPolicy(),
	}, p)

	if err := worker.Run(ctx); err != nil {
		slog.Error("Reference feed failed", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println()
	fmt.Println("✅ Done. Nothing was sent to Chainflip.")
}
