package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/execution"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"

	"github.com/shopspring/decimal"
)

// Places one quote per side for the first configured instrument against a
// caller-supplied mid (INTEGRATION_MID, default 1800) and reports the outcome.
// Run with trading.mode=dry_run first; live mode sends real orders.
func main() {
	// 1. Setup Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Starting Chainflip Integration Test...")

	// 2. Load Config
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("❌ Failed to load config", "error", err)
		os.Exit(1)
	}
	instruments, err := cfg.BuildInstruments()
	if err != nil {
		slog.Error("❌ Invalid instruments", "error", err)
		os.Exit(1)
	}
	inst := instruments[0]

	mid := decimal.RequireFromString("1800")
	if v := os.Getenv("INTEGRATION_MID"); v != "" {
		if mid, err = decimal.NewFromString(v); err != nil || !mid.IsPositive() {
			slog.Error("❌ INTEGRATION_MID must be a positive number", "value", v)
			os.Exit(1)
		}
	}

	// 3. Create Execution
	execEngine, err := execution.NewExecutionFactory(cfg).CreateExecution()
	if err != nil {
		slog.Error("❌ Failed to create execution engine", "error", err)
		os.Exit(1)
	}

	// 4. Quote both sides once
	dec := strategy.NewThresholdRequoter(cfg.Threshold()).Evaluate(inst, domain.PriceState{Mid: mid})
	if len(dec.Orders) == 0 {
		slog.Error("❌ Nothing to quote, both sizes are zero", "symbol", inst.Symbol)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0
	for i, o := range dec.Orders {
		slog.Info("STEP: Placing order...", "step", i+1, "side", o.Side,
			"price", o.Price.StringFixed(2), "amount", o.Amount.String(), "id", o.OrderID)

		err := execEngine.PlaceLimitOrder(ctx, o)
		var rej *domain.RejectionError
		switch {
		case err == nil:
			slog.Info("✅ Order accepted", "side", o.Side)
		case errors.As(err, &rej):
			slog.Error("❌ Order rejected", "side", o.Side, "message", rej.Message)
			failed++
		default:
			slog.Error("❌ Order failed", "side", o.Side, "error", err)
			failed++
		}
	}

	if failed > 0 {
		slog.Error("Integration Test Failed", "failed", failed, "total", len(dec.Orders))
		os.Exit(1)
	}
	slog.Info("🎉 Integration Test Passed!", "mode", cfg.Trading.Mode)
}
