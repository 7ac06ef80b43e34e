package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/app"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

const notifyTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() (code int) {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return 1
	}
	defer bootstrap.Close()

	defer func() {
		if r := recover(); r != nil {
			bootstrap.NotifyCritical(fmt.Sprintf("Unhandled exception: %v", r), notifyTimeout)
			code = 1
		}
		slog.Info("Bot stopped")
	}()

	infra.PrintBanner(bootstrap.Config, bootstrap.Instruments)

	// 2. Pprof Server (for performance profiling)
	if addr := bootstrap.Config.App.PprofAddr; addr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "✨ Maker fully operational. Press Ctrl+C to exit.")

	if err := bootstrap.Run(ctx); err != nil {
		bootstrap.NotifyCritical(fmt.Sprintf("Critical error in main function: %v", err), notifyTimeout)
		return 1
	}

	slog.Info("👋 Shutting down gracefully...")
	return 0
}
