package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/accounting"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/engine"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/execution"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/chainflip"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/hyperliquid"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/kafka"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/notify"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/storage"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"

	"golang.org/x/sync/errgroup"
)

const keepSnapshots = 10

// Bootstrap orchestrates the application startup sequence and owns every
// long-lived component.
type Bootstrap struct {
	Config      *infra.Config
	Instruments []domain.Instrument
	Book        *engine.PriceBook
	Notifier    notify.Notifier
	Ledger      *storage.Ledger
	Snapshots   *storage.SnapshotManager

	referenceFeed *hyperliquid.Worker
	fillFeed      *chainflip.FillWorker
	quoter        *engine.QuoteEngine
	producer      *kafka.Producer
	unlock        func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the config from the usual locations and wires everything.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	slog.SetDefault(infra.NewLogger(cfg))

	return b.InitializeWith(cfg, infra.GetWorkspaceDir())
}

// InitializeWith wires all components from cfg, keeping runtime data in workDir.
func (b *Bootstrap) InitializeWith(cfg *infra.Config, workDir string) error {
	slog.Info("🚀 Bootstrapping Chainflip maker...")
	b.Config = cfg

	instruments, err := cfg.BuildInstruments()
	if err != nil {
		return err
	}
	b.Instruments = instruments

	// Data isolation per mode: {workDir}/data/{mode}
	mode := strings.ToLower(cfg.Trading.Mode)
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// Two makers on one account would fight over the same order ids.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	if err := b.initAccounting(dataDir); err != nil {
		b.Close()
		return err
	}

	b.Notifier = notify.New(cfg)

	exec, err := execution.NewExecutionFactory(cfg).CreateExecution()
	if err != nil {
		b.Close()
		return err
	}

	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.Symbol)
	}
	b.Book = engine.NewPriceBook(symbols)

	b.quoter = engine.NewQuoteEngine(instruments, b.Book, exec,
		strategy.NewThresholdRequoter(cfg.Threshold()), cfg.PollInterval())

	b.referenceFeed = hyperliquid.NewWorker(hyperliquid.Config{
		URL:          cfg.Reference.WSURL,
		Symbols:      symbols,
		ReadTimeout:  time.Duration(cfg.Reference.ReadTimeoutSec) * time.Second,
		PingInterval: time.Duration(cfg.Reference.PingIntervalSec) * time.Second,
		Backoff:      cfg.ReconnectPolicy(),
	}, b.Book)

	processor := accounting.NewProcessor(instruments, b.sinks(dataDir), b.Notifier)
	b.fillFeed = chainflip.NewFillWorker(chainflip.FillWorkerConfig{
		URL:            cfg.Venue.WSURL,
		ReadTimeout:    time.Duration(cfg.Venue.ReadTimeoutSec) * time.Second,
		HeartbeatEvery: time.Duration(cfg.Venue.HeartbeatLogSec) * time.Second,
		Backoff:        cfg.ReconnectPolicy(),
	}, processor)

	slog.Info("✅ Components ready",
		slog.String("mode", cfg.Trading.Mode),
		slog.Int("instruments", len(instruments)),
		slog.String("threshold", cfg.Threshold().String()))
	return nil
}

func (b *Bootstrap) initAccounting(dataDir string) error {
	cfg := b.Config

	ledgerPath := infra.ResolveDataPath(dataDir, cfg.Accounting.SQLitePath)
	ledger, err := storage.NewLedger(ledgerPath)
	if err != nil {
		return err
	}
	b.Ledger = ledger
	slog.Info("✅ Ledger initialized (WAL-mode)", slog.String("path", ledgerPath))

	ctx := context.Background()
	if block, err := ledger.LastFillBlock(ctx); err == nil && block > 0 {
		slog.Info("Last recorded fill", slog.Uint64("block", block))
	}

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))
	if snap, err := b.Snapshots.LoadLatest(); err != nil {
		slog.Warn("Failed to load previous snapshot", slog.Any("error", err))
	} else if snap != nil {
		for sym, st := range snap.Prices {
			slog.Info("Previous session",
				slog.String("symbol", sym),
				slog.String("mid", st.Mid.String()),
				slog.String("last_quoted", st.LastQuoted.String()),
				slog.Time("at", snap.TakenAt))
		}
	}

	if brokers := cfg.Accounting.Kafka.Brokers; len(brokers) > 0 {
		b.producer = kafka.NewProducer(brokers, cfg.Accounting.Kafka.Topic)
		slog.Info("✅ Kafka fill publishing enabled",
			slog.Any("brokers", brokers),
			slog.String("topic", cfg.Accounting.Kafka.Topic))
	}
	return nil
}

func (b *Bootstrap) sinks(dataDir string) storage.FillSink {
	fillPath := infra.ResolveDataPath(dataDir, b.Config.Accounting.FillFile)
	slog.Info("✅ Fill file", slog.String("path", fillPath))

	sinks := storage.Multi{storage.NewFillFile(fillPath), b.Ledger}
	if b.producer != nil {
		sinks = append(sinks, b.producer)
	}
	return sinks
}

// Run starts the reference feed, the quote engine and the fill feed and
// blocks until ctx is cancelled or one of them fails.
func (b *Bootstrap) Run(ctx context.Context) error {
	slog.Info("Starting market making bot...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.referenceFeed.Run(gctx) })
	g.Go(func() error { return b.quoter.Run(gctx) })
	g.Go(func() error { return b.fillFeed.Run(gctx) })

	err := g.Wait()
	b.saveSnapshot()
	return err
}

func (b *Bootstrap) saveSnapshot() {
	if b.Snapshots == nil || b.Book == nil {
		return
	}
	if err := b.Snapshots.Save(storage.CreateSnapshot(b.Book.Snapshot())); err != nil {
		slog.Warn("Failed to save snapshot", slog.Any("error", err))
		return
	}
	if err := b.Snapshots.Cleanup(keepSnapshots); err != nil {
		slog.Warn("Failed to clean up snapshots", slog.Any("error", err))
	}
}

// NotifyCritical logs msg and forwards it to the operator, waiting at most timeout.
func (b *Bootstrap) NotifyCritical(msg string, timeout time.Duration) {
	slog.Error(msg)
	if b.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := b.Notifier.Notify(ctx, msg); err != nil {
		slog.Error("Failed to send notification", slog.Any("error", err))
	}
}

// Close releases storage handles and the instance lock. Safe to call twice.
func (b *Bootstrap) Close() {
	if b.producer != nil {
		if err := b.producer.Close(); err != nil {
			slog.Warn("Kafka producer close failed", slog.Any("error", err))
		}
		b.producer = nil
	}
	if b.Ledger != nil {
		if err := b.Ledger.Close(); err != nil {
			slog.Warn("Ledger close failed", slog.Any("error", err))
		}
		b.Ledger = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
}
