package chainflip

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/pkg/quant"

	"github.com/gorilla/websocket"
)

// FillHandler consumes limit order fills in notification order.
type FillHandler interface {
	HandleFill(ctx context.Context, fill domain.LimitOrderFill)
}

// FillWorkerConfig configures the fill subscription.
type FillWorkerConfig struct {
	URL            string
	ReadTimeout    time.Duration // quiet period before an idle heartbeat
	HeartbeatEvery time.Duration // minimum gap between "waiting" log lines
	Backoff        infra.BackoffPolicy
}

// FillWorker subscribes to the LP fill stream and reconnects forever.
// Silence on the stream is normal; it never triggers a reconnect.
type FillWorker struct {
	base    *infra.BaseWSWorker
	cfg     FillWorkerConfig
	handler FillHandler
	seq     uint64

	lastHeartbeat time.Time
}

func NewFillWorker(cfg FillWorkerConfig, handler FillHandler) *FillWorker {
	w := &FillWorker{cfg: cfg, handler: handler}
	w.base = infra.NewBaseWSWorker(w)
	w.base.PingInterval = 0
	if cfg.ReadTimeout > 0 {
		w.base.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.Backoff != nil {
		w.base.Backoff = cfg.Backoff
	}
	if w.cfg.HeartbeatEvery <= 0 {
		w.cfg.HeartbeatEvery = time.Minute
	}
	return w
}

func (w *FillWorker) ID() string     { return "CHAINFLIP_FILLS" }
func (w *FillWorker) GetURL() string { return w.cfg.URL }

// Run blocks until ctx is cancelled.
func (w *FillWorker) Run(ctx context.Context) error {
	slog.Info("Connecting to Chainflip WebSocket", slog.String("url", w.cfg.URL))
	return w.base.Run(ctx)
}

func (w *FillWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	b, err := json.Marshal(rpcRequest{
		ID:      quant.NextSeq(&w.seq),
		JSONRPC: jsonRPCVersion,
		Method:  methodSubscribeFills,
	})
	if err != nil {
		return err
	}
	if err := w.base.Write(websocket.TextMessage, b); err != nil {
		return err
	}
	w.lastHeartbeat = time.Now()
	slog.Info("Sent Chainflip subscription message")
	return nil
}

func (w *FillWorker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

// OnIdle logs a heartbeat at most once per HeartbeatEvery.
func (w *FillWorker) OnIdle(ctx context.Context, idleFor time.Duration) {
	if time.Since(w.lastHeartbeat) >= w.cfg.HeartbeatEvery {
		slog.Info("Waiting for order fills...", slog.Duration("idle", idleFor.Round(time.Second)))
		w.lastHeartbeat = time.Now()
	}
}

func (w *FillWorker) OnMessage(ctx context.Context, msg []byte) {
	var n fillNotification
	if err := json.Unmarshal(msg, &n); err != nil {
		slog.Warn("Malformed Chainflip message", slog.Any("error", err), slog.String("raw", string(msg)))
		return
	}

	if n.Method != methodSubscribeFills {
		switch {
		case n.Error != nil:
			slog.Error("Chainflip subscription error",
				slog.Int("code", n.Error.Code),
				slog.String("message", n.Error.Message))
		case len(n.Result) > 0:
			slog.Debug("Chainflip subscription confirmed", slog.String("subscription", string(n.Result)))
		default:
			slog.Warn("Unexpected Chainflip message", slog.String("raw", string(msg)))
		}
		return
	}

	if n.Params == nil || n.Params.Result == nil {
		slog.Warn("Unexpected data structure in order fill notification")
		return
	}

	batch := n.Params.Result
	if len(batch.Fills) == 0 {
		return
	}
	slog.Info("Received order fills",
		slog.Int("count", len(batch.Fills)),
		slog.Uint64("block", batch.BlockNumber))

	for _, raw := range batch.Fills {
		var entry fillEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.LimitOrder == nil {
			slog.Warn("Unexpected fill structure", slog.String("fill", string(raw)))
			continue
		}
		fill := *entry.LimitOrder
		fill.BlockNumber = batch.BlockNumber
		w.handler.HandleFill(ctx, fill)
	}
}
