package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	channelAllMids      = "allMids"
	channelSubscription = "subscriptionResponse"
	channelPong         = "pong"
)

var (
	subscribeMsg = []byte(`{"method":"subscribe","subscription":{"type":"allMids"}}`)
	pingMsg      = []byte(`{"method":"ping"}`)
)

// defaultLogMove is the relative move (0.05%) that gets a price update logged.
var defaultLogMove = decimal.RequireFromString("0.0005")

// PriceSink receives reference mid prices.
type PriceSink interface {
	SetMid(symbol string, mid decimal.Decimal)
}

// Config configures the reference price subscription.
type Config struct {
	URL          string
	Symbols      []string
	ReadTimeout  time.Duration // no message for this long means a stale connection
	PingInterval time.Duration
	Backoff      infra.BackoffPolicy
}

// Worker streams allMids and writes the configured symbols to a PriceSink.
type Worker struct {
	base    *infra.BaseWSWorker
	cfg     Config
	sink    PriceSink
	logMove decimal.Decimal

	// only touched from the read loop
	logged map[string]decimal.Decimal
}

type message struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]json.RawMessage `json:"mids"`
}

func NewWorker(cfg Config, sink PriceSink) *Worker {
	w := &Worker{
		cfg:     cfg,
		sink:    sink,
		logMove: defaultLogMove,
		logged:  make(map[string]decimal.Decimal, len(cfg.Symbols)),
	}
	w.base = infra.NewBaseWSWorker(w)
	if cfg.ReadTimeout > 0 {
		w.base.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.PingInterval > 0 {
		w.base.PingInterval = cfg.PingInterval
	}
	if cfg.Backoff != nil {
		w.base.Backoff = cfg.Backoff
	}
	return w
}

func (w *Worker) ID() string     { return "HYPERLIQUID" }
func (w *Worker) GetURL() string { return w.cfg.URL }

// Run blocks until ctx is cancelled, reconnecting on every failure.
func (w *Worker) Run(ctx context.Context) error {
	return w.base.Run(ctx)
}

// Connections reports how many times the feed has connected.
func (w *Worker) Connections() int64 {
	return w.base.Connections()
}

func (w *Worker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if err := w.base.Write(websocket.TextMessage, subscribeMsg); err != nil {
		return err
	}
	slog.Info("Sent Hyperliquid subscription message")
	return nil
}

func (w *Worker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return w.base.Write(websocket.TextMessage, pingMsg)
}

func (w *Worker) OnMessage(ctx context.Context, raw []byte) {
	var msg message
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Warn("Malformed Hyperliquid message", slog.Any("error", err))
		return
	}

	switch msg.Channel {
	case channelAllMids:
		w.handleMids(msg.Data)
	case channelSubscription:
		slog.Info("Hyperliquid subscription confirmed")
	case channelPong:
		// keepalive reply
	case "":
		slog.Warn("Received message without channel", slog.String("raw", string(raw)))
	default:
		slog.Warn("Received unexpected message", slog.String("channel", msg.Channel))
	}
}

func (w *Worker) handleMids(data json.RawMessage) {
	var d allMidsData
	if err := json.Unmarshal(data, &d); err != nil {
		slog.Warn("Malformed allMids payload", slog.Any("error", err))
		return
	}

	moved := false
	for _, sym := range w.cfg.Symbols {
		raw, ok := d.Mids[sym]
		if !ok {
			continue
		}
		mid, err := parseMid(raw)
		if err != nil {
			slog.Warn("Skipping unparseable mid", slog.String("symbol", sym), slog.Any("error", err))
			continue
		}
		w.sink.SetMid(sym, mid)

		if w.significant(sym, mid) {
			moved = true
		}
	}

	if moved {
		parts := make([]string, 0, len(w.cfg.Symbols))
		for _, sym := range w.cfg.Symbols {
			if px, ok := w.logged[sym]; ok {
				parts = append(parts, fmt.Sprintf("%s: $%s", sym, px.StringFixed(2)))
			}
		}
		slog.Info("Price update: " + strings.Join(parts, ", "))
	}
}

// significant reports whether mid moved more than logMove since the last
// logged value, and records it if so.
func (w *Worker) significant(sym string, mid decimal.Decimal) bool {
	prev, ok := w.logged[sym]
	if ok && prev.IsPositive() && mid.Sub(prev).Abs().Div(prev).LessThanOrEqual(w.logMove) {
		return false
	}
	w.logged[sym] = mid
	return true
}

// parseMid accepts "1800.5" or 1800.5. Negative mids are rejected; zero means
// no price.
func parseMid(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	mid, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if mid.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative mid %s", s)
	}
	return mid, nil
}
