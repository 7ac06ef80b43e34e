package infra

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketHandler defines feed-specific logic for the BaseWSWorker.
type WebSocketHandler interface {
	GetURL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
	ID() string
}

// IdleHandler is implemented by handlers whose feed may legitimately go quiet.
// For such handlers a read timeout calls OnIdle instead of forcing a reconnect.
type IdleHandler interface {
	OnIdle(ctx context.Context, idleFor time.Duration)
}

// BaseWSWorker manages the lifecycle of a WebSocket connection.
// It handles reconnection with backoff, read timeouts, and thread-safe writes.
type BaseWSWorker struct {
	handler WebSocketHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	connects atomic.Int64

	ReadTimeout  time.Duration
	PingInterval time.Duration // zero disables application pings
	Backoff      BackoffPolicy
}

// NewBaseWSWorker creates a new generic WebSocket worker.
func NewBaseWSWorker(handler WebSocketHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:      handler,
		ReadTimeout:  60 * time.Second,
		PingInterval: 50 * time.Second,
		Backoff:      FixedBackoff(5 * time.Second),
	}
}

// Start runs the connection loop in the background until Stop or ctx cancellation.
func (w *BaseWSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		_ = w.Run(ctx)
	}()
}

// Stop terminates the worker.
func (w *BaseWSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

// Connections returns how many connections have been established so far.
func (w *BaseWSWorker) Connections() int64 {
	return w.connects.Load()
}

// Run blocks, connecting and reconnecting forever.
// Transport failures never end the loop; it returns nil once ctx is done.
func (w *BaseWSWorker) Run(ctx context.Context) error {
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := w.connect(ctx); err != nil {
			delay := w.Backoff(retry)
			slog.Warn("WS Connection failed",
				slog.String("id", w.handler.ID()),
				slog.Any("error", err),
				slog.Int("retry", retry),
				slog.Duration("delay", delay))
			retry++

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		delay := w.Backoff(0)
		slog.Info("WS Reconnecting", slog.String("id", w.handler.ID()), slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.handler.GetURL(), header)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	w.connects.Add(1)
	slog.Info("WS Connected", slog.String("id", w.handler.ID()))
	return nil
}

// process reads until the connection fails or goes stale.
// Reads happen on a separate goroutine so that an idle timeout does not
// poison the connection (gorilla connections are unusable after a read deadline fires).
func (w *BaseWSWorker) process(ctx context.Context) {
	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()
	if c == nil {
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer w.close()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("WS handler panic recovered", slog.String("id", w.handler.ID()), slog.Any("panic", r))
		}
	}()

	msgs := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				errs <- err
				return
			}
			select {
			case msgs <- msg:
			case <-connCtx.Done():
				return
			}
		}
	}()

	if w.PingInterval > 0 {
		go w.pingLoop(connCtx, c)
	}

	idle, _ := w.handler.(IdleHandler)
	lastMessage := time.Now()
	timer := time.NewTimer(w.ReadTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-errs:
			slog.Warn("WS Read error", slog.String("id", w.handler.ID()), slog.Any("error", err))
			return

		case msg := <-msgs:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.ReadTimeout)
			lastMessage = time.Now()
			w.handler.OnMessage(ctx, msg)

		case <-timer.C:
			if idle != nil {
				idle.OnIdle(ctx, time.Since(lastMessage))
				timer.Reset(w.ReadTimeout)
				continue
			}
			slog.Warn("WS Stale connection, reconnecting",
				slog.String("id", w.handler.ID()),
				slog.Duration("timeout", w.ReadTimeout))
			return
		}
	}
}

func (w *BaseWSWorker) pingLoop(ctx context.Context, c *websocket.Conn) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.handler.OnPing(ctx, c); err != nil {
				slog.Warn("WS Ping error", slog.String("id", w.handler.ID()), slog.Any("error", err))
				w.close()
				return
			}
		}
	}
}

// Write sends one message on the current connection.
func (w *BaseWSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("ws not connected")
	}

	return c.WriteMessage(msgType, data)
}

func (w *BaseWSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
