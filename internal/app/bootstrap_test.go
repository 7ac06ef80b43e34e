package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"

	"github.com/gorilla/websocket"
)

const ethSellFill = `{"jsonrpc":"2.0","method":"lp_subscribe_order_fills","params":{"subscription":"0x1","result":{
	"block_number": 77,
	"fills": [{"limit_order": {
		"base_asset": {"chain": "Ethereum", "asset": "ETH"},
		"quote_asset": {"chain": "Ethereum", "asset": "USDC"},
		"side": "sell", "id": "0x1", "tick": -201365,
		"sold": "0xde0b6b3a7640000", "bought": "0x77359400"
	}}]}}}`

type recorder struct {
	mu    sync.Mutex
	items []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.items = append(r.items, s)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.items...)
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// wsServer reads the subscription request, writes msgs and holds the
// connection open until the test ends.
func wsServer(t *testing.T, release <-chan struct{}, msgs ...string) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, m := range msgs {
			conn.WriteMessage(websocket.TextMessage, []byte(m))
		}
		<-release
	}))
}

func toWS(url string) string { return strings.Replace(url, "http://", "ws://", 1) }

func testConfig(t *testing.T, mode, refURL, venueURL, rpcURL, telegramURL string) *infra.Config {
	t.Helper()
	yaml := fmt.Sprintf(`
trading:
  mode: %s
  poll_interval_ms: 20
reference:
  ws_url: %s
venue:
  ws_url: %s
  rpc_url: %s
  request_timeout_sec: 2
telegram:
  bot_token: "123:abc"
  chat_id: "42"
  api_url: %s
instruments:
  - symbol: ETH
    base: {chain: Ethereum, asset: ETH, decimals: 18}
    quote: {chain: Ethereum, asset: USDC, decimals: 6}
    buy_factor: 0.998
    sell_factor: 1.002
    buy_size: 0.1
    sell_size: 0.5
`, mode, refURL, venueURL, rpcURL, telegramURL)

	cfg, err := infra.ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	return cfg
}

func TestBootstrap_EndToEnd(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ref := wsServer(t, release, `{"channel":"allMids","data":{"mids":{"ETH":"1800","BTC":"60000"}}}`)
	defer ref.Close()
	venue := wsServer(t, release, `{"jsonrpc":"2.0","id":1,"result":"0x1"}`, ethSellFill)
	defer venue.Close()

	rpcCalls := &recorder{}
	rpc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params struct {
				Side string `json:"side"`
			} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		rpcCalls.add(req.Method + ":" + req.Params.Side)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
	}))
	defer rpc.Close()

	messages := &recorder{}
	telegram := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		messages.add(body.Text)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer telegram.Close()

	workDir := t.TempDir()
	cfg := testConfig(t, infra.ModeLive, toWS(ref.URL), toWS(venue.URL), rpc.URL, telegram.URL)

	b := NewBootstrap()
	if err := b.InitializeWith(cfg, workDir); err != nil {
		t.Fatalf("InitializeWith failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	if !waitFor(3*time.Second, func() bool { return len(rpcCalls.all()) >= 2 }) {
		t.Fatalf("expected both sides to be quoted, rpc calls = %v", rpcCalls.all())
	}
	if !waitFor(3*time.Second, func() bool { return len(messages.all()) >= 1 }) {
		t.Fatal("fill notification was not sent")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	calls := rpcCalls.all()
	if calls[0] != "lp_set_limit_order:sell" || calls[1] != "lp_set_limit_order:buy" {
		// submissions run concurrently, so accept either order
		if !(calls[0] == "lp_set_limit_order:buy" && calls[1] == "lp_set_limit_order:sell") {
			t.Errorf("unexpected rpc calls %v", calls)
		}
	}
	if len(calls) != 2 {
		t.Errorf("a steady mid must not be requoted, got %d calls", len(calls))
	}

	if text := messages.all()[0]; !strings.Contains(text, "Order filled: Swapped 1.00000000 ETH") {
		t.Errorf("notification = %q", text)
	}

	dataDir := filepath.Join(workDir, "data", "live")
	line, err := os.ReadFile(filepath.Join(dataDir, "order_fills.jsonl"))
	if err != nil {
		t.Fatalf("fill file missing: %v", err)
	}
	if !strings.Contains(string(line), `"base_asset":"ETH"`) {
		t.Errorf("fill line = %s", line)
	}

	fills, err := b.Ledger.LoadFills(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("LoadFills failed: %v", err)
	}
	if len(fills) != 1 || fills[0].BlockNumber != 77 {
		t.Errorf("ledger fills = %+v", fills)
	}
	if block, _ := b.Ledger.LastFillBlock(context.Background()); block != 77 {
		t.Errorf("last fill block = %d, want 77", block)
	}

	snap, err := b.Snapshots.LoadLatest()
	if err != nil || snap == nil {
		t.Fatalf("snapshot not saved: %v", err)
	}
	if st := snap.Prices["ETH"]; st.Mid.String() != "1800" || st.LastQuoted.String() != "1800" {
		t.Errorf("snapshot ETH = %+v", st)
	}
}

func TestBootstrap_LockPreventsSecondInstance(t *testing.T) {
	workDir := t.TempDir()
	cfg := testConfig(t, infra.ModeDryRun, "ws://127.0.0.1:1", "ws://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")

	first := NewBootstrap()
	if err := first.InitializeWith(cfg, workDir); err != nil {
		t.Fatalf("first InitializeWith failed: %v", err)
	}

	second := NewBootstrap()
	err := second.InitializeWith(cfg, workDir)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}

	first.Close()
	first.Close()

	third := NewBootstrap()
	if err := third.InitializeWith(cfg, workDir); err != nil {
		t.Fatalf("lock was not released: %v", err)
	}
	third.Close()
}

func TestBootstrap_RunStopsWithUnreachableFeeds(t *testing.T) {
	workDir := t.TempDir()
	cfg := testConfig(t, infra.ModeDryRun, "ws://127.0.0.1:1", "ws://127.0.0.1:1", "http://127.0.0.1:1", "http://127.0.0.1:1")

	b := NewBootstrap()
	if err := b.InitializeWith(cfg, workDir); err != nil {
		t.Fatalf("InitializeWith failed: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run took %s to stop", elapsed)
	}

	// nothing was quoted, but the book snapshot is still written
	snap, err := b.Snapshots.LoadLatest()
	if err != nil || snap == nil {
		t.Fatalf("snapshot not saved: %v", err)
	}
}
