package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testInstruments() []domain.Instrument {
	usdc := domain.Asset{Chain: "Ethereum", Symbol: "USDC", Decimals: 6}
	return []domain.Instrument{
		{
			Symbol: "ETH", Base: domain.Asset{Chain: "Ethereum", Symbol: "ETH", Decimals: 18}, Quote: usdc,
			BuyFactor: d("0.998"), SellFactor: d("1.002"), BuySize: d("0.1"), SellSize: d("0.1"),
			SellOrderID: 1, BuyOrderID: 2,
		},
		{
			Symbol: "DOT", Base: domain.Asset{Chain: "Polkadot", Symbol: "DOT", Decimals: 10}, Quote: usdc,
			BuyFactor: d("0.997"), SellFactor: d("1.003"), BuySize: d("20"), SellSize: d("20"),
			SellOrderID: 5, BuyOrderID: 6,
		},
	}
}

// fakeExecution records orders. If block is set, every call waits until
// `block` calls are in flight at once, proving concurrent submission.
type fakeExecution struct {
	mu      sync.Mutex
	orders  []domain.OrderRequest
	failFor map[domain.Side]error
	panicOn domain.Side

	block    int
	inFlight int
	release  chan struct{}
}

func (f *fakeExecution) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) error {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	err := f.failFor[req.Side]
	if f.block > 0 {
		f.inFlight++
		if f.inFlight == f.block {
			close(f.release)
		}
	}
	f.mu.Unlock()

	if f.block > 0 {
		select {
		case <-f.release:
		case <-time.After(2 * time.Second):
			return errors.New("orders were not submitted concurrently")
		}
	}
	if req.Side == f.panicOn {
		panic("boom")
	}
	return err
}

func (f *fakeExecution) sides(symbol string) map[domain.Side]domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.Side]domain.OrderRequest)
	for _, o := range f.orders {
		if o.Instrument.Symbol == symbol {
			out[o.Side] = o
		}
	}
	return out
}

func newEngine(insts []domain.Instrument, exec domain.Execution) (*QuoteEngine, *PriceBook) {
	book := NewPriceBook([]string{"ETH", "DOT"})
	return NewQuoteEngine(insts, book, exec, strategy.NewThresholdRequoter(d("0.002")), 10*time.Millisecond), book
}

func TestQuoteEngine_FirstTickQuotesBothSides(t *testing.T) {
	exec := &fakeExecution{}
	eng, book := newEngine(testInstruments(), exec)
	book.SetMid("ETH", d("1800"))

	if n := eng.RunTick(context.Background()); n != 2 {
		t.Fatalf("submitted %d orders, want 2", n)
	}

	orders := exec.sides("ETH")
	sell, buy := orders[domain.SideSell], orders[domain.SideBuy]
	if sell.OrderID != 1 || !sell.Price.Equal(d("1803.6")) {
		t.Errorf("sell = %+v", sell)
	}
	if buy.OrderID != 2 || !buy.Price.Equal(d("1796.4")) {
		t.Errorf("buy = %+v", buy)
	}

	st, _ := book.Get("ETH")
	if !st.LastQuoted.Equal(d("1800")) {
		t.Errorf("last quoted = %s, want 1800", st.LastQuoted)
	}

	if len(exec.sides("DOT")) != 0 {
		t.Error("DOT has no mid and must not be quoted")
	}
}

func TestQuoteEngine_Threshold(t *testing.T) {
	tests := []struct {
		name       string
		newMid     string
		wantOrders int
		wantLast   string
	}{
		{"0.3% move requotes", "1003", 2, "1003"},
		{"0.1% move does not", "1001", 0, "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecution{}
			eng, book := newEngine(testInstruments()[:1], exec)
			book.SetMid("ETH", d("1000"))
			book.SetLastQuoted("ETH", d("1000"))
			book.SetMid("ETH", d(tt.newMid))

			if n := eng.RunTick(context.Background()); n != tt.wantOrders {
				t.Errorf("submitted %d, want %d", n, tt.wantOrders)
			}
			st, _ := book.Get("ETH")
			if !st.LastQuoted.Equal(d(tt.wantLast)) {
				t.Errorf("last quoted = %s, want %s", st.LastQuoted, tt.wantLast)
			}
		})
	}
}

func TestQuoteEngine_ZeroSizesLeaveLastQuoted(t *testing.T) {
	insts := testInstruments()[:1]
	insts[0].BuySize = decimal.Zero
	insts[0].SellSize = decimal.Zero

	exec := &fakeExecution{}
	eng, book := newEngine(insts, exec)
	book.SetMid("ETH", d("1800"))

	if n := eng.RunTick(context.Background()); n != 0 {
		t.Errorf("submitted %d orders with zero sizes", n)
	}
	st, _ := book.Get("ETH")
	if !st.LastQuoted.IsZero() {
		t.Errorf("last quoted = %s, want 0", st.LastQuoted)
	}
}

func TestQuoteEngine_SubmitsConcurrently(t *testing.T) {
	// both instruments x both sides must be in flight together
	exec := &fakeExecution{block: 4, release: make(chan struct{})}
	eng, book := newEngine(testInstruments(), exec)
	book.SetMid("ETH", d("1800"))
	book.SetMid("DOT", d("5"))

	done := make(chan int, 1)
	go func() { done <- eng.RunTick(context.Background()) }()

	select {
	case n := <-done:
		if n != 4 {
			t.Errorf("submitted %d, want 4", n)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tick deadlocked")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.inFlight != 4 {
		t.Errorf("in flight = %d, want 4", exec.inFlight)
	}
}

func TestQuoteEngine_FailureIsolation(t *testing.T) {
	exec := &fakeExecution{
		failFor: map[domain.Side]error{
			domain.SideSell: &domain.RejectionError{Side: domain.SideSell, Pair: "ETH/USDC", Message: "Insufficient balance"},
		},
		panicOn: domain.SideBuy,
	}
	eng, book := newEngine(testInstruments(), exec)
	book.SetMid("ETH", d("1800"))
	book.SetMid("DOT", d("5"))

	if n := eng.RunTick(context.Background()); n != 4 {
		t.Fatalf("submitted %d, want 4", n)
	}
	if len(exec.sides("DOT")) != 2 {
		t.Error("DOT orders must be submitted despite ETH failures")
	}

	// a rejected order does not undo the requote
	st, _ := book.Get("ETH")
	if !st.LastQuoted.Equal(d("1800")) {
		t.Errorf("last quoted = %s", st.LastQuoted)
	}
}

func TestQuoteEngine_RunStopsOnCancel(t *testing.T) {
	exec := &fakeExecution{}
	eng, book := newEngine(testInstruments(), exec)
	book.SetMid("ETH", d("1800"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	// several ticks ran but the unchanged mid was quoted only once
	if got := len(exec.sides("ETH")); got != 2 {
		t.Errorf("ETH sides quoted = %d", got)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if len(exec.orders) != 2 {
		t.Errorf("orders = %d, want 2 (no requote without a move)", len(exec.orders))
	}
}

type panickingStrategy struct{}

func (panickingStrategy) Evaluate(domain.Instrument, domain.PriceState) strategy.Decision {
	panic("bad strategy")
}

func TestQuoteEngine_TickPanicRecovered(t *testing.T) {
	book := NewPriceBook([]string{"ETH"})
	book.SetMid("ETH", d("1800"))
	eng := NewQuoteEngine(testInstruments()[:1], book, &fakeExecution{}, panickingStrategy{}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := eng.Run(ctx); err != nil {
		t.Errorf("Run returned %v", err)
	}
}

func TestPriceBook(t *testing.T) {
	book := NewPriceBook([]string{"ETH"})

	book.SetMid("BTC", d("60000"))
	if _, ok := book.Get("BTC"); ok {
		t.Error("untracked symbol must be ignored")
	}

	book.SetMid("ETH", d("1800"))
	snap := book.Snapshot()
	book.SetMid("ETH", d("1900"))
	book.SetLastQuoted("ETH", d("1900"))

	if !snap["ETH"].Mid.Equal(d("1800")) || !snap["ETH"].LastQuoted.IsZero() {
		t.Errorf("snapshot mutated: %+v", snap["ETH"])
	}
	st, _ := book.Get("ETH")
	if !st.Mid.Equal(d("1900")) || !st.LastQuoted.Equal(d("1900")) {
		t.Errorf("state = %+v", st)
	}
}

func TestPriceBook_ConcurrentAccess(t *testing.T) {
	book := NewPriceBook([]string{"ETH"})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			book.SetMid("ETH", decimal.NewFromInt(int64(1000+i)))
		}(i)
		go func() {
			defer wg.Done()
			_ = book.Snapshot()
		}()
	}
	wg.Wait()

	if st, _ := book.Get("ETH"); !st.Mid.IsPositive() {
		t.Error("expected a mid after concurrent writes")
	}
}
