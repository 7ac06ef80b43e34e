package engine

import (
	"sync"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"

	"github.com/shopspring/decimal"
)

// PriceBook is the state shared by the reference feed (writes Mid) and the
// quote engine (reads snapshots, writes LastQuoted).
// Only symbols given at construction are tracked.
type PriceBook struct {
	mu     sync.RWMutex
	states map[string]domain.PriceState
}

func NewPriceBook(symbols []string) *PriceBook {
	states := make(map[string]domain.PriceState, len(symbols))
	for _, s := range symbols {
		states[s] = domain.PriceState{}
	}
	return &PriceBook{states: states}
}

// SetMid records the latest reference mid. Untracked symbols are ignored.
func (b *PriceBook) SetMid(symbol string, mid decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[symbol]
	if !ok {
		return
	}
	st.Mid = mid
	b.states[symbol] = st
}

// SetLastQuoted records the mid at which orders were last submitted.
func (b *PriceBook) SetLastQuoted(symbol string, mid decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[symbol]
	if !ok {
		return
	}
	st.LastQuoted = mid
	b.states[symbol] = st
}

// Get returns the state of one symbol.
func (b *PriceBook) Get(symbol string) (domain.PriceState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.states[symbol]
	return st, ok
}

// Snapshot returns a copy that later updates do not affect.
func (b *PriceBook) Snapshot() map[string]domain.PriceState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]domain.PriceState, len(b.states))
	for k, v := range b.states {
		out[k] = v
	}
	return out
}
