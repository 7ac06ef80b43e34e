package strategy

import (
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

// Strategy decides, for one instrument and its current price state,
// which orders to (re)submit. It must be pure: no I/O, no shared state.
type Strategy interface {
	Evaluate(inst domain.Instrument, state domain.PriceState) Decision
}
