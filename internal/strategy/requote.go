package strategy

import (
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"

	"github.com/shopspring/decimal"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	// Requote is true when the price moved enough (or was never quoted).
	// Orders can still be empty if both sides are disabled.
	Requote   bool
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	Orders    []domain.OrderRequest
}

// ThresholdRequoter requotes both sides around the reference mid whenever the
// mid has moved by more than Threshold relative to the last quoted mid.
type ThresholdRequoter struct {
	Threshold decimal.Decimal
}

func NewThresholdRequoter(threshold decimal.Decimal) *ThresholdRequoter {
	return &ThresholdRequoter{Threshold: threshold}
}

// RelativeChange returns |mid-last|/last. ok is false when last is zero,
// which callers treat as an infinite change.
func RelativeChange(mid, last decimal.Decimal) (change decimal.Decimal, ok bool) {
	if last.IsZero() {
		return decimal.Zero, false
	}
	return mid.Sub(last).Abs().Div(last), true
}

func (r *ThresholdRequoter) Evaluate(inst domain.Instrument, state domain.PriceState) Decision {
	if !state.Mid.IsPositive() {
		return Decision{}
	}

	d := Decision{
		BuyPrice:  state.Mid.Mul(inst.BuyFactor),
		SellPrice: state.Mid.Mul(inst.SellFactor),
	}

	change, ok := RelativeChange(state.Mid, state.LastQuoted)
	if ok && !change.GreaterThan(r.Threshold) {
		return d
	}
	d.Requote = true

	if inst.SellSize.IsPositive() {
		d.Orders = append(d.Orders, domain.OrderRequest{
			Side:       domain.SideSell,
			Instrument: inst,
			Price:      d.SellPrice,
			Amount:     inst.SellSize,
			OrderID:    inst.SellOrderID,
		})
	}
	if inst.BuySize.IsPositive() {
		d.Orders = append(d.Orders, domain.OrderRequest{
			Side:       domain.SideBuy,
			Instrument: inst,
			Price:      d.BuyPrice,
			Amount:     inst.BuySize,
			OrderID:    inst.BuyOrderID,
		})
	}
	return d
}
