package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra/chainflip"
)

// RestingOrder is what the venue would hold after a dry-run submission.
type RestingOrder struct {
	Params chainflip.LimitOrderParams
	Order  domain.OrderRequest
}

// DryRunExecution never contacts the venue. It converts each order exactly
// as the live client would, logs it, and keeps the latest order per
// (pair, side, id) the way the venue replaces resting orders.
type DryRunExecution struct {
	mu     sync.Mutex
	orders map[string]RestingOrder
}

func NewDryRunExecution() *DryRunExecution {
	return &DryRunExecution{orders: make(map[string]RestingOrder)}
}

func (m *DryRunExecution) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) error {
	params, err := chainflip.BuildLimitOrderParams(req)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.orders[orderKey(req)] = RestingOrder{Params: params, Order: req}
	m.mu.Unlock()

	slog.Info("DRY RUN: Order not sent",
		slog.String("pair", req.Instrument.Pair()),
		slog.String("side", string(req.Side)),
		slog.Uint64("id", req.OrderID),
		slog.String("price", req.Price.StringFixed(2)),
		slog.String("amount", req.Amount.String()),
		slog.Int64("tick", params.Tick),
		slog.String("sell_amount", params.SellAmount),
	)
	return nil
}

// Orders returns the resting orders, keyed "BASE/QUOTE/side/id".
func (m *DryRunExecution) Orders() map[string]RestingOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]RestingOrder, len(m.orders))
	for k, v := range m.orders {
		out[k] = v
	}
	return out
}

func orderKey(req domain.OrderRequest) string {
	return fmt.Sprintf("%s/%s/%d", req.Instrument.Pair(), req.Side, req.OrderID)
}
