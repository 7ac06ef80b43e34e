package strategy_test

import (
	"testing"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/strategy"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ethInstrument() domain.Instrument {
	return domain.Instrument{
		Symbol:      "ETH",
		Base:        domain.Asset{Chain: "Ethereum", Symbol: "ETH", Decimals: 18},
		Quote:       domain.Asset{Chain: "Ethereum", Symbol: "USDC", Decimals: 6},
		BuyFactor:   d("0.998"),
		SellFactor:  d("1.002"),
		BuySize:     d("0.1"),
		SellSize:    d("0.1"),
		BuyOrderID:  2,
		SellOrderID: 1,
	}
}

func TestThresholdRequoter_Evaluate(t *testing.T) {
	strat := strategy.NewThresholdRequoter(d("0.002"))

	tests := []struct {
		name        string
		mid, last   string
		wantRequote bool
		wantOrders  int
	}{
		{"no price yet", "0", "0", false, 0},
		{"first quote", "1800", "0", true, 2},
		{"move above threshold", "1003", "1000", true, 2},
		{"move below threshold", "1001", "1000", false, 0},
		{"move down above threshold", "997", "1000", true, 2},
		{"exactly at threshold", "1002", "1000", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := strat.Evaluate(ethInstrument(), domain.PriceState{Mid: d(tt.mid), LastQuoted: d(tt.last)})
			if dec.Requote != tt.wantRequote {
				t.Errorf("Requote = %v, want %v", dec.Requote, tt.wantRequote)
			}
			if len(dec.Orders) != tt.wantOrders {
				t.Errorf("orders = %d, want %d", len(dec.Orders), tt.wantOrders)
			}
		})
	}
}

func TestThresholdRequoter_Prices(t *testing.T) {
	strat := strategy.NewThresholdRequoter(d("0.002"))
	dec := strat.Evaluate(ethInstrument(), domain.PriceState{Mid: d("1800")})

	if !dec.BuyPrice.Equal(d("1796.4")) || !dec.SellPrice.Equal(d("1803.6")) {
		t.Fatalf("buy/sell = %s/%s, want 1796.4/1803.6", dec.BuyPrice, dec.SellPrice)
	}

	sell, buy := dec.Orders[0], dec.Orders[1]
	if sell.Side != domain.SideSell || sell.OrderID != 1 || !sell.Price.Equal(d("1803.6")) || !sell.Amount.Equal(d("0.1")) {
		t.Errorf("unexpected sell order: %+v", sell)
	}
	if buy.Side != domain.SideBuy || buy.OrderID != 2 || !buy.Price.Equal(d("1796.4")) {
		t.Errorf("unexpected buy order: %+v", buy)
	}
}

func TestThresholdRequoter_DisabledSides(t *testing.T) {
	strat := strategy.NewThresholdRequoter(d("0.002"))

	inst := ethInstrument()
	inst.BuySize = decimal.Zero
	dec := strat.Evaluate(inst, domain.PriceState{Mid: d("1800")})
	if len(dec.Orders) != 1 || dec.Orders[0].Side != domain.SideSell {
		t.Errorf("expected only a sell order, got %+v", dec.Orders)
	}

	inst.SellSize = decimal.Zero
	dec = strat.Evaluate(inst, domain.PriceState{Mid: d("1800")})
	if !dec.Requote || len(dec.Orders) != 0 {
		t.Errorf("both sides disabled: requote=%v orders=%d", dec.Requote, len(dec.Orders))
	}
}

func TestRelativeChange(t *testing.T) {
	if _, ok := strategy.RelativeChange(d("5"), decimal.Zero); ok {
		t.Error("zero last price must report an infinite change")
	}
	c, ok := strategy.RelativeChange(d("1003"), d("1000"))
	if !ok || !c.Equal(d("0.003")) {
		t.Errorf("change = %s, %v", c, ok)
	}
}

var _ strategy.Strategy = (*strategy.ThresholdRequoter)(nil)
