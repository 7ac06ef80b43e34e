package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSide_IsValid(t *testing.T) {
	tests := []struct {
		name string
		side Side
		want bool
	}{
		{"buy", SideBuy, true},
		{"sell", SideSell, true},
		{"upper", Side("BUY"), false},
		{"empty", Side(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.side.IsValid(); got != tt.want {
				t.Errorf("Side(%q).IsValid() = %v, want %v", tt.side, got, tt.want)
			}
		})
	}
}

func TestAsset_Scale(t *testing.T) {
	eth := Asset{Chain: "Ethereum", Symbol: "ETH", Decimals: 18}
	want := decimal.RequireFromString("1000000000000000000")
	if !eth.Scale().Equal(want) {
		t.Errorf("ETH scale = %s, want %s", eth.Scale(), want)
	}

	usdc := Asset{Chain: "Ethereum", Symbol: "USDC", Decimals: 6}
	if !usdc.Scale().Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("USDC scale = %s", usdc.Scale())
	}
}

func TestInstrument_Supports(t *testing.T) {
	inst := Instrument{
		Symbol: "ETH",
		Base:   Asset{Symbol: "ETH", Decimals: 18},
		Quote:  Asset{Symbol: "USDC", Decimals: 6},
	}

	if !inst.Supports("ETH", "USDC") {
		t.Error("expected ETH/USDC to be supported")
	}
	if inst.Supports("ETH", "USDT") {
		t.Error("quote mismatch should not be supported")
	}
	if inst.Supports("BTC", "USDC") {
		t.Error("base mismatch should not be supported")
	}
	if inst.Pair() != "ETH/USDC" {
		t.Errorf("Pair() = %s", inst.Pair())
	}
}
