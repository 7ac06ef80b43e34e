package quant

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// TickBase is the price ratio between two consecutive ticks (0.01%).
const TickBase = 1.0001

var logTickBase = math.Log(TickBase)

// ErrNonPositivePrice is returned when a tick is requested for price <= 0.
var ErrNonPositivePrice = errors.New("price must be strictly positive")

// Tick converts a quote-per-base price into the venue's tick index:
// floor(ln(price * quoteScale / baseScale) / ln(1.0001)).
// Scales are smallest-unit denominators (1e18 for an 18-decimal asset).
func Tick(price, baseScale, quoteScale float64) (int64, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, ErrNonPositivePrice
	}
	if !(baseScale > 0) || !(quoteScale > 0) {
		return 0, errors.New("scales must be strictly positive")
	}
	t := math.Floor(math.Log(price*quoteScale/baseScale) / logTickBase)
	if math.IsInf(t, 0) || math.IsNaN(t) {
		return 0, fmt.Errorf("price %g out of tick range", price)
	}
	return int64(t), nil
}

// TickOf is Tick for decimal inputs.
func TickOf(price, baseScale, quoteScale decimal.Decimal) (int64, error) {
	return Tick(price.InexactFloat64(), baseScale.InexactFloat64(), quoteScale.InexactFloat64())
}

// ScaleAmount returns amount*scale as an integer, truncated toward zero.
// The multiplication is exact; no float rounding is involved.
func ScaleAmount(amount, scale decimal.Decimal) *big.Int {
	return amount.Mul(scale).Truncate(0).BigInt()
}

// SellAmount is the native amount of a sell order: amount in base smallest units.
func SellAmount(amount, baseScale decimal.Decimal) *big.Int {
	return ScaleAmount(amount, baseScale)
}

// BuyAmount is the native amount of a buy order: the quote spent, amount*price,
// in quote smallest units.
func BuyAmount(amount, price, quoteScale decimal.Decimal) *big.Int {
	return ScaleAmount(amount.Mul(price), quoteScale)
}

// Unscale converts a smallest-unit integer back to a decimal quantity.
func Unscale(v *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(v, -decimals)
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
