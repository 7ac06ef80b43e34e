package quant

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethmath "github.com/ethereum/go-ethereum/common/math"
)

// EncodeHex renders a non-negative integer as a minimal lowercase 0x-prefixed
// hex string, the venue's wire format for amounts.
func EncodeHex(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// DecodeHex parses a 0x-prefixed hex integer of up to 256 bits.
// Leading zeros are accepted.
func DecodeHex(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("hex integer %q: missing 0x prefix", s)
	}
	if len(s) == 2 {
		return nil, fmt.Errorf("hex integer %q: empty", s)
	}
	v, ok := gethmath.ParseBig256(s)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("hex integer %q: invalid", s)
	}
	return v, nil
}
