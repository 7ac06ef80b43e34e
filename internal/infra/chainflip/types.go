package chainflip

import (
	"encoding/json"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
)

const (
	methodSetLimitOrder   = "lp_set_limit_order"
	methodSubscribeFills  = "lp_subscribe_order_fills"
	jsonRPCVersion        = "2.0"
	unknownRejectionError = "Unknown error"
)

type rpcRequest struct {
	ID      uint64      `json:"id"`
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// LimitOrderParams are the lp_set_limit_order parameters.
type LimitOrderParams struct {
	BaseAsset  domain.Asset `json:"base_asset"`
	QuoteAsset domain.Asset `json:"quote_asset"`
	Side       domain.Side  `json:"side"`
	ID         uint64       `json:"id"`
	Tick       int64        `json:"tick"`
	SellAmount string       `json:"sell_amount"`
}

// fillNotification is a subscription push:
// {"method":"lp_subscribe_order_fills","params":{"result":{...}}}.
// Subscription acknowledgements reuse the struct with ID/Result/Error set.
type fillNotification struct {
	Method string `json:"method"`
	Params *struct {
		Result *fillBatch `json:"result"`
	} `json:"params"`

	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type fillBatch struct {
	BlockNumber uint64            `json:"block_number"`
	Fills       []json.RawMessage `json:"fills"`
}

type fillEntry struct {
	LimitOrder *domain.LimitOrderFill `json:"limit_order"`
}
