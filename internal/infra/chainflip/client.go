package chainflip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/infra"
	"github.com/chainflipgod/Chainflip-Maker-Demo/pkg/quant"
)

// Client places limit orders through the LP API JSON-RPC endpoint.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	seq        uint64
}

// NewClient creates a client. timeout bounds one whole request.
func NewClient(rpcURL string, timeout time.Duration) *Client {
	return &Client{
		rpcURL: rpcURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PlaceLimitOrder sets (creates or replaces) the resting order identified by
// (pair, side, OrderID). Exactly one request is made.
func (c *Client) PlaceLimitOrder(ctx context.Context, req domain.OrderRequest) error {
	params, err := BuildLimitOrderParams(req)
	if err != nil {
		return err
	}

	resp, err := c.call(ctx, methodSetLimitOrder, params)
	if err != nil {
		return err
	}

	if len(resp.Result) == 0 {
		msg := unknownRejectionError
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return &domain.RejectionError{Side: req.Side, Pair: req.Instrument.Pair(), Message: msg}
	}

	slog.Info(fmt.Sprintf("Order placed: %s %s %s at %s %s",
		capitalize(string(req.Side)),
		req.Amount.StringFixed(8), req.Instrument.Base.Symbol,
		req.Price.StringFixed(2), req.Instrument.Quote.Symbol),
		slog.Uint64("id", req.OrderID),
		slog.Int64("tick", params.Tick),
		slog.String("sell_amount", params.SellAmount))
	return nil
}

// BuildLimitOrderParams converts an order into venue units.
// A sell offers base, a buy offers quote worth Amount*Price.
func BuildLimitOrderParams(req domain.OrderRequest) (LimitOrderParams, error) {
	inst := req.Instrument
	tick, err := quant.TickOf(req.Price, inst.Base.Scale(), inst.Quote.Scale())
	if err != nil {
		return LimitOrderParams{}, fmt.Errorf("%s %s order: %w", inst.Pair(), req.Side, err)
	}

	var amount string
	switch req.Side {
	case domain.SideSell:
		amount = quant.EncodeHex(quant.SellAmount(req.Amount, inst.Base.Scale()))
	case domain.SideBuy:
		amount = quant.EncodeHex(quant.BuyAmount(req.Amount, req.Price, inst.Quote.Scale()))
	default:
		return LimitOrderParams{}, fmt.Errorf("%s: invalid side %q", inst.Pair(), req.Side)
	}

	return LimitOrderParams{
		BaseAsset:  inst.Base,
		QuoteAsset: inst.Quote,
		Side:       req.Side,
		ID:         req.OrderID,
		Tick:       tick,
		SellAmount: amount,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (*rpcResponse, error) {
	body, err := json.Marshal(rpcRequest{
		ID:      quant.NextSeq(&c.seq),
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.TransportError{Op: method, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", infra.DefaultUserAgent)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{Op: method, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, &domain.TransportError{Op: method, Err: err}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &domain.TransportError{
			Op:  method,
			Err: fmt.Errorf("http status %d: %s", httpResp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &domain.TransportError{Op: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &resp, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
