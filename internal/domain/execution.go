package domain

import (
	"context"
	"fmt"
)

// Execution places orders on the venue.
// Implementations make exactly one attempt per call; retry is the caller's concern.
type Execution interface {
	PlaceLimitOrder(ctx context.Context, req OrderRequest) error
}

// RejectionError means the venue answered but refused the order.
type RejectionError struct {
	Side    Side
	Pair    string
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("venue rejected %s order for %s: %s", e.Side, e.Pair, e.Message)
}

// TransportError means the request never produced a usable venue answer
// (connection failure, timeout, non-2xx status, undecodable body).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
