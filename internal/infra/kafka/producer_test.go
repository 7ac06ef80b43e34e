package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/domain"
	"github.com/chainflipgod/Chainflip-Maker-Demo/internal/storage"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_RecordFill(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	rec := domain.FillRecord{
		BaseAsset:    "DOT",
		QuoteAsset:   "USDC",
		Side:         domain.SideBuy,
		BlockNumber:  77,
		AssetChange:  decimal.NewFromInt(20),
		QuoteChange:  decimal.NewFromInt(-100),
		AveragePrice: decimal.NewFromInt(5),
		FeeAsset:     decimal.RequireFromString("0.01"),
		FeeQuote:     decimal.RequireFromString("0.05"),
		Timestamp:    time.Unix(1700000000, 0),
	}

	if err := p.RecordFill(context.Background(), rec); err != nil {
		t.Fatalf("RecordFill failed: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "DOT" {
		t.Errorf("key = %q, want DOT", msg.Key)
	}

	var line storage.FillLine
	if err := json.Unmarshal(msg.Value, &line); err != nil {
		t.Fatalf("value is not a fill line: %v", err)
	}
	if line.BlockNumber != 77 || line.Side != "buy" || line.Price != 5 {
		t.Errorf("unexpected payload: %+v", line)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("Close should close the writer")
	}
}

func TestProducer_WriteError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
	err := p.RecordFill(context.Background(), domain.FillRecord{BaseAsset: "ETH"})
	if err == nil {
		t.Fatal("expected error")
	}
}

var _ storage.FillSink = (*Producer)(nil)
