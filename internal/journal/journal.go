// Package journal keeps a local record of submitted orders.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/chain"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// Order statuses.
const (
	StatusPlaced   = "placed"
	StatusRejected = "rejected"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"
)

// Entry is one submission and its outcome.
type Entry struct {
	ID        int64
	CreatedAt time.Time
	Account   string
	Side      core.Side
	Kind      core.OrderKind
	Tick      core.Tick
	Price     float64
	Volume    decimal.Decimal

	Status       string
	TxHash       string
	OrderIndex   string
	ExecutedTick core.Tick
	Remaining    string
	Error        string
}

// Recorder persists journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) (int64, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// StatusOf maps a submission error to a status.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusPlaced
	case errors.Is(err, chain.ErrOrderRejected):
		return StatusRejected
	case errors.Is(err, chain.ErrPlaceOrderEventNotFound):
		return StatusNotFound
	default:
		return StatusFailed
	}
}

// Complete fills the outcome fields of e from a submission result.
func (e Entry) Complete(res chain.PlaceOrderResult, err error) Entry {
	e.Status = StatusOf(err)
	if err != nil {
		e.Error = err.Error()
		return e
	}
	e.TxHash = res.TxHash.Hex()
	e.ExecutedTick = res.ExecutedTick
	if res.OrderIndex != nil {
		e.OrderIndex = res.OrderIndex.String()
	}
	if res.RemainingVolume != nil {
		e.Remaining = res.RemainingVolume.String()
	}
	return e
}
