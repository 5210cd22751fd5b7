package service

import (
	"context"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// TickSource lists every tick event (the raw liquidity records).
//
//go:generate mockgen -source=sources.go -destination=../mock/sources_mock.go -package=mock
type TickSource interface {
	Ticks(ctx context.Context) ([]core.TickEvent, error)
}

// BestTickSource returns the on-chain best-tick whitelist.
type BestTickSource interface {
	BestTicks(ctx context.Context) (core.BestTicks, error)
}

// PriceSource returns the current-tick history, oldest first.
type PriceSource interface {
	CurrentTicks(ctx context.Context) ([]core.CurrentTickEvent, error)
}

// HistorySource returns placed orders newest first, filtered to user when
// user is non-empty.
type HistorySource interface {
	Orders(ctx context.Context, user string) ([]core.OrderEvent, error)
}

// Sources bundles the inputs of a Service. History and User are optional.
type Sources struct {
	Ticks   TickSource
	Best    BestTickSource
	Prices  PriceSource
	History HistorySource
	User    string
}
