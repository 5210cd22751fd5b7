package tui

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zappabad/liquidbook/internal/chain"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/tui/panels"
)

// Trader places orders on the engine.
type Trader interface {
	Account() common.Address
	PlaceOrder(ctx context.Context, req chain.OrderRequest) (chain.PlaceOrderResult, error)
}

// orderRequest turns the order form into an engine request. Limit prices are
// snapped to the nearest tick; market orders carry tick 0. The volume is
// scaled to the engine's integer units.
func orderRequest(o panels.OrderSubmitMsg, codec core.Codec, sizeDecimals int32, user common.Address) (chain.OrderRequest, error) {
	req := chain.OrderRequest{
		User: user,
		Side: o.Side,
		Kind: o.Kind,
	}

	if o.Kind == core.OrderKindLimit {
		tick, err := codec.TickFromPrice(o.Price)
		if err != nil {
			return chain.OrderRequest{}, fmt.Errorf("%w: price %v: %v", chain.ErrInvalidOrder, o.Price, err)
		}
		req.Tick = tick
	}

	scaled := o.Volume.Shift(sizeDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return chain.OrderRequest{}, fmt.Errorf("%w: volume has more than %d decimals", chain.ErrInvalidOrder, sizeDecimals)
	}
	if !scaled.IsPositive() {
		return chain.OrderRequest{}, fmt.Errorf("%w: volume must be positive", chain.ErrInvalidOrder)
	}
	req.Volume = new(big.Int).Set(scaled.BigInt())
	return req, nil
}
