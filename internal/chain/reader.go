package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// Reader reads the live tick whitelist from the bitmap contract.
type Reader struct {
	address  common.Address
	contract *bind.BoundContract
}

// NewReader binds the bitmap contract at address.
func NewReader(address common.Address, caller bind.ContractCaller) *Reader {
	return &Reader{
		address:  address,
		contract: bind.NewBoundContract(address, bitmapABI, caller, nil, nil),
	}
}

// TopNBestTicks returns the best ticks for one side, best first.
func (r *Reader) TopNBestTicks(ctx context.Context, side core.Side) ([]core.Tick, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodTopNBestTicks, side.IsBuy()); err != nil {
		return nil, fmt.Errorf("%s(%s): %w", methodTopNBestTicks, side, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", methodTopNBestTicks, len(out))
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)

	ticks := make([]core.Tick, 0, len(raw))
	for _, v := range raw {
		t, err := toTick(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", methodTopNBestTicks, err)
		}
		ticks = append(ticks, t)
	}
	return ticks, nil
}

// CurrentTick returns the market's current tick.
func (r *Reader) CurrentTick(ctx context.Context) (core.Tick, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetCurrentTick); err != nil {
		return 0, fmt.Errorf("%s: %w", methodGetCurrentTick, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%s: expected 1 output, got %d", methodGetCurrentTick, len(out))
	}
	return toTick(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
}

// BestTicks reads both sides and the current tick. Any failed read fails the
// whole snapshot so a half-updated whitelist is never returned.
func (r *Reader) BestTicks(ctx context.Context) (core.BestTicks, error) {
	bids, err := r.TopNBestTicks(ctx, core.SideBuy)
	if err != nil {
		return core.BestTicks{}, err
	}
	asks, err := r.TopNBestTicks(ctx, core.SideSell)
	if err != nil {
		return core.BestTicks{}, err
	}
	current, err := r.CurrentTick(ctx)
	if err != nil {
		return core.BestTicks{}, err
	}
	return core.BestTicks{Bids: bids, Asks: asks, CurrentTick: current}, nil
}

func toTick(v *big.Int) (core.Tick, error) {
	if v == nil {
		return 0, fmt.Errorf("nil tick")
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("tick %s out of range", v)
	}
	return core.Tick(v.Int64()), nil
}
