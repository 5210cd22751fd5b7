package subgraph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// scalar accepts a JSON string or a bare JSON value. Indexers serialize
// big integers as strings, but not consistently.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = scalar(b)
	return nil
}

func (s scalar) int64(field string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func (s scalar) bool(field string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(string(s)))
	if err != nil {
		return false, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// volume parses a raw integer amount and scales it down by decimals.
func (s scalar) volume(field string, decimals int32) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(string(s)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: negative amount %s", field, v)
	}
	return v.Shift(-decimals), nil
}

type tickRecord struct {
	ID        scalar `json:"id"`
	IsBuy     scalar `json:"is_buy"`
	Tick      scalar `json:"tick"`
	Timestamp scalar `json:"timestamp"`
	Volume    scalar `json:"volume"`
}

func (r tickRecord) event(decimals int32) (core.TickEvent, error) {
	if r.ID == "" {
		return core.TickEvent{}, fmt.Errorf("id: missing")
	}
	isBuy, err := r.IsBuy.bool("is_buy")
	if err != nil {
		return core.TickEvent{}, err
	}
	tick, err := r.Tick.int64("tick")
	if err != nil {
		return core.TickEvent{}, err
	}
	ts, err := r.Timestamp.int64("timestamp")
	if err != nil {
		return core.TickEvent{}, err
	}
	size, err := r.Volume.volume("volume", decimals)
	if err != nil {
		return core.TickEvent{}, err
	}
	return core.TickEvent{
		ID:        string(r.ID),
		Tick:      core.Tick(tick),
		Side:      core.SideOf(isBuy),
		Size:      size,
		Timestamp: ts,
	}, nil
}

type currentTickRecord struct {
	ID        scalar `json:"id"`
	Tick      scalar `json:"tick"`
	Timestamp scalar `json:"timestamp"`
}

func (r currentTickRecord) event() (core.CurrentTickEvent, error) {
	if r.ID == "" {
		return core.CurrentTickEvent{}, fmt.Errorf("id: missing")
	}
	tick, err := r.Tick.int64("tick")
	if err != nil {
		return core.CurrentTickEvent{}, err
	}
	ts, err := r.Timestamp.int64("timestamp")
	if err != nil {
		return core.CurrentTickEvent{}, err
	}
	return core.CurrentTickEvent{ID: string(r.ID), Tick: core.Tick(tick), Timestamp: ts}, nil
}

type orderRecord struct {
	ID              scalar `json:"id"`
	User            scalar `json:"user"`
	Tick            scalar `json:"tick"`
	Timestamp       scalar `json:"timestamp"`
	Volume          scalar `json:"volume"`
	RemainingVolume scalar `json:"remaining_volume"`
	OrderIndex      scalar `json:"order_index"`
	IsMarket        scalar `json:"is_market"`
	IsBuy           scalar `json:"is_buy"`
}

func (r orderRecord) event(decimals int32) (core.OrderEvent, error) {
	if r.ID == "" {
		return core.OrderEvent{}, fmt.Errorf("id: missing")
	}
	isBuy, err := r.IsBuy.bool("is_buy")
	if err != nil {
		return core.OrderEvent{}, err
	}
	isMarket, err := r.IsMarket.bool("is_market")
	if err != nil {
		return core.OrderEvent{}, err
	}
	tick, err := r.Tick.int64("tick")
	if err != nil {
		return core.OrderEvent{}, err
	}
	ts, err := r.Timestamp.int64("timestamp")
	if err != nil {
		return core.OrderEvent{}, err
	}
	idx, err := r.OrderIndex.int64("order_index")
	if err != nil {
		return core.OrderEvent{}, err
	}
	volume, err := r.Volume.volume("volume", decimals)
	if err != nil {
		return core.OrderEvent{}, err
	}
	remaining, err := r.RemainingVolume.volume("remaining_volume", decimals)
	if err != nil {
		return core.OrderEvent{}, err
	}
	return core.OrderEvent{
		ID:         string(r.ID),
		User:       string(r.User),
		Tick:       core.Tick(tick),
		Side:       core.SideOf(isBuy),
		IsMarket:   isMarket,
		Volume:     volume,
		Remaining:  remaining,
		OrderIndex: idx,
		Timestamp:  ts,
	}, nil
}
