package core

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents the order side: buy or sell.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// IsBuy reports whether s is the bid side.
func (s Side) IsBuy() bool { return s == SideBuy }

// SideOf maps the venue's is_buy flag to a Side.
func SideOf(isBuy bool) Side {
	if isBuy {
		return SideBuy
	}
	return SideSell
}

// OrderKind represents the order type: limit or market.
type OrderKind uint8

const (
	OrderKindLimit OrderKind = iota
	OrderKindMarket
)

func (k OrderKind) String() string {
	switch k {
	case OrderKindLimit:
		return "LIMIT"
	case OrderKindMarket:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// Tick is a discrete price index under geometric spacing.
type Tick int64

func (t Tick) String() string { return strconv.FormatInt(int64(t), 10) }

// TickEvent is one resting-order observation at a tick, as indexed by the subgraph.
type TickEvent struct {
	ID        string
	Tick      Tick
	Side      Side
	Size      decimal.Decimal
	Timestamp int64 // unix seconds
}

// CurrentTickEvent records the market's current tick at a point in time.
type CurrentTickEvent struct {
	ID        string
	Tick      Tick
	Timestamp int64
}

// BestTicks is the authoritative whitelist of live ticks read on-chain.
type BestTicks struct {
	Bids        []Tick
	Asks        []Tick
	CurrentTick Tick
}

// Level is one aggregated order book row.
// Cumulative is the running size from the best level down to this one.
type Level struct {
	Tick       Tick
	Price      float64
	Size       decimal.Decimal
	Cumulative decimal.Decimal
}

// Book is a derived order book snapshot. Bids are sorted by descending
// price, asks ascending. Spread is only meaningful when SpreadOK is set.
type Book struct {
	Bids           []Level
	Asks           []Level
	Spread         float64
	SpreadOK       bool
	CurrentTick    Tick
	HasCurrentTick bool
	RefreshedAt    time.Time
}

// Levels returns the rows for side.
func (b Book) Levels(side Side) []Level {
	if side == SideBuy {
		return b.Bids
	}
	return b.Asks
}

// Trade is a public market trade.
type Trade struct {
	ID    string
	Price float64
	Size  decimal.Decimal
	Side  Side
	Time  time.Time
}

// OrderEvent is a placed order as recorded by the indexer.
type OrderEvent struct {
	ID         string
	User       string
	Tick       Tick
	Side       Side
	IsMarket   bool
	Volume     decimal.Decimal
	Remaining  decimal.Decimal
	OrderIndex int64
	Timestamp  int64
}

// Kind returns the order kind recorded for the event.
func (e OrderEvent) Kind() OrderKind {
	if e.IsMarket {
		return OrderKindMarket
	}
	return OrderKindLimit
}

// Filled returns the executed part of the order volume.
func (e OrderEvent) Filled() decimal.Decimal {
	return e.Volume.Sub(e.Remaining)
}
