package core

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Aggregate prices the events of one side through codec and ladders them.
func Aggregate(events []TickEvent, side Side, codec Codec, depth int) []Level {
	levels := make([]Level, 0, len(events))
	for _, ev := range events {
		levels = append(levels, Level{
			Tick:  ev.Tick,
			Price: codec.PriceFromTick(ev.Tick),
			Size:  ev.Size,
		})
	}
	return Ladder(levels, side, depth)
}

// Ladder orders priced rows for one side of the book.
//
// Rows are kept distinct; rounding for display happens later. Asks are sorted
// ascending and bids descending, stable on equal prices. The result is
// truncated to depth after sorting (depth <= 0 keeps every row), and
// Cumulative is the running size starting at the best level. The input is
// not modified.
func Ladder(rows []Level, side Side, depth int) []Level {
	levels := make([]Level, len(rows))
	copy(levels, rows)

	sort.SliceStable(levels, func(i, j int) bool {
		if side == SideBuy {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})

	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}

	total := decimal.Zero
	for i := range levels {
		total = total.Add(levels[i].Size)
		levels[i].Cumulative = total
	}
	return levels
}

// SpreadOf returns best ask minus best bid. ok is false when either side is
// empty, a best price is not finite, or the book is crossed.
func SpreadOf(bids, asks []Level) (spread float64, ok bool) {
	if len(bids) == 0 || len(asks) == 0 {
		return 0, false
	}
	bid, ask := bids[0].Price, asks[0].Price
	if !finite(bid) || !finite(ask) {
		return 0, false
	}
	spread = ask - bid
	if spread < 0 || !finite(spread) {
		return 0, false
	}
	return spread, true
}

// Total returns the summed size of levels.
func Total(levels []Level) decimal.Decimal {
	if len(levels) == 0 {
		return decimal.Zero
	}
	return levels[len(levels)-1].Cumulative
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
