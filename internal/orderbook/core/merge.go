package core

import "time"

// FilterSide keeps the events of side whose tick is in whitelist.
// An empty whitelist yields an empty result.
func FilterSide(events []TickEvent, side Side, whitelist []Tick) []TickEvent {
	if len(whitelist) == 0 {
		return []TickEvent{}
	}
	live := make(map[Tick]struct{}, len(whitelist))
	for _, t := range whitelist {
		live[t] = struct{}{}
	}

	out := make([]TickEvent, 0, len(whitelist))
	for _, ev := range events {
		if ev.Side != side {
			continue
		}
		if _, ok := live[ev.Tick]; ok {
			out = append(out, ev)
		}
	}
	return out
}

// Merge reconciles the indexed events with the on-chain best ticks and builds
// a book. The whitelist decides which ticks are live; the events supply the
// size resting there. A nil best (not loaded yet) gives an empty book.
func Merge(events []TickEvent, best *BestTicks, codec Codec, depth int, at time.Time) Book {
	book := Book{
		Bids:        []Level{},
		Asks:        []Level{},
		RefreshedAt: at,
	}
	if best == nil {
		return book
	}

	book.Bids = Aggregate(FilterSide(events, SideBuy, best.Bids), SideBuy, codec, depth)
	book.Asks = Aggregate(FilterSide(events, SideSell, best.Asks), SideSell, codec, depth)
	book.Spread, book.SpreadOK = SpreadOf(book.Bids, book.Asks)
	book.CurrentTick = best.CurrentTick
	book.HasCurrentTick = true
	return book
}
