package view

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// Row is one display row of the order book. Price is already bucketed to the
// selected precision; Depth is Cumulative relative to the deepest shown row.
type Row struct {
	Tick       core.Tick
	Price      string
	Size       decimal.Decimal
	Cumulative decimal.Decimal
	Depth      float64
}

// TradeRow is a recent trade with the volume traded from the newest trade
// down to this one.
type TradeRow struct {
	core.Trade
	Total decimal.Decimal
}

// Rows formats up to limit levels for display. Rounding only changes the
// label: two ticks that land on the same bucket stay separate rows.
func Rows(levels []core.Level, precision float64, limit int) []Row {
	if limit > 0 && len(levels) > limit {
		levels = levels[:limit]
	}
	total := core.Total(levels)

	out := make([]Row, 0, len(levels))
	for _, lvl := range levels {
		depth := 0.0
		if total.IsPositive() {
			depth = lvl.Cumulative.Div(total).InexactFloat64()
		}
		out = append(out, Row{
			Tick:       lvl.Tick,
			Price:      core.FormatPrice(lvl.Price, precision),
			Size:       lvl.Size,
			Cumulative: lvl.Cumulative,
			Depth:      depth,
		})
	}
	return out
}

// RunningTotals pairs trades (newest first) with cumulative volume.
func RunningTotals(trades []core.Trade) []TradeRow {
	out := make([]TradeRow, len(trades))
	total := decimal.Zero
	for i, tr := range trades {
		total = total.Add(tr.Size)
		out[i] = TradeRow{Trade: tr, Total: total}
	}
	return out
}

// Imbalance returns each side's share of the total resting size in percent.
// ok is false for an empty book.
func Imbalance(b core.Book) (buyPct, sellPct float64, ok bool) {
	bids, asks := core.Total(b.Bids), core.Total(b.Asks)
	sum := bids.Add(asks)
	if !sum.IsPositive() {
		return 0, 0, false
	}
	buy := bids.Div(sum).Mul(decimal.NewFromInt(100)).InexactFloat64()
	return buy, 100 - buy, true
}

// BookView holds the latest derived book.
// It is thread-safe and returns copies (not internal references).
type BookView struct {
	mu   sync.RWMutex
	book core.Book
}

// NewBookView creates an empty BookView.
func NewBookView() *BookView {
	return &BookView{book: core.Book{Bids: []core.Level{}, Asks: []core.Level{}}}
}

// SetBook replaces the current book.
func (v *BookView) SetBook(b core.Book) {
	b.Bids = cloneLevels(b.Bids)
	b.Asks = cloneLevels(b.Asks)

	v.mu.Lock()
	v.book = b
	v.mu.Unlock()
}

// Book returns the current book.
func (v *BookView) Book() core.Book {
	v.mu.RLock()
	defer v.mu.RUnlock()
	b := v.book
	b.Bids = cloneLevels(b.Bids)
	b.Asks = cloneLevels(b.Asks)
	return b
}

// Levels returns the rows of one side, best first.
func (v *BookView) Levels(side core.Side) []core.Level {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneLevels(v.book.Levels(side))
}

func cloneLevels(in []core.Level) []core.Level {
	out := make([]core.Level, len(in))
	copy(out, in)
	return out
}
