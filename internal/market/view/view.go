package view

import (
	"sync"
	"time"

	"github.com/zappabad/liquidbook/internal/market"
	"github.com/zappabad/liquidbook/internal/okx"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
)

// Stats is the market widget: 24h ticker figures plus the mark price.
type Stats struct {
	Instrument market.Instrument

	HasTicker     bool
	Last          float64
	Open24h       float64
	High24h       float64
	Low24h        float64
	Volume24h     float64
	Change        float64
	ChangePercent float64
	ChangeOK      bool

	HasMark bool
	Mark    float64

	UpdatedAt time.Time
	// Stale is set while any source's last poll failed. StaleSources names
	// them in a fixed order and LastError is the first one's error.
	Stale        bool
	StaleSources []string
	LastError    string
}

// Source names for the three polled endpoints.
const (
	SourceTicker = "ticker"
	SourceMark   = "mark_price"
	SourceTrades = "trades"
)

var sourceOrder = []string{SourceTicker, SourceMark, SourceTrades}

// MarketView maintains the public market state for one instrument.
type MarketView struct {
	mu     sync.RWMutex
	stats  Stats
	tape   *orderbookview.TradeTape
	failed map[string]string
}

// NewMarketView creates a new MarketView keeping up to tapeSize trades.
func NewMarketView(inst market.Instrument, tapeSize int) *MarketView {
	return &MarketView{
		stats:  Stats{Instrument: inst},
		tape:   orderbookview.NewTradeTape(tapeSize),
		failed: make(map[string]string),
	}
}

// ApplyTicker records a ticker response.
func (v *MarketView) ApplyTicker(t okx.Ticker) Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := &v.stats
	s.HasTicker = true
	s.Last = t.Last
	s.Open24h = t.Open24h
	s.High24h = t.High24h
	s.Low24h = t.Low24h
	s.Volume24h = t.VolCcy24h
	s.Change = t.Change()
	s.ChangePercent, s.ChangeOK = t.ChangePercent()
	v.fresh(SourceTicker, t.Time)
	return v.stats
}

// ApplyMark records the mark price.
func (v *MarketView) ApplyMark(px float64) Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats.HasMark = true
	v.stats.Mark = px
	v.fresh(SourceMark, time.Now())
	return v.stats
}

// ApplyTrades takes trades newest first, as OKX lists them, appends the ones
// not seen before and returns how many were new.
func (v *MarketView) ApplyTrades(trades []core.Trade) (int, Stats) {
	v.mu.Lock()
	defer v.mu.Unlock()

	added := 0
	for i := len(trades) - 1; i >= 0; i-- {
		if v.tape.Append(trades[i]) {
			added++
		}
	}
	v.fresh(SourceTrades, time.Now())
	return added, v.stats
}

// Fail marks source stale. The last good figures stay in place.
func (v *MarketView) Fail(source string, err error) Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failed[source] = err.Error()
	v.derive()
	return v.stats
}

// caller holds v.mu
func (v *MarketView) fresh(source string, at time.Time) {
	delete(v.failed, source)
	v.derive()
	if at.After(v.stats.UpdatedAt) {
		v.stats.UpdatedAt = at
	}
}

// caller holds v.mu
func (v *MarketView) derive() {
	v.stats.StaleSources = nil
	v.stats.LastError = ""
	for _, name := range sourceOrder {
		msg, ok := v.failed[name]
		if !ok {
			continue
		}
		if v.stats.LastError == "" {
			v.stats.LastError = msg
		}
		v.stats.StaleSources = append(v.stats.StaleSources, name)
	}
	v.stats.Stale = len(v.stats.StaleSources) > 0
}

// Stats returns the current figures.
func (v *MarketView) Stats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// RecentTrades returns up to n trades, newest first, with running totals.
func (v *MarketView) RecentTrades(n int) []orderbookview.TradeRow {
	v.mu.RLock()
	last := v.tape.Last(n)
	v.mu.RUnlock()

	for i, j := 0, len(last)-1; i < j; i, j = i+1, j-1 {
		last[i], last[j] = last[j], last[i]
	}
	return orderbookview.RunningTotals(last)
}
