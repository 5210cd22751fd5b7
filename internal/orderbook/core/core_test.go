package core

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceFromTick(t *testing.T) {
	c := NewCodec(DefaultTickBase)

	got := []float64{c.PriceFromTick(100), c.PriceFromTick(101), c.PriceFromTick(102)}
	want := []float64{math.Pow(1.0001, 100), math.Pow(1.0001, 101), math.Pow(1.0001, 102)}

	assert.Equal(t, want, got)
	assert.Less(t, got[0], got[1])
	assert.Less(t, got[1], got[2])
}

func TestPriceFromTickMonotonic(t *testing.T) {
	c := NewCodec(DefaultTickBase)
	prev := c.PriceFromTick(-200000)
	for tick := Tick(-199999); tick <= 200000; tick += 7 {
		p := c.PriceFromTick(tick)
		require.Greaterf(t, p, prev, "tick %d", tick)
		prev = p
	}
}

func TestPriceFromTickExtremes(t *testing.T) {
	c := NewCodec(DefaultTickBase)

	huge := c.PriceFromTick(math.MaxInt32)
	assert.True(t, math.IsInf(huge, 1))
	assert.Equal(t, "∞", FormatPrice(huge, 0.01))

	tiny := c.PriceFromTick(math.MinInt32)
	assert.Equal(t, 0.0, tiny)
	assert.Equal(t, "0.00", FormatPrice(tiny, 0.01))

	assert.Equal(t, "—", FormatPrice(math.NaN(), 0.1))
	assert.Equal(t, "-∞", FormatPrice(math.Inf(-1), 1))
}

func TestNewCodecRejectsBadBase(t *testing.T) {
	for _, base := range []float64{0, 1, -3, math.NaN(), math.Inf(1)} {
		assert.Equal(t, DefaultTickBase, NewCodec(base).Base())
	}
	assert.Equal(t, 1.001, NewCodec(1.001).Base())

	var zero Codec
	assert.Equal(t, math.Pow(DefaultTickBase, 10), zero.PriceFromTick(10))
}

func TestTickFromPrice(t *testing.T) {
	c := NewCodec(DefaultTickBase)

	for _, tick := range []Tick{-50000, -1, 0, 1, 100, 76012} {
		got, err := c.TickFromPrice(c.PriceFromTick(tick))
		require.NoError(t, err)
		assert.Equal(t, tick, got)
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := c.TickFromPrice(bad)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	}
}

func TestRoundToPrecision(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		precision float64
		want      float64
	}{
		{"hundredths", 2000.12345, 0.01, 2000.12},
		{"tenths", 2000.16, 0.1, 2000.2},
		{"units", 2000.5, 1, 2001},
		{"zero precision", 12.345, 0, 12.345},
		{"negative precision", 12.345, -1, 12.345},
		{"nan precision", 12.345, math.NaN(), 12.345},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RoundToPrecision(tt.price, tt.precision), 1e-9)
		})
	}

	assert.True(t, math.IsInf(RoundToPrecision(math.Inf(1), 0.01), 1))
	assert.True(t, math.IsNaN(RoundToPrecision(math.NaN(), 0.01)))
}

func TestRoundToPrecisionIdempotent(t *testing.T) {
	c := NewCodec(DefaultTickBase)
	for _, p := range []float64{0.01, 0.1, 1, 0.5, 0.25} {
		for tick := Tick(-60000); tick <= 120000; tick += 997 {
			x := c.PriceFromTick(tick)
			once := RoundToPrecision(x, p)
			assert.Equalf(t, once, RoundToPrecision(once, p), "x=%v p=%v", x, p)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "2000.12", FormatPrice(2000.1234, 0.01))
	assert.Equal(t, "2000.1", FormatPrice(2000.1234, 0.1))
	assert.Equal(t, "2000", FormatPrice(2000.1234, 1))
	assert.Equal(t, "2000.1234", FormatPrice(2000.1234, 0))
	assert.Equal(t, 5, PrecisionDecimals(0.00001))
}

func TestLadderScenario(t *testing.T) {
	asks := Ladder([]Level{
		{Price: 11, Size: d("2")},
		{Price: 10, Size: d("1")},
	}, SideSell, 0)
	bids := Ladder([]Level{{Price: 9, Size: d("3")}}, SideBuy, 0)

	spread, ok := SpreadOf(bids, asks)
	require.True(t, ok)
	assert.Equal(t, 1.0, spread)

	require.Len(t, asks, 2)
	assert.Equal(t, 10.0, asks[0].Price)
	assert.True(t, asks[0].Cumulative.Equal(d("1")))
	assert.True(t, asks[1].Cumulative.Equal(d("3")))

	require.Len(t, bids, 1)
	assert.True(t, bids[0].Cumulative.Equal(d("3")))
}

func TestLadderTruncatesAfterSort(t *testing.T) {
	rows := []Level{
		{Price: 5, Size: d("1")},
		{Price: 1, Size: d("1")},
		{Price: 4, Size: d("1")},
		{Price: 2, Size: d("1")},
		{Price: 3, Size: d("1")},
	}

	asks := Ladder(rows, SideSell, 2)
	require.Len(t, asks, 2)
	assert.Equal(t, 1.0, asks[0].Price)
	assert.Equal(t, 2.0, asks[1].Price)

	bids := Ladder(rows, SideBuy, 2)
	require.Len(t, bids, 2)
	assert.Equal(t, 5.0, bids[0].Price)
	assert.Equal(t, 4.0, bids[1].Price)

	// input untouched
	assert.Equal(t, 5.0, rows[0].Price)
}

func TestLadderStableOnEqualPrice(t *testing.T) {
	rows := []Level{
		{Tick: 1, Price: 7, Size: d("1")},
		{Tick: 2, Price: 7, Size: d("2")},
		{Tick: 3, Price: 7, Size: d("3")},
	}
	for _, side := range []Side{SideBuy, SideSell} {
		out := Ladder(rows, side, 0)
		require.Len(t, out, 3)
		assert.Equal(t, []Tick{1, 2, 3}, []Tick{out[0].Tick, out[1].Tick, out[2].Tick})
	}
}

func TestAggregateCumulative(t *testing.T) {
	c := NewCodec(DefaultTickBase)
	events := []TickEvent{
		{ID: "a", Tick: 120, Side: SideSell, Size: d("0.5")},
		{ID: "b", Tick: 101, Side: SideSell, Size: d("1.25")},
		{ID: "c", Tick: 133, Side: SideSell, Size: d("2")},
		{ID: "d", Tick: 110, Side: SideSell, Size: d("0.000001")},
	}

	levels := Aggregate(events, SideSell, c, 0)
	require.Len(t, levels, 4)

	sum := decimal.Zero
	for i, lvl := range levels {
		sum = sum.Add(lvl.Size)
		assert.True(t, lvl.Cumulative.Equal(sum))
		if i > 0 {
			assert.True(t, lvl.Cumulative.GreaterThanOrEqual(levels[i-1].Cumulative))
			assert.Greater(t, lvl.Price, levels[i-1].Price)
		}
	}
	assert.True(t, Total(levels).Equal(d("3.750001")))
	assert.Equal(t, Tick(101), levels[0].Tick)
}

func TestAggregateEmpty(t *testing.T) {
	levels := Aggregate(nil, SideBuy, NewCodec(DefaultTickBase), 7)
	assert.NotNil(t, levels)
	assert.Empty(t, levels)
	assert.True(t, Total(levels).IsZero())
}

func TestSpreadUnavailable(t *testing.T) {
	one := []Level{{Price: 10, Size: d("1")}}

	tests := []struct {
		name       string
		bids, asks []Level
	}{
		{"no bids", nil, one},
		{"no asks", one, nil},
		{"both empty", nil, nil},
		{"crossed", []Level{{Price: 11}}, []Level{{Price: 10}}},
		{"infinite ask", one, []Level{{Price: math.Inf(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spread, ok := SpreadOf(tt.bids, tt.asks)
			assert.False(t, ok)
			assert.Zero(t, spread)
		})
	}
}

func TestFilterSide(t *testing.T) {
	events := []TickEvent{
		{ID: "1", Tick: 100, Side: SideBuy, Size: d("1")},
		{ID: "2", Tick: 105, Side: SideBuy, Size: d("2")},
		{ID: "3", Tick: 100, Side: SideSell, Size: d("4")},
	}

	got := FilterSide(events, SideBuy, []Tick{100})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Empty(t, FilterSide(events, SideBuy, nil))
	assert.Empty(t, FilterSide(events, SideBuy, []Tick{}))
	// whitelisted tick with no events contributes nothing
	assert.Empty(t, FilterSide(events, SideBuy, []Tick{999}))
}

func TestFilterSideSubset(t *testing.T) {
	var events []TickEvent
	for i := 0; i < 200; i++ {
		events = append(events, TickEvent{
			ID:   string(rune('a' + i%26)),
			Tick: Tick(i % 40),
			Side: SideOf(i%3 == 0),
			Size: decimal.NewFromInt(int64(i)),
		})
	}
	whitelist := []Tick{0, 3, 9, 27, 39}
	allowed := map[Tick]bool{}
	for _, w := range whitelist {
		allowed[w] = true
	}

	for _, side := range []Side{SideBuy, SideSell} {
		for _, ev := range FilterSide(events, side, whitelist) {
			assert.True(t, allowed[ev.Tick])
			assert.Equal(t, side, ev.Side)
			assert.Contains(t, events, ev)
		}
	}
}

func TestMergeWhitelist(t *testing.T) {
	c := NewCodec(DefaultTickBase)
	at := time.Unix(1700000000, 0)
	events := []TickEvent{
		{ID: "x", Tick: 100, Side: SideBuy, Size: d("1.5")},
		{ID: "y", Tick: 105, Side: SideBuy, Size: d("3")},
		{ID: "z", Tick: 110, Side: SideSell, Size: d("2")},
	}

	book := Merge(events, &BestTicks{Bids: []Tick{100}, Asks: []Tick{110}, CurrentTick: 104}, c, 7, at)

	require.Len(t, book.Bids, 1)
	assert.Equal(t, Tick(100), book.Bids[0].Tick)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, Tick(110), book.Asks[0].Tick)
	assert.True(t, book.SpreadOK)
	assert.InDelta(t, c.PriceFromTick(110)-c.PriceFromTick(100), book.Spread, 1e-12)
	assert.Equal(t, Tick(104), book.CurrentTick)
	assert.True(t, book.HasCurrentTick)
	assert.Equal(t, at, book.RefreshedAt)
}

func TestMergeEmptyWhitelist(t *testing.T) {
	c := NewCodec(DefaultTickBase)
	events := []TickEvent{{ID: "x", Tick: 100, Side: SideBuy, Size: d("1")}}

	notLoaded := Merge(events, nil, c, 7, time.Time{})
	assert.Empty(t, notLoaded.Bids)
	assert.Empty(t, notLoaded.Asks)
	assert.False(t, notLoaded.SpreadOK)
	assert.False(t, notLoaded.HasCurrentTick)

	empty := Merge(events, &BestTicks{Asks: []Tick{100}}, c, 7, time.Time{})
	assert.Empty(t, empty.Bids)
	assert.Empty(t, empty.Asks)
	assert.False(t, empty.SpreadOK)
}

func TestOrderEvent(t *testing.T) {
	ev := OrderEvent{Volume: d("5"), Remaining: d("1.5"), IsMarket: true}
	assert.True(t, ev.Filled().Equal(d("3.5")))
	assert.Equal(t, OrderKindMarket, ev.Kind())
	assert.Equal(t, "MARKET", ev.Kind().String())
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, "BUY", SideOf(true).String())
}
