package tui

import (
	"context"
	"errors"
	"math/big"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/liquidbook/internal/candle"
	"github.com/zappabad/liquidbook/internal/chain"
	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/journal"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/tui/panels"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeFeed struct {
	state   feedservice.State
	events  chan feedservice.Update
	depths  []int
	dropped int64
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan feedservice.Update, 4)}
}

func (f *fakeFeed) State() feedservice.State          { return f.state }
func (f *fakeFeed) Events() <-chan feedservice.Update { return f.events }
func (f *fakeFeed) SetDepth(n int)                    { f.depths = append(f.depths, n) }
func (f *fakeFeed) Codec() core.Codec                 { return core.NewCodec(core.DefaultTickBase) }
func (f *fakeFeed) DroppedEvents() int64              { return f.dropped }

type fakeTrader struct {
	account common.Address
	res     chain.PlaceOrderResult
	err     error
	reqs    []chain.OrderRequest
}

func (f *fakeTrader) Account() common.Address { return f.account }

func (f *fakeTrader) PlaceOrder(_ context.Context, req chain.OrderRequest) (chain.PlaceOrderResult, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

type memJournal struct {
	journal.Noop
	entries []journal.Entry
}

func (j *memJournal) Record(_ context.Context, e journal.Entry) (int64, error) {
	j.entries = append(j.entries, e)
	return int64(len(j.entries)), nil
}

func newTestModel(feed *fakeFeed, trader Trader, rec journal.Recorder) *Model {
	opts := Options{
		Feed:         feed,
		Journal:      rec,
		MarketName:   "WETH/USDT",
		SizeDecimals: 6,
		Precisions:   []float64{0.01, 0.1, 1},
		Precision:    0.01,
		Depth:        7,
		DeepDepth:    13,
	}
	if trader != nil {
		opts.Trader = trader
	}
	return NewModel(opts)
}

func TestOrderRequest(t *testing.T) {
	codec := core.NewCodec(core.DefaultTickBase)
	user := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	wantTick, err := codec.TickFromPrice(2000)
	require.NoError(t, err)

	tests := []struct {
		name     string
		order    panels.OrderSubmitMsg
		wantTick core.Tick
		wantVol  string
		wantErr  bool
	}{
		{
			name:     "limit snaps to tick",
			order:    panels.OrderSubmitMsg{Side: core.SideBuy, Kind: core.OrderKindLimit, Price: 2000, Volume: d("1.5")},
			wantTick: wantTick,
			wantVol:  "1500000",
		},
		{
			name:    "market uses tick zero",
			order:   panels.OrderSubmitMsg{Side: core.SideSell, Kind: core.OrderKindMarket, Price: 2000, Volume: d("0.000001")},
			wantVol: "1",
		},
		{
			name:    "too many decimals",
			order:   panels.OrderSubmitMsg{Kind: core.OrderKindMarket, Volume: d("0.0000001")},
			wantErr: true,
		},
		{
			name:    "bad price",
			order:   panels.OrderSubmitMsg{Kind: core.OrderKindLimit, Price: 0, Volume: d("1")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := orderRequest(tt.order, codec, 6, user)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, chain.ErrInvalidOrder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTick, req.Tick)
			assert.Equal(t, tt.wantVol, req.Volume.String())
			assert.Equal(t, user, req.User)
			assert.Equal(t, tt.order.Side, req.Side)
			assert.Equal(t, tt.order.Kind, req.Kind)
		})
	}
}

func TestSubmitOrderRecordsJournal(t *testing.T) {
	trader := &fakeTrader{
		account: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		res: chain.PlaceOrderResult{
			TxHash:          common.HexToHash("0x01"),
			OrderIndex:      big.NewInt(7),
			ExecutedTick:    12,
			RemainingVolume: big.NewInt(0),
		},
	}
	rec := &memJournal{}
	m := newTestModel(newFakeFeed(), trader, rec)

	order := panels.OrderSubmitMsg{Side: core.SideBuy, Kind: core.OrderKindLimit, Price: 2000, Volume: d("1")}
	msg := m.submitOrder(order)()

	res, ok := msg.(orderResultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	assert.Contains(t, res.message, "#7")

	require.Len(t, trader.reqs, 1)
	assert.Equal(t, "1000000", trader.reqs[0].Volume.String())

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, journal.StatusPlaced, e.Status)
	assert.Equal(t, "7", e.OrderIndex)
	assert.Equal(t, trader.reqs[0].Tick, e.Tick)
	assert.Equal(t, trader.account.Hex(), e.Account)
}

func TestSubmitOrderRejected(t *testing.T) {
	trader := &fakeTrader{err: chain.ErrOrderRejected}
	rec := &memJournal{}
	m := newTestModel(newFakeFeed(), trader, rec)

	msg := m.submitOrder(panels.OrderSubmitMsg{Kind: core.OrderKindMarket, Volume: d("1")})()

	res := msg.(orderResultMsg)
	assert.True(t, errors.Is(res.err, chain.ErrOrderRejected))
	assert.Equal(t, chain.Describe(chain.ErrOrderRejected), res.message)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, journal.StatusRejected, rec.entries[0].Status)
}

func TestSubmitOrderInvalidNeverReachesEngine(t *testing.T) {
	trader := &fakeTrader{}
	rec := &memJournal{}
	m := newTestModel(newFakeFeed(), trader, rec)

	msg := m.submitOrder(panels.OrderSubmitMsg{Kind: core.OrderKindMarket, Volume: d("0.0000001")})()

	res := msg.(orderResultMsg)
	assert.ErrorIs(t, res.err, chain.ErrInvalidOrder)
	assert.Empty(t, trader.reqs)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, journal.StatusFailed, rec.entries[0].Status)
}

func TestSubmitOrderWithoutTrader(t *testing.T) {
	m := newTestModel(newFakeFeed(), nil, nil)
	res := m.submitOrder(panels.OrderSubmitMsg{Kind: core.OrderKindMarket, Volume: d("1")})().(orderResultMsg)
	assert.Equal(t, "Trading is disabled", res.message)
}

func TestModelAppliesFeedUpdates(t *testing.T) {
	feed := newFakeFeed()
	m := newTestModel(feed, nil, nil)

	book := core.Book{Bids: core.Ladder([]core.Level{{Tick: 1, Price: 10, Size: d("2")}}, core.SideBuy, 0)}
	_, cmd := m.Update(feedMsg{update: feedservice.Update{Kind: feedservice.UpdateBook, Book: book}})
	assert.NotNil(t, cmd, "keeps listening")

	m.Update(feedMsg{update: feedservice.Update{
		Kind:    feedservice.UpdateCandlesReset,
		Candles: []candle.Candle{{Time: 0, Open: 1, High: 1, Low: 1, Close: 1}},
	}})
	m.Update(feedMsg{update: feedservice.Update{
		Kind:   feedservice.UpdateCandle,
		Candle: candle.Candle{Time: 60, Open: 1, High: 2, Low: 1, Close: 2},
	}})
	assert.Len(t, m.chartPanel.Candles(), 2)

	feed.state.Sources = []feedservice.SourceStatus{{Name: feedservice.SourcePrices, Stale: true}}
	m.Update(feedMsg{update: feedservice.Update{Kind: feedservice.UpdateStatus}})
	assert.Equal(t, []string{feedservice.SourcePrices}, m.stale)

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 50})
	out := m.View()
	assert.Contains(t, out, "stale: prices")
	assert.Contains(t, out, "10.00")
}

func TestModelDepthToggleReachesFeed(t *testing.T) {
	feed := newFakeFeed()
	m := newTestModel(feed, nil, nil)
	m.focusedPanel = FocusOrderbook
	m.orderbookPanel.SetFocus(true)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	require.NotNil(t, cmd)

	// the panel answers with a DepthChangedMsg, which the model forwards
	m.Update(panels.DepthChangedMsg{Depth: 13})
	assert.Equal(t, []int{13}, feed.depths)
}

func TestModelFocusCycles(t *testing.T) {
	m := newTestModel(newFakeFeed(), nil, nil)
	require.Equal(t, FocusOrderbook, m.focusedPanel)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FocusChart, m.focusedPanel)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, FocusMarket, m.focusedPanel)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, FocusOrderInput, m.focusedPanel)
}

func TestModelLoadsExistingState(t *testing.T) {
	feed := newFakeFeed()
	feed.state = feedservice.State{
		Candles: []candle.Candle{{Time: 0, Open: 1, High: 1, Low: 1, Close: 1}},
		Orders:  []core.OrderEvent{{ID: "x", Volume: d("1")}},
	}
	m := newTestModel(feed, nil, nil)
	assert.Len(t, m.chartPanel.Candles(), 1)
}

func TestListenFeedReportsClose(t *testing.T) {
	feed := newFakeFeed()
	m := newTestModel(feed, nil, nil)
	close(feed.events)
	assert.Equal(t, closedMsg{source: "feed"}, m.listenFeed()())
}
