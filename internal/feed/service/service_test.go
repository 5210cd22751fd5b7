package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zappabad/liquidbook/internal/candle"
	"github.com/zappabad/liquidbook/internal/feed/mock"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

func ev(id string, tick core.Tick, side core.Side, size string) core.TickEvent {
	return core.TickEvent{ID: id, Tick: tick, Side: side, Size: decimal.RequireFromString(size)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CandleInterval = 0
	cfg.EventBuffer = 64
	return cfg
}

func next(t *testing.T, s *Service) Update {
	t.Helper()
	select {
	case u, ok := <-s.Events():
		require.True(t, ok, "events channel closed")
		return u
	case <-time.After(time.Second):
		t.Fatal("no update")
	}
	return Update{}
}

func TestBookNeedsBothSources(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	best := mock.NewMockBestTickSource(ctrl)

	ticks.EXPECT().Ticks(gomock.Any()).Return([]core.TickEvent{
		ev("a", 100, core.SideBuy, "1"),
		ev("b", 105, core.SideBuy, "2"),
		ev("c", 110, core.SideSell, "3"),
	}, nil)
	best.EXPECT().BestTicks(gomock.Any()).Return(core.BestTicks{
		Bids: []core.Tick{100}, Asks: []core.Tick{110}, CurrentTick: 104,
	}, nil)

	s := NewService(testConfig(), Sources{Ticks: ticks, Best: best}, nil)
	defer s.Close()
	ctx := context.Background()

	require.True(t, s.PollTicks(ctx))
	u := next(t, s)
	assert.Equal(t, UpdateBook, u.Kind)
	assert.Empty(t, u.Book.Bids, "no whitelist yet, no book")

	require.True(t, s.PollBestTicks(ctx))
	u = next(t, s)
	require.Len(t, u.Book.Bids, 1)
	assert.Equal(t, core.Tick(100), u.Book.Bids[0].Tick)
	require.Len(t, u.Book.Asks, 1)
	assert.True(t, u.Book.SpreadOK)
	assert.Equal(t, core.Tick(104), u.Book.CurrentTick)

	st := s.State()
	assert.True(t, st.BestLoaded)
	assert.Equal(t, 3, st.TickEvents)
	assert.False(t, st.Stale())
}

func TestFailedPollKeepsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	best := mock.NewMockBestTickSource(ctrl)

	gomock.InOrder(
		ticks.EXPECT().Ticks(gomock.Any()).Return([]core.TickEvent{ev("a", 100, core.SideBuy, "1.5")}, nil),
		ticks.EXPECT().Ticks(gomock.Any()).Return(nil, errors.New("indexer down")),
		ticks.EXPECT().Ticks(gomock.Any()).Return([]core.TickEvent{ev("a", 100, core.SideBuy, "2")}, nil),
	)
	best.EXPECT().BestTicks(gomock.Any()).Return(core.BestTicks{Bids: []core.Tick{100}}, nil)

	s := NewService(testConfig(), Sources{Ticks: ticks, Best: best}, nil)
	defer s.Close()
	ctx := context.Background()

	s.PollBestTicks(ctx)
	s.PollTicks(ctx)
	first := s.State()
	require.Len(t, first.Book.Bids, 1)

	s.PollTicks(ctx)
	second := s.State()
	assert.Equal(t, first.Book, second.Book, "failed poll leaves the book untouched")

	status, ok := second.Status(SourceTicks)
	require.True(t, ok)
	assert.True(t, status.Stale)
	assert.Equal(t, "indexer down", status.LastError)
	assert.Equal(t, int64(1), status.Failures)
	assert.True(t, second.Stale())

	s.PollTicks(ctx)
	third := s.State()
	status, _ = third.Status(SourceTicks)
	assert.False(t, status.Stale)
	assert.True(t, third.Book.Bids[0].Size.Equal(decimal.NewFromInt(2)))
}

func TestCandlesResetThenUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	prices := mock.NewMockPriceSource(ctrl)

	history := []core.CurrentTickEvent{
		{ID: "1", Tick: 0, Timestamp: 10},
		{ID: "2", Tick: 10, Timestamp: 20},
		{ID: "3", Tick: 5, Timestamp: 30},
	}
	gomock.InOrder(
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(history, nil),
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(append(history,
			core.CurrentTickEvent{ID: "4", Tick: 20, Timestamp: 40},
		), nil),
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(append(history,
			core.CurrentTickEvent{ID: "4", Tick: 20, Timestamp: 40},
		), nil),
	)

	s := NewService(testConfig(), Sources{Prices: prices}, nil)
	defer s.Close()
	ctx := context.Background()
	codec := s.Codec()

	s.PollPrices(ctx)
	u := next(t, s)
	require.Equal(t, UpdateCandlesReset, u.Kind)
	require.Len(t, u.Candles, 3)
	assert.Equal(t, u.Candles[0].Close, u.Candles[1].Open)

	s.PollPrices(ctx)
	u = next(t, s)
	require.Equal(t, UpdateCandle, u.Kind)
	assert.Equal(t, int64(40), u.Candle.Time)
	assert.InDelta(t, codec.PriceFromTick(5), u.Candle.Open, 1e-12)
	assert.InDelta(t, codec.PriceFromTick(20), u.Candle.Close, 1e-12)

	s.PollPrices(ctx)
	select {
	case u := <-s.Events():
		t.Fatalf("unexpected update %v", u.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, s.State().Candles, 4)
}

func TestSetDepthRecomputes(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	best := mock.NewMockBestTickSource(ctrl)

	var events []core.TickEvent
	var whitelist []core.Tick
	for i := 0; i < 10; i++ {
		tick := core.Tick(100 - i)
		events = append(events, ev(tick.String(), tick, core.SideBuy, "1"))
		whitelist = append(whitelist, tick)
	}
	ticks.EXPECT().Ticks(gomock.Any()).Return(events, nil)
	best.EXPECT().BestTicks(gomock.Any()).Return(core.BestTicks{Bids: whitelist}, nil)

	s := NewService(testConfig(), Sources{Ticks: ticks, Best: best}, nil)
	defer s.Close()
	ctx := context.Background()
	s.PollTicks(ctx)
	s.PollBestTicks(ctx)
	assert.Len(t, s.Book().Bids, DepthStandard)

	s.SetDepth(DepthDeep)
	assert.Equal(t, DepthDeep, s.Depth())
	assert.Len(t, s.Book().Bids, 10)

	s.SetDepth(0)
	assert.Len(t, s.Book().Bids, 1)
}

func TestOverlappingPollSuppressed(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	ticks.EXPECT().Ticks(gomock.Any()).DoAndReturn(func(context.Context) ([]core.TickEvent, error) {
		close(entered)
		<-release
		return nil, nil
	}).Times(1)

	s := NewService(testConfig(), Sources{Ticks: ticks}, nil)
	defer s.Close()

	done := make(chan bool)
	go func() { done <- s.PollTicks(context.Background()) }()
	<-entered
	assert.False(t, s.PollTicks(context.Background()))
	close(release)
	assert.True(t, <-done)
}

func TestCloseDiscardsLateResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	best := mock.NewMockBestTickSource(ctrl)

	entered := make(chan struct{})
	release := make(chan struct{})
	best.EXPECT().BestTicks(gomock.Any()).Return(core.BestTicks{Bids: []core.Tick{1}}, nil)
	ticks.EXPECT().Ticks(gomock.Any()).DoAndReturn(func(context.Context) ([]core.TickEvent, error) {
		close(entered)
		<-release
		return []core.TickEvent{ev("late", 1, core.SideBuy, "1")}, nil
	})

	s := NewService(testConfig(), Sources{Ticks: ticks, Best: best}, nil)
	s.PollBestTicks(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.PollTicks(context.Background())
	}()
	<-entered
	s.Close()
	close(release)
	<-done

	assert.Empty(t, s.Book().Bids)
	assert.False(t, s.PollBestTicks(context.Background()))

	// drain what was published before Close; the channel must end closed
	for range s.Events() {
	}
	s.SetDepth(3)
	assert.Equal(t, DepthStandard, s.Depth())
}

func TestHistoryNeedsUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	history := mock.NewMockHistorySource(ctrl)

	s := NewService(testConfig(), Sources{History: history}, nil)
	assert.False(t, s.PollHistory(context.Background()))
	s.Close()

	history.EXPECT().Orders(gomock.Any(), "0xabc").Return([]core.OrderEvent{{ID: "o1", User: "0xabc"}}, nil)
	s = NewService(testConfig(), Sources{History: history, User: "0xabc"}, nil)
	defer s.Close()
	require.True(t, s.PollHistory(context.Background()))

	u := next(t, s)
	assert.Equal(t, UpdateHistory, u.Kind)
	require.Len(t, u.Orders, 1)
	assert.Len(t, s.State().Orders, 1)
}

func TestFullChannelDropsUpdates(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	ticks.EXPECT().Ticks(gomock.Any()).Return(nil, nil).Times(3)

	cfg := testConfig()
	cfg.EventBuffer = 1
	s := NewService(cfg, Sources{Ticks: ticks}, nil)
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.PollTicks(context.Background())
	}
	assert.Equal(t, int64(2), s.DroppedEvents())
}

func TestStartPollsOnSchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	ticks.EXPECT().Ticks(gomock.Any()).Return([]core.TickEvent{ev("a", 1, core.SideBuy, "1")}, nil).MinTimes(1)

	s := NewService(testConfig(), Sources{Ticks: ticks}, nil)
	s.Start()
	s.Start()

	require.Eventually(t, func() bool { return s.State().TickEvents == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Close()
}

func TestDroppedCandleResendsSeries(t *testing.T) {
	ctrl := gomock.NewController(t)
	prices := mock.NewMockPriceSource(ctrl)

	first := []core.CurrentTickEvent{{ID: "1", Tick: 0, Timestamp: 10}}
	second := append(first, core.CurrentTickEvent{ID: "2", Tick: 50, Timestamp: 20})
	third := append(second, core.CurrentTickEvent{ID: "3", Tick: 80, Timestamp: 30})
	gomock.InOrder(
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(first, nil),
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(second, nil),
		prices.EXPECT().CurrentTicks(gomock.Any()).Return(third, nil),
	)

	cfg := testConfig()
	cfg.EventBuffer = 1
	s := NewService(cfg, Sources{Prices: prices}, nil)
	defer s.Close()
	ctx := context.Background()

	var sink []candle.Candle
	apply := func(u Update) {
		switch u.Kind {
		case UpdateCandlesReset:
			sink = append([]candle.Candle(nil), u.Candles...)
		case UpdateCandle:
			sink = candle.Merge(sink, u.Candle)
		}
	}

	s.PollPrices(ctx)
	s.PollPrices(ctx) // channel still holds the reset, the candle at 20 is lost
	assert.Equal(t, int64(1), s.DroppedEvents())
	apply(next(t, s))
	require.Len(t, sink, 1)

	s.PollPrices(ctx)
	u := next(t, s)
	assert.Equal(t, UpdateCandlesReset, u.Kind)
	apply(u)

	assert.Equal(t, s.State().Candles, sink)
	require.Len(t, sink, 3)
	assert.Equal(t, sink[1].Close, sink[2].Open)
}

func TestBookUpdatesArriveInApplyOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	ticks := mock.NewMockTickSource(ctrl)
	best := mock.NewMockBestTickSource(ctrl)

	var events []core.TickEvent
	var whitelist []core.Tick
	for i := 0; i < 20; i++ {
		tick := core.Tick(100 - i)
		events = append(events, ev(tick.String(), tick, core.SideBuy, "1"))
		whitelist = append(whitelist, tick)
	}
	ticks.EXPECT().Ticks(gomock.Any()).Return(events, nil)
	best.EXPECT().BestTicks(gomock.Any()).Return(core.BestTicks{Bids: whitelist}, nil)

	cfg := testConfig()
	cfg.DropEvents = false
	s := NewService(cfg, Sources{Ticks: ticks, Best: best}, nil)
	defer s.Close()
	ctx := context.Background()
	s.PollTicks(ctx)
	s.PollBestTicks(ctx)

	var wg sync.WaitGroup
	for n := 1; n <= 20; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetDepth(n)
		}()
	}
	wg.Wait()

	var last Update
	for i := 0; i < 22; i++ {
		last = next(t, s)
	}
	assert.Len(t, last.Book.Bids, s.Depth(), "last update carries the final book")
	assert.Equal(t, s.Book(), last.Book)
}
