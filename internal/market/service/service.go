// Package service polls public market data for the market widget and the
// recent trades list.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/market"
	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/okx"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
	"github.com/zappabad/liquidbook/internal/poll"
)

// DataSource is the public market data API.
//
//go:generate mockgen -source=service.go -destination=../mock/source_mock.go -package=mock
type DataSource interface {
	Ticker(ctx context.Context) (okx.Ticker, error)
	MarkPrice(ctx context.Context) (float64, error)
	Trades(ctx context.Context, limit int) ([]core.Trade, error)
}

// MarketService polls a DataSource and keeps a MarketView current.
type MarketService struct {
	cfg   Config
	log   logger.Interface
	mview *marketview.MarketView

	ticker *poll.Poller[okx.Ticker]
	mark   *poll.Poller[float64]
	trades *poll.Poller[[]core.Trade]
	sched  *poll.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	sendMu         sync.RWMutex
	sendDone       bool
	externalEvents chan marketview.MarketEvent
	droppedEvents  atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
}

// NewMarketService creates a MarketService for inst. Nothing is fetched
// until Start or a Poll method is called.
func NewMarketService(inst market.Instrument, src DataSource, cfg Config, log logger.Interface) *MarketService {
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = d.TradeLimit
	}
	if cfg.TapeSize <= 0 {
		cfg.TapeSize = d.TapeSize
	}
	if cfg.MarketEventBuffer <= 0 {
		cfg.MarketEventBuffer = d.MarketEventBuffer
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.WithFields(logger.NewField("component", "market"), logger.NewField("instrument", inst.ID))
	ctx, cancel := context.WithCancel(context.Background())

	s := &MarketService{
		cfg:            cfg,
		log:            log,
		mview:          marketview.NewMarketView(inst, cfg.TapeSize),
		sched:          poll.NewScheduler(log),
		ctx:            ctx,
		cancel:         cancel,
		externalEvents: make(chan marketview.MarketEvent, cfg.MarketEventBuffer),
	}

	s.ticker = poll.New(poll.Config[okx.Ticker]{
		Name:    marketview.SourceTicker,
		Fetch:   src.Ticker,
		Timeout: cfg.Timeout,
		OnSettle: func(_ context.Context, t okx.Ticker) {
			s.emit(marketview.MarketEvent{Kind: marketview.EventTicker, Stats: s.mview.ApplyTicker(t)})
		},
		OnFail: s.failer(marketview.SourceTicker),
		Logger: log,
	})
	s.mark = poll.New(poll.Config[float64]{
		Name:    marketview.SourceMark,
		Fetch:   src.MarkPrice,
		Timeout: cfg.Timeout,
		OnSettle: func(_ context.Context, px float64) {
			s.emit(marketview.MarketEvent{Kind: marketview.EventMarkPrice, Stats: s.mview.ApplyMark(px)})
		},
		OnFail: s.failer(marketview.SourceMark),
		Logger: log,
	})
	limit := cfg.TradeLimit
	s.trades = poll.New(poll.Config[[]core.Trade]{
		Name: marketview.SourceTrades,
		Fetch: func(ctx context.Context) ([]core.Trade, error) {
			return src.Trades(ctx, limit)
		},
		Timeout: cfg.Timeout,
		OnSettle: func(_ context.Context, trades []core.Trade) {
			n, stats := s.mview.ApplyTrades(trades)
			if n > 0 {
				s.emit(marketview.MarketEvent{Kind: marketview.EventTrades, Stats: stats, NewTrades: n})
			}
		},
		OnFail: s.failer(marketview.SourceTrades),
		Logger: log,
	})
	return s
}

func (s *MarketService) failer(source string) func(context.Context, error) {
	return func(_ context.Context, err error) {
		if s.ctx.Err() != nil {
			return
		}
		s.emit(marketview.MarketEvent{Kind: marketview.EventStatus, Stats: s.mview.Fail(source, err)})
	}
}

// Start polls every source once in the background and then on Interval.
func (s *MarketService) Start() {
	s.startOnce.Do(func() {
		for _, job := range []struct {
			name string
			run  func()
		}{
			{marketview.SourceTicker, func() { s.ticker.Poll(s.ctx) }},
			{marketview.SourceMark, func() { s.mark.Poll(s.ctx) }},
			{marketview.SourceTrades, func() { s.trades.Poll(s.ctx) }},
		} {
			s.sched.Every(s.cfg.Interval, job.name, job.run)
			go job.run()
		}
		s.sched.Start()
	})
}

// PollTicker fetches the 24h ticker now.
func (s *MarketService) PollTicker(ctx context.Context) bool { return s.ticker.Poll(ctx) }

// PollMarkPrice fetches the mark price now.
func (s *MarketService) PollMarkPrice(ctx context.Context) bool { return s.mark.Poll(ctx) }

// PollTrades fetches recent trades now.
func (s *MarketService) PollTrades(ctx context.Context) bool { return s.trades.Poll(ctx) }

// Stats returns the market widget figures.
func (s *MarketService) Stats() marketview.Stats {
	return s.mview.Stats()
}

// RecentTrades returns the last n trades, newest first, with running totals.
func (s *MarketService) RecentTrades(n int) []orderbookview.TradeRow {
	return s.mview.RecentTrades(n)
}

func (s *MarketService) emit(ev marketview.MarketEvent) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendDone {
		return
	}
	if s.cfg.DropMarketEvents {
		select {
		case s.externalEvents <- ev:
		default:
			s.droppedEvents.Add(1)
		}
		return
	}
	select {
	case s.externalEvents <- ev:
	case <-s.ctx.Done():
	}
}

// Events returns the market events channel. It is closed by Close.
func (s *MarketService) Events() <-chan marketview.MarketEvent {
	return s.externalEvents
}

// DroppedEvents returns the count of dropped market events.
func (s *MarketService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Close stops polling and closes the events channel.
func (s *MarketService) Close() {
	s.closeOnce.Do(func() {
		s.ticker.Close()
		s.mark.Close()
		s.trades.Close()
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sched.Stop(ctx); err != nil {
			s.log.Warn("scheduler did not stop in time", logger.NewField("error", err.Error()))
		}

		s.sendMu.Lock()
		s.sendDone = true
		close(s.externalEvents)
		s.sendMu.Unlock()
	})
}
