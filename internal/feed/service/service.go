// Package service keeps the order book and the candle series current by
// polling the feed sources on fixed cadences.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/liquidbook/internal/candle"
	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/internal/poll"
)

// Source names, used in logs and in SourceStatus.
const (
	SourceTicks   = "ticks"
	SourceBest    = "best_ticks"
	SourcePrices  = "prices"
	SourceHistory = "history"
)

// UpdateKind says what changed.
type UpdateKind int

const (
	UpdateBook UpdateKind = iota
	UpdateCandlesReset
	UpdateCandle
	UpdateStatus
	UpdateHistory
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateBook:
		return "book"
	case UpdateCandlesReset:
		return "candles"
	case UpdateCandle:
		return "candle"
	case UpdateStatus:
		return "status"
	case UpdateHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Update is published on the events channel after every state change.
// Only the fields matching Kind are set.
type Update struct {
	Kind    UpdateKind
	Book    core.Book
	Candles []candle.Candle
	Candle  candle.Candle
	Orders  []core.OrderEvent
	Status  SourceStatus
}

// SourceStatus is the health of one source. A stale source failed its last
// poll; the service keeps serving its last good snapshot.
type SourceStatus struct {
	Name        string
	State       poll.State
	Stale       bool
	LastError   string
	LastSuccess time.Time
	Failures    int64
}

// State is a consistent copy of everything the service derived.
type State struct {
	Book       core.Book
	Candles    []candle.Candle
	Orders     []core.OrderEvent
	Depth      int
	BestLoaded bool
	TickEvents int
	Sources    []SourceStatus
}

// Status returns the status of the named source.
func (s State) Status(name string) (SourceStatus, bool) {
	for _, st := range s.Sources {
		if st.Name == name {
			return st, true
		}
	}
	return SourceStatus{}, false
}

// Stale reports whether any source is serving an old snapshot.
func (s State) Stale() bool {
	for _, st := range s.Sources {
		if st.Stale {
			return true
		}
	}
	return false
}

type sourceState struct {
	stale       bool
	lastError   string
	lastSuccess time.Time
}

// Service owns the latest snapshot of every source and the values derived
// from them. Snapshots are replaced and the book recomputed in a single
// critical section, so readers never see a book built from a half-applied
// update.
type Service struct {
	cfg     Config
	sources Sources
	log     logger.Interface

	pubMu         sync.Mutex
	mu            sync.RWMutex
	closed        bool
	events        []core.TickEvent
	best          *core.BestTicks
	book          core.Book
	series        *candle.Series
	candlesLoaded bool
	resync        bool
	cursorTime    int64
	cursorIDs     map[string]struct{}
	orders        []core.OrderEvent
	depth         int
	status        map[string]*sourceState

	ticks   *poll.Poller[[]core.TickEvent]
	bestP   *poll.Poller[core.BestTicks]
	prices  *poll.Poller[[]core.CurrentTickEvent]
	history *poll.Poller[[]core.OrderEvent]
	sched   *poll.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	sendMu    sync.RWMutex
	sendDone  bool
	updates   chan Update
	dropped   atomic.Int64
	startOnce sync.Once
	closeOnce sync.Once
}

// NewService wires the pollers for src. Nothing is fetched until Start or
// one of the Poll methods is called.
func NewService(cfg Config, src Sources, log logger.Interface) *Service {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		cfg:       cfg,
		sources:   src,
		log:       log.WithFields(logger.NewField("component", "feed")),
		book:      core.Merge(nil, nil, cfg.Codec, cfg.Depth, time.Time{}),
		series:    candle.NewSeries(cfg.CandleInterval, cfg.MaxCandles),
		cursorIDs: make(map[string]struct{}),
		depth:     cfg.Depth,
		status:    make(map[string]*sourceState),
		ctx:       ctx,
		cancel:    cancel,
		updates:   make(chan Update, cfg.EventBuffer),
	}
	s.sched = poll.NewScheduler(s.log)

	if src.Ticks != nil {
		s.status[SourceTicks] = &sourceState{}
		s.ticks = poll.New(poll.Config[[]core.TickEvent]{
			Name:     SourceTicks,
			Fetch:    src.Ticks.Ticks,
			Timeout:  cfg.Timeout,
			OnSettle: s.applyTicks,
			OnFail:   s.failer(SourceTicks),
			Logger:   s.log,
		})
	}
	if src.Best != nil {
		s.status[SourceBest] = &sourceState{}
		s.bestP = poll.New(poll.Config[core.BestTicks]{
			Name:     SourceBest,
			Fetch:    src.Best.BestTicks,
			Timeout:  cfg.Timeout,
			OnSettle: s.applyBest,
			OnFail:   s.failer(SourceBest),
			Logger:   s.log,
		})
	}
	if src.Prices != nil {
		s.status[SourcePrices] = &sourceState{}
		s.prices = poll.New(poll.Config[[]core.CurrentTickEvent]{
			Name:     SourcePrices,
			Fetch:    src.Prices.CurrentTicks,
			Timeout:  cfg.Timeout,
			OnSettle: s.applyPrices,
			OnFail:   s.failer(SourcePrices),
			Logger:   s.log,
		})
	}
	if src.History != nil && src.User != "" {
		s.status[SourceHistory] = &sourceState{}
		user := src.User
		s.history = poll.New(poll.Config[[]core.OrderEvent]{
			Name: SourceHistory,
			Fetch: func(ctx context.Context) ([]core.OrderEvent, error) {
				return src.History.Orders(ctx, user)
			},
			Timeout:  cfg.Timeout,
			OnSettle: s.applyHistory,
			OnFail:   s.failer(SourceHistory),
			Logger:   s.log,
		})
	}
	return s
}

// Start fetches every source once in the background and then polls each on
// its cadence. Calling Start more than once has no effect.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		if s.ticks != nil {
			s.sched.Every(s.cfg.TickInterval, SourceTicks, func() { s.ticks.Poll(s.ctx) })
			go s.ticks.Poll(s.ctx)
		}
		if s.bestP != nil {
			s.sched.Every(s.cfg.BestTickInterval, SourceBest, func() { s.bestP.Poll(s.ctx) })
			go s.bestP.Poll(s.ctx)
		}
		if s.prices != nil {
			s.sched.Every(s.cfg.PriceInterval, SourcePrices, func() { s.prices.Poll(s.ctx) })
			go s.prices.Poll(s.ctx)
		}
		if s.history != nil {
			s.sched.Every(s.cfg.HistoryInterval, SourceHistory, func() { s.history.Poll(s.ctx) })
			go s.history.Poll(s.ctx)
		}
		s.sched.Start()
		s.log.Info("feed started", logger.NewField("jobs", s.sched.Jobs()))
	})
}

// PollTicks fetches the tick events now. It returns false when the source is
// not configured, already in flight or the service is closed.
func (s *Service) PollTicks(ctx context.Context) bool {
	return s.ticks != nil && s.ticks.Poll(ctx)
}

// PollBestTicks fetches the best-tick whitelist now.
func (s *Service) PollBestTicks(ctx context.Context) bool {
	return s.bestP != nil && s.bestP.Poll(ctx)
}

// PollPrices fetches the current-tick history now.
func (s *Service) PollPrices(ctx context.Context) bool {
	return s.prices != nil && s.prices.Poll(ctx)
}

// PollHistory fetches the user's order history now.
func (s *Service) PollHistory(ctx context.Context) bool {
	return s.history != nil && s.history.Poll(ctx)
}

func (s *Service) applyTicks(_ context.Context, events []core.TickEvent) {
	s.publish(func() []Update {
		s.events = events
		s.settled(SourceTicks)
		return []Update{{Kind: UpdateBook, Book: s.recompute()}}
	})
}

func (s *Service) applyBest(_ context.Context, best core.BestTicks) {
	s.publish(func() []Update {
		s.best = &best
		s.settled(SourceBest)
		return []Update{{Kind: UpdateBook, Book: s.recompute()}}
	})
}

func (s *Service) applyPrices(_ context.Context, events []core.CurrentTickEvent) {
	s.publish(func() []Update {
		s.settled(SourcePrices)

		if !s.candlesLoaded {
			obs := make([]candle.Observation, 0, len(events))
			for _, ev := range events {
				obs = append(obs, s.observe(ev))
				s.advance(ev)
			}
			s.series.Reset(candle.Build(obs, s.cfg.UpdatesPerCandle))
			s.candlesLoaded = true
			s.resync = false
			return []Update{{Kind: UpdateCandlesReset, Candles: s.series.Candles()}}
		}

		var out []Update
		for _, ev := range events {
			if !s.isNew(ev) {
				continue
			}
			s.advance(ev)
			if c, ok := s.series.Append(s.observe(ev)); ok {
				out = append(out, Update{Kind: UpdateCandle, Candle: c})
			}
		}
		// A sink that missed a candle gets the whole series again.
		if s.resync {
			s.resync = false
			return []Update{{Kind: UpdateCandlesReset, Candles: s.series.Candles()}}
		}
		return out
	})
}

func (s *Service) applyHistory(_ context.Context, orders []core.OrderEvent) {
	s.publish(func() []Update {
		s.orders = orders
		s.settled(SourceHistory)
		return []Update{{Kind: UpdateHistory, Orders: cloneOrders(orders)}}
	})
}

// publish runs apply under s.mu and sends the updates it returns. pubMu
// keeps the sends in the order the changes were applied.
func (s *Service) publish(apply func() []Update) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	updates := apply()
	s.mu.Unlock()

	for _, u := range updates {
		if s.emit(u) {
			continue
		}
		if u.Kind == UpdateCandle || u.Kind == UpdateCandlesReset {
			s.mu.Lock()
			s.resync = true
			s.mu.Unlock()
		}
	}
}

func (s *Service) failer(name string) func(context.Context, error) {
	return func(_ context.Context, err error) {
		s.publish(func() []Update {
			st := s.status[name]
			st.stale = true
			st.lastError = err.Error()
			return []Update{{Kind: UpdateStatus, Status: s.statusOf(name)}}
		})
	}
}

// caller holds s.mu
func (s *Service) settled(name string) {
	st := s.status[name]
	st.stale = false
	st.lastError = ""
	st.lastSuccess = time.Now()
}

// caller holds s.mu
func (s *Service) recompute() core.Book {
	s.book = core.Merge(s.events, s.best, s.cfg.Codec, s.depth, time.Now())
	return cloneBook(s.book)
}

func (s *Service) observe(ev core.CurrentTickEvent) candle.Observation {
	return candle.Observation{Time: ev.Timestamp, Value: s.cfg.Codec.PriceFromTick(ev.Tick)}
}

// isNew reports whether ev is past the cursor. Events sharing the cursor's
// timestamp are told apart by ID.
func (s *Service) isNew(ev core.CurrentTickEvent) bool {
	if ev.Timestamp != s.cursorTime {
		return ev.Timestamp > s.cursorTime
	}
	_, seen := s.cursorIDs[ev.ID]
	return !seen
}

func (s *Service) advance(ev core.CurrentTickEvent) {
	if ev.Timestamp > s.cursorTime {
		s.cursorTime = ev.Timestamp
		clear(s.cursorIDs)
	}
	if ev.Timestamp == s.cursorTime {
		s.cursorIDs[ev.ID] = struct{}{}
	}
}

// SetDepth changes how many levels are kept per side and rebuilds the book
// from the current snapshots.
func (s *Service) SetDepth(n int) {
	if n < 1 {
		n = 1
	}
	s.publish(func() []Update {
		s.depth = n
		return []Update{{Kind: UpdateBook, Book: s.recompute()}}
	})
}

// Depth returns the current depth.
func (s *Service) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depth
}

// Book returns the current book.
func (s *Service) Book() core.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBook(s.book)
}

// Codec returns the codec the book is priced with.
func (s *Service) Codec() core.Codec { return s.cfg.Codec }

// State returns a copy of the service state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Book:       cloneBook(s.book),
		Candles:    s.series.Candles(),
		Orders:     cloneOrders(s.orders),
		Depth:      s.depth,
		BestLoaded: s.best != nil,
		TickEvents: len(s.events),
	}
	for _, name := range []string{SourceTicks, SourceBest, SourcePrices, SourceHistory} {
		if _, ok := s.status[name]; ok {
			st.Sources = append(st.Sources, s.statusOf(name))
		}
	}
	return st
}

// caller holds s.mu
func (s *Service) statusOf(name string) SourceStatus {
	st := s.status[name]
	out := SourceStatus{
		Name:        name,
		Stale:       st.stale,
		LastError:   st.lastError,
		LastSuccess: st.lastSuccess,
	}
	switch name {
	case SourceTicks:
		out.State, out.Failures = s.ticks.State(), s.ticks.Failures()
	case SourceBest:
		out.State, out.Failures = s.bestP.State(), s.bestP.Failures()
	case SourcePrices:
		out.State, out.Failures = s.prices.State(), s.prices.Failures()
	case SourceHistory:
		out.State, out.Failures = s.history.State(), s.history.Failures()
	}
	return out
}

// emit reports whether u reached the channel.
func (s *Service) emit(u Update) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendDone {
		return false
	}

	if s.cfg.DropEvents {
		select {
		case s.updates <- u:
			return true
		default:
			s.dropped.Add(1)
			return false
		}
	}
	select {
	case s.updates <- u:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Events returns the update channel. It is closed by Close.
func (s *Service) Events() <-chan Update {
	return s.updates
}

// DroppedEvents returns the count of updates dropped on a full channel.
func (s *Service) DroppedEvents() int64 {
	return s.dropped.Load()
}

// Close stops polling. In-flight fetches are cancelled and any result that
// still arrives is discarded.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.ticks != nil {
			s.ticks.Close()
		}
		if s.bestP != nil {
			s.bestP.Close()
		}
		if s.prices != nil {
			s.prices.Close()
		}
		if s.history != nil {
			s.history.Close()
		}
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sched.Stop(ctx); err != nil {
			s.log.Warn("scheduler did not stop in time", logger.NewField("error", err.Error()))
		}

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.sendMu.Lock()
		s.sendDone = true
		close(s.updates)
		s.sendMu.Unlock()
	})
}

func cloneBook(b core.Book) core.Book {
	bids := make([]core.Level, len(b.Bids))
	copy(bids, b.Bids)
	asks := make([]core.Level, len(b.Asks))
	copy(asks, b.Asks)
	b.Bids, b.Asks = bids, asks
	return b
}

func cloneOrders(in []core.OrderEvent) []core.OrderEvent {
	return append([]core.OrderEvent(nil), in...)
}
