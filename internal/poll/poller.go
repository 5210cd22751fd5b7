// Package poll runs fetches on fixed cadences without letting requests for
// the same source overlap.
package poll

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/util"
)

// State is the lifecycle of one source's most recent request.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateSettled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateSettled:
		return "settled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchFunc loads one snapshot of a source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Config configures a Poller.
type Config[T any] struct {
	Name    string
	Fetch   FetchFunc[T]
	Timeout time.Duration
	// OnSettle and OnFail run before the poller leaves StateFetching, so a
	// result is applied before the next request for the source can start.
	OnSettle func(ctx context.Context, v T)
	OnFail   func(ctx context.Context, err error)
	Logger   logger.Interface
}

// Poller drives one source through idle -> fetching -> settled | failed.
type Poller[T any] struct {
	cfg Config[T]
	log logger.Interface

	state      atomic.Int32
	suppressed atomic.Int64
	failures   atomic.Int64
	closed     atomic.Bool
}

// New returns an idle poller.
func New[T any](cfg Config[T]) *Poller[T] {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Poller[T]{
		cfg: cfg,
		log: log.WithFields(logger.NewField("source", cfg.Name)),
	}
}

// Poll runs one fetch. It returns false without fetching when a request for
// this source is already in flight or the poller is closed. Results that
// arrive after Close are discarded.
func (p *Poller[T]) Poll(ctx context.Context) bool {
	if p.closed.Load() {
		return false
	}
	if !p.begin() {
		p.suppressed.Add(1)
		p.log.Debug("poll suppressed, request in flight")
		return false
	}

	ctx = util.WithRequestID(ctx, "")
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := p.cfg.Fetch(ctx)

	if p.closed.Load() {
		p.state.Store(int32(StateIdle))
		p.log.DebugContext(ctx, "late result discarded")
		return true
	}

	if err != nil {
		p.failures.Add(1)
		p.log.WarnContext(ctx, "poll failed",
			logger.NewField("error", err.Error()),
			logger.NewField("elapsed", time.Since(start)))
		if p.cfg.OnFail != nil {
			p.cfg.OnFail(ctx, err)
		}
		p.state.Store(int32(StateFailed))
		return true
	}

	p.log.DebugContext(ctx, "poll settled", logger.NewField("elapsed", time.Since(start)))
	if p.cfg.OnSettle != nil {
		p.cfg.OnSettle(ctx, v)
	}
	p.state.Store(int32(StateSettled))
	return true
}

func (p *Poller[T]) begin() bool {
	for {
		cur := p.state.Load()
		if State(cur) == StateFetching {
			return false
		}
		if p.state.CompareAndSwap(cur, int32(StateFetching)) {
			return true
		}
	}
}

// Close stops the poller. In-flight fetches finish but their results are dropped.
func (p *Poller[T]) Close() { p.closed.Store(true) }

// Name returns the source name.
func (p *Poller[T]) Name() string { return p.cfg.Name }

// State returns the current state.
func (p *Poller[T]) State() State { return State(p.state.Load()) }

// Suppressed returns how many polls were skipped because of overlap.
func (p *Poller[T]) Suppressed() int64 { return p.suppressed.Load() }

// Failures returns how many fetches failed.
func (p *Poller[T]) Failures() int64 { return p.failures.Load() }
