package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// RandomWalk is an offline feed. The current tick takes a random walk and a
// ladder of liquidity follows it on both sides. It satisfies every feed
// source interface, so the rest of the pipeline cannot tell it from the venue.
type RandomWalk struct {
	mu      sync.Mutex
	rng     *rand.Rand
	levels  int
	spacing int64
	maxStep int64
	step    int64
	history int

	current core.Tick
	now     int64
	ticks   []core.CurrentTickEvent
	orders  []core.OrderEvent
	nextID  int64
}

// WalkOption configures a RandomWalk.
type WalkOption func(*RandomWalk)

// WithCenter sets the starting tick.
func WithCenter(t core.Tick) WalkOption {
	return func(w *RandomWalk) { w.current = t }
}

// WithLevels sets how many ticks carry liquidity on each side.
func WithLevels(n int) WalkOption {
	return func(w *RandomWalk) {
		if n > 0 {
			w.levels = n
		}
	}
}

// WithHistory sets how many past current-tick events exist at start.
func WithHistory(n int) WalkOption {
	return func(w *RandomWalk) {
		if n >= 0 {
			w.history = n
		}
	}
}

// WithStart sets the timestamp (unix seconds) of the first event.
func WithStart(ts int64) WalkOption {
	return func(w *RandomWalk) { w.now = ts }
}

// NewRandomWalk returns a walk driven by seed. The same seed and call
// sequence give the same data.
func NewRandomWalk(seed int64, opts ...WalkOption) *RandomWalk {
	w := &RandomWalk{
		rng:     rand.New(rand.NewSource(seed)),
		levels:  20,
		spacing: 5,
		maxStep: 8,
		step:    60,
		history: 100,
		current: 76000, // about 2000 at base 1.0001
		now:     1735917196,
	}
	for _, opt := range opts {
		opt(w)
	}

	for i := 0; i < w.history; i++ {
		w.walk()
	}
	for i := 0; i < 8; i++ {
		w.orders = append(w.orders, w.randomOrder())
	}
	return w
}

// walk advances one step. Caller holds w.mu (or is the constructor).
func (w *RandomWalk) walk() {
	if len(w.ticks) > 0 {
		w.current += core.Tick(w.rng.Int63n(2*w.maxStep+1) - w.maxStep)
		w.now += w.step
	}
	w.ticks = append(w.ticks, core.CurrentTickEvent{
		ID:        w.id(),
		Tick:      w.current,
		Timestamp: w.now,
	})
	if w.history > 0 && len(w.ticks) > 4*w.history {
		w.ticks = append(w.ticks[:0:0], w.ticks[len(w.ticks)-w.history:]...)
	}
}

func (w *RandomWalk) id() string {
	w.nextID++
	return fmt.Sprintf("0x%016x", w.nextID)
}

// size is a random amount in [0.1, 5.1) with four decimals.
func (w *RandomWalk) size() decimal.Decimal {
	return decimal.NewFromInt(1000 + w.rng.Int63n(50000)).Shift(-4)
}

func (w *RandomWalk) randomOrder() core.OrderEvent {
	side := core.SideOf(w.rng.Intn(2) == 0)
	vol := w.size()
	remaining := decimal.Zero
	if w.rng.Intn(3) == 0 {
		remaining = vol.Div(decimal.NewFromInt(2)).Round(4)
	}
	offset := core.Tick(w.spacing * (1 + w.rng.Int63n(int64(w.levels))))
	tick := w.current - offset
	if side == core.SideSell {
		tick = w.current + offset
	}
	return core.OrderEvent{
		ID:         w.id(),
		Tick:       tick,
		Side:       side,
		IsMarket:   w.rng.Intn(4) == 0,
		Volume:     vol,
		Remaining:  remaining,
		OrderIndex: w.nextID,
		Timestamp:  w.now - w.rng.Int63n(3600),
	}
}

// Ticks returns fresh liquidity around the current tick. Sizes are redrawn
// on every call.
func (w *RandomWalk) Ticks(ctx context.Context) ([]core.TickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.TickEvent, 0, 3*w.levels)
	for i := 1; i <= w.levels; i++ {
		off := core.Tick(int64(i) * w.spacing)
		for _, lvl := range []struct {
			tick core.Tick
			side core.Side
		}{{w.current - off, core.SideBuy}, {w.current + off, core.SideSell}} {
			// some levels are built from two records
			n := 1 + w.rng.Intn(2)
			for j := 0; j < n; j++ {
				out = append(out, core.TickEvent{
					ID:        w.id(),
					Tick:      lvl.tick,
					Side:      lvl.side,
					Size:      w.size(),
					Timestamp: w.now,
				})
			}
		}
	}
	return out, nil
}

// BestTicks returns the liquid ticks nearest the current tick.
func (w *RandomWalk) BestTicks(ctx context.Context) (core.BestTicks, error) {
	if err := ctx.Err(); err != nil {
		return core.BestTicks{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	best := core.BestTicks{CurrentTick: w.current}
	for i := 1; i <= w.levels; i++ {
		off := core.Tick(int64(i) * w.spacing)
		best.Bids = append(best.Bids, w.current-off)
		best.Asks = append(best.Asks, w.current+off)
	}
	return best, nil
}

// CurrentTicks advances the walk one step and returns the history, oldest
// first.
func (w *RandomWalk) CurrentTicks(ctx context.Context) ([]core.CurrentTickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.walk()
	out := make([]core.CurrentTickEvent, len(w.ticks))
	copy(out, w.ticks)
	return out, nil
}

// Orders returns a fixed set of synthetic orders placed by user, newest
// first.
func (w *RandomWalk) Orders(ctx context.Context, user string) ([]core.OrderEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.OrderEvent, len(w.orders))
	copy(out, w.orders)
	for i := range out {
		out[i].User = user
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}
