package service

import (
	"time"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// Depth presets for the order book.
const (
	DepthStandard = 7
	DepthDeep     = 13
)

// Config holds configuration for the feed service.
type Config struct {
	Codec core.Codec
	// Depth is the number of levels kept per side.
	Depth int

	TickInterval     time.Duration
	BestTickInterval time.Duration
	PriceInterval    time.Duration
	HistoryInterval  time.Duration
	// Timeout bounds every single fetch.
	Timeout time.Duration

	// UpdatesPerCandle groups the initial price history into candles.
	UpdatesPerCandle int
	// CandleInterval is the bucket width in seconds for live candle updates.
	CandleInterval int64
	MaxCandles     int

	// EventBuffer is the size of the events channel.
	EventBuffer int
	// DropEvents drops updates when the events channel is full instead of
	// blocking the poller.
	DropEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Codec:            core.NewCodec(core.DefaultTickBase),
		Depth:            DepthStandard,
		TickInterval:     time.Second,
		BestTickInterval: 50 * time.Second,
		PriceInterval:    time.Second,
		HistoryInterval:  5 * time.Second,
		Timeout:          10 * time.Second,
		UpdatesPerCandle: 1,
		CandleInterval:   60,
		MaxCandles:       500,
		EventBuffer:      256,
		DropEvents:       true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Depth <= 0 {
		c.Depth = d.Depth
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.BestTickInterval <= 0 {
		c.BestTickInterval = d.BestTickInterval
	}
	if c.PriceInterval <= 0 {
		c.PriceInterval = d.PriceInterval
	}
	if c.HistoryInterval <= 0 {
		c.HistoryInterval = d.HistoryInterval
	}
	if c.UpdatesPerCandle <= 0 {
		c.UpdatesPerCandle = d.UpdatesPerCandle
	}
	if c.CandleInterval < 0 {
		c.CandleInterval = 0
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	return c
}
