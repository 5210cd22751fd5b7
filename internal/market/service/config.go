package service

import "time"

// Config holds configuration for the market service.
type Config struct {
	// Interval is the cadence of the ticker, mark price and trades polls.
	Interval time.Duration
	Timeout  time.Duration
	// TradeLimit is how many recent trades each poll asks for.
	TradeLimit int
	// TapeSize is the capacity of the trade tape.
	TapeSize int
	// MarketEventBuffer is the size of the market events channel.
	MarketEventBuffer int
	// DropMarketEvents determines whether the market events channel drops on overflow.
	DropMarketEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Interval:          time.Second,
		Timeout:           5 * time.Second,
		TradeLimit:        20,
		TapeSize:          200,
		MarketEventBuffer: 256,
		DropMarketEvents:  true,
	}
}
