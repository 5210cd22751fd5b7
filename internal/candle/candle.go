// Package candle derives OHLC candles from scalar price observations.
//
// Every candle follows one rule: its open is the previous candle's close,
// high and low are the running extremes of everything folded into it, and
// the last observation folded sets the close. Only the very first candle,
// which has no predecessor, is seeded from its first observation.
package candle

import "math"

// Candle is an OHLC summary. Time is in unix seconds.
type Candle struct {
	Time  int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Observation is a single price sample.
type Observation struct {
	Time  int64
	Value float64
}

// Sink receives rendered candles. SetData replaces everything the sink shows;
// Update replaces the last candle when the times match and appends otherwise.
type Sink interface {
	SetData(candles []Candle)
	Update(c Candle)
}

// Seed starts a series from its first observation.
func Seed(obs Observation) Candle {
	return Candle{
		Time:  obs.Time,
		Open:  obs.Value,
		High:  obs.Value,
		Low:   obs.Value,
		Close: obs.Value,
	}
}

// Open starts the candle after prev with obs as its first observation.
func Open(prev Candle, obs Observation) Candle {
	return Candle{
		Time:  obs.Time,
		Open:  prev.Close,
		High:  math.Max(prev.Close, obs.Value),
		Low:   math.Min(prev.Close, obs.Value),
		Close: obs.Value,
	}
}

// Fold adds v to the candle, keeping its open.
func (c Candle) Fold(v float64) Candle {
	c.High = math.Max(c.High, v)
	c.Low = math.Min(c.Low, v)
	c.Close = v
	return c
}

// Bullish reports whether the candle closed at or above its open.
func (c Candle) Bullish() bool { return c.Close >= c.Open }

// Valid reports whether low and high bound both open and close.
func (c Candle) Valid() bool {
	return c.Low <= math.Min(c.Open, c.Close) && c.High >= math.Max(c.Open, c.Close)
}

// Build partitions obs into groups of updatesPerCandle and folds each group
// into one candle.
func Build(obs []Observation, updatesPerCandle int) []Candle {
	s := NewStream(obs, updatesPerCandle)
	out := make([]Candle, 0, s.Remaining())
	for {
		c, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}
