package candle

// Series is a rendered candle series that grows one observation at a time.
// It is not safe for concurrent use.
type Series struct {
	interval int64
	limit    int
	candles  []Candle
}

// NewSeries returns an empty series with bucket width interval seconds.
// An interval of zero gives every distinct timestamp its own candle.
// limit caps the number of retained candles; zero keeps all of them.
func NewSeries(interval int64, limit int) *Series {
	if interval < 0 {
		interval = 0
	}
	return &Series{interval: interval, limit: limit}
}

func (s *Series) bucket(t int64) int64 {
	if s.interval == 0 {
		return t
	}
	b := t - t%s.interval
	if t < 0 && t%s.interval != 0 {
		b -= s.interval
	}
	return b
}

// Reset replaces the series with candles.
func (s *Series) Reset(candles []Candle) {
	s.candles = append(s.candles[:0:0], candles...)
	s.trim()
}

// Append folds obs into the series. Inside the last candle's bucket the
// candle is extended; a later bucket opens a new candle at the previous
// close. Observations older than the last bucket are ignored.
func (s *Series) Append(obs Observation) (Candle, bool) {
	b := s.bucket(obs.Time)
	if len(s.candles) == 0 {
		c := Seed(obs)
		c.Time = b
		s.candles = append(s.candles, c)
		return c, true
	}

	last := &s.candles[len(s.candles)-1]
	lb := s.bucket(last.Time)
	switch {
	case b < lb:
		return Candle{}, false
	case b == lb:
		*last = last.Fold(obs.Value)
		return *last, true
	}

	c := Open(*last, obs)
	c.Time = b
	s.candles = append(s.candles, c)
	s.trim()
	return c, true
}

// Last returns the newest candle.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.candles) }

// Candles returns a copy of the series.
func (s *Series) Candles() []Candle {
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

func (s *Series) trim() {
	if s.limit > 0 && len(s.candles) > s.limit {
		s.candles = append(s.candles[:0:0], s.candles[len(s.candles)-s.limit:]...)
	}
}

// Merge applies c to candles the way a Sink would and returns the result.
func Merge(candles []Candle, c Candle) []Candle {
	if n := len(candles); n > 0 && candles[n-1].Time == c.Time {
		candles[n-1] = c
		return candles
	}
	return append(candles, c)
}
