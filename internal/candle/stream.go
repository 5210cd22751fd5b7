package candle

// Stream yields candles from a fixed batch of observations one at a time.
// Each observation is consumed once; a drained stream stays drained.
type Stream struct {
	obs  []Observation
	per  int
	pos  int
	prev Candle
	init bool
}

// NewStream returns a stream over obs. updatesPerCandle below one is treated
// as one. obs is not copied and must not be modified while streaming.
func NewStream(obs []Observation, updatesPerCandle int) *Stream {
	if updatesPerCandle < 1 {
		updatesPerCandle = 1
	}
	return &Stream{obs: obs, per: updatesPerCandle}
}

// Next returns the next candle, or false once the input is exhausted.
func (s *Stream) Next() (Candle, bool) {
	if s.pos >= len(s.obs) {
		return Candle{}, false
	}
	end := s.pos + s.per
	if end > len(s.obs) {
		end = len(s.obs)
	}
	group := s.obs[s.pos:end]
	s.pos = end

	var c Candle
	if s.init {
		c = Open(s.prev, group[0])
	} else {
		c = Seed(group[0])
	}
	for _, o := range group[1:] {
		c = c.Fold(o.Value)
	}

	s.prev = c
	s.init = true
	return c, true
}

// Remaining returns how many candles Next will still produce.
func (s *Stream) Remaining() int {
	left := len(s.obs) - s.pos
	if left <= 0 {
		return 0
	}
	return (left + s.per - 1) / s.per
}
