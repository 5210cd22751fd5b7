package view

import "github.com/zappabad/liquidbook/internal/orderbook/core"

// TradeTape is a ring buffer of trades (bounded memory). Trades already on
// the tape are recognised by ID and not appended twice.
type TradeTape struct {
	buf   []core.Trade
	ids   map[string]struct{}
	size  int
	start int
	count int
}

// NewTradeTape creates a new TradeTape with the given capacity.
func NewTradeTape(capacity int) *TradeTape {
	if capacity <= 0 {
		capacity = 1
	}
	return &TradeTape{
		buf:  make([]core.Trade, capacity),
		ids:  make(map[string]struct{}, capacity),
		size: capacity,
	}
}

// Append adds a trade to the tape and reports whether it was new.
func (t *TradeTape) Append(tr core.Trade) bool {
	if tr.ID != "" {
		if _, seen := t.ids[tr.ID]; seen {
			return false
		}
		t.ids[tr.ID] = struct{}{}
	}
	if t.count < t.size {
		t.buf[(t.start+t.count)%t.size] = tr
		t.count++
		return true
	}
	// overwrite oldest
	delete(t.ids, t.buf[t.start].ID)
	t.buf[t.start] = tr
	t.start = (t.start + 1) % t.size
	return true
}

// Last returns the last n trades in chronological order.
// Returns a copy (not internal references).
func (t *TradeTape) Last(n int) []core.Trade {
	if n <= 0 || t.count == 0 {
		return nil
	}
	if n > t.count {
		n = t.count
	}
	out := make([]core.Trade, n)
	first := (t.start + (t.count - n)) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(first+i)%t.size]
	}
	return out
}

// Count returns the number of trades in the tape.
func (t *TradeTape) Count() int {
	return t.count
}
