package view

// EventKind says which part of the market view changed.
type EventKind int

const (
	EventTicker EventKind = iota
	EventMarkPrice
	EventTrades
	EventStatus
)

// MarketEvent is published after the market view changes. Stats is always
// the full snapshot after the change.
type MarketEvent struct {
	Kind  EventKind
	Stats Stats
	// NewTrades is how many trades reached the tape (EventTrades only).
	NewTrades int
}
