// Package market describes the instrument shown next to the book and the
// public reference data polled for it.
package market

import "strings"

// Instrument identifies a trading pair, for example ETH-USDC.
type Instrument struct {
	ID    string
	Base  string
	Quote string
}

// ParseInstrument splits an OKX style instrument id at its first dash.
func ParseInstrument(id string) Instrument {
	id = strings.ToUpper(strings.TrimSpace(id))
	base, quote, _ := strings.Cut(id, "-")
	return Instrument{ID: id, Base: base, Quote: quote}
}

// Name returns "BASE/QUOTE", or the raw id when there is no quote.
func (i Instrument) Name() string {
	if i.Quote == "" {
		return i.ID
	}
	return i.Base + "/" + i.Quote
}
