package core

import (
	"errors"
	"math"
	"strconv"
)

// DefaultTickBase is the venue's geometric tick spacing. It must match the
// engine contract exactly.
const DefaultTickBase = 1.0001

// ErrInvalidPrice is returned when a price has no tick representation.
var ErrInvalidPrice = errors.New("invalid price")

// Codec converts between ticks and prices.
type Codec struct {
	base    float64
	logBase float64
}

// NewCodec returns a codec for base. Bases that are not greater than one fall
// back to DefaultTickBase.
func NewCodec(base float64) Codec {
	if !(base > 1) || math.IsInf(base, 0) {
		base = DefaultTickBase
	}
	return Codec{base: base, logBase: math.Log(base)}
}

// Base returns the tick spacing.
func (c Codec) Base() float64 {
	if c.base == 0 {
		return DefaultTickBase
	}
	return c.base
}

// PriceFromTick returns base^tick. Results at the extremes may be +Inf or 0.
func (c Codec) PriceFromTick(t Tick) float64 {
	return math.Pow(c.Base(), float64(t))
}

// TickFromPrice returns the tick nearest to price.
func (c Codec) TickFromPrice(price float64) (Tick, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, ErrInvalidPrice
	}
	logBase := c.logBase
	if logBase == 0 {
		logBase = math.Log(DefaultTickBase)
	}
	return Tick(math.Round(math.Log(price) / logBase)), nil
}

// RoundToPrecision buckets price to the nearest multiple of precision.
// A non-positive or NaN precision leaves the price untouched.
func RoundToPrecision(price, precision float64) float64 {
	if !(precision > 0) || math.IsInf(precision, 0) {
		return price
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return price
	}
	return math.Round(price/precision) * precision
}

// PrecisionDecimals returns the number of fraction digits implied by precision:
// 0.01 -> 2, 0.1 -> 1, 1 -> 0.
func PrecisionDecimals(precision float64) int {
	if !(precision > 0) || precision >= 1 || math.IsInf(precision, 0) {
		return 0
	}
	d := int(math.Ceil(-math.Log10(precision) - 1e-9))
	if d > 12 {
		d = 12
	}
	return d
}

// FormatPrice renders price rounded to precision. Infinite and NaN values get
// placeholder text instead of digits.
func FormatPrice(price, precision float64) string {
	switch {
	case math.IsNaN(price):
		return "—"
	case math.IsInf(price, 1):
		return "∞"
	case math.IsInf(price, -1):
		return "-∞"
	}
	if !(precision > 0) {
		return strconv.FormatFloat(price, 'f', -1, 64)
	}
	return strconv.FormatFloat(RoundToPrecision(price, precision), 'f', PrecisionDecimals(precision), 64)
}
