package panels

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/liquidbook/internal/candle"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/tui/styles"
)

var _ candle.Sink = (*CandlestickPanel)(nil)

// CandlestickPanel draws the current-price candles. It is a candle.Sink, so
// it takes no key input: Update belongs to the sink.
type CandlestickPanel struct {
	name       string
	candles    []candle.Candle
	maxCandles int
	precision  float64

	focused bool
	width   int
	height  int
}

// NewCandlestickPanel creates a chart keeping at most maxCandles candles.
func NewCandlestickPanel(name string, maxCandles int) *CandlestickPanel {
	if maxCandles <= 0 {
		maxCandles = 500
	}
	return &CandlestickPanel{
		name:       name,
		maxCandles: maxCandles,
		precision:  0.01,
	}
}

// Init initializes the panel.
func (p *CandlestickPanel) Init() tea.Cmd {
	return nil
}

// SetData replaces every candle.
func (p *CandlestickPanel) SetData(candles []candle.Candle) {
	p.candles = append([]candle.Candle(nil), candles...)
	p.trim()
}

// Update replaces the last candle when the times match and appends otherwise.
func (p *CandlestickPanel) Update(c candle.Candle) {
	p.candles = candle.Merge(p.candles, c)
	p.trim()
}

func (p *CandlestickPanel) trim() {
	if len(p.candles) > p.maxCandles {
		p.candles = p.candles[len(p.candles)-p.maxCandles:]
	}
}

// Candles returns the candles currently held.
func (p *CandlestickPanel) Candles() []candle.Candle {
	return p.candles
}

// View renders the panel.
func (p *CandlestickPanel) View() string {
	title := fmt.Sprintf("📉 Chart - %s", p.name)

	var content string
	if len(p.candles) == 0 {
		content = styles.MutedStyle.Render("No price data yet...")
	} else {
		content = p.renderChart(p.width-4, max(p.height-4, 5))
	}
	return styles.Panel(title, content, p.focused, p.width, p.height)
}

func (p *CandlestickPanel) renderChart(width, height int) string {
	// 9 chars of price axis, 1 separator
	chartWidth := max(width-10, 10)

	// one column plus a gap per candle
	show := min(max(chartWidth/2, 1), len(p.candles))
	display := p.candles[len(p.candles)-show:]

	minPrice, maxPrice := display[0].Low, display[0].High
	for _, c := range display {
		minPrice = min(minPrice, c.Low)
		maxPrice = max(maxPrice, c.High)
	}
	pad := (maxPrice - minPrice) * 0.1
	if pad == 0 {
		pad = maxPrice * 0.001
	}
	if pad == 0 {
		pad = 1
	}
	minPrice -= pad
	maxPrice += pad

	// 2 rows for the time axis
	chartHeight := max(height-3, 5)

	var out strings.Builder
	for row := 0; row < chartHeight; row++ {
		price := yToPrice(row, minPrice, maxPrice, chartHeight)
		out.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", core.FormatPrice(price, p.precision))))

		for _, c := range display {
			style := styles.CandleDownStyle
			if c.Bullish() {
				style = styles.CandleUpStyle
			}
			out.WriteString(style.Render(string(candleChar(c, row, minPrice, maxPrice, chartHeight))))
			out.WriteString(" ")
		}
		out.WriteString("\n")
	}

	out.WriteString(styles.ChartAxisStyle.Render("─────────┴" + strings.Repeat("──", len(display))))
	out.WriteString("\n")

	out.WriteString("          ")
	for i, c := range display {
		if i == 0 || i == len(display)-1 || i%5 == 0 {
			out.WriteString(styles.ChartLabelStyle.Render(time.Unix(c.Time, 0).Format("04")))
		} else {
			out.WriteString("  ")
		}
	}
	return out.String()
}

// candleChar returns the rune drawn for c at row.
func candleChar(c candle.Candle, row int, minPrice, maxPrice float64, height int) rune {
	rowPrice := yToPrice(row, minPrice, maxPrice, height)

	bodyTop, bodyBottom := max(c.Open, c.Close), min(c.Open, c.Close)

	// rows are discrete, prices are not
	tolerance := (maxPrice - minPrice) / float64(height*2)

	switch {
	case rowPrice <= bodyTop+tolerance && rowPrice >= bodyBottom-tolerance:
		return '┃'
	case rowPrice <= c.High+tolerance && rowPrice > bodyTop:
		return '│'
	case rowPrice >= c.Low-tolerance && rowPrice < bodyBottom:
		return '│'
	}
	return ' '
}

func yToPrice(y int, minPrice, maxPrice float64, height int) float64 {
	if height <= 1 {
		return minPrice
	}
	ratio := float64(y) / float64(height-1)
	return maxPrice - ratio*(maxPrice-minPrice)
}

// SetFocus sets the focus state of the panel.
func (p *CandlestickPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CandlestickPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetPrecision sets the price axis precision.
func (p *CandlestickPanel) SetPrecision(precision float64) {
	p.precision = precision
}
