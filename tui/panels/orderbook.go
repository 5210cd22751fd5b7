package panels

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
	"github.com/zappabad/liquidbook/tui/styles"
)

// BookMode selects which sides of the order book are shown.
type BookMode int

const (
	ModeBoth BookMode = iota
	ModeBids
	ModeAsks
)

func (m BookMode) String() string {
	switch m {
	case ModeBids:
		return "bids"
	case ModeAsks:
		return "asks"
	default:
		return "both"
	}
}

// DepthChangedMsg asks the feed for a different number of levels per side.
type DepthChangedMsg struct {
	Depth int
}

var (
	precisionKey = key.NewBinding(key.WithKeys("p"))
	modeKey      = key.NewBinding(key.WithKeys("v"))
	depthKey     = key.NewBinding(key.WithKeys("d"))
)

// OrderbookPanel displays the merged order book.
type OrderbookPanel struct {
	name  string
	codec core.Codec
	book  core.Book

	precisions   []float64
	precisionIdx int
	mode         BookMode
	standard     int
	deep         int
	depth        int

	focused bool
	width   int
	height  int
}

// NewOrderbookPanel creates an order book panel. precision selects the
// initial entry of precisions; standard and deep are the two depth presets.
func NewOrderbookPanel(name string, codec core.Codec, precisions []float64, precision float64, standard, deep int) *OrderbookPanel {
	if len(precisions) == 0 {
		precisions = []float64{0.01, 0.1, 1}
	}
	idx := 0
	for i, p := range precisions {
		if p == precision {
			idx = i
			break
		}
	}
	if deep < standard {
		deep = standard
	}
	return &OrderbookPanel{
		name:         name,
		codec:        codec,
		precisions:   precisions,
		precisionIdx: idx,
		standard:     standard,
		deep:         deep,
		depth:        standard,
	}
}

// Init initializes the panel.
func (p *OrderbookPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *OrderbookPanel) Update(msg tea.Msg) (*OrderbookPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, precisionKey):
		p.precisionIdx = (p.precisionIdx + 1) % len(p.precisions)
	case key.Matches(keyMsg, modeKey):
		p.mode = (p.mode + 1) % 3
	case key.Matches(keyMsg, depthKey):
		if p.depth == p.standard {
			p.depth = p.deep
		} else {
			p.depth = p.standard
		}
		depth := p.depth
		return p, func() tea.Msg { return DepthChangedMsg{Depth: depth} }
	}
	return p, nil
}

// View renders the panel.
func (p *OrderbookPanel) View() string {
	inner := max(p.width-4, 20)
	colW := inner / 3

	var content strings.Builder
	header := fmt.Sprintf("%*s%*s%*s", colW, "Price", colW, "Size", inner-2*colW, "Total")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	precision := p.Precision()
	if p.mode != ModeBids {
		rows := orderbookview.Rows(p.book.Asks, precision, p.depth)
		// best ask sits next to the spread line
		for i := len(rows) - 1; i >= 0; i-- {
			content.WriteString(p.renderRow(rows[i], core.SideSell, inner, colW))
			content.WriteString("\n")
		}
	}

	content.WriteString(p.renderSpread(inner))
	content.WriteString("\n")

	if p.mode != ModeAsks {
		for _, r := range orderbookview.Rows(p.book.Bids, precision, p.depth) {
			content.WriteString(p.renderRow(r, core.SideBuy, inner, colW))
			content.WriteString("\n")
		}
	}

	content.WriteString(p.renderImbalance())

	title := fmt.Sprintf("📊 %s  %s · %s · %d", p.name, core.FormatPrice(precision, precision), p.mode, p.depth)
	return styles.Panel(title, content.String(), p.focused, p.width, p.height)
}

func (p *OrderbookPanel) renderRow(r orderbookview.Row, side core.Side, inner, colW int) string {
	line := fmt.Sprintf("%*s%*s%*s",
		colW, r.Price,
		colW, r.Size.StringFixed(4),
		inner-2*colW, r.Cumulative.StringFixed(4))

	text, bar := styles.SellStyle, styles.SellBarStyle
	if side == core.SideBuy {
		text, bar = styles.BuyStyle, styles.BuyBarStyle
	}

	runes := []rune(line)
	n := int(math.Round(r.Depth * float64(len(runes))))
	n = min(max(n, 0), len(runes))
	// the bar grows from the right edge
	cut := len(runes) - n
	return text.Render(string(runes[:cut])) + bar.Render(string(runes[cut:]))
}

func (p *OrderbookPanel) renderSpread(inner int) string {
	spread := "—"
	if p.book.SpreadOK {
		spread = core.FormatPrice(p.book.Spread, p.Precision())
	}
	line := "Spread " + spread
	if p.book.HasCurrentTick {
		price := p.codec.PriceFromTick(p.book.CurrentTick)
		line += fmt.Sprintf("   Tick %d @ %s", p.book.CurrentTick, core.FormatPrice(price, p.Precision()))
	}
	return styles.SpreadStyle.Width(inner).Align(lipgloss.Center).Render(line)
}

func (p *OrderbookPanel) renderImbalance() string {
	buy, sell, ok := orderbookview.Imbalance(p.book)
	if !ok {
		return styles.MutedStyle.Render("Buy —  Sell —")
	}
	return styles.BuyStyle.Render(fmt.Sprintf("Buy %.1f%%", buy)) + "  " +
		styles.SellStyle.Render(fmt.Sprintf("Sell %.1f%%", sell))
}

// SetFocus sets the focus state of the panel.
func (p *OrderbookPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *OrderbookPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetBook replaces the displayed book.
func (p *OrderbookPanel) SetBook(b core.Book) {
	p.book = b
}

// Precision returns the selected display precision.
func (p *OrderbookPanel) Precision() float64 {
	return p.precisions[p.precisionIdx]
}

// Mode returns the selected side filter.
func (p *OrderbookPanel) Mode() BookMode {
	return p.mode
}

// Depth returns the number of rows shown per side.
func (p *OrderbookPanel) Depth() int {
	return p.depth
}
