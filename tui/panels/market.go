package panels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
	"github.com/zappabad/liquidbook/tui/styles"
)

// MarketPanel shows the 24h market figures and the recent trades list.
type MarketPanel struct {
	stats    marketview.Stats
	trades   []orderbookview.TradeRow
	disabled bool

	scrollOffset int
	focused      bool
	width        int
	height       int
}

// NewMarketPanel creates a market panel. A disabled panel says so instead of
// waiting for data that never comes.
func NewMarketPanel(disabled bool) *MarketPanel {
	return &MarketPanel{disabled: disabled}
}

// Init initializes the panel.
func (p *MarketPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *MarketPanel) Update(msg tea.Msg) (*MarketPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("up", "k"))):
		if p.scrollOffset > 0 {
			p.scrollOffset--
		}
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("down", "j"))):
		if p.scrollOffset < len(p.trades)-1 {
			p.scrollOffset++
		}
	}
	return p, nil
}

// View renders the panel.
func (p *MarketPanel) View() string {
	title := "📈 Market"
	if p.stats.Instrument.ID != "" {
		title += " - " + p.stats.Instrument.Name()
	}
	if p.disabled {
		return styles.Panel(title, styles.MutedStyle.Render("Market data disabled"), p.focused, p.width, p.height)
	}

	var content strings.Builder
	content.WriteString(p.renderStats())
	content.WriteString("\n\n")
	content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-9s %12s %10s %12s", "Time", "Price", "Size", "Total")))
	content.WriteString("\n")

	rows := max(p.height-14, 3)
	start := min(p.scrollOffset, max(len(p.trades)-1, 0))
	end := min(start+rows, len(p.trades))
	for _, tr := range p.trades[start:end] {
		line := fmt.Sprintf("%-9s %12s %10s %12s",
			tr.Time.Local().Format("15:04:05"),
			strconv.FormatFloat(tr.Price, 'f', 2, 64),
			tr.Size.StringFixed(4),
			tr.Total.StringFixed(4))
		style := styles.SellStyle
		if tr.Side == core.SideBuy {
			style = styles.BuyStyle
		}
		content.WriteString(style.Render(line))
		content.WriteString("\n")
	}
	if len(p.trades) == 0 {
		content.WriteString(styles.MutedStyle.Render("No trades yet..."))
	}

	return styles.Panel(title, content.String(), p.focused, p.width, p.height)
}

func (p *MarketPanel) renderStats() string {
	s := p.stats
	if !s.HasTicker {
		msg := "Waiting for market data..."
		if s.LastError != "" {
			msg = s.LastError
		}
		return styles.MutedStyle.Render(msg)
	}

	lastStyle := styles.PriceUpStyle
	if s.Change < 0 {
		lastStyle = styles.PriceDownStyle
	}
	change := "—"
	if s.ChangeOK {
		change = fmt.Sprintf("%+.2f (%+.2f%%)", s.Change, s.ChangePercent)
	}
	mark := "—"
	if s.HasMark {
		mark = fmt.Sprintf("%.2f", s.Mark)
	}

	lines := []string{
		styles.LabelStyle.Render("Last    ") + lastStyle.Render(fmt.Sprintf("%.2f", s.Last)),
		styles.LabelStyle.Render("Change  ") + lastStyle.Render(change),
		styles.LabelStyle.Render("Open    ") + fmt.Sprintf("%.2f", s.Open24h),
		styles.LabelStyle.Render("High    ") + fmt.Sprintf("%.2f", s.High24h),
		styles.LabelStyle.Render("Low     ") + fmt.Sprintf("%.2f", s.Low24h),
		styles.LabelStyle.Render("Volume  ") + fmt.Sprintf("%.2f", s.Volume24h),
		styles.LabelStyle.Render("Mark    ") + mark,
	}
	if s.Stale {
		lines = append(lines, styles.StaleStyle.Render("stale "+strings.Join(s.StaleSources, ", ")+": "+s.LastError))
	}
	return strings.Join(lines, "\n")
}

// SetFocus sets the focus state of the panel.
func (p *MarketPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *MarketPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetStats replaces the market figures.
func (p *MarketPanel) SetStats(s marketview.Stats) {
	p.stats = s
}

// SetTrades replaces the recent trades, newest first.
func (p *MarketPanel) SetTrades(trades []orderbookview.TradeRow) {
	p.trades = trades
	if p.scrollOffset >= len(trades) {
		p.scrollOffset = 0
	}
}
