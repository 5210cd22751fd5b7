package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/tui/styles"
)

// HistoryPanel lists the account's placed orders, newest first.
type HistoryPanel struct {
	codec   core.Codec
	account string
	orders  []core.OrderEvent

	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

// NewHistoryPanel creates a history panel for account. An empty account
// means no history source is configured.
func NewHistoryPanel(codec core.Codec, account string) *HistoryPanel {
	return &HistoryPanel{codec: codec, account: account}
}

// Init initializes the panel.
func (p *HistoryPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *HistoryPanel) Update(msg tea.Msg) (*HistoryPanel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !p.focused {
		return p, nil
	}
	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("up", "k"))):
		if p.selectedIndex > 0 {
			p.selectedIndex--
			if p.selectedIndex < p.scrollOffset {
				p.scrollOffset = p.selectedIndex
			}
		}
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("down", "j"))):
		if p.selectedIndex < len(p.orders)-1 {
			p.selectedIndex++
			if visible := p.visibleRows(); p.selectedIndex >= p.scrollOffset+visible {
				p.scrollOffset = p.selectedIndex - visible + 1
			}
		}
	}
	return p, nil
}

func (p *HistoryPanel) visibleRows() int {
	return max(p.height-5, 1)
}

// View renders the panel.
func (p *HistoryPanel) View() string {
	title := "🧾 Orders"
	if p.account != "" {
		title += " - " + styles.ShortAddress(p.account)
	}

	var content strings.Builder
	switch {
	case p.account == "":
		content.WriteString(styles.MutedStyle.Render("No account configured"))
	case len(p.orders) == 0:
		content.WriteString(styles.MutedStyle.Render("No orders yet"))
	default:
		content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-8s %-4s %-6s %10s %10s %10s", "Time", "Side", "Type", "Price", "Volume", "Filled")))
		content.WriteString("\n")

		end := min(p.scrollOffset+p.visibleRows(), len(p.orders))
		for i := p.scrollOffset; i < end; i++ {
			line := p.renderOrder(p.orders[i])
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}
			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}
	}

	return styles.Panel(title, content.String(), p.focused, p.width, p.height)
}

func (p *HistoryPanel) renderOrder(o core.OrderEvent) string {
	price := "market"
	if !o.IsMarket {
		price = core.FormatPrice(p.codec.PriceFromTick(o.Tick), 0.01)
	}
	sideStyle := styles.SellStyle
	if o.Side == core.SideBuy {
		sideStyle = styles.BuyStyle
	}
	return styles.TimeStyle.Render(time.Unix(o.Timestamp, 0).Local().Format("15:04:05")) + " " +
		sideStyle.Render(fmt.Sprintf("%-4s", o.Side)) + " " +
		fmt.Sprintf("%-6s %10s %10s %10s", o.Kind(), price, o.Volume.StringFixed(4), o.Filled().StringFixed(4))
}

// SetFocus sets the focus state of the panel.
func (p *HistoryPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *HistoryPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetOrders replaces the listed orders.
func (p *HistoryPanel) SetOrders(orders []core.OrderEvent) {
	p.orders = orders
	if p.selectedIndex >= len(orders) {
		p.selectedIndex = max(len(orders)-1, 0)
	}
	if p.scrollOffset > p.selectedIndex {
		p.scrollOffset = p.selectedIndex
	}
}
