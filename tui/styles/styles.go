package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Primary colors
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	AccentColor    = lipgloss.Color("#F59E0B") // Amber

	// Status colors
	BuyColor     = lipgloss.Color("#10B981") // Green
	SellColor    = lipgloss.Color("#EF4444") // Red
	NeutralColor = lipgloss.Color("#6B7280") // Gray

	// Depth bars sit behind the order book rows.
	BuyBarColor  = lipgloss.Color("#064E3B")
	SellBarColor = lipgloss.Color("#7F1D1D")

	// Background colors
	BackgroundColor      = lipgloss.Color("#1F2937")
	PanelBackgroundColor = lipgloss.Color("#111827")
	BorderColor          = lipgloss.Color("#374151")
	FocusBorderColor     = lipgloss.Color("#7C3AED")

	// Text colors
	TextColor          = lipgloss.Color("#F9FAFB")
	TextSecondaryColor = lipgloss.Color("#9CA3AF")
	TextMutedColor     = lipgloss.Color("#6B7280")
)

// Panel styles
var (
	// Base panel style
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	// Focused panel style
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(FocusBorderColor).
				Padding(0, 1)

	// Panel title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	// Header row style
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextSecondaryColor)

	// Row styles
	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(lipgloss.Color("#374151"))

	MutedStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor)
)

// Text styles
var (
	// Buy/Sell text
	BuyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(BuyColor)

	SellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SellColor)

	// Price styles
	PriceStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	PriceUpStyle = lipgloss.NewStyle().
			Foreground(BuyColor)

	PriceDownStyle = lipgloss.NewStyle().
			Foreground(SellColor)

	// Size style
	SizeStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)

	// Timestamp style
	TimeStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor)

	// Spread line between asks and bids.
	SpreadStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	// Depth bar styles
	BuyBarStyle = lipgloss.NewStyle().
			Background(BuyBarColor).
			Foreground(BuyColor)

	SellBarStyle = lipgloss.NewStyle().
			Background(SellBarColor).
			Foreground(SellColor)
)

// Input styles
var (
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(FocusBorderColor).
				Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)

	OptionStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1)

	OptionSelectedStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(lipgloss.Color("#374151")).
				Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(SellColor)
)

// Chart styles (for candlestick)
var (
	CandleUpStyle = lipgloss.NewStyle().
			Foreground(BuyColor)

	CandleDownStyle = lipgloss.NewStyle().
			Foreground(SellColor)

	ChartAxisStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor)

	ChartLabelStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)
)

// Status bar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(BackgroundColor).
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	StatusBarKeyStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	StatusBarDescStyle = lipgloss.NewStyle().
				Foreground(TextSecondaryColor)

	StaleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)
)

// RenderTitle renders a panel title, highlighted when the panel has focus.
func RenderTitle(title string, focused bool) string {
	style := TitleStyle
	if focused {
		style = style.Foreground(FocusBorderColor)
	}
	return style.Render(title)
}

// Panel wraps content in the panel frame sized to width x height.
func Panel(title, content string, focused bool, width, height int) string {
	style := PanelStyle
	if focused {
		style = FocusedPanelStyle
	}
	body := lipgloss.JoinVertical(lipgloss.Left, RenderTitle(title, focused), content)
	return style.Width(max(width-2, 0)).Height(max(height-2, 0)).Render(body)
}

// ShortAddress abbreviates a hex address as 0x1234...abcd.
func ShortAddress(addr string) string {
	if len(addr) <= 12 || !strings.HasPrefix(addr, "0x") {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
