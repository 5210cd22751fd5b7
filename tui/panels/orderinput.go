package panels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/tui/styles"
)

// OrderInputField represents the currently focused input field.
type OrderInputField int

const (
	FieldSide OrderInputField = iota
	FieldType
	FieldPrice
	FieldVolume
	FieldSubmit
)

// OrderSubmitMsg is sent when a valid order is submitted.
type OrderSubmitMsg struct {
	Side  core.Side
	Kind  core.OrderKind
	Price float64
	// Volume is in base units, before scaling by the size decimals.
	Volume decimal.Decimal
}

// OrderInvalidMsg is sent when the form does not describe a valid order.
type OrderInvalidMsg struct {
	Reason string
}

// OrderInputPanel is the order entry form.
type OrderInputPanel struct {
	priceInput  textinput.Model
	volumeInput textinput.Model

	sideOptions []string
	sideIndex   int
	typeOptions []string
	typeIndex   int

	currentField OrderInputField
	disabled     bool
	pending      bool

	focused bool
	width   int
	height  int
}

// NewOrderInputPanel creates the order form. A disabled form renders but
// never submits.
func NewOrderInputPanel(disabled bool) *OrderInputPanel {
	priceInput := textinput.New()
	priceInput.Placeholder = "Price"
	priceInput.Width = 14
	priceInput.CharLimit = 20

	volumeInput := textinput.New()
	volumeInput.Placeholder = "Volume"
	volumeInput.Width = 14
	volumeInput.CharLimit = 24

	return &OrderInputPanel{
		priceInput:  priceInput,
		volumeInput: volumeInput,
		sideOptions: []string{"BUY", "SELL"},
		typeOptions: []string{"LIMIT", "MARKET"},
		disabled:    disabled,
	}
}

// Init initializes the panel.
func (p *OrderInputPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *OrderInputPanel) Update(msg tea.Msg) (*OrderInputPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("down"))):
			p.nextField()
			return p, nil

		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("up"))):
			p.prevField()
			return p, nil

		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("enter"))):
			if p.currentField == FieldSubmit {
				return p, p.submitOrder()
			}
			p.nextField()
			return p, nil

		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("left"))):
			switch p.currentField {
			case FieldSide:
				p.sideIndex = max(p.sideIndex-1, 0)
				return p, nil
			case FieldType:
				p.typeIndex = max(p.typeIndex-1, 0)
				return p, nil
			}

		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("right"))):
			switch p.currentField {
			case FieldSide:
				p.sideIndex = min(p.sideIndex+1, len(p.sideOptions)-1)
				return p, nil
			case FieldType:
				p.typeIndex = min(p.typeIndex+1, len(p.typeOptions)-1)
				return p, nil
			}
		}
	}

	var cmd tea.Cmd
	switch p.currentField {
	case FieldPrice:
		p.priceInput, cmd = p.priceInput.Update(msg)
	case FieldVolume:
		p.volumeInput, cmd = p.volumeInput.Update(msg)
	}
	return p, cmd
}

// View renders the panel.
func (p *OrderInputPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Side", FieldSide, p.renderOptions(p.sideOptions, p.sideIndex, FieldSide)))
	content.WriteString("\n")
	content.WriteString(p.renderField("Type", FieldType, p.renderOptions(p.typeOptions, p.typeIndex, FieldType)))
	content.WriteString("\n")

	if p.isLimit() {
		content.WriteString(p.renderField("Price", FieldPrice, p.renderInput(p.priceInput, FieldPrice)))
		content.WriteString("\n")
	}
	content.WriteString(p.renderField("Volume", FieldVolume, p.renderInput(p.volumeInput, FieldVolume)))
	content.WriteString("\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true).Foreground(styles.PrimaryColor)
	}
	label := "  [Submit Order]  "
	switch {
	case p.disabled:
		label = "  [Trading disabled]  "
	case p.pending:
		label = "  [Submitting...]  "
	}
	content.WriteString(submitStyle.Render(label))
	content.WriteString("\n")
	content.WriteString(p.renderOrderSummary())

	return styles.Panel("📝 Order Entry", content.String(), p.focused, p.width, p.height)
}

func (p *OrderInputPanel) renderField(label string, field OrderInputField, inputView string) string {
	labelStyle := styles.LabelStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Foreground(styles.PrimaryColor)
	}
	return labelStyle.Render(fmt.Sprintf("%-8s", label)) + inputView
}

func (p *OrderInputPanel) renderInput(in textinput.Model, field OrderInputField) string {
	style := styles.InputStyle
	if p.currentField == field && p.focused {
		style = styles.FocusedInputStyle
	}
	return style.Render(in.View())
}

func (p *OrderInputPanel) renderOptions(options []string, selected int, field OrderInputField) string {
	items := make([]string, 0, len(options))
	for i, opt := range options {
		style := styles.OptionStyle
		if i == selected {
			if p.currentField == field && p.focused {
				style = styles.OptionSelectedStyle
			} else {
				style = styles.OptionStyle.Bold(true)
			}
			switch opt {
			case "BUY":
				style = style.Foreground(styles.BuyColor)
			case "SELL":
				style = style.Foreground(styles.SellColor)
			}
		}
		items = append(items, style.Render(opt))
	}
	return strings.Join(items, " | ")
}

func (p *OrderInputPanel) renderOrderSummary() string {
	side := p.sideOptions[p.sideIndex]
	sideStyle := styles.BuyStyle
	if side == "SELL" {
		sideStyle = styles.SellStyle
	}
	parts := []string{sideStyle.Render(side), p.typeOptions[p.typeIndex]}

	if p.isLimit() {
		price := p.priceInput.Value()
		if price == "" {
			price = "0"
		}
		parts = append(parts, "@"+price)
	}
	vol := p.volumeInput.Value()
	if vol == "" {
		vol = "0"
	}
	parts = append(parts, "x"+vol)

	return styles.HeaderStyle.Render("Order: ") + strings.Join(parts, " ")
}

func (p *OrderInputPanel) isLimit() bool {
	return p.typeIndex == 0
}

func (p *OrderInputPanel) nextField() {
	switch p.currentField {
	case FieldSide:
		p.currentField = FieldType
	case FieldType:
		if p.isLimit() {
			p.currentField = FieldPrice
		} else {
			p.currentField = FieldVolume
		}
	case FieldPrice:
		p.currentField = FieldVolume
	case FieldVolume:
		p.currentField = FieldSubmit
	case FieldSubmit:
		p.currentField = FieldSide
	}
	p.syncFocus()
}

func (p *OrderInputPanel) prevField() {
	switch p.currentField {
	case FieldSide:
		p.currentField = FieldSubmit
	case FieldType:
		p.currentField = FieldSide
	case FieldPrice:
		p.currentField = FieldType
	case FieldVolume:
		if p.isLimit() {
			p.currentField = FieldPrice
		} else {
			p.currentField = FieldType
		}
	case FieldSubmit:
		p.currentField = FieldVolume
	}
	p.syncFocus()
}

func (p *OrderInputPanel) syncFocus() {
	p.priceInput.Blur()
	p.volumeInput.Blur()
	if !p.focused {
		return
	}
	switch p.currentField {
	case FieldPrice:
		p.priceInput.Focus()
	case FieldVolume:
		p.volumeInput.Focus()
	}
}

// Validate reads the form into an order.
func (p *OrderInputPanel) Validate() (OrderSubmitMsg, error) {
	order := OrderSubmitMsg{
		Side: core.SideBuy,
		Kind: core.OrderKindLimit,
	}
	if p.sideIndex == 1 {
		order.Side = core.SideSell
	}
	if !p.isLimit() {
		order.Kind = core.OrderKindMarket
	}

	if order.Kind == core.OrderKindLimit {
		price, err := strconv.ParseFloat(strings.TrimSpace(p.priceInput.Value()), 64)
		if err != nil || !(price > 0) {
			return OrderSubmitMsg{}, errors.New("price must be a positive number")
		}
		order.Price = price
	}

	vol, err := decimal.NewFromString(strings.TrimSpace(p.volumeInput.Value()))
	if err != nil || !vol.IsPositive() {
		return OrderSubmitMsg{}, errors.New("volume must be a positive number")
	}
	order.Volume = vol
	return order, nil
}

func (p *OrderInputPanel) submitOrder() tea.Cmd {
	if p.disabled {
		return func() tea.Msg { return OrderInvalidMsg{Reason: "trading is disabled: no private key configured"} }
	}
	if p.pending {
		return nil
	}
	order, err := p.Validate()
	if err != nil {
		return func() tea.Msg { return OrderInvalidMsg{Reason: err.Error()} }
	}
	p.pending = true
	return func() tea.Msg { return order }
}

// Done re-enables submission after the previous order finished.
func (p *OrderInputPanel) Done() {
	p.pending = false
}

// SetFocus sets the focus state of the panel.
func (p *OrderInputPanel) SetFocus(focused bool) {
	p.focused = focused
	p.syncFocus()
}

// SetSize sets the panel dimensions.
func (p *OrderInputPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Reset clears the input fields.
func (p *OrderInputPanel) Reset() {
	p.priceInput.SetValue("")
	p.volumeInput.SetValue("")
	p.currentField = FieldSide
	p.sideIndex = 0
	p.typeIndex = 0
	p.syncFocus()
}
