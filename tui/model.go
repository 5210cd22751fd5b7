package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/liquidbook/internal/chain"
	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/journal"
	"github.com/zappabad/liquidbook/internal/logger"
	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
	"github.com/zappabad/liquidbook/tui/panels"
	"github.com/zappabad/liquidbook/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusMarket PanelFocus = iota
	FocusOrderbook
	FocusChart
	FocusHistory
	FocusOrderInput

	panelCount = 5
)

// recentTrades is how many trades the market panel lists.
const recentTrades = 50

// Feed is the order book feed the terminal renders.
type Feed interface {
	State() feedservice.State
	Events() <-chan feedservice.Update
	SetDepth(n int)
	Codec() core.Codec
	DroppedEvents() int64
}

// Market is the public market data behind the market panel.
type Market interface {
	Stats() marketview.Stats
	RecentTrades(n int) []orderbookview.TradeRow
	Events() <-chan marketview.MarketEvent
}

// Options configures the terminal model.
type Options struct {
	Feed Feed
	// Market is nil when market data is disabled.
	Market Market
	// Trader is nil when no private key is configured.
	Trader Trader
	// Journal records order submissions; nil records nothing.
	Journal journal.Recorder
	Log     logger.Interface

	MarketName   string
	Account      string
	SizeDecimals int32
	Precisions   []float64
	Precision    float64
	Depth        int
	DeepDepth    int
	MaxCandles   int
	// OrderTimeout bounds a single submission, receipt included.
	OrderTimeout time.Duration
}

// Model is the main TUI application model.
type Model struct {
	feed    Feed
	market  Market
	trader  Trader
	journal journal.Recorder
	log     logger.Interface

	codec        core.Codec
	sizeDecimals int32
	orderTimeout time.Duration

	marketPanel     *panels.MarketPanel
	orderbookPanel  *panels.OrderbookPanel
	chartPanel      *panels.CandlestickPanel
	historyPanel    *panels.HistoryPanel
	orderInputPanel *panels.OrderInputPanel

	focusedPanel PanelFocus

	width  int
	height int

	stale     []string
	statusMsg string
	ready     bool
}

// NewModel creates a new TUI model and loads whatever the services already
// hold.
func NewModel(opts Options) *Model {
	if opts.Journal == nil {
		opts.Journal = journal.Noop{}
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.OrderTimeout <= 0 {
		opts.OrderTimeout = 3 * time.Minute
	}
	codec := opts.Feed.Codec()

	m := &Model{
		feed:            opts.Feed,
		market:          opts.Market,
		trader:          opts.Trader,
		journal:         opts.Journal,
		log:             opts.Log.WithFields(logger.NewField("component", "tui")),
		codec:           codec,
		sizeDecimals:    opts.SizeDecimals,
		orderTimeout:    opts.OrderTimeout,
		marketPanel:     panels.NewMarketPanel(opts.Market == nil),
		orderbookPanel:  panels.NewOrderbookPanel(opts.MarketName, codec, opts.Precisions, opts.Precision, opts.Depth, opts.DeepDepth),
		chartPanel:      panels.NewCandlestickPanel(opts.MarketName, opts.MaxCandles),
		historyPanel:    panels.NewHistoryPanel(codec, opts.Account),
		orderInputPanel: panels.NewOrderInputPanel(opts.Trader == nil),
		focusedPanel:    FocusOrderbook,
	}
	m.chartPanel.SetPrecision(m.orderbookPanel.Precision())
	m.syncState()
	if m.market != nil {
		m.syncMarket()
	}
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.orderbookPanel.Init(),
		m.marketPanel.Init(),
		m.chartPanel.Init(),
		m.historyPanel.Init(),
		m.orderInputPanel.Init(),
		m.listenFeed(),
		m.tickRefresh(),
	}
	if m.market != nil {
		cmds = append(cmds, m.listenMarket())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focusedPanel = (m.focusedPanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount
			return m, nil
		case "f1":
			m.focusedPanel = FocusMarket
			return m, nil
		case "f2":
			m.focusedPanel = FocusOrderbook
			return m, nil
		case "f3":
			m.focusedPanel = FocusChart
			return m, nil
		case "f4":
			m.focusedPanel = FocusHistory
			return m, nil
		case "f5":
			m.focusedPanel = FocusOrderInput
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case feedMsg:
		m.applyFeed(msg.update)
		cmds = append(cmds, m.listenFeed())

	case marketMsg:
		m.applyMarket(msg.event)
		cmds = append(cmds, m.listenMarket())

	case closedMsg:
		m.log.Debug("event channel closed", logger.NewField("source", msg.source))

	case panels.DepthChangedMsg:
		m.feed.SetDepth(msg.Depth)

	case panels.OrderSubmitMsg:
		m.statusMsg = "Submitting order..."
		cmds = append(cmds, m.submitOrder(msg))

	case panels.OrderInvalidMsg:
		m.statusMsg = "Invalid order: " + msg.Reason

	case orderResultMsg:
		m.orderInputPanel.Done()
		m.statusMsg = msg.message

	case tickMsg:
		m.refreshStatus()
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
	case FocusOrderbook:
		m.orderbookPanel, cmd = m.orderbookPanel.Update(msg)
		m.chartPanel.SetPrecision(m.orderbookPanel.Precision())
	case FocusHistory:
		m.historyPanel, cmd = m.historyPanel.Update(msg)
	case FocusOrderInput:
		m.orderInputPanel, cmd = m.orderInputPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// applyFeed routes one feed update to the panel it changes.
func (m *Model) applyFeed(u feedservice.Update) {
	switch u.Kind {
	case feedservice.UpdateBook:
		m.orderbookPanel.SetBook(u.Book)
	case feedservice.UpdateCandlesReset:
		m.chartPanel.SetData(u.Candles)
	case feedservice.UpdateCandle:
		m.chartPanel.Update(u.Candle)
	case feedservice.UpdateHistory:
		m.historyPanel.SetOrders(u.Orders)
	case feedservice.UpdateStatus:
		m.refreshStatus()
	}
}

func (m *Model) applyMarket(ev marketview.MarketEvent) {
	m.marketPanel.SetStats(ev.Stats)
	if ev.Kind == marketview.EventTrades {
		m.marketPanel.SetTrades(m.market.RecentTrades(recentTrades))
	}
}

// syncState loads the feed's current snapshot. Updates published before the
// model existed are not replayed, so this is the starting point.
func (m *Model) syncState() {
	st := m.feed.State()
	m.orderbookPanel.SetBook(st.Book)
	if len(st.Candles) > 0 {
		m.chartPanel.SetData(st.Candles)
	}
	m.historyPanel.SetOrders(st.Orders)
	m.stale = staleSources(st)
}

func (m *Model) syncMarket() {
	m.marketPanel.SetStats(m.market.Stats())
	m.marketPanel.SetTrades(m.market.RecentTrades(recentTrades))
}

func (m *Model) refreshStatus() {
	m.stale = staleSources(m.feed.State())
}

func staleSources(st feedservice.State) []string {
	var out []string
	for _, s := range st.Sources {
		if s.Stale {
			out = append(out, s.Name)
		}
	}
	return out
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket)
	m.orderbookPanel.SetFocus(m.focusedPanel == FocusOrderbook)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.historyPanel.SetFocus(m.focusedPanel == FocusHistory)
	m.orderInputPanel.SetFocus(m.focusedPanel == FocusOrderInput)

	// ┌──────────┬────────────┬─────────────┐
	// │  Market  │ Order book │    Chart    │
	// ├──────────┴──────┬─────┴─────────────┤
	// │     Orders      │    Order entry    │
	// └─────────────────┴───────────────────┘
	leftWidth := m.width / 4
	middleWidth := m.width * 3 / 8
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := (m.height - 1) * 2 / 3
	bottomHeight := m.height - topHeight - 1

	m.marketPanel.SetSize(leftWidth, topHeight)
	m.orderbookPanel.SetSize(middleWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.marketPanel.View(),
		m.orderbookPanel.View(),
		m.chartPanel.View(),
	)

	historyWidth := m.width / 2
	m.historyPanel.SetSize(historyWidth, bottomHeight)
	m.orderInputPanel.SetSize(m.width-historyWidth, bottomHeight)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.historyPanel.View(),
		m.orderInputPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := []string{
		styles.StatusBarKeyStyle.Render("F1-F5/Tab") + styles.StatusBarDescStyle.Render(" panels"),
		styles.StatusBarKeyStyle.Render("p") + styles.StatusBarDescStyle.Render(" precision"),
		styles.StatusBarKeyStyle.Render("v") + styles.StatusBarDescStyle.Render(" view"),
		styles.StatusBarKeyStyle.Render("d") + styles.StatusBarDescStyle.Render(" depth"),
		styles.StatusBarKeyStyle.Render("q") + styles.StatusBarDescStyle.Render(" quit"),
	}
	line := strings.Join(help, " │ ")

	if len(m.stale) > 0 {
		line += " │ " + styles.StaleStyle.Render("stale: "+strings.Join(m.stale, ", "))
	}
	if n := m.feed.DroppedEvents(); n > 0 {
		line += fmt.Sprintf(" │ dropped %d", n)
	}
	if m.statusMsg != "" {
		line += " │ " + m.statusMsg
	}
	return styles.StatusBarStyle.Width(m.width).Render(line)
}

// submitOrder places the order and journals the outcome, whatever it is.
func (m *Model) submitOrder(order panels.OrderSubmitMsg) tea.Cmd {
	trader, rec, log := m.trader, m.journal, m.log
	codec, decimals, timeout := m.codec, m.sizeDecimals, m.orderTimeout

	return func() tea.Msg {
		if trader == nil {
			return orderResultMsg{message: "Trading is disabled"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		account := trader.Account()
		entry := journal.Entry{
			CreatedAt: time.Now().UTC(),
			Account:   account.Hex(),
			Side:      order.Side,
			Kind:      order.Kind,
			Price:     order.Price,
			Volume:    order.Volume,
		}

		var (
			res chain.PlaceOrderResult
			err error
		)
		req, err := orderRequest(order, codec, decimals, account)
		if err == nil {
			entry.Tick = req.Tick
			res, err = trader.PlaceOrder(ctx, req)
		}
		entry = entry.Complete(res, err)

		if _, jerr := rec.Record(context.Background(), entry); jerr != nil {
			log.Error(jerr, logger.NewField("tx_hash", entry.TxHash))
		}

		if err != nil {
			log.Warn("order failed", logger.NewField("status", entry.Status), logger.NewField("error", err.Error()))
			return orderResultMsg{message: chain.Describe(err), err: err}
		}
		return orderResultMsg{message: describeResult(order, res)}
	}
}

func describeResult(order panels.OrderSubmitMsg, res chain.PlaceOrderResult) string {
	msg := fmt.Sprintf("Order placed: %s %s", order.Side, order.Kind)
	if res.OrderIndex != nil {
		msg += " #" + res.OrderIndex.String()
	}
	if order.Kind == core.OrderKindMarket {
		msg += fmt.Sprintf(" at tick %d", res.ExecutedTick)
	}
	if res.RemainingVolume != nil && res.RemainingVolume.Sign() > 0 {
		msg += " remaining " + res.RemainingVolume.String()
	}
	return msg + " tx " + styles.ShortAddress(res.TxHash.Hex())
}

func (m *Model) listenFeed() tea.Cmd {
	events := m.feed.Events()
	return func() tea.Msg {
		u, ok := <-events
		if !ok {
			return closedMsg{source: "feed"}
		}
		return feedMsg{update: u}
	}
}

func (m *Model) listenMarket() tea.Cmd {
	events := m.market.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{source: "market"}
		}
		return marketMsg{event: ev}
	}
}

// tickMsg is sent periodically to refresh the status bar.
type tickMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

type feedMsg struct {
	update feedservice.Update
}

type marketMsg struct {
	event marketview.MarketEvent
}

type closedMsg struct {
	source string
}

// orderResultMsg is sent after an order is processed.
type orderResultMsg struct {
	message string
	err     error
}
