package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/zappabad/liquidbook/internal/candle"
	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/journal"
	"github.com/zappabad/liquidbook/internal/logger"
	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
)

type rowDTO struct {
	Tick       int64           `json:"tick"`
	Price      string          `json:"price"`
	Size       decimal.Decimal `json:"size"`
	Cumulative decimal.Decimal `json:"cumulative"`
	Depth      float64         `json:"depth"`
}

type bookDTO struct {
	Precision    float64   `json:"precision"`
	Bids         []rowDTO  `json:"bids"`
	Asks         []rowDTO  `json:"asks"`
	Spread       *string   `json:"spread"`
	CurrentTick  *int64    `json:"current_tick"`
	CurrentPrice *string   `json:"current_price"`
	BuyPercent   *float64  `json:"buy_percent"`
	SellPercent  *float64  `json:"sell_percent"`
	RefreshedAt  time.Time `json:"refreshed_at"`
}

// price is a float that encodes ±Inf and NaN as null, which encoding/json
// would otherwise refuse. Extreme ticks price out to those values.
type price float64

func (p price) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type candleDTO struct {
	Time  int64 `json:"time"`
	Open  price `json:"open"`
	High  price `json:"high"`
	Low   price `json:"low"`
	Close price `json:"close"`
}

type sourceDTO struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Stale       bool      `json:"stale"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success"`
	Failures    int64     `json:"failures"`
}

type orderDTO struct {
	ID           int64           `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	Account      string          `json:"account,omitempty"`
	Side         string          `json:"side"`
	Kind         string          `json:"kind"`
	Tick         int64           `json:"tick"`
	Price        price           `json:"price"`
	Volume       decimal.Decimal `json:"volume"`
	Status       string          `json:"status"`
	TxHash       string          `json:"tx_hash,omitempty"`
	OrderIndex   string          `json:"order_index,omitempty"`
	ExecutedTick int64           `json:"executed_tick"`
	Remaining    string          `json:"remaining,omitempty"`
	Error        string          `json:"error,omitempty"`
}

type tradeDTO struct {
	ID    string          `json:"id"`
	Price price           `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Total decimal.Decimal `json:"total"`
	Side  string          `json:"side"`
	Time  time.Time       `json:"time"`
}

func rowsDTO(levels []core.Level, precision float64) []rowDTO {
	rows := orderbookview.Rows(levels, precision, 0)
	out := make([]rowDTO, len(rows))
	for i, r := range rows {
		out[i] = rowDTO{
			Tick:       int64(r.Tick),
			Price:      r.Price,
			Size:       r.Size,
			Cumulative: r.Cumulative,
			Depth:      r.Depth,
		}
	}
	return out
}

func bookToDTO(b core.Book, codec core.Codec, precision float64) bookDTO {
	dto := bookDTO{
		Precision:   precision,
		Bids:        rowsDTO(b.Bids, precision),
		Asks:        rowsDTO(b.Asks, precision),
		RefreshedAt: b.RefreshedAt,
	}
	if b.SpreadOK {
		s := core.FormatPrice(b.Spread, precision)
		dto.Spread = &s
	}
	if b.HasCurrentTick {
		t := int64(b.CurrentTick)
		p := core.FormatPrice(codec.PriceFromTick(b.CurrentTick), precision)
		dto.CurrentTick, dto.CurrentPrice = &t, &p
	}
	if buy, sell, ok := orderbookview.Imbalance(b); ok {
		dto.BuyPercent, dto.SellPercent = &buy, &sell
	}
	return dto
}

func candlesToDTO(cs []candle.Candle) []candleDTO {
	out := make([]candleDTO, len(cs))
	for i, c := range cs {
		out[i] = toCandleDTO(c)
	}
	return out
}

func toCandleDTO(c candle.Candle) candleDTO {
	return candleDTO{Time: c.Time, Open: price(c.Open), High: price(c.High), Low: price(c.Low), Close: price(c.Close)}
}

func sourcesToDTO(ss []feedservice.SourceStatus) []sourceDTO {
	out := make([]sourceDTO, len(ss))
	for i, s := range ss {
		out[i] = sourceDTO{
			Name:        s.Name,
			State:       s.State.String(),
			Stale:       s.Stale,
			LastError:   s.LastError,
			LastSuccess: s.LastSuccess,
			Failures:    s.Failures,
		}
	}
	return out
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "market": s.cfg.Market})
}

func (s *Server) getBook(c *gin.Context) {
	precision := s.cfg.Precision
	if raw := c.Query("precision"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || !(p > 0) || math.IsInf(p, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "precision must be a positive number"})
			return
		}
		precision = p
	}

	book := s.book.Book()
	switch c.Query("side") {
	case "":
	case "bids":
		book.Bids, book.Asks = s.book.Levels(core.SideBuy), nil
	case "asks":
		book.Bids, book.Asks = nil, s.book.Levels(core.SideSell)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be bids or asks"})
		return
	}
	c.JSON(http.StatusOK, bookToDTO(book, s.feed.Codec(), precision))
}

func (s *Server) getCandles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"candles": candlesToDTO(s.feed.State().Candles)})
}

func (s *Server) getStatus(c *gin.Context) {
	st := s.feed.State()
	c.JSON(http.StatusOK, gin.H{
		"market":         s.cfg.Market,
		"depth":          st.Depth,
		"best_loaded":    st.BestLoaded,
		"tick_events":    st.TickEvents,
		"stale":          st.Stale(),
		"sources":        sourcesToDTO(st.Sources),
		"dropped_events": s.feed.DroppedEvents(),
		"ws_clients":     s.hub.Clients(),
	})
}

func (s *Server) getOrders(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.ErrorContext(c.Request.Context(), err, logger.NewField("route", "orders"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal unavailable"})
		return
	}
	out := make([]orderDTO, len(entries))
	for i, e := range entries {
		out[i] = entryToDTO(e)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func entryToDTO(e journal.Entry) orderDTO {
	return orderDTO{
		ID:           e.ID,
		CreatedAt:    e.CreatedAt,
		Account:      e.Account,
		Side:         e.Side.String(),
		Kind:         e.Kind.String(),
		Tick:         int64(e.Tick),
		Price:        price(e.Price),
		Volume:       e.Volume,
		Status:       e.Status,
		TxHash:       e.TxHash,
		OrderIndex:   e.OrderIndex,
		ExecutedTick: int64(e.ExecutedTick),
		Remaining:    e.Remaining,
		Error:        e.Error,
	}
}

func (s *Server) getMarket(c *gin.Context) {
	if s.market == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "market data disabled"})
		return
	}
	st := s.market.Stats()
	rows := s.market.RecentTrades(20)
	trades := make([]tradeDTO, len(rows))
	for i, r := range rows {
		trades[i] = tradeDTO{
			ID:    r.ID,
			Price: price(r.Price),
			Size:  r.Size,
			Total: r.Total,
			Side:  r.Side.String(),
			Time:  r.Time,
		}
	}
	c.JSON(http.StatusOK, gin.H{"stats": marketStats(st), "trades": trades})
}

// marketStats leaves out the ticker and mark figures until they arrive.
func marketStats(st marketview.Stats) gin.H {
	stats := gin.H{
		"instrument": st.Instrument.Name(),
		"stale":      st.Stale,
		"stale_from": st.StaleSources,
		"updated_at": st.UpdatedAt,
	}
	if st.HasTicker {
		stats["last"] = price(st.Last)
		stats["open_24h"] = price(st.Open24h)
		stats["high_24h"] = price(st.High24h)
		stats["low_24h"] = price(st.Low24h)
		stats["volume_24h"] = price(st.Volume24h)
		stats["change"] = price(st.Change)
		if st.ChangeOK {
			stats["change_percent"] = price(st.ChangePercent)
		}
	}
	if st.HasMark {
		stats["mark"] = price(st.Mark)
	}
	return stats
}
