package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/logger"
	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

const (
	writeWait   = 5 * time.Second
	clientQueue = 64
)

// Message is one websocket frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func messageFor(u feedservice.Update, codec core.Codec, precision float64) Message {
	m := Message{Type: u.Kind.String()}
	switch u.Kind {
	case feedservice.UpdateBook:
		m.Data = bookToDTO(u.Book, codec, precision)
	case feedservice.UpdateCandlesReset:
		m.Data = candlesToDTO(u.Candles)
	case feedservice.UpdateCandle:
		m.Data = toCandleDTO(u.Candle)
	case feedservice.UpdateStatus:
		m.Data = sourcesToDTO([]feedservice.SourceStatus{u.Status})[0]
	case feedservice.UpdateHistory:
		m.Data = gin.H{"orders": len(u.Orders)}
	}
	return m
}

// marketMessage carries the market widget after any market change.
func marketMessage(ev marketview.MarketEvent) Message {
	return Message{Type: "market", Data: gin.H{"stats": marketStats(ev.Stats), "new_trades": ev.NewTrades}}
}

// Hub fans messages out to websocket clients. A client that cannot keep up
// is disconnected rather than slowing everyone else down.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
	log     logger.Interface
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub returns an empty hub.
func NewHub(log logger.Interface) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends m to every client.
func (h *Hub) Broadcast(m Message) {
	payload, err := json.Marshal(m)
	if err != nil {
		h.log.Error(err, logger.NewField("type", m.Type))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			c.close()
			h.log.Warn("dropping slow websocket client")
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	origin := s.cfg.AllowedOrigin
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return origin == "" || origin == "*" || r.Header.Get("Origin") == origin
		},
	}
}

func (s *Server) websocket(c *gin.Context) {
	up := s.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WarnContext(c.Request.Context(), "ws upgrade failed", logger.NewField("error", err.Error()))
		return
	}
	defer conn.Close()

	// the first frame is the current book so a client never starts blank
	first := Message{Type: feedservice.UpdateBook.String(), Data: bookToDTO(s.book.Book(), s.feed.Codec(), s.cfg.Precision)}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(first); err != nil {
		return
	}

	cl := &client{conn: conn, send: make(chan []byte, clientQueue)}
	if !s.hub.add(cl) {
		return
	}
	defer s.hub.remove(cl)

	// reads only detect the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
