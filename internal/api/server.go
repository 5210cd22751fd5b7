// Package api serves the derived order book, candles and journal over HTTP
// and pushes feed updates to websocket clients.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/journal"
	"github.com/zappabad/liquidbook/internal/logger"
	marketview "github.com/zappabad/liquidbook/internal/market/view"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	orderbookview "github.com/zappabad/liquidbook/internal/orderbook/view"
)

// Feed is the read side of the feed service.
type Feed interface {
	State() feedservice.State
	Codec() core.Codec
	DroppedEvents() int64
}

// Market is the read side of the market service.
type Market interface {
	Stats() marketview.Stats
	RecentTrades(n int) []orderbookview.TradeRow
}

// Config configures the server.
type Config struct {
	Addr          string
	Market        string
	Precision     float64
	RateLimit     float64
	RateBurst     int
	AllowedOrigin string
}

// Server wires HTTP endpoints around the feed.
type Server struct {
	cfg     Config
	router  *gin.Engine
	feed    Feed
	market  Market
	journal journal.Recorder
	book    *orderbookview.BookView
	hub     *Hub
	log     logger.Interface
	http    *http.Server
}

// NewServer builds the router. market and rec may be nil.
func NewServer(cfg Config, feed Feed, market Market, rec journal.Recorder, log logger.Interface) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if rec == nil {
		rec = journal.Noop{}
	}
	if !(cfg.Precision > 0) {
		cfg.Precision = 0.01
	}
	log = log.WithFields(logger.NewField("component", "api"))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(log))
	r.Use(RateLimitMiddleware(NewIPLimiter(cfg.RateLimit, cfg.RateBurst)))
	r.Use(CORSMiddleware(cfg.AllowedOrigin))

	s := &Server{
		cfg:     cfg,
		router:  r,
		feed:    feed,
		market:  market,
		journal: rec,
		book:    orderbookview.NewBookView(),
		hub:     NewHub(log),
		log:     log,
	}
	s.book.SetBook(feed.State().Book)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/ws", s.websocket)

	api := s.router.Group("/api")
	{
		api.GET("/book", s.getBook)
		api.GET("/candles", s.getCandles)
		api.GET("/status", s.getStatus)
		api.GET("/orders", s.getOrders)
		api.GET("/market", s.getMarket)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket fan-out.
func (s *Server) Hub() *Hub { return s.hub }

// Publish keeps the served book current and forwards a feed update to
// websocket clients.
func (s *Server) Publish(u feedservice.Update) {
	if u.Kind == feedservice.UpdateBook {
		s.book.SetBook(u.Book)
	}
	s.hub.Broadcast(messageFor(u, s.feed.Codec(), s.cfg.Precision))
}

// PublishMarket forwards a market event to websocket clients.
func (s *Server) PublishMarket(ev marketview.MarketEvent) {
	s.hub.Broadcast(marketMessage(ev))
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", logger.NewField("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
