// Package app wires the configured services together and owns their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zappabad/liquidbook/internal/chain"
	"github.com/zappabad/liquidbook/internal/config"
	feedmock "github.com/zappabad/liquidbook/internal/feed/mock"
	feedservice "github.com/zappabad/liquidbook/internal/feed/service"
	"github.com/zappabad/liquidbook/internal/journal"
	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/internal/market"
	marketservice "github.com/zappabad/liquidbook/internal/market/service"
	"github.com/zappabad/liquidbook/internal/okx"
	"github.com/zappabad/liquidbook/internal/orderbook/core"
	"github.com/zappabad/liquidbook/internal/subgraph"
)

// MockAccount is the account whose history the mock feed serves.
const MockAccount = "0x00000000000000000000000000000000000000aa"

// App owns every subsystem and manages their lifecycle.
type App struct {
	Feed    *feedservice.Service
	Market  *marketservice.MarketService
	Trader  *chain.Executor
	Journal journal.Recorder
	// Account is the user whose order history is polled, if any.
	Account string

	cfg    *config.Config
	log    logger.Interface
	client *ethclient.Client

	mu     sync.Mutex
	closed bool
}

// New builds the services described by cfg. Nothing polls until Start.
func New(ctx context.Context, cfg *config.Config, log logger.Interface) (*App, error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{cfg: cfg, log: log}

	var trader *chain.Executor
	src, err := a.sources(ctx, &trader)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Trader = trader
	a.Account = src.User

	a.Feed = feedservice.NewService(FeedConfig(cfg), src, log)

	if !cfg.OKX.Disabled {
		inst := market.ParseInstrument(cfg.OKX.InstID)
		client := okx.NewClient(cfg.OKX.BaseURL, inst.ID, okx.WithRateLimit(cfg.OKX.RateLimit, 1))
		mcfg := marketservice.DefaultConfig()
		mcfg.Interval = cfg.OKX.PollInterval
		mcfg.TradeLimit = cfg.OKX.TradeLimit
		a.Market = marketservice.NewMarketService(inst, client, mcfg, log)
	}

	a.Journal = a.openJournal()
	return a, nil
}

// sources picks the mock walk or the live subgraph and chain readers.
func (a *App) sources(ctx context.Context, trader **chain.Executor) (feedservice.Sources, error) {
	cfg := a.cfg
	if cfg.Feed.Mode == config.ModeMock {
		walk := feedmock.NewRandomWalk(cfg.Feed.MockSeed)
		a.log.Info("using mock feed", logger.NewField("seed", cfg.Feed.MockSeed))
		return feedservice.Sources{
			Ticks:   walk,
			Best:    walk,
			Prices:  walk,
			History: walk,
			User:    MockAccount,
		}, nil
	}

	client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return feedservice.Sources{}, err
	}
	a.client = client

	sg := subgraph.NewClient(cfg.Subgraph.URL, cfg.Market.SizeDecimals, subgraph.WithLogger(a.log))
	src := feedservice.Sources{
		Ticks:  sg,
		Best:   chain.NewReader(common.HexToAddress(cfg.Chain.BitmapAddress), client),
		Prices: sg,
	}

	if cfg.Chain.PrivateKey != "" {
		auth, err := chain.NewTransactor(cfg.Chain.PrivateKey, cfg.Chain.ChainID)
		if err != nil {
			return feedservice.Sources{}, err
		}
		*trader = chain.NewExecutor(common.HexToAddress(cfg.Chain.EngineAddress), client, auth, cfg.Chain.ReceiptTimeout, a.log)
		src.History = sg
		src.User = auth.From.Hex()
		a.log.Info("trading enabled", logger.NewField("account", src.User))
	}
	return src, nil
}

// openJournal falls back to discarding entries when sqlite cannot be opened,
// since the journal is a convenience and not a requirement for trading.
func (a *App) openJournal() journal.Recorder {
	path := a.cfg.Journal.SQLitePath
	if path == "" {
		return journal.Noop{}
	}
	rec, err := journal.NewSQLiteRecorder(path, a.log)
	if err != nil {
		a.log.Warn("journal disabled", logger.NewField("path", path), logger.NewField("error", err.Error()))
		return journal.Noop{}
	}
	return rec
}

// Start begins polling.
func (a *App) Start() {
	a.Feed.Start()
	if a.Market != nil {
		a.Market.Start()
	}
}

// Close shuts down all subsystems in reverse dependency order.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	if a.Market != nil {
		a.Market.Close()
	}
	if a.Feed != nil {
		a.Feed.Close()
	}
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			a.log.Error(fmt.Errorf("close journal: %w", err))
		}
	}
	if a.client != nil {
		a.client.Close()
	}
}

// FeedConfig maps the file configuration onto the feed service.
func FeedConfig(cfg *config.Config) feedservice.Config {
	return feedservice.Config{
		Codec:            core.NewCodec(cfg.Market.TickBase),
		Depth:            cfg.Market.Depth,
		TickInterval:     cfg.Feed.TickInterval,
		BestTickInterval: cfg.Feed.BestTickInterval,
		PriceInterval:    cfg.Feed.PriceInterval,
		HistoryInterval:  cfg.Feed.HistoryInterval,
		Timeout:          cfg.Feed.Timeout,
		UpdatesPerCandle: cfg.Candle.UpdatesPerCandle,
		CandleInterval:   cfg.Candle.IntervalSeconds,
		MaxCandles:       cfg.Candle.MaxCandles,
		EventBuffer:      cfg.Feed.EventBuffer,
		DropEvents:       cfg.Feed.DropEvents,
	}
}
