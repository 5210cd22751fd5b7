package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIQUIDBOOK_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Feed modes.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Market   MarketConfig   `yaml:"market" envPrefix:"MARKET_"`
	Feed     FeedConfig     `yaml:"feed" envPrefix:"FEED_"`
	Subgraph SubgraphConfig `yaml:"subgraph" envPrefix:"SUBGRAPH_"`
	Chain    ChainConfig    `yaml:"chain" envPrefix:"CHAIN_"`
	OKX      OKXConfig      `yaml:"okx" envPrefix:"OKX_"`
	Candle   CandleConfig   `yaml:"candle" envPrefix:"CANDLE_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Journal  JournalConfig  `yaml:"journal" envPrefix:"JOURNAL_"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	// LogFile is used by the terminal client, which owns stdout.
	LogFile string `yaml:"log_file" env:"LOG_FILE"`
}

// MarketConfig describes the single traded market.
type MarketConfig struct {
	Name         string    `yaml:"name" env:"NAME"`
	TickBase     float64   `yaml:"tick_base" env:"TICK_BASE"`
	SizeDecimals int32     `yaml:"size_decimals" env:"SIZE_DECIMALS"`
	Precisions   []float64 `yaml:"precisions" env:"PRECISIONS" envSeparator:","`
	Precision    float64   `yaml:"precision" env:"PRECISION"`
	Depth        int       `yaml:"depth" env:"DEPTH"`
	DeepDepth    int       `yaml:"deep_depth" env:"DEEP_DEPTH"`
}

// FeedConfig controls the polling cadences of the book and price sources.
type FeedConfig struct {
	Mode             string        `yaml:"mode" env:"MODE"`
	TickInterval     time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	BestTickInterval time.Duration `yaml:"best_tick_interval" env:"BEST_TICK_INTERVAL"`
	PriceInterval    time.Duration `yaml:"price_interval" env:"PRICE_INTERVAL"`
	HistoryInterval  time.Duration `yaml:"history_interval" env:"HISTORY_INTERVAL"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	EventBuffer      int           `yaml:"event_buffer" env:"EVENT_BUFFER"`
	DropEvents       bool          `yaml:"drop_events" env:"DROP_EVENTS"`
	MockSeed         int64         `yaml:"mock_seed" env:"MOCK_SEED"`
}

type SubgraphConfig struct {
	URL string `yaml:"url" env:"URL"`
}

// ChainConfig points at the engine and bitmap contracts.
type ChainConfig struct {
	RPCURL         string        `yaml:"rpc_url" env:"RPC_URL"`
	ChainID        int64         `yaml:"chain_id" env:"CHAIN_ID"`
	EngineAddress  string        `yaml:"engine_address" env:"ENGINE_ADDRESS"`
	BitmapAddress  string        `yaml:"bitmap_address" env:"BITMAP_ADDRESS"`
	PrivateKey     string        `yaml:"-" env:"PRIVATE_KEY"`
	ReceiptTimeout time.Duration `yaml:"receipt_timeout" env:"RECEIPT_TIMEOUT"`
}

type OKXConfig struct {
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	InstID       string        `yaml:"inst_id" env:"INST_ID"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	TradeLimit   int           `yaml:"trade_limit" env:"TRADE_LIMIT"`
	RateLimit    float64       `yaml:"rate_limit" env:"RATE_LIMIT"`
	Disabled     bool          `yaml:"disabled" env:"DISABLED"`
}

type CandleConfig struct {
	UpdatesPerCandle int   `yaml:"updates_per_candle" env:"UPDATES_PER_CANDLE"`
	IntervalSeconds  int64 `yaml:"interval_seconds" env:"INTERVAL_SECONDS"`
	MaxCandles       int   `yaml:"max_candles" env:"MAX_CANDLES"`
}

type ServerConfig struct {
	Addr          string  `yaml:"addr" env:"ADDR"`
	RateLimit     float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst     int     `yaml:"rate_burst" env:"RATE_BURST"`
	AllowedOrigin string  `yaml:"allowed_origin" env:"ALLOWED_ORIGIN"`
}

type JournalConfig struct {
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:        "liquidbook",
			Environment: "development",
			LogLevel:    "info",
			LogFile:     "liquidbook.log",
		},
		Market: MarketConfig{
			Name:         "WETH/USDT",
			TickBase:     1.0001,
			SizeDecimals: 6,
			Precisions:   []float64{0.01, 0.1, 1},
			Precision:    0.01,
			Depth:        7,
			DeepDepth:    13,
		},
		Feed: FeedConfig{
			Mode:             ModeLive,
			TickInterval:     time.Second,
			BestTickInterval: 50 * time.Second,
			PriceInterval:    time.Second,
			HistoryInterval:  5 * time.Second,
			Timeout:          10 * time.Second,
			EventBuffer:      256,
			DropEvents:       true,
			MockSeed:         1,
		},
		Subgraph: SubgraphConfig{
			URL: "http://localhost:42069/graphql",
		},
		Chain: ChainConfig{
			RPCURL:         "http://localhost:8545",
			ChainID:        31337,
			EngineAddress:  "0xcd352431d0599310b0d4634782fc118b43a4d8b6",
			BitmapAddress:  "0x14ef4e715dd8541cc7887705581083e28ad3aeff",
			ReceiptTimeout: 2 * time.Minute,
		},
		OKX: OKXConfig{
			BaseURL:      "https://www.okx.com",
			InstID:       "ETH-USDC",
			PollInterval: time.Second,
			TradeLimit:   20,
			RateLimit:    5,
		},
		Candle: CandleConfig{
			UpdatesPerCandle: 1,
			IntervalSeconds:  60,
			MaxCandles:       500,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 20,
			RateBurst: 40,
		},
		Journal: JournalConfig{
			SQLitePath: "data/liquidbook.db",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then .env, then LIQUIDBOOK_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !(c.Market.TickBase > 1) {
		add("market.tick_base must be greater than 1")
	}
	if c.Market.SizeDecimals < 0 || c.Market.SizeDecimals > 18 {
		add("market.size_decimals must be within [0, 18]")
	}
	if len(c.Market.Precisions) == 0 {
		add("market.precisions must not be empty")
	}
	for _, p := range c.Market.Precisions {
		if !(p > 0) {
			add("market.precisions must be positive, got %v", p)
		}
	}
	if !(c.Market.Precision > 0) {
		add("market.precision must be positive")
	}
	if c.Market.Depth < 1 || c.Market.DeepDepth < c.Market.Depth {
		add("market.depth must be positive and not exceed market.deep_depth")
	}

	switch c.Feed.Mode {
	case ModeLive, ModeMock:
	default:
		add("feed.mode must be %q or %q, got %q", ModeLive, ModeMock, c.Feed.Mode)
	}
	for name, d := range map[string]time.Duration{
		"feed.tick_interval":      c.Feed.TickInterval,
		"feed.best_tick_interval": c.Feed.BestTickInterval,
		"feed.price_interval":     c.Feed.PriceInterval,
		"feed.history_interval":   c.Feed.HistoryInterval,
		"feed.timeout":            c.Feed.Timeout,
	} {
		if d <= 0 {
			add("%s must be positive", name)
		}
	}
	if c.Feed.EventBuffer < 0 {
		add("feed.event_buffer must not be negative")
	}

	if c.Feed.Mode == ModeLive {
		if c.Subgraph.URL == "" {
			add("subgraph.url is required in live mode")
		}
		if c.Chain.RPCURL == "" {
			add("chain.rpc_url is required in live mode")
		}
		for name, addr := range map[string]string{
			"chain.engine_address": c.Chain.EngineAddress,
			"chain.bitmap_address": c.Chain.BitmapAddress,
		} {
			if !common.IsHexAddress(addr) {
				add("%s is not a hex address: %q", name, addr)
			}
		}
	}
	if c.Chain.PrivateKey != "" && len(strings.TrimPrefix(c.Chain.PrivateKey, "0x")) != 64 {
		add("chain.private_key must be 32 hex bytes")
	}

	if !c.OKX.Disabled {
		if c.OKX.BaseURL == "" || c.OKX.InstID == "" {
			add("okx.base_url and okx.inst_id are required unless okx.disabled")
		}
		if c.OKX.PollInterval <= 0 {
			add("okx.poll_interval must be positive")
		}
	}

	if c.Candle.UpdatesPerCandle < 1 {
		add("candle.updates_per_candle must be at least 1")
	}
	if c.Candle.IntervalSeconds < 0 {
		add("candle.interval_seconds must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// Trading reports whether order submission is configured.
func (c *Config) Trading() bool {
	return c.Feed.Mode == ModeLive && c.Chain.PrivateKey != ""
}
