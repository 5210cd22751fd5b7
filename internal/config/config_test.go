package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.0001, cfg.Market.TickBase)
	assert.Equal(t, time.Second, cfg.Feed.TickInterval)
	assert.Equal(t, 50*time.Second, cfg.Feed.BestTickInterval)
	assert.False(t, cfg.Trading())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "liquidbook.yaml")
	yamlDoc := `
market:
  name: LIQ/USDC
  depth: 6
feed:
  mode: mock
  tick_interval: 2s
candle:
  interval_seconds: 300
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("LIQUIDBOOK_FEED_TICK_INTERVAL", "3s")
	t.Setenv("LIQUIDBOOK_MARKET_PRECISIONS", "0.5,5")
	t.Setenv("LIQUIDBOOK_MARKET_PRECISION", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "LIQ/USDC", cfg.Market.Name)
	assert.Equal(t, 6, cfg.Market.Depth)
	assert.Equal(t, 13, cfg.Market.DeepDepth, "unset keys keep their defaults")
	assert.Equal(t, ModeMock, cfg.Feed.Mode)
	assert.Equal(t, 3*time.Second, cfg.Feed.TickInterval, "env overrides the file")
	assert.Equal(t, []float64{0.5, 5}, cfg.Market.Precisions)
	assert.Equal(t, int64(300), cfg.Candle.IntervalSeconds)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "liquidbook", cfg.App.Name)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("market: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"tick base", func(c *Config) { c.Market.TickBase = 1 }, "market.tick_base"},
		{"precision", func(c *Config) { c.Market.Precisions = []float64{0.1, 0} }, "market.precisions"},
		{"depth", func(c *Config) { c.Market.DeepDepth = 3 }, "market.depth"},
		{"mode", func(c *Config) { c.Feed.Mode = "replay" }, "feed.mode"},
		{"interval", func(c *Config) { c.Feed.BestTickInterval = 0 }, "feed.best_tick_interval"},
		{"address", func(c *Config) { c.Chain.EngineAddress = "0x12" }, "chain.engine_address"},
		{"key", func(c *Config) { c.Chain.PrivateKey = "abcd" }, "chain.private_key"},
		{"candle", func(c *Config) { c.Candle.UpdatesPerCandle = 0 }, "candle.updates_per_candle"},
		{"okx", func(c *Config) { c.OKX.InstID = "" }, "okx.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateMockSkipsChain(t *testing.T) {
	cfg := Default()
	cfg.Feed.Mode = ModeMock
	cfg.Chain.EngineAddress = ""
	cfg.Subgraph.URL = ""
	cfg.OKX.Disabled = true
	cfg.OKX.BaseURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestTrading(t *testing.T) {
	cfg := Default()
	cfg.Chain.PrivateKey = "0x" + "11111111111111111111111111111111" + "11111111111111111111111111111111"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Trading())

	cfg.Feed.Mode = ModeMock
	assert.False(t, cfg.Trading())
}
