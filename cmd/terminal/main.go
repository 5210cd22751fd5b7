package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/liquidbook/internal/app"
	"github.com/zappabad/liquidbook/internal/config"
	"github.com/zappabad/liquidbook/internal/logger"
	"github.com/zappabad/liquidbook/tui"
)

func main() {
	cfgPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// stdout belongs to the terminal UI
	log, err := logger.NewLogger(
		logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)),
		logger.WithOutputPaths([]string{cfg.App.LogFile}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(err)
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := tui.Options{
		Feed:         a.Feed,
		Journal:      a.Journal,
		Log:          log,
		MarketName:   cfg.Market.Name,
		Account:      a.Account,
		SizeDecimals: cfg.Market.SizeDecimals,
		Precisions:   cfg.Market.Precisions,
		Precision:    cfg.Market.Precision,
		Depth:        cfg.Market.Depth,
		DeepDepth:    cfg.Market.DeepDepth,
		MaxCandles:   cfg.Candle.MaxCandles,
		OrderTimeout: cfg.Chain.ReceiptTimeout + cfg.Feed.Timeout,
	}
	if a.Market != nil {
		opts.Market = a.Market
	}
	if a.Trader != nil {
		opts.Trader = a.Trader
	}

	a.Start()
	log.Info("terminal started", logger.NewField("mode", cfg.Feed.Mode), logger.NewField("market", cfg.Market.Name))

	p := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		log.Error(err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
	log.Info("terminal stopped")
}
