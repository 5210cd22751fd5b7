package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zappabad/liquidbook/internal/api"
	"github.com/zappabad/liquidbook/internal/app"
	"github.com/zappabad/liquidbook/internal/config"
	"github.com/zappabad/liquidbook/internal/logger"
)

func main() {
	cfgPath := flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Interface) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var market api.Market
	if a.Market != nil {
		market = a.Market
	}
	srv := api.NewServer(api.Config{
		Addr:          cfg.Server.Addr,
		Market:        cfg.Market.Name,
		Precision:     cfg.Market.Precision,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	}, a.Feed, market, a.Journal, log)

	go func() {
		for u := range a.Feed.Events() {
			srv.Publish(u)
		}
	}()
	if a.Market != nil {
		go func() {
			for ev := range a.Market.Events() {
				srv.PublishMarket(ev)
			}
		}()
	}

	a.Start()
	log.Info("server started", logger.NewField("mode", cfg.Feed.Mode), logger.NewField("market", cfg.Market.Name))

	err = srv.Run(ctx)
	log.Info("server stopped")
	return err
}
