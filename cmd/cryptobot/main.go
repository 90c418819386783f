package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"cryptobot/internal/config"
	"cryptobot/internal/database"
	"cryptobot/internal/feed"
	"cryptobot/internal/logger"
	"cryptobot/internal/marketdata"
	"cryptobot/internal/metrics"
	"cryptobot/internal/model"
	"cryptobot/internal/publisher"
	"cryptobot/internal/report"
	"cryptobot/internal/scheduler"
	"cryptobot/internal/status"
	"cryptobot/internal/summary"
	"cryptobot/internal/tracker"
)

func main() {
	configPath := flag.String("config", "Config.conf", "path to the key=value configuration file")
	provider := flag.String("provider", "coinmarketcap", "market-data provider (coinmarketcap, coinmarketcap-sandbox)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()

	fetcher, err := marketdata.NewClient(*provider, logger, cfg.MarketData, collector)
	if err != nil {
		logger.Error("Startup: market-data client", "error", err)
		os.Exit(1)
	}

	telegram := publisher.NewTelegram(logger, cfg.Telegram.BotToken, cfg.Telegram.Channel, tgbotapi.APIEndpoint, cfg.HTTPTimeout)
	targets := []publisher.Target{{Name: "telegram", Publisher: telegram}}

	var hub *feed.Hub
	if cfg.StatusAddr != "" {
		hub = feed.NewHub(logger)
		defer hub.Close()
		targets = append(targets, publisher.Target{Name: "feed", Publisher: hub})
	}

	var archive database.Repository
	if cfg.DatabaseURL != "" {
		repo, err := database.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err == nil {
			err = repo.Migrate(ctx)
			if err != nil {
				repo.Close()
			}
		}
		if err != nil {
			logger.Error("Startup: snapshot archive disabled", "error", err)
		} else {
			defer repo.Close()
			archive = repo
		}
	}

	summarizer := summary.NewSummarizer(logger, summary.Options{
		Enabled: cfg.AI.Enabled,
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Referer: cfg.AI.Referer,
		Timeout: cfg.AI.Timeout,
	}, collector)

	sched := scheduler.New(logger, scheduler.Deps{
		Fetcher:    fetcher,
		Tracker:    tracker.NewTracker(logger, tracker.NewHistory(cfg.HistoryPoints)),
		Summarizer: summarizer,
		Formatter:  report.NewFormatter(cfg.Location, cfg.Schedule.UpdateInterval),
		Publisher:  publisher.NewMulti(logger, collector, targets...),
		Archive:    archive,
		Metrics:    collector,
	}, model.TrackedSymbols, cfg.Schedule.UpdateInterval)

	if cfg.Debug {
		sched.AnnounceStartup(ctx)
	}

	var announce func(string)
	if hub != nil {
		announce = func(text string) {
			hub.Broadcast(feed.Event{Type: feed.EventCountdown, Text: text, Time: time.Now()})
		}
	}
	countdown := scheduler.NewCountdown(logger, sched, cfg.Schedule.CountdownInterval, announce)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return countdown.Run(gctx) })
	if hub != nil {
		srv := status.NewServer(logger, cfg.StatusAddr, sched, collector.Handler(), hub)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				logger.Error("Status: server stopped", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Shutdown: unexpected error", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown: stopped")
}
