package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"goldflow/config"
	"goldflow/internal/channel"
	"goldflow/internal/faq"
	"goldflow/internal/market"
	"goldflow/internal/poller"
	"goldflow/internal/server"
	signals "goldflow/internal/signal"
	"goldflow/internal/stream"
	"goldflow/logger"
	"goldflow/models"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Goldflow.Name,
		"version": cfg.Goldflow.Version,
	}).Info("starting goldflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := channel.NewChannels(
		cfg.Channels.QuoteBuffer,
		cfg.Channels.FundingBuffer,
		cfg.Channels.StatusBuffer,
	)
	defer channels.Close()

	go channels.StartMetricsReporting(ctx)

	store := market.NewStore(cfg, channels)

	managers := make([]*stream.Manager, 0, len(models.AllExchanges))
	if cfg.Source.Bybit.Stream.Enabled {
		managers = append(managers, stream.NewManager(stream.NewBybitEndpoint(&cfg.Source.Bybit), channels))
	}
	if cfg.Source.Binance.Stream.Enabled {
		managers = append(managers, stream.NewManager(stream.NewBinanceEndpoint(&cfg.Source.Binance), channels))
	}
	if cfg.Source.Okx.Stream.Enabled {
		managers = append(managers, stream.NewManager(stream.NewOkxEndpoint(&cfg.Source.Okx), channels))
	}

	restPoller := poller.NewPoller(cfg, channels, store)
	engine := signals.NewEngine(cfg)
	responder := faq.NewResponder(&cfg.Chatbot)

	var displayServer *server.Server
	if cfg.Server.Enabled {
		displayServer = server.NewServer(cfg, store, engine, responder)
	} else {
		log.WithComponent("main").Info("display api disabled; running headless")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := store.Run(ctx); err != nil {
			log.WithError(err).Warn("market store failed to start")
		}
	}()

	for _, m := range managers {
		wg.Add(1)
		go func(manager *stream.Manager) {
			defer wg.Done()
			if err := manager.Start(ctx); err != nil {
				log.WithError(err).Warn("stream manager failed to start")
			}
		}(m)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := restPoller.Start(ctx); err != nil {
			log.WithError(err).Warn("poller failed to start")
		}
	}()

	if displayServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := displayServer.Start(ctx); err != nil {
				log.WithError(err).Warn("display api failed to start")
			}
		}()
	}

	time.Sleep(2 * time.Second)
	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	if displayServer != nil {
		log.Info("stopping display api")
		displayServer.Stop()
	}

	log.Info("stopping poller")
	restPoller.Stop()

	log.Info("stopping stream managers")
	for _, m := range managers {
		m.Stop()
	}

	log.Info("stopping market store")
	store.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("goldflow stopped")
}
