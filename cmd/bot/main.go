package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_filegate_bot/internal/auth"
	"tg_filegate_bot/internal/config"
	"tg_filegate_bot/internal/feature/user"
	"tg_filegate_bot/internal/feature/wizard"
	"tg_filegate_bot/internal/health"
	"tg_filegate_bot/internal/logging"
	"tg_filegate_bot/internal/store"
	"tg_filegate_bot/internal/telegram"
)

const (
	storeOpenTimeout        = 10 * time.Second
	storeSchemaTimeout      = 5 * time.Second
	healthShutdownTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":       "startup",
		"sqlite_path": cfg.SQLitePath,
	}).Info("configuration loaded")

	openCtx, cancelOpen := context.WithTimeout(context.Background(), storeOpenTimeout)
	manager, err := store.Open(openCtx, cfg.SQLitePath)
	cancelOpen()
	if err != nil {
		logger.WithError(err).Error("sqlite open error")
		fmt.Fprintf(os.Stderr, "sqlite open error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "store_open").Info("opened sqlite database")

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), storeSchemaTimeout)
	if err := manager.EnsureSchema(schemaCtx); err != nil {
		cancelSchema()
		logger.WithError(err).Error("sqlite schema error")
		fmt.Fprintf(os.Stderr, "sqlite schema error: %v\n", err)
		os.Exit(1)
	}
	cancelSchema()

	logger.WithField("event", "store_schema").Info("ensured sqlite schema")

	userRegistrar := user.NewRegistrar(manager.DB(), logger)
	adminSet := store.NewAdminSet(manager.DB())
	authorizer := auth.New(cfg.BotOwnerID, adminSet, logger)
	contentRegistry := store.NewContentRegistry(manager.DB())
	channelRegistry := store.NewChannelRegistry(manager.DB())
	statsProvider := store.NewStatsProvider(manager.DB())
	sessions := wizard.NewStore(wizard.DefaultTTL)

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithUserRegistrar(userRegistrar),
		telegram.WithAuthorizer(authorizer),
		telegram.WithContentRegistry(contentRegistry),
		telegram.WithChannelRegistry(channelRegistry),
		telegram.WithWizardSessions(sessions),
		telegram.WithStatsProvider(statsProvider),
	)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, manager, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	if err := manager.Close(); err != nil {
		logger.WithError(err).Error("sqlite close error")
	} else {
		logger.WithField("event", "store_closed").Info("sqlite database closed")
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
