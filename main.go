package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"bitunix-signal-bot/config"
	"bitunix-signal-bot/internal/api"
	"bitunix-signal-bot/internal/bitunix"
	"bitunix-signal-bot/internal/executor"
	"bitunix-signal-bot/internal/logging"
	"bitunix-signal-bot/internal/notification"
	"bitunix-signal-bot/internal/pairs"
	"bitunix-signal-bot/internal/queue"
	"bitunix-signal-bot/internal/vault"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("starting bitunix signal bot")

	// Credentials: Vault when enabled, environment otherwise.
	apiKey := cfg.BitunixConfig.APIKey
	apiSecret := cfg.BitunixConfig.SecretKey
	vaultClient, err := vault.NewClient(cfg.VaultConfig, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("vault setup failed")
	}
	if vaultClient.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		creds, err := vaultClient.GetCredentials(ctx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("could not load credentials from vault")
		}
		apiKey, apiSecret = creds.APIKey, creds.SecretKey
	}

	client, err := bitunix.NewClient(bitunix.Config{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   cfg.BitunixConfig.BaseURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("exchange client setup failed")
	}

	var gateway bitunix.Gateway = client
	if cfg.RedisConfig.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		gateway = bitunix.NewCachedClient(client, rdb, logger)
		logger.Info().Str("addr", cfg.RedisConfig.Address).Msg("redis symbol-info cache enabled")
	}

	// Pair configuration comes from PostgreSQL, loaded once at startup.
	store, err := pairs.NewStore(cfg.DatabaseConfig.DSN(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database setup failed")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.RunMigrations(ctx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	view, err := store.LoadView(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("pair configuration load failed")
	}
	if view.Len() == 0 {
		logger.Warn().Msg("no pairs configured, every signal will be rejected")
	}

	notifier := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.NotificationConfig.Telegram.BotToken,
			ChatID:   cfg.NotificationConfig.Telegram.ChatID,
			Enabled:  cfg.NotificationConfig.Telegram.Enabled,
		}))
		notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
			WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
			Enabled:    cfg.NotificationConfig.Discord.Enabled,
		}))
	}

	exec := executor.NewTradeExecutor(gateway, view, notifier, logger)
	exec.SetMarginCoin(cfg.TradingConfig.MarginCoin)
	queues := queue.NewSymbolQueueManager(exec.ProcessEnqueuedSignal, cfg.TradingConfig.MaxQueuePerSymbol, logger)

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		ProductionMode: cfg.ServerConfig.ProductionMode,
	}, queues, view, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	queues.StopAll()
	exec.Stop()
	logger.Info().Msg("stopped")
}
