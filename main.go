// Package main is the entry point for the BUMP SMS payment bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tempopay/bump/internal/bot"
	"github.com/tempopay/bump/internal/chain"
	"github.com/tempopay/bump/internal/config"
	"github.com/tempopay/bump/internal/database"
	"github.com/tempopay/bump/internal/gemini"
	"github.com/tempopay/bump/internal/logger"
	"github.com/tempopay/bump/internal/notify"
	"github.com/tempopay/bump/internal/paylink"
	"github.com/tempopay/bump/internal/server"
	"github.com/tempopay/bump/internal/telemetry"
	"github.com/tempopay/bump/internal/wallet"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("bump %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		logger.SetJSON()
	}
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Init(ctx, "bump")
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to init telemetry")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	collab := bot.Collaborators{
		Custody:  wallet.NewClient(cfg.PrivyAPIURL, cfg.PrivyAppID, cfg.PrivyAppSecret, 0),
		Chain:    chain.NewClient(cfg.TempoRelayURL, 0),
		Notifier: notify.NewClient("", cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, 0),
		Links:    paylink.NewBuilder(cfg.BaseURL),
	}

	if cfg.NLAssistEnabled() {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("NL assist disabled: failed to create Gemini client")
		} else {
			collab.Assist = gemini.NewCommandParser(client)
			logger.Log.Info().Msg("NL assist enabled")
		}
	}

	b := bot.New(cfg, pool, collab)
	srv := server.New(":"+cfg.Port, b, paylink.NewBuilder(cfg.BaseURL))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Server shutdown failed")
		}
		cancel()
	}()

	logger.Log.Info().Str("port", cfg.Port).Msg("BUMP listening")
	if err := srv.Start(); err != nil {
		logger.Log.Info().Err(err).Msg("Server stopped")
	}
}
