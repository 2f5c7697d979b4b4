package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/EgorLis/cmdbot/internal/bot"
	"github.com/EgorLis/cmdbot/internal/config"
	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/EgorLis/cmdbot/internal/gateway"
	"github.com/EgorLis/cmdbot/internal/health"
	"github.com/EgorLis/cmdbot/internal/logging"
	"github.com/EgorLis/cmdbot/internal/store"
)

const (
	exitOK = iota
	exitFailure
	exitConfig
	exitAuth
	exitSession
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cmdbot:", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOpts, err := logging.LoadOptions()
	if err != nil {
		return err
	}
	logs, err := logging.Configure(logOpts, os.Stderr)
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logs.Close()
	log := logs.Bot

	log.Info("starting", "config", cfg)

	st, err := store.Open(cfg.StorePath, log)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := gateway.New(cfg.Token, intentsFor(cfg.Intents), gateway.Options{
		Attempts: cfg.ConnectAttempts,
		Backoff:  cfg.ConnectBackoff,
	}, logs.Discord)
	if err != nil {
		return err
	}

	loader := extension.NewLoader(cfg.CommandsDir, log,
		extension.WithStore(st),
		extension.WithOpener(".lua", extension.OpenLua(extension.LuaOptions{Logger: log})),
	)
	defer func() {
		if err := loader.Close(); err != nil {
			log.Warn("close extensions", "error", err)
		}
	}()

	b := bot.New(cfg, client, loader, log)

	if cfg.HealthAddr != "" {
		hs := health.New(cfg.HealthAddr, b, log)
		if err := hs.Start(); err != nil {
			return fmt.Errorf("health endpoint: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(sctx)
		}()
	}

	log.Info("running, press Ctrl+C to stop")
	if err := b.Run(ctx); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

func intentsFor(name string) discordgo.Intent {
	if name == "default" {
		return discordgo.IntentsAllWithoutPrivileged
	}
	return discordgo.IntentsAll
}

func exitCode(err error) int {
	var cfgErr *config.ConfigurationError
	var authErr *gateway.AuthenticationError
	var sessErr *gateway.SessionError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &authErr):
		return exitAuth
	case errors.As(err, &sessErr):
		return exitSession
	default:
		return exitFailure
	}
}
