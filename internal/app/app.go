// Package app wires configuration, storage, the provider client, and the
// Telegram runtime into a running bot.
package app

import (
	"context"
	"fmt"
	"time"

	"gembot/core/buildinfo"
	coreconfig "gembot/core/config"
	coredatabase "gembot/core/database"
	"gembot/core/logger"
	tg "gembot/core/telegram"
	tghelpers "gembot/core/telegram/helpers"
	"gembot/core/telegram/router"
	"gembot/internal/bot"
	"gembot/internal/gen"
	"gembot/internal/health"
	"gembot/internal/quota"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

const msgSlowDown = "You are sending messages too fast. Please slow down."

// Run boots the application and blocks until ctx is done or a fatal error occurs.
func Run(ctx context.Context, configPath string) error {
	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	logger.L.Info("starting",
		slog.String("event", "boot"),
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.String("run_mode", cfg.Telegram.RunMode),
		slog.Bool("image_enabled", cfg.Image.Enabled),
	)

	if err := coredatabase.RunMigrations(cfg.Database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	db, err := coredatabase.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ledger := quota.NewLedger(quota.Options{
		Store: quota.NewPostgresStore(db),
	})

	provider, err := gen.NewClient(ctx, gen.Config{
		APIKey:          cfg.Gemini.APIKey,
		ChatModel:       cfg.Gemini.ChatModel,
		ImageModel:      cfg.Gemini.ImageModel,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Temperature:     cfg.Gemini.Temperature,
		Timeout:         time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create provider client: %w", err)
	}

	handlers := bot.New(bot.Options{
		Ledger:              ledger,
		Provider:            provider,
		DailyTokenLimit:     cfg.Quota.DailyTokenLimit,
		MaxPromptChars:      cfg.Quota.MaxPromptChars,
		MaxImagePromptChars: cfg.Quota.MaxImagePromptChars,
		ImageEnabled:        cfg.Image.Enabled,
		DefaultAspectRatio:  cfg.Image.AspectRatio,
	})

	reg := tg.NewRegistry()
	handlers.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)

	middlewares := tg.DefaultMiddlewares(cfg, func(c tele.Context) error {
		return tghelpers.SendText(c, msgSlowDown)
	})

	var healthSrv *health.Server

	return tg.RunTelegram(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Middlewares: middlewares,
		Routes:      routes,
		OnStart: func(context.Context, tg.Runtime) error {
			if cfg.Health.Enabled {
				healthSrv = health.NewServer(cfg.Health.Port)
				healthSrv.Start()
			}
			logger.L.Info("started",
				slog.String("event", "ready"),
				slog.Int("commands", len(reg.Commands())),
			)
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			logger.L.Info("stopping", slog.String("event", "shutdown"))
			if healthSrv != nil {
				return healthSrv.Stop(context.Background())
			}
			return nil
		},
	})
}
