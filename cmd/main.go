package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/newspulse/newspulse/internal/aggregator"
	"github.com/newspulse/newspulse/internal/api"
	"github.com/newspulse/newspulse/internal/archive"
	"github.com/newspulse/newspulse/internal/cache"
	"github.com/newspulse/newspulse/internal/config"
	"github.com/newspulse/newspulse/internal/logger"
	"github.com/newspulse/newspulse/internal/middleware"
	"github.com/newspulse/newspulse/internal/store"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("Starting newspulse...")

	cacheSvc := cache.New(cfg)
	cache.SetDefault(cacheSvc)
	defer func() {
		if err := cacheSvc.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache service")
		}
	}()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}

	uploader, err := archive.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize archive uploader")
	}
	if uploader != nil {
		st.SetArchiver(uploader)
	}

	agg := aggregator.New(aggregator.DefaultSources())

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	api.SetupRoutes(app, cfg, cacheSvc, st, agg)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
