package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"

	"docarchive/internal/app"
	"docarchive/internal/config"
	handlers "docarchive/internal/http/handler"
	"docarchive/internal/http/middleware"
	"docarchive/internal/otel"
)

const serviceName = "docarchive"

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := app.SetupLogger(cfg.Env, os.Stdout)
	slog.SetDefault(log)
	log.Info("starting docarchive", slog.String("env", cfg.Env), slog.String("backend", cfg.Backend.URL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, serviceName, log)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(a.Registry)
	if err != nil {
		log.Error("failed to register http metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxBytes) + 1<<20,
	})

	server.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	server.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	server.Use(middleware.Logger(cfg.Location))
	server.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(server, handlers.Deps{
		Backend:    a.Backend,
		Gates:      a.Gates,
		Documents:  a.Documents,
		Categories: a.Categories,
		Users:      a.Users,
		Profiles:   a.Profiles,
		Gatherer:   a.Registry,
		Location:   cfg.Location,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	if err := server.Listen(":" + cfg.Port); err != nil {
		log.Error("failed to start server", slog.String("error", err.Error()))
	}

	a.Close()
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("tracing shutdown failed", slog.String("error", err.Error()))
	}
}
