package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/darkodi/qrcode-service/internal/cache"
	"github.com/darkodi/qrcode-service/internal/config"
	"github.com/darkodi/qrcode-service/internal/domain"
	"github.com/darkodi/qrcode-service/internal/handler"
	"github.com/darkodi/qrcode-service/internal/logger"
	"github.com/darkodi/qrcode-service/internal/middleware"
	"github.com/darkodi/qrcode-service/internal/repository"
	"github.com/darkodi/qrcode-service/internal/service"
	"github.com/darkodi/qrcode-service/internal/shortcode"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Database: %s (%s)\n", cfg.Database.DSN, cfg.Database.Driver)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	// ============================================================
	// INITIALIZE LOGGER
	// ============================================================
	log := logger.New(cfg.Log)
	log.Info("starting qrcode-service",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	// ============================================================
	// INITIALIZE LAYERS
	// ============================================================
	if cfg.Database.Driver == repository.DriverSQLite && cfg.Database.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			log.Error("failed to create database directory", "error", err.Error())
			os.Exit(1)
		}
	}

	ctx := context.Background()
	store, err := repository.New(ctx, &cfg.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err.Error())
		os.Exit(1)
	}

	var redirects cache.RedirectCache = cache.Noop{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err.Error())
			os.Exit(1)
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("failed to close redis client", "error", err.Error())
			}
		}()
		redirects = redisCache
		log.Info("redis redirect cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	codes, err := shortcode.NewRandom(cfg.ShortURL.CodeLength)
	if err != nil {
		log.Error("invalid short code settings", "error", err.Error())
		os.Exit(1)
	}

	resolver := domain.NewResolver(store.Repos().Domains, cfg.App.BaseURL, log)
	svc := service.NewQRCodeService(store, resolver, codes, redirects, service.Options{
		ViewBaseURL:  cfg.App.ViewBaseURL,
		MaxAttempts:  cfg.ShortURL.MaxAttempts,
		DetachPolicy: cfg.ShortURL.DetachPolicy,
	}, log)

	h := handler.NewQRCodeHandler(svc, store, log)
	router := h.SetupRoutes(cfg.RateLimit)
	if cfg.RateLimit.Enabled {
		log.Info("rate limiter enabled",
			"requests", cfg.RateLimit.Requests,
			"window", cfg.RateLimit.Window,
		)
	}

	// ============================================================
	// BUILD MIDDLEWARE CHAIN
	// ============================================================
	wrappedRouter := middleware.Chain(router,
		middleware.RequestID,
		middleware.RecoveryWithLogger(log),
		middleware.LoggingWithLogger(log),
	)

	// ============================================================
	// CREATE SERVER WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST   /qr-codes      - Create QR code")
			fmt.Println("  GET    /qr-codes      - List QR codes")
			fmt.Println("  GET    /qr-codes/{id} - Get QR code")
			fmt.Println("  PUT    /qr-codes/{id} - Update QR code")
			fmt.Println("  DELETE /qr-codes/{id} - Delete QR code")
			fmt.Println("  GET    /u/{code}      - Follow short URL")
			fmt.Println("  GET    /qr/{id}       - Event / vCard view")
			fmt.Println("  GET    /health        - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
		}

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}
	}

	if err := store.Close(); err != nil {
		log.Error("failed to close database", "error", err.Error())
	}
	log.Info("server stopped")
}
