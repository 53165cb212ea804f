package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"evm-report/internal/api"
	"evm-report/internal/config"
	"evm-report/internal/data"
	"evm-report/internal/logging"
	"evm-report/internal/model"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	defaultPath := os.Getenv("CONFIG_FILE")
	if defaultPath == "" {
		defaultPath = config.DefaultPath
	}
	cfgPath := flag.String("config", defaultPath, "Path to config.json")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Server.Env, *verbose)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := []data.Option{data.WithLogger(logger)}
	if cfg.Cache.Enabled {
		cache := data.NewResponseCache[[]model.RawPeriodRecord](cfg.Cache.TTL, cfg.Cache.TTL)
		defer cache.Close()
		opts = append(opts, data.WithCache(cache))
	}
	client := data.NewClient(cfg.BaseURL, cfg.Timeout, opts...)

	router := api.NewRouter(cfg, client, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("upstream", cfg.BaseURL),
			zap.Bool("cache", cfg.Cache.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
