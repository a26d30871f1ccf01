package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/internal/config"
	"github.com/TianYu-Yieldera/dexapi/internal/handler"
	"github.com/TianYu-Yieldera/dexapi/internal/logging"
	"github.com/TianYu-Yieldera/dexapi/internal/middleware"
	"github.com/TianYu-Yieldera/dexapi/internal/repository"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// run returns instead of exiting so its deferred closes always happen.
	if err := run(cfg, logger); err != nil {
		logger.Fatal("API server failed", zap.Error(err))
	}
	logger.Info("Server exited properly")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// One immutable client per network, sharing the HTTP connection pool
	httpClient := &http.Client{Timeout: cfg.Bitquery.Timeout}
	clients := make(map[bitquery.Network]handler.DexQuerier)
	networks := []string{}
	for _, network := range []bitquery.Network{bitquery.NetworkEthereum, bitquery.NetworkBSC} {
		client, err := bitquery.NewDexClient(
			bitquery.ClientConfig{APIKey: cfg.Bitquery.APIKey, Network: network},
			bitquery.WithEndpoint(cfg.Bitquery.Endpoint),
			bitquery.WithHTTPClient(httpClient),
			bitquery.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", network, err)
		}
		clients[network] = client
		networks = append(networks, string(network))
	}

	deps := map[string]handler.Pinger{}
	var history handler.TradeHistory
	if cfg.ClickHouse.Enabled {
		repo, err := repository.NewClickHouseRepo(repository.DSN(
			cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.Database,
			cfg.ClickHouse.Username, cfg.ClickHouse.Password))
		if err != nil {
			return fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		defer repo.Close()

		deps["clickhouse"] = repo
		history = repo
	}

	dexHandler := handler.NewDexHandler(clients, history, logger)
	healthHandler := handler.NewHealthHandler(deps, networks)

	if cfg.API.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	handler.Register(router, dexHandler, healthHandler)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Bitquery.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting API server",
			zap.String("addr", cfg.API.Addr),
			zap.Strings("networks", networks))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
