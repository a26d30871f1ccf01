package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/internal/checkpoint"
	"github.com/TianYu-Yieldera/dexapi/internal/config"
	"github.com/TianYu-Yieldera/dexapi/internal/kafka"
	"github.com/TianYu-Yieldera/dexapi/internal/logging"
	"github.com/TianYu-Yieldera/dexapi/internal/repository"
	"github.com/TianYu-Yieldera/dexapi/internal/tradesync"
	"github.com/TianYu-Yieldera/dexapi/pkg/validator"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	once       = flag.Bool("once", false, "Run a single sync cycle and exit")
	reset      = flag.Bool("reset", false, "Delete the checkpoints of the configured contracts before syncing")
)

func main() {
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	network, err := bitquery.ParseNetwork(cfg.Bitquery.Network)
	if err != nil {
		logger.Fatal("invalid network", zap.Error(err))
	}

	contracts := make([]string, 0, len(cfg.Sync.Contracts))
	for _, c := range cfg.Sync.Contracts {
		if !validator.IsValidAddress(c) || validator.IsZeroAddress(c) {
			logger.Fatal("invalid contract address", zap.String("contract", c))
		}
		contracts = append(contracts, validator.NormalizeAddress(c))
	}

	client, err := bitquery.NewDexClient(
		bitquery.ClientConfig{APIKey: cfg.Bitquery.APIKey, Network: network},
		bitquery.WithEndpoint(cfg.Bitquery.Endpoint),
		bitquery.WithHTTPClient(&http.Client{Timeout: cfg.Bitquery.Timeout}),
		bitquery.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("failed to create bitquery client", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	checkpointMgr := checkpoint.NewManager(redisClient, "dexapi", logger)

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:         cfg.Kafka.Brokers,
		MaxRetries:      cfg.Kafka.Producer.MaxRetries,
		RequiredAcks:    sarama.RequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		CompressionType: kafka.ParseCompression(cfg.Kafka.Producer.CompressionType),
	}, logger)
	if err != nil {
		logger.Fatal("failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	var store tradesync.Store
	if cfg.ClickHouse.Enabled {
		repo, err := repository.NewClickHouseRepo(repository.DSN(
			cfg.ClickHouse.Host, cfg.ClickHouse.Port, cfg.ClickHouse.Database,
			cfg.ClickHouse.Username, cfg.ClickHouse.Password))
		if err != nil {
			logger.Fatal("failed to connect to clickhouse", zap.Error(err))
		}
		defer repo.Close()

		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare clickhouse schema", zap.Error(err))
		}
		store = repo
	}

	svc, err := tradesync.NewService(tradesync.Config{
		Contracts: contracts,
		Topic:     cfg.Kafka.Topics.Trades,
		Encoding:  cfg.Kafka.Encoding,
		Lookback:  cfg.Sync.Lookback,
		Limit:     cfg.Sync.Limit,
	}, client, producer, store, checkpointMgr, logger)
	if err != nil {
		logger.Fatal("failed to create sync service", zap.Error(err))
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, promhttp.Handler())

			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			logger.Info("starting metrics server", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	logger.Info("Starting DEX trade sync service",
		zap.String("network", string(network)),
		zap.Strings("contracts", contracts),
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topics.Trades),
		zap.Duration("interval", cfg.Sync.Interval))

	if *reset {
		if err := svc.Reset(ctx); err != nil {
			logger.Fatal("failed to reset checkpoints", zap.Error(err))
		}
	}

	if *once {
		if failed := svc.SyncAll(ctx); failed > 0 {
			logger.Error("sync finished with failures", zap.Int("failed", failed))
		}
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	svc.Run(ctx, cfg.Sync.Interval)
}
