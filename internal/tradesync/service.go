package tradesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/internal/checkpoint"
	"github.com/TianYu-Yieldera/dexapi/internal/metrics"
	"github.com/TianYu-Yieldera/dexapi/internal/repository"
	"github.com/TianYu-Yieldera/dexapi/pkg/models"
	address "github.com/TianYu-Yieldera/dexapi/pkg/validator"
)

const (
	EncodingAvro = "avro"
	EncodingJSON = "json"
)

// Fetcher is the part of bitquery.DexClient the sync uses.
type Fetcher interface {
	Network() bitquery.Network
	Trades(ctx context.Context, q bitquery.TradeQuery) (*bitquery.Result[models.TradeRow], error)
}

type Publisher interface {
	Send(ctx context.Context, topic string, key string, value interface{}) error
	SendBytes(ctx context.Context, topic string, key string, data []byte) error
}

type Store interface {
	InsertTrades(ctx context.Context, network, contract string, rows []models.TradeRow, indexedAt time.Time) error
	LatestTrade(ctx context.Context, network, contract string) (int64, string, error)
}

type Checkpoints interface {
	Get(ctx context.Context, network, contract string) (*checkpoint.Checkpoint, error)
	Save(ctx context.Context, cp *checkpoint.Checkpoint) error
	Delete(ctx context.Context, network, contract string) error
	Invalidate(network, contract string)
}

var (
	_ Store       = (*repository.ClickHouseRepo)(nil)
	_ Checkpoints = (*checkpoint.Manager)(nil)
)

type Config struct {
	Contracts []string      `validate:"required,min=1,dive,required"`
	Topic     string        `validate:"required"`
	Encoding  string        `validate:"oneof=avro json"`
	Lookback  time.Duration `validate:"gt=0"`
	Limit     int           `validate:"gte=0"`
}

// Service copies new trades of a fixed set of pair contracts from Bitquery to
// Kafka and, when a Store is set, to ClickHouse.
type Service struct {
	cfg         Config
	fetcher     Fetcher
	publisher   Publisher
	store       Store
	checkpoints Checkpoints
	logger      *zap.Logger
	now         func() time.Time
}

// NewService validates cfg. store may be nil.
func NewService(cfg Config, fetcher Fetcher, publisher Publisher, store Store, checkpoints Checkpoints, logger *zap.Logger) (*Service, error) {
	if cfg.Encoding == "" {
		cfg.Encoding = EncodingAvro
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid sync config: %w", err)
	}

	return &Service{
		cfg:         cfg,
		fetcher:     fetcher,
		publisher:   publisher,
		store:       store,
		checkpoints: checkpoints,
		logger:      logger.Named("tradesync"),
		now:         time.Now,
	}, nil
}

// Run syncs every contract once per interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.SyncAll(ctx)

	for {
		select {
		case <-ticker.C:
			s.SyncAll(ctx)
		case <-ctx.Done():
			s.logger.Info("Context cancelled, stopping sync")
			return
		}
	}
}

// SyncAll runs one cycle. A failing contract is logged and does not stop the
// others. It returns the number of contracts that failed.
func (s *Service) SyncAll(ctx context.Context) int {
	s.logger.Info("Starting sync cycle", zap.Int("contracts", len(s.cfg.Contracts)))
	startTime := time.Now()

	failed := 0
	for _, contract := range s.cfg.Contracts {
		if ctx.Err() != nil {
			break
		}
		n, err := s.SyncContract(ctx, contract)
		if err != nil {
			failed++
			s.logger.Error("Failed to sync contract",
				zap.String("contract", short(contract)),
				zap.Error(err))
			continue
		}
		s.logger.Debug("Synced contract",
			zap.String("contract", short(contract)),
			zap.Int("trades", n))
	}

	s.logger.Info("Sync cycle completed",
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(startTime)))
	return failed
}

// SyncContract pushes trades newer than the contract's checkpoint and then
// advances it. It returns how many trades were pushed.
func (s *Service) SyncContract(ctx context.Context, contract string) (int, error) {
	network := string(s.fetcher.Network())
	started := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues(network).Observe(time.Since(started).Seconds())
	}()

	cp, err := s.resume(ctx, network, contract)
	if err != nil {
		return 0, err
	}

	start := s.startFor(cp)
	s.logger.Debug("Fetching trades",
		zap.String("contract", short(contract)),
		zap.Int64("after_block", cp.LastBlock),
		zap.Stringer("start", start))
	result, err := s.fetcher.Trades(ctx, bitquery.TradeQuery{
		SmartContract: contract,
		Start:         start,
		Limit:         s.cfg.Limit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch trades: %w", err)
	}

	limit := s.cfg.Limit
	if limit == 0 {
		limit = bitquery.DefaultTradesLimit
	}
	if len(result.Rows) >= limit {
		s.logger.Warn("Trade page is full, older trades in the window may be skipped",
			zap.String("contract", short(contract)),
			zap.Int("limit", limit))
	}

	fresh := newerThan(result.Rows, cp.LastBlock)
	if len(fresh) == 0 {
		return 0, nil
	}

	indexedAt := s.now().UTC()
	for _, row := range fresh {
		if err := s.publish(ctx, network, contract, row, indexedAt); err != nil {
			return 0, err
		}
	}

	if s.store != nil {
		if err := s.store.InsertTrades(ctx, network, contract, fresh, indexedAt); err != nil {
			return 0, fmt.Errorf("failed to store trades: %w", err)
		}
	}

	newest := fresh[0]
	for _, row := range fresh[1:] {
		if row.Block > newest.Block {
			newest = row
		}
	}
	next := &checkpoint.Checkpoint{
		Network:       network,
		SmartContract: contract,
		LastBlock:     newest.Block,
		LastTimestamp: newest.Timestamp,
		LastTxHash:    newest.Transaction,
		UpdatedAt:     indexedAt,
	}
	if err := s.checkpoints.Save(ctx, next); err != nil {
		// The write may have landed, so the next cycle rereads Redis. Rows
		// already published are replayed at worst.
		s.checkpoints.Invalidate(network, contract)
		return 0, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	metrics.TradesSynced.WithLabelValues(network, contract).Add(float64(len(fresh)))
	metrics.LastSyncedBlock.WithLabelValues(network, contract).Set(float64(newest.Block))

	return len(fresh), nil
}

// resume reads the checkpoint from Redis, then from the newest stored trade.
// It never returns nil without an error.
func (s *Service) resume(ctx context.Context, network, contract string) (*checkpoint.Checkpoint, error) {
	cp, err := s.checkpoints.Get(ctx, network, contract)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if cp != nil {
		return cp, nil
	}

	empty := &checkpoint.Checkpoint{Network: network, SmartContract: contract}
	if s.store == nil {
		return empty, nil
	}

	block, ts, err := s.store.LatestTrade(ctx, network, contract)
	if errors.Is(err, repository.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest stored trade: %w", err)
	}

	s.logger.Info("Resuming from stored trades",
		zap.String("contract", short(contract)),
		zap.Int64("block", block))
	empty.LastBlock = block
	empty.LastTimestamp = ts
	return empty, nil
}

// startFor picks the lower time bound: the checkpoint's trade time when it
// parses, otherwise now minus the lookback.
func (s *Service) startFor(cp *checkpoint.Checkpoint) bitquery.TimeSpec {
	if cp.LastTimestamp != "" {
		if t, ok := parseTradeTime(cp.LastTimestamp); ok {
			return bitquery.DateTime(t)
		}
		s.logger.Warn("Unparseable checkpoint timestamp, using lookback",
			zap.String("contract", short(cp.SmartContract)),
			zap.String("timestamp", cp.LastTimestamp))
	}
	return bitquery.DateTime(s.now().UTC().Add(-s.cfg.Lookback))
}

func (s *Service) publish(ctx context.Context, network, contract string, row models.TradeRow, indexedAt time.Time) error {
	event := models.NewTradeEvent(network, contract, row, indexedAt)
	key := row.Key()

	if s.cfg.Encoding == EncodingJSON {
		if err := s.publisher.Send(ctx, s.cfg.Topic, key, event); err != nil {
			return fmt.Errorf("failed to publish trade %s: %w", key, err)
		}
		return nil
	}

	data, err := event.EncodeAvro()
	if err != nil {
		return err
	}
	if err := s.publisher.SendBytes(ctx, s.cfg.Topic, key, data); err != nil {
		return fmt.Errorf("failed to publish trade %s: %w", key, err)
	}
	return nil
}

// Reset deletes the checkpoints of every configured contract, so the next
// cycle starts from the stored trades or the lookback window.
func (s *Service) Reset(ctx context.Context) error {
	network := string(s.fetcher.Network())
	for _, contract := range s.cfg.Contracts {
		if err := s.checkpoints.Delete(ctx, network, contract); err != nil {
			return fmt.Errorf("failed to reset %s: %w", contract, err)
		}
		s.logger.Info("Checkpoint reset", zap.String("contract", short(contract)))
	}
	return nil
}

func short(contract string) string {
	return address.TruncateAddress(contract, 10, 6)
}

// newerThan keeps rows above block, preserving order.
func newerThan(rows []models.TradeRow, block int64) []models.TradeRow {
	out := make([]models.TradeRow, 0, len(rows))
	for _, r := range rows {
		if r.Block > block {
			out = append(out, r)
		}
	}
	return out
}

var tradeTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parseTradeTime(s string) (time.Time, bool) {
	for _, layout := range tradeTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
