package bitquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/metrics"
	"github.com/TianYu-Yieldera/dexapi/pkg/models"
)

const (
	OpExchanges = "exchanges"
	OpPairs     = "pairs"
	OpTrades    = "trades"
	OpBalances  = "balances"
)

// ClientConfig is fixed for the lifetime of a DexClient.
type ClientConfig struct {
	APIKey  string  `validate:"required"`
	Network Network `validate:"required,oneof=ethereum bsc"`
}

// DexClient runs the four DEX queries against Bitquery. It holds no mutable
// state and is safe for concurrent use.
type DexClient struct {
	cfg        ClientConfig
	transport  Transport
	logger     *zap.Logger
	now        func() time.Time
	endpoint   string
	httpClient *http.Client
}

type Option func(*DexClient)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t Transport) Option {
	return func(c *DexClient) {
		c.transport = t
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *DexClient) {
		c.logger = logger
	}
}

// WithClock sets the source of "now" used for default time bounds.
func WithClock(now func() time.Time) Option {
	return func(c *DexClient) {
		c.now = now
	}
}

func WithEndpoint(endpoint string) Option {
	return func(c *DexClient) {
		c.endpoint = endpoint
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *DexClient) {
		c.httpClient = httpClient
	}
}

// NewDexClient validates cfg and builds a client. An empty network means
// ethereum.
func NewDexClient(cfg ClientConfig, opts ...Option) (*DexClient, error) {
	if cfg.Network == "" {
		cfg.Network = NetworkEthereum
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	c := &DexClient{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(c.endpoint, cfg.APIKey, c.httpClient)
	}
	c.logger = c.logger.Named("bitquery").With(zap.String("network", string(cfg.Network)))

	return c, nil
}

func (c *DexClient) Network() Network {
	return c.cfg.Network
}

// Result is the output of one call: the flat rows plus the request that
// produced them, kept for diagnostics.
type Result[T any] struct {
	Rows    []T
	Request Request
	Elapsed time.Duration
}

// ExchangeQuery parameters. Zero values select the defaults: start of the
// current year, now, and DefaultExchangesLimit.
type ExchangeQuery struct {
	Start TimeSpec
	End   TimeSpec
	Limit int
}

type PairQuery struct {
	ExchangeAddress string
	Start           TimeSpec
	End             TimeSpec
	Limit           int
}

type TradeQuery struct {
	SmartContract string
	Start         TimeSpec
	End           TimeSpec
	Limit         int
}

// BalanceQuery parameters. A zero Time means now.
type BalanceQuery struct {
	Address string
	Time    TimeSpec
}

// Exchanges returns the highest USD volume DEXs between two times.
func (c *DexClient) Exchanges(ctx context.Context, q ExchangeQuery) (*Result[models.ExchangeRow], error) {
	start, end := c.window(q.Start, q.End)
	req := BuildExchangesQuery(c.cfg.Network, start, end, limitOrDefault(q.Limit, DefaultExchangesLimit))
	return execute(ctx, c, OpExchanges, req, NormalizeExchanges)
}

// Pairs returns the highest USD volume pairs of one exchange.
func (c *DexClient) Pairs(ctx context.Context, q PairQuery) (*Result[models.PairRow], error) {
	start, end := c.window(q.Start, q.End)
	req := BuildPairsQuery(c.cfg.Network, q.ExchangeAddress, start, end, limitOrDefault(q.Limit, DefaultPairsLimit))
	network := string(c.cfg.Network)
	return execute(ctx, c, OpPairs, req, func(data json.RawMessage) ([]models.PairRow, error) {
		rows, dropped, err := normalizePairs(data)
		if err == nil && dropped > 0 {
			metrics.PairDuplicatesDropped.WithLabelValues(network).Add(float64(dropped))
		}
		return rows, err
	})
}

// Trades returns the most recent trades of a pair contract, newest block first.
func (c *DexClient) Trades(ctx context.Context, q TradeQuery) (*Result[models.TradeRow], error) {
	start, end := c.window(q.Start, q.End)
	req := BuildTradesQuery(c.cfg.Network, q.SmartContract, start, end, limitOrDefault(q.Limit, DefaultTradesLimit))
	return execute(ctx, c, OpTrades, req, NormalizeTrades)
}

// Balances returns the currency balances held by an address at a point in time.
func (c *DexClient) Balances(ctx context.Context, q BalanceQuery) (*Result[models.BalanceRow], error) {
	at := q.Time
	if at.IsZero() {
		at = DateTime(c.now().UTC())
	}
	req := BuildBalancesQuery(c.cfg.Network, q.Address, at)
	return execute(ctx, c, OpBalances, req, NormalizeBalances)
}

func (c *DexClient) window(start, end TimeSpec) (TimeSpec, TimeSpec) {
	now := c.now().UTC()
	if start.IsZero() {
		start = startOfYear(now)
	}
	if end.IsZero() {
		end = DateTime(now)
	}
	return start, end
}

func limitOrDefault(limit, def int) int {
	if limit == 0 {
		return def
	}
	return limit
}

func execute[T any](
	ctx context.Context,
	c *DexClient,
	op string,
	req Request,
	normalize func(json.RawMessage) ([]T, error),
) (*Result[T], error) {
	network := string(c.cfg.Network)
	metrics.APIRequests.WithLabelValues(network, op).Inc()

	started := time.Now()
	var rows []T
	data, err := c.transport.Execute(ctx, req)
	if err == nil {
		rows, err = normalize(data)
	}
	elapsed := time.Since(started)
	metrics.APILatency.WithLabelValues(network, op).Observe(elapsed.Seconds())

	if err != nil {
		classified := withOp(classify(err), op)
		metrics.APIErrors.WithLabelValues(network, op, kindOf(classified)).Inc()
		c.logger.Debug("query failed",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(classified))
		return nil, classified
	}

	metrics.RowsNormalized.WithLabelValues(network, op).Add(float64(len(rows)))
	c.logger.Debug("query completed",
		zap.String("operation", op),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", elapsed))

	return &Result[T]{Rows: rows, Request: req, Elapsed: elapsed}, nil
}

// classify folds errors from foreign transports into *Error.
func classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return connectivityError(err)
}

func kindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return "unknown"
}
