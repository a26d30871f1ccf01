package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/internal/config"
	"github.com/TianYu-Yieldera/dexapi/internal/logging"
	"github.com/TianYu-Yieldera/dexapi/pkg/models"
	"github.com/TianYu-Yieldera/dexapi/pkg/validator"
)

type options struct {
	op         string
	address    string
	start      string
	end        string
	at         string
	limit      int
	network    string
	format     string
	configPath string
	logLevel   string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("dexapi", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.op, "op", "", "Operation: exchanges, pairs, trades or balances")
	fs.StringVar(&o.address, "address", "", "Exchange address (pairs), pair contract (trades) or holder (balances)")
	fs.StringVar(&o.start, "start", "", "Lower time bound, e.g. 2023-01-01 or 2023-01-01T10:00:00")
	fs.StringVar(&o.end, "end", "", "Upper time bound")
	fs.StringVar(&o.at, "time", "", "Balance snapshot time")
	fs.IntVar(&o.limit, "limit", 0, "Row limit, 0 selects the operation default")
	fs.StringVar(&o.network, "network", "", "ethereum or bsc, defaults to bitquery.network from config")
	fs.StringVar(&o.format, "format", "csv", "Output format: csv or json")
	fs.StringVar(&o.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch o.op {
	case bitquery.OpExchanges:
	case bitquery.OpPairs, bitquery.OpTrades, bitquery.OpBalances:
		if !validator.IsValidAddress(o.address) {
			return nil, fmt.Errorf("-address must be a 0x-prefixed 20 byte hex address for %s", o.op)
		}
		o.address = validator.NormalizeAddress(o.address)
		if o.op != bitquery.OpBalances && validator.IsZeroAddress(o.address) {
			return nil, fmt.Errorf("-address for %s must not be the zero address", o.op)
		}
	default:
		return nil, fmt.Errorf("unknown -op %q", o.op)
	}
	if o.format != "csv" && o.format != "json" {
		return nil, fmt.Errorf("unknown -format %q", o.format)
	}
	return o, nil
}

type querier interface {
	Exchanges(ctx context.Context, q bitquery.ExchangeQuery) (*bitquery.Result[models.ExchangeRow], error)
	Pairs(ctx context.Context, q bitquery.PairQuery) (*bitquery.Result[models.PairRow], error)
	Trades(ctx context.Context, q bitquery.TradeQuery) (*bitquery.Result[models.TradeRow], error)
	Balances(ctx context.Context, q bitquery.BalanceQuery) (*bitquery.Result[models.BalanceRow], error)
}

func run(ctx context.Context, o *options, client querier, w io.Writer) error {
	start, end := bitquery.ISO(o.start), bitquery.ISO(o.end)

	switch o.op {
	case bitquery.OpExchanges:
		res, err := client.Exchanges(ctx, bitquery.ExchangeQuery{Start: start, End: end, Limit: o.limit})
		if err != nil {
			return err
		}
		return write(w, o.format, models.ExchangeColumns, res.Rows)
	case bitquery.OpPairs:
		res, err := client.Pairs(ctx, bitquery.PairQuery{ExchangeAddress: o.address, Start: start, End: end, Limit: o.limit})
		if err != nil {
			return err
		}
		return write(w, o.format, models.PairColumns, res.Rows)
	case bitquery.OpTrades:
		res, err := client.Trades(ctx, bitquery.TradeQuery{SmartContract: o.address, Start: start, End: end, Limit: o.limit})
		if err != nil {
			return err
		}
		return write(w, o.format, models.TradeColumns, res.Rows)
	case bitquery.OpBalances:
		res, err := client.Balances(ctx, bitquery.BalanceQuery{Address: o.address, Time: bitquery.ISO(o.at)})
		if err != nil {
			return err
		}
		return write(w, o.format, models.BalanceColumns, res.Rows)
	default:
		return fmt.Errorf("unknown operation %q", o.op)
	}
}

// exitCode maps error kinds to distinct statuses for scripting.
func exitCode(err error) int {
	switch {
	case errors.Is(err, bitquery.ErrAuthentication):
		return 3
	case errors.Is(err, bitquery.ErrConnectivity):
		return 4
	case errors.Is(err, bitquery.ErrRemoteApplication):
		return 5
	case errors.Is(err, bitquery.ErrNormalization):
		return 6
	default:
		return 1
	}
}

func main() {
	// .env is optional; variables may come from the environment directly
	_ = godotenv.Load()

	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := logging.New(o.logLevel, "stderr")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	networkName := o.network
	if networkName == "" {
		networkName = cfg.Bitquery.Network
	}
	network, err := bitquery.ParseNetwork(networkName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client, err := bitquery.NewDexClient(
		bitquery.ClientConfig{APIKey: cfg.Bitquery.APIKey, Network: network},
		bitquery.WithEndpoint(cfg.Bitquery.Endpoint),
		bitquery.WithHTTPClient(&http.Client{Timeout: cfg.Bitquery.Timeout}),
		bitquery.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "set BITQUERY_API_KEY or bitquery.api_key:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, client, os.Stdout); err != nil {
		logger.Debug("operation failed", zap.String("op", o.op), zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		stop()
		_ = logger.Sync()
		os.Exit(exitCode(err))
	}
}
