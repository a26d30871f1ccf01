package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/pkg/models"
)

type stubQuerier struct {
	err       error
	lastTrade bitquery.TradeQuery
}

func (s *stubQuerier) Exchanges(ctx context.Context, q bitquery.ExchangeQuery) (*bitquery.Result[models.ExchangeRow], error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bitquery.Result[models.ExchangeRow]{Rows: []models.ExchangeRow{
		{Exchange: "Uniswap", Protocol: "Uniswap v2", Count: 10, TradeAmount: 500, ExchangeAddress: "0xabc"},
	}}, nil
}

func (s *stubQuerier) Pairs(ctx context.Context, q bitquery.PairQuery) (*bitquery.Result[models.PairRow], error) {
	return &bitquery.Result[models.PairRow]{Rows: []models.PairRow{}}, s.err
}

func (s *stubQuerier) Trades(ctx context.Context, q bitquery.TradeQuery) (*bitquery.Result[models.TradeRow], error) {
	s.lastTrade = q
	return &bitquery.Result[models.TradeRow]{Rows: []models.TradeRow{
		{Exchange: "Uniswap", Protocol: "Uniswap v2", Timestamp: "2023-01-01 00:00:00", Block: 100,
			BuyCurrency: "WETH", BuyAmount: 1.5, SellCurrency: "USDC", SellAmount: 2400, Price: 1600, TradeAmount: 2400.25, Transaction: "0xtx"},
	}}, s.err
}

func (s *stubQuerier) Balances(ctx context.Context, q bitquery.BalanceQuery) (*bitquery.Result[models.BalanceRow], error) {
	return &bitquery.Result[models.BalanceRow]{Rows: nil}, s.err
}

const holder = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-op", "trades", "-address", holder, "-start", "2023-01-01", "-limit", "5", "-format", "json"})
	require.NoError(t, err)
	assert.Equal(t, "0x5c69bee701ef814a2b6a3edd4b1652cb9cc5aa6f", o.address)
	assert.Equal(t, 5, o.limit)
	assert.Equal(t, "json", o.format)

	_, err = parseFlags([]string{"-op", "pairs"})
	assert.Error(t, err, "pairs needs an address")

	_, err = parseFlags([]string{"-op", "trades", "-address", "0x0000000000000000000000000000000000000000"})
	assert.Error(t, err, "zero pair contract")

	o, err = parseFlags([]string{"-op", "balances", "-address", "0x0000000000000000000000000000000000000000"})
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", o.address)

	_, err = parseFlags([]string{"-op", "volume"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-op", "exchanges", "-format", "xml"})
	assert.Error(t, err)
}

func TestRun_ExchangesCSV(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &options{op: "exchanges", format: "csv"}, &stubQuerier{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "exchange,protocol,count,tradeAmount,exchangeAddress\nUniswap,Uniswap v2,10,500,0xabc\n", out.String())
}

func TestRun_TradesCSVColumnOrder(t *testing.T) {
	var out bytes.Buffer
	stub := &stubQuerier{}
	err := run(context.Background(), &options{op: "trades", address: "0xpair", start: "2023-01-01", format: "csv"}, stub, &out)
	require.NoError(t, err)

	assert.Equal(t,
		"exchange,protocol,timestamp,block,buyCurrency,buyAmount,sellCurrency,sellAmount,price,tradeAmount,transaction\n"+
			"Uniswap,Uniswap v2,2023-01-01 00:00:00,100,WETH,1.5,USDC,2400,1600,2400.25,0xtx\n",
		out.String())
	assert.Equal(t, "0xpair", stub.lastTrade.SmartContract)
	assert.Equal(t, "2023-01-01T00:00:00", bitquery.Normalize(true, stub.lastTrade.Start))
}

func TestRun_EmptyResults(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &options{op: "pairs", address: "0xex", format: "csv"}, &stubQuerier{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "exchange,protocol,currency1,currency2,smartContract\n", out.String())

	out.Reset()
	err = run(context.Background(), &options{op: "balances", address: "0xholder", format: "json"}, &stubQuerier{}, &out)
	require.NoError(t, err)

	var decoded []models.BalanceRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded)
}

func TestRun_ErrorAndExitCode(t *testing.T) {
	stub := &stubQuerier{err: &bitquery.Error{Kind: bitquery.KindAuthentication, Message: "API key is not valid, check your key"}}

	err := run(context.Background(), &options{op: "exchanges", format: "csv"}, stub, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
	assert.Equal(t, 4, exitCode(&bitquery.Error{Kind: bitquery.KindConnectivity}))
	assert.Equal(t, 6, exitCode(&bitquery.Error{Kind: bitquery.KindNormalization}))
	assert.Equal(t, 1, exitCode(assert.AnError))
}
