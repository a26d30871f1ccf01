package bitquery

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TianYu-Yieldera/dexapi/pkg/models"
)

func dexTrades(rows string) json.RawMessage {
	return json.RawMessage(`{"ethereum": {"dexTrades": ` + rows + `}}`)
}

func TestNormalizeExchanges_Scenario(t *testing.T) {
	data := dexTrades(`[{"exchange": {"fullName": "Uniswap", "address": {"address": "0xabc"}}, "protocol": "Uniswap v2", "count": 10, "tradeAmount": 500.0}]`)

	rows, err := NormalizeExchanges(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ExchangeRow{
		Exchange:        "Uniswap",
		Protocol:        "Uniswap v2",
		Count:           10,
		TradeAmount:     500.0,
		ExchangeAddress: "0xabc",
	}, rows[0])
}

func TestNormalizers_EmptyResult(t *testing.T) {
	for _, body := range []string{`[]`, `null`} {
		data := dexTrades(body)

		ex, err := NormalizeExchanges(data)
		require.NoError(t, err)
		assert.NotNil(t, ex)
		assert.Empty(t, ex)

		pairs, err := NormalizePairs(data)
		require.NoError(t, err)
		assert.NotNil(t, pairs)
		assert.Empty(t, pairs)

		trades, err := NormalizeTrades(data)
		require.NoError(t, err)
		assert.NotNil(t, trades)
		assert.Empty(t, trades)
	}

	balances, err := NormalizeBalances(json.RawMessage(`{"ethereum": {"address": [{"balances": []}]}}`))
	require.NoError(t, err)
	assert.NotNil(t, balances)
	assert.Empty(t, balances)

	balances, err = NormalizeBalances(json.RawMessage(`{"ethereum": {"address": [{"balances": null}]}}`))
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestNormalizers_EmptyResultEncodesAsEmptyArray(t *testing.T) {
	rows, err := NormalizeTrades(dexTrades(`[]`))
	require.NoError(t, err)

	out, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func pairRow(contract, buy, sell string) string {
	return `{"protocol": "Uniswap v2", "exchange": {"fullName": "Uniswap"},
		"smartContract": {"address": {"address": "` + contract + `"}},
		"tradeAmount": 1000.5,
		"buyCurrency": {"symbol": "` + buy + `"}, "sellCurrency": {"symbol": "` + sell + `"}}`
}

func TestNormalizePairs_DedupKeepsFirst(t *testing.T) {
	data := dexTrades(`[` +
		pairRow("0x1", "WETH", "USDC") + `,` +
		pairRow("0x1", "USDC", "WETH") + `,` +
		pairRow("0x2", "WETH", "DAI") + `,` +
		pairRow("0x3", "WBTC", "WETH") + `,` +
		pairRow("0x2", "DAI", "WETH") +
		`]`)

	rows, dropped, err := normalizePairs(data)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)
	require.Len(t, rows, 3)

	assert.Equal(t, models.PairRow{
		Exchange:      "Uniswap",
		Protocol:      "Uniswap v2",
		Currency1:     "WETH",
		Currency2:     "USDC",
		SmartContract: "0x1",
	}, rows[0])
	assert.Equal(t, "0x2", rows[1].SmartContract)
	assert.Equal(t, "WETH", rows[1].Currency1)
	assert.Equal(t, "0x3", rows[2].SmartContract)
}

func TestNormalizePairs_DistinctContracts(t *testing.T) {
	contracts := []string{"0xa", "0xb", "0xa", "0xc", "0xb", "0xa", "0xd"}
	body := "["
	for i, c := range contracts {
		if i > 0 {
			body += ","
		}
		body += pairRow(c, "X", "Y")
	}
	body += "]"

	rows, err := NormalizePairs(dexTrades(body))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rows), len(contracts))

	seen := map[string]bool{}
	for _, r := range rows {
		assert.False(t, seen[r.SmartContract], "duplicate %s", r.SmartContract)
		seen[r.SmartContract] = true
	}
	assert.Len(t, rows, 4)
}

func TestNormalizeTrades_ColumnFidelity(t *testing.T) {
	data := dexTrades(`[{
		"exchange": {"fullName": "Uniswap"},
		"protocol": "Uniswap v2",
		"buyAmount": 1.5,
		"buyCurrency": {"symbol": "WETH"},
		"sellAmount": 2400,
		"sellCurrency": {"symbol": "USDC"},
		"tradeAmount": 2400.25,
		"count": 1,
		"transaction": {"hash": "0xtx"},
		"price": 1600,
		"tradeIndex": "12",
		"block": {"height": 100, "timestamp": {"time": "2023-01-01T00:00:00"}}
	}]`)

	rows, err := NormalizeTrades(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, models.TradeRow{
		Exchange:     "Uniswap",
		Protocol:     "Uniswap v2",
		Timestamp:    "2023-01-01T00:00:00",
		Block:        100,
		BuyCurrency:  "WETH",
		BuyAmount:    1.5,
		SellCurrency: "USDC",
		SellAmount:   2400,
		Price:        1600,
		TradeAmount:  2400.25,
		Transaction:  "0xtx",
		TradeIndex:   "12",
	}, rows[0])
	assert.Len(t, rows[0].Values(), 11)
}

func TestNormalizeTrades_PreservesOrder(t *testing.T) {
	row := func(height, hash string) string {
		return `{"exchange": {"fullName": "Uniswap"}, "buyCurrency": {"symbol": "A"}, "sellCurrency": {"symbol": "B"},
			"transaction": {"hash": "` + hash + `"}, "block": {"height": ` + height + `, "timestamp": {"time": "t"}}}`
	}
	rows, err := NormalizeTrades(dexTrades(`[` + row("3", "0xc") + `,` + row("5", "0xe") + `,` + row("1", "0xa") + `]`))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{3, 5, 1}, []int64{rows[0].Block, rows[1].Block, rows[2].Block})
}

func TestNormalizeBalances(t *testing.T) {
	data := json.RawMessage(`{"ethereum": {"address": [{"balances": [
		{"currency": {"address": "-", "symbol": "ETH"}, "value": 1.25},
		{"currency": {"address": "0xa0b8", "symbol": "USDC"}, "value": 1000}
	]}]}}`)

	rows, err := NormalizeBalances(data)
	require.NoError(t, err)
	assert.Equal(t, []models.BalanceRow{
		{Currency: "ETH", Value: 1.25, CurrencyAddress: "-"},
		{Currency: "USDC", Value: 1000, CurrencyAddress: "0xa0b8"},
	}, rows)
}

func TestNormalizeBalances_AddressNotFound(t *testing.T) {
	_, err := NormalizeBalances(json.RawMessage(`{"ethereum": {"address": []}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNormalization))
	assert.Contains(t, err.Error(), "address not found")
}

func TestNormalizers_MissingNestedKey(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		path string
	}{
		{
			name: "exchange address",
			run: func() error {
				_, err := NormalizeExchanges(dexTrades(`[{"exchange": {"fullName": "Uniswap"}, "protocol": "v2"}]`))
				return err
			},
			path: "exchange.address",
		},
		{
			name: "pair smart contract",
			run: func() error {
				_, err := NormalizePairs(dexTrades(`[{"exchange": {"fullName": "Uniswap"}, "smartContract": null}]`))
				return err
			},
			path: "smartContract",
		},
		{
			name: "trade block timestamp",
			run: func() error {
				_, err := NormalizeTrades(dexTrades(`[{"exchange": {"fullName": "U"}, "buyCurrency": {}, "sellCurrency": {},
					"transaction": {"hash": "0x"}, "block": {"height": 1}}]`))
				return err
			},
			path: "block.timestamp",
		},
		{
			name: "balance currency",
			run: func() error {
				_, err := NormalizeBalances(json.RawMessage(`{"ethereum": {"address": [{"balances": [{"value": 1}]}]}}`))
				return err
			},
			path: "currency",
		},
		{
			name: "no ethereum member",
			run: func() error {
				_, err := NormalizeTrades(json.RawMessage(`{}`))
				return err
			},
			path: "ethereum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNormalization), "got %v", err)
			assert.Contains(t, err.Error(), "missing "+tt.path)
		})
	}
}

func TestNormalizers_WrongShape(t *testing.T) {
	_, err := NormalizeExchanges(dexTrades(`{"not": "a list"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNormalization))
}
