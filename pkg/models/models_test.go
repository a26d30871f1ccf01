package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValuesFollowColumnOrder(t *testing.T) {
	ex := ExchangeRow{Exchange: "Uniswap", Protocol: "Uniswap v2", Count: 10, TradeAmount: 500, ExchangeAddress: "0xabc"}
	assert.Len(t, ex.Values(), len(ExchangeColumns))
	assert.Equal(t, []string{"Uniswap", "Uniswap v2", "10", "500", "0xabc"}, ex.Values())

	pair := PairRow{Exchange: "Uniswap", Protocol: "Uniswap v2", Currency1: "WETH", Currency2: "USDC", SmartContract: "0xpair"}
	assert.Len(t, pair.Values(), len(PairColumns))
	assert.Equal(t, "0xpair", pair.Values()[4])

	trade := TradeRow{Timestamp: "2023-01-01T00:00:00", Block: 100, Price: 0.25, Transaction: "0xtx"}
	values := trade.Values()
	assert.Len(t, values, len(TradeColumns))
	assert.Equal(t, "2023-01-01T00:00:00", values[2])
	assert.Equal(t, "100", values[3])
	assert.Equal(t, "0.25", values[8])
	assert.Equal(t, "0xtx", values[10])

	bal := BalanceRow{Currency: "ETH", Value: 1.5, CurrencyAddress: "-"}
	assert.Equal(t, []string{"ETH", "1.5", "-"}, bal.Values())
}

func TestTradeEventAvro(t *testing.T) {
	ev := TradeEvent{
		Network:       "ethereum",
		SmartContract: "0xpair",
		TradeRow: TradeRow{
			Exchange:     "Uniswap",
			Protocol:     "Uniswap v2",
			Timestamp:    "2023-01-01 00:00:12",
			Block:        16308190,
			BuyCurrency:  "WETH",
			BuyAmount:    1.25,
			SellCurrency: "USDC",
			SellAmount:   1500,
			Price:        1200,
			TradeAmount:  1500.5,
			Transaction:  "0xtx",
			TradeIndex:   "3",
		},
		IndexedAt: time.Date(2023, 1, 1, 0, 1, 0, 0, time.UTC),
	}
	ev.Index = ev.TradeIndex

	data, err := ev.EncodeAvro()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	got, err := DecodeTradeEventAvro(data)
	require.NoError(t, err)
	assert.Equal(t, ev.TradeRow, got.TradeRow)
	assert.Equal(t, "3", got.Index)
	assert.Equal(t, "0xpair", got.SmartContract)
	assert.True(t, ev.IndexedAt.Equal(got.IndexedAt))
}

func TestTradeKey(t *testing.T) {
	assert.Equal(t, "0xtx", TradeRow{Transaction: "0xtx"}.Key())
	assert.Equal(t, "0xtx:2", TradeRow{Transaction: "0xtx", TradeIndex: "2"}.Key())
}

func TestNewTradeEvent_JSONCarriesTradeIndex(t *testing.T) {
	ev := NewTradeEvent("ethereum", "0xpair", TradeRow{Transaction: "0xtx", TradeIndex: "4"}, time.Unix(0, 0).UTC())
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tradeIndex":"4"`)

	row, err := json.Marshal(ev.TradeRow)
	require.NoError(t, err)
	assert.NotContains(t, string(row), "tradeIndex")
}
