package models

import (
	"strconv"
)

// ExchangeRow is one DEX ranked by USD trade volume.
type ExchangeRow struct {
	Exchange        string  `json:"exchange" avro:"exchange"`
	Protocol        string  `json:"protocol" avro:"protocol"`
	Count           int64   `json:"count" avro:"count"`
	TradeAmount     float64 `json:"tradeAmount" avro:"trade_amount"`
	ExchangeAddress string  `json:"exchangeAddress" avro:"exchange_address"`
}

var ExchangeColumns = []string{"exchange", "protocol", "count", "tradeAmount", "exchangeAddress"}

func (r ExchangeRow) Values() []string {
	return []string{
		r.Exchange,
		r.Protocol,
		strconv.FormatInt(r.Count, 10),
		formatFloat(r.TradeAmount),
		r.ExchangeAddress,
	}
}

// PairRow is one trading pair contract on an exchange.
type PairRow struct {
	Exchange      string `json:"exchange" avro:"exchange"`
	Protocol      string `json:"protocol" avro:"protocol"`
	Currency1     string `json:"currency1" avro:"currency1"`
	Currency2     string `json:"currency2" avro:"currency2"`
	SmartContract string `json:"smartContract" avro:"smart_contract"`
}

var PairColumns = []string{"exchange", "protocol", "currency1", "currency2", "smartContract"}

func (r PairRow) Values() []string {
	return []string{r.Exchange, r.Protocol, r.Currency1, r.Currency2, r.SmartContract}
}

// TradeRow is a single swap executed against a pair contract.
type TradeRow struct {
	Exchange     string  `json:"exchange" avro:"exchange"`
	Protocol     string  `json:"protocol" avro:"protocol"`
	Timestamp    string  `json:"timestamp" avro:"timestamp"`
	Block        int64   `json:"block" avro:"block"`
	BuyCurrency  string  `json:"buyCurrency" avro:"buy_currency"`
	BuyAmount    float64 `json:"buyAmount" avro:"buy_amount"`
	SellCurrency string  `json:"sellCurrency" avro:"sell_currency"`
	SellAmount   float64 `json:"sellAmount" avro:"sell_amount"`
	Price        float64 `json:"price" avro:"price"`
	TradeAmount  float64 `json:"tradeAmount" avro:"trade_amount"`
	Transaction  string  `json:"transaction" avro:"transaction"`

	// TradeIndex orders swaps inside one transaction. It is kept for storage
	// and event keys and is not an output column.
	TradeIndex string `json:"-" avro:"trade_index"`
}

// Key identifies a trade across syncs: the transaction hash, plus the trade
// index when one is known.
func (r TradeRow) Key() string {
	if r.TradeIndex == "" {
		return r.Transaction
	}
	return r.Transaction + ":" + r.TradeIndex
}

var TradeColumns = []string{
	"exchange", "protocol", "timestamp", "block", "buyCurrency", "buyAmount",
	"sellCurrency", "sellAmount", "price", "tradeAmount", "transaction",
}

func (r TradeRow) Values() []string {
	return []string{
		r.Exchange,
		r.Protocol,
		r.Timestamp,
		strconv.FormatInt(r.Block, 10),
		r.BuyCurrency,
		formatFloat(r.BuyAmount),
		r.SellCurrency,
		formatFloat(r.SellAmount),
		formatFloat(r.Price),
		formatFloat(r.TradeAmount),
		r.Transaction,
	}
}

// BalanceRow is the holding of one currency by an address.
type BalanceRow struct {
	Currency        string  `json:"currency" avro:"currency"`
	Value           float64 `json:"value" avro:"value"`
	CurrencyAddress string  `json:"currencyAddress" avro:"currency_address"`
}

var BalanceColumns = []string{"currency", "value", "currencyAddress"}

func (r BalanceRow) Values() []string {
	return []string{r.Currency, formatFloat(r.Value), r.CurrencyAddress}
}

// ErrorResponse is the JSON body returned by the API server on failure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
