package bitquery

import (
	"encoding/json"

	"github.com/TianYu-Yieldera/dexapi/pkg/models"
)

// Raw response shapes. Nested objects are pointers so that an absent or null
// key is detected instead of silently producing zero values.

type rawAddress struct {
	Address string `json:"address"`
}

type rawExchange struct {
	FullName string      `json:"fullName"`
	Address  *rawAddress `json:"address"`
}

type rawCurrency struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type rawSmartContract struct {
	Address *rawAddress `json:"address"`
}

type rawTransaction struct {
	Hash string `json:"hash"`
}

type rawBlockTime struct {
	Time string `json:"time"`
}

type rawBlock struct {
	Height    int64         `json:"height"`
	Timestamp *rawBlockTime `json:"timestamp"`
}

type rawExchangeTrade struct {
	Exchange    *rawExchange `json:"exchange"`
	Protocol    string       `json:"protocol"`
	Count       int64        `json:"count"`
	TradeAmount float64      `json:"tradeAmount"`
}

type rawPairTrade struct {
	Protocol      string            `json:"protocol"`
	Exchange      *rawExchange      `json:"exchange"`
	SmartContract *rawSmartContract `json:"smartContract"`
	TradeAmount   float64           `json:"tradeAmount"`
	BuyCurrency   *rawCurrency      `json:"buyCurrency"`
	SellCurrency  *rawCurrency      `json:"sellCurrency"`
}

type rawTrade struct {
	Exchange     *rawExchange    `json:"exchange"`
	Protocol     string          `json:"protocol"`
	BuyAmount    float64         `json:"buyAmount"`
	BuyCurrency  *rawCurrency    `json:"buyCurrency"`
	SellAmount   float64         `json:"sellAmount"`
	SellCurrency *rawCurrency    `json:"sellCurrency"`
	TradeAmount  float64         `json:"tradeAmount"`
	Transaction  *rawTransaction `json:"transaction"`
	Price        float64         `json:"price"`
	TradeIndex   json.Number     `json:"tradeIndex"`
	Block        *rawBlock       `json:"block"`
}

type rawBalance struct {
	Currency *rawCurrency `json:"currency"`
	Value    float64      `json:"value"`
}

type dexTradesResult[T any] struct {
	Ethereum *struct {
		DexTrades []T `json:"dexTrades"`
	} `json:"ethereum"`
}

type balancesResult struct {
	Ethereum *struct {
		Address []struct {
			Balances []rawBalance `json:"balances"`
		} `json:"address"`
	} `json:"ethereum"`
}

func decodeDexTrades[T any](data json.RawMessage) ([]T, error) {
	var result dexTradesResult[T]
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &Error{Kind: KindNormalization, Message: "unexpected dexTrades shape", Err: err}
	}
	if result.Ethereum == nil {
		return nil, normalizationErrorf("missing ethereum")
	}
	return result.Ethereum.DexTrades, nil
}

func missing(row int, path string) error {
	return normalizationErrorf("row %d: missing %s", row, path)
}

// NormalizeExchanges flattens an exchange ranking result.
func NormalizeExchanges(data json.RawMessage) ([]models.ExchangeRow, error) {
	trades, err := decodeDexTrades[rawExchangeTrade](data)
	if err != nil {
		return nil, err
	}

	rows := make([]models.ExchangeRow, 0, len(trades))
	for i, t := range trades {
		if t.Exchange == nil {
			return nil, missing(i, "exchange")
		}
		if t.Exchange.Address == nil {
			return nil, missing(i, "exchange.address")
		}
		rows = append(rows, models.ExchangeRow{
			Exchange:        t.Exchange.FullName,
			Protocol:        t.Protocol,
			Count:           t.Count,
			TradeAmount:     t.TradeAmount,
			ExchangeAddress: t.Exchange.Address.Address,
		})
	}
	return rows, nil
}

// NormalizePairs flattens a pair ranking result, keeping the first row seen
// for each smart contract. Row order is the API's, minus duplicates.
func NormalizePairs(data json.RawMessage) ([]models.PairRow, error) {
	rows, _, err := normalizePairs(data)
	return rows, err
}

func normalizePairs(data json.RawMessage) ([]models.PairRow, int, error) {
	trades, err := decodeDexTrades[rawPairTrade](data)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]models.PairRow, 0, len(trades))
	seen := make(map[string]struct{}, len(trades))
	dropped := 0
	for i, t := range trades {
		switch {
		case t.Exchange == nil:
			return nil, 0, missing(i, "exchange")
		case t.SmartContract == nil:
			return nil, 0, missing(i, "smartContract")
		case t.SmartContract.Address == nil:
			return nil, 0, missing(i, "smartContract.address")
		case t.BuyCurrency == nil:
			return nil, 0, missing(i, "buyCurrency")
		case t.SellCurrency == nil:
			return nil, 0, missing(i, "sellCurrency")
		}

		contract := t.SmartContract.Address.Address
		if _, ok := seen[contract]; ok {
			dropped++
			continue
		}
		seen[contract] = struct{}{}

		rows = append(rows, models.PairRow{
			Exchange:      t.Exchange.FullName,
			Protocol:      t.Protocol,
			Currency1:     t.BuyCurrency.Symbol,
			Currency2:     t.SellCurrency.Symbol,
			SmartContract: contract,
		})
	}
	return rows, dropped, nil
}

// NormalizeTrades flattens a trade history result.
func NormalizeTrades(data json.RawMessage) ([]models.TradeRow, error) {
	trades, err := decodeDexTrades[rawTrade](data)
	if err != nil {
		return nil, err
	}

	rows := make([]models.TradeRow, 0, len(trades))
	for i, t := range trades {
		switch {
		case t.Exchange == nil:
			return nil, missing(i, "exchange")
		case t.BuyCurrency == nil:
			return nil, missing(i, "buyCurrency")
		case t.SellCurrency == nil:
			return nil, missing(i, "sellCurrency")
		case t.Transaction == nil:
			return nil, missing(i, "transaction")
		case t.Block == nil:
			return nil, missing(i, "block")
		case t.Block.Timestamp == nil:
			return nil, missing(i, "block.timestamp")
		}

		rows = append(rows, models.TradeRow{
			Exchange:     t.Exchange.FullName,
			Protocol:     t.Protocol,
			Timestamp:    t.Block.Timestamp.Time,
			Block:        t.Block.Height,
			BuyCurrency:  t.BuyCurrency.Symbol,
			BuyAmount:    t.BuyAmount,
			SellCurrency: t.SellCurrency.Symbol,
			SellAmount:   t.SellAmount,
			Price:        t.Price,
			TradeAmount:  t.TradeAmount,
			Transaction:  t.Transaction.Hash,
			TradeIndex:   t.TradeIndex.String(),
		})
	}
	return rows, nil
}

// NormalizeBalances flattens the balances of the first address in the result.
// An empty address list means the address is unknown to the API.
func NormalizeBalances(data json.RawMessage) ([]models.BalanceRow, error) {
	var result balancesResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &Error{Kind: KindNormalization, Message: "unexpected balances shape", Err: err}
	}
	if result.Ethereum == nil {
		return nil, normalizationErrorf("missing ethereum")
	}
	if len(result.Ethereum.Address) == 0 {
		return nil, normalizationErrorf("address not found in result")
	}

	balances := result.Ethereum.Address[0].Balances
	rows := make([]models.BalanceRow, 0, len(balances))
	for i, b := range balances {
		if b.Currency == nil {
			return nil, missing(i, "currency")
		}
		rows = append(rows, models.BalanceRow{
			Currency:        b.Currency.Symbol,
			Value:           b.Value,
			CurrencyAddress: b.Currency.Address,
		})
	}
	return rows, nil
}
