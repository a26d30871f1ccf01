package models

import (
	"fmt"
	"sync"
	"time"

	"github.com/linkedin/goavro/v2"
)

// TradeEvent is a trade row tagged with where it was synced from.
// It is the payload published to Kafka by the trade sync service.
type TradeEvent struct {
	Network       string `json:"network" avro:"network"`
	SmartContract string `json:"smartContract" avro:"smart_contract"`
	TradeRow
	Index     string    `json:"tradeIndex" avro:"trade_index"`
	IndexedAt time.Time `json:"indexedAt" avro:"indexed_at"`
}

func NewTradeEvent(network, contract string, row TradeRow, indexedAt time.Time) TradeEvent {
	return TradeEvent{
		Network:       network,
		SmartContract: contract,
		TradeRow:      row,
		Index:         row.TradeIndex,
		IndexedAt:     indexedAt,
	}
}

const TradeEventSchema = `{
	"type": "record",
	"name": "TradeEvent",
	"namespace": "dexapi.trades",
	"fields": [
		{"name": "network", "type": "string"},
		{"name": "smart_contract", "type": "string"},
		{"name": "exchange", "type": "string"},
		{"name": "protocol", "type": "string"},
		{"name": "timestamp", "type": "string"},
		{"name": "block", "type": "long"},
		{"name": "buy_currency", "type": "string"},
		{"name": "buy_amount", "type": "double"},
		{"name": "sell_currency", "type": "string"},
		{"name": "sell_amount", "type": "double"},
		{"name": "price", "type": "double"},
		{"name": "trade_amount", "type": "double"},
		{"name": "transaction", "type": "string"},
		{"name": "trade_index", "type": "string", "default": ""},
		{"name": "indexed_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

var (
	tradeCodecOnce sync.Once
	tradeCodec     *goavro.Codec
	tradeCodecErr  error
)

func tradeEventCodec() (*goavro.Codec, error) {
	tradeCodecOnce.Do(func() {
		tradeCodec, tradeCodecErr = goavro.NewCodec(TradeEventSchema)
	})
	return tradeCodec, tradeCodecErr
}

// EncodeAvro returns the Avro binary encoding of the event.
func (e TradeEvent) EncodeAvro() ([]byte, error) {
	codec, err := tradeEventCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to build avro codec: %w", err)
	}

	native := map[string]interface{}{
		"network":        e.Network,
		"smart_contract": e.SmartContract,
		"exchange":       e.Exchange,
		"protocol":       e.Protocol,
		"timestamp":      e.Timestamp,
		"block":          e.Block,
		"buy_currency":   e.BuyCurrency,
		"buy_amount":     e.BuyAmount,
		"sell_currency":  e.SellCurrency,
		"sell_amount":    e.SellAmount,
		"price":          e.Price,
		"trade_amount":   e.TradeAmount,
		"transaction":    e.Transaction,
		"trade_index":    e.Index,
		"indexed_at":     e.IndexedAt.UTC(),
	}

	data, err := codec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, fmt.Errorf("failed to encode trade event: %w", err)
	}
	return data, nil
}

// DecodeTradeEventAvro is the inverse of TradeEvent.EncodeAvro.
func DecodeTradeEventAvro(data []byte) (*TradeEvent, error) {
	codec, err := tradeEventCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to build avro codec: %w", err)
	}

	native, _, err := codec.NativeFromBinary(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode trade event: %w", err)
	}

	m, ok := native.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected avro native type %T", native)
	}

	ev := &TradeEvent{
		Network:       m["network"].(string),
		SmartContract: m["smart_contract"].(string),
		TradeRow: TradeRow{
			Exchange:     m["exchange"].(string),
			Protocol:     m["protocol"].(string),
			Timestamp:    m["timestamp"].(string),
			Block:        m["block"].(int64),
			BuyCurrency:  m["buy_currency"].(string),
			BuyAmount:    m["buy_amount"].(float64),
			SellCurrency: m["sell_currency"].(string),
			SellAmount:   m["sell_amount"].(float64),
			Price:        m["price"].(float64),
			TradeAmount:  m["trade_amount"].(float64),
			Transaction:  m["transaction"].(string),
		},
	}
	if idx, ok := m["trade_index"].(string); ok {
		ev.Index = idx
		ev.TradeIndex = idx
	}
	if ts, ok := m["indexed_at"].(time.Time); ok {
		ev.IndexedAt = ts
	}
	return ev, nil
}
