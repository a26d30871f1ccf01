package bitquery

import (
	"fmt"
)

// Network selects the chain queried through the ethereum(network:) field.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkBSC      Network = "bsc"
)

// ParseNetwork maps a config or query-string value to a Network. Empty means
// ethereum.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case "", NetworkEthereum:
		return NetworkEthereum, nil
	case NetworkBSC:
		return NetworkBSC, nil
	default:
		return "", fmt.Errorf("unsupported network %q (want ethereum or bsc)", s)
	}
}

// Default row limits per operation.
const (
	DefaultExchangesLimit = 20
	DefaultPairsLimit     = 100
	DefaultTradesLimit    = 1000
)

// OverfetchFactor multiplies the pair limit sent to the API. A pair usually
// shows up once per trade direction and NormalizePairs keeps only the first,
// so roughly half of the fetched rows are dropped. Fewer than limit rows may
// still come back.
const OverfetchFactor = 2

// Request is the body posted to the GraphQL endpoint.
type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

const exchangesQuery = `
query ($limit: Int!, $start_time: ISO8601DateTime, $end_time: ISO8601DateTime, $network: EthereumNetwork) {
  ethereum(network: $network) {
    dexTrades(
      options: {limit: $limit, desc: "tradeAmount"}
      time: {since: $start_time, till: $end_time}
    ) {
      exchange {
        fullName
        address {
          address
        }
      }
      protocol
      count
      tradeAmount(in: USD, calculate: sum)
    }
  }
}
`

const pairsQuery = `
query ($limit: Int!, $start_time: ISO8601DateTime, $end_time: ISO8601DateTime,
$exchange_address: String!, $network: EthereumNetwork) {
  ethereum(network: $network) {
    dexTrades(
      options: {limit: $limit, desc: "tradeAmount"}
      time: {since: $start_time, till: $end_time}
      exchangeAddress: {is: $exchange_address}
    ) {
      protocol
      exchange {
        fullName
      }
      smartContract {
        address {
          address
        }
      }
      tradeAmount(in: USD, calculate: sum)
      buyCurrency {
        symbol
      }
      sellCurrency {
        symbol
      }
    }
  }
}
`

const tradesQuery = `
query ($limit: Int!, $smart_contract: String!, $start_time: ISO8601DateTime,
$end_time: ISO8601DateTime, $network: EthereumNetwork) {
  ethereum(network: $network) {
    dexTrades(
      options: {limit: $limit, desc: "block.height"}
      smartContractAddress: {is: $smart_contract}
      time: {since: $start_time, till: $end_time}
    ) {
      exchange {
        fullName
      }
      protocol
      buyAmount
      buyCurrency {
        symbol
      }
      sellAmount
      sellCurrency {
        symbol
      }
      tradeAmount(in: USD)
      count
      transaction {
        hash
      }
      price
      tradeIndex
      block {
        height
        timestamp {
          time
        }
      }
    }
  }
}
`

const balancesQuery = `
query ($address: String!, $time: ISO8601DateTime, $network: EthereumNetwork) {
  ethereum(network: $network) {
    address(address: {is: $address}) {
      balances(time: {till: $time}) {
        currency {
          address
          symbol
        }
        value
      }
    }
  }
}
`

// BuildExchangesQuery ranks exchanges by USD volume between start and end.
func BuildExchangesQuery(network Network, start, end TimeSpec, limit int) Request {
	return Request{
		Query: exchangesQuery,
		Variables: map[string]interface{}{
			"network":    string(network),
			"limit":      limit,
			"start_time": Normalize(true, start),
			"end_time":   Normalize(false, end),
		},
	}
}

// BuildPairsQuery ranks the pairs of one exchange. The limit sent is
// limit*OverfetchFactor.
func BuildPairsQuery(network Network, exchangeAddress string, start, end TimeSpec, limit int) Request {
	return Request{
		Query: pairsQuery,
		Variables: map[string]interface{}{
			"network":          string(network),
			"limit":            limit * OverfetchFactor,
			"exchange_address": exchangeAddress,
			"start_time":       Normalize(true, start),
			"end_time":         Normalize(false, end),
		},
	}
}

// BuildTradesQuery lists the most recent trades of a pair contract.
func BuildTradesQuery(network Network, smartContract string, start, end TimeSpec, limit int) Request {
	return Request{
		Query: tradesQuery,
		Variables: map[string]interface{}{
			"network":        string(network),
			"limit":          limit,
			"smart_contract": smartContract,
			"start_time":     Normalize(true, start),
			"end_time":       Normalize(false, end),
		},
	}
}

// BuildBalancesQuery snapshots the balances of an address at a point in time.
func BuildBalancesQuery(network Network, address string, at TimeSpec) Request {
	return Request{
		Query: balancesQuery,
		Variables: map[string]interface{}{
			"network": string(network),
			"address": address,
			"time":    Normalize(false, at),
		},
	}
}
