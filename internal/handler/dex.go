package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/bitquery"
	"github.com/TianYu-Yieldera/dexapi/pkg/models"
	"github.com/TianYu-Yieldera/dexapi/pkg/validator"
)

// DexQuerier is implemented by *bitquery.DexClient.
type DexQuerier interface {
	Exchanges(ctx context.Context, q bitquery.ExchangeQuery) (*bitquery.Result[models.ExchangeRow], error)
	Pairs(ctx context.Context, q bitquery.PairQuery) (*bitquery.Result[models.PairRow], error)
	Trades(ctx context.Context, q bitquery.TradeQuery) (*bitquery.Result[models.TradeRow], error)
	Balances(ctx context.Context, q bitquery.BalanceQuery) (*bitquery.Result[models.BalanceRow], error)
}

// TradeHistory reads trades already stored by the sync service.
type TradeHistory interface {
	RecentTrades(ctx context.Context, network, contract string, limit int) ([]models.TradeRow, error)
}

// DexHandler handles the DEX endpoints. There is one client per network.
type DexHandler struct {
	clients map[bitquery.Network]DexQuerier
	history TradeHistory
	logger  *zap.Logger
}

// NewDexHandler creates a new DexHandler. history may be nil.
func NewDexHandler(clients map[bitquery.Network]DexQuerier, history TradeHistory, logger *zap.Logger) *DexHandler {
	return &DexHandler{
		clients: clients,
		history: history,
		logger:  logger,
	}
}

// TableResponse is the body of every successful DEX endpoint.
type TableResponse[T any] struct {
	Network string   `json:"network"`
	Columns []string `json:"columns"`
	Count   int      `json:"count"`
	Data    []T      `json:"data"`
}

// GetExchanges handles GET /exchanges
func (h *DexHandler) GetExchanges(c *gin.Context) {
	network, client, ok := h.client(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	result, err := client.Exchanges(c.Request.Context(), bitquery.ExchangeQuery{
		Start: bitquery.ISO(c.Query("start")),
		End:   bitquery.ISO(c.Query("end")),
		Limit: limit,
	})
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, table(network, models.ExchangeColumns, result.Rows))
}

// GetPairs handles GET /exchanges/:address/pairs
func (h *DexHandler) GetPairs(c *gin.Context) {
	address, ok := pathContract(c, "address")
	if !ok {
		return
	}
	network, client, ok := h.client(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	result, err := client.Pairs(c.Request.Context(), bitquery.PairQuery{
		ExchangeAddress: address,
		Start:           bitquery.ISO(c.Query("start")),
		End:             bitquery.ISO(c.Query("end")),
		Limit:           limit,
	})
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, table(network, models.PairColumns, result.Rows))
}

// GetTrades handles GET /pairs/:contract/trades
func (h *DexHandler) GetTrades(c *gin.Context) {
	contract, ok := pathContract(c, "contract")
	if !ok {
		return
	}
	network, client, ok := h.client(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	result, err := client.Trades(c.Request.Context(), bitquery.TradeQuery{
		SmartContract: contract,
		Start:         bitquery.ISO(c.Query("start")),
		End:           bitquery.ISO(c.Query("end")),
		Limit:         limit,
	})
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, table(network, models.TradeColumns, result.Rows))
}

// GetTradeHistory handles GET /pairs/:contract/history
func (h *DexHandler) GetTradeHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotImplemented, models.ErrorResponse{
			Code:    "HISTORY_DISABLED",
			Message: "Trade history storage is not configured",
		})
		return
	}
	contract, ok := pathContract(c, "contract")
	if !ok {
		return
	}
	network, err := bitquery.ParseNetwork(c.Query("network"))
	if err != nil {
		badNetwork(c, err)
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	if limit <= 0 {
		limit = bitquery.DefaultTradesLimit
	}

	rows, err := h.history.RecentTrades(c.Request.Context(), string(network), contract, limit)
	if err != nil {
		h.logger.Error("Failed to read trade history",
			zap.String("contract", contract),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to retrieve trade history",
		})
		return
	}

	c.JSON(http.StatusOK, table(network, models.TradeColumns, rows))
}

// GetBalances handles GET /address/:address/balances
func (h *DexHandler) GetBalances(c *gin.Context) {
	address, ok := pathAddress(c, "address")
	if !ok {
		return
	}
	network, client, ok := h.client(c)
	if !ok {
		return
	}

	result, err := client.Balances(c.Request.Context(), bitquery.BalanceQuery{
		Address: address,
		Time:    bitquery.ISO(c.Query("time")),
	})
	if err != nil {
		h.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, table(network, models.BalanceColumns, result.Rows))
}

func table[T any](network bitquery.Network, columns []string, rows []T) TableResponse[T] {
	if rows == nil {
		rows = []T{}
	}
	return TableResponse[T]{
		Network: string(network),
		Columns: columns,
		Count:   len(rows),
		Data:    rows,
	}
}

func (h *DexHandler) client(c *gin.Context) (bitquery.Network, DexQuerier, bool) {
	network, err := bitquery.ParseNetwork(c.Query("network"))
	if err != nil {
		badNetwork(c, err)
		return "", nil, false
	}
	client, ok := h.clients[network]
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    "UNSUPPORTED_NETWORK",
			Message: "Network " + string(network) + " is not enabled",
		})
		return "", nil, false
	}
	return network, client, true
}

func badNetwork(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    "UNSUPPORTED_NETWORK",
		Message: err.Error(),
	})
}

func pathAddress(c *gin.Context, param string) (string, bool) {
	address := c.Param(param)
	if !validator.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    "INVALID_ADDRESS",
			Message: "Invalid Ethereum address format",
		})
		return "", false
	}
	return validator.NormalizeAddress(address), true
}

// pathContract is pathAddress for exchange and pair contracts, which are
// never the zero address. Balances of the zero address are valid queries.
func pathContract(c *gin.Context, param string) (string, bool) {
	address, ok := pathAddress(c, param)
	if !ok {
		return "", false
	}
	if validator.IsZeroAddress(address) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    "INVALID_ADDRESS",
			Message: "Zero address is not a contract",
		})
		return "", false
	}
	return address, true
}

// parseLimit reads ?limit. Absent means 0, which selects the default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    "INVALID_LIMIT",
			Message: "limit must be a non-negative integer",
		})
		return 0, false
	}
	return limit, true
}

func (h *DexHandler) upstreamError(c *gin.Context, err error) {
	status, body := http.StatusInternalServerError, models.ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "Failed to query Bitquery",
	}

	var bqErr *bitquery.Error
	if errors.As(err, &bqErr) {
		switch bqErr.Kind {
		case bitquery.KindAuthentication:
			status, body = http.StatusBadGateway, models.ErrorResponse{
				Code:    "UPSTREAM_AUTH",
				Message: "Upstream rejected the configured API key",
			}
		case bitquery.KindConnectivity:
			status, body = http.StatusServiceUnavailable, models.ErrorResponse{
				Code:    "UPSTREAM_UNAVAILABLE",
				Message: "Upstream API is unreachable",
			}
		case bitquery.KindRemoteApplication:
			status, body = http.StatusBadGateway, models.ErrorResponse{
				Code:    "UPSTREAM_ERROR",
				Message: bqErr.Message,
			}
		case bitquery.KindNormalization:
			status, body = http.StatusBadGateway, models.ErrorResponse{
				Code:    "UPSTREAM_MALFORMED",
				Message: "Upstream returned an unexpected response",
			}
		}
	}

	h.logger.Error("Bitquery request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Error(err))
	c.JSON(status, body)
}
