package handler

import (
	"github.com/gin-gonic/gin"
)

// Register mounts the health check and the v1 DEX routes.
func Register(router gin.IRouter, dex *DexHandler, health *HealthHandler) {
	router.GET("/health", health.Health)

	v1 := router.Group("/api/v1")
	{
		exchanges := v1.Group("/exchanges")
		{
			exchanges.GET("", dex.GetExchanges)
			exchanges.GET("/:address/pairs", dex.GetPairs)
		}

		pairs := v1.Group("/pairs")
		{
			pairs.GET("/:contract/trades", dex.GetTrades)
			pairs.GET("/:contract/history", dex.GetTradeHistory)
		}

		v1.GET("/address/:address/balances", dex.GetBalances)
	}
}
