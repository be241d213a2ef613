package handler

import (
	"net/http"

	"cautious-pancake/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetRiskMetrics godoc
// @Summary      Get portfolio risk metrics
// @Description  Returns VaR, volatility, Sharpe ratio, beta and mean correlation over open positions
// @Tags         risk
// @Produce      json
// @Success      200  {object}  domain.RiskMetrics
// @Router       /api/risk/metrics [get]
func (h *Handler) GetRiskMetrics(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-risk-metrics")
	defer span.End()

	c.JSON(http.StatusOK, h.risk.Metrics())
}

// GetRiskAlerts godoc
// @Summary      Get accumulated risk alerts
// @Description  Returns alerts raised by the background monitor since the last clear
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/risk/alerts [get]
func (h *Handler) GetRiskAlerts(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-risk-alerts")
	defer span.End()

	alerts := h.risk.Alerts()
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// ClearRiskAlerts godoc
// @Summary      Clear accumulated risk alerts
// @Tags         risk
// @Produce      json
// @Success      200  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/risk/alerts [delete]
func (h *Handler) ClearRiskAlerts(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.clear-risk-alerts")
	defer span.End()

	h.risk.ClearAlerts()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// GetPositions godoc
// @Summary      List open positions
// @Tags         positions
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/positions [get]
func (h *Handler) GetPositions(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-positions")
	defer span.End()

	positions := h.risk.Positions()
	c.JSON(http.StatusOK, gin.H{
		"count":     len(positions),
		"positions": positions,
	})
}

// AddPosition godoc
// @Summary      Register an open position
// @Description  Admits the position if it passes all risk limit checks
// @Tags         positions
// @Accept       json
// @Produce      json
// @Param        position  body  domain.Position  true  "Position to register"
// @Success      201  {object}  domain.Position
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/positions [post]
func (h *Handler) AddPosition(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.add-position")
	defer span.End()

	var pos domain.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol, ok := domain.NormalizeSymbol(pos.Symbol)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + pos.Symbol,
			"supported_symbols": domain.SupportedSymbols,
		})
		return
	}
	pos.Symbol = symbol
	span.SetAttributes(attribute.String("symbol", symbol))

	if err := h.risk.AddPosition(pos); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, pos)
}

// RemovePosition godoc
// @Summary      Remove an open position
// @Description  Removing an unknown symbol is a no-op
// @Tags         positions
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/positions/{symbol} [delete]
func (h *Handler) RemovePosition(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.remove-position")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	h.risk.RemovePosition(symbol)
	c.JSON(http.StatusOK, gin.H{"status": "removed", "symbol": symbol})
}
