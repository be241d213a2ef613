package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TriggerEdgeFit godoc
// @Summary      Train the edge model on stored history
// @Description  Fits the gradient-boosted edge model on the symbol's stored 1h candles
// @Tags         ml
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/ml/fit/{symbol} [post]
func (h *Handler) TriggerEdgeFit(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-edge-fit")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	if err := h.signals.FitEdgeModel(ctx, symbol); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "trained", "symbol": symbol})
}
