package handler

import (
	"net/http"
	"strconv"

	"cautious-pancake/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// symbolParam normalizes the :symbol path parameter. Writes the 400 response
// itself and returns false for unknown assets.
func symbolParam(c *gin.Context) (string, bool) {
	symbol, ok := domain.NormalizeSymbol(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + c.Param("symbol"),
			"supported_symbols": domain.SupportedSymbols,
		})
		return "", false
	}
	return symbol, true
}

// GetSignal godoc
// @Summary      Get the current trading signal for an asset
// @Description  Runs the decision pipeline (or serves a cached result) and returns the signal with position sizing
// @Tags         signals
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.TradingSignal
// @Failure      400  {object}  map[string]string
// @Router       /api/signal/{symbol} [get]
func (h *Handler) GetSignal(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signal")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	sig, err := h.signals.GetSignal(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sig)
}

// GetAnalysis godoc
// @Summary      Get derived market condition for an asset
// @Description  Returns trend, volatility, volume profile, sentiment and macro regime
// @Tags         signals
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., BTC, ETH)"
// @Success      200  {object}  domain.MarketCondition
// @Failure      400  {object}  map[string]string
// @Router       /api/analysis/{symbol} [get]
func (h *Handler) GetAnalysis(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-analysis")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	condition, err := h.signals.AnalyzeMarket(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, condition)
}

// GetDecisions godoc
// @Summary      Get recent logged decisions for an asset
// @Description  Returns the latest entries from the decision log, oldest-first
// @Tags         signals
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol (e.g., BTC, ETH)"
// @Param        limit   query  int     false  "Number of decisions (default 20, max 200)"  default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/decisions/{symbol} [get]
func (h *Handler) GetDecisions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-decisions")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	limit := 20
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	decisions, err := h.signals.RecentDecisions(ctx, symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"decisions": decisions,
	})
}

// GetPerformance godoc
// @Summary      Get emitted-signal counters
// @Description  Returns totals of buy, sell and hold signals emitted since start
// @Tags         signals
// @Produce      json
// @Success      200  {object}  strategy.Performance
// @Router       /api/performance [get]
func (h *Handler) GetPerformance(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-performance")
	defer span.End()

	c.JSON(http.StatusOK, h.signals.Performance())
}
