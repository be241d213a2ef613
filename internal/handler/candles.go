package handler

import (
	"net/http"
	"strconv"
	"time"

	"cautious-pancake/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetCandles godoc
// @Summary      Get historical OHLCV candles
// @Description  Returns stored candles newest-first; from/to switch to a time-range query
// @Tags         candles
// @Produce      json
// @Param        symbol    path   string  true   "Asset symbol (e.g., BTC, ETH)"
// @Param        interval  query  string  false  "Candle interval (5m, 15m, 1h, 4h, 1d)"  default(1h)
// @Param        limit     query  int     false  "Number of candles (default 100, max 500)"  default(100)
// @Param        from      query  string  false  "Range start (RFC 3339)"
// @Param        to        query  string  false  "Range end (RFC 3339)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/candles/{symbol} [get]
func (h *Handler) GetCandles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol, ok := symbolParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	interval := c.DefaultQuery("interval", "1h")
	validInterval := false
	for _, si := range domain.SupportedIntervals {
		if interval == si {
			validInterval = true
			break
		}
	}
	if !validInterval {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":               "unsupported interval: " + interval,
			"supported_intervals": domain.SupportedIntervals,
		})
		return
	}

	var (
		candles []*domain.Candle
		err     error
	)
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, rangeErr := parseRange(c.Query("from"), c.Query("to"))
		if rangeErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": rangeErr.Error()})
			return
		}
		candles, err = h.signals.GetCandlesInRange(ctx, symbol, interval, from, to)
	} else {
		limit := 100
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}
		candles, err = h.signals.GetCandles(ctx, symbol, interval, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
	})
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().UTC()

	if fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}
