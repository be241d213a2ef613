package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cautious-pancake/internal/domain"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"symbols": len(domain.SupportedSymbols),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
