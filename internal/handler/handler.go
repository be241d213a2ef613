package handler

import (
	"context"
	"time"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// SignalReader is the slice of the signal service the HTTP layer uses.
type SignalReader interface {
	GetSignal(ctx context.Context, symbol string) (domain.TradingSignal, error)
	AnalyzeMarket(ctx context.Context, symbol string) (domain.MarketCondition, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
	GetCandlesInRange(ctx context.Context, symbol, interval string, from, to time.Time) ([]*domain.Candle, error)
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]domain.Decision, error)
	Performance() strategy.Performance
	FitEdgeModel(ctx context.Context, symbol string) error
}

// RiskController is the slice of the risk manager the HTTP layer uses.
type RiskController interface {
	Positions() []domain.Position
	AddPosition(pos domain.Position) error
	RemovePosition(symbol string)
	Metrics() domain.RiskMetrics
	Alerts() []domain.RiskAlert
	ClearAlerts()
}

type Handler struct {
	tracer  trace.Tracer
	signals SignalReader
	risk    RiskController
}

func New(tracer trace.Tracer, signals SignalReader, risk RiskController) *Handler {
	return &Handler{
		tracer:  tracer,
		signals: signals,
		risk:    risk,
	}
}

// RegisterRoutes wires all endpoints. Mutating endpoints sit behind the API
// key middleware; an empty key disables auth.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	r.GET("/api/signal/:symbol", h.GetSignal)
	r.GET("/api/analysis/:symbol", h.GetAnalysis)
	r.GET("/api/candles/:symbol", h.GetCandles)
	r.GET("/api/decisions/:symbol", h.GetDecisions)
	r.GET("/api/performance", h.GetPerformance)

	r.GET("/api/risk/metrics", h.GetRiskMetrics)
	r.GET("/api/risk/alerts", h.GetRiskAlerts)
	r.GET("/api/positions", h.GetPositions)

	auth := r.Group("/", APIKeyAuth(apiKey))
	auth.DELETE("/api/risk/alerts", h.ClearRiskAlerts)
	auth.POST("/api/positions", h.AddPosition)
	auth.DELETE("/api/positions/:symbol", h.RemovePosition)
	auth.POST("/api/ml/fit/:symbol", h.TriggerEdgeFit)
}
