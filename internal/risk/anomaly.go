package risk

import (
	"context"
	"fmt"
	"time"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/ta"

	"github.com/narumiruna/go-iforest/pkg/iforest"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	anomalyWindow     = 8
	anomalyMinSamples = 32
	anomalyThreshold  = 0.65
)

// AnomalyDetector flags symbols whose latest return window looks isolated
// from the rest of their own history, using an isolation forest fitted per
// symbol on sliding return windows.
type AnomalyDetector struct {
	tracer    trace.Tracer
	threshold float64
}

func NewAnomalyDetector(tracer trace.Tracer) *AnomalyDetector {
	return &AnomalyDetector{tracer: tracer, threshold: anomalyThreshold}
}

// Scan checks each symbol's candle history and returns one alert per symbol
// whose most recent window scores above the anomaly threshold. Symbols with
// too little history are skipped, never flagged.
func (d *AnomalyDetector) Scan(ctx context.Context, candlesBySymbol map[string][]*domain.Candle) []domain.RiskAlert {
	_, span := d.tracer.Start(ctx, "risk.anomaly-scan")
	defer span.End()

	now := time.Now().UTC()
	var alerts []domain.RiskAlert

	for symbol, candles := range candlesBySymbol {
		score, ok := d.latestWindowScore(domain.Closes(candles))
		if !ok {
			continue
		}
		if score >= d.threshold {
			alerts = append(alerts, domain.RiskAlert{
				Kind:      domain.AlertReturnAnomaly,
				Message:   fmt.Sprintf("return anomaly detected for %s (score %.2f)", symbol, score),
				Timestamp: now,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("symbols", len(candlesBySymbol)),
		attribute.Int("anomalies", len(alerts)),
	)
	return alerts
}

// latestWindowScore fits a forest on all sliding return windows of the
// series and scores the newest one. ok is false when the history is too
// short to fit anything meaningful.
func (d *AnomalyDetector) latestWindowScore(closes []float64) (float64, bool) {
	returns := ta.SimpleReturns(closes)
	if len(returns) < anomalyWindow+anomalyMinSamples-1 {
		return 0, false
	}

	samples := make([][]float64, 0, len(returns)-anomalyWindow+1)
	for i := 0; i+anomalyWindow <= len(returns); i++ {
		window := make([]float64, anomalyWindow)
		copy(window, returns[i:i+anomalyWindow])
		samples = append(samples, window)
	}

	forest := iforest.New()
	forest.Fit(samples)

	scores := forest.Score(samples[len(samples)-1:])
	if len(scores) == 0 {
		return 0, false
	}
	return scores[0], true
}
