package ml

import (
	"context"
	"fmt"
	"log"
	"sync"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const minTrainingSamples = 50

// EdgeService owns the fitted edge model. Reads (ProbUp) vastly outnumber
// writes (Fit), hence the RWMutex. The zero-value service answers nothing
// until the first successful Fit.
type EdgeService struct {
	tracer trace.Tracer

	mu    sync.RWMutex
	model *Model
}

func NewEdgeService(tracer trace.Tracer) *EdgeService {
	return &EdgeService{tracer: tracer}
}

// Fit trains a fresh model on the candle window and swaps it in atomically.
// The previous model keeps serving until the swap.
func (s *EdgeService) Fit(ctx context.Context, symbol string, candles []*domain.Candle) error {
	_, span := s.tracer.Start(ctx, "ml.fit")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	samples, labels := Dataset(candles)
	if len(samples) < minTrainingSamples {
		return fmt.Errorf("need at least %d samples to fit, have %d", minTrainingSamples, len(samples))
	}

	model, err := Train(samples, labels, FeatureNames, DefaultTrainOptions())
	if err != nil {
		return fmt.Errorf("fit edge model for %s: %w", symbol, err)
	}

	s.mu.Lock()
	s.model = model
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("samples", len(samples)))
	log.Printf("fitted edge model for %s on %d samples", symbol, len(samples))
	return nil
}

// ProbUp returns the model probability that price closes higher a few bars
// ahead of the latest bar. ok is false when no model is fitted or the window
// is still inside the indicator warmup.
func (s *EdgeService) ProbUp(candles []*domain.Candle) (float64, bool) {
	s.mu.RLock()
	model := s.model
	s.mu.RUnlock()

	if model == nil {
		return 0, false
	}
	vec, ok := FeatureVector(candles, len(candles)-1)
	if !ok {
		return 0, false
	}
	return model.PredictProb(vec), true
}

// Fitted reports whether a model is currently loaded.
func (s *EdgeService) Fitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}
