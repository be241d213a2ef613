package strategy

import (
	"fmt"
	"math"
	"strings"

	"cautious-pancake/internal/domain"
)

// Weights are the ensemble weights per signal source. They must sum to 1.
type Weights struct {
	Sentiment      float64
	Technical      float64
	Microstructure float64
	Macro          float64
}

// DefaultWeights returns the standard ensemble weighting.
func DefaultWeights() Weights {
	return Weights{
		Sentiment:      0.25,
		Technical:      0.35,
		Microstructure: 0.20,
		Macro:          0.20,
	}
}

// For returns the weight for a source. The source set is closed, so an
// unknown source can only come from a programming error.
func (w Weights) For(source domain.SignalSource) float64 {
	switch source {
	case domain.SourceSentiment:
		return w.Sentiment
	case domain.SourceTechnical:
		return w.Technical
	case domain.SourceMicrostructure:
		return w.Microstructure
	case domain.SourceMacro:
		return w.Macro
	}
	return 0
}

// Validate checks that all weights are fractions and sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Sentiment, w.Technical, w.Microstructure, w.Macro} {
		if v < 0 || v > 1 {
			return fmt.Errorf("ensemble weight %.4f out of [0,1]", v)
		}
	}
	sum := w.Sentiment + w.Technical + w.Microstructure + w.Macro
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("ensemble weights sum to %.6f, want 1.0", sum)
	}
	return nil
}

// SourcedSignal pairs an elementary signal with its generator source.
type SourcedSignal struct {
	Source domain.SignalSource
	Signal domain.TradingSignal
}

// Combine merges the elementary signals into one decision. Each signal's
// confidence, scaled by its source weight, accumulates into a buy or sell
// bucket by direction; holds contribute to neither bucket but still count
// toward total confidence. A direction wins only when its bucket beats the
// other and clears minConfidence; otherwise the result holds at half the
// total confidence, a deliberate damping of conviction when nothing clears
// the bar. Reasoning concatenates every generator's reasoning in order.
func Combine(signals []SourcedSignal, weights Weights, minConfidence float64) domain.TradingSignal {
	var buyWeight, sellWeight, totalConfidence float64
	reasoningParts := make([]string, 0, len(signals))

	for _, s := range signals {
		w := weights.For(s.Source)
		switch s.Signal.Type {
		case domain.SignalBuy:
			buyWeight += w * s.Signal.Confidence
		case domain.SignalSell:
			sellWeight += w * s.Signal.Confidence
		}
		totalConfidence += w * s.Signal.Confidence
		reasoningParts = append(reasoningParts, fmt.Sprintf("%s: %s", s.Source, s.Signal.Reasoning))
	}

	sigType := domain.SignalHold
	confidence := totalConfidence * 0.5
	switch {
	case buyWeight > sellWeight && buyWeight > minConfidence:
		sigType = domain.SignalBuy
		confidence = buyWeight
	case sellWeight > buyWeight && sellWeight > minConfidence:
		sigType = domain.SignalSell
		confidence = sellWeight
	}

	return domain.TradingSignal{
		Type:       sigType,
		Confidence: clamp01(confidence),
		Reasoning:  strings.Join(reasoningParts, " | "),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
