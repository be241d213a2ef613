package strategy

import (
	"math"
	"strings"
	"testing"

	"cautious-pancake/internal/domain"
)

func sourced(source domain.SignalSource, sigType domain.SignalType, confidence float64, reasoning string) SourcedSignal {
	return SourcedSignal{
		Source: source,
		Signal: domain.TradingSignal{Type: sigType, Confidence: confidence, Reasoning: reasoning},
	}
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights must validate: %v", err)
	}

	bad := Weights{Sentiment: 0.5, Technical: 0.5, Microstructure: 0.5, Macro: 0.5}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when weights do not sum to 1")
	}

	negative := Weights{Sentiment: -0.1, Technical: 0.5, Microstructure: 0.3, Macro: 0.3}
	if err := negative.Validate(); err == nil {
		t.Fatal("expected error on negative weight")
	}
}

func TestCombineBuyClearsThreshold(t *testing.T) {
	t.Parallel()

	signals := []SourcedSignal{
		sourced(domain.SourceSentiment, domain.SignalBuy, 0.9, "s"),
		sourced(domain.SourceTechnical, domain.SignalBuy, 0.8, "t"),
		sourced(domain.SourceMicrostructure, domain.SignalBuy, 0.6, "m"),
		sourced(domain.SourceMacro, domain.SignalBuy, 0.8, "g"),
	}
	got := Combine(signals, DefaultWeights(), 0.6)
	if got.Type != domain.SignalBuy {
		t.Fatalf("expected buy, got %s", got.Type)
	}
	// 0.25*0.9 + 0.35*0.8 + 0.20*0.6 + 0.20*0.8 = 0.785
	if math.Abs(got.Confidence-0.785) > 1e-9 {
		t.Fatalf("expected confidence 0.785, got %.6f", got.Confidence)
	}
}

func TestCombineBuyBelowThresholdHolds(t *testing.T) {
	t.Parallel()

	// Two confident buys whose weighted mass still misses the bar:
	// buy_weight = 0.25*0.9 + 0.35*0.8 = 0.505 < 0.6.
	signals := []SourcedSignal{
		sourced(domain.SourceSentiment, domain.SignalBuy, 0.9, "s"),
		sourced(domain.SourceTechnical, domain.SignalBuy, 0.8, "t"),
		sourced(domain.SourceMicrostructure, domain.SignalHold, 0.5, "m"),
		sourced(domain.SourceMacro, domain.SignalHold, 0.5, "g"),
	}
	got := Combine(signals, DefaultWeights(), 0.6)
	if got.Type != domain.SignalHold {
		t.Fatalf("expected hold, got %s", got.Type)
	}
	// total = 0.505 + 0.20*0.5 + 0.20*0.5 = 0.705; hold confidence halves it.
	if math.Abs(got.Confidence-0.3525) > 1e-9 {
		t.Fatalf("expected confidence 0.3525, got %.6f", got.Confidence)
	}
}

func TestCombineSellWins(t *testing.T) {
	t.Parallel()

	signals := []SourcedSignal{
		sourced(domain.SourceSentiment, domain.SignalSell, 0.9, "s"),
		sourced(domain.SourceTechnical, domain.SignalSell, 0.9, "t"),
		sourced(domain.SourceMicrostructure, domain.SignalSell, 0.9, "m"),
		sourced(domain.SourceMacro, domain.SignalBuy, 0.9, "g"),
	}
	got := Combine(signals, DefaultWeights(), 0.6)
	if got.Type != domain.SignalSell {
		t.Fatalf("expected sell, got %s", got.Type)
	}
	// sell_weight = (0.25+0.35+0.20)*0.9 = 0.72
	if math.Abs(got.Confidence-0.72) > 1e-9 {
		t.Fatalf("expected confidence 0.72, got %.6f", got.Confidence)
	}
}

func TestCombineExactTieHolds(t *testing.T) {
	t.Parallel()

	// Equal weighted mass on both sides never picks a direction.
	signals := []SourcedSignal{
		sourced(domain.SourceMicrostructure, domain.SignalBuy, 0.9, "m"),
		sourced(domain.SourceMacro, domain.SignalSell, 0.9, "g"),
	}
	got := Combine(signals, DefaultWeights(), 0.1)
	if got.Type != domain.SignalHold {
		t.Fatalf("tie should hold, got %s", got.Type)
	}
}

func TestCombineReasoningOrder(t *testing.T) {
	t.Parallel()

	signals := []SourcedSignal{
		sourced(domain.SourceSentiment, domain.SignalHold, 0.5, "alpha"),
		sourced(domain.SourceTechnical, domain.SignalHold, 0.5, "beta"),
		sourced(domain.SourceMicrostructure, domain.SignalHold, 0.5, "gamma"),
		sourced(domain.SourceMacro, domain.SignalHold, 0.5, "delta"),
	}
	got := Combine(signals, DefaultWeights(), 0.6)
	want := "sentiment: alpha | technical: beta | microstructure: gamma | macro: delta"
	if got.Reasoning != want {
		t.Fatalf("reasoning mismatch:\n got: %s\nwant: %s", got.Reasoning, want)
	}
	if !strings.Contains(got.Reasoning, " | ") {
		t.Fatal("reasoning parts must be pipe-joined")
	}
}

func TestCombineConfidenceClamped(t *testing.T) {
	t.Parallel()

	// Confidence above 1 from a misbehaving generator still clamps.
	signals := []SourcedSignal{
		sourced(domain.SourceSentiment, domain.SignalBuy, 3.0, "s"),
		sourced(domain.SourceTechnical, domain.SignalBuy, 3.0, "t"),
		sourced(domain.SourceMicrostructure, domain.SignalBuy, 3.0, "m"),
		sourced(domain.SourceMacro, domain.SignalBuy, 3.0, "g"),
	}
	got := Combine(signals, DefaultWeights(), 0.6)
	if got.Confidence != 1.0 {
		t.Fatalf("expected clamped confidence 1.0, got %.4f", got.Confidence)
	}
}
