package strategy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type fakeSentiment struct {
	reading domain.SentimentReading
	err     error
}

func (f *fakeSentiment) GetSentiment(_ context.Context, _ string) (domain.SentimentReading, error) {
	return f.reading, f.err
}

type fakeMacro struct {
	reading domain.MacroReading
	err     error
}

func (f *fakeMacro) GetMacro(_ context.Context) (domain.MacroReading, error) {
	return f.reading, f.err
}

type fakeRisk struct {
	called bool
	size   float64
}

func (f *fakeRisk) AdjustSignal(_ context.Context, sig domain.TradingSignal, _ string, _, _ float64) domain.TradingSignal {
	f.called = true
	sig.PositionSize = f.size
	return sig
}

type fakeEdge struct {
	prob float64
	ok   bool
}

func (f *fakeEdge) ProbUp(_ []*domain.Candle) (float64, bool) {
	return f.prob, f.ok
}

func testTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func newTestEngine(sentiment SentimentSource, macro MacroSource, risk RiskAdjuster, edge EdgeAnnotator) *Engine {
	return NewEngine(testTracer(), sentiment, macro, risk, edge, DefaultWeights(), 0.6)
}

func TestGenerateSignalNoCandlesHolds(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeSentiment{}, &fakeMacro{}, &fakeRisk{}, nil)
	got := e.GenerateSignal(context.Background(), "BTC/USDT", nil)

	if got.Type != domain.SignalHold {
		t.Fatalf("expected hold on empty window, got %s", got.Type)
	}
	if got.Symbol != "BTC/USDT" {
		t.Fatalf("signal must carry the symbol, got %q", got.Symbol)
	}
	if got.GeneratedAt.IsZero() {
		t.Fatal("signal must carry a timestamp")
	}
}

func TestGenerateSignalBuySized(t *testing.T) {
	t.Parallel()

	// Bullish everything: sentiment, macro and rising prices with a volume
	// spike in the last bars.
	closes := make([]float64, 60)
	volumes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
		volumes[i] = 100
		if i >= 50 {
			volumes[i] = 400
		}
	}
	candles := candleWindow(closes, volumes)

	risk := &fakeRisk{size: 0.05}
	e := newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.9, Confidence: 0.9}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeBull, Confidence: 0.9}},
		risk,
		nil,
	)
	got := e.GenerateSignal(context.Background(), "BTC/USDT", candles)

	if got.Type != domain.SignalBuy {
		t.Fatalf("expected buy, got %s (%s)", got.Type, got.Reasoning)
	}
	if !risk.called {
		t.Fatal("risk adjuster must run for directional signals")
	}
	if got.PositionSize != 0.05 {
		t.Fatalf("expected adjusted position size 0.05, got %.4f", got.PositionSize)
	}
	for _, source := range domain.SignalSources {
		if !strings.Contains(got.Reasoning, string(source)+": ") {
			t.Fatalf("reasoning missing %s part: %s", source, got.Reasoning)
		}
	}
}

func TestGenerateSignalHoldSkipsRisk(t *testing.T) {
	t.Parallel()

	closes := flatCloses(60)
	risk := &fakeRisk{size: 0.05}
	e := newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.5, Confidence: 0.5}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.5}},
		risk,
		nil,
	)
	got := e.GenerateSignal(context.Background(), "ETH/USDT", candleWindow(closes, nil))

	if got.Type != domain.SignalHold {
		t.Fatalf("expected hold, got %s", got.Type)
	}
	if risk.called {
		t.Fatal("risk adjuster must not run for holds")
	}
	if got.PositionSize != 0 {
		t.Fatalf("hold must carry zero position size, got %.4f", got.PositionSize)
	}
}

func TestGenerateSignalDegradesOnSourceErrors(t *testing.T) {
	t.Parallel()

	e := newTestEngine(
		&fakeSentiment{err: errors.New("timeout")},
		&fakeMacro{err: errors.New("timeout")},
		&fakeRisk{},
		nil,
	)
	got := e.GenerateSignal(context.Background(), "BTC/USDT", candleWindow(flatCloses(60), nil))

	if got.Type != domain.SignalHold {
		t.Fatalf("degraded inputs should hold, got %s", got.Type)
	}
	if !strings.Contains(got.Details, "sentiment:upstream_unavailable") {
		t.Fatalf("details must record sentiment degradation: %s", got.Details)
	}
	if !strings.Contains(got.Details, "macro:upstream_unavailable") {
		t.Fatalf("details must record macro degradation: %s", got.Details)
	}
}

func TestGenerateSignalEdgeAnnotation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.5, Confidence: 0.5}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.5}},
		&fakeRisk{},
		&fakeEdge{prob: 0.6123, ok: true},
	)
	got := e.GenerateSignal(context.Background(), "BTC/USDT", candleWindow(flatCloses(60), nil))

	if !strings.Contains(got.Details, "ml_prob_up=0.6123") {
		t.Fatalf("details must carry the model probability: %s", got.Details)
	}

	// Unfitted model stays silent.
	e = newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.5, Confidence: 0.5}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.5}},
		&fakeRisk{},
		&fakeEdge{ok: false},
	)
	got = e.GenerateSignal(context.Background(), "BTC/USDT", candleWindow(flatCloses(60), nil))
	if strings.Contains(got.Details, "ml_prob_up") {
		t.Fatalf("unfitted model must not annotate: %s", got.Details)
	}
}

func TestAnalyzeMarket(t *testing.T) {
	t.Parallel()

	e := newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.8, Confidence: 0.9}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeBull, Confidence: 0.9}},
		nil,
		nil,
	)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	cond := e.AnalyzeMarket(context.Background(), "BTC/USDT", candleWindow(closes, nil))
	if cond.Trend != domain.TrendBullish {
		t.Fatalf("expected bullish trend, got %s", cond.Trend)
	}
	if cond.Sentiment != 0.8 {
		t.Fatalf("expected sentiment 0.8, got %.2f", cond.Sentiment)
	}
	if cond.MacroRegime != domain.RegimeBull {
		t.Fatalf("expected bull regime, got %s", cond.MacroRegime)
	}

	// No candles falls back to the neutral condition.
	cond = e.AnalyzeMarket(context.Background(), "BTC/USDT", nil)
	if cond.Trend != domain.TrendSideways {
		t.Fatalf("expected sideways fallback, got %s", cond.Trend)
	}
}

func TestPerformanceCounters(t *testing.T) {
	t.Parallel()

	e := newTestEngine(
		&fakeSentiment{reading: domain.SentimentReading{Score: 0.5, Confidence: 0.5}},
		&fakeMacro{reading: domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.5}},
		&fakeRisk{},
		nil,
	)
	for i := 0; i < 3; i++ {
		e.GenerateSignal(context.Background(), "BTC/USDT", candleWindow(flatCloses(60), nil))
	}

	perf := e.GetPerformance()
	if perf.TotalSignals != 3 {
		t.Fatalf("expected 3 total signals, got %d", perf.TotalSignals)
	}
	if perf.HoldSignals != 3 {
		t.Fatalf("expected 3 hold signals, got %d", perf.HoldSignals)
	}
}

func flatCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
	}
	return out
}
