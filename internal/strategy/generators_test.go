package strategy

import (
	"testing"
	"time"

	"cautious-pancake/internal/domain"
)

func candleWindow(closes []float64, volumes []float64) []*domain.Candle {
	candles := make([]*domain.Candle, len(closes))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		candles[i] = &domain.Candle{
			Symbol:   "BTC",
			Interval: "1h",
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     closes[i],
			High:     closes[i],
			Low:      closes[i],
			Close:    closes[i],
			Volume:   vol,
		}
	}
	return candles
}

func TestSentimentSignalThresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score, confidence float64
		want              domain.SignalType
	}{
		{0.8, 0.9, domain.SignalBuy},
		{0.3, 0.9, domain.SignalSell},
		{0.8, 0.5, domain.SignalHold}, // confident score, unconfident reading
		{0.5, 0.9, domain.SignalHold},
	}
	for _, tc := range cases {
		got := SentimentSignal(GeneratorInput{Sentiment: domain.SentimentReading{Score: tc.score, Confidence: tc.confidence}})
		if got.Type != tc.want {
			t.Fatalf("score=%.2f conf=%.2f: got %s, want %s", tc.score, tc.confidence, got.Type, tc.want)
		}
		if got.Confidence != tc.confidence {
			t.Fatalf("sentiment confidence must pass through, got %.2f", got.Confidence)
		}
	}
}

func TestTechnicalSignalVoting(t *testing.T) {
	t.Parallel()

	// RSI oversold + positive MACD + low bollinger: three buy votes.
	got := TechnicalSignal(GeneratorInput{Features: Features{RSI: 25, MACD: 1.5, BollingerPosition: 0.1}})
	if got.Type != domain.SignalBuy {
		t.Fatalf("expected buy, got %s", got.Type)
	}
	want := (0.8 + 0.6 + 0.7) / 3
	if diff := got.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected confidence %.4f, got %.4f", want, got.Confidence)
	}

	// RSI overbought + negative MACD: two sell votes win.
	got = TechnicalSignal(GeneratorInput{Features: Features{RSI: 75, MACD: -0.5, BollingerPosition: 0.5}})
	if got.Type != domain.SignalSell {
		t.Fatalf("expected sell, got %s", got.Type)
	}
	want = (0.8 + 0.6) / 2
	if diff := got.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected confidence %.4f, got %.4f", want, got.Confidence)
	}
}

func TestTechnicalSignalTieHolds(t *testing.T) {
	t.Parallel()

	// One buy vote (bollinger) against one sell vote (RSI).
	got := TechnicalSignal(GeneratorInput{Features: Features{RSI: 75, MACD: 0, BollingerPosition: 0.1}})
	if got.Type != domain.SignalHold || got.Confidence != 0.3 {
		t.Fatalf("tie should hold at 0.3, got %s %.2f", got.Type, got.Confidence)
	}

	// No votes at all.
	got = TechnicalSignal(GeneratorInput{Features: Features{RSI: 50, MACD: 0, BollingerPosition: 0.5}})
	if got.Type != domain.SignalHold || got.Confidence != 0.3 {
		t.Fatalf("no votes should hold at 0.3, got %s %.2f", got.Type, got.Confidence)
	}
}

func TestMicrostructureSignal(t *testing.T) {
	t.Parallel()

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}

	spike := make([]float64, 30)
	for i := range spike {
		spike[i] = 100
		if i >= 20 {
			spike[i] = 300
		}
	}
	got := MicrostructureSignal(GeneratorInput{Candles: candleWindow(flat, spike)})
	if got.Type != domain.SignalBuy || got.Confidence != 0.6 {
		t.Fatalf("volume spike should buy at 0.6, got %s %.2f", got.Type, got.Confidence)
	}

	dry := make([]float64, 30)
	for i := range dry {
		dry[i] = 300
		if i >= 20 {
			dry[i] = 50
		}
	}
	got = MicrostructureSignal(GeneratorInput{Candles: candleWindow(flat, dry)})
	if got.Type != domain.SignalSell {
		t.Fatalf("volume dry-up should sell, got %s", got.Type)
	}

	got = MicrostructureSignal(GeneratorInput{Candles: candleWindow(flat, flat)})
	if got.Type != domain.SignalHold {
		t.Fatalf("steady volume should hold, got %s", got.Type)
	}

	got = MicrostructureSignal(GeneratorInput{Candles: candleWindow(flat[:5], nil)})
	if got.Type != domain.SignalHold {
		t.Fatalf("short window should hold, got %s", got.Type)
	}
}

func TestMacroSignal(t *testing.T) {
	t.Parallel()

	got := MacroSignal(GeneratorInput{Macro: domain.MacroReading{Regime: domain.RegimeBull, Confidence: 0.8}})
	if got.Type != domain.SignalBuy {
		t.Fatalf("expected buy, got %s", got.Type)
	}
	got = MacroSignal(GeneratorInput{Macro: domain.MacroReading{Regime: domain.RegimeBear, Confidence: 0.9}})
	if got.Type != domain.SignalSell {
		t.Fatalf("expected sell, got %s", got.Type)
	}
	got = MacroSignal(GeneratorInput{Macro: domain.MacroReading{Regime: domain.RegimeBull, Confidence: 0.6}})
	if got.Type != domain.SignalHold {
		t.Fatalf("unconfident regime should hold, got %s", got.Type)
	}
	got = MacroSignal(GeneratorInput{Macro: domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.95}})
	if got.Type != domain.SignalHold {
		t.Fatalf("neutral regime should hold, got %s", got.Type)
	}
}

func TestGeneratorsTableOrder(t *testing.T) {
	t.Parallel()

	want := []domain.SignalSource{
		domain.SourceSentiment,
		domain.SourceTechnical,
		domain.SourceMicrostructure,
		domain.SourceMacro,
	}
	if len(Generators) != len(want) {
		t.Fatalf("expected %d generators, got %d", len(want), len(Generators))
	}
	for i, g := range Generators {
		if g.Source != want[i] {
			t.Fatalf("generator %d is %s, want %s", i, g.Source, want[i])
		}
	}
}
