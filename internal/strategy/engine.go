package strategy

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/ta"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SentimentSource supplies externally inferred sentiment for a symbol.
type SentimentSource interface {
	GetSentiment(ctx context.Context, symbol string) (domain.SentimentReading, error)
}

// MacroSource supplies the externally assessed macro-economic regime.
type MacroSource interface {
	GetMacro(ctx context.Context) (domain.MacroReading, error)
}

// RiskAdjuster converts a directional signal into a risk-bounded one,
// attaching position size and stop/take-profit levels.
type RiskAdjuster interface {
	AdjustSignal(ctx context.Context, sig domain.TradingSignal, symbol string, price, volatility float64) domain.TradingSignal
}

// EdgeAnnotator optionally supplies a model probability of the price going
// up over the candle window. ok is false while no model is fitted.
type EdgeAnnotator interface {
	ProbUp(candles []*domain.Candle) (prob float64, ok bool)
}

// Degradation kinds, kept distinct internally for observability even though
// they all collapse to a conservative hold at the API boundary.
const (
	degradeUpstreamUnavailable = "upstream_unavailable"
	degradeInsufficientData    = "insufficient_data"
)

// Engine runs the full decision pipeline for one symbol: indicator features,
// the four elementary generators, the ensemble combiner, and risk
// adjustment. It is stateless across calls apart from performance counters;
// concurrent invocations for different symbols are safe.
type Engine struct {
	tracer        trace.Tracer
	sentiment     SentimentSource
	macro         MacroSource
	risk          RiskAdjuster
	edge          EdgeAnnotator
	weights       Weights
	minConfidence float64

	mu       sync.Mutex
	counters Performance
}

// Performance tracks emitted-signal counts since process start.
type Performance struct {
	TotalSignals int `json:"total_signals"`
	BuySignals   int `json:"buy_signals"`
	SellSignals  int `json:"sell_signals"`
	HoldSignals  int `json:"hold_signals"`
}

func NewEngine(
	tracer trace.Tracer,
	sentiment SentimentSource,
	macro MacroSource,
	risk RiskAdjuster,
	edge EdgeAnnotator,
	weights Weights,
	minConfidence float64,
) *Engine {
	return &Engine{
		tracer:        tracer,
		sentiment:     sentiment,
		macro:         macro,
		risk:          risk,
		edge:          edge,
		weights:       weights,
		minConfidence: minConfidence,
	}
}

// GenerateSignal evaluates the candle window and returns a trading signal.
// It never fails: missing data and collaborator errors degrade to a hold
// with explanatory reasoning and confidence capped at 0.5.
func (e *Engine) GenerateSignal(ctx context.Context, symbol string, candles []*domain.Candle) domain.TradingSignal {
	ctx, span := e.tracer.Start(ctx, "strategy.generate-signal")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	if len(candles) == 0 {
		span.SetAttributes(attribute.String("degraded", degradeUpstreamUnavailable))
		return e.finish(symbol, domain.HoldSignal("no market data available"))
	}

	var degradations []string

	sentiment, err := e.sentiment.GetSentiment(ctx, symbol)
	if err != nil {
		log.Printf("sentiment unavailable for %s: %v", symbol, err)
		sentiment = domain.SentimentReading{Score: 0.5, Confidence: 0.5}
		degradations = append(degradations, "sentiment:"+degradeUpstreamUnavailable)
	}

	macro, err := e.macro.GetMacro(ctx)
	if err != nil {
		log.Printf("macro reading unavailable: %v", err)
		macro = domain.MacroReading{Regime: domain.RegimeNeutral, Confidence: 0.5}
		degradations = append(degradations, "macro:"+degradeUpstreamUnavailable)
	}

	features := ExtractFeatures(candles)
	if len(candles) < ta.MACDSlow {
		degradations = append(degradations, "indicators:"+degradeInsufficientData)
	}

	in := GeneratorInput{
		Candles:   candles,
		Features:  features,
		Sentiment: sentiment,
		Macro:     macro,
	}

	signals := make([]SourcedSignal, 0, len(Generators))
	for _, g := range Generators {
		signals = append(signals, SourcedSignal{Source: g.Source, Signal: g.Fn(in)})
	}

	final := Combine(signals, e.weights, e.minConfidence)
	final.Symbol = symbol
	final.GeneratedAt = time.Now().UTC()

	if final.Type != domain.SignalHold && e.risk != nil {
		price := candles[len(candles)-1].Close
		final = e.risk.AdjustSignal(ctx, final, symbol, price, features.Volatility)
	}

	final.Details = e.buildDetails(candles, degradations)

	span.SetAttributes(
		attribute.String("signal.type", string(final.Type)),
		attribute.Float64("signal.confidence", final.Confidence),
		attribute.Int("degradations", len(degradations)),
	)
	return e.finish(symbol, final)
}

// AnalyzeMarket derives the current market condition for a symbol. Any
// collaborator failure falls back to the neutral condition per field.
func (e *Engine) AnalyzeMarket(ctx context.Context, symbol string, candles []*domain.Candle) domain.MarketCondition {
	ctx, span := e.tracer.Start(ctx, "strategy.analyze-market")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	cond := domain.NeutralMarketCondition()
	if len(candles) == 0 {
		return cond
	}

	closes := domain.Closes(candles)
	cond.Trend = domain.Trend(ta.Trend(closes))
	cond.Volatility = ta.Volatility(closes)
	cond.VolumeProfile = domain.VolumeProfile(ta.VolumeProfile(domain.Volumes(candles)))

	if s, err := e.sentiment.GetSentiment(ctx, symbol); err == nil {
		cond.Sentiment = s.Score
	}
	if m, err := e.macro.GetMacro(ctx); err == nil {
		cond.MacroRegime = m.Regime
	}
	return cond
}

// GetPerformance returns a copy of the emitted-signal counters.
func (e *Engine) GetPerformance() Performance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

func (e *Engine) buildDetails(candles []*domain.Candle, degradations []string) string {
	parts := make([]string, 0, 2)
	if e.edge != nil {
		if prob, ok := e.edge.ProbUp(candles); ok {
			parts = append(parts, fmt.Sprintf("ml_prob_up=%.4f", prob))
		}
	}
	if len(degradations) > 0 {
		parts = append(parts, "degraded="+strings.Join(degradations, ","))
	}
	return strings.Join(parts, ";")
}

func (e *Engine) finish(symbol string, sig domain.TradingSignal) domain.TradingSignal {
	sig.Symbol = symbol
	if sig.GeneratedAt.IsZero() {
		sig.GeneratedAt = time.Now().UTC()
	}
	sig.Confidence = clamp01(sig.Confidence)

	e.mu.Lock()
	e.counters.TotalSignals++
	switch sig.Type {
	case domain.SignalBuy:
		e.counters.BuySignals++
	case domain.SignalSell:
		e.counters.SellSignals++
	default:
		e.counters.HoldSignals++
	}
	e.mu.Unlock()

	return sig
}
