package strategy

import (
	"fmt"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/ta"
)

// GeneratorInput carries everything an elementary generator may consume.
// Each generator reads its own slice of it and ignores the rest.
type GeneratorInput struct {
	Candles   []*domain.Candle
	Features  Features
	Sentiment domain.SentimentReading
	Macro     domain.MacroReading
}

// Features are the indicator values extracted once per evaluation and shared
// by the generators.
type Features struct {
	RSI               float64
	MACD              float64
	BollingerPosition float64
	Volatility        float64
}

// ExtractFeatures computes the shared indicator features from a candle
// window. Total by construction: every indicator degrades to its neutral
// default on short history.
func ExtractFeatures(candles []*domain.Candle) Features {
	closes := domain.Closes(candles)
	return Features{
		RSI:               ta.RSI(closes, ta.RSIPeriod),
		MACD:              ta.MACD(closes),
		BollingerPosition: ta.BollingerPosition(closes),
		Volatility:        ta.Volatility(closes),
	}
}

// GeneratorFunc produces one elementary signal from the shared input.
type GeneratorFunc func(GeneratorInput) domain.TradingSignal

// Generators is the closed dispatch table for the four signal sources, in
// evaluation order. The ensemble iterates this table so that weight lookup
// stays total and reasoning concatenation stays order-preserving.
var Generators = []struct {
	Source domain.SignalSource
	Fn     GeneratorFunc
}{
	{domain.SourceSentiment, SentimentSignal},
	{domain.SourceTechnical, TechnicalSignal},
	{domain.SourceMicrostructure, MicrostructureSignal},
	{domain.SourceMacro, MacroSignal},
}

// SentimentSignal maps an external sentiment reading to a direction: buy on
// score > 0.6, sell on score < 0.4, both gated on confidence > 0.7.
// Confidence passes through unchanged.
func SentimentSignal(in GeneratorInput) domain.TradingSignal {
	score := in.Sentiment.Score
	confidence := in.Sentiment.Confidence

	sigType := domain.SignalHold
	switch {
	case score > 0.6 && confidence > 0.7:
		sigType = domain.SignalBuy
	case score < 0.4 && confidence > 0.7:
		sigType = domain.SignalSell
	}

	return domain.TradingSignal{
		Type:       sigType,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Sentiment: %.2f (confidence: %.2f)", score, confidence),
	}
}

// Per-indicator confidence weights for the technical vote tally.
const (
	rsiVoteWeight       = 0.8
	macdVoteWeight      = 0.6
	bollingerVoteWeight = 0.7
)

// TechnicalSignal tallies directional votes from RSI, MACD and Bollinger
// position. The majority side wins with confidence equal to the mean of the
// weights that voted for it; ties and zero votes hold at confidence 0.3.
func TechnicalSignal(in GeneratorInput) domain.TradingSignal {
	var buyVotes, sellVotes int
	var buyWeights, sellWeights []float64

	if in.Features.RSI < 30 {
		buyVotes++
		buyWeights = append(buyWeights, rsiVoteWeight)
	} else if in.Features.RSI > 70 {
		sellVotes++
		sellWeights = append(sellWeights, rsiVoteWeight)
	}

	if in.Features.MACD > 0 {
		buyVotes++
		buyWeights = append(buyWeights, macdVoteWeight)
	} else if in.Features.MACD < 0 {
		sellVotes++
		sellWeights = append(sellWeights, macdVoteWeight)
	}

	if in.Features.BollingerPosition < 0.2 {
		buyVotes++
		buyWeights = append(buyWeights, bollingerVoteWeight)
	} else if in.Features.BollingerPosition > 0.8 {
		sellVotes++
		sellWeights = append(sellWeights, bollingerVoteWeight)
	}

	sigType := domain.SignalHold
	confidence := 0.3
	switch {
	case buyVotes > sellVotes:
		sigType = domain.SignalBuy
		confidence = mean(buyWeights)
	case sellVotes > buyVotes:
		sigType = domain.SignalSell
		confidence = mean(sellWeights)
	}

	return domain.TradingSignal{
		Type:       sigType,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Technical: %d buy, %d sell signals", buyVotes, sellVotes),
	}
}

// MicrostructureSignal compares the mean volume of the last 10 bars with the
// full-window mean: above 1.2x buys, below 0.8x sells, both at confidence
// 0.6. Anything else, including short or missing volume history, holds.
func MicrostructureSignal(in GeneratorInput) domain.TradingSignal {
	volumes := domain.Volumes(in.Candles)
	if len(volumes) <= 10 {
		return holdAt(0.5, "Normal microstructure conditions")
	}

	recent := mean(volumes[len(volumes)-10:])
	historical := mean(volumes)

	switch {
	case recent > historical*1.2:
		return domain.TradingSignal{
			Type:       domain.SignalBuy,
			Confidence: 0.6,
			Reasoning:  "High volume activity detected",
		}
	case recent < historical*0.8:
		return domain.TradingSignal{
			Type:       domain.SignalSell,
			Confidence: 0.6,
			Reasoning:  "Low volume activity detected",
		}
	default:
		return holdAt(0.5, "Normal microstructure conditions")
	}
}

// MacroSignal maps the macro regime directly to a direction, gated on
// confidence > 0.7. Confidence passes through unchanged.
func MacroSignal(in GeneratorInput) domain.TradingSignal {
	regime := in.Macro.Regime
	confidence := in.Macro.Confidence

	sigType := domain.SignalHold
	switch {
	case regime == domain.RegimeBull && confidence > 0.7:
		sigType = domain.SignalBuy
	case regime == domain.RegimeBear && confidence > 0.7:
		sigType = domain.SignalSell
	}

	return domain.TradingSignal{
		Type:       sigType,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Macro regime: %s (confidence: %.2f)", regime, confidence),
	}
}

func holdAt(confidence float64, reasoning string) domain.TradingSignal {
	return domain.TradingSignal{
		Type:       domain.SignalHold,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
