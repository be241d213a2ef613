package domain

import (
	"strings"
	"time"
)

// SignalType is the direction of a trading signal.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// SignalSource identifies one of the elementary signal generators feeding
// the ensemble. The set is closed: every source has an ensemble weight and
// every evaluation runs all of them, in this order.
type SignalSource string

const (
	SourceSentiment      SignalSource = "sentiment"
	SourceTechnical      SignalSource = "technical"
	SourceMicrostructure SignalSource = "microstructure"
	SourceMacro          SignalSource = "macro"
)

// SignalSources lists all generator sources in evaluation (and reasoning
// concatenation) order.
var SignalSources = []SignalSource{
	SourceSentiment,
	SourceTechnical,
	SourceMicrostructure,
	SourceMacro,
}

// TradingSignal is the output of the decision pipeline. Confidence is always
// in [0,1]. StopLoss, TakeProfit and PositionSize are only populated for
// buy/sell signals after risk adjustment.
type TradingSignal struct {
	Symbol       string     `json:"symbol,omitempty"`
	Type         SignalType `json:"type"`
	Confidence   float64    `json:"confidence"`
	Reasoning    string     `json:"reasoning"`
	StopLoss     float64    `json:"stop_loss,omitempty"`
	TakeProfit   float64    `json:"take_profit,omitempty"`
	PositionSize float64    `json:"position_size,omitempty"`
	Details      string     `json:"details,omitempty"`
	GeneratedAt  time.Time  `json:"generated_at,omitempty"`
}

// HoldSignal builds a hold signal with the given reasoning. Degraded
// evaluations always collapse to this shape, never to an error.
func HoldSignal(reasoning string) TradingSignal {
	return TradingSignal{
		Type:       SignalHold,
		Confidence: 0.5,
		Reasoning:  reasoning,
	}
}

type Trend string

const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

type VolumeProfile string

const (
	VolumeLow    VolumeProfile = "low"
	VolumeMedium VolumeProfile = "medium"
	VolumeHigh   VolumeProfile = "high"
)

type MacroRegime string

const (
	RegimeBull    MacroRegime = "bull"
	RegimeBear    MacroRegime = "bear"
	RegimeNeutral MacroRegime = "neutral"
)

// MarketCondition is the derived snapshot of market state for one symbol.
// Recomputed per evaluation, never persisted.
type MarketCondition struct {
	Trend         Trend         `json:"trend"`
	Volatility    float64       `json:"volatility"`
	VolumeProfile VolumeProfile `json:"volume_profile"`
	Sentiment     float64       `json:"sentiment"`
	MacroRegime   MacroRegime   `json:"macro_regime"`
}

// NeutralMarketCondition is the fallback when market state cannot be derived.
func NeutralMarketCondition() MarketCondition {
	return MarketCondition{
		Trend:         TrendSideways,
		Volatility:    0.02,
		VolumeProfile: VolumeMedium,
		Sentiment:     0.5,
		MacroRegime:   RegimeNeutral,
	}
}

// SentimentReading is the externally supplied sentiment score for a symbol.
type SentimentReading struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// MacroReading is the externally supplied macro-economic regime assessment.
type MacroReading struct {
	Regime     MacroRegime `json:"regime"`
	Confidence float64     `json:"confidence"`
}

// Position is an open position tracked by the portfolio ledger. Size and
// RiskPercent are fractions of portfolio value.
type Position struct {
	Symbol      string    `json:"symbol"`
	Size        float64   `json:"size"`
	RiskPercent float64   `json:"risk_percent"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	TakeProfit  float64   `json:"take_profit,omitempty"`
	OpenedAt    time.Time `json:"opened_at,omitempty"`
}

// RiskMetrics is a snapshot of aggregate portfolio risk over the current
// open positions.
type RiskMetrics struct {
	VaR95       float64 `json:"var_95"`
	MaxDrawdown float64 `json:"max_drawdown"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	Volatility  float64 `json:"volatility"`
	Beta        float64 `json:"beta"`
	Correlation float64 `json:"correlation"`
}

// RiskAlert kinds raised by the monitor.
const (
	AlertPortfolioRiskExceeded = "portfolio_risk_exceeded"
	AlertPositionRiskExceeded  = "position_risk_exceeded"
	AlertReturnAnomaly         = "return_anomaly"
)

// RiskAlert is an observational limit-breach notice. Alerts accumulate until
// explicitly cleared by an operator.
type RiskAlert struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MajorAssets are treated as highly correlated with each other by the
// three-tier correlation heuristic.
var MajorAssets = map[string]bool{
	"BTC":  true,
	"ETH":  true,
	"BNB":  true,
	"ADA":  true,
	"SOL":  true,
	"DOT":  true,
	"LINK": true,
}

// BaseAsset strips an optional quote suffix, so "BTC/USDT" and "BTC" map to
// the same asset.
func BaseAsset(symbol string) string {
	if i := strings.IndexByte(symbol, '/'); i >= 0 {
		return symbol[:i]
	}
	return symbol
}

// Decision is a persisted record of an emitted trading signal.
type Decision struct {
	ID           int64      `json:"id"`
	Symbol       string     `json:"symbol"`
	Type         SignalType `json:"type"`
	Confidence   float64    `json:"confidence"`
	PositionSize float64    `json:"position_size"`
	Reasoning    string     `json:"reasoning"`
	CreatedAt    time.Time  `json:"created_at"`
}
