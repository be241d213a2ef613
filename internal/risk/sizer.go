package risk

import (
	"fmt"

	"cautious-pancake/internal/domain"
)

// Assumed payoff profile for the Kelly computation. Win matches the default
// take-profit distance, loss the default stop-loss distance.
const (
	assumedAvgWin  = 0.15
	assumedAvgLoss = 0.05
)

// Limits are the sizing and portfolio risk parameters.
type Limits struct {
	MaxPositionSize  float64
	MinPositionSize  float64
	StopLossPct      float64
	TakeProfitPct    float64
	KellyCap         float64
	MaxPortfolioRisk float64
	MaxPositionRisk  float64
	MaxCorrelation   float64
}

// DefaultLimits returns the standard risk parameters.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:  0.1,
		MinPositionSize:  0.01,
		StopLossPct:      0.05,
		TakeProfitPct:    0.15,
		KellyCap:         0.25,
		MaxPortfolioRisk: 0.02,
		MaxPositionRisk:  0.005,
		MaxCorrelation:   0.7,
	}
}

// Validate checks every parameter is a sane fraction and the size bounds are
// ordered.
func (l Limits) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"max_position_size", l.MaxPositionSize},
		{"min_position_size", l.MinPositionSize},
		{"stop_loss_pct", l.StopLossPct},
		{"take_profit_pct", l.TakeProfitPct},
		{"kelly_fraction", l.KellyCap},
		{"max_portfolio_risk", l.MaxPortfolioRisk},
		{"max_position_risk", l.MaxPositionRisk},
		{"max_correlation", l.MaxCorrelation},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s %.4f out of [0,1]", f.name, f.value)
		}
	}
	if l.MinPositionSize > l.MaxPositionSize {
		return fmt.Errorf("min_position_size %.4f exceeds max_position_size %.4f",
			l.MinPositionSize, l.MaxPositionSize)
	}
	return nil
}

// KellyFraction computes the Kelly bet fraction f = (b*p - q) / b with
// b = avgWin/avgLoss, p the win rate and q = 1-p, clamped to [0, cap].
// A non-positive avgLoss yields 0 rather than an undefined ratio.
func KellyFraction(winRate, avgWin, avgLoss, cap float64) float64 {
	if avgLoss <= 0 {
		return 0
	}
	b := avgWin / avgLoss
	p := winRate
	q := 1 - p

	kelly := (b*p - q) / b
	if kelly < 0 {
		return 0
	}
	if kelly > cap {
		return cap
	}
	return kelly
}

// PositionSize maps a signal confidence to a bounded fraction of portfolio
// capital, given a snapshot of the open positions. Pure: two calls with the
// same snapshot return the same size.
//
// The ladder, in order: Kelly fraction from confidence, position cap,
// stop-loss affordability, correlated-exposure scaling, portfolio risk
// budget, and finally the minimum-size floor. The floor never reintroduces a
// budget breach: if even the minimum size does not fit the remaining risk
// budget the result is 0.
func PositionSize(symbol string, confidence float64, limits Limits, positions []domain.Position, correlation CorrelationFn) float64 {
	size := KellyFraction(confidence, assumedAvgWin, assumedAvgLoss, limits.KellyCap)

	if size > limits.MaxPositionSize {
		size = limits.MaxPositionSize
	}

	// Stop-loss affordability. The loss cap per position implies a stop-loss
	// percentage of MaxPositionRisk; keep the size within twice that so the
	// stop stays affordable with margin.
	if affordable := limits.MaxPositionRisk * 2; size > affordable {
		size = affordable
	}

	size = adjustForCorrelation(symbol, size, limits, positions, correlation)

	usedRisk := portfolioRisk(positions)
	availableRisk := limits.MaxPortfolioRisk - usedRisk
	if availableRisk <= 0 {
		return 0
	}
	if byBudget := availableRisk / limits.MaxPositionRisk; size > byBudget {
		size = byBudget
	}

	if size <= 0 {
		return 0
	}
	if size < limits.MinPositionSize {
		size = limits.MinPositionSize
		if usedRisk+size*limits.MaxPositionRisk > limits.MaxPortfolioRisk {
			return 0
		}
	}
	return size
}

// adjustForCorrelation scales the candidate down when the exposure already
// held in highly correlated assets exceeds the per-position cap.
func adjustForCorrelation(symbol string, size float64, limits Limits, positions []domain.Position, correlation CorrelationFn) float64 {
	var correlatedExposure float64
	for _, pos := range positions {
		if pos.Symbol == symbol {
			continue
		}
		corr := correlation(symbol, pos.Symbol)
		if corr > limits.MaxCorrelation {
			correlatedExposure += pos.Size * corr
		}
	}
	if correlatedExposure > limits.MaxPositionSize {
		size *= limits.MaxPositionSize / correlatedExposure
	}
	return size
}

func portfolioRisk(positions []domain.Position) float64 {
	var total float64
	for _, pos := range positions {
		total += pos.Size * pos.RiskPercent
	}
	return total
}
