package risk

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Flat per-asset volatility assumptions used for the portfolio metrics
// snapshot until a historical estimator replaces them.
var assetVolatility = map[string]float64{
	"BTC/USDT": 0.04,
	"ETH/USDT": 0.05,
	"BNB/USDT": 0.06,
	"ADA/USDT": 0.07,
	"SOL/USDT": 0.08,
}

const defaultAssetVolatility = 0.05

// Manager owns the position ledger, the alert list and the metrics snapshot.
// Every read and write of the ledger goes through its mutex, so an admission
// decision (check limits, then write) is atomic and concurrent sizing calls
// cannot jointly overshoot the portfolio risk budget.
type Manager struct {
	tracer      trace.Tracer
	limits      Limits
	correlation CorrelationFn

	mu        sync.Mutex
	positions map[string]domain.Position
	alerts    []domain.RiskAlert
	metrics   domain.RiskMetrics
}

func NewManager(tracer trace.Tracer, limits Limits, correlation CorrelationFn) *Manager {
	if correlation == nil {
		correlation = TieredCorrelation
	}
	return &Manager{
		tracer:      tracer,
		limits:      limits,
		correlation: correlation,
		positions:   make(map[string]domain.Position),
	}
}

// Limits returns the configured risk parameters.
func (m *Manager) Limits() Limits {
	return m.limits
}

// AdjustSignal sizes a directional signal against the current ledger and
// attaches stop-loss and take-profit levels around the current price,
// mirrored for sells. A size of zero means no risk budget remains.
func (m *Manager) AdjustSignal(ctx context.Context, sig domain.TradingSignal, symbol string, price, volatility float64) domain.TradingSignal {
	_, span := m.tracer.Start(ctx, "risk.adjust-signal")
	defer span.End()

	m.mu.Lock()
	sig.PositionSize = PositionSize(symbol, sig.Confidence, m.limits, m.snapshotLocked(), m.correlation)
	m.mu.Unlock()

	switch sig.Type {
	case domain.SignalBuy:
		sig.StopLoss = price * (1 - m.limits.StopLossPct)
		sig.TakeProfit = price * (1 + m.limits.TakeProfitPct)
	case domain.SignalSell:
		sig.StopLoss = price * (1 + m.limits.StopLossPct)
		sig.TakeProfit = price * (1 - m.limits.TakeProfitPct)
	}

	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.Float64("position_size", sig.PositionSize),
		attribute.Float64("volatility", volatility),
	)
	return sig
}

// CheckRiskLimits reports whether a candidate position may be admitted and,
// when not, the first violated limit.
func (m *Manager) CheckRiskLimits(candidate domain.Position) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkLocked(candidate)
}

func (m *Manager) checkLocked(candidate domain.Position) (bool, string) {
	if candidate.Size > m.limits.MaxPositionSize {
		return false, fmt.Sprintf("position size %.2f%% exceeds maximum %.2f%%",
			candidate.Size*100, m.limits.MaxPositionSize*100)
	}
	if candidate.Size < m.limits.MinPositionSize {
		return false, fmt.Sprintf("position size %.2f%% below minimum %.2f%%",
			candidate.Size*100, m.limits.MinPositionSize*100)
	}

	totalRisk := portfolioRisk(m.snapshotLocked()) + candidate.Size*candidate.RiskPercent
	if totalRisk > m.limits.MaxPortfolioRisk {
		return false, fmt.Sprintf("total portfolio risk %.2f%% would exceed maximum %.2f%%",
			totalRisk*100, m.limits.MaxPortfolioRisk*100)
	}

	for symbol := range m.positions {
		if symbol == candidate.Symbol {
			continue
		}
		if corr := m.correlation(candidate.Symbol, symbol); corr > m.limits.MaxCorrelation {
			return false, fmt.Sprintf("high correlation %.2f with existing position %s", corr, symbol)
		}
	}
	return true, "risk limits satisfied"
}

// AddPosition admits a position to the ledger. The limit check and the write
// happen under one lock acquisition.
func (m *Manager) AddPosition(pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok, reason := m.checkLocked(pos); !ok {
		return fmt.Errorf("position %s rejected: %s", pos.Symbol, reason)
	}
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = time.Now().UTC()
	}
	m.positions[pos.Symbol] = pos
	log.Printf("added position %s (size %.2f%%) to risk tracking", pos.Symbol, pos.Size*100)
	return nil
}

// RemovePosition drops a position from the ledger. Removing an unknown
// symbol is a no-op.
func (m *Manager) RemovePosition(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.positions[symbol]; ok {
		delete(m.positions, symbol)
		log.Printf("removed position %s from risk tracking", symbol)
	}
}

// Positions returns a copy of the open positions, sorted by symbol.
func (m *Manager) Positions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []domain.Position {
	out := make([]domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// RunCheck executes one monitor cycle: it appends alerts for any limit
// breach and refreshes the metrics snapshot. It returns the alerts raised
// this cycle so a notifier can forward them. Alerts are observational only;
// the monitor never closes positions.
func (m *Manager) RunCheck(ctx context.Context) []domain.RiskAlert {
	_, span := m.tracer.Start(ctx, "risk.run-check")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var raised []domain.RiskAlert

	totalRisk := portfolioRisk(m.snapshotLocked())
	if totalRisk > m.limits.MaxPortfolioRisk {
		raised = append(raised, domain.RiskAlert{
			Kind:      domain.AlertPortfolioRiskExceeded,
			Message:   fmt.Sprintf("portfolio risk %.2f%% exceeds limit %.2f%%", totalRisk*100, m.limits.MaxPortfolioRisk*100),
			Timestamp: now,
		})
	}

	for _, pos := range m.snapshotLocked() {
		positionRisk := pos.Size * pos.RiskPercent
		if positionRisk > m.limits.MaxPositionRisk {
			raised = append(raised, domain.RiskAlert{
				Kind:      domain.AlertPositionRiskExceeded,
				Message:   fmt.Sprintf("position %s risk %.2f%% exceeds limit %.2f%%", pos.Symbol, positionRisk*100, m.limits.MaxPositionRisk*100),
				Timestamp: now,
			})
		}
	}

	for _, alert := range raised {
		log.Printf("risk alert: %s", alert.Message)
	}
	m.alerts = append(m.alerts, raised...)
	m.metrics = m.metricsLocked()

	span.SetAttributes(
		attribute.Int("positions", len(m.positions)),
		attribute.Int("alerts_raised", len(raised)),
		attribute.Float64("portfolio_risk", totalRisk),
	)
	return raised
}

// RaiseAlerts appends externally detected alerts, such as return anomalies,
// to the alert list.
func (m *Manager) RaiseAlerts(alerts []domain.RiskAlert) {
	if len(alerts) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, alert := range alerts {
		log.Printf("risk alert: %s", alert.Message)
	}
	m.alerts = append(m.alerts, alerts...)
}

// Metrics returns the latest metrics snapshot, recomputing it when no
// monitor cycle has run yet.
func (m *Manager) Metrics() domain.RiskMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics == (domain.RiskMetrics{}) && len(m.positions) > 0 {
		m.metrics = m.metricsLocked()
	}
	return m.metrics
}

// Alerts returns a copy of the alert list in append order.
func (m *Manager) Alerts() []domain.RiskAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RiskAlert(nil), m.alerts...)
}

// ClearAlerts empties the alert list. Operator action only.
func (m *Manager) ClearAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
}

// metricsLocked computes the portfolio snapshot: size-weighted volatility,
// VaR at 95% as 1.645 standard deviations, and the mean pairwise correlation
// over open symbols. Sharpe and beta stay at the neutral placeholder until a
// return-history estimator lands.
func (m *Manager) metricsLocked() domain.RiskMetrics {
	if len(m.positions) == 0 {
		return domain.RiskMetrics{}
	}

	var totalSize float64
	for _, pos := range m.positions {
		totalSize += pos.Size
	}

	var volatility float64
	if totalSize > 0 {
		for _, pos := range m.positions {
			vol, ok := assetVolatility[pos.Symbol]
			if !ok {
				vol = defaultAssetVolatility
			}
			volatility += vol * (pos.Size / totalSize)
		}
	}

	return domain.RiskMetrics{
		VaR95:       1.645 * volatility,
		MaxDrawdown: 0,
		SharpeRatio: 1.0,
		Volatility:  volatility,
		Beta:        1.0,
		Correlation: m.meanCorrelationLocked(),
	}
}

func (m *Manager) meanCorrelationLocked() float64 {
	if len(m.positions) <= 1 {
		return 0
	}
	symbols := make([]string, 0, len(m.positions))
	for symbol := range m.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var sum float64
	var count int
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			sum += m.correlation(symbols[i], symbols[j])
			count++
		}
	}
	return sum / float64(count)
}
