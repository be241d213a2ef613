package job

import (
	"context"
	"log"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// anomalyCandleWindow is how much 1h history the anomaly scan looks at.
const anomalyCandleWindow = 200

// RiskChecker is the slice of the risk manager the monitor drives.
type RiskChecker interface {
	RunCheck(ctx context.Context) []domain.RiskAlert
	Positions() []domain.Position
	RaiseAlerts(alerts []domain.RiskAlert)
}

// AnomalyScanner scores recent return windows per symbol.
type AnomalyScanner interface {
	Scan(ctx context.Context, histories map[string][]*domain.Candle) []domain.RiskAlert
}

// CandleSource loads stored candles for the anomaly scan.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
}

// AlertNotifier pushes newly raised alerts to an operator channel.
type AlertNotifier interface {
	NotifyRiskAlerts(alerts []domain.RiskAlert)
}

// RiskMonitor periodically re-checks open positions against risk limits and
// scans candle histories for return anomalies. Scanner, candle source and
// notifier are all optional.
type RiskMonitor struct {
	tracer   trace.Tracer
	checker  RiskChecker
	scanner  AnomalyScanner
	candles  CandleSource
	notifier AlertNotifier
	interval time.Duration
}

func NewRiskMonitor(
	tracer trace.Tracer,
	checker RiskChecker,
	scanner AnomalyScanner,
	candles CandleSource,
	notifier AlertNotifier,
	intervalSecs int,
) *RiskMonitor {
	return &RiskMonitor{
		tracer:   tracer,
		checker:  checker,
		scanner:  scanner,
		candles:  candles,
		notifier: notifier,
		interval: time.Duration(intervalSecs) * time.Second,
	}
}

// Start runs an immediate check, then one per interval. Blocks until ctx is
// cancelled; an in-flight cycle finishes before Start returns.
func (m *RiskMonitor) Start(ctx context.Context) {
	log.Println("Risk monitor starting...")

	m.runCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Risk monitor stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *RiskMonitor) runCycle(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "risk-monitor.run-cycle")
	defer span.End()

	raised := m.checker.RunCheck(ctx)

	if m.scanner != nil && m.candles != nil {
		if anomalies := m.scanAnomalies(ctx); len(anomalies) > 0 {
			m.checker.RaiseAlerts(anomalies)
			raised = append(raised, anomalies...)
		}
	}

	for _, alert := range raised {
		log.Printf("risk alert [%s]: %s", alert.Kind, alert.Message)
	}
	if m.notifier != nil && len(raised) > 0 {
		m.notifier.NotifyRiskAlerts(raised)
	}
}

func (m *RiskMonitor) scanAnomalies(ctx context.Context) []domain.RiskAlert {
	histories := make(map[string][]*domain.Candle)
	for _, pos := range m.checker.Positions() {
		candles, err := m.candles.GetCandles(ctx, pos.Symbol, "1h", anomalyCandleWindow)
		if err != nil {
			log.Printf("anomaly scan candle load failed for %s: %v", pos.Symbol, err)
			continue
		}
		if len(candles) == 0 {
			continue
		}
		// Store returns newest-first; returns are computed oldest-first.
		for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
			candles[i], candles[j] = candles[j], candles[i]
		}
		histories[pos.Symbol] = candles
	}
	if len(histories) == 0 {
		return nil
	}
	return m.scanner.Scan(ctx, histories)
}
