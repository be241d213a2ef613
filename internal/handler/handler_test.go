package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type fakeSignalReader struct {
	signal      domain.TradingSignal
	condition   domain.MarketCondition
	candles     []*domain.Candle
	decisions   []domain.Decision
	performance strategy.Performance
	err         error

	rangeCalled  bool
	limitSeen    int
	fitSymbols   []string
	rangeFrom    time.Time
	rangeTo      time.Time
	candleSymbol string
}

func (f *fakeSignalReader) GetSignal(_ context.Context, symbol string) (domain.TradingSignal, error) {
	if f.err != nil {
		return domain.TradingSignal{}, f.err
	}
	sig := f.signal
	sig.Symbol = symbol
	return sig, nil
}

func (f *fakeSignalReader) AnalyzeMarket(_ context.Context, _ string) (domain.MarketCondition, error) {
	return f.condition, f.err
}

func (f *fakeSignalReader) GetCandles(_ context.Context, symbol, _ string, limit int) ([]*domain.Candle, error) {
	f.candleSymbol = symbol
	f.limitSeen = limit
	return f.candles, f.err
}

func (f *fakeSignalReader) GetCandlesInRange(_ context.Context, symbol, _ string, from, to time.Time) ([]*domain.Candle, error) {
	f.rangeCalled = true
	f.candleSymbol = symbol
	f.rangeFrom = from
	f.rangeTo = to
	return f.candles, f.err
}

func (f *fakeSignalReader) RecentDecisions(_ context.Context, _ string, limit int) ([]domain.Decision, error) {
	f.limitSeen = limit
	return f.decisions, f.err
}

func (f *fakeSignalReader) Performance() strategy.Performance {
	return f.performance
}

func (f *fakeSignalReader) FitEdgeModel(_ context.Context, symbol string) error {
	f.fitSymbols = append(f.fitSymbols, symbol)
	return f.err
}

type fakeRiskController struct {
	positions []domain.Position
	metrics   domain.RiskMetrics
	alerts    []domain.RiskAlert
	addErr    error

	added   []domain.Position
	removed []string
	cleared bool
}

func (f *fakeRiskController) Positions() []domain.Position { return f.positions }

func (f *fakeRiskController) AddPosition(pos domain.Position) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, pos)
	return nil
}

func (f *fakeRiskController) RemovePosition(symbol string) {
	f.removed = append(f.removed, symbol)
}

func (f *fakeRiskController) Metrics() domain.RiskMetrics { return f.metrics }
func (f *fakeRiskController) Alerts() []domain.RiskAlert  { return f.alerts }
func (f *fakeRiskController) ClearAlerts()                { f.cleared = true }

func newTestRouter(signals SignalReader, risk RiskController, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), signals, risk)
	r := gin.New()
	h.RegisterRoutes(r, apiKey)
	return r
}

func doRequest(r *gin.Engine, method, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetSignal(t *testing.T) {
	signals := &fakeSignalReader{signal: domain.TradingSignal{
		Type:         domain.SignalBuy,
		Confidence:   0.78,
		PositionSize: 0.05,
	}}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/signal/btc", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sig domain.TradingSignal
	if err := json.Unmarshal(w.Body.Bytes(), &sig); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if sig.Symbol != "BTC/USDT" || sig.Type != domain.SignalBuy {
		t.Fatalf("unexpected signal: %+v", sig)
	}
}

func TestGetSignalUnsupportedSymbol(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/signal/SHIB", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetSignalServiceError(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{err: errors.New("pipeline down")}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/signal/BTC", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetAnalysis(t *testing.T) {
	signals := &fakeSignalReader{condition: domain.MarketCondition{
		Trend:       domain.TrendBullish,
		MacroRegime: domain.RegimeBull,
	}}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/analysis/eth-usdt", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var cond domain.MarketCondition
	if err := json.Unmarshal(w.Body.Bytes(), &cond); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if cond.Trend != domain.TrendBullish {
		t.Fatalf("unexpected condition: %+v", cond)
	}
}

func TestGetCandlesDefaultLimit(t *testing.T) {
	signals := &fakeSignalReader{candles: []*domain.Candle{{Symbol: "BTC/USDT", Close: 100}}}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/candles/BTC", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if signals.limitSeen != 100 {
		t.Fatalf("expected default limit 100, got %d", signals.limitSeen)
	}
	if signals.candleSymbol != "BTC/USDT" {
		t.Fatalf("symbol not normalized: %s", signals.candleSymbol)
	}
}

func TestGetCandlesBadInterval(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/candles/BTC?interval=3m", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetCandlesRange(t *testing.T) {
	signals := &fakeSignalReader{}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet,
		"/api/candles/BTC?from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !signals.rangeCalled {
		t.Fatal("expected range query")
	}
	if signals.rangeFrom.IsZero() || !signals.rangeTo.After(signals.rangeFrom) {
		t.Fatalf("unexpected range: %v .. %v", signals.rangeFrom, signals.rangeTo)
	}
}

func TestGetCandlesBadRange(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/candles/BTC?from=yesterday", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetDecisions(t *testing.T) {
	signals := &fakeSignalReader{decisions: []domain.Decision{
		{Symbol: "BTC/USDT", Type: domain.SignalHold},
	}}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/decisions/BTC?limit=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if signals.limitSeen != 5 {
		t.Fatalf("expected limit 5, got %d", signals.limitSeen)
	}
}

func TestGetPerformance(t *testing.T) {
	signals := &fakeSignalReader{performance: strategy.Performance{TotalSignals: 7, HoldSignals: 4}}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodGet, "/api/performance", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var perf strategy.Performance
	if err := json.Unmarshal(w.Body.Bytes(), &perf); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if perf.TotalSignals != 7 || perf.HoldSignals != 4 {
		t.Fatalf("unexpected performance: %+v", perf)
	}
}

func TestGetRiskMetrics(t *testing.T) {
	risk := &fakeRiskController{metrics: domain.RiskMetrics{Volatility: 0.045, SharpeRatio: 1.0}}
	r := newTestRouter(&fakeSignalReader{}, risk, "")

	w := doRequest(r, http.MethodGet, "/api/risk/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var metrics domain.RiskMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if metrics.Volatility != 0.045 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}
}

func TestRiskAlertsLifecycle(t *testing.T) {
	risk := &fakeRiskController{alerts: []domain.RiskAlert{
		{Kind: domain.AlertPortfolioRiskExceeded, Message: "over"},
	}}
	r := newTestRouter(&fakeSignalReader{}, risk, "")

	w := doRequest(r, http.MethodGet, "/api/risk/alerts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Count  int                `json:"count"`
		Alerts []domain.RiskAlert `json:"alerts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Count != 1 || body.Alerts[0].Kind != domain.AlertPortfolioRiskExceeded {
		t.Fatalf("unexpected alerts payload: %+v", body)
	}

	w = doRequest(r, http.MethodDelete, "/api/risk/alerts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !risk.cleared {
		t.Fatal("alerts not cleared")
	}
}

func TestAddPosition(t *testing.T) {
	risk := &fakeRiskController{}
	r := newTestRouter(&fakeSignalReader{}, risk, "")

	body := `{"symbol":"btc","size":0.05,"risk_percent":0.004}`
	w := doRequest(r, http.MethodPost, "/api/positions", body, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(risk.added) != 1 || risk.added[0].Symbol != "BTC/USDT" {
		t.Fatalf("unexpected admitted position: %+v", risk.added)
	}
}

func TestAddPositionRejected(t *testing.T) {
	risk := &fakeRiskController{addErr: errors.New("position size 20.00% exceeds maximum 10.00%")}
	r := newTestRouter(&fakeSignalReader{}, risk, "")

	body := `{"symbol":"BTC/USDT","size":0.2,"risk_percent":0.004}`
	w := doRequest(r, http.MethodPost, "/api/positions", body, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestAddPositionUnknownSymbol(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{}, &fakeRiskController{}, "")

	body := `{"symbol":"SHIB","size":0.05,"risk_percent":0.004}`
	w := doRequest(r, http.MethodPost, "/api/positions", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRemovePosition(t *testing.T) {
	risk := &fakeRiskController{}
	r := newTestRouter(&fakeSignalReader{}, risk, "")

	w := doRequest(r, http.MethodDelete, "/api/positions/eth", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(risk.removed) != 1 || risk.removed[0] != "ETH/USDT" {
		t.Fatalf("unexpected removal: %+v", risk.removed)
	}
}

func TestTriggerEdgeFit(t *testing.T) {
	signals := &fakeSignalReader{}
	r := newTestRouter(signals, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodPost, "/api/ml/fit/BTC", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(signals.fitSymbols) != 1 || signals.fitSymbols[0] != "BTC/USDT" {
		t.Fatalf("unexpected fit call: %+v", signals.fitSymbols)
	}
}

func TestTriggerEdgeFitError(t *testing.T) {
	r := newTestRouter(&fakeSignalReader{err: errors.New("not enough history")}, &fakeRiskController{}, "")

	w := doRequest(r, http.MethodPost, "/api/ml/fit/BTC", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAPIKeyGuardsMutatingRoutes(t *testing.T) {
	risk := &fakeRiskController{}
	r := newTestRouter(&fakeSignalReader{}, risk, "secret")

	w := doRequest(r, http.MethodDelete, "/api/risk/alerts", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodDelete, "/api/risk/alerts", "", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with bad key, got %d", w.Code)
	}

	w = doRequest(r, http.MethodDelete, "/api/risk/alerts", "", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}

	// Read endpoints stay open
	w = doRequest(r, http.MethodGet, "/api/risk/alerts", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected open read endpoint, got %d", w.Code)
	}
}
