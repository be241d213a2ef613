package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"cautious-pancake/internal/domain"
	"cautious-pancake/internal/strategy"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	signalCacheTTL = 60 * time.Second
	candleCacheTTL = 90 * time.Second

	// analysisInterval and analysisWindow define the candle window every
	// signal evaluation runs on.
	analysisInterval = "1h"
	analysisWindow   = 100

	// fitWindow is how many candles the edge model trains on.
	fitWindow = 500
)

// MarketDataProvider fetches raw candles from the upstream API.
type MarketDataProvider interface {
	FetchMarketChart(ctx context.Context, symbol string, days int, intervals []string) ([]*domain.Candle, error)
}

type CandleRepository interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error)
	GetCandlesInRange(ctx context.Context, symbol, interval string, from, to time.Time) ([]*domain.Candle, error)
	UpsertCandles(ctx context.Context, candles []*domain.Candle) error
}

// DecisionLog records every emitted signal.
type DecisionLog interface {
	Append(ctx context.Context, sig domain.TradingSignal) error
	Recent(ctx context.Context, symbol string, limit int) ([]domain.Decision, error)
}

// SignalEngine is the decision pipeline behind the service.
type SignalEngine interface {
	GenerateSignal(ctx context.Context, symbol string, candles []*domain.Candle) domain.TradingSignal
	AnalyzeMarket(ctx context.Context, symbol string, candles []*domain.Candle) domain.MarketCondition
	GetPerformance() strategy.Performance
}

// EdgeFitter trains the edge model on a candle window.
type EdgeFitter interface {
	Fit(ctx context.Context, symbol string, candles []*domain.Candle) error
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SignalService orchestrates candle retrieval, signal generation, caching
// and the decision log.
type SignalService struct {
	tracer   trace.Tracer
	provider MarketDataProvider
	repo     CandleRepository
	engine   SignalEngine
	edge     EdgeFitter
	log      DecisionLog
	redis    RedisClient
}

func NewSignalService(
	tracer trace.Tracer,
	provider MarketDataProvider,
	repo CandleRepository,
	engine SignalEngine,
	edge EdgeFitter,
	decisionLog DecisionLog,
	redisClient RedisClient,
) *SignalService {
	return &SignalService{
		tracer:   tracer,
		provider: provider,
		repo:     repo,
		engine:   engine,
		edge:     edge,
		log:      decisionLog,
		redis:    redisClient,
	}
}

// GetSignal returns the current trading signal for a symbol. Signals are
// cached for a minute; a cache miss runs the full pipeline and appends the
// result to the decision log.
func (s *SignalService) GetSignal(ctx context.Context, symbol string) (domain.TradingSignal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.get-signal")
	defer span.End()

	if !domain.SupportedSymbol(symbol) {
		return domain.TradingSignal{}, fmt.Errorf("unsupported symbol: %s", symbol)
	}

	if s.redis != nil {
		cached, err := s.getSignalCache(ctx, symbol)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return *cached, nil
		}
	}

	candles := s.analysisCandles(ctx, symbol)
	sig := s.engine.GenerateSignal(ctx, symbol, candles)

	if s.log != nil {
		if err := s.log.Append(ctx, sig); err != nil {
			log.Printf("decision log append failed for %s: %v", symbol, err)
		}
	}
	if s.redis != nil {
		if err := s.setSignalCache(ctx, sig); err != nil {
			log.Printf("redis cache write error for %s: %v", symbol, err)
		}
	}

	return sig, nil
}

// AnalyzeMarket returns the derived market condition for a symbol.
func (s *SignalService) AnalyzeMarket(ctx context.Context, symbol string) (domain.MarketCondition, error) {
	ctx, span := s.tracer.Start(ctx, "signal-service.analyze-market")
	defer span.End()

	if !domain.SupportedSymbol(symbol) {
		return domain.MarketCondition{}, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	return s.engine.AnalyzeMarket(ctx, symbol, s.analysisCandles(ctx, symbol)), nil
}

// analysisCandles loads the evaluation window, oldest-first. Storage is
// tried first; an empty or failing store falls back to a live fetch that is
// persisted for next time. Failures here yield an empty window, which the
// engine degrades to a hold.
func (s *SignalService) analysisCandles(ctx context.Context, symbol string) []*domain.Candle {
	candles, err := s.repo.GetCandles(ctx, symbol, analysisInterval, analysisWindow)
	if err != nil {
		log.Printf("candle store read failed for %s: %v", symbol, err)
	}
	if len(candles) == 0 && s.provider != nil {
		fetched, err := s.provider.FetchMarketChart(ctx, symbol, 1, []string{analysisInterval})
		if err != nil {
			log.Printf("market chart fetch failed for %s: %v", symbol, err)
			return nil
		}
		if err := s.repo.UpsertCandles(ctx, fetched); err != nil {
			log.Printf("candle upsert failed for %s: %v", symbol, err)
		}
		return fetched
	}

	// Store returns newest-first; the pipeline wants oldest-first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles
}

// GetCandles returns stored candles, newest-first, optionally from cache.
func (s *SignalService) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]*domain.Candle, error) {
	_, span := s.tracer.Start(ctx, "signal-service.get-candles")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getCandleCache(ctx, symbol, interval)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			if limit > 0 && len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	candles, err := s.repo.GetCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}
	if s.redis != nil && len(candles) > 0 {
		if err := s.setCandleCache(ctx, symbol, interval, candles); err != nil {
			log.Printf("redis cache write error for %s: %v", symbol, err)
		}
	}
	return candles, nil
}

// GetCandlesInRange returns stored candles between two instants, newest-first.
func (s *SignalService) GetCandlesInRange(ctx context.Context, symbol, interval string, from, to time.Time) ([]*domain.Candle, error) {
	return s.repo.GetCandlesInRange(ctx, symbol, interval, from, to)
}

// RecentDecisions returns the latest logged decisions for a symbol.
func (s *SignalService) RecentDecisions(ctx context.Context, symbol string, limit int) ([]domain.Decision, error) {
	if s.log == nil {
		return nil, nil
	}
	return s.log.Recent(ctx, symbol, limit)
}

// Performance returns the engine's emitted-signal counters.
func (s *SignalService) Performance() strategy.Performance {
	return s.engine.GetPerformance()
}

// FitEdgeModel trains the edge model on the stored candle history.
func (s *SignalService) FitEdgeModel(ctx context.Context, symbol string) error {
	ctx, span := s.tracer.Start(ctx, "signal-service.fit-edge-model")
	defer span.End()

	if s.edge == nil {
		return fmt.Errorf("no edge model configured")
	}
	if !domain.SupportedSymbol(symbol) {
		return fmt.Errorf("unsupported symbol: %s", symbol)
	}

	candles, err := s.repo.GetCandles(ctx, symbol, analysisInterval, fitWindow)
	if err != nil {
		return fmt.Errorf("load training candles for %s: %w", symbol, err)
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return s.edge.Fit(ctx, symbol, candles)
}

// RefreshShortCandles fetches market_chart data (days=1) and stores 5m, 15m, 1h candles.
func (s *SignalService) RefreshShortCandles(ctx context.Context, symbol string) error {
	_, span := s.tracer.Start(ctx, "signal-service.refresh-short-candles")
	defer span.End()

	candles, err := s.provider.FetchMarketChart(ctx, symbol, 1, []string{"5m", "15m", "1h"})
	if err != nil {
		return err
	}

	if err := s.repo.UpsertCandles(ctx, candles); err != nil {
		return fmt.Errorf("upsert short candles for %s: %w", symbol, err)
	}

	log.Printf("Refreshed short candles for %s (%d candles)", symbol, len(candles))
	return nil
}

// RefreshLongCandles fetches market_chart data (days=30) and stores 4h, 1d candles.
func (s *SignalService) RefreshLongCandles(ctx context.Context, symbol string) error {
	_, span := s.tracer.Start(ctx, "signal-service.refresh-long-candles")
	defer span.End()

	candles, err := s.provider.FetchMarketChart(ctx, symbol, 30, []string{"4h", "1d"})
	if err != nil {
		return err
	}

	if err := s.repo.UpsertCandles(ctx, candles); err != nil {
		return fmt.Errorf("upsert long candles for %s: %w", symbol, err)
	}

	log.Printf("Refreshed long candles for %s (%d candles)", symbol, len(candles))
	return nil
}

func (s *SignalService) setSignalCache(ctx context.Context, sig domain.TradingSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "signal:"+sig.Symbol, data, signalCacheTTL).Err()
}

func (s *SignalService) getSignalCache(ctx context.Context, symbol string) (*domain.TradingSignal, error) {
	data, err := s.redis.Get(ctx, "signal:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sig domain.TradingSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, err
	}
	return &sig, nil
}

func (s *SignalService) setCandleCache(ctx context.Context, symbol, interval string, candles []*domain.Candle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "candles:"+symbol+":"+interval, data, candleCacheTTL).Err()
}

func (s *SignalService) getCandleCache(ctx context.Context, symbol, interval string) ([]*domain.Candle, error) {
	data, err := s.redis.Get(ctx, "candles:"+symbol+":"+interval).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var candles []*domain.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, err
	}
	return candles, nil
}
