package job

import (
	"context"
	"log"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// CandlePoller runs background goroutines that keep the candle store warm.
type CandlePoller struct {
	tracer        trace.Tracer
	candleService CandleRefresher
	shortStagger  time.Duration
	longStagger   time.Duration
}

type CandleRefresher interface {
	RefreshShortCandles(ctx context.Context, symbol string) error
	RefreshLongCandles(ctx context.Context, symbol string) error
}

func NewCandlePoller(tracer trace.Tracer, candleService CandleRefresher) *CandlePoller {
	return &CandlePoller{
		tracer:        tracer,
		candleService: candleService,
		shortStagger:  10 * time.Second,
		longStagger:   30 * time.Second,
	}
}

// Start launches background polling goroutines. Blocks until ctx is cancelled.
func (p *CandlePoller) Start(ctx context.Context) {
	log.Println("Candle poller starting...")

	// Short candles (5m, 15m, 1h): 2 coins every 5 minutes, round-robin
	go p.pollShortCandles(ctx)

	// Long candles (4h, 1d): 1 coin every 30 minutes, round-robin
	go p.pollLongCandles(ctx)

	<-ctx.Done()
	log.Println("Candle poller stopped")
}

func (p *CandlePoller) pollShortCandles(ctx context.Context) {
	// Wait a bit before starting to stagger upstream API calls
	select {
	case <-ctx.Done():
		return
	case <-time.After(p.shortStagger):
	}

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	coinIndex := 0
	coinsPerTick := 2

	// Run immediately
	p.fetchShortBatch(ctx, &coinIndex, coinsPerTick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchShortBatch(ctx, &coinIndex, coinsPerTick)
		}
	}
}

func (p *CandlePoller) fetchShortBatch(ctx context.Context, coinIndex *int, count int) {
	symbols := domain.SupportedSymbols
	for i := 0; i < count; i++ {
		symbol := symbols[*coinIndex%len(symbols)]
		*coinIndex++

		if err := p.candleService.RefreshShortCandles(ctx, symbol); err != nil {
			log.Printf("short candle refresh error for %s: %v", symbol, err)
		}
	}
}

func (p *CandlePoller) pollLongCandles(ctx context.Context) {
	// Wait before starting to stagger upstream API calls
	select {
	case <-ctx.Done():
		return
	case <-time.After(p.longStagger):
	}

	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	coinIndex := 0

	// Run immediately
	p.fetchLongBatch(ctx, &coinIndex)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchLongBatch(ctx, &coinIndex)
		}
	}
}

func (p *CandlePoller) fetchLongBatch(ctx context.Context, coinIndex *int) {
	symbols := domain.SupportedSymbols
	symbol := symbols[*coinIndex%len(symbols)]
	*coinIndex++

	if err := p.candleService.RefreshLongCandles(ctx, symbol); err != nil {
		log.Printf("long candle refresh error for %s: %v", symbol, err)
	}
}
