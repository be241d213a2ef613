package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"cautious-pancake/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestCandlePollerStart(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubCandleService{}
	poller := NewCandlePoller(tracer, stub)
	poller.shortStagger = time.Millisecond
	poller.longStagger = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Start(ctx)

	eventually(t, func() bool {
		return len(stub.short()) > 0 && len(stub.long()) > 0
	})
	cancel()
}

func TestFetchShortBatch(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubCandleService{}
	poller := NewCandlePoller(tracer, stub)

	idx := 0
	poller.fetchShortBatch(context.Background(), &idx, 3)

	if len(stub.short()) != 3 {
		t.Fatalf("expected 3 symbols, got %d", len(stub.short()))
	}
	if stub.short()[0] != domain.SupportedSymbols[0] {
		t.Fatalf("unexpected symbol order: %+v", stub.short())
	}
}

func TestFetchShortBatchWrapsAround(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubCandleService{}
	poller := NewCandlePoller(tracer, stub)

	idx := len(domain.SupportedSymbols) - 1
	poller.fetchShortBatch(context.Background(), &idx, 2)

	got := stub.short()
	if got[0] != domain.SupportedSymbols[len(domain.SupportedSymbols)-1] {
		t.Fatalf("unexpected first symbol: %+v", got)
	}
	if got[1] != domain.SupportedSymbols[0] {
		t.Fatalf("round-robin must wrap to the first symbol, got %+v", got)
	}
}

func TestFetchLongBatch(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubCandleService{}
	poller := NewCandlePoller(tracer, stub)

	idx := 0
	poller.fetchLongBatch(context.Background(), &idx)

	if len(stub.long()) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(stub.long()))
	}
	if stub.long()[0] != domain.SupportedSymbols[0] {
		t.Fatalf("unexpected symbol: %+v", stub.long())
	}
}

type stubCandleService struct {
	mu           sync.Mutex
	shortSymbols []string
	longSymbols  []string
}

func (s *stubCandleService) RefreshShortCandles(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortSymbols = append(s.shortSymbols, symbol)
	return nil
}

func (s *stubCandleService) RefreshLongCandles(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.longSymbols = append(s.longSymbols, symbol)
	return nil
}

func (s *stubCandleService) short() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shortSymbols...)
}

func (s *stubCandleService) long() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.longSymbols...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
