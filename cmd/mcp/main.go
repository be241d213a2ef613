package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"cautious-pancake/internal/cache"
	"cautious-pancake/internal/config"
	"cautious-pancake/internal/db"
	"cautious-pancake/internal/ml"
	"cautious-pancake/internal/provider"
	"cautious-pancake/internal/repository"
	"cautious-pancake/internal/risk"
	"cautious-pancake/internal/service"
	"cautious-pancake/internal/strategy"
	"cautious-pancake/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initPostgresFunc         = db.InitPostgres
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.MarketDataProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	serveStdioFunc = server.ServeStdio
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var pool repository.PgxPool
	if db.Pool != nil {
		pool = db.Pool
	}
	candleRepo := repository.NewCandleRepository(pool, tracer)
	decisionRepo := repository.NewDecisionRepository(pool, tracer)

	sentiment := provider.NewSentimentProvider(tracer, nil, nil)
	fearGreed := provider.NewFearGreedProvider(tracer)
	riskManager := risk.NewManager(tracer, cfg.Limits, nil)
	edge := ml.NewEdgeService(tracer)
	engine := strategy.NewEngine(tracer, sentiment, fearGreed, riskManager, edge, cfg.Weights, cfg.MinConfidence)

	cgProvider := newCoinGeckoProviderFunc(tracer)
	var decisionLog service.DecisionLog
	if db.Pool != nil {
		decisionLog = decisionRepo
	}
	signalService := service.NewSignalService(tracer, cgProvider, candleRepo, engine, edge, decisionLog, cache.Client)

	mcpServer := server.NewMCPServer(
		"cautious-pancake",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(mcpServer, signalService, riskManager)

	// Stdio transport: reads stdin, writes stdout
	if err := serveStdioFunc(mcpServer); err != nil {
		fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
		os.Exit(1)
	}
}
