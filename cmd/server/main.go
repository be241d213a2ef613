package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cautious-pancake/internal/bot"
	"cautious-pancake/internal/cache"
	"cautious-pancake/internal/config"
	"cautious-pancake/internal/db"
	"cautious-pancake/internal/handler"
	"cautious-pancake/internal/job"
	"cautious-pancake/internal/ml"
	"cautious-pancake/internal/provider"
	"cautious-pancake/internal/repository"
	"cautious-pancake/internal/risk"
	"cautious-pancake/internal/service"
	"cautious-pancake/internal/strategy"
	"cautious-pancake/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "cautious-pancake/docs"
)

// defaultFeeds and defaultSubreddits seed the sentiment content sources.
var (
	defaultFeeds = []string{
		"https://www.coindesk.com/arc/outboundfeeds/rss/",
		"https://cointelegraph.com/rss",
	}
	defaultSubreddits = []string{"CryptoCurrency", "Bitcoin"}
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initPostgresFunc         = db.InitPostgres
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCandleRepoFunc        = repository.NewCandleRepository
	newDecisionRepoFunc      = repository.NewDecisionRepository
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.MarketDataProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	newSignalServiceFunc = service.NewSignalService
	startPollerFunc      = func(p *job.CandlePoller, ctx context.Context) { go p.Start(ctx) }
	startMonitorFunc     = func(m *job.RiskMonitor, ctx context.Context) { go m.Start(ctx) }
	startTelegramBotFunc = bot.StartTelegramBot
	newHandlerFunc       = handler.New
	newRouterFunc        = gin.Default
	setupSignalNotify    = signal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
)

// @title           Cautious Pancake API
// @version         1.0
// @description     Crypto trading signal service with ensemble strategy and risk management.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	var pool repository.PgxPool
	if db.Pool != nil {
		pool = db.Pool
	}
	candleRepo := newCandleRepoFunc(pool, tracer)
	decisionRepo := newDecisionRepoFunc(pool, tracer)
	if db.Pool != nil {
		if err := candleRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run candle migrations: %v", err)
		}
		if err := decisionRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run decision migrations: %v", err)
		}
	}

	// Sentiment sources: RSS and Reddit, optionally refined by OpenAI
	sources := []provider.ContentSource{
		provider.NewRSSSource(provider.NewRSSProvider(tracer), defaultFeeds),
		provider.NewRedditSource(provider.NewRedditProvider(tracer), defaultSubreddits),
	}
	var llm provider.LLMScorer
	if cfg.OpenAIAPIKey != "" {
		llm = provider.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		log.Println("OpenAI sentiment refinement enabled")
	}
	sentiment := provider.NewSentimentProvider(tracer, sources, llm)
	fearGreed := provider.NewFearGreedProvider(tracer)

	// Decision pipeline
	riskManager := risk.NewManager(tracer, cfg.Limits, nil)
	edge := ml.NewEdgeService(tracer)
	engine := strategy.NewEngine(tracer, sentiment, fearGreed, riskManager, edge, cfg.Weights, cfg.MinConfidence)

	cgProvider := newCoinGeckoProviderFunc(tracer)
	var decisionLog service.DecisionLog
	if db.Pool != nil {
		decisionLog = decisionRepo
	}
	signalService := newSignalServiceFunc(tracer, cgProvider, candleRepo, engine, edge, decisionLog, cache.Client)

	// Start Telegram bot before the monitor so alerts have a notifier
	notifier := startTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatID, signalService, riskManager)

	// Background jobs, stopped by ctx cancel
	poller := job.NewCandlePoller(tracer, signalService)
	startPollerFunc(poller, ctx)

	var jobNotifier job.AlertNotifier
	if notifier != nil {
		jobNotifier = notifier
	}
	monitor := job.NewRiskMonitor(tracer, riskManager, risk.NewAnomalyDetector(tracer), signalService, jobNotifier, cfg.RiskMonitorSecs)
	startMonitorFunc(monitor, ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, signalService, riskManager)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("cautious-pancake"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
