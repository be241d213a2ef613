package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"cautious-pancake/internal/cache"
	"cautious-pancake/internal/config"
	"cautious-pancake/internal/db"
	"cautious-pancake/internal/ml"
	"cautious-pancake/internal/provider"
	"cautious-pancake/internal/repository"
	"cautious-pancake/internal/risk"
	"cautious-pancake/internal/service"
	"cautious-pancake/internal/strategy"
	"cautious-pancake/internal/tui"
	"cautious-pancake/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"
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
	newWishServerFunc    = wish.NewServer
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

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

	// Repositories
	var pool repository.PgxPool
	if db.Pool != nil {
		pool = db.Pool
	}
	candleRepo := newCandleRepoFunc(pool, tracer)
	decisionRepo := newDecisionRepoFunc(pool, tracer)

	// Decision pipeline (no LLM refinement over SSH sessions)
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
	signalService := newSignalServiceFunc(tracer, cgProvider, candleRepo, engine, edge, decisionLog, cache.Client)

	// Authorized key, if any. Without one every key is accepted.
	var authorizedKey ssh.PublicKey
	if cfg.SSHAuthorizedKey != "" {
		parsed, _, _, _, err := gossh.ParseAuthorizedKey([]byte(cfg.SSHAuthorizedKey))
		if err != nil {
			log.Fatalf("invalid SSH_AUTHORIZED_KEY: %v", err)
		}
		authorizedKey = parsed
	} else {
		log.Println("Warning: SSH_AUTHORIZED_KEY not set, accepting any public key")
	}

	addr := fmt.Sprintf("%s:%d", cfg.SSHHost, cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			if authorizedKey == nil {
				return true
			}
			if ssh.KeysEqual(key, authorizedKey) {
				log.Printf("SSH auth accepted: user=%s fingerprint=%s", ctx.User(), gossh.FingerprintSHA256(key))
				return true
			}
			log.Printf("SSH auth denied: fingerprint=%s", gossh.FingerprintSHA256(key))
			return false
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				model := tui.NewModel(tui.Services{
					Signals:  signalService,
					Risk:     riskManager,
					Username: s.User(),
				})
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	log.Println("SSH server exited")
}
