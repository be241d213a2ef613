package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"cautious-pancake/internal/risk"
	"cautious-pancake/internal/strategy"
)

type Config struct {
	TelegramBotToken string
	TelegramChatID   string
	DatabaseURL      string
	RedisURL         string
	OpenAIAPIKey     string
	OpenAIModel      string
	APIKey           string

	HTTPPort         int
	RiskMonitorSecs  int
	SSHHost          string
	SSHPort          int
	SSHHostKeyPath   string
	SSHAuthorizedKey string

	MinConfidence float64
	Weights       strategy.Weights
	Limits        risk.Limits
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		APIKey:           os.Getenv("API_KEY"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, sentiment refinement disabled")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.HTTPPort = intEnv("HTTP_PORT", 8080)
	cfg.RiskMonitorSecs = intEnv("RISK_MONITOR_SECS", 60)

	cfg.SSHHost = strings.TrimSpace(os.Getenv("SSH_HOST"))
	if cfg.SSHHost == "" {
		cfg.SSHHost = "localhost"
	}
	cfg.SSHPort = intEnv("SSH_PORT", 23234)
	cfg.SSHHostKeyPath = strings.TrimSpace(os.Getenv("SSH_HOST_KEY_PATH"))
	if cfg.SSHHostKeyPath == "" {
		cfg.SSHHostKeyPath = ".ssh/cautious_pancake_ed25519"
	}
	cfg.SSHAuthorizedKey = strings.TrimSpace(os.Getenv("SSH_AUTHORIZED_KEY"))

	cfg.MinConfidence = floatEnv("MIN_CONFIDENCE", 0.6)

	w := strategy.DefaultWeights()
	w.Sentiment = floatEnv("ENSEMBLE_W_SENTIMENT", w.Sentiment)
	w.Technical = floatEnv("ENSEMBLE_W_TECHNICAL", w.Technical)
	w.Microstructure = floatEnv("ENSEMBLE_W_MICROSTRUCTURE", w.Microstructure)
	w.Macro = floatEnv("ENSEMBLE_W_MACRO", w.Macro)
	cfg.Weights = w

	l := risk.DefaultLimits()
	l.MaxPositionSize = floatEnv("MAX_POSITION_SIZE", l.MaxPositionSize)
	l.MinPositionSize = floatEnv("MIN_POSITION_SIZE", l.MinPositionSize)
	l.StopLossPct = floatEnv("STOP_LOSS_PCT", l.StopLossPct)
	l.TakeProfitPct = floatEnv("TAKE_PROFIT_PCT", l.TakeProfitPct)
	l.KellyCap = floatEnv("KELLY_FRACTION", l.KellyCap)
	l.MaxPortfolioRisk = floatEnv("MAX_PORTFOLIO_RISK", l.MaxPortfolioRisk)
	l.MaxPositionRisk = floatEnv("MAX_POSITION_RISK", l.MaxPositionRisk)
	l.MaxCorrelation = floatEnv("MAX_CORRELATION", l.MaxCorrelation)
	cfg.Limits = l

	return cfg
}

// Validate rejects weight and limit combinations the pipeline cannot run on.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("MIN_CONFIDENCE must be in [0,1], got %v", c.MinConfidence)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("ensemble weights: %w", err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("risk limits: %w", err)
	}
	return nil
}

func intEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
	}
	return def
}
