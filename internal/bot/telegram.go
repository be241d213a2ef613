package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cautious-pancake/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// SignalSource runs the decision pipeline for bot commands.
type SignalSource interface {
	GetSignal(ctx context.Context, symbol string) (domain.TradingSignal, error)
}

// RiskSource exposes the risk manager's read side to bot commands.
type RiskSource interface {
	Positions() []domain.Position
	Metrics() domain.RiskMetrics
	Alerts() []domain.RiskAlert
}

// Notifier pushes risk alerts to the configured operator chat.
type Notifier struct {
	bot  *tele.Bot
	chat *tele.Chat
}

// StartTelegramBot wires bot commands and starts long polling. Returns nil
// when no token is configured; the returned Notifier only sends alerts when
// chatID is set as well.
func StartTelegramBot(token, chatID string, signals SignalSource, risk RiskSource) *Notifier {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/signal", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /signal BTC\nSupported: %s", strings.Join(domain.SupportedSymbols, ", ")))
		}
		symbol, ok := domain.NormalizeSymbol(args[0])
		if !ok {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", args[0], strings.Join(domain.SupportedSymbols, ", ")))
		}
		sig, err := signals.GetSignal(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error generating signal for %s: %v", symbol, err))
		}
		return c.Send(formatSignal(sig))
	})

	b.Handle("/risk", func(c tele.Context) error {
		return c.Send(formatRisk(risk.Metrics(), risk.Alerts()))
	})

	b.Handle("/positions", func(c tele.Context) error {
		return c.Send(formatPositions(risk.Positions()))
	})

	notifier := &Notifier{bot: b}
	if chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			log.Printf("invalid TELEGRAM_CHAT_ID %q: %v", chatID, err)
		} else {
			notifier.chat = &tele.Chat{ID: id}
		}
	}

	log.Println("Telegram bot started")
	go b.Start()
	return notifier
}

// NotifyRiskAlerts sends newly raised alerts to the operator chat. Safe to
// call on a nil Notifier or when no chat is configured.
func (n *Notifier) NotifyRiskAlerts(alerts []domain.RiskAlert) {
	if n == nil || n.chat == nil || len(alerts) == 0 {
		return
	}
	if _, err := n.bot.Send(n.chat, formatAlerts(alerts)); err != nil {
		log.Printf("telegram alert send failed: %v", err)
	}
}

func formatSignal(sig domain.TradingSignal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\nConfidence: %.0f%%", sig.Symbol, strings.ToUpper(string(sig.Type)), sig.Confidence*100)
	if sig.PositionSize > 0 {
		fmt.Fprintf(&sb, "\nSize: %.2f%% of portfolio", sig.PositionSize*100)
	}
	if sig.StopLoss > 0 {
		fmt.Fprintf(&sb, "\nStop: %.2f  Take: %.2f", sig.StopLoss, sig.TakeProfit)
	}
	if sig.Reasoning != "" {
		fmt.Fprintf(&sb, "\n%s", sig.Reasoning)
	}
	return sb.String()
}

func formatRisk(metrics domain.RiskMetrics, alerts []domain.RiskAlert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Portfolio Risk\nVaR 95%%: %.2f%%\nVolatility: %.2f%%\nSharpe: %.2f\nCorrelation: %.2f",
		metrics.VaR95*100, metrics.Volatility*100, metrics.SharpeRatio, metrics.Correlation)
	if len(alerts) > 0 {
		fmt.Fprintf(&sb, "\n\n%s", formatAlerts(alerts))
	}
	return sb.String()
}

func formatPositions(positions []domain.Position) string {
	if len(positions) == 0 {
		return "No open positions"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Open positions (%d)", len(positions))
	for _, p := range positions {
		fmt.Fprintf(&sb, "\n%s  size %.2f%%  risk %.2f%%", p.Symbol, p.Size*100, p.RiskPercent*100)
	}
	return sb.String()
}

func formatAlerts(alerts []domain.RiskAlert) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk alerts (%d)", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(&sb, "\n[%s] %s", a.Kind, a.Message)
	}
	return sb.String()
}
