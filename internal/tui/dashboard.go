package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cautious-pancake/internal/domain"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SignalSource runs the decision pipeline for the dashboard.
type SignalSource interface {
	GetSignal(ctx context.Context, symbol string) (domain.TradingSignal, error)
}

// RiskSource exposes the risk manager's read side to the dashboard.
type RiskSource interface {
	Positions() []domain.Position
	Metrics() domain.RiskMetrics
	Alerts() []domain.RiskAlert
}

// Services bundles everything a dashboard session needs.
type Services struct {
	Signals  SignalSource
	Risk     RiskSource
	Username string
}

type tabID int

const (
	tabPositions tabID = iota
	tabAlerts
	tabMetrics
	tabSignal
)

var tabNames = []string{"Positions", "Alerts", "Metrics", "Signal"}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("240"))
	activeTab     = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(lipgloss.Color("212"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	buyStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	sellStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	holdStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	requestExpiry = 10 * time.Second
)

type refreshMsg struct {
	positions []domain.Position
	alerts    []domain.RiskAlert
	metrics   domain.RiskMetrics
}

type signalMsg struct {
	signal domain.TradingSignal
	err    error
}

// Model is the SSH dashboard. One instance per session.
type Model struct {
	svc    Services
	tab    tabID
	width  int
	height int

	positions table.Model
	alerts    []domain.RiskAlert
	metrics   domain.RiskMetrics

	symbolIdx int
	signal    *domain.TradingSignal
	loading   bool
	err       error
}

func NewModel(svc Services) Model {
	cols := []table.Column{
		{Title: "Symbol", Width: 12},
		{Title: "Size", Width: 10},
		{Title: "Risk", Width: 10},
		{Title: "Stop", Width: 12},
		{Title: "Take", Width: 12},
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return Model{svc: svc, positions: t}
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if height > 8 {
		m.positions.SetHeight(height - 8)
	}
}

func (m Model) Init() tea.Cmd {
	return refreshCmd(m.svc)
}

func refreshCmd(svc Services) tea.Cmd {
	return func() tea.Msg {
		if svc.Risk == nil {
			return refreshMsg{}
		}
		return refreshMsg{
			positions: svc.Risk.Positions(),
			alerts:    svc.Risk.Alerts(),
			metrics:   svc.Risk.Metrics(),
		}
	}
}

func signalCmd(svc Services, symbol string) tea.Cmd {
	return func() tea.Msg {
		if svc.Signals == nil {
			return signalMsg{err: fmt.Errorf("signal service unavailable")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestExpiry)
		defer cancel()
		sig, err := svc.Signals.GetSignal(ctx, symbol)
		return signalMsg{signal: sig, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case refreshMsg:
		rows := make([]table.Row, 0, len(msg.positions))
		for _, p := range msg.positions {
			rows = append(rows, table.Row{
				p.Symbol,
				fmt.Sprintf("%.2f%%", p.Size*100),
				fmt.Sprintf("%.2f%%", p.RiskPercent*100),
				fmt.Sprintf("%.2f", p.StopLoss),
				fmt.Sprintf("%.2f", p.TakeProfit),
			})
		}
		m.positions.SetRows(rows)
		m.alerts = msg.alerts
		m.metrics = msg.metrics
		m.err = nil
		return m, nil

	case signalMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		sig := msg.signal
		m.signal = &sig
		m.err = nil
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.tab = (m.tab + 1) % tabID(len(tabNames))
			return m, nil
		case "shift+tab":
			m.tab = (m.tab + tabID(len(tabNames)) - 1) % tabID(len(tabNames))
			return m, nil
		case "r":
			return m, refreshCmd(m.svc)
		case "left":
			if m.tab == tabSignal {
				m.symbolIdx = (m.symbolIdx + len(domain.SupportedSymbols) - 1) % len(domain.SupportedSymbols)
				return m, nil
			}
		case "right":
			if m.tab == tabSignal {
				m.symbolIdx = (m.symbolIdx + 1) % len(domain.SupportedSymbols)
				return m, nil
			}
		case "enter":
			if m.tab == tabSignal && !m.loading {
				m.loading = true
				return m, signalCmd(m.svc, domain.SupportedSymbols[m.symbolIdx])
			}
		}
	}

	var cmd tea.Cmd
	m.positions, cmd = m.positions.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var sb strings.Builder

	title := "cautious-pancake"
	if m.svc.Username != "" {
		title += " / " + m.svc.Username
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	var tabs []string
	for i, name := range tabNames {
		if tabID(i) == m.tab {
			tabs = append(tabs, activeTab.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	sb.WriteString("\n\n")

	switch m.tab {
	case tabPositions:
		sb.WriteString(m.viewPositions())
	case tabAlerts:
		sb.WriteString(m.viewAlerts())
	case tabMetrics:
		sb.WriteString(m.viewMetrics())
	case tabSignal:
		sb.WriteString(m.viewSignal())
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errStyle.Render("error: " + m.err.Error()))
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("tab: switch  r: refresh  q: quit"))
	return sb.String()
}

func (m Model) viewPositions() string {
	if len(m.positions.Rows()) == 0 {
		return dimStyle.Render("No open positions")
	}
	return m.positions.View()
}

func (m Model) viewAlerts() string {
	if len(m.alerts) == 0 {
		return dimStyle.Render("No risk alerts")
	}
	var sb strings.Builder
	for _, a := range m.alerts {
		fmt.Fprintf(&sb, "[%s] %s\n", a.Kind, a.Message)
	}
	return sb.String()
}

func (m Model) viewMetrics() string {
	return fmt.Sprintf(
		"VaR 95%%:     %.2f%%\nVolatility:  %.2f%%\nSharpe:      %.2f\nBeta:        %.2f\nCorrelation: %.2f",
		m.metrics.VaR95*100, m.metrics.Volatility*100,
		m.metrics.SharpeRatio, m.metrics.Beta, m.metrics.Correlation,
	)
}

func (m Model) viewSignal() string {
	var sb strings.Builder
	symbol := domain.SupportedSymbols[m.symbolIdx]
	fmt.Fprintf(&sb, "← %s →   enter: evaluate\n\n", symbol)

	if m.loading {
		sb.WriteString(dimStyle.Render("evaluating..."))
		return sb.String()
	}
	if m.signal == nil {
		sb.WriteString(dimStyle.Render("No signal yet"))
		return sb.String()
	}

	sig := m.signal
	style := holdStyle
	switch sig.Type {
	case domain.SignalBuy:
		style = buyStyle
	case domain.SignalSell:
		style = sellStyle
	}
	fmt.Fprintf(&sb, "%s  %s\n", sig.Symbol, style.Render(strings.ToUpper(string(sig.Type))))
	fmt.Fprintf(&sb, "Confidence: %.0f%%\n", sig.Confidence*100)
	if sig.PositionSize > 0 {
		fmt.Fprintf(&sb, "Size: %.2f%%  Stop: %.2f  Take: %.2f\n", sig.PositionSize*100, sig.StopLoss, sig.TakeProfit)
	}
	if sig.Reasoning != "" {
		fmt.Fprintf(&sb, "\n%s", sig.Reasoning)
	}
	return sb.String()
}
