package main

import (
	"context"
	"encoding/json"
	"fmt"

	"cautious-pancake/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// signalAPI is the slice of the signal service the MCP tools use.
type signalAPI interface {
	GetSignal(ctx context.Context, symbol string) (domain.TradingSignal, error)
	AnalyzeMarket(ctx context.Context, symbol string) (domain.MarketCondition, error)
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]domain.Decision, error)
}

// riskAPI is the slice of the risk manager the MCP tools use.
type riskAPI interface {
	Positions() []domain.Position
	Metrics() domain.RiskMetrics
	Alerts() []domain.RiskAlert
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(message)},
		IsError: true,
	}
}

func requireSymbol(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	raw, err := request.RequireString("symbol")
	if err != nil {
		return "", errorResult(err.Error())
	}
	symbol, ok := domain.NormalizeSymbol(raw)
	if !ok {
		return "", errorResult(fmt.Sprintf("unsupported symbol: %s", raw))
	}
	return symbol, nil
}

func handleGenerateSignal(signals signalAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, errRes := requireSymbol(request)
		if errRes != nil {
			return errRes, nil
		}
		sig, err := signals.GetSignal(ctx, symbol)
		if err != nil {
			return errorResult(fmt.Sprintf("generate signal for %s: %v", symbol, err)), nil
		}
		return jsonResult(sig), nil
	}
}

func handleMarketAnalysis(signals signalAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, errRes := requireSymbol(request)
		if errRes != nil {
			return errRes, nil
		}
		condition, err := signals.AnalyzeMarket(ctx, symbol)
		if err != nil {
			return errorResult(fmt.Sprintf("analyze market for %s: %v", symbol, err)), nil
		}
		return jsonResult(condition), nil
	}
}

func handleRecentDecisions(signals signalAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symbol, errRes := requireSymbol(request)
		if errRes != nil {
			return errRes, nil
		}
		limit := request.GetInt("limit", 20)
		if limit <= 0 || limit > 200 {
			limit = 20
		}
		decisions, err := signals.RecentDecisions(ctx, symbol, limit)
		if err != nil {
			return errorResult(fmt.Sprintf("load decisions for %s: %v", symbol, err)), nil
		}
		return jsonResult(map[string]any{
			"symbol":    symbol,
			"decisions": decisions,
		}), nil
	}
}

func handleRiskMetrics(risk riskAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(risk.Metrics()), nil
	}
}

func handleRiskAlerts(risk riskAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		alerts := risk.Alerts()
		return jsonResult(map[string]any{
			"count":  len(alerts),
			"alerts": alerts,
		}), nil
	}
}

func handleListPositions(risk riskAPI) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		positions := risk.Positions()
		return jsonResult(map[string]any{
			"count":     len(positions),
			"positions": positions,
		}), nil
	}
}
