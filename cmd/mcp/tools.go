package main

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools wires every MCP tool to the signal and risk services.
func registerTools(s *server.MCPServer, signals signalAPI, risk riskAPI) {
	s.AddTool(createGenerateSignalTool(), handleGenerateSignal(signals))
	s.AddTool(createMarketAnalysisTool(), handleMarketAnalysis(signals))
	s.AddTool(createRecentDecisionsTool(), handleRecentDecisions(signals))
	s.AddTool(createRiskMetricsTool(), handleRiskMetrics(risk))
	s.AddTool(createRiskAlertsTool(), handleRiskAlerts(risk))
	s.AddTool(createListPositionsTool(), handleListPositions(risk))
}

func createGenerateSignalTool() mcp.Tool {
	return mcp.NewTool("generate_signal",
		mcp.WithDescription("Run the trading decision pipeline for a crypto asset. Returns the signal (buy/sell/hold), confidence, position size, stop-loss and take-profit levels, and the reasoning behind it."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Asset symbol (e.g., 'BTC', 'ETH', 'BTC/USDT')")),
	)
}

func createMarketAnalysisTool() mcp.Tool {
	return mcp.NewTool("market_analysis",
		mcp.WithDescription("Get the derived market condition for a crypto asset: trend, volatility, volume profile, sentiment and macro regime."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Asset symbol (e.g., 'BTC', 'ETH')")),
	)
}

func createRecentDecisionsTool() mcp.Tool {
	return mcp.NewTool("recent_decisions",
		mcp.WithDescription("List the most recent logged trading decisions for an asset, oldest-first."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Asset symbol (e.g., 'BTC', 'ETH')")),
		mcp.WithNumber("limit", mcp.Description("Maximum decisions to return (default: 20, max: 200)")),
	)
}

func createRiskMetricsTool() mcp.Tool {
	return mcp.NewTool("risk_metrics",
		mcp.WithDescription("Get portfolio risk metrics over the open positions: 95% value-at-risk, volatility, Sharpe ratio, beta and mean pairwise correlation."),
	)
}

func createRiskAlertsTool() mcp.Tool {
	return mcp.NewTool("risk_alerts",
		mcp.WithDescription("List risk alerts raised by the background monitor since the last clear."),
	)
}

func createListPositionsTool() mcp.Tool {
	return mcp.NewTool("list_positions",
		mcp.WithDescription("List all open positions with size, risk budget, and stop/take levels."),
	)
}
