package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/covenant/internal/model"
)

// RiskScoreTool handles the risk_score MCP tool.
type RiskScoreTool struct{}

// NewRiskScoreTool creates a RiskScoreTool.
func NewRiskScoreTool() *RiskScoreTool {
	return &RiskScoreTool{}
}

// Definition returns the MCP tool definition for risk_score.
func (t *RiskScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("risk_score",
		mcp.WithDescription(
			"Compute a risk score as severity x likelihood (each 1-5) and its level: "+
				"low (1-4), medium (5-9), high (10-15), critical (16-25).",
		),
		mcp.WithNumber("severity",
			mcp.Required(),
			mcp.Description("Impact if the risk materializes, 1-5"),
		),
		mcp.WithNumber("likelihood",
			mcp.Required(),
			mcp.Description("Probability the risk materializes, 1-5"),
		),
		mcp.WithString("severity_rationale",
			mcp.Description("Why this severity"),
		),
		mcp.WithString("likelihood_rationale",
			mcp.Description("Why this likelihood"),
		),
	)
}

// Handle processes the risk_score tool call.
func (t *RiskScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	severity := intArg(req, "severity", 0)
	likelihood := intArg(req, "likelihood", 0)

	score, err := model.NewRiskScore(severity, likelihood,
		req.GetString("severity_rationale", ""), req.GetString("likelihood_rationale", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(score)
}
