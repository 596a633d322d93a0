package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/model"
)

// ClassifyHeadingTool handles the classify_heading MCP tool.
type ClassifyHeadingTool struct {
	classifier *classify.Classifier
}

// NewClassifyHeadingTool creates a ClassifyHeadingTool.
func NewClassifyHeadingTool(classifier *classify.Classifier) *ClassifyHeadingTool {
	return &ClassifyHeadingTool{classifier: classifier}
}

// Definition returns the MCP tool definition for classify_heading.
func (t *ClassifyHeadingTool) Definition() mcp.Tool {
	return mcp.NewTool("classify_heading",
		mcp.WithDescription(
			"Classify a contract section heading into a clause type (TERMINATION, PAYMENT, "+
				"LIABILITY, ...) and extract its section number. Unmatched headings are GENERAL.",
		),
		mcp.WithString("heading",
			mcp.Required(),
			mcp.Description("Heading text, e.g. '12.3 Limitation of Liability'"),
		),
	)
}

// Handle processes the classify_heading tool call.
func (t *ClassifyHeadingTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	heading := req.GetString("heading", "")
	if heading == "" {
		return mcp.NewToolResultError("'heading' is required"), nil
	}

	clauseType, confidence := t.classifier.ClassifyHeading(heading)
	return jsonResult(struct {
		Heading       string           `json:"heading"`
		ClauseType    model.ClauseType `json:"clause_type"`
		SectionNumber string           `json:"section_number,omitempty"`
		Confidence    *float64         `json:"confidence"`
	}{heading, clauseType, classify.ExtractSectionNumber(heading), confidence})
}
