package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
)

// AnalyzeDocumentTool handles the analyze_document MCP tool.
type AnalyzeDocumentTool struct {
	pipeline *pipeline.Pipeline
	renderer *pipeline.Renderer
}

// NewAnalyzeDocumentTool creates an AnalyzeDocumentTool.
func NewAnalyzeDocumentTool(p *pipeline.Pipeline) *AnalyzeDocumentTool {
	return &AnalyzeDocumentTool{pipeline: p, renderer: pipeline.NewRenderer(false)}
}

// Definition returns the MCP tool definition for analyze_document.
func (t *AnalyzeDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_document",
		mcp.WithDescription(
			"Run the full analysis over a contract: facts, clause classification, bindings, "+
				"cross-references, fact slots, playbook findings and the risk profile. "+
				"Pass either 'text' or 'source' (file path or URL).",
		),
		mcp.WithString("text",
			mcp.Description("Contract text"),
		),
		mcp.WithString("source",
			mcp.Description("File path or http(s) URL of the contract"),
		),
		mcp.WithString("document_id",
			mcp.Description("Document identifier when passing text (default: 'document')"),
		),
		mcp.WithString("format",
			mcp.Description("Output format (default: markdown)"),
			mcp.Enum("markdown", "json"),
		),
	)
}

// Handle processes the analyze_document tool call.
func (t *AnalyzeDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	source := req.GetString("source", "")
	if text == "" && source == "" {
		return mcp.NewToolResultError("one of 'text' or 'source' is required"), nil
	}

	var (
		analysis *model.Analysis
		err      error
	)
	if text != "" {
		var doc model.Document
		doc, err = t.pipeline.ParseText(req.GetString("document_id", "document"), source, "", text)
		if err == nil {
			analysis, err = t.pipeline.Analyze(ctx, doc)
		}
	} else {
		analysis, err = t.pipeline.AnalyzeSource(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	if req.GetString("format", "markdown") == "json" {
		return jsonResult(analysis)
	}
	return mcp.NewToolResultText(t.renderer.Markdown(analysis)), nil
}
