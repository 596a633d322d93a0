package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/ingest"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/slots"
)

// ClauseSlotsTool handles the check_clause_slots MCP tool.
type ClauseSlotsTool struct {
	classifier *classify.Classifier
	extractor  *extract.FactExtractor
	checker    *slots.Checker
}

// NewClauseSlotsTool creates a ClauseSlotsTool.
func NewClauseSlotsTool(classifier *classify.Classifier, extractor *extract.FactExtractor, checker *slots.Checker) *ClauseSlotsTool {
	return &ClauseSlotsTool{classifier: classifier, extractor: extractor, checker: checker}
}

// Definition returns the MCP tool definition for check_clause_slots.
func (t *ClauseSlotsTool) Definition() mcp.Tool {
	return mcp.NewTool("check_clause_slots",
		mcp.WithDescription(
			"Check whether a clause states the facts its type requires (e.g. notice period and "+
				"termination reasons for TERMINATION). Each slot is filled, partial or missing.",
		),
		mcp.WithString("heading",
			mcp.Required(),
			mcp.Description("Clause heading, used to classify the clause"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Clause body text"),
		),
		mcp.WithString("clause_type",
			mcp.Description("Override the classified clause type, e.g. PAYMENT"),
		),
	)
}

// Handle processes the check_clause_slots tool call.
func (t *ClauseSlotsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	heading := req.GetString("heading", "")
	if heading == "" {
		return mcp.NewToolResultError("'heading' is required"), nil
	}
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	clauseType, _ := t.classifier.ClassifyHeading(heading)
	if raw := req.GetString("clause_type", ""); raw != "" {
		parsed, ok := model.ParseClauseType(raw)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown clause type %q", raw)), nil
		}
		clauseType = parsed
	}

	facts, err := t.extractor.Extract(ingest.ReadText(toolDocumentID, text))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extract facts: %v", err)), nil
	}

	clause := model.Clause{ID: "clause", DocumentID: toolDocumentID, Type: clauseType, Heading: heading}
	result, err := t.checker.Check(clause, text, facts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check slots: %v", err)), nil
	}

	missing := []string{}
	for _, s := range slots.MissingRequired(result) {
		missing = append(missing, s.FactSpec)
	}
	return jsonResult(struct {
		ClauseType      model.ClauseType       `json:"clause_type"`
		Slots           []model.ClauseFactSlot `json:"slots"`
		MissingRequired []string               `json:"missing_required"`
	}{clauseType, result, missing})
}
