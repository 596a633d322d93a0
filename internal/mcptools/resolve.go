package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/resolve"
)

const toolDocumentID = "mcp"

// ResolveTermTool handles the resolve_term MCP tool.
type ResolveTermTool struct {
	resolver *resolve.Resolver
	maxDepth int
}

// NewResolveTermTool creates a ResolveTermTool.
func NewResolveTermTool(resolver *resolve.Resolver, maxDepth int) *ResolveTermTool {
	if maxDepth <= 0 {
		maxDepth = resolve.DefaultMaxDepth
	}
	return &ResolveTermTool{resolver: resolver, maxDepth: maxDepth}
}

// Definition returns the MCP tool definition for resolve_term.
func (t *ResolveTermTool) Definition() mcp.Tool {
	return mcp.NewTool("resolve_term",
		mcp.WithDescription(
			"Resolve a defined term or party alias to what it ultimately refers to. "+
				"Bindings are detected in the given contract text; the chain is followed "+
				"until no binding applies, the depth limit is reached or a cycle repeats.",
		),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Term to resolve, e.g. 'Supplier' (case-insensitive)"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Contract text containing the definitions and aliases"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description(fmt.Sprintf("Maximum hops to follow (default: %d)", t.maxDepth)),
		),
	)
}

// Handle processes the resolve_term tool call.
func (t *ResolveTermTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term := strings.TrimSpace(req.GetString("term", ""))
	if term == "" {
		return mcp.NewToolResultError("'term' is required"), nil
	}
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	depth := intArg(req, "max_depth", t.maxDepth)
	if depth <= 0 || depth > t.maxDepth {
		depth = t.maxDepth
	}

	aliases, err := t.resolver.DetectAliases(text, toolDocumentID, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detect aliases: %v", err)), nil
	}
	bindings, err := t.resolver.ResolveBindings(nil, aliases, text, toolDocumentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve bindings: %v", err)), nil
	}

	resolved, path := resolve.ResolveTermTrace(term, bindings, depth)
	if path == nil {
		path = []model.Binding{}
	}
	return jsonResult(struct {
		Term     string          `json:"term"`
		Resolved string          `json:"resolved"`
		Path     []model.Binding `json:"path"`
	}{term, resolved, path})
}

// CrossReferencesTool handles the extract_cross_references MCP tool.
type CrossReferencesTool struct {
	resolver *resolve.Resolver
	window   int
}

// NewCrossReferencesTool creates a CrossReferencesTool.
func NewCrossReferencesTool(resolver *resolve.Resolver, window int) *CrossReferencesTool {
	return &CrossReferencesTool{resolver: resolver, window: window}
}

// Definition returns the MCP tool definition for extract_cross_references.
func (t *CrossReferencesTool) Definition() mcp.Tool {
	return mcp.NewTool("extract_cross_references",
		mcp.WithDescription(
			"Find references to other sections, schedules, exhibits and annexes in clause text "+
				"and classify their effect (overrides, conditions, limits, incorporates, ...).",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Clause text to scan"),
		),
		mcp.WithString("source_clause_id",
			mcp.Description("Identifier of the clause the text belongs to (default: 'clause')"),
		),
		mcp.WithString("known_sections",
			mcp.Description("Comma-separated section numbers that exist in the document, e.g. '1,2,9.1'. "+
				"References to these are marked resolved."),
		),
	)
}

// Handle processes the extract_cross_references tool call.
func (t *CrossReferencesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	source := req.GetString("source_clause_id", "clause")

	var known []model.Clause
	for _, n := range strings.Split(req.GetString("known_sections", ""), ",") {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		known = append(known, model.Clause{ID: "section-" + n, SectionNumber: n})
	}

	refs, err := t.resolver.ExtractCrossReferences(text, source, known, t.window)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extract cross-references: %v", err)), nil
	}
	if refs == nil {
		refs = []model.CrossReference{}
	}
	return jsonResult(refs)
}
