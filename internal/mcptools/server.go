package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/resolve"
	"github.com/ppiankov/covenant/internal/slots"
)

const serverInstructions = `covenant resolves the structure of contracts: what each clause is, what every
defined term refers to, which sections override or condition others, and
which required facts a clause leaves out. Facts, bindings and clauses are
rule-derived and reproducible; only analyze_document findings involve model
judgment, and each one carries its evidence chain.`

// NewServer creates the MCP server with every engine tool registered
func NewServer(p *pipeline.Pipeline, cfg *model.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"covenant",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	patterns := extract.NewPatternLibrary()
	classifier := classify.NewClassifier()
	resolver := resolve.NewResolver(patterns)
	checker := slots.NewChecker(slots.DefaultRegistry().WithPlaybook(p.Playbook()), patterns)

	classifyTool := NewClassifyHeadingTool(classifier)
	s.AddTool(classifyTool.Definition(), classifyTool.Handle)

	resolveTool := NewResolveTermTool(resolver, cfg.Engine.MaxBindingDepth)
	s.AddTool(resolveTool.Definition(), resolveTool.Handle)

	xrefTool := NewCrossReferencesTool(resolver, cfg.Engine.ContextWindow)
	s.AddTool(xrefTool.Definition(), xrefTool.Handle)

	slotsTool := NewClauseSlotsTool(classifier, extract.NewFactExtractor(patterns), checker)
	s.AddTool(slotsTool.Definition(), slotsTool.Handle)

	riskTool := NewRiskScoreTool()
	s.AddTool(riskTool.Definition(), riskTool.Handle)

	analyzeTool := NewAnalyzeDocumentTool(p)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	return s
}
