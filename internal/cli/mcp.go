package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/mcptools"
	"github.com/ppiankov/covenant/internal/pipeline"
)

var mcpFlags engineFlags

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the engine as MCP tools over stdio",
	Long: `Mcp starts a Model Context Protocol server on stdin/stdout with the tools
classify_heading, resolve_term, extract_cross_references, check_clause_slots,
risk_score and analyze_document.

Logs go to stderr so they never interfere with the stdio transport.

Example:
  covenant mcp
  covenant mcp --playbook playbook.yaml --llm ollama`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpFlags.register(mcpCmd, 0)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mcpFlags.apply(cmd, cfg)

	if err := checkAPIKey(cfg); err != nil {
		log.Printf("WARNING: judgment disabled: %v", err)
		cfg.LLM.Provider = ""
	}

	p := pipeline.NewPipeline(cfg)
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Printf("WARNING: record store disabled: %v", err)
	} else if st != nil {
		p.WithStore(st)
	}
	defer func() { _ = p.Close() }()

	s := mcptools.NewServer(p, cfg, Version)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
