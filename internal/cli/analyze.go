package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/pipeline"
)

var (
	outJSON      string
	outMD        string
	analyzeFlags engineFlags
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url>",
	Short: "Analyze a single contract and generate a report",
	Long: `Analyze reads a contract (text, Markdown or HTML file, or URL) and:
- Extracts facts: headings, defined terms, parties, amounts, durations, obligations
- Classifies clauses by heading
- Binds defined terms and party aliases
- Resolves cross-references and classifies their effect
- Checks each clause for the facts its type requires
- With a playbook and --llm, compares clauses against standard positions

Example:
  covenant analyze msa.txt
  covenant analyze msa.md --json report.json --md report.md
  covenant analyze https://example.com/terms --playbook playbook.yaml --llm openai`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output flags
	analyzeCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")

	analyzeFlags.register(analyzeCmd, 2*time.Minute)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	analyzeFlags.apply(cmd, cfg)
	if err := checkAPIKey(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeFlags.timeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Analyzing: %s\n", source)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", analyzeFlags.timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		if cfg.LLM.Provider != "" {
			fmt.Fprintf(os.Stderr, "Judgment: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	// Create pipeline
	p := pipeline.NewPipeline(cfg)
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st != nil {
		p.WithStore(st)
	}
	defer func() { _ = p.Close() }()

	if cfg.LLM.Provider != "" && p.Playbook() == nil {
		fmt.Fprintf(os.Stderr, "Warning: judgment provider set without a playbook; no findings will be produced\n")
	}

	analysis, err := p.AnalyzeSource(ctx, source)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d facts\n", len(analysis.Facts))
		fmt.Fprintf(os.Stderr, "✓ Classified %d clauses\n", len(analysis.Clauses))
		fmt.Fprintf(os.Stderr, "✓ Resolved %d bindings and %d cross-references\n", len(analysis.Bindings), len(analysis.CrossReferences))
		if analysis.Judgment != nil {
			fmt.Fprintf(os.Stderr, "✓ Received %d/%d judgments from %s\n", analysis.Judgment.Received, analysis.Judgment.Requested, analysis.Judgment.Provider)
		}
		fmt.Fprintln(os.Stderr)
	}

	// Render outputs
	if err := p.RenderReport(analysis, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
