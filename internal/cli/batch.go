package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	fromFile     bool
	batchFlags   engineFlags
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file|dir|url>...",
	Short: "Analyze many contracts in parallel",
	Long: `Batch analyzes many contracts concurrently:
- Directories are expanded to the .txt, .md and .html files they contain
- With --from-file, the single argument lists one source per line
- Each document is analyzed once per content version
- Individual JSON and Markdown reports are written per document

Example:
  covenant batch ./contracts
  covenant batch a.txt b.md https://example.com/terms --output-dir ./reports
  covenant batch sources.txt --from-file --concurrency 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./covenant-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&fromFile, "from-file", false, "read sources from the file given as the only argument")

	batchFlags.register(batchCmd, 30*time.Second)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batchFlags.apply(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}
	if err := checkAPIKey(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Covenant Batch Analysis\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Sources:      %s\n", strings.Join(args, ", "))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  Judgment:     %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
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

	// Create batch processor
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	var results []*worker.AnalyzeResult
	if fromFile {
		if len(args) != 1 {
			return fmt.Errorf("--from-file takes exactly one argument")
		}
		fmt.Fprintf(os.Stderr, "⚙️  Reading sources from file...\n")
		results, err = processor.ProcessFile(ctx, args[0])
		if err != nil {
			return fmt.Errorf("process file: %w", err)
		}
	} else {
		sources, err := worker.ExpandSources(args)
		if err != nil {
			return fmt.Errorf("expand sources: %w", err)
		}
		fmt.Fprintf(os.Stderr, "⚙️  Analyzing %d documents with %d workers...\n", len(sources), cfg.Concurrency.Workers)
		results = processor.ProcessSources(ctx, sources)
	}
	fmt.Fprintf(os.Stderr, "\n")

	// Process results
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}

		a := result.Analysis
		base := reportName(a)
		jsonPath := filepath.Join(outputDir, base+".json")
		mdPath := filepath.Join(outputDir, base+".md")

		if err := renderer.RenderJSON(a, jsonPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(a, mdPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (risk: %s, %d clauses, %d findings)\n",
			a.DocumentID, a.Profile.OverallLevel, len(a.Clauses), len(a.Findings))
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d documents\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d documents failed", failureCount)
	}
	return nil
}

// reportName names report files by document and short version so two
// versions of one contract never overwrite each other
func reportName(a *model.Analysis) string {
	version := a.Version
	if len(version) > 12 {
		version = version[:12]
	}
	name := a.DocumentID
	if name == "" {
		name = "document"
	}
	return name + "-" + version
}
