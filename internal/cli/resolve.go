package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/resolve"
)

var (
	resolveDepth int
	resolveFlags engineFlags
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <file|url> [term]",
	Short: "Show what defined terms and aliases resolve to",
	Long: `Resolve runs the deterministic layers over a contract and follows the
binding chain of a term, printing every hop. Without a term, every active
binding is listed with its final resolution.

Example:
  covenant resolve msa.txt Supplier
  covenant resolve msa.txt`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().IntVar(&resolveDepth, "max-depth", 0, "maximum hops to follow (default from config)")
	resolveFlags.register(resolveCmd, time.Minute)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolveFlags.apply(cmd, cfg)
	// Bindings never need judgment
	cfg.LLM.Provider = ""
	if resolveDepth > 0 {
		cfg.Engine.MaxBindingDepth = resolveDepth
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveFlags.timeout)
	defer cancel()

	p := pipeline.NewPipeline(cfg)
	doc, err := p.Load(ctx, args[0])
	if err != nil {
		return err
	}
	analysis, err := p.Resolve(ctx, doc)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if len(args) == 2 {
		printTrace(args[1], analysis.Bindings, cfg.Engine.MaxBindingDepth)
		return nil
	}

	if len(analysis.Bindings) == 0 {
		fmt.Fprintf(os.Stderr, "No bindings found in %s\n", doc.ID)
		return nil
	}
	for _, b := range analysis.Bindings {
		if !b.Active() {
			continue
		}
		final := resolve.ResolveTerm(b.Term, analysis.Bindings, cfg.Engine.MaxBindingDepth)
		fmt.Printf("%-30s → %s (%s)\n", b.Term, final, b.Kind)
	}
	return nil
}

func printTrace(term string, bindings []model.Binding, maxDepth int) {
	resolved, path := resolve.ResolveTermTrace(term, bindings, maxDepth)
	if len(path) == 0 {
		fmt.Printf("%s is not bound\n", term)
		return
	}

	fmt.Printf("%s\n", term)
	for _, hop := range path {
		fmt.Printf("  → %s  [%s, %s]\n", hop.ResolvedTo, hop.Kind, hop.ID)
	}
	if len(path) >= maxDepth {
		fmt.Fprintf(os.Stderr, "Warning: stopped at max depth %d\n", maxDepth)
	}
	fmt.Printf("\nResolves to: %s\n", resolved)
}
