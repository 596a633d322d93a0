package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/api"
	"github.com/ppiankov/covenant/internal/pipeline"
)

var (
	serveAddr  string
	serveFlags engineFlags
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Serve exposes the engine as a JSON API:
  GET  /health
  POST /api/v1/analyze
  POST /api/v1/classify
  POST /api/v1/resolve-term
  GET  /api/v1/confidence?value=0.72
  GET  /api/v1/documents/{id}/versions        (with a store)
  GET  /api/v1/documents/{id}/versions/{ver}  (with a store)

Example:
  covenant serve --addr :8080
  covenant serve --store sqlite --playbook playbook.yaml --llm anthropic`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveFlags.register(serveCmd, 0)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	serveFlags.apply(cmd, cfg)
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := checkAPIKey(cfg); err != nil {
		return err
	}

	p := pipeline.NewPipeline(cfg)
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	if st != nil {
		p.WithStore(st)
	}
	defer func() { _ = p.Close() }()

	fmt.Fprintf(os.Stderr, "Covenant API listening on %s\n", cfg.Server.Addr)
	if err := api.NewServer(p, st, cfg).Run(cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
