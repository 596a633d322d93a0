package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	versionsStore string
	versionsDSN   string
)

// versionsCmd represents the versions command
var versionsCmd = &cobra.Command{
	Use:   "versions <document-id>",
	Short: "List the stored analysis versions of a document",
	Long: `Versions lists every analysis persisted for a document, newest first.
Each content version of a document is analyzed and stored once.

Example:
  covenant versions supply-agreement --store sqlite
  covenant versions msa --store postgres --store-dsn postgres://localhost/covenant`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)

	versionsCmd.Flags().StringVar(&versionsStore, "store", "", "record store driver (sqlite, postgres)")
	versionsCmd.Flags().StringVar(&versionsDSN, "store-dsn", "", "record store DSN or sqlite path")
}

func runVersions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if versionsStore != "" {
		cfg.Store.Driver = versionsStore
	}
	if versionsDSN != "" {
		cfg.Store.DSN = versionsDSN
	}
	if cfg.Store.Driver == "" {
		return fmt.Errorf("no record store configured (use --store or store.driver in config)")
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	versions, err := st.Versions(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	if len(versions) == 0 {
		fmt.Fprintf(os.Stderr, "No stored analyses for %s\n", args[0])
		return nil
	}

	fmt.Printf("%-14s %-20s %-9s %5s %8s  %s\n", "VERSION", "ANALYZED", "RISK", "SCORE", "FINDINGS", "SOURCE")
	for _, v := range versions {
		version := v.Version
		if len(version) > 12 {
			version = version[:12]
		}
		fmt.Printf("%-14s %-20s %-9s %5d %8d  %s\n",
			version, v.AnalyzedAt.Format("2006-01-02 15:04:05"), v.OverallLevel, v.OverallScore, v.FindingCount, v.Source)
	}
	return nil
}
