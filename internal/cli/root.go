package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/store"
)

// Version is set at build time via ldflags
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "covenant",
	Short: "Covenant - contract structure resolution engine",
	Long: `Covenant resolves the structure of contracts into layered, traceable records.

Facts are extracted from the text, headings are classified into clause types,
defined terms and party aliases are bound, cross-references are resolved and
classified by effect, and every clause is checked for the facts its type
requires. These layers are rule-derived and reproducible.

With a playbook and a judgment provider configured, clauses are compared
against the organization's standard positions. Each finding carries a risk
score, a confidence and the evidence chain it rests on.

Covenant is a reading aid, not legal advice.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number for Covenant.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("covenant v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.covenant/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".covenant"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match COVENANT_*, with nested
	// keys joined by underscores (COVENANT_LLM_PROVIDER)
	viper.SetEnvPrefix("COVENANT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(model.DefaultConfig())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so environment variables
// are picked up by Unmarshal
func setDefaults(cfg *model.Config) {
	viper.SetDefault("engine.max_binding_depth", cfg.Engine.MaxBindingDepth)
	viper.SetDefault("engine.context_window", cfg.Engine.ContextWindow)

	viper.SetDefault("llm.provider", cfg.LLM.Provider)
	viper.SetDefault("llm.model", cfg.LLM.Model)
	viper.SetDefault("llm.api_key", cfg.LLM.APIKey)
	viper.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	viper.SetDefault("llm.timeout_seconds", cfg.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)

	viper.SetDefault("http.timeout", cfg.HTTP.Timeout)
	viper.SetDefault("http.user_agent", cfg.HTTP.UserAgent)
	viper.SetDefault("http.max_body_bytes", cfg.HTTP.MaxBodyBytes)
	viper.SetDefault("http.respect_robots", cfg.HTTP.RespectRobots)
	viper.SetDefault("http.http_proxy", cfg.HTTP.HTTPProxy)
	viper.SetDefault("http.https_proxy", cfg.HTTP.HTTPSProxy)
	viper.SetDefault("http.no_proxy", cfg.HTTP.NoProxy)

	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)

	viper.SetDefault("store.driver", cfg.Store.Driver)
	viper.SetDefault("store.dsn", cfg.Store.DSN)

	viper.SetDefault("server.addr", cfg.Server.Addr)
	viper.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("rate_limiting.requests_per_second", cfg.RateLimiting.RequestsPerSecond)
	viper.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)

	viper.SetDefault("output.verbose", cfg.Output.Verbose)
	viper.SetDefault("output.include_footer", cfg.Output.IncludeFooter)

	viper.SetDefault("playbook", cfg.PlaybookPath)
}

// loadConfig merges defaults, the config file and COVENANT_* variables.
// Command flags are applied on top by each command.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerAPIKey(cfg.LLM.Provider)
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

// providerAPIKey reads the vendor's conventional key variable
func providerAPIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// checkAPIKey fails early when a hosted provider has no key
func checkAPIKey(cfg *model.Config) error {
	if cfg.LLM.APIKey != "" {
		return nil
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	case "anthropic", "claude":
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	return nil
}

// openStore opens the configured record store, or returns nil when
// persistence is disabled
func openStore(ctx context.Context, cfg *model.Config) (store.Store, error) {
	if cfg.Store.Driver == "" {
		return nil, nil
	}
	dsn := cfg.Store.DSN
	if dsn == "" && cfg.Store.Driver == string(store.DialectSQLite) {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}
		dsn = filepath.Join(home, ".covenant", "covenant.db")
	}

	st, err := store.Open(ctx, cfg.Store.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
