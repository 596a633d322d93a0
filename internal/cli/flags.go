package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/covenant/internal/model"
)

// engineFlags are shared by every command that runs the pipeline
type engineFlags struct {
	timeout     time.Duration
	userAgent   string
	noCache     bool
	noFooter    bool
	httpProxy   string
	httpsProxy  string
	llmProvider string
	llmModel    string
	playbook    string
	storeDriver string
	storeDSN    string
}

func (f *engineFlags) register(cmd *cobra.Command, defaultTimeout time.Duration) {
	// HTTP flags
	cmd.Flags().DurationVar(&f.timeout, "timeout", defaultTimeout, "overall timeout")
	cmd.Flags().StringVar(&f.userAgent, "ua", "", "HTTP User-Agent for URL sources")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Cache and output flags
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the per-version analysis cache")
	cmd.Flags().BoolVar(&f.noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Judgment flags
	cmd.Flags().StringVar(&f.llmProvider, "llm", "", "judgment provider (openai, anthropic, ollama); empty disables findings")
	cmd.Flags().StringVar(&f.llmModel, "llm-model", "", "judgment model name")
	cmd.Flags().StringVar(&f.playbook, "playbook", "", "playbook YAML with standard positions per clause type")

	// Store flags
	cmd.Flags().StringVar(&f.storeDriver, "store", "", "record store driver (sqlite, postgres)")
	cmd.Flags().StringVar(&f.storeDSN, "store-dsn", "", "record store DSN or sqlite path")
}

// apply overrides configuration with the flags set on the command line
func (f *engineFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("timeout") {
		cfg.HTTP.Timeout = f.timeout
	}
	if changed("ua") {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if changed("http-proxy") {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noFooter {
		cfg.Output.IncludeFooter = false
	}
	if changed("llm") {
		cfg.LLM.Provider = f.llmProvider
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = providerAPIKey(f.llmProvider)
		}
	}
	if changed("llm-model") {
		cfg.LLM.Model = f.llmModel
	}
	if changed("playbook") {
		cfg.PlaybookPath = f.playbook
	}
	if changed("store") {
		cfg.Store.Driver = f.storeDriver
	}
	if changed("store-dsn") {
		cfg.Store.DSN = f.storeDSN
	}
}
