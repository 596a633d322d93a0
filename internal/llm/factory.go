package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// NewProvider creates a new judgment provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (judgment disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the file/env configuration to llm.Config.
// Strict evidence is always on; proxies follow the HTTP settings.
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	return Config{
		Provider:       llmConfig.Provider,
		Model:          llmConfig.Model,
		APIKey:         llmConfig.APIKey,
		BaseURL:        llmConfig.BaseURL,
		Timeout:        llmConfig.Timeout,
		StrictEvidence: true,
		MaxTokens:      llmConfig.MaxTokens,
		HTTPProxy:      httpConfig.HTTPProxy,
		HTTPSProxy:     httpConfig.HTTPSProxy,
		NoProxy:        httpConfig.NoProxy,
	}
}
