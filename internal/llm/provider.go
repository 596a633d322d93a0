package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/covenant/internal/model"
)

// Provider defines the interface for judgment providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge compares one clause against its playbook position
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// JudgeRequest contains the input for one clause judgment
type JudgeRequest struct {
	ClauseID   string
	ClauseType model.ClauseType
	Heading    string

	// ClauseText is the only text the judgment may quote
	ClauseText string

	// Position is the organization's stance for this clause type
	Position model.Position

	// MissingFacts names required slots the deterministic layer could not fill
	MissingFacts []string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Judgment is the provider's structured verdict for one clause
type Judgment struct {
	Severity            model.ReviewSeverity `json:"severity"`
	Deviation           string               `json:"deviation"`
	Judgment            string               `json:"judgment"`
	Confidence          float64              `json:"confidence"`
	RiskSeverity        int                  `json:"risk_severity"`
	Likelihood          int                  `json:"likelihood"`
	SeverityRationale   string               `json:"severity_rationale"`
	LikelihoodRationale string               `json:"likelihood_rationale"`

	// Quotes are verbatim clause excerpts backing the judgment
	Quotes []string `json:"quotes"`

	Redline *RedlineSuggestion `json:"redline"`

	// Model is the model that generated the response
	Model string `json:"-"`

	// TokensUsed tracks token consumption
	TokensUsed int `json:"-"`
}

// RedlineSuggestion is the change proposed for a YELLOW or RED clause
type RedlineSuggestion struct {
	Text     string `json:"text"`
	Tier     int    `json:"tier"`
	Fallback string `json:"fallback"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictEvidence rejects judgments quoting text outside the clause
	StrictEvidence bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Model:          "",
		Timeout:        30,
		StrictEvidence: true,
		MaxTokens:      800,
	}
}

const systemPrompt = "You are a contract reviewer comparing clauses against an organization's playbook. You answer only with JSON and quote only the clause you are given."

// maxClauseChars bounds the clause text sent to a provider
const maxClauseChars = 6000

// BuildPrompt constructs the default judgment prompt
func BuildPrompt(req JudgeRequest) string {
	standard := req.Position.Standard
	if standard == "" {
		standard = "(no playbook position; judge against common market practice)"
	}
	fallback := req.Position.Fallback
	if fallback == "" {
		fallback = "(none)"
	}

	clauseText := req.ClauseText
	if len(clauseText) > maxClauseChars {
		cut := maxClauseChars
		for cut > 0 && !utf8.RuneStart(clauseText[cut]) {
			cut--
		}
		clauseText = clauseText[:cut] + "\n[...truncated]"
	}

	return fmt.Sprintf(`You are reviewing one contract clause against the organization's playbook position. You judge DEVIATION from the position. The extracted facts, bindings and clause boundaries are fixed; never restate or correct them.

CRITICAL RULES:
1. Quote ONLY text that appears verbatim in the clause below.
2. DO NOT infer terms that are not in the clause.
3. Respond with a single JSON object and nothing else.

Clause: %s
Clause Type: %s
Playbook Standard: %s
Playbook Fallback: %s
Missing Required Facts: %s

Clause Text:
"""
%s
"""

Respond with JSON fields:
- severity: GREEN (acceptable), YELLOW (negotiate) or RED (escalate)
- deviation: how the clause departs from the standard, empty when GREEN
- judgment: 1-3 sentences explaining the verdict
- confidence: number from 0 to 1
- risk_severity: integer 1-5 (impact if the risk materializes)
- likelihood: integer 1-5 (probability the risk materializes)
- severity_rationale, likelihood_rationale: one sentence each
- quotes: array of verbatim excerpts from the clause
- redline: {"text": ..., "tier": 1|2|3, "fallback": ...} for YELLOW or RED, otherwise null
`, req.Heading, req.ClauseType, standard, fallback, joinFacts(req.MissingFacts), clauseText)
}

// ParseJudgment decodes a provider reply into a Judgment. Markdown fences
// and prose around the JSON object are ignored.
func ParseJudgment(raw string) (*Judgment, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid judgment: no JSON object in response")
	}

	var j Judgment
	if err := json.Unmarshal([]byte(raw[start:end+1]), &j); err != nil {
		return nil, fmt.Errorf("invalid judgment: %w", err)
	}

	j.Severity = model.ReviewSeverity(strings.ToUpper(strings.TrimSpace(string(j.Severity))))
	switch j.Severity {
	case model.ReviewGreen, model.ReviewYellow, model.ReviewRed:
	default:
		return nil, fmt.Errorf("invalid judgment: unknown severity %q", j.Severity)
	}
	if strings.TrimSpace(j.Judgment) == "" {
		return nil, fmt.Errorf("invalid judgment: empty judgment text")
	}
	if !model.ValidConfidence(j.Confidence) {
		return nil, fmt.Errorf("invalid judgment: confidence %.3f outside [0,1]", j.Confidence)
	}
	if j.RiskSeverity < 1 || j.RiskSeverity > 5 || j.Likelihood < 1 || j.Likelihood > 5 {
		return nil, fmt.Errorf("invalid judgment: risk severity %d / likelihood %d outside 1-5", j.RiskSeverity, j.Likelihood)
	}
	if j.Redline != nil && strings.TrimSpace(j.Redline.Text) == "" {
		j.Redline = nil
	}

	return &j, nil
}

// VerifyQuotes checks that every quote appears in the clause text,
// ignoring whitespace differences
func VerifyQuotes(quotes []string, clauseText string) error {
	haystack := collapseSpace(clauseText)
	for _, q := range quotes {
		if !strings.Contains(haystack, collapseSpace(q)) {
			return fmt.Errorf("QUOTE LEAK: judgment quoted text not in clause: %q", q)
		}
	}
	return nil
}

// finishJudgment parses a raw reply and enforces strict evidence mode
func finishJudgment(raw string, req JudgeRequest, config Config, modelName string, tokens int) (*Judgment, error) {
	j, err := ParseJudgment(raw)
	if err != nil {
		return nil, err
	}

	// CRITICAL: Verify strict evidence mode
	if config.StrictEvidence {
		if err := VerifyQuotes(j.Quotes, req.ClauseText); err != nil {
			return nil, err
		}
	}

	j.Model = modelName
	j.TokensUsed = tokens
	return j, nil
}

// Helper functions

func promptFor(req JudgeRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req)
}

func maxTokensFor(req JudgeRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 800
}

func joinFacts(facts []string) string {
	if len(facts) == 0 {
		return "(none)"
	}
	return strings.Join(facts, ", ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
