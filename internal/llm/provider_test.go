package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ppiankov/covenant/internal/model"
)

const sampleClause = "Either party may terminate this Agreement for convenience on 30 days prior written notice."

const validJudgmentJSON = `{"severity":"yellow","deviation":"Notice shorter than 60 days","judgment":"The 30 day notice period is below the 60 day standard.","confidence":0.8,"risk_severity":3,"likelihood":2,"quotes":["30 days prior   written notice"],"redline":{"text":"Replace 30 days with 60 days.","tier":2,"fallback":"45 days"}}`

const leakingJudgmentJSON = `{"severity":"RED","judgment":"Notice is too short.","confidence":0.9,"risk_severity":4,"likelihood":3,"quotes":["90 days notice"]}`

func sampleRequest() JudgeRequest {
	return JudgeRequest{
		ClauseID:   "clause-1",
		ClauseType: model.ClauseTermination,
		Heading:    "4. Termination",
		ClauseText: sampleClause,
		Position: model.Position{
			Standard: "Termination for convenience requires 60 days notice.",
			Fallback: "45 days notice",
		},
		MissingFacts: []string{"termination_reasons"},
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	prompt := BuildPrompt(sampleRequest())

	requiredElements := []string{
		"CRITICAL RULES",
		"Quote ONLY text that appears verbatim",
		"DO NOT infer",
		"Clause: 4. Termination",
		"Clause Type: TERMINATION",
		"Playbook Standard: Termination for convenience requires 60 days notice.",
		"Playbook Fallback: 45 days notice",
		"Missing Required Facts: termination_reasons",
		sampleClause,
		"GREEN (acceptable)",
	}
	for _, element := range requiredElements {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain '%s'", element)
		}
	}
}

func TestBuildPrompt_NoPosition(t *testing.T) {
	req := sampleRequest()
	req.Position = model.Position{}
	req.MissingFacts = nil

	prompt := BuildPrompt(req)
	if !strings.Contains(prompt, "no playbook position") {
		t.Error("Expected note about missing playbook position")
	}
	if !strings.Contains(prompt, "Missing Required Facts: (none)") {
		t.Error("Expected (none) for missing facts")
	}
}

func TestBuildPrompt_TruncatesLongClause(t *testing.T) {
	req := sampleRequest()
	req.ClauseText = strings.Repeat("a", maxClauseChars+500)

	prompt := BuildPrompt(req)
	if !strings.Contains(prompt, "[...truncated]") {
		t.Error("Expected truncation marker")
	}
	if strings.Contains(prompt, strings.Repeat("a", maxClauseChars+1)) {
		t.Error("Expected clause text to be truncated")
	}
}

func TestBuildPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	req := sampleRequest()
	// "é" is two bytes, so the byte limit lands inside a rune
	req.ClauseText = "a" + strings.Repeat("é", maxClauseChars)

	prompt := BuildPrompt(req)
	if !utf8.ValidString(prompt) {
		t.Fatal("Expected truncated prompt to be valid UTF-8")
	}
	if !strings.Contains(prompt, "é\n[...truncated]") {
		t.Error("Expected truncation marker after a whole rune")
	}
}

func TestParseJudgment(t *testing.T) {
	j, err := ParseJudgment("```json\n" + validJudgmentJSON + "\n```")
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if j.Severity != model.ReviewYellow {
		t.Errorf("Expected severity normalized to YELLOW, got %s", j.Severity)
	}
	if j.RiskSeverity != 3 || j.Likelihood != 2 || j.Confidence != 0.8 {
		t.Errorf("Unexpected scores: %+v", j)
	}
	if j.Redline == nil || j.Redline.Tier != 2 || j.Redline.Fallback != "45 days" {
		t.Errorf("Unexpected redline: %+v", j.Redline)
	}
}

func TestParseJudgment_Invalid(t *testing.T) {
	tests := map[string]string{
		"no object":        "I cannot judge this clause.",
		"malformed":        `{"severity": "GREEN",`,
		"unknown severity": `{"severity":"BLUE","judgment":"x","confidence":0.5,"risk_severity":1,"likelihood":1}`,
		"empty judgment":   `{"severity":"GREEN","judgment":" ","confidence":0.5,"risk_severity":1,"likelihood":1}`,
		"confidence":       `{"severity":"GREEN","judgment":"ok","confidence":1.5,"risk_severity":1,"likelihood":1}`,
		"risk range":       `{"severity":"GREEN","judgment":"ok","confidence":0.5,"risk_severity":6,"likelihood":1}`,
		"likelihood zero":  `{"severity":"GREEN","judgment":"ok","confidence":0.5,"risk_severity":2}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseJudgment(raw); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestParseJudgment_EmptyRedlineDropped(t *testing.T) {
	j, err := ParseJudgment(`{"severity":"GREEN","judgment":"Matches the standard.","confidence":0.95,"risk_severity":1,"likelihood":1,"redline":{"text":""}}`)
	if err != nil {
		t.Fatalf("ParseJudgment: %v", err)
	}
	if j.Redline != nil {
		t.Errorf("Expected empty redline to be dropped, got %+v", j.Redline)
	}
}

func TestVerifyQuotes(t *testing.T) {
	if err := VerifyQuotes([]string{"terminate this\nAgreement", "30 days"}, sampleClause); err != nil {
		t.Errorf("Expected quotes to verify, got %v", err)
	}
	err := VerifyQuotes([]string{"90 days notice"}, sampleClause)
	if err == nil || !strings.Contains(err.Error(), "QUOTE LEAK") {
		t.Errorf("Expected QUOTE LEAK error, got %v", err)
	}
	if err := VerifyQuotes(nil, sampleClause); err != nil {
		t.Errorf("Expected no quotes to verify, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got '%s'", config.Provider)
	}
	if !config.StrictEvidence {
		t.Error("Expected strict evidence to be enabled by default")
	}
	if config.Timeout <= 0 {
		t.Error("Expected positive timeout")
	}
	if config.MaxTokens <= 0 {
		t.Error("Expected positive max tokens")
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("Expected nil provider for empty config, got %v, %v", p, err)
	}

	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Error("Expected error for unknown provider")
	}

	if _, err := NewProvider(Config{Provider: "openai"}); err == nil {
		t.Error("Expected error for missing OpenAI key")
	}

	p, err = NewProvider(Config{Provider: "Claude", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("Expected anthropic provider, got %s", p.Name())
	}
}

func TestConfigFromModel(t *testing.T) {
	config := ConfigFromModel(
		model.LLMConfig{Provider: "ollama", Model: "llama3.1", Timeout: 12, MaxTokens: 300},
		model.HTTPConfig{HTTPSProxy: "http://proxy:3128", NoProxy: "localhost"},
	)
	if config.Provider != "ollama" || config.Model != "llama3.1" || config.Timeout != 12 || config.MaxTokens != 300 {
		t.Errorf("Unexpected config: %+v", config)
	}
	if !config.StrictEvidence {
		t.Error("Expected strict evidence to be forced on")
	}
	if config.HTTPSProxy != "http://proxy:3128" || config.NoProxy != "localhost" {
		t.Errorf("Expected proxy settings to carry over: %+v", config)
	}
}
