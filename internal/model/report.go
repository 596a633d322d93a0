package model

import "time"

// Analysis is the complete resolution result for one document version
type Analysis struct {
	DocumentID string    `json:"document_id"`
	Source     string    `json:"source,omitempty"` // Path or URL the document was read from
	Version    string    `json:"version"`          // Content hash, plus judgment fingerprint when reviewed
	AnalyzedAt time.Time `json:"analyzed_at"`      // When the run completed

	Facts           []Fact           `json:"facts"`
	Bindings        []Binding        `json:"bindings"`
	Clauses         []Clause         `json:"clauses"`
	CrossReferences []CrossReference `json:"cross_references"`
	Slots           []ClauseFactSlot `json:"slots"`

	Findings []Finding   `json:"findings"`
	Profile  RiskProfile `json:"risk_profile"`
	Signals  []Signal    `json:"signals"`

	Principles Principles    `json:"principles"`
	Judgment   *JudgmentMeta `json:"judgment,omitempty"` // Set when a judgment provider was consulted
}

// ClauseByID returns the clause with the given id
func (a *Analysis) ClauseByID(id string) (Clause, bool) {
	for _, c := range a.Clauses {
		if c.ID == id {
			return c, true
		}
	}
	return Clause{}, false
}

// SlotsFor returns the slots belonging to a clause, in registry order
func (a *Analysis) SlotsFor(clauseID string) []ClauseFactSlot {
	var out []ClauseFactSlot
	for _, s := range a.Slots {
		if s.ClauseID == clauseID {
			out = append(out, s)
		}
	}
	return out
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and formula behind the signal
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalMissingRequiredFacts SignalType = "missing_required_facts" // Required slots with no evidence
	SignalPartialFacts         SignalType = "partial_facts"          // Evidence without linked facts
	SignalUnresolvedReferences SignalType = "unresolved_references"  // Cross-references to unknown clauses
	SignalLowConfidence        SignalType = "low_confidence"         // Judgments below review threshold
	SignalJudgmentUnavailable  SignalType = "judgment_unavailable"   // Provider gave no result
	SignalNoClauses            SignalType = "no_clauses"             // No headings found
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Principles documents which layering rules the run honored
type Principles struct {
	Deterministic    bool `json:"deterministic"`     // Facts, bindings, clauses are rule-derived
	JudgmentIsolated bool `json:"judgment_isolated"` // Judgment never rewrites lower layers
	Provenanced      bool `json:"provenanced"`       // Every finding carries an evidence chain
}

// DefaultPrinciples returns the standard principles
func DefaultPrinciples() Principles {
	return Principles{
		Deterministic:    true,
		JudgmentIsolated: true,
		Provenanced:      true,
	}
}

// JudgmentMeta records which provider produced the findings
type JudgmentMeta struct {
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Requested int      `json:"requested"`
	Received  int      `json:"received"`
	Warnings  []string `json:"warnings,omitempty"`
}
