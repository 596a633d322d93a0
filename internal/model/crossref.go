package model

// ReferenceType is the kind of locator a cross-reference targets
type ReferenceType string

const (
	RefSection  ReferenceType = "section"
	RefClause   ReferenceType = "clause"
	RefAppendix ReferenceType = "appendix"
	RefSchedule ReferenceType = "schedule"
	RefExhibit  ReferenceType = "exhibit"
	RefAnnex    ReferenceType = "annex"
)

// ReferenceEffect is the legal effect of a cross-reference on its source clause
type ReferenceEffect string

const (
	EffectModifies     ReferenceEffect = "modifies"
	EffectOverrides    ReferenceEffect = "overrides"
	EffectConditions   ReferenceEffect = "conditions"
	EffectIncorporates ReferenceEffect = "incorporates"
	EffectExempts      ReferenceEffect = "exempts"
	EffectDelegates    ReferenceEffect = "delegates"
	EffectDefines      ReferenceEffect = "defines"
	EffectLimits       ReferenceEffect = "limits"
	EffectReferences   ReferenceEffect = "references"
)

// CrossReference is a directed relation from a clause to a target locator
type CrossReference struct {
	ID             string          `json:"id"`
	SourceClauseID string          `json:"source_clause_id"`
	TargetText     string          `json:"target_text"`
	TargetClauseID string          `json:"target_clause_id,omitempty"`
	Type           ReferenceType   `json:"reference_type"`
	Effect         ReferenceEffect `json:"effect"`
	Context        string          `json:"context"`
	Resolved       bool            `json:"resolved"`
	SourceFactID   string          `json:"source_fact_id,omitempty"`
	Start          int             `json:"char_start"`
	End            int             `json:"char_end"`
}

// Validate checks the record invariants
func (r CrossReference) Validate() error {
	if r.ID == "" {
		return invalid("cross-reference: empty id")
	}
	if r.SourceClauseID == "" {
		return invalid("cross-reference %s: empty source clause id", r.ID)
	}
	if r.TargetText == "" {
		return invalid("cross-reference %s: empty target text", r.ID)
	}
	if r.Resolved != (r.TargetClauseID != "") {
		return invalid("cross-reference %s: resolved flag disagrees with target id", r.ID)
	}
	return nil
}
