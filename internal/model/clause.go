package model

import "strings"

// ClauseType is the closed set of clause categories
type ClauseType string

const (
	ClauseTerm                 ClauseType = "TERM"
	ClauseTermination          ClauseType = "TERMINATION"
	ClausePayment              ClauseType = "PAYMENT"
	ClauseConfidentiality      ClauseType = "CONFIDENTIALITY"
	ClauseLiability            ClauseType = "LIABILITY"
	ClauseIndemnification      ClauseType = "INDEMNIFICATION"
	ClauseWarranty             ClauseType = "WARRANTY"
	ClauseIntellectualProperty ClauseType = "INTELLECTUAL_PROPERTY"
	ClauseNonCompete           ClauseType = "NON_COMPETE"
	ClauseDataProtection       ClauseType = "DATA_PROTECTION"
	ClauseGoverningLaw         ClauseType = "GOVERNING_LAW"
	ClauseDisputeResolution    ClauseType = "DISPUTE_RESOLUTION"
	ClauseForceMajeure         ClauseType = "FORCE_MAJEURE"
	ClauseAssignment           ClauseType = "ASSIGNMENT"
	ClauseNotices              ClauseType = "NOTICES"
	ClauseInsurance            ClauseType = "INSURANCE"
	ClauseGeneral              ClauseType = "GENERAL"
)

// ClauseTypes lists every clause type in declaration order
func ClauseTypes() []ClauseType {
	return []ClauseType{
		ClauseTerm, ClauseTermination, ClausePayment, ClauseConfidentiality,
		ClauseLiability, ClauseIndemnification, ClauseWarranty,
		ClauseIntellectualProperty, ClauseNonCompete, ClauseDataProtection,
		ClauseGoverningLaw, ClauseDisputeResolution, ClauseForceMajeure,
		ClauseAssignment, ClauseNotices, ClauseInsurance, ClauseGeneral,
	}
}

// ParseClauseType parses a clause type name, case-insensitively
func ParseClauseType(s string) (ClauseType, bool) {
	up := ClauseType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range ClauseTypes() {
		if t == up {
			return t, true
		}
	}
	return "", false
}

// ClassificationMethod tags how a clause type was decided
type ClassificationMethod string

const (
	MethodRule ClassificationMethod = "rule"
	MethodLLM  ClassificationMethod = "llm"
)

// Clause is a structural unit of legal meaning anchored to a heading.
// Confidence is nil for rule-based classification.
type Clause struct {
	ID                string               `json:"id"`
	DocumentID        string               `json:"document_id"`
	Type              ClauseType           `json:"clause_type"`
	Heading           string               `json:"heading"`
	SectionNumber     string               `json:"section_number,omitempty"`
	HeadingFactID     string               `json:"heading_fact_id"`
	FactIDs           []string             `json:"fact_ids"`
	CrossReferenceIDs []string             `json:"cross_reference_ids"`
	Method            ClassificationMethod `json:"classification_method"`
	Confidence        *float64             `json:"classification_confidence,omitempty"`
	Start             int                  `json:"char_start"`
	End               int                  `json:"char_end"`
}

// Validate checks the record invariants
func (c Clause) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("clause: empty id")
	}
	if strings.TrimSpace(c.DocumentID) == "" {
		return invalid("clause %s: empty document id", c.ID)
	}
	if _, ok := ParseClauseType(string(c.Type)); !ok {
		return invalid("clause %s: unknown type %q", c.ID, c.Type)
	}
	if strings.TrimSpace(c.Heading) == "" {
		return invalid("clause %s: empty heading", c.ID)
	}
	if c.Confidence != nil && !ValidConfidence(*c.Confidence) {
		return invalid("clause %s: confidence %.3f outside [0,1]", c.ID, *c.Confidence)
	}
	if c.Method == MethodRule && c.Confidence != nil {
		return invalid("clause %s: rule classification carries no confidence", c.ID)
	}
	return nil
}

// WithCrossReferences returns a copy of c listing the given reference ids
func (c Clause) WithCrossReferences(ids []string) Clause {
	c.CrossReferenceIDs = append([]string(nil), ids...)
	return c
}
