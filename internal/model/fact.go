package model

import (
	"fmt"
	"strings"
	"time"
)

// FactKind classifies the nature of an extracted fact
type FactKind string

const (
	FactKindTextSpan       FactKind = "text_span"
	FactKindEntity         FactKind = "entity"
	FactKindClause         FactKind = "clause"
	FactKindTableCell      FactKind = "table_cell"
	FactKindHeading        FactKind = "heading"
	FactKindMetadata       FactKind = "metadata"
	FactKindStructural     FactKind = "structural"
	FactKindCrossReference FactKind = "cross_reference"
	FactKindClauseText     FactKind = "clause_text"
)

// Valid reports whether k is one of the known fact kinds
func (k FactKind) Valid() bool {
	switch k {
	case FactKindTextSpan, FactKindEntity, FactKindClause, FactKindTableCell,
		FactKindHeading, FactKindMetadata, FactKindStructural,
		FactKindCrossReference, FactKindClauseText:
		return true
	}
	return false
}

// Evidence anchors a fact to a verbatim span of a document.
// Start and End are byte offsets into the document's full text, half-open.
type Evidence struct {
	DocumentID string `json:"document_id"`
	Span       string `json:"span"`
	Start      int    `json:"char_start"`
	End        int    `json:"char_end"`
	Location   string `json:"location,omitempty"` // Human hint, e.g. "Section 4, paragraph 2"
	Path       string `json:"path,omitempty"`     // Structural path from the parser
	Page       *int   `json:"page,omitempty"`
}

// Validate checks the structural invariants of the evidence
func (e Evidence) Validate() error {
	if strings.TrimSpace(e.DocumentID) == "" {
		return invalid("evidence: empty document id")
	}
	if e.Start < 0 {
		return invalid("evidence: negative char_start %d", e.Start)
	}
	if e.End <= e.Start {
		return invalid("evidence: char_end %d must be greater than char_start %d", e.End, e.Start)
	}
	if e.Span == "" {
		return invalid("evidence: empty span")
	}
	return nil
}

// Verify checks that text[Start:End] reproduces the recorded span exactly
func (e Evidence) Verify(text string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.End > len(text) {
		return invalid("evidence: char_end %d beyond text length %d", e.End, len(text))
	}
	if text[e.Start:e.End] != e.Span {
		return invalid("evidence: span mismatch at [%d,%d)", e.Start, e.End)
	}
	return nil
}

// Fact is a ground-truth claim extracted from document text. Facts are
// created once and never mutated; they are the leaves of every provenance chain.
type Fact struct {
	ID          string    `json:"id"`
	Kind        FactKind  `json:"kind"`
	EntityType  string    `json:"entity_type,omitempty"`
	Value       string    `json:"value"`
	Evidence    Evidence  `json:"evidence"`
	Method      string    `json:"extraction_method"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// NewFact validates and builds a Fact
func NewFact(id string, kind FactKind, entityType, value string, ev Evidence, method string, at time.Time) (Fact, error) {
	f := Fact{
		ID:          id,
		Kind:        kind,
		EntityType:  entityType,
		Value:       value,
		Evidence:    ev,
		Method:      method,
		ExtractedAt: at,
	}
	if err := f.Validate(); err != nil {
		return Fact{}, err
	}
	return f, nil
}

// Validate checks the record invariants
func (f Fact) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return invalid("fact: empty id")
	}
	if !f.Kind.Valid() {
		return invalid("fact %s: unknown kind %q", f.ID, f.Kind)
	}
	if f.Kind == FactKindEntity && strings.TrimSpace(f.EntityType) == "" {
		return invalid("fact %s: entity fact requires an entity type", f.ID)
	}
	if strings.TrimSpace(f.Value) == "" {
		return invalid("fact %s: empty value", f.ID)
	}
	if strings.TrimSpace(f.Method) == "" {
		return invalid("fact %s: empty extraction method", f.ID)
	}
	if err := f.Evidence.Validate(); err != nil {
		return fmt.Errorf("fact %s: %w", f.ID, err)
	}
	return nil
}

// Covers reports whether the fact's evidence range contains [start,end)
func (f Fact) Covers(start, end int) bool {
	return f.Evidence.Start <= start && end <= f.Evidence.End
}
