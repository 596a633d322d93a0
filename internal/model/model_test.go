package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

func testEvidence(text string, start, end int) Evidence {
	return Evidence{
		DocumentID: "doc-1",
		Span:       text[start:end],
		Start:      start,
		End:        end,
		Path:       "body/p[0]",
	}
}

func TestNewFact_Valid(t *testing.T) {
	text := "The Supplier shall deliver within 30 days."
	ev := testEvidence(text, 34, 41)

	f, err := NewFact("f-1", FactKindTextSpan, "", "30 days", ev, "pattern:duration", time.Now())
	if err != nil {
		t.Fatalf("expected valid fact, got %v", err)
	}
	if err := f.Evidence.Verify(text); err != nil {
		t.Errorf("expected span to verify, got %v", err)
	}
	if text[f.Evidence.Start:f.Evidence.End] != f.Evidence.Span {
		t.Errorf("span mismatch: %q", f.Evidence.Span)
	}
}

func TestNewFact_EntityRequiresSubtype(t *testing.T) {
	text := "Alpha Inc (the \"Buyer\")"
	ev := testEvidence(text, 0, 9)

	_, err := NewFact("f-1", FactKindEntity, "", "Alpha Inc", ev, "pattern:alias", time.Now())
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	if _, err := NewFact("f-1", FactKindEntity, "party", "Alpha Inc", ev, "pattern:alias", time.Now()); err != nil {
		t.Errorf("expected entity fact with subtype to be valid, got %v", err)
	}
}

func TestNewFact_RejectsEmptyRange(t *testing.T) {
	ev := Evidence{DocumentID: "doc-1", Span: "x", Start: 5, End: 5}
	if _, err := NewFact("f-1", FactKindTextSpan, "", "x", ev, "test", time.Now()); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for end == start, got %v", err)
	}

	ev = Evidence{DocumentID: "doc-1", Span: "x", Start: 6, End: 5}
	if _, err := NewFact("f-1", FactKindTextSpan, "", "x", ev, "test", time.Now()); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for end < start, got %v", err)
	}
}

func TestNewFact_RejectsUnknownKind(t *testing.T) {
	ev := Evidence{DocumentID: "doc-1", Span: "x", Start: 0, End: 1}
	if _, err := NewFact("f-1", FactKind("opinion"), "", "x", ev, "test", time.Now()); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown kind, got %v", err)
	}
}

func TestEvidence_VerifyMismatch(t *testing.T) {
	text := "Payment is due in 45 days."
	ev := Evidence{DocumentID: "doc-1", Span: "30 days", Start: 18, End: 25}
	if err := ev.Verify(text); !errors.Is(err, ErrValidation) {
		t.Errorf("expected span mismatch to fail, got %v", err)
	}

	ev = Evidence{DocumentID: "doc-1", Span: "days.", Start: 21, End: 99}
	if err := ev.Verify(text); !errors.Is(err, ErrValidation) {
		t.Errorf("expected out-of-range end to fail, got %v", err)
	}
}

func TestNewRiskScore_Levels(t *testing.T) {
	tests := []struct {
		severity   int
		likelihood int
		score      int
		level      RiskLevel
	}{
		{1, 1, 1, RiskLow},
		{2, 2, 4, RiskLow},
		{5, 1, 5, RiskMedium},
		{3, 3, 9, RiskMedium},
		{5, 2, 10, RiskHigh},
		{3, 5, 15, RiskHigh},
		{4, 4, 16, RiskCritical},
		{5, 5, 25, RiskCritical},
	}

	for _, tt := range tests {
		rs, err := NewRiskScore(tt.severity, tt.likelihood, "", "")
		if err != nil {
			t.Fatalf("NewRiskScore(%d,%d): %v", tt.severity, tt.likelihood, err)
		}
		if rs.Score != tt.score {
			t.Errorf("NewRiskScore(%d,%d).Score = %d, want %d", tt.severity, tt.likelihood, rs.Score, tt.score)
		}
		if rs.Level != tt.level {
			t.Errorf("NewRiskScore(%d,%d).Level = %s, want %s", tt.severity, tt.likelihood, rs.Level, tt.level)
		}
	}
}

func TestNewRiskScore_OutOfRange(t *testing.T) {
	for _, in := range [][2]int{{0, 1}, {1, 0}, {6, 1}, {1, 6}, {-1, 3}} {
		if _, err := NewRiskScore(in[0], in[1], "", ""); !errors.Is(err, ErrValidation) {
			t.Errorf("NewRiskScore(%d,%d): expected ErrValidation, got %v", in[0], in[1], err)
		}
	}
}

func TestLevelForScore_Boundaries(t *testing.T) {
	if got := LevelForScore(9); got != RiskMedium {
		t.Errorf("score 9: got %s, want medium", got)
	}
	if got := LevelForScore(10); got != RiskHigh {
		t.Errorf("score 10: got %s, want high", got)
	}
	if got := LevelForScore(4); got != RiskLow {
		t.Errorf("score 4: got %s, want low", got)
	}
	if got := LevelForScore(15); got != RiskHigh {
		t.Errorf("score 15: got %s, want high", got)
	}
}

func TestLabelConfidence(t *testing.T) {
	tests := []struct {
		value float64
		label string
		color string
	}{
		{0.0, "speculative", "red"},
		{0.39, "speculative", "red"},
		{0.40, "low", "orange"},
		{0.59, "low", "orange"},
		{0.60, "moderate", "yellow"},
		{0.80, "high", "green"},
		{0.949, "high", "green"},
		{0.95, "very_high", "blue"},
		{1.0, "very_high", "blue"},
	}

	for _, tt := range tests {
		v := tt.value
		got, err := LabelConfidence(&v)
		if err != nil {
			t.Fatalf("LabelConfidence(%.3f): %v", v, err)
		}
		if got.Label != tt.label || got.Color != tt.color {
			t.Errorf("LabelConfidence(%.3f) = %s/%s, want %s/%s", v, got.Label, got.Color, tt.label, tt.color)
		}
	}
}

func TestLabelConfidence_NilAndOutOfRange(t *testing.T) {
	got, err := LabelConfidence(nil)
	if err != nil {
		t.Fatalf("nil confidence: %v", err)
	}
	if got.Label != "unknown" || got.Color != "gray" || got.Value != 0.0 {
		t.Errorf("nil confidence mapped to %+v", got)
	}

	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1), math.Inf(-1)} {
		v := v
		if _, err := LabelConfidence(&v); !errors.Is(err, ErrValidation) {
			t.Errorf("LabelConfidence(%.2f): expected ErrValidation, got %v", v, err)
		}
		if !NeedsReview(&v) {
			t.Errorf("NeedsReview(%.2f) = false, want true", v)
		}
	}
}

func TestClauseValidate_Confidence(t *testing.T) {
	base := Clause{ID: "c-1", DocumentID: "doc-1", Type: ClauseTermination, Heading: "4. Termination", Method: MethodLLM}

	ok := 0.7
	base.Confidence = &ok
	if err := base.Validate(); err != nil {
		t.Errorf("confidence 0.7: %v", err)
	}

	for _, v := range []float64{math.NaN(), 1.2} {
		v := v
		c := base
		c.Confidence = &v
		if err := c.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("confidence %v: expected ErrValidation, got %v", v, err)
		}
	}
}

func TestNewProvenanceChain(t *testing.T) {
	if _, err := NewProvenanceChain(nil, "summary"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected empty chain to be rejected, got %v", err)
	}

	nodes := []ProvenanceNode{{Kind: NodeReasoning, Summary: "rule-based classification"}}
	chain, err := NewProvenanceChain(nodes, "Heading matched termination rule")
	if err != nil {
		t.Fatalf("expected single reasoning node to be accepted, got %v", err)
	}
	if len(chain.Nodes) != 1 {
		t.Errorf("expected 1 node, got %d", len(chain.Nodes))
	}

	if _, err := NewProvenanceChain(nodes, "  "); !errors.Is(err, ErrValidation) {
		t.Errorf("expected blank summary to be rejected, got %v", err)
	}
}

func TestNewClauseFactSlot_FilledNeedsFact(t *testing.T) {
	if _, err := NewClauseFactSlot("c-1", "notice_period", SlotFilled, "", true); !errors.Is(err, ErrValidation) {
		t.Errorf("expected filled slot without fact to be rejected, got %v", err)
	}
	if _, err := NewClauseFactSlot("c-1", "notice_period", SlotFilled, "f-1", true); err != nil {
		t.Errorf("expected filled slot with fact to be valid, got %v", err)
	}
	if _, err := NewClauseFactSlot("c-1", "notice_period", SlotPartial, "", true); err != nil {
		t.Errorf("expected partial slot without fact to be valid, got %v", err)
	}
}

func TestBinding_Supersede(t *testing.T) {
	old, err := NewBinding("b-1", BindingAssignment, "Buyer", "Alpha", "", "doc-1", ScopeContract)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	newer, err := NewBinding("b-2", BindingDefinition, "Buyer", "Alpha Inc", "", "doc-1", ScopeContract)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}

	superseded := old.Supersede(newer)
	if superseded.Active() {
		t.Error("expected superseded binding to be inactive")
	}
	if superseded.OverriddenBy != "b-2" {
		t.Errorf("expected override pointer b-2, got %q", superseded.OverriddenBy)
	}
	if !old.Active() {
		t.Error("expected original binding value to be unchanged")
	}
}

func TestDocument_VersionStable(t *testing.T) {
	a := Document{ID: "a", Text: "same text"}
	b := Document{ID: "b", Text: "same text"}
	c := Document{ID: "a", Text: "other text"}

	if a.Version() != b.Version() {
		t.Error("expected identical text to share a version")
	}
	if a.Version() == c.Version() {
		t.Error("expected different text to have different versions")
	}
}
