package resolve

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/covenant/internal/model"
)

func sequentialIDs() model.IDFunc {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func binding(t *testing.T, id, term, resolved string) model.Binding {
	t.Helper()
	b, err := model.NewBinding(id, model.BindingAssignment, term, resolved, "", "doc-1", model.ScopeContract)
	if err != nil {
		t.Fatalf("NewBinding: %v", err)
	}
	return b
}

func TestResolveTerm_MultiHop(t *testing.T) {
	bindings := []model.Binding{
		binding(t, "b-1", "Buyer", "Alpha"),
		binding(t, "b-2", "Alpha", "Alpha Inc"),
	}

	if got := ResolveTerm("Buyer", bindings, DefaultMaxDepth); got != "Alpha Inc" {
		t.Errorf("ResolveTerm(Buyer) = %q, want %q", got, "Alpha Inc")
	}
	if got := ResolveTerm("Buyer", bindings, 1); got != "Alpha" {
		t.Errorf("ResolveTerm(Buyer, depth 1) = %q, want %q", got, "Alpha")
	}
	if got := ResolveTerm("Buyer", bindings, 0); got != "Buyer" {
		t.Errorf("ResolveTerm(Buyer, depth 0) = %q, want %q", got, "Buyer")
	}
}

func TestResolveTerm_CaseInsensitive(t *testing.T) {
	bindings := []model.Binding{binding(t, "b-1", "Buyer", "Alpha Inc")}

	for _, term := range []string{"buyer", "BUYER", "  Buyer "} {
		if got := ResolveTerm(term, bindings, DefaultMaxDepth); got != "Alpha Inc" {
			t.Errorf("ResolveTerm(%q) = %q, want %q", term, got, "Alpha Inc")
		}
	}
}

func TestResolveTerm_Cycle(t *testing.T) {
	bindings := []model.Binding{
		binding(t, "b-1", "A", "B"),
		binding(t, "b-2", "B", "A"),
	}

	got := ResolveTerm("A", bindings, DefaultMaxDepth)
	if got != "A" && got != "B" {
		t.Fatalf("ResolveTerm on cycle returned %q, want A or B", got)
	}
	if got != "B" {
		t.Errorf("expected last value before the repeat (B), got %q", got)
	}

	// A huge depth budget must not matter once a cycle is found
	if got := ResolveTerm("A", bindings, 1_000_000); got != "B" {
		t.Errorf("ResolveTerm with large depth = %q, want B", got)
	}
}

func TestResolveTerm_SelfReference(t *testing.T) {
	bindings := []model.Binding{binding(t, "b-1", "Company", "company")}
	if got := ResolveTerm("Company", bindings, DefaultMaxDepth); got != "Company" {
		t.Errorf("self-referential binding resolved to %q", got)
	}
}

func TestResolveTerm_SkipsSuperseded(t *testing.T) {
	old := binding(t, "b-1", "Buyer", "Alpha")
	newer := binding(t, "b-2", "Buyer", "Gamma")
	bindings := Supersede([]model.Binding{old}, newer)

	if len(bindings) != 2 {
		t.Fatalf("expected both bindings kept, got %d", len(bindings))
	}
	if bindings[0].OverriddenBy != "b-2" {
		t.Errorf("expected b-1 overridden by b-2, got %q", bindings[0].OverriddenBy)
	}
	if got := ResolveTerm("Buyer", bindings, DefaultMaxDepth); got != "Gamma" {
		t.Errorf("ResolveTerm = %q, want Gamma", got)
	}
}

func TestResolveTermTrace(t *testing.T) {
	bindings := []model.Binding{
		binding(t, "b-1", "Buyer", "Alpha"),
		binding(t, "b-2", "Alpha", "Alpha Inc"),
	}

	value, path := ResolveTermTrace("Buyer", bindings, DefaultMaxDepth)
	if value != "Alpha Inc" {
		t.Errorf("value = %q", value)
	}
	if len(path) != 2 || path[0].ID != "b-1" || path[1].ID != "b-2" {
		t.Errorf("unexpected path %+v", path)
	}

	_, path = ResolveTermTrace("Seller", bindings, DefaultMaxDepth)
	if len(path) != 0 {
		t.Errorf("expected empty path for unbound term, got %+v", path)
	}
}

func TestResolveBindings_ExistingWins(t *testing.T) {
	text := `"Buyer" means Gamma Holdings. "Services" means the consulting work described herein.`
	existing := []model.Binding{binding(t, "b-0", "buyer", "Alpha Inc")}

	r := NewResolver(nil).WithIDFunc(sequentialIDs())
	bindings, err := r.ResolveBindings(nil, existing, text, "doc-1")
	if err != nil {
		t.Fatalf("ResolveBindings: %v", err)
	}

	if len(bindings) != 2 {
		t.Fatalf("expected existing + Services, got %d: %+v", len(bindings), bindings)
	}
	if bindings[0].ID != "b-0" || bindings[0].ResolvedTo != "Alpha Inc" {
		t.Errorf("expected existing binding first and unchanged, got %+v", bindings[0])
	}
	if bindings[1].Term != "Services" || bindings[1].Kind != model.BindingDefinition {
		t.Errorf("expected new definition for Services, got %+v", bindings[1])
	}
	if got := ResolveTerm("Buyer", bindings, DefaultMaxDepth); got != "Alpha Inc" {
		t.Errorf("expected existing binding to win, got %q", got)
	}
}

func TestResolveBindings_SourceFact(t *testing.T) {
	text := `Intro. "Term" means twelve months.`
	start := 7
	f, err := model.NewFact("f-1", model.FactKindEntity, "defined_term", "Term", model.Evidence{
		DocumentID: "doc-1",
		Span:       text[start:],
		Start:      start,
		End:        len(text),
	}, "test", time.Now())
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}

	bindings, err := NewResolver(nil).ResolveBindings([]model.Fact{f}, nil, text, "doc-1")
	if err != nil {
		t.Fatalf("ResolveBindings: %v", err)
	}
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
	if bindings[0].SourceFactID != "f-1" {
		t.Errorf("expected source fact f-1, got %q", bindings[0].SourceFactID)
	}
	if bindings[0].ResolvedTo != "twelve months" {
		t.Errorf("unexpected resolved value %q", bindings[0].ResolvedTo)
	}
}

func TestResolveBindings_Deterministic(t *testing.T) {
	text := `"Affiliate" means any controlled entity. "Effective Date" means the date of signature.`

	r := NewResolver(nil)
	first, err := r.ResolveBindings(nil, nil, text, "doc-1")
	if err != nil {
		t.Fatalf("ResolveBindings: %v", err)
	}
	second, err := r.ResolveBindings(nil, nil, text, "doc-1")
	if err != nil {
		t.Fatalf("ResolveBindings: %v", err)
	}
	if len(first) != len(second) || len(first) != 2 {
		t.Fatalf("binding counts differ or unexpected: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Term != second[i].Term || first[i].ResolvedTo != second[i].ResolvedTo {
			t.Errorf("binding %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectAliases(t *testing.T) {
	text := `This Agreement is between Alpha Inc (the "Buyer") and Beta LLC (hereinafter "Seller").`

	bindings, err := NewResolver(nil).WithIDFunc(sequentialIDs()).DetectAliases(text, "doc-1", nil)
	if err != nil {
		t.Fatalf("DetectAliases: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 aliases, got %d: %+v", len(bindings), bindings)
	}
	if bindings[0].Term != "Buyer" || bindings[0].ResolvedTo != "Alpha Inc" {
		t.Errorf("unexpected first alias %+v", bindings[0])
	}
	if bindings[1].Term != "Seller" || bindings[1].ResolvedTo != "Beta LLC" {
		t.Errorf("unexpected second alias %+v", bindings[1])
	}
	for _, b := range bindings {
		if b.Kind != model.BindingAssignment {
			t.Errorf("expected assignment kind, got %s", b.Kind)
		}
	}
}

func TestDetectAliases_LaterSupersedes(t *testing.T) {
	text := `Alpha Inc (the "Buyer") signs first; subsequently Gamma Corp (the "Buyer") assumes the role. Alpha Inc (the "Buyer") is named again.`

	bindings, err := NewResolver(nil).WithIDFunc(sequentialIDs()).DetectAliases(text, "doc-1", nil)
	if err != nil {
		t.Fatalf("DetectAliases: %v", err)
	}
	if len(bindings) != 3 {
		t.Fatalf("expected 3 bindings (none deleted), got %d: %+v", len(bindings), bindings)
	}

	active := 0
	for _, b := range bindings {
		if b.Active() {
			active++
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active Buyer binding, got %d", active)
	}
	if got := ResolveTerm("Buyer", bindings, DefaultMaxDepth); got != "Alpha Inc" {
		t.Errorf("expected latest alias to win, got %q", got)
	}
}

func TestExtractCrossReferences_Effects(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		text   string
		effect model.ReferenceEffect
	}{
		{"Notwithstanding Section 7.1, the vendor is exempt.", model.EffectOverrides},
		{"Fees are payable in accordance with Section 3.2.", model.EffectIncorporates},
		{"See Section 2", model.EffectReferences},
		{"Subject to Section 9, notwithstanding anything else.", model.EffectConditions},
		{"Except as set out in Clause 4, no liability arises.", model.EffectLimits},
		{"Capitalised terms are as defined in Schedule 1.", model.EffectDefines},
		{"The obligations in Section 5 shall not apply to Affiliates.", model.EffectExempts},
		{"The Agent acts on behalf of the Buyer under Section 6.", model.EffectDelegates},
		{"Section 8 as amended by the Side Letter.", model.EffectModifies},
	}

	for _, tt := range tests {
		refs, err := r.ExtractCrossReferences(tt.text, "c-001", nil, DefaultContextWindow)
		if err != nil {
			t.Fatalf("ExtractCrossReferences(%q): %v", tt.text, err)
		}
		if len(refs) == 0 {
			t.Errorf("%q: expected at least one reference", tt.text)
			continue
		}
		if refs[0].Effect != tt.effect {
			t.Errorf("%q: effect = %s, want %s", tt.text, refs[0].Effect, tt.effect)
		}
		if refs[0].SourceClauseID != "c-001" {
			t.Errorf("%q: source clause = %q", tt.text, refs[0].SourceClauseID)
		}
	}
}

func TestExtractCrossReferences_TypesAndResolution(t *testing.T) {
	text := "Refer to Section 7.1, Article 3, Appendix A, Schedule 2, Exhibit B and Annex C."
	known := []model.Clause{
		{ID: "c-7", SectionNumber: "7.1"},
		{ID: "c-3", SectionNumber: "3"},
	}

	refs, err := NewResolver(nil).ExtractCrossReferences(text, "c-001", known, 20)
	if err != nil {
		t.Fatalf("ExtractCrossReferences: %v", err)
	}

	want := []model.ReferenceType{model.RefSection, model.RefClause, model.RefAppendix, model.RefSchedule, model.RefExhibit, model.RefAnnex}
	if len(refs) != len(want) {
		t.Fatalf("expected %d references, got %d", len(want), len(refs))
	}
	ids := make(map[string]bool)
	for i, ref := range refs {
		if ref.Type != want[i] {
			t.Errorf("ref %d (%s): type = %s, want %s", i, ref.TargetText, ref.Type, want[i])
		}
		if text[ref.Start:ref.End] != ref.TargetText {
			t.Errorf("ref %d: span does not reproduce %q", i, ref.TargetText)
		}
		if ids[ref.ID] {
			t.Errorf("duplicate reference id %s", ref.ID)
		}
		ids[ref.ID] = true
	}

	if !refs[0].Resolved || refs[0].TargetClauseID != "c-7" {
		t.Errorf("expected Section 7.1 to resolve to c-7, got %+v", refs[0])
	}
	if !refs[1].Resolved || refs[1].TargetClauseID != "c-3" {
		t.Errorf("expected Article 3 to resolve to c-3, got %+v", refs[1])
	}
	if refs[2].Resolved || refs[2].TargetClauseID != "" {
		t.Errorf("expected Appendix A to stay unresolved, got %+v", refs[2])
	}
}

func TestExtractClauseReferences_DocumentOffsets(t *testing.T) {
	text := "1. Scope\n\nWork as described.\n\n2. Fees\n\nPayable pursuant to Section 1."
	clause := model.Clause{ID: "c-2", Start: 30, End: len(text), SectionNumber: "2"}
	known := []model.Clause{{ID: "c-1", SectionNumber: "1"}, clause}

	refs, err := NewResolver(nil).ExtractClauseReferences(text, clause, known, nil, -1)
	if err != nil {
		t.Fatalf("ExtractClauseReferences: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 reference, got %d", len(refs))
	}
	if text[refs[0].Start:refs[0].End] != "Section 1" {
		t.Errorf("expected document offsets to reproduce 'Section 1', got %q", text[refs[0].Start:refs[0].End])
	}
	if refs[0].TargetClauseID != "c-1" || refs[0].Effect != model.EffectIncorporates {
		t.Errorf("unexpected reference %+v", refs[0])
	}
}

func TestExtractCrossReferences_WindowWidth(t *testing.T) {
	text := "Notwithstanding Section 7.1, the vendor is exempt."
	r := NewResolver(nil)

	zero, err := r.ExtractCrossReferences(text, "c-001", nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(zero) != 1 || zero[0].Context != zero[0].TargetText {
		t.Fatalf("zero window: got %+v, want context of the reference only", zero)
	}
	if zero[0].Effect != model.EffectReferences {
		t.Errorf("zero window effect = %s, want %s", zero[0].Effect, model.EffectReferences)
	}

	def, err := r.ExtractCrossReferences(text, "c-001", nil, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(def) != 1 || def[0].Context != text || def[0].Effect != model.EffectOverrides {
		t.Errorf("negative window: got %+v, want default window", def)
	}
}

func TestContextWindow_RuneBoundaries(t *testing.T) {
	text := "€€€ Section 4 ééé"
	start := len("€€€ ")
	end := start + len("Section 4")

	for window := 1; window <= 8; window++ {
		got := contextWindow(text, start, end, window)
		if !utf8.ValidString(got) {
			t.Errorf("window %d split a rune: %q", window, got)
		}
		if !strings.Contains(got, "Section 4") {
			t.Errorf("window %d lost the reference: %q", window, got)
		}
	}
}
