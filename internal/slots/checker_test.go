package slots

import (
	"testing"
	"time"

	"github.com/ppiankov/covenant/internal/model"
)

func slotByName(slots []model.ClauseFactSlot, name string) (model.ClauseFactSlot, bool) {
	for _, s := range slots {
		if s.FactSpec == name {
			return s, true
		}
	}
	return model.ClauseFactSlot{}, false
}

func TestCheck_TerminationPartial(t *testing.T) {
	checker := NewChecker(nil, nil)
	clause := model.Clause{ID: "c-1", Type: model.ClauseTermination}
	text := "Either party may terminate this Agreement on thirty (30) days written notice in the event of material breach or insolvency of the other party."

	slots, err := checker.Check(clause, text, nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 termination slots, got %d", len(slots))
	}

	for _, name := range []string{"notice_period", "termination_reasons"} {
		s, ok := slotByName(slots, name)
		if !ok {
			t.Fatalf("missing slot %s", name)
		}
		if s.Status != model.SlotPartial {
			t.Errorf("%s: status = %s, want partial", name, s.Status)
		}
		if !s.Required {
			t.Errorf("%s: expected required", name)
		}
		if s.FactID != "" {
			t.Errorf("%s: expected no filling fact, got %q", name, s.FactID)
		}
	}

	if s, _ := slotByName(slots, "survival_clauses"); s.Status != model.SlotMissing || s.Required {
		t.Errorf("survival_clauses: expected optional missing, got %+v", s)
	}
}

func TestCheck_TerminationMissingNotice(t *testing.T) {
	checker := NewChecker(nil, nil)
	clause := model.Clause{ID: "c-1", Type: model.ClauseTermination}
	text := "Either party may terminate this Agreement in the event of material breach by the other party."

	slots, err := checker.Check(clause, text, nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if s, _ := slotByName(slots, "notice_period"); s.Status != model.SlotMissing {
		t.Errorf("notice_period: status = %s, want missing", s.Status)
	}
	if s, _ := slotByName(slots, "termination_reasons"); s.Status != model.SlotPartial {
		t.Errorf("termination_reasons: status = %s, want partial", s.Status)
	}
}

func TestCheck_Filled(t *testing.T) {
	checker := NewChecker(nil, nil)
	clause := model.Clause{ID: "c-1", Type: model.ClauseTermination}
	text := "Either party may terminate upon 30 days prior written notice for material breach."

	f, err := model.NewFact("f-7", model.FactKindTextSpan, "", text, model.Evidence{
		DocumentID: "doc-1",
		Span:       text,
		Start:      0,
		End:        len(text),
	}, "sentence:keyword:terminate", time.Now())
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}

	slots, err := checker.Check(clause, text, []model.Fact{f})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	for _, name := range []string{"notice_period", "termination_reasons"} {
		s, _ := slotByName(slots, name)
		if s.Status != model.SlotFilled || s.FactID != "f-7" {
			t.Errorf("%s: expected filled by f-7, got %+v", name, s)
		}
	}
}

func TestCheck_MoneyBacked(t *testing.T) {
	checker := NewChecker(nil, nil)
	clause := model.Clause{ID: "c-2", Type: model.ClauseLiability}

	slots, err := checker.Check(clause, "Total exposure is $500,000 in aggregate.", nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if s, _ := slotByName(slots, "liability_cap"); s.Status != model.SlotPartial {
		t.Errorf("liability_cap: expected money pattern to count as evidence, got %s", s.Status)
	}
	if s, _ := slotByName(slots, "excluded_damages"); s.Status != model.SlotMissing {
		t.Errorf("excluded_damages: expected missing, got %s", s.Status)
	}
}

func TestCheck_UnregisteredType(t *testing.T) {
	checker := NewChecker(nil, nil)

	for _, typ := range []model.ClauseType{model.ClauseGeneral, model.ClauseAssignment} {
		slots, err := checker.Check(model.Clause{ID: "c-1", Type: typ}, "Anything at all.", nil)
		if err != nil {
			t.Fatalf("Check(%s): %v", typ, err)
		}
		if slots == nil || len(slots) != 0 {
			t.Errorf("Check(%s): expected empty non-nil list, got %v", typ, slots)
		}
	}
}

func TestRegistry_SpecsAreCopies(t *testing.T) {
	reg := DefaultRegistry()
	specs := reg.Specs(model.ClauseTermination)
	specs[0].Required = false

	if !reg.Specs(model.ClauseTermination)[0].Required {
		t.Error("expected registry to be unaffected by caller mutation")
	}
}

func TestRegistry_WithPlaybook(t *testing.T) {
	base := DefaultRegistry()
	pb := &model.Playbook{
		Name: "standard",
		Positions: map[model.ClauseType]model.Position{
			model.ClauseTermination: {Standard: "30 days notice", RequiredFacts: []string{"cure_period", "audit_rights"}},
			model.ClauseAssignment:  {Standard: "consent required", RequiredFacts: []string{"consent_requirement"}},
		},
	}

	reg := base.WithPlaybook(pb)

	specs := reg.Specs(model.ClauseTermination)
	if len(specs) != 5 {
		t.Fatalf("expected 5 termination specs, got %d", len(specs))
	}
	for _, s := range specs {
		if s.Name == "cure_period" && !s.Required {
			t.Error("expected cure_period to become required")
		}
	}
	if specs[4].Name != "audit_rights" || specs[4].Keywords[0] != "audit rights" {
		t.Errorf("unexpected appended spec %+v", specs[4])
	}

	if len(reg.Specs(model.ClauseAssignment)) != 1 {
		t.Errorf("expected playbook to register ASSIGNMENT")
	}

	// The base registry stays untouched
	for _, s := range base.Specs(model.ClauseTermination) {
		if s.Name == "cure_period" && s.Required {
			t.Error("expected base registry to be unchanged")
		}
	}
	if len(base.Specs(model.ClauseAssignment)) != 0 {
		t.Error("expected base registry to have no ASSIGNMENT specs")
	}

	slots, err := NewChecker(reg, nil).Check(model.Clause{ID: "c-9", Type: model.ClauseAssignment},
		"Neither party may assign without the prior consent requirement being met.", nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(slots) != 1 || slots[0].Status != model.SlotPartial {
		t.Errorf("unexpected assignment slots %+v", slots)
	}
}

func TestMissingRequired(t *testing.T) {
	slots := []model.ClauseFactSlot{
		{ClauseID: "c-1", FactSpec: "a", Status: model.SlotMissing, Required: true},
		{ClauseID: "c-1", FactSpec: "b", Status: model.SlotMissing, Required: false},
		{ClauseID: "c-1", FactSpec: "c", Status: model.SlotPartial, Required: true},
	}
	got := MissingRequired(slots)
	if len(got) != 1 || got[0].FactSpec != "a" {
		t.Errorf("unexpected missing required %+v", got)
	}
}
