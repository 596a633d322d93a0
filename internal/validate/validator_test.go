package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/covenant/internal/model"
)

const sampleText = "4. Termination\n\nEither party may terminate on 30 days notice."

func validAnalysis(t *testing.T) model.Analysis {
	t.Helper()

	heading, err := model.NewFact("f-1", model.FactKindHeading, "", "4. Termination", model.Evidence{
		DocumentID: "doc-1", Span: "4. Termination", Start: 0, End: 14,
	}, "structure:heading", time.Now())
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}
	duration, err := model.NewFact("f-2", model.FactKindTextSpan, "", "30 days", model.Evidence{
		DocumentID: "doc-1", Span: "30 days", Start: 46, End: 53,
	}, "pattern:duration", time.Now())
	if err != nil {
		t.Fatalf("NewFact: %v", err)
	}

	return model.Analysis{
		DocumentID: "doc-1",
		Facts:      []model.Fact{heading, duration},
		Clauses: []model.Clause{{
			ID: "c-1", DocumentID: "doc-1", Type: model.ClauseTermination, Heading: "4. Termination",
			HeadingFactID: "f-1", FactIDs: []string{"f-1", "f-2"}, Method: model.MethodRule,
			Start: 0, End: len(sampleText),
		}},
		Slots: []model.ClauseFactSlot{
			{ClauseID: "c-1", FactSpec: "notice_period", Status: model.SlotPartial, Required: true},
		},
	}
}

func TestValidator_Valid(t *testing.T) {
	a := validAnalysis(t)

	issues, err := NewValidator(2).Validate(context.Background(), a, sampleText)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if err := Check(context.Background(), a, sampleText); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestValidator_SpanDrift(t *testing.T) {
	a := validAnalysis(t)

	// Same facts against edited text
	edited := strings.Replace(sampleText, "30 days", "45 days", 1)

	issues, err := NewValidator(2).Validate(context.Background(), a, edited)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(issues) != 1 || issues[0].Record != "fact" || issues[0].ID != "f-2" {
		t.Errorf("expected one fact issue for f-2, got %v", issues)
	}

	if err := Check(context.Background(), a, edited); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation from Check, got %v", err)
	}
}

func TestValidator_DanglingIDs(t *testing.T) {
	a := validAnalysis(t)
	a.Clauses[0].FactIDs = append(a.Clauses[0].FactIDs, "f-404")
	a.Slots = append(a.Slots, model.ClauseFactSlot{ClauseID: "c-9", FactSpec: "cure_period", Status: model.SlotMissing})
	a.CrossReferences = []model.CrossReference{{
		ID: "x-1", SourceClauseID: "c-1", TargetText: "Section 9", TargetClauseID: "c-9", Resolved: true,
	}}
	a.Findings = []model.Finding{{ID: "fd-1", ClauseID: "c-missing"}}

	issues, err := NewValidator(0).Validate(context.Background(), a, sampleText)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	records := make(map[string]int)
	for _, issue := range issues {
		records[issue.Record]++
	}
	for _, record := range []string{"clause", "slot", "cross_reference", "finding"} {
		if records[record] == 0 {
			t.Errorf("expected an issue for %s, got %v", record, issues)
		}
	}
}

func TestValidator_ContextCancellation(t *testing.T) {
	a := validAnalysis(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// With one worker the second fact must wait for the semaphore or see
	// the cancelled context
	_, err := NewValidator(1).Validate(ctx, a, sampleText)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewValidator_DefaultWorkers(t *testing.T) {
	v := NewValidator(0)
	if v.maxWorkers != 8 {
		t.Errorf("expected default of 8 workers, got %d", v.maxWorkers)
	}
}
