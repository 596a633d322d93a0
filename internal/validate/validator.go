package validate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/covenant/internal/model"
)

// Issue is one record that failed validation
type Issue struct {
	Record string `json:"record"` // fact, binding, clause, cross_reference, slot, finding
	ID     string `json:"id"`
	Error  string `json:"error"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Record, i.ID, i.Error)
}

// Validator checks an analysis against its source text before it is cached
// or persisted. Fact spans are verified concurrently; the remaining
// referential checks are cheap and run inline.
type Validator struct {
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Validator{maxWorkers: maxWorkers}
}

// Validate returns every issue found in the analysis. An empty result means
// the analysis is internally consistent and grounded in text.
func (v *Validator) Validate(ctx context.Context, a model.Analysis, text string) ([]Issue, error) {
	issues, err := v.verifyFacts(ctx, a.Facts, text)
	if err != nil {
		return nil, err
	}
	issues = append(issues, checkReferences(a)...)
	return issues, nil
}

// verifyFacts re-slices every fact span out of text
func (v *Validator) verifyFacts(ctx context.Context, facts []model.Fact, text string) ([]Issue, error) {
	if len(facts) == 0 {
		return nil, nil
	}

	results := make([]error, len(facts))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent checks
	semaphore := make(chan struct{}, v.maxWorkers)

	for i := range facts {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, fmt.Errorf("verify facts: %w", ctx.Err())
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			f := facts[idx]
			if err := f.Validate(); err != nil {
				results[idx] = err
				return
			}
			results[idx] = f.Evidence.Verify(text)
		}(i)
	}

	wg.Wait()

	var issues []Issue
	for i, err := range results {
		if err != nil {
			issues = append(issues, Issue{Record: "fact", ID: facts[i].ID, Error: err.Error()})
		}
	}
	return issues, nil
}

// checkReferences validates each record and the ids that link records
func checkReferences(a model.Analysis) []Issue {
	var issues []Issue
	add := func(record, id string, err error) {
		if err != nil {
			issues = append(issues, Issue{Record: record, ID: id, Error: err.Error()})
		}
	}

	facts := make(map[string]bool, len(a.Facts))
	for _, f := range a.Facts {
		facts[f.ID] = true
	}

	bindings := make(map[string]bool, len(a.Bindings))
	for _, b := range a.Bindings {
		bindings[b.ID] = true
	}
	for _, b := range a.Bindings {
		add("binding", b.ID, b.Validate())
		if b.SourceFactID != "" && !facts[b.SourceFactID] {
			add("binding", b.ID, fmt.Errorf("unknown source fact %s", b.SourceFactID))
		}
		if b.OverriddenBy != "" && !bindings[b.OverriddenBy] {
			add("binding", b.ID, fmt.Errorf("overridden by unknown binding %s", b.OverriddenBy))
		}
	}

	clauses := make(map[string]bool, len(a.Clauses))
	for _, c := range a.Clauses {
		clauses[c.ID] = true
	}
	for _, c := range a.Clauses {
		add("clause", c.ID, c.Validate())
		if c.HeadingFactID != "" && !facts[c.HeadingFactID] {
			add("clause", c.ID, fmt.Errorf("unknown heading fact %s", c.HeadingFactID))
		}
		for _, id := range c.FactIDs {
			if !facts[id] {
				add("clause", c.ID, fmt.Errorf("unknown contained fact %s", id))
			}
		}
	}

	for _, r := range a.CrossReferences {
		add("cross_reference", r.ID, r.Validate())
		if !clauses[r.SourceClauseID] {
			add("cross_reference", r.ID, fmt.Errorf("unknown source clause %s", r.SourceClauseID))
		}
		if r.Resolved && !clauses[r.TargetClauseID] {
			add("cross_reference", r.ID, fmt.Errorf("unknown target clause %s", r.TargetClauseID))
		}
	}

	for _, s := range a.Slots {
		id := s.ClauseID + "/" + s.FactSpec
		add("slot", id, s.Validate())
		if !clauses[s.ClauseID] {
			add("slot", id, fmt.Errorf("unknown clause %s", s.ClauseID))
		}
		if s.FactID != "" && !facts[s.FactID] {
			add("slot", id, fmt.Errorf("unknown filling fact %s", s.FactID))
		}
	}

	for _, f := range a.Findings {
		if !clauses[f.ClauseID] {
			add("finding", f.ID, fmt.Errorf("unknown clause %s", f.ClauseID))
		}
	}

	return issues
}

// Check validates an analysis with a default validator
func Check(ctx context.Context, a model.Analysis, text string) error {
	return NewValidator(0).Check(ctx, a, text)
}

// Check validates an analysis and folds issues into one error wrapping
// model.ErrValidation
func (v *Validator) Check(ctx context.Context, a model.Analysis, text string) error {
	issues, err := v.Validate(ctx, a, text)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		return nil
	}

	errs := make([]error, len(issues))
	for i, issue := range issues {
		errs[i] = errors.New(issue.String())
	}
	return fmt.Errorf("%w: %d invalid records: %w", model.ErrValidation, len(issues), errors.Join(errs...))
}
