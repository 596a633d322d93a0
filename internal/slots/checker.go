package slots

import (
	"fmt"
	"strings"

	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
)

// Checker evaluates mandatory fact slots for clauses
type Checker struct {
	registry *Registry
	patterns *extract.PatternLibrary
}

// NewChecker creates a checker over an injected registry
func NewChecker(registry *Registry, patterns *extract.PatternLibrary) *Checker {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if patterns == nil {
		patterns = extract.NewPatternLibrary()
	}
	return &Checker{registry: registry, patterns: patterns}
}

// Registry returns the registry in use
func (c *Checker) Registry() *Registry {
	return c.registry
}

// Check returns one slot per registered spec of the clause type, in registry
// order. A spec is found when the clause text contains one of its keywords,
// or, for numeric specs, a duration or money pattern. A found spec is filled
// when one of facts carries a keyword in its value and partial otherwise.
// Unregistered clause types yield an empty list.
func (c *Checker) Check(clause model.Clause, clauseText string, facts []model.Fact) ([]model.ClauseFactSlot, error) {
	specs := c.registry.Specs(clause.Type)
	if len(specs) == 0 {
		return []model.ClauseFactSlot{}, nil
	}

	lower := strings.ToLower(clauseText)
	slots := make([]model.ClauseFactSlot, 0, len(specs))

	for _, spec := range specs {
		status := model.SlotMissing
		factID := ""

		if c.found(spec, lower, clauseText) {
			status = model.SlotPartial
			if id := fillingFact(spec, facts); id != "" {
				status = model.SlotFilled
				factID = id
			}
		}

		slot, err := model.NewClauseFactSlot(clause.ID, spec.Name, status, factID, spec.Required)
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", spec.Name, err)
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

func (c *Checker) found(spec Spec, lower, raw string) bool {
	if containsAny(lower, spec.Keywords) {
		return true
	}
	switch spec.Numeric {
	case NumericDuration:
		return c.patterns.Has(extract.PatternDuration, raw)
	case NumericMoney:
		return c.patterns.Has(extract.PatternMoney, raw)
	}
	return false
}

// fillingFact returns the first fact whose value names one of the keywords
func fillingFact(spec Spec, facts []model.Fact) string {
	for _, f := range facts {
		if containsAny(strings.ToLower(f.Value), spec.Keywords) {
			return f.ID
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// MissingRequired returns the required slots with status missing
func MissingRequired(slots []model.ClauseFactSlot) []model.ClauseFactSlot {
	var out []model.ClauseFactSlot
	for _, s := range slots {
		if s.Required && s.Status == model.SlotMissing {
			out = append(out, s)
		}
	}
	return out
}
