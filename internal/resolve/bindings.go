package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
)

// DefaultMaxDepth bounds the number of hops ResolveTerm follows
const DefaultMaxDepth = 10

// DefaultContextWindow is the number of bytes captured on each side of a
// cross-reference
const DefaultContextWindow = 100

// Resolver turns pattern matches into bindings and cross-references
type Resolver struct {
	patterns *extract.PatternLibrary
	newID    model.IDFunc
}

// NewResolver creates a resolver over a shared pattern library
func NewResolver(patterns *extract.PatternLibrary) *Resolver {
	if patterns == nil {
		patterns = extract.NewPatternLibrary()
	}
	return &Resolver{
		patterns: patterns,
		newID:    model.NewID,
	}
}

// WithIDFunc overrides identifier minting
func (r *Resolver) WithIDFunc(fn model.IDFunc) *Resolver {
	r.newID = fn
	return r
}

// foldKey normalizes a term for comparison. Callers create one Caser per
// call since Casers carry state.
func foldKey(c cases.Caser, term string) string {
	return c.String(strings.Join(strings.Fields(term), " "))
}

// ResolveBindings scans text for quoted-term definitions and merges them
// with existing bindings. A term that is already bound keeps its existing
// binding; restated definitions are dropped. Existing bindings come first in
// the result, followed by new ones in text order.
func (r *Resolver) ResolveBindings(facts []model.Fact, existing []model.Binding, text, docID string) ([]model.Binding, error) {
	fold := cases.Fold()

	bound := make(map[string]bool, len(existing))
	out := make([]model.Binding, 0, len(existing))
	for _, b := range existing {
		if b.Active() {
			bound[foldKey(fold, b.Term)] = true
		}
		out = append(out, b)
	}

	for _, m := range r.patterns.FindAll(extract.PatternDefinition, text) {
		term := strings.TrimSpace(m.Group(0))
		meaning := strings.TrimSpace(m.Group(1))
		if term == "" || meaning == "" {
			continue
		}
		key := foldKey(fold, term)
		if bound[key] {
			continue
		}

		b, err := model.NewBinding(r.newID("binding"), model.BindingDefinition, term, meaning,
			coveringFact(facts, m.Start), docID, model.ScopeContract)
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", term, err)
		}
		bound[key] = true
		out = append(out, b)
	}

	return out, nil
}

// ResolveTerm follows bindings from term until no binding applies, the depth
// budget is spent, or the chain revisits a term. On a cycle it returns the
// last value reached before the repeat. maxDepth <= 0 returns term unchanged.
func ResolveTerm(term string, bindings []model.Binding, maxDepth int) string {
	value, _ := ResolveTermTrace(term, bindings, maxDepth)
	return value
}

// ResolveTermTrace is ResolveTerm that also returns the bindings applied,
// in hop order
func ResolveTermTrace(term string, bindings []model.Binding, maxDepth int) (string, []model.Binding) {
	fold := cases.Fold()

	// First active binding per term wins
	index := make(map[string]model.Binding, len(bindings))
	for _, b := range bindings {
		if !b.Active() {
			continue
		}
		key := foldKey(fold, b.Term)
		if _, ok := index[key]; !ok {
			index[key] = b
		}
	}

	current := strings.TrimSpace(term)
	visited := map[string]bool{foldKey(fold, current): true}
	var path []model.Binding

	for hop := 0; hop < maxDepth; hop++ {
		b, ok := index[foldKey(fold, current)]
		if !ok {
			break
		}
		nextKey := foldKey(fold, b.ResolvedTo)
		if visited[nextKey] {
			break
		}
		visited[nextKey] = true
		path = append(path, b)
		current = b.ResolvedTo
	}

	return current, path
}

// Supersede returns a copy of bindings in which every active binding for
// newer's term is overridden by newer, with newer appended when absent.
// Nothing is removed.
func Supersede(bindings []model.Binding, newer model.Binding) []model.Binding {
	fold := cases.Fold()
	key := foldKey(fold, newer.Term)

	out := make([]model.Binding, 0, len(bindings)+1)
	present := false
	for _, b := range bindings {
		switch {
		case b.ID == newer.ID:
			present = true
		case b.Active() && foldKey(fold, b.Term) == key:
			b = b.Supersede(newer)
		}
		out = append(out, b)
	}
	if !present {
		out = append(out, newer)
	}
	return out
}

// coveringFact returns the id of the narrowest fact whose evidence covers
// offset, or "" when none does
func coveringFact(facts []model.Fact, offset int) string {
	best := ""
	bestLen := -1
	for _, f := range facts {
		if f.Evidence.Start <= offset && offset < f.Evidence.End {
			n := f.Evidence.End - f.Evidence.Start
			if bestLen < 0 || n < bestLen {
				best = f.ID
				bestLen = n
			}
		}
	}
	return best
}
