package resolve

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
)

// DetectAliases emits an assignment binding for every party alias
// ("Alpha Inc (the "Buyer")", "Beta LLC, hereinafter "Seller""). The alias is
// the bound term and the entity is its referent. A repeated alias naming a
// different entity supersedes the earlier binding.
func (r *Resolver) DetectAliases(text, docID string, facts []model.Fact) ([]model.Binding, error) {
	fold := cases.Fold()

	var out []model.Binding
	latest := make(map[string]model.Binding)

	for _, m := range r.patterns.FindAll(extract.PatternAlias, text) {
		entity := strings.TrimSpace(m.Group(0))
		alias := strings.TrimSpace(m.Group(1))
		if entity == "" || alias == "" {
			continue
		}

		key := foldKey(fold, alias)
		if prev, ok := latest[key]; ok && foldKey(fold, prev.ResolvedTo) == foldKey(fold, entity) {
			continue
		}

		b, err := model.NewBinding(r.newID("binding"), model.BindingAssignment, alias, entity,
			coveringFact(facts, m.Start), docID, model.ScopeContract)
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", alias, err)
		}

		if _, ok := latest[key]; ok {
			out = Supersede(out, b)
		} else {
			out = append(out, b)
		}
		latest[key] = b
	}

	return out, nil
}
