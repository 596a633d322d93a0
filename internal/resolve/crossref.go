package resolve

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
)

// effectRule is one keyword family for reference effects
type effectRule struct {
	effect   model.ReferenceEffect
	keywords []string
}

// effectRules are checked in order against the lowercased context; the
// first family with a hit wins. The order is part of the contract since
// families co-occur ("subject to ... notwithstanding").
var effectRules = []effectRule{
	{model.EffectConditions, []string{"subject to", "provided that", "unless"}},
	{model.EffectOverrides, []string{"notwithstanding", "supersede"}},
	{model.EffectIncorporates, []string{"pursuant to", "in accordance with"}},
	{model.EffectLimits, []string{"except as", "excluding"}},
	{model.EffectDefines, []string{"as defined in"}},
	{model.EffectExempts, []string{"exempt", "shall not apply"}},
	{model.EffectDelegates, []string{"delegate", "on behalf of"}},
	{model.EffectModifies, []string{"amend", "modif"}},
}

// ClassifyEffect returns the effect of a reference given its context
func ClassifyEffect(context string) model.ReferenceEffect {
	lower := strings.ToLower(context)
	for _, rule := range effectRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.effect
			}
		}
	}
	return model.EffectReferences
}

// ClassifyReferenceType reads the locator keyword in the matched text
func ClassifyReferenceType(matched string) model.ReferenceType {
	lower := strings.ToLower(matched)
	switch {
	case strings.Contains(lower, "appendix"):
		return model.RefAppendix
	case strings.Contains(lower, "schedule"):
		return model.RefSchedule
	case strings.Contains(lower, "exhibit"):
		return model.RefExhibit
	case strings.Contains(lower, "annex"):
		return model.RefAnnex
	case strings.Contains(lower, "clause"), strings.Contains(lower, "article"):
		return model.RefClause
	default:
		return model.RefSection
	}
}

// ExtractCrossReferences finds every section reference in text, captures
// window bytes of context on each side and resolves the target against the
// section numbers of known clauses. Offsets are relative to text.
// A zero window captures only the reference itself; a negative window uses
// DefaultContextWindow.
func (r *Resolver) ExtractCrossReferences(text, sourceClauseID string, known []model.Clause, window int) ([]model.CrossReference, error) {
	if window < 0 {
		window = DefaultContextWindow
	}
	index := classify.SectionIndex(known)

	var refs []model.CrossReference
	for _, m := range r.patterns.FindAll(extract.PatternSectionRef, text) {
		context := contextWindow(text, m.Start, m.End, window)

		ref := model.CrossReference{
			ID:             r.newID("xref"),
			SourceClauseID: sourceClauseID,
			TargetText:     m.Text,
			Type:           ClassifyReferenceType(m.Group(0)),
			Effect:         ClassifyEffect(context),
			Context:        context,
			Start:          m.Start,
			End:            m.End,
		}
		if target, ok := index[m.Group(1)]; ok {
			ref.TargetClauseID = target
			ref.Resolved = true
		}

		if err := ref.Validate(); err != nil {
			return nil, fmt.Errorf("cross-reference %q: %w", m.Text, err)
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// ExtractClauseReferences runs ExtractCrossReferences over one clause of a
// document, shifting offsets back into document coordinates and linking
// each reference to the cross_reference fact with the same span
func (r *Resolver) ExtractClauseReferences(docText string, clause model.Clause, known []model.Clause, facts []model.Fact, window int) ([]model.CrossReference, error) {
	refs, err := r.ExtractCrossReferences(classify.ClauseText(docText, clause), clause.ID, known, window)
	if err != nil {
		return nil, err
	}

	for i := range refs {
		refs[i].Start += clause.Start
		refs[i].End += clause.Start
		for _, f := range facts {
			if f.Kind == model.FactKindCrossReference && f.Evidence.Start == refs[i].Start && f.Evidence.End == refs[i].End {
				refs[i].SourceFactID = f.ID
				break
			}
		}
	}
	return refs, nil
}

// contextWindow returns text around [start,end), widened by window bytes on
// each side and clamped so no rune is split
func contextWindow(text string, start, end, window int) string {
	from := start - window
	if from < 0 {
		from = 0
	}
	for from > 0 && from < len(text) && !utf8.RuneStart(text[from]) {
		from++
	}

	to := end + window
	if to > len(text) {
		to = len(text)
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	return text[from:to]
}
