package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/provenance"
	"github.com/ppiankov/covenant/internal/resolve"
	"github.com/ppiankov/covenant/internal/slots"
)

// review compares every clause that has a playbook position against that
// position. Clauses without a position, or runs without a reviewer, yield no
// findings. Provider failures become warnings, never errors.
func (p *Pipeline) review(ctx context.Context, doc model.Document, a *model.Analysis) ([]model.Finding, *model.JudgmentMeta, error) {
	findings := []model.Finding{}
	if !p.reviewer.IsEnabled() || p.playbook == nil {
		return findings, nil, nil
	}

	meta := &model.JudgmentMeta{
		Provider: p.reviewer.ProviderName(),
		Model:    p.reviewer.Model(),
	}

	for _, c := range a.Clauses {
		position, ok := p.playbook.Position(c.Type)
		if !ok {
			continue
		}
		meta.Requested++

		clauseText := classify.ClauseText(doc.Text, c)
		clauseSlots := a.SlotsFor(c.ID)
		req := llm.JudgeRequest{
			ClauseID:     c.ID,
			ClauseType:   c.Type,
			Heading:      c.Heading,
			ClauseText:   clauseText,
			Position:     position,
			MissingFacts: missingSpecs(clauseSlots),
		}

		outcome := p.reviewer.Review(ctx, req)
		if outcome.NoResult {
			meta.Warnings = append(meta.Warnings, outcome.Warning)
			fmt.Fprintf(os.Stderr, "Warning: %s\n", outcome.Warning)
			continue
		}

		finding, err := p.buildFinding(c, clauseText, clauseSlots, a, outcome.Judgment)
		if err != nil {
			return nil, nil, fmt.Errorf("finding for clause %s: %w", c.ID, err)
		}
		findings = append(findings, finding)
		meta.Received++
	}

	return findings, meta, nil
}

// buildFinding turns a judgment into a finding whose provenance runs from
// the clause heading and its slot facts through applied bindings to the
// playbook position and the judgment itself
func (p *Pipeline) buildFinding(c model.Clause, clauseText string, clauseSlots []model.ClauseFactSlot, a *model.Analysis, j *llm.Judgment) (model.Finding, error) {
	risk, err := model.NewRiskScore(j.RiskSeverity, j.Likelihood, j.SeverityRationale, j.LikelihoodRationale)
	if err != nil {
		return model.Finding{}, err
	}

	id := p.newID("finding")
	confidence := j.Confidence

	finding := model.Finding{
		ID:          id,
		ClauseID:    c.ID,
		ClauseType:  c.Type,
		Severity:    j.Severity,
		Deviation:   j.Deviation,
		Judgment:    j.Judgment,
		Confidence:  &confidence,
		NeedsReview: model.NeedsReview(&confidence),
		Risk:        risk,
	}

	if j.Redline != nil {
		tier := model.NegotiationTier(j.Redline.Tier)
		if tier < model.TierMustHave || tier > model.TierNice {
			// Providers that omit a tier get the middle one
			tier = model.TierShould
			if j.Severity == model.ReviewGreen {
				tier = model.TierUnset
			}
		}
		finding.Redline = &model.Redline{
			Text:     j.Redline.Text,
			Tier:     tier,
			Fallback: j.Redline.Fallback,
		}
	}

	chain, err := p.findingProvenance(c, clauseText, clauseSlots, a, j)
	if err != nil {
		return model.Finding{}, err
	}
	finding.Provenance = chain
	return finding, nil
}

func (p *Pipeline) findingProvenance(c model.Clause, clauseText string, clauseSlots []model.ClauseFactSlot, a *model.Analysis, j *llm.Judgment) (model.ProvenanceChain, error) {
	facts := make(map[string]model.Fact, len(a.Facts))
	for _, f := range a.Facts {
		facts[f.ID] = f
	}

	b := provenance.NewBuilder()
	if f, ok := facts[c.HeadingFactID]; ok {
		b.Fact(f)
	}
	for _, s := range clauseSlots {
		if f, ok := facts[s.FactID]; ok && s.Status == model.SlotFilled {
			b.Fact(f)
		}
	}

	lower := strings.ToLower(clauseText)
	seen := make(map[string]bool)
	for _, bd := range a.Bindings {
		if !bd.Active() || seen[bd.ID] || !strings.Contains(lower, strings.ToLower(bd.Term)) {
			continue
		}
		_, path := resolve.ResolveTermTrace(bd.Term, a.Bindings, p.config.Engine.MaxBindingDepth)
		for _, hop := range path {
			if !seen[hop.ID] {
				seen[hop.ID] = true
				b.Binding(hop)
			}
		}
	}

	if missing := missingSpecs(clauseSlots); len(missing) > 0 {
		b.Reasoning(fmt.Sprintf("Required facts missing: %s", strings.Join(missing, ", ")))
	}

	b.External(p.playbook.Name, fmt.Sprintf("%s standard: %s", c.Type, truncateText(p.playbookStandard(c.Type), 160)))
	b.Inference(c.ID, j.Judgment)

	summary := fmt.Sprintf("%s (%s): %s", j.Severity, j.Severity.Action(), j.Judgment)
	if j.Deviation != "" {
		summary = fmt.Sprintf("%s (%s): %s", j.Severity, j.Severity.Action(), j.Deviation)
	}
	return b.Build(summary)
}

func (p *Pipeline) playbookStandard(t model.ClauseType) string {
	position, _ := p.playbook.Position(t)
	if position.Standard == "" {
		return "(none)"
	}
	return position.Standard
}

// missingSpecs lists the required slots with no evidence
func missingSpecs(clauseSlots []model.ClauseFactSlot) []string {
	missing := slots.MissingRequired(clauseSlots)
	names := make([]string, len(missing))
	for i, s := range missing {
		names[i] = s.FactSpec
	}
	return names
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
