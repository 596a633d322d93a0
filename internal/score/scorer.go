package score

import (
	"fmt"

	"github.com/ppiankov/covenant/internal/model"
)

// Scorer reduces findings into a risk profile and generates signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate aggregates the findings of an analysis and derives diagnostic
// signals from its clauses, slots and references
func (s *Scorer) Calculate(a model.Analysis) (model.RiskProfile, []model.Signal) {
	return Aggregate(a.Findings), Signals(a)
}

// Aggregate is a pure reduction over findings. The overall level and score
// come from the highest-scoring finding; ties go to the earliest. The input
// slice is not reordered.
func Aggregate(findings []model.Finding) model.RiskProfile {
	profile := model.RiskProfile{
		OverallLevel: model.RiskLow,
		Distribution: make(map[model.RiskLevel]int, 4),
		TierCounts:   make(map[model.NegotiationTier]int, 3),
		FindingCount: len(findings),
	}
	for _, level := range model.RiskLevels() {
		profile.Distribution[level] = 0
	}

	best := -1
	for i, f := range findings {
		profile.Distribution[f.Risk.Level]++
		if f.Redline != nil && f.Redline.Tier != model.TierUnset {
			profile.TierCounts[f.Redline.Tier]++
		}
		if f.NeedsReview {
			profile.ReviewCount++
		}
		if best < 0 || f.Risk.Score > findings[best].Risk.Score {
			best = i
		}
	}

	if best >= 0 {
		profile.OverallScore = findings[best].Risk.Score
		profile.OverallLevel = model.LevelForScore(profile.OverallScore)
		profile.HighestRiskFindingID = findings[best].ID
	}

	return profile
}

// ValidateFindings checks every finding before it is aggregated or stored.
// YELLOW and RED findings that offer a redline must record a tier; fallback
// language is allowed at any tier.
func ValidateFindings(findings []model.Finding) error {
	for _, f := range findings {
		if err := validateFinding(f); err != nil {
			return err
		}
	}
	return nil
}

func validateFinding(f model.Finding) error {
	if f.ID == "" {
		return fmt.Errorf("%w: finding with empty id", model.ErrValidation)
	}
	if f.ClauseID == "" {
		return fmt.Errorf("%w: finding %s has no clause", model.ErrValidation, f.ID)
	}

	switch f.Severity {
	case model.ReviewGreen, model.ReviewYellow, model.ReviewRed:
	default:
		return fmt.Errorf("%w: finding %s has unknown severity %q", model.ErrValidation, f.ID, f.Severity)
	}

	if f.Redline != nil {
		if f.Redline.Text == "" {
			return fmt.Errorf("%w: finding %s has an empty redline", model.ErrValidation, f.ID)
		}
		if f.Severity != model.ReviewGreen && (f.Redline.Tier < model.TierMustHave || f.Redline.Tier > model.TierNice) {
			return fmt.Errorf("%w: finding %s (%s) offers a redline without a tier", model.ErrValidation, f.ID, f.Severity)
		}
	}

	if f.Confidence != nil && !model.ValidConfidence(*f.Confidence) {
		return fmt.Errorf("%w: finding %s confidence %.3f outside [0,1]", model.ErrValidation, f.ID, *f.Confidence)
	}

	want, err := model.NewRiskScore(f.Risk.Severity, f.Risk.Likelihood, "", "")
	if err != nil {
		return fmt.Errorf("finding %s: %w", f.ID, err)
	}
	if f.Risk.Score != want.Score || f.Risk.Level != want.Level {
		return fmt.Errorf("%w: finding %s risk %d/%s does not match %dx%d", model.ErrValidation,
			f.ID, f.Risk.Score, f.Risk.Level, f.Risk.Severity, f.Risk.Likelihood)
	}

	if _, err := model.NewProvenanceChain(f.Provenance.Nodes, f.Provenance.Summary); err != nil {
		return fmt.Errorf("finding %s: %w", f.ID, err)
	}
	return nil
}

// Signals derives transparent completeness signals from an analysis
func Signals(a model.Analysis) []model.Signal {
	if len(a.Clauses) == 0 {
		return []model.Signal{{
			Type:        model.SignalNoClauses,
			Severity:    model.SeverityCritical,
			Description: "No clause headings found",
			Data: map[string]interface{}{
				"facts":   len(a.Facts),
				"clauses": 0,
			},
		}}
	}

	signals := []model.Signal{
		missingFactsSignal(a.Slots),
		partialFactsSignal(a.Slots),
		referencesSignal(a.CrossReferences),
	}

	if sig := lowConfidenceSignal(a.Findings); sig.Type != "" {
		signals = append(signals, sig)
	}
	if sig := judgmentSignal(a.Judgment); sig.Type != "" {
		signals = append(signals, sig)
	}

	return signals
}

// missingFactsSignal reports required slots with no textual evidence
func missingFactsSignal(slots []model.ClauseFactSlot) model.Signal {
	required := 0
	missing := 0
	var names []string
	for _, s := range slots {
		if !s.Required {
			continue
		}
		required++
		if s.Status == model.SlotMissing {
			missing++
			names = append(names, s.FactSpec)
		}
	}

	if required == 0 {
		return model.Signal{
			Type:        model.SignalMissingRequiredFacts,
			Severity:    model.SeverityInfo,
			Description: "No required facts registered for the classified clauses",
			Data:        map[string]interface{}{"required": 0},
		}
	}

	ratio := float64(missing) / float64(required)
	severity := model.SeverityInfo
	if ratio > 0.5 {
		severity = model.SeverityCritical
	} else if missing > 0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalMissingRequiredFacts,
		Severity:    severity,
		Description: fmt.Sprintf("Required facts missing: %d/%d", missing, required),
		Data: map[string]interface{}{
			"required": required,
			"missing":  missing,
			"specs":    names,
			"ratio":    ratio,
			"formula":  "missing_required / required",
		},
	}
}

// partialFactsSignal reports slots backed by text but no linked fact
func partialFactsSignal(slots []model.ClauseFactSlot) model.Signal {
	partial := 0
	filled := 0
	for _, s := range slots {
		switch s.Status {
		case model.SlotPartial:
			partial++
		case model.SlotFilled:
			filled++
		}
	}

	severity := model.SeverityInfo
	if partial > filled {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalPartialFacts,
		Severity:    severity,
		Description: fmt.Sprintf("Slots with evidence but no linked fact: %d (filled: %d)", partial, filled),
		Data: map[string]interface{}{
			"partial": partial,
			"filled":  filled,
			"total":   len(slots),
		},
	}
}

// referencesSignal reports cross-references that point at no known clause
func referencesSignal(refs []model.CrossReference) model.Signal {
	unresolved := 0
	for _, r := range refs {
		if !r.Resolved {
			unresolved++
		}
	}

	severity := model.SeverityInfo
	if unresolved > 0 {
		severity = model.SeverityWarning
	}

	ratio := 0.0
	if len(refs) > 0 {
		ratio = float64(unresolved) / float64(len(refs))
	}

	return model.Signal{
		Type:        model.SignalUnresolvedReferences,
		Severity:    severity,
		Description: fmt.Sprintf("Unresolved cross-references: %d/%d", unresolved, len(refs)),
		Data: map[string]interface{}{
			"unresolved": unresolved,
			"total":      len(refs),
			"ratio":      ratio,
			"formula":    "unresolved / total",
		},
	}
}

// lowConfidenceSignal reports findings below the review threshold
func lowConfidenceSignal(findings []model.Finding) model.Signal {
	review := 0
	for _, f := range findings {
		if f.NeedsReview {
			review++
		}
	}
	if review == 0 {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalLowConfidence,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("Findings needing human review: %d/%d", review, len(findings)),
		Data: map[string]interface{}{
			"needs_review": review,
			"findings":     len(findings),
			"threshold":    model.ReviewThreshold,
		},
	}
}

// judgmentSignal reports judgment requests that produced no result
func judgmentSignal(meta *model.JudgmentMeta) model.Signal {
	if meta == nil || meta.Received >= meta.Requested {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalJudgmentUnavailable,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("Judgment unavailable for %d/%d clauses (try later or escalate)", meta.Requested-meta.Received, meta.Requested),
		Data: map[string]interface{}{
			"provider":  meta.Provider,
			"requested": meta.Requested,
			"received":  meta.Received,
		},
	}
}
