package classify

import (
	"regexp"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// Rule maps a heading expression onto a clause type
type Rule struct {
	Pattern *regexp.Regexp
	Type    model.ClauseType
}

// Classifier assigns clause types to headings with an ordered rule list.
// Rules are evaluated top to bottom and the first match wins, so specific
// categories come before broad ones.
type Classifier struct {
	rules []Rule
	newID model.IDFunc
}

// NewClassifier creates a classifier with the standard rule table
func NewClassifier() *Classifier {
	return &Classifier{
		rules: DefaultRules(),
		newID: model.NewID,
	}
}

// WithIDFunc overrides clause identifier minting
func (c *Classifier) WithIDFunc(fn model.IDFunc) *Classifier {
	c.newID = fn
	return c
}

// DefaultRules returns the standard heading rules in evaluation order
func DefaultRules() []Rule {
	table := []struct {
		expr string
		typ  model.ClauseType
	}{
		{`terminat`, model.ClauseTermination},
		{`payment|fees?\b|compensation|invoic|pricing`, model.ClausePayment},
		{`confidential|non-disclosure|nondisclosure`, model.ClauseConfidentiality},
		{`liabilit`, model.ClauseLiability},
		{`indemn`, model.ClauseIndemnification},
		{`warrant`, model.ClauseWarranty},
		{`intellectual\s+property|\bip\b|copyright|patent|trademark`, model.ClauseIntellectualProperty},
		{`non-?compet|non-?solicit|restrictive\s+covenant`, model.ClauseNonCompete},
		{`data\s+protection|privacy|personal\s+data|gdpr`, model.ClauseDataProtection},
		{`governing\s+law|applicable\s+law|choice\s+of\s+law|jurisdiction`, model.ClauseGoverningLaw},
		{`dispute|arbitration|mediation`, model.ClauseDisputeResolution},
		{`force\s+majeure`, model.ClauseForceMajeure},
		{`assignment|transfer\s+of\s+rights`, model.ClauseAssignment},
		{`notice`, model.ClauseNotices},
		{`insurance`, model.ClauseInsurance},
		{`\bterm\b|duration|commencement`, model.ClauseTerm},
		{`definitions?|interpretation|miscellaneous|general\s+provisions|boilerplate`, model.ClauseGeneral},
	}

	rules := make([]Rule, len(table))
	for i, r := range table {
		rules[i] = Rule{Pattern: regexp.MustCompile(`(?i)` + r.expr), Type: r.typ}
	}
	return rules
}

// ClassifyHeading returns the clause type for a heading. Rule matches report
// a nil confidence: the decision is deterministic, not calibrated.
func (c *Classifier) ClassifyHeading(text string) (model.ClauseType, *float64) {
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(text) {
			return rule.Type, nil
		}
	}
	return model.ClauseGeneral, nil
}

var sectionNumberRe = regexp.MustCompile(`^\s*(?:(?i:section|clause|article)\s+)?(\d{1,3}(?:\.\d{1,3})*)\.?(?:\s|$|\))`)

// ExtractSectionNumber returns a leading dotted numeral such as "3.2.1",
// or "" when the heading is unnumbered
func ExtractSectionNumber(text string) string {
	m := sectionNumberRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ClassifyParagraphs builds one clause per heading paragraph. A clause
// extends from its heading to the next heading (or end of text); facts
// inside that extent are linked to it. Body paragraphs never start clauses.
func (c *Classifier) ClassifyParagraphs(docID, text string, paragraphs []model.Paragraph, facts []model.Fact) ([]model.Clause, error) {
	var headings []model.Paragraph
	for _, p := range paragraphs {
		if p.IsHeading() {
			headings = append(headings, p)
		}
	}

	clauses := make([]model.Clause, 0, len(headings))
	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1].Start
		}

		heading := strings.TrimSpace(h.Text(text))
		if heading == "" {
			continue
		}
		clauseType, confidence := c.ClassifyHeading(heading)

		clause := model.Clause{
			ID:            c.newID("clause"),
			DocumentID:    docID,
			Type:          clauseType,
			Heading:       heading,
			SectionNumber: ExtractSectionNumber(heading),
			Method:        model.MethodRule,
			Confidence:    confidence,
			Start:         h.Start,
			End:           end,
		}

		for _, f := range facts {
			if f.Kind == model.FactKindHeading && f.Evidence.Span == heading && f.Evidence.Start >= h.Start && f.Evidence.End <= h.End {
				clause.HeadingFactID = f.ID
			}
			if f.Evidence.Start >= clause.Start && f.Evidence.End <= clause.End {
				clause.FactIDs = append(clause.FactIDs, f.ID)
			}
		}

		if err := clause.Validate(); err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	return clauses, nil
}

// SectionIndex maps section numbers to clause ids. The first clause wins
// when a number repeats.
func SectionIndex(clauses []model.Clause) map[string]string {
	index := make(map[string]string, len(clauses))
	for _, c := range clauses {
		if c.SectionNumber == "" {
			continue
		}
		if _, ok := index[c.SectionNumber]; !ok {
			index[c.SectionNumber] = c.ID
		}
	}
	return index
}

// ClauseText returns the slice of text a clause covers
func ClauseText(text string, c model.Clause) string {
	if c.Start < 0 || c.End > len(text) || c.Start >= c.End {
		return ""
	}
	return text[c.Start:c.End]
}
