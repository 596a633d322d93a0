package extract

import (
	"regexp"
	"sort"
)

// Pattern names. Downstream code selects matchers by these names.
const (
	PatternDefinition = "definition"
	PatternAlias      = "alias"
	PatternSectionRef = "section_ref"
	PatternDuration   = "duration"
	PatternMoney      = "money"
	PatternDate       = "date"
	PatternPercentage = "percentage"
)

// Match is one occurrence of a pattern in a text.
// Start and End are byte offsets, half-open.
type Match struct {
	Pattern string   `json:"pattern"`
	Text    string   `json:"text"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Groups  []string `json:"groups,omitempty"` // Capture groups, pattern-specific
}

// Matcher finds every non-overlapping occurrence of one pattern family
type Matcher struct {
	name     string
	patterns []*regexp.Regexp
}

// Name returns the matcher name
func (m *Matcher) Name() string {
	return m.name
}

// FindAll returns non-overlapping matches ordered by start offset.
// When alternative expressions overlap, the earliest (then longest) wins.
func (m *Matcher) FindAll(text string) []Match {
	var all []Match
	for _, re := range m.patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			match := Match{
				Pattern: m.name,
				Text:    text[loc[0]:loc[1]],
				Start:   loc[0],
				End:     loc[1],
			}
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					match.Groups = append(match.Groups, "")
					continue
				}
				match.Groups = append(match.Groups, text[loc[g]:loc[g+1]])
			}
			all = append(all, match)
		}
	}

	if len(m.patterns) == 1 {
		return all
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End > all[j].End
	})

	var out []Match
	lastEnd := -1
	for _, match := range all {
		if match.Start < lastEnd {
			continue
		}
		out = append(out, match)
		lastEnd = match.End
	}
	return out
}

// Group returns capture group i, or "" when absent
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

// PatternLibrary is the read-only set of text matchers. Build it once with
// NewPatternLibrary and share it.
type PatternLibrary struct {
	matchers []*Matcher
	byName   map[string]*Matcher
}

const (
	quoteOpen  = `["“]`
	quoteClose = `["”]`
	quoted     = `[^"“”]`

	// A run of capitalized words such as `Alpha Widgets, Inc.`
	entityName = `[A-Z][A-Za-z0-9&.'\-]*(?:,?\s+[A-Z][A-Za-z0-9&.'\-]*){0,6}`

	numberWords = `\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|fifteen|twenty|thirty|forty[- ]five|forty|sixty|ninety`
	months      = `January|February|March|April|May|June|July|August|September|October|November|December`
)

// NewPatternLibrary compiles the standard matchers
func NewPatternLibrary() *PatternLibrary {
	lib := &PatternLibrary{byName: make(map[string]*Matcher)}

	// "Term" shall mean / means / refers to <meaning>
	lib.add(PatternDefinition,
		quoteOpen+`(`+quoted+`{1,80})`+quoteClose+`\s+(?i:shall\s+mean|means|shall\s+refer\s+to|refers\s+to)\s+([^.;]+)`,
	)

	// Alpha Inc (the "Buyer"), Alpha Inc (hereinafter "Buyer"),
	// Alpha Inc, hereinafter referred to as the "Buyer"
	lib.add(PatternAlias,
		`(`+entityName+`)\s*\(\s*(?:(?i:hereinafter|hereafter)\s+(?:(?i:referred\s+to\s+as|called)\s+)?)?(?:(?i:the)\s+)?`+quoteOpen+`(`+quoted+`{1,60})`+quoteClose+`\s*\)`,
		`(`+entityName+`),?\s+(?i:hereinafter|hereafter)\s+(?:(?i:referred\s+to\s+as|called)\s+)?(?:(?i:the)\s+)?`+quoteOpen+`(`+quoted+`{1,60})`+quoteClose,
	)

	// Section 3.2, Clause 7, Appendix A, Schedule II, § 4.1
	lib.add(PatternSectionRef,
		`\b((?i:section|clause|article|appendix|schedule|exhibit|annex))\s+(\d+(?:\.\d+)*|[A-Z]\b|[IVXLC]+\b)`,
		`(§{1,2})\s*(\d+(?:\.\d+)*)`,
	)

	// thirty (30) days, 12 months, 5 business days
	lib.add(PatternDuration,
		`(?i)\b(`+numberWords+`)\s*(?:\(\d+\)\s*)?(business\s+days?|calendar\s+days?|days?|weeks?|months?|years?)\b`,
	)

	// $1,000,000, € 250.00, USD 50,000, GBP 2 million
	lib.add(PatternMoney,
		`([$€£¥])\s?(\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand))?)`,
		`\b(USD|EUR|GBP|JPY|CHF|CAD|AUD)\s?(\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand))?)`,
	)

	// January 1, 2025 / 1st January 2025 / 01/31/2025 / 2025-01-31
	lib.add(PatternDate,
		`\b(?:`+months+`)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`,
		`\b\d{1,2}(?:st|nd|rd|th)?\s+(?:`+months+`),?\s+\d{4}\b`,
		`\b\d{1,2}/\d{1,2}/\d{2,4}\b`,
		`\b\d{4}-\d{2}-\d{2}\b`,
	)

	// 5%, 1.5 percent, 10 per cent
	lib.add(PatternPercentage,
		`\b(\d+(?:\.\d+)?)\s?(?:%|(?i:percent|per\s+cent)\b)`,
	)

	return lib
}

func (l *PatternLibrary) add(name string, exprs ...string) {
	m := &Matcher{name: name}
	for _, expr := range exprs {
		m.patterns = append(m.patterns, regexp.MustCompile(expr))
	}
	l.matchers = append(l.matchers, m)
	l.byName[name] = m
}

// Matcher returns the matcher with the given name, or nil
func (l *PatternLibrary) Matcher(name string) *Matcher {
	return l.byName[name]
}

// Names returns matcher names in library order
func (l *PatternLibrary) Names() []string {
	names := make([]string, len(l.matchers))
	for i, m := range l.matchers {
		names[i] = m.name
	}
	return names
}

// FindAll runs a single named matcher; unknown names yield no matches
func (l *PatternLibrary) FindAll(name, text string) []Match {
	m := l.byName[name]
	if m == nil {
		return nil
	}
	return m.FindAll(text)
}

// Has reports whether the named matcher occurs anywhere in text
func (l *PatternLibrary) Has(name, text string) bool {
	m := l.byName[name]
	if m == nil {
		return false
	}
	for _, re := range m.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractPatterns runs every matcher over text and returns all matches
// sorted by start offset. Ties keep library order. Downstream iteration
// relies on this ordering.
func (l *PatternLibrary) ExtractPatterns(text string) []Match {
	var all []Match
	for _, m := range l.matchers {
		all = append(all, m.FindAll(text)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start < all[j].Start
	})
	return all
}
