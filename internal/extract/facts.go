package extract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/model"
)

// Entity subtypes minted by the extractor
const (
	EntityDefinedTerm = "defined_term"
	EntityParty       = "party"
)

// FactExtractor mints Facts from a parsed document. Extraction is
// deterministic: identical input yields identical fact values in identical
// order; only identifiers and timestamps differ between runs.
type FactExtractor struct {
	patterns *PatternLibrary
	keywords []string
	newID    model.IDFunc
	now      func() time.Time
}

// NewFactExtractor creates a new fact extractor
func NewFactExtractor(patterns *PatternLibrary) *FactExtractor {
	if patterns == nil {
		patterns = NewPatternLibrary()
	}
	return &FactExtractor{
		patterns: patterns,
		keywords: []string{
			"shall", "must", "is required", "will not", "may not",
			"agrees to", "undertakes", "is entitled", "is liable",
			"terminate", "notice", "warrants", "indemnify",
		},
		newID: model.NewID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithIDFunc overrides identifier minting
func (e *FactExtractor) WithIDFunc(fn model.IDFunc) *FactExtractor {
	e.newID = fn
	return e
}

// Extract mints facts for headings, table cells, obligation sentences and
// pattern matches. Facts are ordered by evidence start offset.
func (e *FactExtractor) Extract(doc model.Document) ([]model.Fact, error) {
	at := e.now()
	var facts []model.Fact
	seen := make(map[string]bool)

	add := func(kind model.FactKind, entityType, value string, start, end int, method string) error {
		start, end = trimSpan(doc.Text, start, end)
		if end <= start {
			return nil
		}
		key := fmt.Sprintf("%s:%d:%d", kind, start, end)
		if seen[key] {
			return nil
		}
		seen[key] = true

		para := paragraphAt(doc.Paragraphs, start)
		ev := model.Evidence{
			DocumentID: doc.ID,
			Span:       doc.Text[start:end],
			Start:      start,
			End:        end,
		}
		if para != nil {
			ev.Path = para.Path
			ev.Page = para.Page
			ev.Location = fmt.Sprintf("paragraph %d", para.Index+1)
		}

		fact, err := model.NewFact(e.newID("fact"), kind, entityType, strings.TrimSpace(value), ev, method, at)
		if err != nil {
			return fmt.Errorf("mint %s fact at [%d,%d): %w", kind, start, end, err)
		}
		facts = append(facts, fact)
		return nil
	}

	for _, p := range doc.Paragraphs {
		text := p.Text(doc.Text)
		switch {
		case p.IsHeading():
			if err := add(model.FactKindHeading, "", text, p.Start, p.End, "structure:heading"); err != nil {
				return nil, err
			}
		case p.IsTable:
			if err := add(model.FactKindTableCell, "", text, p.Start, p.End, "structure:table"); err != nil {
				return nil, err
			}
		default:
			for _, s := range splitSentenceSpans(text) {
				sentence := text[s[0]:s[1]]
				lower := strings.ToLower(sentence)
				for _, keyword := range e.keywords {
					if strings.Contains(lower, keyword) {
						if err := add(model.FactKindTextSpan, "", sentence, p.Start+s[0], p.Start+s[1], "sentence:keyword:"+keyword); err != nil {
							return nil, err
						}
						break // Only match once per sentence
					}
				}
			}
		}
	}

	for _, m := range e.patterns.ExtractPatterns(doc.Text) {
		var err error
		method := "pattern:" + m.Pattern
		switch m.Pattern {
		case PatternDefinition:
			err = add(model.FactKindEntity, EntityDefinedTerm, m.Group(0), m.Start, m.End, method)
		case PatternAlias:
			err = add(model.FactKindEntity, EntityParty, m.Group(0), m.Start, m.End, method)
		case PatternSectionRef:
			err = add(model.FactKindCrossReference, "", m.Text, m.Start, m.End, method)
		default:
			err = add(model.FactKindTextSpan, "", m.Text, m.Start, m.End, method)
		}
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Evidence.Start < facts[j].Evidence.Start
	})

	return facts, nil
}

// paragraphAt returns the paragraph containing offset, or nil
func paragraphAt(paragraphs []model.Paragraph, offset int) *model.Paragraph {
	for i := range paragraphs {
		if paragraphs[i].Start <= offset && offset < paragraphs[i].End {
			return &paragraphs[i]
		}
	}
	return nil
}

// trimSpan shrinks [start,end) to exclude surrounding whitespace
func trimSpan(text string, start, end int) (int, int) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// splitSentenceSpans splits text into sentence ranges (simple heuristic).
// Fragments shorter than 20 bytes are dropped.
func splitSentenceSpans(text string) [][2]int {
	var spans [][2]int
	start := 0

	emit := func(end int) {
		s, e := trimSpan(text, start, end)
		if e-s >= 20 {
			spans = append(spans, [2]int{s, e})
		}
		start = end
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' && c != ';' {
			continue
		}
		// Look ahead to avoid splitting on abbreviations and section numbers
		if i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t' || text[i+1] == '\n') {
			emit(i + 1)
		}
	}
	if start < len(text) {
		emit(len(text))
	}

	return spans
}
