package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// TextReader parses plain text and Markdown. Blocks are separated by blank
// lines; form feeds start a new page.
type TextReader struct{}

// NewTextReader creates a new text reader
func NewTextReader() *TextReader {
	return &TextReader{}
}

// Name returns the reader name
func (r *TextReader) Name() string {
	return "text"
}

// CanHandle always returns true (fallback reader)
func (r *TextReader) CanHandle(source string, contentType string) bool {
	return true
}

// Read parses content
func (r *TextReader) Read(id string, content []byte) (model.Document, error) {
	return ReadText(id, string(content)), nil
}

var (
	markdownHeadingRe = regexp.MustCompile(`^(#{1,6})\s+`)
	numberedHeadingRe = regexp.MustCompile(`^(?:(?i:section|article|clause)\s+)?(\d{1,3}(?:\.\d{1,3})*)\.?\)?\s+\S`)
	capsHeadingRe     = regexp.MustCompile(`^[A-Z][A-Z0-9 ,&/\-]{2,}$`)
)

// ReadText splits text into paragraphs and marks likely headings. Heading
// heuristics: Markdown '#' lines, short numbered lines without a closing
// period ("4. Termination", "Section 7.1 Liability") and short all-caps lines.
func ReadText(id, text string) model.Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	doc := model.Document{ID: id, Text: text}
	page := 1
	pos := 0

	for pos < len(text) {
		// Skip separators, counting page breaks
		for pos < len(text) && (text[pos] == '\n' || text[pos] == '\f') {
			if text[pos] == '\f' {
				page++
			}
			pos++
		}
		if pos >= len(text) {
			break
		}

		end := strings.Index(text[pos:], "\n\n")
		if ff := strings.IndexByte(text[pos:], '\f'); ff >= 0 && (end < 0 || ff < end) {
			end = ff
		}
		if end < 0 {
			end = len(text)
		} else {
			end += pos
		}

		start, stop := trimRange(text, pos, end)
		if stop > start {
			block := text[start:stop]
			para := model.Paragraph{
				Index: len(doc.Paragraphs),
				Start: start,
				End:   stop,
				Path:  fmt.Sprintf("text/block[%d]", len(doc.Paragraphs)),
			}
			p := page
			para.Page = &p

			if m := markdownHeadingRe.FindStringSubmatch(block); m != nil && !strings.Contains(block, "\n") {
				para.HeadingLevel = len(m[1])
				para.Start += len(m[0])
			} else if level := headingLevel(block); level > 0 {
				para.HeadingLevel = level
			} else if isTableBlock(block) {
				para.IsTable = true
			}

			if para.End > para.Start {
				doc.Paragraphs = append(doc.Paragraphs, para)
			}
		}
		pos = end
	}

	return doc
}

// headingLevel returns the nesting depth of a heading line, or 0
func headingLevel(block string) int {
	if strings.Contains(block, "\n") || len(block) > 100 {
		return 0
	}
	if strings.HasSuffix(block, ".") || strings.HasSuffix(block, ";") || strings.HasSuffix(block, ",") {
		return 0
	}
	if m := numberedHeadingRe.FindStringSubmatch(block); m != nil {
		// Long numbered sentences are body text, not headings
		if len(strings.Fields(block)) > 12 {
			return 0
		}
		return strings.Count(m[1], ".") + 1
	}
	if capsHeadingRe.MatchString(block) {
		return 1
	}
	return 0
}

// isTableBlock reports whether every line is pipe-separated
func isTableBlock(block string) bool {
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		if strings.Count(line, "|") < 1 {
			return false
		}
	}
	return true
}

func trimRange(text string, start, end int) (int, int) {
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
