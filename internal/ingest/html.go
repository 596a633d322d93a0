package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/covenant/internal/model"
)

// HTMLReader parses HTML contracts. Headings (h1-h6), paragraphs, list
// items and table rows become blocks; blocks are joined by blank lines to
// form the document text.
type HTMLReader struct{}

// NewHTMLReader creates a new HTML reader
func NewHTMLReader() *HTMLReader {
	return &HTMLReader{}
}

// Name returns the reader name
func (r *HTMLReader) Name() string {
	return "html"
}

// CanHandle checks for HTML content types or file extensions
func (r *HTMLReader) CanHandle(source string, contentType string) bool {
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		return true
	}
	lower := strings.ToLower(source)
	return strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm")
}

// Read parses content
func (r *HTMLReader) Read(id string, content []byte) (model.Document, error) {
	return ReadHTML(id, content)
}

type htmlBlock struct {
	text    string
	path    string
	heading int
	table   bool
}

// skipped elements never contribute text
var skippedElements = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "noscript": true, "template": true, "head": true,
}

// ReadHTML parses HTML into a Document
func ReadHTML(id string, content []byte) (model.Document, error) {
	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return model.Document{}, fmt.Errorf("parse HTML: %w", err)
	}

	var blocks []htmlBlock
	counts := make(map[string]int)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}

			switch n.Data {
			case "h1", "h2", "h3", "h4", "h5", "h6":
				blocks = appendBlock(blocks, counts, n.Data, extractText(n), int(n.Data[1]-'0'), false)
				return
			case "p", "li", "blockquote", "dt", "dd":
				blocks = appendBlock(blocks, counts, n.Data, extractText(n), 0, false)
				return
			case "tr":
				var cells []string
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
						cells = append(cells, extractText(c))
					}
				}
				blocks = appendBlock(blocks, counts, n.Data, strings.Join(cells, " | "), 0, true)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var buf strings.Builder
	doc := model.Document{ID: id}
	for _, b := range blocks {
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		start := buf.Len()
		buf.WriteString(b.text)
		doc.Paragraphs = append(doc.Paragraphs, model.Paragraph{
			Index:        len(doc.Paragraphs),
			Start:        start,
			End:          buf.Len(),
			Path:         b.path,
			HeadingLevel: b.heading,
			IsTable:      b.table,
		})
	}
	doc.Text = buf.String()

	return doc, nil
}

func appendBlock(blocks []htmlBlock, counts map[string]int, tag, text string, heading int, table bool) []htmlBlock {
	text = strings.TrimSpace(text)
	if text == "" {
		return blocks
	}
	path := fmt.Sprintf("html/%s[%d]", tag, counts[tag])
	counts[tag]++
	return append(blocks, htmlBlock{text: text, path: path, heading: heading, table: table})
}

// extractText returns the visible text of a node with whitespace collapsed
func extractText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && skippedElements[node.Data] {
			return
		}
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
			return
		}
		if node.Type == html.ElementNode && node.Data == "br" {
			buf.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
