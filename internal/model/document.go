package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Paragraph is one block produced by the parsing collaborator.
// Start and End are byte offsets into Document.Text, half-open.
type Paragraph struct {
	Index        int    `json:"index"`
	Start        int    `json:"char_start"`
	End          int    `json:"char_end"`
	Path         string `json:"path"`
	HeadingLevel int    `json:"heading_level,omitempty"` // 0 for body paragraphs
	Page         *int   `json:"page,omitempty"`
	IsTable      bool   `json:"is_table,omitempty"`
}

// IsHeading reports whether the paragraph is a clause boundary
func (p Paragraph) IsHeading() bool {
	return p.HeadingLevel > 0
}

// Text returns the paragraph's slice of the full text
func (p Paragraph) Text(full string) string {
	return full[p.Start:p.End]
}

// Document is a parsed contract: full text plus ordered paragraphs
type Document struct {
	ID         string      `json:"id"`
	Source     string      `json:"source,omitempty"`
	Text       string      `json:"text"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Version identifies the document content; identical text yields the same version
func (d Document) Version() string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:])[:16]
}
