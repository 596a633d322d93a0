package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// Reader turns raw document bytes into a parsed Document
type Reader interface {
	// Name returns the reader name
	Name() string

	// CanHandle checks if this reader understands the source/content type
	CanHandle(source string, contentType string) bool

	// Read parses content into full text plus ordered paragraphs
	Read(id string, content []byte) (model.Document, error)
}

// Registry manages document readers
type Registry struct {
	readers  []Reader
	fallback Reader
}

// NewRegistry creates a registry with the built-in readers. Plain text is
// the fallback.
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(NewHTMLReader())
	registry.fallback = NewTextReader()
	return registry
}

// Register registers a new reader ahead of the fallback
func (r *Registry) Register(reader Reader) {
	r.readers = append(r.readers, reader)
}

// FindReader finds the first reader for the source and content type
func (r *Registry) FindReader(source string, contentType string) Reader {
	for _, reader := range r.readers {
		if reader.CanHandle(source, contentType) {
			return reader
		}
	}
	return r.fallback
}

// Read parses content with the matching reader and records the source
func (r *Registry) Read(id, source, contentType string, content []byte) (model.Document, error) {
	reader := r.FindReader(source, contentType)
	doc, err := reader.Read(id, content)
	if err != nil {
		return model.Document{}, fmt.Errorf("%s reader: %w", reader.Name(), err)
	}
	doc.Source = source
	return doc, nil
}

// ReadFile reads a local document. The document id is the file name
// without extension.
func (r *Registry) ReadFile(path string) (model.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return r.Read(DocumentID(path), path, "", content)
}

// DocumentID derives a stable id from a path or URL
func DocumentID(source string) string {
	base := filepath.Base(strings.TrimRight(source, "/"))
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '-'
		default:
			return -1
		}
	}, base)
	if base == "" {
		return "document"
	}
	return base
}
