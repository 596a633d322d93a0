package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadText_Blocks(t *testing.T) {
	text := "MASTER SERVICES AGREEMENT\r\n\r\n1. Definitions\n\n\"Services\" means the work.\n\n## 2. Payment\n\nFees are due.\fPage two text\n\n| Item | Fee |\n| A | $10 |"
	doc := ReadText("msa", text)

	want := []struct {
		text    string
		heading int
		table   bool
		page    int
	}{
		{"MASTER SERVICES AGREEMENT", 1, false, 1},
		{"1. Definitions", 1, false, 1},
		{"\"Services\" means the work.", 0, false, 1},
		{"2. Payment", 2, false, 1},
		{"Fees are due.", 0, false, 1},
		{"Page two text", 0, false, 2},
		{"| Item | Fee |\n| A | $10 |", 0, true, 2},
	}

	if strings.Contains(doc.Text, "\r") {
		t.Error("Expected CRLF to be normalized")
	}
	if len(doc.Paragraphs) != len(want) {
		t.Fatalf("Expected %d paragraphs, got %d", len(want), len(doc.Paragraphs))
	}
	for i, w := range want {
		p := doc.Paragraphs[i]
		if got := doc.Text[p.Start:p.End]; got != w.text {
			t.Errorf("paragraph %d text = %q, want %q", i, got, w.text)
		}
		if p.Index != i {
			t.Errorf("paragraph %d index = %d", i, p.Index)
		}
		if p.HeadingLevel != w.heading {
			t.Errorf("paragraph %d heading = %d, want %d", i, p.HeadingLevel, w.heading)
		}
		if p.IsTable != w.table {
			t.Errorf("paragraph %d table = %v, want %v", i, p.IsTable, w.table)
		}
		if p.Page == nil || *p.Page != w.page {
			t.Errorf("paragraph %d page = %v, want %d", i, p.Page, w.page)
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		block string
		want  int
	}{
		{"4. Termination", 1},
		{"7.2 Limitation of Liability", 2},
		{"Section 9.1.3 Notices", 3},
		{"ARTICLE V", 1},
		{"GOVERNING LAW", 1},
		{"1. The Supplier shall deliver the goods.", 0},
		{"Payment is due within 30 days", 0},
		{"2. The parties agree that the following terms apply to every order placed under this agreement", 0},
		{"Termination\ncontinued", 0},
	}
	for _, tt := range tests {
		t.Run(tt.block, func(t *testing.T) {
			if got := headingLevel(tt.block); got != tt.want {
				t.Errorf("headingLevel(%q) = %d, want %d", tt.block, got, tt.want)
			}
		})
	}
}

func TestReadText_Empty(t *testing.T) {
	doc := ReadText("empty", "\n\n\f\n")
	if len(doc.Paragraphs) != 0 {
		t.Errorf("Expected no paragraphs, got %d", len(doc.Paragraphs))
	}
}

func TestReadHTML(t *testing.T) {
	content := `<html><head><title>Ignored</title></head><body>
<nav>menu</nav>
<h1>Services Agreement</h1>
<p>This Agreement is between Alpha Inc (the <b>"Buyer"</b>) and Beta.</p>
<h2>4. Termination</h2>
<ul><li>Either party may terminate.</li></ul>
<table><tr><th>Item</th><th>Fee</th></tr><tr><td>Support</td><td>$1,000</td></tr></table>
<script>var x = 1;</script>
</body></html>`

	doc, err := ReadHTML("sa", []byte(content))
	if err != nil {
		t.Fatalf("ReadHTML: %v", err)
	}

	want := []struct {
		text    string
		path    string
		heading int
		table   bool
	}{
		{"Services Agreement", "html/h1[0]", 1, false},
		{`This Agreement is between Alpha Inc (the "Buyer") and Beta.`, "html/p[0]", 0, false},
		{"4. Termination", "html/h2[0]", 2, false},
		{"Either party may terminate.", "html/li[0]", 0, false},
		{"Item | Fee", "html/tr[0]", 0, true},
		{"Support | $1,000", "html/tr[1]", 0, true},
	}
	if len(doc.Paragraphs) != len(want) {
		t.Fatalf("Expected %d paragraphs, got %d: %q", len(want), len(doc.Paragraphs), doc.Text)
	}
	for i, w := range want {
		p := doc.Paragraphs[i]
		if got := doc.Text[p.Start:p.End]; got != w.text {
			t.Errorf("paragraph %d text = %q, want %q", i, got, w.text)
		}
		if p.Path != w.path {
			t.Errorf("paragraph %d path = %q, want %q", i, p.Path, w.path)
		}
		if p.HeadingLevel != w.heading || p.IsTable != w.table {
			t.Errorf("paragraph %d heading/table = %d/%v", i, p.HeadingLevel, p.IsTable)
		}
	}
	if strings.Contains(doc.Text, "menu") || strings.Contains(doc.Text, "var x") {
		t.Errorf("Expected nav and script to be skipped: %q", doc.Text)
	}
}

func TestRegistry_FindReader(t *testing.T) {
	registry := NewRegistry()
	tests := []struct {
		source      string
		contentType string
		want        string
	}{
		{"contract.html", "", "html"},
		{"https://example.com/msa", "text/html; charset=utf-8", "html"},
		{"contract.txt", "", "text"},
		{"contract.md", "text/markdown", "text"},
	}
	for _, tt := range tests {
		if got := registry.FindReader(tt.source, tt.contentType).Name(); got != tt.want {
			t.Errorf("FindReader(%q, %q) = %s, want %s", tt.source, tt.contentType, got, tt.want)
		}
	}
}

func TestRegistry_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Master Services.txt")
	if err := os.WriteFile(path, []byte("1. Term\n\nThis Agreement lasts 12 months."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewRegistry().ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if doc.ID != "master-services" {
		t.Errorf("ID = %q", doc.ID)
	}
	if doc.Source != path {
		t.Errorf("Source = %q", doc.Source)
	}
	if len(doc.Paragraphs) != 2 || doc.Paragraphs[0].HeadingLevel != 1 {
		t.Errorf("Unexpected paragraphs: %+v", doc.Paragraphs)
	}

	if _, err := NewRegistry().ReadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDocumentID(t *testing.T) {
	tests := map[string]string{
		"contracts/NDA_v2.pdf":                 "nda_v2",
		"https://example.com/legal/msa-2025/": "msa-2025",
		"Supply Agreement.final.txt":           "supply-agreement-final",
		"???.txt":                              "document",
	}
	for source, want := range tests {
		if got := DocumentID(source); got != want {
			t.Errorf("DocumentID(%q) = %q, want %q", source, got, want)
		}
	}
}
