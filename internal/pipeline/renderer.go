package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/provenance"
)

// Renderer writes analyses as JSON, Markdown and a console summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the analysis as indented JSON
func (r *Renderer) RenderJSON(a *model.Analysis, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the analysis as a Markdown report
func (r *Renderer) RenderMarkdown(a *model.Analysis, path string) error {
	return writeFile(path, []byte(r.Markdown(a)))
}

// Markdown returns the Markdown report
func (r *Renderer) Markdown(a *model.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Contract Analysis: %s\n\n", a.DocumentID)
	if a.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", a.Source)
	}
	fmt.Fprintf(&b, "- **Version:** `%s`\n", a.Version)
	fmt.Fprintf(&b, "- **Analyzed:** %s\n", a.AnalyzedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Overall risk:** %s (%d/25)\n", strings.ToUpper(string(a.Profile.OverallLevel)), a.Profile.OverallScore)
	fmt.Fprintf(&b, "- **Layers:** %d facts, %d bindings, %d clauses, %d cross-references\n\n",
		len(a.Facts), len(a.Bindings), len(a.Clauses), len(a.CrossReferences))

	b.WriteString("## Signals\n\n")
	if len(a.Signals) == 0 {
		b.WriteString("_No signals._\n\n")
	}
	for _, s := range a.Signals {
		fmt.Fprintf(&b, "- %s **%s**: %s\n", severityMark(s.Severity), s.Type, s.Description)
	}
	if len(a.Signals) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Clauses\n\n")
	if len(a.Clauses) == 0 {
		b.WriteString("_No clause headings found._\n\n")
	} else {
		b.WriteString("| Section | Heading | Type | Slots | References |\n")
		b.WriteString("|---------|---------|------|-------|------------|\n")
		for _, c := range a.Clauses {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n",
				orDash(c.SectionNumber), escapeCell(c.Heading), c.Type, slotSummary(a.SlotsFor(c.ID)), len(c.CrossReferenceIDs))
		}
		b.WriteString("\n")
	}

	if len(a.Bindings) > 0 {
		b.WriteString("## Defined Terms\n\n")
		for _, bd := range a.Bindings {
			status := ""
			if !bd.Active() {
				status = " _(superseded)_"
			}
			fmt.Fprintf(&b, "- **%s** → %s (%s)%s\n", bd.Term, bd.ResolvedTo, bd.Kind, status)
		}
		b.WriteString("\n")
	}

	if len(a.CrossReferences) > 0 {
		b.WriteString("## Cross-References\n\n")
		for _, x := range a.CrossReferences {
			target := "unresolved"
			if c, ok := a.ClauseByID(x.TargetClauseID); ok {
				target = c.Heading
			}
			source := x.SourceClauseID
			if c, ok := a.ClauseByID(x.SourceClauseID); ok {
				source = c.Heading
			}
			fmt.Fprintf(&b, "- %s **%s** %s (%s)\n", source, x.Effect, x.TargetText, target)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Findings\n\n")
	if len(a.Findings) == 0 {
		b.WriteString("_No findings._\n\n")
	}
	for _, f := range a.Findings {
		heading := f.ClauseID
		if c, ok := a.ClauseByID(f.ClauseID); ok {
			heading = c.Heading
		}
		label, _ := model.LabelConfidence(f.Confidence)

		fmt.Fprintf(&b, "### %s: %s (%s)\n\n", f.Severity, heading, f.Severity.Action())
		fmt.Fprintf(&b, "- **Risk:** %d × %d = %d (%s)\n", f.Risk.Severity, f.Risk.Likelihood, f.Risk.Score, f.Risk.Level)
		fmt.Fprintf(&b, "- **Confidence:** %s (%.2f)", label.Label, label.Value)
		if f.NeedsReview {
			b.WriteString(" ⚠ needs human review")
		}
		b.WriteString("\n")
		if f.Deviation != "" {
			fmt.Fprintf(&b, "- **Deviation:** %s\n", f.Deviation)
		}
		fmt.Fprintf(&b, "\n%s\n\n", f.Judgment)

		if f.Redline != nil {
			fmt.Fprintf(&b, "**Redline (%s):** %s\n\n", f.Redline.Tier, f.Redline.Text)
			if f.Redline.Fallback != "" {
				fmt.Fprintf(&b, "**Fallback:** %s\n\n", f.Redline.Fallback)
			}
		}

		b.WriteString("<details><summary>Provenance</summary>\n\n")
		for i, n := range f.Provenance.Nodes {
			label, _ := provenance.Display(n.Kind)
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, label, n.Summary)
		}
		fmt.Fprintf(&b, "\n_%s_\n\n</details>\n\n", f.Provenance.Summary)
	}

	if a.Judgment != nil && len(a.Judgment.Warnings) > 0 {
		b.WriteString("## Judgment Warnings\n\n")
		for _, w := range a.Judgment.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Generated by covenant. Facts, bindings and clauses are rule-derived; findings are judgments and are not legal advice._\n")
	}

	return b.String()
}

// RenderSummary prints a short console summary
func (r *Renderer) RenderSummary(w io.Writer, a *model.Analysis) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", a.DocumentID)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Overall risk:   %s (%d)\n", strings.ToUpper(string(a.Profile.OverallLevel)), a.Profile.OverallScore)
	fmt.Fprintf(w, "  Clauses:        %d\n", len(a.Clauses))
	fmt.Fprintf(w, "  Facts:          %d\n", len(a.Facts))
	fmt.Fprintf(w, "  Bindings:       %d\n", len(a.Bindings))
	fmt.Fprintf(w, "  References:     %d\n", len(a.CrossReferences))
	fmt.Fprintf(w, "  Findings:       %d (%d need review)\n", a.Profile.FindingCount, a.Profile.ReviewCount)

	levels := model.RiskLevels()
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		if n := a.Profile.Distribution[level]; n > 0 {
			fmt.Fprintf(w, "    %-10s %d\n", level, n)
		}
	}

	for _, s := range a.Signals {
		if s.Severity != model.SeverityInfo {
			fmt.Fprintf(w, "  %s %s\n", severityMark(s.Severity), s.Description)
		}
	}
	fmt.Fprintf(w, "\n")
}

// RenderReport renders the analysis to the requested outputs and prints
// the console summary to stdout
func (p *Pipeline) RenderReport(a *model.Analysis, jsonPath, mdPath string, verbose bool) error {
	renderer := NewRenderer(p.config.Output.IncludeFooter)

	if jsonPath != "" {
		if err := renderer.RenderJSON(a, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := renderer.RenderMarkdown(a, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	renderer.RenderSummary(os.Stdout, a)
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func slotSummary(clauseSlots []model.ClauseFactSlot) string {
	if len(clauseSlots) == 0 {
		return "-"
	}
	filled, partial, missing := 0, 0, 0
	for _, s := range clauseSlots {
		switch s.Status {
		case model.SlotFilled:
			filled++
		case model.SlotPartial:
			partial++
		case model.SlotMissing:
			missing++
		}
	}
	return fmt.Sprintf("%d filled / %d partial / %d missing", filled, partial, missing)
}

func severityMark(s model.SignalSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "✗"
	case model.SeverityWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
