package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/model"
)

func analyzedSample(t *testing.T) *model.Analysis {
	t.Helper()
	p := NewPipeline(testConfig()).
		WithPlaybook(testPlaybook()).
		WithReviewer(llm.NewReviewerWithProvider(&stubProvider{judgment: redJudgment()}, llm.Config{}))
	a, err := p.Analyze(context.Background(), sampleDocument())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return a
}

func TestRenderer_Markdown(t *testing.T) {
	a := analyzedSample(t)
	md := NewRenderer(true).Markdown(a)

	for _, want := range []string{
		"# Contract Analysis: msa",
		"**Overall risk:** CRITICAL (16/25)",
		"| 3 | 3. Termination | TERMINATION |",
		"**Supplier** → Alpha Widgets Inc (assignment)",
		"### RED: 3. Termination (escalate)",
		"- **Risk:** 4 × 4 = 16 (critical)",
		"**Redline (tier-2):** sixty (60) days prior written notice",
		"**External Source**",
		"Generated by covenant",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if strings.Contains(NewRenderer(false).Markdown(a), "Generated by covenant") {
		t.Error("footer rendered when disabled")
	}
}

func TestRenderer_MarkdownEmpty(t *testing.T) {
	a := &model.Analysis{DocumentID: "empty", Profile: model.RiskProfile{OverallLevel: model.RiskLow}}
	md := NewRenderer(false).Markdown(a)

	if !strings.Contains(md, "_No clause headings found._") || !strings.Contains(md, "_No findings._") {
		t.Errorf("unexpected markdown:\n%s", md)
	}
}

func TestRenderer_JSON(t *testing.T) {
	a := analyzedSample(t)
	path := filepath.Join(t.TempDir(), "reports", "msa.json")

	if err := NewRenderer(true).RenderJSON(a, path); err != nil {
		t.Fatalf("RenderJSON() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Analysis
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.DocumentID != "msa" || len(decoded.Findings) != 1 {
		t.Errorf("decoded = %s with %d findings", decoded.DocumentID, len(decoded.Findings))
	}
}

func TestRenderer_Summary(t *testing.T) {
	a := analyzedSample(t)
	var buf bytes.Buffer
	NewRenderer(true).RenderSummary(&buf, a)

	out := buf.String()
	if !strings.Contains(out, "Overall risk:   CRITICAL (16)") {
		t.Errorf("summary missing overall risk:\n%s", out)
	}
	if !strings.Contains(out, "critical   1") {
		t.Errorf("summary missing distribution:\n%s", out)
	}
}
