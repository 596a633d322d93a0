package provenance

import (
	"fmt"

	"github.com/ppiankov/covenant/internal/model"
)

// Builder collects typed nodes for one answer or finding. Nodes keep the
// order in which they were added.
type Builder struct {
	nodes []model.ProvenanceNode
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Fact adds a node pointing at an extracted fact
func (b *Builder) Fact(f model.Fact) *Builder {
	summary := f.Value
	if summary == "" {
		summary = f.Evidence.Span
	}
	return b.add(model.ProvenanceNode{
		Kind:     model.NodeFact,
		RefID:    f.ID,
		Summary:  fmt.Sprintf("%s: %s", f.Kind, truncate(summary, 120)),
		Location: f.Evidence.Location,
	})
}

// Binding adds a node pointing at a binding that was applied
func (b *Builder) Binding(bd model.Binding) *Builder {
	return b.add(model.ProvenanceNode{
		Kind:    model.NodeBinding,
		RefID:   bd.ID,
		Summary: fmt.Sprintf("%q resolves to %q (%s)", bd.Term, truncate(bd.ResolvedTo, 80), bd.Kind),
	})
}

// Inference adds a derived claim, typically from the judgment provider
func (b *Builder) Inference(refID, summary string) *Builder {
	return b.add(model.ProvenanceNode{Kind: model.NodeInference, RefID: refID, Summary: summary})
}

// External adds a node citing a source outside the document
func (b *Builder) External(location, summary string) *Builder {
	return b.add(model.ProvenanceNode{Kind: model.NodeExternal, Summary: summary, Location: location})
}

// Reasoning adds a free-standing reasoning step
func (b *Builder) Reasoning(summary string) *Builder {
	return b.add(model.ProvenanceNode{Kind: model.NodeReasoning, Summary: summary})
}

func (b *Builder) add(n model.ProvenanceNode) *Builder {
	b.nodes = append(b.nodes, n)
	return b
}

// Len returns the number of nodes collected so far
func (b *Builder) Len() int {
	return len(b.nodes)
}

// Build returns the chain. An empty chain or blank summary is a
// construction error.
func (b *Builder) Build(summary string) (model.ProvenanceChain, error) {
	chain, err := model.NewProvenanceChain(b.nodes, summary)
	if err != nil {
		return model.ProvenanceChain{}, fmt.Errorf("build provenance: %w", err)
	}
	return chain, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
