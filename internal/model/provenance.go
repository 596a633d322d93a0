package model

import "strings"

// NodeKind is the layer a provenance node points into
type NodeKind string

const (
	NodeFact      NodeKind = "fact"
	NodeBinding   NodeKind = "binding"
	NodeInference NodeKind = "inference"
	NodeExternal  NodeKind = "external"
	NodeReasoning NodeKind = "reasoning"
)

// ProvenanceNode is one typed step of an evidence trail
type ProvenanceNode struct {
	Kind     NodeKind `json:"kind"`
	RefID    string   `json:"ref_id,omitempty"`
	Summary  string   `json:"summary"`
	Location string   `json:"location,omitempty"`
}

// ProvenanceChain is the ordered evidence trail behind an answer or finding
type ProvenanceChain struct {
	Nodes   []ProvenanceNode `json:"nodes"`
	Summary string           `json:"reasoning_summary"`
}

// NewProvenanceChain rejects a chain with no nodes or no summary
func NewProvenanceChain(nodes []ProvenanceNode, summary string) (ProvenanceChain, error) {
	if len(nodes) == 0 {
		return ProvenanceChain{}, invalid("provenance: chain has no nodes")
	}
	if strings.TrimSpace(summary) == "" {
		return ProvenanceChain{}, invalid("provenance: empty reasoning summary")
	}
	for i, n := range nodes {
		if strings.TrimSpace(n.Summary) == "" {
			return ProvenanceChain{}, invalid("provenance: node %d has no summary", i)
		}
	}
	return ProvenanceChain{
		Nodes:   append([]ProvenanceNode(nil), nodes...),
		Summary: summary,
	}, nil
}
