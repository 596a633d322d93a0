package provenance

import "github.com/ppiankov/covenant/internal/model"

// Display returns the presentation label and icon tag for a node kind.
// Unknown kinds map to "Unknown".
func Display(kind model.NodeKind) (label, icon string) {
	switch kind {
	case model.NodeFact:
		return "Fact", "file-text"
	case model.NodeBinding:
		return "Binding", "link"
	case model.NodeInference:
		return "Inference", "lightbulb"
	case model.NodeExternal:
		return "External Source", "globe"
	case model.NodeReasoning:
		return "Reasoning", "brain"
	default:
		return "Unknown", "help-circle"
	}
}
