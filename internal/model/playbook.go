package model

// Position is the organization's standard stance for one clause type
type Position struct {
	Standard      string   `json:"standard" yaml:"standard"`
	Fallback      string   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	RequiredFacts []string `json:"required_facts,omitempty" yaml:"required_facts,omitempty"`
}

// Playbook holds organization-defined positions per clause type
type Playbook struct {
	Name      string                  `json:"name" yaml:"name"`
	Positions map[ClauseType]Position `json:"positions" yaml:"positions"`
}

// Position returns the stance for a clause type, if the playbook has one
func (p *Playbook) Position(t ClauseType) (Position, bool) {
	if p == nil || p.Positions == nil {
		return Position{}, false
	}
	pos, ok := p.Positions[t]
	return pos, ok
}
