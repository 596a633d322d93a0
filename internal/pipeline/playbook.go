package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/covenant/internal/model"
)

// playbookFile is the on-disk layout. Clause type keys are matched
// case-insensitively ("termination" or "TERMINATION").
type playbookFile struct {
	Name      string                    `yaml:"name"`
	Positions map[string]model.Position `yaml:"positions"`
}

// LoadPlaybook reads a YAML playbook
func LoadPlaybook(path string) (*model.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook: %w", err)
	}
	pb, err := ParsePlaybook(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pb, nil
}

// ParsePlaybook decodes YAML playbook content. Unknown clause types and
// positions without a standard are validation errors.
func ParsePlaybook(data []byte) (*model.Playbook, error) {
	var raw playbookFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse playbook: %w", err)
	}

	pb := &model.Playbook{
		Name:      strings.TrimSpace(raw.Name),
		Positions: make(map[model.ClauseType]model.Position, len(raw.Positions)),
	}
	if pb.Name == "" {
		pb.Name = "playbook"
	}

	for key, position := range raw.Positions {
		t, ok := model.ParseClauseType(key)
		if !ok {
			return nil, fmt.Errorf("%w: playbook: unknown clause type %q", model.ErrValidation, key)
		}
		if strings.TrimSpace(position.Standard) == "" {
			return nil, fmt.Errorf("%w: playbook: position for %s has no standard", model.ErrValidation, t)
		}
		if _, dup := pb.Positions[t]; dup {
			return nil, fmt.Errorf("%w: playbook: duplicate position for %s", model.ErrValidation, t)
		}
		pb.Positions[t] = position
	}

	return pb, nil
}
