package model

import "strings"

// SlotStatus is the completeness state of one expected fact
type SlotStatus string

const (
	SlotFilled  SlotStatus = "filled"  // Textual evidence plus a linked fact
	SlotPartial SlotStatus = "partial" // Textual evidence without a linked fact
	SlotMissing SlotStatus = "missing"
)

// ClauseFactSlot records whether a clause carries one expected fact
type ClauseFactSlot struct {
	ClauseID string     `json:"clause_id"`
	FactSpec string     `json:"fact_spec"`
	Status   SlotStatus `json:"status"`
	FactID   string     `json:"fact_id,omitempty"`
	Required bool       `json:"required"`
}

// NewClauseFactSlot validates and builds a slot
func NewClauseFactSlot(clauseID, spec string, status SlotStatus, factID string, required bool) (ClauseFactSlot, error) {
	s := ClauseFactSlot{
		ClauseID: clauseID,
		FactSpec: spec,
		Status:   status,
		FactID:   factID,
		Required: required,
	}
	if err := s.Validate(); err != nil {
		return ClauseFactSlot{}, err
	}
	return s, nil
}

// Validate checks the record invariants
func (s ClauseFactSlot) Validate() error {
	if strings.TrimSpace(s.ClauseID) == "" {
		return invalid("slot: empty clause id")
	}
	if strings.TrimSpace(s.FactSpec) == "" {
		return invalid("slot for clause %s: empty fact spec", s.ClauseID)
	}
	switch s.Status {
	case SlotFilled:
		if s.FactID == "" {
			return invalid("slot %s/%s: filled without a filling fact id", s.ClauseID, s.FactSpec)
		}
	case SlotPartial, SlotMissing:
	default:
		return invalid("slot %s/%s: unknown status %q", s.ClauseID, s.FactSpec, s.Status)
	}
	return nil
}
