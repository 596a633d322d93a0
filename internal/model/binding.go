package model

import "strings"

// BindingKind classifies how a term was bound
type BindingKind string

const (
	BindingDefinition      BindingKind = "definition"       // "X" shall mean ...
	BindingAssignment      BindingKind = "assignment"       // X (hereinafter "Y")
	BindingIncorporation   BindingKind = "incorporation"    // terms incorporated by reference
	BindingDelegation      BindingKind = "delegation"       // authority delegated to another party
	BindingScopeLimitation BindingKind = "scope_limitation" // term meaning narrowed to a context
)

// BindingScope is the reach of a binding
type BindingScope string

const (
	ScopeContract       BindingScope = "contract"
	ScopeContractFamily BindingScope = "contract_family"
	ScopeRepository     BindingScope = "repository"
)

// Binding is an explicit semantic mapping from a term to its referent.
// A later binding for the same term supersedes this one through OverriddenBy,
// never by deletion.
type Binding struct {
	ID           string       `json:"id"`
	Kind         BindingKind  `json:"kind"`
	Term         string       `json:"term"`
	ResolvedTo   string       `json:"resolved_to"`
	SourceFactID string       `json:"source_fact_id,omitempty"`
	DocumentID   string       `json:"document_id"`
	Scope        BindingScope `json:"scope"`
	OverriddenBy string       `json:"overridden_by,omitempty"`
}

// NewBinding validates and builds a Binding
func NewBinding(id string, kind BindingKind, term, resolvedTo, sourceFactID, docID string, scope BindingScope) (Binding, error) {
	b := Binding{
		ID:           id,
		Kind:         kind,
		Term:         strings.TrimSpace(term),
		ResolvedTo:   strings.TrimSpace(resolvedTo),
		SourceFactID: sourceFactID,
		DocumentID:   docID,
		Scope:        scope,
	}
	if err := b.Validate(); err != nil {
		return Binding{}, err
	}
	return b, nil
}

// Validate checks the record invariants
func (b Binding) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return invalid("binding: empty id")
	}
	switch b.Kind {
	case BindingDefinition, BindingAssignment, BindingIncorporation, BindingDelegation, BindingScopeLimitation:
	default:
		return invalid("binding %s: unknown kind %q", b.ID, b.Kind)
	}
	if b.Term == "" {
		return invalid("binding %s: empty term", b.ID)
	}
	if b.ResolvedTo == "" {
		return invalid("binding %s: empty resolved value", b.ID)
	}
	if strings.TrimSpace(b.DocumentID) == "" {
		return invalid("binding %s: empty document id", b.ID)
	}
	switch b.Scope {
	case ScopeContract, ScopeContractFamily, ScopeRepository:
	default:
		return invalid("binding %s: unknown scope %q", b.ID, b.Scope)
	}
	return nil
}

// Active reports whether no later binding overrides this one
func (b Binding) Active() bool {
	return b.OverriddenBy == ""
}

// Supersede returns a copy of b overridden by newer
func (b Binding) Supersede(newer Binding) Binding {
	b.OverriddenBy = newer.ID
	return b
}
