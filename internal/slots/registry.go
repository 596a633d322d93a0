package slots

import (
	"sort"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// Numeric tags a spec whose evidence may also be a pattern hit
type Numeric string

const (
	NumericNone     Numeric = ""
	NumericDuration Numeric = "duration"
	NumericMoney    Numeric = "money"
)

// Spec describes one expected fact for a clause type
type Spec struct {
	Name     string
	Required bool
	Keywords []string // Lowercase
	Numeric  Numeric
}

// Registry maps clause types to their ordered fact specs. It is read-only
// after construction; extension returns a new Registry.
type Registry struct {
	specs map[model.ClauseType][]Spec
}

// DefaultRegistry returns the standard clause-type table
func DefaultRegistry() *Registry {
	return &Registry{specs: map[model.ClauseType][]Spec{
		model.ClauseTermination: {
			{Name: "notice_period", Required: true, Numeric: NumericDuration,
				Keywords: []string{"notice period", "prior notice", "prior written notice"}},
			{Name: "termination_reasons", Required: true,
				Keywords: []string{"breach", "insolvency", "insolvent", "bankruptcy", "for cause", "for convenience", "winding up"}},
			{Name: "cure_period", Numeric: NumericDuration,
				Keywords: []string{"cure", "remedied", "remedy such"}},
			{Name: "survival_clauses",
				Keywords: []string{"surviv"}},
		},
		model.ClausePayment: {
			{Name: "payment_amount", Required: true, Numeric: NumericMoney,
				Keywords: []string{"fee", "price", "amount of", "sum of"}},
			{Name: "payment_terms", Required: true,
				Keywords: []string{"invoice", "payable", "due within", "net 30", "net 60", "upon receipt"}},
			{Name: "late_payment_interest",
				Keywords: []string{"late payment", "interest", "overdue"}},
			{Name: "currency",
				Keywords: []string{"usd", "eur", "gbp", "dollars", "euro", "pounds sterling", "currency"}},
		},
		model.ClauseConfidentiality: {
			{Name: "confidentiality_duration", Required: true, Numeric: NumericDuration,
				Keywords: []string{"confidentiality period", "after termination", "after expiry", "for a period of"}},
			{Name: "confidential_information_definition", Required: true,
				Keywords: []string{"confidential information"}},
			{Name: "permitted_disclosures",
				Keywords: []string{"required by law", "may disclose", "court order", "permitted disclosure"}},
			{Name: "return_or_destruction",
				Keywords: []string{"return", "destroy", "destruction"}},
		},
		model.ClauseLiability: {
			{Name: "liability_cap", Required: true, Numeric: NumericMoney,
				Keywords: []string{"shall not exceed", "aggregate liability", "limited to", "cap"}},
			{Name: "excluded_damages", Required: true,
				Keywords: []string{"indirect", "consequential", "punitive", "special damages", "lost profits", "loss of profit"}},
			{Name: "cap_exceptions",
				Keywords: []string{"gross negligence", "wilful misconduct", "willful misconduct", "fraud"}},
		},
		model.ClauseIndemnification: {
			{Name: "indemnified_parties", Required: true,
				Keywords: []string{"indemnified part", "indemnify", "hold harmless"}},
			{Name: "indemnification_scope", Required: true,
				Keywords: []string{"claims", "losses", "third party", "third-party", "arising out of"}},
			{Name: "indemnification_cap", Numeric: NumericMoney,
				Keywords: []string{"shall not exceed", "limited to", "cap"}},
			{Name: "defense_procedure",
				Keywords: []string{"defen", "control of", "settle"}},
		},
		model.ClauseWarranty: {
			{Name: "warranty_period", Required: true, Numeric: NumericDuration,
				Keywords: []string{"warranty period", "for a period of"}},
			{Name: "warranty_scope", Required: true,
				Keywords: []string{"warrants that", "free from defects", "conform", "workmanlike"}},
			{Name: "remedies",
				Keywords: []string{"repair", "replace", "refund", "re-perform"}},
		},
		model.ClauseNonCompete: {
			{Name: "non_compete_duration", Required: true, Numeric: NumericDuration,
				Keywords: []string{"restricted period", "for a period of"}},
			{Name: "restricted_territory", Required: true,
				Keywords: []string{"territory", "worldwide", "region", "country", "radius", "geographic"}},
			{Name: "restricted_activities",
				Keywords: []string{"compete", "solicit", "engage in"}},
		},
		model.ClauseTerm: {
			{Name: "term_duration", Required: true,
				Keywords: []string{"initial term", "term of", "shall commence", "shall continue", "years from", "months from"}},
			{Name: "renewal",
				Keywords: []string{"renew", "extension", "extend"}},
		},
		model.ClauseGoverningLaw: {
			{Name: "governing_jurisdiction", Required: true,
				Keywords: []string{"laws of", "governed by", "jurisdiction"}},
		},
		model.ClauseDisputeResolution: {
			{Name: "dispute_forum", Required: true,
				Keywords: []string{"arbitration", "courts of", "tribunal", "forum", "venue"}},
			{Name: "escalation_procedure",
				Keywords: []string{"escalat", "good faith negotiation", "mediation", "senior executives"}},
		},
		model.ClauseDataProtection: {
			{Name: "applicable_regulation", Required: true,
				Keywords: []string{"gdpr", "general data protection regulation", "ccpa", "data protection act", "hipaa", "data protection law"}},
			{Name: "breach_notification",
				Keywords: []string{"notify", "breach notification", "without undue delay"}},
		},
		model.ClauseForceMajeure: {
			{Name: "force_majeure_events", Required: true,
				Keywords: []string{"act of god", "acts of god", "terrorism", "flood", "pandemic", "epidemic", "earthquake", "beyond its reasonable control", "beyond the reasonable control", "beyond reasonable control"}},
			{Name: "notice_requirement",
				Keywords: []string{"notify", "notice", "inform"}},
		},
	}}
}

// Specs returns a copy of the specs for a clause type. Unregistered types
// yield nil.
func (r *Registry) Specs(t model.ClauseType) []Spec {
	specs := r.specs[t]
	if len(specs) == 0 {
		return nil
	}
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Types returns the registered clause types in declaration order
func (r *Registry) Types() []model.ClauseType {
	var out []model.ClauseType
	for _, t := range model.ClauseTypes() {
		if _, ok := r.specs[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// WithPlaybook returns a registry in which every fact named under a
// position's required_facts is required. Unknown names become new specs
// keyed on the name itself ("audit_rights" matches "audit rights").
func (r *Registry) WithPlaybook(pb *model.Playbook) *Registry {
	next := &Registry{specs: make(map[model.ClauseType][]Spec, len(r.specs))}
	for t, specs := range r.specs {
		next.specs[t] = append([]Spec(nil), specs...)
	}
	if pb == nil {
		return next
	}

	types := make([]string, 0, len(pb.Positions))
	for t := range pb.Positions {
		types = append(types, string(t))
	}
	sort.Strings(types)

	for _, name := range types {
		t := model.ClauseType(name)
		for _, fact := range pb.Positions[t].RequiredFacts {
			fact = strings.TrimSpace(strings.ToLower(fact))
			if fact == "" {
				continue
			}
			specs := next.specs[t]
			found := false
			for i := range specs {
				if specs[i].Name == fact {
					specs[i].Required = true
					found = true
				}
			}
			if !found {
				specs = append(specs, Spec{
					Name:     fact,
					Required: true,
					Keywords: []string{strings.ReplaceAll(fact, "_", " ")},
				})
			}
			next.specs[t] = specs
		}
	}
	return next
}
