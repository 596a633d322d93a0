package model

// RiskLevel is the band a risk score falls in
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"      // score 1-4
	RiskMedium   RiskLevel = "medium"   // score 5-9
	RiskHigh     RiskLevel = "high"     // score 10-15
	RiskCritical RiskLevel = "critical" // score 16-25
)

// RiskLevels lists the levels from lowest to highest
func RiskLevels() []RiskLevel {
	return []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

// LevelForScore maps a severity x likelihood product onto its band
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 16:
		return RiskCritical
	case score >= 10:
		return RiskHigh
	case score >= 5:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskScore is derived from its owning finding. Score and Level are computed
// by NewRiskScore and never supplied by callers.
type RiskScore struct {
	Severity            int       `json:"severity"`
	Likelihood          int       `json:"likelihood"`
	Score               int       `json:"score"`
	Level               RiskLevel `json:"level"`
	SeverityRationale   string    `json:"severity_rationale,omitempty"`
	LikelihoodRationale string    `json:"likelihood_rationale,omitempty"`
}

// NewRiskScore computes score = severity x likelihood and its level
func NewRiskScore(severity, likelihood int, severityRationale, likelihoodRationale string) (RiskScore, error) {
	if severity < 1 || severity > 5 {
		return RiskScore{}, invalid("risk: severity %d outside 1-5", severity)
	}
	if likelihood < 1 || likelihood > 5 {
		return RiskScore{}, invalid("risk: likelihood %d outside 1-5", likelihood)
	}
	score := severity * likelihood
	return RiskScore{
		Severity:            severity,
		Likelihood:          likelihood,
		Score:               score,
		Level:               LevelForScore(score),
		SeverityRationale:   severityRationale,
		LikelihoodRationale: likelihoodRationale,
	}, nil
}

// ReviewSeverity is the playbook-comparison outcome of a finding
type ReviewSeverity string

const (
	ReviewGreen  ReviewSeverity = "GREEN"  // acceptable
	ReviewYellow ReviewSeverity = "YELLOW" // negotiate
	ReviewRed    ReviewSeverity = "RED"    // escalate
)

// Action returns the playbook action for the severity
func (s ReviewSeverity) Action() string {
	switch s {
	case ReviewGreen:
		return "acceptable"
	case ReviewYellow:
		return "negotiate"
	case ReviewRed:
		return "escalate"
	default:
		return "unknown"
	}
}

// NegotiationTier ranks how hard a redline should be pushed. Zero means unset.
type NegotiationTier int

const (
	TierUnset    NegotiationTier = 0
	TierMustHave NegotiationTier = 1
	TierShould   NegotiationTier = 2
	TierNice     NegotiationTier = 3
)

func (t NegotiationTier) String() string {
	switch t {
	case TierMustHave:
		return "tier-1"
	case TierShould:
		return "tier-2"
	case TierNice:
		return "tier-3"
	default:
		return "unset"
	}
}

// Redline is a suggested contract change offered for a finding
type Redline struct {
	Text     string          `json:"text"`
	Tier     NegotiationTier `json:"tier"`
	Fallback string          `json:"fallback,omitempty"`
}

// Finding is one policy-comparison outcome for a clause
type Finding struct {
	ID          string          `json:"id"`
	ClauseID    string          `json:"clause_id"`
	ClauseType  ClauseType      `json:"clause_type"`
	Severity    ReviewSeverity  `json:"severity"`
	Deviation   string          `json:"deviation,omitempty"`
	Judgment    string          `json:"judgment"`
	Confidence  *float64        `json:"confidence,omitempty"`
	NeedsReview bool            `json:"needs_human_review"`
	Risk        RiskScore       `json:"risk"`
	Redline     *Redline        `json:"redline,omitempty"`
	Provenance  ProvenanceChain `json:"provenance"`
}

// RiskProfile is the document-level reduction of all findings
type RiskProfile struct {
	OverallLevel         RiskLevel               `json:"overall_level"`
	OverallScore         int                     `json:"overall_score"`
	HighestRiskFindingID string                  `json:"highest_risk_finding_id,omitempty"`
	Distribution         map[RiskLevel]int       `json:"distribution"`
	TierCounts           map[NegotiationTier]int `json:"tier_counts"`
	FindingCount         int                     `json:"finding_count"`
	ReviewCount          int                     `json:"needs_review_count"`
}
