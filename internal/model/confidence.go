package model

import "math"

// ReviewThreshold is the confidence below which a judgment needs human review
const ReviewThreshold = 0.5

// ConfidenceLabel is the presentation band for a confidence value
type ConfidenceLabel struct {
	Label string  `json:"label"`
	Color string  `json:"color"`
	Value float64 `json:"value"`
}

// LabelConfidence maps a confidence onto one of five fixed bands.
// A nil confidence maps to unknown/gray with value 0.0.
func LabelConfidence(c *float64) (ConfidenceLabel, error) {
	if c == nil {
		return ConfidenceLabel{Label: "unknown", Color: "gray", Value: 0.0}, nil
	}
	v := *c
	if !ValidConfidence(v) {
		return ConfidenceLabel{}, invalid("confidence %.3f outside [0,1]", v)
	}
	switch {
	case v < 0.40:
		return ConfidenceLabel{Label: "speculative", Color: "red", Value: v}, nil
	case v < 0.60:
		return ConfidenceLabel{Label: "low", Color: "orange", Value: v}, nil
	case v < 0.80:
		return ConfidenceLabel{Label: "moderate", Color: "yellow", Value: v}, nil
	case v < 0.95:
		return ConfidenceLabel{Label: "high", Color: "green", Value: v}, nil
	default:
		return ConfidenceLabel{Label: "very_high", Color: "blue", Value: v}, nil
	}
}

// ValidConfidence reports whether v is a number in [0,1]
func ValidConfidence(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// NeedsReview reports whether a judgment confidence calls for a human.
// Missing and malformed confidences always do.
func NeedsReview(c *float64) bool {
	return c == nil || !ValidConfidence(*c) || *c < ReviewThreshold
}
