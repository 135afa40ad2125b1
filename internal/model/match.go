package model

import "time"

// ComponentScores are the five similarity components of a scored pair.
// All values lie in [0,1].
type ComponentScores struct {
	Location  float64
	Entity    float64
	Magnitude float64
	Temporal  float64
	Type      float64
}

// CorroborationMatch is an immutable fact linking one private event to one
// later public event. At most one row exists per (private, public) pair.
type CorroborationMatch struct {
	ID             string
	PrivateEventID string
	PublicEventID  string
	Components     ComponentScores
	MatchScore     float64
	LeadTimeDays   int
	Confidence     ConfidenceBand
	CreatedAt      time.Time
}

// ConfidenceBand buckets a score given how much evidence backs it.
type ConfidenceBand string

const (
	ConfidenceLow      ConfidenceBand = "low"
	ConfidenceMedium   ConfidenceBand = "medium"
	ConfidenceHigh     ConfidenceBand = "high"
	ConfidenceVeryHigh ConfidenceBand = "very_high"
)

// Confidence bands a score by sample size. Fewer than 3 samples is always
// low; the upper bands require both a strong score and enough history.
func Confidence(score float64, sampleSize int) ConfidenceBand {
	if sampleSize < 3 {
		return ConfidenceLow
	}
	switch {
	case score >= 0.85 && sampleSize >= 10:
		return ConfidenceVeryHigh
	case score >= 0.75 && sampleSize >= 5:
		return ConfidenceHigh
	case score >= 0.60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
