package model

import "time"

// ContactCredibility is the per-(user, contact) aggregate track record.
// Created lazily on the first signal from a contact; never deleted.
//
// Invariant: TotalSignals >= CorroboratedSignals + FailedSignals, and
// PendingSignals never goes negative.
type ContactCredibility struct {
	UserID     string
	ContactKey string // normalized email address

	TotalSignals        int
	CorroboratedSignals int
	FailedSignals       int
	PendingSignals      int

	CredibilityScore         float64 // [0,1]
	AvgLeadTimeDays          float64
	AvgCorroborationTimeDays float64
	IntelligenceValueScore   float64 // [0,100]
	ConsistencyScore         float64 // [0,1]
	AvgImpactMagnitude       float64

	LastSignalAt        *time.Time
	LastCorroborationAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Accuracy returns resolved accuracy as a percentage: corroborated over
// (corroborated + failed) * 100, or 0 when nothing has resolved.
func (c *ContactCredibility) Accuracy() float64 {
	return AccuracyPct(c.CorroboratedSignals, c.FailedSignals)
}

// AccuracyPct computes corroborated/(corroborated+failed)*100, 0 when the
// denominator is 0.
func AccuracyPct(corroborated, failed int) float64 {
	resolved := corroborated + failed
	if resolved == 0 {
		return 0
	}
	return float64(corroborated) / float64(resolved) * 100
}

// SpecialtyScore narrows a contact's track record to one event category, and
// optionally one event type (EventType == "" means the category-level row).
// Its counters are always <= the parent contact's totals.
type SpecialtyScore struct {
	ID         string
	UserID     string
	ContactKey string
	Category   string
	EventType  string

	TotalSignals        int
	CorroboratedSignals int
	FailedSignals       int

	BaseAccuracy   float64 // [0,100]
	SpecialtyBonus float64
	SpecialtyScore float64 // [0,100]

	UpdatedAt time.Time
}

// ChangeType labels a credibility history entry.
type ChangeType string

const (
	ChangeSignal       ChangeType = "signal"
	ChangeCorroborated ChangeType = "corroborated"
	ChangeFailed       ChangeType = "failed"
)

// CredibilityHistory is an append-only ledger entry snapshotting a contact's
// counters after each change. Never mutated or deleted.
type CredibilityHistory struct {
	ID         string
	UserID     string
	ContactKey string

	ChangeType   ChangeType
	ChangeReason string

	TotalSignals        int
	CorroboratedSignals int
	FailedSignals       int
	PendingSignals      int
	CredibilityScore    float64

	CreatedAt time.Time
}

// IntelligenceValue is one ledger row per corroboration, capturing the lead
// time and impact that feed the contact's composite value score.
type IntelligenceValue struct {
	ID             string
	UserID         string
	ContactKey     string
	PrivateEventID string

	LeadTimeDays         int
	CorroborationDays    float64 // days from signal to the engine recording it
	ImpactMagnitude      float64
	MatchScore           float64

	CreatedAt time.Time
}

// PredictiveCredibility is the per-event forecast produced for brand-new
// private signals. Recomputation overwrites the prior forecast.
type PredictiveCredibility struct {
	EventID    string
	UserID     string
	ContactKey string

	PredictedAccuracy          float64 // [0,100]
	PredictedCorroborationDays float64
	Confidence                 ConfidenceBand
	AppliedWeight              float64 // PredictedAccuracy / 100
	Basis                      string  // "specialty:<category>[/<type>]" or "historical"
	SampleSize                 int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tier buckets a contact in the network intelligence-value ranking.
type Tier string

const (
	TierTop Tier = "top"
	TierMid Tier = "mid"
	TierLow Tier = "low"
)

// TierFor buckets an intelligence value score: top above 80, mid 60-80,
// low below 60.
func TierFor(score float64) Tier {
	switch {
	case score > 80:
		return TierTop
	case score >= 60:
		return TierMid
	default:
		return TierLow
	}
}
