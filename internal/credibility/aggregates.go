// Package credibility maintains per-contact reliability aggregates and the
// read/query paths over them, and forecasts accuracy for new signals.
package credibility

import (
	"math"

	"github.com/aldergrove/dealsense/internal/model"
)

// Composite weights for the intelligence value score. Accuracy dominates;
// lead time rewards the informant's head start; consistency and impact
// round it out.
const (
	valueWeightAccuracy    = 0.40
	valueWeightLeadTime    = 0.30
	valueWeightConsistency = 0.15
	valueWeightImpact      = 0.15

	// Lead times at or above this many days earn full lead-time credit.
	leadTimeFullCreditDays = 30.0

	// Impact normalization: log10(1+avgImpact)/impactLogCeiling, so a
	// million-unit average saturates the impact component.
	impactLogCeiling = 6.0
)

// Recompute derives all the computed fields of a contact aggregate from its
// counters and its intelligence-value ledger. Called inside the recording
// transaction after counters change.
func Recompute(c *model.ContactCredibility, ledger []model.IntelligenceValue) {
	resolved := c.CorroboratedSignals + c.FailedSignals
	if resolved > 0 {
		c.CredibilityScore = float64(c.CorroboratedSignals) / float64(resolved)
	} else {
		// Nothing resolved yet: neutral prior.
		c.CredibilityScore = 0.5
	}

	c.AvgLeadTimeDays = 0
	c.AvgCorroborationTimeDays = 0
	c.AvgImpactMagnitude = 0
	c.ConsistencyScore = 1.0

	if len(ledger) > 0 {
		var leadSum, corrSum, impactSum float64
		for _, iv := range ledger {
			leadSum += float64(iv.LeadTimeDays)
			corrSum += iv.CorroborationDays
			impactSum += iv.ImpactMagnitude
		}
		n := float64(len(ledger))
		c.AvgLeadTimeDays = leadSum / n
		c.AvgCorroborationTimeDays = corrSum / n
		c.AvgImpactMagnitude = impactSum / n
		c.ConsistencyScore = consistency(ledger, c.AvgLeadTimeDays)
	}

	c.IntelligenceValueScore = intelligenceValue(c)
}

// consistency scores how regular a contact's lead times are: 1/(1+cv)
// where cv is the coefficient of variation. A single sample has no observed
// spread and scores 1.
func consistency(ledger []model.IntelligenceValue, mean float64) float64 {
	if len(ledger) < 2 || mean <= 0 {
		return 1.0
	}
	var sumSq float64
	for _, iv := range ledger {
		d := float64(iv.LeadTimeDays) - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(ledger)))
	return 1.0 / (1.0 + stddev/mean)
}

// intelligenceValue combines accuracy, lead time, consistency and impact
// into the 0-100 composite ranking score.
func intelligenceValue(c *model.ContactCredibility) float64 {
	if c.CorroboratedSignals+c.FailedSignals == 0 {
		return 0
	}
	accuracy := c.Accuracy() / 100 // [0,1]
	leadCredit := math.Min(1.0, c.AvgLeadTimeDays/leadTimeFullCreditDays)
	impactCredit := 0.0
	if c.AvgImpactMagnitude > 0 {
		impactCredit = math.Min(1.0, math.Log10(1+c.AvgImpactMagnitude)/impactLogCeiling)
	}

	score := 100 * (valueWeightAccuracy*accuracy +
		valueWeightLeadTime*leadCredit +
		valueWeightConsistency*c.ConsistencyScore +
		valueWeightImpact*impactCredit)

	return math.Max(0, math.Min(100, score))
}

// Experience bonus: two points per corroboration in the specialty, capped.
const (
	specialtyBonusPerHit = 2.0
	specialtyBonusCap    = 10.0
)

// RecomputeSpecialty derives a specialty row's scores from its counters.
// With nothing resolved the base accuracy sits at the neutral 50.
func RecomputeSpecialty(sp *model.SpecialtyScore) {
	resolved := sp.CorroboratedSignals + sp.FailedSignals
	if resolved > 0 {
		sp.BaseAccuracy = model.AccuracyPct(sp.CorroboratedSignals, sp.FailedSignals)
	} else {
		sp.BaseAccuracy = 50
	}
	sp.SpecialtyBonus = math.Min(specialtyBonusCap, specialtyBonusPerHit*float64(sp.CorroboratedSignals))
	sp.SpecialtyScore = math.Min(100, sp.BaseAccuracy+sp.SpecialtyBonus)
}
