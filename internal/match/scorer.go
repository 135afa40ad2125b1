package match

import (
	"strings"

	"github.com/aldergrove/dealsense/internal/model"
)

// Component weights for the combined match score. Location and entity carry
// the most signal; taxonomy and timing act as tie-breakers.
const (
	weightLocation  = 0.30
	weightEntity    = 0.30
	weightMagnitude = 0.20
	weightTemporal  = 0.10
	weightType      = 0.10
)

// Score compares one private event against one public event and returns the
// five component scores plus the combined weighted score. Deterministic and
// side-effect free; callers are expected to have already enforced temporal
// ordering.
func Score(private, public *model.Event) (model.ComponentScores, float64) {
	var cs model.ComponentScores

	cs.Location = LocationScore(
		private.Geo, public.Geo,
		private.City, private.State,
		public.City, public.State,
	)

	cs.Entity = entityScore(private.Extracted.Company(), public.Extracted.Company())

	m1, ok1 := private.Extracted.Magnitude()
	m2, ok2 := public.Extracted.Magnitude()
	cs.Magnitude = MagnitudeScore(m1, m2, ok1, ok2)

	days := public.PublishedAt.Sub(private.PublishedAt).Hours() / 24
	if days < 0 {
		days = -days
	}
	cs.Temporal = TemporalScore(days)

	cs.Type = TypeScore(private.Category, private.EventType, public.Category, public.EventType)

	combined := weightLocation*cs.Location +
		weightEntity*cs.Entity +
		weightMagnitude*cs.Magnitude +
		weightTemporal*cs.Temporal +
		weightType*cs.Type

	return cs, combined
}

// entityScore lower-cases both company names before comparing; a missing
// name on either side scores 0.
func entityScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return StringSimilarity(strings.ToLower(a), strings.ToLower(b))
}
