// Package match holds the similarity primitives and the weighted scorer the
// corroboration engine uses to compare a private signal against a public
// event. Everything here is a pure function - no I/O, deterministic.
package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/aldergrove/dealsense/internal/model"
)

// Location score decays linearly to zero at this distance.
const maxLocationMiles = 10.0

// Temporal score decays linearly to zero at this gap.
const maxTemporalDays = 90.0

// Score given for a city+state match when neither event is geocoded.
const cityFallbackScore = 0.7

// Score given when one entity name contains the other.
const containmentScore = 0.7

// StringSimilarity returns a [0,1] similarity between two strings.
// Exact match scores 1.0, containment either way scores 0.7, anything else
// falls back to a normalized edit-distance ratio. Lengths are counted in
// runes so multi-byte names normalize the same as ASCII ones.
func StringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longer, shorter := a, b
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		longer, shorter = b, a
	}
	longerLen := utf8.RuneCountInString(longer)
	if longerLen == 0 {
		return 1.0
	}
	if shorter != "" && strings.Contains(longer, shorter) {
		return containmentScore
	}
	dist := editDistance(longer, shorter)
	return 1.0 - float64(dist)/float64(longerLen)
}

// editDistance computes classic Levenshtein distance with unit costs,
// using a two-row table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// LocationScore compares event locations. With both points geocoded the
// score decays linearly with great-circle distance, hitting zero at 10
// miles. Without geocodes, a case-insensitive city+state match is worth a
// fixed 0.7. Anything else is 0.
func LocationScore(a, b *model.GeoPoint, cityA, stateA, cityB, stateB string) float64 {
	if a != nil && b != nil {
		miles := haversineMiles(a.Lat, a.Lng, b.Lat, b.Lng)
		return math.Max(0, 1.0-miles/maxLocationMiles)
	}
	if cityA != "" && stateA != "" &&
		strings.EqualFold(cityA, cityB) && strings.EqualFold(stateA, stateB) {
		return cityFallbackScore
	}
	return 0
}

const earthRadiusMiles = 3958.8

// haversineMiles returns the great-circle distance between two points.
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// MagnitudeScore compares numeric magnitudes: identical values score 1,
// and the score falls off with the relative difference. Missing values
// score 0; that case is handled by the caller passing ok flags.
func MagnitudeScore(m1, m2 float64, ok1, ok2 bool) float64 {
	if !ok1 || !ok2 {
		return 0
	}
	if m1 == m2 {
		return 1.0
	}
	denom := math.Max(m1, m2)
	if denom <= 0 {
		return 0
	}
	return 1.0 - math.Min(1.0, math.Abs(m1-m2)/denom)
}

// TemporalScore decays linearly with the day gap, reaching zero at 90 days.
func TemporalScore(daysApart float64) float64 {
	return math.Max(0, 1.0-daysApart/maxTemporalDays)
}

// TypeScore compares event taxonomy: an exact type match scores 1.0, a
// shared category scores 0.5, anything else 0.
func TypeScore(cat1, type1, cat2, type2 string) float64 {
	if type1 != "" && strings.EqualFold(type1, type2) {
		return 1.0
	}
	if cat1 != "" && strings.EqualFold(cat1, cat2) {
		return 0.5
	}
	return 0
}
