package match

import (
	"testing"
	"time"

	"github.com/aldergrove/dealsense/internal/model"
)

func privatePublicPair(daysApart int) (*model.Event, *model.Event) {
	day0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	private := &model.Event{
		ID:         "prv-1",
		SourceType: model.SourcePrivate,
		Category:   "employment",
		EventType:  "employment.expansion",
		Extracted:  model.ExtractedData{"company": "Acme Corp", "magnitude": float64(500)},
		City:       "Atlanta",
		State:      "GA",
		SourceName: "Email: informant@example.com",

		PublishedAt: day0,
	}
	public := &model.Event{
		ID:          "pub-1",
		SourceType:  model.SourcePublic,
		Category:    "employment",
		EventType:   "employment.expansion",
		Extracted:   model.ExtractedData{"company": "Acme Corp", "magnitude": float64(500)},
		City:        "Atlanta",
		State:       "GA",
		PublishedAt: day0.AddDate(0, 0, daysApart),
	}
	return private, public
}

// Exact-match scenario: identical company, magnitude, taxonomy and city;
// published 10 days apart.
func TestScoreExactMatch(t *testing.T) {
	private, public := privatePublicPair(10)

	cs, combined := Score(private, public)

	if cs.Entity != 1.0 {
		t.Errorf("entity = %v, want 1.0", cs.Entity)
	}
	if cs.Magnitude != 1.0 {
		t.Errorf("magnitude = %v, want 1.0", cs.Magnitude)
	}
	if cs.Type != 1.0 {
		t.Errorf("type = %v, want 1.0", cs.Type)
	}
	// No geocode on either side, so location comes from the city fallback.
	if cs.Location != 0.7 {
		t.Errorf("location = %v, want 0.7 (city fallback)", cs.Location)
	}
	if cs.Temporal <= 0.8 {
		t.Errorf("temporal = %v, want > 0.8 for a 10-day gap", cs.Temporal)
	}
	// 0.30·0.7 + 0.30·1 + 0.20·1 + 0.10·(1−10/90) + 0.10·1. The city
	// fallback caps location at 0.7, so 0.9 is only reachable geocoded.
	want := 0.30*0.7 + 0.30 + 0.20 + 0.10*(1-10.0/90) + 0.10
	if !almostEqual(combined, want) {
		t.Errorf("combined = %v, want %v", combined, want)
	}
}

func TestScoreGeocodedExactMatch(t *testing.T) {
	private, public := privatePublicPair(10)
	private.Geo = &model.GeoPoint{Lat: 33.749, Lng: -84.388}
	public.Geo = &model.GeoPoint{Lat: 33.749, Lng: -84.388}

	cs, combined := Score(private, public)
	if cs.Location != 1.0 {
		t.Errorf("location = %v, want 1.0 for identical geocodes", cs.Location)
	}
	if combined < 0.9 {
		t.Errorf("combined = %v, want >= 0.9", combined)
	}
}

// Scores are a pure function of the inputs.
func TestScoreDeterministic(t *testing.T) {
	private, public := privatePublicPair(10)

	_, first := Score(private, public)
	for i := 0; i < 5; i++ {
		_, again := Score(private, public)
		if again != first {
			t.Fatalf("Score not deterministic: %v then %v", first, again)
		}
	}
}

func TestScoreMissingCompany(t *testing.T) {
	private, public := privatePublicPair(10)
	public.Extracted = model.ExtractedData{"magnitude": float64(500)}

	cs, _ := Score(private, public)
	if cs.Entity != 0 {
		t.Errorf("entity = %v, want 0 when a company name is missing", cs.Entity)
	}
}

func TestScoreCaseInsensitiveEntity(t *testing.T) {
	private, public := privatePublicPair(10)
	public.Extracted = model.ExtractedData{"company": "ACME CORP", "magnitude": float64(500)}

	cs, _ := Score(private, public)
	if cs.Entity != 1.0 {
		t.Errorf("entity = %v, want 1.0 for case-only difference", cs.Entity)
	}
}

func TestScoreBounds(t *testing.T) {
	private, public := privatePublicPair(89)
	public.Extracted = model.ExtractedData{"company": "Completely Different LLC", "magnitude": float64(3)}
	public.City = "Tulsa"
	public.State = "OK"
	public.Category = "real_estate"
	public.EventType = "real_estate.lease"

	cs, combined := Score(private, public)
	for name, v := range map[string]float64{
		"location": cs.Location, "entity": cs.Entity, "magnitude": cs.Magnitude,
		"temporal": cs.Temporal, "type": cs.Type, "combined": combined,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, out of [0,1]", name, v)
		}
	}
}
