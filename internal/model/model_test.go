package model

import "testing"

func TestContactFromSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    string
		wantErr bool
	}{
		{"standard form", "Email: jane@example.com", "jane@example.com", false},
		{"case and whitespace", "  email:  Jane.Doe@Example.COM ", "jane.doe@example.com", false},
		{"no prefix", "jane@example.com", "", true},
		{"prefix without address", "Email: ", "", true},
		{"not an address", "Email: newsletter", "", true},
		{"empty", "", "", true},
		{"unrelated source", "Tulsa World", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ContactFromSource(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ContactFromSource(%q) = %q, want error", tt.source, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ContactFromSource(%q) unexpected error: %v", tt.source, err)
			}
			if got != tt.want {
				t.Errorf("ContactFromSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		sampleSize int
		want       ConfidenceBand
	}{
		{"tiny sample always low", 0.99, 2, ConfidenceLow},
		{"very high", 0.90, 12, ConfidenceVeryHigh},
		{"strong score small sample", 0.90, 5, ConfidenceHigh},
		{"high", 0.78, 6, ConfidenceHigh},
		{"high score not enough samples", 0.78, 4, ConfidenceMedium},
		{"medium", 0.65, 3, ConfidenceMedium},
		{"low", 0.40, 20, ConfidenceLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.score, tt.sampleSize); got != tt.want {
				t.Errorf("Confidence(%v, %d) = %s, want %s", tt.score, tt.sampleSize, got, tt.want)
			}
		})
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{95, TierTop},
		{80.5, TierTop},
		{80, TierMid},
		{60, TierMid},
		{59.9, TierLow},
		{0, TierLow},
	}
	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestAccuracyPct(t *testing.T) {
	if got := AccuracyPct(0, 0); got != 0 {
		t.Errorf("AccuracyPct(0,0) = %v, want 0", got)
	}
	if got := AccuracyPct(3, 1); got != 75 {
		t.Errorf("AccuracyPct(3,1) = %v, want 75", got)
	}
}

func TestExtractedDataAccessors(t *testing.T) {
	var nilData ExtractedData
	if nilData.Company() != "" {
		t.Error("nil data should have empty company")
	}
	if _, ok := nilData.Magnitude(); ok {
		t.Error("nil data should have no magnitude")
	}

	d := ExtractedData{"company": "Acme Corp", "magnitude": 150.0}
	if d.Company() != "Acme Corp" {
		t.Errorf("Company() = %q", d.Company())
	}
	m, ok := d.Magnitude()
	if !ok || m != 150 {
		t.Errorf("Magnitude() = %v, %v", m, ok)
	}

	// JSON-decoded magnitudes arrive as float64; anything else is ignored.
	bad := ExtractedData{"magnitude": "150"}
	if _, ok := bad.Magnitude(); ok {
		t.Error("string magnitude should not parse")
	}
}
