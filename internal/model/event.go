// Package model defines the domain records shared by the corroboration
// engine: events, contact credibility aggregates, matches and forecasts.
package model

import (
	"time"
)

// SourceType distinguishes privately-sourced signals from published events.
type SourceType string

const (
	SourcePrivate SourceType = "private"
	SourcePublic  SourceType = "public"
)

// GeoPoint is a geocoded location.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// ExtractedData holds the structured fields pulled out of an event by the
// upstream ingestion pipeline. Stored as JSON; only the keys the engine
// scores on get typed accessors.
type ExtractedData map[string]any

// Company returns the extracted entity/company name, or "" if absent.
func (d ExtractedData) Company() string {
	if d == nil {
		return ""
	}
	if v, ok := d["company"].(string); ok {
		return v
	}
	return ""
}

// Magnitude returns the extracted numeric magnitude (jobs, square feet,
// dollars - the taxonomy decides) and whether one was present.
func (d ExtractedData) Magnitude() (float64, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d["magnitude"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Event is a single observed occurrence, private or public.
// Created by the ingestion pipeline; the engine mutates private events in
// place when a corroboration is confirmed, and never deletes.
type Event struct {
	ID         string
	UserID     string
	SourceType SourceType
	Category   string // e.g. "employment"
	EventType  string // e.g. "employment.expansion"

	Extracted ExtractedData
	Geo       *GeoPoint
	City      string
	State     string

	// SourceName carries the attribution string for private events,
	// conventionally "Email: <address>".
	SourceName string

	PublishedAt time.Time
	CreatedAt   time.Time

	// Private-event lifecycle fields.
	Corroborated           bool
	CorroborationCount     int
	SourceCredibilityScore float64
	EarlySignalDays        int
}

// IsPrivate reports whether the event is a private signal.
func (e *Event) IsPrivate() bool { return e.SourceType == SourcePrivate }
