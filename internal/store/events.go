package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/aldergrove/dealsense/internal/model"
)

// SaveEvents stores events, returning the count of new rows inserted.
// Duplicates (by id) are silently ignored via INSERT OR IGNORE; the
// ingestion boundary may replay batches.
func (s *Store) SaveEvents(events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	stmt, err := s.db.Prepare(`
		INSERT OR IGNORE INTO events (
			id, user_id, source_type, category, event_type, extracted,
			geo_lat, geo_lng, city, state, source_name,
			published_at, created_at, corroborated, corroboration_count,
			source_credibility_score, early_signal_days, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, ev := range events {
		extracted, err := json.Marshal(ev.Extracted)
		if err != nil {
			return newCount, fmt.Errorf("marshal extracted data for %s: %w", ev.ID, err)
		}
		var lat, lng any
		if ev.Geo != nil {
			lat, lng = ev.Geo.Lat, ev.Geo.Lng
		}
		created := ev.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}

		result, err := stmt.Exec(
			ev.ID, ev.UserID, string(ev.SourceType), ev.Category, ev.EventType,
			string(extracted), lat, lng, ev.City, ev.State, ev.SourceName,
			ev.PublishedAt.UTC(), created,
			boolToInt(ev.Corroborated), ev.CorroborationCount,
			ev.SourceCredibilityScore, ev.EarlySignalDays,
		)
		if err != nil {
			return newCount, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return newCount, err
		}
		if affected > 0 {
			newCount++
		}
	}
	return newCount, nil
}

// GetEvent retrieves a single event by id, or ErrNotFound.
func (s *Store) GetEvent(id string) (*model.Event, error) {
	row := s.db.QueryRow(eventSelect+" WHERE id = ?", id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// PendingPrivateEvents returns private events published since the given
// time that are neither corroborated nor expired, ordered oldest first.
func (s *Store) PendingPrivateEvents(since time.Time) ([]model.Event, error) {
	return s.queryEvents(
		eventSelect+`
		 WHERE source_type = ? AND corroborated = 0 AND failed = 0 AND published_at >= ?
		 ORDER BY published_at ASC`,
		string(model.SourcePrivate), since.UTC(),
	)
}

// StalePrivateEvents returns private events that remain unconfirmed past the
// failure horizon, oldest first.
func (s *Store) StalePrivateEvents(olderThan time.Time) ([]model.Event, error) {
	return s.queryEvents(
		eventSelect+`
		 WHERE source_type = ? AND corroborated = 0 AND failed = 0 AND published_at < ?
		 ORDER BY published_at ASC`,
		string(model.SourcePrivate), olderThan.UTC(),
	)
}

// PublicEventsSince returns public events published since the given time,
// oldest first.
func (s *Store) PublicEventsSince(since time.Time) ([]model.Event, error) {
	return s.queryEvents(
		eventSelect+`
		 WHERE source_type = ? AND published_at >= ?
		 ORDER BY published_at ASC`,
		string(model.SourcePublic), since.UTC(),
	)
}

// EventCounts returns total, private and public event counts.
func (s *Store) EventCounts() (total, private, public int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN source_type = 'private' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source_type = 'public' THEN 1 ELSE 0 END), 0)
		FROM events`).Scan(&total, &private, &public)
	return
}

// MarkEventCorroborated flags the private event, records its lead time and
// nudges its credibility score. The +0.2 flat nudge is preserved legacy
// behavior pending product clarification.
func (t *Tx) MarkEventCorroborated(eventID string, leadTimeDays int, matchScore float64) error {
	nudged := math.Min(1.0, matchScore+0.2)
	_, err := t.tx.Exec(`
		UPDATE events
		SET corroborated = 1,
			early_signal_days = ?,
			corroboration_count = corroboration_count + 1,
			source_credibility_score = ?
		WHERE id = ?
	`, leadTimeDays, nudged, eventID)
	return err
}

// MarkEventFailed flags a private event as expired without corroboration.
func (t *Tx) MarkEventFailed(eventID string) error {
	_, err := t.tx.Exec(`UPDATE events SET failed = 1 WHERE id = ?`, eventID)
	return err
}

const eventSelect = `
	SELECT id, user_id, source_type, category, event_type, extracted,
		geo_lat, geo_lng, city, state, source_name,
		published_at, created_at, corroborated, corroboration_count,
		source_credibility_score, early_signal_days
	FROM events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var sourceType, extracted string
	var lat, lng sql.NullFloat64
	var corroborated int
	err := row.Scan(
		&ev.ID, &ev.UserID, &sourceType, &ev.Category, &ev.EventType, &extracted,
		&lat, &lng, &ev.City, &ev.State, &ev.SourceName,
		&ev.PublishedAt, &ev.CreatedAt, &corroborated, &ev.CorroborationCount,
		&ev.SourceCredibilityScore, &ev.EarlySignalDays,
	)
	if err != nil {
		return nil, err
	}
	ev.SourceType = model.SourceType(sourceType)
	ev.Corroborated = corroborated != 0
	if lat.Valid && lng.Valid {
		ev.Geo = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
	}
	if extracted != "" {
		if err := json.Unmarshal([]byte(extracted), &ev.Extracted); err != nil {
			return nil, fmt.Errorf("unmarshal extracted data for %s: %w", ev.ID, err)
		}
	}
	return &ev, nil
}

func (s *Store) queryEvents(query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
