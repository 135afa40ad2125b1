package store

import (
	"database/sql"
	"time"

	"github.com/aldergrove/dealsense/internal/model"
)

// InsertMatch attempts to insert a corroboration match. Returns false when a
// row for the same (private, public) pair already exists; the UNIQUE
// constraint is the source of truth for idempotence.
func (t *Tx) InsertMatch(m *model.CorroborationMatch) (bool, error) {
	result, err := t.tx.Exec(`
		INSERT OR IGNORE INTO corroboration_matches (
			id, private_event_id, public_event_id,
			location_score, entity_score, magnitude_score, temporal_score, type_score,
			match_score, lead_time_days, confidence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.PrivateEventID, m.PublicEventID,
		m.Components.Location, m.Components.Entity, m.Components.Magnitude,
		m.Components.Temporal, m.Components.Type,
		m.MatchScore, m.LeadTimeDays, string(m.Confidence), m.CreatedAt.UTC())
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MatchesForPrivateEvent returns all recorded matches for a private event.
func (s *Store) MatchesForPrivateEvent(privateEventID string) ([]model.CorroborationMatch, error) {
	rows, err := s.db.Query(matchSelect+` WHERE private_event_id = ? ORDER BY created_at ASC`, privateEventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatches(rows)
}

// MatchCount returns the total number of recorded corroboration matches.
func (s *Store) MatchCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM corroboration_matches`).Scan(&n)
	return n, err
}

const matchSelect = `
	SELECT id, private_event_id, public_event_id,
		location_score, entity_score, magnitude_score, temporal_score, type_score,
		match_score, lead_time_days, confidence, created_at
	FROM corroboration_matches`

func scanMatches(rows *sql.Rows) ([]model.CorroborationMatch, error) {
	var out []model.CorroborationMatch
	for rows.Next() {
		var m model.CorroborationMatch
		var conf string
		err := rows.Scan(
			&m.ID, &m.PrivateEventID, &m.PublicEventID,
			&m.Components.Location, &m.Components.Entity, &m.Components.Magnitude,
			&m.Components.Temporal, &m.Components.Type,
			&m.MatchScore, &m.LeadTimeDays, &conf, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		m.Confidence = model.ConfidenceBand(conf)
		out = append(out, m)
	}
	return out, rows.Err()
}

const contactSelect = `
	SELECT user_id, contact_key, total_signals, corroborated_signals,
		failed_signals, pending_signals, credibility_score,
		avg_lead_time_days, avg_corroboration_time_days,
		intelligence_value_score, consistency_score, avg_impact_magnitude,
		last_signal_at, last_corroboration_at, created_at, updated_at
	FROM contact_credibility`

func scanContact(row rowScanner) (*model.ContactCredibility, error) {
	var c model.ContactCredibility
	var lastSignal, lastCorr sql.NullTime
	err := row.Scan(
		&c.UserID, &c.ContactKey, &c.TotalSignals, &c.CorroboratedSignals,
		&c.FailedSignals, &c.PendingSignals, &c.CredibilityScore,
		&c.AvgLeadTimeDays, &c.AvgCorroborationTimeDays,
		&c.IntelligenceValueScore, &c.ConsistencyScore, &c.AvgImpactMagnitude,
		&lastSignal, &lastCorr, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSignal.Valid {
		t := lastSignal.Time
		c.LastSignalAt = &t
	}
	if lastCorr.Valid {
		t := lastCorr.Time
		c.LastCorroborationAt = &t
	}
	return &c, nil
}

// GetContact retrieves one contact credibility row, or ErrNotFound.
func (s *Store) GetContact(userID, contactKey string) (*model.ContactCredibility, error) {
	row := s.db.QueryRow(contactSelect+` WHERE user_id = ? AND contact_key = ?`, userID, contactKey)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// GetContact is the transactional variant used by the recorder.
func (t *Tx) GetContact(userID, contactKey string) (*model.ContactCredibility, error) {
	row := t.tx.QueryRow(contactSelect+` WHERE user_id = ? AND contact_key = ?`, userID, contactKey)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// InsertContact creates a fresh contact credibility row.
func (t *Tx) InsertContact(c *model.ContactCredibility) error {
	_, err := t.tx.Exec(`
		INSERT INTO contact_credibility (
			user_id, contact_key, total_signals, corroborated_signals,
			failed_signals, pending_signals, credibility_score,
			avg_lead_time_days, avg_corroboration_time_days,
			intelligence_value_score, consistency_score, avg_impact_magnitude,
			last_signal_at, last_corroboration_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.UserID, c.ContactKey, c.TotalSignals, c.CorroboratedSignals,
		c.FailedSignals, c.PendingSignals, c.CredibilityScore,
		c.AvgLeadTimeDays, c.AvgCorroborationTimeDays,
		c.IntelligenceValueScore, c.ConsistencyScore, c.AvgImpactMagnitude,
		nullableTime(c.LastSignalAt), nullableTime(c.LastCorroborationAt),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return err
}

// UpdateContact persists all counter and derived fields of a contact row.
// Fields are enumerated explicitly; no dynamic SQL assembly.
func (t *Tx) UpdateContact(c *model.ContactCredibility) error {
	_, err := t.tx.Exec(`
		UPDATE contact_credibility SET
			total_signals = ?,
			corroborated_signals = ?,
			failed_signals = ?,
			pending_signals = ?,
			credibility_score = ?,
			avg_lead_time_days = ?,
			avg_corroboration_time_days = ?,
			intelligence_value_score = ?,
			consistency_score = ?,
			avg_impact_magnitude = ?,
			last_signal_at = ?,
			last_corroboration_at = ?,
			updated_at = ?
		WHERE user_id = ? AND contact_key = ?
	`, c.TotalSignals, c.CorroboratedSignals, c.FailedSignals, c.PendingSignals,
		c.CredibilityScore, c.AvgLeadTimeDays, c.AvgCorroborationTimeDays,
		c.IntelligenceValueScore, c.ConsistencyScore, c.AvgImpactMagnitude,
		nullableTime(c.LastSignalAt), nullableTime(c.LastCorroborationAt),
		time.Now().UTC(), c.UserID, c.ContactKey)
	return err
}

// ListContacts returns all contacts for a user, ranked by intelligence value
// then credibility.
func (s *Store) ListContacts(userID string) ([]model.ContactCredibility, error) {
	rows, err := s.db.Query(contactSelect+`
		WHERE user_id = ?
		ORDER BY intelligence_value_score DESC, credibility_score DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// ActiveContacts returns the user's contacts that have at least one signal,
// for the network intelligence-value ranking.
func (s *Store) ActiveContacts(userID string) ([]model.ContactCredibility, error) {
	rows, err := s.db.Query(contactSelect+`
		WHERE user_id = ? AND total_signals > 0
		ORDER BY intelligence_value_score DESC, credibility_score DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func collectContacts(rows *sql.Rows) ([]model.ContactCredibility, error) {
	var out []model.ContactCredibility
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const specialtySelect = `
	SELECT id, user_id, contact_key, category, event_type,
		total_signals, corroborated_signals, failed_signals,
		base_accuracy, specialty_bonus, specialty_score, updated_at
	FROM specialty_scores`

func scanSpecialty(row rowScanner) (*model.SpecialtyScore, error) {
	var sp model.SpecialtyScore
	err := row.Scan(
		&sp.ID, &sp.UserID, &sp.ContactKey, &sp.Category, &sp.EventType,
		&sp.TotalSignals, &sp.CorroboratedSignals, &sp.FailedSignals,
		&sp.BaseAccuracy, &sp.SpecialtyBonus, &sp.SpecialtyScore, &sp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// GetSpecialty retrieves one specialty row, or ErrNotFound. An empty
// eventType addresses the category-level row.
func (t *Tx) GetSpecialty(userID, contactKey, category, eventType string) (*model.SpecialtyScore, error) {
	row := t.tx.QueryRow(specialtySelect+`
		WHERE user_id = ? AND contact_key = ? AND category = ? AND event_type = ?`,
		userID, contactKey, category, eventType)
	sp, err := scanSpecialty(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sp, err
}

// GetSpecialty is the read-path variant outside a transaction.
func (s *Store) GetSpecialty(userID, contactKey, category, eventType string) (*model.SpecialtyScore, error) {
	row := s.db.QueryRow(specialtySelect+`
		WHERE user_id = ? AND contact_key = ? AND category = ? AND event_type = ?`,
		userID, contactKey, category, eventType)
	sp, err := scanSpecialty(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sp, err
}

// SpecialtiesFor returns all specialty rows for a contact.
func (s *Store) SpecialtiesFor(userID, contactKey string) ([]model.SpecialtyScore, error) {
	rows, err := s.db.Query(specialtySelect+`
		WHERE user_id = ? AND contact_key = ?
		ORDER BY category, event_type`, userID, contactKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SpecialtyScore
	for rows.Next() {
		sp, err := scanSpecialty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

// UpsertSpecialty inserts or replaces a specialty row keyed by
// (user, contact, category, type).
func (t *Tx) UpsertSpecialty(sp *model.SpecialtyScore) error {
	_, err := t.tx.Exec(`
		INSERT INTO specialty_scores (
			id, user_id, contact_key, category, event_type,
			total_signals, corroborated_signals, failed_signals,
			base_accuracy, specialty_bonus, specialty_score, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, contact_key, category, event_type) DO UPDATE SET
			total_signals = excluded.total_signals,
			corroborated_signals = excluded.corroborated_signals,
			failed_signals = excluded.failed_signals,
			base_accuracy = excluded.base_accuracy,
			specialty_bonus = excluded.specialty_bonus,
			specialty_score = excluded.specialty_score,
			updated_at = excluded.updated_at
	`, sp.ID, sp.UserID, sp.ContactKey, sp.Category, sp.EventType,
		sp.TotalSignals, sp.CorroboratedSignals, sp.FailedSignals,
		sp.BaseAccuracy, sp.SpecialtyBonus, sp.SpecialtyScore, time.Now().UTC())
	return err
}

// AppendHistory writes one append-only credibility history entry.
func (t *Tx) AppendHistory(h *model.CredibilityHistory) error {
	_, err := t.tx.Exec(`
		INSERT INTO credibility_history (
			id, user_id, contact_key, change_type, change_reason,
			total_signals, corroborated_signals, failed_signals, pending_signals,
			credibility_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.UserID, h.ContactKey, string(h.ChangeType), h.ChangeReason,
		h.TotalSignals, h.CorroboratedSignals, h.FailedSignals, h.PendingSignals,
		h.CredibilityScore, h.CreatedAt.UTC())
	return err
}

// HistoryFor returns a contact's history ledger, newest first.
func (s *Store) HistoryFor(userID, contactKey string, limit int) ([]model.CredibilityHistory, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, contact_key, change_type, change_reason,
			total_signals, corroborated_signals, failed_signals, pending_signals,
			credibility_score, created_at
		FROM credibility_history
		WHERE user_id = ? AND contact_key = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, contactKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CredibilityHistory
	for rows.Next() {
		var h model.CredibilityHistory
		var changeType string
		err := rows.Scan(
			&h.ID, &h.UserID, &h.ContactKey, &changeType, &h.ChangeReason,
			&h.TotalSignals, &h.CorroboratedSignals, &h.FailedSignals, &h.PendingSignals,
			&h.CredibilityScore, &h.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		h.ChangeType = model.ChangeType(changeType)
		out = append(out, h)
	}
	return out, rows.Err()
}

// AppendIntelligenceValue writes one intelligence-value ledger row.
func (t *Tx) AppendIntelligenceValue(iv *model.IntelligenceValue) error {
	_, err := t.tx.Exec(`
		INSERT INTO intelligence_values (
			id, user_id, contact_key, private_event_id,
			lead_time_days, corroboration_days, impact_magnitude, match_score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, iv.ID, iv.UserID, iv.ContactKey, iv.PrivateEventID,
		iv.LeadTimeDays, iv.CorroborationDays, iv.ImpactMagnitude, iv.MatchScore,
		iv.CreatedAt.UTC())
	return err
}

// IntelligenceLedger returns all intelligence-value rows for a contact,
// oldest first. The recorder recomputes derived aggregates from this inside
// the same transaction that appended to it.
func (t *Tx) IntelligenceLedger(userID, contactKey string) ([]model.IntelligenceValue, error) {
	rows, err := t.tx.Query(`
		SELECT id, user_id, contact_key, private_event_id,
			lead_time_days, corroboration_days, impact_magnitude, match_score, created_at
		FROM intelligence_values
		WHERE user_id = ? AND contact_key = ?
		ORDER BY created_at ASC`, userID, contactKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IntelligenceValue
	for rows.Next() {
		var iv model.IntelligenceValue
		err := rows.Scan(
			&iv.ID, &iv.UserID, &iv.ContactKey, &iv.PrivateEventID,
			&iv.LeadTimeDays, &iv.CorroborationDays, &iv.ImpactMagnitude,
			&iv.MatchScore, &iv.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// UpsertPrediction stores a forecast keyed by event id; recomputation
// replaces the prior forecast.
func (s *Store) UpsertPrediction(p *model.PredictiveCredibility) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO predictive_credibility (
			event_id, user_id, contact_key, predicted_accuracy,
			predicted_corroboration_days, confidence, applied_weight, basis,
			sample_size, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			predicted_accuracy = excluded.predicted_accuracy,
			predicted_corroboration_days = excluded.predicted_corroboration_days,
			confidence = excluded.confidence,
			applied_weight = excluded.applied_weight,
			basis = excluded.basis,
			sample_size = excluded.sample_size,
			updated_at = excluded.updated_at
	`, p.EventID, p.UserID, p.ContactKey, p.PredictedAccuracy,
		p.PredictedCorroborationDays, string(p.Confidence), p.AppliedWeight,
		p.Basis, p.SampleSize, now, now)
	return err
}

// GetPrediction retrieves the stored forecast for an event, or ErrNotFound.
func (s *Store) GetPrediction(eventID string) (*model.PredictiveCredibility, error) {
	var p model.PredictiveCredibility
	var conf string
	err := s.db.QueryRow(`
		SELECT event_id, user_id, contact_key, predicted_accuracy,
			predicted_corroboration_days, confidence, applied_weight, basis,
			sample_size, created_at, updated_at
		FROM predictive_credibility WHERE event_id = ?`, eventID).Scan(
		&p.EventID, &p.UserID, &p.ContactKey, &p.PredictedAccuracy,
		&p.PredictedCorroborationDays, &conf, &p.AppliedWeight, &p.Basis,
		&p.SampleSize, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Confidence = model.ConfidenceBand(conf)
	return &p, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
