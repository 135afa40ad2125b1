package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldergrove/dealsense/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testEvent(id, userID string, sourceType model.SourceType, published time.Time) model.Event {
	return model.Event{
		ID:          id,
		UserID:      userID,
		SourceType:  sourceType,
		Category:    "employment",
		EventType:   "employment.expansion",
		Extracted:   model.ExtractedData{"company": "Acme Corp", "magnitude": 150.0},
		City:        "Tulsa",
		State:       "OK",
		SourceName:  "Email: jane@example.com",
		PublishedAt: published,
	}
}

func TestSaveEventsIgnoresDuplicates(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()

	events := []model.Event{
		testEvent("ev-1", "u1", model.SourcePrivate, now),
		testEvent("ev-2", "u1", model.SourcePublic, now),
	}
	n, err := st.SaveEvents(events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Replay the same batch: nothing new.
	n, err = st.SaveEvents(events)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	total, private, public, err := st.EventCounts()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, private)
	assert.Equal(t, 1, public)
}

func TestGetEventRoundTrip(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	ev := testEvent("ev-geo", "u1", model.SourcePrivate, now)
	ev.Geo = &model.GeoPoint{Lat: 36.15, Lng: -95.99}
	_, err := st.SaveEvents([]model.Event{ev})
	require.NoError(t, err)

	got, err := st.GetEvent("ev-geo")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, model.SourcePrivate, got.SourceType)
	assert.Equal(t, "Acme Corp", got.Extracted.Company())
	mag, ok := got.Extracted.Magnitude()
	require.True(t, ok)
	assert.Equal(t, 150.0, mag)
	require.NotNil(t, got.Geo)
	assert.InDelta(t, 36.15, got.Geo.Lat, 1e-9)
	assert.False(t, got.Corroborated)

	_, err = st.GetEvent("no-such-event")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingPrivateEvents(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()

	pending := testEvent("ev-pending", "u1", model.SourcePrivate, now.AddDate(0, 0, -5))
	old := testEvent("ev-old", "u1", model.SourcePrivate, now.AddDate(0, 0, -200))
	public := testEvent("ev-pub", "u1", model.SourcePublic, now)
	_, err := st.SaveEvents([]model.Event{pending, old, public})
	require.NoError(t, err)

	got, err := st.PendingPrivateEvents(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-pending", got[0].ID)

	// Corroborated events leave the pending set.
	err = st.WithTx(context.Background(), func(tx *Tx) error {
		return tx.MarkEventCorroborated("ev-pending", 12, 0.8)
	})
	require.NoError(t, err)

	got, err = st.PendingPrivateEvents(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Empty(t, got)

	ev, err := st.GetEvent("ev-pending")
	require.NoError(t, err)
	assert.True(t, ev.Corroborated)
	assert.Equal(t, 12, ev.EarlySignalDays)
	assert.Equal(t, 1, ev.CorroborationCount)
	assert.InDelta(t, 1.0, ev.SourceCredibilityScore, 1e-9) // 0.8+0.2 capped
}

func TestStalePrivateEvents(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()

	stale := testEvent("ev-stale", "u1", model.SourcePrivate, now.AddDate(0, 0, -200))
	fresh := testEvent("ev-fresh", "u1", model.SourcePrivate, now.AddDate(0, 0, -5))
	_, err := st.SaveEvents([]model.Event{stale, fresh})
	require.NoError(t, err)

	got, err := st.StalePrivateEvents(now.AddDate(0, 0, -180))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-stale", got[0].ID)

	err = st.WithTx(context.Background(), func(tx *Tx) error {
		return tx.MarkEventFailed("ev-stale")
	})
	require.NoError(t, err)

	got, err = st.StalePrivateEvents(now.AddDate(0, 0, -180))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertMatchIdempotent(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	_, err := st.SaveEvents([]model.Event{
		testEvent("prv", "u1", model.SourcePrivate, now.AddDate(0, 0, -10)),
		testEvent("pub", "u1", model.SourcePublic, now),
	})
	require.NoError(t, err)

	m := &model.CorroborationMatch{
		ID:             "m-1",
		PrivateEventID: "prv",
		PublicEventID:  "pub",
		Components:     model.ComponentScores{Location: 1, Entity: 1, Magnitude: 1, Temporal: 0.9, Type: 1},
		MatchScore:     0.98,
		LeadTimeDays:   10,
		Confidence:     model.ConfidenceLow,
		CreatedAt:      now,
	}

	err = st.WithTx(context.Background(), func(tx *Tx) error {
		inserted, err := tx.InsertMatch(m)
		require.NoError(t, err)
		assert.True(t, inserted)
		return nil
	})
	require.NoError(t, err)

	// Same pair under a different id still collides on the unique constraint.
	dup := *m
	dup.ID = "m-2"
	err = st.WithTx(context.Background(), func(tx *Tx) error {
		inserted, err := tx.InsertMatch(&dup)
		require.NoError(t, err)
		assert.False(t, inserted)
		return nil
	})
	require.NoError(t, err)

	matches, err := st.MatchesForPrivateEvent("prv")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "m-1", matches[0].ID)
	assert.Equal(t, 10, matches[0].LeadTimeDays)
	assert.InDelta(t, 0.98, matches[0].MatchScore, 1e-9)
}

func TestContactCRUD(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	ctx := context.Background()

	_, err := st.GetContact("u1", "jane@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertContact(&model.ContactCredibility{
			UserID:           "u1",
			ContactKey:       "jane@example.com",
			TotalSignals:     1,
			PendingSignals:   1,
			CredibilityScore: 0.5,
			ConsistencyScore: 1.0,
			LastSignalAt:     &now,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	require.NoError(t, err)

	c, err := st.GetContact("u1", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalSignals)
	assert.InDelta(t, 0.5, c.CredibilityScore, 1e-9)
	require.NotNil(t, c.LastSignalAt)
	assert.Nil(t, c.LastCorroborationAt)

	c.CorroboratedSignals = 1
	c.PendingSignals = 0
	c.CredibilityScore = 1.0
	c.LastCorroborationAt = &now
	err = st.WithTx(ctx, func(tx *Tx) error { return tx.UpdateContact(c) })
	require.NoError(t, err)

	c, err = st.GetContact("u1", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, c.CorroboratedSignals)
	assert.Equal(t, 0, c.PendingSignals)
	require.NotNil(t, c.LastCorroborationAt)
}

func TestListContactsOrdering(t *testing.T) {
	st := openTestStore(t)
	now := time.Now().UTC()
	ctx := context.Background()

	insert := func(key string, value float64, signals int) {
		err := st.WithTx(ctx, func(tx *Tx) error {
			return tx.InsertContact(&model.ContactCredibility{
				UserID:                 "u1",
				ContactKey:             key,
				TotalSignals:           signals,
				IntelligenceValueScore: value,
				CreatedAt:              now,
				UpdatedAt:              now,
			})
		})
		require.NoError(t, err)
	}
	insert("low@example.com", 20, 3)
	insert("high@example.com", 90, 5)
	insert("idle@example.com", 0, 0)

	all, err := st.ListContacts("u1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "high@example.com", all[0].ContactKey)
	assert.Equal(t, "idle@example.com", all[2].ContactKey)

	// Active ranking excludes contacts with no signals.
	active, err := st.ActiveContacts("u1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "high@example.com", active[0].ContactKey)
}

func TestSpecialtyUpsert(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	sp := &model.SpecialtyScore{
		ID:           "sp-1",
		UserID:       "u1",
		ContactKey:   "jane@example.com",
		Category:     "employment",
		EventType:    "employment.expansion",
		TotalSignals: 1,
	}
	err := st.WithTx(ctx, func(tx *Tx) error { return tx.UpsertSpecialty(sp) })
	require.NoError(t, err)

	sp.TotalSignals = 2
	sp.CorroboratedSignals = 1
	sp.SpecialtyScore = 52
	err = st.WithTx(ctx, func(tx *Tx) error { return tx.UpsertSpecialty(sp) })
	require.NoError(t, err)

	got, err := st.GetSpecialty("u1", "jane@example.com", "employment", "employment.expansion")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSignals)
	assert.Equal(t, 1, got.CorroboratedSignals)
	assert.InDelta(t, 52, got.SpecialtyScore, 1e-9)

	// Category-level row (empty event type) is a distinct row.
	_, err = st.GetSpecialty("u1", "jane@example.com", "employment", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryAndLedger(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	err := st.WithTx(ctx, func(tx *Tx) error {
		for i, ct := range []model.ChangeType{model.ChangeSignal, model.ChangeCorroborated} {
			if err := tx.AppendHistory(&model.CredibilityHistory{
				ID:         string(rune('a' + i)),
				UserID:     "u1",
				ContactKey: "jane@example.com",
				ChangeType: ct,
				CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			}); err != nil {
				return err
			}
		}
		return tx.AppendIntelligenceValue(&model.IntelligenceValue{
			ID:              "iv-1",
			UserID:          "u1",
			ContactKey:      "jane@example.com",
			PrivateEventID:  "prv",
			LeadTimeDays:    14,
			ImpactMagnitude: 200,
			MatchScore:      0.9,
			CreatedAt:       base,
		})
	})
	require.NoError(t, err)

	// Newest first.
	hist, err := st.HistoryFor("u1", "jane@example.com", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, model.ChangeCorroborated, hist[0].ChangeType)

	err = st.WithTx(ctx, func(tx *Tx) error {
		ledger, err := tx.IntelligenceLedger("u1", "jane@example.com")
		require.NoError(t, err)
		require.Len(t, ledger, 1)
		assert.Equal(t, 14, ledger[0].LeadTimeDays)
		return nil
	})
	require.NoError(t, err)
}

func TestPredictionUpsertReplaces(t *testing.T) {
	st := openTestStore(t)

	p := &model.PredictiveCredibility{
		EventID:                    "ev-1",
		UserID:                     "u1",
		ContactKey:                 "jane@example.com",
		PredictedAccuracy:          50,
		PredictedCorroborationDays: 30,
		Confidence:                 model.ConfidenceLow,
		AppliedWeight:              0.5,
		Basis:                      "historical",
		SampleSize:                 1,
	}
	require.NoError(t, st.UpsertPrediction(p))

	p.PredictedAccuracy = 82
	p.Confidence = model.ConfidenceHigh
	p.SampleSize = 6
	require.NoError(t, st.UpsertPrediction(p))

	got, err := st.GetPrediction("ev-1")
	require.NoError(t, err)
	assert.InDelta(t, 82, got.PredictedAccuracy, 1e-9)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.Equal(t, 6, got.SampleSize)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx *Tx) error {
		if err := tx.InsertContact(&model.ContactCredibility{
			UserID: "u1", ContactKey: "jane@example.com",
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.GetContact("u1", "jane@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
