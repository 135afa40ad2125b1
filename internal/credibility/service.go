package credibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

// ErrNoHistory indicates a prediction was requested for a contact with no
// credibility record; the caller surfaces "no prediction available".
var ErrNoHistory = errors.New("no credibility history for contact")

// Service is the credibility aggregator: the read-side views over contact
// track records and the write path for newly ingested signals.
type Service struct {
	store *store.Store
	locks *store.ContactLocks
}

// NewService creates a credibility service over the given store. The lock
// table must be shared with the corroboration recorder so signal tracking
// and corroboration recording serialize on the same contact.
func NewService(st *store.Store, locks *store.ContactLocks) *Service {
	return &Service{store: st, locks: locks}
}

// Profile is a contact's credibility row joined with its specialty
// breakdown.
type Profile struct {
	Contact     model.ContactCredibility
	Specialties []model.SpecialtyScore
}

// GetSourceCredibility returns one contact's profile, or store.ErrNotFound.
func (s *Service) GetSourceCredibility(userID, contactKey string) (*Profile, error) {
	contact, err := s.store.GetContact(userID, contactKey)
	if err != nil {
		return nil, err
	}
	specialties, err := s.store.SpecialtiesFor(userID, contactKey)
	if err != nil {
		return nil, err
	}
	return &Profile{Contact: *contact, Specialties: specialties}, nil
}

// ListSources returns all of a user's contacts ranked by intelligence value
// score descending, then credibility score descending.
func (s *Service) ListSources(userID string) ([]model.ContactCredibility, error) {
	return s.store.ListContacts(userID)
}

// NetworkEntry is one contact in the network-wide value ranking.
type NetworkEntry struct {
	Contact  model.ContactCredibility
	Tier     model.Tier
	Accuracy float64 // percent, 0 when nothing resolved
}

// NetworkIntelligenceValue ranks the user's active contacts (those with at
// least one signal) into top/mid/low tiers.
func (s *Service) NetworkIntelligenceValue(userID string) ([]NetworkEntry, error) {
	contacts, err := s.store.ActiveContacts(userID)
	if err != nil {
		return nil, err
	}
	entries := make([]NetworkEntry, 0, len(contacts))
	for _, c := range contacts {
		entries = append(entries, NetworkEntry{
			Contact:  c,
			Tier:     model.TierFor(c.IntelligenceValueScore),
			Accuracy: c.Accuracy(),
		})
	}
	return entries, nil
}

// TrackSignal registers a newly ingested private signal against its
// originating contact: the credibility row is created lazily, signal
// counters increment, the specialty rows grow, and a history entry is
// appended. Events without attribution return model.ErrAttributionMissing.
func (s *Service) TrackSignal(ctx context.Context, ev *model.Event) error {
	if !ev.IsPrivate() {
		return fmt.Errorf("event %s is not a private signal", ev.ID)
	}
	contactKey, err := model.ContactFromSource(ev.SourceName)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(ev.UserID, contactKey)
	defer unlock()

	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		now := time.Now().UTC()
		signalAt := ev.PublishedAt.UTC()

		contact, err := tx.GetContact(ev.UserID, contactKey)
		if errors.Is(err, store.ErrNotFound) {
			contact = &model.ContactCredibility{
				UserID:           ev.UserID,
				ContactKey:       contactKey,
				CredibilityScore: 0.5,
				ConsistencyScore: 1.0,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := tx.InsertContact(contact); err != nil {
				return fmt.Errorf("create contact %s: %w", contactKey, err)
			}
		} else if err != nil {
			return err
		}

		contact.TotalSignals++
		contact.PendingSignals++
		contact.LastSignalAt = &signalAt
		if err := tx.UpdateContact(contact); err != nil {
			return fmt.Errorf("update contact %s: %w", contactKey, err)
		}

		if err := BumpSpecialties(tx, ev.UserID, contactKey, ev.Category, ev.EventType, func(sp *model.SpecialtyScore) {
			sp.TotalSignals++
		}); err != nil {
			return err
		}

		return tx.AppendHistory(&model.CredibilityHistory{
			ID:                  uuid.NewString(),
			UserID:              ev.UserID,
			ContactKey:          contactKey,
			ChangeType:          model.ChangeSignal,
			ChangeReason:        fmt.Sprintf("new signal %s (%s)", ev.ID, ev.EventType),
			TotalSignals:        contact.TotalSignals,
			CorroboratedSignals: contact.CorroboratedSignals,
			FailedSignals:       contact.FailedSignals,
			PendingSignals:      contact.PendingSignals,
			CredibilityScore:    contact.CredibilityScore,
			CreatedAt:           now,
		})
	})
}

// BumpSpecialties applies a counter mutation to both the type-level and the
// category-level specialty rows, creating them as needed, and recomputes
// their scores.
func BumpSpecialties(tx *store.Tx, userID, contactKey, category, eventType string, mutate func(*model.SpecialtyScore)) error {
	keys := []string{""}
	if eventType != "" {
		keys = []string{eventType, ""}
	}
	for _, typ := range keys {
		sp, err := tx.GetSpecialty(userID, contactKey, category, typ)
		if errors.Is(err, store.ErrNotFound) {
			sp = &model.SpecialtyScore{
				ID:         uuid.NewString(),
				UserID:     userID,
				ContactKey: contactKey,
				Category:   category,
				EventType:  typ,
			}
		} else if err != nil {
			return err
		}
		mutate(sp)
		// Counters stay internally consistent even if signals were never
		// tracked for this specialty before resolution.
		if sp.TotalSignals < sp.CorroboratedSignals+sp.FailedSignals {
			sp.TotalSignals = sp.CorroboratedSignals + sp.FailedSignals
		}
		RecomputeSpecialty(sp)
		if err := tx.UpsertSpecialty(sp); err != nil {
			return fmt.Errorf("upsert specialty %s/%s: %w", category, typ, err)
		}
	}
	return nil
}

// Default forecast horizon when a contact has no corroboration history to
// extrapolate from.
const defaultPredictedDays = 30.0

// Predict computes and stores the accuracy forecast for one private event
// per the contact's historical and specialty track record. The result is
// upserted keyed by event id; recomputation replaces the prior forecast.
func (s *Service) Predict(ctx context.Context, eventID string) (*model.PredictiveCredibility, error) {
	ev, err := s.store.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsPrivate() {
		return nil, fmt.Errorf("event %s is not a private signal", eventID)
	}

	contactKey, err := model.ContactFromSource(ev.SourceName)
	if err != nil {
		return nil, ErrNoHistory
	}
	contact, err := s.store.GetContact(ev.UserID, contactKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, err
	}

	// Overall track record; neutral 50 until something resolves.
	historicalAccuracy := 50.0
	if contact.CorroboratedSignals+contact.FailedSignals > 0 {
		historicalAccuracy = contact.Accuracy()
	}

	// Prefer the exact-type specialty, fall back to the category-level row.
	predicted := historicalAccuracy
	basis := "historical"
	if sp := s.bestSpecialty(ev.UserID, contactKey, ev.Category, ev.EventType); sp != nil {
		predicted = sp.SpecialtyScore
		basis = "specialty:" + sp.Category
		if sp.EventType != "" {
			basis += "/" + sp.EventType
		}
	}

	days := contact.AvgCorroborationTimeDays
	if days <= 0 {
		days = contact.AvgLeadTimeDays
	}
	if days <= 0 {
		days = defaultPredictedDays
	}

	forecast := &model.PredictiveCredibility{
		EventID:                    ev.ID,
		UserID:                     ev.UserID,
		ContactKey:                 contactKey,
		PredictedAccuracy:          predicted,
		PredictedCorroborationDays: days,
		Confidence:                 model.Confidence(predicted/100, contact.TotalSignals),
		AppliedWeight:              predicted / 100,
		Basis:                      basis,
		SampleSize:                 contact.TotalSignals,
	}

	if err := s.store.UpsertPrediction(forecast); err != nil {
		return nil, fmt.Errorf("store prediction for %s: %w", eventID, err)
	}

	logging.Debug("Prediction stored",
		"event", ev.ID, "contact", contactKey,
		"accuracy", forecast.PredictedAccuracy, "basis", basis,
		"confidence", forecast.Confidence)
	return forecast, nil
}

// bestSpecialty returns the exact-type specialty row when present,
// otherwise the category-level row, otherwise nil. Rows with nothing
// resolved carry no signal and are skipped.
func (s *Service) bestSpecialty(userID, contactKey, category, eventType string) *model.SpecialtyScore {
	if eventType != "" {
		if sp, err := s.store.GetSpecialty(userID, contactKey, category, eventType); err == nil {
			if sp.CorroboratedSignals+sp.FailedSignals > 0 {
				return sp
			}
		}
	}
	if sp, err := s.store.GetSpecialty(userID, contactKey, category, ""); err == nil {
		if sp.CorroboratedSignals+sp.FailedSignals > 0 {
			return sp
		}
	}
	return nil
}
