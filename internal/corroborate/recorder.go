package corroborate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

// ErrAlreadyCorroborated indicates the (private, public) pair was recorded
// by an earlier run; the attempt is a no-op.
var ErrAlreadyCorroborated = errors.New("pair already corroborated")

// Recorder persists a confirmed corroboration: the match row, the event
// flags, the contact counters and aggregates, the specialty rows, the
// intelligence-value ledger entry and the history entry, all in one
// transaction.
type Recorder struct {
	store *store.Store
	locks *store.ContactLocks
}

// NewRecorder creates a recorder. The lock table must be the one shared
// with the credibility service.
func NewRecorder(st *store.Store, locks *store.ContactLocks) *Recorder {
	return &Recorder{store: st, locks: locks}
}

// Record writes a candidate's corroboration. Duplicate pairs return
// ErrAlreadyCorroborated without side effects. When the private event
// carries no usable contact attribution the match and event flags still
// commit; the credibility aggregates are skipped.
func (r *Recorder) Record(ctx context.Context, cand *Candidate) error {
	contactKey, attrErr := model.ContactFromSource(cand.Private.SourceName)
	if attrErr != nil {
		logging.Warn("Corroboration without contact attribution",
			"event", cand.Private.ID, "source", cand.Private.SourceName)
	} else {
		unlock := r.locks.Lock(cand.Private.UserID, contactKey)
		defer unlock()
	}

	confidence := cand.Confidence
	if attrErr == nil {
		// Band by the contact's track record, not the single pair.
		if c, err := r.store.GetContact(cand.Private.UserID, contactKey); err == nil {
			confidence = model.Confidence(cand.MatchScore, c.TotalSignals)
		}
	}

	return r.store.WithTx(ctx, func(tx *store.Tx) error {
		now := time.Now().UTC()

		match := &model.CorroborationMatch{
			ID:             uuid.NewString(),
			PrivateEventID: cand.Private.ID,
			PublicEventID:  cand.Public.ID,
			Components:     cand.Components,
			MatchScore:     cand.MatchScore,
			LeadTimeDays:   cand.LeadTimeDays,
			Confidence:     confidence,
			CreatedAt:      now,
		}

		inserted, err := tx.InsertMatch(match)
		if err != nil {
			return fmt.Errorf("insert match %s/%s: %w", cand.Private.ID, cand.Public.ID, err)
		}
		if !inserted {
			return ErrAlreadyCorroborated
		}

		if err := tx.MarkEventCorroborated(cand.Private.ID, cand.LeadTimeDays, cand.MatchScore); err != nil {
			return fmt.Errorf("mark event %s corroborated: %w", cand.Private.ID, err)
		}

		if attrErr != nil {
			// Match and event flags commit; nothing to attribute.
			return nil
		}

		contact, err := tx.GetContact(cand.Private.UserID, contactKey)
		if errors.Is(err, store.ErrNotFound) {
			// Signal was never tracked at ingestion; create the row now so
			// the corroboration still lands on a real aggregate.
			contact = &model.ContactCredibility{
				UserID:           cand.Private.UserID,
				ContactKey:       contactKey,
				TotalSignals:     1,
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

		contact.CorroboratedSignals++
		if contact.PendingSignals > 0 {
			contact.PendingSignals--
		}
		if contact.TotalSignals < contact.CorroboratedSignals+contact.FailedSignals {
			contact.TotalSignals = contact.CorroboratedSignals + contact.FailedSignals
		}
		contact.LastCorroborationAt = &now

		if err := credibility.BumpSpecialties(tx, cand.Private.UserID, contactKey,
			cand.Private.Category, cand.Private.EventType, func(sp *model.SpecialtyScore) {
				sp.CorroboratedSignals++
			}); err != nil {
			return err
		}

		impact, _ := cand.Private.Extracted.Magnitude()
		if err := tx.AppendIntelligenceValue(&model.IntelligenceValue{
			ID:                uuid.NewString(),
			UserID:            cand.Private.UserID,
			ContactKey:        contactKey,
			PrivateEventID:    cand.Private.ID,
			LeadTimeDays:      cand.LeadTimeDays,
			CorroborationDays: now.Sub(cand.Private.PublishedAt.UTC()).Hours() / 24,
			ImpactMagnitude:   impact,
			MatchScore:        cand.MatchScore,
			CreatedAt:         now,
		}); err != nil {
			return fmt.Errorf("append intelligence value: %w", err)
		}

		ledger, err := tx.IntelligenceLedger(cand.Private.UserID, contactKey)
		if err != nil {
			return err
		}
		credibility.Recompute(contact, ledger)

		if err := tx.UpdateContact(contact); err != nil {
			return fmt.Errorf("update contact %s: %w", contactKey, err)
		}

		return tx.AppendHistory(&model.CredibilityHistory{
			ID:         uuid.NewString(),
			UserID:     cand.Private.UserID,
			ContactKey: contactKey,
			ChangeType: model.ChangeCorroborated,
			ChangeReason: fmt.Sprintf("signal %s corroborated by %s (score %.2f, lead %dd)",
				cand.Private.ID, cand.Public.ID, cand.MatchScore, cand.LeadTimeDays),
			TotalSignals:        contact.TotalSignals,
			CorroboratedSignals: contact.CorroboratedSignals,
			FailedSignals:       contact.FailedSignals,
			PendingSignals:      contact.PendingSignals,
			CredibilityScore:    contact.CredibilityScore,
			CreatedAt:           now,
		})
	})
}
