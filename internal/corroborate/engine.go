package corroborate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/metrics"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

// Engine runs full corroboration passes: candidate generation followed by
// recording, continuing past individual failures.
type Engine struct {
	store     *store.Store
	generator *Generator
	recorder  *Recorder
	metrics   *metrics.Metrics // nil disables instrumentation
}

// NewEngine wires a detection engine. metrics may be nil.
func NewEngine(st *store.Store, gen *Generator, rec *Recorder, m *metrics.Metrics) *Engine {
	return &Engine{store: st, generator: gen, recorder: rec, metrics: m}
}

// Report summarizes one detection pass.
type Report struct {
	PairsScored int
	Candidates  int
	Recorded    int
	Duplicates  int
	Failures    int
	Elapsed     time.Duration
}

// Detect generates candidates over the lookback window and records each
// one. A failed recording rolls back that candidate only; the pass keeps
// going and the failure is counted in the report.
func (e *Engine) Detect(ctx context.Context) (*Report, error) {
	started := time.Now()

	candidates, pairs, err := e.generator.Candidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate candidates: %w", err)
	}

	report := &Report{PairsScored: pairs, Candidates: len(candidates)}
	if e.metrics != nil {
		e.metrics.PairsScored.Add(float64(pairs))
		e.metrics.CandidatesFound.Add(float64(len(candidates)))
	}

	for i := range candidates {
		cand := &candidates[i]
		err := e.recorder.Record(ctx, cand)
		switch {
		case err == nil:
			report.Recorded++
			if e.metrics != nil {
				e.metrics.MatchesRecorded.Inc()
			}
			logging.Info("Corroboration recorded",
				"private", cand.Private.ID, "public", cand.Public.ID,
				"score", fmt.Sprintf("%.3f", cand.MatchScore),
				"lead_days", cand.LeadTimeDays)
		case errors.Is(err, ErrAlreadyCorroborated):
			report.Duplicates++
			if e.metrics != nil {
				e.metrics.DuplicateSkips.Inc()
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return report, err
		default:
			report.Failures++
			if e.metrics != nil {
				e.metrics.RecordFailures.Inc()
			}
			logging.Error("Recording corroboration failed",
				"private", cand.Private.ID, "public", cand.Public.ID, "error", err)
		}
	}

	report.Elapsed = time.Since(started)
	if e.metrics != nil {
		e.metrics.DetectRuns.Inc()
		e.metrics.DetectDuration.Observe(report.Elapsed.Seconds())
	}
	logging.Info("Detection pass complete",
		"pairs", report.PairsScored, "candidates", report.Candidates,
		"recorded", report.Recorded, "duplicates", report.Duplicates,
		"failures", report.Failures, "elapsed", report.Elapsed)
	return report, nil
}

// ExpireStale marks private signals unconfirmed past the failure horizon as
// failed and charges the miss to the originating contact. Returns the
// number of signals expired.
func (e *Engine) ExpireStale(ctx context.Context, failAfter time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-failAfter)
	stale, err := e.store.StalePrivateEvents(cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		ev := stale[i]
		if err := e.expireOne(ctx, &ev); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return expired, err
			}
			logging.Error("Expiring signal failed", "event", ev.ID, "error", err)
			continue
		}
		expired++
		if e.metrics != nil {
			e.metrics.SignalsExpired.Inc()
		}
	}
	if expired > 0 {
		logging.Info("Expired stale signals", "count", expired, "cutoff", cutoff)
	}
	return expired, nil
}

func (e *Engine) expireOne(ctx context.Context, ev *model.Event) error {
	contactKey, attrErr := model.ContactFromSource(ev.SourceName)
	if attrErr == nil {
		unlock := e.recorder.locks.Lock(ev.UserID, contactKey)
		defer unlock()
	}

	return e.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.MarkEventFailed(ev.ID); err != nil {
			return err
		}
		if attrErr != nil {
			return nil
		}

		contact, err := tx.GetContact(ev.UserID, contactKey)
		if errors.Is(err, store.ErrNotFound) {
			// Never tracked; the event flag alone is enough.
			return nil
		}
		if err != nil {
			return err
		}

		contact.FailedSignals++
		if contact.PendingSignals > 0 {
			contact.PendingSignals--
		}
		if contact.TotalSignals < contact.CorroboratedSignals+contact.FailedSignals {
			contact.TotalSignals = contact.CorroboratedSignals + contact.FailedSignals
		}

		if err := credibility.BumpSpecialties(tx, ev.UserID, contactKey,
			ev.Category, ev.EventType, func(sp *model.SpecialtyScore) {
				sp.FailedSignals++
			}); err != nil {
			return err
		}

		ledger, err := tx.IntelligenceLedger(ev.UserID, contactKey)
		if err != nil {
			return err
		}
		credibility.Recompute(contact, ledger)

		if err := tx.UpdateContact(contact); err != nil {
			return err
		}

		return tx.AppendHistory(&model.CredibilityHistory{
			ID:                  uuid.NewString(),
			UserID:              ev.UserID,
			ContactKey:          contactKey,
			ChangeType:          model.ChangeFailed,
			ChangeReason:        fmt.Sprintf("signal %s expired without corroboration", ev.ID),
			TotalSignals:        contact.TotalSignals,
			CorroboratedSignals: contact.CorroboratedSignals,
			FailedSignals:       contact.FailedSignals,
			PendingSignals:      contact.PendingSignals,
			CredibilityScore:    contact.CredibilityScore,
			CreatedAt:           time.Now().UTC(),
		})
	})
}
