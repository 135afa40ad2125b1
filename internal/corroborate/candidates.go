// Package corroborate runs the batch corroboration pass: it generates
// candidate (private, public) event pairs, scores them, and records
// confirmed matches transactionally.
package corroborate

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/match"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

// Candidate is a scored (private, public) pair that cleared the threshold.
type Candidate struct {
	Private      model.Event
	Public       model.Event
	Components   model.ComponentScores
	MatchScore   float64
	LeadTimeDays int
	Confidence   model.ConfidenceBand
}

// Generator selects and scores eligible event pairs within the lookback
// window. It performs no writes and is safe to run concurrently with
// recording.
type Generator struct {
	store     *store.Store
	lookback  time.Duration
	threshold float64
	workers   int
	limiter   *rate.Limiter // nil disables store-read throttling
}

// NewGenerator creates a candidate generator. workers bounds concurrent
// scoring; limiter (optional) throttles reads against the backing store.
func NewGenerator(st *store.Store, lookback time.Duration, threshold float64, workers int, limiter *rate.Limiter) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		store:     st,
		lookback:  lookback,
		threshold: threshold,
		workers:   workers,
		limiter:   limiter,
	}
}

// Candidates scores every eligible pair in the window and returns those at
// or above the threshold, ordered by descending match score, along with the
// number of pairs evaluated. A pair is eligible only when the public event
// was published strictly after the private one and both belong to the same
// user.
func (g *Generator) Candidates(ctx context.Context) ([]Candidate, int, error) {
	since := time.Now().UTC().Add(-g.lookback)

	if err := g.wait(ctx); err != nil {
		return nil, 0, err
	}
	private, err := g.store.PendingPrivateEvents(since)
	if err != nil {
		return nil, 0, err
	}
	if err := g.wait(ctx); err != nil {
		return nil, 0, err
	}
	public, err := g.store.PublicEventsSince(since)
	if err != nil {
		return nil, 0, err
	}

	if len(private) == 0 || len(public) == 0 {
		return nil, 0, nil
	}

	// Group public events per user so each private event only crosses its
	// own user's slice of the window.
	publicByUser := make(map[string][]model.Event)
	for _, pub := range public {
		publicByUser[pub.UserID] = append(publicByUser[pub.UserID], pub)
	}

	var (
		mu         sync.Mutex
		candidates []Candidate
		pairs      int
	)

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.workers)

	for i := range private {
		prv := private[i]
		if prv.ID == "" || prv.PublishedAt.IsZero() {
			logging.Warn("Skipping malformed private event", "id", prv.ID)
			continue
		}
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local, scored := scorePairs(&prv, publicByUser[prv.UserID], g.threshold)
			mu.Lock()
			candidates = append(candidates, local...)
			pairs += scored
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, 0, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})
	return candidates, pairs, nil
}

// scorePairs scores one private event against a user's public events,
// enforcing the temporal ordering constraint. It returns the candidates
// that cleared the threshold and the number of pairs actually scored.
func scorePairs(prv *model.Event, public []model.Event, threshold float64) ([]Candidate, int) {
	var out []Candidate
	pairs := 0
	for i := range public {
		pub := public[i]
		if pub.ID == "" || pub.PublishedAt.IsZero() {
			logging.Warn("Skipping malformed public event", "id", pub.ID)
			continue
		}
		// The public event must come after the private signal; a signal
		// cannot be corroborated by something already published.
		if !pub.PublishedAt.After(prv.PublishedAt) {
			continue
		}

		pairs++
		components, score := match.Score(prv, &pub)
		if score < threshold {
			continue
		}

		leadDays := int(math.Floor(pub.PublishedAt.Sub(prv.PublishedAt).Hours() / 24))
		out = append(out, Candidate{
			Private:      *prv,
			Public:       pub,
			Components:   components,
			MatchScore:   score,
			LeadTimeDays: leadDays,
			Confidence:   model.Confidence(score, 1),
		})
	}
	return out, pairs
}

func (g *Generator) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}
