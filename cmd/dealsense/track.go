package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

// eventInput is the JSON shape accepted by `dealsense track`.
type eventInput struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	SourceType  string              `json:"source_type"`
	Category    string              `json:"category"`
	EventType   string              `json:"event_type"`
	Extracted   model.ExtractedData `json:"extracted_data"`
	Lat         *float64            `json:"lat"`
	Lng         *float64            `json:"lng"`
	City        string              `json:"city"`
	State       string              `json:"state"`
	SourceName  string              `json:"source_name"`
	PublishedAt time.Time           `json:"published_at"`
}

func runTrack() {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	user := fs.String("user", "", "User id to assign when events omit user_id")
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: dealsense track [flags] <events.json>")
		os.Exit(1)
	}

	cfg := loadConfig()
	defer logging.Close()

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var inputs []eventInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse %s: %v\n", fs.Arg(0), err)
		os.Exit(1)
	}

	events := make([]model.Event, 0, len(inputs))
	for _, in := range inputs {
		ev := model.Event{
			ID:          in.ID,
			UserID:      in.UserID,
			SourceType:  model.SourceType(in.SourceType),
			Category:    in.Category,
			EventType:   in.EventType,
			Extracted:   in.Extracted,
			City:        in.City,
			State:       in.State,
			SourceName:  in.SourceName,
			PublishedAt: in.PublishedAt,
		}
		if ev.UserID == "" {
			ev.UserID = resolveUser(*user, cfg.DefaultUser)
		}
		if in.Lat != nil && in.Lng != nil {
			ev.Geo = &model.GeoPoint{Lat: *in.Lat, Lng: *in.Lng}
		}
		if ev.ID == "" || ev.PublishedAt.IsZero() {
			fmt.Fprintf(os.Stderr, "error: event missing id or published_at: %+v\n", in)
			os.Exit(1)
		}
		events = append(events, ev)
	}

	st := openStore(cfg)
	defer st.Close()

	// Replayed batches must not double-count signals, so only events that
	// are actually new get tracked.
	fresh := events[:0]
	for i := range events {
		if _, err := st.GetEvent(events[i].ID); errors.Is(err, store.ErrNotFound) {
			fresh = append(fresh, events[i])
		}
	}

	inserted, err := st.SaveEvents(fresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: save events: %v\n", err)
		os.Exit(1)
	}

	svc := credibility.NewService(st, store.NewContactLocks())
	ctx := context.Background()

	tracked, unattributed := 0, 0
	for i := range fresh {
		ev := &fresh[i]
		if !ev.IsPrivate() {
			continue
		}
		err := svc.TrackSignal(ctx, ev)
		switch {
		case err == nil:
			tracked++
		case errors.Is(err, model.ErrAttributionMissing):
			unattributed++
			logging.Warn("Private signal without contact attribution",
				"event", ev.ID, "source", ev.SourceName)
		default:
			fmt.Fprintf(os.Stderr, "error: track %s: %v\n", ev.ID, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Events saved:     %d new / %d submitted\n", inserted, len(events))
	fmt.Printf("Signals tracked:  %d\n", tracked)
	if unattributed > 0 {
		fmt.Printf("No attribution:   %d\n", unattributed)
	}
}
