package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/store"
)

func runPredict() {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: dealsense predict <event-id>")
		os.Exit(1)
	}
	eventID := fs.Arg(0)

	cfg := loadConfig()
	defer logging.Close()

	st := openStore(cfg)
	defer st.Close()

	svc := credibility.NewService(st, store.NewContactLocks())
	forecast, err := svc.Predict(context.Background(), eventID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(os.Stderr, "error: no such event %s\n", eventID)
		os.Exit(1)
	case errors.Is(err, credibility.ErrNoHistory):
		fmt.Println("No prediction available: contact has no credibility history")
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Event:                  %s\n", forecast.EventID)
	fmt.Printf("Contact:                %s\n", forecast.ContactKey)
	fmt.Printf("Predicted accuracy:     %.1f%%\n", forecast.PredictedAccuracy)
	fmt.Printf("Predicted days to corroboration: %.0f\n", forecast.PredictedCorroborationDays)
	fmt.Printf("Confidence:             %s (n=%d)\n", forecast.Confidence, forecast.SampleSize)
	fmt.Printf("Applied weight:         %.2f\n", forecast.AppliedWeight)
	fmt.Printf("Basis:                  %s\n", forecast.Basis)
}
