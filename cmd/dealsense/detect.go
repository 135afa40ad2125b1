package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/aldergrove/dealsense/internal/corroborate"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/metrics"
	"github.com/aldergrove/dealsense/internal/store"
)

func runDetect() {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	lookback := fs.Int("lookback", 0, "Lookback window in days (default from config)")
	threshold := fs.Float64("threshold", 0, "Minimum match score (default from config)")
	expire := fs.Bool("expire", false, "Also expire signals past the failure horizon")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus metrics on this address during the run")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	defer logging.Close()

	if *lookback > 0 {
		cfg.LookbackDays = *lookback
	}
	if *threshold > 0 {
		cfg.MinMatchScore = *threshold
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	st := openStore(cfg)
	defer st.Close()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := m.Serve(cfg.MetricsAddr)
		defer srv.Close()
		logging.Info("Metrics listening", "addr", cfg.MetricsAddr)
	}

	var limiter *rate.Limiter
	if cfg.ScoreRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ScoreRatePerSec), cfg.ScoreRatePerSec)
	}

	locks := store.NewContactLocks()
	gen := corroborate.NewGenerator(st,
		time.Duration(cfg.LookbackDays)*24*time.Hour,
		cfg.MinMatchScore, cfg.Workers, limiter)
	rec := corroborate.NewRecorder(st, locks)
	engine := corroborate.NewEngine(st, gen, rec, m)

	ctx := context.Background()
	report, err := engine.Detect(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Pairs scored:     %d\n", report.PairsScored)
	fmt.Printf("Candidates:       %d\n", report.Candidates)
	fmt.Printf("Recorded:         %d\n", report.Recorded)
	fmt.Printf("Duplicates:       %d\n", report.Duplicates)
	fmt.Printf("Failures:         %d\n", report.Failures)
	fmt.Printf("Elapsed:          %s\n", report.Elapsed.Round(time.Millisecond))

	if *expire && cfg.FailAfterDays > 0 {
		expired, err := engine.ExpireStale(ctx, time.Duration(cfg.FailAfterDays)*24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: expire: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Expired signals:  %d\n", expired)
	}

	if report.Failures > 0 {
		os.Exit(1)
	}
}
