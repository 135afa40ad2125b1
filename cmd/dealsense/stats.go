package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aldergrove/dealsense/internal/logging"
)

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	defer logging.Close()

	st := openStore(cfg)
	defer st.Close()

	total, private, public, err := st.EventCounts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	matches, err := st.MatchCount()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database:          %s\n", cfg.DBPath)
	fmt.Printf("Events total:      %d\n", total)
	fmt.Printf("  private:         %d\n", private)
	fmt.Printf("  public:          %d\n", public)
	fmt.Printf("Matches recorded:  %d\n", matches)
}
