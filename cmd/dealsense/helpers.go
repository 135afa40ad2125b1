package main

import (
	"fmt"
	"os"

	"github.com/aldergrove/dealsense/internal/config"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/store"
)

// loadConfig loads process configuration and initializes console logging,
// or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logging.InitConsole(os.Stderr, cfg.LogLevel)
	return cfg
}

// openStore opens the store at the configured path or exits.
func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open database %s: %v\n", cfg.DBPath, err)
		os.Exit(1)
	}
	return st
}

// resolveUser picks the --user flag value, falling back to the configured
// default user, or exits when neither is set.
func resolveUser(flagValue, configured string) string {
	if flagValue != "" {
		return flagValue
	}
	if configured != "" {
		return configured
	}
	fmt.Fprintln(os.Stderr, "error: --user is required (or set DEALSENSE_DEFAULT_USER)")
	os.Exit(1)
	return ""
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
