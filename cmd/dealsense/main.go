// Command dealsense is the CLI for the source credibility and corroboration
// engine.
//
// Usage:
//
//	dealsense                 Show help
//	dealsense detect          Run a corroboration detection pass
//	dealsense track <file>    Ingest events from a JSON file
//	dealsense predict <id>    Forecast accuracy for a private event
//	dealsense sources         Source credibility report
//	dealsense network         Network intelligence value ranking
//	dealsense stats           Database statistics
package main

import (
	"fmt"
	"os"
)

const usage = `dealsense — source credibility & corroboration engine

Usage:
  dealsense <command> [flags]

Commands:
  detect      Score private signals against later public events and record matches
  track       Ingest events from a JSON file and track private signals
  predict     Forecast accuracy and corroboration timing for a private event
  sources     Per-contact credibility report
  network     Network-wide intelligence value ranking
  stats       Event and match counts

Environment:
  DEALSENSE_CONFIG     Optional YAML config file path
  DEALSENSE_DB_PATH    SQLite database path (default ~/.dealsense/dealsense.db)
  DEALSENSE_LOG_LEVEL  debug, info, warn, error (default info)

Run 'dealsense <command> -h' for command-specific help.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	cmd := os.Args[1]
	// Strip the program name + subcommand so flag sets see only their flags
	os.Args = os.Args[1:]

	switch cmd {
	case "detect":
		runDetect()
	case "track":
		runTrack()
	case "predict":
		runPredict()
	case "sources":
		runSources()
	case "network":
		runNetwork()
	case "stats":
		runStats()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "dealsense: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
