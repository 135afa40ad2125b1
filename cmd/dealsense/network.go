package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/model"
	"github.com/aldergrove/dealsense/internal/store"
)

func runNetwork() {
	fs := flag.NewFlagSet("network", flag.ExitOnError)
	user := fs.String("user", "", "User id to report on")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	defer logging.Close()
	userID := resolveUser(*user, cfg.DefaultUser)

	st := openStore(cfg)
	defer st.Close()

	svc := credibility.NewService(st, store.NewContactLocks())
	entries, err := svc.NetworkIntelligenceValue(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No active sources for this user.")
		return
	}

	byTier := map[model.Tier][]credibility.NetworkEntry{}
	for _, e := range entries {
		byTier[e.Tier] = append(byTier[e.Tier], e)
	}

	for _, tier := range []model.Tier{model.TierTop, model.TierMid, model.TierLow} {
		group := byTier[tier]
		if len(group) == 0 {
			continue
		}
		fmt.Printf("\n=== %s tier (%d) ===\n", tier, len(group))
		for _, e := range group {
			fmt.Printf("  %-35s value %5.1f  accuracy %5.1f%%  (%d signals)\n",
				truncate(e.Contact.ContactKey, 35), e.Contact.IntelligenceValueScore,
				e.Accuracy, e.Contact.TotalSignals)
		}
	}
}
