package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aldergrove/dealsense/internal/credibility"
	"github.com/aldergrove/dealsense/internal/logging"
	"github.com/aldergrove/dealsense/internal/store"
)

func runSources() {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	user := fs.String("user", "", "User id to report on")
	contact := fs.String("contact", "", "Show one contact's full profile")
	history := fs.Int("history", 0, "Include the last N history entries (with --contact)")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	defer logging.Close()
	userID := resolveUser(*user, cfg.DefaultUser)

	st := openStore(cfg)
	defer st.Close()

	svc := credibility.NewService(st, store.NewContactLocks())

	if *contact != "" {
		showProfile(svc, st, userID, *contact, *history)
		return
	}

	contacts, err := svc.ListSources(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(contacts) == 0 {
		fmt.Println("No sources tracked for this user.")
		return
	}

	fmt.Printf("%-35s %6s %6s %6s %6s %8s %7s\n",
		"CONTACT", "TOTAL", "CORR", "FAIL", "PEND", "ACCURACY", "VALUE")
	for _, c := range contacts {
		fmt.Printf("%-35s %6d %6d %6d %6d %7.1f%% %7.1f\n",
			truncate(c.ContactKey, 35), c.TotalSignals, c.CorroboratedSignals,
			c.FailedSignals, c.PendingSignals, c.Accuracy(), c.IntelligenceValueScore)
	}
}

func showProfile(svc *credibility.Service, st *store.Store, userID, contactKey string, historyN int) {
	profile, err := svc.GetSourceCredibility(userID, contactKey)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "error: no such contact %s\n", contactKey)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c := profile.Contact
	fmt.Printf("Contact:             %s\n", c.ContactKey)
	fmt.Printf("Signals:             %d total, %d corroborated, %d failed, %d pending\n",
		c.TotalSignals, c.CorroboratedSignals, c.FailedSignals, c.PendingSignals)
	fmt.Printf("Credibility:         %.2f\n", c.CredibilityScore)
	fmt.Printf("Accuracy:            %.1f%%\n", c.Accuracy())
	fmt.Printf("Avg lead time:       %.1f days\n", c.AvgLeadTimeDays)
	fmt.Printf("Avg corroboration:   %.1f days\n", c.AvgCorroborationTimeDays)
	fmt.Printf("Consistency:         %.2f\n", c.ConsistencyScore)
	fmt.Printf("Avg impact:          %.1f\n", c.AvgImpactMagnitude)
	fmt.Printf("Intelligence value:  %.1f\n", c.IntelligenceValueScore)
	if c.LastSignalAt != nil {
		fmt.Printf("Last signal:         %s\n", c.LastSignalAt.Format("2006-01-02"))
	}
	if c.LastCorroborationAt != nil {
		fmt.Printf("Last corroboration:  %s\n", c.LastCorroborationAt.Format("2006-01-02"))
	}

	if len(profile.Specialties) > 0 {
		fmt.Println("\nSpecialties:")
		for _, sp := range profile.Specialties {
			label := sp.Category
			if sp.EventType != "" {
				label = sp.EventType
			}
			fmt.Printf("  %-30s %5.1f (base %.1f + bonus %.1f, %d/%d/%d)\n",
				label, sp.SpecialtyScore, sp.BaseAccuracy, sp.SpecialtyBonus,
				sp.TotalSignals, sp.CorroboratedSignals, sp.FailedSignals)
		}
	}

	if historyN > 0 {
		entries, err := st.HistoryFor(userID, contactKey, historyN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nHistory:")
		for _, h := range entries {
			fmt.Printf("  %s  %-13s %s\n",
				h.CreatedAt.Format("2006-01-02 15:04"), h.ChangeType, truncate(h.ChangeReason, 70))
		}
	}
}
