package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"proctord/internal/storage"
)

// cmdEvents dumps the local archive of activity events for one
// session, most useful when reviewing a session after the fact.
func cmdEvents(sessionID string) {
	cfg := loadConfig()

	if cfg.Storage.Type != "sqlite" {
		fmt.Fprintln(os.Stderr, "events requires sqlite storage")
		os.Exit(1)
	}

	store, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	events, err := store.EventsBySession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading events: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Printf("no archived events for session %s\n", sessionID)
		return
	}

	for _, ev := range events {
		at := time.UnixMilli(ev.Timestamp).Format(time.RFC3339)
		line := fmt.Sprintf("%s  %-20s", at, ev.Type)
		if len(ev.Details) > 0 {
			detail, err := json.Marshal(ev.Details)
			if err == nil {
				line += "  " + string(detail)
			}
		}
		fmt.Println(line)
	}
	fmt.Printf("%d events\n", len(events))
}
