// Package migrate converts the prior-version flat blocked-site list
// into the current schema. Runs once on startup and is a no-op when no
// legacy data is present.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"siteguard/internal/models"
	"siteguard/internal/storage"
)

// legacyEntry is the old flat record shape keyed by raw URL.
type legacyEntry struct {
	URL            string `json:"url"`
	TimeAllowed    int    `json:"timeAllowed"`
	TotalTime      int    `json:"totalTime"`
	BlockIncognito bool   `json:"blockIncognito"`
	RedirectURL    string `json:"redirectUrl"`
}

// Run converts legacy entries into BlockedWebsite records, re-keying
// by canonical domain. Entries whose URL fails canonicalization are
// dropped; a single bad record never aborts the rest. The legacy store
// is discarded afterwards.
func Run(ctx context.Context, gw storage.Gateway) error {
	values, err := gw.Get(ctx, storage.KeyLegacyBlockedSites)
	if err != nil {
		return fmt.Errorf("failed to read legacy store: %w", err)
	}
	raw, ok := values[storage.KeyLegacyBlockedSites]
	if !ok {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Legacy store is unreadable, discarding: %v", err)
		return gw.Remove(ctx, storage.KeyLegacyBlockedSites)
	}

	websites, err := storage.LoadBlockedWebsites(ctx, gw)
	if err != nil {
		return fmt.Errorf("failed to load current websites: %w", err)
	}

	converted, dropped := 0, 0
	for _, data := range entries {
		var entry legacyEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			dropped++
			continue
		}

		domain, err := models.CanonicalDomain(entry.URL)
		if err != nil {
			log.Printf("Dropping legacy entry with invalid URL %q", entry.URL)
			dropped++
			continue
		}

		// Never clobber a record the user already reconfigured.
		if _, exists := websites[domain]; exists {
			continue
		}

		website := &models.BlockedWebsite{Website: domain}
		website.SetUniformAllowance(entry.TimeAllowed)
		website.TotalTime = entry.TotalTime
		website.BlockIncognito = entry.BlockIncognito
		website.RedirectURL = entry.RedirectURL
		websites[domain] = website
		converted++
	}

	if err := storage.SaveBlockedWebsites(ctx, gw, websites); err != nil {
		return fmt.Errorf("failed to save migrated websites: %w", err)
	}
	if err := gw.Remove(ctx, storage.KeyLegacyBlockedSites); err != nil {
		return fmt.Errorf("failed to discard legacy store: %w", err)
	}

	log.Printf("Migrated %d legacy entries (%d dropped)", converted, dropped)
	return nil
}
