package migrate

import (
	"context"
	"encoding/json"
	"testing"

	"siteguard/internal/models"
	"siteguard/internal/storage"
)

func TestRunWithoutLegacyData(t *testing.T) {
	store := storage.NewMemory()
	if err := Run(context.Background(), store); err != nil {
		t.Fatalf("migration without legacy data must be a no-op, got %v", err)
	}

	websites, err := storage.LoadBlockedWebsites(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}
	if len(websites) != 0 {
		t.Errorf("expected no websites, got %d", len(websites))
	}
}

func TestRunConvertsLegacyEntries(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	legacy := []map[string]interface{}{
		{"url": "https://www.youtube.com/feed", "timeAllowed": 600, "totalTime": 42, "blockIncognito": true},
		{"url": "chrome://settings", "timeAllowed": 300}, // uncanonicalizable, dropped
		{"url": "reddit.com", "timeAllowed": 900, "redirectUrl": "calm.example"},
	}
	if err := store.Set(ctx, map[string]interface{}{storage.KeyLegacyBlockedSites: legacy}); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, store); err != nil {
		t.Fatal(err)
	}

	websites, err := storage.LoadBlockedWebsites(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(websites) != 2 {
		t.Fatalf("expected 2 converted websites, got %d", len(websites))
	}

	yt := websites["youtube.com"]
	if yt == nil {
		t.Fatal("youtube.com missing after migration")
	}
	if yt.TotalTime != 42 || !yt.BlockIncognito {
		t.Errorf("youtube.com fields not carried over: %+v", yt)
	}
	for day := 0; day < 7; day++ {
		if yt.AllowanceFor(day) != 600 {
			t.Fatalf("expected uniform allowance 600, got %d on day %d", yt.AllowanceFor(day), day)
		}
	}

	if websites["reddit.com"].RedirectURL != "calm.example" {
		t.Error("reddit.com redirect not carried over")
	}

	// Legacy store discarded.
	values, err := store.Get(ctx, storage.KeyLegacyBlockedSites)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := values[storage.KeyLegacyBlockedSites]; ok {
		t.Error("legacy key should be removed after migration")
	}
}

func TestRunKeepsExistingRecords(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	existing := &models.BlockedWebsite{Website: "reddit.com"}
	existing.SetUniformAllowance(1200)
	if err := storage.SaveBlockedWebsites(ctx, store,
		map[string]*models.BlockedWebsite{"reddit.com": existing}); err != nil {
		t.Fatal(err)
	}

	legacy := []map[string]interface{}{
		{"url": "https://reddit.com", "timeAllowed": 60},
	}
	if err := store.Set(ctx, map[string]interface{}{storage.KeyLegacyBlockedSites: legacy}); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, store); err != nil {
		t.Fatal(err)
	}

	websites, err := storage.LoadBlockedWebsites(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if websites["reddit.com"].AllowanceFor(0) != 1200 {
		t.Error("existing record must not be clobbered by a legacy entry")
	}
}

func TestRunSkipsMalformedEntry(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	raw := json.RawMessage(`[{"url": "reddit.com", "timeAllowed": 60}, "not-an-object"]`)
	if err := store.Set(ctx, map[string]interface{}{storage.KeyLegacyBlockedSites: raw}); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, store); err != nil {
		t.Fatal(err)
	}

	websites, err := storage.LoadBlockedWebsites(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(websites) != 1 || websites["reddit.com"] == nil {
		t.Errorf("one bad record must not abort the rest, got %d records", len(websites))
	}
}
