package rollover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteguard/internal/models"
	"siteguard/internal/storage"
)

var testNow = time.Date(2026, 8, 24, 0, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func seed(t *testing.T, store *storage.Memory) {
	t.Helper()
	ctx := context.Background()

	site := &models.BlockedWebsite{Website: "reddit.com"}
	site.SetUniformAllowance(600)
	site.TotalTime = 480
	site.LastAccessedDate = "2026-08-23"
	require.NoError(t, storage.SaveBlockedWebsites(ctx, store,
		map[string]*models.BlockedWebsite{"reddit.com": site}))

	group := &models.GroupTimeBudget{Name: "social", Websites: []string{"reddit.com"}}
	group.SetUniformAllowance(1200)
	group.TotalTime = 900
	group.LastAccessedDate = "2026-08-23"
	require.NoError(t, storage.SaveGroupBudgets(ctx, store,
		[]*models.GroupTimeBudget{group}))

	stats := models.NewDailyStatistics("2026-08-23")
	stats.RecordBlock("reddit.com", 30)
	stats.RecordBlock("reddit.com", 12)
	require.NoError(t, storage.SaveDailyStatistics(ctx, store, stats))
}

func TestRolloverArchivesAndResets(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store)
	ctx := context.Background()

	service := NewService(store, fixedNow)
	require.NoError(t, service.EnsureCurrent(ctx))

	// Counters reset, date stamped.
	websites, err := storage.LoadBlockedWebsites(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 0, websites["reddit.com"].TotalTime)
	assert.Equal(t, "2026-08-24", websites["reddit.com"].LastAccessedDate)

	groups, err := storage.LoadGroupBudgets(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 0, groups[0].TotalTime)
	assert.Equal(t, "2026-08-24", groups[0].LastAccessedDate)

	// Yesterday's counters folded into the archive under the previous
	// date.
	blocked, err := storage.LoadHistory(ctx, store, storage.KeyHistoricalBlocked)
	require.NoError(t, err)
	assert.Equal(t, 2, blocked["2026-08-23"]["reddit.com"])

	restricted, err := storage.LoadHistory(ctx, store, storage.KeyHistoricalRestricted)
	require.NoError(t, err)
	assert.Equal(t, 42, restricted["2026-08-23"]["reddit.com"])

	// Daily statistics cleared for the new day.
	today, err := storage.LoadDailyStatistics(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", today.Date)
	assert.Empty(t, today.BlockedPerDay)
}

func TestRolloverIsIdempotent(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store)
	ctx := context.Background()

	service := NewService(store, fixedNow)
	require.NoError(t, service.EnsureCurrent(ctx))
	require.NoError(t, service.EnsureCurrent(ctx))

	// A second service instance (cold cache) must also be a no-op.
	require.NoError(t, NewService(store, fixedNow).EnsureCurrent(ctx))

	blocked, err := storage.LoadHistory(ctx, store, storage.KeyHistoricalBlocked)
	require.NoError(t, err)
	assert.Equal(t, 2, blocked["2026-08-23"]["reddit.com"], "archive must not double-merge")
}

func TestRolloverMergesIntoExistingArchive(t *testing.T) {
	store := storage.NewMemory()
	seed(t, store)
	ctx := context.Background()

	existing := models.History{"2026-08-23": {"reddit.com": 5}}
	require.NoError(t, storage.SaveHistory(ctx, store, storage.KeyHistoricalBlocked, existing))

	require.NoError(t, NewService(store, fixedNow).EnsureCurrent(ctx))

	blocked, err := storage.LoadHistory(ctx, store, storage.KeyHistoricalBlocked)
	require.NoError(t, err)
	assert.Equal(t, 7, blocked["2026-08-23"]["reddit.com"])
}

func TestRolloverFreshInstall(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()

	require.NoError(t, NewService(store, fixedNow).EnsureCurrent(ctx))

	today, err := storage.LoadDailyStatistics(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", today.Date)

	// Nothing to archive on a fresh install.
	blocked, err := storage.LoadHistory(ctx, store, storage.KeyHistoricalBlocked)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}
