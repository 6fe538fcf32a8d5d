package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteguard/internal/models"
	"siteguard/internal/storage"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func TestRecordBlockAccumulates(t *testing.T) {
	store := storage.NewMemory()
	recorder := NewRecorder(store, fixedNow)
	ctx := context.Background()

	require.NoError(t, recorder.RecordBlock(ctx, "reddit.com", 30))
	require.NoError(t, recorder.RecordBlock(ctx, "reddit.com", 0))
	require.NoError(t, recorder.RecordBlock(ctx, "x.com", 5))

	today, err := recorder.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", today.Date)
	assert.Equal(t, 2, today.BlockedPerDay["reddit.com"])
	assert.Equal(t, 1, today.BlockedPerDay["x.com"])
	// Zero seconds spent still counts the block, not the time.
	assert.Equal(t, 30, today.RestrictedTimePerDay["reddit.com"])
	assert.Equal(t, 5, today.RestrictedTimePerDay["x.com"])
}

func TestTopBlocked(t *testing.T) {
	store := storage.NewMemory()
	recorder := NewRecorder(store, fixedNow)
	ctx := context.Background()

	archive := models.History{
		"2026-08-22": {"reddit.com": 3, "x.com": 1},
		"2026-08-23": {"reddit.com": 2, "youtube.com": 4},
	}
	require.NoError(t, storage.SaveHistory(ctx, store, storage.KeyHistoricalBlocked, archive))
	require.NoError(t, recorder.RecordBlock(ctx, "x.com", 0))

	top, err := recorder.TopBlocked(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, DomainCount{Website: "reddit.com", Count: 5}, top[0])
	assert.Equal(t, DomainCount{Website: "youtube.com", Count: 4}, top[1])
}

func TestPruneHistory(t *testing.T) {
	store := storage.NewMemory()
	recorder := NewRecorder(store, fixedNow)
	ctx := context.Background()

	archive := models.History{
		"2026-05-01": {"reddit.com": 3},
		"2026-08-20": {"reddit.com": 2},
	}
	require.NoError(t, storage.SaveHistory(ctx, store, storage.KeyHistoricalBlocked, archive))
	require.NoError(t, storage.SaveHistory(ctx, store, storage.KeyHistoricalRestricted,
		models.History{"2026-05-01": {"reddit.com": 120}}))

	pruned, err := recorder.PruneHistory(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned)

	blocked, restricted, err := recorder.History(ctx)
	require.NoError(t, err)
	assert.NotContains(t, blocked, "2026-05-01")
	assert.Contains(t, blocked, "2026-08-20")
	assert.Empty(t, restricted)
}

func TestPruneHistoryDisabled(t *testing.T) {
	store := storage.NewMemory()
	recorder := NewRecorder(store, fixedNow)

	pruned, err := recorder.PruneHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}
