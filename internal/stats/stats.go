// Package stats records block events and restricted-time accounting
// and answers history queries for the reporting API.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"siteguard/internal/models"
	"siteguard/internal/storage"
	"siteguard/internal/timeutil"
)

// Recorder maintains the current day's counters and the historical
// per-website aggregates.
type Recorder struct {
	store storage.Gateway
	now   func() time.Time
}

// NewRecorder creates a statistics recorder. now defaults to time.Now.
func NewRecorder(store storage.Gateway, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{store: store, now: now}
}

// RecordBlock adds one block event for the domain plus the seconds
// spent this visit before blocking (best-effort, 0 when unknown).
func (r *Recorder) RecordBlock(ctx context.Context, domain string, secondsSpent int) error {
	stats, err := storage.LoadDailyStatistics(ctx, r.store)
	if err != nil {
		return fmt.Errorf("failed to load daily statistics: %w", err)
	}
	if stats.Date == "" {
		stats.Date = timeutil.DateKey(r.now())
	}

	stats.RecordBlock(domain, secondsSpent)
	return storage.SaveDailyStatistics(ctx, r.store, stats)
}

// Today returns the current day's in-progress counters.
func (r *Recorder) Today(ctx context.Context) (*models.DailyStatistics, error) {
	return storage.LoadDailyStatistics(ctx, r.store)
}

// History returns the archived block-event and restricted-time maps.
func (r *Recorder) History(ctx context.Context) (blocked, restricted models.History, err error) {
	blocked, err = storage.LoadHistory(ctx, r.store, storage.KeyHistoricalBlocked)
	if err != nil {
		return nil, nil, err
	}
	restricted, err = storage.LoadHistory(ctx, r.store, storage.KeyHistoricalRestricted)
	if err != nil {
		return nil, nil, err
	}
	return blocked, restricted, nil
}

// DomainCount pairs a website with an aggregated count.
type DomainCount struct {
	Website string `json:"website"`
	Count   int    `json:"count"`
}

// TopBlocked aggregates block events across the archive plus today and
// returns the most-blocked websites, highest first.
func (r *Recorder) TopBlocked(ctx context.Context, limit int) ([]DomainCount, error) {
	blocked, _, err := r.History(ctx)
	if err != nil {
		return nil, err
	}
	today, err := r.Today(ctx)
	if err != nil {
		return nil, err
	}

	totals := map[string]int{}
	for _, day := range blocked {
		for website, n := range day {
			totals[website] += n
		}
	}
	for website, n := range today.BlockedPerDay {
		totals[website] += n
	}

	result := make([]DomainCount, 0, len(totals))
	for website, n := range totals {
		result = append(result, DomainCount{Website: website, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Website < result[j].Website
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PruneHistory drops archived dates older than retentionDays and
// returns how many dates were removed from either map.
func (r *Recorder) PruneHistory(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := timeutil.DateKey(r.now().AddDate(0, 0, -retentionDays))

	blocked, restricted, err := r.History(ctx)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for date := range blocked {
		if date < cutoff {
			delete(blocked, date)
			pruned++
		}
	}
	for date := range restricted {
		if date < cutoff {
			delete(restricted, date)
			pruned++
		}
	}
	if pruned == 0 {
		return 0, nil
	}

	if err := storage.SaveHistory(ctx, r.store, storage.KeyHistoricalBlocked, blocked); err != nil {
		return pruned, err
	}
	if err := storage.SaveHistory(ctx, r.store, storage.KeyHistoricalRestricted, restricted); err != nil {
		return pruned, err
	}
	return pruned, nil
}
