// Package rollover detects calendar day transitions, archives the
// previous day's statistics and resets every budget's daily counters.
package rollover

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"siteguard/internal/models"
	"siteguard/internal/storage"
	"siteguard/internal/timeutil"
)

// Service performs the daily reset-and-archive operation. It is
// triggered lazily on the next evaluation after the date changed, not
// by a standing scheduler.
type Service struct {
	store storage.Gateway
	now   func() time.Time

	mu       sync.Mutex
	lastDate string
}

// NewService creates a rollover service. now defaults to time.Now.
func NewService(store storage.Gateway, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// EnsureCurrent rolls all persisted state over to today's date. It is
// idempotent: re-running with an already-current date is a no-op, and
// the common same-day path is a cached comparison with no I/O.
func (s *Service) EnsureCurrent(ctx context.Context) error {
	today := timeutil.DateKey(s.now())

	s.mu.Lock()
	if s.lastDate == today {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.run(ctx, today); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastDate = today
	s.mu.Unlock()
	return nil
}

func (s *Service) run(ctx context.Context, today string) error {
	if err := s.archiveStatistics(ctx, today); err != nil {
		return err
	}
	if err := s.resetWebsites(ctx, today); err != nil {
		return err
	}
	return s.resetGroups(ctx, today)
}

// archiveStatistics folds the previous day's counters into the
// historical maps and clears them for the new day. A fresh install
// (no date yet) just stamps today.
func (s *Service) archiveStatistics(ctx context.Context, today string) error {
	stats, err := storage.LoadDailyStatistics(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to load daily statistics: %w", err)
	}
	if stats.Date == today {
		return nil
	}

	if stats.Date != "" {
		previousDate := stats.Date

		blocked, err := storage.LoadHistory(ctx, s.store, storage.KeyHistoricalBlocked)
		if err != nil {
			return fmt.Errorf("failed to load blocked history: %w", err)
		}
		restricted, err := storage.LoadHistory(ctx, s.store, storage.KeyHistoricalRestricted)
		if err != nil {
			return fmt.Errorf("failed to load restricted-time history: %w", err)
		}

		blocked.Merge(previousDate, stats.BlockedPerDay)
		restricted.Merge(previousDate, stats.RestrictedTimePerDay)

		if err := storage.SaveHistory(ctx, s.store, storage.KeyHistoricalBlocked, blocked); err != nil {
			return fmt.Errorf("failed to save blocked history: %w", err)
		}
		if err := storage.SaveHistory(ctx, s.store, storage.KeyHistoricalRestricted, restricted); err != nil {
			return fmt.Errorf("failed to save restricted-time history: %w", err)
		}

		log.Printf("Archived statistics for %s (%d blocked domains)", previousDate, len(stats.BlockedPerDay))
	}

	fresh := models.NewDailyStatistics(today)
	return storage.SaveDailyStatistics(ctx, s.store, fresh)
}

func (s *Service) resetWebsites(ctx context.Context, today string) error {
	websites, err := storage.LoadBlockedWebsites(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to load blocked websites: %w", err)
	}

	changed := false
	for _, website := range websites {
		if website.LastAccessedDate == today {
			continue
		}
		website.TotalTime = 0
		website.LastAccessedDate = today
		changed = true
	}

	if !changed {
		return nil
	}
	return storage.SaveBlockedWebsites(ctx, s.store, websites)
}

func (s *Service) resetGroups(ctx context.Context, today string) error {
	groups, err := storage.LoadGroupBudgets(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to load group budgets: %w", err)
	}

	changed := false
	for _, group := range groups {
		if group.LastAccessedDate == today {
			continue
		}
		group.TotalTime = 0
		group.LastAccessedDate = today
		changed = true
	}

	if !changed {
		return nil
	}
	return storage.SaveGroupBudgets(ctx, s.store, groups)
}
