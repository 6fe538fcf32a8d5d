package scheduler

import (
	"context"
	"log"

	"siteguard/internal/stats"

	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled maintenance tasks. Daily rollover is not
// one of them: it runs lazily on the next tab event after midnight.
type Scheduler struct {
	cron     *cron.Cron
	recorder *stats.Recorder
}

// NewScheduler creates a new scheduler
func NewScheduler(recorder *stats.Recorder) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		recorder: recorder,
	}
}

// Start registers the history pruning job and starts the scheduler
func (s *Scheduler) Start(pruneSchedule string, retentionDays int) error {
	_, err := s.cron.AddFunc(pruneSchedule, func() {
		log.Println("Starting scheduled history pruning...")
		pruned, err := s.recorder.PruneHistory(context.Background(), retentionDays)
		if err != nil {
			log.Printf("Scheduled pruning failed: %v", err)
			return
		}
		log.Printf("Scheduled history pruning completed (%d dates removed)", pruned)
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Scheduler started with schedule: %s (retention %d days)", pruneSchedule, retentionDays)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}
