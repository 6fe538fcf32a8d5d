package engine

import (
	"context"
	"log"
	"time"

	"siteguard/internal/models"
	"siteguard/internal/timeutil"
)

// accountingTimer charges one currently timed tab. At most one exists
// engine-wide; starting a new one always cancels the old one first, so
// two tabs can never double-accrue.
type accountingTimer struct {
	tab     TabEvent
	domain  string
	accrued int
	stop    chan struct{}
	done    chan struct{}
}

// StopTiming cancels the active accounting timer, if any, and waits
// for its loop to exit. Safe to call when nothing is running.
func (e *Engine) StopTiming() {
	e.mu.Lock()
	t := e.timer
	e.timer = nil
	e.mu.Unlock()

	if t == nil {
		return
	}
	close(t.stop)
	<-t.done
}

// TimingDomain returns the domain currently being charged, or empty.
func (e *Engine) TimingDomain() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer == nil {
		return ""
	}
	return e.timer.domain
}

func (e *Engine) startTimer(ev TabEvent, domain string) {
	t := &accountingTimer{
		tab:    ev,
		domain: domain,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	e.mu.Lock()
	e.timer = t
	e.mu.Unlock()

	go e.runTimer(t)
}

func (e *Engine) runTimer(t *accountingTimer) {
	defer close(t.done)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !e.tick(t) {
				return
			}
		}
	}
}

// tick accounts one interval against every governing budget. Returns
// false when the timer should stop: superseded, no longer governed, or
// a budget just hit exhaustion and the tab was redirected.
func (e *Engine) tick(t *accountingTimer) bool {
	e.mu.Lock()
	current := e.timer == t
	e.mu.Unlock()
	if !current {
		// The tracked tab is no longer the focused one.
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gov, err := e.governing(ctx, t.domain, models.URLPath(t.tab.URL), t.tab.Incognito)
	if err != nil {
		// Transient storage glitch: skip this tick rather than charge
		// or block on stale state.
		log.Printf("Tick read failed for %s: %v", t.domain, err)
		return true
	}

	budgets := gov.ordered()
	if len(budgets) == 0 {
		// The user deleted or exempted the budget mid-visit.
		e.clearTimer(t)
		e.setBadge("", "")
		return false
	}

	// Both a per-website and a group budget governing the same domain
	// each account the tick independently.
	for _, b := range budgets {
		b.policy.Tick()
	}
	t.accrued++

	if err := gov.persist(ctx, e.store); err != nil {
		log.Printf("Tick write failed for %s: %v", t.domain, err)
	}

	day := timeutil.DayIndex(e.now())
	remaining := minRemaining(budgets, day)
	e.setBadge(timeutil.BadgeText(remaining, false), badgeColorTiming)

	if e.notifier != nil {
		for _, threshold := range e.thresholds {
			if remaining == threshold {
				e.notifier.TimeRemaining(t.domain, remaining)
			}
		}
	}

	for _, b := range budgets {
		if b.policy.Exhausted(day) {
			e.clearTimer(t)
			e.redirect(ctx, t.tab, t.domain, b, t.accrued, ReasonExhausted)
			return false
		}
	}
	return true
}

func (e *Engine) clearTimer(t *accountingTimer) {
	e.mu.Lock()
	if e.timer == t {
		e.timer = nil
	}
	e.mu.Unlock()
}
