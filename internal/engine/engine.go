// Package engine implements the blocking decision engine: the state
// machine that, on each tab event, resolves which budgets govern the
// visited domain, checks day-off, schedule and exhaustion, runs the
// per-second accounting timer and issues redirects.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"siteguard/internal/models"
	"siteguard/internal/rollover"
	"siteguard/internal/stats"
	"siteguard/internal/storage"
	"siteguard/internal/timeutil"
)

// EventKind classifies tab events reported by the browser shim.
type EventKind string

const (
	EventNavigation EventKind = "navigation"
	EventActivated  EventKind = "activated"
	EventFocusLost  EventKind = "focus_lost"
	EventPopupOpen  EventKind = "popup_open"
)

// TabEvent is one navigation/focus event for the active tab.
type TabEvent struct {
	TabID     int       `json:"tab_id"`
	URL       string    `json:"url"`
	Incognito bool      `json:"incognito"`
	Kind      EventKind `json:"kind"`
}

// Action is the outcome of an evaluation.
type Action string

const (
	ActionAllowed    Action = "allowed"
	ActionTiming     Action = "timing"
	ActionRedirected Action = "redirected"
)

// Block reasons reported in decisions.
const (
	ReasonDayOff    = "day_off"
	ReasonSchedule  = "scheduled_block"
	ReasonExhausted = "exhausted"
)

// Decision is the engine's answer to a tab event.
type Decision struct {
	Action      Action `json:"action"`
	Domain      string `json:"domain,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	// Remaining is the smallest remaining allowance across governing
	// budgets, or -1 when the domain is not governed.
	Remaining int    `json:"remaining_seconds"`
	Badge     string `json:"badge,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// TabController redirects a tab; the browser shim implements it.
type TabController interface {
	Redirect(ctx context.Context, tabID int, url string) error
}

// BadgeWriter receives the short label shown on the extension icon.
type BadgeWriter interface {
	SetBadge(text, color string)
}

// Notifier receives threshold-crossing events before exhaustion.
type Notifier interface {
	TimeRemaining(domain string, remainingSeconds int)
}

// Badge colors for the timing and blocked states.
const (
	badgeColorTiming  = "#227733"
	badgeColorBlocked = "#cc2222"
)

// Options configures an Engine.
type Options struct {
	Store    storage.Gateway
	Rollover *rollover.Service
	Recorder *stats.Recorder
	Tabs     TabController
	Badge    BadgeWriter
	Notifier Notifier

	// QuotePageURL is the fallback redirect target.
	QuotePageURL string
	// TickInterval is the accounting granularity, 1s by default.
	TickInterval time.Duration
	// Debounce coalesces rapid tab events, 200ms by default.
	Debounce time.Duration
	// Thresholds are the remaining-second marks at which TimeRemaining
	// fires; defaults to 5 minutes, 1 minute, 10 seconds.
	Thresholds []int
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine owns the evaluation state machine and the single active
// accounting timer.
type Engine struct {
	store    storage.Gateway
	rollover *rollover.Service
	recorder *stats.Recorder
	tabs     TabController
	badge    BadgeWriter
	notifier Notifier

	quotePage    string
	tickInterval time.Duration
	debounce     time.Duration
	thresholds   []int
	now          func() time.Time

	mu      sync.Mutex
	timer   *accountingTimer
	pending *time.Timer
}

// New constructs an engine with defaults applied.
func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		rollover:     opts.Rollover,
		recorder:     opts.Recorder,
		tabs:         opts.Tabs,
		badge:        opts.Badge,
		notifier:     opts.Notifier,
		quotePage:    opts.QuotePageURL,
		tickInterval: opts.TickInterval,
		debounce:     opts.Debounce,
		thresholds:   opts.Thresholds,
		now:          opts.Now,
	}
	if e.tickInterval <= 0 {
		e.tickInterval = time.Second
	}
	if e.debounce <= 0 {
		e.debounce = 200 * time.Millisecond
	}
	if len(e.thresholds) == 0 {
		e.thresholds = []int{300, 60, 10}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// HandleEvent is the debounced entry point for tab events. Rapid
// activation bursts collapse into one evaluation of the last event;
// focus-lost and popup-open stop the accounting timer immediately so
// unfocused or popup-open time is never charged.
func (e *Engine) HandleEvent(ev TabEvent) {
	switch ev.Kind {
	case EventFocusLost, EventPopupOpen:
		e.StopTiming()
		return
	}

	e.mu.Lock()
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = time.AfterFunc(e.debounce, func() {
		e.mu.Lock()
		e.pending = nil
		e.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		e.Evaluate(ctx, ev)
	})
	e.mu.Unlock()
}

// Evaluate runs the full decision sequence for a tab event: cancel the
// previous timer, roll the day over if needed, canonicalize the URL,
// resolve governing budgets and check day-off, schedule and exhaustion
// in that fixed order, per-website budget before groups. Storage
// failures fail open: the tab is allowed and the error logged.
func (e *Engine) Evaluate(ctx context.Context, ev TabEvent) Decision {
	// Only the active tab accrues time: a new evaluation always stops
	// the previous tab's timer first.
	e.StopTiming()

	if err := e.rollover.EnsureCurrent(ctx); err != nil {
		log.Printf("Rollover failed, continuing with current state: %v", err)
	}

	domain, err := models.CanonicalDomain(ev.URL)
	if err != nil {
		// Internal pages and malformed URLs are never blocked.
		return e.allowed("")
	}

	gov, err := e.governing(ctx, domain, models.URLPath(ev.URL), ev.Incognito)
	if err != nil {
		log.Printf("Storage read failed, allowing %s: %v", domain, err)
		return e.allowed(domain)
	}

	budgets := gov.ordered()
	if len(budgets) == 0 {
		return e.allowed(domain)
	}

	now := e.now()
	day := timeutil.DayIndex(now)
	nowMinutes := timeutil.MinutesSinceMidnight(now)

	for _, b := range budgets {
		switch {
		case b.policy.DayOff(day):
			return e.redirect(ctx, ev, domain, b, 0, ReasonDayOff)
		case b.policy.InScheduledBlock(day, nowMinutes):
			return e.redirect(ctx, ev, domain, b, 0, ReasonSchedule)
		case b.policy.Exhausted(day):
			return e.redirect(ctx, ev, domain, b, 0, ReasonExhausted)
		}
	}

	remaining := minRemaining(budgets, day)
	badge := timeutil.BadgeText(remaining, false)
	e.setBadge(badge, badgeColorTiming)
	e.startTimer(ev, domain)

	return Decision{
		Action:    ActionTiming,
		Domain:    domain,
		Remaining: remaining,
		Badge:     badge,
	}
}

func (e *Engine) allowed(domain string) Decision {
	e.setBadge("", "")
	return Decision{Action: ActionAllowed, Domain: domain, Remaining: -1}
}

// redirect issues the navigation command, records the block event and
// reports the decision.
func (e *Engine) redirect(ctx context.Context, ev TabEvent, domain string, b governedBudget, secondsSpent int, reason string) Decision {
	target := models.NormalizeRedirect(b.policy.RedirectURL)
	if target == "" {
		target = e.quotePage
	}

	if e.tabs != nil {
		if err := e.tabs.Redirect(ctx, ev.TabID, target); err != nil {
			log.Printf("Failed to redirect tab %d: %v", ev.TabID, err)
		}
	}

	if e.recorder != nil {
		if err := e.recorder.RecordBlock(ctx, domain, secondsSpent); err != nil {
			log.Printf("Failed to record block event for %s: %v", domain, err)
		}
	}

	badge := timeutil.BadgeText(0, reason == ReasonDayOff)
	e.setBadge(badge, badgeColorBlocked)

	return Decision{
		Action:      ActionRedirected,
		Domain:      domain,
		RedirectURL: target,
		Remaining:   0,
		Badge:       badge,
		Reason:      reason,
	}
}

func (e *Engine) setBadge(text, color string) {
	if e.badge != nil {
		e.badge.SetBadge(text, color)
	}
}

func minRemaining(budgets []governedBudget, day int) int {
	remaining := -1
	for _, b := range budgets {
		r := b.policy.Remaining(day)
		if remaining < 0 || r < remaining {
			remaining = r
		}
	}
	return remaining
}
