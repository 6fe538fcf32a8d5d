package models

import (
	"siteguard/internal/timeutil"
)

// DayOffAllowance marks a weekday as fully inaccessible.
const DayOffAllowance = -1

// ScheduledRange hard-blocks a website during a clock-time window on
// the selected weekdays, regardless of remaining budget. Start and End
// are minutes since midnight (0-1439); Days is Monday-first.
type ScheduledRange struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Days  [7]bool `json:"days"`
}

// Contains reports whether the range applies on the given Monday-first
// day index at the given clock time. A midnight-crossing range belongs
// to the day it started on: its pre-midnight half checks today's mask,
// its post-midnight half checks yesterday's.
func (r ScheduledRange) Contains(day, nowMinutes int) bool {
	if day < 0 || day > 6 {
		return false
	}
	if r.End < r.Start {
		if nowMinutes >= r.Start {
			return r.Days[day]
		}
		if nowMinutes < r.End {
			return r.Days[(day+6)%7]
		}
		return false
	}
	return r.Days[day] && timeutil.WithinWindow(r.Start, r.End, nowMinutes)
}

// BudgetPolicy is the daily-allowance core shared by per-website and
// group budgets.
type BudgetPolicy struct {
	// TimeAllowed maps Monday-first weekday index to seconds allowed
	// per day; DayOffAllowance means no access at all that day.
	TimeAllowed [7]int `json:"timeAllowed"`
	// VariableSchedule is false when one uniform value is replicated
	// across all seven days.
	VariableSchedule bool `json:"variableSchedule"`
	// TotalTime is the seconds consumed today. Resets at rollover.
	TotalTime      int    `json:"totalTime"`
	BlockIncognito bool   `json:"blockIncognito"`
	// RedirectURL is the destination when blocked; empty means the
	// built-in quote page.
	RedirectURL string `json:"redirectUrl"`
	// LastAccessedDate is the ISO date TotalTime applies to.
	LastAccessedDate     string           `json:"lastAccessedDate"`
	ScheduledBlockRanges []ScheduledRange `json:"scheduledBlockRanges,omitempty"`
	// AllowedPaths lists URL path prefixes exempt from blocking.
	AllowedPaths []string `json:"allowedPaths,omitempty"`
}

// SetUniformAllowance replicates one per-day allowance across the week.
func (p *BudgetPolicy) SetUniformAllowance(seconds int) {
	for i := range p.TimeAllowed {
		p.TimeAllowed[i] = seconds
	}
	p.VariableSchedule = false
}

// AllowanceFor returns the seconds allowed on the given day index.
func (p *BudgetPolicy) AllowanceFor(day int) int {
	if day < 0 || day > 6 {
		return 0
	}
	return p.TimeAllowed[day]
}

// DayOff reports whether the given day is marked fully off.
func (p *BudgetPolicy) DayOff(day int) bool {
	return p.AllowanceFor(day) == DayOffAllowance
}

// Exhausted reports whether today's consumption has reached the
// allowance. A day off is never "exhausted"; it blocks outright.
func (p *BudgetPolicy) Exhausted(day int) bool {
	allowed := p.AllowanceFor(day)
	if allowed == DayOffAllowance {
		return false
	}
	return p.TotalTime >= allowed
}

// Remaining returns the seconds left today, never negative. A day off
// has zero remaining.
func (p *BudgetPolicy) Remaining(day int) int {
	allowed := p.AllowanceFor(day)
	if allowed == DayOffAllowance {
		return 0
	}
	if rem := allowed - p.TotalTime; rem > 0 {
		return rem
	}
	return 0
}

// InScheduledBlock reports whether any scheduled range covers the
// current day and clock time.
func (p *BudgetPolicy) InScheduledBlock(day, nowMinutes int) bool {
	for _, r := range p.ScheduledBlockRanges {
		if r.Contains(day, nowMinutes) {
			return true
		}
	}
	return false
}

// Tick accounts one second of consumption.
func (p *BudgetPolicy) Tick() {
	p.TotalTime++
}

// PathAllowed reports whether the URL path matches a whitelisted
// prefix.
func (p *BudgetPolicy) PathAllowed(path string) bool {
	for _, prefix := range p.AllowedPaths {
		if prefix != "" && hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix
}

// BlockedWebsite is a per-website daily time budget, keyed by
// canonical domain.
type BlockedWebsite struct {
	Website string `json:"website"`
	BudgetPolicy
}

// Valid reports whether a persisted record carries its required key.
// Malformed records are skipped during evaluation, not treated as
// fatal.
func (w *BlockedWebsite) Valid() bool {
	return w != nil && w.Website != ""
}

// Governs reports whether the budget applies to the given domain.
func (w *BlockedWebsite) Governs(domain string) bool {
	return w.Website == domain
}

// GroupTimeBudget is one aggregate daily allowance shared by a set of
// domains; visiting any member deducts from the same counter.
type GroupTimeBudget struct {
	Name     string   `json:"name"`
	Websites []string `json:"websites"`
	BudgetPolicy
}

// Valid reports whether a persisted group record is usable.
func (g *GroupTimeBudget) Valid() bool {
	return g != nil && g.Name != "" && len(g.Websites) > 0
}

// Governs reports whether the domain is a member of the group.
func (g *GroupTimeBudget) Governs(domain string) bool {
	for _, w := range g.Websites {
		if w == domain {
			return true
		}
	}
	return false
}

// Settings holds installation-wide options.
type Settings struct {
	// PasswordHash is a bcrypt hash gating destructive/edit operations;
	// empty disables protection.
	PasswordHash string `json:"password"`
	// WhiteListPathsEnabled globally toggles AllowedPaths handling.
	WhiteListPathsEnabled bool `json:"whiteListPathsEnabled"`
}
