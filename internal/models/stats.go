package models

// DailyStatistics holds the current day's in-progress counters before
// they are folded into the historical maps at rollover.
type DailyStatistics struct {
	Date string `json:"date"`
	// BlockedPerDay counts block events per website today.
	BlockedPerDay map[string]int `json:"blockedPerDay"`
	// RestrictedTimePerDay accumulates seconds spent on each website
	// before it was blocked today.
	RestrictedTimePerDay map[string]int `json:"restrictedTimePerDay"`
}

// NewDailyStatistics returns empty counters for the given date.
func NewDailyStatistics(date string) *DailyStatistics {
	return &DailyStatistics{
		Date:                 date,
		BlockedPerDay:        map[string]int{},
		RestrictedTimePerDay: map[string]int{},
	}
}

// RecordBlock adds one block event and the seconds spent this visit.
func (d *DailyStatistics) RecordBlock(domain string, secondsSpent int) {
	if d.BlockedPerDay == nil {
		d.BlockedPerDay = map[string]int{}
	}
	if d.RestrictedTimePerDay == nil {
		d.RestrictedTimePerDay = map[string]int{}
	}
	d.BlockedPerDay[domain]++
	if secondsSpent > 0 {
		d.RestrictedTimePerDay[domain] += secondsSpent
	}
}

// History maps date -> website -> count, for both block events and
// restricted seconds.
type History map[string]map[string]int

// Merge folds per-website counts into the given date, adding to any
// counts already archived there.
func (h History) Merge(date string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	day := h[date]
	if day == nil {
		day = map[string]int{}
		h[date] = day
	}
	for website, n := range counts {
		day[website] += n
	}
}
