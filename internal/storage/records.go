package storage

import (
	"context"
	"encoding/json"
	"log"

	"siteguard/internal/models"
)

// LoadBlockedWebsites reads the domain -> budget map. Individual
// malformed records are skipped with a log line so one corrupt entry
// never poisons the whole evaluation.
func LoadBlockedWebsites(ctx context.Context, gw Gateway) (map[string]*models.BlockedWebsite, error) {
	values, err := gw.Get(ctx, KeyBlockedWebsites)
	if err != nil {
		return nil, err
	}

	websites := map[string]*models.BlockedWebsite{}
	raw, ok := values[KeyBlockedWebsites]
	if !ok {
		return websites, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Corrupt blocked websites list, treating as empty: %v", err)
		return websites, nil
	}

	for domain, data := range entries {
		var website models.BlockedWebsite
		if err := json.Unmarshal(data, &website); err != nil || !website.Valid() {
			log.Printf("Skipping malformed blocked website record %q", domain)
			continue
		}
		websites[domain] = &website
	}
	return websites, nil
}

// SaveBlockedWebsites writes the full domain -> budget map back.
func SaveBlockedWebsites(ctx context.Context, gw Gateway, websites map[string]*models.BlockedWebsite) error {
	return gw.Set(ctx, map[string]interface{}{KeyBlockedWebsites: websites})
}

// LoadGroupBudgets reads the group budget list, skipping malformed
// entries.
func LoadGroupBudgets(ctx context.Context, gw Gateway) ([]*models.GroupTimeBudget, error) {
	values, err := gw.Get(ctx, KeyGroupBudgets)
	if err != nil {
		return nil, err
	}

	var groups []*models.GroupTimeBudget
	raw, ok := values[KeyGroupBudgets]
	if !ok {
		return groups, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Printf("Corrupt group budget list, treating as empty: %v", err)
		return groups, nil
	}

	for i, data := range entries {
		var group models.GroupTimeBudget
		if err := json.Unmarshal(data, &group); err != nil || !group.Valid() {
			log.Printf("Skipping malformed group budget record at index %d", i)
			continue
		}
		groups = append(groups, &group)
	}
	return groups, nil
}

// SaveGroupBudgets writes the group budget list back.
func SaveGroupBudgets(ctx context.Context, gw Gateway, groups []*models.GroupTimeBudget) error {
	if groups == nil {
		groups = []*models.GroupTimeBudget{}
	}
	return gw.Set(ctx, map[string]interface{}{KeyGroupBudgets: groups})
}

// LoadSettings reads installation settings, defaulting to zero values
// when absent or corrupt.
func LoadSettings(ctx context.Context, gw Gateway) (*models.Settings, error) {
	values, err := gw.Get(ctx, KeySettings)
	if err != nil {
		return nil, err
	}

	settings := &models.Settings{}
	if raw, ok := values[KeySettings]; ok {
		if err := json.Unmarshal(raw, settings); err != nil {
			log.Printf("Corrupt settings record, using defaults: %v", err)
			settings = &models.Settings{}
		}
	}
	return settings, nil
}

// SaveSettings writes installation settings back.
func SaveSettings(ctx context.Context, gw Gateway, settings *models.Settings) error {
	return gw.Set(ctx, map[string]interface{}{KeySettings: settings})
}

// LoadDailyStatistics reads the current day's counters. An absent or
// corrupt record loads as empty counters with no date.
func LoadDailyStatistics(ctx context.Context, gw Gateway) (*models.DailyStatistics, error) {
	values, err := gw.Get(ctx, KeyDailyStatistics)
	if err != nil {
		return nil, err
	}

	stats := models.NewDailyStatistics("")
	if raw, ok := values[KeyDailyStatistics]; ok {
		if err := json.Unmarshal(raw, stats); err != nil {
			log.Printf("Corrupt daily statistics, resetting: %v", err)
			stats = models.NewDailyStatistics("")
		}
	}
	return stats, nil
}

// SaveDailyStatistics writes the current day's counters back.
func SaveDailyStatistics(ctx context.Context, gw Gateway, stats *models.DailyStatistics) error {
	return gw.Set(ctx, map[string]interface{}{KeyDailyStatistics: stats})
}

// LoadHistory reads one of the historical date-indexed maps.
func LoadHistory(ctx context.Context, gw Gateway, key string) (models.History, error) {
	values, err := gw.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	history := models.History{}
	if raw, ok := values[key]; ok {
		if err := json.Unmarshal(raw, &history); err != nil {
			log.Printf("Corrupt history %s, treating as empty: %v", key, err)
			history = models.History{}
		}
	}
	return history, nil
}

// SaveHistory writes a historical map back.
func SaveHistory(ctx context.Context, gw Gateway, key string, history models.History) error {
	return gw.Set(ctx, map[string]interface{}{key: history})
}
