// Package storage provides the persisted key-value gateway shared by
// the decision engine, the options API and the sync collaborator.
package storage

import (
	"context"
	"encoding/json"
)

// Keys consumed and produced by the core.
const (
	KeyBlockedWebsites      = "blockedWebsitesList"
	KeyGroupBudgets         = "groupTimeBudgets"
	KeySettings             = "settings"
	KeyDailyStatistics      = "dailyStatistics"
	KeyHistoricalBlocked    = "historicalBlockedPerDay"
	KeyHistoricalRestricted = "historicalRestrictedTimePerDay"

	// KeyLegacyBlockedSites is the pre-rework flat list converted by the
	// one-time migration.
	KeyLegacyBlockedSites = "blockedSites"
)

// Gateway is the persistence contract the core consumes. Values are
// stored as JSON. Missing keys are simply absent from Get results, not
// errors.
type Gateway interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, entries map[string]interface{}) error
	Remove(ctx context.Context, keys ...string) error

	// Subscribe registers a change listener invoked with the keys
	// touched by each Set/Remove. This is the interface exposed to the
	// sync collaborator.
	Subscribe(fn func(keys []string))
}
