package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted key-value row.
type Entry struct {
	Key   string `gorm:"primarykey" json:"key"`
	Value []byte `json:"value"`
}

// SQLiteGateway implements Gateway on top of a GORM SQLite database.
type SQLiteGateway struct {
	db *gorm.DB

	mu          sync.Mutex
	subscribers []func(keys []string)
}

// NewSQLiteGateway migrates the entries table and returns a gateway.
func NewSQLiteGateway(db *gorm.DB) (*SQLiteGateway, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate entries table: %w", err)
	}
	return &SQLiteGateway{db: db}, nil
}

// Get returns the stored values for the requested keys. Keys without a
// row are omitted from the result.
func (g *SQLiteGateway) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	var rows []Entry
	if err := g.db.WithContext(ctx).Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}

	result := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		result[row.Key] = json.RawMessage(row.Value)
	}
	return result, nil
}

// Set marshals each value to JSON and upserts it, then notifies
// subscribers with the touched keys.
func (g *SQLiteGateway) Set(ctx context.Context, entries map[string]interface{}) error {
	keys := make([]string, 0, len(entries))
	for key, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		row := Entry{Key: key, Value: data}
		if err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		keys = append(keys, key)
	}

	g.notify(keys)
	return nil
}

// Remove deletes the given keys and notifies subscribers.
func (g *SQLiteGateway) Remove(ctx context.Context, keys ...string) error {
	if err := g.db.WithContext(ctx).Where("key IN ?", keys).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("failed to remove entries: %w", err)
	}
	g.notify(keys)
	return nil
}

// Subscribe registers a change listener.
func (g *SQLiteGateway) Subscribe(fn func(keys []string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}

func (g *SQLiteGateway) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	g.mu.Lock()
	subscribers := make([]func([]string), len(g.subscribers))
	copy(subscribers, g.subscribers)
	g.mu.Unlock()

	for _, fn := range subscribers {
		fn(keys)
	}
}
