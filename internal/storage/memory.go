package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Gateway used in tests and as a reference
// implementation. FailReads/FailWrites inject storage errors.
type Memory struct {
	mu          sync.Mutex
	data        map[string]json.RawMessage
	subscribers []func(keys []string)

	FailReads  error
	FailWrites error
}

// NewMemory returns an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{data: map[string]json.RawMessage{}}
}

// Get returns stored values for the requested keys.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads != nil {
		return nil, m.FailReads
	}

	result := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if value, ok := m.data[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

// Set stores JSON-encoded values and notifies subscribers.
func (m *Memory) Set(ctx context.Context, entries map[string]interface{}) error {
	m.mu.Lock()
	if m.FailWrites != nil {
		m.mu.Unlock()
		return m.FailWrites
	}

	keys := make([]string, 0, len(entries))
	for key, value := range entries {
		data, err := json.Marshal(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		m.data[key] = data
		keys = append(keys, key)
	}
	m.mu.Unlock()

	m.notify(keys)
	return nil
}

// Remove deletes keys and notifies subscribers.
func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	if m.FailWrites != nil {
		m.mu.Unlock()
		return m.FailWrites
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()

	m.notify(keys)
	return nil
}

// Subscribe registers a change listener.
func (m *Memory) Subscribe(fn func(keys []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Memory) notify(keys []string) {
	m.mu.Lock()
	subscribers := make([]func([]string), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(keys)
	}
}
