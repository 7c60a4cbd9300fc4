package library

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Slot keys, one per persisted collection.
const (
	SlotBooks           = "books"
	SlotUsers           = "users"
	SlotLoans           = "loans"
	SlotSettings        = "settings"
	SlotSpecializations = "specializations"
)

// Store is a durable key-value store holding one JSON document per slot.
type Store interface {
	// Load returns the raw value saved under key; found is false if the
	// slot has never been written.
	Load(ctx context.Context, key string) (raw []byte, found bool, err error)
	// Save writes every slot in one atomic step.
	Save(ctx context.Context, slots map[string][]byte) error
	Close() error
}

// LoadSlot decodes the slot under key into a T. An absent or unparseable
// slot yields fallback; only store I/O failures are returned.
func LoadSlot[T any](ctx context.Context, s Store, key string, fallback T, log *zap.Logger) (T, error) {
	raw, found, err := s.Load(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return fallback, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn("unparseable slot, using seed data", zap.String("slot", key), zap.Error(err))
		return fallback, nil
	}
	return v, nil
}

// encodeSlots marshals each value for Store.Save.
func encodeSlots(values map[string]any) (map[string][]byte, error) {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), raw...), true, nil
}

func (m *MemoryStore) Save(_ context.Context, slots map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range slots {
		m.slots[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
