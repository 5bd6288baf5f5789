package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is a process-local PageCache.
type Memory struct {
	store *ristretto.Cache[string, []byte]
}

// NewMemory creates an in-process cache bounded to maxBytes of values.
func NewMemory(maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Cost: func(value []byte) int64 {
			return int64(len(value))
		},
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &Memory{store: store}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

// Put stores value and waits until it is visible to Get.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	if !m.store.SetWithTTL(key, stored, 0, ttl) {
		return fmt.Errorf("cache rejected %q", key)
	}
	m.store.Wait()
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.store.Del(key)
	m.store.Wait()
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.store.Clear()
	return nil
}

func (m *Memory) Close() error {
	m.store.Close()
	return nil
}
