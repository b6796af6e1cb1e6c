package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mikesparr/redis-workflow/persistence"
	c "github.com/patrickmn/go-cache"
)

var _ persistence.Storage = new(memoryStorage)

// memoryStorage keeps everything in process. Useful for tests and a
// single node without durability.
type memoryStorage struct {
	values *c.Cache
	mu     sync.RWMutex
	sets   map[string]map[string]struct{}
}

func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{
		values: c.New(c.NoExpiration, 0),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *memoryStorage) Set(ctx context.Context, key string, value []byte) error {
	m.values.Set(key, slices.Clone(value), c.NoExpiration)
	return nil
}

func (m *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	value, found := m.values.Get(key)
	if !found {
		return nil, persistence.KeyNotFoundError{Key: key}
	}
	return slices.Clone(value.([]byte)), nil
}

func (m *memoryStorage) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.values.Delete(key)
		delete(m.sets, key)
	}
	return nil
}

func (m *memoryStorage) AddMember(ctx context.Context, setKey string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[setKey]
	if !ok {
		set = make(map[string]struct{})
		m.sets[setKey] = set
	}
	set[member] = struct{}{}
	return nil
}

func (m *memoryStorage) RemoveMember(ctx context.Context, setKey string, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.sets[setKey]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(m.sets, setKey)
		}
	}
	return nil
}

func (m *memoryStorage) Members(ctx context.Context, setKey string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]string, 0, len(m.sets[setKey]))
	for member := range m.sets[setKey] {
		members = append(members, member)
	}
	slices.Sort(members)
	return members, nil
}

func (m *memoryStorage) Close() error {
	m.values.Flush()
	return nil
}
