package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	DefaultMaxKeySize   = 256
	DefaultMaxValueSize = 64 << 10 // 64KB
	DefaultMaxEntries   = 1024
)

// KVConfig bounds an in-memory key-value store. Zero fields take the
// package defaults.
type KVConfig struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

func DefaultKVConfig() KVConfig {
	return KVConfig{
		MaxKeySize:   DefaultMaxKeySize,
		MaxValueSize: DefaultMaxValueSize,
		MaxEntries:   DefaultMaxEntries,
	}
}

// KVStore is an in-memory string store shared across runs and sessions.
type KVStore struct {
	cfg  KVConfig
	data map[string]string
	mu   sync.RWMutex
}

func NewKVStore(cfg KVConfig) *KVStore {
	if cfg.MaxKeySize == 0 {
		cfg.MaxKeySize = DefaultMaxKeySize
	}
	if cfg.MaxValueSize == 0 {
		cfg.MaxValueSize = DefaultMaxValueSize
	}
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &KVStore{cfg: cfg, data: make(map[string]string)}
}

func (s *KVStore) Get(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}

	s.mu.RLock()
	val, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	return val, nil
}

func (s *KVStore) Set(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}
	val, ok := args["value"].(string)
	if !ok {
		return nil, errors.New("value required")
	}

	if len(key) > s.cfg.MaxKeySize {
		return nil, fmt.Errorf("key exceeds max size (%d bytes)", s.cfg.MaxKeySize)
	}
	if len(val) > s.cfg.MaxValueSize {
		return nil, fmt.Errorf("value exceeds max size (%d bytes)", s.cfg.MaxValueSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists && len(s.data) >= s.cfg.MaxEntries {
		return nil, fmt.Errorf("store full (%d entries)", s.cfg.MaxEntries)
	}
	s.data[key] = val
	return "ok", nil
}

func (s *KVStore) Delete(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()

	return "ok", nil
}

// Keys returns all stored keys in sorted order.
func (s *KVStore) Keys(ctx context.Context, args map[string]any) (any, error) {
	s.mu.RLock()
	keys := make([]any, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].(string) < keys[j].(string) })
	return keys, nil
}
