// Package shoppinglist persists the user-owned overlay of a grocery list: the struck (checked off)
// item keys shared by every list view and the manually added items.
package shoppinglist

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"bitepath/internal/storage"
)

// Storage keys shared by every list view.
const (
	StruckKey = "bitepath-struckSharedGroceryItems"
	ManualKey = "bitepath-manualGroceryItems"
)

// KV is the client-local key-value store the overlay lives in.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Subscribe(fn func(storage.Change)) func()
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}

// StruckStore is the single persisted set of struck item keys.
type StruckStore struct {
	kv  KV
	key string
	log *zap.Logger

	// mu serializes read-merge-write cycles within this process.
	mu sync.Mutex
}

// NewStruckStore creates a StruckStore. The namespace separates users sharing one store.
func NewStruckStore(kv KV, namespace string, log *zap.Logger) *StruckStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &StruckStore{kv: kv, key: namespaced(namespace, StruckKey), log: log}
}

// Get returns the persisted set. Unreadable or corrupt content is treated as empty.
func (s *StruckStore) Get() map[string]bool {
	data, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.log.Warn("Failed to read struck items", zap.String("key", s.key), zap.Error(err))
		return map[string]bool{}
	}
	if !ok {
		return map[string]bool{}
	}
	return s.decode(data)
}

func (s *StruckStore) decode(data []byte) map[string]bool {
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		s.log.Warn("Ignoring corrupt struck items", zap.String("key", s.key), zap.Error(err))
		return map[string]bool{}
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func (s *StruckStore) write(set map[string]bool) error {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal struck items: %w", err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return fmt.Errorf("failed to save struck items: %w", err)
	}
	return nil
}

// Toggle flips the membership of itemKey and reports whether it is now struck.
func (s *StruckStore) Toggle(itemKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.Get()
	struck := !set[itemKey]
	if struck {
		set[itemKey] = true
	} else {
		delete(set, itemKey)
	}
	if err := s.write(set); err != nil {
		return false, err
	}
	return struck, nil
}

// Unstrike removes the given keys from the set. Keys that are not struck are ignored.
func (s *StruckStore) Unstrike(itemKeys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.Get()
	changed := false
	for _, k := range itemKeys {
		if set[k] {
			delete(set, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(set)
}

// Subscribe calls fn with the full persisted set whenever it changes, from this or another process.
func (s *StruckStore) Subscribe(fn func(map[string]bool)) func() {
	return s.kv.Subscribe(func(c storage.Change) {
		if c.Key != s.key {
			return
		}
		fn(s.decode(c.Value))
	})
}
