package shoppinglist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bitepath/internal/grocery"
	"bitepath/internal/storage"
)

// ErrItemNameRequired is returned when a manual item is added without a name.
var ErrItemNameRequired = errors.New("item name is required")

// ManualItemInput is what the user types when adding an item by hand.
type ManualItemInput struct {
	Name     string
	Quantity string
	Unit     string
}

// ManualStore is the persisted, insertion-ordered list of manual items.
type ManualStore struct {
	kv  KV
	key string
	log *zap.Logger
	mu  sync.Mutex
}

// NewManualStore creates a ManualStore. The namespace separates users sharing one store.
func NewManualStore(kv KV, namespace string, log *zap.Logger) *ManualStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ManualStore{kv: kv, key: namespaced(namespace, ManualKey), log: log}
}

// List returns the manual items in insertion order. Corrupt content is treated as empty.
func (s *ManualStore) List() []grocery.ManualItem {
	data, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.log.Warn("Failed to read manual items", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return s.decode(data)
}

func (s *ManualStore) decode(data []byte) []grocery.ManualItem {
	var items []grocery.ManualItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("Ignoring corrupt manual items", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	return items
}

func (s *ManualStore) write(items []grocery.ManualItem) error {
	if items == nil {
		items = []grocery.ManualItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal manual items: %w", err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return fmt.Errorf("failed to save manual items: %w", err)
	}
	return nil
}

// Add appends a new item. Name, quantity and unit are trimmed; the name must not be empty.
func (s *ManualStore) Add(in ManualItemInput) (grocery.ManualItem, error) {
	item := grocery.ManualItem{
		ID:       "manual-" + uuid.NewString(),
		Name:     strings.TrimSpace(in.Name),
		Quantity: strings.TrimSpace(in.Quantity),
		Unit:     strings.TrimSpace(in.Unit),
	}
	if item.Name == "" {
		return grocery.ManualItem{}, ErrItemNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	items := append(s.List(), item)
	if err := s.write(items); err != nil {
		return grocery.ManualItem{}, err
	}
	return item, nil
}

// Remove deletes the item with the given id and reports whether it existed.
func (s *ManualStore) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.List()
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, s.write(kept)
}

// Clear removes every manual item.
func (s *ManualStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(nil)
}

// Subscribe calls fn with the new list whenever it changes.
func (s *ManualStore) Subscribe(fn func([]grocery.ManualItem)) func() {
	return s.kv.Subscribe(func(c storage.Change) {
		if c.Key != s.key {
			return
		}
		fn(s.decode(c.Value))
	})
}
