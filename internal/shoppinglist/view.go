package shoppinglist

import (
	"sort"
	"sync"
)

// View is one open list (the full range list or the today list). It keeps the part of the
// shared struck set that applies to the items it currently displays.
type View struct {
	struck *StruckStore

	mu          sync.Mutex
	keys        map[string]bool
	local       map[string]bool
	onChange    func()
	unsubscribe func()
}

// NewView creates a View that follows struck-set changes made by any view.
func NewView(struck *StruckStore) *View {
	v := &View{
		struck: struck,
		keys:   map[string]bool{},
		local:  map[string]bool{},
	}
	v.unsubscribe = struck.Subscribe(v.apply)
	return v
}

// OnChange registers fn to run after the locally relevant struck set changed.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

func (v *View) apply(global map[string]bool) {
	v.mu.Lock()
	next := make(map[string]bool)
	for k := range global {
		if v.keys[k] {
			next[k] = true
		}
	}
	changed := !sameSet(next, v.local)
	v.local = next
	fn := v.onChange
	v.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// SetItems replaces the displayed keys after the list was recomputed. Struck keys that are no
// longer displayed leave the local state but stay persisted, so they return if the item does.
func (v *View) SetItems(keys []string) {
	v.mu.Lock()
	v.keys = make(map[string]bool, len(keys))
	for _, k := range keys {
		v.keys[k] = true
	}
	v.mu.Unlock()

	v.apply(v.struck.Get())
}

// Toggle flips the struck state of key in the shared set and reports the new state.
func (v *View) Toggle(key string) (bool, error) {
	return v.struck.Toggle(key)
}

// IsStruck reports whether a displayed key is struck.
func (v *View) IsStruck(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.local[key]
}

// Struck returns the displayed struck keys in sorted order.
func (v *View) Struck() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.local))
	for k := range v.local {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ClearStruck un-strikes every key of the current list. Keys struck in other lists are kept.
func (v *View) ClearStruck() error {
	v.mu.Lock()
	keys := make([]string, 0, len(v.keys))
	for k := range v.keys {
		keys = append(keys, k)
	}
	v.mu.Unlock()
	return v.struck.Unstrike(keys...)
}

// Close stops following struck-set changes.
func (v *View) Close() {
	v.unsubscribe()
}
