package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const fileExt = ".json"

// Change describes a new value stored under a key.
type Change struct {
	Key   string
	Value []byte
	// Remote is true when the write was made by another process sharing the directory.
	Remote bool
}

// FileStore is a small client-local key-value store with one file per key. Writers in other
// processes are picked up through Watch.
type FileStore struct {
	basePath string
	log      *zap.Logger

	mu       sync.Mutex
	subs     map[int]func(Change)
	nextID   int
	lastSeen map[string][]byte
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		basePath: basePath,
		log:      log,
		subs:     make(map[int]func(Change)),
		lastSeen: make(map[string][]byte),
	}, nil
}

func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.basePath, url.QueryEscape(key)+fileExt)
}

func keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

// Get returns the stored value. A missing key is not an error.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return data, true, nil
}

// Set replaces the value of key atomically and notifies subscribers.
func (s *FileStore) Set(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	s.mu.Lock()
	s.lastSeen[key] = bytes.Clone(value)
	s.mu.Unlock()

	if err := os.Rename(tmpName, s.pathFor(key)); err != nil {
		return fmt.Errorf("failed to replace key %s: %w", key, err)
	}

	s.notify(Change{Key: key, Value: value})
	return nil
}

// Subscribe registers fn for every change. The returned function removes the subscription.
func (s *FileStore) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *FileStore) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Watch starts delivering writes made by other processes to subscribers. Writes made through
// this store are not delivered twice. Watching stops when ctx is done.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.basePath); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.basePath, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
					s.handleEvent(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("File watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (s *FileStore) handleEvent(path string) {
	key, ok := keyFromPath(path)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// Renamed away or replaced again before we got to it.
		s.log.Debug("Skipping unreadable store file", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	if prev, seen := s.lastSeen[key]; seen && bytes.Equal(prev, data) {
		s.mu.Unlock()
		return
	}
	s.lastSeen[key] = data
	s.mu.Unlock()

	s.log.Debug("Store key changed externally", zap.String("key", key))
	s.notify(Change{Key: key, Value: data, Remote: true})
}
