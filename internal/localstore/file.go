// Package localstore implements the unscoped key/value mirror the session
// keeps next to its durable cookie, plus in-memory stores for tests and
// --ephemeral runs.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is a key/value store persisted as a single JSON document. Every
// write rewrites the whole file with 0600 permissions.
type File struct {
	path string

	mu    sync.Mutex
	items map[string]string
}

// savedItems is the JSON structure written to disk.
type savedItems struct {
	Items   map[string]string `json:"items"`
	SavedAt time.Time         `json:"saved_at"`
}

// OpenFile loads path if it exists. A missing file is an empty store.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, items: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading local store: %w", err)
	}

	var saved savedItems
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("decoding local store %s: %w", path, err)
	}
	for k, v := range saved.Items {
		f.items[k] = v
	}
	return f, nil
}

// Path returns the backing file.
func (f *File) Path() string {
	return f.path
}

func (f *File) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *File) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.items[key]
	f.items[key] = value
	if err := f.saveLocked(); err != nil {
		if had {
			f.items[key] = prev
		} else {
			delete(f.items, key)
		}
		return err
	}
	return nil
}

func (f *File) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.items[key]
	if !had {
		return nil
	}
	delete(f.items, key)
	if err := f.saveLocked(); err != nil {
		f.items[key] = prev
		return err
	}
	return nil
}

func (f *File) saveLocked() error {
	data, err := json.MarshalIndent(savedItems{
		Items:   f.items,
		SavedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating local store dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing local store: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing local store: %w", err)
	}
	return nil
}
