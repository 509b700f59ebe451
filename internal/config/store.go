package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/spf13/viper"
)

// Store is a read-through view of the extension settings file. Reload
// re-reads the file and notifies subscribers of every key that changed.
type Store struct {
	path string

	mu     sync.RWMutex
	v      *viper.Viper
	last   map[Key]any
	subs   map[uint64]func(Change)
	nextID uint64
}

// NewStore opens the settings file at path. A missing file is treated as
// empty, so every key reads as its default until the file appears.
func NewStore(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid settings path %s: %w", path, err)
	}

	s := &Store{
		path: abs,
		subs: make(map[uint64]func(Change)),
	}

	v, err := s.read()
	if err != nil {
		return nil, err
	}
	s.v = v
	s.last = snapshot(v)
	return s, nil
}

// Path returns the absolute path of the settings file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", s.path, err)
	}
	return v, nil
}

func snapshot(v *viper.Viper) map[Key]any {
	values := make(map[Key]any, len(Keys))
	for _, k := range Keys {
		values[k] = v.Get(k.Path())
	}
	return values
}

// String returns the value of key, or def when the key is not set.
func (s *Store) String(key Key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key.Path()) {
		return def
	}
	return s.v.GetString(key.Path())
}

// Bool returns the value of key, or def when the key is not set.
func (s *Store) Bool(key Key, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key.Path()) {
		return def
	}
	return s.v.GetBool(key.Path())
}

// Subscribe registers fn for change notifications. Notifications are
// delivered serially from whichever goroutine called Reload.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Reload re-reads the settings file and returns the keys that changed, in
// dispatch order. Subscribers are notified once per changed key.
func (s *Store) Reload() ([]Change, error) {
	v, err := s.read()
	if err != nil {
		return nil, err
	}
	next := snapshot(v)

	s.mu.Lock()
	var changes []Change
	for _, k := range Keys {
		if !reflect.DeepEqual(s.last[k], next[k]) {
			changes = append(changes, Change{Key: k})
		}
	}
	s.v = v
	s.last = next
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
	return changes, nil
}

// Set writes value for key into the settings file and reloads it.
func (s *Store) Set(key Key, value any) ([]Change, error) {
	w, err := s.read()
	if err != nil {
		return nil, err
	}
	w.Set(key.Path(), value)

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := w.WriteConfigAs(s.path); err != nil {
		return nil, fmt.Errorf("failed to write settings %s: %w", s.path, err)
	}
	return s.Reload()
}
