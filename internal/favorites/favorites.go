// Package favorites keeps the persisted set of favorited image ids.
//
// The store is the only writer of the favorites set. Every toggle is written
// back synchronously and then announced to subscribers, so a read after a
// toggle always sees the new state.
package favorites

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Key is the storage key of the persisted favorites list.
const Key = "gallery-favorites"

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// KV is the subset of storage.KV the store needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Change describes one toggle.
type Change struct {
	ID        string
	Favorited bool
	Count     int
}

// Store is the favorites set.
type Store struct {
	mu     sync.Mutex
	kv     KV
	logger LoggerFunc
	ids    map[string]struct{}
	subs   map[int]func(Change)
	nextID int
}

// NewStore loads the set from kv. Unreadable or malformed data is logged and
// the store starts empty; it never fails.
func NewStore(kv KV, logger LoggerFunc) *Store {
	s := &Store{
		kv:     kv,
		logger: logger,
		ids:    make(map[string]struct{}),
		subs:   make(map[int]func(Change)),
	}
	s.load()
	return s
}

func (s *Store) logMessage(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

func (s *Store) load() {
	if s.kv == nil {
		return
	}
	raw, ok, err := s.kv.Get(Key)
	if err != nil {
		s.logMessage("Warning: could not read favorites: %v", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	list, err := decodeList([]byte(raw))
	if err != nil {
		s.logMessage("Warning: ignoring malformed favorites %q: %v", raw, err)
		return
	}
	for _, id := range list {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

// Has reports whether id is a favorite.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Count returns the number of favorites.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the favorites in sorted order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips the membership of id, persists the set and notifies
// subscribers. It returns the new membership. An empty id is ignored.
// A failed write is logged; the in-memory change stands.
func (s *Store) Toggle(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	_, was := s.ids[id]
	if was {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	change := Change{ID: id, Favorited: !was, Count: len(s.ids)}
	s.persistLocked()
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
	return change.Favorited
}

func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	data, err := encodeList(s.sortedLocked())
	if err != nil {
		s.logMessage("Warning: could not encode favorites: %v", err)
		return
	}
	if err := s.kv.Set(Key, string(data)); err != nil {
		s.logMessage("Warning: could not save favorites: %v", err)
	}
}

// Subscribe registers fn for every toggle. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// encodeList marshals a list of strings into a JSON byte slice.
func encodeList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func decodeList(data []byte) ([]string, error) {
	var list []string
	if data == nil {
		return []string{}, nil
	}
	err := json.Unmarshal(data, &list)
	return list, err
}
