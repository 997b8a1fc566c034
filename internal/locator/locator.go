// Package locator hands out revocable URLs for image content.
//
// A locator stands in for the decoded image bytes of one catalog entry. It
// stays dereferenceable until it is released, and it must be released exactly
// once.
package locator

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"fygallery/internal/scan"

	"github.com/google/uuid"
)

// Scheme prefixes every locator URL.
const Scheme = "fygallery://blob/"

// ErrReleased is returned for a locator that is unknown or already released.
var ErrReleased = errors.New("locator released or unknown")

// Registry maps locator URLs to the file items they stand for.
type Registry struct {
	mu    sync.RWMutex
	items map[string]scan.FileItem
	total int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]scan.FileItem)}
}

// Allocate registers item and returns a fresh locator for it.
func (r *Registry) Allocate(item scan.FileItem) string {
	loc := Scheme + uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[loc] = item
	r.total++
	return loc
}

// Open dereferences loc.
func (r *Registry) Open(loc string) (io.ReadCloser, error) {
	item, err := r.Item(loc)
	if err != nil {
		return nil, err
	}
	return item.Open()
}

// Item returns the file item behind loc.
func (r *Registry) Item(loc string) (scan.FileItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[loc]
	if !ok {
		return scan.FileItem{}, fmt.Errorf("%s: %w", loc, ErrReleased)
	}
	return item, nil
}

// Release revokes loc. Releasing twice returns ErrReleased.
func (r *Registry) Release(loc string) error {
	if !strings.HasPrefix(loc, Scheme) {
		return fmt.Errorf("%q is not a locator: %w", loc, ErrReleased)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[loc]; !ok {
		return fmt.Errorf("%s: %w", loc, ErrReleased)
	}
	delete(r.items, loc)
	return nil
}

// Live returns the number of locators not yet released.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Allocated returns the number of locators ever handed out.
func (r *Registry) Allocated() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
