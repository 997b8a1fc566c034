package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Batch is one folder (or loose file) the user picked, with its scanned items.
type Batch struct {
	Name     string
	Root     string
	Included bool
	Items    FileItems
}

// FolderSet keeps the folders chosen for a session. Each folder can be
// included or excluded independently without rescanning.
type FolderSet struct {
	mu      sync.Mutex
	batches []*Batch
	logger  LoggerFunc
}

// NewFolderSet creates an empty FolderSet.
func NewFolderSet(logger LoggerFunc) *FolderSet {
	return &FolderSet{logger: logger}
}

// Add scans root and appends it as an included batch. Adding a root that is
// already present rescans it in place.
func (fs *FolderSet) Add(ctx context.Context, root string) (*Batch, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("adding folder: %w", err)
	}
	items, err := Collect(ctx, abs, fs.logger)
	if err != nil {
		return nil, err
	}
	return fs.AddItems(filepath.Base(abs), abs, items), nil
}

// AddItems appends an already-built batch, replacing any batch with the same root.
func (fs *FolderSet) AddItems(name, root string, items FileItems) *Batch {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, b := range fs.batches {
		if b.Root == root {
			b.Items = items
			return b
		}
	}
	b := &Batch{Name: name, Root: root, Included: true, Items: items}
	fs.batches = append(fs.batches, b)
	return b
}

// Remove drops the batch rooted at root.
func (fs *FolderSet) Remove(root string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, b := range fs.batches {
		if b.Root == root {
			fs.batches = append(fs.batches[:i], fs.batches[i+1:]...)
			return true
		}
	}
	return false
}

// SetIncluded sets the inclusion flag of the batch rooted at root.
func (fs *FolderSet) SetIncluded(root string, included bool) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, b := range fs.batches {
		if b.Root == root {
			b.Included = included
			return true
		}
	}
	return false
}

// Toggle flips inclusion of the batch rooted at root and returns the new state.
func (fs *FolderSet) Toggle(root string) (included bool, ok bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, b := range fs.batches {
		if b.Root == root {
			b.Included = !b.Included
			return b.Included, true
		}
	}
	return false, false
}

// Batches returns a snapshot of all batches in insertion order.
func (fs *FolderSet) Batches() []Batch {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]Batch, len(fs.batches))
	for i, b := range fs.batches {
		out[i] = *b
	}
	return out
}

// Roots returns the roots of the included batches.
func (fs *FolderSet) Roots() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var roots []string
	for _, b := range fs.batches {
		if b.Included {
			roots = append(roots, b.Root)
		}
	}
	return roots
}

// Files returns the items of all included batches, in batch order.
func (fs *FolderSet) Files() FileItems {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out FileItems
	for _, b := range fs.batches {
		if b.Included {
			out = append(out, b.Items...)
		}
	}
	return out
}
