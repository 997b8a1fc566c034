// Package album groups catalog records by their folder-derived album name.
package album

import "fygallery/internal/catalog"

// All is the synthetic album holding the whole catalog.
const All = "all"

// Summary is the name and size of one album.
type Summary struct {
	Name  string
	Count int
}

// Index maps album names to the ordered records they contain. It is rebuilt
// whenever the catalog changes and never mutated afterwards.
type Index struct {
	all    []catalog.ImageRecord
	order  []string
	groups map[string][]catalog.ImageRecord
}

// Organize groups records by album. Order within every group follows records.
func Organize(records []catalog.ImageRecord) *Index {
	idx := &Index{
		all:    records,
		groups: make(map[string][]catalog.ImageRecord),
	}
	for _, rec := range records {
		if _, ok := idx.groups[rec.Album]; !ok {
			idx.order = append(idx.order, rec.Album)
		}
		idx.groups[rec.Album] = append(idx.groups[rec.Album], rec)
	}
	return idx
}

// All returns the full catalog.
func (i *Index) All() []catalog.ImageRecord {
	if i == nil {
		return nil
	}
	return i.all
}

// Get returns the records of one album. All or an empty name yields the full catalog.
func (i *Index) Get(name string) ([]catalog.ImageRecord, bool) {
	if i == nil {
		return nil, false
	}
	if name == "" || name == All {
		return i.all, true
	}
	recs, ok := i.groups[name]
	return recs, ok
}

// Albums lists the real albums in the order they first appear in the catalog.
func (i *Index) Albums() []Summary {
	if i == nil {
		return nil
	}
	out := make([]Summary, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, Summary{Name: name, Count: len(i.groups[name])})
	}
	return out
}

// HasChoice reports whether there is more than one album to pick from.
func (i *Index) HasChoice() bool {
	return i != nil && len(i.order) > 1
}
