// Package filter derives the filtered view from the catalog.
package filter

import (
	"strings"

	"fygallery/internal/album"
	"fygallery/internal/catalog"
)

// Membership answers whether an image id is a favorite.
type Membership interface {
	Has(id string) bool
}

// Criteria are the user-controlled filter inputs.
type Criteria struct {
	Album         string
	FavoritesOnly bool
	Query         string
}

// albumActive reports whether the album predicate applies.
func (c Criteria) albumActive() bool {
	return c.Album != "" && c.Album != album.All
}

// Active reports whether any predicate would drop records.
func (c Criteria) Active() bool {
	return c.albumActive() || c.FavoritesOnly || c.Query != ""
}

// Apply runs the album, favorites and search predicates, in that order, and
// returns the surviving records in catalog order. Every active predicate is
// evaluated for every record. favs may be nil when FavoritesOnly is false.
func Apply(records []catalog.ImageRecord, c Criteria, favs Membership) []catalog.ImageRecord {
	query := strings.ToLower(c.Query)
	out := make([]catalog.ImageRecord, 0, len(records))
	for _, rec := range records {
		if c.albumActive() && rec.Album != c.Album {
			continue
		}
		if c.FavoritesOnly && (favs == nil || !favs.Has(rec.ID)) {
			continue
		}
		if query != "" && !Matches(rec, query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Matches reports whether a lowercased query is a substring of the record's
// name or album, ignoring case.
func Matches(rec catalog.ImageRecord, query string) bool {
	return strings.Contains(strings.ToLower(rec.Name), query) ||
		strings.Contains(strings.ToLower(rec.Album), query)
}
