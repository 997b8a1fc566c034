// Package thumb generates and caches grid thumbnails. A thumbnail is only
// produced when its tile is reported visible.
package thumb

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nfnt/resize"
	"golang.org/x/sync/singleflight"
)

const (
	// MaxDimension bounds both sides of a thumbnail.
	MaxDimension = 200
	// DefaultEntries is the number of thumbnails kept in memory.
	DefaultEntries = 512
)

// Source dereferences content locators.
type Source interface {
	Open(loc string) (io.ReadCloser, error)
}

// Decoder turns content into an image. name selects the format.
type Decoder interface {
	DecodeNamed(name string, r io.Reader, maxDim int) (image.Image, error)
}

// Thumbnail is a scaled image and its PNG encoding.
type Thumbnail struct {
	Image image.Image
	PNG   []byte
}

// Cache is an LRU of thumbnails keyed by content locator.
type Cache struct {
	source  Source
	decoder Decoder
	entries *lru.Cache[string, *Thumbnail]
	group   singleflight.Group
}

// New creates a Cache holding up to entries thumbnails.
func New(source Source, decoder Decoder, entries int) (*Cache, error) {
	if entries <= 0 {
		entries = DefaultEntries
	}
	c, err := lru.New[string, *Thumbnail](entries)
	if err != nil {
		return nil, fmt.Errorf("creating thumbnail cache: %w", err)
	}
	return &Cache{source: source, decoder: decoder, entries: c}, nil
}

// Peek returns a cached thumbnail without generating one.
func (c *Cache) Peek(loc string) (*Thumbnail, bool) {
	return c.entries.Get(loc)
}

// Get returns the thumbnail for loc, generating it on a miss. Concurrent
// requests for the same locator share one generation.
func (c *Cache) Get(loc, name string) (*Thumbnail, error) {
	if t, ok := c.entries.Get(loc); ok {
		return t, nil
	}
	v, err, _ := c.group.Do(loc, func() (interface{}, error) {
		t, err := c.generate(loc, name)
		if err != nil {
			return nil, err
		}
		c.entries.Add(loc, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Thumbnail), nil
}

// Request generates the thumbnail in the background and calls done with it.
func (c *Cache) Request(loc, name string, done func(*Thumbnail, error)) {
	if t, ok := c.entries.Get(loc); ok {
		done(t, nil)
		return
	}
	go func() {
		done(c.Get(loc, name))
	}()
}

// Forget drops loc, for a released locator.
func (c *Cache) Forget(loc string) {
	c.entries.Remove(loc)
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) generate(loc, name string) (*Thumbnail, error) {
	r, err := c.source.Open(loc)
	if err != nil {
		return nil, fmt.Errorf("thumbnail for %s: %w", name, err)
	}
	defer r.Close()

	img, err := c.decoder.DecodeNamed(name, r, MaxDimension)
	if err != nil {
		return nil, fmt.Errorf("thumbnail for %s: %w", name, err)
	}
	thumbImg := resize.Thumbnail(MaxDimension, MaxDimension, img, resize.Lanczos3)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, thumbImg); err != nil {
		return nil, fmt.Errorf("encoding thumbnail for %s: %w", name, err)
	}
	return &Thumbnail{Image: thumbImg, PNG: buf.Bytes()}, nil
}
