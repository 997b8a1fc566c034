// Package catalog builds the master list of image records for a session.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fygallery/internal/scan"
	"fygallery/internal/service"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultAlbum is the album of files that were not picked inside a folder.
const DefaultAlbum = "Main"

// DefaultConcurrency bounds parallel metadata extraction.
const DefaultConcurrency = 8

// ErrSuperseded is returned by Build when a newer build started before it finished.
var ErrSuperseded = errors.New("catalog build superseded by a newer build")

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// IDScheme selects how record identifiers are generated.
type IDScheme string

const (
	// SessionIDs are time-ordered UUIDv7 values, unique for the session.
	SessionIDs IDScheme = "session"
	// StableIDs are derived from the origin path so they survive restarts.
	StableIDs IDScheme = "stable"
)

var stableNamespace = uuid.MustParse("6f1f7c1e-4b8a-4a53-9d55-2f0f6a1c9b21")

// Decoder reads image dimensions without decoding pixels.
type Decoder interface {
	DecodeConfig(ctx context.Context, item scan.FileItem) (*service.ImageInfo, error)
}

// Locators allocates and revokes content locators.
type Locators interface {
	Allocate(item scan.FileItem) string
	Release(loc string) error
}

// ImageRecord is one accepted image. It is immutable once built.
type ImageRecord struct {
	ID           string
	Name         string
	Source       scan.FileItem
	URL          string
	Path         string
	Album        string
	Width        int
	Height       int
	Size         int64
	LastModified time.Time
	MimeType     string
	Taken        time.Time
}

// Diagnostic records a file that was dropped during a build.
type Diagnostic struct {
	Path string
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.Path, d.Err)
}

// Catalog is the ordered result of one build.
type Catalog struct {
	Generation  uint64
	Records     []ImageRecord
	Diagnostics []Diagnostic

	mu       sync.Mutex
	released bool
	locators Locators
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// Release revokes every locator of the catalog. Only the first call has any effect.
func (c *Catalog) Release() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.locators == nil {
		c.released = true
		return nil
	}
	c.released = true
	var errs []error
	for _, rec := range c.Records {
		if err := c.locators.Release(rec.URL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Released reports whether Release has been called.
func (c *Catalog) Released() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

// Options tunes a Builder.
type Options struct {
	Concurrency int
	IDScheme    IDScheme
	Logger      LoggerFunc
}

// Builder turns file items into catalogs. Every Build gets a generation
// number; a build that finishes after a newer one started is discarded.
type Builder struct {
	decoder     Decoder
	locators    Locators
	logger      LoggerFunc
	concurrency int
	scheme      IDScheme
	gen         atomic.Uint64
}

// NewBuilder creates a Builder. Invalid options fall back to defaults.
func NewBuilder(decoder Decoder, locators Locators, opts Options) *Builder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.IDScheme != StableIDs {
		opts.IDScheme = SessionIDs
	}
	return &Builder{
		decoder:     decoder,
		locators:    locators,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		scheme:      opts.IDScheme,
	}
}

func (b *Builder) logMessage(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// Generation returns the number of the most recently started build.
func (b *Builder) Generation() uint64 {
	return b.gen.Load()
}

// Build filters files to recognized images, extracts their metadata in
// parallel and returns the records sorted by name. A file that cannot be
// read or decoded is dropped with a diagnostic; it never fails the batch.
func (b *Builder) Build(ctx context.Context, files scan.FileItems) (*Catalog, error) {
	gen := b.gen.Add(1)

	var accepted scan.FileItems
	for _, f := range files {
		if scan.IsImage(f.Name) {
			accepted = append(accepted, f)
		}
	}

	results := make([]*ImageRecord, len(accepted))
	var (
		diagMu sync.Mutex
		diags  []Diagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, f := range accepted {
		g.Go(func() error {
			rec, err := b.extract(gctx, f)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.logMessage("Skipping %s: %v", f.RelPath, err)
				diagMu.Lock()
				diags = append(diags, Diagnostic{Path: f.RelPath, Err: err})
				diagMu.Unlock()
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	waitErr := g.Wait()

	cat := &Catalog{Generation: gen, locators: b.locators}
	for _, rec := range results {
		if rec != nil {
			cat.Records = append(cat.Records, *rec)
		}
	}
	sort.Slice(diags, func(i, j int) bool { return diags[i].Path < diags[j].Path })
	cat.Diagnostics = diags

	if waitErr != nil {
		cat.Release()
		return nil, fmt.Errorf("building catalog: %w", waitErr)
	}
	if b.gen.Load() != gen {
		cat.Release()
		return nil, ErrSuperseded
	}

	b.assignIDs(cat.Records)
	SortByName(cat.Records)
	return cat, nil
}

func (b *Builder) extract(ctx context.Context, f scan.FileItem) (*ImageRecord, error) {
	loc := b.locators.Allocate(f)
	info, err := b.decoder.DecodeConfig(ctx, f)
	if err != nil {
		if relErr := b.locators.Release(loc); relErr != nil {
			b.logMessage("Releasing %s: %v", loc, relErr)
		}
		return nil, err
	}
	return &ImageRecord{
		Name:         f.Name,
		Source:       f,
		URL:          loc,
		Path:         f.RelPath,
		Album:        Album(f.RelPath),
		Width:        info.Width,
		Height:       info.Height,
		Size:         f.Size,
		LastModified: f.ModTime,
		MimeType:     f.MimeType,
		Taken:        info.Taken,
	}, nil
}

// assignIDs runs after extraction so uniqueness is checked in one place.
func (b *Builder) assignIDs(records []ImageRecord) {
	seen := make(map[string]bool, len(records))
	for i := range records {
		id := b.newID(records[i])
		if seen[id] {
			b.logMessage("Duplicate id for %s, using a session id", records[i].Path)
			id = sessionID()
			for seen[id] {
				id = sessionID()
			}
		}
		seen[id] = true
		records[i].ID = id
	}
}

func (b *Builder) newID(rec ImageRecord) string {
	if b.scheme == StableIDs {
		key := rec.Source.Path
		if key == "" {
			key = rec.Path
		}
		return uuid.NewSHA1(stableNamespace, []byte(key)).String()
	}
	return sessionID()
}

func sessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Album derives the album name from a slash-separated relative path: the
// immediate parent folder, or DefaultAlbum for a loose file.
func Album(relPath string) string {
	parts := strings.Split(relPath, "/")
	if len(parts) > 1 && parts[len(parts)-2] != "" {
		return parts[len(parts)-2]
	}
	return DefaultAlbum
}

// SortByName orders records by display name using locale-aware collation,
// falling back to the origin path for equal names.
func SortByName(records []ImageRecord) {
	col := collate.New(language.Und)
	sort.SliceStable(records, func(i, j int) bool {
		if c := col.CompareString(records[i].Name, records[j].Name); c != 0 {
			return c < 0
		}
		return records[i].Path < records[j].Path
	})
}
