// Package gallery is the application state: it owns the catalog, the
// filtered view and every component that reads it, and keeps them
// consistent as folders, filters and favorites change.
//
// A Gallery is created with New and torn down with Close. Presentation
// layers read state through its getters and learn about changes through
// Subscribe. Subscribers run synchronously on the goroutine that made the
// change and must not call mutating Gallery methods from inside the
// callback; the fyne front end hands every event to fyne.Do.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fygallery/internal/album"
	"fygallery/internal/catalog"
	"fygallery/internal/favorites"
	"fygallery/internal/filter"
	"fygallery/internal/locator"
	"fygallery/internal/navigator"
	"fygallery/internal/notice"
	"fygallery/internal/pager"
	"fygallery/internal/prefs"
	"fygallery/internal/scan"
	"fygallery/internal/slideshow"
	"fygallery/internal/storage"

)

// LoadFailedNotice is posted when a whole batch fails to load.
const LoadFailedNotice = "Failed to load images"

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// Event names what changed.
type Event string

const (
	EventLoading   Event = "loading"
	EventCatalog   Event = "catalog"
	EventView      Event = "view"
	EventPage      Event = "page"
	EventFavorites Event = "favorites"
	EventLightbox  Event = "lightbox"
	EventSlideshow Event = "slideshow"
	EventTheme     Event = "theme"
)

// Options configures a Gallery.
type Options struct {
	PageSize          int
	SlideshowInterval time.Duration
	Concurrency       int
	IDScheme          catalog.IDScheme
	SystemPrefersDark bool
	Logger            LoggerFunc
}

// Gallery wires catalog, album index, filter, favorites, pager, navigator
// and slideshow together.
type Gallery struct {
	// opMu serializes every change to the catalog or the view.
	opMu sync.Mutex
	mu   sync.Mutex

	logger    LoggerFunc
	kv        storage.KV
	registry  *locator.Registry
	builder   *catalog.Builder
	favs      *favorites.Store
	pager     *pager.Pager[catalog.ImageRecord]
	nav       *navigator.Navigator
	show      *slideshow.Controller
	notices   *notice.Log
	transient *notice.Transient

	cat        *catalog.Catalog
	index      *album.Index
	criteria   filter.Criteria
	view       []catalog.ImageRecord
	loading    int
	theme      prefs.Theme
	systemDark bool
	closed     bool

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int

	unsubscribeFavs func()
}

// New creates a Gallery. kv may be nil, in which case nothing is persisted.
func New(kv storage.KV, decoder catalog.Decoder, opts Options) *Gallery {
	g := &Gallery{
		kv:         kv,
		registry:   locator.NewRegistry(),
		pager:      pager.New[catalog.ImageRecord](opts.PageSize),
		nav:        navigator.New(),
		notices:    notice.NewLog(notice.DefaultMaxMessages),
		transient:  notice.NewTransient(notice.DefaultDismiss),
		index:      album.Organize(nil),
		criteria:   filter.Criteria{Album: album.All},
		systemDark: opts.SystemPrefersDark,
		subs:       make(map[int]func(Event)),
	}
	g.logger = func(message string) {
		g.notices.Add(message)
		if opts.Logger != nil {
			opts.Logger(message)
		} else {
			log.Print(message)
		}
	}
	g.builder = catalog.NewBuilder(decoder, g.registry, catalog.Options{
		Concurrency: opts.Concurrency,
		IDScheme:    opts.IDScheme,
		Logger:      catalog.LoggerFunc(g.logger),
	})
	g.favs = favorites.NewStore(kv, favorites.LoggerFunc(g.logger))
	g.show = slideshow.NewController(g.nav, opts.SlideshowInterval)
	g.theme = prefs.LoadTheme(kv, prefs.LoggerFunc(g.logger))

	g.unsubscribeFavs = g.favs.Subscribe(g.favoritesChanged)
	g.nav.OnClose(func() { g.emit(EventLightbox) })
	g.show.OnAdvance(func(int) { g.emit(EventLightbox) })
	g.show.OnStateChange(func() { g.emit(EventSlideshow) })
	return g
}

func (g *Gallery) logMessage(format string, args ...interface{}) {
	g.logger(fmt.Sprintf(format, args...))
}

// Subscribe registers fn for every change. The returned func unsubscribes.
func (g *Gallery) Subscribe(fn func(Event)) func() {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Gallery) emit(events ...Event) {
	g.subMu.Lock()
	subs := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.subMu.Unlock()
	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

// Load builds a catalog from files and installs it, replacing the current
// one. Per-file failures only drop that file. A failed batch posts a
// transient notice. A build overtaken by a newer Load returns
// catalog.ErrSuperseded and changes nothing.
func (g *Gallery) Load(ctx context.Context, files scan.FileItems) error {
	g.setLoading(+1)
	defer g.setLoading(-1)

	cat, err := g.builder.Build(ctx, files)
	if errors.Is(err, catalog.ErrSuperseded) {
		g.logMessage("Discarding superseded catalog build")
		return err
	}
	if err != nil {
		g.logMessage("Error loading images: %v", err)
		g.transient.Post(LoadFailedNotice)
		return err
	}
	if !g.install(cat) {
		return catalog.ErrSuperseded
	}
	g.logMessage("Loaded %d images (%d skipped)", cat.Len(), len(cat.Diagnostics))
	return nil
}

// LoadFolders loads the included batches of set.
func (g *Gallery) LoadFolders(ctx context.Context, set *scan.FolderSet) error {
	return g.Load(ctx, set.Files())
}

func (g *Gallery) setLoading(delta int) {
	g.mu.Lock()
	g.loading += delta
	g.mu.Unlock()
	g.emit(EventLoading)
}

// Loading reports whether a load is in progress.
func (g *Gallery) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loading > 0
}

// install replaces the catalog unless cat is older than the installed one
// or the gallery is closed. The replaced catalog is released.
func (g *Gallery) install(cat *catalog.Catalog) bool {
	g.opMu.Lock()
	g.mu.Lock()
	if g.closed || (g.cat != nil && cat.Generation < g.cat.Generation) {
		g.mu.Unlock()
		g.opMu.Unlock()
		if err := cat.Release(); err != nil {
			g.logMessage("Releasing discarded catalog: %v", err)
		}
		return false
	}
	old := g.cat
	g.cat = cat
	g.index = album.Organize(cat.Records)
	if _, ok := g.index.Get(g.criteria.Album); !ok {
		g.criteria.Album = album.All
	}
	g.mu.Unlock()

	g.recompute()
	g.opMu.Unlock()

	if err := old.Release(); err != nil {
		g.logMessage("Releasing previous catalog: %v", err)
	}
	g.emit(EventCatalog, EventView, EventPage)
	return true
}

// recompute derives the view, resets the pager to its first page and
// re-clamps the lightbox. Callers hold opMu.
func (g *Gallery) recompute() {
	g.mu.Lock()
	view := filter.Apply(g.index.All(), g.criteria, g.favs)
	g.view = view
	g.mu.Unlock()

	g.pager.Reset()
	g.pager.Reveal(pager.Manual, view)
	g.nav.SetView(view)
}

func (g *Gallery) updateCriteria(fn func(c *filter.Criteria) bool) {
	g.opMu.Lock()
	g.mu.Lock()
	changed := fn(&g.criteria)
	g.mu.Unlock()
	if changed {
		g.recompute()
	}
	g.opMu.Unlock()
	if changed {
		g.emit(EventView, EventPage)
	}
}

// SetAlbum selects an album. album.All or "" shows everything.
func (g *Gallery) SetAlbum(name string) {
	if name == "" {
		name = album.All
	}
	g.updateCriteria(func(c *filter.Criteria) bool {
		if c.Album == name {
			return false
		}
		c.Album = name
		return true
	})
}

// SetSearch sets the search query.
func (g *Gallery) SetSearch(query string) {
	g.updateCriteria(func(c *filter.Criteria) bool {
		if c.Query == query {
			return false
		}
		c.Query = query
		return true
	})
}

// SetFavoritesOnly turns the favorites-only filter on or off.
func (g *Gallery) SetFavoritesOnly(on bool) {
	g.updateCriteria(func(c *filter.Criteria) bool {
		if c.FavoritesOnly == on {
			return false
		}
		c.FavoritesOnly = on
		return true
	})
}

// ToggleFavoritesOnly flips the favorites-only filter and returns the new state.
func (g *Gallery) ToggleFavoritesOnly() bool {
	var on bool
	g.updateCriteria(func(c *filter.Criteria) bool {
		c.FavoritesOnly = !c.FavoritesOnly
		on = c.FavoritesOnly
		return true
	})
	return on
}

// ClearFilters resets album, favorites-only and search. It reports whether
// any filter was active.
func (g *Gallery) ClearFilters() bool {
	var cleared bool
	g.updateCriteria(func(c *filter.Criteria) bool {
		cleared = c.Active()
		*c = filter.Criteria{Album: album.All}
		return cleared
	})
	return cleared
}

// Criteria returns the active filter inputs.
func (g *Gallery) Criteria() filter.Criteria {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.criteria
}

func (g *Gallery) favoritesChanged(favorites.Change) {
	g.mu.Lock()
	favOnly := g.criteria.FavoritesOnly
	g.mu.Unlock()
	if favOnly {
		g.opMu.Lock()
		g.recompute()
		g.opMu.Unlock()
		g.emit(EventFavorites, EventView, EventPage)
		return
	}
	g.emit(EventFavorites)
}

// ToggleFavorite flips the favorite state of id and returns the new state.
func (g *Gallery) ToggleFavorite(id string) bool {
	return g.favs.Toggle(id)
}

// ToggleCurrentFavorite flips the favorite state of the lightbox image.
func (g *Gallery) ToggleCurrentFavorite() (favorited bool, ok bool) {
	return g.nav.ToggleFavorite(g.favs)
}

// IsFavorite reports whether id is a favorite.
func (g *Gallery) IsFavorite(id string) bool {
	return g.favs.Has(id)
}

// Favorites returns the favorites store.
func (g *Gallery) Favorites() *favorites.Store {
	return g.favs
}

// Records returns the whole catalog in order.
func (g *Gallery) Records() []catalog.ImageRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index.All()
}

// Diagnostics returns the files dropped from the current catalog.
func (g *Gallery) Diagnostics() []catalog.Diagnostic {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cat == nil {
		return nil
	}
	return g.cat.Diagnostics
}

// View returns the filtered view.
func (g *Gallery) View() []catalog.ImageRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Albums lists the albums of the catalog.
func (g *Gallery) Albums() []album.Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index.Albums()
}

// HasAlbumChoice reports whether an album selector is worth showing.
func (g *Gallery) HasAlbumChoice() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.index.HasChoice()
}

// Shown returns the revealed prefix of the view.
func (g *Gallery) Shown() []catalog.ImageRecord {
	g.mu.Lock()
	view := g.view
	g.mu.Unlock()
	n := g.pager.Revealed()
	if n > len(view) {
		n = len(view)
	}
	return view[:n]
}

// PageGeneration identifies the current view for sentinel signals.
func (g *Gallery) PageGeneration() uint64 {
	return g.pager.Generation()
}

// HasMore reports whether records remain to be revealed.
func (g *Gallery) HasMore() bool {
	return g.pager.HasMore(g.View())
}

// LoadMore reveals the next page on an explicit request.
func (g *Gallery) LoadMore() ([]catalog.ImageRecord, bool) {
	g.opMu.Lock()
	items, more := g.pager.Reveal(pager.Manual, g.View())
	g.opMu.Unlock()
	if len(items) > 0 {
		g.emit(EventPage)
	}
	return items, more
}

// SentinelVisible reveals the next page when the sentinel created in
// generation gen scrolls into view. Signals from an older view are ignored.
func (g *Gallery) SentinelVisible(gen uint64) ([]catalog.ImageRecord, bool) {
	g.opMu.Lock()
	items, more, ok := g.pager.SentinelVisible(gen, g.View())
	g.opMu.Unlock()
	if !ok {
		return nil, false
	}
	if len(items) > 0 {
		g.emit(EventPage)
	}
	return items, more
}

// Open shows the lightbox at index of the view.
func (g *Gallery) Open(index int) bool {
	ok := g.nav.Open(index)
	if ok {
		g.emit(EventLightbox)
	}
	return ok
}

// CloseLightbox hides the lightbox. A running slideshow stops.
func (g *Gallery) CloseLightbox() {
	g.nav.Close()
}

// Navigate moves the lightbox by dir with wraparound.
func (g *Gallery) Navigate(dir int) (int, bool) {
	idx, ok := g.nav.Navigate(dir)
	if ok {
		g.emit(EventLightbox)
	}
	return idx, ok
}

// Lightbox is a snapshot of the navigator.
type Lightbox struct {
	Open      bool
	Index     int
	Len       int
	Current   catalog.ImageRecord
	Favorited bool
}

// Lightbox returns the lightbox state.
func (g *Gallery) Lightbox() Lightbox {
	rec, ok := g.nav.Current()
	lb := Lightbox{Open: ok, Index: g.nav.Index(), Len: g.nav.Len()}
	if ok {
		lb.Current = rec
		lb.Favorited = g.favs.Has(rec.ID)
	}
	return lb
}

// Slideshow returns the slideshow controller.
func (g *Gallery) Slideshow() *slideshow.Controller {
	return g.show
}

// StartSlideshow opens the lightbox at from if needed and starts auto-advance.
func (g *Gallery) StartSlideshow(from int) bool {
	wasOpen := g.nav.IsOpen()
	ok := g.show.Start(from)
	if ok && !wasOpen {
		g.emit(EventLightbox)
	}
	return ok
}

// StopSlideshow stops auto-advance and leaves the lightbox open.
func (g *Gallery) StopSlideshow() {
	g.show.Stop()
}

// Summary renders the photo and favorite counts.
func (g *Gallery) Summary() string {
	return Summary(len(g.View()), g.favs.Count())
}

// Summary renders "<N> photo(s)" followed by " • <M> favorite(s)" when M > 0.
func Summary(photos, favs int) string {
	text := fmt.Sprintf("%d %s", photos, plural(photos, "photo"))
	if favs > 0 {
		text += fmt.Sprintf(" • %d %s", favs, plural(favs, "favorite"))
	}
	return text
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Theme returns the effective theme.
func (g *Gallery) Theme() prefs.Theme {
	g.mu.Lock()
	defer g.mu.Unlock()
	return prefs.Resolve(g.theme, g.systemDark)
}

// ToggleTheme switches between dark and light and saves the choice.
// A failed save is logged; the switch still applies.
func (g *Gallery) ToggleTheme() prefs.Theme {
	g.mu.Lock()
	g.theme = g.theme.Toggle(g.systemDark)
	t := g.theme
	g.mu.Unlock()

	if err := prefs.SaveTheme(g.kv, t); err != nil {
		g.logMessage("Warning: %v", err)
	}
	g.emit(EventTheme)
	return t
}

// Notices returns the message history.
func (g *Gallery) Notices() *notice.Log {
	return g.notices
}

// Transient returns the auto-dismissing notification.
func (g *Gallery) Transient() *notice.Transient {
	return g.transient
}

// Locators returns the registry behind every record URL.
func (g *Gallery) Locators() *locator.Registry {
	return g.registry
}

// Close tears the gallery down: the slideshow stops, the lightbox closes
// and the catalog is released. Later Loads are discarded.
func (g *Gallery) Close() error {
	g.show.Stop()
	g.nav.Close()

	g.opMu.Lock()
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.opMu.Unlock()
		return nil
	}
	g.closed = true
	cat := g.cat
	g.cat = nil
	g.index = album.Organize(nil)
	g.view = nil
	g.mu.Unlock()
	g.nav.SetView(nil)
	g.opMu.Unlock()

	g.unsubscribeFavs()
	g.transient.Dismiss()
	if err := cat.Release(); err != nil {
		return fmt.Errorf("releasing catalog: %w", err)
	}
	return nil
}
