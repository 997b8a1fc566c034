package gallery

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"fygallery/internal/catalog"
	"fygallery/internal/favorites"
	"fygallery/internal/prefs"
	"fygallery/internal/scan"
	"fygallery/internal/service"
	"fygallery/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct{}

func (fakeDecoder) DecodeConfig(ctx context.Context, item scan.FileItem) (*service.ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.Contains(item.Name, "broken") {
		return nil, errors.New("undecodable")
	}
	return &service.ImageInfo{Width: 10, Height: 10}, nil
}

func files(rels ...string) scan.FileItems {
	out := make(scan.FileItems, len(rels))
	for i, rel := range rels {
		name := rel[strings.LastIndex(rel, "/")+1:]
		out[i] = scan.NewStreamItem(name, rel, 100, time.Unix(0, 0), func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("")), nil
		})
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	logs   []string
	events []Event
}

func (r *recorder) log(m string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, m)
}

func (r *recorder) event(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) saw(e Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.events {
		if got == e {
			return true
		}
	}
	return false
}

func (r *recorder) logged(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.logs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func newGallery(t *testing.T, kv storage.KV, opts Options) (*Gallery, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts.Logger = rec.log
	g := New(kv, fakeDecoder{}, opts)
	g.Subscribe(rec.event)
	t.Cleanup(func() { g.Close() })
	return g, rec
}

func names(recs []catalog.ImageRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func tenWithTrips() scan.FileItems {
	return files(
		"Photos/Trips/t1.jpg", "Photos/a.jpg", "Photos/b.jpg", "Photos/Trips/t2.jpg",
		"Photos/c.jpg", "Photos/d.jpg", "Photos/Trips/t3.jpg", "e.jpg", "f.jpg", "g.jpg",
	)
}

func TestLoadBuildsSortedView(t *testing.T) {
	g, rec := newGallery(t, storage.NewMemory(), Options{})
	require.NoError(t, g.Load(context.Background(), files("b.png", "a.png", "c.png", "notes.txt", "broken.png")))

	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, names(g.View()))
	assert.Equal(t, "3 photos", g.Summary())
	assert.False(t, g.Loading())
	require.Len(t, g.Diagnostics(), 1)
	assert.True(t, rec.logged("Skipping broken.png"))
	assert.True(t, rec.saw(EventCatalog))
	assert.True(t, rec.saw(EventLoading))
	assert.NotZero(t, g.Notices().Len(), "log lines reach the status history")
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "0 photos", Summary(0, 0))
	assert.Equal(t, "1 photo", Summary(1, 0))
	assert.Equal(t, "2 photos • 1 favorite", Summary(2, 1))
	assert.Equal(t, "1234 photos • 2 favorites", Summary(1234, 2))
	assert.Equal(t, "1234 photos • 1001 favorites", Summary(1234, 1001))
}

func TestAlbumFilter(t *testing.T) {
	g, _ := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), tenWithTrips()))

	g.SetAlbum("Trips")
	assert.Equal(t, []string{"t1.jpg", "t2.jpg", "t3.jpg"}, names(g.View()))
	assert.True(t, g.HasAlbumChoice())
	assert.Len(t, g.Albums(), 3)

	// An album that disappears on reload falls back to all.
	require.NoError(t, g.Load(context.Background(), files("x.jpg", "y.jpg")))
	assert.Equal(t, "all", g.Criteria().Album)
	assert.Len(t, g.View(), 2)
}

func TestSearch(t *testing.T) {
	g, _ := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), files("Misc/party.jpg", "Vacation2023.jpg")))
	g.SetSearch("vacation")
	assert.Equal(t, []string{"Vacation2023.jpg"}, names(g.View()))
	g.SetSearch("")
	assert.Len(t, g.View(), 2)
}

func TestClearFilters(t *testing.T) {
	g, rec := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), tenWithTrips()))
	assert.False(t, g.ClearFilters(), "nothing to clear")

	g.SetAlbum("Trips")
	g.SetSearch("zzz")
	require.Empty(t, g.View())
	assert.True(t, g.ClearFilters())
	assert.False(t, g.Criteria().Active())
	assert.Len(t, g.View(), 10)
	assert.True(t, rec.saw(EventView))
}

func TestFavoritesOnlyRecomputesOnToggle(t *testing.T) {
	kv := storage.NewMemory()
	g, _ := newGallery(t, kv, Options{})
	require.NoError(t, g.Load(context.Background(), files("a.jpg", "b.jpg", "c.jpg")))
	view := g.View()

	assert.True(t, g.ToggleFavorite(view[1].ID))
	assert.True(t, g.ToggleFavoritesOnly())
	assert.Equal(t, []string{"b.jpg"}, names(g.View()))
	assert.Equal(t, "1 photo • 1 favorite", g.Summary())

	g.ToggleFavorite(view[2].ID)
	assert.Equal(t, []string{"b.jpg", "c.jpg"}, names(g.View()))

	g.ToggleFavorite(view[1].ID)
	assert.Equal(t, []string{"c.jpg"}, names(g.View()))

	raw, _, err := kv.Get(favorites.Key)
	require.NoError(t, err)
	assert.Equal(t, `["`+view[2].ID+`"]`, raw)

	assert.False(t, g.ToggleFavoritesOnly())
	assert.Len(t, g.View(), 3)
}

func TestPaging(t *testing.T) {
	g, _ := newGallery(t, nil, Options{PageSize: 2})
	require.NoError(t, g.Load(context.Background(), files("a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg")))
	assert.Len(t, g.Shown(), 2, "first page is revealed on install")
	assert.True(t, g.HasMore())

	gen := g.PageGeneration()
	items, more := g.SentinelVisible(gen)
	assert.Equal(t, []string{"c.jpg", "d.jpg"}, names(items))
	assert.True(t, more)

	g.SetSearch("c")
	items, _ = g.SentinelVisible(gen)
	assert.Empty(t, items, "a sentinel from the previous view is ignored")
	assert.Len(t, g.Shown(), 1)

	g.SetSearch("")
	items, more = g.LoadMore()
	assert.Equal(t, []string{"c.jpg", "d.jpg"}, names(items))
	assert.True(t, more)
	items, more = g.LoadMore()
	assert.Equal(t, []string{"e.jpg"}, names(items))
	assert.False(t, more)
	assert.Len(t, g.Shown(), 5)
}

func TestLightboxFollowsView(t *testing.T) {
	g, _ := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), files("x1.jpg", "x2.jpg", "y1.jpg", "y2.jpg", "y3.jpg")))

	require.True(t, g.Open(4))
	g.SetSearch("x")
	lb := g.Lightbox()
	assert.True(t, lb.Open)
	assert.Equal(t, 1, lb.Index, "index is clamped to the narrower view")
	assert.Equal(t, "x2.jpg", lb.Current.Name)

	idx, ok := g.Navigate(+1)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	fav, ok := g.ToggleCurrentFavorite()
	assert.True(t, ok)
	assert.True(t, fav)
	assert.True(t, g.Lightbox().Favorited)
	assert.Equal(t, 0, g.Lightbox().Index)

	require.True(t, g.StartSlideshow(0))
	g.SetSearch("zzz")
	assert.False(t, g.Lightbox().Open, "an empty view closes the lightbox")
	assert.False(t, g.Slideshow().IsRunning())
}

func TestCloseLightboxStopsSlideshow(t *testing.T) {
	g, rec := newGallery(t, nil, Options{SlideshowInterval: time.Hour})
	require.NoError(t, g.Load(context.Background(), files("a.jpg", "b.jpg")))
	require.True(t, g.StartSlideshow(0))
	assert.True(t, g.Slideshow().IsRunning())
	g.CloseLightbox()
	assert.False(t, g.Slideshow().IsRunning())
	assert.True(t, rec.saw(EventSlideshow))
}

func TestReleaseExactlyOnce(t *testing.T) {
	g, rec := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), files("a.jpg", "b.jpg")))
	require.NoError(t, g.Load(context.Background(), files("c.jpg", "d.jpg", "e.jpg")))
	assert.Equal(t, 3, g.Locators().Live(), "the first catalog was released on rebuild")

	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	assert.Equal(t, 0, g.Locators().Live())
	assert.Equal(t, 5, g.Locators().Allocated())
	assert.False(t, rec.logged("Releasing"), "no release errors")

	err := g.Load(context.Background(), files("f.jpg"))
	assert.ErrorIs(t, err, catalog.ErrSuperseded)
	assert.Equal(t, 0, g.Locators().Live())
}

func TestFailedLoadPostsNotice(t *testing.T) {
	g, _ := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), files("a.jpg")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Load(ctx, files("b.jpg", "c.jpg"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, LoadFailedNotice, g.Transient().Text())
	assert.False(t, g.Loading(), "loading finishes on every path")
	assert.Equal(t, []string{"a.jpg"}, names(g.View()), "the previous catalog stays installed")
	assert.Equal(t, 1, g.Locators().Live())
}

func TestEmptyLoad(t *testing.T) {
	g, _ := newGallery(t, nil, Options{})
	require.NoError(t, g.Load(context.Background(), nil))
	assert.Empty(t, g.View())
	assert.Equal(t, "0 photos", g.Summary())
	assert.False(t, g.Open(0))
}

func TestThemeToggle(t *testing.T) {
	kv := storage.NewMemory()
	g, rec := newGallery(t, kv, Options{SystemPrefersDark: true})
	assert.Equal(t, prefs.Dark, g.Theme())

	assert.Equal(t, prefs.Light, g.ToggleTheme())
	assert.Equal(t, prefs.Light, g.Theme())
	assert.Equal(t, prefs.Light, prefs.LoadTheme(kv, nil))
	assert.True(t, rec.saw(EventTheme))

	again := New(kv, fakeDecoder{}, Options{SystemPrefersDark: true, Logger: func(string) {}})
	defer again.Close()
	assert.Equal(t, prefs.Light, again.Theme(), "saved theme wins over the system")
}

func TestPersistenceFailuresAreWarnings(t *testing.T) {
	kv := storage.NewMemory()
	kv.FailWrites = true
	g, rec := newGallery(t, kv, Options{})
	require.NoError(t, g.Load(context.Background(), files("a.jpg")))

	assert.True(t, g.ToggleFavorite(g.View()[0].ID))
	g.ToggleTheme()
	assert.True(t, rec.logged("Warning"))
	assert.Equal(t, "1 photo • 1 favorite", g.Summary())
}
