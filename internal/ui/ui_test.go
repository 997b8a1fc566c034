package ui

import (
	"image"
	"testing"

	"fygallery/internal/album"
	"fygallery/internal/catalog"
	"fygallery/internal/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestFitTransform(t *testing.T) {
	zoom, pan := fitTransform(image.Rect(0, 0, 400, 200), fyne.NewSize(200, 200))
	assert.InDelta(t, 0.5, zoom, 1e-6)
	assert.InDelta(t, 0, pan.X, 1e-6)
	assert.InDelta(t, 50, pan.Y, 1e-6)

	zoom, pan = fitTransform(image.Rect(0, 0, 100, 400), fyne.NewSize(300, 200))
	assert.InDelta(t, 0.5, zoom, 1e-6)
	assert.InDelta(t, 125, pan.X, 1e-6)
	assert.InDelta(t, 0, pan.Y, 1e-6)

	zoom, pan = fitTransform(image.Rectangle{}, fyne.NewSize(300, 200))
	assert.Equal(t, float32(1), zoom)
	assert.Equal(t, fyne.Position{}, pan)
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, minZoom, clampZoom(0))
	assert.Equal(t, maxZoom, clampZoom(100))
	assert.Equal(t, float32(2), clampZoom(2))
}

func TestNearBottom(t *testing.T) {
	assert.False(t, nearBottom(0, 500, 2000, proximityMargin))
	assert.True(t, nearBottom(1300, 500, 2000, proximityMargin))
	assert.True(t, nearBottom(0, 500, 400, proximityMargin), "content shorter than the viewport")
	assert.False(t, nearBottom(0, 500, 0, proximityMargin), "empty grid")
}

func TestAlbumOptions(t *testing.T) {
	albums := []album.Summary{{Name: "Trips", Count: 2}, {Name: "Home", Count: 1}}
	assert.Equal(t, "Trips (2)", albumOption(albums[0]))
	assert.Equal(t, "Home", albumFromOption("Home (1)", albums))
	assert.Equal(t, album.All, albumFromOption(allPhotosOption, albums))
	assert.Equal(t, album.All, albumFromOption("Gone (4)", albums))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Light mode", themeButtonLabel(prefs.Dark))
	assert.Equal(t, "Dark mode", themeButtonLabel(prefs.Light))
	assert.Equal(t, heartFull, heart(true))
	assert.Equal(t, heartEmpty, heart(false))
	assert.Equal(t, "yes", ternary(true, "yes", "no"))

	rec := catalog.ImageRecord{Name: "a.png", Album: "Trips", Size: 1536, Width: 4, Height: 3}
	assert.Equal(t, "1.5 KiB • 4×3 • Trips", lightboxInfo(rec))
}

func TestTile(t *testing.T) {
	test.NewTempApp(t)

	tapped, favorited := 0, 0
	tl := newTile(catalog.ImageRecord{ID: "1", Name: "a.png"}, false,
		func() { tapped++ }, func() { favorited++ })
	w := test.NewTempWindow(t, tl)
	w.Resize(fyne.NewSize(TileWidth, TileHeight))

	assert.Equal(t, heartEmpty, tl.favBtn.Text)
	test.Tap(tl)
	test.Tap(tl.favBtn)
	assert.Equal(t, 1, tapped)
	assert.Equal(t, 1, favorited)

	tl.SetFavorited(true)
	assert.Equal(t, heartFull, tl.favBtn.Text)
}

func TestZoomPanAreaFitsOnLayout(t *testing.T) {
	test.NewTempApp(t)

	z := NewZoomPanArea(nil)
	z.SetImage(image.NewRGBA(image.Rect(0, 0, 400, 200)))
	w := test.NewTempWindow(t, z)
	w.Resize(fyne.NewSize(400, 400))
	z.Resize(fyne.NewSize(200, 200))
	z.Fit()
	assert.InDelta(t, 0.5, z.CurrentZoom(), 1e-6)

	z.Scrolled(&fyne.ScrollEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 100)}, Scrolled: fyne.NewDelta(0, 1)})
	assert.Greater(t, z.CurrentZoom(), float32(0.5))
}
