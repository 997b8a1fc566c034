package ui

import (
	"errors"

	"fygallery/internal/locator"
	"fygallery/internal/thumb"

	"fyne.io/fyne/v2"
)

// thumbResource wraps an encoded thumbnail for fyne. fyne caches images by
// resource name, so the name carries the record id.
func thumbResource(id string, t *thumb.Thumbnail) fyne.Resource {
	return fyne.NewStaticResource("thumb-"+id+".png", t.PNG)
}

// loadThumbnail shows the cached thumbnail of the tile's record, or asks the
// cache to build one and shows it once ready.
func (a *App) loadThumbnail(t *tile) {
	rec := t.record
	if th, ok := a.thumbs.Peek(rec.URL); ok {
		t.SetResource(thumbResource(rec.ID, th))
		return
	}
	a.thumbs.Request(rec.URL, rec.Name, func(th *thumb.Thumbnail, err error) {
		if errors.Is(err, locator.ErrReleased) {
			return
		}
		if err != nil {
			a.logMessage("Thumbnail error for %s: %v", rec.Name, err)
			return
		}
		fyne.Do(func() {
			t.SetResource(thumbResource(rec.ID, th))
		})
	})
}
