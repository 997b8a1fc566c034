package ui

import (
	"fmt"
	"time"

	"fygallery/internal/catalog"
	"fygallery/internal/export"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// lightboxMaxDimension bounds rasterized SVGs in the lightbox.
const lightboxMaxDimension = 2048

// slideshowIntervals are the choices of the interval select.
var slideshowIntervals = []string{"1s", "2s", "3s", "5s", "10s"}

// lightbox is the full-size viewer window and its slideshow controls.
type lightbox struct {
	view         *ZoomPanArea
	title        *widget.Label
	info         *widget.Label
	favBtn       *widget.Button
	slideshowBtn *widget.Button
	playPauseBtn *widget.Button
	intervalSel  *widget.Select
	content      fyne.CanvasObject
}

func (a *App) buildLightbox() *lightbox {
	lb := &lightbox{
		view:  NewZoomPanArea(a.pauseForInteraction),
		title: widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		info:  widget.NewLabel(""),
	}
	lb.title.Truncation = fyne.TextTruncateEllipsis

	prev := widget.NewButtonWithIcon("", theme.NavigateBackIcon(), func() { a.gal.Navigate(-1) })
	next := widget.NewButtonWithIcon("", theme.NavigateNextIcon(), func() { a.gal.Navigate(+1) })
	lb.favBtn = widget.NewButton(heartEmpty, func() { a.gal.ToggleCurrentFavorite() })
	save := widget.NewButtonWithIcon("", theme.DownloadIcon(), a.saveCurrent)
	closeBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), a.gal.CloseLightbox)

	lb.slideshowBtn = widget.NewButtonWithIcon("Slideshow", theme.MediaPlayIcon(), a.toggleSlideshow)
	lb.playPauseBtn = widget.NewButtonWithIcon("", theme.MediaPauseIcon(), a.togglePlay)
	lb.intervalSel = widget.NewSelect(slideshowIntervals, func(s string) {
		if d, err := time.ParseDuration(s); err == nil {
			a.gal.Slideshow().SetInterval(d)
		}
	})
	lb.intervalSel.SetSelected(a.gal.Slideshow().Interval().String())

	top := container.NewBorder(nil, nil, nil,
		container.NewHBox(lb.favBtn, save, closeBtn),
		container.NewVBox(lb.title, lb.info))
	bottom := container.NewHBox(
		prev, next,
		widget.NewSeparator(),
		lb.slideshowBtn, lb.playPauseBtn, lb.intervalSel,
		layout.NewSpacer(),
	)
	lb.content = container.NewBorder(top, bottom, nil, nil, lb.view)
	return lb
}

// lightboxInfo renders "<size> • <W>×<H> • <album>".
func lightboxInfo(rec catalog.ImageRecord) string {
	return fmt.Sprintf("%s • %s", export.Meta(rec), rec.Album)
}

// ensureLightboxWindow creates the lightbox window on first use.
func (a *App) ensureLightboxWindow() fyne.Window {
	if a.UI.LightboxWin != nil {
		return a.UI.LightboxWin
	}
	if a.UI.lightbox == nil {
		a.UI.lightbox = a.buildLightbox()
	}
	w := a.app.NewWindow("fygallery")
	w.SetContent(a.UI.lightbox.content)
	w.Resize(fyne.NewSize(960, 720))
	w.SetCloseIntercept(func() { a.gal.CloseLightbox() })
	w.Canvas().SetOnTypedKey(a.lightboxKey)
	a.UI.LightboxWin = w
	return w
}

// refreshLightbox shows, hides or updates the lightbox to match the gallery.
func (a *App) refreshLightbox() {
	state := a.gal.Lightbox()
	if !state.Open {
		a.lightboxID = ""
		if a.UI.LightboxWin != nil {
			a.UI.LightboxWin.Hide()
			if a.UI.lightbox != nil {
				a.UI.lightbox.view.SetImage(nil)
			}
		}
		return
	}

	w := a.ensureLightboxWindow()
	lb := a.UI.lightbox
	rec := state.Current
	lb.title.SetText(fmt.Sprintf("%s  [%d/%d]", rec.Name, state.Index+1, state.Len))
	lb.info.SetText(lightboxInfo(rec))
	lb.favBtn.SetText(heart(state.Favorited))
	a.refreshSlideshowControls()
	w.SetTitle("fygallery - " + rec.Name)

	if a.lightboxID != rec.ID {
		a.lightboxID = rec.ID
		if th, ok := a.thumbs.Peek(rec.URL); ok {
			lb.view.SetImage(th.Image)
		} else {
			lb.view.SetImage(nil)
		}
		go a.loadFullImage(rec)
	}
	w.Show()
}

// loadFullImage decodes rec off the UI thread and shows it if the lightbox
// still points at it.
func (a *App) loadFullImage(rec catalog.ImageRecord) {
	r, err := a.gal.Locators().Open(rec.URL)
	if err != nil {
		a.logMessage("Error opening %s: %v", rec.Name, err)
		return
	}
	defer r.Close()
	img, err := a.ImageService.DecodeNamed(rec.Name, r, lightboxMaxDimension)
	if err != nil {
		a.logMessage("Error decoding %s: %v", rec.Name, err)
		return
	}
	fyne.Do(func() {
		if a.lightboxID == rec.ID && a.UI.lightbox != nil {
			a.UI.lightbox.view.SetImage(img)
		}
	})
}

// refreshSlideshowControls matches the buttons to the slideshow state.
func (a *App) refreshSlideshowControls() {
	lb := a.UI.lightbox
	if lb == nil {
		return
	}
	show := a.gal.Slideshow()
	if show.IsRunning() {
		lb.slideshowBtn.SetText("Stop")
		lb.slideshowBtn.SetIcon(theme.MediaStopIcon())
		lb.playPauseBtn.Show()
	} else {
		lb.slideshowBtn.SetText("Slideshow")
		lb.slideshowBtn.SetIcon(theme.MediaPlayIcon())
		lb.playPauseBtn.Hide()
	}
	if show.IsPaused() {
		lb.playPauseBtn.SetIcon(theme.MediaPlayIcon())
	} else {
		lb.playPauseBtn.SetIcon(theme.MediaPauseIcon())
	}
}

// toggleSlideshow starts the slideshow at the open image, or stops it.
func (a *App) toggleSlideshow() {
	if a.gal.Slideshow().IsRunning() {
		a.gal.StopSlideshow()
		return
	}
	a.gal.StartSlideshow(a.gal.Lightbox().Index)
}

// togglePlay pauses or resumes a running slideshow.
func (a *App) togglePlay() {
	if !a.gal.Slideshow().IsRunning() {
		a.toggleSlideshow()
		return
	}
	if a.gal.Slideshow().TogglePlayPause() {
		a.logMessage("Slideshow paused")
	} else {
		a.logMessage("Slideshow resumed")
	}
}

// pauseForInteraction pauses a playing slideshow while the user zooms or pans.
func (a *App) pauseForInteraction() {
	show := a.gal.Slideshow()
	if show.IsRunning() && !show.IsPaused() {
		show.Pause(false)
		a.refreshSlideshowControls()
	}
}

// saveCurrent asks for a folder and saves a copy of the open image there.
// The slideshow waits while the dialog is open.
func (a *App) saveCurrent() {
	state := a.gal.Lightbox()
	if !state.Open {
		return
	}
	rec := state.Current
	show := a.gal.Slideshow()
	show.Pause(true)
	a.refreshSlideshowControls()

	parent := a.UI.MainWin
	if a.UI.LightboxWin != nil {
		parent = a.UI.LightboxWin
	}
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		defer func() {
			show.ResumeAfterOperation()
			a.refreshSlideshowControls()
		}()
		if err != nil {
			dialog.ShowError(err, parent)
			return
		}
		if dir == nil {
			return
		}
		dst, err := export.SaveCopy(a.gal.Locators(), rec, dir.Path())
		if err != nil {
			dialog.ShowError(err, parent)
			a.logMessage("Error saving %s: %v", rec.Name, err)
			return
		}
		a.logMessage("Saved %s", dst)
	}, parent)
}
