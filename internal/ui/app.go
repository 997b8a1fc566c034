// Package ui is the fyne front end of fygallery.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"fygallery/internal/catalog"
	"fygallery/internal/config"
	"fygallery/internal/gallery"
	"fygallery/internal/scan"
	"fygallery/internal/service"
	"fygallery/internal/storage"
	"fygallery/internal/thumb"
	"fygallery/internal/watch"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// AppID identifies the application to fyne's preferences and storage.
const AppID = "com.github.fygallery"

// App represents the whole application with all its windows, widgets and functions
type App struct {
	app fyne.App
	UI  UI

	cfg          config.Config
	kv           storage.KV
	gal          *gallery.Gallery
	folders      *scan.FolderSet
	thumbs       *thumb.Cache
	watcher      *watch.Watcher
	ImageService *service.ImageService

	ctx    context.Context
	cancel context.CancelFunc

	// grid bookkeeping: the page generation the tiles were built for and the tiles themselves
	gridGen uint64
	tiles   []*tile

	// lightboxID is the record the lightbox window is showing or loading.
	lightboxID string

	statusLog *statusLog
}

// UI holds the widgets the App updates.
type UI struct {
	MainWin     fyne.Window
	LightboxWin fyne.Window
	mainModKey  fyne.KeyModifier

	searchEntry    *widget.Entry
	albumSelect    *widget.Select
	favoritesCheck *widget.Check
	themeBtn       *widget.Button
	summaryLabel   *widget.Label
	loadingBar     *widget.ProgressBarInfinite

	grid            *fyne.Container
	gridScroll      *container.Scroll
	emptyLabel      *widget.Label
	loadMoreBtn     *widget.Button
	clearFiltersBtn *widget.Button
	folderBox       *fyne.Container

	statusLogLabel   *widget.Label
	statusLogUpBtn   *widget.Button
	statusLogDownBtn *widget.Button
	transientLabel   *widget.Label

	lightbox *lightbox
}

// logMessage sends a message to the gallery's notice log, or the console
// before the gallery exists.
func (a *App) logMessage(format string, args ...interface{}) {
	if a.gal != nil {
		a.gal.Notices().Add(fmt.Sprintf(format, args...))
		return
	}
	log.Printf(format, args...)
}

// CreateApplication builds the windows, loads the configured folders plus
// any given in roots, and runs the fyne event loop until the main window closes.
func CreateApplication(cfg config.Config, kv storage.KV, roots []string) error {
	a := app.NewWithID(AppID)
	a.SetIcon(theme.FileImageIcon())

	ui := &App{app: a, cfg: cfg, kv: kv, ImageService: service.NewImageService()}
	ui.ctx, ui.cancel = context.WithCancel(context.Background())

	ui.gal = gallery.New(kv, ui.ImageService, gallery.Options{
		PageSize:          cfg.PageSize,
		SlideshowInterval: cfg.SlideshowInterval,
		Concurrency:       cfg.Concurrency,
		IDScheme:          catalog.IDScheme(cfg.IDScheme),
		SystemPrefersDark: a.Settings().ThemeVariant() == theme.VariantDark,
		Logger: func(message string) {
			log.Printf("[fygallery] %s", message)
		},
	})
	ui.folders = scan.NewFolderSet(scan.LoggerFunc(ui.logMessage))

	var err error
	ui.thumbs, err = thumb.New(ui.gal.Locators(), ui.ImageService, thumb.DefaultEntries)
	if err != nil {
		return fmt.Errorf("creating thumbnail cache: %w", err)
	}
	ui.watcher, err = watch.New(watch.DefaultDebounce, watch.LoggerFunc(ui.logMessage))
	if err != nil {
		ui.logMessage("Warning: folder watching disabled: %v", err)
	}

	ui.UI.MainWin = a.NewWindow("fygallery")
	ui.UI.MainWin.SetCloseIntercept(func() {
		ui.shutdown()
		ui.UI.MainWin.Close()
	})
	ui.UI.MainWin.SetContent(ui.buildMainUI())
	ui.UI.MainWin.SetOnDropped(ui.handleDrop)
	ui.applyTheme()

	ui.gal.Subscribe(func(e gallery.Event) {
		fyne.Do(func() { ui.handleEvent(e) })
	})
	if ui.watcher != nil {
		go ui.watchFolders()
	}

	for _, root := range append(append([]string{}, cfg.Folders...), roots...) {
		ui.addFolder(root)
	}

	ui.UI.MainWin.Resize(fyne.NewSize(1100, 760))
	ui.UI.MainWin.CenterOnScreen()
	ui.UI.MainWin.ShowAndRun()
	return nil
}

// shutdown tears down the gallery, the watcher and the store.
func (a *App) shutdown() {
	a.cancel()
	if a.UI.LightboxWin != nil {
		a.UI.LightboxWin.Close()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			log.Printf("Error closing watcher: %v", err)
		}
	}
	if err := a.gal.Close(); err != nil {
		log.Printf("Error closing gallery: %v", err)
	}
	a.thumbs.Purge()
	log.Println("Closing preferences store...")
	if err := a.kv.Close(); err != nil {
		log.Printf("Error closing preferences store: %v", err)
	}
}

// addFolder scans root in the background and reloads the gallery.
func (a *App) addFolder(root string) {
	go func() {
		batch, err := a.folders.Add(a.ctx, root)
		if err != nil {
			a.logMessage("Error scanning %s: %v", root, err)
			a.gal.Transient().Post(gallery.LoadFailedNotice)
			return
		}
		a.logMessage("Found %d images in %s", len(batch.Items), batch.Name)
		if a.watcher != nil {
			if err := a.watcher.WatchTree(batch.Root); err != nil {
				a.logMessage("Warning: not watching %s: %v", batch.Root, err)
			}
		}
		fyne.Do(a.refreshFolders)
		a.reload()
	}()
}

// reload rebuilds the catalog from the included folders.
func (a *App) reload() {
	err := a.gal.LoadFolders(a.ctx, a.folders)
	if err != nil && !errors.Is(err, catalog.ErrSuperseded) && !errors.Is(err, context.Canceled) {
		a.logMessage("Error loading images: %v", err)
	}
}

// watchFolders rescans a folder tree after its images change on disk.
func (a *App) watchFolders() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case root, ok := <-a.watcher.Notify():
			if !ok {
				return
			}
			if _, err := a.folders.Add(a.ctx, root); err != nil {
				a.logMessage("Error rescanning %s: %v", filepath.Base(root), err)
				continue
			}
			a.logMessage("Reloading %s after changes", filepath.Base(root))
			a.reload()
		}
	}
}

// handleDrop loads dropped folders and image files.
func (a *App) handleDrop(_ fyne.Position, uris []fyne.URI) {
	for _, u := range uris {
		if u.Scheme() != "file" {
			a.logMessage("Skipping dropped %s: not a local file", u.Name())
			continue
		}
		a.addFolder(u.Path())
	}
}

// handleEvent updates the widgets after a gallery change. It runs on the fyne thread.
func (a *App) handleEvent(e gallery.Event) {
	switch e {
	case gallery.EventLoading:
		if a.gal.Loading() {
			a.UI.loadingBar.Show()
		} else {
			a.UI.loadingBar.Hide()
		}
	case gallery.EventCatalog:
		a.thumbs.Purge()
		a.refreshAlbums()
	case gallery.EventView, gallery.EventPage:
		a.refreshGrid()
		a.updateSummary()
	case gallery.EventFavorites:
		a.refreshFavoriteMarks()
		a.updateSummary()
		a.refreshLightbox()
	case gallery.EventLightbox, gallery.EventSlideshow:
		a.refreshLightbox()
	case gallery.EventTheme:
		a.applyTheme()
	}
}
