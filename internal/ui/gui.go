package ui

import (
	"fmt"
	"runtime"

	"fygallery/internal/album"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// allPhotosOption is the album select entry for the whole catalog.
const allPhotosOption = "All Photos"

func (a *App) buildToolbar() fyne.CanvasObject {
	a.UI.searchEntry = widget.NewEntry()
	a.UI.searchEntry.SetPlaceHolder("Search by name or album")
	a.UI.searchEntry.OnChanged = a.gal.SetSearch

	a.UI.albumSelect = widget.NewSelect([]string{allPhotosOption}, a.selectAlbum)
	a.UI.albumSelect.SetSelected(allPhotosOption)
	a.UI.albumSelect.Hide()

	a.UI.favoritesCheck = widget.NewCheck(fmt.Sprintf("Favorites (%d)", a.gal.Favorites().Count()), a.gal.SetFavoritesOnly)
	a.UI.themeBtn = widget.NewButtonWithIcon(themeButtonLabel(a.gal.Theme()), theme.ColorPaletteIcon(), func() {
		a.gal.ToggleTheme()
	})
	open := widget.NewButtonWithIcon("Open folder", theme.FolderOpenIcon(), a.showFolderDialog)
	a.UI.summaryLabel = widget.NewLabel(a.gal.Summary())
	a.UI.loadingBar = widget.NewProgressBarInfinite()
	a.UI.loadingBar.Hide()

	return container.NewVBox(
		container.NewBorder(nil, nil,
			container.NewHBox(open, a.UI.albumSelect),
			container.NewHBox(a.UI.favoritesCheck, a.UI.themeBtn, widget.NewButtonWithIcon("", theme.HelpIcon(), a.showShortcuts)),
			a.UI.searchEntry,
		),
		container.NewHBox(a.UI.summaryLabel, layout.NewSpacer()),
		a.UI.loadingBar,
	)
}

// clearFilters resets the filter widgets and the gallery's criteria.
func (a *App) clearFilters() {
	a.UI.searchEntry.SetText("")
	a.UI.favoritesCheck.SetChecked(false)
	a.UI.albumSelect.SetSelected(allPhotosOption)
	a.gal.ClearFilters()
}

// selectAlbum maps the select's option back to an album name.
func (a *App) selectAlbum(option string) {
	a.gal.SetAlbum(albumFromOption(option, a.gal.Albums()))
}

func albumOption(s album.Summary) string {
	return fmt.Sprintf("%s (%d)", s.Name, s.Count)
}

func albumFromOption(option string, albums []album.Summary) string {
	for _, s := range albums {
		if albumOption(s) == option {
			return s.Name
		}
	}
	return album.All
}

func (a *App) buildStatusBar() *fyne.Container {
	a.UI.statusLogLabel = widget.NewLabel("")
	a.UI.statusLogLabel.Truncation = fyne.TextTruncateEllipsis
	a.UI.statusLogUpBtn = widget.NewButtonWithIcon("", theme.MoveUpIcon(), nil)
	a.UI.statusLogDownBtn = widget.NewButtonWithIcon("", theme.MoveDownIcon(), nil)
	a.UI.transientLabel = widget.NewLabelWithStyle("", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true})

	a.statusLog = newStatusLog(a.gal.Notices(), a.UI.statusLogLabel, a.UI.statusLogUpBtn, a.UI.statusLogDownBtn)
	bindTransient(a.gal.Transient(), a.UI.transientLabel)

	return container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(nil, nil,
			container.NewHBox(a.UI.statusLogUpBtn, a.UI.statusLogDownBtn),
			a.UI.transientLabel,
			a.UI.statusLogLabel,
		),
	)
}

func (a *App) buildGrid() fyne.CanvasObject {
	a.UI.grid = container.NewGridWrap(fyne.NewSize(TileWidth, TileHeight))
	a.UI.emptyLabel = widget.NewLabelWithStyle("Open a folder or drop images here to start exploring.",
		fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	a.UI.loadMoreBtn = widget.NewButtonWithIcon("Load more", theme.MoreVerticalIcon(), func() {
		a.gal.LoadMore()
	})
	a.UI.loadMoreBtn.Hide()
	a.UI.clearFiltersBtn = widget.NewButtonWithIcon("Clear filters", theme.ContentClearIcon(), a.clearFilters)
	a.UI.clearFiltersBtn.Hide()

	a.UI.gridScroll = container.NewVScroll(container.NewVBox(
		a.UI.emptyLabel,
		a.UI.grid,
		container.NewCenter(container.NewHBox(a.UI.clearFiltersBtn, a.UI.loadMoreBtn)),
	))
	a.UI.gridScroll.OnScrolled = a.onGridScrolled
	return a.UI.gridScroll
}

func (a *App) buildFolderPanel() fyne.CanvasObject {
	a.UI.folderBox = container.NewVBox()
	return widget.NewAccordion(widget.NewAccordionItem("Folders", container.NewVScroll(a.UI.folderBox)))
}

func (a *App) buildMainUI() fyne.CanvasObject {
	a.UI.MainWin.SetMaster()
	// set main mod key to super on darwin hosts, else set it to ctrl
	if runtime.GOOS == "darwin" {
		a.UI.mainModKey = fyne.KeyModifierSuper
	} else {
		a.UI.mainModKey = fyne.KeyModifierControl
	}

	mainMenu := fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Open Folder...", a.showFolderDialog),
			fyne.NewMenuItem("Reload", func() { go a.reload() }),
		),
		fyne.NewMenu("View",
			fyne.NewMenuItem("Load More", func() { a.gal.LoadMore() }),
			fyne.NewMenuItem("Favorites Only", func() { a.UI.favoritesCheck.SetChecked(!a.UI.favoritesCheck.Checked) }),
			fyne.NewMenuItem("Toggle Theme", func() { a.gal.ToggleTheme() }),
			fyne.NewMenuItem("Start Slideshow", func() { a.gal.StartSlideshow(0) }),
		),
		fyne.NewMenu("Help",
			fyne.NewMenuItem("Keyboard Shortcuts", a.showShortcuts),
			fyne.NewMenuItem("About", a.showAbout),
		),
	)
	a.UI.MainWin.SetMainMenu(mainMenu)
	a.buildKeyboardShortcuts()

	return container.NewBorder(
		a.buildToolbar(),     // Top
		a.buildStatusBar(),   // Bottom
		a.buildFolderPanel(), // Left
		nil,                  // Right
		a.buildGrid(),
	)
}

// showFolderDialog lets the user pick a folder to add to the session.
func (a *App) showFolderDialog() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, a.UI.MainWin)
			return
		}
		if dir == nil {
			return
		}
		a.addFolder(dir.Path())
	}, a.UI.MainWin)
}
