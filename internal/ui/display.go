package ui

import (
	"fmt"

	"fygallery/internal/catalog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// proximityMargin is how close to the bottom, in fyne units, the grid has to
// scroll before the next page is revealed.
const proximityMargin = 200

// nearBottom reports whether a scroll offset puts the end of content within
// margin of the viewport's bottom edge.
func nearBottom(offsetY, viewportHeight, contentHeight, margin float32) bool {
	if contentHeight <= 0 {
		return false
	}
	return offsetY+viewportHeight >= contentHeight-margin
}

// onGridScrolled treats the end of the grid as the sentinel of the current page.
func (a *App) onGridScrolled(pos fyne.Position) {
	if !a.gal.HasMore() {
		return
	}
	content := a.UI.gridScroll.Content.MinSize().Height
	if nearBottom(pos.Y, a.UI.gridScroll.Size().Height, content, proximityMargin) {
		a.gal.SentinelVisible(a.gridGen)
	}
}

// refreshGrid matches the tiles to the revealed records. A new page
// generation rebuilds the grid; a reveal in the same generation appends.
func (a *App) refreshGrid() {
	shown := a.gal.Shown()
	gen := a.gal.PageGeneration()

	if gen != a.gridGen || len(shown) < len(a.tiles) {
		a.gridGen = gen
		a.tiles = a.tiles[:0]
		a.UI.grid.RemoveAll()
		a.UI.gridScroll.ScrollToTop()
	}
	for i := len(a.tiles); i < len(shown); i++ {
		a.addTile(i, shown[i])
	}
	a.UI.grid.Refresh()

	switch {
	case len(shown) == 0 && a.gal.Criteria().Active():
		a.UI.emptyLabel.SetText("No images match the current filters.")
		a.UI.emptyLabel.Show()
	case len(shown) == 0:
		a.UI.emptyLabel.SetText("Open a folder or drop images here to start exploring.")
		a.UI.emptyLabel.Show()
	default:
		a.UI.emptyLabel.Hide()
	}
	if a.gal.Criteria().Active() {
		a.UI.clearFiltersBtn.Show()
	} else {
		a.UI.clearFiltersBtn.Hide()
	}
	if a.gal.HasMore() {
		a.UI.loadMoreBtn.Show()
	} else {
		a.UI.loadMoreBtn.Hide()
	}
}

func (a *App) addTile(index int, rec catalog.ImageRecord) {
	t := newTile(rec, a.gal.IsFavorite(rec.ID),
		func() { a.gal.Open(index) },
		func() { a.gal.ToggleFavorite(rec.ID) },
	)
	a.tiles = append(a.tiles, t)
	a.UI.grid.Add(t)
	a.loadThumbnail(t)
}

// refreshFavoriteMarks updates every tile's heart.
func (a *App) refreshFavoriteMarks() {
	for _, t := range a.tiles {
		t.SetFavorited(a.gal.IsFavorite(t.record.ID))
	}
	a.UI.favoritesCheck.Text = fmt.Sprintf("Favorites (%d)", a.gal.Favorites().Count())
	a.UI.favoritesCheck.Refresh()
}

func (a *App) updateSummary() {
	a.UI.summaryLabel.SetText(a.gal.Summary())
}

// refreshAlbums rebuilds the album select. It is only shown when there is
// more than one album to choose from.
func (a *App) refreshAlbums() {
	albums := a.gal.Albums()
	options := []string{allPhotosOption}
	selected := allPhotosOption
	current := a.gal.Criteria().Album
	for _, s := range albums {
		options = append(options, albumOption(s))
		if s.Name == current {
			selected = albumOption(s)
		}
	}
	sel := a.UI.albumSelect
	sel.OnChanged = nil
	sel.SetOptions(options)
	sel.SetSelected(selected)
	sel.OnChanged = a.selectAlbum
	if a.gal.HasAlbumChoice() {
		sel.Show()
	} else {
		sel.Hide()
	}
}

// refreshFolders lists the session's folders with an include check and a
// remove button each.
func (a *App) refreshFolders() {
	a.UI.folderBox.RemoveAll()
	for _, b := range a.folders.Batches() {
		root := b.Root
		check := widget.NewCheck(fmt.Sprintf("%s (%d)", b.Name, len(b.Items)), func(on bool) {
			if a.folders.SetIncluded(root, on) {
				go a.reload()
			}
		})
		check.SetChecked(b.Included)
		remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
			if a.folders.Remove(root) {
				if a.watcher != nil {
					a.watcher.Unwatch(root)
				}
				a.refreshFolders()
				go a.reload()
			}
		})
		remove.Importance = widget.LowImportance
		a.UI.folderBox.Add(container.NewBorder(nil, nil, nil, remove, check))
	}
	a.UI.folderBox.Refresh()
}
