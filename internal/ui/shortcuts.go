// Package ui  Shortcuts for keyboard actions
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// shortcut is one row of the shortcuts table.
type shortcut struct {
	keys        string
	description string
}

var mainShortcuts = []shortcut{
	{"Ctrl+Q", "Quit Application"},
	{"Ctrl+O", "Open Folder"},
	{"Ctrl+F", "Focus Search"},
	{"Ctrl+T", "Toggle Theme"},
	{"Ctrl+L", "Favorites Only"},
	{"Ctrl+M", "Load More"},
}

var lightboxShortcuts = []shortcut{
	{"Arrow Right", "Next Image"},
	{"Arrow Left", "Previous Image"},
	{"F", "Toggle Favorite"},
	{"D", "Save a Copy"},
	{"Space", "Slideshow Play/Pause"},
	{"S", "Stop Slideshow"},
	{"Esc", "Close Lightbox"},
}

func (a *App) buildKeyboardShortcuts() {
	canvas := a.UI.MainWin.Canvas()
	add := func(key fyne.KeyName, fn func()) {
		canvas.AddShortcut(&desktop.CustomShortcut{
			KeyName:  key,
			Modifier: a.UI.mainModKey,
		}, func(_ fyne.Shortcut) { fn() })
	}

	add(fyne.KeyQ, a.app.Quit)
	add(fyne.KeyO, a.showFolderDialog)
	add(fyne.KeyF, func() { a.UI.MainWin.Canvas().Focus(a.UI.searchEntry) })
	add(fyne.KeyT, func() { a.gal.ToggleTheme() })
	add(fyne.KeyL, func() { a.UI.favoritesCheck.SetChecked(!a.UI.favoritesCheck.Checked) })
	add(fyne.KeyM, func() { a.gal.LoadMore() })

	canvas.SetOnTypedKey(func(key *fyne.KeyEvent) {
		// close dialogs with esc key
		if key.Name == fyne.KeyEscape && len(canvas.Overlays().List()) > 0 {
			canvas.Overlays().Top().Hide()
		}
	})
}

// lightboxKey handles keys typed in the lightbox window.
func (a *App) lightboxKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyEscape:
		if w := a.UI.LightboxWin; w != nil && len(w.Canvas().Overlays().List()) > 0 {
			w.Canvas().Overlays().Top().Hide()
			return
		}
		a.gal.CloseLightbox()
	case fyne.KeyRight:
		a.gal.Navigate(+1)
	case fyne.KeyLeft:
		a.gal.Navigate(-1)
	case fyne.KeySpace, fyne.KeyP:
		a.togglePlay()
	case fyne.KeyF:
		a.gal.ToggleCurrentFavorite()
	case fyne.KeyD:
		a.saveCurrent()
	case fyne.KeyS:
		a.gal.StopSlideshow()
	}
}

func ternary(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func (a *App) showShortcuts() {
	rows := append(append([]shortcut{}, mainShortcuts...), lightboxShortcuts...)

	win := a.app.NewWindow("Keyboard Shortcuts")
	table := widget.NewTable(
		func() (int, int) { return len(rows) + 1, 2 }, // +1 for header row
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			isHeader := id.Row == 0 // First row is header
			var row shortcut
			if !isHeader {
				row = rows[id.Row-1]
			}

			if id.Col == 0 { // Description column
				label.SetText(ternary(isHeader, "Description", row.description))
			} else { // Shortcut column
				label.SetText(ternary(isHeader, "Shortcut", row.keys))
			}
			label.TextStyle.Bold = isHeader
		},
	)
	table.SetColumnWidth(0, 250)
	table.SetColumnWidth(1, 200)
	win.SetContent(table)
	win.Resize(fyne.NewSize(460, 420))
	win.Show()
}
