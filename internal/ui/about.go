package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Version is shown in the About dialog.
var Version = "0.3.0"

// About is a small dialog with the application icon and a few lines of text.
type About struct {
	title     string
	parent    fyne.Window
	container *fyne.Container
	d         dialog.Dialog
}

// NewAbout builds the dialog content. It is shown with Show.
func NewAbout(parent fyne.Window, title string, image fyne.Resource, lines ...string) *About {
	a := &About{
		title:  title,
		parent: parent,
	}

	img := canvas.NewImageFromResource(image)
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(96, 96))

	vbox := container.NewVBox(img)
	for _, line := range lines {
		vbox.Add(widget.NewLabelWithStyle(line, fyne.TextAlignCenter, fyne.TextStyle{}))
	}

	ok := container.NewHBox(
		layout.NewSpacer(),
		widget.NewButton("OK", func() { a.Hide() }),
		layout.NewSpacer(),
	)

	a.container = container.NewBorder(nil, ok, nil, nil, vbox)

	return a
}

// Hide closes the dialog.
func (a *About) Hide() {
	if a.d != nil {
		a.d.Hide()
	}
}

// Show opens the dialog over the parent window.
func (a *About) Show() {
	a.d = dialog.NewCustomWithoutButtons(a.title, a.container, a.parent)
	a.d.Show()
}

func (a *App) showAbout() {
	NewAbout(a.UI.MainWin, "About fygallery", theme.FileImageIcon(),
		"fygallery "+Version,
		a.gal.Summary(),
		fmt.Sprintf("%d folders, %s theme", len(a.folders.Batches()), a.gal.Theme()),
	).Show()
}
