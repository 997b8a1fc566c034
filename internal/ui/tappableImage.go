package ui

import (
	"fygallery/internal/catalog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	// TileWidth is the width of a grid tile.
	TileWidth = 160
	// TileHeight is the height of a grid tile including its caption.
	TileHeight = 190
)

const (
	heartFull  = "♥"
	heartEmpty = "♡"
)

func heart(favorited bool) string {
	if favorited {
		return heartFull
	}
	return heartEmpty
}

// tile is one grid cell: a thumbnail, the image name and a favorite button.
// Tapping the thumbnail opens the lightbox.
type tile struct {
	widget.BaseWidget
	record   catalog.ImageRecord
	image    *canvas.Image
	caption  *widget.Label
	favBtn   *widget.Button
	onTapped func()
}

// newTile creates a tile for rec showing the placeholder icon.
func newTile(rec catalog.ImageRecord, favorited bool, onTapped, onFavorite func()) *tile {
	t := &tile{
		record:   rec,
		image:    canvas.NewImageFromResource(theme.FileImageIcon()),
		caption:  widget.NewLabel(rec.Name),
		onTapped: onTapped,
	}
	t.image.FillMode = canvas.ImageFillContain
	t.image.SetMinSize(fyne.NewSize(TileWidth, TileWidth))
	t.caption.Truncation = fyne.TextTruncateEllipsis
	t.favBtn = widget.NewButton(heart(favorited), onFavorite)
	t.favBtn.Importance = widget.LowImportance
	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer is a mandatory method for a Fyne widget.
func (t *tile) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewBorder(nil,
		container.NewBorder(nil, nil, nil, t.favBtn, t.caption),
		nil, nil, t.image))
}

// Tapped is called when the widget is tapped.
func (t *tile) Tapped(_ *fyne.PointEvent) {
	if t.onTapped != nil {
		t.onTapped()
	}
}

// SetResource updates the thumbnail and refreshes.
func (t *tile) SetResource(res fyne.Resource) {
	t.image.Resource = res
	t.image.Image = nil
	canvas.Refresh(t.image)
}

// SetFavorited updates the heart.
func (t *tile) SetFavorited(favorited bool) {
	t.favBtn.SetText(heart(favorited))
}
