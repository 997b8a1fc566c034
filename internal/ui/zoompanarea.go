package ui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	minZoom        float32 = 0.05
	maxZoom        float32 = 16.0
	zoomScrollStep float32 = 0.1
)

// ZoomPanArea shows one image fitted to the view. The wheel zooms around
// the pointer, dragging pans and a double tap fits the image again.
type ZoomPanArea struct {
	widget.BaseWidget

	img    image.Image
	raster *canvas.Raster

	zoom   float32
	pan    fyne.Position
	fitted bool

	dragging bool

	// OnInteraction runs when the user zooms or pans.
	OnInteraction func()
}

// NewZoomPanArea creates an empty ZoomPanArea.
func NewZoomPanArea(onInteraction func()) *ZoomPanArea {
	z := &ZoomPanArea{zoom: 1, OnInteraction: onInteraction}
	z.raster = canvas.NewRaster(z.draw)
	z.ExtendBaseWidget(z)
	return z
}

// SetImage replaces the image and fits it to the view.
func (z *ZoomPanArea) SetImage(img image.Image) {
	z.img = img
	z.Fit()
}

// Image returns the image on display.
func (z *ZoomPanArea) Image() image.Image {
	return z.img
}

// Fit scales the image to fit the view and centers it. Until the widget has
// a size the fit is deferred to the next layout.
func (z *ZoomPanArea) Fit() {
	z.fitted = false
	size := z.Size()
	if z.img != nil && size.Width > 0 && size.Height > 0 {
		z.zoom, z.pan = fitTransform(z.img.Bounds(), size)
		z.fitted = true
	}
	z.Refresh()
}

// fitTransform returns the zoom and offset that center bounds inside view.
func fitTransform(bounds image.Rectangle, view fyne.Size) (float32, fyne.Position) {
	w, h := float32(bounds.Dx()), float32(bounds.Dy())
	if w <= 0 || h <= 0 {
		return 1, fyne.Position{}
	}
	zoom := view.Width / w
	if zh := view.Height / h; zh < zoom {
		zoom = zh
	}
	return zoom, fyne.NewPos((view.Width-w*zoom)/2, (view.Height-h*zoom)/2)
}

func (z *ZoomPanArea) draw(w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if z.img == nil || w <= 0 || h <= 0 {
		return dst
	}
	// The raster is drawn in pixels, the widget is laid out in fyne units.
	scale := float32(1)
	if size := z.Size(); size.Width > 0 {
		scale = float32(w) / size.Width
	}
	b := z.img.Bounds()
	k := float64(z.zoom * scale)
	s2d := f64.Aff3{
		k, 0, float64(z.pan.X*scale) - k*float64(b.Min.X),
		0, k, float64(z.pan.Y*scale) - k*float64(b.Min.Y),
	}
	draw.ApproxBiLinear.Transform(dst, s2d, z.img, b, draw.Over, nil)
	return dst
}

// CurrentZoom returns the zoom factor relative to the original size.
func (z *ZoomPanArea) CurrentZoom() float32 {
	return z.zoom
}

// CreateRenderer is a Fyne lifecycle method.
func (z *ZoomPanArea) CreateRenderer() fyne.WidgetRenderer {
	return &zoomPanAreaRenderer{z: z}
}

// Scrolled zooms around the pointer.
func (z *ZoomPanArea) Scrolled(ev *fyne.ScrollEvent) {
	if z.img == nil {
		return
	}
	if z.OnInteraction != nil {
		z.OnInteraction()
	}
	anchor := ev.Position
	imgX := (anchor.X - z.pan.X) / z.zoom
	imgY := (anchor.Y - z.pan.Y) / z.zoom

	switch {
	case ev.Scrolled.DY > 0:
		z.zoom *= 1 + zoomScrollStep
	case ev.Scrolled.DY < 0:
		z.zoom /= 1 + zoomScrollStep
	}
	z.zoom = clampZoom(z.zoom)

	z.pan = fyne.NewPos(anchor.X-imgX*z.zoom, anchor.Y-imgY*z.zoom)
	z.Refresh()
}

func clampZoom(v float32) float32 {
	if v < minZoom {
		return minZoom
	}
	if v > maxZoom {
		return maxZoom
	}
	return v
}

// MouseDown starts panning with the primary button.
func (z *ZoomPanArea) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	if z.OnInteraction != nil {
		z.OnInteraction()
	}
	z.dragging = true
}

// MouseUp stops panning.
func (z *ZoomPanArea) MouseUp(_ *desktop.MouseEvent) {
	z.dragging = false
}

// Dragged moves the image with the pointer.
func (z *ZoomPanArea) Dragged(ev *fyne.DragEvent) {
	if !z.dragging {
		return
	}
	z.pan = z.pan.Add(ev.Dragged)
	z.Refresh()
}

// DragEnd finalizes panning.
func (z *ZoomPanArea) DragEnd() {
	z.dragging = false
}

// DoubleTapped fits the image again.
func (z *ZoomPanArea) DoubleTapped(_ *fyne.PointEvent) {
	z.Fit()
}

type zoomPanAreaRenderer struct{ z *ZoomPanArea }

func (r *zoomPanAreaRenderer) Layout(size fyne.Size) {
	r.z.raster.Resize(size)
	if !r.z.fitted && r.z.img != nil && size.Width > 0 && size.Height > 0 {
		r.z.zoom, r.z.pan = fitTransform(r.z.img.Bounds(), size)
		r.z.fitted = true
	}
}
func (r *zoomPanAreaRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *zoomPanAreaRenderer) Refresh()                     { canvas.Refresh(r.z.raster) }
func (r *zoomPanAreaRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.z.raster} }
func (r *zoomPanAreaRenderer) Destroy()                     {}

var _ fyne.Widget = (*ZoomPanArea)(nil)
var _ fyne.Scrollable = (*ZoomPanArea)(nil)
var _ fyne.Draggable = (*ZoomPanArea)(nil)
var _ fyne.DoubleTappable = (*ZoomPanArea)(nil)
var _ desktop.Mouseable = (*ZoomPanArea)(nil)
