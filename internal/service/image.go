package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"fygallery/internal/scan"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxHeaderBytes bounds how much of a file is buffered to read its header.
const maxHeaderBytes = 1 << 20

// ErrNoDimensions is returned when a file decodes but reports no usable size.
var ErrNoDimensions = errors.New("image has no dimensions")

// ImageInfo holds metadata about an image file.
type ImageInfo struct {
	Width    int
	Height   int
	Format   string
	Taken    time.Time
	EXIFData map[string]string
}

// ImageService provides image loading and metadata extraction.
type ImageService struct {
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// GetEXIF extracts a few common EXIF fields from an image file.
func (is *ImageService) GetEXIF(r io.Reader) (map[string]string, time.Time) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, time.Time{} // Not all images have EXIF; not an error for non-JPEGs
	}
	result := make(map[string]string)
	for _, field := range []string{
		"DateTime", "Model", "Make", "ExposureTime", "FNumber", "ISOSpeedRatings", "FocalLength",
	} {
		tag, err := x.Get(exif.FieldName(field))
		if err == nil && tag != nil {
			result[field] = tag.String()
		}
	}
	taken, _ := x.DateTime()
	return result, taken
}

// DecodeConfig reads the pixel dimensions of item without decoding its pixels.
// SVG files report the size of their viewBox (or width/height attributes).
func (is *ImageService) DecodeConfig(ctx context.Context, item scan.FileItem) (*ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := item.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open image for info: %w", err)
	}
	defer r.Close()

	if strings.EqualFold(filepath.Ext(item.Name), ".svg") {
		return decodeSVG(r)
	}

	// Buffer the header once so EXIF and the config decoder can both read it.
	head, err := io.ReadAll(io.LimitReader(r, maxHeaderBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image for info: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrNoDimensions
	}
	info := &ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}
	if format == "jpeg" {
		info.EXIFData, info.Taken = is.GetEXIF(bytes.NewReader(head))
	}
	return info, nil
}

func decodeSVG(r io.Reader) (*ImageInfo, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	w := int(math.Round(icon.ViewBox.W))
	h := int(math.Round(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		return nil, ErrNoDimensions
	}
	return &ImageInfo{Width: w, Height: h, Format: "svg"}, nil
}

// Decode fully decodes raster image content. Use DecodeNamed for SVG.
func (is *ImageService) Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeNamed decodes r picking the decoder from name. SVG content is
// rasterized to fit within maxDim pixels on its longer side.
func (is *ImageService) DecodeNamed(name string, r io.Reader, maxDim int) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".svg") {
		return RasterizeSVG(r, maxDim)
	}
	return is.Decode(r)
}

// RasterizeSVG renders an SVG document so that its longer side is maxDim pixels.
func RasterizeSVG(r io.Reader, maxDim int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse svg: %w", err)
	}
	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		return nil, ErrNoDimensions
	}
	if maxDim <= 0 {
		maxDim = int(math.Max(vw, vh))
	}
	scale := float64(maxDim) / math.Max(vw, vh)
	w := max(1, int(math.Round(vw*scale)))
	h := max(1, int(math.Round(vh*scale)))

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
