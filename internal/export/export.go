// Package export writes catalog metadata out of the session: a static HTML
// contact sheet, Parquet and YAML dumps, and plain copies of single images.
package export

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"fygallery/internal/catalog"

	"github.com/dustin/go-humanize"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Membership answers whether an image id is a favorite.
type Membership interface {
	Has(id string) bool
}

// Row is the exported metadata of one record.
type Row struct {
	ID           string `json:"id" yaml:"id" parquet:"id"`
	Name         string `json:"name" yaml:"name" parquet:"name"`
	Path         string `json:"path" yaml:"path" parquet:"path"`
	Album        string `json:"album" yaml:"album" parquet:"album"`
	Width        int32  `json:"width" yaml:"width" parquet:"width"`
	Height       int32  `json:"height" yaml:"height" parquet:"height"`
	Size         int64  `json:"size" yaml:"size" parquet:"size"`
	LastModified int64  `json:"last_modified_ms" yaml:"lastmodifiedms" parquet:"last_modified_ms"`
	MimeType     string `json:"mime_type" yaml:"mimetype" parquet:"mime_type"`
	Favorite     bool   `json:"favorite" yaml:"favorite" parquet:"favorite"`
}

// Rows converts records to rows. favs may be nil.
func Rows(records []catalog.ImageRecord, favs Membership) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			ID:           r.ID,
			Name:         r.Name,
			Path:         r.Path,
			Album:        r.Album,
			Width:        int32(r.Width),
			Height:       int32(r.Height),
			Size:         r.Size,
			LastModified: r.LastModified.UnixMilli(),
			MimeType:     r.MimeType,
			Favorite:     favs != nil && favs.Has(r.ID),
		}
	}
	return rows
}

// Sheet is the YAML document.
type Sheet struct {
	Generated string `yaml:"generated"`
	Count     int    `yaml:"count"`
	Images    []Row  `yaml:"images"`
}

// YAML writes the records as a YAML document.
func YAML(w io.Writer, records []catalog.ImageRecord, favs Membership) error {
	sheet := Sheet{
		Generated: time.Now().Format(time.RFC3339),
		Count:     len(records),
		Images:    Rows(records, favs),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sheet); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

// Parquet writes the records to a Parquet file at path.
func Parquet(path string, records []catalog.ImageRecord, favs Membership) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[Row](f)
	if _, err := writer.Write(Rows(records, favs)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return f.Close()
}

// ReadParquet loads rows written by Parquet.
func ReadParquet(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var out []Row
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		out = append(out, batch[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}

var sheetTemplate = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:1rem}
.grid{columns:240px;column-gap:1rem}
.item{break-inside:avoid;margin-bottom:1rem}
.item img{width:100%;display:block}
.meta{color:#666;font-size:.85rem}
.favorite .name::after{content:" \2605"}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="summary">{{.Summary}}</p>
<div class="grid">
{{- range .Items}}
<figure class="item{{if .Favorite}} favorite{{end}}" data-id="{{.ID}}" data-album="{{.Album}}">
{{- if .Src}}<img src="{{.Src}}" alt="{{.Name}}" loading="lazy">{{end}}
<figcaption><span class="name">{{.Name}}</span><br><span class="meta">{{.Meta}}</span></figcaption>
</figure>
{{- end}}
</div>
</body>
</html>
`))

type sheetItem struct {
	ID       string
	Name     string
	Album    string
	Src      template.URL
	Meta     string
	Favorite bool
}

// HTML writes a static contact sheet. Image sources point at the original
// files; records without a file on disk are listed without a picture.
func HTML(w io.Writer, title, summary string, records []catalog.ImageRecord, favs Membership) error {
	items := make([]sheetItem, len(records))
	for i, r := range records {
		item := sheetItem{
			ID:       r.ID,
			Name:     r.Name,
			Album:    r.Album,
			Meta:     Meta(r),
			Favorite: favs != nil && favs.Has(r.ID),
		}
		if src := r.Source.Path; src != "" && filepath.IsAbs(src) {
			item.Src = template.URL((&url.URL{Scheme: "file", Path: filepath.ToSlash(src)}).String())
		}
		items[i] = item
	}
	data := struct {
		Title   string
		Summary string
		Items   []sheetItem
	}{title, summary, items}
	if err := sheetTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering contact sheet: %w", err)
	}
	return nil
}

// Meta renders "<size> • <width>×<height>".
func Meta(r catalog.ImageRecord) string {
	return fmt.Sprintf("%s • %d×%d", humanize.IBytes(uint64(r.Size)), r.Width, r.Height)
}

// Opener dereferences content locators.
type Opener interface {
	Open(loc string) (io.ReadCloser, error)
}

// SaveCopy writes the content of rec into dir under its own name and
// returns the new file's path. An existing file is not overwritten.
func SaveCopy(src Opener, rec catalog.ImageRecord, dir string) (string, error) {
	r, err := src.Open(rec.URL)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", rec.Name, err)
	}
	defer r.Close()

	dst := filepath.Join(dir, filepath.Base(rec.Name))
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copying %s: %w", rec.Name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}
	return dst, nil
}
