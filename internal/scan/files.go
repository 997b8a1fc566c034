// Package scan operates on files in a directory and its subdirectories
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
)

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// FileItem is one file handed to the catalog: its name, the slash-separated
// path relative to the folder the user picked (including that folder's own
// name), its size, modification time and MIME type.
type FileItem struct {
	Name     string
	RelPath  string
	Path     string
	Size     int64
	ModTime  time.Time
	MimeType string

	open func() (io.ReadCloser, error)
}

// FileItems is a slice of FileItem
type FileItems []FileItem

// NewFileItem creates a FileItem backed by a file on disk.
func NewFileItem(p, rel string, info fs.FileInfo) FileItem {
	item := FileItem{
		Name:     filepath.Base(p),
		RelPath:  filepath.ToSlash(rel),
		Path:     p,
		MimeType: MimeType(p),
	}
	if info != nil {
		item.Size = info.Size()
		item.ModTime = info.ModTime()
	}
	return item
}

// NewStreamItem creates a FileItem whose content comes from open rather than
// the filesystem (drag and drop, archives, tests).
func NewStreamItem(name, rel string, size int64, modTime time.Time, open func() (io.ReadCloser, error)) FileItem {
	if rel == "" {
		rel = name
	}
	return FileItem{
		Name:     name,
		RelPath:  rel,
		Path:     rel,
		Size:     size,
		ModTime:  modTime,
		MimeType: MimeType(name),
		open:     open,
	}
}

// Open returns a reader over the file content.
func (fi FileItem) Open() (io.ReadCloser, error) {
	if fi.open != nil {
		return fi.open()
	}
	if fi.Path == "" {
		return nil, errors.New("file item has no content")
	}
	return os.Open(fi.Path)
}

// Dir returns the slash-separated folder part of RelPath, or "" for a loose file.
func (fi FileItem) Dir() string {
	d := path.Dir(fi.RelPath)
	if d == "." {
		return ""
	}
	return d
}

var extraMimeTypes = map[string]string{
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// MimeType guesses the MIME type from the file extension.
func MimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extraMimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// IsImage checks if a file is an image
func IsImage(n string) bool {
	switch strings.ToLower(filepath.Ext(n)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".svg":
		return true
	default:
		return false
	}
}

func logf(logger LoggerFunc, format string, args ...interface{}) {
	if logger != nil {
		logger(fmt.Sprintf(format, args...))
		return
	}
	log.Printf(format, args...)
}

// Run walks root and streams every non-empty image file it finds. The
// channel is closed when the walk ends. When root is a single file it is
// yielded as a loose item.
func Run(ctx context.Context, root string, logger LoggerFunc) <-chan FileItem {
	out := make(chan FileItem, 64)
	go func() {
		defer close(out)
		if err := walk(ctx, root, logger, out); err != nil && !errors.Is(err, context.Canceled) {
			logf(logger, "Scan of %s failed: %v", root, err)
		}
	}()
	return out
}

// Collect runs a scan to completion and returns the items found.
func Collect(ctx context.Context, root string, logger LoggerFunc) (FileItems, error) {
	var items FileItems
	for item := range Run(ctx, root, logger) {
		items = append(items, item)
	}
	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}

func walk(ctx context.Context, root string, logger LoggerFunc, out chan<- FileItem) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && info.Size() > 0 && IsImage(abs) {
			return send(ctx, out, NewFileItem(abs, info.Name(), info))
		}
		return nil
	}

	// RelPath keeps the picked folder's name, like a browser folder upload.
	base := filepath.Dir(abs)
	conf := &fastwalk.Config{Follow: true}
	return fastwalk.Walk(conf, abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logf(logger, "Skipping %s: %v", p, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsImage(p) {
			return nil
		}
		fi, err := fastwalk.StatDirEntry(p, d)
		if err != nil {
			logf(logger, "Skipping %s: %v", p, err)
			return nil
		}
		if !fi.Mode().IsRegular() || fi.Size() == 0 {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			rel = fi.Name()
		}
		return send(ctx, out, NewFileItem(p, rel, fi))
	})
}

func send(ctx context.Context, out chan<- FileItem, item FileItem) error {
	select {
	case out <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
