package export

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"fygallery/internal/catalog"
	"fygallery/internal/locator"
	"fygallery/internal/scan"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type favSet map[string]bool

func (f favSet) Has(id string) bool { return f[id] }

func sample() []catalog.ImageRecord {
	return []catalog.ImageRecord{
		{ID: "1", Name: "sea.jpg", Path: "Photos/Trips/sea.jpg", Album: "Trips", Width: 640, Height: 480,
			Size: 2048, LastModified: time.UnixMilli(1700000000000), MimeType: "image/jpeg",
			Source: scan.FileItem{Path: "/photos/Trips/sea.jpg"}},
		{ID: "2", Name: "<b>odd</b>.png", Path: "odd.png", Album: "Main", Width: 1, Height: 2, Size: 0},
	}
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, "Holiday", "2 photos • 1 favorite", sample(), favSet{"1": true}))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Holiday", doc.Find("title").Text())
	assert.Equal(t, "2 photos • 1 favorite", doc.Find("p.summary").Text())

	items := doc.Find("figure.item")
	require.Equal(t, 2, items.Length())

	first := items.Eq(0)
	assert.True(t, first.HasClass("favorite"))
	assert.Equal(t, "Trips", first.AttrOr("data-album", ""))
	assert.Equal(t, "file:///photos/Trips/sea.jpg", first.Find("img").AttrOr("src", ""))
	assert.Equal(t, "2.0 KiB • 640×480", first.Find(".meta").Text())

	second := items.Eq(1)
	assert.False(t, second.HasClass("favorite"))
	assert.Equal(t, 0, second.Find("img").Length(), "no picture without a file on disk")
	assert.Equal(t, "<b>odd</b>.png", second.Find(".name").Text(), "names are escaped")
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, sample(), favSet{"2": true}))

	var sheet Sheet
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &sheet))
	assert.Equal(t, 2, sheet.Count)
	require.Len(t, sheet.Images, 2)
	assert.Equal(t, "Trips", sheet.Images[0].Album)
	assert.False(t, sheet.Images[0].Favorite)
	assert.True(t, sheet.Images[1].Favorite)
	assert.NotEmpty(t, sheet.Generated)
}

func TestParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.parquet")
	require.NoError(t, Parquet(path, sample(), favSet{"1": true}))

	rows, err := ReadParquet(path)
	require.NoError(t, err)
	assert.Equal(t, Rows(sample(), favSet{"1": true}), rows)
	assert.Equal(t, int64(1700000000000), rows[0].LastModified)
}

func TestSaveCopy(t *testing.T) {
	reg := locator.NewRegistry()
	item := scan.NewStreamItem("pic.png", "", 5, time.Now(), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("pixel")), nil
	})
	rec := catalog.ImageRecord{Name: "pic.png", URL: reg.Allocate(item)}
	dir := t.TempDir()

	dst, err := SaveCopy(reg, rec, dir)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixel", string(data))

	_, err = SaveCopy(reg, rec, dir)
	assert.Error(t, err, "existing files are kept")

	broken := scan.NewStreamItem("half.png", "", 5, time.Now(), func() (io.ReadCloser, error) {
		return io.NopCloser(io.MultiReader(strings.NewReader("pix"), iotest.ErrReader(errors.New("disk gone")))), nil
	})
	half := catalog.ImageRecord{Name: "half.png", URL: reg.Allocate(broken)}
	_, err = SaveCopy(reg, half, dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "half.png"), "a failed copy leaves nothing behind")

	require.NoError(t, reg.Release(rec.URL))
	_, err = SaveCopy(reg, rec, t.TempDir())
	assert.ErrorIs(t, err, locator.ErrReleased)
}

func TestHTMLEscapesFileURLs(t *testing.T) {
	recs := []catalog.ImageRecord{{ID: "1", Name: "#1.jpg", Album: "My Trip",
		Source: scan.FileItem{Path: "/photos/My Trip/#1.jpg"}}}
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, "Trip", "1 photo", recs, nil))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "file:///photos/My%20Trip/%231.jpg", doc.Find("img").AttrOr("src", ""))
}

func TestReadParquetCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.parquet")
	require.NoError(t, os.WriteFile(path, []byte("PAR1 not really a parquet file PAR1"), 0o644))

	_, err := ReadParquet(path)
	assert.Error(t, err)
}
