package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// twoPagePDF builds a document with a noisy 40x40 image on page 1 and a 4x4 image on page 2.
func twoPagePDF(t *testing.T) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	noisy := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			noisy.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	tiny := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var out bytes.Buffer
	imgs := []io.Reader{
		bytes.NewReader(encodePNG(t, noisy)),
		bytes.NewReader(encodePNG(t, tiny)),
	}
	require.NoError(t, api.ImportImages(nil, &out, imgs, nil, nil))
	return out.Bytes()
}

func TestDefaultBackendExtract(t *testing.T) {
	doc := twoPagePDF(t)
	ctx := context.Background()

	pages, err := NewDefaultBackend().PageTexts(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	dir := filepath.Join(t.TempDir(), "images")
	res, err := NewExtractor(nil, DefaultMinImageBytes).Extract(ctx, doc, dir)
	require.NoError(t, err)

	assert.Len(t, strings.Split(res.Text, "\n"), 2)
	require.Len(t, res.Images, 1)
	assert.Equal(t, 1, res.Dropped)

	kept := filepath.Base(res.Images[0].Path)
	assert.True(t, strings.HasPrefix(kept, "page1_img1."), kept)
	assert.Greater(t, res.Images[0].Size, int64(DefaultMinImageBytes))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept, entries[0].Name())
}

func TestDefaultBackendCorruptDocument(t *testing.T) {
	_, err := NewExtractor(nil, DefaultMinImageBytes).Extract(context.Background(), []byte("%PDF-1.7 garbage"), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrExtraction)
}
