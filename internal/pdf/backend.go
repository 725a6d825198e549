package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RawImage is an embedded image as it comes out of the document, before it is persisted.
type RawImage struct {
	Page     int
	Index    int
	ObjNr    int
	Format   string
	Channels int
	Data     []byte
}

// Backend reads text and images from a document container.
type Backend interface {
	// PageTexts returns one entry per page, in page order.
	PageTexts(ctx context.Context, document []byte) ([]string, error)
	// Images returns embedded images ordered by page, then by position within the page.
	Images(ctx context.Context, document []byte) ([]RawImage, error)
}

// NewDefaultBackend reads text with MuPDF and images with pdfcpu.
func NewDefaultBackend() Backend {
	return &defaultBackend{}
}

type defaultBackend struct{}

func (b *defaultBackend) PageTexts(ctx context.Context, document []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	texts := make([]string, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			slog.Debug("Page has no extractable text", "page", pageNum+1, "err", err)
			continue
		}
		texts[pageNum] = text
	}

	return texts, nil
}

func (b *defaultBackend) Images(ctx context.Context, document []byte) ([]RawImage, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var images []RawImage
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if img.Reader == nil {
			return nil
		}

		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("failed to read image %d on page %d: %w", img.ObjNr, img.PageNr, err)
		}

		channels := img.Comp
		if img.HasSMask {
			channels++
		}

		images = append(images, RawImage{
			Page:     img.PageNr,
			ObjNr:    img.ObjNr,
			Format:   img.FileType,
			Channels: channels,
			Data:     data,
		})
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(document), nil, digest, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	orderImages(images)
	return images, nil
}

// orderImages sorts by page and object number and assigns 1-based per-page indexes.
// pdfcpu hands a page's images over from a map, so the object number is the stable order.
func orderImages(images []RawImage) {
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].Page != images[j].Page {
			return images[i].Page < images[j].Page
		}
		return images[i].ObjNr < images[j].ObjNr
	})

	page, index := 0, 0
	for i := range images {
		if images[i].Page != page {
			page, index = images[i].Page, 0
		}
		index++
		images[i].Index = index
	}
}
