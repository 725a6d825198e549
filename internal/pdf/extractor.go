package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
)

// DefaultMinImageBytes is the size at or below which extracted images are discarded.
const DefaultMinImageBytes = 1024

// Extractor pulls text and images out of documents.
type Extractor struct {
	backend       Backend
	minImageBytes int64
}

// Result is the outcome of a full extraction.
type Result struct {
	Text    string
	Images  []models.ExtractedImage
	Dropped int
}

// NewExtractor creates an extractor. A nil backend selects the MuPDF/pdfcpu backend.
func NewExtractor(backend Backend, minImageBytes int64) *Extractor {
	if backend == nil {
		backend = NewDefaultBackend()
	}
	if minImageBytes <= 0 {
		minImageBytes = DefaultMinImageBytes
	}
	return &Extractor{backend: backend, minImageBytes: minImageBytes}
}

// MinImageBytes returns the filter threshold.
func (e *Extractor) MinImageBytes() int64 {
	return e.minImageBytes
}

// ExtractText returns the text of all pages joined by newlines.
func (e *Extractor) ExtractText(ctx context.Context, document []byte) (string, error) {
	pages, err := e.backend.PageTexts(ctx, document)
	if err != nil {
		return "", domain.ExtractionError("failed to read document text", err)
	}
	return strings.Join(pages, "\n"), nil
}

// ExtractImages writes every embedded image into dir and returns them in document order.
func (e *Extractor) ExtractImages(ctx context.Context, document []byte, dir string) ([]models.ExtractedImage, error) {
	raw, err := e.backend.Images(ctx, document)
	if err != nil {
		return nil, domain.ExtractionError("failed to read document images", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.StorageError("failed to create image directory", err)
	}

	images := make([]models.ExtractedImage, 0, len(raw))
	for _, img := range raw {
		data, ext := img.Data, img.Format
		if ext == "" {
			ext = "bin"
		}

		if needsRGB(img) {
			converted, ok, err := toRGB(img)
			switch {
			case err != nil:
				slog.Warn("Keeping image in original colour space", "page", img.Page, "index", img.Index, "err", err)
			case ok:
				data, ext = converted, "png"
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("page%d_img%d.%s", img.Page, img.Index, ext))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, domain.StorageError("failed to write image", err)
		}

		images = append(images, models.ExtractedImage{
			Path:  path,
			Size:  int64(len(data)),
			Page:  img.Page,
			Index: img.Index,
		})
	}

	return images, nil
}

// Extract runs text extraction, image extraction and the size filter.
// A document whose images cannot be read still yields its text.
func (e *Extractor) Extract(ctx context.Context, document []byte, dir string) (*Result, error) {
	text, err := e.ExtractText(ctx, document)
	if err != nil {
		return nil, err
	}

	images, err := e.ExtractImages(ctx, document, dir)
	if err != nil {
		if domain.TypeOf(err) != domain.ErrorTypeExtraction {
			return nil, err
		}
		slog.Warn("Image extraction failed, continuing with text only", "err", err)
		images = nil
	}

	kept := FilterSmallImages(images, e.minImageBytes)
	return &Result{
		Text:    text,
		Images:  kept,
		Dropped: len(images) - len(kept),
	}, nil
}

// FilterSmallImages keeps images larger than threshold and deletes the rest from disk.
// Entries whose file cannot be read are skipped.
func FilterSmallImages(images []models.ExtractedImage, threshold int64) []models.ExtractedImage {
	kept := make([]models.ExtractedImage, 0, len(images))
	for _, img := range images {
		info, err := os.Stat(img.Path)
		if err != nil {
			slog.Warn("Skipping unreadable image", "path", img.Path, "err", domain.StorageError("stat failed", err))
			continue
		}

		if info.Size() > threshold {
			img.Size = info.Size()
			kept = append(kept, img)
			continue
		}

		if err := os.Remove(img.Path); err != nil {
			slog.Warn("Failed to remove small image", "path", img.Path, "err", err)
		}
	}
	return kept
}
