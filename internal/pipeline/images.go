package pipeline

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/export"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/session"
)

// ImageView is a stored image as exposed to clients.
type ImageView struct {
	URL   string `json:"url"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
	Size  int64  `json:"size"`
}

// ImagesResult lists a session's images and its latest labeling run.
type ImagesResult struct {
	Images  []ImageView           `json:"images"`
	Labeled []models.LabeledImage `json:"labeled"`
}

// IdentifyResult is the classification of a single uploaded image.
type IdentifyResult struct {
	Organ         string   `json:"organ"`
	Labels        []string `json:"labels"`
	OriginalURL   string   `json:"original_image"`
	ReferencePath string   `json:"detailed_image"`
	ReferenceURL  string   `json:"detailed_image_url"`
	Status        string   `json:"image_generation_status"`
}

// Images returns the session's images and the most recent labels.
func (o *Orchestrator) Images(ctx context.Context, id string) (*ImagesResult, error) {
	images, err := o.cache.Images(id)
	if err != nil {
		return nil, err
	}
	labeled, err := o.cache.Labeled(id)
	if err != nil {
		return nil, err
	}
	if labeled == nil {
		labeled = []models.LabeledImage{}
	}

	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, ImageView{
			URL:   o.fileURL(img.Path),
			Page:  img.Page,
			Index: img.Index,
			Size:  img.Size,
		})
	}
	return &ImagesResult{Images: views, Labeled: labeled}, nil
}

// LabelImages classifies every stored image of the session and replaces earlier results.
func (o *Orchestrator) LabelImages(ctx context.Context, id string) ([]models.LabeledImage, error) {
	return o.cache.LabelImages(ctx, id, o.labelImage)
}

func (o *Orchestrator) labelImage(ctx context.Context, img models.ExtractedImage) models.LabeledImage {
	label := models.UnknownLabel()
	data, err := os.ReadFile(img.Path)
	if err != nil {
		slog.Warn("Cannot read image for labeling", "path", img.Path, "err", domain.StorageError("read failed", err))
	} else {
		label = o.ai.ClassifyImage(ctx, data)
	}

	result := models.LabeledImage{
		Original: o.fileURL(img.Path),
		Organ:    label.Organ,
		Labels:   label.Labels,
		Status:   models.StatusNotFound,
	}
	o.attachReference(&result.ReferencePath, &result.ReferenceURL, &result.Status, label.Organ)
	return result
}

// IdentifyImage classifies one image outside any session.
func (o *Orchestrator) IdentifyImage(ctx context.Context, filename string, data []byte) (*IdentifyResult, error) {
	if len(data) == 0 {
		return nil, domain.InvalidInputError("image is empty", nil)
	}

	dir := filepath.Join(o.uploadDir, singleImagesDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.StorageError("failed to create image directory", err)
	}
	path := filepath.Join(dir, session.NewID()+imageExt(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, domain.StorageError("failed to store image", err)
	}

	label := o.ai.ClassifyImage(ctx, data)
	result := &IdentifyResult{
		Organ:       label.Organ,
		Labels:      label.Labels,
		OriginalURL: o.fileURL(path),
		Status:      models.StatusNotFound,
	}
	o.attachReference(&result.ReferencePath, &result.ReferenceURL, &result.Status, label.Organ)

	slog.Info("Identified image", "organ", result.Organ, "status", result.Status)
	return result, nil
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)

// imageExt keeps a short alphanumeric extension from the client filename, defaulting to .png.
func imageExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(safeName(filename, "")))
	if !extPattern.MatchString(ext) {
		return ".png"
	}
	return ext
}

func (o *Orchestrator) attachReference(path, url, status *string, organ string) {
	ref, ok := o.resolver.Resolve(organ)
	if !ok {
		return
	}
	u, err := urlFor(OrgansPrefix, o.resolver.ImageDir(), ref)
	if err != nil {
		slog.Warn("Reference image outside organ directory", "path", ref, "err", err)
		return
	}
	*path, *url, *status = ref, u, models.StatusOK
}

// Export writes the latest labeling run of the session as parquet.
func (o *Orchestrator) Export(ctx context.Context, id string, w io.Writer) error {
	s, err := o.cache.Session(id)
	if err != nil {
		return err
	}
	labeled, err := o.cache.Labeled(id)
	if err != nil {
		return err
	}
	return export.WriteParquet(w, export.Rows(s.ID, s.Filename, labeled))
}

// Sessions lists live sessions.
func (o *Orchestrator) Sessions() []models.SessionSummary {
	return o.cache.List()
}

func (o *Orchestrator) fileURL(path string) string {
	u, err := urlFor(FilesPrefix, o.uploadDir, path)
	if err != nil {
		slog.Warn("File outside upload directory", "path", path, "err", err)
		return ""
	}
	return u
}
