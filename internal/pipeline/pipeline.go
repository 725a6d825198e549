package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/inference"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/organs"
	"github.com/lehigh-university-libraries/anatomist/internal/pdf"
	"github.com/lehigh-university-libraries/anatomist/internal/session"
)

const (
	FilesPrefix  = "/files/"
	OrgansPrefix = "/organs/"

	imagesDir       = "images"
	singleImagesDir = "single_images"
)

// Inference is the set of model operations the pipeline relies on.
type Inference interface {
	Summarize(ctx context.Context, text string) string
	Translate(ctx context.Context, text, language, domainContext string) string
	Elaborate(ctx context.Context, summary, fullText string) string
	SuggestReferences(ctx context.Context, summary string) []string
	TranslateReferenceList(ctx context.Context, lines []string, language string) []string
	ClassifyImage(ctx context.Context, image []byte) models.OrganLabelResult
}

// Orchestrator runs uploads and on-demand artifact requests.
type Orchestrator struct {
	cache          *session.Cache
	extractor      *pdf.Extractor
	ai             Inference
	resolver       *organs.Resolver
	uploadDir      string
	maxUploadBytes int64
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
}

func New(cache *session.Cache, extractor *pdf.Extractor, ai Inference, resolver *organs.Resolver, opts Options) *Orchestrator {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	return &Orchestrator{
		cache:          cache,
		extractor:      extractor,
		ai:             ai,
		resolver:       resolver,
		uploadDir:      opts.UploadDir,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}

// UploadDir is the root served under FilesPrefix.
func (o *Orchestrator) UploadDir() string {
	return o.uploadDir
}

// OrganImageDir is the root served under OrgansPrefix.
func (o *Orchestrator) OrganImageDir() string {
	return o.resolver.ImageDir()
}

// IngestResult is returned from a successful upload.
type IngestResult struct {
	SessionID  string `json:"session_id"`
	Summary    string `json:"summary"`
	ImageCount int    `json:"image_count"`
}

// Ingest stores the document, extracts it, opens a session and computes the summary.
func (o *Orchestrator) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	if err := pdf.Validate(data, o.maxUploadBytes); err != nil {
		return nil, err
	}

	id := session.NewID()
	dir := filepath.Join(o.uploadDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, domain.StorageError("failed to create session directory", err)
	}

	sourcePath := filepath.Join(dir, safeName(filename, "document.pdf"))
	if err := os.WriteFile(sourcePath, data, 0644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, domain.StorageError("failed to store document", err)
	}

	res, err := o.extractor.Extract(ctx, data, filepath.Join(dir, imagesDir))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	slog.Info("Extracted document", "session_id", id, "chars", len(res.Text), "images", len(res.Images), "dropped", res.Dropped)

	if _, err := o.cache.Create(id, sourcePath, filename, dir, res.Text, res.Images); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	summary, err := o.Summary(ctx, id)
	if err != nil {
		if derr := o.cache.Delete(id); derr != nil {
			slog.Warn("Failed to drop unfinished session", "session_id", id, "err", derr)
		}
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return &IngestResult{SessionID: id, Summary: summary, ImageCount: len(res.Images)}, nil
}

// Summary returns the cached summary, computing it on first use.
func (o *Orchestrator) Summary(ctx context.Context, id string) (string, error) {
	return o.text(ctx, id, models.ArtifactSummary, "", func(ctx context.Context, s *models.Session) string {
		return o.ai.Summarize(ctx, s.Text)
	})
}

// Translation returns the summary translated into language.
func (o *Orchestrator) Translation(ctx context.Context, id, language string) (string, error) {
	language, err := requireLanguage(language)
	if err != nil {
		return "", err
	}
	summary, err := o.Summary(ctx, id)
	if err != nil || inference.IsSentinel(summary) {
		return summary, err
	}

	return o.text(ctx, id, models.ArtifactTranslation, language, func(ctx context.Context, s *models.Session) string {
		return o.ai.Translate(ctx, summary, language, inference.ContextSummary)
	})
}

// Details returns the extended explanation.
func (o *Orchestrator) Details(ctx context.Context, id string) (string, error) {
	summary, err := o.Summary(ctx, id)
	if err != nil || inference.IsSentinel(summary) {
		return summary, err
	}

	return o.text(ctx, id, models.ArtifactDetails, "", func(ctx context.Context, s *models.Session) string {
		return o.ai.Elaborate(ctx, summary, s.Text)
	})
}

// TranslatedDetails returns the extended explanation translated into language.
func (o *Orchestrator) TranslatedDetails(ctx context.Context, id, language string) (string, error) {
	language, err := requireLanguage(language)
	if err != nil {
		return "", err
	}
	details, err := o.Details(ctx, id)
	if err != nil || inference.IsSentinel(details) {
		return details, err
	}

	return o.text(ctx, id, models.ArtifactDetailsTranslation, language, func(ctx context.Context, s *models.Session) string {
		return o.ai.Translate(ctx, details, language, inference.ContextDetails)
	})
}

// References returns suggested reading for the document.
func (o *Orchestrator) References(ctx context.Context, id string) ([]string, error) {
	summary, err := o.Summary(ctx, id)
	if err != nil {
		if derr := o.cache.Delete(id); derr != nil {
			slog.Warn("Failed to drop unfinished session", "session_id", id, "err", derr)
		}
		_ = os.RemoveAll(dir)
		return nil, err
	}
	if inference.IsSentinel(summary) {
		return []string{summary}, nil
	}

	return o.lines(ctx, id, models.ArtifactReferences, "", func(ctx context.Context, s *models.Session) []string {
		return o.ai.SuggestReferences(ctx, summary)
	})
}

// TranslatedReferences returns the reference list with descriptions translated and URLs intact.
func (o *Orchestrator) TranslatedReferences(ctx context.Context, id, language string) ([]string, error) {
	language, err := requireLanguage(language)
	if err != nil {
		return nil, err
	}
	refs, err := o.References(ctx, id)
	if err != nil || inference.IsSentinelList(refs) {
		return refs, err
	}

	return o.lines(ctx, id, models.ArtifactReferencesTranslation, language, func(ctx context.Context, s *models.Session) []string {
		return o.ai.TranslateReferenceList(ctx, refs, language)
	})
}

// sentinelResult carries a failure placeholder out of a compute so it is returned but not cached.
type sentinelResult struct {
	text  string
	lines []string
}

func (e *sentinelResult) Error() string {
	return "inference failed: " + e.text
}

func (o *Orchestrator) text(ctx context.Context, id, kind, variant string, fn func(ctx context.Context, s *models.Session) string) (string, error) {
	out, err := o.cache.String(ctx, id, kind, variant, func(ctx context.Context, s *models.Session) (string, error) {
		out := fn(ctx, s)
		if inference.IsSentinel(out) {
			return "", &sentinelResult{text: out}
		}
		return out, nil
	})
	var sr *sentinelResult
	if errors.As(err, &sr) {
		return sr.text, nil
	}
	return out, err
}

func (o *Orchestrator) lines(ctx context.Context, id, kind, variant string, fn func(ctx context.Context, s *models.Session) []string) ([]string, error) {
	out, err := o.cache.Strings(ctx, id, kind, variant, func(ctx context.Context, s *models.Session) ([]string, error) {
		out := fn(ctx, s)
		if inference.IsSentinelList(out) {
			return nil, &sentinelResult{text: out[0], lines: out}
		}
		if out == nil {
			out = []string{}
		}
		return out, nil
	})
	var sr *sentinelResult
	if errors.As(err, &sr) {
		return append([]string(nil), sr.lines...), nil
	}
	if err != nil {
		return nil, err
	}
	return append([]string(nil), out...), nil
}

func requireLanguage(language string) (string, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return "", domain.InvalidInputError("language is required", nil)
	}
	return language, nil
}

// safeName reduces an uploaded filename to its base name.
func safeName(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}

// RemoveSessionFiles deletes everything stored for an evicted session.
func RemoveSessionFiles(s *models.Session) {
	if s.Dir == "" {
		return
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		slog.Warn("Failed to remove session files", "session_id", s.ID, "dir", s.Dir, "err", err)
	}
}

func urlFor(prefix, root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return prefix + strings.Join(segments, "/"), nil
}
