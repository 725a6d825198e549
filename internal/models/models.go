package models

import (
	"sync"
	"sync/atomic"
	"time"
)

// UnknownOrgan is the organ reported when classification fails or is inconclusive.
const UnknownOrgan = "unknown"

// Reference resolution outcomes reported alongside labeled images.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
)

// ExtractedImage is an image pulled out of an uploaded document and kept on disk.
type ExtractedImage struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Page  int    `json:"page"`
	Index int    `json:"index"`
}

// OrganLabelResult is the structured answer of the vision model for one image.
type OrganLabelResult struct {
	Organ  string   `json:"organ"`
	Labels []string `json:"labels"`
}

// UnknownLabel returns the fallback classification.
func UnknownLabel() OrganLabelResult {
	return OrganLabelResult{Organ: UnknownOrgan, Labels: []string{}}
}

// LabeledImage pairs an extracted image with its classification and reference image.
type LabeledImage struct {
	Original      string   `json:"original"`
	Organ         string   `json:"organ"`
	Labels        []string `json:"labels"`
	ReferencePath string   `json:"labeled_image"`
	ReferenceURL  string   `json:"labeled_image_url"`
	Status        string   `json:"image_generation_status"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	ImageCount int       `json:"image_count"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// Artifact kinds cached per session.
const (
	ArtifactSummary               = "summary"
	ArtifactTranslation           = "translation"
	ArtifactDetails               = "details"
	ArtifactDetailsTranslation    = "details_translation"
	ArtifactReferences            = "references"
	ArtifactReferencesTranslation = "references_translation"
)

// ArtifactKey identifies one cached artifact. Variant is the language for translations and empty otherwise.
type ArtifactKey struct {
	Kind    string
	Variant string
}

// Session is the state of one uploaded document. Text and Images are set at creation and never change;
// the embedded mutex guards Artifacts and Labeled.
type Session struct {
	sync.Mutex

	ID         string
	SourcePath string
	Filename   string
	Dir        string
	Text       string
	Images     []ExtractedImage
	CreatedAt  time.Time

	Artifacts map[ArtifactKey]any
	Labeled   []LabeledImage

	lastAccess atomic.Int64
}

// NewSession creates a session with empty artifact slots.
func NewSession(id, sourcePath, filename, dir, text string, images []ExtractedImage, now time.Time) *Session {
	s := &Session{
		ID:         id,
		SourcePath: sourcePath,
		Filename:   filename,
		Dir:        dir,
		Text:       text,
		Images:     images,
		CreatedAt:  now,
		Artifacts:  make(map[ArtifactKey]any),
	}
	s.Touch(now)
	return s
}

// Touch records an access at t.
func (s *Session) Touch(t time.Time) {
	s.lastAccess.Store(t.UnixNano())
}

// LastAccess returns the time of the most recent access.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// Summary returns the listing view of the session.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Filename:   s.Filename,
		ImageCount: len(s.Images),
		CreatedAt:  s.CreatedAt,
		LastAccess: s.LastAccess(),
	}
}
