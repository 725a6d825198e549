package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/storage"
)

// ComputeFunc produces an artifact for a session. Returning an error leaves the slot empty.
type ComputeFunc func(ctx context.Context, s *models.Session) (any, error)

// LabelFunc classifies one stored image.
type LabelFunc func(ctx context.Context, img models.ExtractedImage) models.LabeledImage

// Cache keeps per-session artifacts and makes sure each one is computed at most once at a time.
type Cache struct {
	store storage.Store
	group singleflight.Group
	now   func() time.Time
}

func New(store storage.Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Create registers a session whose text and images are already extracted.
func (c *Cache) Create(id, sourcePath, filename, dir, text string, images []models.ExtractedImage) (*models.Session, error) {
	if images == nil {
		images = []models.ExtractedImage{}
	}
	s := models.NewSession(id, sourcePath, filename, dir, text, images, c.now())
	if err := c.store.Create(s); err != nil {
		return nil, err
	}
	slog.Info("Created session", "session_id", id, "filename", filename, "images", len(images))
	return s, nil
}

// Delete drops a session without running the eviction hook.
func (c *Cache) Delete(id string) error {
	return c.store.Delete(id)
}

// Session returns the session or a SessionNotFound error.
func (c *Cache) Session(id string) (*models.Session, error) {
	return c.store.Get(id)
}

// Text returns the extracted document text.
func (c *Cache) Text(id string) (string, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return "", err
	}
	return s.Text, nil
}

// Images returns the stored images in document order.
func (c *Cache) Images(id string) ([]models.ExtractedImage, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	return append([]models.ExtractedImage(nil), s.Images...), nil
}

// Labeled returns the result of the latest labeling run, or nil if none ran yet.
func (c *Cache) Labeled(id string) ([]models.LabeledImage, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	if s.Labeled == nil {
		return nil, nil
	}
	return append([]models.LabeledImage(nil), s.Labeled...), nil
}

// Cached returns an artifact without computing it.
func (c *Cache) Cached(id, kind, variant string) (any, bool, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return nil, false, err
	}
	v, ok := lookup(s, models.ArtifactKey{Kind: kind, Variant: variant})
	return v, ok, nil
}

// GetOrCompute returns the cached artifact (kind, variant) or computes and stores it.
// Concurrent callers for the same artifact share a single compute. The compute is not
// cancelled when one caller goes away; that caller gets ctx.Err() instead.
func (c *Cache) GetOrCompute(ctx context.Context, id, kind, variant string, compute ComputeFunc) (any, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}

	key := models.ArtifactKey{Kind: kind, Variant: variant}
	if v, ok := lookup(s, key); ok {
		return v, nil
	}

	flightKey := fmt.Sprintf("%s\x00%s\x00%s", id, kind, variant)
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		if v, ok := lookup(s, key); ok {
			return v, nil
		}

		v, err := compute(detached, s)
		if err != nil {
			slog.Warn("Artifact not cached", "session_id", id, "kind", kind, "variant", variant, "err", err)
			return nil, domain.ComputeError(fmt.Sprintf("compute %s failed", kind), err)
		}

		s.Lock()
		if existing, ok := s.Artifacts[key]; ok {
			v = existing
		} else {
			s.Artifacts[key] = v
		}
		s.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Compute is GetOrCompute with a typed result.
func Compute[T any](ctx context.Context, c *Cache, id, kind, variant string, compute func(ctx context.Context, s *models.Session) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrCompute(ctx, id, kind, variant, func(ctx context.Context, s *models.Session) (any, error) {
		return compute(ctx, s)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, domain.ComputeError(fmt.Sprintf("cached %s has type %T", kind, v), nil)
	}
	return typed, nil
}

// String computes a text artifact.
func (c *Cache) String(ctx context.Context, id, kind, variant string, compute func(ctx context.Context, s *models.Session) (string, error)) (string, error) {
	return Compute(ctx, c, id, kind, variant, compute)
}

// Strings computes a list artifact.
func (c *Cache) Strings(ctx context.Context, id, kind, variant string, compute func(ctx context.Context, s *models.Session) ([]string, error)) ([]string, error) {
	return Compute(ctx, c, id, kind, variant, compute)
}

// LabelImages classifies every stored image and replaces the labeled results wholesale.
// Results are never reused across calls; concurrent calls for one session share a run.
func (c *Cache) LabelImages(ctx context.Context, id string, label LabelFunc) ([]models.LabeledImage, error) {
	s, err := c.store.Get(id)
	if err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id+"\x00labels", func() (any, error) {
		results := make([]models.LabeledImage, 0, len(s.Images))
		for _, img := range s.Images {
			results = append(results, label(detached, img))
		}

		s.Lock()
		s.Labeled = results
		s.Unlock()

		slog.Info("Labeled session images", "session_id", id, "images", len(results))
		return results, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]models.LabeledImage(nil), res.Val.([]models.LabeledImage)...), nil
	}
}

func lookup(s *models.Session, key models.ArtifactKey) (any, bool) {
	s.Lock()
	defer s.Unlock()
	v, ok := s.Artifacts[key]
	return v, ok
}

// List returns a summary of every live session, oldest first.
func (c *Cache) List() []models.SessionSummary {
	sessions := c.store.List()
	out := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
