package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/storage"
)

func newCache(t *testing.T) (*Cache, string) {
	t.Helper()
	c := New(storage.NewMemory(0, nil))
	id := NewID()
	_, err := c.Create(id, "/uploads/doc.pdf", "doc.pdf", "/uploads/"+id, "the heart has four chambers", []models.ExtractedImage{
		{Path: "/uploads/x/page1_img1.png", Size: 2048, Page: 1, Index: 1},
		{Path: "/uploads/x/page2_img1.png", Size: 4096, Page: 2, Index: 1},
	})
	require.NoError(t, err)
	return c, id
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestCreateAndRead(t *testing.T) {
	c, id := newCache(t)

	text, err := c.Text(id)
	require.NoError(t, err)
	assert.Equal(t, "the heart has four chambers", text)

	images, err := c.Images(id)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	labeled, err := c.Labeled(id)
	require.NoError(t, err)
	assert.Nil(t, labeled)

	_, err = c.Create(id, "", "", "", "", nil)
	assert.ErrorIs(t, err, storage.ErrExists)
}

func TestUnknownSession(t *testing.T) {
	c, _ := newCache(t)
	_, err := c.GetOrCompute(context.Background(), "nope", models.ArtifactSummary, "", func(ctx context.Context, s *models.Session) (any, error) {
		t.Fatal("compute must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = c.Text("nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = c.LabelImages(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestGetOrComputeIsIdempotent(t *testing.T) {
	c, id := newCache(t)
	var calls int
	compute := func(ctx context.Context, s *models.Session) (string, error) {
		calls++
		return "summary of " + s.Filename, nil
	}

	first, err := c.String(context.Background(), id, models.ArtifactSummary, "", compute)
	require.NoError(t, err)
	second, err := c.String(context.Background(), id, models.ArtifactSummary, "", compute)
	require.NoError(t, err)

	assert.Equal(t, "summary of doc.pdf", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c, id := newCache(t)
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func(ctx context.Context, s *models.Session) (any, error) {
		calls.Add(1)
		<-release
		return "details", nil
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([]any, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), id, models.ArtifactDetails, "", compute)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "details", results[i])
	}
}

func TestTranslationsAreAdditive(t *testing.T) {
	c, id := newCache(t)
	translate := func(lang string) func(ctx context.Context, s *models.Session) (string, error) {
		return func(ctx context.Context, s *models.Session) (string, error) {
			return "summary in " + lang, nil
		}
	}

	fr, err := c.String(context.Background(), id, models.ArtifactTranslation, "French", translate("French"))
	require.NoError(t, err)
	de, err := c.String(context.Background(), id, models.ArtifactTranslation, "German", translate("German"))
	require.NoError(t, err)
	again, err := c.String(context.Background(), id, models.ArtifactTranslation, "French", translate("changed"))
	require.NoError(t, err)

	assert.Equal(t, "summary in French", fr)
	assert.Equal(t, "summary in German", de)
	assert.Equal(t, "summary in French", again)

	v, ok, err := c.Cached(id, models.ArtifactTranslation, "German")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "summary in German", v)
}

func TestFailedComputeIsNotCached(t *testing.T) {
	c, id := newCache(t)

	_, err := c.Strings(context.Background(), id, models.ArtifactReferences, "", func(ctx context.Context, s *models.Session) ([]string, error) {
		return nil, errors.New("provider down")
	})
	assert.ErrorIs(t, err, domain.ErrComputeFailed)

	_, ok, err := c.Cached(id, models.ArtifactReferences, "")
	require.NoError(t, err)
	assert.False(t, ok)

	refs, err := c.Strings(context.Background(), id, models.ArtifactReferences, "", func(ctx context.Context, s *models.Session) ([]string, error) {
		return []string{"https://example.org"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org"}, refs)
}

func TestCallerCancellationDoesNotFailFlight(t *testing.T) {
	c, id := newCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(ctx, id, models.ArtifactSummary, "", func(ctx context.Context, s *models.Session) (any, error) {
			close(started)
			<-release
			return "summary", ctx.Err()
		})
		errCh <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Cached(id, models.ArtifactSummary, "")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestLabelImagesReplacesResults(t *testing.T) {
	c, id := newCache(t)
	var run atomic.Int32

	label := func(ctx context.Context, img models.ExtractedImage) models.LabeledImage {
		organ := "heart"
		if run.Load() > 1 {
			organ = "lung"
		}
		return models.LabeledImage{Original: img.Path, Organ: organ, Labels: []string{}, Status: models.StatusNotFound}
	}

	run.Store(1)
	first, err := c.LabelImages(context.Background(), id, label)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "/uploads/x/page1_img1.png", first[0].Original)
	assert.Equal(t, "heart", first[0].Organ)

	run.Store(2)
	second, err := c.LabelImages(context.Background(), id, label)
	require.NoError(t, err)
	assert.Equal(t, "lung", second[1].Organ)

	stored, err := c.Labeled(id)
	require.NoError(t, err)
	assert.Equal(t, second, stored)
}
