package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/organs"
	"github.com/lehigh-university-libraries/anatomist/internal/pdf"
	"github.com/lehigh-university-libraries/anatomist/internal/pipeline"
	"github.com/lehigh-university-libraries/anatomist/internal/session"
	"github.com/lehigh-university-libraries/anatomist/internal/storage"
)

type stubBackend struct{}

func (stubBackend) PageTexts(ctx context.Context, document []byte) ([]string, error) {
	return []string{"Anatomy of the heart."}, nil
}

func (stubBackend) Images(ctx context.Context, document []byte) ([]pdf.RawImage, error) {
	return []pdf.RawImage{
		{Page: 1, Index: 1, Format: "jpg", Channels: 3, Data: bytes.Repeat([]byte{7}, 2048)},
	}, nil
}

type stubAI struct{}

func (stubAI) Summarize(ctx context.Context, text string) string { return "- heart" }
func (stubAI) Translate(ctx context.Context, text, language, domainContext string) string {
	return "[" + language + "] " + text
}
func (stubAI) Elaborate(ctx context.Context, summary, fullText string) string { return "long text" }
func (stubAI) SuggestReferences(ctx context.Context, summary string) []string {
	return []string{"https://example.org/heart"}
}
func (stubAI) TranslateReferenceList(ctx context.Context, lines []string, language string) []string {
	return lines
}
func (stubAI) ClassifyImage(ctx context.Context, image []byte) models.OrganLabelResult {
	return models.OrganLabelResult{Organ: "heart", Labels: []string{"aorta"}}
}

func newTestServer(t *testing.T, maxUpload int64) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	organDir := filepath.Join(root, "organs")
	require.NoError(t, os.MkdirAll(organDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(organDir, "heart.jpg"), []byte("reference"), 0644))

	orch := pipeline.New(
		session.New(storage.NewMemory(0, nil)),
		pdf.NewExtractor(stubBackend{}, 1024),
		stubAI{},
		organs.NewResolver(organs.Default(), organDir, organs.PrecedenceCatalog),
		pipeline.Options{UploadDir: filepath.Join(root, "uploads"), MaxUploadBytes: maxUpload},
	)
	srv := httptest.NewServer(New(orch, maxUpload).Router())
	t.Cleanup(srv.Close)
	return srv, root
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, srv *httptest.Server, path, filename string, data []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, filename, data)
	resp, err := http.Post(srv.URL+path, ct, body)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func get(t *testing.T, target string) *http.Response {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	return resp
}

func TestUploadAndArtifacts(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)

	resp := upload(t, srv, "/upload", "atlas.pdf", []byte("%PDF-1.7 body"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up pipeline.IngestResult
	decode(t, resp, &up)
	assert.NotEmpty(t, up.SessionID)
	assert.Equal(t, "- heart", up.Summary)
	assert.Equal(t, 1, up.ImageCount)

	tests := []struct {
		path string
		want map[string]any
	}{
		{"/summary/" + up.SessionID, map[string]any{"summary": "- heart"}},
		{"/translate/" + up.SessionID + "?language=French", map[string]any{"language": "French", "summary": "[French] - heart"}},
		{"/details/" + up.SessionID, map[string]any{"details": "long text"}},
		{"/details/translate/" + up.SessionID + "?language=German", map[string]any{"language": "German", "details": "[German] long text"}},
		{"/references/" + up.SessionID, map[string]any{"references": []any{"https://example.org/heart"}}},
		{"/references/translate/" + up.SessionID + "?language=Hindi", map[string]any{"language": "Hindi", "references": []any{"https://example.org/heart"}}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, srv.URL+tt.path)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var got map[string]any
			decode(t, resp, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImagesLabelAndExport(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)

	resp := upload(t, srv, "/upload", "atlas.pdf", []byte("%PDF-1.7 body"))
	var up pipeline.IngestResult
	decode(t, resp, &up)

	resp = get(t, srv.URL+"/images/"+up.SessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var images pipeline.ImagesResult
	decode(t, resp, &images)
	require.Len(t, images.Images, 1)
	assert.Empty(t, images.Labeled)

	resp, err := http.Post(srv.URL+"/images/label/"+up.SessionID, "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var labeled struct {
		Results []models.LabeledImage `json:"results"`
	}
	decode(t, resp, &labeled)
	require.Len(t, labeled.Results, 1)
	assert.Equal(t, "heart", labeled.Results[0].Organ)
	assert.Equal(t, "/organs/heart.jpg", labeled.Results[0].ReferenceURL)
	assert.Equal(t, models.StatusOK, labeled.Results[0].Status)

	resp = get(t, srv.URL+labeled.Results[0].Original)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv.URL+labeled.Results[0].ReferenceURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = get(t, srv.URL+"/images/export/"+up.SessionID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apache.parquet", resp.Header.Get("Content-Type"))
	resp.Body.Close()
}

func TestErrors(t *testing.T) {
	srv, _ := newTestServer(t, 64)

	t.Run("unknown session", func(t *testing.T) {
		for _, path := range []string{"/summary/nope", "/details/nope", "/references/nope", "/images/nope", "/translate/nope?language=French"} {
			resp := get(t, srv.URL+path)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			var body map[string]string
			decode(t, resp, &body)
			assert.Equal(t, "Invalid session_id", body["error"])
		}
	})

	t.Run("missing language", func(t *testing.T) {
		resp := get(t, srv.URL+"/translate/whatever")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("not a pdf", func(t *testing.T) {
		resp := upload(t, srv, "/upload", "notes.txt", []byte("hello"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("too large", func(t *testing.T) {
		resp := upload(t, srv, "/upload", "big.pdf", append([]byte("%PDF-1.7"), bytes.Repeat([]byte{1}, 128)...))
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("missing file field", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/upload", "text/plain", bytes.NewBufferString("x"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("traversal", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/files/x", nil)
		require.NoError(t, err)
		req.URL.Path = "/files/../secret"
		req.URL.RawPath = "/files/%2E%2E/secret"
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestIdentify(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	resp := upload(t, srv, "/identify-organ-image", "scan.png", img.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got pipeline.IdentifyResult
	decode(t, resp, &got)
	assert.Equal(t, "heart", got.Organ)
	assert.Equal(t, []string{"aorta"}, got.Labels)
	assert.Equal(t, "/organs/heart.jpg", got.ReferenceURL)
	assert.Equal(t, models.StatusOK, got.Status)

	resp = upload(t, srv, "/identify-organ-image", "scan.png", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestIdentifyOriginalImageIsFetchable(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	for _, name := range []string{"scan.png", "chest #2.png", "heart..v2.png", "50%.png", "no-extension"} {
		t.Run(name, func(t *testing.T) {
			resp := upload(t, srv, "/identify-organ-image", name, img.Bytes())
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var got pipeline.IdentifyResult
			decode(t, resp, &got)
			require.NotEmpty(t, got.OriginalURL)

			resp = get(t, srv.URL+got.OriginalURL)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, img.Bytes(), body)
		})
	}
}

func TestStaticServesUnusualNames(t *testing.T) {
	srv, root := newTestServer(t, 1<<20)

	dir := filepath.Join(root, "uploads", "misc")
	require.NoError(t, os.MkdirAll(dir, 0755))

	for _, name := range []string{"chest #2.png", "heart..v2.png", "50%.png", "..hidden"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))

			resp := get(t, srv.URL+"/files/misc/"+url.PathEscape(name))
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, name, string(body))
		})
	}
}

func TestHealthcheckAndCORS(t *testing.T) {
	srv, _ := newTestServer(t, 1<<20)

	resp := get(t, srv.URL+"/healthcheck")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/upload", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	resp.Body.Close()
}
