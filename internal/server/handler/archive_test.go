package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

// fakeArchiveReader serves archive objects from an in-memory map.
type fakeArchiveReader struct {
	objects map[string]string
	listErr error
}

func (f *fakeArchiveReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeArchiveReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var infos []domain.BlobInfo
	for path, body := range f.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{
				Path:         path,
				Size:         int64(len(body)),
				LastModified: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			})
		}
	}
	return infos, nil
}

func (f *fakeArchiveReader) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := f.objects[path]
	return ok, nil
}

func archiveRequest(t *testing.T, h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestArchiveListFiles(t *testing.T) {
	reader := &fakeArchiveReader{objects: map[string]string{
		domain.ArchivePath("m1", "trades"): `{"id":1}` + "\n",
		domain.ArchivePath("m1", "orders"): "",
		domain.ArchivePath("m2", "trades"): `{"id":9}` + "\n",
	}}
	h := NewArchiveHandler(reader, slog.New(slog.DiscardHandler))

	rec := archiveRequest(t, h.ListArchive, "GET /api/markets/{id}/archive", "/api/markets/m1/archive")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"kind":"trades"`)
	assert.Contains(t, body, `"kind":"orders"`)
	assert.NotContains(t, body, "m2")
}

func TestArchiveListEmpty(t *testing.T) {
	h := NewArchiveHandler(&fakeArchiveReader{objects: map[string]string{}}, slog.New(slog.DiscardHandler))

	rec := archiveRequest(t, h.ListArchive, "GET /api/markets/{id}/archive", "/api/markets/m1/archive")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestArchiveDownload(t *testing.T) {
	content := `{"id":1,"amount":500}` + "\n" + `{"id":2,"amount":250}` + "\n"
	reader := &fakeArchiveReader{objects: map[string]string{
		domain.ArchivePath("m1", "trades"): content,
	}}
	h := NewArchiveHandler(reader, slog.New(slog.DiscardHandler))

	rec := archiveRequest(t, h.DownloadArchive, "GET /api/markets/{id}/archive/{kind}", "/api/markets/m1/archive/trades")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.String())
}

func TestArchiveDownloadMissing(t *testing.T) {
	h := NewArchiveHandler(&fakeArchiveReader{objects: map[string]string{}}, slog.New(slog.DiscardHandler))

	rec := archiveRequest(t, h.DownloadArchive, "GET /api/markets/{id}/archive/{kind}", "/api/markets/m1/archive/trades")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveDownloadBadKind(t *testing.T) {
	h := NewArchiveHandler(&fakeArchiveReader{objects: map[string]string{}}, slog.New(slog.DiscardHandler))

	rec := archiveRequest(t, h.DownloadArchive, "GET /api/markets/{id}/archive/{kind}", "/api/markets/m1/archive/positions")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
