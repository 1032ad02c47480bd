package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// ArchiveReader defines the blob-storage reads the archive handler requires.
type ArchiveReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ArchiveHandler serves a market's cold-storage archive: the JSONL exports
// the archiver wrote before pruning the primary store.
type ArchiveHandler struct {
	blobs  ArchiveReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given reader and logger.
func NewArchiveHandler(blobs ArchiveReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: logger,
	}
}

// archiveFile describes one archived export in a listing response.
type archiveFile struct {
	Path         string    `json:"path"`
	Kind         string    `json:"kind"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// listArchiveResponse wraps the archive listing response.
type listArchiveResponse struct {
	Files []archiveFile `json:"files"`
}

// archiveKinds enumerates the record sets the archiver exports per market.
var archiveKinds = map[string]bool{
	"orders": true,
	"trades": true,
	"claims": true,
}

// ListArchive returns the archive files stored for a market. A market that
// has not been archived yet lists zero files.
// GET /api/markets/{id}/archive
func (h *ArchiveHandler) ListArchive(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	infos, err := h.blobs.List(r.Context(), domain.ArchivePrefix(marketID))
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	files := make([]archiveFile, 0, len(infos))
	for _, info := range infos {
		files = append(files, archiveFile{
			Path:         info.Path,
			Kind:         kindFromPath(info.Path),
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	writeJSON(w, http.StatusOK, listArchiveResponse{Files: files})
}

// DownloadArchive streams one archived record set as JSONL.
// GET /api/markets/{id}/archive/{kind}
func (h *ArchiveHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	kind := pathParam(r, "kind")
	if !archiveKinds[kind] {
		writeError(w, http.StatusBadRequest, "kind must be orders, trades, or claims")
		return
	}

	path := domain.ArchivePath(marketID, kind)
	ok, err := h.blobs.Exists(r.Context(), path)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "archive not found")
		return
	}

	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted",
			slog.String("market_id", marketID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}

// kindFromPath recovers the record-set name from an archive key, e.g.
// "archive/markets/m1/trades.jsonl" -> "trades".
func kindFromPath(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".jsonl")
}
