package gateway

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mediamesh/mediamesh/core/chunkstore"
)

// handleServeChunk returns the literal chunk file content. Integrity is
// trust-on-write: the hash in the descriptor was computed at creation and
// is not re-verified per serve.
func (g *Gateway) handleServeChunk(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid chunk index")
		return
	}

	rc, size, err := g.chunks.OpenChunk(mediaID, index)
	if err != nil {
		if errors.Is(err, chunkstore.ErrChunkNotFound) {
			writeError(w, http.StatusNotFound, "chunk not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(w, rc)
	if err != nil && !isClientDisconnect(err) {
		log.Errorw("chunk", "status", "chunk transfer failed",
			"media", mediaID, "index", index, "error", err)
	}
}

type chunksInfoResponse struct {
	MediaID   string             `json:"mediaId"`
	Chunks    []chunkstore.Entry `json:"chunks"`
	Count     int                `json:"count"`
	TotalSize int64              `json:"totalSize"`
	Available bool               `json:"available"`
}

// handleChunksInfo lists a media item's chunk files sorted by index. A
// media item with no chunk directory yields available=false, never an
// error.
func (g *Gateway) handleChunksInfo(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	entries, available := g.chunks.ListChunks(mediaID)

	var totalSize int64
	for _, e := range entries {
		totalSize += e.Size
	}

	writeJSON(w, http.StatusOK, chunksInfoResponse{
		MediaID:   mediaID,
		Chunks:    entries,
		Count:     len(entries),
		TotalSize: totalSize,
		Available: available,
	})
}
