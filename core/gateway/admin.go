package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/hls"
	"github.com/mediamesh/mediamesh/core/model"
)

type addMediaRequest struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	FilePaths map[string]string `json:"filePaths"`
}

// handleAddMedia registers a media asset in the catalog. A blank id gets
// a generated one; quality keys are normalized through the tier parser.
func (g *Gateway) handleAddMedia(w http.ResponseWriter, r *http.Request) {
	var req addMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	paths := make(map[model.Quality]string, len(req.FilePaths))
	for k, v := range req.FilePaths {
		q, err := model.ParseQuality(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown quality tier: "+k)
			return
		}
		paths[q] = v
	}

	asset := model.MediaAsset{
		ID:        req.ID,
		Title:     req.Title,
		FilePaths: paths,
	}
	if asset.ID == "" {
		asset.ID = newMediaID()
	}

	if err := g.catalog.PutAsset(r.Context(), asset); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Infow("admin", "event", "media registered", "media", asset.ID,
		"title", asset.Title, "by", viewerID(r))

	writeJSON(w, http.StatusCreated, asset)
}

// handleChunkMedia splits a media tier's source file into fixed-size
// chunks on disk and records the descriptors in the catalog.
func (g *Gateway) handleChunkMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	qualityParam := r.URL.Query().Get("quality")
	if qualityParam == "" {
		qualityParam = string(model.QualityHigh)
	}

	quality, err := model.ParseQuality(qualityParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown quality tier")
		return
	}

	chunkSize := g.chunks.ChunkSize()
	if raw := r.URL.Query().Get("chunkSize"); raw != "" {
		chunkSize, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || chunkSize <= 0 {
			writeError(w, http.StatusBadRequest, "invalid chunk size")
			return
		}
	}

	path, err := g.catalog.SourcePath(r.Context(), mediaID, quality)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrAssetNotFound):
			writeError(w, http.StatusNotFound, "media not found")
		case errors.Is(err, catalog.ErrSourceNotSet):
			writeError(w, http.StatusNotFound, "no source for quality tier")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	descriptors, err := g.chunks.CreateChunks(mediaID, path, chunkSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := g.catalog.PutChunks(r.Context(), mediaID, descriptors); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Infow("admin", "event", "media chunked", "media", mediaID,
		"chunks", len(descriptors), "chunkSize", chunkSize)

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId":   mediaID,
		"chunks":    descriptors,
		"count":     len(descriptors),
		"chunkSize": chunkSize,
	})
}

// handlePackageMedia runs the packaging pipeline and then mirrors the
// produced segment sets to object storage in one pass.
func (g *Gateway) handlePackageMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	report, err := g.pipeline.Generate(r.Context(), mediaID)
	if err != nil {
		switch {
		case errors.Is(err, hls.ErrNoSources):
			writeError(w, http.StatusNotFound, "no source paths for media")
		case errors.Is(err, hls.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "packaging already in progress")
		case errors.Is(err, catalog.ErrAssetNotFound):
			writeError(w, http.StatusNotFound, "media not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	upload := g.syncer.UploadPackaged(r.Context(), mediaID, g.pipeline.OutputDir(mediaID))

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId":   mediaID,
		"packaging": report,
		"upload":    upload,
	})
}

// handleBackfill mirrors on-disk chunk files into object storage, optionally
// narrowed to one media item.
func (g *Gateway) handleBackfill(w http.ResponseWriter, r *http.Request) {
	mediaFilter := r.URL.Query().Get("media")

	resolution := r.URL.Query().Get("resolution")
	if resolution == "" {
		resolution = model.QualityHigh.Resolution()
	}

	report := g.syncer.Backfill(r.Context(), g.chunks.Root(), mediaFilter, resolution)

	writeJSON(w, http.StatusOK, report)
}
