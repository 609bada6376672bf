package gateway

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/model"
)

// handleStreamMedia serves a whole media file with HTTP partial-content
// semantics. A missing catalog row and a missing file on disk are distinct
// not-found conditions.
func (g *Gateway) handleStreamMedia(w http.ResponseWriter, r *http.Request) {
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

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "media file missing")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	// exactly one view event per request, however much gets consumed
	g.registerView(r, mediaID)

	err = serveFileRange(w, r, f, "video/mp4")
	if err != nil {
		log.Errorw("stream", "status", "stream failed", "media", mediaID, "error", err)
	}
}

func (g *Gateway) registerView(r *http.Request, mediaID string) {
	count, err := g.catalog.RegisterView(r.Context(), mediaID)
	if err != nil {
		// losing an increment is acceptable; the stream proceeds
		log.Warnw("stream", "status", "view registration failed",
			"media", mediaID, "error", err)
		return
	}

	log.Infow("stream", "event", "view", "media", mediaID,
		"user", viewerID(r), "views", count)
}

type mediaSummary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Formats []string `json:"formats"`
}

func (g *Gateway) handleListMedia(w http.ResponseWriter, r *http.Request) {
	assets, err := g.catalog.ListAssets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]mediaSummary, 0, len(assets))
	for _, a := range assets {
		formats := make([]string, 0, 2)
		for _, q := range []model.Quality{model.QualityLow, model.QualityHigh} {
			if _, ok := a.SourcePath(q); ok {
				formats = append(formats, string(q))
			}
		}
		summaries = append(summaries, mediaSummary{
			ID:      a.ID,
			Title:   a.Title,
			Formats: formats,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"media": summaries,
		"count": len(summaries),
	})
}

type variant struct {
	Quality string `json:"quality"`
	Type    string `json:"type"`
	URL     string `json:"url"`
}

func (g *Gateway) handleManifest(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	asset, err := g.catalog.GetAsset(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, catalog.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	variants := make([]variant, 0, 2)
	for _, q := range []model.Quality{model.QualityLow, model.QualityHigh} {
		if _, ok := asset.SourcePath(q); !ok {
			continue
		}
		variants = append(variants, variant{
			Quality: string(q),
			Type:    "hls",
			URL:     g.playbackURL(mediaID, q),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId":  mediaID,
		"title":    asset.Title,
		"variants": variants,
	})
}

func (g *Gateway) handleFormats(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	asset, err := g.catalog.GetAsset(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, catalog.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	formats := make([]string, 0, 2)
	for _, q := range []model.Quality{model.QualityLow, model.QualityHigh} {
		if _, ok := asset.SourcePath(q); ok {
			formats = append(formats, string(q))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mediaId": mediaID,
		"formats": formats,
		"type":    "hls",
	})
}

// playbackURL must match the object layout ObjectSync produces for
// packaged output.
func (g *Gateway) playbackURL(mediaID string, quality model.Quality) string {
	path := "/hls/media/media_" + mediaID + "/" + quality.Resolution() + "/hls/index.m3u8"
	if g.cfg.StreamBaseURL == "" {
		return path
	}

	return g.cfg.StreamBaseURL + path
}
