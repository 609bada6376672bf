// Package gateway is the client-facing delivery surface: range-addressable
// whole-media streaming, single-chunk retrieval, chunk listings and the
// administrative operations that feed the distribution engine.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/chunkstore"
	"github.com/mediamesh/mediamesh/core/hls"
	"github.com/mediamesh/mediamesh/core/identity"
	"github.com/mediamesh/mediamesh/core/objectsync"
	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("gateway")

type Gateway struct {
	cfg      *Config
	catalog  *catalog.Store
	chunks   *chunkstore.Store
	pipeline *hls.Pipeline
	syncer   *objectsync.Syncer
	verifier *identity.Verifier
}

func New(cfg *Config, cat *catalog.Store, chunks *chunkstore.Store,
	pipeline *hls.Pipeline, syncer *objectsync.Syncer, verifier *identity.Verifier) *Gateway {

	return &Gateway{
		cfg:      cfg,
		catalog:  cat,
		chunks:   chunks,
		pipeline: pipeline,
		syncer:   syncer,
		verifier: verifier,
	}
}

func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(g.verifier.Middleware)

	r.Get("/api/health", g.handleHealth)
	r.Get("/api/media", g.handleListMedia)

	r.Route("/api/stream", func(r chi.Router) {
		r.Get("/media/{mediaID}", g.handleStreamMedia)
		r.Get("/manifest/{mediaID}", g.handleManifest)
		r.Get("/formats/{mediaID}", g.handleFormats)
	})

	r.Route("/api/mesh", func(r chi.Router) {
		r.Get("/chunk/{mediaID}/{index}", g.handleServeChunk)
		r.Get("/chunks/{mediaID}", g.handleChunksInfo)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(identity.RequireAdmin)
		r.Post("/media", g.handleAddMedia)
		r.Post("/chunk/{mediaID}", g.handleChunkMedia)
		r.Post("/package/{mediaID}", g.handlePackageMedia)
		r.Post("/backfill", g.handleBackfill)
	})

	return r
}

func (g *Gateway) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", g.cfg.Host, g.cfg.Port),
		Handler:     g.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infow("startup", "status", "delivery surface started", "address", srv.Addr)

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "mediamesh",
		"timestamp": time.Now().UnixMilli(),
	})
}

// viewerID extracts attribution for a view event; anonymous views count too.
func viewerID(r *http.Request) string {
	p, ok := identity.FromContext(r.Context())
	if !ok {
		return "anonymous"
	}

	return p.UserID
}

func newMediaID() string {
	return uuid.NewString()
}
