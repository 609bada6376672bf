package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/chunkstore"
	"github.com/mediamesh/mediamesh/core/identity"
)

// ControlServer is the HTTP side of the mesh: peer discovery, registration
// and chunk-availability queries.
type ControlServer struct {
	registry *PeerRegistry
	chunks   *chunkstore.Store
	catalog  *catalog.Store
	verifier *identity.Verifier
	addr     string

	requireAuth bool
}

func NewControlServer(cfg *Config, registry *PeerRegistry, chunks *chunkstore.Store,
	cat *catalog.Store, verifier *identity.Verifier) *ControlServer {

	return &ControlServer{
		registry:    registry,
		chunks:      chunks,
		catalog:     cat,
		verifier:    verifier,
		addr:        fmt.Sprintf("%s:%d", cfg.Control.Host, cfg.Control.Port),
		requireAuth: cfg.RequireAuth && verifier != nil,
	}
}

func (c *ControlServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if c.requireAuth {
		r.Use(c.verifier.Middleware)
	}

	r.Get("/mesh/chunk-info", c.handleChunkInfo)
	r.Get("/mesh/peers", c.handlePeers)
	r.Get("/mesh/peers/{peerID}", c.handlePeerLookup)

	r.Group(func(r chi.Router) {
		if c.requireAuth {
			r.Use(identity.RequireAuthenticated)
		}
		r.Post("/mesh/register", c.handleRegister)
	})

	return r
}

func (c *ControlServer) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         c.addr,
		Handler:      c.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infow("startup", "status", "mesh control endpoint started", "address", c.addr)

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

type chunkInfoResponse struct {
	MediaID   string   `json:"mediaId"`
	Chunks    []string `json:"chunks"`
	Count     int      `json:"count"`
	ChunkSize int64    `json:"chunkSize"`
	Available bool     `json:"available"`
}

func (c *ControlServer) handleChunkInfo(w http.ResponseWriter, r *http.Request) {
	mediaID := r.URL.Query().Get("media")
	if mediaID == "" {
		writeError(w, http.StatusBadRequest, "missing media parameter")
		return
	}

	entries, available := c.chunks.ListChunks(mediaID)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Filename)
	}

	writeJSON(w, http.StatusOK, chunkInfoResponse{
		MediaID:   mediaID,
		Chunks:    names,
		Count:     len(names),
		ChunkSize: c.chunks.ChunkSize(),
		Available: available,
	})
}

func (c *ControlServer) handlePeers(w http.ResponseWriter, r *http.Request) {
	peers := c.registry.Snapshot()

	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"peers": ids,
		"count": len(ids),
	})
}

// handlePeerLookup resolves a peer id to its data endpoint address and
// announced holdings, so peers can dial each other for chunk transfer.
// Stale peers are indistinguishable from unknown ones.
func (c *ControlServer) handlePeerLookup(w http.ResponseWriter, r *http.Request) {
	peerID := chi.URLParam(r, "peerID")

	peer, exists := c.registry.Lookup(peerID)
	if !exists {
		writeError(w, http.StatusNotFound, "peer not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"peerId":  peer.ID,
		"address": peer.Address,
		"chunks":  peer.Chunks,
	})
}

type registerRequest struct {
	PeerID  string   `json:"peerId"`
	Address string   `json:"address"`
	Chunks  []string `json:"chunks"`
}

func (c *ControlServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid registration body")
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	peer, previous := c.registry.Register(req.PeerID, req.Address, req.Chunks)
	log.Infow("control", "event", "peer registered", "peerId", peer.ID,
		"address", peer.Address, "chunks", len(peer.Chunks))

	c.applyReplicaChanges(r.Context(), peer.Chunks, previous)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "registered",
		"peerId": peer.ID,
	})
}

// applyReplicaChanges adjusts catalog replica counters for the difference
// between a peer's new and previous announcements. Counter failures are
// logged, never surfaced to the registering peer.
func (c *ControlServer) applyReplicaChanges(ctx context.Context, current, previous []string) {
	if c.catalog == nil {
		return
	}

	prev := make(map[string]bool, len(previous))
	for _, key := range previous {
		prev[key] = true
	}

	for _, key := range current {
		if prev[key] {
			delete(prev, key)
			continue
		}
		c.bumpReplica(ctx, key, 1)
	}
	for key := range prev {
		c.bumpReplica(ctx, key, -1)
	}
}

func (c *ControlServer) bumpReplica(ctx context.Context, key string, delta int) {
	mediaID, index, err := parseChunkKey(key)
	if err != nil {
		log.Warnw("control", "status", "ignoring malformed chunk key", "key", key)
		return
	}

	err = c.catalog.BumpReplicaCount(ctx, mediaID, index, delta)
	if err != nil {
		log.Warnw("control", "status", "replica count update failed",
			"media", mediaID, "index", index, "error", err)
	}
}

func parseChunkKey(key string) (string, int, error) {
	pos := strings.LastIndexByte(key, '/')
	if pos <= 0 || pos == len(key)-1 {
		return "", 0, fmt.Errorf("bad chunk key %q", key)
	}

	index, err := strconv.Atoi(key[pos+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("bad chunk index in key %q", key)
	}

	return key[:pos], index, nil
}
