package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/chunkstore"
	"github.com/mediamesh/mediamesh/core/model"
)

// Announcer is the peer side of the registration contract: it periodically
// re-announces this node's full chunk holdings to a coordinator so the node
// stays visible past the peer TTL.
type Announcer struct {
	coordinatorURL string
	peerID         string
	address        string
	interval       time.Duration

	chunks  *chunkstore.Store
	catalog *catalog.Store
	client  *http.Client
}

func NewAnnouncer(cfg *Config, chunks *chunkstore.Store, cat *catalog.Store) *Announcer {
	return &Announcer{
		coordinatorURL: cfg.Announce.CoordinatorURL,
		peerID:         cfg.Announce.PeerID,
		address:        cfg.Announce.AdvertiseAddr,
		interval:       cfg.Announce.Interval,
		chunks:         chunks,
		catalog:        cat,
		client:         &http.Client{Timeout: 10 * time.Second},
	}
}

// Start announces immediately, then on every tick, until ctx is cancelled.
func (a *Announcer) Start(ctx context.Context) {
	if a.coordinatorURL == "" {
		return
	}

	if err := a.Announce(ctx); err != nil {
		log.Warnw("announce", "status", "initial announcement failed", "error", err)
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Announce(ctx); err != nil {
				log.Warnw("announce", "status", "announcement failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Announce reports the node's current holdings once. The coordinator
// assigns a peer id on the first round trip; subsequent announcements
// reuse it so the registry sees one peer, not many.
func (a *Announcer) Announce(ctx context.Context) error {
	keys, err := a.localChunkKeys(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(registerRequest{
		PeerID:  a.peerID,
		Address: a.address,
		Chunks:  keys,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.coordinatorURL+"/mesh/register", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("coordinator rejected announcement: %s", res.Status)
	}

	var reply struct {
		PeerID string `json:"peerId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&reply); err != nil {
		return err
	}
	if reply.PeerID != "" {
		a.peerID = reply.PeerID
	}

	return nil
}

// localChunkKeys enumerates every chunk file this node holds, keyed the way
// the registry expects.
func (a *Announcer) localChunkKeys(ctx context.Context) ([]string, error) {
	assets, err := a.catalog.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	for _, asset := range assets {
		entries, available := a.chunks.ListChunks(asset.ID)
		if !available {
			continue
		}
		for _, e := range entries {
			keys = append(keys, model.ChunkKey(asset.ID, e.Index))
		}
	}

	return keys, nil
}
