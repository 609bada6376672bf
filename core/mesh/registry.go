package mesh

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediamesh/mediamesh/core/model"
)

// PeerRegistry is the only structure in the engine mutated concurrently by
// many callers. All access goes through its operation set; reads are
// linearizable with respect to registrations.
type PeerRegistry struct {
	mutex sync.RWMutex
	peers map[string]model.Peer
	ttl   time.Duration
}

func NewPeerRegistry(ttl time.Duration) *PeerRegistry {
	return &PeerRegistry{
		peers: map[string]model.Peer{},
		ttl:   ttl,
	}
}

// Register upserts a peer. The announced chunk set replaces the previous
// one; callers report their full current holdings each time. A blank peer
// id gets a server-assigned one. Returns the stored record and the chunk
// set it replaced.
func (r *PeerRegistry) Register(peerID, address string, chunks []string) (model.Peer, []string) {
	if peerID == "" {
		peerID = uuid.NewString()
	}
	if chunks == nil {
		chunks = []string{}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous := r.peers[peerID].Chunks

	peer := model.Peer{
		ID:       peerID,
		Address:  address,
		Chunks:   chunks,
		LastSeen: time.Now(),
	}
	r.peers[peerID] = peer

	return peer, previous
}

// Lookup returns a live peer's record. Stale entries are invisible even
// before the sweeper removes them.
func (r *PeerRegistry) Lookup(peerID string) (model.Peer, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	peer, exists := r.peers[peerID]
	if !exists || peer.IsStale(r.ttl, time.Now()) {
		return model.Peer{}, false
	}

	return peer, true
}

// Snapshot returns a copy of all live peer records.
func (r *PeerRegistry) Snapshot() []model.Peer {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	now := time.Now()
	peers := make([]model.Peer, 0, len(r.peers))
	for _, peer := range r.peers {
		if peer.IsStale(r.ttl, now) {
			continue
		}
		peers = append(peers, peer)
	}

	return peers
}

// Remove drops a peer, used when a disconnect is observed explicitly.
func (r *PeerRegistry) Remove(peerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.peers, peerID)
}

// StartSweeper evicts peers that stopped re-announcing. Runs until ctx is
// cancelled.
func (r *PeerRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := r.sweep(time.Now())
			if removed > 0 {
				log.Infow("sweep", "status", "evicted stale peers", "count", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *PeerRegistry) sweep(now time.Time) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	for id, peer := range r.peers {
		if peer.IsStale(r.ttl, now) {
			delete(r.peers, id)
			removed++
		}
	}

	return removed
}
