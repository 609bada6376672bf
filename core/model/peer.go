package model

import "time"

type Peer struct {
	ID       string    `json:"peerId"`
	Address  string    `json:"address"`
	Chunks   []string  `json:"chunks"`
	LastSeen time.Time `json:"lastSeen"`
}

func (p *Peer) IsStale(ttl time.Duration, now time.Time) bool {
	return now.Sub(p.LastSeen) > ttl
}
