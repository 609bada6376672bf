package model

import "fmt"

type Chunk struct {
	MediaID      string `json:"mediaId"`
	Index        int    `json:"index"`
	Hash         string `json:"hash"`
	Size         int64  `json:"size"`
	ReplicaCount int    `json:"replicaCount"`
}

// ChunkKey is the identifier peers use when announcing chunk possession.
func ChunkKey(mediaID string, index int) string {
	return fmt.Sprintf("%s/%d", mediaID, index)
}
