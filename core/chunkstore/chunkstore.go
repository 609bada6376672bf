// Package chunkstore owns the on-disk chunk layout:
// {root}/{mediaID}/chunk_{index}.bin, fixed nominal chunk size, final chunk
// possibly shorter. Chunk files are immutable once written.
package chunkstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mediamesh/mediamesh/core/model"
	"github.com/mediamesh/mediamesh/lib/hashutil"
)

var (
	ErrChunkNotFound = errors.New("chunk not found")
	ErrBadChunkSize  = errors.New("chunk size must be positive")
)

type Store struct {
	root      string
	chunkSize int64
}

// Entry describes one chunk file found on disk.
type Entry struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Index    int    `json:"index"`
}

func NewStore(cfg *Config) *Store {
	return &Store{
		root:      cfg.Root,
		chunkSize: cfg.ChunkSize,
	}
}

func (s *Store) ChunkSize() int64 {
	return s.chunkSize
}

func (s *Store) Root() string {
	return s.root
}

func chunkFilename(index int) string {
	return fmt.Sprintf("chunk_%d.bin", index)
}

// ChunkPath builds the path for a chunk file. Pure, no existence check.
func (s *Store) ChunkPath(mediaID string, index int) string {
	return filepath.Join(s.root, mediaID, chunkFilename(index))
}

// parseIndex extracts the index from a chunk_{i}.bin filename. Filenames
// that do not follow the pattern sort as index 0 but are still listed.
func parseIndex(filename string) int {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(filename, "chunk_"), ".bin")
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// ListChunks enumerates the chunk files for a media item sorted by index.
// A missing media directory is not an error: it yields an empty listing
// with available=false.
func (s *Store) ListChunks(mediaID string) ([]Entry, bool) {
	dir := filepath.Join(s.root, mediaID)

	names, err := os.ReadDir(dir)
	if err != nil {
		return []Entry{}, false
	}

	entries := make([]Entry, 0, len(names))
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".bin") {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		entries = append(entries, Entry{
			Filename: de.Name(),
			Size:     info.Size(),
			Index:    parseIndex(de.Name()),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Index < entries[j].Index
	})

	return entries, true
}

// CreateChunks splits the source file into sequential fixed-size chunks,
// writes each under the media's directory and returns the ordered
// descriptors for the caller to persist. Re-running over the same source
// overwrites deterministically: identical input produces byte-identical
// chunks and identical hashes.
func (s *Store) CreateChunks(mediaID, sourcePath string, chunkSize int64) ([]model.Chunk, error) {
	if chunkSize <= 0 {
		chunkSize = s.chunkSize
	}
	if chunkSize <= 0 {
		return nil, ErrBadChunkSize
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("open source for media %s: %w", mediaID, err)
	}
	defer src.Close()

	dir := filepath.Join(s.root, mediaID)
	err = os.MkdirAll(dir, 0750)
	if err != nil {
		return nil, err
	}

	chunks := make([]model.Chunk, 0)
	buf := make([]byte, chunkSize)

	for index := 0; ; index++ {
		n, err := io.ReadFull(src, buf)
		if n == 0 {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("read chunk %d for media %s: %w", index, mediaID, err)
		}

		data := buf[:n]
		path := s.ChunkPath(mediaID, index)
		werr := os.WriteFile(path, data, 0644)
		if werr != nil {
			return nil, fmt.Errorf("write chunk %d for media %s: %w", index, mediaID, werr)
		}

		chunks = append(chunks, model.Chunk{
			MediaID: mediaID,
			Index:   index,
			Hash:    hashutil.HashBytes(data),
			Size:    int64(n),
		})

		// a short read means this was the final chunk
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read chunk %d for media %s: %w", index, mediaID, err)
		}
	}

	return chunks, nil
}

// ReadChunk returns the literal chunk file content.
func (s *Store) ReadChunk(mediaID string, index int) ([]byte, error) {
	data, err := os.ReadFile(s.ChunkPath(mediaID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: media %s index %d", ErrChunkNotFound, mediaID, index)
		}
		return nil, err
	}

	return data, nil
}

// OpenChunk opens a chunk file for streaming and reports its size.
func (s *Store) OpenChunk(mediaID string, index int) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.ChunkPath(mediaID, index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: media %s index %d", ErrChunkNotFound, mediaID, index)
		}
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, info.Size(), nil
}
