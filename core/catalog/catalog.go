// Package catalog is the content-metadata collaborator: media assets with
// per-quality source paths, persisted chunk descriptors and view counters.
// The delivery engine only ever touches it through this narrow surface.
package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	ds "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
	dslvl "github.com/ipfs/go-ds-leveldb"

	"github.com/mediamesh/mediamesh/core/model"
)

var (
	ErrAssetNotFound = errors.New("media asset not found")
	ErrSourceNotSet  = errors.New("no source path for quality tier")
	ErrChunkNotFound = errors.New("chunk descriptor not found")
)

type Store struct {
	assets *dslvl.Datastore
	chunks *dslvl.Datastore
	views  *dslvl.Datastore

	// serialises read-modify-write cycles on counters
	countMu sync.Mutex
}

func NewStore(path string) (*Store, error) {
	assets, err := dslvl.NewDatastore(fmt.Sprintf("%s/assets", path), nil)
	if err != nil {
		return nil, err
	}

	chunks, err := dslvl.NewDatastore(fmt.Sprintf("%s/chunks", path), nil)
	if err != nil {
		return nil, err
	}

	views, err := dslvl.NewDatastore(fmt.Sprintf("%s/views", path), nil)
	if err != nil {
		return nil, err
	}

	return &Store{
		assets: assets,
		chunks: chunks,
		views:  views,
	}, nil
}

func (s *Store) Close() error {
	err := s.assets.Close()
	if cerr := s.chunks.Close(); err == nil {
		err = cerr
	}
	if cerr := s.views.Close(); err == nil {
		err = cerr
	}

	return err
}

func (s *Store) PutAsset(ctx context.Context, asset model.MediaAsset) error {
	b, err := json.Marshal(asset)
	if err != nil {
		return err
	}

	return s.assets.Put(ctx, ds.NewKey(asset.ID), b)
}

func (s *Store) GetAsset(ctx context.Context, mediaID string) (*model.MediaAsset, error) {
	b, err := s.assets.Get(ctx, ds.NewKey(mediaID))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	var asset model.MediaAsset
	err = json.Unmarshal(b, &asset)
	if err != nil {
		return nil, err
	}

	return &asset, nil
}

func (s *Store) ListAssets(ctx context.Context) ([]*model.MediaAsset, error) {
	assets := make([]*model.MediaAsset, 0)

	res, err := s.assets.Query(ctx, dsq.Query{})
	if err != nil {
		return assets, err
	}

	for {
		r, hasNext := res.NextSync()
		if !hasNext {
			break
		}

		var asset model.MediaAsset
		err = json.Unmarshal(r.Value, &asset)
		if err != nil {
			return assets, err
		}
		assets = append(assets, &asset)
	}

	return assets, nil
}

// SourcePath resolves the stored file path for a media item at a quality
// tier. A missing asset and a missing tier path are distinct conditions.
func (s *Store) SourcePath(ctx context.Context, mediaID string, quality model.Quality) (string, error) {
	asset, err := s.GetAsset(ctx, mediaID)
	if err != nil {
		return "", err
	}

	path, ok := asset.SourcePath(quality)
	if !ok {
		return "", ErrSourceNotSet
	}

	return path, nil
}

// PutChunks replaces the full descriptor set for a media item.
func (s *Store) PutChunks(ctx context.Context, mediaID string, chunks []model.Chunk) error {
	b, err := json.Marshal(chunks)
	if err != nil {
		return err
	}

	return s.chunks.Put(ctx, ds.NewKey(mediaID), b)
}

// GetChunks returns the persisted descriptor set in index order. A media
// item with no descriptors yields an empty slice, not an error.
func (s *Store) GetChunks(ctx context.Context, mediaID string) ([]model.Chunk, error) {
	b, err := s.chunks.Get(ctx, ds.NewKey(mediaID))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return []model.Chunk{}, nil
		}
		return nil, err
	}

	var chunks []model.Chunk
	err = json.Unmarshal(b, &chunks)
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// BumpReplicaCount adjusts the replica counter on one chunk descriptor as
// peers announce or drop possession.
func (s *Store) BumpReplicaCount(ctx context.Context, mediaID string, index, delta int) error {
	s.countMu.Lock()
	defer s.countMu.Unlock()

	chunks, err := s.GetChunks(ctx, mediaID)
	if err != nil {
		return err
	}

	for i := range chunks {
		if chunks[i].Index != index {
			continue
		}

		chunks[i].ReplicaCount += delta
		if chunks[i].ReplicaCount < 0 {
			chunks[i].ReplicaCount = 0
		}

		return s.PutChunks(ctx, mediaID, chunks)
	}

	return fmt.Errorf("%w: media %s index %d", ErrChunkNotFound, mediaID, index)
}

// RegisterView bumps the monotonic view counter for a media item and
// returns the new total.
func (s *Store) RegisterView(ctx context.Context, mediaID string) (uint64, error) {
	s.countMu.Lock()
	defer s.countMu.Unlock()

	count, err := s.viewsLocked(ctx, mediaID)
	if err != nil {
		return 0, err
	}
	count++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	err = s.views.Put(ctx, ds.NewKey(mediaID), buf)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *Store) Views(ctx context.Context, mediaID string) (uint64, error) {
	s.countMu.Lock()
	defer s.countMu.Unlock()

	return s.viewsLocked(ctx, mediaID)
}

func (s *Store) viewsLocked(ctx context.Context, mediaID string) (uint64, error) {
	b, err := s.views.Get(ctx, ds.NewKey(mediaID))
	if err != nil {
		if errors.Is(err, ds.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if len(b) != 8 {
		return 0, fmt.Errorf("corrupt view counter for media %s", mediaID)
	}

	return binary.BigEndian.Uint64(b), nil
}
