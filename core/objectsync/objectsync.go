// Package objectsync mirrors locally produced files to the durable object
// store. Uploads are idempotent (existence-checked first) and individually
// retried; one file's permanent failure never stops the batch.
package objectsync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("objectsync")

const (
	uploadAttempts  = 3
	initialInterval = 300 * time.Millisecond
)

const (
	ActionUploaded = "uploaded"
	ActionSkipped  = "skipped"
	ActionFailed   = "failed"
)

type UploadRecord struct {
	File       string `json:"file"`
	Resolution string `json:"resolution,omitempty"`
	Object     string `json:"object"`
	Action     string `json:"action"`
	Error      string `json:"error,omitempty"`
}

type BatchReport struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Uploaded int            `json:"uploaded"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Details  []UploadRecord `json:"details"`
}

// LocalFile is one candidate for mirroring.
type LocalFile struct {
	Path       string
	Name       string
	Resolution string
}

type Syncer struct {
	cfg   *Config
	store ObjectStore
}

func NewSyncer(cfg *Config, store ObjectStore) *Syncer {
	return &Syncer{
		cfg:   cfg,
		store: store,
	}
}

func (s *Syncer) Enabled() bool {
	return s.cfg.Enabled
}

func disabledReport() BatchReport {
	return BatchReport{
		Status:  "disabled",
		Message: "object upload is disabled (OBJECT_UPLOAD_ENABLED=false)",
		Details: []UploadRecord{},
	}
}

// UploadBatch mirrors the given files, naming each object via namer. An
// existence-check failure counts as "absent" so an upload is attempted.
func (s *Syncer) UploadBatch(ctx context.Context, files []LocalFile, namer func(LocalFile) string) BatchReport {
	report := BatchReport{
		Status:  "ok",
		Details: make([]UploadRecord, 0, len(files)),
	}

	for _, f := range files {
		objectName := namer(f)
		record := UploadRecord{
			File:       f.Name,
			Resolution: f.Resolution,
			Object:     objectName,
		}

		exists, err := s.store.Exists(ctx, objectName)
		if err != nil {
			log.Warnw("upload", "status", "existence check failed, forcing upload",
				"object", objectName, "error", err)
			exists = false
		}

		if exists {
			report.Skipped++
			record.Action = ActionSkipped
			report.Details = append(report.Details, record)
			continue
		}

		err = s.uploadWithRetry(ctx, objectName, f.Path, contentTypeFor(f.Name))
		if err != nil {
			report.Failed++
			record.Action = ActionFailed
			record.Error = err.Error()
			log.Errorw("upload", "status", "failed after retries",
				"object", objectName, "error", err)
		} else {
			report.Uploaded++
			record.Action = ActionUploaded
		}

		report.Details = append(report.Details, record)
	}

	return report
}

func (s *Syncer) uploadWithRetry(ctx context.Context, objectName, localPath, contentType string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval

	attempt := backoff.WithContext(
		backoff.WithMaxRetries(policy, uploadAttempts-1), ctx)

	return backoff.Retry(func() error {
		return s.store.Upload(ctx, objectName, localPath, contentType)
	}, attempt)
}

// UploadPackaged mirrors a packaging run's output tree
// ({baseOut}/{resolution}/...) to
// media/media_{mediaID}/{resolution}/hls/{fileName}.
func (s *Syncer) UploadPackaged(ctx context.Context, mediaID, baseOut string) BatchReport {
	if !s.cfg.Enabled {
		return disabledReport()
	}

	files := make([]LocalFile, 0)
	for _, res := range []string{"1080p", "360p"} {
		dir := filepath.Join(baseOut, res)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			files = append(files, LocalFile{
				Path:       filepath.Join(dir, e.Name()),
				Name:       e.Name(),
				Resolution: res,
			})
		}
	}

	return s.UploadBatch(ctx, files, func(f LocalFile) string {
		return "media/media_" + mediaID + "/" + f.Resolution + "/hls/" + f.Name
	})
}

// Backfill reconciles the chunk tree with the object store: any locally
// present chunk file missing remotely is uploaded. mediaFilter narrows the
// pass to one media item when non-empty.
func (s *Syncer) Backfill(ctx context.Context, chunksRoot, mediaFilter, resolution string) BatchReport {
	if !s.cfg.Enabled {
		return disabledReport()
	}

	mediaDirs, err := os.ReadDir(chunksRoot)
	if err != nil {
		return BatchReport{
			Status:  "ok",
			Message: "chunks directory does not exist",
			Details: []UploadRecord{},
		}
	}

	files := make([]LocalFile, 0)
	for _, md := range mediaDirs {
		if !md.IsDir() {
			continue
		}

		mediaID := md.Name()
		if mediaFilter != "" && mediaFilter != mediaID {
			continue
		}

		chunkFiles, err := os.ReadDir(filepath.Join(chunksRoot, mediaID))
		if err != nil {
			continue
		}

		for _, cf := range chunkFiles {
			if !cf.Type().IsRegular() || !strings.HasSuffix(cf.Name(), ".bin") {
				continue
			}
			files = append(files, LocalFile{
				Path:       filepath.Join(chunksRoot, mediaID, cf.Name()),
				Name:       mediaID + "/" + cf.Name(),
				Resolution: resolution,
			})
		}
	}

	return s.UploadBatch(ctx, files, func(f LocalFile) string {
		mediaID, fileName, _ := strings.Cut(f.Name, "/")
		return renderObjectName(s.cfg.ChunkPathTemplate, mediaID, fileName, f.Resolution)
	})
}

func renderObjectName(template, mediaID, fileName, resolution string) string {
	if resolution == "" {
		resolution = "unknown"
	}

	name := strings.ReplaceAll(template, "{mediaId}", mediaID)
	name = strings.ReplaceAll(name, "{resolution}", resolution)
	name = strings.ReplaceAll(name, "{fileName}", fileName)

	return name
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(name, ".ts"):
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
