// Package hls drives the external transcoding tool to produce
// adaptive-bitrate segment sets per quality tier. The tool is a bounded
// subprocess collaborator: arguments in, exit code and a capped log out.
// One tier's failure never aborts the remaining tiers.
package hls

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/model"
	concurrentMap "github.com/mediamesh/mediamesh/lib/concurrent_map"
	"github.com/mediamesh/mediamesh/lib/logger"
)

var log, _ = logger.New("hls")

var (
	ErrNoSources      = errors.New("no source paths resolvable for media")
	ErrAlreadyRunning = errors.New("packaging already running for media")
)

const (
	indexFilename = "index.m3u8"
	logTailLines  = 50
	maxLogLines   = 2000
)

type TierResult struct {
	Resolution string   `json:"resolution"`
	Input      string   `json:"input"`
	OutputDir  string   `json:"outputDir"`
	ExitCode   int      `json:"exitCode"`
	Status     string   `json:"status"`
	Playlists  int      `json:"m3u8,omitempty"`
	Segments   int      `json:"ts,omitempty"`
	LogTail    []string `json:"logTail,omitempty"`
}

type Report struct {
	MediaID string                `json:"mediaId"`
	Status  string                `json:"status"`
	Tiers   map[string]TierResult `json:"details"`
}

type Pipeline struct {
	cfg     *Config
	catalog *catalog.Store

	// guards against duplicate concurrent packaging of one media item
	running concurrentMap.Map[string, struct{}]
}

func NewPipeline(cfg *Config, cat *catalog.Store) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		catalog: cat,
		running: concurrentMap.NewMap[string, struct{}](),
	}
}

// OutputDir returns the packaging output root for a media item.
func (p *Pipeline) OutputDir(mediaID string) string {
	return filepath.Join(p.cfg.OutputDir, "media_"+mediaID)
}

// Generate produces one segmented output per quality tier that has a known
// source path. Tiers without a source are simply absent from the report.
// Only a pipeline-level fault (unknown media, no sources at all) returns
// an error.
func (p *Pipeline) Generate(ctx context.Context, mediaID string) (*Report, error) {
	if !p.running.SetIfAbsent(mediaID, struct{}{}) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, mediaID)
	}
	defer p.running.Delete(mediaID)

	asset, err := p.catalog.GetAsset(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		MediaID: mediaID,
		Tiers:   map[string]TierResult{},
	}

	baseOut := p.OutputDir(mediaID)
	processed := 0

	for _, quality := range model.Qualities() {
		input, ok := asset.SourcePath(quality)
		if !ok {
			continue
		}
		processed++

		res := quality.Resolution()
		result := p.processTier(ctx, res, input, filepath.Join(baseOut, res))
		report.Tiers[res] = result

		log.Infow("generate", "media", mediaID, "resolution", res,
			"status", result.Status, "exitCode", result.ExitCode)
	}

	if processed == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, mediaID)
	}

	report.Status = "generated"
	return report, nil
}

func (p *Pipeline) processTier(ctx context.Context, resolution, input, outDir string) TierResult {
	result := TierResult{
		Resolution: resolution,
		Input:      input,
		OutputDir:  outDir,
	}

	err := os.MkdirAll(outDir, 0750)
	if err != nil {
		result.Status = "failed"
		result.LogTail = []string{err.Error()}
		return result
	}

	indexPath := filepath.Join(outDir, indexFilename)

	cmd := exec.CommandContext(ctx, p.cfg.FFmpegPath,
		"-i", input,
		"-codec:", "copy",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(p.cfg.SegmentTime),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outDir, p.cfg.SegmentPattern),
		"-f", "hls",
		indexPath,
	)

	output, runErr := cmd.CombinedOutput()
	result.ExitCode = exitCode(runErr)

	indexExists := false
	if _, serr := os.Stat(indexPath); serr == nil {
		indexExists = true
	}

	if runErr != nil || result.ExitCode != 0 || !indexExists {
		result.Status = "failed"
		result.LogTail = tail(boundedLines(string(output)), logTailLines)
		return result
	}

	result.Status = "ok"
	result.Playlists, result.Segments = countOutputs(outDir)
	return result
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

func boundedLines(output string) []string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > maxLogLines {
		lines = lines[:maxLogLines]
	}

	return lines
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}

	return lines[len(lines)-n:]
}

func countOutputs(outDir string) (playlists, segments int) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return 0, 0
	}

	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".m3u8"):
			playlists++
		case strings.HasSuffix(e.Name(), ".ts"):
			segments++
		}
	}

	return playlists, segments
}
