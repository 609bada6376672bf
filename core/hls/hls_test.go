package hls

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediamesh/mediamesh/core/catalog"
	"github.com/mediamesh/mediamesh/core/model"
)

// fakeTranscoder writes a script that mimics the transcoding tool: the
// index path is its final argument.
func fakeTranscoder(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}

	return path
}

const okScript = `for last; do :; done
dir=$(dirname "$last")
printf '#EXTM3U\n' > "$last"
printf 'x' > "$dir/seg_00000.ts"
printf 'x' > "$dir/seg_00001.ts"
exit 0
`

const failScript = `echo "codec not supported"
exit 1
`

func newTestPipeline(t *testing.T, tool string) (*Pipeline, *catalog.Store) {
	t.Helper()

	cat, err := catalog.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })

	cfg := &Config{
		FFmpegPath:     tool,
		OutputDir:      t.TempDir(),
		SegmentTime:    10,
		SegmentPattern: "seg_%05d.ts",
	}

	return NewPipeline(cfg, cat), cat
}

func putAsset(t *testing.T, cat *catalog.Store, asset model.MediaAsset) {
	t.Helper()

	// tier sources must exist on disk only for the real tool; the fake
	// ignores its input, a placeholder file keeps paths honest
	for q, p := range asset.FilePaths {
		if err := os.WriteFile(p, []byte("mp4"), 0644); err != nil {
			t.Fatal(err)
		}
		asset.FilePaths[q] = p
	}
	if err := cat.PutAsset(context.Background(), asset); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateHighOnly(t *testing.T) {
	p, cat := newTestPipeline(t, fakeTranscoder(t, okScript))

	putAsset(t, cat, model.MediaAsset{
		ID:    "m1",
		Title: "High only",
		FilePaths: map[model.Quality]string{
			model.QualityHigh: filepath.Join(t.TempDir(), "m1.mp4"),
		},
	})

	report, err := p.Generate(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if report.Status != "generated" {
		t.Errorf("status = %s, want generated", report.Status)
	}
	if len(report.Tiers) != 1 {
		t.Fatalf("got %d tiers, want only the high tier", len(report.Tiers))
	}

	tier, ok := report.Tiers["1080p"]
	if !ok {
		t.Fatal("1080p tier absent from report")
	}
	if tier.Status != "ok" || tier.ExitCode != 0 {
		t.Errorf("tier = %+v, want ok/0", tier)
	}
	if tier.Playlists != 1 || tier.Segments != 2 {
		t.Errorf("outputs = %d playlists / %d segments, want 1/2", tier.Playlists, tier.Segments)
	}
	if _, ok := report.Tiers["360p"]; ok {
		t.Error("missing tier must be absent, not an error entry")
	}
}

func TestGenerateTierFailureIsIsolated(t *testing.T) {
	p, cat := newTestPipeline(t, fakeTranscoder(t, failScript))

	putAsset(t, cat, model.MediaAsset{
		ID:    "m2",
		Title: "Both tiers",
		FilePaths: map[model.Quality]string{
			model.QualityHigh: filepath.Join(t.TempDir(), "hi.mp4"),
			model.QualityLow:  filepath.Join(t.TempDir(), "lo.mp4"),
		},
	})

	report, err := p.Generate(context.Background(), "m2")
	if err != nil {
		t.Fatalf("Generate must not raise for tier failures: %v", err)
	}

	if len(report.Tiers) != 2 {
		t.Fatalf("got %d tiers, want 2", len(report.Tiers))
	}
	for res, tier := range report.Tiers {
		if tier.Status != "failed" {
			t.Errorf("%s status = %s, want failed", res, tier.Status)
		}
		if tier.ExitCode != 1 {
			t.Errorf("%s exit code = %d, want 1", res, tier.ExitCode)
		}
		if len(tier.LogTail) == 0 {
			t.Errorf("%s log tail empty, want diagnostic output", res)
		}
	}
}

func TestGenerateMissingIndexIsFailure(t *testing.T) {
	// exit 0 but no index file produced
	p, cat := newTestPipeline(t, fakeTranscoder(t, "exit 0\n"))

	putAsset(t, cat, model.MediaAsset{
		ID:        "m3",
		FilePaths: map[model.Quality]string{model.QualityHigh: filepath.Join(t.TempDir(), "m3.mp4")},
	})

	report, err := p.Generate(context.Background(), "m3")
	if err != nil {
		t.Fatal(err)
	}
	if report.Tiers["1080p"].Status != "failed" {
		t.Error("zero exit without index file must be failed")
	}
}

func TestGenerateUnknownMedia(t *testing.T) {
	p, _ := newTestPipeline(t, "ffmpeg")

	if _, err := p.Generate(context.Background(), "ghost"); !errors.Is(err, catalog.ErrAssetNotFound) {
		t.Errorf("err = %v, want ErrAssetNotFound", err)
	}
}

func TestGenerateNoSources(t *testing.T) {
	p, cat := newTestPipeline(t, "ffmpeg")

	if err := cat.PutAsset(context.Background(), model.MediaAsset{ID: "m4"}); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Generate(context.Background(), "m4"); !errors.Is(err, ErrNoSources) {
		t.Errorf("err = %v, want ErrNoSources", err)
	}
}

func TestTail(t *testing.T) {
	lines := []string{"a", "b", "c"}

	if got := tail(lines, 2); len(got) != 2 || got[0] != "b" {
		t.Errorf("tail = %v, want [b c]", got)
	}
	if got := tail(lines, 5); len(got) != 3 {
		t.Errorf("tail beyond length = %v, want all lines", got)
	}
}
