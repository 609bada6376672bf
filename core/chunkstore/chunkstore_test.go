package chunkstore

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediamesh/mediamesh/lib/hashutil"
)

func newTestStore(t *testing.T, chunkSize int64) *Store {
	t.Helper()
	return NewStore(&Config{Root: t.TempDir(), ChunkSize: chunkSize})
}

func writeSource(t *testing.T, size int) (string, []byte) {
	t.Helper()

	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "source.mp4")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	return path, data
}

func TestCreateChunksSplitsAndConcatenates(t *testing.T) {
	s := newTestStore(t, 0)
	src, data := writeSource(t, 25<<10) // 25 KiB source, 10 KiB chunks

	chunks, err := s.CreateChunks("m1", src, 10<<10)
	if err != nil {
		t.Fatalf("CreateChunks: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].Size != 10<<10 || chunks[1].Size != 10<<10 || chunks[2].Size != 5<<10 {
		t.Errorf("chunk sizes = %d/%d/%d, want 10240/10240/5120",
			chunks[0].Size, chunks[1].Size, chunks[2].Size)
	}

	var joined bytes.Buffer
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}

		b, err := s.ReadChunk("m1", i)
		if err != nil {
			t.Fatalf("ReadChunk(%d): %v", i, err)
		}
		if got := hashutil.HashBytes(b); got != c.Hash {
			t.Errorf("chunk %d hash mismatch: %s vs descriptor %s", i, got, c.Hash)
		}
		joined.Write(b)
	}

	if !bytes.Equal(joined.Bytes(), data) {
		t.Error("concatenated chunks do not reproduce the source bytes")
	}
}

func TestCreateChunksDeterministic(t *testing.T) {
	s := newTestStore(t, 0)
	src, _ := writeSource(t, 17<<10)

	first, err := s.CreateChunks("m2", src, 4<<10)
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.CreateChunks("m2", src, 4<<10)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Hash != second[i].Hash {
			t.Errorf("chunk %d hash changed across re-chunking", i)
		}
	}
}

func TestCreateChunksExactMultiple(t *testing.T) {
	s := newTestStore(t, 0)
	src, _ := writeSource(t, 8<<10)

	chunks, err := s.CreateChunks("m3", src, 4<<10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Errorf("got %d chunks, want 2 for an exact multiple", len(chunks))
	}
}

func TestListChunksMissingDir(t *testing.T) {
	s := newTestStore(t, 1024)

	entries, available := s.ListChunks("ghost")
	if available {
		t.Error("available = true for missing media directory")
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestListChunksSortsByIndex(t *testing.T) {
	s := newTestStore(t, 1024)
	src, _ := writeSource(t, 30<<10)

	// 12 chunks so lexical filename order (chunk_10 < chunk_2) would be wrong
	if _, err := s.CreateChunks("m4", src, 2560); err != nil {
		t.Fatal(err)
	}

	entries, available := s.ListChunks("m4")
	if !available {
		t.Fatal("available = false after chunking")
	}
	for i, e := range entries {
		if e.Index != i {
			t.Errorf("entry %d has index %d (filename %s)", i, e.Index, e.Filename)
		}
	}
}

func TestListChunksToleratesForeignFilenames(t *testing.T) {
	s := newTestStore(t, 1024)
	src, _ := writeSource(t, 2048)

	if _, err := s.CreateChunks("m5", src, 1024); err != nil {
		t.Fatal(err)
	}

	// a file that matches *.bin but not the chunk pattern must still be
	// listed, keyed as index 0
	odd := filepath.Join(filepath.Dir(s.ChunkPath("m5", 0)), "stray.bin")
	if err := os.WriteFile(odd, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	entries, _ := s.ListChunks("m5")
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	found := false
	for _, e := range entries {
		if e.Filename == "stray.bin" {
			found = true
			if e.Index != 0 {
				t.Errorf("stray entry index = %d, want 0", e.Index)
			}
		}
	}
	if !found {
		t.Error("stray.bin missing from listing")
	}
}

func TestReadChunkNotFound(t *testing.T) {
	s := newTestStore(t, 1024)

	if _, err := s.ReadChunk("m6", 0); !errors.Is(err, ErrChunkNotFound) {
		t.Errorf("ReadChunk = %v, want ErrChunkNotFound", err)
	}
	if _, _, err := s.OpenChunk("m6", 0); !errors.Is(err, ErrChunkNotFound) {
		t.Errorf("OpenChunk = %v, want ErrChunkNotFound", err)
	}
}
