package mesh

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediamesh/mediamesh/core/chunkstore"
)

func startTestDataServer(t *testing.T) (*chunkstore.Store, string) {
	t.Helper()

	chunks := chunkstore.NewStore(&chunkstore.Config{Root: t.TempDir(), ChunkSize: 1024})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := &DataServer{chunks: chunks}
	go srv.serve(ctx, l)

	return chunks, l.Addr().String()
}

func chunkMedia(t *testing.T, chunks *chunkstore.Store, mediaID string, data []byte, chunkSize int64) {
	t.Helper()

	src := filepath.Join(t.TempDir(), "src.bin")
	if err := os.WriteFile(src, data, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := chunks.CreateChunks(mediaID, src, chunkSize); err != nil {
		t.Fatal(err)
	}
}

func TestFetchChunkSequentialRequests(t *testing.T) {
	chunks, addr := startTestDataServer(t)

	data := bytes.Repeat([]byte{0xab, 0xcd}, 1500) // 3000 bytes, 3 chunks of 1024
	chunkMedia(t, chunks, "m1", data, 1024)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// multiple requests over one persistent connection
	var joined []byte
	for i := 0; i < 3; i++ {
		b, err := fetchChunk(conn, "m1", i)
		if err != nil {
			t.Fatalf("fetchChunk(%d): %v", i, err)
		}
		joined = append(joined, b...)
	}

	if !bytes.Equal(joined, data) {
		t.Error("fetched chunks do not reproduce the source bytes")
	}
}

func TestFetchChunkNotFound(t *testing.T) {
	chunks, addr := startTestDataServer(t)
	chunkMedia(t, chunks, "m1", []byte("hello"), 1024)

	if _, err := FetchChunk(addr, "m1", 99); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("out-of-range index: err = %v, want ErrRemoteNotFound", err)
	}
	if _, err := FetchChunk(addr, "no-such-media", 0); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("unknown media: err = %v, want ErrRemoteNotFound", err)
	}
}

func TestMalformedRequestDoesNotKillOtherConnections(t *testing.T) {
	chunks, addr := startTestDataServer(t)
	chunkMedia(t, chunks, "m1", []byte("payload"), 1024)

	bad, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Close()

	if _, err := bad.Write([]byte{0xff, 0xff, 0xff, 0xff}); err != nil {
		t.Fatal(err)
	}

	status, _, err := readResponseHeader(bad)
	if err != nil {
		t.Fatalf("expected explicit rejection, got %v", err)
	}
	if status != StatusBadRequest {
		t.Errorf("status = %d, want StatusBadRequest", status)
	}

	// a healthy connection must be unaffected
	got, err := FetchChunk(addr, "m1", 0)
	if err != nil {
		t.Fatalf("FetchChunk after malformed peer: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("chunk bytes = %q, want %q", got, "payload")
	}
}
