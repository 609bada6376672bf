package mesh

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestChunkRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	in := ChunkRequest{MediaID: "media-42", Index: 7}
	if err := writeChunkRequest(&buf, in); err != nil {
		t.Fatalf("writeChunkRequest: %v", err)
	}

	out, err := readChunkRequest(&buf)
	if err != nil {
		t.Fatalf("readChunkRequest: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestReadChunkRequestCleanEOF(t *testing.T) {
	_, err := readChunkRequest(bytes.NewReader(nil))
	if err != io.EOF {
		t.Errorf("empty stream: err = %v, want io.EOF", err)
	}
}

func TestReadChunkRequestBadMagic(t *testing.T) {
	_, err := readChunkRequest(bytes.NewReader([]byte{0xde, 0xad, 0x00, 0x04}))
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("bad magic: err = %v, want ErrBadFrame", err)
	}
}

func TestReadChunkRequestTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := writeChunkRequest(&buf, ChunkRequest{MediaID: "m1", Index: 0}); err != nil {
		t.Fatal(err)
	}

	truncated := buf.Bytes()[:buf.Len()-2]
	_, err := readChunkRequest(bytes.NewReader(truncated))
	if !errors.Is(err, ErrBadFrame) {
		t.Errorf("truncated frame: err = %v, want ErrBadFrame", err)
	}
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := writeResponseHeader(&buf, StatusNotFound, 0); err != nil {
		t.Fatal(err)
	}

	status, length, err := readResponseHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusNotFound || length != 0 {
		t.Errorf("got status=%d length=%d, want StatusNotFound/0", status, length)
	}
}
