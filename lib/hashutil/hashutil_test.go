package hashutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Digest of "abc", a fixed vector from the SHA-256 specification.
const abcDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func TestHashBytes(t *testing.T) {
	got := HashBytes([]byte("abc"))
	if got != abcDigest {
		t.Errorf("HashBytes(abc) = %s, want %s", got, abcDigest)
	}
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	data := bytes.Repeat([]byte("mediamesh"), 100_000)

	got, err := HashReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	if want := HashBytes(data); got != want {
		t.Errorf("HashReader = %s, want %s", got, want)
	}
}

func TestHashReaderEmpty(t *testing.T) {
	got, err := HashReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}

	// sha256 of the empty string
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("HashReader(empty) = %s, want %s", got, want)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != abcDigest {
		t.Errorf("HashFile = %s, want %s", got, abcDigest)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Error("expected error for missing file")
	}
}
