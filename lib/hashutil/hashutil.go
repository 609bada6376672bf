package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// readBufferSize bounds memory used while digesting arbitrarily large inputs.
const readBufferSize = 32 * 1024

// HashReader consumes r incrementally and returns the lowercase hex SHA-256
// digest of everything read.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, readBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile digests the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return HashReader(f)
}

// HashBytes digests an in-memory buffer.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
