package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// streamBufferSize bounds each write increment while producing a range.
const streamBufferSize = 64 * 1024

type byteRange struct {
	start int64
	end   int64 // inclusive
}

func (r byteRange) length() int64 {
	return r.end - r.start + 1
}

// parseRange interprets a Range header against the file size. Anything
// malformed or semantically invalid (start past end after clamping,
// unparsable numbers, unsupported forms) reports ok=false, which degrades
// to a full-file 200 response rather than failing the request.
func parseRange(header string, fileSize int64) (byteRange, bool) {
	if header == "" || fileSize <= 0 {
		return byteRange{}, false
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return byteRange{}, false
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return byteRange{}, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(startStr), 10, 64)
	if err != nil || start < 0 {
		return byteRange{}, false
	}

	end := fileSize - 1
	if trimmed := strings.TrimSpace(endStr); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return byteRange{}, false
		}
	}

	if end > fileSize-1 {
		end = fileSize - 1
	}
	if start > end {
		return byteRange{}, false
	}

	return byteRange{start: start, end: end}, true
}

// serveFileRange implements partial-content semantics over an open file.
// A remote disconnect mid-stream is normal termination, never surfaced.
func serveFileRange(w http.ResponseWriter, r *http.Request, f *os.File, contentType string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	fileSize := info.Size()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	rng, ok := parseRange(r.Header.Get("Range"), fileSize)
	if !ok {
		w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
		w.WriteHeader(http.StatusOK)
		return copyRange(w, f, 0, fileSize)
	}

	w.Header().Set("Content-Range",
		fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, fileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(rng.length(), 10))
	w.WriteHeader(http.StatusPartialContent)

	return copyRange(w, f, rng.start, rng.length())
}

// copyRange emits exactly length bytes starting at offset in bounded
// increments.
func copyRange(dst io.Writer, f *os.File, offset, length int64) error {
	_, err := f.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}

	buf := make([]byte, streamBufferSize)
	_, err = io.CopyBuffer(dst, io.LimitReader(f, length), buf)
	if err != nil && isClientDisconnect(err) {
		return nil
	}

	return err
}

// isClientDisconnect recognises the transport-layer signals of a remote
// peer going away mid-stream.
func isClientDisconnect(err error) bool {
	if errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, http.ErrAbortHandler) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "client disconnected")
}
