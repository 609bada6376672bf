package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRange(t *testing.T) {
	const size = 100

	cases := []struct {
		name   string
		header string
		want   byteRange
		ok     bool
	}{
		{"closed", "bytes=0-9", byteRange{0, 9}, true},
		{"interior", "bytes=10-19", byteRange{10, 19}, true},
		{"open end", "bytes=40-", byteRange{40, 99}, true},
		{"end clamped", "bytes=90-500", byteRange{90, 99}, true},
		{"single byte", "bytes=99-99", byteRange{99, 99}, true},
		{"empty", "", byteRange{}, false},
		{"inverted", "bytes=50-10", byteRange{}, false},
		{"start past eof", "bytes=100-", byteRange{}, false},
		{"no unit", "0-9", byteRange{}, false},
		{"garbage", "bytes=abc-def", byteRange{}, false},
		{"negative", "bytes=-5-9", byteRange{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := parseRange(tc.header, size)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Errorf("range = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func tempMediaFile(t *testing.T, content []byte) *os.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "media.mp4")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	return f
}

func TestServeFileRangePartial(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	f := tempMediaFile(t, content)

	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	req.Header.Set("Range", "bytes=5-9")
	rec := httptest.NewRecorder()

	if err := serveFileRange(rec, req, f, "video/mp4"); err != nil {
		t.Fatalf("serveFileRange: %v", err)
	}

	res := rec.Result()
	if res.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", res.StatusCode)
	}
	if got := res.Header.Get("Content-Range"); got != "bytes 5-9/20" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := res.Header.Get("Content-Length"); got != "5" {
		t.Errorf("Content-Length = %q", got)
	}

	body, _ := io.ReadAll(res.Body)
	if string(body) != "56789" {
		t.Errorf("body = %q, want 56789", body)
	}
}

func TestServeFileRangeFullOnInvalid(t *testing.T) {
	content := []byte("0123456789")
	headers := []string{"", "bytes=9-2", "items=0-4", "bytes=x-y"}

	for _, h := range headers {
		f := tempMediaFile(t, content)

		req := httptest.NewRequest(http.MethodGet, "/media", nil)
		if h != "" {
			req.Header.Set("Range", h)
		}
		rec := httptest.NewRecorder()

		if err := serveFileRange(rec, req, f, "video/mp4"); err != nil {
			t.Fatalf("header %q: %v", h, err)
		}

		res := rec.Result()
		if res.StatusCode != http.StatusOK {
			t.Errorf("header %q: status = %d, want 200", h, res.StatusCode)
		}

		body, _ := io.ReadAll(res.Body)
		if string(body) != string(content) {
			t.Errorf("header %q: body = %q, want full content", h, body)
		}
	}
}

func TestIsClientDisconnect(t *testing.T) {
	if !isClientDisconnect(io.ErrClosedPipe) {
		t.Error("ErrClosedPipe should count as a disconnect")
	}
	if isClientDisconnect(io.ErrUnexpectedEOF) {
		t.Error("unexpected EOF is not a disconnect")
	}
}
