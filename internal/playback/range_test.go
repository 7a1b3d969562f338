package playback

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
		wantOK    bool
		wantErr   error
	}{
		{"empty header", "", 1000, 0, 0, false, nil},
		{"full range", "bytes=0-999", 1000, 0, 999, true, nil},
		{"open end", "bytes=500-", 1000, 500, 999, true, nil},
		{"suffix range", "bytes=-500", 1000, 500, 999, true, nil},
		{"single byte", "bytes=0-0", 1000, 0, 0, true, nil},
		{"clamped end", "bytes=0-2000", 1000, 0, 999, true, nil},
		{"suffix larger than file", "bytes=-2000", 500, 0, 499, true, nil},
		{"multi range takes first", "bytes=0-99, 200-299", 1000, 0, 99, true, nil},

		{"start at size", "bytes=1000-", 1000, 0, 0, false, ErrUnsatisfiable},
		{"start after end", "bytes=50-10", 1000, 0, 0, false, ErrUnsatisfiable},
		{"wrong unit", "chars=0-100", 1000, 0, 0, false, ErrInvalidRange},
		{"no dash", "bytes=100", 1000, 0, 0, false, ErrInvalidRange},
		{"invalid start", "bytes=abc-100", 1000, 0, 0, false, ErrInvalidRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, false, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseRange(tt.header, tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseRange() error = %v, want %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseRange() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (got.Start != tt.wantStart || got.End != tt.wantEnd) {
				t.Errorf("ParseRange() = {%d, %d}, want {%d, %d}", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestByteRange_Header(t *testing.T) {
	r := ByteRange{Start: 500, End: 999}
	if r.Length() != 500 {
		t.Errorf("Length() = %d, want 500", r.Length())
	}
	if got := r.Header(1000); got != "bytes 500-999/1000" {
		t.Errorf("Header() = %s", got)
	}
}

func newClipServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ABC_1.flac"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return NewServer(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServeClip_Full(t *testing.T) {
	s := newClipServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clip", nil)

	if err := s.ServeClip(rec, req, "ABC_1.flac"); err != nil {
		t.Fatalf("ServeClip() error = %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "audio/flac" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestServeClip_Partial(t *testing.T) {
	s := newClipServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clip", nil)
	req.Header.Set("Range", "bytes=2-5")

	if err := s.ServeClip(rec, req, "ABC_1.flac"); err != nil {
		t.Fatalf("ServeClip() error = %v", err)
	}
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "2345" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Range") != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", rec.Header().Get("Content-Range"))
	}
}

func TestServeClip_Unsatisfiable(t *testing.T) {
	s := newClipServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clip", nil)
	req.Header.Set("Range", "bytes=50-")

	if err := s.ServeClip(rec, req, "ABC_1.flac"); err != nil {
		t.Fatalf("ServeClip() error = %v", err)
	}
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServeClip_NotFound(t *testing.T) {
	s := newClipServer(t)
	for _, name := range []string{"missing.flac", "../ABC_1.flac", "ABC_1.wav", ""} {
		rec := httptest.NewRecorder()
		err := s.ServeClip(rec, httptest.NewRequest(http.MethodGet, "/clip", nil), name)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ServeClip(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}
