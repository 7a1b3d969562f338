package playback

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// ErrNotFound is returned for a clip that has not been cut yet.
var ErrNotFound = errors.New("clip not found")

const clipContentType = "audio/flac"

// Server streams flac clips from a directory.
type Server struct {
	clipsDir string
	logger   *slog.Logger
}

func NewServer(clipsDir string, logger *slog.Logger) *Server {
	return &Server{clipsDir: clipsDir, logger: logger}
}

// ServeClip writes the clip file named name, honoring a Range header.
// Nothing is written when ErrNotFound is returned.
func (s *Server) ServeClip(w http.ResponseWriter, r *http.Request, name string) error {
	if name == "" || filepath.Base(name) != name || filepath.Ext(name) != ".flac" {
		return ErrNotFound
	}

	file, err := os.Open(filepath.Join(s.clipsDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("open clip: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat clip: %w", err)
	}
	size := stat.Size()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", clipContentType)

	byteRange, partial, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		// Malformed ranges are ignored; the full body is sent.
		partial = false
	case err != nil:
		return err
	}

	if !partial {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return nil
	}

	if _, err := file.Seek(byteRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek clip: %w", err)
	}

	w.Header().Set("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
	w.Header().Set("Content-Range", byteRange.Header(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.CopyN(w, file, byteRange.Length())
	}

	s.logger.Debug("clip range served", "clip", name, "range", byteRange.Header(size))
	return nil
}
