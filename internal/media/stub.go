package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// StubTools writes empty placeholder files instead of running the tools.
// Used by `clipdesk process --dry-run` to exercise the table walk.
type StubTools struct {
	logger *slog.Logger
}

func NewStubTools(logger *slog.Logger) *StubTools {
	return &StubTools{logger: logger}
}

func (s *StubTools) DownloadAudio(ctx context.Context, videoURL, outPath string) error {
	s.logger.Info("media stub: audio download requested", "url", videoURL, "output", outPath)
	return touch(outPath)
}

func (s *StubTools) CutClip(ctx context.Context, inPath string, start, end float64, outPath string) error {
	s.logger.Info("media stub: clip cut requested",
		"input", inPath, "output", outPath, "start", start, "end", end)
	return touch(outPath)
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}
