// Package media wraps the external tools that turn exported clip boundaries
// into training audio: yt-dlp for the source audio and ffmpeg for cutting.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/clipdesk/clipdesk/internal/logging"
)

const (
	maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

	// AudioFormat is the yt-dlp format selector for the source audio.
	AudioFormat = "ba[ext=m4a]"
)

// Tools downloads source audio and cuts clips from it.
type Tools interface {
	DownloadAudio(ctx context.Context, videoURL, outPath string) error
	CutClip(ctx context.Context, inPath string, start, end float64, outPath string) error
}

// RunResult is the outcome of one tool invocation.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// ToolError is a tool that ran and exited non-zero.
type ToolError struct {
	Tool   string
	Result RunResult
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Tool, e.Result.ExitCode, truncate(e.Result.StderrTail, 512))
}

// ExecTools runs the real binaries.
type ExecTools struct {
	ffmpeg string
	ytdlp  string
	logger *slog.Logger
}

func NewExecTools(ffmpegPath, ytdlpPath string, logger *slog.Logger) *ExecTools {
	return &ExecTools{
		ffmpeg: ffmpegPath,
		ytdlp:  ytdlpPath,
		logger: logging.WithComponent(logger, "media"),
	}
}

// DownloadAudio fetches the best m4a audio stream of videoURL to outPath.
func (t *ExecTools) DownloadAudio(ctx context.Context, videoURL, outPath string) error {
	tmp := partialPath(outPath)
	if err := t.run(ctx, t.ytdlp, tmp, outPath, downloadArgs(videoURL, tmp)...); err != nil {
		return err
	}
	t.logOutput("audio downloaded", outPath)
	return nil
}

// CutClip trims [start, end] seconds of inPath's audio into a flac file.
func (t *ExecTools) CutClip(ctx context.Context, inPath string, start, end float64, outPath string) error {
	if end <= start {
		return fmt.Errorf("invalid clip range %v-%v", start, end)
	}
	tmp := partialPath(outPath)
	if err := t.run(ctx, t.ffmpeg, tmp, outPath, cutArgs(inPath, start, end, tmp)...); err != nil {
		return err
	}
	t.logOutput("clip cut", outPath)
	return nil
}

func downloadArgs(videoURL, outPath string) []string {
	return []string{
		"--no-playlist",
		"--quiet",
		"-f", AudioFormat,
		"-o", outPath,
		videoURL,
	}
}

func cutArgs(inPath string, start, end float64, outPath string) []string {
	filter := "atrim=start=" + formatSeconds(start) + ":end=" + formatSeconds(end)
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inPath,
		"-vn",
		"-af", filter,
		"-f", "flac",
		outPath,
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// partialPath is the hidden sibling a tool writes before the result is
// renamed into place. Only complete outputs ever exist at outPath.
func partialPath(outPath string) string {
	return filepath.Join(filepath.Dir(outPath), "."+filepath.Base(outPath)+".part")
}

func (t *ExecTools) run(ctx context.Context, tool, tmpPath, outPath string, args ...string) error {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, tool, args...)

	// Capture stderr with bounded buffer
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	t.logger.Debug("executing tool", "tool", tool, "args", args)

	err := cmd.Run()
	result := RunResult{StderrTail: stderrBuf.String(), Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			os.Remove(tmpPath)
			return fmt.Errorf("run %s: %w", tool, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if !result.IsSuccess() {
		os.Remove(tmpPath)
		t.logger.Warn("tool failed",
			"tool", tool,
			"exit_code", result.ExitCode,
			"duration_ms", result.Duration.Milliseconds(),
			"stderr_tail", truncate(result.StderrTail, 512),
		)
		return &ToolError{Tool: filepath.Base(tool), Result: result}
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%s finished without output: %w", filepath.Base(tool), err)
	}

	t.logger.Debug("tool succeeded", "tool", tool, "duration_ms", result.Duration.Milliseconds())
	return nil
}

func (t *ExecTools) logOutput(msg, path string) {
	size := "unknown"
	if info, err := os.Stat(path); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	t.logger.Info(msg, "path", logging.SanitizePath(path), "size", size)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
