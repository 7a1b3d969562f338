// Package processor turns stored exports into flac training clips.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/clipdesk/clipdesk/internal/clip"
	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/media"
	"github.com/clipdesk/clipdesk/internal/store"
)

// ErrBusy is returned when another run holds the processing lock.
var ErrBusy = errors.New("processing already in progress")

const (
	lockFileName   = "process.lock"
	audioExtension = ".m4a"
)

// Result summarizes one processing run.
type Result struct {
	Videos     int           `json:"videos"`
	Downloaded int           `json:"downloaded"`
	Cut        int           `json:"cut"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Options configures a Processor.
type Options struct {
	AudioDir string
	ClipsDir string
	LockDir  string
	Workers  int
}

type Processor struct {
	repo   store.Repository
	tools  media.Tools
	opts   Options
	logger *slog.Logger

	// running excludes runs within this process; lock excludes other processes.
	running sync.Mutex
	lock    *flock.Flock
}

func New(repo store.Repository, tools media.Tools, opts Options, logger *slog.Logger) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LockDir == "" {
		opts.LockDir = filepath.Dir(opts.ClipsDir)
	}
	return &Processor{
		repo:   repo,
		tools:  tools,
		opts:   opts,
		lock:   flock.New(filepath.Join(opts.LockDir, lockFileName)),
		logger: logging.WithComponent(logger, "processor"),
	}
}

// ClipPath is where the clip for e is written.
func (p *Processor) ClipPath(e *store.Export) string {
	return filepath.Join(p.opts.ClipsDir, e.ClipFile())
}

// AudioPath is where the source audio for videoID is downloaded.
func (p *Processor) AudioPath(videoID string) string {
	return filepath.Join(p.opts.AudioDir, store.FileStem(videoID)+audioExtension)
}

// Run downloads missing source audio and cuts missing clips for every stored
// export. Videos are handled concurrently, up to Workers at a time. A failing
// video is logged and counted; it does not stop the others. Only one run per
// lock directory proceeds at a time; others get ErrBusy.
func (p *Processor) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	if err := os.MkdirAll(p.opts.LockDir, 0755); err != nil {
		return Result{}, fmt.Errorf("create lock dir: %w", err)
	}
	if !p.running.TryLock() {
		return Result{}, ErrBusy
	}
	defer p.running.Unlock()

	locked, err := p.lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire process lock: %w", err)
	}
	if !locked {
		return Result{}, ErrBusy
	}
	defer p.lock.Unlock()

	videoIDs, err := p.repo.DistinctVideoIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list videos: %w", err)
	}

	p.logger.Info("processing started", "videos", len(videoIDs), "workers", p.opts.Workers)

	var (
		mu     sync.Mutex
		result = Result{Videos: len(videoIDs)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, videoID := range videoIDs {
		g.Go(func() error {
			r, err := p.processVideo(gctx, videoID)

			mu.Lock()
			result.Downloaded += r.Downloaded
			result.Cut += r.Cut
			result.Skipped += r.Skipped
			result.Failed += r.Failed
			mu.Unlock()

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Error("video processing failed", "video_id", videoID, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("processing complete",
		"videos", result.Videos,
		"downloaded", result.Downloaded,
		"cut", result.Cut,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (p *Processor) processVideo(ctx context.Context, videoID string) (Result, error) {
	var r Result
	logger := logging.WithVideoID(p.logger, videoID)

	exports, err := p.repo.ListExportsByVideo(ctx, videoID)
	if err != nil {
		r.Failed++
		return r, fmt.Errorf("list exports: %w", err)
	}

	var pending []*store.Export
	for _, e := range exports {
		if fileExists(p.ClipPath(e)) {
			r.Skipped++
			continue
		}
		pending = append(pending, e)
	}
	if len(pending) == 0 {
		return r, nil
	}

	audio := p.AudioPath(videoID)
	if !fileExists(audio) {
		if err := p.tools.DownloadAudio(ctx, clip.WatchURL(videoID), audio); err != nil {
			r.Failed += len(pending)
			return r, fmt.Errorf("download audio: %w", err)
		}
		r.Downloaded++
	}

	var firstErr error
	for _, e := range pending {
		if err := p.tools.CutClip(ctx, audio, e.Start, e.End, p.ClipPath(e)); err != nil {
			r.Failed++
			logger.Warn("clip cut failed", "export_id", e.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			continue
		}
		r.Cut++
	}
	return r, firstErr
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
