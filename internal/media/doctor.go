package media

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// ToolStatus is the availability of one external binary.
type ToolStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Capabilities reports which processing steps can run.
type Capabilities struct {
	FFmpeg      ToolStatus `json:"ffmpeg"`
	YtDlp       ToolStatus `json:"yt_dlp"`
	CanDownload bool       `json:"can_download"`
	CanCut      bool       `json:"can_cut"`
	ProbedAt    time.Time  `json:"probed_at"`
}

// Prober locates a binary, exec.LookPath in production.
type Prober func(name string) (string, error)

// CachedDoctor probes the configured tools and caches the result for a TTL.
type CachedDoctor struct {
	ffmpeg string
	ytdlp  string
	probe  Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(ffmpegPath, ytdlpPath string, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		ffmpeg: ffmpegPath,
		ytdlp:  ytdlpPath,
		probe:  exec.LookPath,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// SetProber replaces the binary lookup. Tests only.
func (d *CachedDoctor) SetProber(p Prober) {
	d.mu.Lock()
	d.probe = p
	d.cached = nil
	d.mu.Unlock()
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) *Capabilities {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) *Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps := &Capabilities{
		FFmpeg:   d.check("ffmpeg", d.ffmpeg),
		YtDlp:    d.check("yt-dlp", d.ytdlp),
		ProbedAt: time.Now(),
	}
	caps.CanCut = caps.FFmpeg.Available
	caps.CanDownload = caps.YtDlp.Available

	d.logger.Info("tool probe complete",
		"ffmpeg", caps.FFmpeg.Available,
		"yt_dlp", caps.YtDlp.Available,
	)

	d.cached = caps
	return caps
}

func (d *CachedDoctor) check(name, bin string) ToolStatus {
	status := ToolStatus{Name: name}
	path, err := d.probe(bin)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
