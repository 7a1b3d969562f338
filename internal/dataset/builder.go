package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/store"
)

// Options configures a Builder.
type Options struct {
	// BaseDir is the directory wav paths are written relative to.
	BaseDir      string
	ClipsDir     string
	OutputDir    string
	EvalFraction float64
}

type Builder struct {
	repo    store.Repository
	opts    Options
	shuffle func(n int, swap func(i, j int))
	logger  *slog.Logger
}

func NewBuilder(repo store.Repository, opts Options, logger *slog.Logger) *Builder {
	return &Builder{
		repo:    repo,
		opts:    opts,
		shuffle: rand.Shuffle,
		logger:  logging.WithComponent(logger, "dataset"),
	}
}

// Build collects every export whose clip exists, shuffles them and writes the
// first floor(n*EvalFraction) to eval.json and the rest to training.json.
func (b *Builder) Build(ctx context.Context) (Summary, error) {
	return b.BuildTo(ctx, b.opts.OutputDir)
}

// BuildTo is Build with an explicit output directory.
func (b *Builder) BuildTo(ctx context.Context, outDir string) (Summary, error) {
	exports, err := b.repo.ListExports(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list exports: %w", err)
	}

	summary := Summary{Exports: len(exports), OutputDir: outDir}
	entries := make([]Entry, 0, len(exports))
	for _, e := range exports {
		clipPath := filepath.Join(b.opts.ClipsDir, e.ClipFile())
		if _, err := os.Stat(clipPath); err != nil {
			summary.MissingClips++
			continue
		}
		entries = append(entries, Entry{
			VideoID: e.ClipName(),
			Wav:     b.wavPath(clipPath),
			Labels:  e.Labels(),
		})
	}

	b.shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})

	evalSize := EvalSize(len(entries), b.opts.EvalFraction)
	eval := entries[:evalSize]
	training := entries[evalSize:]

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := writeManifest(filepath.Join(outDir, TrainingFile), training); err != nil {
		return Summary{}, err
	}
	if err := writeManifest(filepath.Join(outDir, EvalFile), eval); err != nil {
		return Summary{}, err
	}

	summary.Training = len(training)
	summary.Eval = len(eval)

	b.logger.Info("dataset written",
		"output_dir", logging.SanitizePath(outDir),
		"training", summary.Training,
		"eval", summary.Eval,
		"missing_clips", summary.MissingClips,
	)
	return summary, nil
}

// EvalSize is floor(n * fraction).
func EvalSize(n int, fraction float64) int {
	if fraction <= 0 || n == 0 {
		return 0
	}
	size := int(float64(n) * fraction)
	if size > n {
		size = n
	}
	return size
}

func (b *Builder) wavPath(clipPath string) string {
	if b.opts.BaseDir == "" {
		return clipPath
	}
	rel, err := filepath.Rel(b.opts.BaseDir, clipPath)
	if err != nil {
		return clipPath
	}
	return filepath.ToSlash(rel)
}

func writeManifest(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(Manifest{Data: entries}, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
