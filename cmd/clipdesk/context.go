package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/clipdesk/clipdesk/internal/backend"
	"github.com/clipdesk/clipdesk/internal/config"
	"github.com/clipdesk/clipdesk/internal/dataset"
	"github.com/clipdesk/clipdesk/internal/db"
	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/media"
	"github.com/clipdesk/clipdesk/internal/processor"
	"github.com/clipdesk/clipdesk/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.EnvConfig
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.EnvConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		for _, dir := range []string{cfg.DataDir(), cfg.AudioDir(), cfg.ClipsDir(), cfg.DatasetDir()} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				c.configErr = fmt.Errorf("create %s: %w", dir, err)
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		level := config.DefaultLogLevel
		if c.config != nil {
			level = c.config.LogLevel()
		}
		c.log = logging.NewLogger(level)
	})
	return c.log
}

// backendURL is the remote backend, or this machine's embedded one.
func (c *commandContext) backendURL() string {
	if c.config.EmbeddedBackend() {
		return fmt.Sprintf("http://127.0.0.1:%d", c.config.Port())
	}
	return c.config.BackendURL()
}

func (c *commandContext) backendClient() *backend.Client {
	return backend.NewClient(c.backendURL(), logging.WithComponent(c.logger(), "backend"))
}

// local is the embedded backend opened directly on the data dir.
type local struct {
	db        *db.DB
	repo      *store.SQLiteRepository
	processor *processor.Processor
	dataset   *dataset.Builder
	doctor    *media.CachedDoctor
}

func (c *commandContext) openLocal(dryRun bool) (*local, error) {
	cfg := c.config
	logger := c.logger()

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	repo := store.NewRepository(database.Conn())

	var tools media.Tools = media.NewExecTools(cfg.FFmpegPath(), cfg.YtDlpPath(), logger)
	if dryRun {
		tools = media.NewStubTools(logger)
	}

	return &local{
		db:   database,
		repo: repo,
		processor: processor.New(repo, tools, processor.Options{
			AudioDir: cfg.AudioDir(),
			ClipsDir: cfg.ClipsDir(),
			LockDir:  cfg.DataDir(),
			Workers:  cfg.ClipWorkers(),
		}, logger),
		dataset: dataset.NewBuilder(repo, dataset.Options{
			BaseDir:      cfg.DataDir(),
			ClipsDir:     cfg.ClipsDir(),
			OutputDir:    cfg.DatasetDir(),
			EvalFraction: cfg.EvalFraction(),
		}, logger),
		doctor: media.NewCachedDoctor(cfg.FFmpegPath(), cfg.YtDlpPath(), logging.WithComponent(logger, "doctor")),
	}, nil
}

func (l *local) Close() error {
	return l.db.Close()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
