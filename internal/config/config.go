// Package config provides configuration management for clipdesk.
// Configuration is built from defaults, an optional TOML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

const (
	// Default values
	DefaultPort            = 8787
	DefaultLogLevel        = "info"
	DefaultDataDir         = ".clipdesk"
	DefaultMostReplayedURL = "https://yt.lemnoslife.com"
	DefaultFFmpeg          = "ffmpeg"
	DefaultYtDlp           = "yt-dlp"
	DefaultEvalFraction    = 0.1
	DefaultClipWorkers     = 4

	// Environment variable names
	EnvConfigFile      = "CLIPDESK_CONFIG"
	EnvPort            = "CLIPDESK_PORT"
	EnvLogLevel        = "CLIPDESK_LOG_LEVEL"
	EnvDataDir         = "CLIPDESK_DATA_DIR"
	EnvBackendURL      = "CLIPDESK_BACKEND_URL"
	EnvMostReplayedURL = "CLIPDESK_MOST_REPLAYED_URL"
	EnvHeadless        = "CLIPDESK_HEADLESS"
	EnvProcessSchedule = "CLIPDESK_PROCESS_SCHEDULE"
	EnvFFmpeg          = "CLIPDESK_FFMPEG"
	EnvYtDlp           = "CLIPDESK_YTDLP"
	EnvEvalFraction    = "CLIPDESK_EVAL_FRACTION"
	EnvClipWorkers     = "CLIPDESK_CLIP_WORKERS"

	// Database filename
	DBFilename = "clipdesk.db"

	// Working directories under the data dir, named as the training tooling expects
	AudioDirName   = "audio_src"
	ClipsDirName   = "train_src"
	DatasetDirName = "json"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	AudioDir() string
	ClipsDir() string
	DatasetDir() string
	BackendURL() string
	EmbeddedBackend() bool
	MostReplayedURL() string
	Headless() bool
	ProcessSchedule() string
	FFmpegPath() string
	YtDlpPath() string
	EvalFraction() float64
	ClipWorkers() int
}

// fileConfig mirrors the TOML layout. Zero values mean "not set".
type fileConfig struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	DataDir  string `toml:"data_dir"`
	Headless bool   `toml:"headless"`

	Backend struct {
		URL             string `toml:"url"`
		MostReplayedURL string `toml:"most_replayed_url"`
	} `toml:"backend"`

	Processing struct {
		Schedule     string  `toml:"schedule"`
		FFmpeg       string  `toml:"ffmpeg"`
		YtDlp        string  `toml:"ytdlp"`
		EvalFraction float64 `toml:"eval_fraction"`
		ClipWorkers  int     `toml:"clip_workers"`
	} `toml:"processing"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port            int
	logLevel        string
	dataDir         string
	backendURL      string
	mostReplayedURL string
	headless        bool
	processSchedule string
	ffmpeg          string
	ytdlp           string
	evalFraction    float64
	clipWorkers     int

	sourceFile string
}

// New loads configuration using CLIPDESK_CONFIG as the optional TOML file.
func New() (*EnvConfig, error) {
	return Load("")
}

// Load builds a config from defaults, the TOML file at path (if it exists),
// .env in the working directory and the process environment.
func Load(path string) (*EnvConfig, error) {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		dataDir:         defaultDataDir(),
		mostReplayedURL: DefaultMostReplayedURL,
		ffmpeg:          DefaultFFmpeg,
		ytdlp:           DefaultYtDlp,
		evalFraction:    DefaultEvalFraction,
		clipWorkers:     DefaultClipWorkers,
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = expandHome(fc.DataDir)
	}
	c.headless = fc.Headless
	if fc.Backend.URL != "" {
		c.backendURL = fc.Backend.URL
	}
	if fc.Backend.MostReplayedURL != "" {
		c.mostReplayedURL = fc.Backend.MostReplayedURL
	}
	if fc.Processing.Schedule != "" {
		c.processSchedule = fc.Processing.Schedule
	}
	if fc.Processing.FFmpeg != "" {
		c.ffmpeg = fc.Processing.FFmpeg
	}
	if fc.Processing.YtDlp != "" {
		c.ytdlp = fc.Processing.YtDlp
	}
	if fc.Processing.EvalFraction != 0 {
		c.evalFraction = fc.Processing.EvalFraction
	}
	if fc.Processing.ClipWorkers != 0 {
		c.clipWorkers = fc.Processing.ClipWorkers
	}

	c.sourceFile = path
	return nil
}

func (c *EnvConfig) applyEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = expandHome(dd)
	}

	if u := os.Getenv(EnvBackendURL); u != "" {
		c.backendURL = u
	}

	if u := os.Getenv(EnvMostReplayedURL); u != "" {
		c.mostReplayedURL = u
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}

	if s := os.Getenv(EnvProcessSchedule); s != "" {
		c.processSchedule = s
	}

	if f := os.Getenv(EnvFFmpeg); f != "" {
		c.ffmpeg = f
	}

	if y := os.Getenv(EnvYtDlp); y != "" {
		c.ytdlp = y
	}

	if ef := os.Getenv(EnvEvalFraction); ef != "" {
		v, err := strconv.ParseFloat(ef, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvEvalFraction, err)
		}
		c.evalFraction = v
	}

	if cw := os.Getenv(EnvClipWorkers); cw != "" {
		v, err := strconv.Atoi(cw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvClipWorkers, err)
		}
		c.clipWorkers = v
	}

	return nil
}

// Validate checks value ranges and the cron expression.
func (c *EnvConfig) Validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	if c.evalFraction < 0 || c.evalFraction >= 1 {
		return fmt.Errorf("invalid eval fraction %v: must be in [0, 1)", c.evalFraction)
	}
	if c.clipWorkers < 1 {
		return fmt.Errorf("invalid clip workers %d: must be at least 1", c.clipWorkers)
	}
	if c.processSchedule != "" {
		if _, err := cron.ParseStandard(c.processSchedule); err != nil {
			return fmt.Errorf("invalid process schedule %q: %w", c.processSchedule, err)
		}
	}
	c.backendURL = strings.TrimRight(c.backendURL, "/")
	c.mostReplayedURL = strings.TrimRight(c.mostReplayedURL, "/")
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// AudioDir holds downloaded source audio, one m4a per video.
func (c *EnvConfig) AudioDir() string {
	return filepath.Join(c.dataDir, AudioDirName)
}

// ClipsDir holds the cut flac clips.
func (c *EnvConfig) ClipsDir() string {
	return filepath.Join(c.dataDir, ClipsDirName)
}

// DatasetDir holds training.json and eval.json.
func (c *EnvConfig) DatasetDir() string {
	return filepath.Join(c.dataDir, DatasetDirName)
}

// BackendURL is the base address the panel talks to. Empty means the
// embedded backend served by this process.
func (c *EnvConfig) BackendURL() string {
	return c.backendURL
}

func (c *EnvConfig) EmbeddedBackend() bool {
	return c.backendURL == ""
}

func (c *EnvConfig) MostReplayedURL() string {
	return c.mostReplayedURL
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// ProcessSchedule is a standard 5-field cron expression, or empty.
func (c *EnvConfig) ProcessSchedule() string {
	return c.processSchedule
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpeg
}

func (c *EnvConfig) YtDlpPath() string {
	return c.ytdlp
}

func (c *EnvConfig) EvalFraction() float64 {
	return c.evalFraction
}

func (c *EnvConfig) ClipWorkers() int {
	return c.clipWorkers
}

// SourceFile returns the TOML file that was applied, if any.
func (c *EnvConfig) SourceFile() string {
	return c.sourceFile
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
