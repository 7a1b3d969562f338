package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvBackendURL, "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port(), DefaultPort)
	}
	if !cfg.EmbeddedBackend() {
		t.Error("expected embedded backend when no backend url is set")
	}
	if cfg.EvalFraction() != DefaultEvalFraction {
		t.Errorf("EvalFraction = %v, want %v", cfg.EvalFraction(), DefaultEvalFraction)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvPort, "9000")
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvBackendURL, "http://127.0.0.1:5000/")
	t.Setenv(EnvHeadless, "true")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port())
	}
	if cfg.BackendURL() != "http://127.0.0.1:5000" {
		t.Errorf("BackendURL = %q, want trailing slash trimmed", cfg.BackendURL())
	}
	if cfg.EmbeddedBackend() {
		t.Error("expected remote backend")
	}
	if !cfg.Headless() {
		t.Error("expected headless")
	}
	if cfg.ClipsDir() != filepath.Join(dir, ClipsDirName) {
		t.Errorf("ClipsDir = %q", cfg.ClipsDir())
	}
}

func TestNew_InvalidPort(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvPort, "70000")

	if _, err := New(); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv(EnvProcessSchedule, "every tuesday")

	if _, err := New(); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvProcessSchedule, "")
	t.Setenv(EnvClipWorkers, "")

	path := filepath.Join(t.TempDir(), "clipdesk.toml")
	contents := `
port = 8800
log_level = "debug"

[backend]
most_replayed_url = "http://replay.local/"

[processing]
schedule = "*/15 * * * *"
clip_workers = 2
eval_fraction = 0.2
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port() != 8800 {
		t.Errorf("Port = %d, want 8800", cfg.Port())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel())
	}
	if cfg.MostReplayedURL() != "http://replay.local" {
		t.Errorf("MostReplayedURL = %q", cfg.MostReplayedURL())
	}
	if cfg.ProcessSchedule() != "*/15 * * * *" {
		t.Errorf("ProcessSchedule = %q", cfg.ProcessSchedule())
	}
	if cfg.ClipWorkers() != 2 {
		t.Errorf("ClipWorkers = %d, want 2", cfg.ClipWorkers())
	}
	if cfg.EvalFraction() != 0.2 {
		t.Errorf("EvalFraction = %v, want 0.2", cfg.EvalFraction())
	}
	if cfg.SourceFile() != path {
		t.Errorf("SourceFile = %q, want %q", cfg.SourceFile(), path)
	}
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	t.Setenv(EnvPort, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceFile() != "" {
		t.Errorf("SourceFile = %q, want empty", cfg.SourceFile())
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipdesk.toml")
	if err := os.WriteFile(path, []byte("port = 8800\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvPort, "8900")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port() != 8900 {
		t.Errorf("Port = %d, want 8900", cfg.Port())
	}
}
