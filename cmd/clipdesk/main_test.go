package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clipdesk/clipdesk/internal/api"
	"github.com/clipdesk/clipdesk/internal/config"
	"github.com/clipdesk/clipdesk/internal/db"
	"github.com/clipdesk/clipdesk/internal/logging"
	"github.com/clipdesk/clipdesk/internal/store"
)

func setupEnv(t *testing.T, backendURL string) string {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDataDir, dataDir)
	t.Setenv(config.EnvBackendURL, backendURL)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvProcessSchedule, "")
	return dataDir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func openRepo(t *testing.T, path string) *store.SQLiteRepository {
	t.Helper()
	database, err := db.New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return store.NewRepository(database.Conn())
}

func seedExport(t *testing.T, repo store.Repository, videoID string, start float64) *store.Export {
	t.Helper()
	e := &store.Export{VideoID: videoID, Start: start, End: start + 10, AudioSets: []string{"/m/09x0r"}}
	require.NoError(t, repo.CreateExport(context.Background(), e))
	return e
}

func newBackendServer(t *testing.T) (*httptest.Server, *store.SQLiteRepository) {
	t.Helper()
	repo := openRepo(t, filepath.Join(t.TempDir(), "backend.db"))
	srv := httptest.NewServer(api.NewRouter(api.ServerConfig{
		Logger:     logging.Discard(),
		StartTime:  time.Now(),
		Version:    "test",
		Repository: repo,
	}))
	t.Cleanup(srv.Close)
	return srv, repo
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "clipdesk "+config.Version)
}

func TestExportsCommand_Remote(t *testing.T) {
	srv, repo := newBackendServer(t)
	setupEnv(t, srv.URL)
	seedExport(t, repo, "ABC123", 3725.25)

	out, err := runCLI(t, "exports")
	require.NoError(t, err)
	require.Contains(t, out, "ABC123")
	require.Contains(t, out, "01:02:05:250")
	require.Contains(t, out, "/m/09x0r")
}

func TestExportsCommand_Empty(t *testing.T) {
	srv, _ := newBackendServer(t)
	setupEnv(t, srv.URL)

	out, err := runCLI(t, "exports")
	require.NoError(t, err)
	require.Contains(t, out, "No exports")
}

func TestPurgeCommand_Remote(t *testing.T) {
	srv, repo := newBackendServer(t)
	setupEnv(t, srv.URL)
	seedExport(t, repo, "ABC123", 0)

	out, err := runCLI(t, "purge")
	require.NoError(t, err)
	require.Contains(t, out, "purge completed")

	n, err := repo.CountExports(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPurgeCommand_RemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	setupEnv(t, url)

	_, err := runCLI(t, "purge")
	require.Error(t, err)
}

func TestPurgeCommand_Local(t *testing.T) {
	dataDir := setupEnv(t, "")
	repo := openRepo(t, filepath.Join(dataDir, config.DBFilename))
	seedExport(t, repo, "ABC123", 0)
	seedExport(t, repo, "XYZ", 5)

	out, err := runCLI(t, "purge", "--local")
	require.NoError(t, err)
	require.Contains(t, out, "Purged 2 export(s)")
}

func TestProcessCommand_DryRun(t *testing.T) {
	dataDir := setupEnv(t, "")
	repo := openRepo(t, filepath.Join(dataDir, config.DBFilename))
	e := seedExport(t, repo, "ABC123", 12.3)

	out, err := runCLI(t, "process", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "1 downloaded, 1 cut, 0 skipped, 0 failed")

	_, err = os.Stat(filepath.Join(dataDir, config.ClipsDirName, e.ClipFile()))
	require.NoError(t, err)

	out, err = runCLI(t, "process", "--dry-run")
	require.NoError(t, err)
	require.Contains(t, out, "0 cut, 1 skipped")
}

func TestJSONExportCommand_OutDirValidation(t *testing.T) {
	setupEnv(t, "")

	_, err := runCLI(t, "jsonexport", "--out", filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}

func TestFormatExportsTable(t *testing.T) {
	table := formatExportsTable([]store.Export{
		{ID: 7, VideoID: "ABC123", Start: 12.5, End: 22.5, AudioSets: []string{"/m/02k7j", "/m/09r45"}},
	})
	require.Contains(t, table, "00:00:12:500")
	require.Contains(t, table, "/m/02k7j,/m/09r45")
	require.Contains(t, table, "7")
}
