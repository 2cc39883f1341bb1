package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "wheelsite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: Wheels\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Wheels", cfg.Site.Title)
	assert.Equal(t, DefaultDocsDir, cfg.Site.DocsDir)
	assert.Equal(t, DefaultSiteDir, cfg.Site.SiteDir)
	assert.Equal(t, DefaultPagePath, cfg.Search.PagePath)
	assert.Equal(t, DefaultPageTitle, cfg.Search.PageTitle)
	require.NotNil(t, cfg.Search.IncludeInNav)
	assert.True(t, *cfg.Search.IncludeInNav)
	assert.Equal(t, DefaultListen, cfg.Serve.Listen)
	assert.Equal(t, RetryBackoffLinear, cfg.Fetch.RetryBackoff)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("WHEELS_DB_URL", "https://cdn.example.com/wheels")
	path := writeConfig(t, "search:\n  database_url: ${WHEELS_DB_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/wheels", cfg.Search.DatabaseURL)
}

func TestLoadRejectsEqualDirs(t *testing.T) {
	path := writeConfig(t, "site:\n  docs_dir: out\n  site_dir: ./out\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadRetrySettings(t *testing.T) {
	path := writeConfig(t, `
fetch:
  max_retries: 4
  retry_backoff: exponential
  retry_initial: 500ms
  retry_max: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Fetch.MaxRetries)
	assert.Equal(t, 4, *cfg.Fetch.MaxRetries)
	assert.Equal(t, RetryBackoffExponential, cfg.Fetch.RetryBackoff)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetch.RetryInitialDuration())
	assert.Equal(t, 10*time.Second, cfg.Fetch.RetryMaxDuration())
}

func TestLoadLogsNormalizationWarnings(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })

	path := writeConfig(t, "fetch:\n  retry_backoff: spiral\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RetryBackoffLinear, cfg.Fetch.RetryBackoff)
	assert.Contains(t, buf.String(), "retry_backoff")
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wheelsite.yaml")

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultProduct, cfg.Toolchain.Product)
}
