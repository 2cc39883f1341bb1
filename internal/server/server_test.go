package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/site"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<h1>home</h1>"), 0644))
	return New(cfg, siteDir, Options{})
}

func TestServeSiteFiles(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(chain(testLogger(), s.opts.Recorder, s.routes()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/missing.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatusEndpointIncludesBuildReport(t *testing.T) {
	s := testServer(t)
	report := site.NewBuildReport("build-42")
	report.Pages = 3
	s.SetReport(report)

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Build  *struct {
			BuildID string `json:"build_id"`
			Pages   int    `json:"pages"`
		} `json:"build"`
		Database json.RawMessage `json:"database"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body.Status)
	require.NotNil(t, body.Build)
	assert.Equal(t, "build-42", body.Build.BuildID)
	assert.Equal(t, 3, body.Build.Pages)
	assert.Empty(t, body.Database, "no database staged, no stats expected")
}

func TestMetricsEndpointOnlyWhenConfigured(t *testing.T) {
	s := testServer(t)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.opts.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec = httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryMiddlewareReturnsJSONError(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	recoveryMiddleware(testLogger(), panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestShouldIgnoreEvent(t *testing.T) {
	ignored := []string{
		"/docs/.hidden.md",
		"/docs/page.md~",
		"/docs/.page.md.swp",
		"/docs/#page.md#",
		"/docs/Thumbs.db",
		"/docs/wheels_assets/package-search.js",
		"/docs/wheels_assets/MobileWheelsDatabase.wasm",
		"/docs/sub/wheels_assets/packages.db",
	}
	for _, p := range ignored {
		assert.True(t, shouldIgnoreEvent(p), "expected %q to be ignored", p)
	}

	kept := []string{"/docs/index.md", "/docs/guide/setup.md"}
	for _, p := range kept {
		assert.False(t, shouldIgnoreEvent(p), "expected %q to trigger a rebuild", p)
	}
}

// A build rewrites the staged assets inside the watched docs tree; those
// writes must never schedule a rebuild of their own, or a single edit would
// keep the watcher rebuilding forever.
func TestWatcherDoesNotRebuildOnOwnAssetWrites(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "wheels_assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.md"), []byte("# Home\n"), 0644))

	w, err := newWatcher(docs, func(ctx context.Context) (*site.BuildReport, error) {
		return site.NewBuildReport("rebuild"), nil
	}, testServer(t))
	require.NoError(t, err)
	defer w.close()

	pending := func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.timer != nil
	}

	for _, name := range []string{"package-search.js", "MobileWheelsDatabase.wasm", "packages.db"} {
		w.handleEvent(fsnotify.Event{Name: filepath.Join(docs, "wheels_assets", name), Op: fsnotify.Write})
	}
	assert.False(t, pending(), "staged asset writes must not schedule a rebuild")

	w.handleEvent(fsnotify.Event{Name: filepath.Join(docs, "index.md"), Op: fsnotify.Write})
	assert.True(t, pending(), "a docs edit must schedule a rebuild")
}

func TestNewRefresherDisabledWithoutIntervalOrTag(t *testing.T) {
	assert.Nil(t, NewRefresher(nil, "v1", t.TempDir(), 0))
	assert.Nil(t, NewRefresher(nil, "", t.TempDir(), 1))
}
