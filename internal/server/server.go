// Package server provides the preview HTTP server: it serves the built site,
// exposes health and status endpoints, and optionally watches the docs tree
// for changes and refreshes the packages database on a schedule.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/metrics"
	"github.com/py-swift/wheelsite/internal/pkgdb"
	"github.com/py-swift/wheelsite/internal/site"
	"github.com/py-swift/wheelsite/internal/wheels"
)

// RebuildFunc runs a full site build and returns its report.
type RebuildFunc func(ctx context.Context) (*site.BuildReport, error)

// Options configures optional server behavior.
type Options struct {
	// Rebuild is invoked by the file watcher; nil disables watching.
	Rebuild RebuildFunc

	// Refresher schedules periodic artifact refreshes; nil disables them.
	Refresher *Refresher

	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler

	// Recorder receives request metrics.
	Recorder metrics.Recorder
}

// Server serves the built site for preview.
type Server struct {
	cfg     *config.Config
	siteDir string
	opts    Options

	httpServer *http.Server
	startTime  time.Time

	mu         sync.RWMutex
	lastReport *site.BuildReport
}

// New creates a preview server for the given site directory.
func New(cfg *config.Config, siteDir string, opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	return &Server{
		cfg:     cfg,
		siteDir: filepath.Clean(siteDir),
		opts:    opts,
	}
}

// SetReport records the report of the most recent build for /api/status.
func (s *Server) SetReport(report *site.BuildReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
}

func (s *Server) report() *site.BuildReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// Run starts the server and blocks until ctx is canceled. The listener is
// bound before any background work starts so address conflicts fail fast.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Serve.Listen)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Serve.Listen, err)
	}

	s.startTime = time.Now()
	s.httpServer = &http.Server{
		Handler:           chain(slog.Default(), s.opts.Recorder, s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	slog.Info("Preview server listening", "addr", ln.Addr().String(), "site_dir", s.siteDir)

	if s.opts.Rebuild != nil && s.cfg.Serve.Watch != nil && *s.cfg.Serve.Watch {
		watcher, err := newWatcher(s.cfg.Site.DocsDir, s.opts.Rebuild, s)
		if err != nil {
			slog.Warn("File watching disabled", "error", err)
		} else {
			go watcher.run(ctx)
			defer watcher.close()
		}
	}

	if s.opts.Refresher != nil {
		if err := s.opts.Refresher.Start(ctx); err != nil {
			slog.Warn("Scheduled artifact refresh disabled", "error", err)
		} else {
			defer s.opts.Refresher.Stop()
		}
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.opts.MetricsHandler != nil {
		mux.Handle("/metrics", s.opts.MetricsHandler)
	}
	mux.Handle("/", http.FileServer(http.Dir(s.siteDir)))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the /api/status payload.
type statusResponse struct {
	Status    string            `json:"status"`
	UptimeSec int               `json:"uptime_seconds"`
	SiteDir   string            `json:"site_dir"`
	Build     *site.BuildReport `json:"build,omitempty"`
	Database  *pkgdb.Stats      `json:"database,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:    "running",
		UptimeSec: int(time.Since(s.startTime).Seconds()),
		SiteDir:   s.siteDir,
		Build:     s.report(),
	}

	dbPath := filepath.Join(s.siteDir, wheels.AssetsDirName, "packages.db")
	if stats, err := pkgdb.Inspect(r.Context(), dbPath); err == nil {
		resp.Database = stats
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
