package plugin

import (
	"context"
	"log/slog"

	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/metrics"
)

// Context provides plugins with access to build services and state. It is
// constructed once per build before the first hook runs, so every hook sees
// fully initialized paths regardless of hook ordering.
type Context struct {
	// Context is the standard Go context for cancellation and deadlines.
	Context context.Context

	// Logger provides structured logging for plugin operations.
	Logger *slog.Logger

	// Config is the resolved wheelsite configuration.
	Config *config.Config

	// DocsDir is the markdown source tree for this build.
	DocsDir string

	// SiteDir is where the rendered site is written.
	SiteDir string

	// BuildID uniquely identifies this build.
	BuildID string

	// Metrics receives plugin observability events.
	Metrics metrics.Recorder

	// Data is a map for plugins to share data during execution.
	Data map[string]any
}

// NewContext creates a plugin context with the given services. A nil recorder
// is replaced with the noop recorder.
func NewContext(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	docsDir, siteDir, buildID string,
	rec metrics.Recorder,
) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Context{
		Context: ctx,
		Logger:  logger,
		Config:  cfg,
		DocsDir: docsDir,
		SiteDir: siteDir,
		BuildID: buildID,
		Metrics: rec,
		Data:    make(map[string]any),
	}
}

// GetString retrieves a string value from the plugin data map.
// Returns empty string if the key doesn't exist or is not a string.
func (pc *Context) GetString(key string) string {
	if v, ok := pc.Data[key].(string); ok {
		return v
	}
	return ""
}

// GetBool retrieves a boolean value from the plugin data map.
// Returns false if the key doesn't exist or is not a boolean.
func (pc *Context) GetBool(key string) bool {
	if v, ok := pc.Data[key].(bool); ok {
		return v
	}
	return false
}

// SetValue stores a key-value pair in the plugin data map.
func (pc *Context) SetValue(key string, value any) {
	pc.Data[key] = value
}
