package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/metrics"
	"github.com/py-swift/wheelsite/internal/plugin"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// Builder renders the docs tree into the site dir, invoking plugin hooks.
type Builder struct {
	cfg      *config.Config
	registry *plugin.Registry
	recorder metrics.Recorder
	md       goldmark.Markdown
	docsDir  string
	siteDir  string
}

// NewBuilder creates a site builder. A nil registry means no plugins; a nil
// recorder disables metrics.
func NewBuilder(cfg *config.Config, registry *plugin.Registry, rec metrics.Recorder) *Builder {
	if registry == nil {
		registry = plugin.NewRegistry()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Builder{
		cfg:      cfg,
		registry: registry,
		recorder: rec,
		md:       newMarkdown(),
		docsDir:  filepath.Clean(cfg.Site.DocsDir),
		siteDir:  filepath.Clean(cfg.Site.SiteDir),
	}
}

// BasePath returns the path component of site_url ("" for root-hosted sites).
// Sites hosted under a prefix (e.g. GitHub Pages project sites) need it to
// address their own assets.
func (b *Builder) BasePath() string {
	if b.cfg.Site.SiteURL == "" {
		return ""
	}
	u, err := url.Parse(b.cfg.Site.SiteURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}

// BuildState carries mutable state across stages.
type BuildState struct {
	Builder   *Builder
	PluginCtx *plugin.Context
	Pages     []*Page
	Nav       []NavEntry
	Report    *BuildReport
	start     time.Time
}

// Build runs the full pipeline and returns the report. The returned error is
// the first fatal (or cancellation) stage error, if any; the report is always
// populated and persisted on a best-effort basis.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	buildID := uuid.NewString()
	report := NewBuildReport(buildID)
	pc := plugin.NewContext(ctx, slog.Default(), b.cfg, b.docsDir, b.siteDir, buildID, b.recorder)
	bs := &BuildState{Builder: b, PluginCtx: pc, Report: report, start: time.Now()}

	slog.Info("Starting site build",
		"build_id", buildID,
		"docs_dir", b.docsDir,
		"site_dir", b.siteDir,
		"plugins", len(b.registry.List()))

	err := runStages(ctx, bs, []struct {
		name string
		fn   Stage
	}{
		{"prepare_output", stagePrepareOutput},
		{"plugin_config", stagePluginConfig},
		{"plugin_files", stagePluginFiles},
		{"discover_pages", stageDiscoverPages},
		{"render_pages", stageRenderPages},
		{"plugin_post_build", stagePluginPostBuild},
	})

	report.Finalize()
	b.recorder.ObserveBuildDuration(time.Since(bs.start))
	b.recorder.IncBuildOutcome(string(report.Outcome))

	if perr := report.Persist(b.siteDir); perr != nil {
		slog.Warn("Failed to persist build report", "error", perr)
	}
	slog.Info("Site build finished",
		"build_id", buildID,
		"outcome", report.Outcome,
		"pages", report.RenderedPages,
		"duration", time.Since(bs.start).Round(time.Millisecond))
	return report, err
}

// runStages executes stages in order, recording timing and stopping on first fatal error.
func runStages(ctx context.Context, bs *BuildState, stages []struct {
	name string
	fn   Stage
}) error {
	rec := bs.Builder.recorder
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.name, ctx.Err())
			bs.Report.Errors = append(bs.Report.Errors, se)
			bs.Report.StageErrorKinds[st.name] = string(se.Kind)
			rec.IncStageResult(st.name, metrics.ResultCanceled)
			return se
		default:
		}
		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[st.name] = dur
		rec.ObserveStageDuration(st.name, dur)
		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				// Wrap unknown errors as fatal by default.
				se = newFatalStageError(st.name, err)
			}
			bs.Report.StageErrorKinds[st.name] = string(se.Kind)
			sc := bs.Report.StageCounts[st.name]
			switch se.Kind {
			case StageErrorWarning:
				sc.Warning++
				bs.Report.StageCounts[st.name] = sc
				bs.Report.Warnings = append(bs.Report.Warnings, se)
				rec.IncStageResult(st.name, metrics.ResultWarning)
				continue
			case StageErrorCanceled:
				sc.Canceled++
				bs.Report.StageCounts[st.name] = sc
				bs.Report.Errors = append(bs.Report.Errors, se)
				rec.IncStageResult(st.name, metrics.ResultCanceled)
				return se
			default:
				sc.Fatal++
				bs.Report.StageCounts[st.name] = sc
				bs.Report.Errors = append(bs.Report.Errors, se)
				rec.IncStageResult(st.name, metrics.ResultFatal)
				return se
			}
		}
		sc := bs.Report.StageCounts[st.name]
		sc.Success++
		bs.Report.StageCounts[st.name] = sc
		rec.IncStageResult(st.name, metrics.ResultSuccess)
	}
	return nil
}

// stagePrepareOutput cleans (when configured) and creates the site dir.
func stagePrepareOutput(_ context.Context, bs *BuildState) error {
	b := bs.Builder
	if bs.Builder.cfg.Site.Clean != nil && *bs.Builder.cfg.Site.Clean {
		if err := os.RemoveAll(b.siteDir); err != nil {
			return newFatalStageError("prepare_output", fmt.Errorf("clean site dir: %w", err))
		}
	}
	if err := os.MkdirAll(b.siteDir, 0755); err != nil {
		return newFatalStageError("prepare_output", fmt.Errorf("create site dir: %w", err))
	}
	return nil
}

// stagePluginConfig runs every plugin's OnConfig hook.
func stagePluginConfig(_ context.Context, bs *BuildState) error {
	for _, p := range bs.Builder.registry.List() {
		if err := p.OnConfig(bs.PluginCtx); err != nil {
			return newFatalStageError("plugin_config", fmt.Errorf("plugin %s: %w", p.Metadata().Name, err))
		}
	}
	return nil
}

// stagePluginFiles runs every plugin's OnFiles hook.
func stagePluginFiles(_ context.Context, bs *BuildState) error {
	for _, p := range bs.Builder.registry.List() {
		if err := p.OnFiles(bs.PluginCtx); err != nil {
			return newFatalStageError("plugin_files", fmt.Errorf("plugin %s: %w", p.Metadata().Name, err))
		}
	}
	return nil
}

// stageDiscoverPages loads the markdown tree and derives the navigation list.
func stageDiscoverPages(_ context.Context, bs *BuildState) error {
	pages, err := DiscoverPages(bs.Builder.docsDir)
	if err != nil {
		return newFatalStageError("discover_pages", err)
	}
	if len(pages) == 0 {
		return newWarnStageError("discover_pages", fmt.Errorf("no markdown files found in %s", bs.Builder.docsDir))
	}
	bs.Pages = pages
	bs.Report.Pages = len(pages)

	base := bs.Builder.BasePath()
	searchSrc := bs.Builder.cfg.Search.PagePath + ".md"
	includeSearch := bs.Builder.cfg.Search.IncludeInNav == nil || *bs.Builder.cfg.Search.IncludeInNav
	for _, p := range pages {
		if !p.Nav {
			continue
		}
		if p.SrcPath == searchSrc && !includeSearch {
			continue
		}
		bs.Nav = append(bs.Nav, NavEntry{Title: p.Title, URL: base + p.URLPath()})
	}
	return nil
}

// stageRenderPages renders markdown, applies plugin content hooks, wraps each
// page in the shell, and writes the site tree.
func stageRenderPages(ctx context.Context, bs *BuildState) error {
	b := bs.Builder
	for _, page := range bs.Pages {
		select {
		case <-ctx.Done():
			return newCanceledStageError("render_pages", ctx.Err())
		default:
		}

		html, err := renderMarkdown(b.md, page.Body)
		if err != nil {
			return newFatalStageError("render_pages", fmt.Errorf("render %s: %w", page.SrcPath, err))
		}
		page.HTML = html

		for _, p := range b.registry.List() {
			view := &plugin.Page{SrcPath: page.SrcPath, Title: page.Title, HTML: page.HTML}
			out, err := p.OnPageContent(bs.PluginCtx, view)
			if err != nil {
				return newFatalStageError("render_pages",
					fmt.Errorf("plugin %s on %s: %w", p.Metadata().Name, page.SrcPath, err))
			}
			if out != page.HTML {
				bs.Report.InjectedPages++
			}
			page.HTML = out
		}

		doc, err := wrapPage(page, b.cfg.Site.Title, bs.Nav)
		if err != nil {
			return newFatalStageError("render_pages", err)
		}

		outPath := filepath.Join(b.siteDir, filepath.FromSlash(page.OutPath()))
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return newFatalStageError("render_pages", fmt.Errorf("create directory for %s: %w", outPath, err))
		}
		if err := os.WriteFile(outPath, []byte(doc), 0644); err != nil {
			return newFatalStageError("render_pages", fmt.Errorf("write %s: %w", outPath, err))
		}
		bs.Report.RenderedPages++
		slog.Debug("Rendered page", "source", page.SrcPath, "destination", page.OutPath())
	}
	return nil
}

// stagePluginPostBuild runs every plugin's OnPostBuild hook.
func stagePluginPostBuild(_ context.Context, bs *BuildState) error {
	for _, p := range bs.Builder.registry.List() {
		if err := p.OnPostBuild(bs.PluginCtx); err != nil {
			return newFatalStageError("plugin_post_build", fmt.Errorf("plugin %s: %w", p.Metadata().Name, err))
		}
	}
	return nil
}
