package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/py-swift/wheelsite/internal/artifact"
	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/metrics"
	"github.com/py-swift/wheelsite/internal/pkgdb"
	"github.com/py-swift/wheelsite/internal/plugin"
	"github.com/py-swift/wheelsite/internal/retry"
	"github.com/py-swift/wheelsite/internal/server"
	"github.com/py-swift/wheelsite/internal/site"
	"github.com/py-swift/wheelsite/internal/toolchain"
	"github.com/py-swift/wheelsite/internal/wheels"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"wheelsite.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		SkipToolchain bool `help:"Skip the WASM engine build step entirely"`
	} `cmd:"" help:"Build the WASM engine and the documentation site"`

	Serve struct {
		Listen string `short:"l" help:"Listen address (overrides configuration)"`
	} `cmd:"" help:"Build the site and serve it with live rebuild on changes"`

	Fetch struct {
		Tag string `short:"t" help:"Release tag (overrides search.wasm_release)"`
	} `cmd:"" help:"Fetch the database engine release artifacts"`

	DB struct {
		Path string `short:"p" help:"Path to packages.db" default:"packages.db"`
	} `cmd:"" name:"db" help:"Inspect the packages database"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "build":
		cfg := loadConfig()
		if err := runBuild(cfg, CLI.Build.SkipToolchain); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		cfg := loadConfig()
		if CLI.Serve.Listen != "" {
			cfg.Serve.Listen = CLI.Serve.Listen
		}
		if err := runServe(cfg); err != nil {
			slog.Error("Serve failed", "error", err)
			os.Exit(1)
		}
	case "fetch":
		cfg := loadConfig()
		if err := runFetch(cfg, CLI.Fetch.Tag); err != nil {
			slog.Error("Fetch failed", "error", err)
			os.Exit(1)
		}
	case "db":
		if err := runDB(CLI.DB.Path); err != nil {
			slog.Error("Database inspection failed", "error", err)
			os.Exit(1)
		}
	case "init":
		slog.Info("Initializing configuration", "path", CLI.Config, "force", CLI.Init.Force)
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// newBuilder wires the plugin registry and site builder from configuration.
func newBuilder(cfg *config.Config, rec metrics.Recorder) (*site.Builder, error) {
	registry := plugin.NewRegistry()
	if err := registry.Register(wheels.New(".")); err != nil {
		return nil, err
	}
	return site.NewBuilder(cfg, registry, rec), nil
}

// runBuild drives the engine toolchain and then the site build. The engine
// step runs by default; toolchain.skip_build reuses an existing binary, and
// --skip-toolchain bypasses the step entirely.
func runBuild(cfg *config.Config, skipToolchain bool) error {
	if !skipToolchain {
		builder := toolchain.NewBuilder(cfg.Toolchain, ".")
		if err := builder.Build(context.Background(), cfg.Site.DocsDir); err != nil {
			return err
		}
	}

	builder, err := newBuilder(cfg, nil)
	if err != nil {
		return err
	}
	report, err := builder.Build(context.Background())
	if report != nil {
		logReport(report)
	}
	return err
}

func runServe(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	opts := server.Options{}
	if cfg.Serve.Metrics {
		prom := metrics.NewPrometheusRecorder(nil)
		rec = prom
		opts.MetricsHandler = prom.Handler()
	}
	opts.Recorder = rec

	builder, err := newBuilder(cfg, rec)
	if err != nil {
		return err
	}
	report, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	logReport(report)

	opts.Rebuild = func(ctx context.Context) (*site.BuildReport, error) {
		return builder.Build(ctx)
	}
	if interval := cfg.Serve.RefreshIntervalDuration(); interval > 0 {
		// The refresher fetches the packages database, which has no bundled copy.
		fetcher := newFetcher(cfg, rec)
		fetcher.Fallback = nil
		opts.Refresher = server.NewRefresher(fetcher, cfg.Search.WasmRelease, cfg.Site.SiteDir, interval)
	}

	srv := server.New(cfg, cfg.Site.SiteDir, opts)
	srv.SetReport(report)
	return srv.Run(ctx)
}

func runFetch(cfg *config.Config, tag string) error {
	if tag == "" {
		tag = cfg.Search.WasmRelease
	}
	if tag == "" {
		return fmt.Errorf("no release tag: set search.wasm_release or pass --tag")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The engine binary has a bundled fallback; the packages database does not.
	fetcher := newFetcher(cfg, nil)
	outcome, err := fetcher.Fetch(ctx, tag, wheels.WasmName, wheels.WasmName)
	if err != nil {
		return err
	}
	slog.Info("Artifact ready", "name", wheels.WasmName, "source", string(outcome))

	fetcher.Fallback = nil
	outcome, err = fetcher.Fetch(ctx, tag, server.DatabaseName, server.DatabaseName)
	if err != nil {
		return err
	}
	slog.Info("Artifact ready", "name", server.DatabaseName, "source", string(outcome))
	return nil
}

func runDB(path string) error {
	stats, err := pkgdb.Inspect(context.Background(), path)
	if err != nil {
		return err
	}
	slog.Info("Packages database",
		"path", stats.Path,
		"size_bytes", stats.SizeBytes,
		"packages", stats.Packages,
		"wheels", stats.Wheels,
		"platforms", stats.Platforms)
	return nil
}

func newFetcher(cfg *config.Config, rec metrics.Recorder) *artifact.Fetcher {
	f := artifact.NewFetcher(cfg.Fetch.BaseURL, retry.FromConfig(cfg.Fetch), wheels.BundledWasm, rec)
	return f
}

func logReport(report *site.BuildReport) {
	slog.Info("Build finished",
		"build_id", report.BuildID,
		"outcome", string(report.Outcome),
		"pages", report.Pages,
		"rendered", report.RenderedPages,
		"injected", report.InjectedPages,
		"duration", report.End.Sub(report.Start),
		"report", filepath.Join("site", "build-report.json"))
}
