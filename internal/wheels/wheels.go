// Package wheels implements the package-compatibility search plugin. It
// stages the client-side engine assets into the docs and site trees and
// injects the engine loader into the configured search page.
package wheels

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/py-swift/wheelsite/internal/config"
	werrors "github.com/py-swift/wheelsite/internal/errors"
	"github.com/py-swift/wheelsite/internal/plugin"
)

//go:embed assets
var assetsFS embed.FS

// searchPageBody is the default body for a generated search page. It is not
// staged into wheels_assets; the loader script mounts the actual UI.
//
//go:embed search_page.html
var searchPageBody string

const (
	// AssetsDirName is the directory the engine assets are staged into,
	// under both the docs dir and the site dir.
	AssetsDirName = "wheels_assets"

	// WasmName is the database engine binary file name inside the assets dir.
	WasmName = "MobileWheelsDatabase.wasm"

	// dataKeyDBURL is the context data key holding the resolved database URL.
	dataKeyDBURL = "wheels.db_url"
)

// BundledWasm returns the engine binary bundled with the plugin, used as the
// fallback when no release artifact can be fetched.
func BundledWasm() ([]byte, error) {
	return assetsFS.ReadFile("assets/" + WasmName)
}

// Plugin stages search assets and injects the engine loader.
type Plugin struct {
	// OverrideDir optionally holds freshly built or fetched artifacts
	// (engine binary, packages database) that take precedence over the
	// bundled copies. Usually the project root.
	OverrideDir string
}

// New creates the wheels plugin.
func New(overrideDir string) *Plugin {
	return &Plugin{OverrideDir: overrideDir}
}

func (p *Plugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "wheels",
		Version:     "v0.1.0",
		Description: "Python package compatibility search page",
	}
}

// OnConfig resolves the database URL once and records it for later hooks.
func (p *Plugin) OnConfig(pc *plugin.Context) error {
	dbURL := ResolveDatabaseURL(pc.Config)
	pc.SetValue(dataKeyDBURL, dbURL)
	pc.Logger.Debug("Resolved database URL", "url", dbURL)
	return nil
}

// OnFiles stages the engine assets into the docs tree and ensures the search
// page source exists.
func (p *Plugin) OnFiles(pc *plugin.Context) error {
	if err := p.stageAssets(filepath.Join(pc.DocsDir, AssetsDirName)); err != nil {
		return err
	}
	return p.ensureSearchPage(pc)
}

// OnPageContent appends the engine loader if and only if the page source path
// exactly equals the configured search page path.
func (p *Plugin) OnPageContent(pc *plugin.Context, page *plugin.Page) (string, error) {
	if page.SrcPath != pc.Config.Search.PagePath+".md" {
		return page.HTML, nil
	}
	dbURL := pc.GetString(dataKeyDBURL)
	if dbURL == "" {
		dbURL = ResolveDatabaseURL(pc.Config)
	}
	pc.Metrics.IncPageInjection()
	pc.Logger.Info("Injecting package search loader", "page", page.SrcPath, "database_url", dbURL)
	return page.HTML + LoaderSnippet(dbURL), nil
}

// OnPostBuild stages the engine assets into the built site tree.
func (p *Plugin) OnPostBuild(pc *plugin.Context) error {
	return p.stageAssets(filepath.Join(pc.SiteDir, AssetsDirName))
}

// ResolveDatabaseURL picks the database location: an explicit override wins,
// otherwise the URL is derived from the site_url path component so sites
// hosted under a prefix still find their assets.
func ResolveDatabaseURL(cfg *config.Config) string {
	if cfg.Search.DatabaseURL != "" {
		return cfg.Search.DatabaseURL
	}
	basePath := ""
	if cfg.Site.SiteURL != "" {
		if u, err := url.Parse(cfg.Site.SiteURL); err == nil {
			basePath = strings.TrimSuffix(u.Path, "/")
		}
	}
	return basePath + "/" + AssetsDirName
}

// LoaderSnippet is the wire contract between the page and the opaque engine:
// one global configuration variable and one script load from the same base URL.
func LoaderSnippet(dbURL string) string {
	return fmt.Sprintf(`
<link rel="stylesheet" href="%[1]s/package-search.css">
<script>
  window.MOBILEWHEELS_DB_URL = '%[1]s';
</script>
<script src="%[1]s/package-search.js"></script>
`, dbURL)
}

// ensureSearchPage writes the search page markdown source when the docs tree
// does not already carry one, so the configured page always renders.
func (p *Plugin) ensureSearchPage(pc *plugin.Context) error {
	pagePath := filepath.Join(pc.DocsDir, filepath.FromSlash(pc.Config.Search.PagePath)+".md")
	if _, err := os.Stat(pagePath); err == nil {
		return nil
	}
	content := fmt.Sprintf("---\ntitle: %s\n---\n\n%s", pc.Config.Search.PageTitle, searchPageBody)
	if err := os.MkdirAll(filepath.Dir(pagePath), 0755); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "create search page directory")
	}
	if err := os.WriteFile(pagePath, []byte(content), 0644); err != nil {
		return werrors.Wrap(err, werrors.CategoryFileSystem, werrors.SeverityFatal, "write search page")
	}
	pc.Logger.Info("Created search page", "path", pagePath)
	return nil
}
