package wheels

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/py-swift/wheelsite/internal/config"
	"github.com/py-swift/wheelsite/internal/plugin"
)

func testContext(t *testing.T, cfg *config.Config) *plugin.Context {
	t.Helper()
	root := t.TempDir()
	if cfg == nil {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	}
	docs := filepath.Join(root, "docs")
	site := filepath.Join(root, "site")
	require.NoError(t, os.MkdirAll(docs, 0755))
	return plugin.NewContext(context.Background(), nil, cfg, docs, site, "build-test", nil)
}

func TestResolveDatabaseURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "/wheels_assets", ResolveDatabaseURL(cfg))

	cfg.Site.SiteURL = "https://py-swift.github.io/mobilewheels/"
	assert.Equal(t, "/mobilewheels/wheels_assets", ResolveDatabaseURL(cfg))

	cfg.Search.DatabaseURL = "https://cdn.example.com/db"
	assert.Equal(t, "https://cdn.example.com/db", ResolveDatabaseURL(cfg))
}

func TestInjectionRequiresExactPathMatch(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	p := New("")
	pc := testContext(t, cfg)
	require.NoError(t, p.OnConfig(pc))

	inject, err := p.OnPageContent(pc, &plugin.Page{SrcPath: "package-search.md", HTML: "<h1>Search</h1>"})
	require.NoError(t, err)
	assert.Contains(t, inject, "MOBILEWHEELS_DB_URL")
	assert.True(t, strings.HasPrefix(inject, "<h1>Search</h1>"), "loader must append, not replace")

	for _, src := range []string{
		"package-search",          // missing extension
		"package-search.md.bak",   // suffix mismatch
		"docs/package-search.md",  // nested path
		"Package-Search.md",       // case difference
		"index.md",                // unrelated page
	} {
		out, err := p.OnPageContent(pc, &plugin.Page{SrcPath: src, HTML: "<p>x</p>"})
		require.NoError(t, err)
		assert.Equal(t, "<p>x</p>", out, "no injection expected for %q", src)
	}
}

func TestInjectionUsesConfiguredDatabaseURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Search.DatabaseURL = "https://cdn.example.com/db"
	p := New("")
	pc := testContext(t, cfg)
	require.NoError(t, p.OnConfig(pc))

	out, err := p.OnPageContent(pc, &plugin.Page{SrcPath: "package-search.md", HTML: ""})
	require.NoError(t, err)
	assert.Contains(t, out, `window.MOBILEWHEELS_DB_URL = 'https://cdn.example.com/db'`)
	assert.Contains(t, out, `src="https://cdn.example.com/db/package-search.js"`)
}

// The loader snippet is the whole wire contract with the client-side engine;
// it must stay parseable HTML with the config script before the loader script.
func TestLoaderSnippetParses(t *testing.T) {
	doc, err := html.Parse(strings.NewReader("<html><body>" + LoaderSnippet("/wheels_assets") + "</body></html>"))
	require.NoError(t, err)

	var scripts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			src := ""
			for _, a := range n.Attr {
				if a.Key == "src" {
					src = a.Val
				}
			}
			if src == "" && n.FirstChild != nil {
				src = "inline:" + strings.TrimSpace(n.FirstChild.Data)
			}
			scripts = append(scripts, src)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	require.Len(t, scripts, 2)
	assert.True(t, strings.HasPrefix(scripts[0], "inline:window.MOBILEWHEELS_DB_URL"))
	assert.Equal(t, "/wheels_assets/package-search.js", scripts[1])
}

func TestStageAssetsIdempotent(t *testing.T) {
	p := New("")
	dst := filepath.Join(t.TempDir(), "wheels_assets")

	require.NoError(t, p.stageAssets(dst))
	first := readTree(t, dst)
	require.Contains(t, first, "package-search.js")
	require.Contains(t, first, "package-search.css")
	require.Contains(t, first, WasmName)

	require.NoError(t, p.stageAssets(dst))
	second := readTree(t, dst)
	assert.Equal(t, first, second, "second staging must not change the destination")
}

func TestStageAssetsPrefersOverride(t *testing.T) {
	override := t.TempDir()
	built := []byte("built-by-toolchain")
	require.NoError(t, os.WriteFile(filepath.Join(override, WasmName), built, 0644))

	p := New(override)
	dst := filepath.Join(t.TempDir(), "wheels_assets")
	require.NoError(t, p.stageAssets(dst))

	got, err := os.ReadFile(filepath.Join(dst, WasmName))
	require.NoError(t, err)
	assert.Equal(t, built, got)

	// Bundled assets are still staged alongside the override.
	_, err = os.Stat(filepath.Join(dst, "package-search.js"))
	require.NoError(t, err)
}

func TestOnFilesCreatesSearchPageOnce(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	p := New("")
	pc := testContext(t, cfg)

	require.NoError(t, p.OnFiles(pc))
	pagePath := filepath.Join(pc.DocsDir, "package-search.md")
	content, err := os.ReadFile(pagePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "title: "+config.DefaultPageTitle)

	// A hand-written page is left alone.
	custom := []byte("---\ntitle: My Search\n---\n")
	require.NoError(t, os.WriteFile(pagePath, custom, 0644))
	require.NoError(t, p.OnFiles(pc))
	after, err := os.ReadFile(pagePath)
	require.NoError(t, err)
	assert.Equal(t, custom, after)
}

func TestOnPostBuildStagesIntoSiteDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	p := New("")
	pc := testContext(t, cfg)

	require.NoError(t, p.OnPostBuild(pc))
	_, err := os.Stat(filepath.Join(pc.SiteDir, AssetsDirName, "package-search.js"))
	require.NoError(t, err)
}

func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		out[e.Name()] = string(data)
	}
	return out
}
