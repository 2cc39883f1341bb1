// Package plugin defines the lifecycle contract for wheelsite build plugins.
// Plugins hook into four fixed points of the site build: configuration,
// file staging, per-page content, and post-build asset staging.
package plugin

import (
	"fmt"
)

// Plugin represents a wheelsite plugin with metadata and lifecycle hooks.
// Hooks are invoked in a fixed order for every build:
// OnConfig -> OnFiles -> OnPageContent (per page) -> OnPostBuild.
type Plugin interface {
	// Metadata returns the plugin's metadata (name, version, description).
	Metadata() Metadata

	// OnConfig runs before anything else; plugins may resolve derived
	// settings and record them in the context data map.
	OnConfig(pc *Context) error

	// OnFiles runs before page rendering; plugins stage files into the
	// docs tree here.
	OnFiles(pc *Context) error

	// OnPageContent runs once per rendered page and returns the
	// (possibly modified) page HTML.
	OnPageContent(pc *Context, page *Page) (string, error)

	// OnPostBuild runs after the site tree is written; plugins stage
	// files into the site tree here.
	OnPostBuild(pc *Context) error
}

// Metadata describes a plugin's identity.
type Metadata struct {
	// Name is the unique plugin identifier (e.g., "wheels").
	Name string

	// Version is the semantic version (e.g., "v0.1.0").
	Version string

	// Description provides a human-readable summary of the plugin's purpose.
	Description string
}

// String returns a human-readable representation of the plugin metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s@%s", m.Name, m.Version)
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	return nil
}

// Page is the view of a rendered page passed to OnPageContent.
type Page struct {
	// SrcPath is the page source path relative to the docs dir (e.g.,
	// "package-search.md"). Matching against it is byte-exact.
	SrcPath string

	// Title is the resolved page title.
	Title string

	// HTML is the rendered page body before plugin modification.
	HTML string
}

// BaseHooks provides no-op defaults for the lifecycle hooks. Plugins can
// embed it to implement only the hooks they need.
type BaseHooks struct{}

func (BaseHooks) OnConfig(*Context) error    { return nil }
func (BaseHooks) OnFiles(*Context) error     { return nil }
func (BaseHooks) OnPostBuild(*Context) error { return nil }

// OnPageContent returns the page HTML unchanged.
func (BaseHooks) OnPageContent(_ *Context, page *Page) (string, error) {
	return page.HTML, nil
}
