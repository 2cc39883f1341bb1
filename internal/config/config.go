// Package config loads and validates the wheelsite.yaml configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Search    SearchConfig    `yaml:"search"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Serve     ServeConfig     `yaml:"serve"`
}

// SiteConfig describes the documentation tree and generated output.
type SiteConfig struct {
	Title   string `yaml:"title"`
	SiteURL string `yaml:"site_url,omitempty"`
	DocsDir string `yaml:"docs_dir,omitempty"`
	SiteDir string `yaml:"site_dir,omitempty"`
	Clean   *bool  `yaml:"clean,omitempty"` // Clean site directory before build
}

// SearchConfig configures the package-compatibility search page.
type SearchConfig struct {
	DatabaseURL  string `yaml:"database_url,omitempty"` // Overrides the derived assets URL
	PagePath     string `yaml:"page_path,omitempty"`
	PageTitle    string `yaml:"page_title,omitempty"`
	IncludeInNav *bool  `yaml:"include_in_nav,omitempty"`
	WasmRelease  string `yaml:"wasm_release,omitempty"` // Release tag for the artifact fetcher
}

// ToolchainConfig configures the external Swift WASM build.
type ToolchainConfig struct {
	ToolchainID   string `yaml:"toolchain_id,omitempty"`
	SwiftSDK      string `yaml:"swift_sdk,omitempty"`
	Product       string `yaml:"product,omitempty"`
	Configuration string `yaml:"configuration,omitempty"` // debug|release
	SkipBuild     bool   `yaml:"skip_build,omitempty"`
}

// RetryBackoffMode enumerates supported backoff strategies for the fetcher.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// FetchConfig configures the release-artifact fetcher.
// Durations are duration strings ("500ms", "30s") parsed at use sites.
type FetchConfig struct {
	BaseURL      string           `yaml:"base_url,omitempty"`
	MaxRetries   *int             `yaml:"max_retries,omitempty"` // nil keeps the default; 0 disables retries
	RetryBackoff RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitial string           `yaml:"retry_initial,omitempty"`
	RetryMax     string           `yaml:"retry_max,omitempty"`
}

// RetryInitialDuration parses RetryInitial, returning 0 when unset or invalid.
func (f FetchConfig) RetryInitialDuration() time.Duration { return parseDuration(f.RetryInitial) }

// RetryMaxDuration parses RetryMax, returning 0 when unset or invalid.
func (f FetchConfig) RetryMaxDuration() time.Duration { return parseDuration(f.RetryMax) }

// ServeConfig configures the preview server.
type ServeConfig struct {
	Listen          string `yaml:"listen,omitempty"`
	Metrics         bool   `yaml:"metrics,omitempty"`
	Watch           *bool  `yaml:"watch,omitempty"`
	RefreshInterval string `yaml:"refresh_interval,omitempty"` // "" or "0" disables scheduled database refresh
}

// RefreshIntervalDuration parses RefreshInterval, returning 0 (disabled) when
// unset or invalid.
func (s ServeConfig) RefreshIntervalDuration() time.Duration { return parseDuration(s.RefreshInterval) }

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Defaults applied by Load when fields are unset.
const (
	DefaultDocsDir       = "docs"
	DefaultSiteDir       = "site"
	DefaultPagePath      = "package-search"
	DefaultPageTitle     = "Python Package Compatibility Search"
	DefaultListen        = "0.0.0.0:8000"
	DefaultToolchainID   = "swift-wasm-6.2.1-RELEASE"
	DefaultSwiftSDK      = "swift-6.2.1-RELEASE_wasm"
	DefaultProduct       = "MobileWheelsDatabaseWasm"
	DefaultFetchBaseURL  = "https://github.com/Py-Swift/MobileWheelsDatabase"
	DefaultConfiguration = "release"
)

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.ApplyDefaults()

	res, err := Normalize(&config)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		slog.Warn("Configuration adjusted", "warning", w)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills unset fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = "Documentation Site"
	}
	if c.Site.DocsDir == "" {
		c.Site.DocsDir = DefaultDocsDir
	}
	if c.Site.SiteDir == "" {
		c.Site.SiteDir = DefaultSiteDir
	}
	if c.Site.Clean == nil {
		t := true
		c.Site.Clean = &t
	}
	if c.Search.PagePath == "" {
		c.Search.PagePath = DefaultPagePath
	}
	if c.Search.PageTitle == "" {
		c.Search.PageTitle = DefaultPageTitle
	}
	if c.Search.IncludeInNav == nil {
		t := true
		c.Search.IncludeInNav = &t
	}
	if c.Toolchain.ToolchainID == "" {
		c.Toolchain.ToolchainID = DefaultToolchainID
	}
	if c.Toolchain.SwiftSDK == "" {
		c.Toolchain.SwiftSDK = DefaultSwiftSDK
	}
	if c.Toolchain.Product == "" {
		c.Toolchain.Product = DefaultProduct
	}
	if c.Toolchain.Configuration == "" {
		c.Toolchain.Configuration = DefaultConfiguration
	}
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = DefaultFetchBaseURL
	}
	if c.Serve.Listen == "" {
		c.Serve.Listen = DefaultListen
	}
	if c.Serve.Watch == nil {
		t := true
		c.Serve.Watch = &t
	}
}

// Validate checks cross-field invariants that normalization cannot repair.
func (c *Config) Validate() error {
	docs := filepath.Clean(c.Site.DocsDir)
	site := filepath.Clean(c.Site.SiteDir)
	if docs == site {
		return fmt.Errorf("docs_dir and site_dir must differ (both %q)", docs)
	}
	if c.Search.PagePath == "" {
		return fmt.Errorf("search.page_path cannot be empty")
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	clean := true
	nav := true
	retries := 2
	exampleConfig := Config{
		Site: SiteConfig{
			Title:   "MobileWheels Database",
			SiteURL: "https://example.github.io/mobilewheels",
			DocsDir: DefaultDocsDir,
			SiteDir: DefaultSiteDir,
			Clean:   &clean,
		},
		Search: SearchConfig{
			PagePath:     DefaultPagePath,
			PageTitle:    DefaultPageTitle,
			IncludeInNav: &nav,
			WasmRelease:  "v1.0.0",
		},
		Toolchain: ToolchainConfig{
			ToolchainID:   DefaultToolchainID,
			SwiftSDK:      DefaultSwiftSDK,
			Product:       DefaultProduct,
			Configuration: DefaultConfiguration,
		},
		Fetch: FetchConfig{
			BaseURL:      DefaultFetchBaseURL,
			MaxRetries:   &retries,
			RetryBackoff: RetryBackoffLinear,
			RetryInitial: "1s",
			RetryMax:     "30s",
		},
		Serve: ServeConfig{
			Listen:  DefaultListen,
			Metrics: true,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
