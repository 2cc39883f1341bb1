package config

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeResult captures non-fatal adjustments made to a configuration.
type NormalizeResult struct {
	Warnings []string
}

// Normalize canonicalizes enum fields and clamps numeric ranges in place.
// Unknown enum values fall back to defaults with a recorded warning, never an error.
func Normalize(cfg *Config) (*NormalizeResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	res := &NormalizeResult{}

	switch mode := RetryBackoffMode(strings.ToLower(string(cfg.Fetch.RetryBackoff))); mode {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
		cfg.Fetch.RetryBackoff = mode
	case "":
		cfg.Fetch.RetryBackoff = RetryBackoffLinear
	default:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unknown fetch.retry_backoff %q, using %q", cfg.Fetch.RetryBackoff, RetryBackoffLinear))
		cfg.Fetch.RetryBackoff = RetryBackoffLinear
	}

	switch c := strings.ToLower(cfg.Toolchain.Configuration); c {
	case "debug", "release":
		cfg.Toolchain.Configuration = c
	case "":
		cfg.Toolchain.Configuration = DefaultConfiguration
	default:
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unknown toolchain.configuration %q, using %q", cfg.Toolchain.Configuration, DefaultConfiguration))
		cfg.Toolchain.Configuration = DefaultConfiguration
	}

	if cfg.Fetch.MaxRetries != nil && *cfg.Fetch.MaxRetries < 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("negative fetch.max_retries %d clamped to 0", *cfg.Fetch.MaxRetries))
		*cfg.Fetch.MaxRetries = 0
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"fetch.retry_initial", &cfg.Fetch.RetryInitial},
		{"fetch.retry_max", &cfg.Fetch.RetryMax},
		{"serve.refresh_interval", &cfg.Serve.RefreshInterval},
	} {
		if *f.value == "" {
			continue
		}
		if d, err := time.ParseDuration(*f.value); err != nil || d < 0 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("invalid %s %q, ignoring", f.name, *f.value))
			*f.value = ""
		}
	}

	// page_path is a bare source path stem; strip a trailing .md if someone
	// configured the full filename.
	if stripped, ok := strings.CutSuffix(cfg.Search.PagePath, ".md"); ok {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("search.page_path %q includes .md suffix, using %q", cfg.Search.PagePath, stripped))
		cfg.Search.PagePath = stripped
	}

	return res, nil
}
