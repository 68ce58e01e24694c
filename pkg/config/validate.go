package config

import (
	"fmt"
	"runtime"

	"site-freezer/pkg/utils"
)

const maxDefaultWorkers = 8

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// Prefix
	if c.Prefix == "" {
		warnings = append(warnings, "prefix is empty, defaulting to 'http://localhost:8000/'")
		c.Prefix = "http://localhost:8000/"
	}

	// Output
	if c.Output == "" {
		return warnings, fmt.Errorf("%w: output directory must be set", utils.ErrConfigValidation)
	}

	// IndexFilename
	if c.IndexFilename == "" {
		c.IndexFilename = "index.html"
	}

	// QueryPolicy
	switch c.QueryPolicy {
	case "":
		c.QueryPolicy = "fold"
	case "fold", "ignore", "error":
	default:
		return warnings, fmt.Errorf("%w: unknown query_policy '%s' (want fold, ignore, or error)",
			utils.ErrConfigValidation, c.QueryPolicy)
	}

	// RedirectPolicy
	switch c.RedirectPolicy {
	case "":
		c.RedirectPolicy = "follow"
	case "follow", "save", "error":
	default:
		return warnings, fmt.Errorf("%w: unknown redirect_policy '%s' (want follow, save, or error)",
			utils.ErrConfigValidation, c.RedirectPolicy)
	}

	// MaxRedirects
	if c.MaxRedirects < 0 {
		warnings = append(warnings, "max_redirects cannot be negative, defaulting to 10")
		c.MaxRedirects = 10
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = 10
	}

	// NumWorkers
	if c.NumWorkers < 0 {
		warnings = append(warnings, "num_workers cannot be negative, using available parallelism")
		c.NumWorkers = 0
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = runtime.NumCPU()
		if c.NumWorkers > maxDefaultWorkers {
			c.NumWorkers = maxDefaultWorkers
		}
	}

	// MaxRequests
	if c.MaxRequests <= 0 {
		c.MaxRequests = c.NumWorkers
	}

	// Timeouts
	if c.CrawlTimeout < 0 {
		warnings = append(warnings, "crawl_timeout cannot be negative, disabling timeout")
		c.CrawlTimeout = 0
	}
	if c.PerPageTimeout < 0 {
		warnings = append(warnings, "per_page_timeout cannot be negative, disabling timeout")
		c.PerPageTimeout = 0
	}

	// DefaultMimetype
	if c.DefaultMimetype == "" {
		c.DefaultMimetype = "application/octet-stream"
	}

	// ExcludePrefixes must be rooted paths
	for i, excl := range c.ExcludePrefixes {
		if excl == "" || excl[0] != '/' {
			return warnings, fmt.Errorf("%w: exclude_prefixes[%d] '%s' must start with '/'",
				utils.ErrConfigValidation, i, excl)
		}
	}

	return warnings, nil
}
