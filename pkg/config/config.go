package config

import "time"

// AppConfig holds the full configuration for one freeze run.
type AppConfig struct {
	Prefix          string        `yaml:"prefix"`                     // URL of the application root, e.g. http://localhost:8000/
	Output          string        `yaml:"output"`                     // Directory the static tree is written to
	IndexFilename   string        `yaml:"index_filename,omitempty"`   // File name for directory-style URLs
	ExtraPages      []string      `yaml:"extra_pages,omitempty"`      // Seed URLs beyond the root (pages with no inbound link)
	ExcludePrefixes []string      `yaml:"exclude_prefixes,omitempty"` // Path prefixes treated as external, never fetched
	QueryPolicy     string        `yaml:"query_policy,omitempty"`     // fold | ignore | error
	RedirectPolicy  string        `yaml:"redirect_policy,omitempty"`  // follow | save | error
	MaxRedirects    int           `yaml:"max_redirects,omitempty"`    // Hop limit per redirect chain
	NumWorkers      int           `yaml:"num_workers,omitempty"`      // Worker pool size
	MaxRequests     int           `yaml:"max_requests,omitempty"`     // Cap on concurrently executing handler calls
	CrawlTimeout    time.Duration `yaml:"crawl_timeout,omitempty"`    // Overall deadline (0 = none)
	PerPageTimeout  time.Duration `yaml:"per_page_timeout,omitempty"` // Timeout for a single page (0 = none)
	DefaultMimetype string        `yaml:"default_mimetype,omitempty"` // Content type assumed when the handler sets none
	CleanOutput     bool          `yaml:"clean_output,omitempty"`     // Remove the previous output tree before freezing
	Strict          bool          `yaml:"strict,omitempty"`           // Any per-page failure fails the run
	StateDir        string        `yaml:"state_dir,omitempty"`        // Enables the incremental state store when set
}
