package models

import (
	"net/http"
	"strings"
	"time"
)

// PageStatus tracks the lifecycle of a discovered URL.
type PageStatus string

const (
	PageStatusPending  PageStatus = "pending"   // Discovered, awaiting fetch
	PageStatusInFlight PageStatus = "in-flight" // A worker is processing it
	PageStatusDone     PageStatus = "done"      // Body written to disk
	PageStatusFailed   PageStatus = "failed"    // Per-page error, recorded in the report
	PageStatusExternal PageStatus = "external"  // Outside the site prefix, never fetched
	PageStatusRedirect PageStatus = "redirect"  // Resolved redirect, no file of its own
	PageStatusSkipped  PageStatus = "skipped"   // Unchanged since the previous freeze
)

// WorkItem represents a URL and its link depth to be processed by a worker.
type WorkItem struct {
	URL   string // Normalized URL, the frontier identity key
	Depth int
	Hops  int // Redirect hops already consumed reaching this URL
}

// PageRecord is the retained per-URL outcome. Records are created when a URL
// is first referenced and are never destroyed; the final report reads them.
type PageRecord struct {
	URL            string     `json:"url"`
	Status         PageStatus `json:"status"`
	FilePath       string     `json:"file_path,omitempty"` // Relative to the output root
	StatusCode     int        `json:"status_code,omitempty"`
	ContentType    string     `json:"content_type,omitempty"`
	RedirectTarget string     `json:"redirect_target,omitempty"`
	Depth          int        `json:"depth"`
	DiscoveredFrom []string   `json:"discovered_from,omitempty"` // Back-references for diagnostics
	Cause          string     `json:"cause,omitempty"`           // Error category on failure
}

// Response is the uniform record of one handler invocation. It is owned
// transiently by the fetch -> write/extract pipeline and not retained.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the media type without parameters, or the given
// default when the handler set no Content-Type header.
func (r *Response) ContentType(defaultType string) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return defaultType
	}
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}

// IsRedirect reports whether the response carries a 3xx status that redirects
// the client (304 Not Modified is not a redirect).
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Location returns the redirect target header value, if any.
func (r *Response) Location() string {
	return r.Header.Get("Location")
}

// PageStateEntry is what the optional state store retains per URL between
// freeze runs, enabling unchanged pages to be skipped.
type PageStateEntry struct {
	ContentHash string    `json:"content_hash"`
	FilePath    string    `json:"file_path"`
	FrozenAt    time.Time `json:"frozen_at"`
}
