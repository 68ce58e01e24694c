package urlmap

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL for use as the frontier identity key.
// It lowercases the scheme and host, removes default ports (80 for http, 443
// for https), ensures an empty path becomes "/", and strips the fragment
// (fragments never change server-visible content). The query string is kept:
// under the fold policy, query-bearing URLs freeze to distinct files.
// Does not modify the input *url.URL.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil { // Host included a port
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	}

	normalized.Fragment = ""

	return normalized.String()
}

// ParseAndNormalize parses a URL string using the stricter url.ParseRequestURI
// (absolute URL or rooted path only, no fragments) and then normalizes it with
// NormalizeURL.
// Returns the normalized string, the parsed URL object, and any parse error.
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := url.ParseRequestURI(urlStr)
	if err != nil {
		return "", nil, err
	}
	return NormalizeURL(parsed), parsed, nil
}
