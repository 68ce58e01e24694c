package urlmap

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/utils"
)

// QueryPolicy controls how query-string-bearing URLs map to files.
type QueryPolicy string

const (
	// QueryFold encodes the query into a distinguishing file name suffix, so
	// /search?q=x and /search?q=y freeze to distinct files.
	QueryFold QueryPolicy = "fold"
	// QueryIgnore drops the query; URLs differing only in query share one file.
	QueryIgnore QueryPolicy = "ignore"
	// QueryError rejects query-bearing URLs as invalid.
	QueryError QueryPolicy = "error"
)

// Mapper is the bidirectional bridge between URL space and the output file
// tree. It is a pure function over its configuration: no filesystem access.
type Mapper struct {
	prefix          *url.URL // Site root; URLs outside it are external
	indexFilename   string   // File name for directory-style URLs
	queryPolicy     QueryPolicy
	excludePrefixes []string // Path prefixes treated as external even under the site root
	log             *logrus.Entry
}

// NewMapper parses and validates the site prefix and builds a Mapper.
// The prefix must be an absolute http(s) URL; its path is normalized to end
// with a slash so it names a directory in URL space.
func NewMapper(prefixStr, indexFilename string, queryPolicy QueryPolicy, excludePrefixes []string, log *logrus.Entry) (*Mapper, error) {
	prefix, err := url.Parse(prefixStr)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing prefix '%s': %w", utils.ErrInvalidURL, prefixStr, err)
	}
	if prefix.Scheme != "http" && prefix.Scheme != "https" {
		return nil, fmt.Errorf("%w: prefix '%s' must use http or https", utils.ErrInvalidURL, prefixStr)
	}
	if prefix.Host == "" {
		return nil, fmt.Errorf("%w: prefix '%s' missing host", utils.ErrInvalidURL, prefixStr)
	}
	if prefix.Path == "" {
		prefix.Path = "/"
	}
	if !strings.HasSuffix(prefix.Path, "/") {
		prefix.Path += "/"
	}
	// Re-normalize the stored prefix so host comparisons are case/port stable
	normalized, reparsed, err := ParseAndNormalize(prefix.String())
	if err != nil {
		return nil, fmt.Errorf("%w: normalizing prefix '%s': %w", utils.ErrInvalidURL, prefixStr, err)
	}
	log.Debugf("Path mapper using site prefix %s", normalized)

	return &Mapper{
		prefix:          reparsed,
		indexFilename:   indexFilename,
		queryPolicy:     queryPolicy,
		excludePrefixes: excludePrefixes,
		log:             log,
	}, nil
}

// Prefix returns the normalized site root URL.
func (m *Mapper) Prefix() *url.URL {
	return m.prefix
}

// Identity returns the frontier identity key for a URL. Under the ignore
// query policy, URLs differing only in query collapse to one identity so
// they are fetched at most once.
func (m *Mapper) Identity(u *url.URL) string {
	if m.queryPolicy == QueryIgnore && u.RawQuery != "" {
		stripped := *u
		stripped.RawQuery = ""
		return NormalizeURL(&stripped)
	}
	return NormalizeURL(u)
}

// Map translates a URL into a file path relative to the output root.
// Errors: ErrInvalidURL (malformed, wrong scheme, rejected query),
// ErrOutsideScope (different host, outside the prefix, excluded, or a path
// that escapes the site root).
func (m *Mapper) Map(u *url.URL) (string, error) {
	if u == nil {
		return "", fmt.Errorf("%w: nil URL", utils.ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme '%s' in '%s'", utils.ErrInvalidURL, u.Scheme, u.String())
	}
	if normalizeHost(u) != normalizeHost(m.prefix) {
		return "", fmt.Errorf("%w: host '%s' not under site root '%s'", utils.ErrOutsideScope, u.Host, m.prefix.Host)
	}

	urlPath := u.Path
	if urlPath == "" {
		urlPath = "/"
	}
	isDir := strings.HasSuffix(urlPath, "/")

	// Resolve dot segments before any prefix or traversal decision
	cleaned := path.Clean(urlPath)
	if cleaned == "." {
		cleaned = "/"
	}
	if cleaned != m.prefix.Path && !strings.HasPrefix(cleaned+"/", m.prefix.Path) {
		return "", fmt.Errorf("%w: path '%s' escapes site root '%s'", utils.ErrOutsideScope, urlPath, m.prefix.Path)
	}
	for _, excl := range m.excludePrefixes {
		if strings.HasPrefix(cleaned, excl) {
			return "", fmt.Errorf("%w: path '%s' matches excluded prefix '%s'", utils.ErrOutsideScope, urlPath, excl)
		}
	}

	rel := strings.TrimPrefix(cleaned+"/", m.prefix.Path)
	rel = strings.TrimSuffix(rel, "/")
	if isDir || rel == "" {
		rel = path.Join(rel, m.indexFilename)
	}

	rel, err := m.applyQueryPolicy(rel, u)
	if err != nil {
		return "", err
	}

	return filepath.FromSlash(rel), nil
}

// applyQueryPolicy folds, drops, or rejects the query string per policy.
// Folding places the sanitized query before the file extension so the result
// keeps its media-type association: search.html?q=x -> search@q=x.html.
func (m *Mapper) applyQueryPolicy(rel string, u *url.URL) (string, error) {
	if u.RawQuery == "" {
		return rel, nil
	}
	switch m.queryPolicy {
	case QueryIgnore:
		return rel, nil
	case QueryError:
		return "", fmt.Errorf("%w: query string not allowed by policy in '%s'", utils.ErrInvalidURL, u.String())
	default: // QueryFold
		dir, base := path.Split(rel)
		ext := path.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		folded := stem + "@" + utils.SanitizeFilename(u.RawQuery) + ext
		return dir + folded, nil
	}
}

// normalizeHost lowercases the host and strips default ports for comparison.
func normalizeHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		return strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		return strings.TrimSuffix(host, ":443")
	}
	return host
}
