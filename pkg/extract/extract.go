package extract

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"site-freezer/pkg/models"
)

// Selector covering every hyperlink/reference-bearing attribute we follow.
// Order of matches is document order, which keeps extraction reproducible.
const refSelector = "a[href], link[href], area[href], img[src], script[src], iframe[src], source[src], audio[src], video[src], embed[src], form[action]"

// Pre-compiled regex for url(...) references in stylesheets.
var cssURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// Links scans a response body for reference targets and returns them resolved
// to absolute form against baseURL, in extraction order. HTML and CSS bodies
// are scanned; other content types yield nothing. Malformed input never
// aborts extraction: unparsable fragments are skipped.
func Links(resp *models.Response, baseURL *url.URL, defaultMimetype string, log *logrus.Entry) []string {
	switch contentType := resp.ContentType(defaultMimetype); {
	case strings.HasPrefix(contentType, "text/html"),
		strings.HasPrefix(contentType, "application/xhtml+xml"):
		return htmlLinks(resp.Body, baseURL, log)
	case strings.HasPrefix(contentType, "text/css"):
		return cssLinks(resp.Body, baseURL, log)
	default:
		return nil
	}
}

// htmlLinks yields every reference-bearing attribute value in document order.
// goquery parses permissively, so broken markup still produces a tree.
func htmlLinks(body []byte, baseURL *url.URL, log *logrus.Entry) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Warnf("Unparseable HTML at %s, skipping extraction: %v", baseURL, err)
		return nil
	}

	var links []string
	doc.Find(refSelector).Each(func(_ int, sel *goquery.Selection) {
		ref := referenceAttr(sel)
		if ref == "" {
			return
		}
		if resolved, ok := resolve(baseURL, ref, log); ok {
			links = append(links, resolved)
		}
	})

	// Inline <style> blocks can carry url(...) references too
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		links = append(links, cssLinks([]byte(sel.Text()), baseURL, log)...)
	})

	return links
}

// cssLinks yields every url(...) reference in a stylesheet body.
func cssLinks(body []byte, baseURL *url.URL, log *logrus.Entry) []string {
	var links []string
	for _, match := range cssURLRe.FindAllSubmatch(body, -1) {
		ref := strings.TrimSpace(string(match[1]))
		if ref == "" || strings.HasPrefix(ref, "data:") {
			continue
		}
		if resolved, ok := resolve(baseURL, ref, log); ok {
			links = append(links, resolved)
		}
	}
	return links
}

// referenceAttr picks the attribute carrying the reference for the element.
func referenceAttr(sel *goquery.Selection) string {
	for _, attr := range []string{"href", "src", "action"} {
		if value, exists := sel.Attr(attr); exists && value != "" {
			return value
		}
	}
	return ""
}

// resolve turns a raw reference (relative, absolute, or protocol-relative)
// into an absolute URL string against the page's base URL.
func resolve(baseURL *url.URL, ref string, log *logrus.Entry) (string, bool) {
	resolved, err := baseURL.Parse(ref)
	if err != nil {
		log.Debugf("Skipping unparseable reference '%s': %v", ref, err)
		return "", false
	}
	return resolved.String(), true
}
