package extract

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-freezer/pkg/models"
)

// testLogger returns a logger that discards output
func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func htmlResponse(body string) *models.Response {
	return &models.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(body),
	}
}

func cssResponse(body string) *models.Response {
	return &models.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/css"}},
		Body:       []byte(body),
	}
}

func baseURL(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("http://localhost:8000/blog/")
	require.NoError(t, err)
	return u
}

func TestLinks_HTMLAttributes(t *testing.T) {
	body := `<html><head>
		<link rel="stylesheet" href="/static/style.css">
		<script src="app.js"></script>
	</head><body>
		<a href="../about">About</a>
		<a href="http://localhost:8000/contact">Contact</a>
		<img src="images/logo.png">
		<iframe src="/embed/player"></iframe>
		<form action="/search"></form>
	</body></html>`

	links := Links(htmlResponse(body), baseURL(t), "application/octet-stream", testLogger())

	assert.Equal(t, []string{
		"http://localhost:8000/static/style.css",
		"http://localhost:8000/blog/app.js",
		"http://localhost:8000/about",
		"http://localhost:8000/contact",
		"http://localhost:8000/blog/images/logo.png",
		"http://localhost:8000/embed/player",
		"http://localhost:8000/search",
	}, links)
}

func TestLinks_HTMLEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "EmptyHrefSkipped",
			body:     `<a href="">empty</a><a href="/ok">ok</a>`,
			expected: []string{"http://localhost:8000/ok"},
		},
		{
			name:     "AnchorWithoutHrefSkipped",
			body:     `<a name="top">anchor</a>`,
			expected: nil,
		},
		{
			name:     "FragmentOnlyResolvesToSelf",
			body:     `<a href="#section">jump</a>`,
			expected: []string{"http://localhost:8000/blog/#section"},
		},
		{
			name:     "ProtocolRelative",
			body:     `<img src="//cdn.example.com/pic.png">`,
			expected: []string{"http://cdn.example.com/pic.png"},
		},
		{
			name:     "ExternalAbsoluteKept",
			body:     `<a href="https://golang.org/doc/">go docs</a>`,
			expected: []string{"https://golang.org/doc/"},
		},
		{
			name: "MalformedMarkupStillParsed",
			body: `<a href="/first"<a href="/second><p><a href="/third">ok</a>`,
			// Permissive parsing keeps at least the well-formed reference
			expected: []string{"http://localhost:8000/third"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := Links(htmlResponse(tt.body), baseURL(t), "application/octet-stream", testLogger())
			for _, want := range tt.expected {
				assert.Contains(t, links, want)
			}
			if tt.expected == nil {
				assert.Empty(t, links)
			}
		})
	}
}

func TestLinks_InlineStyleBlock(t *testing.T) {
	body := `<html><head><style>
		body { background: url("/img/bg.png"); }
	</style></head><body></body></html>`

	links := Links(htmlResponse(body), baseURL(t), "application/octet-stream", testLogger())
	assert.Contains(t, links, "http://localhost:8000/img/bg.png")
}

func TestLinks_CSS(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "DoubleQuoted",
			body:     `body { background: url("/img/bg.png"); }`,
			expected: []string{"http://localhost:8000/img/bg.png"},
		},
		{
			name:     "SingleQuoted",
			body:     `@font-face { src: url('fonts/site.woff2'); }`,
			expected: []string{"http://localhost:8000/blog/fonts/site.woff2"},
		},
		{
			name:     "Unquoted",
			body:     `div { background-image: url(../shared/tile.gif); }`,
			expected: []string{"http://localhost:8000/shared/tile.gif"},
		},
		{
			name:     "WhitespacePadded",
			body:     `div { background: url(  "/padded.png"  ); }`,
			expected: []string{"http://localhost:8000/padded.png"},
		},
		{
			name:     "DataURISkipped",
			body:     `div { background: url(data:image/png;base64,iVBORw0KGgo=); }`,
			expected: nil,
		},
		{
			name: "MultipleReferences",
			body: `a { background: url(/a.png); } b { background: url(/b.png); }`,
			expected: []string{
				"http://localhost:8000/a.png",
				"http://localhost:8000/b.png",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := Links(cssResponse(tt.body), baseURL(t), "application/octet-stream", testLogger())
			assert.Equal(t, tt.expected, links)
		})
	}
}

func TestLinks_NonScannableContentTypes(t *testing.T) {
	resp := &models.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"image/png"}},
		Body:       []byte{0x89, 0x50, 0x4E, 0x47},
	}
	assert.Nil(t, Links(resp, baseURL(t), "application/octet-stream", testLogger()))
}

func TestLinks_MissingContentTypeUsesDefault(t *testing.T) {
	resp := &models.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       []byte(`<a href="/page">p</a>`),
	}

	// Default octet-stream: body is not scanned
	assert.Nil(t, Links(resp, baseURL(t), "application/octet-stream", testLogger()))

	// Default text/html: body is scanned
	links := Links(resp, baseURL(t), "text/html", testLogger())
	assert.Equal(t, []string{"http://localhost:8000/page"}, links)
}
