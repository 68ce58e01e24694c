package models

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_ContentType(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		fallback string
		expected string
	}{
		{name: "Plain", header: "text/html", fallback: "application/octet-stream", expected: "text/html"},
		{name: "ParametersStripped", header: "text/html; charset=utf-8", fallback: "application/octet-stream", expected: "text/html"},
		{name: "WhitespaceTrimmed", header: "text/css ; charset=utf-8", fallback: "application/octet-stream", expected: "text/css"},
		{name: "MissingUsesDefault", header: "", fallback: "application/octet-stream", expected: "application/octet-stream"},
		{name: "MissingUsesConfiguredDefault", header: "", fallback: "text/html", expected: "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Content-Type", tt.header)
			}
			resp := &Response{StatusCode: 200, Header: header}
			assert.Equal(t, tt.expected, resp.ContentType(tt.fallback))
		})
	}
}

func TestResponse_IsRedirect(t *testing.T) {
	redirects := []int{301, 302, 303, 307, 308}
	for _, code := range redirects {
		resp := &Response{StatusCode: code, Header: http.Header{}}
		assert.True(t, resp.IsRedirect(), "status %d", code)
	}

	notRedirects := []int{200, 204, 304, 400, 404, 500}
	for _, code := range notRedirects {
		resp := &Response{StatusCode: code, Header: http.Header{}}
		assert.False(t, resp.IsRedirect(), "status %d", code)
	}
}

func TestResponse_Location(t *testing.T) {
	header := http.Header{}
	header.Set("Location", "/new")
	resp := &Response{StatusCode: 302, Header: header}
	assert.Equal(t, "/new", resp.Location())

	empty := &Response{StatusCode: 302, Header: http.Header{}}
	assert.Equal(t, "", empty.Location())
}
