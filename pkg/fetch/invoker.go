package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/models"
)

// Invoker is the abstract handler capability the core consumes: send one
// request, get a status/headers/body back. Implementations must be safe for
// repeated and concurrent calls.
type Invoker interface {
	Invoke(ctx context.Context, method, rawURL string, header http.Header) (*models.Response, error)
}

// HandlerInvoker drives an http.Handler in-process, without a network hop.
// A panicking handler is recovered into an error so one bad page cannot
// abort the crawl.
type HandlerInvoker struct {
	handler http.Handler
	log     *logrus.Entry
}

// NewHandlerInvoker wraps the given handler.
func NewHandlerInvoker(handler http.Handler, log *logrus.Entry) *HandlerInvoker {
	return &HandlerInvoker{handler: handler, log: log}
}

// Invoke serves the request through the wrapped handler and captures the
// result with an httptest recorder.
func (h *HandlerInvoker) Invoke(ctx context.Context, method, rawURL string, header http.Header) (resp *models.Response, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("creating request for '%s': %w", rawURL, reqErr)
	}
	for key, values := range header {
		req.Header[key] = values
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.WithFields(logrus.Fields{
				"url":         rawURL,
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("Handler panicked")
			resp = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	result := rec.Result()
	body, readErr := io.ReadAll(result.Body)
	result.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("reading recorded body for '%s': %w", rawURL, readErr)
	}

	return &models.Response{
		StatusCode: result.StatusCode,
		Header:     result.Header,
		Body:       body,
	}, nil
}

// ClientInvoker drives an already-running application over HTTP, for freezing
// a local dev server. Redirect following is disabled on the client so 3xx
// responses reach the scheduler's redirect policy intact.
type ClientInvoker struct {
	client *http.Client
	log    *logrus.Entry
}

// NewClientInvoker wraps the given client, disabling its redirect following.
// A nil client uses http.DefaultClient's transport.
func NewClientInvoker(client *http.Client, log *logrus.Entry) *ClientInvoker {
	if client == nil {
		client = &http.Client{}
	}
	wrapped := *client
	wrapped.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &ClientInvoker{client: &wrapped, log: log}
}

// Invoke performs the request against the live server.
func (c *ClientInvoker) Invoke(ctx context.Context, method, rawURL string, header http.Header) (*models.Response, error) {
	req, reqErr := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("creating request for '%s': %w", rawURL, reqErr)
	}
	for key, values := range header {
		req.Header[key] = values
	}

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("request to '%s': %w", rawURL, doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("reading body from '%s': %w", rawURL, readErr)
	}

	return &models.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
