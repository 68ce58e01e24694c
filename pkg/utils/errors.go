package utils

import (
	"context"
	"errors"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidURL       = errors.New("invalid URL")                   // Malformed or non-http(s) URL
	ErrOutsideScope     = errors.New("URL outside site prefix")       // Valid URL, but external to the frozen site
	ErrFetch            = errors.New("handler fetch failed")          // Wraps the underlying handler failure (panic, transport error)
	ErrUnexpectedStatus = errors.New("unexpected response status")    // Non-2xx, non-redirect status for an internal page
	ErrRedirectLoop     = errors.New("redirect chain exceeded limit") // Hop count exceeded or cyclic targets
	ErrMissingLocation  = errors.New("redirect without Location")     // 3xx response missing a redirect target
	ErrCollision        = errors.New("path collision")                // Two URLs mapped to one path with differing content
	ErrFilesystem       = errors.New("filesystem error")              // Wraps os errors from the writer
	ErrStateStore       = errors.New("state store error")             // Wraps badger errors
	ErrConfigValidation = errors.New("configuration validation error")
)

// CategorizeError maps an error to a predefined category string for logging and
// the final report.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidURL):
		return "URL_Invalid"
	case errors.Is(err, ErrOutsideScope):
		return "URL_OutsideScope"
	case errors.Is(err, ErrUnexpectedStatus):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404") {
			return "Status_404"
		}
		if strings.Contains(errMsg, " 500") {
			return "Status_500"
		}
		return "Status_Unexpected"
	case errors.Is(err, ErrRedirectLoop):
		return "Redirect_Loop"
	case errors.Is(err, ErrMissingLocation):
		return "Redirect_NoLocation"
	case errors.Is(err, ErrFetch):
		if strings.Contains(err.Error(), "panic") {
			return "Fetch_HandlerPanic"
		}
		return "Fetch_Failed"
	case errors.Is(err, ErrCollision):
		return "Write_Collision"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrStateStore):
		return "StateStore_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// Context errors surface when the crawl is cancelled or times out
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	return "Unknown"
}
