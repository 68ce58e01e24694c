package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"site-freezer/pkg/utils"
)

// Writer persists response bodies under the output root. It keeps a SHA-256
// registry of everything written this run: a second write to the same path
// with identical bytes is an idempotent no-op, differing bytes are a
// data-integrity error, never a silent overwrite.
type Writer struct {
	root string // Absolute output root

	mu      sync.Mutex
	written map[string]string // Relative path -> content hash

	log *logrus.Entry
}

// New resolves the output root and creates it if needed.
func New(root string, log *logrus.Entry) (*Writer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving output root '%s': %w", utils.ErrFilesystem, root, err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating output root '%s': %w", utils.ErrFilesystem, absRoot, err)
	}
	return &Writer{
		root:    absRoot,
		written: make(map[string]string),
		log:     log,
	}, nil
}

// Root returns the absolute output root.
func (w *Writer) Root() string {
	return w.root
}

// Write persists body at the given root-relative path, creating parent
// directories as needed. Returns the absolute path written.
// Errors: ErrCollision when the path was already written with different
// bytes or clashes file-vs-directory with another written path, ErrFilesystem
// for other OS failures or paths resolving outside the root.
func (w *Writer) Write(relPath string, body []byte) (string, error) {
	absPath := filepath.Join(w.root, relPath)
	// Join cleans the path; anything traversing above the root is refused
	if absPath != w.root && !strings.HasPrefix(absPath, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path '%s' resolves outside output root", utils.ErrFilesystem, relPath)
	}

	hash := utils.HashBytes(body)

	w.mu.Lock()
	previous, seen := w.written[relPath]
	if !seen {
		w.written[relPath] = hash
	}
	w.mu.Unlock()

	if seen {
		if previous != hash {
			return "", fmt.Errorf("%w: '%s' already written with different content", utils.ErrCollision, relPath)
		}
		w.log.Debugf("Idempotent re-write of %s, skipping", relPath)
		return absPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		w.forget(relPath)
		if isPathTypeConflict(err) {
			return "", fmt.Errorf("%w: '%s' needs a directory where a file was already written: %w", utils.ErrCollision, relPath, err)
		}
		return "", fmt.Errorf("%w: creating directories for '%s': %w", utils.ErrFilesystem, relPath, err)
	}
	if err := os.WriteFile(absPath, body, 0644); err != nil {
		w.forget(relPath)
		if isPathTypeConflict(err) {
			return "", fmt.Errorf("%w: '%s' already exists as a directory: %w", utils.ErrCollision, relPath, err)
		}
		return "", fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, relPath, err)
	}

	w.log.WithFields(logrus.Fields{"path": relPath, "bytes": len(body)}).Debug("Wrote file")
	return absPath, nil
}

// PathExistsWithHash reports whether the file at relPath exists on disk with
// the given content hash. Used by incremental freezes to skip unchanged pages.
func (w *Writer) PathExistsWithHash(relPath, hash string) bool {
	absPath := filepath.Join(w.root, relPath)
	onDisk, err := utils.HashFile(absPath)
	if err != nil {
		return false
	}
	if onDisk == hash {
		// Register so a colliding URL mapping to this path is still caught
		w.mu.Lock()
		if _, seen := w.written[relPath]; !seen {
			w.written[relPath] = hash
		}
		w.mu.Unlock()
		return true
	}
	return false
}

// CleanRoot removes the previous output tree. A safety check refuses to
// delete anything that does not resolve strictly under the parent of the
// configured root, mirroring how destructive cleanup is guarded elsewhere
// in this codebase.
func (w *Writer) CleanRoot() error {
	w.log.Warnf("Removing existing output directory: %s", w.root)

	parent := filepath.Dir(w.root)
	if w.root == "" || w.root == parent || w.root == string(filepath.Separator) {
		return fmt.Errorf("%w: refusing to remove suspicious output root '%s'", utils.ErrFilesystem, w.root)
	}

	if err := os.RemoveAll(w.root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: removing output root '%s': %w", utils.ErrFilesystem, w.root, err)
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("%w: recreating output root '%s': %w", utils.ErrFilesystem, w.root, err)
	}

	w.mu.Lock()
	w.written = make(map[string]string)
	w.mu.Unlock()
	return nil
}

// isPathTypeConflict reports whether err is a file-vs-directory clash: one
// URL froze to a file where another needs a directory, or vice versa. That is
// a per-page collision between two mapped paths, not a broken output root.
func isPathTypeConflict(err error) bool {
	return errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.EISDIR)
}

// forget drops a path from the registry after a failed write so a retry is
// not misreported as a collision.
func (w *Writer) forget(relPath string) {
	w.mu.Lock()
	delete(w.written, relPath)
	w.mu.Unlock()
}
