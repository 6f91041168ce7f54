// Package workspace manages per-invocation scratch files that hold source
// code for the compiler.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/itstheanurag/ligo-compiler-api/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	sourceExt       = ".ligo"
	preprocessedExt = ".pp.ligo"
)

// IOError reports a scratch file that could not be created or written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("workspace %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

type Manager struct {
	dir    string
	logger *zerolog.Logger
}

// New returns a Manager rooted at dir, creating the directory if needed.
func New(dir string, logger *zerolog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return &Manager{dir: dir, logger: logger}, nil
}

func (m *Manager) Dir() string {
	return m.dir
}

// Acquire writes content to a uniquely named file in the scratch directory.
// The caller must Release the returned handle.
func (m *Manager) Acquire(content string) (*Handle, error) {
	f, err := os.CreateTemp(m.dir, "*"+sourceExt)
	if err != nil {
		return nil, &IOError{Op: "create", Path: m.dir, Err: err}
	}
	name := f.Name()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return nil, &IOError{Op: "write", Path: name, Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return nil, &IOError{Op: "close", Path: name, Err: err}
	}

	return &Handle{path: name, logger: m.logger}, nil
}

// Handle owns one scratch file for the duration of an invocation.
type Handle struct {
	path   string
	logger *zerolog.Logger
	once   sync.Once
}

func (h *Handle) Path() string {
	return h.path
}

// PreprocessedPath is the sibling file the compiler may leave next to the source.
func (h *Handle) PreprocessedPath() string {
	return strings.TrimSuffix(h.path, sourceExt) + preprocessedExt
}

// Release removes the source file and its preprocessed sibling. Removal
// failures are logged and never returned. Calling Release more than once
// is a no-op.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.remove(h.path)
		h.remove(h.PreprocessedPath())
	})
}

func (h *Handle) remove(path string) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}
	metrics.WorkspaceCleanupFailures.Inc()
	if h.logger != nil {
		h.logger.Warn().Err(err).Str("file", path).Msg("unable to remove scratch file")
	}
}
