// Package workspace manages the per-deployment working directories that hold
// generated descriptors.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultBaseDir is where working directories are created unless configured otherwise.
const DefaultBaseDir = "/tmp/build-sources"

// Workspace creates working directories under a base directory.
type Workspace struct {
	fs   afero.Fs
	base string
}

// New creates a workspace rooted at base on fs. A nil fs means the OS filesystem.
func New(fs afero.Fs, base string) *Workspace {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if base == "" {
		base = DefaultBaseDir
	}
	return &Workspace{fs: fs, base: base}
}

// Fs returns the filesystem the workspace writes to.
func (w *Workspace) Fs() afero.Fs {
	return w.fs
}

// Base returns the base directory.
func (w *Workspace) Base() string {
	return w.base
}

// EnsureDirectory creates <base>/<kind>/<id> if needed and returns its path.
func (w *Workspace) EnsureDirectory(kind, id string) (string, error) {
	if err := checkSegment(kind); err != nil {
		return "", fmt.Errorf("kind: %w", err)
	}
	if err := checkSegment(id); err != nil {
		return "", fmt.Errorf("id: %w", err)
	}

	dir := filepath.Join(w.base, kind, id)
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workdir %s: %w", dir, err)
	}
	return dir, nil
}

// WriteFile writes data to name inside dir, replacing any previous content.
func (w *Workspace) WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(w.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func checkSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid path segment %q", s)
	}
	return nil
}
