package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideDirectory is returned for paths that escape the document directory
var ErrOutsideDirectory = errors.New("path is outside the document directory")

// PathValidator confines file paths to a single document directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("document directory cannot be empty")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	return &PathValidator{root: realPath(abs)}, nil
}

// Directory returns the absolute document directory
func (v *PathValidator) Directory() string {
	return v.root
}

// Resolve returns the absolute form of path. Relative paths are taken from
// the document directory; symlinks are followed before the containment check.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !v.contains(realPath(abs)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return abs, nil
}

// IsWithin reports whether path resolves inside the document directory
func (v *PathValidator) IsWithin(path string) bool {
	_, err := v.Resolve(path)
	return err == nil
}

func (v *PathValidator) contains(path string) bool {
	if path == v.root {
		return true
	}
	prefix := v.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// realPath follows symlinks in the longest existing prefix of path, so that
// files which are about to be created are checked by their parent directory
func realPath(path string) string {
	path = filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	if _, err := os.Lstat(path); err == nil {
		// exists but cannot be resolved, such as a dangling symlink
		return path
	}
	return filepath.Join(realPath(parent), filepath.Base(path))
}
