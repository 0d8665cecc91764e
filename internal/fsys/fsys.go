// Package fsys is the narrow filesystem capability used by ingestion and
// remediation. Names are slash-separated and relative to the project root.
package fsys

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for names that resolve outside the project root.
var ErrOutsideRoot = errors.New("fsys: path outside project root")

// FS reads, writes, probes and lists files below a single root.
type FS interface {
	// Rel maps a path as it appears in a build log to a root-relative name.
	Rel(p string) (string, error)
	ReadFile(name string) ([]byte, error)
	// WriteFile replaces name atomically, creating parent directories and
	// keeping the mode of an existing file.
	WriteFile(name string, data []byte) error
	Exists(name string) (bool, error)
	// List returns every regular file below dir, sorted.
	List(dir string) ([]string, error)
}

// cleanName normalises a relative name and rejects traversal.
func cleanName(name string) (string, error) {
	if name == "" {
		return "", errors.New("fsys: empty path")
	}
	name = filepath.ToSlash(name)
	if strings.HasPrefix(name, "/") {
		return "", ErrOutsideRoot
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrOutsideRoot
	}
	return clean, nil
}

// relTo maps p against any of the given absolute roots.
func relTo(p string, roots ...string) (string, error) {
	if !filepath.IsAbs(p) {
		return cleanName(p)
	}
	for _, root := range roots {
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, filepath.Clean(p))
		if err != nil {
			continue
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return cleanName(rel)
	}
	return "", ErrOutsideRoot
}

// Within reports whether name lies in dir (or is dir itself).
func Within(name, dir string) bool {
	dir = strings.TrimSuffix(path.Clean(filepath.ToSlash(dir)), "/")
	if dir == "." || dir == "" {
		return true
	}
	return name == dir || strings.HasPrefix(name, dir+"/")
}
