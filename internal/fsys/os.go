package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// OS is an FS bound to a directory on disk. Symlinks are resolved before
// every access so a link cannot lead outside the root.
type OS struct {
	root    string // absolute, as given
	absRoot string // absolute with symlinks resolved
}

// NewOS locks all operations to root, which must be an existing directory.
func NewOS(root string) (*OS, error) {
	if root == "" {
		return nil, errors.New("fsys: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fsys: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("fsys: resolve root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("fsys: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fsys: root %s is not a directory", root)
	}
	return &OS{root: abs, absRoot: resolved}, nil
}

// Root returns the symlink-resolved root directory.
func (o *OS) Root() string { return o.absRoot }

func (o *OS) Rel(p string) (string, error) {
	return relTo(p, o.root, o.absRoot)
}

func (o *OS) ReadFile(name string) ([]byte, error) {
	p, err := o.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (o *OS) WriteFile(name string, data []byte) error {
	p, err := o.resolve(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsys: create %s: %w", dir, err)
	}
	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(p); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".remedy-*")
	if err != nil {
		return fmt.Errorf("fsys: write %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Chmod(tmpPath, mode)
	}
	if writeErr == nil {
		writeErr = os.Rename(tmpPath, p)
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsys: write %s: %w", name, writeErr)
	}
	return nil
}

func (o *OS) Exists(name string) (bool, error) {
	p, err := o.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (o *OS) List(dir string) ([]string, error) {
	start := o.absRoot
	if dir != "" && dir != "." {
		p, err := o.resolve(dir)
		if err != nil {
			return nil, err
		}
		start = p
	}
	out := make([]string, 0, 64)
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != start && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(o.absRoot, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsys: list %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// resolve maps a relative name to an absolute path under the root. Missing
// trailing components are allowed so that writes can create new files.
func (o *OS) resolve(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(o.absRoot, filepath.FromSlash(clean))

	p := joined
	suffix := ""
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			full := resolved
			if suffix != "" {
				full = filepath.Join(resolved, suffix)
			}
			if !hasPathPrefix(full, o.absRoot) {
				return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
			}
			return full, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		suffix = filepath.Join(filepath.Base(p), suffix)
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
		}
		p = parent
	}
}

func hasPathPrefix(p, root string) bool {
	p = filepath.Clean(p)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		p = strings.ToLower(p)
		root = strings.ToLower(root)
	}
	if p == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(p, root)
}
