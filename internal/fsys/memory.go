package fsys

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory FS. Root is only used to map absolute log paths.
type Memory struct {
	Root string

	mu     sync.Mutex
	files  map[string][]byte
	writes int
	// FailWrite, when set, is consulted before every write; a non-nil
	// result is returned instead of writing.
	FailWrite func(name string) error
}

// NewMemory returns a Memory rooted at root populated with files.
func NewMemory(root string, files map[string]string) *Memory {
	m := &Memory{Root: root, files: make(map[string][]byte, len(files))}
	for name, content := range files {
		clean, err := cleanName(name)
		if err != nil {
			continue
		}
		m.files[clean] = []byte(content)
	}
	return m
}

func (m *Memory) Rel(p string) (string, error) {
	return relTo(p, m.Root)
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[clean]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: clean, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) WriteFile(name string, data []byte) error {
	clean, err := cleanName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite != nil {
		if err := m.FailWrite(clean); err != nil {
			return fmt.Errorf("fsys: write %s: %w", clean, err)
		}
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[clean] = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *Memory) Exists(name string) (bool, error) {
	clean, err := cleanName(name)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[clean]; ok {
		return true, nil
	}
	prefix := clean + "/"
	for k := range m.files {
		if strings.HasPrefix(k, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) List(dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for k := range m.files {
		if Within(k, dir) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Writes returns how many successful writes the Memory has seen.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Content returns the current content of name, or "" when absent.
func (m *Memory) Content(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.files[name])
}
