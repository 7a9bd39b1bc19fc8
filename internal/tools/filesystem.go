package tools

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"foreman/internal/workspace"
)

// Filesystem performs workspace-confined file operations.
type Filesystem struct {
	ws *workspace.Workspace
}

func NewFilesystem(ws *workspace.Workspace) *Filesystem {
	return &Filesystem{ws: ws}
}

func (f *Filesystem) Root() string {
	return f.ws.Root()
}

func (f *Filesystem) Read(path string) (string, error) {
	resolved, err := f.ws.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (f *Filesystem) Write(path, content string) error {
	resolved, err := f.ws.Resolve(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// List returns the workspace-relative entries of a directory.
func (f *Filesystem) List(path string) ([]string, error) {
	resolved, err := f.ws.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, f.ws.Rel(filepath.Join(resolved, e.Name())))
	}
	sort.Strings(out)
	return out, nil
}

// Search walks the workspace and returns relative paths whose base name
// matches the glob pattern, in walk order.
func (f *Filesystem) Search(pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(f.ws.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, f.ws.Rel(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search workspace: %w", err)
	}
	return matches, nil
}

func (f *Filesystem) Mkdir(path string) error {
	resolved, err := f.ws.Resolve(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

func (f *Filesystem) Delete(path string) error {
	resolved, err := f.ws.Resolve(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.Remove(resolved); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
