package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_InsideRoot(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := ws.Resolve("sub/file.go")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Dir(filepath.Dir(resolved)) != ws.Root() {
		t.Fatalf("resolved %q not under root %q", resolved, ws.Root())
	}
}

func TestResolve_EscapeRejected(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []string{
		"../outside.txt",
		"sub/../../outside.txt",
		"/etc/passwd",
	}
	for _, path := range tests {
		if _, err := ws.Resolve(path); !errors.Is(err, ErrOutsideRoot) {
			t.Fatalf("Resolve(%q) err=%v, want ErrOutsideRoot", path, err)
		}
	}
}

func TestResolve_EmptyDefaultsToRoot(t *testing.T) {
	root := t.TempDir()
	ws, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	resolved, err := ws.Resolve("")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != ws.Root() {
		t.Fatalf("Resolve(\"\")=%q, want root %q", resolved, ws.Root())
	}
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "ws")
	ws, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := os.Stat(ws.Root()); err != nil {
		t.Fatalf("root not created: %v", err)
	}
}
