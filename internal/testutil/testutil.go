// Package testutil provides the temporary workspaces, section file
// fixtures and config helpers shared by the warriormomma tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv is a throwaway workspace rooted in t.TempDir. Paths handed to its
// methods are relative to the root and may not leave it.
type TestEnv struct {
	t    *testing.T
	root string
}

// NewTestEnv creates a workspace that is removed when the test completes.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, root: t.TempDir()}
}

// RootDir returns the workspace root.
func (e *TestEnv) RootDir() string {
	return e.root
}

// Path joins elem onto the workspace root and fails the test if the
// result escapes it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	p := filepath.Join(append([]string{e.root}, elem...)...)
	if p != e.root && !strings.HasPrefix(p, e.root+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes test workspace %q", p, e.root)
	}
	return p
}

// WriteFileString writes content to path, creating parent directories.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()

	abs := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		e.t.Fatalf("failed to create directory for %q: %v", abs, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		e.t.Fatalf("failed to write %q: %v", abs, err)
	}
}

// ReadFile returns the content of path.
func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	content, err := os.ReadFile(e.Path(path))
	if err != nil {
		e.t.Fatalf("failed to read %q: %v", path, err)
	}
	return content
}

// RequireFileExists fails the test unless path exists.
func (e *TestEnv) RequireFileExists(path string) {
	e.t.Helper()

	if _, err := os.Stat(e.Path(path)); err != nil {
		e.t.Fatalf("expected file %q to exist: %v", path, err)
	}
}

// AssertFileContains reports an error unless path contains expected.
func (e *TestEnv) AssertFileContains(path, expected string) {
	e.t.Helper()

	if content := string(e.ReadFile(path)); !strings.Contains(content, expected) {
		e.t.Errorf("file %q does not contain %q", path, expected)
	}
}

// Chdir switches into path until the test completes. config.yaml is read
// from the working directory, so config tests run inside the workspace.
func (e *TestEnv) Chdir(path string) {
	e.t.Helper()

	orig, err := os.Getwd()
	if err != nil {
		e.t.Fatalf("failed to get current directory: %v", err)
	}
	if err := os.Chdir(e.Path(path)); err != nil {
		e.t.Fatalf("failed to change directory: %v", err)
	}
	e.t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			e.t.Errorf("failed to restore directory to %q: %v", orig, err)
		}
	})
}
