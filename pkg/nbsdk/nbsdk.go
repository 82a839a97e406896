// Package nbsdk is the notebook handle injected into every session as the
// binding `nb`. It gives cell code access to the session scratch directory
// (where component assets are staged) and small presentation helpers. All
// file paths are confined to the scratch directory.
package nbsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Handle is the per-session notebook API object.
type Handle struct {
	dir string
}

// NewHandle creates a handle rooted at the session scratch directory.
func NewHandle(dir string) *Handle {
	return &Handle{dir: dir}
}

// Dir returns the scratch directory path.
func (h *Handle) Dir() string { return h.dir }

func (h *Handle) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("path %q escapes the session directory", name)
	}
	return filepath.Join(h.dir, name), nil
}

// ReadFile returns the contents of a staged file as a string.
func (h *Handle) ReadFile(name string) (string, error) {
	b, err := h.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes returns the contents of a staged file.
func (h *Handle) ReadBytes(name string) ([]byte, error) {
	path, err := h.resolve(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return b, nil
}

// WriteFile writes content into the session directory.
func (h *Handle) WriteFile(name, content string) error {
	path, err := h.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ListFiles returns the names of regular files in the session directory,
// sorted.
func (h *Handle) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list session files: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// HTML wraps raw HTML so the runtime renders it as markup instead of text.
func (h *Handle) HTML(s string) *HTMLValue { return HTML(s) }

// Md renders a small markdown subset to HTML.
func (h *Handle) Md(s string) *HTMLValue { return Md(s) }

func (h *Handle) String() string {
	return fmt.Sprintf("<notebook dir=%q>", h.dir)
}
