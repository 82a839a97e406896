package assets

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MemoryFetcher is an in-memory Fetcher backed by a path→bytes map. Tests
// and local development use it in place of the object store.
type MemoryFetcher struct {
	Objects map[string][]byte

	// FailFetch lists object paths whose Fetch fails, for exercising the
	// partial-staging path.
	FailFetch map[string]bool
}

// NewMemoryFetcher creates an empty in-memory fetcher.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{Objects: make(map[string][]byte)}
}

// Put stores an object.
func (m *MemoryFetcher) Put(objectPath string, data []byte) {
	m.Objects[objectPath] = data
}

// Stat reports whether the object exists.
func (m *MemoryFetcher) Stat(_ context.Context, objectPath string) bool {
	_, ok := m.Objects[objectPath]
	return ok
}

// Fetch returns the stored object.
func (m *MemoryFetcher) Fetch(_ context.Context, objectPath string) ([]byte, error) {
	if m.FailFetch[objectPath] {
		return nil, fmt.Errorf("injected fetch failure: %s", objectPath)
	}
	data, ok := m.Objects[objectPath]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", objectPath)
	}
	return data, nil
}

// StageComponentAssets mirrors the object-store staging semantics: both
// prefixes, flattened filenames, aggregate error after best effort.
func (m *MemoryFetcher) StageComponentAssets(ctx context.Context, componentID, destDir string) (int, error) {
	var keys []string
	for _, prefix := range assetPrefixes(componentID) {
		for key := range m.Objects {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	staged := 0
	var errs []string
	for _, key := range keys {
		data, err := m.Fetch(ctx, key)
		if err == nil {
			err = os.WriteFile(filepath.Join(destDir, path.Base(key)), data, 0644)
		}
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		staged++
	}
	if len(errs) > 0 {
		return staged, fmt.Errorf("failed to stage %d of %d assets: %s", len(errs), len(keys), strings.Join(errs, "; "))
	}
	return staged, nil
}
