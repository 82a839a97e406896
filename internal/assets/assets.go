// Package assets stages a component's files from object storage into a
// session's scratch directory and resolves notebook sources. Asset staging
// is best-effort: a partially staged session is better than no session, so
// transport failures surface as one aggregate warning instead of failing
// session creation.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// Object-store layout. Both prefixes are enumerated; asset-type
// sub-directories are flattened away on download.
const (
	assetPrefix       = "components/%s/assets/"
	legacyAssetPrefix = "marimo/components/%s/assets/"
)

// Notebook sources live under two equivalent trailing filenames for
// backward compatibility.
const (
	notebookFilename  = "notebook.go"
	componentFilename = "component.go"
)

// ErrNotebookNotFound is returned when a notebook source exists under
// neither filename.
var ErrNotebookNotFound = errors.New("notebook source not found")

// Fetcher is the narrow interface the runtime has onto object storage.
type Fetcher interface {
	// Stat reports whether an object exists at path.
	Stat(ctx context.Context, objectPath string) bool

	// Fetch downloads the object at path.
	Fetch(ctx context.Context, objectPath string) ([]byte, error)

	// StageComponentAssets downloads every asset of the component into
	// destDir, flattening asset-type sub-directories. It returns how many
	// files were staged; a non-nil error is an aggregate warning and the
	// successfully staged files are still on disk.
	StageComponentAssets(ctx context.Context, componentID, destDir string) (int, error)
}

// ResolveNotebook fetches a notebook source, trying the given path first
// and then the same path with the trailing filename swapped between the
// two equivalent names.
func ResolveNotebook(ctx context.Context, f Fetcher, notebookPath string) ([]byte, error) {
	for _, candidate := range notebookCandidates(notebookPath) {
		if !f.Stat(ctx, candidate) {
			continue
		}
		data, err := f.Fetch(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch notebook %s: %w", candidate, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotebookNotFound, notebookPath)
}

func notebookCandidates(notebookPath string) []string {
	dir, file := path.Split(notebookPath)
	switch file {
	case componentFilename:
		return []string{notebookPath, dir + notebookFilename}
	case notebookFilename:
		return []string{notebookPath, dir + componentFilename}
	default:
		return []string{notebookPath}
	}
}

func assetPrefixes(componentID string) []string {
	return []string{
		fmt.Sprintf(assetPrefix, componentID),
		fmt.Sprintf(legacyAssetPrefix, componentID),
	}
}
