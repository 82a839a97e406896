package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNotebook_DirectHit(t *testing.T) {
	f := NewMemoryFetcher()
	f.Put("books/demo/notebook.go", []byte("x := 1"))

	data, err := ResolveNotebook(context.Background(), f, "books/demo/notebook.go")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", string(data))
}

func TestResolveNotebook_FilenameFallback(t *testing.T) {
	f := NewMemoryFetcher()
	f.Put("books/demo/notebook.go", []byte("x := 1"))

	// Asked for component.go, only notebook.go exists.
	data, err := ResolveNotebook(context.Background(), f, "books/demo/component.go")
	require.NoError(t, err)
	assert.Equal(t, "x := 1", string(data))

	// And the other way round.
	g := NewMemoryFetcher()
	g.Put("books/demo/component.go", []byte("y := 2"))
	data, err = ResolveNotebook(context.Background(), g, "books/demo/notebook.go")
	require.NoError(t, err)
	assert.Equal(t, "y := 2", string(data))
}

func TestResolveNotebook_NotFound(t *testing.T) {
	f := NewMemoryFetcher()
	_, err := ResolveNotebook(context.Background(), f, "books/demo/notebook.go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotebookNotFound)
}

func TestStage_FlattensBothPrefixes(t *testing.T) {
	f := NewMemoryFetcher()
	f.Put("components/comp1/assets/data/input.csv", []byte("a,b"))
	f.Put("components/comp1/assets/images/logo.png", []byte{0x89, 0x50})
	f.Put("marimo/components/comp1/assets/data/legacy.csv", []byte("c,d"))
	f.Put("components/other/assets/data/nope.csv", []byte("x"))

	dir := t.TempDir()
	n, err := f.StageComponentAssets(context.Background(), "comp1", dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, name := range []string{"input.csv", "logo.png", "legacy.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dir, "nope.csv"))
	assert.True(t, os.IsNotExist(err), "other components' assets must not stage")
}

func TestStage_NoAssetsIsNotAnError(t *testing.T) {
	f := NewMemoryFetcher()
	n, err := f.StageComponentAssets(context.Background(), "comp1", t.TempDir())
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestStage_PartialFailureStagesTheRest(t *testing.T) {
	f := NewMemoryFetcher()
	f.Put("components/comp1/assets/data/good.csv", []byte("a"))
	f.Put("components/comp1/assets/data/bad.csv", []byte("b"))
	f.FailFetch = map[string]bool{"components/comp1/assets/data/bad.csv": true}

	dir := t.TempDir()
	n, err := f.StageComponentAssets(context.Background(), "comp1", dir)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	_, statErr := os.Stat(filepath.Join(dir, "good.csv"))
	assert.NoError(t, statErr)
}
