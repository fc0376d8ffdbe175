package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("CreatesParentDirectories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "out", "stores.json")
		sink, err := local.New(local.Config{Path: path})
		require.NoError(t, err)
		assert.Equal(t, path, sink.Path())
		info, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
	t.Run("MissingPath", func(t *testing.T) {
		_, err := local.New(local.Config{Path: "  "})
		assert.Error(t, err)
	})
	t.Run("PathIsDirectory", func(t *testing.T) {
		_, err := local.New(local.Config{Path: t.TempDir()})
		assert.Error(t, err)
	})
}

func TestFileSinkSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stores.json")
	sink, err := local.New(local.Config{Path: path})
	require.NoError(t, err)

	first := []crawler.StoreRecord{{ID: "store_1", Name: "A", MenuInfo: []string{"쿠키"}}}
	require.NoError(t, sink.Save(context.Background(), first))

	second := []crawler.StoreRecord{
		{ID: "store_1", Name: "A", MenuInfo: []string{"쿠키"}},
		{ID: "store_2", Name: "B", MenuInfo: []string{}},
	}
	require.NoError(t, sink.Save(context.Background(), second))

	got, err := local.Load(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[1].Name)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSinkSaveEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stores.json")
	sink, err := local.New(local.Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := local.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = local.Load(bad)
	assert.Error(t, err)
}
