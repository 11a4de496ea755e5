package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDocumentFiles(t *testing.T) {
	files, err := FindDocumentFiles([]string{"testdata/docs", "testdata/bad/broken.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "docs", "equality.yaml"),
		filepath.Join("testdata", "docs", "like.yaml"),
		"testdata/bad/broken.yaml",
	}, files)
}

func TestFindDocumentFiles_NotFound(t *testing.T) {
	_, err := FindDocumentFiles([]string{"testdata/nope"})
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
	assert.Equal(t, "testdata/nope: E005: path not found", loadErr.Error())
}

func TestFindFiles_FilterAndGolden(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"null-a.yaml", "null-b.yml", "range.yaml", "notes.txt", "golden/null-a.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))
	}

	all, err := findFiles(dir, []string{".yaml", ".yml"}, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := findFiles(dir, []string{".yaml", ".yml"}, "null-*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "null-a.yaml"), filepath.Join(dir, "null-b.yml")}, filtered)

	_, err = findFiles(dir, []string{".yaml"}, "[")
	assert.Error(t, err)
}

func TestLoadDocuments(t *testing.T) {
	docs, errs := LoadDocuments([]string{"testdata/docs"}, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, docs, 2)
	assert.Equal(t, "nullable-equality", docs[0].Document.Name)
	assert.Equal(t, "like", docs[1].Document.Name)
}

func TestLoadDocuments_Modes(t *testing.T) {
	paths := []string{"testdata/bad/typo.yaml", "testdata/docs/like.yaml", "testdata/bad/typo.yaml"}

	docs, errs := LoadDocuments(paths, LoadModeFailFast)
	assert.Empty(t, docs)
	require.Len(t, errs, 1)

	docs, errs = LoadDocuments(paths, LoadModeCollectAll)
	assert.Len(t, docs, 1)
	require.Len(t, errs, 2)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeLoadFailed, loadErr.Code)
	assert.Equal(t, "testdata/bad/typo.yaml", loadErr.Path)
}

func TestLoadDocuments_NoFiles(t *testing.T) {
	_, errs := LoadDocuments([]string{t.TempDir()}, LoadModeFailFast)
	require.Len(t, errs, 1)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}
