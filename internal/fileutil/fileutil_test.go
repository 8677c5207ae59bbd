package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morozRed/swampmonster/internal/languages"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestWriteIfChangedTracked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	changed, err := WriteIfChangedTracked(path, []byte("a"))
	require.NoError(t, err)
	assert.True(t, changed, "first write changes the file")

	changed, err = WriteIfChangedTracked(path, []byte("a"))
	require.NoError(t, err)
	assert.False(t, changed, "identical write is skipped")

	changed, err = WriteIfChangedTracked(path, []byte("b"))
	require.NoError(t, err)
	assert.True(t, changed, "new content is written")
}

func TestScanFileHashesHonoursIgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.cs":           "class A {}",
		"Gen/B.cs":       "class B {}",
		"obj/Debug/C.cs": "class C {}",
		"README.md":      "docs",
	})

	hashes, err := ScanFileHashes(root, languages.NewDefaultRegistry(), []string{"Gen/"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A.cs"}, MapKeysSorted(hashes))
	assert.Len(t, hashes["A.cs"], 16)
}

func TestScanFileHashesReincludesNegatedFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"skip/Ignored.cs": "class Ignored {}",
		"skip/Kept.cs":    "class Kept {}",
		"Main.cs":         "class Main {}",
	})

	hashes, err := ScanFileHashes(root, languages.NewDefaultRegistry(), []string{"skip/*", "!skip/Kept.cs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Main.cs", "skip/Kept.cs"}, MapKeysSorted(hashes))
}

func TestDedupeStringsKeepsFirstOccurrence(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, DedupeStrings([]string{"b", "a", "b", "c", "a"}))
}

func TestEncodeJSONL(t *testing.T) {
	data, err := EncodeJSONL([]map[string]int{{"a": 1}, {"b": 2}})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", string(data))
}

func TestWriteIfChangedTrackedCreatesParentAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "report")
	path := filepath.Join(dir, "page.html")

	_, err := WriteIfChangedTracked(path, []byte("<html></html>"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "page.html", entries[0].Name())
}
