package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectScanner(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	files := map[string]string{
		"loop.ir":          "programs: []",
		"notes.txt":        "This is a text file",
		"nested/deref.ir":  "programs: []",
		".cache/cached.ir": "programs: []",
	}

	for path, content := range files {
		fullPath := filepath.Join(tempDir, path)
		err := os.MkdirAll(filepath.Dir(fullPath), 0o755)
		require.NoError(t, err)
		err = os.WriteFile(fullPath, []byte(content), 0o644)
		require.NoError(t, err)
	}

	scanner := New(tempDir, ".ir")
	scannedFiles, err := scanner.Scan()
	require.NoError(t, err)

	require.Len(t, scannedFiles, 2, "Should find 2 program files")
	assert.Equal(t, filepath.Join(tempDir, "loop.ir"), scannedFiles[0].Path)
	assert.Equal(t, filepath.Join(tempDir, "nested/deref.ir"), scannedFiles[1].Path)
	for _, file := range scannedFiles {
		assert.Greater(t, file.Size, int64(0), "File size should be greater than 0")
	}

	all, err := New(tempDir).Scan()
	require.NoError(t, err)
	assert.Len(t, all, 3, "hidden directories are skipped")

	dirs, err := scanner.Dirs()
	require.NoError(t, err)
	assert.Equal(t, []string{tempDir, filepath.Join(tempDir, "nested")}, dirs)

	_, err = New(filepath.Join(tempDir, "missing")).Scan()
	assert.Error(t, err)
}
