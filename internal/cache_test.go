package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfa/internal/analysis/interp"
	tt "github.com/gnolang/dfa/internal/types"
)

func TestCache(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	cacheDir := filepath.Join(tmpDir, "cache")
	cache, err := NewCache(cacheDir, time.Hour)
	require.NoError(t, err)

	t.Run("SaveAndLoad", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "test.ir")
		writeTestFile(t, filename, "programs: []\n")
		loc := tt.Location{Filename: filename, Line: 3, Column: 9}
		issues := []tt.Issue{{
			Rule:     "test-rule",
			Category: "test-category",
			Filename: filename,
			Message:  "test issue",
			Anchor:   loc,
			Start:    loc.Position(),
			End:      loc.Position(),
		}}

		require.NoError(t, cache.Set(filename, issues))
		loaded, found := cache.Get(filename)
		assert.True(t, found)
		assert.Equal(t, issues, loaded)

		// a second cache over the same directory reads the stored entries
		reopened, err := NewCache(cacheDir, time.Hour)
		require.NoError(t, err)
		loaded, found = reopened.Get(filename)
		assert.True(t, found)
		assert.Equal(t, issues, loaded)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.ir")
		assert.False(t, found)
	})

	t.Run("FileModified", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "modified.ir")
		writeTestFile(t, filename, "programs: []\n")
		require.NoError(t, cache.Set(filename, []tt.Issue{{Rule: "test-rule"}}))

		writeTestFile(t, filename, "programs: [{name: p}]\n")
		_, found := cache.Get(filename)
		assert.False(t, found)
	})

	t.Run("Invalidate", func(t *testing.T) {
		filename := filepath.Join(tmpDir, "dropped.ir")
		writeTestFile(t, filename, "programs: []\n")
		require.NoError(t, cache.Set(filename, nil))
		cache.InvalidateAll()
		_, found := cache.Get(filename)
		assert.False(t, found)
	})
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cache, err := NewCache(filepath.Join(tmpDir, "cache"), time.Nanosecond)
	require.NoError(t, err)

	filename := filepath.Join(tmpDir, "old.ir")
	writeTestFile(t, filename, "programs: []\n")
	require.NoError(t, cache.Set(filename, nil))
	time.Sleep(time.Millisecond)

	_, found := cache.Get(filename)
	assert.False(t, found)
}

func TestCacheDependencyChange(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	config := filepath.Join(tmpDir, ".dfa.yaml")
	writeTestFile(t, config, "name: dfa\n")

	cache, err := NewCache(cacheDir, 0, config)
	require.NoError(t, err)
	filename := filepath.Join(tmpDir, "a.ir")
	writeTestFile(t, filename, "programs: []\n")
	require.NoError(t, cache.Set(filename, []tt.Issue{{Rule: "r"}}))

	same, err := NewCache(cacheDir, 0, config)
	require.NoError(t, err)
	_, found := same.Get(filename)
	assert.True(t, found)

	writeTestFile(t, config, "name: dfa\nrules:\n  class-cast:\n    severity: OFF\n")
	changed, err := NewCache(cacheDir, 0, config)
	require.NoError(t, err)
	_, found = changed.Get(filename)
	assert.False(t, found)
}

func TestCacheWithEngine(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	cache, err := NewCache(filepath.Join(tmpDir, "cache"), time.Hour)
	require.NoError(t, err)
	engine, err := NewEngine(nil, WithCache(cache))
	require.NoError(t, err)

	filename := filepath.Join(tmpDir, "null.ir")
	writeTestFile(t, filename, nullProgram)

	issues, err := engine.Run(context.Background(), filename)
	require.NoError(t, err)
	require.NotEmpty(t, issues)

	cached, ok := cache.Get(filename)
	require.True(t, ok)
	assert.Equal(t, issues, cached)

	again, err := engine.Run(context.Background(), filename)
	require.NoError(t, err)
	assert.Equal(t, issues, again)
}

func TestCacheSkipsIncompleteAnalysis(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	cache, err := NewCache(filepath.Join(tmpDir, "cache"), time.Hour)
	require.NoError(t, err)
	engine, err := NewEngine(nil, WithCache(cache), WithLimits(interp.Options{MaxStates: 1}))
	require.NoError(t, err)

	filename := filepath.Join(tmpDir, "null.ir")
	writeTestFile(t, filename, nullProgram)

	for run := 0; run < 2; run++ {
		issues, err := engine.Run(context.Background(), filename)
		require.NoError(t, err)
		require.Len(t, issues, 1, "run %d", run)
		assert.Equal(t, string(tt.AnalysisIncomplete), issues[0].Rule)

		_, ok := cache.Get(filename)
		assert.False(t, ok, "run %d", run)
	}
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	cache, err := NewCache(filepath.Join(tempDir, "cache"), 0)
	require.NoError(t, err)

	testFile := filepath.Join(tempDir, "test.ir")
	writeTestFile(t, testFile, "programs: []\n")

	issues := []tt.Issue{{Rule: "test-rule", Category: "test", Filename: testFile, Message: "Test issue"}}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set(testFile, issues))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get(testFile)
		}()
	}
	wg.Wait()

	got, ok := cache.Get(testFile)
	assert.True(t, ok)
	assert.Equal(t, issues, got)
}

func writeTestFile(t *testing.T, filename string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
}
