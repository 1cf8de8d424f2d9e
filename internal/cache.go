package internal

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	tt "github.com/gnolang/dfa/internal/types"
)

const cacheFileName = "dfa_cache.gob"

func init() {
	// Issue anchors are stored behind an interface.
	gob.Register(tt.Location{})
}

type fileMetadata struct {
	Hash         string
	LastModified time.Time
}

type CacheEntry struct {
	Metadata     fileMetadata
	Issues       []tt.Issue
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Cache keeps the issues of analyzed files on disk, keyed by file name and
// invalidated when the file, its age or any dependency changes.
type Cache struct {
	CacheDir         string
	entries          map[string]CacheEntry
	mutex            sync.Mutex
	maxAge           time.Duration
	dependencyFiles  []string
	dependencyHashes map[string]string
}

type cacheFile struct {
	Entries          map[string]CacheEntry
	DependencyHashes map[string]string
}

// NewCache opens the cache stored in cacheDir, creating the directory when
// needed. Files listed in deps, such as the configuration file, invalidate
// every entry when their content changes.
func NewCache(cacheDir string, maxAge time.Duration, deps ...string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache directory")
	}

	cache := &Cache{
		CacheDir:         cacheDir,
		entries:          make(map[string]CacheEntry),
		maxAge:           maxAge,
		dependencyFiles:  deps,
		dependencyHashes: make(map[string]string),
	}

	stored, err := cache.load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cache")
	}
	if cache.haveDependenciesChanged(stored) {
		cache.entries = make(map[string]CacheEntry)
	}
	if err := cache.updateDependencyHashes(); err != nil {
		return nil, err
	}
	return cache, nil
}

func (c *Cache) path() string {
	return filepath.Join(c.CacheDir, cacheFileName)
}

// load reads the entries and returns the dependency hashes they were
// computed with.
func (c *Cache) load() (map[string]string, error) {
	file, err := os.Open(c.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cache file")
	}
	defer file.Close()

	var stored cacheFile
	if err := gob.NewDecoder(file).Decode(&stored); err != nil {
		return nil, errors.Wrap(err, "failed to decode cache file")
	}
	if stored.Entries != nil {
		c.entries = stored.Entries
	}
	return stored.DependencyHashes, nil
}

func (c *Cache) save() error {
	file, err := os.Create(c.path())
	if err != nil {
		return errors.Wrap(err, "failed to create cache file")
	}
	defer file.Close()

	stored := cacheFile{Entries: c.entries, DependencyHashes: c.dependencyHashes}
	if err := gob.NewEncoder(file).Encode(stored); err != nil {
		return errors.Wrap(err, "failed to encode cache file")
	}
	return nil
}

// Set stores the issues of filename.
func (c *Cache) Set(filename string, issues []tt.Issue) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	metadata, err := getFileMetadata(filename)
	if err != nil {
		return errors.Wrap(err, "failed to get file metadata")
	}

	now := time.Now()
	c.entries[filename] = CacheEntry{
		Metadata:     metadata,
		Issues:       issues,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return c.save()
}

// Get returns the stored issues of filename if they are still valid.
func (c *Cache) Get(filename string) ([]tt.Issue, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[filename]
	if !exists {
		return nil, false
	}

	if c.isEntryInvalid(filename, entry) {
		delete(c.entries, filename)
		return nil, false
	}

	entry.LastAccessed = time.Now()
	c.entries[filename] = entry

	return entry.Issues, true
}

func (c *Cache) isEntryInvalid(filename string, entry CacheEntry) bool {
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return true
	}
	currentMetadata, err := getFileMetadata(filename)
	return err != nil || currentMetadata.Hash != entry.Metadata.Hash
}

func (c *Cache) haveDependenciesChanged(stored map[string]string) bool {
	for _, file := range c.dependencyFiles {
		hash, err := getFileHash(file)
		if err != nil || hash != stored[file] {
			return true
		}
	}
	return len(stored) != len(c.dependencyFiles)
}

func (c *Cache) updateDependencyHashes() error {
	for _, file := range c.dependencyFiles {
		hash, err := getFileHash(file)
		if err != nil {
			return errors.Wrapf(err, "failed to get hash for %s", file)
		}
		c.dependencyHashes[file] = hash
	}
	return nil
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
	_ = c.save() // ignore error as this is a manual operation
}

func getFileMetadata(filename string) (fileMetadata, error) {
	hash, err := getFileHash(filename)
	if err != nil {
		return fileMetadata{}, err
	}
	info, err := os.Stat(filename)
	if err != nil {
		return fileMetadata{}, errors.Wrap(err, "failed to get file info")
	}
	return fileMetadata{Hash: hash, LastModified: info.ModTime()}, nil
}

func getFileHash(filename string) (string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	return strconv.FormatUint(xxhash.Sum64(content), 16), nil
}
