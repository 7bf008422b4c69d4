package emit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pelletier/go-toml"
)

// cacheIndexFileName is the name of the fingerprint index in the cache
// directory.
const cacheIndexFileName = "fingerprints.toml"

// tomlCacheIndex is the fingerprint index as it is encoded in TOML.
type tomlCacheIndex struct {
	Outputs []tomlCacheEntry `toml:"outputs"`
}

type tomlCacheEntry struct {
	Path string `toml:"path"`
	Hash string `toml:"hash"`
}

// Cache records the fingerprints of the artifacts written by previous builds
// so that unchanged outputs are not rewritten.  A disabled cache writes every
// output.  It is safe for concurrent use.
type Cache struct {
	dir     string
	enabled bool

	m       *sync.Mutex
	entries map[string]uint64
}

// Fingerprint returns the xxhash of an artifact.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// OpenCache loads the fingerprint index stored in dir.  A missing index is
// treated as empty.
func OpenCache(dir string, enabled bool) (*Cache, error) {
	c := &Cache{
		dir:     dir,
		enabled: enabled,
		m:       &sync.Mutex{},
		entries: make(map[string]uint64),
	}

	if !enabled {
		return c, nil
	}

	buff, err := os.ReadFile(filepath.Join(dir, cacheIndexFileName))
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading cache index: %w", err)
	}

	index := &tomlCacheIndex{}
	if err := toml.Unmarshal(buff, index); err != nil {
		return nil, fmt.Errorf("parsing cache index: %w", err)
	}

	for _, entry := range index.Outputs {
		hash, err := strconv.ParseUint(entry.Hash, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fingerprint for `%s` in cache index", entry.Path)
		}

		c.entries[entry.Path] = hash
	}

	return c, nil
}

// Unchanged returns whether the file at path already holds data.  The index
// must record the fingerprint of data and the file on disk must still match it.
func (c *Cache) Unchanged(path string, data []byte) bool {
	if !c.enabled {
		return false
	}

	c.m.Lock()
	hash, ok := c.entries[path]
	c.m.Unlock()

	if !ok || hash != Fingerprint(data) {
		return false
	}

	existing, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	return Fingerprint(existing) == hash
}

// WriteFile writes an artifact unless it is unchanged.  It returns whether
// the file was written.
func (c *Cache) WriteFile(path string, data []byte) (bool, error) {
	if c.Unchanged(path, data) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, err
	}

	if c.enabled {
		c.m.Lock()
		c.entries[path] = Fingerprint(data)
		c.m.Unlock()
	}

	return true, nil
}

// Save writes the fingerprint index back to the cache directory.
func (c *Cache) Save() error {
	if !c.enabled {
		return nil
	}

	c.m.Lock()
	index := &tomlCacheIndex{}
	for path, hash := range c.entries {
		index.Outputs = append(index.Outputs, tomlCacheEntry{Path: path, Hash: fmt.Sprintf("%016x", hash)})
	}
	c.m.Unlock()

	sort.Slice(index.Outputs, func(i, j int) bool {
		return index.Outputs[i].Path < index.Outputs[j].Path
	})

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(index); err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(c.dir, cacheIndexFileName), buf.Bytes(), 0644)
}
