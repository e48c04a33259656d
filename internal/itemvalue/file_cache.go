package itemvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileCache persists values as a single indented JSON object keyed by item
// name. The format matches the legacy item_data.json cache.
type FileCache struct {
	mu   sync.Mutex
	path string
	data map[string]Values
}

// NewFileCache returns a FileCache at path. The file is created on first Put.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the cache file. A missing file is an empty cache.
func (c *FileCache) Load(ctx context.Context) (map[string]Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]Values)
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return copyValues(c.data), nil
		}
		return nil, fmt.Errorf("reading value cache %s: %w", c.path, err)
	}
	if err := json.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("parsing value cache %s: %w", c.path, err)
	}
	return copyValues(c.data), nil
}

// Put records v and rewrites the file.
func (c *FileCache) Put(ctx context.Context, name string, v Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		c.data = make(map[string]Values)
	}
	c.data[name] = v
	return c.saveLocked()
}

// saveLocked writes the cache to disk. Caller must hold c.mu.
func (c *FileCache) saveLocked() error {
	raw, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding value cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating value cache dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, raw, 0644); err != nil {
		return fmt.Errorf("writing value cache %s: %w", c.path, err)
	}
	return nil
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]Values
}

// NewMemoryCache returns a MemoryCache seeded with initial, which may be nil.
func NewMemoryCache(initial map[string]Values) *MemoryCache {
	c := &MemoryCache{data: make(map[string]Values, len(initial))}
	for k, v := range initial {
		c.data[k] = v
	}
	return c
}

// Load returns a copy of the cached entries.
func (c *MemoryCache) Load(ctx context.Context) (map[string]Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyValues(c.data), nil
}

// Put records v.
func (c *MemoryCache) Put(ctx context.Context, name string, v Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[name] = v
	return nil
}

func copyValues(in map[string]Values) map[string]Values {
	out := make(map[string]Values, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
