// Package assets handles static resource loading and caching.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

// ErrNotFound is returned when no mounted source has the requested file.
var ErrNotFound = errors.New("asset not found")

//go:embed resources
var embedded embed.FS

// Embedded returns the resources compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "resources")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}

type source struct {
	name string
	fsys fs.FS
}

// Manager handles resource loading from mounted file systems.
type Manager struct {
	sources []source
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a new asset manager with no sources.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// NewDefaultManager creates a manager with the embedded resources mounted.
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Mount("embedded", Embedded())
	return m
}

// Mount adds a file system to the manager.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) Mount(name string, fsys fs.FS) {
	m.mu.Lock()
	m.sources = append(m.sources, source{name: name, fsys: fsys})
	m.mu.Unlock()
}

// MountDir adds an override directory on disk.
func (m *Manager) MountDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening asset dir %s: not a directory", dir)
	}
	m.Mount(dir, os.DirFS(dir))
	return nil
}

// Sources returns the mounted source names in search order.
func (m *Manager) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sources))
	for i := len(m.sources) - 1; i >= 0; i-- {
		names = append(names, m.sources[i].name)
	}
	return names
}

// Load loads a file from the mounted sources.
func (m *Manager) Load(name string) ([]byte, error) {
	name = path.Clean(name)

	// Check cache first
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search sources in reverse order
	for i := len(m.sources) - 1; i >= 0; i-- {
		data, err := fs.ReadFile(m.sources[i].fsys, name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s from %s: %w", name, m.sources[i].name, err)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close unmounts all sources.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
