package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedExtractionResource(t *testing.T) {
	m := NewDefaultManager()

	data, err := m.Load("extracted_reference.stl")
	require.NoError(t, err)
	// Binary STL: 80-byte header, count, 12 triangles
	assert.Len(t, data, 84+12*50)
}

func TestManager_PriorityAndCache(t *testing.T) {
	m := NewManager()
	m.Mount("base", fstest.MapFS{
		"a.stl": {Data: []byte("base a")},
		"b.stl": {Data: []byte("base b")},
	})
	m.Mount("override", fstest.MapFS{
		"a.stl": {Data: []byte("override a")},
	})

	assert.Equal(t, []string{"override", "base"}, m.Sources())

	data, err := m.Load("a.stl")
	require.NoError(t, err)
	assert.Equal(t, "override a", string(data))

	data, err = m.Load("./b.stl")
	require.NoError(t, err)
	assert.Equal(t, "base b", string(data))

	_, err = m.Load("a.stl")
	require.NoError(t, err)

	hits, misses := m.Cache().Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)
	assert.Equal(t, 2, m.Cache().Len())
}

func TestManager_NotFound(t *testing.T) {
	m := NewDefaultManager()
	_, err := m.Load("missing.stl")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestManager_MountDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extracted_reference.stl"), []byte("custom"), 0644))

	m := NewDefaultManager()
	require.NoError(t, m.MountDir(dir))

	data, err := m.Load("extracted_reference.stl")
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))

	assert.Error(t, m.MountDir(filepath.Join(dir, "nope")))
	assert.Error(t, m.MountDir(filepath.Join(dir, "extracted_reference.stl")))
}

func TestManager_Close(t *testing.T) {
	m := NewDefaultManager()
	_, err := m.Load("extracted_reference.stl")
	require.NoError(t, err)

	m.Close()
	assert.Empty(t, m.Sources())
	assert.Equal(t, 0, m.Cache().Len())

	_, err = m.Load("extracted_reference.stl")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("x")
	assert.False(t, ok)

	c.Set("x", []byte{1})
	data, ok := c.Get("x")
	assert.True(t, ok)
	assert.Equal(t, []byte{1}, data)

	c.Clear()
	hits, misses := c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}
