package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scanlab/pkg/colors"
	"github.com/Faultbox/scanlab/pkg/formats"
	"github.com/Faultbox/scanlab/pkg/math"
)

func testMesh(n int) *formats.Mesh {
	m := &formats.Mesh{Format: formats.FormatSTL}
	for i := 0; i < n; i++ {
		m.Vertices = append(m.Vertices, math.Vec3{X: float32(i)})
	}
	return m
}

func TestNewAsset_BaseColors(t *testing.T) {
	a := NewAsset(RoleReference, "reference.stl", testMesh(1000), colors.Base)

	require.Equal(t, 1000, a.VertexCount())
	require.Len(t, a.Colors, 1000)
	for i, c := range a.Colors {
		if c != colors.Base {
			t.Fatalf("vertex %d: expected base color, got %s", i, c)
		}
	}
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, formats.FormatSTL, a.Format)
	assert.Equal(t, math.Transform{}, a.Transform)
}

func TestNewAsset_Empty(t *testing.T) {
	a := NewAsset(RoleScan, "empty.stl", testMesh(0), colors.Base)
	assert.Equal(t, 0, a.VertexCount())
	assert.Empty(t, a.Colors)
}

func TestAsset_SetColors(t *testing.T) {
	a := NewAsset(RoleScan, "s.stl", testMesh(3), colors.Base)

	err := a.SetColors(colors.Fill(2, colors.Highlight))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrColorCount))
	assert.Equal(t, colors.Base, a.Colors[0], "colors unchanged on error")

	require.NoError(t, a.SetColors(colors.Fill(3, colors.Highlight)))
	assert.Equal(t, colors.Highlight, a.Colors[2])
}

func TestAsset_WorldVertices(t *testing.T) {
	a := NewAsset(RoleScan, "s.stl", testMesh(2), colors.Base)
	a.Transform = math.At(math.Vec3{X: 200})

	world := a.WorldVertices()
	assert.Equal(t, math.Vec3{X: 201}, world[1])
	assert.Equal(t, math.Vec3{X: 1}, a.Vertices[1], "model vertices untouched")
}

func TestRegistry_UpsertReplacesByRole(t *testing.T) {
	r := New()

	first := NewAsset(RoleReference, "a.stl", testMesh(10), colors.Base)
	assert.Nil(t, r.Upsert(first))
	r.Upsert(NewAsset(RoleScan, "b.stl", testMesh(5), colors.Base))

	second := NewAsset(RoleReference, "c.stl", testMesh(20), colors.Base)
	prev := r.Upsert(second)

	assert.Same(t, first, prev)
	assert.Equal(t, 2, r.Len())
	assert.Same(t, second, r.Get(RoleReference))
	// Replacement keeps its iteration slot
	assert.Equal(t, []Role{RoleReference, RoleScan}, r.Roles())
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	a := NewAsset(RoleExtracted, "x.stl", testMesh(4), colors.Base)
	r.Upsert(NewAsset(RoleReference, "a.stl", testMesh(1), colors.Base))
	r.Upsert(a)

	assert.True(t, r.Remove(RoleExtracted))
	assert.False(t, r.Has(RoleExtracted))
	assert.Nil(t, a.Vertices, "buffers released")
	assert.Equal(t, []Role{RoleReference}, r.Roles())

	assert.False(t, r.Remove(RoleExtracted))
}

func TestRegistry_Pair(t *testing.T) {
	r := New()
	_, _, ok := r.Pair()
	assert.False(t, ok)

	r.Upsert(NewAsset(RoleReference, "a.stl", testMesh(1), colors.Base))
	_, _, ok = r.Pair()
	assert.False(t, ok)

	r.Upsert(NewAsset(RoleScan, "b.stl", testMesh(1), colors.Base))
	ref, scan, ok := r.Pair()
	require.True(t, ok)
	assert.Equal(t, RoleReference, ref.Role)
	assert.Equal(t, RoleScan, scan.Role)
}

func TestRegistry_AssetsOrderAndClear(t *testing.T) {
	r := New()
	r.Upsert(NewAsset(RoleScan, "b.stl", testMesh(1), colors.Base))
	r.Upsert(NewAsset(RoleReference, "a.stl", testMesh(1), colors.Base))

	assets := r.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, RoleScan, assets[0].Role)
	assert.Equal(t, RoleReference, assets[1].Role)

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Roles())
}
