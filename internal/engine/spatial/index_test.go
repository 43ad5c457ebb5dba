package spatial

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/scanlab/pkg/math"
)

func TestIndex_Nearest(t *testing.T) {
	points := []math.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 10, Y: 0, Z: 0},
		{X: 0, Y: 10, Z: 0},
		{X: 0, Y: 0, Z: 10},
	}
	idx := NewIndex(points)
	require.Equal(t, 4, idx.Len())

	p, d, ok := idx.Nearest(math.Vec3{X: 9, Y: 1})
	require.True(t, ok)
	assert.Equal(t, math.Vec3{X: 10}, p)
	assert.InDelta(t, gomath.Sqrt2, d, 1e-9)

	// Building the index must not reorder the caller's slice
	assert.Equal(t, math.Vec3{X: 10}, points[1])
}

func TestIndex_Empty(t *testing.T) {
	idx := NewIndex(nil)
	_, d, ok := idx.Nearest(math.Vec3{})
	assert.False(t, ok)
	assert.True(t, gomath.IsInf(d, 1))

	ds := idx.Distances([]math.Vec3{{}, {X: 1}})
	require.Len(t, ds, 2)
	assert.True(t, gomath.IsInf(ds[1], 1))
}

func TestIndex_Distances(t *testing.T) {
	idx := NewIndex([]math.Vec3{{}, {X: 4}})
	ds := idx.Distances([]math.Vec3{{X: 1}, {X: 4, Y: 3}, {X: 2}})
	assert.InDeltaSlice(t, []float64{1, 3, 2}, ds, 1e-9)
}
