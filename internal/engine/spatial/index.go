// Package spatial provides nearest-point queries over mesh vertices.
package spatial

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Faultbox/scanlab/pkg/math"
)

// Index is a k-d tree over a fixed point set.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds an index over points. The input slice is not retained.
func NewIndex(points []math.Vec3) *Index {
	pts := make(kdtree.Points, len(points))
	for i, p := range points {
		pts[i] = kdtree.Point{float64(p.X), float64(p.Y), float64(p.Z)}
	}
	idx := &Index{n: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed points.
func (idx *Index) Len() int {
	return idx.n
}

// Nearest returns the indexed point closest to q and its distance.
// ok is false for an empty index.
func (idx *Index) Nearest(q math.Vec3) (p math.Vec3, dist float64, ok bool) {
	if idx.tree == nil {
		return math.Vec3{}, gomath.Inf(1), false
	}
	c, d2 := idx.tree.Nearest(kdtree.Point{float64(q.X), float64(q.Y), float64(q.Z)})
	if c == nil {
		return math.Vec3{}, gomath.Inf(1), false
	}
	kp := c.(kdtree.Point)
	return math.Vec3{X: float32(kp[0]), Y: float32(kp[1]), Z: float32(kp[2])}, gomath.Sqrt(d2), true
}

// Distances returns, for every query point, the distance to the nearest
// indexed point. An empty index yields +Inf for every query.
func (idx *Index) Distances(queries []math.Vec3) []float64 {
	out := make([]float64, len(queries))
	for i, q := range queries {
		_, out[i], _ = idx.Nearest(q)
	}
	return out
}
