package align

import (
	"errors"
	"fmt"
	gomath "math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/engine/spatial"
	"github.com/Faultbox/scanlab/pkg/math"
)

// ICP errors
var (
	ErrTooFewPoints = errors.New("too few points for registration")
	ErrDegenerate   = errors.New("degenerate point correspondence")
)

const minICPPoints = 3

// ICPStrategy fits the scan onto the reference with iterative closest
// point registration. Each iteration pairs scan points with their nearest
// reference points and solves the best rigid motion with an SVD.
type ICPStrategy struct {
	MaxIterations int
	Tolerance     float64 // Stop when RMSE improves by less than this
	SampleSize    int     // Max scan points per iteration; 0 uses all
	Thresholds    Thresholds
}

// NewICPStrategy returns an ICP strategy with default parameters.
func NewICPStrategy() *ICPStrategy {
	return &ICPStrategy{
		MaxIterations: 50,
		Tolerance:     1e-6,
		SampleSize:    2000,
		Thresholds:    DefaultThresholds(),
	}
}

func (s *ICPStrategy) Name() string { return "icp" }

// rigid is x -> R*x + T.
type rigid struct {
	R *mat.Dense
	T [3]float64
}

func identityRigid() rigid {
	return rigid{R: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
}

func (g rigid) apply(p [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = g.R.At(i, 0)*p[0] + g.R.At(i, 1)*p[1] + g.R.At(i, 2)*p[2] + g.T[i]
	}
	return out
}

// then returns the motion applying g first, then h.
func (g rigid) then(h rigid) rigid {
	var r mat.Dense
	r.Mul(h.R, g.R)
	t := h.apply(g.T)
	return rigid{R: &r, T: t}
}

func (g rigid) matrix() math.Mat4 {
	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = g.R.At(i, j)
		}
	}
	return math.FromRows(rows, g.T)
}

// Fit aligns the scan model vertices to the reference in world space.
func (s *ICPStrategy) Fit(reference, scan *registry.Asset) (Result, error) {
	target := reference.WorldVertices()
	source := sample(scan.Vertices, s.SampleSize)
	if len(target) < minICPPoints || len(source) < minICPPoints {
		return Result{}, fmt.Errorf("%w: reference has %d, scan has %d", ErrTooFewPoints, len(target), len(source))
	}

	idx := spatial.NewIndex(target)

	// Initial guess: scan centroid onto reference centroid, no rotation.
	cs := math.Centroid(source).Float64s()
	ct := math.Centroid(target).Float64s()
	current := identityRigid()
	current.T = [3]float64{ct[0] - cs[0], ct[1] - cs[1], ct[2] - cs[2]}

	moved := make([][3]float64, len(source))
	matched := make([][3]float64, len(source))

	prev := gomath.Inf(1)
	res := Result{Strategy: s.Name()}
	for res.Iterations = 0; res.Iterations < s.maxIterations(); res.Iterations++ {
		rmse := correspond(idx, source, current, moved, matched)
		if prev-rmse < s.Tolerance {
			res.Converged = true
			break
		}
		prev = rmse

		step, err := kabsch(moved, matched)
		if err != nil {
			return Result{}, err
		}
		current = current.then(step)
	}

	res.RMSE = correspond(idx, source, current, moved, matched)
	res.Quality = s.Thresholds.Assess(res.RMSE)
	res.Transform = math.TransformFromMatrix(current.matrix())
	return res, nil
}

func (s *ICPStrategy) maxIterations() int {
	if s.MaxIterations <= 0 {
		return 1
	}
	return s.MaxIterations
}

// correspond moves the source points by g, pairs each with its nearest
// target and returns the RMSE of the pairs.
func correspond(idx *spatial.Index, source []math.Vec3, g rigid, moved, matched [][3]float64) float64 {
	var sum float64
	for i, p := range source {
		moved[i] = g.apply(p.Float64s())
		q, d, _ := idx.Nearest(math.Vec3{X: float32(moved[i][0]), Y: float32(moved[i][1]), Z: float32(moved[i][2])})
		matched[i] = q.Float64s()
		sum += d * d
	}
	return gomath.Sqrt(sum / float64(len(source)))
}

// kabsch solves the rotation and translation minimizing the squared
// distance between p and q pairs.
func kabsch(p, q [][3]float64) (rigid, error) {
	n := float64(len(p))
	var cp, cq [3]float64
	for i := range p {
		for k := 0; k < 3; k++ {
			cp[k] += p[i][k] / n
			cq[k] += q[i][k] / n
		}
	}

	// Cross-covariance H = sum (p - cp)(q - cq)^T
	h := mat.NewDense(3, 3, nil)
	for i := range p {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+(p[i][r]-cp[r])*(q[i][c]-cq[c]))
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return rigid{}, ErrDegenerate
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Correct a reflection so the result is a proper rotation.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := mat.NewDiagDense(3, []float64{1, 1, 1})
	if mat.Det(&vut) < 0 {
		d.SetDiag(2, -1)
	}

	var vd, r mat.Dense
	vd.Mul(&v, d)
	r.Mul(&vd, u.T())

	g := rigid{R: &r}
	rc := g.apply(cp)
	g.T = [3]float64{cq[0] - rc[0], cq[1] - rc[1], cq[2] - rc[2]}
	return g, nil
}

// sample picks at most n points with a fixed stride.
func sample(points []math.Vec3, n int) []math.Vec3 {
	if n <= 0 || len(points) <= n {
		return points
	}
	out := make([]math.Vec3, 0, n)
	step := float64(len(points)) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, points[int(float64(i)*step)])
	}
	return out
}
