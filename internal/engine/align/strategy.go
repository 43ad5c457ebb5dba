package align

import (
	gomath "math"

	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/pkg/math"
)

// DefaultAngle is the fixed calibration rotation about Y, in degrees.
const DefaultAngle = 135

// Strategy computes the scan transform used while calibrating.
type Strategy interface {
	Name() string
	Fit(reference, scan *registry.Asset) (Result, error)
}

// Result is the outcome of a fit.
type Result struct {
	Strategy   string
	Transform  math.Transform // New scan transform
	RMSE       float64        // NaN when not measured
	Quality    Quality
	Iterations int
	Converged  bool
}

// Quality represents the assessed quality of an alignment.
type Quality string

const (
	// QualityExcellent indicates RMSE below the excellent threshold
	QualityExcellent Quality = "excellent"
	// QualityGood indicates RMSE below the good threshold
	QualityGood Quality = "good"
	// QualityFair indicates RMSE below the fair threshold
	QualityFair Quality = "fair"
	// QualityPoor indicates RMSE above every threshold
	QualityPoor Quality = "poor"
	// QualityUnknown indicates RMSE not computed
	QualityUnknown Quality = "unknown"
)

// Thresholds are RMSE limits in mesh units.
type Thresholds struct {
	Excellent float64
	Good      float64
	Fair      float64
}

// DefaultThresholds returns the default RMSE limits.
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 0.05, Good: 0.15, Fair: 0.30}
}

// Assess buckets an RMSE value.
func (t Thresholds) Assess(rmse float64) Quality {
	switch {
	case gomath.IsNaN(rmse) || rmse < 0:
		return QualityUnknown
	case rmse < t.Excellent:
		return QualityExcellent
	case rmse < t.Good:
		return QualityGood
	case rmse < t.Fair:
		return QualityFair
	default:
		return QualityPoor
	}
}

// FixedOffsetStrategy moves the scan to the origin and adds a fixed
// rotation about Y. It does not look at the geometry.
type FixedOffsetStrategy struct {
	Angle float32 // Radians
}

// NewFixedOffsetStrategy creates the strategy with an angle in degrees.
func NewFixedOffsetStrategy(degrees float32) *FixedOffsetStrategy {
	return &FixedOffsetStrategy{Angle: math.Radians(degrees)}
}

func (s *FixedOffsetStrategy) Name() string { return "fixed-offset" }

// Fit returns the scan transform with zero translation and the offset
// added to its Y rotation.
func (s *FixedOffsetStrategy) Fit(_, scan *registry.Asset) (Result, error) {
	t := scan.Transform
	t.Position = math.Vec3{}
	return Result{
		Strategy:  s.Name(),
		Transform: t.RotateYBy(s.Angle),
		RMSE:      gomath.NaN(),
		Quality:   QualityUnknown,
	}, nil
}
