package math

import "math"

// Transform is a rigid transform: a rotation followed by a translation.
// Rotation holds intrinsic XYZ Euler angles in radians.
type Transform struct {
	Position Vec3
	Rotation Vec3
}

// TransformIdentity returns a transform that leaves points unchanged.
func TransformIdentity() Transform {
	return Transform{}
}

// At returns a transform that only translates to p.
func At(p Vec3) Transform {
	return Transform{Position: p}
}

// Matrix returns the model matrix T * Rx * Ry * Rz.
func (t Transform) Matrix() Mat4 {
	return Translate(t.Position.X, t.Position.Y, t.Position.Z).
		Mul(RotateX(t.Rotation.X)).
		Mul(RotateY(t.Rotation.Y)).
		Mul(RotateZ(t.Rotation.Z))
}

// Apply transforms a model-space point into world space.
func (t Transform) Apply(p Vec3) Vec3 {
	return t.Matrix().TransformVec3(p)
}

// ApplyAll transforms points into a new slice.
func (t Transform) ApplyAll(points []Vec3) []Vec3 {
	m := t.Matrix()
	out := make([]Vec3, len(points))
	for i, p := range points {
		out[i] = m.TransformVec3(p)
	}
	return out
}

// RotateYBy returns a copy of t with angle (radians) added to the Y rotation.
func (t Transform) RotateYBy(angle float32) Transform {
	t.Rotation.Y += angle
	return t
}

// TransformFromMatrix decomposes a rigid matrix into a Transform.
func TransformFromMatrix(m Mat4) Transform {
	return Transform{Position: m.Translation(), Rotation: m.EulerXYZ()}
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float32 {
	return rad * 180 / math.Pi
}
