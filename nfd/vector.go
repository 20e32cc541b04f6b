package nfd

import "math"

// Vec3 is a 3D point or direction in global coordinates.
type Vec3 [3]float64

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector along v, or the zero vector when v has
// no usable length.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n < 1e-300 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

func (v Vec3) Dist(w Vec3) float64 {
	return v.Sub(w).Norm()
}

// signedAngle returns the angle from a to b measured about axis,
// counter-clockwise positive, in the range (-pi, pi].
func signedAngle(a, b, axis Vec3) float64 {
	return math.Atan2(a.Cross(b).Dot(axis), a.Dot(b))
}

func cloneVecs(v []Vec3) []Vec3 {
	out := make([]Vec3, len(v))
	copy(out, v)
	return out
}
