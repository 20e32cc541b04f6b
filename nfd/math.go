// Package nfd implements equilibrium form finding for cable and membrane
// meshes with the natural force density method.
//
// The solver assembles a sparse force-density stiffness matrix from per-edge
// and per-face contributions, solves the free-vertex system for updated
// coordinates, and iterates the per-face force densities against goal stress
// fields until the realized stresses match the goals within tolerance.
package nfd

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Inverse trigonometric arguments are clamped to this bound so that
// floating-point overshoot past |1| cannot produce a domain error.
const trigClamp = 0.9999

// ArcSin is math.Asin with the argument clamped to [-trigClamp, trigClamp].
func ArcSin(x float64) float64 {
	return math.Asin(clamp(x))
}

// ArcCos is math.Acos with the argument clamped to [-trigClamp, trigClamp].
func ArcCos(x float64) float64 {
	return math.Acos(clamp(x))
}

func clamp(x float64) float64 {
	return math.Max(math.Min(x, trigClamp), -trigClamp)
}

// PlanarRotation returns the 2x2 rotation matrix for an angle in radians.
func PlanarRotation(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(2, 2, []float64{c, -s, s, c})
}

// IsIsotropic reports whether a planar stress pseudo-vector has equal normal
// components and no shear. The comparison is exact.
func IsIsotropic(s [3]float64) bool {
	return s[0] == s[1] && s[2] == 0
}

// StressVecToTensor converts a planar stress pseudo-vector (sx, sy, txy)
// to its 2x2 symmetric tensor form.
func StressVecToTensor(s [3]float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{s[0], s[2], s[2], s[1]})
}

// StressTensorToVec converts a 2x2 symmetric stress tensor to pseudo-vector
// form. Inverse of StressVecToTensor.
func StressTensorToVec(t mat.Matrix) [3]float64 {
	return [3]float64{t.At(0, 0), t.At(1, 1), t.At(0, 1)}
}

// TransformStress transforms a stress pseudo-vector by a 2x2 rotation matrix
// through tensor conjugation. The forward transform expresses the stress in
// the rotated axes (Rt S R); with invert set the rotation is applied the
// other way round (R S Rt).
func TransformStress(s [3]float64, rotation mat.Matrix, invert bool) [3]float64 {
	S := StressVecToTensor(s)
	var a, b mat.Dense
	if invert {
		a.Mul(rotation, S)
		b.Mul(&a, rotation.T())
	} else {
		a.Mul(rotation.T(), S)
		b.Mul(&a, rotation)
	}
	return StressTensorToVec(&b)
}

// TransformStressAngle transforms a stress pseudo-vector by an angle in
// radians, expressing the stress in axes rotated by that angle. With invert
// set the sign of the angle flips.
func TransformStressAngle(s [3]float64, angle float64, invert bool) [3]float64 {
	if invert {
		angle = -angle
	}
	sa, ca := math.Sincos(angle)
	s2, c2 := sa*sa, ca*ca
	sc := sa * ca
	return [3]float64{
		c2*s[0] + s2*s[1] + 2*sc*s[2],
		s2*s[0] + c2*s[1] - 2*sc*s[2],
		-sc*s[0] + sc*s[1] + (c2-s2)*s[2],
	}
}

// PrincipalStresses diagonalizes a planar stress pseudo-vector. It returns
// the two principal values and the angle of the first principal direction
// measured from the local x axis. The isotropic case short-circuits to a
// zero angle, where the eigen-direction is undefined.
func PrincipalStresses(s [3]float64) (s1, s2, theta float64) {
	if IsIsotropic(s) {
		return s[0], s[1], 0
	}
	avg := (s[0] + s[1]) / 2
	r := math.Hypot((s[0]-s[1])/2, s[2])
	theta = 0.5 * math.Atan2(2*s[2], s[0]-s[1])
	return avg + r, avg - r, theta
}
