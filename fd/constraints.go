package fd

import "github.com/cablemesh/formfind/nfd"

// Constraint is an opaque target geometry a vertex is bound to. Project
// returns the closest point on the target; Tangent returns the component of
// a vector that lies within the target's tangent space at p, which is the
// direction a constrained vertex may still move in.
type Constraint interface {
	Project(p nfd.Vec3) nfd.Vec3
	Tangent(p, v nfd.Vec3) nfd.Vec3
}

// Line constrains a vertex to the line through Point along Dir.
type Line struct {
	Point nfd.Vec3
	Dir   nfd.Vec3
}

func (l Line) Project(p nfd.Vec3) nfd.Vec3 {
	d := l.Dir.Normalize()
	return l.Point.Add(d.Scale(p.Sub(l.Point).Dot(d)))
}

func (l Line) Tangent(_, v nfd.Vec3) nfd.Vec3 {
	d := l.Dir.Normalize()
	return d.Scale(v.Dot(d))
}

// Plane constrains a vertex to the plane through Point with normal Normal.
type Plane struct {
	Point  nfd.Vec3
	Normal nfd.Vec3
}

func (pl Plane) Project(p nfd.Vec3) nfd.Vec3 {
	n := pl.Normal.Normalize()
	return p.Sub(n.Scale(p.Sub(pl.Point).Dot(n)))
}

func (pl Plane) Tangent(_, v nfd.Vec3) nfd.Vec3 {
	n := pl.Normal.Normalize()
	return v.Sub(n.Scale(v.Dot(n)))
}

// Sphere constrains a vertex to the sphere around Center with the given
// Radius. A vertex at the exact center projects onto an arbitrary but
// fixed point of the sphere.
type Sphere struct {
	Center nfd.Vec3
	Radius float64
}

func (s Sphere) Project(p nfd.Vec3) nfd.Vec3 {
	d := p.Sub(s.Center)
	if d.Norm() < 1e-12 {
		d = nfd.Vec3{1, 0, 0}
	}
	return s.Center.Add(d.Normalize().Scale(s.Radius))
}

func (s Sphere) Tangent(p, v nfd.Vec3) nfd.Vec3 {
	n := p.Sub(s.Center).Normalize()
	return v.Sub(n.Scale(v.Dot(n)))
}
