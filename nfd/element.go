package nfd

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateFace is returned when a face has collapsed to (near) zero
// area and its stress-to-force-density system cannot be inverted.
var ErrDegenerateFace = errors.New("degenerate face geometry")

// Frame is a local face coordinate system: an origin, two in-plane axes and
// the unit normal, all expressed in global coordinates.
type Frame struct {
	Origin Vec3
	XAxis  Vec3
	YAxis  Vec3
	ZAxis  Vec3
}

// ToGlobal maps local (x, y, z) components onto the frame axes.
func (f Frame) ToGlobal(v Vec3) Vec3 {
	return f.XAxis.Scale(v[0]).Add(f.YAxis.Scale(v[1])).Add(f.ZAxis.Scale(v[2]))
}

// Edge is a cable element between two mesh vertices. Its force density is
// either the goal value QGoal, or derived from a goal force and the current
// length. QGoal takes precedence when both goals are set.
type Edge struct {
	V0, V1    int
	QGoal     float64
	ForceGoal float64

	q      float64
	length float64
}

func NewEdge(v0, v1 int, qGoal, forceGoal float64) *Edge {
	return &Edge{V0: v0, V1: v1, QGoal: qGoal, ForceGoal: forceGoal}
}

// UpdateGeometry recomputes the edge length from current coordinates and
// refreshes the force density when it is derived from a force goal.
func (e *Edge) UpdateGeometry(xyz []Vec3) {
	e.length = xyz[e.V1].Dist(xyz[e.V0])
	e.q = e.QGoal
	if e.QGoal == 0 && e.ForceGoal != 0 && e.length > 0 {
		e.q = e.ForceGoal / e.length
	}
}

// ForceDensity returns the current force density of the edge.
func (e *Edge) ForceDensity() float64 { return e.q }

// Length returns the edge length at the last geometry update.
func (e *Edge) Length() float64 { return e.length }

// Force returns the axial force, positive in tension.
func (e *Edge) Force() float64 { return e.q * e.length }

// Face is a membrane element contributing geometry-dependent force densities
// to the stiffness system. ForceDensities derives the densities that realize
// the goal stress on the current geometry and caches them for assembly;
// Stress recovers the stress produced by the cached densities on the then
// current geometry, which differs from the goal once the vertices have moved.
type Face interface {
	VertexIDs() []int
	Area() float64
	Frame() Frame
	ForceDensities() ([]float64, error)
	GoalStress() [3]float64
	Stress() [3]float64
	UpdateGeometry(xyz []Vec3)
}

// TriDensities solves the closed-form relation between a goal stress
// pseudo-vector and the three edge force densities of a triangle. ex and ey
// hold the in-plane components of the edge vectors, where entry i is the
// edge opposite vertex i. The returned density n[i] belongs to that edge.
func TriDensities(ex, ey [3]float64, area float64, goal [3]float64) ([3]float64, error) {
	var T [3][3]float64
	for i := 0; i < 3; i++ {
		T[0][i] = ex[i] * ex[i]
		T[1][i] = ey[i] * ey[i]
		T[2][i] = ex[i] * ey[i]
	}
	b := [3]float64{2 * area * goal[0], 2 * area * goal[1], 2 * area * goal[2]}
	return solve3(T, b)
}

// TriStress is the inverse of TriDensities: it recovers the second
// Piola-Kirchhoff stress pseudo-vector realized by the given edge force
// densities on the current (ex, ey, area) geometry.
func TriStress(ex, ey [3]float64, area float64, n [3]float64) [3]float64 {
	var s [3]float64
	for i := 0; i < 3; i++ {
		s[0] += n[i] * ex[i] * ex[i]
		s[1] += n[i] * ey[i] * ey[i]
		s[2] += n[i] * ex[i] * ey[i]
	}
	inv := 1 / (2 * area)
	return [3]float64{s[0] * inv, s[1] * inv, s[2] * inv}
}

// solve3 solves a 3x3 linear system by Cramer's rule.
func solve3(a [3][3]float64, b [3]float64) ([3]float64, error) {
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	scale := rowNorm(a[0]) * rowNorm(a[1]) * rowNorm(a[2])
	if math.Abs(det) <= 1e-12*scale {
		return [3]float64{}, ErrDegenerateFace
	}
	var x [3]float64
	for i := 0; i < 3; i++ {
		m := a
		for r := 0; r < 3; r++ {
			m[r][i] = b[r]
		}
		x[i] = (m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
			m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
			m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])) / det
	}
	return x, nil
}

func rowNorm(r [3]float64) float64 {
	return math.Max(math.Hypot(math.Hypot(r[0], r[1]), r[2]), 1e-300)
}

// TriFace is a triangular membrane element.
type TriFace struct {
	ids  [3]int
	goal [3]float64

	// Orientation of a non-isotropic goal field: refNormal is the normal of
	// a shared reference plane; refDir is an explicit in-plane reference
	// direction set by an owning quad. refNormal wins when both are set.
	refNormal *Vec3
	refDir    *Vec3

	frame  Frame
	area   float64
	ex, ey [3]float64
	n      []float64
}

func NewTriFace(v0, v1, v2 int, goal [3]float64, refNormal *Vec3) *TriFace {
	return &TriFace{ids: [3]int{v0, v1, v2}, goal: goal, refNormal: refNormal}
}

func (t *TriFace) VertexIDs() []int { return t.ids[:] }
func (t *TriFace) Area() float64    { return t.area }
func (t *TriFace) Frame() Frame     { return t.frame }

// UpdateGeometry recomputes the local frame, area and in-plane edge vectors
// from current coordinates. Cached force densities are left untouched so
// that Stress measures the realized state of the new geometry.
func (t *TriFace) UpdateGeometry(xyz []Vec3) {
	p0, p1, p2 := xyz[t.ids[0]], xyz[t.ids[1]], xyz[t.ids[2]]
	u := p1.Sub(p0)
	w := u.Cross(p2.Sub(p0))
	t.area = 0.5 * w.Norm()
	x := u.Normalize()
	z := w.Normalize()
	t.frame = Frame{
		Origin: p0.Add(p1).Add(p2).Scale(1.0 / 3.0),
		XAxis:  x,
		YAxis:  z.Cross(x),
		ZAxis:  z,
	}
	edges := [3]Vec3{p0.Sub(p2), p1.Sub(p0), p2.Sub(p1)}
	for i := 0; i < 3; i++ {
		// edge opposite vertex i
		e := edges[(i+2)%3]
		t.ex[i] = e.Dot(t.frame.XAxis)
		t.ey[i] = e.Dot(t.frame.YAxis)
	}
}

// GoalStress returns the goal stress pseudo-vector expressed in the current
// face frame. Isotropic goals are frame-invariant and pass through untouched.
func (t *TriFace) GoalStress() [3]float64 {
	if IsIsotropic(t.goal) {
		return t.goal
	}
	ref := t.referenceDir()
	theta := signedAngle(t.frame.XAxis, ref, t.frame.ZAxis)
	return TransformStressAngle(t.goal, theta, true)
}

// referenceDir resolves the in-plane direction the goal stress components
// refer to. Falls back to the frame x axis when no reference is usable.
func (t *TriFace) referenceDir() Vec3 {
	if t.refNormal != nil {
		d := t.refNormal.Cross(t.frame.ZAxis)
		if d.Norm() > 1e-9 {
			return d.Normalize()
		}
	}
	if t.refDir != nil {
		d := *t.refDir
		d = d.Sub(t.frame.ZAxis.Scale(d.Dot(t.frame.ZAxis)))
		if d.Norm() > 1e-9 {
			return d.Normalize()
		}
	}
	return t.frame.XAxis
}

// ForceDensities derives and caches the three edge force densities that
// realize the goal stress on the current geometry.
func (t *TriFace) ForceDensities() ([]float64, error) {
	n, err := TriDensities(t.ex, t.ey, t.area, t.GoalStress())
	if err != nil {
		return nil, fmt.Errorf("tri face %v: %w", t.ids, err)
	}
	t.n = n[:]
	return t.n, nil
}

// Stress recovers the realized stress from the cached densities. It returns
// the zero vector until densities have been derived at least once.
func (t *TriFace) Stress() [3]float64 {
	if t.n == nil {
		return [3]float64{}
	}
	return TriStress(t.ex, t.ey, t.area, [3]float64{t.n[0], t.n[1], t.n[2]})
}

// Vertex triples of the four overlapping virtual triangles of a quad, two
// per diagonal split, all wound with the quad so their normals agree with
// the quad frame. Indices refer to the quad's own vertex ordering.
var quadTris = [4][3]int{{0, 1, 3}, {2, 3, 1}, {1, 2, 0}, {3, 0, 2}}

// QuadFace is a quadrilateral membrane element. Its six force densities
// (four edges and both diagonals) are derived by decomposing the quad into
// four overlapping virtual triangles, which is also the documented fallback
// for warped quads: each virtual triangle is planar in its own frame.
type QuadFace struct {
	ids  [4]int
	goal [3]float64

	refNormal *Vec3
	frame     Frame
	area      float64
	tris      [4]*TriFace
	// densities in the order e01, e12, e23, e30, diag13, diag02
	n []float64
}

func NewQuadFace(v0, v1, v2, v3 int, goal [3]float64, refNormal *Vec3) *QuadFace {
	q := &QuadFace{ids: [4]int{v0, v1, v2, v3}, goal: goal, refNormal: refNormal}
	for k, tri := range quadTris {
		q.tris[k] = NewTriFace(q.ids[tri[0]], q.ids[tri[1]], q.ids[tri[2]], goal, refNormal)
	}
	return q
}

func (q *QuadFace) VertexIDs() []int { return q.ids[:] }
func (q *QuadFace) Frame() Frame     { return q.frame }

// Area is half the summed area of the four overlapping triangles.
func (q *QuadFace) Area() float64 { return q.area }

func (q *QuadFace) UpdateGeometry(xyz []Vec3) {
	p0, p1, p2, p3 := xyz[q.ids[0]], xyz[q.ids[1]], xyz[q.ids[2]], xyz[q.ids[3]]
	z := p2.Sub(p0).Cross(p3.Sub(p1)).Normalize()
	u := p1.Sub(p0)
	x := u.Sub(z.Scale(u.Dot(z))).Normalize()
	q.frame = Frame{
		Origin: p0.Add(p1).Add(p2).Add(p3).Scale(0.25),
		XAxis:  x,
		YAxis:  z.Cross(x),
		ZAxis:  z,
	}
	q.area = 0
	for _, t := range q.tris {
		t.refDir = &q.frame.XAxis
		t.UpdateGeometry(xyz)
		q.area += t.area
	}
	q.area /= 2
}

func (q *QuadFace) GoalStress() [3]float64 {
	if IsIsotropic(q.goal) {
		return q.goal
	}
	ref := q.frame.XAxis
	if q.refNormal != nil {
		if d := q.refNormal.Cross(q.frame.ZAxis); d.Norm() > 1e-9 {
			ref = d.Normalize()
		}
	}
	theta := signedAngle(q.frame.XAxis, ref, q.frame.ZAxis)
	return TransformStressAngle(q.goal, theta, true)
}

// ForceDensities derives the six quad densities. Each quad edge averages the
// two virtual triangles covering it, one from either diagonal split; each
// diagonal averages the two triangles of its own split.
func (q *QuadFace) ForceDensities() ([]float64, error) {
	var tn [4][]float64
	for k, t := range q.tris {
		n, err := t.ForceDensities()
		if err != nil {
			return nil, fmt.Errorf("quad face %v: %w", q.ids, err)
		}
		tn[k] = n
	}
	na, nb, nc, nd := tn[0], tn[1], tn[2], tn[3]
	q.n = []float64{
		(na[2] + nc[1]) / 2, // e01
		(nb[1] + nc[2]) / 2, // e12
		(nb[2] + nd[1]) / 2, // e23
		(na[1] + nd[2]) / 2, // e30
		(na[0] + nb[0]) / 2, // diag13
		(nc[0] + nd[0]) / 2, // diag02
	}
	return q.n, nil
}

// Stress recovers the realized quad stress as the average of the four
// virtual triangle stresses, each rotated into the quad frame. The virtual
// triangles keep their own cached densities, so a planar quad whose
// vertices have not moved recovers its goal stress exactly.
func (q *QuadFace) Stress() [3]float64 {
	if q.n == nil {
		return [3]float64{}
	}
	var sum [3]float64
	for _, t := range q.tris {
		s := t.Stress()
		theta := signedAngle(q.frame.XAxis, t.frame.XAxis, q.frame.ZAxis)
		s = TransformStressAngle(s, theta, true)
		for i := range sum {
			sum[i] += s[i]
		}
	}
	return [3]float64{sum[0] / 4, sum[1] / 4, sum[2] / 4}
}
