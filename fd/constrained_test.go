package fd

import (
	"testing"

	"github.com/cablemesh/formfind/nfd"
)

func TestLineConstraintFindsFreeEquilibrium(t *testing.T) {
	// the middle vertex is bound to the vertical line through its free
	// equilibrium position, so the constrained run must land exactly there
	xyz, edges, q, loads, _ := threeVertexCable()
	constraints := map[int]Constraint{
		1: Line{Point: nfd.Vec3{1, 0, 0}, Dir: nfd.Vec3{0, 0, 1}},
	}
	res, err := SolveConstrained(xyz, edges, q, loads, []int{0, 2}, constraints, DefaultConstraintOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatalf("no convergence after %d iterations", res.Iterations)
	}
	vecNear(t, res.XYZ[1], nfd.Vec3{1, 0, -0.5}, 1e-9, "vertex slides to equilibrium")
	if res.Iterations != 2 {
		t.Errorf("%d iterations, want 2 (one half step, one for the vanished residual)", res.Iterations)
	}
}

func TestPlaneConstraintSlidesInPlane(t *testing.T) {
	// bound to the offset plane x = 1.2: the vertex keeps the enforced x
	// while its z relaxes to the in-plane equilibrium
	xyz, edges, q, loads, _ := threeVertexCable()
	constraints := map[int]Constraint{
		1: Plane{Point: nfd.Vec3{1.2, 0, 0}, Normal: nfd.Vec3{1, 0, 0}},
	}
	res, err := SolveConstrained(xyz, edges, q, loads, []int{0, 2}, constraints, DefaultConstraintOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatalf("no convergence after %d iterations", res.Iterations)
	}
	vecNear(t, res.XYZ[1], nfd.Vec3{1.2, 0, -0.5}, 1e-9, "in-plane equilibrium")
}

func TestConstraintProjections(t *testing.T) {
	t.Run("Line", func(t *testing.T) {
		l := Line{Point: nfd.Vec3{0, 0, 0}, Dir: nfd.Vec3{0, 0, 2}}
		vecNear(t, l.Project(nfd.Vec3{3, 4, 5}), nfd.Vec3{0, 0, 5}, tol, "closest point on line")
		vecNear(t, l.Tangent(nfd.Vec3{}, nfd.Vec3{1, 2, 3}), nfd.Vec3{0, 0, 3}, tol, "tangent keeps axis component")
	})

	t.Run("Plane", func(t *testing.T) {
		p := Plane{Point: nfd.Vec3{0, 0, 1}, Normal: nfd.Vec3{0, 0, 3}}
		vecNear(t, p.Project(nfd.Vec3{2, 5, 9}), nfd.Vec3{2, 5, 1}, tol, "closest point on plane")
		vecNear(t, p.Tangent(nfd.Vec3{}, nfd.Vec3{1, 2, 3}), nfd.Vec3{1, 2, 0}, tol, "tangent drops normal component")
	})

	t.Run("Sphere", func(t *testing.T) {
		s := Sphere{Center: nfd.Vec3{1, 0, 0}, Radius: 2}
		vecNear(t, s.Project(nfd.Vec3{5, 0, 0}), nfd.Vec3{3, 0, 0}, tol, "closest point on sphere")
		vecNear(t, s.Project(nfd.Vec3{1, 0, 0}), nfd.Vec3{3, 0, 0}, tol, "center projects to the fixed fallback")
		got := s.Tangent(nfd.Vec3{3, 0, 0}, nfd.Vec3{4, 5, 6})
		vecNear(t, got, nfd.Vec3{0, 5, 6}, tol, "tangent is orthogonal to the radius")
	})
}
