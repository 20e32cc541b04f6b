package nfd

import (
	"errors"
	"math"
	"testing"
)

// hyparGrid builds an n x n vertex grid over the unit square with corner
// heights 0, rise, 0, rise interpolated bilinearly, quad faces, anchored
// corners and the list of boundary edges.
func hyparGrid(n int, rise float64) (xyz []Vec3, fixed []int, edges [][2]int, faces [][]int) {
	idx := func(i, j int) int { return j*n + i }
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			u := float64(i) / float64(n-1)
			v := float64(j) / float64(n-1)
			z := rise * (u*(1-v) + (1-u)*v)
			xyz = append(xyz, Vec3{u, v, z})
		}
	}
	fixed = []int{idx(0, 0), idx(n-1, 0), idx(n-1, n-1), idx(0, n-1)}
	for j := 0; j < n-1; j++ {
		for i := 0; i < n-1; i++ {
			faces = append(faces, []int{idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)})
		}
	}
	for i := 0; i < n-1; i++ {
		edges = append(edges,
			[2]int{idx(i, 0), idx(i+1, 0)},
			[2]int{idx(i, n-1), idx(i+1, n-1)},
			[2]int{idx(0, i), idx(0, i+1)},
			[2]int{idx(n-1, i), idx(n-1, i+1)})
	}
	return xyz, fixed, edges, faces
}

func TestFlatQuadConvergesImmediately(t *testing.T) {
	// all four corners anchored: the isotropic goal is already realized by
	// the flat state, so the stress residual vanishes in the first iteration
	xyz := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	opt := DefaultOptions()
	res, err := SolveNatural(xyz, []int{0, 1, 2, 3}, nil, [][]int{{0, 1, 2, 3}}, opt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("flat anchored quad did not converge")
	}
	if res.Iterations != 1 {
		t.Errorf("%d iterations, want 1", res.Iterations)
	}
	if res.StressResidual > 1e-9 {
		t.Errorf("stress residual %g, want ~0", res.StressResidual)
	}
	for i := range xyz {
		vecNear(t, [3]float64(res.XYZ[i]), [3]float64(xyz[i]), tol, "anchored vertex moved")
	}
}

func TestHyparConverges(t *testing.T) {
	xyz, fixed, edgeList, faceList := hyparGrid(3, 1)
	q := make([]float64, len(edgeList))
	for i := range q {
		q[i] = 10
	}
	opt := DefaultOptions()
	opt.QGoals = q

	res, err := SolveNatural(xyz, fixed, edgeList, faceList, opt)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatalf("no convergence: stress residual %g, disp residual %g after %d iterations",
			res.StressResidual, res.DispResidual, res.Iterations)
	}
	if res.Iterations > opt.KMax {
		t.Errorf("%d iterations exceeds cap %d", res.Iterations, opt.KMax)
	}
	if res.StressResidual >= opt.STol && res.DispResidual >= opt.XYZTol {
		t.Errorf("converged with residuals %g / %g above both tolerances",
			res.StressResidual, res.DispResidual)
	}

	// the saddle is symmetric, so the center vertex sits at mid span and
	// mid rise
	center := res.XYZ[4]
	vecNear(t, [3]float64(center), [3]float64{0.5, 0.5, 0.5}, 1e-9, "center of symmetric hypar")

	if len(res.Forces) != len(edgeList) || len(res.Lengths) != len(edgeList) {
		t.Fatal("edge outputs incomplete")
	}
	for i, f := range res.Forces {
		near(t, f, 10*res.Lengths[i], tol, "force = q * length on boundary cable")
	}
	if res.Stresses == nil || len(res.Stresses.Amplitudes) != len(faceList) {
		t.Fatal("stress output incomplete")
	}
}

func TestExhaustedRunReportsResiduals(t *testing.T) {
	xyz, fixed, edgeList, faceList := hyparGrid(3, 1)
	q := make([]float64, len(edgeList))
	for i := range q {
		q[i] = 10
	}
	opt := DefaultOptions()
	opt.QGoals = q
	opt.KMax = 2
	opt.STol = 1e-16
	opt.XYZTol = 1e-16

	res, err := SolveNatural(xyz, fixed, edgeList, faceList, opt)
	if err != nil {
		t.Fatal(err)
	}
	if res.Converged {
		t.Error("unreachable tolerances reported as converged")
	}
	if res.Iterations != 2 {
		t.Errorf("%d iterations, want the full budget of 2", res.Iterations)
	}
	if res.StressResidual <= 0 || math.IsInf(res.StressResidual, 1) {
		t.Errorf("stress residual %g not reported", res.StressResidual)
	}
	if res.XYZ == nil || res.Reactions == nil {
		t.Error("exhausted run must still return the last state")
	}
}

func TestNoAnchorsSingular(t *testing.T) {
	xyz := []Vec3{{0, 0, 0}, {1, 0, 0}}
	opt := DefaultOptions()
	opt.QGoals = []float64{1}
	opt.KMax = 1
	_, err := SolveNatural(xyz, nil, [][2]int{{0, 1}}, nil, opt)
	if !errors.Is(err, ErrSingular) {
		t.Fatalf("got %v, want ErrSingular", err)
	}
}

func TestPrincipalGlobalOutput(t *testing.T) {
	// anchored flat quad, principal directions re-expressed globally must be
	// unit length and orthogonal
	xyz := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	opt := DefaultOptions()
	opt.SCalc = SCalcPrincipalGlobal
	res, err := SolveNatural(xyz, []int{0, 1, 2, 3}, nil, [][]int{{0, 1, 2, 3}}, opt)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stresses.Vectors == nil {
		t.Fatal("principal mode returned no vectors")
	}
	v1, v2 := res.Stresses.Vectors[0][0], res.Stresses.Vectors[0][1]
	near(t, v1.Norm(), 1, 1e-9, "first principal direction unit length")
	near(t, v2.Norm(), 1, 1e-9, "second principal direction unit length")
	near(t, v1.Dot(v2), 0, 1e-9, "principal directions orthogonal")
}

func TestGoalCountMismatch(t *testing.T) {
	xyz := []Vec3{{0, 0, 0}, {1, 0, 0}}
	opt := DefaultOptions()
	opt.QGoals = []float64{1, 2, 3}
	_, err := SolveNatural(xyz, []int{0}, [][2]int{{0, 1}}, nil, opt)
	if !errors.Is(err, ErrGoalCount) {
		t.Fatalf("got %v, want ErrGoalCount", err)
	}
}

func TestBadFaceArity(t *testing.T) {
	xyz := []Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 1.5, 0}}
	opt := DefaultOptions()
	_, err := SolveNatural(xyz, []int{0, 1}, nil, [][]int{{0, 1, 2, 3, 4}}, opt)
	if !errors.Is(err, ErrFaceArity) {
		t.Fatalf("got %v, want ErrFaceArity", err)
	}
}
