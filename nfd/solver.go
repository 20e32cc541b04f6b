package nfd

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular is returned when the free-vertex stiffness system cannot
	// be solved, typically because too few vertices are fixed to pin the
	// structure.
	ErrSingular = errors.New("singular free-vertex stiffness system")

	// ErrFaceArity is returned for faces that are not triangles or quads.
	ErrFaceArity = errors.New("face must have 3 or 4 vertices")

	// ErrGoalCount is returned when a per-element goal or load slice does
	// not match the element count.
	ErrGoalCount = errors.New("goal or load count does not match element count")
)

// Options configures a natural force density run. The zero value is not
// useful; start from DefaultOptions.
type Options struct {
	// StressGoals holds one goal stress pseudo-vector (sx, sy, txy) per
	// face, in face-local directions normalized over thickness. Nil applies
	// the uniform isotropic field (1, 1, 0).
	StressGoals [][3]float64
	// QGoals holds one force-density goal per edge. A non-zero entry takes
	// precedence over the matching ForceGoals entry.
	QGoals []float64
	// ForceGoals holds one goal force per edge, converted to a force
	// density through the current edge length at every iteration.
	ForceGoals []float64

	// VertexLoads, GlobalFaceLoads and LocalFaceLoads are each optional.
	// Face loads are per unit area; local face loads are expressed in the
	// face frame and rotated to global at every iteration.
	VertexLoads     []Vec3
	GlobalFaceLoads []Vec3
	LocalFaceLoads  []Vec3

	// SCalc selects the stress output of the final solve: SCalcNone,
	// SCalcPK2, SCalcPrincipal or SCalcPrincipalGlobal.
	SCalc int
	// SRef is the normal of a reference plane orienting non-isotropic
	// stress goals across the mesh.
	SRef *Vec3

	// STol is the tolerance on the mean stress residual, XYZTol the
	// tolerance on the max vertex displacement between iterations. Either
	// one suffices for convergence.
	STol   float64
	XYZTol float64
	// KMax caps the outer iterations. KMax of 1 bypasses the loop and runs
	// the plain force density method.
	KMax int

	// Logger receives per-iteration progress at debug level and the final
	// summary. Nil discards all output.
	Logger *log.Logger
}

// DefaultOptions returns the standard solver configuration.
func DefaultOptions() Options {
	return Options{
		SCalc:  SCalcPK2,
		STol:   1e-2,
		XYZTol: 1e-2,
		KMax:   10,
	}
}

// Result is the output of a solver run. Residuals and the Converged flag
// are always populated so callers can tell a converged run from one that
// ran out of budget.
type Result struct {
	XYZ       []Vec3
	Reactions []Vec3
	Stresses  *FaceStresses
	Forces    []float64
	Lengths   []float64

	Iterations     int
	StressResidual float64
	DispResidual   float64
	Converged      bool
}

// SolveNatural finds the equilibrium geometry of a mesh of cable edges and
// membrane faces with the natural force density method. Goal stress fields
// are taken for the reference geometry, which is updated at each iteration
// by the derived natural force densities.
//
// xyz holds all vertex coordinates, fixed the indices of anchored vertices;
// edgeList and faceList reference vertices by index, faces as ordered rings
// of 3 or 4.
func SolveNatural(xyz []Vec3, fixed []int, edgeList [][2]int, faceList [][]int, opt Options) (*Result, error) {
	if err := checkCounts(len(edgeList), len(faceList), opt); err != nil {
		return nil, err
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	cur := cloneVecs(xyz)
	edges, faces, err := buildElements(cur, edgeList, faceList, opt)
	if err != nil {
		return nil, err
	}
	free := freeIndices(len(xyz), fixed)
	loads := NewLoads(len(xyz), faces, opt.VertexLoads, opt.GlobalFaceLoads, opt.LocalFaceLoads)

	if opt.KMax <= 1 {
		st, err := solveOnce(cur, free, fixed, edges, faces, loads, opt.SCalc)
		if err != nil {
			return nil, err
		}
		st.Iterations = 1
		st.Converged = true
		return st, nil
	}

	res := &Result{}
	for k := 0; k < opt.KMax; k++ {
		st, err := solveOnce(cur, free, fixed, edges, faces, loads, SCalcResidual)
		if err != nil {
			return nil, err
		}
		res.StressResidual = stressResidual(faces, st.Stresses)
		res.DispResidual = maxDisplacement(cur, st.XYZ)
		res.Iterations = k + 1
		cur = st.XYZ
		logger.Debug("iteration",
			"k", res.Iterations,
			"stress_residual", res.StressResidual,
			"disp_residual", res.DispResidual)
		if res.StressResidual < opt.STol || res.DispResidual < opt.XYZTol {
			res.Converged = true
			break
		}
	}

	if res.Converged {
		logger.Info("convergence reached", "iterations", res.Iterations)
	} else {
		logger.Warn("no convergence within iteration budget",
			"iterations", res.Iterations,
			"stress_residual", res.StressResidual,
			"disp_residual", res.DispResidual)
	}

	final, err := solveOnce(cur, free, fixed, edges, faces, loads, opt.SCalc)
	if err != nil {
		return nil, err
	}
	res.XYZ = final.XYZ
	res.Reactions = final.Reactions
	res.Stresses = final.Stresses
	res.Forces = final.Forces
	res.Lengths = final.Lengths
	return res, nil
}

// solveOnce performs one equilibrium solve: rebuild the stiffness matrix,
// refresh the load matrix, solve the free block for new coordinates, then
// refresh element geometry and compute the dependent outputs.
func solveOnce(xyz []Vec3, free, fixed []int, edges []*Edge, faces []Face, loads *Loads, sCalc int) (*Result, error) {
	stiff, err := NewStiffness(free, fixed, edges, faces)
	if err != nil {
		return nil, err
	}
	loads.Update()
	p := loads.Matrix()

	next := cloneVecs(xyz)
	if len(free) > 0 {
		b := mat.NewDense(len(free), 3, nil)
		if len(fixed) > 0 {
			xf := mat.NewDense(len(fixed), 3, nil)
			for i, vi := range fixed {
				xf.SetRow(i, xyz[vi][:])
			}
			b.Mul(stiff.FreeFixed(), xf)
		}
		for i, vi := range free {
			for d := 0; d < 3; d++ {
				b.Set(i, d, p[vi][d]-b.At(i, d))
			}
		}
		var x mat.Dense
		if err := x.Solve(stiff.Free(), b); err != nil {
			return nil, fmt.Errorf("%w (%d free vertices): %v", ErrSingular, len(free), err)
		}
		for i, vi := range free {
			next[vi] = Vec3{x.At(i, 0), x.At(i, 1), x.At(i, 2)}
		}
	}

	for _, f := range faces {
		f.UpdateGeometry(next)
	}
	for _, e := range edges {
		e.UpdateGeometry(next)
	}

	return &Result{
		XYZ:       next,
		Reactions: reactions(stiff, p, xyz),
		Stresses:  Stresses(faces, sCalc),
		Forces:    Forces(edges),
		Lengths:   Lengths(edges),
	}, nil
}

// reactions computes P - K*X against the pre-solve coordinates. For fixed
// vertices this is the reaction force, for free vertices the residual of
// the previous iterate.
func reactions(stiff *Stiffness, p []Vec3, xyz []Vec3) []Vec3 {
	n := len(xyz)
	x := mat.NewDense(n, 3, nil)
	for i := range xyz {
		x.SetRow(i, xyz[i][:])
	}
	var kx mat.Dense
	kx.Mul(stiff.Matrix(), x)
	r := make([]Vec3, n)
	for i := range r {
		r[i] = Vec3{p[i][0] - kx.At(i, 0), p[i][1] - kx.At(i, 1), p[i][2] - kx.At(i, 2)}
	}
	return r
}

// stressResidual is the mean Euclidean distance between the goal stress of
// each face and its realized stress amplitude. A mesh without faces has no
// stress goals to satisfy and returns +Inf so that displacement governs.
func stressResidual(faces []Face, s *FaceStresses) float64 {
	if len(faces) == 0 || s == nil {
		return math.Inf(1)
	}
	var sum float64
	for i, f := range faces {
		g := f.GoalStress()
		a := s.Amplitudes[i]
		sum += math.Sqrt((g[0]-a[0])*(g[0]-a[0]) +
			(g[1]-a[1])*(g[1]-a[1]) +
			(g[2]-a[2])*(g[2]-a[2]))
	}
	return sum / float64(len(faces))
}

// maxDisplacement is the largest per-vertex movement between two coordinate
// states.
func maxDisplacement(a, b []Vec3) float64 {
	var max float64
	for i := range a {
		if d := a[i].Dist(b[i]); d > max {
			max = d
		}
	}
	return max
}

func buildElements(xyz []Vec3, edgeList [][2]int, faceList [][]int, opt Options) ([]*Edge, []Face, error) {
	edges := make([]*Edge, len(edgeList))
	for i, ev := range edgeList {
		var q, f float64
		if opt.QGoals != nil {
			q = opt.QGoals[i]
		}
		if opt.ForceGoals != nil {
			f = opt.ForceGoals[i]
		}
		edges[i] = NewEdge(ev[0], ev[1], q, f)
		edges[i].UpdateGeometry(xyz)
	}
	faces := make([]Face, len(faceList))
	for i, ids := range faceList {
		goal := [3]float64{1, 1, 0}
		if opt.StressGoals != nil {
			goal = opt.StressGoals[i]
		}
		switch len(ids) {
		case 3:
			faces[i] = NewTriFace(ids[0], ids[1], ids[2], goal, opt.SRef)
		case 4:
			faces[i] = NewQuadFace(ids[0], ids[1], ids[2], ids[3], goal, opt.SRef)
		default:
			return nil, nil, fmt.Errorf("face %d with %d vertices: %w", i, len(ids), ErrFaceArity)
		}
		faces[i].UpdateGeometry(xyz)
	}
	return edges, faces, nil
}

func checkCounts(edges, faces int, opt Options) error {
	bad := opt.QGoals != nil && len(opt.QGoals) != edges ||
		opt.ForceGoals != nil && len(opt.ForceGoals) != edges ||
		opt.StressGoals != nil && len(opt.StressGoals) != faces ||
		opt.GlobalFaceLoads != nil && len(opt.GlobalFaceLoads) != faces ||
		opt.LocalFaceLoads != nil && len(opt.LocalFaceLoads) != faces
	if bad {
		return ErrGoalCount
	}
	return nil
}

func freeIndices(n int, fixed []int) []int {
	isFixed := make([]bool, n)
	for _, i := range fixed {
		isFixed[i] = true
	}
	free := make([]int, 0, n-len(fixed))
	for i := 0; i < n; i++ {
		if !isFixed[i] {
			free = append(free, i)
		}
	}
	return free
}
