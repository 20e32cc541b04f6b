package fd

import (
	"sort"

	"github.com/cablemesh/formfind/nfd"
)

// ConstraintOptions tunes the constrained solver loop.
type ConstraintOptions struct {
	// KMax caps the outer iterations.
	KMax int
	// TolRes is the tolerance on the largest tangential residual force at
	// a constrained vertex, TolDisp the tolerance on the largest vertex
	// displacement between iterations. Either one suffices.
	TolRes  float64
	TolDisp float64
	// Damping scales the tangential correction step of constrained
	// vertices. Full steps overshoot and oscillate on stiff systems.
	Damping float64
}

// DefaultConstraintOptions returns the standard constrained configuration.
func DefaultConstraintOptions() ConstraintOptions {
	return ConstraintOptions{KMax: 100, TolRes: 1e-3, TolDisp: 1e-3, Damping: 0.5}
}

// ConstrainedResult extends Result with the iteration outcome.
type ConstrainedResult struct {
	Result
	Iterations int
	Converged  bool
}

// SolveConstrained finds the equilibrium of a cable network where some
// vertices are bound to constraint geometries. Constrained vertices act as
// supports during each plain solve; afterwards they slide along their
// target by the damped tangential component of their residual force and
// are re-projected onto the target, until the tangential residual or the
// displacement drops under tolerance.
//
// constraints maps vertex indices to targets. Constrained vertices must not
// also be listed in fixed.
func SolveConstrained(xyz []nfd.Vec3, edgeList [][2]int, q []float64, loads []nfd.Vec3,
	fixed []int, constraints map[int]Constraint, opt ConstraintOptions) (*ConstrainedResult, error) {

	cur := make([]nfd.Vec3, len(xyz))
	copy(cur, xyz)

	// constrained vertices start on their targets; keep the anchor order
	// deterministic across runs
	anchored := make([]int, 0, len(fixed)+len(constraints))
	anchored = append(anchored, fixed...)
	for _, vi := range sortedKeys(constraints) {
		cur[vi] = constraints[vi].Project(cur[vi])
		anchored = append(anchored, vi)
	}

	out := &ConstrainedResult{}
	for k := 0; k < opt.KMax; k++ {
		res, err := Solve(cur, edgeList, q, loads, anchored)
		if err != nil {
			return nil, err
		}
		var maxRes, maxDisp float64
		for _, vi := range sortedKeys(constraints) {
			c := constraints[vi]
			t := c.Tangent(res.XYZ[vi], res.Residuals[vi])
			if n := t.Norm(); n > maxRes {
				maxRes = n
			}
			res.XYZ[vi] = c.Project(res.XYZ[vi].Add(t.Scale(opt.Damping)))
		}
		for i := range cur {
			if d := cur[i].Dist(res.XYZ[i]); d > maxDisp {
				maxDisp = d
			}
		}
		cur = res.XYZ
		out.Result = *res
		out.Iterations = k + 1
		if maxRes < opt.TolRes || maxDisp < opt.TolDisp {
			out.Converged = true
			break
		}
	}
	return out, nil
}

func sortedKeys(m map[int]Constraint) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
