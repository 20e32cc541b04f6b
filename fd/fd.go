// Package fd implements the plain force density method: a single linear
// equilibrium solve for a cable network with fixed, precomputed force
// densities, plus an iterative variant that keeps selected vertices on
// constraint geometries.
package fd

import (
	"fmt"

	"github.com/cablemesh/formfind/nfd"
	"gonum.org/v1/gonum/mat"
)

// Result holds the output of a plain force density solve.
type Result struct {
	XYZ       []nfd.Vec3
	Residuals []nfd.Vec3
	Forces    []float64
	Lengths   []float64
}

// Solve finds the equilibrium shape of a cable network for the given force
// densities. It is the degenerate, non-iterative case of the natural force
// density method: one solve of the same stiffness system, restricted to
// edge contributions.
func Solve(xyz []nfd.Vec3, edgeList [][2]int, q []float64, loads []nfd.Vec3, fixed []int) (*Result, error) {
	if q != nil && len(q) != len(edgeList) {
		return nil, fmt.Errorf("%d force densities for %d edges: %w", len(q), len(edgeList), nfd.ErrGoalCount)
	}
	edges := make([]*nfd.Edge, len(edgeList))
	for i, ev := range edgeList {
		var qi float64
		if q != nil {
			qi = q[i]
		}
		edges[i] = nfd.NewEdge(ev[0], ev[1], qi, 0)
		edges[i].UpdateGeometry(xyz)
	}

	free := freeIndices(len(xyz), fixed)
	stiff, err := nfd.NewStiffness(free, fixed, edges, nil)
	if err != nil {
		return nil, err
	}
	p := make([]nfd.Vec3, len(xyz))
	copy(p, loads)

	next := make([]nfd.Vec3, len(xyz))
	copy(next, xyz)
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
			return nil, fmt.Errorf("%w (%d free vertices): %v", nfd.ErrSingular, len(free), err)
		}
		for i, vi := range free {
			next[vi] = nfd.Vec3{x.At(i, 0), x.At(i, 1), x.At(i, 2)}
		}
	}

	for _, e := range edges {
		e.UpdateGeometry(next)
	}

	// residuals against the equilibrium coordinates: zero at free vertices,
	// reaction forces at fixed ones
	xm := mat.NewDense(len(next), 3, nil)
	for i := range next {
		xm.SetRow(i, next[i][:])
	}
	var kx mat.Dense
	kx.Mul(stiff.Matrix(), xm)
	r := make([]nfd.Vec3, len(next))
	for i := range r {
		r[i] = nfd.Vec3{p[i][0] - kx.At(i, 0), p[i][1] - kx.At(i, 1), p[i][2] - kx.At(i, 2)}
	}

	return &Result{
		XYZ:       next,
		Residuals: r,
		Forces:    nfd.Forces(edges),
		Lengths:   nfd.Lengths(edges),
	}, nil
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
