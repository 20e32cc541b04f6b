package nfd

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// triplets accumulates sparse matrix entries additively, mirroring COO
// assembly. The same vertex pair may be touched by several elements, so
// entries must sum rather than overwrite.
type triplets struct {
	n    int
	vals map[int]float64
}

func newTriplets(n int) *triplets {
	return &triplets{n: n, vals: make(map[int]float64)}
}

func (t *triplets) add(i, j int, v float64) {
	t.vals[i*t.n+j] += v
}

// coo returns the accumulated entries in row-major order.
func (t *triplets) coo() (rows, cols []int, data []float64) {
	keys := make([]int, 0, len(t.vals))
	for k := range t.vals {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	rows = make([]int, len(keys))
	cols = make([]int, len(keys))
	data = make([]float64, len(keys))
	for i, k := range keys {
		rows[i] = k / t.n
		cols[i] = k % t.n
		data[i] = t.vals[k]
	}
	return rows, cols, data
}

// Stiffness is the global force-density stiffness matrix for one solver
// iteration, with read-only views of its free and fixed blocks. Face force
// densities are geometry dependent, so a new Stiffness must be assembled
// whenever the geometry has moved.
type Stiffness struct {
	free, fixed []int
	matrix      *sparse.CSR
}

// NewStiffness assembles the stiffness matrix from the current force
// densities of all edges and faces. Deriving face densities can fail on
// degenerate geometry, in which case assembly is aborted.
func NewStiffness(free, fixed []int, edges []*Edge, faces []Face) (*Stiffness, error) {
	n := len(free) + len(fixed)
	acc := newTriplets(n)
	for _, f := range faces {
		nd, err := f.ForceDensities()
		if err != nil {
			return nil, err
		}
		ids := f.VertexIDs()
		switch len(ids) {
		case 3:
			addTriBlock(acc, ids, nd)
		case 4:
			addQuadBlock(acc, ids, nd)
		default:
			return nil, fmt.Errorf("face %v: %w", ids, ErrFaceArity)
		}
	}
	for _, e := range edges {
		q := e.ForceDensity()
		acc.add(e.V0, e.V0, q)
		acc.add(e.V1, e.V1, q)
		acc.add(e.V0, e.V1, -q)
		acc.add(e.V1, e.V0, -q)
	}
	rows, cols, data := acc.coo()
	coo := sparse.NewCOO(n, n, rows, cols, data)
	return &Stiffness{free: free, fixed: fixed, matrix: coo.ToCSR()}, nil
}

// addTriBlock enters the 3x3 contribution of a triangle: the diagonal sums
// the two densities adjacent to each vertex, off-diagonals carry the
// negated density of the connecting edge.
func addTriBlock(acc *triplets, ids []int, n []float64) {
	v0, v1, v2 := ids[0], ids[1], ids[2]
	acc.add(v0, v0, n[1]+n[2])
	acc.add(v1, v1, n[0]+n[2])
	acc.add(v2, v2, n[0]+n[1])
	acc.add(v0, v1, -n[2])
	acc.add(v1, v0, -n[2])
	acc.add(v1, v2, -n[0])
	acc.add(v2, v1, -n[0])
	acc.add(v0, v2, -n[1])
	acc.add(v2, v0, -n[1])
}

// addQuadBlock enters the 4x4 contribution of a quad, edges and both
// diagonal connections. Densities arrive as e01, e12, e23, e30, d13, d02.
func addQuadBlock(acc *triplets, ids []int, n []float64) {
	v0, v1, v2, v3 := ids[0], ids[1], ids[2], ids[3]
	acc.add(v0, v0, n[0]+n[3]+n[5])
	acc.add(v1, v1, n[0]+n[1]+n[4])
	acc.add(v2, v2, n[1]+n[2]+n[5])
	acc.add(v3, v3, n[2]+n[3]+n[4])
	acc.add(v0, v1, -n[0])
	acc.add(v1, v0, -n[0])
	acc.add(v1, v2, -n[1])
	acc.add(v2, v1, -n[1])
	acc.add(v2, v3, -n[2])
	acc.add(v3, v2, -n[2])
	acc.add(v3, v0, -n[3])
	acc.add(v0, v3, -n[3])
	acc.add(v1, v3, -n[4])
	acc.add(v3, v1, -n[4])
	acc.add(v0, v2, -n[5])
	acc.add(v2, v0, -n[5])
}

// Matrix returns the full sparse stiffness matrix.
func (s *Stiffness) Matrix() *sparse.CSR { return s.matrix }

// Free returns the free x free submatrix as a dense matrix.
func (s *Stiffness) Free() *mat.Dense {
	return s.submatrix(s.free, s.free)
}

// FreeFixed returns the free x fixed submatrix as a dense matrix.
func (s *Stiffness) FreeFixed() *mat.Dense {
	return s.submatrix(s.free, s.fixed)
}

func (s *Stiffness) submatrix(rows, cols []int) *mat.Dense {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			m.Set(i, j, s.matrix.At(r, c))
		}
	}
	return m
}

// Loads assembles the dense vertex load matrix. It is created once per run
// and persists across iterations; Update refreshes the face-distributed
// component against the latest face areas and frames.
type Loads struct {
	faces  []Face
	base   []Vec3
	global []Vec3
	local  []Vec3
	cur    []Vec3
}

// NewLoads builds the load assembler. vertex, global and local may each be
// nil; global and local must otherwise have one entry per face.
func NewLoads(n int, faces []Face, vertex, global, local []Vec3) *Loads {
	base := make([]Vec3, n)
	copy(base, vertex)
	l := &Loads{faces: faces, base: base, global: global, local: local, cur: base}
	return l
}

// Update reassembles the load matrix for the current geometry. Without face
// loads the static vertex loads stand and this is a no-op. Face loads are
// scaled by area over vertex count and spread to the face vertices; local
// face loads are first rotated into the global frame.
func (l *Loads) Update() {
	if l.global == nil && l.local == nil {
		return
	}
	l.cur = cloneVecs(l.base)
	if l.global != nil {
		l.addFaceLoads(l.global, false)
	}
	if l.local != nil {
		l.addFaceLoads(l.local, true)
	}
}

func (l *Loads) addFaceLoads(loads []Vec3, local bool) {
	for i, f := range l.faces {
		w := loads[i]
		if local {
			w = f.Frame().ToGlobal(w)
		}
		ids := f.VertexIDs()
		w = w.Scale(f.Area() / float64(len(ids)))
		for _, v := range ids {
			l.cur[v] = l.cur[v].Add(w)
		}
	}
}

// Matrix returns the current per-vertex load vectors.
func (l *Loads) Matrix() []Vec3 { return l.cur }
