// Package mesh holds the mesh data the solvers consume and write back to:
// vertices with fixed flags and loads, cable edges with force or
// force-density goals, and membrane faces with goal stress fields.
package mesh

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cablemesh/formfind/nfd"
)

var (
	// ErrVertexIndex is returned by Validate for edges or faces that
	// reference a vertex outside the mesh.
	ErrVertexIndex = errors.New("vertex index out of range")

	// ErrFaceArity is returned by Validate for faces that are neither
	// triangles nor quads.
	ErrFaceArity = errors.New("face must have 3 or 4 vertices")
)

// Vertex is a mesh point. Reaction is a solver output.
type Vertex struct {
	XYZ      nfd.Vec3 `json:"xyz"`
	Fixed    bool     `json:"fixed,omitempty"`
	Load     nfd.Vec3 `json:"load,omitempty"`
	Reaction nfd.Vec3 `json:"reaction,omitempty"`
}

// Edge is a cable element. Q and Force are goals; ResultForce and Length
// are solver outputs.
type Edge struct {
	V           [2]int  `json:"v"`
	Q           float64 `json:"q,omitempty"`
	Force       float64 `json:"force,omitempty"`
	ResultForce float64 `json:"result_force,omitempty"`
	Length      float64 `json:"length,omitempty"`
}

// Face is a membrane element with 3 or 4 ordered vertices. Stress is the
// goal stress pseudo-vector in the face frame; a nil value means the
// default isotropic field (1, 1, 0). ResultStress is a solver output whose
// shape depends on the requested stress mode.
type Face struct {
	Vertices     []int       `json:"vertices"`
	Stress       *[3]float64 `json:"stress,omitempty"`
	GlobalLoad   *nfd.Vec3   `json:"global_load,omitempty"`
	LocalLoad    *nfd.Vec3   `json:"local_load,omitempty"`
	ResultStress []float64   `json:"result_stress,omitempty"`
}

// Mesh is the full structure handed to the solvers.
type Mesh struct {
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges,omitempty"`
	Faces    []Face   `json:"faces,omitempty"`
}

// FromJSON decodes a mesh and validates it.
func FromJSON(data []byte) (*Mesh, error) {
	var m Mesh
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding mesh: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and decodes a mesh file.
func Load(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}

// ToJSON encodes the mesh with indentation.
func (m *Mesh) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Save writes the mesh to a file.
func (m *Mesh) Save(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks vertex references and face arity.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, e := range m.Edges {
		if e.V[0] < 0 || e.V[0] >= n || e.V[1] < 0 || e.V[1] >= n {
			return fmt.Errorf("edge %d: %w", i, ErrVertexIndex)
		}
	}
	for i, f := range m.Faces {
		if len(f.Vertices) != 3 && len(f.Vertices) != 4 {
			return fmt.Errorf("face %d with %d vertices: %w", i, len(f.Vertices), ErrFaceArity)
		}
		for _, v := range f.Vertices {
			if v < 0 || v >= n {
				return fmt.Errorf("face %d: %w", i, ErrVertexIndex)
			}
		}
	}
	return nil
}

// XYZ returns the vertex coordinates.
func (m *Mesh) XYZ() []nfd.Vec3 {
	xyz := make([]nfd.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		xyz[i] = v.XYZ
	}
	return xyz
}

// FixedIndices returns the indices of anchored vertices.
func (m *Mesh) FixedIndices() []int {
	var fixed []int
	for i, v := range m.Vertices {
		if v.Fixed {
			fixed = append(fixed, i)
		}
	}
	return fixed
}

// VertexLoads returns per-vertex loads, or nil when no vertex carries one.
func (m *Mesh) VertexLoads() []nfd.Vec3 {
	any := false
	loads := make([]nfd.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		loads[i] = v.Load
		if v.Load != (nfd.Vec3{}) {
			any = true
		}
	}
	if !any {
		return nil
	}
	return loads
}

// EdgePairs returns the edge endpoint pairs.
func (m *Mesh) EdgePairs() [][2]int {
	pairs := make([][2]int, len(m.Edges))
	for i, e := range m.Edges {
		pairs[i] = e.V
	}
	return pairs
}

// QGoals returns per-edge force-density goals, or nil when none are set.
func (m *Mesh) QGoals() []float64 {
	any := false
	q := make([]float64, len(m.Edges))
	for i, e := range m.Edges {
		q[i] = e.Q
		if e.Q != 0 {
			any = true
		}
	}
	if !any {
		return nil
	}
	return q
}

// ForceGoals returns per-edge force goals, or nil when none are set.
func (m *Mesh) ForceGoals() []float64 {
	any := false
	f := make([]float64, len(m.Edges))
	for i, e := range m.Edges {
		f[i] = e.Force
		if e.Force != 0 {
			any = true
		}
	}
	if !any {
		return nil
	}
	return f
}

// FaceLists returns the ordered vertex lists of all faces.
func (m *Mesh) FaceLists() [][]int {
	lists := make([][]int, len(m.Faces))
	for i, f := range m.Faces {
		lists[i] = f.Vertices
	}
	return lists
}

// StressGoals returns per-face goal stresses with the default isotropic
// field filled in, or nil when every face uses the default.
func (m *Mesh) StressGoals() [][3]float64 {
	any := false
	goals := make([][3]float64, len(m.Faces))
	for i, f := range m.Faces {
		if f.Stress != nil {
			goals[i] = *f.Stress
			any = true
		} else {
			goals[i] = [3]float64{1, 1, 0}
		}
	}
	if !any {
		return nil
	}
	return goals
}

// GlobalFaceLoads returns per-face global loads, or nil when none are set.
func (m *Mesh) GlobalFaceLoads() []nfd.Vec3 {
	return faceLoads(m.Faces, func(f Face) *nfd.Vec3 { return f.GlobalLoad })
}

// LocalFaceLoads returns per-face local-frame loads, or nil when none are
// set.
func (m *Mesh) LocalFaceLoads() []nfd.Vec3 {
	return faceLoads(m.Faces, func(f Face) *nfd.Vec3 { return f.LocalLoad })
}

func faceLoads(faces []Face, pick func(Face) *nfd.Vec3) []nfd.Vec3 {
	any := false
	loads := make([]nfd.Vec3, len(faces))
	for i, f := range faces {
		if p := pick(f); p != nil {
			loads[i] = *p
			any = true
		}
	}
	if !any {
		return nil
	}
	return loads
}

// FaceArea returns the area of face i at current coordinates, triangulated
// by the fan around the first vertex for quads.
func (m *Mesh) FaceArea(i int) float64 {
	ids := m.Faces[i].Vertices
	var area float64
	p0 := m.Vertices[ids[0]].XYZ
	for k := 1; k < len(ids)-1; k++ {
		u := m.Vertices[ids[k]].XYZ.Sub(p0)
		v := m.Vertices[ids[k+1]].XYZ.Sub(p0)
		area += 0.5 * u.Cross(v).Norm()
	}
	return area
}

// ApplySelfweight subtracts the tributary selfweight of the faces from the
// vertical load of every vertex: each face spreads density times area
// equally over its corners.
func (m *Mesh) ApplySelfweight(density float64) {
	if density == 0 {
		return
	}
	for i, f := range m.Faces {
		w := density * m.FaceArea(i) / float64(len(f.Vertices))
		for _, vi := range f.Vertices {
			m.Vertices[vi].Load[2] -= w
		}
	}
}

// SetEquilibrium writes a solver result back into the mesh.
func (m *Mesh) SetEquilibrium(res *nfd.Result) {
	for i := range m.Vertices {
		m.Vertices[i].XYZ = res.XYZ[i]
		m.Vertices[i].Reaction = res.Reactions[i]
	}
	for i := range m.Edges {
		m.Edges[i].ResultForce = res.Forces[i]
		m.Edges[i].Length = res.Lengths[i]
	}
	if res.Stresses == nil {
		return
	}
	for i := range m.Faces {
		a := res.Stresses.Amplitudes[i]
		m.Faces[i].ResultStress = []float64{a[0], a[1], a[2]}
	}
}

// String returns a human-readable summary of the mesh.
func (m *Mesh) String() string {
	var sb strings.Builder
	sb.WriteString("=== Mesh Summary ===\n")
	sb.WriteString(fmt.Sprintf("  Vertices: %d (%d anchored)\n", len(m.Vertices), len(m.FixedIndices())))
	sb.WriteString(fmt.Sprintf("  Edges:    %d\n", len(m.Edges)))
	sb.WriteString(fmt.Sprintf("  Faces:    %d\n", len(m.Faces)))
	if len(m.Vertices) > 0 {
		lo := nfd.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
		hi := nfd.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		for _, v := range m.Vertices {
			for d := 0; d < 3; d++ {
				lo[d] = math.Min(lo[d], v.XYZ[d])
				hi[d] = math.Max(hi[d], v.XYZ[d])
			}
		}
		sb.WriteString(fmt.Sprintf("  Bounds:   [%.4g %.4g %.4g] to [%.4g %.4g %.4g]\n",
			lo[0], lo[1], lo[2], hi[0], hi[1], hi[2]))
	}
	return sb.String()
}
