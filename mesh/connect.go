package mesh

import "sort"

// edgeKey is the canonical signature of an undirected edge: endpoints in
// ascending order.
type edgeKey [2]int

func canonical(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// UniqueEdges returns every undirected edge of the mesh: the explicit cable
// edges merged with the edges implied by the face rings, deduplicated by
// canonical signature and sorted for a stable order.
func (m *Mesh) UniqueEdges() [][2]int {
	seen := make(map[edgeKey]bool)
	var out [][2]int
	add := func(a, b int) {
		k := canonical(a, b)
		if !seen[k] {
			seen[k] = true
			out = append(out, [2]int{k[0], k[1]})
		}
	}
	for _, e := range m.Edges {
		add(e.V[0], e.V[1])
	}
	for _, f := range m.Faces {
		ids := f.Vertices
		for i := range ids {
			add(ids[i], ids[(i+1)%len(ids)])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// BoundaryEdges returns the face edges that belong to exactly one face,
// sorted for a stable order. Explicit cable edges do not count towards
// face membership.
func (m *Mesh) BoundaryEdges() [][2]int {
	count := make(map[edgeKey]int)
	for _, f := range m.Faces {
		ids := f.Vertices
		for i := range ids {
			count[canonical(ids[i], ids[(i+1)%len(ids)])]++
		}
	}
	var out [][2]int
	for k, c := range count {
		if c == 1 {
			out = append(out, [2]int{k[0], k[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// VertexDegrees returns the number of unique incident edges per vertex.
func (m *Mesh) VertexDegrees() []int {
	deg := make([]int, len(m.Vertices))
	for _, e := range m.UniqueEdges() {
		deg[e[0]]++
		deg[e[1]]++
	}
	return deg
}
