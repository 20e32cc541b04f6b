package mesh

import "github.com/cablemesh/formfind/nfd"

// Solve runs the natural force density solver on the mesh and writes the
// equilibrium back into it. Goals and loads stored on mesh elements fill
// any option slices the caller left nil; explicitly set option slices win.
func Solve(m *Mesh, opt nfd.Options) (*nfd.Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if opt.StressGoals == nil {
		opt.StressGoals = m.StressGoals()
	}
	if opt.QGoals == nil {
		opt.QGoals = m.QGoals()
	}
	if opt.ForceGoals == nil {
		opt.ForceGoals = m.ForceGoals()
	}
	if opt.VertexLoads == nil {
		opt.VertexLoads = m.VertexLoads()
	}
	if opt.GlobalFaceLoads == nil {
		opt.GlobalFaceLoads = m.GlobalFaceLoads()
	}
	if opt.LocalFaceLoads == nil {
		opt.LocalFaceLoads = m.LocalFaceLoads()
	}
	res, err := nfd.SolveNatural(m.XYZ(), m.FixedIndices(), m.EdgePairs(), m.FaceLists(), opt)
	if err != nil {
		return nil, err
	}
	m.SetEquilibrium(res)
	return res, nil
}
