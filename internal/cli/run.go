package cli

import (
	"fmt"

	"github.com/cablemesh/formfind/mesh"
	"github.com/cablemesh/formfind/nfd"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "run <mesh.json>",
		Short: "Find the equilibrium shape of a mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			cfg, err := LoadRunConfig(configPath)
			if err != nil {
				return err
			}
			opt, err := cfg.Options()
			if err != nil {
				return err
			}
			opt.Logger = logger

			m, err := mesh.Load(args[0])
			if err != nil {
				return err
			}
			logger.Debug("mesh loaded", "vertices", len(m.Vertices),
				"edges", len(m.Edges), "faces", len(m.Faces))

			applyConfig(m, cfg, &opt)

			res, err := mesh.Solve(m, opt)
			if err != nil {
				return err
			}
			logger.Info("equilibrium found",
				"iterations", res.Iterations,
				"converged", res.Converged,
				"stress_residual", res.StressResidual,
				"disp_residual", res.DispResidual)

			if outPath == "" {
				outPath = args[0]
			}
			if err := m.Save(outPath); err != nil {
				return err
			}
			logger.Info("result written", "path", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML run configuration")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output mesh path (default: overwrite input)")
	return cmd
}

// applyConfig folds the uniform goals and loads of the run configuration
// into the mesh before solving.
func applyConfig(m *mesh.Mesh, cfg *RunConfig, opt *nfd.Options) {
	if s := cfg.Goals.Stress; len(s) == 3 {
		goal := [3]float64{s[0], s[1], s[2]}
		for i := range m.Faces {
			m.Faces[i].Stress = &goal
		}
	}
	if q := cfg.Goals.QBoundary; q != 0 {
		present := make(map[[2]int]int)
		for i, e := range m.Edges {
			present[canonicalPair(e.V)] = i
		}
		for _, b := range m.BoundaryEdges() {
			if i, ok := present[canonicalPair(b)]; ok {
				m.Edges[i].Q = q
			} else {
				m.Edges = append(m.Edges, mesh.Edge{V: b, Q: q})
			}
		}
	}
	if l := cfg.Loads.Vertex; len(l) == 3 {
		for i := range m.Vertices {
			m.Vertices[i].Load = nfd.Vec3{l[0], l[1], l[2]}
		}
	}
	m.ApplySelfweight(cfg.Loads.Density)
}

func canonicalPair(p [2]int) [2]int {
	if p[0] > p[1] {
		p[0], p[1] = p[1], p[0]
	}
	return p
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <mesh.json>",
		Short: "Validate a mesh file and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mesh.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), m.String())
			return nil
		},
	}
}
