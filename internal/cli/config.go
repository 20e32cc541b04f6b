package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/cablemesh/formfind/nfd"
)

// RunConfig is the TOML run configuration. Solver fields default to the
// standard solver options; zero-valued goal sections leave the mesh data
// untouched.
type RunConfig struct {
	Solver struct {
		KMax   int     `toml:"kmax"`
		STol   float64 `toml:"stol"`
		XYZTol float64 `toml:"xyztol"`
		// SCalc is a pointer so that an explicit scalc = 0 (skip stress
		// output) is distinguishable from an absent key.
		SCalc *int `toml:"scalc"`
		// SRef is the normal of the reference plane orienting
		// non-isotropic stress goals; empty means no reference.
		SRef []float64 `toml:"sref"`
	} `toml:"solver"`

	Goals struct {
		// Stress applies one uniform goal stress to every face.
		Stress []float64 `toml:"stress"`
		// QBoundary applies one force-density goal to every boundary edge,
		// appending boundary edges missing from the mesh edge list.
		QBoundary float64 `toml:"q_boundary"`
	} `toml:"goals"`

	Loads struct {
		// Density applies selfweight to the vertex loads before solving.
		Density float64 `toml:"density"`
		// Vertex applies one uniform load to every vertex.
		Vertex []float64 `toml:"vertex"`
	} `toml:"loads"`
}

// LoadRunConfig reads a TOML run configuration. An empty path returns the
// defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	var cfg RunConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("decoding run config: %w", err)
		}
	}
	return &cfg, nil
}

// Options translates the configuration into solver options, filling in the
// solver defaults for unset fields.
func (c *RunConfig) Options() (nfd.Options, error) {
	opt := nfd.DefaultOptions()
	if c.Solver.KMax > 0 {
		opt.KMax = c.Solver.KMax
	}
	if c.Solver.STol > 0 {
		opt.STol = c.Solver.STol
	}
	if c.Solver.XYZTol > 0 {
		opt.XYZTol = c.Solver.XYZTol
	}
	if c.Solver.SCalc != nil {
		opt.SCalc = *c.Solver.SCalc
	}
	if len(c.Solver.SRef) > 0 {
		if len(c.Solver.SRef) != 3 {
			return opt, fmt.Errorf("sref must have 3 components, got %d", len(c.Solver.SRef))
		}
		ref := nfd.Vec3{c.Solver.SRef[0], c.Solver.SRef[1], c.Solver.SRef[2]}
		opt.SRef = &ref
	}
	if len(c.Goals.Stress) > 0 && len(c.Goals.Stress) != 3 {
		return opt, fmt.Errorf("goal stress must have 3 components, got %d", len(c.Goals.Stress))
	}
	if len(c.Loads.Vertex) > 0 && len(c.Loads.Vertex) != 3 {
		return opt, fmt.Errorf("vertex load must have 3 components, got %d", len(c.Loads.Vertex))
	}
	return opt, nil
}
