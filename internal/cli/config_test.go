package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cablemesh/formfind/mesh"
	"github.com/cablemesh/formfind/nfd"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeFile(t, "run.toml", `
[solver]
kmax = 25
stol = 1e-4
xyztol = 1e-3
scalc = 2
sref = [0.0, 0.0, 1.0]

[goals]
stress = [2.0, 1.0, 0.0]
q_boundary = 15.0

[loads]
density = 0.05
vertex = [0.0, 0.0, -0.1]
`)
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Solver.KMax)
	assert.Equal(t, 1e-4, cfg.Solver.STol)
	assert.Equal(t, 15.0, cfg.Goals.QBoundary)
	assert.Equal(t, []float64{2, 1, 0}, cfg.Goals.Stress)
	assert.Equal(t, 0.05, cfg.Loads.Density)

	opt, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 25, opt.KMax)
	assert.Equal(t, 1e-4, opt.STol)
	assert.Equal(t, 1e-3, opt.XYZTol)
	assert.Equal(t, nfd.SCalcPrincipal, opt.SCalc)
	require.NotNil(t, opt.SRef)
	assert.Equal(t, nfd.Vec3{0, 0, 1}, *opt.SRef)
}

func TestLoadRunConfigDefaults(t *testing.T) {
	cfg, err := LoadRunConfig("")
	require.NoError(t, err)

	opt, err := cfg.Options()
	require.NoError(t, err)

	def := nfd.DefaultOptions()
	assert.Equal(t, def.KMax, opt.KMax)
	assert.Equal(t, def.STol, opt.STol)
	assert.Equal(t, def.XYZTol, opt.XYZTol)
	assert.Equal(t, def.SCalc, opt.SCalc)
	assert.Nil(t, opt.SRef)
}

func TestLoadRunConfigExplicitSCalcNone(t *testing.T) {
	// scalc = 0 disables stress output; an absent key keeps the default
	path := writeFile(t, "run.toml", `
[solver]
scalc = 0
`)
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Solver.SCalc)

	opt, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, nfd.SCalcNone, opt.SCalc)
}

func TestRunConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*RunConfig)
	}{
		{"ShortSRef", func(c *RunConfig) { c.Solver.SRef = []float64{0, 1} }},
		{"ShortStress", func(c *RunConfig) { c.Goals.Stress = []float64{1} }},
		{"LongVertexLoad", func(c *RunConfig) { c.Loads.Vertex = []float64{0, 0, -1, 0} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg RunConfig
			tc.mod(&cfg)
			_, err := cfg.Options()
			assert.Error(t, err)
		})
	}
}

func TestApplyConfig(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{
			{XYZ: nfd.Vec3{0, 0, 0}, Fixed: true},
			{XYZ: nfd.Vec3{1, 0, 0}, Fixed: true},
			{XYZ: nfd.Vec3{1, 1, 0}, Fixed: true},
			{XYZ: nfd.Vec3{0, 1, 0}, Fixed: true},
		},
		Edges: []mesh.Edge{{V: [2]int{0, 1}}},
		Faces: []mesh.Face{{Vertices: []int{0, 1, 2, 3}}},
	}
	var cfg RunConfig
	cfg.Goals.Stress = []float64{2, 1, 0}
	cfg.Goals.QBoundary = 15
	cfg.Loads.Vertex = []float64{0, 0, -0.5}
	cfg.Loads.Density = 1

	opt := nfd.DefaultOptions()
	applyConfig(m, &cfg, &opt)

	require.NotNil(t, m.Faces[0].Stress)
	assert.Equal(t, [3]float64{2, 1, 0}, *m.Faces[0].Stress)

	// the existing boundary edge gets the goal, the three missing rim edges
	// are appended
	assert.Len(t, m.Edges, 4)
	for _, e := range m.Edges {
		assert.Equal(t, 15.0, e.Q)
	}

	// uniform load plus selfweight: area 1 spread over 4 corners
	assert.InDelta(t, -0.75, m.Vertices[0].Load[2], 1e-12)
}

func TestCheckCommand(t *testing.T) {
	m := &mesh.Mesh{Vertices: []mesh.Vertex{{}, {}, {}}, Faces: []mesh.Face{{Vertices: []int{0, 1, 2}}}}
	data, err := m.ToJSON()
	require.NoError(t, err)
	path := writeFile(t, "mesh.json", string(data))

	cmd := newCheckCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Vertices: 3")
}

func TestRunCommandEndToEnd(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []mesh.Vertex{
			{XYZ: nfd.Vec3{0, 0, 0}, Fixed: true},
			{XYZ: nfd.Vec3{1, 0, 0}, Fixed: true},
			{XYZ: nfd.Vec3{1, 1, 0}, Fixed: true},
			{XYZ: nfd.Vec3{0, 1, 0}, Fixed: true},
		},
		Faces: []mesh.Face{{Vertices: []int{0, 1, 2, 3}}},
	}
	data, err := m.ToJSON()
	require.NoError(t, err)
	in := writeFile(t, "mesh.json", string(data))
	out := filepath.Join(filepath.Dir(in), "out.json")

	cmd := newRunCmd()
	cmd.SetArgs([]string{in, "-o", out})
	require.NoError(t, cmd.Execute())

	solved, err := mesh.Load(out)
	require.NoError(t, err)
	assert.Len(t, solved.Faces[0].ResultStress, 3)
	assert.InDelta(t, 1, solved.Faces[0].ResultStress[0], 1e-9)
}
