package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
environment:
  base_subvolume_size: 0.1
  horizon: 0.01
species:
  - label: A
  - label: B
regions:
  - label: main
    shape: box
    anchor: [0, 0, 0]
    sub_size: 1
    num_x: 2
    num_y: 2
    num_z: 2
    dt: 0.001
    diff_coef:
      A: 1.0e-9
      B: 1.0e-9
  - label: tank
    shape: box
    anchor: [0.2, 0, 0]
    sub_size: 1
    num_x: 2
    num_y: 2
    num_z: 2
    micro: false
    dt: 0.001
    diff_coef:
      A: 1.0e-9
      B: 1.0e-9
reactions:
  - label: decay
    reactants: {A: 1}
    products: {B: 1}
    k: 5.0
    everywhere: true
actors:
  - type: release
    label: tx
    species: A
    region: main
    count: 50
    start: 0
    period: 0.002
  - type: observe
    label: rx
    start: 0
    period: 0.001
    bound:
      shape: box
      lower: [0, 0, 0]
      upper: [0.4, 0.2, 0.2]
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ParsesAllSections(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, 0.1, sc.Environment.BaseSubvolumeSize)
	assert.Equal(t, 0.01, sc.Environment.Horizon)
	assert.Len(t, sc.Species, 2)
	require.Len(t, sc.Regions, 2)
	assert.Equal(t, "box", sc.Regions[0].Shape)
	assert.Nil(t, sc.Regions[0].Micro)
	require.NotNil(t, sc.Regions[1].Micro)
	assert.False(t, *sc.Regions[1].Micro)
	assert.Equal(t, 1e-9, sc.Regions[0].DiffCoef["A"])
	require.Len(t, sc.Reactions, 1)
	assert.Equal(t, map[string]int{"A": 1}, sc.Reactions[0].Reactants)
	require.Len(t, sc.Actors, 2)
	assert.Equal(t, "release", sc.Actors[0].Type)
	assert.Equal(t, "box", sc.Actors[1].Bound.Shape)
	assert.Equal(t, []float64{0.4, 0.2, 0.2}, sc.Actors[1].Bound.Upper)

	require.NoError(t, sc.Validate())
}

func TestLoadScenario_MissingFile_Fails(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_MalformedYAML_Fails(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "environment: [not: a: mapping"))
	assert.Error(t, err)
}

func TestScenarioValidate_RejectsStructuralErrors(t *testing.T) {
	base := func(t *testing.T) *Scenario {
		sc, err := LoadScenario(writeScenario(t, scenarioYAML))
		require.NoError(t, err)
		return sc
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"zero base size", func(sc *Scenario) { sc.Environment.BaseSubvolumeSize = 0 }, "base_subvolume_size"},
		{"zero horizon", func(sc *Scenario) { sc.Environment.Horizon = 0 }, "horizon"},
		{"no species", func(sc *Scenario) { sc.Species = nil }, "species"},
		{"duplicate species", func(sc *Scenario) { sc.Species[1].Label = "A" }, "duplicate"},
		{"no regions", func(sc *Scenario) { sc.Regions = nil }, "region"},
		{"unknown shape", func(sc *Scenario) { sc.Regions[0].Shape = "torus" }, "shape"},
		{"unknown kind", func(sc *Scenario) { sc.Regions[0].Kind = "porous" }, "kind"},
		{"unknown surface", func(sc *Scenario) { sc.Regions[0].Surface = "sticky" }, "surface"},
		{"unknown axis", func(sc *Scenario) { sc.Regions[0].Axis = "w" }, "axis"},
		{"zero dt", func(sc *Scenario) { sc.Regions[0].Dt = 0 }, "dt"},
		{"diff coef species", func(sc *Scenario) { sc.Regions[0].DiffCoef["C"] = 1 }, "unknown species"},
		{"unknown parent", func(sc *Scenario) { sc.Regions[0].Parent = "ghost" }, "parent"},
		{"unknown surface kind", func(sc *Scenario) { sc.Reactions[0].SurfaceKind = "magnet" }, "surface_kind"},
		{"negative rate", func(sc *Scenario) { sc.Reactions[0].K = -1 }, "rate"},
		{"unknown reactant", func(sc *Scenario) { sc.Reactions[0].Reactants["C"] = 1 }, "reactant"},
		{"unknown product", func(sc *Scenario) { sc.Reactions[0].Products["C"] = 1 }, "product"},
		{"unknown exception", func(sc *Scenario) { sc.Reactions[0].Exceptions = []string{"ghost"} }, "exception"},
		{"release species", func(sc *Scenario) { sc.Actors[0].Species = "C" }, "species"},
		{"release region", func(sc *Scenario) { sc.Actors[0].Region = "ghost" }, "region"},
		{"release count", func(sc *Scenario) { sc.Actors[0].Count = 0 }, "count"},
		{"observe bound", func(sc *Scenario) { sc.Actors[1].Bound.Shape = "torus" }, "bound"},
		{"actor type", func(sc *Scenario) { sc.Actors[0].Type = "teleport" }, "type"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc := base(t)
			tc.mutate(sc)
			err := sc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestScenarioBuild_AssemblesSimulator(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	s, err := sc.Build(1, nil)
	require.NoError(t, err)

	require.Len(t, s.Arena.Regions, 2)
	main, ok := s.Arena.ByLabel("main")
	require.True(t, ok)
	assert.True(t, s.Arena.Regions[main].Micro())
	tank, ok := s.Arena.ByLabel("tank")
	require.True(t, ok)
	assert.False(t, s.Arena.Regions[tank].Micro())
	assert.Contains(t, s.Meso, tank)
	assert.NotNil(t, s.Arena.Regions[main].Table)

	// Initial schedule: two region steps, one release, one observe.
	assert.Equal(t, 4, s.EventQueue.Len())
}

func TestScenarioBuild_InvalidScenario_Fails(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)
	sc.Regions[1].Anchor = []float64{0.1, 0, 0} // overlaps the first region

	_, err = sc.Build(1, nil)
	assert.Error(t, err)
}
