package sim

import (
	"math"
	"testing"

	"github.com/molcom-sim/molcom-sim/sim/geom"
)

func mesoArena(t *testing.T, nx, ny, nz int, d float64, extra ...RegionSpec) *Arena {
	t.Helper()
	specs := append([]RegionSpec{{
		Label:    "tank",
		Shape:    geom.Box,
		Anchor:   geom.Vec3{0, 0, 0},
		SubSize:  1,
		NumX:     nx,
		NumY:     ny,
		NumZ:     nz,
		Kind:     KindNormal,
		Micro:    false,
		Dt:       1e-3,
		DiffCoef: []float64{d},
	}}, extra...)
	a, err := BuildArena(specs, 1, 0.1)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	return a
}

func newMeso(t *testing.T, a *Arena, reactions []ReactionSpec) (*MesoRegion, *MoleculeStore, *Metrics) {
	t.Helper()
	if err := CompileReactions(a, reactions); err != nil {
		t.Fatalf("CompileReactions: %v", err)
	}
	store := NewMoleculeStore(a)
	metrics := NewMetrics()
	id, _ := a.ByLabel("tank")
	m, err := NewMesoRegion(a, id, reactions, store, NewPartitionedRNG(NewSimulationKey(11)), metrics)
	if err != nil {
		t.Fatalf("NewMesoRegion: %v", err)
	}
	return m, store, metrics
}

func TestNewMesoRegion_Grid_WiresFaceNeighbors(t *testing.T) {
	// GIVEN a 2x2x2 mesoscopic box
	a := mesoArena(t, 2, 2, 2, 1e-9)
	m, _, _ := newMeso(t, a, nil)

	// THEN all 8 cells are active and each corner touches 3 others
	if len(m.active) != 8 {
		t.Fatalf("active cells: got %d, want 8", len(m.active))
	}
	for _, i := range m.active {
		s := &m.Subs[i]
		if len(s.neighbors) != 3 {
			t.Errorf("cell %d: got %d neighbors, want 3", i, len(s.neighbors))
		}
		if len(s.microFaces) != 0 {
			t.Errorf("cell %d: got %d micro faces, want 0", i, len(s.microFaces))
		}
	}
}

func TestNewMesoRegion_ChildClaimedCells_Excluded(t *testing.T) {
	// GIVEN a 3x3x3 mesoscopic box whose centre cell is claimed by a
	// microscopic child
	child := boxSpec("pocket", "tank", geom.Vec3{0.1, 0.1, 0.1}, 1, 1, 1)
	child.Dt = 1e-4
	a := mesoArena(t, 3, 3, 3, 1e-9, child)
	// boxSpec uses unit multiples of the 0.1 base, so the child spans
	// [0.1,0.2]^3 and owns exactly the middle cell.
	m, _, _ := newMeso(t, a, nil)

	// THEN the centre cell is inactive and its six face neighbours open a
	// micro face toward the child
	if len(m.active) != 26 {
		t.Fatalf("active cells: got %d, want 26", len(m.active))
	}
	pocket, _ := a.ByLabel("pocket")
	faces := 0
	for _, i := range m.active {
		for _, mf := range m.Subs[i].microFaces {
			if mf.region != pocket {
				t.Errorf("cell %d: micro face toward region %d, want %d", i, mf.region, pocket)
			}
			faces++
		}
	}
	if faces != 6 {
		t.Errorf("micro faces toward child: got %d, want 6", faces)
	}
}

func TestMesoRegion_Propensity_SumsChannels(t *testing.T) {
	// GIVEN a single-cell region with a source, a decay, and a dimerization
	a := mesoArena(t, 1, 1, 1, 1e-9)
	reactions := []ReactionSpec{
		{Label: "source", Reactants: []int{0}, Products: []int{1}, K: 2, Everywhere: true},
		{Label: "decay", Reactants: []int{1}, Products: []int{0}, K: 3, Everywhere: true},
		{Label: "dimerize", Reactants: []int{2}, Products: []int{0}, K: 5, Everywhere: true},
	}
	m, _, _ := newMeso(t, a, reactions)
	m.Subs[0].Pop[0] = 4

	// WHEN the propensity cache is rebuilt
	m.refreshAll()

	// THEN it sums k*h^3 + k*n + (k/h^3)*n*(n-1), with no diffusion exits
	h3 := 0.001
	want := 2*h3 + 3*4 + 5/h3*4*3
	if math.Abs(m.totalProp-want) > 1e-9 {
		t.Errorf("total propensity: got %g, want %g", m.totalProp, want)
	}
}

func TestMesoRegion_Propensity_IncludesDiffusionExits(t *testing.T) {
	// GIVEN two cells with 3 molecules in the first
	a := mesoArena(t, 2, 1, 1, 1.0)
	m, _, _ := newMeso(t, a, nil)
	m.Subs[0].Pop[0] = 3
	m.refreshAll()

	// THEN the first cell's propensity is D/h^2 * n * exits
	want := 1.0 / (0.1 * 0.1) * 3 * 1
	if math.Abs(m.Subs[0].prop-want) > 1e-9 {
		t.Errorf("cell propensity: got %g, want %g", m.Subs[0].prop, want)
	}
	if math.Abs(m.totalProp-want) > 1e-9 {
		t.Errorf("total propensity: got %g, want %g", m.totalProp, want)
	}
}

func TestMesoRegion_Credit_FindsContainingOrNearestCell(t *testing.T) {
	// GIVEN a 2-cell region split at x=0.1
	a := mesoArena(t, 2, 1, 1, 1e-9)
	m, _, _ := newMeso(t, a, nil)

	// WHEN a point inside the second cell is credited
	m.Credit(0, geom.Vec3{0.15, 0.05, 0.05})
	if m.Subs[1].Pop[0] != 1 {
		t.Errorf("containing cell: got %d, want 1", m.Subs[1].Pop[0])
	}

	// WHEN a point outside the region entirely is credited
	m.Credit(0, geom.Vec3{-0.05, 0.05, 0.05})

	// THEN the nearest cell takes it
	if m.Subs[0].Pop[0] != 1 {
		t.Errorf("nearest cell: got %d, want 1", m.Subs[0].Pop[0])
	}
	if got := m.Population(0); got != 2 {
		t.Errorf("population: got %d, want 2", got)
	}
}

func TestMesoRegion_Advance_DiffusionConservesMolecules(t *testing.T) {
	// GIVEN 50 molecules packed into one corner of a 2x2x2 grid
	a := mesoArena(t, 2, 2, 2, 1.0)
	m, _, metrics := newMeso(t, a, nil)
	m.Subs[0].Pop[0] = 50

	// WHEN the SSA runs for a long window
	m.Advance(1.0)

	// THEN molecules moved but none were created or destroyed
	if got := m.Population(0); got != 50 {
		t.Errorf("population: got %d, want 50", got)
	}
	if m.Subs[0].Pop[0] == 50 {
		t.Error("no diffusion event moved a molecule out of the corner")
	}
	if metrics.MesoEvents == 0 {
		t.Error("no mesoscopic events were counted")
	}
	if m.now != 1.0 {
		t.Errorf("region clock: got %g, want 1.0", m.now)
	}
}

func TestMesoRegion_Advance_FiresReactions(t *testing.T) {
	// GIVEN a fast unimolecular decay over 100 molecules
	a := mesoArena(t, 1, 1, 1, 1e-9)
	reactions := []ReactionSpec{
		{Label: "decay", Reactants: []int{1}, Products: []int{0}, K: 100, Everywhere: true},
	}
	m, _, metrics := newMeso(t, a, reactions)
	m.Subs[0].Pop[0] = 100

	// WHEN the SSA runs for many mean lifetimes
	m.Advance(1.0)

	// THEN the population decayed and each firing was counted
	decayed := 100 - m.Population(0)
	if decayed == 0 {
		t.Fatal("no decay fired")
	}
	if int(metrics.ReactionsFired) != decayed {
		t.Errorf("ReactionsFired: got %d, want %d", metrics.ReactionsFired, decayed)
	}
}

func TestMesoRegion_Handoff_DeliversToMicroNeighborRecent(t *testing.T) {
	// GIVEN a single meso cell whose x=0.1 face opens into a microscopic box
	micro := boxSpec("open", "", geom.Vec3{0.1, 0, 0}, 1, 1, 1)
	micro.Dt = 1e-3
	micro.SubSize = 1
	a := mesoArena(t, 1, 1, 1, 1.0, micro)
	m, store, metrics := newMeso(t, a, nil)
	open, _ := a.ByLabel("open")

	if got := len(m.Subs[0].microFaces); got != 1 {
		t.Fatalf("micro faces: got %d, want 1", got)
	}
	m.Subs[0].Pop[0] = 20

	// WHEN the SSA drains the cell
	m.Advance(10.0)

	// THEN every molecule landed in the neighbour's recent list, nudged past
	// the shared face with a valid partial-step fraction
	if got := m.Population(0); got != 0 {
		t.Fatalf("meso population: got %d, want 0", got)
	}
	list := store.List(open, 0)
	if len(list.Recent) != 20 {
		t.Fatalf("recent molecules: got %d, want 20", len(list.Recent))
	}
	for i, mol := range list.Recent {
		if mol.Pos[0] <= 0.1 {
			t.Errorf("molecule %d: x=%g, want > 0.1", i, mol.Pos[0])
		}
		if mol.DtPartial < 0 || mol.DtPartial > 1 {
			t.Errorf("molecule %d: dt fraction %g out of [0,1]", i, mol.DtPartial)
		}
	}
	if metrics.Handoffs != 20 {
		t.Errorf("Handoffs: got %d, want 20", metrics.Handoffs)
	}
}
