package sim

import (
	"math"
	"testing"

	"github.com/molcom-sim/molcom-sim/sim/geom"
)

func newTestValidator(t *testing.T, a *Arena, specs []ReactionSpec) (*Validator, *Metrics) {
	t.Helper()
	if err := CompileReactions(a, specs); err != nil {
		t.Fatalf("CompileReactions: %v", err)
	}
	m := NewMetrics()
	return NewValidator(a, specs, NewPartitionedRNG(NewSimulationKey(42)), m), m
}

func TestValidatorStep_InsideRegion_Commits(t *testing.T) {
	// GIVEN a single unit box region
	specs := []RegionSpec{boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1)}
	a, err := BuildArena(specs, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	v, m := newTestValidator(t, a, nil)

	// WHEN a displacement stays inside
	res := v.Step(0, 0, geom.Vec3{0.5, 0.5, 0.5}, geom.Vec3{0.6, 0.5, 0.5})

	// THEN it commits in place
	if res.Outcome != OutcomeCommitted || res.Region != 0 {
		t.Errorf("got %v in region %d, want committed in 0", res.Outcome, res.Region)
	}
	if res.Pos != (geom.Vec3{0.6, 0.5, 0.5}) {
		t.Errorf("pos: got %v", res.Pos)
	}
	if m.Steps != 1 {
		t.Errorf("Steps: got %d, want 1", m.Steps)
	}
}

func TestValidatorStep_WallCrossing_Reflects(t *testing.T) {
	// GIVEN a unit box with no neighbour beyond x=1
	specs := []RegionSpec{boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1)}
	a, err := BuildArena(specs, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	v, m := newTestValidator(t, a, nil)

	// WHEN a molecule at (0.9, 0.5, 0.5) is displaced by (+0.3, 0, 0)
	res := v.Step(0, 0, geom.Vec3{0.9, 0.5, 0.5}, geom.Vec3{1.2, 0.5, 0.5})

	// THEN it reflects off x=1 and settles at (0.8, 0.5, 0.5)
	if res.Outcome != OutcomeReflected || res.Region != 0 {
		t.Fatalf("got %v in region %d, want reflected in 0", res.Outcome, res.Region)
	}
	if math.Abs(res.Pos[0]-0.8) > 1e-12 || res.Pos[1] != 0.5 || res.Pos[2] != 0.5 {
		t.Errorf("pos: got %v, want (0.8, 0.5, 0.5)", res.Pos)
	}
	if m.Reflections != 1 {
		t.Errorf("Reflections: got %d, want 1", m.Reflections)
	}
}

func TestValidatorStep_AdjacentMicroRegion_Transmits(t *testing.T) {
	// GIVEN two microscopic boxes sharing the x=1 face
	specs := []RegionSpec{
		boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1),
		boxSpec("side", "", geom.Vec3{1, 0, 0}, 1, 1, 1),
	}
	a, err := BuildArena(specs, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	v, m := newTestValidator(t, a, nil)
	side, _ := a.ByLabel("side")

	// WHEN a displacement carries a molecule across the face
	res := v.Step(0, 0, geom.Vec3{0.9, 0.5, 0.5}, geom.Vec3{1.3, 0.5, 0.5})

	// THEN it ends inside the neighbour at the full displacement
	if res.Outcome != OutcomeTransmitted || res.Region != side {
		t.Fatalf("got %v in region %d, want transmitted into %d", res.Outcome, res.Region, side)
	}
	if res.Pos != (geom.Vec3{1.3, 0.5, 0.5}) {
		t.Errorf("pos: got %v, want (1.3, 0.5, 0.5)", res.Pos)
	}
	if m.Transmissions != 1 {
		t.Errorf("Transmissions: got %d, want 1", m.Transmissions)
	}
}

func TestValidatorStep_AdjacentMesoRegion_HandsOffAtBoundary(t *testing.T) {
	// GIVEN a microscopic box next to a mesoscopic one
	meso := boxSpec("side", "", geom.Vec3{1, 0, 0}, 1, 1, 1)
	meso.Micro = false
	specs := []RegionSpec{
		boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1),
		meso,
	}
	a, err := BuildArena(specs, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	v, m := newTestValidator(t, a, nil)
	side, _ := a.ByLabel("side")

	// WHEN a displacement crosses into the mesoscopic region
	res := v.Step(0, 0, geom.Vec3{0.9, 0.5, 0.5}, geom.Vec3{1.3, 0.5, 0.5})

	// THEN the path terminates at the boundary contact point
	if res.Outcome != OutcomeTransmitted || res.Region != side {
		t.Fatalf("got %v in region %d, want transmitted into %d", res.Outcome, res.Region, side)
	}
	if math.Abs(res.Pos[0]-1.0) > 1e-12 {
		t.Errorf("handoff x: got %g, want 1", res.Pos[0])
	}
	if m.Handoffs != 1 {
		t.Errorf("Handoffs: got %d, want 1", m.Handoffs)
	}
}

func surfaceNeighborArena(t *testing.T) *Arena {
	t.Helper()
	wall := RegionSpec{
		Label:    "wall",
		Shape:    geom.Box,
		Anchor:   geom.Vec3{1, 0, 0},
		SubSize:  1,
		NumX:     1,
		NumY:     1,
		NumZ:     1,
		Kind:     KindSurface3D,
		Surface:  SurfaceInner,
		Micro:    true,
		Dt:       0.01,
		DiffCoef: []float64{1e-12},
	}
	main := boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1)
	main.Dt = 0.01
	main.DiffCoef = []float64{1e-12}
	a, err := BuildArena([]RegionSpec{main, wall}, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	return a
}

func TestValidatorStep_AbsorbingSurface_ConsumesOnContact(t *testing.T) {
	// GIVEN an absorbing surface whose first-passage probability exceeds 1
	a := surfaceNeighborArena(t)
	reactions := []ReactionSpec{{
		Label:       "sink",
		Reactants:   []int{1},
		Products:    []int{0},
		K:           1,
		Surface:     true,
		SurfaceKind: SurfAbsorbing,
		Everywhere:  true,
	}}
	v, m := newTestValidator(t, a, reactions)
	wall, _ := a.ByLabel("wall")

	// WHEN a molecule reaches the surface
	res := v.Step(0, 0, geom.Vec3{0.9, 0.5, 0.5}, geom.Vec3{1.3, 0.5, 0.5})

	// THEN it is absorbed at the contact point with the reaction recorded
	if res.Outcome != OutcomeAbsorbed || res.Region != wall || res.Reaction != 0 {
		t.Fatalf("got (%v, region %d, reaction %d), want (absorbed, %d, 0)",
			res.Outcome, res.Region, res.Reaction, wall)
	}
	if math.Abs(res.Pos[0]-1.0) > 1e-12 {
		t.Errorf("contact x: got %g, want 1", res.Pos[0])
	}
	if m.Absorptions != 1 {
		t.Errorf("Absorptions: got %d, want 1", m.Absorptions)
	}
}

func TestValidatorStep_PassiveSurface_ReflectsBack(t *testing.T) {
	// GIVEN a surface neighbour with no reaction bound to the species
	a := surfaceNeighborArena(t)
	v, _ := newTestValidator(t, a, nil)

	// WHEN a molecule reaches the surface
	res := v.Step(0, 0, geom.Vec3{0.9, 0.5, 0.5}, geom.Vec3{1.3, 0.5, 0.5})

	// THEN it reflects back into its own region
	if res.Outcome != OutcomeReflected || res.Region != 0 {
		t.Fatalf("got %v in region %d, want reflected in 0", res.Outcome, res.Region)
	}
	if math.Abs(res.Pos[0]-0.7) > 1e-12 {
		t.Errorf("pos x: got %g, want 0.7", res.Pos[0])
	}
}

func surfaceChildArena(t *testing.T) *Arena {
	t.Helper()
	tank := boxSpec("tank", "", geom.Vec3{0, 0, 0}, 3, 3, 3)
	tank.Dt = 0.01
	tank.DiffCoef = []float64{1e-12}
	slab := RegionSpec{
		Label:    "slab",
		Parent:   "tank",
		Shape:    geom.Box,
		Anchor:   geom.Vec3{1, 0, 0},
		SubSize:  1,
		NumX:     1,
		NumY:     3,
		NumZ:     3,
		Kind:     KindSurface3D,
		Surface:  SurfaceInner,
		Micro:    true,
		Dt:       0.01,
		DiffCoef: []float64{1e-12},
	}
	a, err := BuildArena([]RegionSpec{tank, slab}, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	return a
}

func TestValidatorStep_ChildSurfaceOnPath_Absorbs(t *testing.T) {
	// GIVEN an absorbing surface slab nested inside its parent, placed so a
	// straight path can cross it and still end inside the parent
	a := surfaceChildArena(t)
	reactions := []ReactionSpec{{
		Label:       "sink",
		Reactants:   []int{1},
		Products:    []int{0},
		K:           1,
		Surface:     true,
		SurfaceKind: SurfAbsorbing,
		Everywhere:  true,
	}}
	v, m := newTestValidator(t, a, reactions)
	slab, _ := a.ByLabel("slab")

	// WHEN a displacement carries the molecule through the slab
	res := v.Step(0, 0, geom.Vec3{0.5, 1.5, 1.5}, geom.Vec3{2.5, 1.5, 1.5})

	// THEN the slab consumes it on first contact; the far side is unreachable
	if res.Outcome != OutcomeAbsorbed || res.Region != slab || res.Reaction != 0 {
		t.Fatalf("got (%v, region %d, reaction %d), want (absorbed, %d, 0)",
			res.Outcome, res.Region, res.Reaction, slab)
	}
	if math.Abs(res.Pos[0]-1.0) > 1e-12 {
		t.Errorf("contact x: got %g, want 1", res.Pos[0])
	}
	if m.Absorptions != 1 {
		t.Errorf("Absorptions: got %d, want 1", m.Absorptions)
	}
}

func TestValidatorStep_PassiveChildSurface_ReflectsInsideParent(t *testing.T) {
	// GIVEN the nested slab with no reaction bound to the species
	a := surfaceChildArena(t)
	v, _ := newTestValidator(t, a, nil)

	// WHEN a displacement would cross the slab
	res := v.Step(0, 0, geom.Vec3{0.5, 1.5, 1.5}, geom.Vec3{2.5, 1.5, 1.5})

	// THEN the path mirrors off x=1, then off the parent wall at x=0
	if res.Outcome != OutcomeReflected || res.Region != 0 {
		t.Fatalf("got %v in region %d, want reflected in 0", res.Outcome, res.Region)
	}
	if math.Abs(res.Pos[0]-0.5) > 1e-12 || res.Pos[1] != 1.5 || res.Pos[2] != 1.5 {
		t.Errorf("pos: got %v, want (0.5, 1.5, 1.5)", res.Pos)
	}
}

func TestValidatorStep_ParentWithChild_InteriorCommit(t *testing.T) {
	// GIVEN the nested slab arena
	a := surfaceChildArena(t)
	v, _ := newTestValidator(t, a, nil)

	// WHEN a displacement stays short of the slab
	res := v.Step(0, 0, geom.Vec3{0.3, 1.5, 1.5}, geom.Vec3{0.6, 1.5, 1.5})

	// THEN it commits in place
	if res.Outcome != OutcomeCommitted || res.Region != 0 {
		t.Fatalf("got %v in region %d, want committed in 0", res.Outcome, res.Region)
	}
	if res.Pos != (geom.Vec3{0.6, 1.5, 1.5}) {
		t.Errorf("pos: got %v", res.Pos)
	}
}

func TestValidatorDisplace_SurfacePlane_StaysFlat(t *testing.T) {
	// GIVEN a planar rectangle region at z = 0.5
	spec := RegionSpec{
		Label:    "sheet",
		Shape:    geom.Rectangle,
		Anchor:   geom.Vec3{0, 0, 0.5},
		SubSize:  1,
		NumX:     2,
		NumY:     2,
		NumZ:     0,
		Kind:     KindNormal,
		Micro:    true,
		Dt:       1e-3,
		DiffCoef: []float64{1e-9},
	}
	a, err := BuildArena([]RegionSpec{spec}, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	v, _ := newTestValidator(t, a, nil)

	// WHEN a surface-bound molecule is displaced
	p := v.Displace(0, 0, geom.Vec3{1, 1, 0.5}, 1)

	// THEN it moved in-plane but the flat axis is pinned
	if p[2] != 0.5 {
		t.Errorf("z: got %g, want 0.5", p[2])
	}
	if p[0] == 1 && p[1] == 1 {
		t.Error("in-plane coordinates did not move")
	}
}

func TestValidatorDisplace_Deterministic(t *testing.T) {
	// GIVEN two validators built from the same simulation key
	specs := []RegionSpec{boxSpec("main", "", geom.Vec3{0, 0, 0}, 1, 1, 1)}
	a, err := BuildArena(specs, 1, 1.0)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	if err := CompileReactions(a, nil); err != nil {
		t.Fatalf("CompileReactions: %v", err)
	}
	v1 := NewValidator(a, nil, NewPartitionedRNG(NewSimulationKey(7)), nil)
	v2 := NewValidator(a, nil, NewPartitionedRNG(NewSimulationKey(7)), nil)

	// THEN their displacement streams are identical
	for i := 0; i < 100; i++ {
		p1 := v1.Displace(0, 0, geom.Vec3{0.5, 0.5, 0.5}, 1)
		p2 := v2.Displace(0, 0, geom.Vec3{0.5, 0.5, 0.5}, 1)
		if p1 != p2 {
			t.Fatalf("draw %d: %v != %v", i, p1, p2)
		}
	}
}
