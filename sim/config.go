package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/molcom-sim/molcom-sim/sim/geom"
	"github.com/molcom-sim/molcom-sim/sim/record"
)

// Scenario holds a full simulation definition, loadable from a YAML file.
type Scenario struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Species     []SpeciesConfig   `yaml:"species"`
	Regions     []RegionConfig    `yaml:"regions"`
	Reactions   []ReactionConfig  `yaml:"reactions"`
	Actors      []ActorConfig     `yaml:"actors"`
}

// EnvironmentConfig groups global simulation parameters.
type EnvironmentConfig struct {
	BaseSubvolumeSize float64 `yaml:"base_subvolume_size"` // metres (must be > 0)
	Horizon           float64 `yaml:"horizon"`             // seconds of simulated time
}

// SpeciesConfig names one chemical species. Indexes follow list order.
type SpeciesConfig struct {
	Label string `yaml:"label"`
}

// RegionConfig describes one region of the spatial hierarchy.
type RegionConfig struct {
	Label   string    `yaml:"label"`
	Parent  string    `yaml:"parent"`
	Shape   string    `yaml:"shape"`  // box | rect | sphere | cylinder
	Anchor  []float64 `yaml:"anchor"` // lower corner (box/rect), centre otherwise
	SubSize int       `yaml:"sub_size"`
	NumX    int       `yaml:"num_x"`
	NumY    int       `yaml:"num_y"`
	NumZ    int       `yaml:"num_z"`
	Radius  float64   `yaml:"radius"`
	Axis    string    `yaml:"axis"` // x | y | z (cylinder)
	Length  float64   `yaml:"length"`
	Kind    string    `yaml:"kind"`    // normal (default) | surface2d | surface3d
	Surface string    `yaml:"surface"` // none (default) | membrane | inner | outer
	Micro   *bool     `yaml:"micro"`   // default true
	Dt      float64   `yaml:"dt"`
	// DiffCoef maps species label -> diffusion coefficient; missing species
	// default to zero.
	DiffCoef map[string]float64 `yaml:"diff_coef"`
}

// ReactionConfig describes one chemical reaction. Reactants and products map
// species labels to stoichiometric counts.
type ReactionConfig struct {
	Label       string         `yaml:"label"`
	Reactants   map[string]int `yaml:"reactants"`
	Products    map[string]int `yaml:"products"`
	K           float64        `yaml:"k"`
	Surface     bool           `yaml:"surface"`
	SurfaceKind string         `yaml:"surface_kind"` // normal (default) | absorbing | receptor | membrane
	Everywhere  bool           `yaml:"everywhere"`
	Exceptions  []string       `yaml:"exceptions"`
}

// ActorConfig describes one release or observe actor.
type ActorConfig struct {
	Type    string  `yaml:"type"` // release | observe
	Label   string  `yaml:"label"`
	Start   float64 `yaml:"start"`
	Period  float64 `yaml:"period"`
	Species string  `yaml:"species"` // release only
	Region  string  `yaml:"region"`  // release only
	Count   int     `yaml:"count"`
	// Releases bounds the number of release batches; 0 = unbounded.
	Releases int       `yaml:"releases"`
	Point    []float64 `yaml:"point"` // optional fixed placement

	Bound BoundaryConfig `yaml:"bound"` // observe only
}

// BoundaryConfig describes an observation volume.
type BoundaryConfig struct {
	Shape  string    `yaml:"shape"` // box | sphere
	Lower  []float64 `yaml:"lower"`
	Upper  []float64 `yaml:"upper"`
	Center []float64 `yaml:"center"`
	Radius float64   `yaml:"radius"`
}

// LoadScenario reads and parses a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// ValidShapes is the set of recognized region shape names.
var ValidShapes = map[string]geom.Shape{
	"box": geom.Box, "rect": geom.Rectangle, "sphere": geom.Sphere, "cylinder": geom.Cylinder,
}

// ValidKinds is the set of recognized region kind names.
var ValidKinds = map[string]RegionKind{
	"": KindNormal, "normal": KindNormal, "surface2d": KindSurface2D, "surface3d": KindSurface3D,
}

// ValidSurfaces is the set of recognized surface kind names.
var ValidSurfaces = map[string]SurfaceKind{
	"": SurfaceNone, "none": SurfaceNone, "membrane": SurfaceMembrane,
	"inner": SurfaceInner, "outer": SurfaceOuter,
}

// ValidSurfaceReactions is the set of recognized surface reaction kinds.
var ValidSurfaceReactions = map[string]SurfaceReactionKind{
	"": SurfNormal, "normal": SurfNormal, "absorbing": SurfAbsorbing,
	"receptor": SurfReceptor, "membrane": SurfMembrane,
}

var validAxes = map[string]geom.Axis{
	"": geom.AxisX, "x": geom.AxisX, "y": geom.AxisY, "z": geom.AxisZ,
}

// Validate checks the scenario for structural errors before any geometry is
// built: unknown names, missing references, and out-of-range parameters.
func (sc *Scenario) Validate() error {
	if sc.Environment.BaseSubvolumeSize <= 0 {
		return fmt.Errorf("base_subvolume_size must be positive, got %g", sc.Environment.BaseSubvolumeSize)
	}
	if sc.Environment.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %g", sc.Environment.Horizon)
	}
	if len(sc.Species) == 0 {
		return fmt.Errorf("at least one species is required")
	}
	species := make(map[string]bool, len(sc.Species))
	for _, sp := range sc.Species {
		if sp.Label == "" {
			return fmt.Errorf("species labels must be non-empty")
		}
		if species[sp.Label] {
			return fmt.Errorf("duplicate species label %q", sp.Label)
		}
		species[sp.Label] = true
	}

	if len(sc.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	regions := make(map[string]bool, len(sc.Regions))
	for _, rc := range sc.Regions {
		if _, ok := ValidShapes[rc.Shape]; !ok {
			return fmt.Errorf("region %q: unknown shape %q", rc.Label, rc.Shape)
		}
		if _, ok := ValidKinds[rc.Kind]; !ok {
			return fmt.Errorf("region %q: unknown kind %q", rc.Label, rc.Kind)
		}
		if _, ok := ValidSurfaces[rc.Surface]; !ok {
			return fmt.Errorf("region %q: unknown surface %q", rc.Label, rc.Surface)
		}
		if _, ok := validAxes[rc.Axis]; !ok {
			return fmt.Errorf("region %q: unknown axis %q", rc.Label, rc.Axis)
		}
		if rc.Dt <= 0 {
			return fmt.Errorf("region %q: dt must be positive, got %g", rc.Label, rc.Dt)
		}
		for label := range rc.DiffCoef {
			if !species[label] {
				return fmt.Errorf("region %q: diff_coef references unknown species %q", rc.Label, label)
			}
		}
		regions[rc.Label] = true
	}
	for _, rc := range sc.Regions {
		if rc.Parent != "" && !regions[rc.Parent] {
			return fmt.Errorf("region %q: unknown parent %q", rc.Label, rc.Parent)
		}
	}

	for _, rx := range sc.Reactions {
		if _, ok := ValidSurfaceReactions[rx.SurfaceKind]; !ok {
			return fmt.Errorf("reaction %q: unknown surface_kind %q", rx.Label, rx.SurfaceKind)
		}
		if rx.K < 0 {
			return fmt.Errorf("reaction %q: rate must be non-negative, got %g", rx.Label, rx.K)
		}
		for label := range rx.Reactants {
			if !species[label] {
				return fmt.Errorf("reaction %q: unknown reactant species %q", rx.Label, label)
			}
		}
		for label := range rx.Products {
			if !species[label] {
				return fmt.Errorf("reaction %q: unknown product species %q", rx.Label, label)
			}
		}
		for _, exc := range rx.Exceptions {
			if !regions[exc] {
				return fmt.Errorf("reaction %q: exception references unknown region %q", rx.Label, exc)
			}
		}
	}

	for _, ac := range sc.Actors {
		switch ac.Type {
		case "release":
			if !species[ac.Species] {
				return fmt.Errorf("actor %q: unknown species %q", ac.Label, ac.Species)
			}
			if !regions[ac.Region] {
				return fmt.Errorf("actor %q: unknown region %q", ac.Label, ac.Region)
			}
			if ac.Count <= 0 {
				return fmt.Errorf("actor %q: count must be positive, got %d", ac.Label, ac.Count)
			}
		case "observe":
			switch ac.Bound.Shape {
			case "box", "sphere":
			default:
				return fmt.Errorf("actor %q: unknown bound shape %q", ac.Label, ac.Bound.Shape)
			}
		default:
			return fmt.Errorf("actor %q: unknown type %q", ac.Label, ac.Type)
		}
	}
	return nil
}

// speciesIndex maps species labels to their list order.
func (sc *Scenario) speciesIndex() map[string]int {
	idx := make(map[string]int, len(sc.Species))
	for i, sp := range sc.Species {
		idx[sp.Label] = i
	}
	return idx
}

// BuildArena converts the scenario's region list into a validated Arena.
func (sc *Scenario) BuildArena() (*Arena, error) {
	idx := sc.speciesIndex()
	specs := make([]RegionSpec, len(sc.Regions))
	for i, rc := range sc.Regions {
		micro := true
		if rc.Micro != nil {
			micro = *rc.Micro
		}
		diff := make([]float64, len(sc.Species))
		for label, d := range rc.DiffCoef {
			diff[idx[label]] = d
		}
		specs[i] = RegionSpec{
			Label:    rc.Label,
			Parent:   rc.Parent,
			Shape:    ValidShapes[rc.Shape],
			Anchor:   vec3Of(rc.Anchor),
			SubSize:  rc.SubSize,
			NumX:     rc.NumX,
			NumY:     rc.NumY,
			NumZ:     rc.NumZ,
			Radius:   rc.Radius,
			Axis:     validAxes[rc.Axis],
			Length:   rc.Length,
			Kind:     ValidKinds[rc.Kind],
			Surface:  ValidSurfaces[rc.Surface],
			Micro:    micro,
			Dt:       rc.Dt,
			DiffCoef: diff,
		}
	}
	return BuildArena(specs, len(sc.Species), sc.Environment.BaseSubvolumeSize)
}

// ReactionSpecs converts the scenario's reaction list into compiler input.
func (sc *Scenario) ReactionSpecs() []ReactionSpec {
	idx := sc.speciesIndex()
	specs := make([]ReactionSpec, len(sc.Reactions))
	for i, rx := range sc.Reactions {
		reactants := make([]int, len(sc.Species))
		products := make([]int, len(sc.Species))
		for label, c := range rx.Reactants {
			reactants[idx[label]] = c
		}
		for label, c := range rx.Products {
			products[idx[label]] = c
		}
		specs[i] = ReactionSpec{
			Label:       rx.Label,
			Reactants:   reactants,
			Products:    products,
			K:           rx.K,
			Surface:     rx.Surface,
			SurfaceKind: ValidSurfaceReactions[rx.SurfaceKind],
			Everywhere:  rx.Everywhere,
			Exceptions:  rx.Exceptions,
		}
	}
	return specs
}

// Build assembles a ready-to-run simulator from the scenario: arena,
// compiled reaction tables, actors, and the initial event schedule.
func (sc *Scenario) Build(seed int64, rec *record.Recorder) (*Simulator, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	arena, err := sc.BuildArena()
	if err != nil {
		return nil, err
	}
	specs := sc.ReactionSpecs()
	if err := CompileReactions(arena, specs); err != nil {
		return nil, err
	}

	prng := NewPartitionedRNG(NewSimulationKey(seed))
	s, err := NewSimulator(arena, specs, sc.Environment.Horizon, prng, rec)
	if err != nil {
		return nil, err
	}

	idx := sc.speciesIndex()
	for _, ac := range sc.Actors {
		switch ac.Type {
		case "release":
			region, _ := arena.ByLabel(ac.Region)
			a := NewReleaseActor(ac.Label, prng)
			a.Species = idx[ac.Species]
			a.Region = region
			a.Count = ac.Count
			a.Start = ac.Start
			a.Period = ac.Period
			a.Releases = ac.Releases
			if len(ac.Point) == 3 {
				a.UsePoint = true
				a.Point = vec3Of(ac.Point)
			}
			s.AddReleaseActor(a)
		case "observe":
			s.AddObserveActor(&ObserveActor{
				Label:  ac.Label,
				Bound:  ac.Bound.boundary(),
				Start:  ac.Start,
				Period: ac.Period,
			})
		}
	}
	return s, nil
}

func (bc BoundaryConfig) boundary() geom.Boundary {
	switch bc.Shape {
	case "sphere":
		return geom.NewSphere(vec3Of(bc.Center), bc.Radius)
	default:
		lo, hi := vec3Of(bc.Lower), vec3Of(bc.Upper)
		return geom.NewBox(lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	}
}

func vec3Of(v []float64) geom.Vec3 {
	var out geom.Vec3
	copy(out[:], v)
	return out
}
