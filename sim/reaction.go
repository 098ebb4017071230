package sim

import (
	"fmt"
	"math"
)

// SurfaceReactionKind refines surface-bound reactions.
type SurfaceReactionKind int

const (
	// SurfNormal is an ordinary reaction that happens to live on a surface.
	SurfNormal SurfaceReactionKind = iota
	// SurfAbsorbing removes a molecule on first passage to the surface.
	SurfAbsorbing
	// SurfReceptor binds a molecule on contact, consuming it.
	SurfReceptor
	// SurfMembrane transports a molecule across a membrane region.
	SurfMembrane
)

func (k SurfaceReactionKind) String() string {
	switch k {
	case SurfNormal:
		return "normal"
	case SurfAbsorbing:
		return "absorbing"
	case SurfReceptor:
		return "receptor"
	case SurfMembrane:
		return "membrane"
	}
	return "?"
}

// ReactionSpec is one abstract chemical reaction, as supplied by the
// configuration layer. Reactant and product counts are indexed by species.
type ReactionSpec struct {
	Label      string
	Reactants  []int
	Products   []int
	K          float64
	Surface    bool
	SurfaceKind SurfaceReactionKind // meaningful only when Surface is true
	// Everywhere makes the reaction applicable to every region whose kind
	// matches the surface flag; each label in Exceptions toggles (XOR) the
	// applicability for that region.
	Everywhere bool
	Exceptions []string
}

// Order returns the reaction order: the total reactant count.
func (r *ReactionSpec) Order() int {
	n := 0
	for _, c := range r.Reactants {
		n += c
	}
	return n
}

// ReactionTable is the compiled, region-scaled form of the reactions
// applicable in one region. Slot indices are local to the table; Global maps
// them back to the spec list. Product lists are flattened into one slice
// with per-slot offsets, and the net stoichiometry matrix is stored row-major
// with a species-count stride.
type ReactionTable struct {
	Region  RegionID
	Species int

	Global []int     // slot -> index into the ReactionSpec list
	Order  []int     // slot -> reaction order
	Rate   []float64 // slot -> region-scaled rate

	Zeroth []int // slots, by order
	First  []int
	Second []int

	// ZerothMicroRate parallels Zeroth: the absolute event rate over the
	// whole region volume, used when sampling microscopic reaction counts.
	ZerothMicroRate []float64

	Products   []int // flattened product species, grouped per slot
	ProdOffset []int // slot -> offset into Products; len = len(Global)+1

	NetChange []int // slot*Species + species -> net molecule change

	// Per-species competing first-order tables.
	FirstBySpecies [][]int   // species -> first-order slots
	SumRate        []float64 // species -> sum of first-order rates
	RelRate        [][]float64
	CumProb        [][]float64
	// NoReactionProb is exp(-dt*SumRate): the probability that a molecule of
	// the species survives the region time step unreacted.
	NoReactionProb []float64
}

// NumProducts returns the product count of a slot.
func (t *ReactionTable) NumProducts(slot int) int {
	return t.ProdOffset[slot+1] - t.ProdOffset[slot]
}

// ProductSpecies returns the flattened product species list of a slot.
func (t *ReactionTable) ProductSpecies(slot int) []int {
	return t.Products[t.ProdOffset[slot]:t.ProdOffset[slot+1]]
}

// Net returns the net change of a species caused by one firing of a slot.
func (t *ReactionTable) Net(slot, species int) int {
	return t.NetChange[slot*t.Species+species]
}

// slotOf returns the slot holding a global reaction index, or -1 when the
// reaction is not applicable in this region.
func (t *ReactionTable) slotOf(global int) int {
	for slot, gi := range t.Global {
		if gi == global {
			return slot
		}
	}
	return -1
}

// SurfaceOutcome reports the exclusive surface reaction bound to a species in
// this region, if any. The exclusivity invariant guarantees at most one.
func (t *ReactionTable) SurfaceOutcome(species int, specs []ReactionSpec) (slot int, kind SurfaceReactionKind, ok bool) {
	for _, s := range t.FirstBySpecies[species] {
		spec := &specs[t.Global[s]]
		if spec.Surface && spec.SurfaceKind != SurfNormal {
			return s, spec.SurfaceKind, true
		}
	}
	return 0, SurfNormal, false
}

// CompileReactions builds one ReactionTable per region and attaches it to
// the arena. It validates reaction orders, surface-kind consistency, and the
// first-order exclusivity invariant, failing with
// ErrInconsistentReactionDefinition on the first violation.
func CompileReactions(a *Arena, specs []ReactionSpec) error {
	for i := range a.Regions {
		table, err := compileRegion(a, RegionID(i), specs)
		if err != nil {
			return err
		}
		a.Regions[i].Table = table
	}
	return nil
}

func compileRegion(a *Arena, id RegionID, specs []ReactionSpec) (*ReactionTable, error) {
	r := &a.Regions[id]
	t := &ReactionTable{
		Region:  id,
		Species: a.Species,
	}

	// Applicability: everywhere/kind match as the base, exception labels
	// toggling per region (XOR, not override).
	for gi := range specs {
		spec := &specs[gi]
		applies := spec.Everywhere && (spec.Surface == (r.Spec.Kind != KindNormal))
		if r.Spec.Label != "" {
			for _, exc := range spec.Exceptions {
				if exc != "" && exc == r.Spec.Label {
					applies = !applies
				}
			}
		}
		if applies {
			t.Global = append(t.Global, gi)
		}
	}

	n := len(t.Global)
	t.Order = make([]int, n)
	t.Rate = make([]float64, n)
	t.ProdOffset = make([]int, n+1)
	t.NetChange = make([]int, n*a.Species)

	for slot, gi := range t.Global {
		spec := &specs[gi]

		if spec.Surface && spec.SurfaceKind == SurfMembrane && r.Spec.Surface != SurfaceMembrane {
			return nil, fmt.Errorf("reaction %d (%s): %w: membrane reaction on non-membrane region %q",
				gi, spec.Label, ErrInconsistentReactionDefinition, r.Spec.Label)
		}
		if r.Spec.Surface == SurfaceMembrane && (!spec.Surface || spec.SurfaceKind != SurfMembrane) {
			return nil, fmt.Errorf("reaction %d (%s): %w: non-membrane reaction on membrane region %q",
				gi, spec.Label, ErrInconsistentReactionDefinition, r.Spec.Label)
		}

		for sp := 0; sp < a.Species; sp++ {
			t.NetChange[slot*a.Species+sp] = spec.Products[sp] - spec.Reactants[sp]
			for c := 0; c < spec.Products[sp]; c++ {
				t.Products = append(t.Products, sp)
			}
		}
		t.ProdOffset[slot+1] = len(t.Products)

		order := spec.Order()
		t.Order[slot] = order
		switch order {
		case 0:
			if spec.Surface && spec.SurfaceKind != SurfNormal {
				return nil, fmt.Errorf("reaction %d (%s): %w: zeroth-order surface reaction must be of normal kind",
					gi, spec.Label, ErrInconsistentReactionDefinition)
			}
			t.Rate[slot] = spec.K * measureScale(r)
			t.ZerothMicroRate = append(t.ZerothMicroRate, spec.K*r.Volume)
			t.Zeroth = append(t.Zeroth, slot)
		case 1:
			switch spec.SurfaceKind {
			case SurfNormal, SurfReceptor, SurfMembrane:
				t.Rate[slot] = spec.K
			case SurfAbsorbing:
				sp := uniReactant(spec)
				d := r.Spec.DiffCoef[sp]
				t.Rate[slot] = spec.K * math.Sqrt(math.Pi*r.Spec.Dt/d)
			}
			t.First = append(t.First, slot)
		case 2:
			if spec.Surface && spec.SurfaceKind != SurfNormal {
				return nil, fmt.Errorf("reaction %d (%s): %w: second-order surface reaction must be of normal kind",
					gi, spec.Label, ErrInconsistentReactionDefinition)
			}
			t.Rate[slot] = spec.K / measureScale(r)
			t.Second = append(t.Second, slot)
		default:
			return nil, fmt.Errorf("reaction %d (%s): %w: order %d exceeds 2",
				gi, spec.Label, ErrInconsistentReactionDefinition, order)
		}
	}

	if err := compileFirstOrderTables(t, r, specs); err != nil {
		return nil, err
	}
	return t, nil
}

// measureScale returns the subvolume spatial measure matching the region's
// dimensionality: volume for normal 3D regions, area for 2D regions and 3D
// surfaces, length otherwise.
func measureScale(r *Region) float64 {
	h := r.SubSize
	switch {
	case r.Dim == 3 && r.Spec.Kind == KindNormal:
		return h * h * h
	case r.Spec.Kind == KindNormal || r.Spec.Kind == KindSurface3D:
		return h * h
	default:
		return h
	}
}

// uniReactant returns the species acting as the single reactant of a
// first-order reaction.
func uniReactant(spec *ReactionSpec) int {
	for sp, c := range spec.Reactants {
		if c > 0 {
			return sp
		}
	}
	return 0
}

// compileFirstOrderTables builds, for every species, the cumulative
// probability table over competing unimolecular reactions and the
// no-reaction probability for the region time step.
func compileFirstOrderTables(t *ReactionTable, r *Region, specs []ReactionSpec) error {
	t.FirstBySpecies = make([][]int, t.Species)
	t.SumRate = make([]float64, t.Species)
	t.RelRate = make([][]float64, t.Species)
	t.CumProb = make([][]float64, t.Species)
	t.NoReactionProb = make([]float64, t.Species)

	for sp := 0; sp < t.Species; sp++ {
		numInf := 0
		exclusive := false
		for _, slot := range t.First {
			spec := &specs[t.Global[slot]]
			if spec.Reactants[sp] == 0 {
				continue
			}
			t.FirstBySpecies[sp] = append(t.FirstBySpecies[sp], slot)
			t.SumRate[sp] += t.Rate[slot]
			if math.IsInf(t.Rate[slot], 1) {
				numInf++
			}
			if spec.Surface && spec.SurfaceKind != SurfNormal {
				exclusive = true
			}
		}

		if exclusive && len(t.FirstBySpecies[sp]) > 1 {
			return fmt.Errorf("species %d in region %q: %w: %d competing reactions but at least one is exclusive",
				sp, r.Spec.Label, ErrInconsistentReactionDefinition, len(t.FirstBySpecies[sp]))
		}

		t.RelRate[sp] = make([]float64, len(t.FirstBySpecies[sp]))
		t.CumProb[sp] = make([]float64, len(t.FirstBySpecies[sp]))

		window := 1 - math.Exp(-r.Spec.Dt*t.SumRate[sp])
		for k, slot := range t.FirstBySpecies[sp] {
			spec := &specs[t.Global[slot]]
			if k > 0 {
				t.CumProb[sp][k] = t.CumProb[sp][k-1]
			}
			switch {
			case spec.Surface && spec.SurfaceKind == SurfAbsorbing:
				// Absorption is resolved geometrically on boundary contact;
				// the table retains the first-passage probability itself.
				t.RelRate[sp][k] = t.Rate[slot]
				t.CumProb[sp][k] = t.Rate[slot]
			case math.IsInf(t.Rate[slot], 1):
				// Infinite-rate reactions are certain events; split the
				// probability mass equally among them.
				t.RelRate[sp][k] = 1 / float64(numInf)
				t.CumProb[sp][k] += 1 / float64(numInf)
			default:
				t.RelRate[sp][k] = t.Rate[slot] / t.SumRate[sp]
				t.CumProb[sp][k] += t.RelRate[sp][k] * window
			}
		}

		t.NoReactionProb[sp] = math.Exp(-r.Spec.Dt * t.SumRate[sp])
	}
	return nil
}
