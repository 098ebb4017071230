package sim

import "github.com/molcom-sim/molcom-sim/sim/geom"

// Molecule is one freely diffusing microscopic molecule.
type Molecule struct {
	Pos geom.Vec3
	// DtPartial is the fraction of the region time step the molecule still
	// has to live through; non-zero only for molecules on a recent list.
	DtPartial float64
}

// MoleculeList holds the molecules of one species inside one region.
// Recent holds molecules created mid-step (by a reaction or a mesoscopic
// handoff); they diffuse and react over their remaining partial time step
// before being merged into the main list.
type MoleculeList struct {
	Mols   []Molecule
	Recent []Molecule
}

// AddRecent appends a molecule created mid-step with the given remaining
// time fraction.
func (l *MoleculeList) AddRecent(pos geom.Vec3, dtPartial float64) {
	l.Recent = append(l.Recent, Molecule{Pos: pos, DtPartial: dtPartial})
}

// Merge moves all recent molecules onto the main list, clearing their
// partial time steps.
func (l *MoleculeList) Merge() {
	for i := range l.Recent {
		l.Recent[i].DtPartial = 0
	}
	l.Mols = append(l.Mols, l.Recent...)
	l.Recent = l.Recent[:0]
}

// Count returns the total population, recent molecules included.
func (l *MoleculeList) Count() int {
	return len(l.Mols) + len(l.Recent)
}

// MoleculeStore holds every microscopic molecule, indexed by region then
// species.
type MoleculeStore struct {
	lists [][]MoleculeList // [region][species]
}

// NewMoleculeStore sizes a store for an arena.
func NewMoleculeStore(a *Arena) *MoleculeStore {
	s := &MoleculeStore{lists: make([][]MoleculeList, len(a.Regions))}
	for i := range s.lists {
		s.lists[i] = make([]MoleculeList, a.Species)
	}
	return s
}

// List returns the molecule list of one region and species.
func (s *MoleculeStore) List(region RegionID, species int) *MoleculeList {
	return &s.lists[region][species]
}

// Add places a settled molecule directly on the main list.
func (s *MoleculeStore) Add(region RegionID, species int, pos geom.Vec3) {
	l := &s.lists[region][species]
	l.Mols = append(l.Mols, Molecule{Pos: pos})
}

// Counts fills dst with the per-species population of one region.
func (s *MoleculeStore) Counts(region RegionID, dst []int) {
	for sp := range s.lists[region] {
		dst[sp] = s.lists[region][sp].Count()
	}
}

// Total returns the population of one species across all regions.
func (s *MoleculeStore) Total(species int) int {
	n := 0
	for ri := range s.lists {
		n += s.lists[ri][species].Count()
	}
	return n
}
