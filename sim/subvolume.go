package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/molcom-sim/molcom-sim/sim/geom"
	"github.com/molcom-sim/molcom-sim/sim/record"
)

// Subvolume is one cubic cell of a mesoscopic region's grid, tracking only
// per-species populations.
type Subvolume struct {
	Bound geom.Boundary
	Pop   []int

	// neighbors are grid indexes of face-adjacent subvolumes in the same
	// region. microFaces are faces shared with adjacent microscopic regions.
	neighbors  []int
	microFaces []microFace

	// prop caches the subvolume's total event propensity.
	prop float64
}

type microFace struct {
	face   geom.Face
	region RegionID
	span   geom.Boundary
}

// Center returns the subvolume's centre point.
func (s *Subvolume) Center() geom.Vec3 {
	b := s.Bound
	return geom.Vec3{
		(b.V[0] + b.V[1]) / 2,
		(b.V[2] + b.V[3]) / 2,
		(b.V[4] + b.V[5]) / 2,
	}
}

// MesoRegion simulates one mesoscopic region with the Gillespie direct
// method over its subvolume grid.
type MesoRegion struct {
	ID   RegionID
	Subs []Subvolume

	arena   *Arena
	specs   []ReactionSpec
	store   *MoleculeStore
	rng     *rand.Rand
	metrics *Metrics
	rec     *record.Recorder

	nx, ny, nz int
	h          float64
	active     []int // indexes of subvolumes not claimed by children

	// diffRate caches D/h^2 per species.
	diffRate []float64

	now       float64
	totalProp float64
}

// NewMesoRegion builds the subvolume grid of one mesoscopic box region.
// Cells whose centre falls inside a child region are excluded. The reaction
// table must already be compiled.
func NewMesoRegion(a *Arena, id RegionID, specs []ReactionSpec, store *MoleculeStore, prng *PartitionedRNG, metrics *Metrics) (*MesoRegion, error) {
	r := &a.Regions[id]
	if r.Spec.Shape != geom.Box {
		return nil, fmt.Errorf("region %q: mesoscopic regions must be boxes, got %s", r.Spec.Label, r.Spec.Shape)
	}

	m := &MesoRegion{
		ID:      id,
		arena:   a,
		specs:   specs,
		store:   store,
		rng:     rand.New(rand.NewSource(prng.SeedFor(SubsystemMeso) ^ uint64(id))),
		metrics: metrics,
		nx:      r.Spec.NumX,
		ny:      r.Spec.NumY,
		nz:      r.Spec.NumZ,
		h:       r.SubSize,
	}
	m.diffRate = make([]float64, a.Species)
	for sp, d := range r.Spec.DiffCoef {
		m.diffRate[sp] = d / (m.h * m.h)
	}

	m.Subs = make([]Subvolume, m.nx*m.ny*m.nz)
	for z := 0; z < m.nz; z++ {
		for y := 0; y < m.ny; y++ {
			for x := 0; x < m.nx; x++ {
				i := m.index(x, y, z)
				lo := geom.Vec3{
					r.Boundary.V[0] + float64(x)*m.h,
					r.Boundary.V[2] + float64(y)*m.h,
					r.Boundary.V[4] + float64(z)*m.h,
				}
				s := &m.Subs[i]
				s.Bound = geom.NewBox(lo[0], lo[0]+m.h, lo[1], lo[1]+m.h, lo[2], lo[2]+m.h)
				s.Pop = make([]int, a.Species)
				if !a.PointInRegionNotChild(id, s.Center()) {
					continue
				}
				m.active = append(m.active, i)
			}
		}
	}

	m.wireNeighbors(r)
	return m, nil
}

func (m *MesoRegion) index(x, y, z int) int {
	return (z*m.ny+y)*m.nx + x
}

// wireNeighbors links face-adjacent active subvolumes and records faces
// shared with adjacent microscopic regions, so diffusion events can leave
// the grid.
func (m *MesoRegion) wireNeighbors(r *Region) {
	activeSet := make(map[int]bool, len(m.active))
	for _, i := range m.active {
		activeSet[i] = true
	}

	deltas := [6][3]int{
		{-1, 0, 0}, {1, 0, 0},
		{0, -1, 0}, {0, 1, 0},
		{0, 0, -1}, {0, 0, 1},
	}
	for z := 0; z < m.nz; z++ {
		for y := 0; y < m.ny; y++ {
			for x := 0; x < m.nx; x++ {
				i := m.index(x, y, z)
				if !activeSet[i] {
					continue
				}
				s := &m.Subs[i]
				for f, d := range deltas {
					nxp, nyp, nzp := x+d[0], y+d[1], z+d[2]
					inGrid := nxp >= 0 && nxp < m.nx && nyp >= 0 && nyp < m.ny && nzp >= 0 && nzp < m.nz
					if inGrid && activeSet[m.index(nxp, nyp, nzp)] {
						s.neighbors = append(s.neighbors, m.index(nxp, nyp, nzp))
						continue
					}
					face := geom.Face(f)
					// Off-grid or child-claimed cell: check whether the face
					// opens into an adjacent microscopic region.
					m.wireMicroFace(r, s, face)
				}
			}
		}
	}
}

func (m *MesoRegion) wireMicroFace(r *Region, s *Subvolume, face geom.Face) {
	probe := s.Center()
	axis := face.Axis()
	probe[axis] = s.Bound.V[face]
	if face.IsUpper() {
		probe[axis] += m.h / 2
	} else {
		probe[axis] -= m.h / 2
	}
	for i := range r.neighbors {
		nb := &r.neighbors[i]
		dest := &m.arena.Regions[nb.id]
		if !dest.Micro() || dest.Spec.Kind != KindNormal {
			continue
		}
		var hit bool
		switch nb.rel {
		case RelAdjacent:
			hit = nb.face == face && geom.PointOnFace(probe, nb.span, face)
		case RelParent, RelChild:
			hit = geom.PointInBoundary(probe, dest.Boundary)
		}
		if hit {
			s.microFaces = append(s.microFaces, microFace{
				face:   face,
				region: nb.id,
				span:   geom.FaceBoundary(s.Bound, face),
			})
			return
		}
	}
}

// Credit adds a molecule handed off from a microscopic neighbour to the
// subvolume containing p (or the nearest active one when p sits exactly on
// a shared face).
func (m *MesoRegion) Credit(species int, p geom.Vec3) {
	best := -1
	bestDist := math.Inf(1)
	for _, i := range m.active {
		s := &m.Subs[i]
		if geom.PointInBoundary(p, s.Bound) {
			best = i
			break
		}
		d, err := geom.DistanceToBoundary(p, s.Bound)
		if err == nil && d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return
	}
	m.Subs[best].Pop[species]++
	m.refresh(best)
}

// Population returns the region-wide population of one species.
func (m *MesoRegion) Population(species int) int {
	n := 0
	for _, i := range m.active {
		n += m.Subs[i].Pop[species]
	}
	return n
}

// refresh recomputes one subvolume's cached propensity and the region total.
func (m *MesoRegion) refresh(i int) {
	s := &m.Subs[i]
	m.totalProp -= s.prop
	s.prop = m.subPropensity(s)
	m.totalProp += s.prop
}

func (m *MesoRegion) refreshAll() {
	m.totalProp = 0
	for _, i := range m.active {
		s := &m.Subs[i]
		s.prop = m.subPropensity(s)
		m.totalProp += s.prop
	}
}

// subPropensity sums the reaction and diffusion propensities of one
// subvolume.
func (m *MesoRegion) subPropensity(s *Subvolume) float64 {
	t := m.arena.Regions[m.ID].Table
	total := 0.0
	for _, slot := range t.Zeroth {
		total += t.Rate[slot]
	}
	for _, slot := range t.First {
		total += t.Rate[slot] * float64(s.Pop[uniReactant(&m.specs[t.Global[slot]])])
	}
	for _, slot := range t.Second {
		total += m.secondPropensity(t, slot, s)
	}
	exits := len(s.neighbors) + len(s.microFaces)
	if exits > 0 {
		for sp := 0; sp < m.arena.Species; sp++ {
			total += m.diffRate[sp] * float64(s.Pop[sp]) * float64(exits)
		}
	}
	return total
}

// secondPropensity is rate*n1*n2 for distinct reactants and rate*n*(n-1)
// when the reaction consumes two molecules of one species.
func (m *MesoRegion) secondPropensity(t *ReactionTable, slot int, s *Subvolume) float64 {
	spec := &m.specs[t.Global[slot]]
	prod := 1.0
	for sp, c := range spec.Reactants {
		switch c {
		case 0:
		case 1:
			prod *= float64(s.Pop[sp])
		case 2:
			prod *= float64(s.Pop[sp]) * float64(s.Pop[sp]-1)
		}
	}
	return t.Rate[slot] * prod
}

// Advance runs the region's SSA from its local clock to the end of the
// global step window. Molecules diffusing into microscopic neighbours are
// appended to their recent lists with the fraction of the neighbour's time
// step remaining at the event time.
func (m *MesoRegion) Advance(until float64) {
	m.refreshAll()
	for {
		if m.totalProp <= 0 {
			m.now = until
			return
		}
		tau := -math.Log(m.rng.Float64()) / m.totalProp
		if m.now+tau > until {
			m.now = until
			return
		}
		m.now += tau
		m.fire(until)
		if m.metrics != nil {
			m.metrics.MesoEvents++
		}
	}
}

// fire selects and executes one event: a subvolume by cumulative propensity,
// then a channel within it.
func (m *MesoRegion) fire(until float64) {
	target := m.rng.Float64() * m.totalProp
	cum := 0.0
	for _, i := range m.active {
		s := &m.Subs[i]
		if cum+s.prop < target {
			cum += s.prop
			continue
		}
		m.fireIn(i, target-cum, until)
		return
	}
	// Rounding left the target past the last subvolume; re-sync the cache.
	m.refreshAll()
}

func (m *MesoRegion) fireIn(i int, target, until float64) {
	t := m.arena.Regions[m.ID].Table
	s := &m.Subs[i]
	cum := 0.0

	for _, slot := range t.Zeroth {
		cum += t.Rate[slot]
		if cum >= target {
			m.applyReaction(t, slot, i)
			return
		}
	}
	for _, slot := range t.First {
		cum += t.Rate[slot] * float64(s.Pop[uniReactant(&m.specs[t.Global[slot]])])
		if cum >= target {
			m.applyReaction(t, slot, i)
			return
		}
	}
	for _, slot := range t.Second {
		cum += m.secondPropensity(t, slot, s)
		if cum >= target {
			m.applyReaction(t, slot, i)
			return
		}
	}

	for sp := 0; sp < m.arena.Species; sp++ {
		perExit := m.diffRate[sp] * float64(s.Pop[sp])
		for _, nb := range s.neighbors {
			cum += perExit
			if cum >= target {
				s.Pop[sp]--
				m.Subs[nb].Pop[sp]++
				m.refresh(i)
				m.refresh(nb)
				return
			}
		}
		for _, mf := range s.microFaces {
			cum += perExit
			if cum >= target {
				s.Pop[sp]--
				m.refresh(i)
				m.handoff(sp, mf, until)
				return
			}
		}
	}
	// Rounding fell through every channel; treat as a null event.
	m.refresh(i)
}

// applyReaction applies one firing's stoichiometry to a subvolume.
func (m *MesoRegion) applyReaction(t *ReactionTable, slot, i int) {
	s := &m.Subs[i]
	for sp := 0; sp < t.Species; sp++ {
		s.Pop[sp] += t.Net(slot, sp)
	}
	m.refresh(i)
	if m.metrics != nil {
		m.metrics.ReactionsFired++
		m.metrics.promReactions.Inc()
	}
	if m.rec != nil {
		m.rec.RecordReaction(record.ReactionEvent{
			Time: m.now, Region: int(m.ID), Reaction: t.Global[slot],
			Pos: [3]float64(s.Center()), Meso: true,
		})
	}
}

// handoff delivers a molecule to a microscopic neighbour's recent list,
// placed uniformly on the shared face and carrying the remaining fraction of
// the neighbour's time step.
func (m *MesoRegion) handoff(species int, mf microFace, until float64) {
	dest := &m.arena.Regions[mf.region]
	p := geom.RandomPoint(m.rng, mf.span)
	// Nudge off the face plane so the point is owned by the destination.
	axis := mf.face.Axis()
	nudge := m.h * 1e-9
	if mf.face.IsUpper() {
		p[axis] += nudge
	} else {
		p[axis] -= nudge
	}

	frac := 0.0
	if dest.Spec.Dt > 0 {
		frac = (until - m.now) / dest.Spec.Dt
		if frac < 0 {
			frac = 0
		} else if frac > 1 {
			frac = 1
		}
	}
	m.store.List(mf.region, species).AddRecent(p, frac)
	if m.metrics != nil {
		m.metrics.Handoffs++
	}
}
