package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/molcom-sim/molcom-sim/sim/geom"
	"github.com/molcom-sim/molcom-sim/sim/record"
)

// scheduledEvent pairs an event with its insertion sequence so that
// same-timestamp events execute in scheduling order.
type scheduledEvent struct {
	ev  Event
	seq uint64
}

// EventQueue implements heap.Interface and orders events by timestamp,
// breaking ties by insertion sequence for deterministic replay.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []scheduledEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].ev.Timestamp() != eq[j].ev.Timestamp() {
		return eq[i].ev.Timestamp() < eq[j].ev.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(scheduledEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Simulator is the core object that holds simulation time, system state, and the event loop.
type Simulator struct {
	Clock   float64
	Horizon float64
	// EventQueue has all the simulator events, like release and step events
	EventQueue EventQueue

	Arena     *Arena
	Specs     []ReactionSpec
	Store     *MoleculeStore
	Meso      map[RegionID]*MesoRegion
	Validator *Validator
	Metrics   *Metrics
	Recorder  *record.Recorder
	RNG       *PartitionedRNG

	// reactSrc drives reaction selection and zeroth-order counts; isolated
	// from the diffusion stream.
	reactSrc rand.Source
	reactRng *rand.Rand
	// placeRng holds one placement stream per microscopic region, so a
	// region's product positions replay independently of every other stream.
	placeRng []*rand.Rand

	seq uint64
}

// NewSimulator assembles a simulator over a built arena with compiled
// reaction tables: molecule store, mesoscopic grids, validator, metrics,
// and the initial step events of every region.
func NewSimulator(arena *Arena, specs []ReactionSpec, horizon float64, prng *PartitionedRNG, rec *record.Recorder) (*Simulator, error) {
	if rec == nil {
		rec = record.NewRecorder(record.Config{})
	}
	metrics := NewMetrics()
	s := &Simulator{
		Horizon:    horizon,
		EventQueue: make(EventQueue, 0),
		Arena:      arena,
		Specs:      specs,
		Store:      NewMoleculeStore(arena),
		Meso:       make(map[RegionID]*MesoRegion),
		Metrics:    metrics,
		Recorder:   rec,
		RNG:        prng,
	}
	s.Validator = NewValidator(arena, specs, prng, metrics)
	s.reactSrc = rand.NewSource(prng.SeedFor(SubsystemReaction))
	s.reactRng = rand.New(s.reactSrc)
	s.placeRng = make([]*rand.Rand, len(arena.Regions))

	for i := range arena.Regions {
		id := RegionID(i)
		r := &arena.Regions[i]
		if r.Spec.Dt <= 0 {
			return nil, fmt.Errorf("region %q: %w: non-positive time step", r.Spec.Label, ErrInvalidRegionHierarchy)
		}
		if r.Micro() {
			s.placeRng[i] = rand.New(rand.NewSource(prng.SeedFor(SubsystemRegion(id))))
			s.Schedule(&RegionStepEvent{time: r.Spec.Dt, Region: id})
			continue
		}
		m, err := NewMesoRegion(arena, id, specs, s.Store, prng, metrics)
		if err != nil {
			return nil, err
		}
		m.rec = rec
		s.Meso[id] = m
		s.Schedule(&MesoStepEvent{time: r.Spec.Dt, Region: id})
	}
	return s, nil
}

// Schedule pushes an event into the simulator's EventQueue.
func (sim *Simulator) Schedule(ev Event) {
	heap.Push(&sim.EventQueue, scheduledEvent{ev: ev, seq: sim.seq})
	sim.seq++
}

// AddReleaseActor registers a release actor and schedules its first batch.
func (sim *Simulator) AddReleaseActor(a *ReleaseActor) {
	if a.Start <= sim.Horizon {
		sim.Schedule(&ReleaseEvent{time: a.Start, Actor: a})
	}
}

// AddObserveActor registers an observing actor and schedules its first tick.
func (sim *Simulator) AddObserveActor(a *ObserveActor) {
	if a.Start <= sim.Horizon {
		sim.Schedule(&ObserveEvent{time: a.Start, Actor: a})
	}
}

// Run drains the event queue until the horizon is reached.
func (sim *Simulator) Run() {
	for len(sim.EventQueue) > 0 {
		// get the next event to be simulated
		ev := heap.Pop(&sim.EventQueue).(scheduledEvent).ev
		// advance the clock
		sim.Clock = ev.Timestamp()
		if sim.Clock > sim.Horizon {
			break
		}
		logrus.Debugf("[t=%.6g] Executing %T", sim.Clock, ev)
		// process the event
		ev.Execute(sim)
	}
	logrus.Infof("[t=%.6g] Simulation ended", sim.Clock)
}

// StepMicroRegion advances one microscopic region by its time step:
// zeroth-order firings, diffusion of the settled population, first-order
// reactions, then recent-list processing until quiescent.
func (sim *Simulator) StepMicroRegion(id RegionID, now float64) {
	r := &sim.Arena.Regions[id]
	t := r.Table

	sim.fireZerothOrder(id, r, t, now)

	for sp := 0; sp < sim.Arena.Species; sp++ {
		sim.diffuseSettled(id, sp, now)
	}
	for sp := 0; sp < sim.Arena.Species; sp++ {
		sim.reactFirstOrder(id, sp, now, 1)
	}
	sim.drainRecent(id, now)
}

// fireZerothOrder samples the number of spontaneous firings of every
// zeroth-order reaction over the step and places the products uniformly in
// the region, each with a uniform remaining time fraction.
func (sim *Simulator) fireZerothOrder(id RegionID, r *Region, t *ReactionTable, now float64) {
	for zi, slot := range t.Zeroth {
		mean := t.ZerothMicroRate[zi] * r.Spec.Dt
		if mean <= 0 {
			continue
		}
		n := int(distuv.Poisson{Lambda: mean, Src: sim.reactSrc}.Rand())
		for i := 0; i < n; i++ {
			pos := sim.Arena.RandomPoint(sim.placeRng[id], id)
			frac := sim.reactRng.Float64()
			for _, sp := range t.ProductSpecies(slot) {
				sim.Store.List(id, sp).AddRecent(pos, frac)
			}
			sim.recordReaction(now, id, t.Global[slot], pos, false)
		}
	}
}

// diffuseSettled displaces every settled molecule of one species and
// resolves the outcome of each path.
func (sim *Simulator) diffuseSettled(id RegionID, sp int, now float64) {
	l := sim.Store.List(id, sp)
	kept := l.Mols[:0]
	for i := range l.Mols {
		mol := l.Mols[i]
		if keep, newMol := sim.moveMolecule(id, sp, mol, 1, now); keep {
			kept = append(kept, newMol)
		}
	}
	l.Mols = kept
}

// moveMolecule displaces one molecule over a fraction of the region step
// and applies the resolved outcome. It reports whether the molecule remains
// on this region's list, and its updated state if so.
func (sim *Simulator) moveMolecule(id RegionID, sp int, mol Molecule, dtFrac float64, now float64) (bool, Molecule) {
	newPos := sim.Validator.Displace(id, sp, mol.Pos, dtFrac)
	res := sim.Validator.Step(id, sp, mol.Pos, newPos)
	switch res.Outcome {
	case OutcomeCommitted, OutcomeReflected:
		mol.Pos = res.Pos
		mol.DtPartial = 0
		return true, mol
	case OutcomeFailed:
		mol.Pos = res.Pos
		mol.DtPartial = 0
		return true, mol
	case OutcomeTransmitted:
		dest := &sim.Arena.Regions[res.Region]
		if dest.Micro() {
			// The displacement is spent; the destination region picks the
			// molecule up on its next step.
			sim.Store.List(res.Region, sp).AddRecent(res.Pos, 0)
		} else {
			sim.Meso[res.Region].Credit(sp, res.Pos)
		}
		if sim.Recorder != nil {
			sim.Recorder.RecordTransfer(record.Transfer{
				Time: now, Species: sp, From: int(id), To: int(res.Region),
				Pos: [3]float64(res.Pos),
			})
		}
		return false, mol
	case OutcomeAbsorbed:
		surf := &sim.Arena.Regions[res.Region]
		slot := surf.Table.slotOf(res.Reaction)
		if slot >= 0 {
			for _, prod := range surf.Table.ProductSpecies(slot) {
				sim.Store.List(res.Region, prod).AddRecent(res.Pos, 0)
			}
		}
		if sim.Recorder != nil {
			sim.Recorder.RecordAbsorption(record.Absorption{
				Time: now, Species: sp, Region: int(res.Region),
				Reaction: res.Reaction, Pos: [3]float64(res.Pos),
			})
		}
		sim.Metrics.ReactionsFired++
		sim.Metrics.promReactions.Inc()
		return false, mol
	}
	return true, mol
}

// reactFirstOrder runs the competing first-order reactions of one species
// over the settled list. window scales the step for partial-step molecules.
func (sim *Simulator) reactFirstOrder(id RegionID, sp int, now float64, window float64) {
	r := &sim.Arena.Regions[id]
	t := r.Table
	if len(t.FirstBySpecies[sp]) == 0 {
		return
	}
	l := sim.Store.List(id, sp)
	kept := l.Mols[:0]
	for i := range l.Mols {
		mol := l.Mols[i]
		if sim.tryFirstOrder(id, sp, &mol, window, now) {
			kept = append(kept, mol)
		}
	}
	l.Mols = kept
}

// tryFirstOrder draws one uniform variate against the species' cumulative
// probability table, scaled to the given step fraction. On a firing it
// places the products with the remaining time fraction and reports false
// (the reactant is consumed).
func (sim *Simulator) tryFirstOrder(id RegionID, sp int, mol *Molecule, window, now float64) bool {
	r := &sim.Arena.Regions[id]
	t := r.Table
	slots := t.FirstBySpecies[sp]
	sumRate := t.SumRate[sp]
	if sumRate <= 0 {
		return true
	}

	u := sim.reactRng.Float64()
	cum := 0.0
	total := 1 - math.Exp(-r.Spec.Dt*window*sumRate)
	fired := -1
	for k, slot := range slots {
		spec := &sim.Specs[t.Global[slot]]
		if spec.Surface && spec.SurfaceKind != SurfNormal {
			// Resolved geometrically on boundary contact, not here.
			continue
		}
		if math.IsInf(t.Rate[slot], 1) {
			// Matches the compiled split: certain events share the mass
			// among the infinite-rate reactions only.
			cum += t.RelRate[sp][k]
		} else {
			cum += t.RelRate[sp][k] * total
		}
		if u < cum {
			fired = slot
			break
		}
	}
	if fired < 0 {
		return true
	}

	// Reaction time within the window, from the truncated exponential.
	frac := 0.0
	if !math.IsInf(sumRate, 1) {
		v := sim.reactRng.Float64()
		tRxn := -math.Log(1-v*total) / sumRate
		frac = window - tRxn/r.Spec.Dt
		if frac < 0 {
			frac = 0
		}
	}
	for _, prod := range t.ProductSpecies(fired) {
		sim.Store.List(id, prod).AddRecent(mol.Pos, frac)
	}
	sim.recordReaction(now, id, t.Global[fired], mol.Pos, false)
	return false
}

// drainRecentPasses bounds the mid-step reaction cascade; remaining time
// fractions shrink every pass, so this only guards against degenerate
// tables.
const drainRecentPasses = 50

// drainRecent repeatedly processes the region's recent lists: each molecule
// diffuses and reacts over its remaining time fraction; products re-enter
// the recent lists with a smaller fraction. Quiescent lists merge into the
// settled population.
func (sim *Simulator) drainRecent(id RegionID, now float64) {
	for pass := 0; pass < drainRecentPasses; pass++ {
		busy := false
		for sp := 0; sp < sim.Arena.Species; sp++ {
			l := sim.Store.List(id, sp)
			if len(l.Recent) == 0 {
				continue
			}
			busy = true
			pending := l.Recent
			l.Recent = nil
			for _, mol := range pending {
				frac := mol.DtPartial
				if frac <= 0 {
					// Arrived with its step already spent; settles as-is.
					l.Mols = append(l.Mols, mol)
					continue
				}
				keep, moved := sim.moveMolecule(id, sp, mol, frac, now)
				if !keep {
					continue
				}
				if !sim.tryFirstOrder(id, sp, &moved, frac, now) {
					continue
				}
				l.Mols = append(l.Mols, moved)
			}
		}
		if !busy {
			return
		}
	}
	// Merge whatever is left; the cascade did not settle.
	for sp := 0; sp < sim.Arena.Species; sp++ {
		sim.Store.List(id, sp).Merge()
	}
}

func (sim *Simulator) recordReaction(now float64, id RegionID, reaction int, pos geom.Vec3, meso bool) {
	sim.Metrics.ReactionsFired++
	sim.Metrics.promReactions.Inc()
	if sim.Recorder != nil {
		sim.Recorder.RecordReaction(record.ReactionEvent{
			Time: now, Region: int(id), Reaction: reaction, Pos: [3]float64(pos), Meso: meso,
		})
	}
}
