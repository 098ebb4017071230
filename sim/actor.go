package sim

import (
	"math/rand"

	"github.com/molcom-sim/molcom-sim/sim/geom"
	"github.com/molcom-sim/molcom-sim/sim/record"
)

// ReleaseActor injects molecules into a region on a timed schedule: Count
// molecules of Species at Start, then again every Period until Releases
// batches have been placed (0 = once).
type ReleaseActor struct {
	Label    string
	Species  int
	Region   RegionID
	Count    int
	Start    float64
	Period   float64
	Releases int

	// UsePoint pins every molecule to Point instead of sampling uniformly
	// over the region.
	UsePoint bool
	Point    geom.Vec3

	released int
	rng      *rand.Rand
}

// NewReleaseActor binds an actor to its RNG stream.
func NewReleaseActor(label string, prng *PartitionedRNG) *ReleaseActor {
	return &ReleaseActor{
		Label: label,
		rng:   prng.ForSubsystem(SubsystemRelease + "_" + label),
	}
}

// Release places one batch of molecules and schedules the next batch.
func (a *ReleaseActor) Release(sim *Simulator, now float64) {
	r := &sim.Arena.Regions[a.Region]
	for i := 0; i < a.Count; i++ {
		p := a.Point
		if !a.UsePoint {
			p = sim.Arena.RandomPoint(a.rng, a.Region)
		}
		if r.Micro() {
			sim.Store.Add(a.Region, a.Species, p)
		} else {
			sim.Meso[a.Region].Credit(a.Species, p)
		}
	}
	a.released++
	if a.Period > 0 && (a.Releases == 0 || a.released < a.Releases) {
		next := now + a.Period
		if next <= sim.Horizon {
			sim.Schedule(&ReleaseEvent{time: next, Actor: a})
		}
	}
}

// ObserveActor counts molecules inside an observation boundary on a timed
// schedule and emits one record.Observation per tick.
type ObserveActor struct {
	Label  string
	Bound  geom.Boundary
	Start  float64
	Period float64
}

// Observe counts every species within the actor's boundary and schedules
// the next observation.
func (a *ObserveActor) Observe(sim *Simulator, now float64) {
	counts := make([]int, sim.Arena.Species)
	for ri := range sim.Arena.Regions {
		id := RegionID(ri)
		if sim.Arena.Regions[ri].Micro() {
			for sp := 0; sp < sim.Arena.Species; sp++ {
				l := sim.Store.List(id, sp)
				for i := range l.Mols {
					if geom.PointInBoundary(l.Mols[i].Pos, a.Bound) {
						counts[sp]++
					}
				}
				for i := range l.Recent {
					if geom.PointInBoundary(l.Recent[i].Pos, a.Bound) {
						counts[sp]++
					}
				}
			}
			continue
		}
		m := sim.Meso[id]
		if m == nil {
			continue
		}
		for _, si := range m.active {
			s := &m.Subs[si]
			if !geom.PointInBoundary(s.Center(), a.Bound) {
				continue
			}
			for sp, n := range s.Pop {
				counts[sp] += n
			}
		}
	}
	sim.Recorder.RecordObservation(record.Observation{Time: now, Actor: a.Label, Counts: counts})

	if a.Period > 0 {
		next := now + a.Period
		if next <= sim.Horizon {
			sim.Schedule(&ObserveEvent{time: next, Actor: a})
		}
	}
}
