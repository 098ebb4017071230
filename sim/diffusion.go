package sim

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/molcom-sim/molcom-sim/sim/geom"
)

// diffusionSigma is the per-axis standard deviation of a Brownian
// displacement with diffusion coefficient d over time dt.
func diffusionSigma(d, dt float64) float64 {
	return math.Sqrt(2 * d * dt)
}

// Outcome classifies how one microscopic diffusion step ended.
type Outcome int

const (
	// OutcomeCommitted: the molecule settled inside its starting region.
	OutcomeCommitted Outcome = iota
	// OutcomeReflected: the molecule settled after one or more reflections.
	OutcomeReflected
	// OutcomeTransmitted: the molecule ended in a different region; when the
	// destination is mesoscopic, Pos is the boundary handoff point.
	OutcomeTransmitted
	// OutcomeAbsorbed: a surface reaction consumed the molecule; Reaction
	// holds the reaction index and Pos the contact point.
	OutcomeAbsorbed
	// OutcomeFailed: the path could not be resolved; the molecule is locked
	// at Pos inside Region.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeReflected:
		return "reflected"
	case OutcomeTransmitted:
		return "transmitted"
	case OutcomeAbsorbed:
		return "absorbed"
	case OutcomeFailed:
		return "failed"
	}
	return "?"
}

// StepResult is the resolved end state of one molecule displacement.
type StepResult struct {
	Outcome Outcome
	Pos     geom.Vec3
	Region  RegionID
	// Reaction is the global reaction index that consumed the molecule, or
	// -1 when no reaction fired.
	Reaction int
}

// maxFollowDepth bounds the region-crossing recursion of a single step.
// A path that is still unresolved after this many crossings is clamped at
// its last resolved point.
const maxFollowDepth = 20

// pushFracStart and pushFracShrink drive the loop that nudges a
// face-locked point into the destination region until membership resolves.
const (
	pushFracStart  = 1e-2
	pushFracShrink = 1e-1
	pushFracMin    = 1e-10
)

// Validator resolves the path of one molecule displacement against the
// region hierarchy: reflections off unclaimed boundary, transmission into
// neighbouring regions, surface-reaction outcomes, and mesoscopic handoff.
type Validator struct {
	arena   *Arena
	specs   []ReactionSpec
	rng     *rand.Rand
	normal  distuv.Normal
	uniform *rand.Rand
	metrics *Metrics
}

// NewValidator builds a Validator over an arena with compiled reaction
// tables. metrics may be nil.
func NewValidator(a *Arena, specs []ReactionSpec, prng *PartitionedRNG, metrics *Metrics) *Validator {
	src := rand.NewSource(prng.SeedFor(SubsystemDiffusion))
	r := rand.New(src)
	return &Validator{
		arena:   a,
		specs:   specs,
		rng:     r,
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: r,
		metrics: metrics,
	}
}

// Displace samples a Brownian displacement of one molecule of a species in
// a region. dtFrac scales the region time step for molecules created
// mid-step.
func (v *Validator) Displace(region RegionID, species int, p geom.Vec3, dtFrac float64) geom.Vec3 {
	r := &v.arena.Regions[region]
	sigma := diffusionSigma(r.Spec.DiffCoef[species], r.Spec.Dt*dtFrac)
	for i := 0; i < 3; i++ {
		p[i] += sigma * v.normal.Rand()
	}
	if r.Dim < 3 {
		// Surface-bound molecules stay on the surface plane.
		if ax, ok := r.Boundary.FlatAxis(); ok {
			p[ax] = r.Boundary.V[2*ax]
		}
	}
	return p
}

// Step resolves the displacement of one molecule from oldPos to newPos,
// starting inside region start.
func (v *Validator) Step(start RegionID, species int, oldPos, newPos geom.Vec3) StepResult {
	if v.metrics != nil {
		v.metrics.Steps++
		v.metrics.promSteps.Inc()
	}
	if v.settles(start, newPos) {
		return StepResult{Outcome: OutcomeCommitted, Pos: newPos, Region: start, Reaction: -1}
	}
	w := &pathWalker{v: v, species: species}
	res := w.follow(start, oldPos, newPos, 0)
	if res.Outcome == OutcomeCommitted {
		switch {
		case res.Region != start:
			res.Outcome = OutcomeTransmitted
		case w.reflected:
			res.Outcome = OutcomeReflected
		}
	}
	return res
}

// settles reports whether a path end point can be accepted without tracing
// the segment. Only sound for childless regions: with children the
// region-minus-children set is non-convex, so a straight path can cross a
// child surface and still end inside the parent.
func (v *Validator) settles(id RegionID, p geom.Vec3) bool {
	return len(v.arena.Regions[id].Children) == 0 && v.arena.PointInRegionNotChild(id, p)
}

// pathWalker carries the per-step state of one follow recursion.
type pathWalker struct {
	v         *Validator
	species   int
	reflected bool
}

// follow traces the segment (oldPos, newPos) from inside region start,
// resolving one boundary event per recursion level.
func (w *pathWalker) follow(start RegionID, oldPos, newPos geom.Vec3, depth int) StepResult {
	v := w.v
	a := v.arena

	if depth >= maxFollowDepth {
		if v.metrics != nil {
			v.metrics.RecursionClamps++
			v.metrics.promRecursionClamps.Inc()
		}
		return StepResult{Outcome: OutcomeCommitted, Pos: oldPos, Region: start, Reaction: -1}
	}

	dir, length := geom.DefineLine(oldPos, newPos)
	if length == 0 {
		return StepResult{Outcome: OutcomeCommitted, Pos: oldPos, Region: start, Reaction: -1}
	}

	r := &a.Regions[start]

	// Find the nearest boundary crossing claimed by a neighbour.
	var (
		best    geom.Hit
		bestNb  = RegionNone
		bestRel Relation
		found   bool
	)
	best.Dist = math.Inf(1)
	for i := range r.neighbors {
		nb := &r.neighbors[i]
		var (
			h  geom.Hit
			ok bool
		)
		switch nb.rel {
		case RelParent:
			var err error
			h, ok, err = geom.LineHit(oldPos, dir, length, r.Boundary, true)
			if err != nil || !ok {
				continue
			}
			// A face shared with the parent exits the parent as well; the
			// parent cannot claim that crossing.
			if a.SharedBoundary(start, nb.id, h.Face) {
				continue
			}
		case RelChild:
			var err error
			h, ok, err = geom.LineHit(oldPos, dir, length, a.Regions[nb.id].Boundary, false)
			if err != nil || !ok {
				continue
			}
		case RelAdjacent:
			h, ok = geom.LineHitFacePlane(oldPos, dir, length, r.Boundary, nb.face)
			if !ok || !geom.PointOnFace(h.Point, nb.span, nb.face) {
				continue
			}
		}
		if h.Dist < best.Dist {
			best = h
			bestNb = nb.id
			bestRel = nb.rel
			found = true
		}
	}

	if !found {
		// No boundary crossed along the segment; an end point inside the
		// region settles directly.
		if a.PointInRegionNotChild(start, newPos) {
			return StepResult{Outcome: OutcomeCommitted, Pos: newPos, Region: start, Reaction: -1}
		}
		// No neighbour claims the exit: reflect off this region's own
		// boundary.
		return w.reflect(start, oldPos, dir, length, newPos, r.Boundary, true, depth)
	}

	dest := &a.Regions[bestNb]

	// Surface regions intercept the crossing with their compiled reaction.
	if dest.Spec.Kind != KindNormal {
		return w.surfaceContact(start, bestNb, bestRel, best, oldPos, dir, length, newPos, depth)
	}

	if !dest.Micro() {
		// Mesoscopic handoff terminates the microscopic path at the
		// boundary contact point.
		if v.metrics != nil {
			v.metrics.Handoffs++
		}
		return StepResult{Outcome: OutcomeTransmitted, Pos: best.Point, Region: bestNb, Reaction: -1}
	}

	return w.transmit(start, bestNb, best, dir, length, newPos, depth)
}

// transmit carries the molecule across the contact point into a microscopic
// neighbour and continues the remaining path there.
func (w *pathWalker) transmit(start, dest RegionID, hit geom.Hit, dir geom.Vec3, length float64, newPos geom.Vec3, depth int) StepResult {
	v := w.v
	a := v.arena

	locked := a.LockToFace(hit.Point, start, dest, hit.Face)
	remaining := length - hit.Dist
	if remaining <= 0 {
		return StepResult{Outcome: OutcomeCommitted, Pos: locked, Region: dest, Reaction: -1}
	}

	// The locked point sits exactly on the shared face; nudge it along the
	// path until one region (the neighbour or one of its children) claims
	// it, shrinking the nudge when it overshoots.
	owner := RegionNone
	var probe geom.Vec3
	for frac := pushFracStart; frac >= pushFracMin; frac *= pushFracShrink {
		probe = geom.PushPoint(locked, dir, frac*remaining)
		if id, ok := a.PointInRegionOrChild(dest, probe); ok {
			owner = id
			break
		}
	}
	if owner == RegionNone {
		// The path only grazes the neighbour; settle on the face.
		return StepResult{Outcome: OutcomeCommitted, Pos: locked, Region: dest, Reaction: -1}
	}
	if v.metrics != nil {
		v.metrics.Transmissions++
	}
	if v.settles(owner, newPos) {
		return StepResult{Outcome: OutcomeCommitted, Pos: newPos, Region: owner, Reaction: -1}
	}
	return w.follow(owner, probe, newPos, depth+1)
}

// surfaceContact resolves a crossing whose destination is a surface region:
// the species' exclusive surface reaction (if any) decides between
// absorption, membrane transmission, and reflection.
func (w *pathWalker) surfaceContact(start, surf RegionID, rel Relation, hit geom.Hit, oldPos, dir geom.Vec3, length float64, newPos geom.Vec3, depth int) StepResult {
	v := w.v
	a := v.arena
	dest := &a.Regions[surf]

	slot, kind, ok := dest.Table.SurfaceOutcome(w.species, v.specs)
	if ok {
		prob := dest.Table.CumProb[w.species][0]
		u := v.uniform.Float64()
		switch kind {
		case SurfAbsorbing, SurfReceptor:
			if u < prob {
				if v.metrics != nil {
					v.metrics.Absorptions++
					v.metrics.promAbsorptions.Inc()
				}
				return StepResult{
					Outcome:  OutcomeAbsorbed,
					Pos:      hit.Point,
					Region:   surf,
					Reaction: dest.Table.Global[slot],
				}
			}
		case SurfMembrane:
			if u < prob {
				// Pass through: nudge past the membrane plane and continue
				// in whichever region owns the far side.
				remaining := length - hit.Dist
				for frac := pushFracStart; frac >= pushFracMin; frac *= pushFracShrink {
					probe := geom.PushPoint(hit.Point, dir, frac*remaining)
					if id, okIn := a.FindRegion(probe); okIn && id != surf {
						if v.metrics != nil {
							v.metrics.Transmissions++
						}
						return w.follow(id, probe, newPos, depth+1)
					}
				}
				// Nothing on the far side; fall through to reflection.
			}
		}
	}

	return w.reflectOffContact(start, rel, surf, oldPos, dir, length, newPos, depth)
}

// reflectOffContact mirrors the path off the boundary that produced the
// contact: the child's boundary when the surface is a child of start, this
// region's own boundary otherwise.
func (w *pathWalker) reflectOffContact(start RegionID, rel Relation, surf RegionID, oldPos, dir geom.Vec3, length float64, newPos geom.Vec3, depth int) StepResult {
	a := w.v.arena
	b := a.Regions[start].Boundary
	inward := true
	if rel == RelChild {
		b = a.Regions[surf].Boundary
		inward = false
	}
	return w.reflect(start, oldPos, dir, length, newPos, b, inward, depth)
}

// reflect mirrors the path off a boundary and continues with the reflected
// end point.
func (w *pathWalker) reflect(start RegionID, oldPos, dir geom.Vec3, length float64, newPos geom.Vec3, b geom.Boundary, inward bool, depth int) StepResult {
	v := w.v

	mirrored, hit, ok := geom.Reflect(oldPos, dir, length, newPos, b, inward)
	if !ok {
		if v.metrics != nil {
			v.metrics.FailedSteps++
		}
		return StepResult{Outcome: OutcomeFailed, Pos: mirrored, Region: start, Reaction: -1}
	}
	w.reflected = true
	if v.metrics != nil {
		v.metrics.Reflections++
		v.metrics.promReflections.Inc()
	}
	if v.settles(start, mirrored) {
		return StepResult{Outcome: OutcomeCommitted, Pos: mirrored, Region: start, Reaction: -1}
	}
	return w.follow(start, hit.Point, mirrored, depth+1)
}
