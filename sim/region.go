package sim

import (
	"fmt"

	"github.com/molcom-sim/molcom-sim/sim/geom"
)

// RegionID is a stable handle into the region arena.
type RegionID int

// RegionNone marks the absence of a region (e.g. the root's parent).
const RegionNone RegionID = -1

// RegionKind classifies what a region's volume means.
type RegionKind int

const (
	// KindNormal is an ordinary volume region that does not impede diffusion
	// across its boundary.
	KindNormal RegionKind = iota
	// KindSurface2D is a planar surface region.
	KindSurface2D
	// KindSurface3D is a hollow 3D surface region that mediates transitions
	// between the volumes on either side.
	KindSurface3D
)

func (k RegionKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindSurface2D:
		return "surface-2d"
	case KindSurface3D:
		return "surface-3d"
	}
	return "?"
}

// SurfaceKind refines non-normal regions.
type SurfaceKind int

const (
	SurfaceNone SurfaceKind = iota
	SurfaceMembrane
	SurfaceInner
	SurfaceOuter
)

func (k SurfaceKind) String() string {
	switch k {
	case SurfaceNone:
		return "none"
	case SurfaceMembrane:
		return "membrane"
	case SurfaceInner:
		return "inner"
	case SurfaceOuter:
		return "outer"
	}
	return "?"
}

// Relation describes how a neighbouring region is reachable.
type Relation int

const (
	RelNone Relation = iota
	RelParent
	RelChild
	RelAdjacent
)

// RegionSpec carries the validated parameters of one region, as supplied by
// the configuration layer.
type RegionSpec struct {
	Label   string
	Parent  string // parent label; empty for a root region
	Shape   geom.Shape
	Anchor  geom.Vec3 // lower corner for rectangular shapes, centre otherwise
	SubSize int       // subvolume edge length, in multiples of the base size
	NumX    int       // subvolume counts along each axis (rectangular shapes)
	NumY    int
	NumZ    int
	Radius  float64   // round shapes
	Axis    geom.Axis // cylinder axis
	Length  float64   // cylinder length
	Kind    RegionKind
	Surface SurfaceKind
	Micro   bool    // microscopic resolution; false = mesoscopic
	Dt      float64 // region time step
	// DiffCoef holds the per-species diffusion coefficients inside this
	// region. Length must equal the species count.
	DiffCoef []float64
}

// neighborInfo caches everything the diffusion validator needs to test a
// crossing into one particular neighbour.
type neighborInfo struct {
	id   RegionID
	rel  Relation
	face geom.Face     // valid when rel == RelAdjacent: the shared face of this region
	span geom.Boundary // shared face extent when rel == RelAdjacent
}

// Region is one node of the spatial hierarchy, owned by the Arena.
type Region struct {
	ID       RegionID
	Spec     RegionSpec
	Boundary geom.Boundary

	// SubSize is the actual subvolume edge length (radius for round shapes).
	SubSize float64
	// SubResolution is the adjacency tolerance derived from the base
	// subvolume size.
	SubResolution float64
	// Dim is the spatial dimensionality of the region's measure.
	Dim int

	Parent    RegionID
	Children  []RegionID
	neighbors []neighborInfo

	// Volume is the region's spatial measure net of its children.
	Volume float64

	// Table is the compiled reaction table, populated by CompileReactions.
	Table *ReactionTable
}

// Micro reports whether the region is simulated at microscopic resolution.
func (r *Region) Micro() bool { return r.Spec.Micro }

// DiffusionSigma returns the per-axis standard deviation of a Brownian
// displacement over the region's time step for the given species.
func (r *Region) DiffusionSigma(species int) float64 {
	return diffusionSigma(r.Spec.DiffCoef[species], r.Spec.Dt)
}

// Arena owns the full region hierarchy. It is built once at setup and is
// read-only during a simulation run.
type Arena struct {
	Regions []Region
	Species int

	byLabel map[string]RegionID
}

// subAdjResolution is the fraction of the base subvolume size within which
// two region faces are classified as coincident.
const subAdjResolution = 0.01

// BuildArena validates the region specs and assembles the arena: boundaries,
// parent/child links, adjacency relations with shared-face extents, and net
// volumes. species is the number of chemical species; every spec must carry
// that many diffusion coefficients. baseSize is the base subvolume edge
// length shared by all mesoscopic regions.
func BuildArena(specs []RegionSpec, species int, baseSize float64) (*Arena, error) {
	a := &Arena{
		Regions: make([]Region, len(specs)),
		Species: species,
		byLabel: make(map[string]RegionID, len(specs)),
	}

	for i, spec := range specs {
		id := RegionID(i)
		r := &a.Regions[i]
		r.ID = id
		r.Spec = spec
		r.Parent = RegionNone
		r.SubResolution = baseSize * subAdjResolution

		if len(spec.DiffCoef) != species {
			return nil, fmt.Errorf("region %q: %w: %d diffusion coefficients for %d species",
				spec.Label, ErrInvalidRegionHierarchy, len(spec.DiffCoef), species)
		}
		if (spec.Kind == KindNormal) != (spec.Surface == SurfaceNone) {
			return nil, fmt.Errorf("region %q: %w: kind %s with surface sub-kind %s",
				spec.Label, ErrInvalidRegionHierarchy, spec.Kind, spec.Surface)
		}

		switch spec.Shape {
		case geom.Box, geom.Rectangle:
			r.SubSize = float64(spec.SubSize) * baseSize
			x, y, z := spec.Anchor[0], spec.Anchor[1], spec.Anchor[2]
			r.Boundary = geom.Boundary{Shape: spec.Shape, V: [6]float64{
				x, x + r.SubSize*float64(spec.NumX),
				y, y + r.SubSize*float64(spec.NumY),
				z, z + r.SubSize*float64(spec.NumZ),
			}}
		case geom.Sphere:
			r.SubSize = spec.Radius
			r.Boundary = geom.NewSphere(spec.Anchor, spec.Radius)
		case geom.Cylinder:
			r.SubSize = spec.Radius
			r.Boundary = geom.NewCylinder(spec.Anchor, spec.Axis, spec.Radius, spec.Length)
		default:
			return nil, fmt.Errorf("region %q: %w: shape %s not usable as a region boundary",
				spec.Label, ErrInvalidRegionHierarchy, spec.Shape)
		}

		switch spec.Shape {
		case geom.Rectangle, geom.Circle:
			r.Dim = 2
		case geom.Line:
			r.Dim = 1
		default:
			r.Dim = 3
		}
		if spec.Kind == KindSurface2D {
			r.Dim = 2
		}

		if spec.Label != "" {
			if _, dup := a.byLabel[spec.Label]; dup {
				return nil, fmt.Errorf("region %q: %w: duplicate label", spec.Label, ErrInvalidRegionHierarchy)
			}
			a.byLabel[spec.Label] = id
		}
	}

	// Resolve parents and build children lists.
	for i := range a.Regions {
		r := &a.Regions[i]
		if r.Spec.Parent == "" {
			continue
		}
		pid, ok := a.byLabel[r.Spec.Parent]
		if !ok || pid == r.ID {
			return nil, fmt.Errorf("region %q: %w: parent %q not found",
				r.Spec.Label, ErrInvalidRegionHierarchy, r.Spec.Parent)
		}
		r.Parent = pid
		a.Regions[pid].Children = append(a.Regions[pid].Children, r.ID)
	}

	// Reject parent cycles: walking up must terminate within the region count.
	for i := range a.Regions {
		cur := a.Regions[i].Parent
		for hops := 0; cur != RegionNone; hops++ {
			if hops > len(a.Regions) {
				return nil, fmt.Errorf("region %q: %w: cyclic parent chain",
					a.Regions[i].Spec.Label, ErrInvalidRegionHierarchy)
			}
			cur = a.Regions[cur].Parent
		}
	}

	// Geometric validation: children inside parents, siblings disjoint.
	for i := range a.Regions {
		r := &a.Regions[i]
		if r.Parent != RegionNone {
			parent := &a.Regions[r.Parent]
			in, err := geom.Surrounds(r.Boundary, parent.Boundary, 0)
			if err != nil {
				return nil, fmt.Errorf("region %q in %q: %w", r.Spec.Label, parent.Spec.Label, err)
			}
			if !in {
				return nil, fmt.Errorf("region %q: %w: not contained by parent %q",
					r.Spec.Label, ErrInvalidRegionHierarchy, parent.Spec.Label)
			}
		}
		for j := i + 1; j < len(a.Regions); j++ {
			s := &a.Regions[j]
			if r.Parent != s.Parent {
				continue
			}
			overlap, err := geom.Intersects(r.Boundary, s.Boundary, 0)
			if err != nil {
				return nil, fmt.Errorf("regions %q and %q: %w", r.Spec.Label, s.Spec.Label, err)
			}
			if overlap {
				return nil, fmt.Errorf("regions %q and %q: %w: sibling boundaries overlap",
					r.Spec.Label, s.Spec.Label, ErrInvalidRegionHierarchy)
			}
		}
	}

	// Neighbour relations: parent/child links plus face-sharing adjacency.
	for i := range a.Regions {
		r := &a.Regions[i]
		for j := range a.Regions {
			if i == j {
				continue
			}
			s := &a.Regions[j]
			switch {
			case r.Parent == s.ID:
				r.neighbors = append(r.neighbors, neighborInfo{id: s.ID, rel: RelParent})
			case s.Parent == r.ID:
				r.neighbors = append(r.neighbors, neighborInfo{id: s.ID, rel: RelChild})
			default:
				adj, face, err := geom.Adjacent(r.Boundary, s.Boundary, r.SubResolution)
				if err != nil || !adj {
					continue // non-comparable shapes simply aren't adjacent
				}
				span, spanErr := geom.IntersectionOf(geom.FaceBoundary(r.Boundary, face), s.Boundary)
				if spanErr != nil {
					span = geom.FaceBoundary(r.Boundary, face)
				}
				// Pin the span onto this region's face plane; the neighbour's
				// coincident plane may be off by less than the tolerance.
				span.V[2*face.Axis()] = r.Boundary.V[face]
				span.V[2*face.Axis()+1] = r.Boundary.V[face]
				r.neighbors = append(r.neighbors, neighborInfo{id: s.ID, rel: RelAdjacent, face: face, span: span})
			}
		}
	}

	// Net volumes.
	for i := range a.Regions {
		r := &a.Regions[i]
		r.Volume = r.Boundary.Volume()
		for _, c := range r.Children {
			r.Volume -= a.Regions[c].Boundary.Volume()
		}
		if r.Volume < 0 {
			r.Volume = 0
		}
	}

	return a, nil
}

// ByLabel returns the region with the given label.
func (a *Arena) ByLabel(label string) (RegionID, bool) {
	id, ok := a.byLabel[label]
	return id, ok
}

// PointInRegionNotChild reports whether p lies in the region's own volume,
// excluding the volumes claimed by its children.
func (a *Arena) PointInRegionNotChild(id RegionID, p geom.Vec3) bool {
	r := &a.Regions[id]
	if !geom.PointInBoundary(p, r.Boundary) {
		return false
	}
	for _, c := range r.Children {
		if geom.PointInBoundary(p, a.Regions[c].Boundary) {
			return false
		}
	}
	return true
}

// PointInRegionOrChild resolves the region that actually owns p, descending
// into nested children. The boolean is false when p is outside the region
// entirely.
func (a *Arena) PointInRegionOrChild(id RegionID, p geom.Vec3) (RegionID, bool) {
	r := &a.Regions[id]
	if !geom.PointInBoundary(p, r.Boundary) {
		return RegionNone, false
	}
	for _, c := range r.Children {
		if owner, ok := a.PointInRegionOrChild(c, p); ok {
			return owner, true
		}
	}
	return id, true
}

// FindRegion locates the region owning p, excluding children, across the
// whole arena.
func (a *Arena) FindRegion(p geom.Vec3) (RegionID, bool) {
	for i := range a.Regions {
		if a.PointInRegionNotChild(RegionID(i), p) {
			return RegionID(i), true
		}
	}
	return RegionNone, false
}

// SharedBoundary reports whether the given face of start coincides with the
// corresponding face of end, within start's adjacency resolution. A molecule
// exiting through a shared face leaves both regions at once, so the parent
// cannot claim the crossing.
func (a *Arena) SharedBoundary(start, end RegionID, face geom.Face) bool {
	rs := &a.Regions[start]
	re := &a.Regions[end]
	if rs.Spec.Shape != re.Spec.Shape {
		return false
	}
	switch rs.Spec.Shape {
	case geom.Box, geom.Rectangle:
		return abs1(rs.Boundary.V[face]-re.Boundary.V[face]) < rs.SubResolution
	case geom.Sphere:
		return rs.Boundary.V[3] == re.Boundary.V[3]
	}
	return false
}

// LockToFace clamps p onto the face of the boundary that governs the
// transition from start to end: the child's boundary when crossing into or
// out of a child, otherwise the start region's own boundary.
func (a *Arena) LockToFace(p geom.Vec3, start, end RegionID, face geom.Face) geom.Vec3 {
	bound := start
	if a.Regions[end].Parent == start {
		bound = end
	}
	b := a.Regions[bound].Boundary
	switch b.Shape {
	case geom.Box, geom.Rectangle:
		p[face.Axis()] = b.V[face]
	case geom.Sphere:
		// Project onto the sphere along the radial direction.
		c := geom.Vec3{b.V[0], b.V[1], b.V[2]}
		d := p.Sub(c)
		n := d.Norm()
		if n > 0 {
			p = c.Add(d.Scale(b.V[3] / n))
		}
	}
	return p
}

// RandomPoint rejection-samples a uniform point inside the region, excluding
// its children.
func (a *Arena) RandomPoint(rng geom.Rand, id RegionID) geom.Vec3 {
	for {
		p := geom.RandomPoint(rng, a.Regions[id].Boundary)
		if a.PointInRegionNotChild(id, p) {
			return p
		}
	}
}

func abs1(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
