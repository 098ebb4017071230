package geom

import "math"

// Intersects reports whether b1 and b2 overlap or come within clearance of
// each other. Nested boundaries (one strictly surrounding the other) do not
// count as intersecting; the test is used to validate that independently
// placed regions do not collide, and nesting is a legal placement.
func Intersects(b1, b2 Boundary, clearance float64) (bool, error) {
	switch {
	case b1.Shape == Box && b2.Shape == Box:
		return boxesOverlap(b1, b2, clearance), nil
	case b1.Shape == Rectangle && b2.Shape == Rectangle:
		f1, ok1 := b1.FlatAxis()
		f2, ok2 := b2.FlatAxis()
		if !ok1 || !ok2 || f1 != f2 {
			return false, nil
		}
		if math.Abs(b1.V[2*f1]-b2.V[2*f2]) > clearance {
			return false, nil
		}
		pa, pb := f1.planarAxes()
		return rangesOverlap(b1, b2, pa, clearance) && rangesOverlap(b1, b2, pb, clearance), nil
	case b1.Shape == Box && b2.Shape == Sphere:
		return boxSphereIntersect(b1, b2, clearance)
	case b1.Shape == Sphere && b2.Shape == Box:
		return boxSphereIntersect(b2, b1, clearance)
	case b1.Shape == Sphere && b2.Shape == Sphere:
		d := b1.sphereCenter().Dist(b2.sphereCenter())
		return d < b1.V[3]+b2.V[3]+clearance && d > math.Abs(b1.V[3]-b2.V[3]), nil
	case b1.Shape == Cylinder && b2.Shape == Box:
		return cylinderBoxIntersect(b1, b2, clearance), nil
	case b1.Shape == Box && b2.Shape == Cylinder:
		return cylinderBoxIntersect(b2, b1, clearance), nil
	case b1.Shape == Cylinder && b2.Shape == Cylinder:
		if b1.cylAxis() != b2.cylAxis() {
			return false, unsupportedPair("Intersects", b1.Shape, b2.Shape)
		}
		planar := math.Hypot(b1.V[0]-b2.V[0], b1.V[1]-b2.V[1])
		if planar >= b1.V[3]+b2.V[3]+clearance {
			return false, nil
		}
		return b1.V[2] < b2.V[2]+b2.V[5]+clearance && b2.V[2] < b1.V[2]+b1.V[5]+clearance, nil
	}
	return false, unsupportedPair("Intersects", b1.Shape, b2.Shape)
}

func boxesOverlap(b1, b2 Boundary, clearance float64) bool {
	return rangesOverlap(b1, b2, AxisX, clearance) &&
		rangesOverlap(b1, b2, AxisY, clearance) &&
		rangesOverlap(b1, b2, AxisZ, clearance)
}

// rangesOverlap is the separating-axis test along one dimension, widened by
// clearance.
func rangesOverlap(b1, b2 Boundary, a Axis, clearance float64) bool {
	return b1.V[2*a] < b2.V[2*a+1]+clearance && b2.V[2*a] < b1.V[2*a+1]+clearance
}

func boxSphereIntersect(box, sphere Boundary, clearance float64) (bool, error) {
	// Squared distance from sphere centre to the nearest box point.
	var d float64
	c := sphere.sphereCenter()
	for a := AxisX; a <= AxisZ; a++ {
		if c[a] < box.V[2*a] {
			d += sq1(box.V[2*a] - c[a])
		} else if c[a] > box.V[2*a+1] {
			d += sq1(c[a] - box.V[2*a+1])
		}
	}
	if d >= sq1(sphere.V[3]+clearance) {
		return false, nil
	}
	// A surrounded pair is nested, not intersecting.
	if in, err := Surrounds(box, sphere, 0); err != nil || in {
		return false, err
	}
	if in, err := Surrounds(sphere, box, 0); err != nil || in {
		return false, err
	}
	return true, nil
}

// cylinderBoxIntersect runs a 2D circle/rectangle test in the cylinder's
// cross-section plane, then checks the axial ranges.
func cylinderBoxIntersect(cyl, box Boundary, clearance float64) bool {
	axis := cyl.cylAxis()
	pa, pb := axis.planarAxes()
	var d float64
	if cyl.V[0] < box.V[2*pa] {
		d += sq1(box.V[2*pa] - cyl.V[0])
	} else if cyl.V[0] > box.V[2*pa+1] {
		d += sq1(cyl.V[0] - box.V[2*pa+1])
	}
	if cyl.V[1] < box.V[2*pb] {
		d += sq1(box.V[2*pb] - cyl.V[1])
	} else if cyl.V[1] > box.V[2*pb+1] {
		d += sq1(cyl.V[1] - box.V[2*pb+1])
	}
	if d >= sq1(cyl.V[3]+clearance) {
		return false
	}
	return cyl.V[2] < box.V[2*axis+1]+clearance && box.V[2*axis] < cyl.V[2]+cyl.V[5]+clearance
}

// Adjacent reports whether b1 and b2 share a face, and if so along which face
// of b1 the neighbour lies. Both boundaries must be rectangular, or both
// cylindrical with the same axis orientation. Coincident planes are
// classified with the absolute tolerance distError.
func Adjacent(b1, b2 Boundary, distError float64) (bool, Face, error) {
	switch {
	case (b1.Shape == Box || b1.Shape == Rectangle) && (b2.Shape == Box || b2.Shape == Rectangle):
		return boxesAdjacent(b1, b2, distError), boxAdjacentFace(b1, b2, distError), nil
	case b1.Shape == Cylinder && b2.Shape == Cylinder:
		if b1.cylAxis() != b2.cylAxis() {
			return false, FaceNone, unsupportedPair("Adjacent", b1.Shape, b2.Shape)
		}
		// Cap-to-cap adjacency along the shared axis.
		if math.Hypot(b1.V[0]-b2.V[0], b1.V[1]-b2.V[1]) >= distError+math.Abs(b1.V[3]-b2.V[3]) {
			return false, FaceNone, nil
		}
		axis := b1.cylAxis()
		if math.Abs(b1.V[2]-(b2.V[2]+b2.V[5])) < distError {
			return true, faceOf(axis, false), nil
		}
		if math.Abs(b2.V[2]-(b1.V[2]+b1.V[5])) < distError {
			return true, faceOf(axis, true), nil
		}
		return false, FaceNone, nil
	}
	return false, FaceNone, unsupportedPair("Adjacent", b1.Shape, b2.Shape)
}

func boxesAdjacent(b1, b2 Boundary, distError float64) bool {
	return boxAdjacentFace(b1, b2, distError) != FaceNone
}

// boxAdjacentFace finds the face of b1 whose plane coincides with an opposing
// face of b2, requiring strict overlap along each of the other two axes.
func boxAdjacentFace(b1, b2 Boundary, distError float64) Face {
	for a := AxisX; a <= AxisZ; a++ {
		pa, pb := a.planarAxes()
		if !strictOverlap(b1, b2, pa, distError) || !strictOverlap(b1, b2, pb, distError) {
			continue
		}
		if math.Abs(b1.V[2*a]-b2.V[2*a+1]) < distError {
			return faceOf(a, false)
		}
		if math.Abs(b2.V[2*a]-b1.V[2*a+1]) < distError {
			return faceOf(a, true)
		}
	}
	return FaceNone
}

// strictOverlap requires the two extents to overlap by more than distError
// along axis a. A zero-extent axis (a rectangle's flat axis on both sides)
// counts as overlapping when the planes coincide.
func strictOverlap(b1, b2 Boundary, a Axis, distError float64) bool {
	if b1.V[2*a] == b1.V[2*a+1] && b2.V[2*a] == b2.V[2*a+1] {
		return math.Abs(b1.V[2*a]-b2.V[2*a]) < distError
	}
	return b1.V[2*a+1] > b2.V[2*a]+distError && b2.V[2*a+1] > b1.V[2*a]+distError
}

// Surrounds reports whether inner lies entirely within outer, offset inward
// by clearance.
func Surrounds(inner, outer Boundary, clearance float64) (bool, error) {
	switch {
	case (inner.Shape == Box || inner.Shape == Rectangle) &&
		(outer.Shape == Box || outer.Shape == Rectangle):
		for a := AxisX; a <= AxisZ; a++ {
			if inner.V[2*a] < outer.V[2*a]+clearance && inner.V[2*a] != inner.V[2*a+1] {
				return false, nil
			}
			if inner.V[2*a+1] > outer.V[2*a+1]-clearance && inner.V[2*a] != inner.V[2*a+1] {
				return false, nil
			}
			if inner.V[2*a] < outer.V[2*a] || inner.V[2*a+1] > outer.V[2*a+1] {
				return false, nil
			}
		}
		return true, nil
	case inner.Shape == Box && outer.Shape == Sphere:
		// All eight corners must be at least clearance inside the sphere.
		c := outer.sphereCenter()
		for _, x := range []float64{inner.V[0], inner.V[1]} {
			for _, y := range []float64{inner.V[2], inner.V[3]} {
				for _, z := range []float64{inner.V[4], inner.V[5]} {
					if outer.V[3] < (Vec3{x, y, z}).Dist(c)+clearance {
						return false, nil
					}
				}
			}
		}
		return true, nil
	case inner.Shape == Sphere && outer.Shape == Box:
		r := inner.V[3]
		c := inner.sphereCenter()
		for a := AxisX; a <= AxisZ; a++ {
			if r > c[a]-outer.V[2*a]-clearance || r > outer.V[2*a+1]-c[a]-clearance {
				return false, nil
			}
		}
		return true, nil
	case inner.Shape == Sphere && outer.Shape == Sphere:
		return outer.V[3] >= inner.V[3]+inner.sphereCenter().Dist(outer.sphereCenter())+clearance, nil
	case inner.Shape == Cylinder && outer.Shape == Box:
		axis := inner.cylAxis()
		pa, pb := axis.planarAxes()
		r := inner.V[3]
		if inner.V[0]-r < outer.V[2*pa]+clearance || inner.V[0]+r > outer.V[2*pa+1]-clearance {
			return false, nil
		}
		if inner.V[1]-r < outer.V[2*pb]+clearance || inner.V[1]+r > outer.V[2*pb+1]-clearance {
			return false, nil
		}
		return inner.V[2] >= outer.V[2*axis]+clearance &&
			inner.V[2]+inner.V[5] <= outer.V[2*axis+1]-clearance, nil
	case inner.Shape == Cylinder && outer.Shape == Cylinder:
		if inner.cylAxis() != outer.cylAxis() {
			return false, unsupportedPair("Surrounds", inner.Shape, outer.Shape)
		}
		planar := math.Hypot(inner.V[0]-outer.V[0], inner.V[1]-outer.V[1])
		return planar+inner.V[3] <= outer.V[3]-clearance &&
			inner.V[2] >= outer.V[2]+clearance &&
			inner.V[2]+inner.V[5] <= outer.V[2]+outer.V[5]-clearance, nil
	}
	return false, unsupportedPair("Surrounds", inner.Shape, outer.Shape)
}

// IntersectionOf computes the boundary of the geometric intersection of b1
// and b2, used at setup time to size interface areas between regions. For
// spherical operands one boundary must fully contain the other, or the two
// must be disjoint (yielding a degenerate zero box).
func IntersectionOf(b1, b2 Boundary) (Boundary, error) {
	rectangular := func(s Shape) bool { return s == Box || s == Rectangle }
	switch {
	case rectangular(b1.Shape) && rectangular(b2.Shape):
		out := Boundary{Shape: Box}
		if b1.Shape == Rectangle || b2.Shape == Rectangle {
			out.Shape = Rectangle
		}
		for a := AxisX; a <= AxisZ; a++ {
			out.V[2*a] = math.Max(b1.V[2*a], b2.V[2*a])
			out.V[2*a+1] = math.Min(b1.V[2*a+1], b2.V[2*a+1])
		}
		return out, nil
	case b1.Shape == Sphere || b2.Shape == Sphere:
		if in, err := Surrounds(b1, b2, 0); err == nil && in {
			return b1, nil
		}
		if in, err := Surrounds(b2, b1, 0); err == nil && in {
			return b2, nil
		}
		if hit, err := Intersects(b1, b2, 0); err != nil {
			return Boundary{}, err
		} else if !hit {
			return Boundary{Shape: Box}, nil
		}
		return Boundary{}, unsupportedPair("IntersectionOf", b1.Shape, b2.Shape)
	}
	return Boundary{}, unsupportedPair("IntersectionOf", b1.Shape, b2.Shape)
}
