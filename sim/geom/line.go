package geom

import "math"

// Hit describes the nearest intersection of a directed segment with a
// boundary surface.
type Hit struct {
	Dist  float64 // distance from the segment origin
	Point Vec3    // intersection point
	Face  Face    // face that was crossed
}

// LineHit finds the nearest positive-distance intersection of the segment
// (origin, dir, length) with the boundary's surface. All candidate faces are
// tried (6 for a box, 2 caps plus the mantle for a cylinder, the implicit
// surface for a sphere) and the minimum-distance hit within (0, length] wins.
// inside selects which sphere/mantle crossing is wanted: the exit point when
// the origin is interior, the entry point otherwise.
func LineHit(origin, dir Vec3, length float64, b Boundary, inside bool) (Hit, bool, error) {
	switch b.Shape {
	case Box, Rectangle:
		best := Hit{Dist: math.Inf(1), Face: FaceNone}
		found := false
		for f := FaceXMin; f <= FaceZMax; f++ {
			h, ok := LineHitFacePlane(origin, dir, length, b, f)
			if ok && PointOnFace(h.Point, b, f) && h.Dist < best.Dist {
				best = h
				found = true
			}
		}
		return best, found, nil
	case Sphere:
		c := b.sphereCenter()
		toOrigin := origin.Sub(c)
		ldot := dir.Dot(toOrigin)
		disc := ldot*ldot + b.V[3]*b.V[3] - toOrigin.Dot(toOrigin)
		if disc < 0 {
			return Hit{}, false, nil
		}
		d := -ldot - math.Sqrt(disc)
		if inside {
			d = -ldot + math.Sqrt(disc)
		}
		if d <= 0 || d > length {
			return Hit{}, false, nil
		}
		return Hit{Dist: d, Point: origin.Add(dir.Scale(d)), Face: FaceCurved}, true, nil
	case Cylinder:
		return cylinderLineHit(origin, dir, length, b, inside)
	}
	return Hit{}, false, unsupportedShape("LineHit", b.Shape)
}

func cylinderLineHit(origin, dir Vec3, length float64, b Boundary, inside bool) (Hit, bool, error) {
	axis := b.cylAxis()
	best := Hit{Dist: math.Inf(1), Face: FaceNone}
	found := false

	// Cap candidates behave like box faces along the cylinder axis.
	for i, capVal := range []float64{b.V[2], b.V[2] + b.V[5]} {
		if dir[axis] == 0 {
			continue
		}
		d := (capVal - origin[axis]) / dir[axis]
		if d <= 0 || d > length {
			continue
		}
		p := origin.Add(dir.Scale(d))
		f := faceOf(axis, i == 1)
		if PointOnFace(p, b, f) && d < best.Dist {
			best = Hit{Dist: d, Point: p, Face: f}
			found = true
		}
	}

	// Mantle candidate: a 2D ray/circle test in the cross-section plane.
	oa, ob, _ := b.cylPlanar(origin)
	da, db, _ := b.cylPlanar(dir)
	oa -= b.V[0]
	ob -= b.V[1]
	qa := da*da + db*db
	qb := 2 * (oa*da + ob*db)
	qc := oa*oa + ob*ob - b.V[3]*b.V[3]
	if qa > 0 {
		if disc := qb*qb - 4*qa*qc; disc >= 0 {
			d := (-qb - math.Sqrt(disc)) / (2 * qa)
			if inside {
				d = (-qb + math.Sqrt(disc)) / (2 * qa)
			}
			if d > 0 && d <= length {
				p := origin.Add(dir.Scale(d))
				if PointOnFace(p, b, FaceCurved) && d < best.Dist {
					best = Hit{Dist: d, Point: p, Face: FaceCurved}
					found = true
				}
			}
		}
	}
	return best, found, nil
}

// LineHitFacePlane intersects the segment with the infinite plane containing
// one planar face of a box or rectangle. The caller is responsible for
// confirming the hit lies on the face itself (PointOnFace).
func LineHitFacePlane(origin, dir Vec3, length float64, b Boundary, face Face) (Hit, bool) {
	axis := face.Axis()
	if dir[axis] == 0 {
		return Hit{}, false
	}
	d := (b.V[face] - origin[axis]) / dir[axis]
	if d <= 0 || d > length {
		return Hit{}, false
	}
	return Hit{Dist: d, Point: origin.Add(dir.Scale(d)), Face: face}, true
}

// PointOnFace reports whether a point already known to lie on a face's plane
// (or on the mantle's infinite cylinder) falls within the face's extent.
func PointOnFace(p Vec3, b Boundary, face Face) bool {
	switch b.Shape {
	case Box, Rectangle:
		pa, pb := face.Axis().planarAxes()
		return p[pa] >= b.V[2*pa] && p[pa] <= b.V[2*pa+1] &&
			p[pb] >= b.V[2*pb] && p[pb] <= b.V[2*pb+1]
	case Sphere:
		return true
	case Cylinder:
		if face == FaceCurved {
			_, _, ax := b.cylPlanar(p)
			return ax >= b.V[2] && ax <= b.V[2]+b.V[5]
		}
		pa, pb, _ := b.cylPlanar(p)
		return sq1(pa-b.V[0])+sq1(pb-b.V[1]) <= sq1(b.V[3])
	}
	return false
}

// FaceBoundary returns the boundary of one face: a zero-extent rectangle for
// a box face, a circle for a cylinder cap, the boundary itself for curved
// surfaces.
func FaceBoundary(b Boundary, face Face) Boundary {
	switch b.Shape {
	case Box, Rectangle:
		out := b
		out.Shape = Rectangle
		axis := face.Axis()
		out.V[2*axis] = b.V[face]
		out.V[2*axis+1] = b.V[face]
		return out
	case Cylinder:
		if face != FaceCurved {
			axis := b.cylAxis()
			ax := b.V[2]
			if face.IsUpper() {
				ax += b.V[5]
			}
			return NewCircle(b.cylPoint(b.V[0], b.V[1], ax), axis, b.V[3])
		}
	}
	return b
}

// Reflect computes the mirror image of curPoint across the boundary face
// crossed by the segment (oldPoint, dir, length). inward selects the sphere
// or mantle crossing direction, matching LineHit. When the segment does not
// reach the boundary the point is instead locked to the boundary along the
// segment's extension (or left at oldPoint), and ok is false.
func Reflect(oldPoint, dir Vec3, length float64, curPoint Vec3, b Boundary, inward bool) (newPoint Vec3, hit Hit, ok bool) {
	h, okHit, err := LineHit(oldPoint, dir, length, b, inward)
	if err != nil || !okHit {
		// Fall back: lock the point to the boundary if the extended line
		// eventually reaches it, otherwise keep it at the start.
		h, okHit, err = LineHit(oldPoint, dir, math.Inf(1), b, inward)
		if err != nil || !okHit {
			h = Hit{Point: oldPoint, Face: FaceNone}
		}
		return h.Point, h, false
	}

	newPoint = curPoint
	switch b.Shape {
	case Box, Rectangle:
		axis := h.Face.Axis()
		newPoint[axis] = 2*b.V[h.Face] - curPoint[axis]
		return newPoint, h, true
	case Sphere:
		normal := h.Point.Sub(b.sphereCenter())
		d := 2 * curPoint.Sub(h.Point).Dot(normal) / normal.Dot(normal)
		return newPoint.Sub(normal.Scale(d)), h, true
	case Cylinder:
		if h.Face != FaceCurved {
			axis := h.Face.Axis()
			capVal := b.V[2]
			if h.Face.IsUpper() {
				capVal += b.V[5]
			}
			newPoint[axis] = 2*capVal - curPoint[axis]
			return newPoint, h, true
		}
		// Mirror about the mantle normal, which has no axial component.
		na, nb, _ := b.cylPlanar(h.Point)
		normal := b.cylPoint(na-b.V[0], nb-b.V[1], 0)
		d := 2 * curPoint.Sub(h.Point).Dot(normal) / normal.Dot(normal)
		return newPoint.Sub(normal.Scale(d)), h, true
	}
	return curPoint, h, false
}
